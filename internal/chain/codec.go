package chain

import (
	"encoding/json"

	dErrors "credchain/pkg/domain-errors"
)

// EncodeBlocks serializes a chain as one JSON array in index order.
// This is the wholesale snapshot format: the whole chain is written
// after every mutation and read back verbatim at session start.
func EncodeBlocks(blocks []Block) ([]byte, error) {
	return json.Marshal(blocks)
}

// DecodeBlocks is the inverse of EncodeBlocks. It restores shape
// only; run ValidateBlocks on the result before trusting it.
func DecodeBlocks(data []byte) ([]Block, error) {
	var blocks []Block
	if err := json.Unmarshal(data, &blocks); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "decode chain snapshot")
	}
	return blocks, nil
}
