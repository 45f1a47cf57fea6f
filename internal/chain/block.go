package chain

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"credchain/internal/crypto"
	dErrors "credchain/pkg/domain-errors"
)

// GenesisPrevHash anchors block 0. It is the only previous-hash value
// that is not itself a mined block hash.
const GenesisPrevHash = "0"

// Block is one mined ledger entry. Every field except Hash is part of
// the hash preimage, so changing any byte after mining is detectable
// without consulting anything but the block and its successor.
type Block struct {
	Index     uint64
	Timestamp int64 // UnixNano, UTC
	Payload   Payload
	PrevHash  string
	Nonce     uint64
	Hash      string
}

type blockJSON struct {
	Index     uint64          `json:"index"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
	PrevHash  string          `json:"previous_hash"`
	Nonce     uint64          `json:"nonce"`
	Hash      string          `json:"hash"`
}

func (b Block) MarshalJSON() ([]byte, error) {
	payload, err := marshalPayload(b.Payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(blockJSON{
		Index:     b.Index,
		Timestamp: b.Timestamp,
		Payload:   payload,
		PrevHash:  b.PrevHash,
		Nonce:     b.Nonce,
		Hash:      b.Hash,
	})
}

func (b *Block) UnmarshalJSON(data []byte) error {
	var raw blockJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "decode block")
	}
	payload, err := unmarshalPayload(raw.Payload)
	if err != nil {
		return err
	}
	b.Index = raw.Index
	b.Timestamp = raw.Timestamp
	b.Payload = payload
	b.PrevHash = raw.PrevHash
	b.Nonce = raw.Nonce
	b.Hash = raw.Hash
	return nil
}

// blockHash derives the hash over index ‖ timestamp ‖ payload ‖
// previousHash ‖ nonce. Both mining and validation go through this
// one function so the two can never disagree on the preimage.
func blockHash(index uint64, ts int64, payloadJSON []byte, prevHash string, nonce uint64) string {
	return crypto.DigestHex([]byte(strconv.FormatUint(index, 10) +
		strconv.FormatInt(ts, 10) +
		string(payloadJSON) +
		prevHash +
		strconv.FormatUint(nonce, 10)))
}

// mine searches nonces from zero until the hash clears the difficulty
// target. The expected trial count grows sixteenfold per difficulty
// digit, so the loop re-checks ctx every few thousand trials; an
// abandoned search leaves no trace on the chain.
func mine(ctx context.Context, index uint64, ts int64, payloadJSON []byte, prevHash, target string) (string, uint64, error) {
	for nonce := uint64(0); ; nonce++ {
		if nonce%4096 == 0 {
			select {
			case <-ctx.Done():
				return "", 0, dErrors.Wrap(ctx.Err(), dErrors.CodeUnavailable, "mining abandoned")
			default:
			}
		}
		hash := blockHash(index, ts, payloadJSON, prevHash, nonce)
		if strings.HasPrefix(hash, target) {
			return hash, nonce, nil
		}
	}
}

// checkBlock re-derives a block's hash from its own fields and checks
// it against the stored hash and the difficulty target. Linkage to
// the predecessor is the caller's job; it needs both blocks.
func checkBlock(b Block, target string) bool {
	payloadJSON, err := marshalPayload(b.Payload)
	if err != nil {
		return false
	}
	if blockHash(b.Index, b.Timestamp, payloadJSON, b.PrevHash, b.Nonce) != b.Hash {
		return false
	}
	return strings.HasPrefix(b.Hash, target)
}
