package zkp

import (
	"crypto/subtle"

	"credchain/internal/crypto"
	dErrors "credchain/pkg/domain-errors"
)

// RangeProof bounds a secret value on both sides. Lower is a plain
// threshold proof for value >= min. Upper reuses the same seed walked
// from the other end, max-value+1 steps against a max+1 commitment,
// so overshooting the ceiling makes the step count impossible.
type RangeProof struct {
	Lower ThresholdProof `json:"lower"`
	Upper ThresholdProof `json:"upper"`
}

// Public strips the secret seeds from both halves.
func (p RangeProof) Public() RangeProof {
	p.Lower = p.Lower.Public()
	p.Upper = p.Upper.Public()
	return p
}

// ProveRange builds a proof that min <= actual <= max. Like
// ProveThreshold it refuses to fabricate: a value outside the window
// fails before any output exists.
func ProveRange(actual, min, max int, seed string) (RangeProof, error) {
	if min < 0 || max < min {
		return RangeProof{}, dErrors.Newf(dErrors.CodeInvalidInput, "invalid range [%d, %d]", min, max)
	}
	if actual < min || actual > max {
		return RangeProof{}, dErrors.Newf(dErrors.CodePrecondition, "value %d falls outside [%d, %d]", actual, min, max)
	}
	if seed == "" {
		var err error
		seed, err = crypto.NewSeed()
		if err != nil {
			return RangeProof{}, err
		}
	}

	lower, err := ProveThreshold(actual, min, seed)
	if err != nil {
		return RangeProof{}, err
	}
	upper := ThresholdProof{
		Proof:      crypto.HashChain(seed, max-actual+1),
		Commitment: crypto.HashChain(seed, max+1),
		Seed:       seed,
	}
	return RangeProof{Lower: lower, Upper: upper}, nil
}

// VerifyRange checks both halves against the public window; both must
// hold. The lower half is a standard threshold check. The upper half
// can only be closed by walking the remaining chain, and the honest
// step count is the prover's secret value, so the verifier scans the
// public window instead: some step count in [min, max] must land the
// upper proof on its commitment. The scan costs max-min+1 digests and
// the landing position necessarily mirrors the secret; a verifier
// that records it learns the value. That is a limit of this
// construction, carried as is.
func VerifyRange(p RangeProof, min, max int) bool {
	if min < 0 || max < min {
		return false
	}
	if !VerifyThreshold(p.Lower.Proof, p.Lower.Commitment, min) {
		return false
	}
	if p.Upper.Proof == "" || p.Upper.Commitment == "" {
		return false
	}
	cur := crypto.HashChain(p.Upper.Proof, min)
	for n := min; ; n++ {
		if subtle.ConstantTimeCompare([]byte(cur), []byte(p.Upper.Commitment)) == 1 {
			return true
		}
		if n == max {
			return false
		}
		cur = crypto.HashChain(cur, 1)
	}
}
