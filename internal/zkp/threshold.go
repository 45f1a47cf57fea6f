// Package zkp implements hash-chain threshold proofs: a prover who
// knows a secret value can convince a verifier that the value clears
// a public threshold without revealing the value itself. The whole
// scheme rests on one identity of the digest chain,
//
//	chain(chain(seed, a), b) == chain(seed, a+b)
//
// so a proof is just a partially walked chain and verification walks
// the remaining public distance. The engine is stateless; every
// function is safe for concurrent use and consumes nothing but
// randomness.
package zkp

import (
	"crypto/subtle"

	"credchain/internal/crypto"
	dErrors "credchain/pkg/domain-errors"
)

// ThresholdProof shows that a secret value is at least some public
// minimum. Proof is the chain walked 1+value-min steps from the seed;
// Commitment is the chain walked value+1 steps. Walking Proof the
// remaining min steps lands on Commitment exactly when the claim was
// honest.
type ThresholdProof struct {
	Proof      string `json:"proof"`
	Commitment string `json:"encrypted_threshold_value"`

	// Seed is the prover's secret starting point. It stays with the
	// prover; anything sent to a verifier must have it stripped.
	Seed string `json:"seed,omitempty"`
}

// Public returns the proof with the secret seed removed, the form
// safe to hand to a verifier.
func (p ThresholdProof) Public() ThresholdProof {
	p.Seed = ""
	return p
}

// ProveThreshold builds a proof that actual >= min. It fails loudly
// when the claim is false: a dishonest proof is never produced. An
// empty seed draws a fresh 256-bit one.
func ProveThreshold(actual, min int, seed string) (ThresholdProof, error) {
	if actual < min {
		return ThresholdProof{}, dErrors.Newf(dErrors.CodePrecondition, "value %d does not meet threshold %d", actual, min)
	}
	if min < 0 {
		return ThresholdProof{}, dErrors.New(dErrors.CodeInvalidInput, "threshold must not be negative")
	}
	if seed == "" {
		var err error
		seed, err = crypto.NewSeed()
		if err != nil {
			return ThresholdProof{}, err
		}
	}
	return ThresholdProof{
		Proof:      crypto.HashChain(seed, 1+actual-min),
		Commitment: crypto.HashChain(seed, actual+1),
		Seed:       seed,
	}, nil
}

// VerifyThreshold walks the proof the remaining min steps and checks
// it lands on the commitment. The verifier learns the verdict and
// nothing about the prover's value beyond it.
func VerifyThreshold(proof, commitment string, min int) bool {
	if proof == "" || commitment == "" || min < 0 {
		return false
	}
	derived := crypto.HashChain(proof, min)
	return subtle.ConstantTimeCompare([]byte(derived), []byte(commitment)) == 1
}
