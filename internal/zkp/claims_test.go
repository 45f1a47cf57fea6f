package zkp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "credchain/pkg/domain-errors"
)

func TestAgeGateClaims(t *testing.T) {
	t.Run("adult proves age_over_18", func(t *testing.T) {
		proof, err := ProveAgeOver18(34)
		require.NoError(t, err)
		assert.Equal(t, ClaimAgeOver18, proof.Kind)
		assert.True(t, VerifyClaim(proof, ClaimRequest{Kind: ClaimAgeOver18}))
	})

	t.Run("minor cannot prove age_over_18", func(t *testing.T) {
		_, err := ProveAgeOver18(16)
		assert.True(t, dErrors.HasCode(err, dErrors.CodePrecondition))
	})

	t.Run("nineteen-year-old cannot prove age_over_21", func(t *testing.T) {
		_, err := ProveAgeOver21(19)
		assert.True(t, dErrors.HasCode(err, dErrors.CodePrecondition))

		proof, err := ProveAgeOver21(21)
		require.NoError(t, err)
		assert.True(t, VerifyClaim(proof, ClaimRequest{Kind: ClaimAgeOver21}))
	})

	t.Run("an 18 proof does not satisfy a 21 request", func(t *testing.T) {
		proof, err := ProveAgeOver18(25)
		require.NoError(t, err)
		assert.False(t, VerifyClaim(proof, ClaimRequest{Kind: ClaimAgeOver21}), "kind mismatch must reject")
	})

	t.Run("claims never carry the seed", func(t *testing.T) {
		proof, err := ProveAgeOver18(25)
		require.NoError(t, err)
		assert.NotContains(t, proof.Proof, " ")
		assert.Len(t, proof.Proof, 64)
		assert.Len(t, proof.Commitment, 64)
	})
}

func TestAgeRangeClaim(t *testing.T) {
	proof, err := ProveAgeRange(30, 21, 40)
	require.NoError(t, err)
	require.Equal(t, ClaimAgeRange, proof.Kind)

	t.Run("verifies against the stated window", func(t *testing.T) {
		assert.True(t, VerifyClaim(proof, ClaimRequest{Kind: ClaimAgeRange, MinThreshold: 21, MaxThreshold: 40}))
	})

	t.Run("fails against a window excluding the age", func(t *testing.T) {
		assert.False(t, VerifyClaim(proof, ClaimRequest{Kind: ClaimAgeRange, MinThreshold: 31, MaxThreshold: 40}))
	})

	t.Run("serialized proof is integrity-checked", func(t *testing.T) {
		tampered := proof
		tampered.Proof = strings.Replace(tampered.Proof, `"lower"`, `"loser"`, 1)
		assert.False(t, VerifyClaim(tampered, ClaimRequest{Kind: ClaimAgeRange, MinThreshold: 21, MaxThreshold: 40}))
	})

	t.Run("garbage payload fails closed", func(t *testing.T) {
		broken := ClaimProof{Kind: ClaimAgeRange, Proof: "not json", Commitment: proof.Commitment}
		assert.False(t, VerifyClaim(broken, ClaimRequest{Kind: ClaimAgeRange, MinThreshold: 21, MaxThreshold: 40}))
	})

	t.Run("out-of-window age fails at proof time", func(t *testing.T) {
		_, err := ProveAgeRange(45, 21, 40)
		assert.True(t, dErrors.HasCode(err, dErrors.CodePrecondition))
	})
}

func TestIncomeThresholdClaim(t *testing.T) {
	proof, err := ProveIncomeThreshold(4200, 3000)
	require.NoError(t, err)

	t.Run("verifies against the floor it was built for", func(t *testing.T) {
		assert.True(t, VerifyClaim(proof, ClaimRequest{Kind: ClaimIncomeThreshold, MinThreshold: 3000}))
	})

	t.Run("different floor fails", func(t *testing.T) {
		assert.False(t, VerifyClaim(proof, ClaimRequest{Kind: ClaimIncomeThreshold, MinThreshold: 5000}))
	})

	t.Run("income below the floor fails at proof time", func(t *testing.T) {
		_, err := ProveIncomeThreshold(2500, 3000)
		assert.True(t, dErrors.HasCode(err, dErrors.CodePrecondition))
	})
}

func TestBooleanClaims(t *testing.T) {
	provers := map[ClaimKind]func() (ClaimProof, error){
		ClaimCitizenship:       func() (ClaimProof, error) { return ProveCitizenship("Malaysia") },
		ClaimResidency:         func() (ClaimProof, error) { return ProveResidency("Selangor") },
		ClaimVaccinationStatus: func() (ClaimProof, error) { return ProveVaccinationStatus("fully_vaccinated") },
		ClaimNoCriminalRecord:  ProveNoCriminalRecord,
	}

	for kind, prove := range provers {
		t.Run(string(kind), func(t *testing.T) {
			proof, err := prove()
			require.NoError(t, err)
			assert.Equal(t, kind, proof.Kind)
			assert.True(t, VerifyClaim(proof, ClaimRequest{Kind: kind}))

			// Shape is all the boolean kinds can check: the
			// commitment hides everything, so a malformed string is
			// the only rejectable forgery.
			broken := proof
			broken.Proof = ""
			assert.False(t, VerifyClaim(broken, ClaimRequest{Kind: kind}))

			broken = proof
			broken.Commitment = "too-short"
			assert.False(t, VerifyClaim(broken, ClaimRequest{Kind: kind}))
		})
	}
}

func TestVerifyClaimDispatch(t *testing.T) {
	proof, err := ProveAgeOver18(30)
	require.NoError(t, err)

	t.Run("unknown kinds are rejected", func(t *testing.T) {
		forged := proof
		forged.Kind = "age_over_12"
		assert.False(t, VerifyClaim(forged, ClaimRequest{Kind: "age_over_12"}))
	})

	t.Run("request kind must match proof kind", func(t *testing.T) {
		assert.False(t, VerifyClaim(proof, ClaimRequest{Kind: ClaimCitizenship}))
	})
}

func TestKinds(t *testing.T) {
	all := Kinds()
	assert.Len(t, all, 8)
	for _, k := range all {
		assert.True(t, KnownKind(k))
	}
	assert.False(t, KnownKind("age_over_12"))
}
