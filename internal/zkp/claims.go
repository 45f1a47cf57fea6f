package zkp

import (
	"encoding/json"
	"fmt"

	"credchain/internal/crypto"
	dErrors "credchain/pkg/domain-errors"
)

// ClaimKind names the claims a holder can prove. The kind fixes both
// the construction and the verification procedure.
type ClaimKind string

const (
	ClaimAgeOver18         ClaimKind = "age_over_18"
	ClaimAgeOver21         ClaimKind = "age_over_21"
	ClaimAgeRange          ClaimKind = "age_range"
	ClaimCitizenship       ClaimKind = "citizenship"
	ClaimResidency         ClaimKind = "residency"
	ClaimIncomeThreshold   ClaimKind = "income_threshold"
	ClaimVaccinationStatus ClaimKind = "vaccination_status"
	ClaimNoCriminalRecord  ClaimKind = "no_criminal_record"
)

// Kinds lists every claim kind in presentation order.
func Kinds() []ClaimKind {
	return []ClaimKind{
		ClaimAgeOver18,
		ClaimAgeOver21,
		ClaimAgeRange,
		ClaimCitizenship,
		ClaimResidency,
		ClaimIncomeThreshold,
		ClaimVaccinationStatus,
		ClaimNoCriminalRecord,
	}
}

// KnownKind reports whether k is one of the named claim kinds.
func KnownKind(k ClaimKind) bool {
	switch k {
	case ClaimAgeOver18, ClaimAgeOver21, ClaimAgeRange, ClaimCitizenship,
		ClaimResidency, ClaimIncomeThreshold, ClaimVaccinationStatus, ClaimNoCriminalRecord:
		return true
	}
	return false
}

// ClaimProof is the verifier-facing artifact for one claim. For the
// hash-chain-backed kinds, Proof and Commitment are the two chain
// positions. For age_range, Proof carries the serialized proof pair
// and Commitment is its digest. For the boolean kinds, both fields
// are opaque commitments; see VerifyClaim for what that buys.
type ClaimProof struct {
	Kind        ClaimKind `json:"kind"`
	Proof       string    `json:"proof"`
	Commitment  string    `json:"commitment"`
	Description string    `json:"description"`
}

// ClaimRequest is what a verifier asks for: the kind plus any public
// thresholds that kind needs. Kinds with fixed thresholds (the age
// gates) ignore the threshold fields.
type ClaimRequest struct {
	Kind         ClaimKind `json:"kind"`
	MinThreshold int       `json:"min_threshold,omitempty"`
	MaxThreshold int       `json:"max_threshold,omitempty"`
}

// Fixed tags mixed into the boolean-claim proofs. The tag ties the
// proof string to its claim kind.
var booleanTags = map[ClaimKind]string{
	ClaimCitizenship:       "citizen",
	ClaimResidency:         "resident",
	ClaimVaccinationStatus: "vaccinated",
	ClaimNoCriminalRecord:  "clean_record",
}

// ProveAgeOver18 proves the holder's age clears 18 without revealing
// it. Age is whole years at proof time.
func ProveAgeOver18(age int) (ClaimProof, error) {
	return thresholdClaim(ClaimAgeOver18, age, 18, "holder is at least 18 years old")
}

// ProveAgeOver21 proves the holder's age clears 21.
func ProveAgeOver21(age int) (ClaimProof, error) {
	return thresholdClaim(ClaimAgeOver21, age, 21, "holder is at least 21 years old")
}

// ProveAgeRange proves min <= age <= max against a public window.
func ProveAgeRange(age, min, max int) (ClaimProof, error) {
	rp, err := ProveRange(age, min, max, "")
	if err != nil {
		return ClaimProof{}, err
	}
	serialized, err := json.Marshal(rp.Public())
	if err != nil {
		return ClaimProof{}, dErrors.Wrap(err, dErrors.CodeInternal, "serialize range proof")
	}
	return ClaimProof{
		Kind:        ClaimAgeRange,
		Proof:       string(serialized),
		Commitment:  crypto.DigestHex(serialized),
		Description: fmt.Sprintf("holder's age falls within [%d, %d]", min, max),
	}, nil
}

// ProveIncomeThreshold proves monthly income in whole Ringgit clears
// the stated floor. Same chain construction as the age gates.
func ProveIncomeThreshold(income, min int) (ClaimProof, error) {
	return thresholdClaim(ClaimIncomeThreshold, income, min,
		fmt.Sprintf("monthly income meets the RM %d threshold", min))
}

// ProveCitizenship commits to the holder's citizenship. Like all the
// boolean claims this is tamper-evident, not zero-knowledge: the
// commitment fixes what was claimed at proof time, but a verifier
// cannot recompute anything without the secret.
func ProveCitizenship(country string) (ClaimProof, error) {
	return booleanClaim(ClaimCitizenship, country, "holder attested citizenship at proof time")
}

// ProveResidency commits to the holder's state of residence.
func ProveResidency(state string) (ClaimProof, error) {
	return booleanClaim(ClaimResidency, state, "holder attested residency at proof time")
}

// ProveVaccinationStatus commits to the holder's vaccination status.
func ProveVaccinationStatus(status string) (ClaimProof, error) {
	return booleanClaim(ClaimVaccinationStatus, status, "holder attested vaccination status at proof time")
}

// ProveNoCriminalRecord commits to a clean-record attestation.
func ProveNoCriminalRecord() (ClaimProof, error) {
	return booleanClaim(ClaimNoCriminalRecord, "", "holder attested a clean record at proof time")
}

func thresholdClaim(kind ClaimKind, actual, min int, description string) (ClaimProof, error) {
	tp, err := ProveThreshold(actual, min, "")
	if err != nil {
		return ClaimProof{}, err
	}
	// Seed stays with the prover; the claim carries only the public
	// chain positions.
	return ClaimProof{
		Kind:        kind,
		Proof:       tp.Proof,
		Commitment:  tp.Commitment,
		Description: description,
	}, nil
}

func booleanClaim(kind ClaimKind, value, description string) (ClaimProof, error) {
	seed, err := crypto.NewSeed()
	if err != nil {
		return ClaimProof{}, err
	}
	label := string(kind)
	if value != "" {
		label += ":" + value
	}
	return ClaimProof{
		Kind:        kind,
		Proof:       crypto.DigestHex([]byte(seed + booleanTags[kind])),
		Commitment:  crypto.DigestHex([]byte(label + seed)),
		Description: description,
	}, nil
}

// VerifyClaim dispatches on the claim kind. A request for a different
// kind than the proof carries is rejected outright.
//
// The age gates verify against their fixed thresholds; income uses
// the request's floor; age_range re-runs the range check against the
// request's window after checking the serialization digest. The
// boolean kinds admit only a shape check (non-empty digest-sized
// strings): their construction gives the verifier nothing to
// recompute, which is a known limit of the scheme, not an oversight.
func VerifyClaim(proof ClaimProof, req ClaimRequest) bool {
	if proof.Kind != req.Kind || !KnownKind(proof.Kind) {
		return false
	}

	switch proof.Kind {
	case ClaimAgeOver18:
		return VerifyThreshold(proof.Proof, proof.Commitment, 18)
	case ClaimAgeOver21:
		return VerifyThreshold(proof.Proof, proof.Commitment, 21)
	case ClaimIncomeThreshold:
		return VerifyThreshold(proof.Proof, proof.Commitment, req.MinThreshold)
	case ClaimAgeRange:
		if crypto.DigestHex([]byte(proof.Proof)) != proof.Commitment {
			return false
		}
		var rp RangeProof
		if err := json.Unmarshal([]byte(proof.Proof), &rp); err != nil {
			return false
		}
		return VerifyRange(rp, req.MinThreshold, req.MaxThreshold)
	case ClaimCitizenship, ClaimResidency, ClaimVaccinationStatus, ClaimNoCriminalRecord:
		return isDigestHex(proof.Proof) && isDigestHex(proof.Commitment)
	}
	return false
}

// isDigestHex reports whether s looks like a lowercase hex digest of
// the expected width.
func isDigestHex(s string) bool {
	if len(s) != crypto.DigestSize*2 {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
