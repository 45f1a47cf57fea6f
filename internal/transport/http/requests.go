package httptransport

import (
	"strings"

	"credchain/internal/credential"
	"credchain/internal/vault"
	"credchain/internal/zkp"
	dErrors "credchain/pkg/domain-errors"
)

const (
	maxAttributeLen  = 64
	maxValueLen      = 1024
	maxReasonLen     = 256
	maxRecordsPerSet = 64
)

// CredentialRequest is the HTTP request body for POST /v1/credentials.
// Sensitive overrides the per-attribute default when present.
type CredentialRequest struct {
	Attribute string `json:"attribute"`
	Value     string `json:"value"`
	Sensitive *bool  `json:"sensitive,omitempty"`
}

// Validate validates and normalizes the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *CredentialRequest) Validate() error {
	r.Attribute = strings.TrimSpace(r.Attribute)
	if r.Attribute == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "attribute is required")
	}
	if len(r.Attribute) > maxAttributeLen {
		return dErrors.Newf(dErrors.CodeInvalidInput, "attribute must be at most %d characters", maxAttributeLen)
	}
	if r.Value == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "value is required")
	}
	if len(r.Value) > maxValueLen {
		return dErrors.Newf(dErrors.CodeInvalidInput, "value must be at most %d characters", maxValueLen)
	}
	return nil
}

// Input converts the request to the vault's credential input.
func (r *CredentialRequest) Input() credential.Input {
	return credential.Input{
		Attribute: r.Attribute,
		Value:     r.Value,
		Sensitive: r.Sensitive,
	}
}

// CredentialSetRequest is the HTTP request body for POST
// /v1/credential-sets. Callers either spell out the records or submit
// an identity card number and let the server derive them; the two
// forms are mutually exclusive.
type CredentialSetRequest struct {
	SubjectLabel string              `json:"subject_label,omitempty"`
	Records      []CredentialRequest `json:"records,omitempty"`
	NRIC         string              `json:"nric,omitempty"`
	FullName     string              `json:"full_name,omitempty"`
}

// Validate validates and normalizes the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *CredentialSetRequest) Validate() error {
	r.SubjectLabel = strings.TrimSpace(r.SubjectLabel)
	r.NRIC = strings.TrimSpace(r.NRIC)
	r.FullName = strings.TrimSpace(r.FullName)

	switch {
	case r.NRIC != "" && len(r.Records) > 0:
		return dErrors.New(dErrors.CodeInvalidInput, "provide either records or nric, not both")
	case r.NRIC == "" && len(r.Records) == 0:
		return dErrors.New(dErrors.CodeInvalidInput, "either records or nric is required")
	}

	if len(r.Records) > maxRecordsPerSet {
		return dErrors.Newf(dErrors.CodeInvalidInput, "a credential set holds at most %d records", maxRecordsPerSet)
	}
	for i := range r.Records {
		if err := r.Records[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// FromCard reports whether the set should be derived from an identity
// card number.
func (r *CredentialSetRequest) FromCard() bool {
	return r.NRIC != ""
}

// Inputs converts the spelled-out records to vault credential inputs.
func (r *CredentialSetRequest) Inputs() []credential.Input {
	inputs := make([]credential.Input, 0, len(r.Records))
	for i := range r.Records {
		inputs = append(inputs, r.Records[i].Input())
	}
	return inputs
}

// RevokeRequest is the HTTP request body for POST
// /v1/blocks/{index}/revoke. The reason lands in the revocation block
// and the audit trail, so operators must state one.
type RevokeRequest struct {
	Reason string `json:"reason"`
}

// Validate validates and normalizes the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *RevokeRequest) Validate() error {
	r.Reason = strings.TrimSpace(r.Reason)
	if r.Reason == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "reason is required")
	}
	if len(r.Reason) > maxReasonLen {
		return dErrors.Newf(dErrors.CodeInvalidInput, "reason must be at most %d characters", maxReasonLen)
	}
	return nil
}

// VerifyAttributeRequest is the HTTP request body for POST /v1/verify.
type VerifyAttributeRequest struct {
	BlockIndex uint64 `json:"block_index"`
	Attribute  string `json:"attribute"`
	Value      string `json:"value"`
}

// Validate validates and normalizes the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *VerifyAttributeRequest) Validate() error {
	r.Attribute = strings.TrimSpace(r.Attribute)
	if r.Attribute == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "attribute is required")
	}
	if r.Value == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "value is required")
	}
	return nil
}

// ThresholdProofRequest is the HTTP request body for POST
// /v1/proofs/threshold. Value is the holder's secret; it never leaves
// the response's proof artifact.
type ThresholdProofRequest struct {
	Value        int `json:"value"`
	MinThreshold int `json:"min_threshold"`
}

// Validate implements the Validatable interface for
// httputil.DecodeAndPrepare. Threshold semantics (negative floors,
// unsatisfiable claims) are the proof engine's call.
func (r *ThresholdProofRequest) Validate() error {
	return nil
}

// RangeProofRequest is the HTTP request body for POST /v1/proofs/range.
type RangeProofRequest struct {
	Value        int `json:"value"`
	MinThreshold int `json:"min_threshold"`
	MaxThreshold int `json:"max_threshold"`
}

// Validate validates the window shape.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *RangeProofRequest) Validate() error {
	if r.MaxThreshold < r.MinThreshold {
		return dErrors.New(dErrors.CodeInvalidInput, "max_threshold must not be below min_threshold")
	}
	return nil
}

// ClaimProofRequest is the HTTP request body for POST
// /v1/proofs/claims/{kind}. Which fields are required depends on the
// claim kind; the proof engine rejects incomplete inputs per kind.
type ClaimProofRequest struct {
	Age          *int   `json:"age,omitempty"`
	Income       *int   `json:"income,omitempty"`
	MinThreshold *int   `json:"min_threshold,omitempty"`
	MaxThreshold *int   `json:"max_threshold,omitempty"`
	Country      string `json:"country,omitempty"`
	State        string `json:"state,omitempty"`
	Status       string `json:"status,omitempty"`
}

// Validate normalizes the free-text fields.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *ClaimProofRequest) Validate() error {
	r.Country = strings.TrimSpace(r.Country)
	r.State = strings.TrimSpace(r.State)
	r.Status = strings.TrimSpace(r.Status)
	return nil
}

// Input converts the request to the vault's claim input.
func (r *ClaimProofRequest) Input() vault.ClaimInput {
	return vault.ClaimInput{
		Age:          r.Age,
		Income:       r.Income,
		MinThreshold: r.MinThreshold,
		MaxThreshold: r.MaxThreshold,
		Country:      r.Country,
		State:        r.State,
		Status:       r.Status,
	}
}

// Proof artifact kinds accepted by POST /v1/proofs/verify.
const (
	ProofKindThreshold = "threshold"
	ProofKindRange     = "range"
	ProofKindClaim     = "claim"
)

// VerifyProofRequest is the HTTP request body for POST
// /v1/proofs/verify. Kind selects which section must be present; the
// proof objects are submitted exactly as the generation endpoints
// returned them, minus the secret seeds.
type VerifyProofRequest struct {
	Kind      string                  `json:"kind"`
	Threshold *ThresholdVerifySection `json:"threshold,omitempty"`
	Range     *RangeVerifySection     `json:"range,omitempty"`
	Claim     *ClaimVerifySection     `json:"claim,omitempty"`
}

// ThresholdVerifySection carries a threshold proof and its public floor.
type ThresholdVerifySection struct {
	Proof        zkp.ThresholdProof `json:"proof"`
	MinThreshold int                `json:"min_threshold"`
}

// RangeVerifySection carries a range proof and its public window.
type RangeVerifySection struct {
	Proof        zkp.RangeProof `json:"proof"`
	MinThreshold int            `json:"min_threshold"`
	MaxThreshold int            `json:"max_threshold"`
}

// ClaimVerifySection carries a claim proof and the verifier's request.
type ClaimVerifySection struct {
	Proof   zkp.ClaimProof   `json:"proof"`
	Request zkp.ClaimRequest `json:"request"`
}

// Validate checks that the section matching the declared kind is
// present. Implements the Validatable interface for
// httputil.DecodeAndPrepare.
func (r *VerifyProofRequest) Validate() error {
	r.Kind = strings.ToLower(strings.TrimSpace(r.Kind))
	switch r.Kind {
	case ProofKindThreshold:
		if r.Threshold == nil {
			return dErrors.New(dErrors.CodeInvalidInput, "threshold section is required")
		}
	case ProofKindRange:
		if r.Range == nil {
			return dErrors.New(dErrors.CodeInvalidInput, "range section is required")
		}
	case ProofKindClaim:
		if r.Claim == nil {
			return dErrors.New(dErrors.CodeInvalidInput, "claim section is required")
		}
		if r.Claim.Proof.Kind == "" || r.Claim.Request.Kind == "" {
			return dErrors.New(dErrors.CodeInvalidInput, "claim proof and request must both name a kind")
		}
	default:
		return dErrors.Newf(dErrors.CodeInvalidInput, "kind must be %q, %q, or %q",
			ProofKindThreshold, ProofKindRange, ProofKindClaim)
	}
	return nil
}
