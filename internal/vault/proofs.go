package vault

import (
	"context"

	"credchain/internal/audit"
	"credchain/internal/zkp"
	dErrors "credchain/pkg/domain-errors"
)

// Proof kinds as they appear in metric labels and audit subjects. The
// named claims use their own kind strings.
const (
	proofKindThreshold = "threshold"
	proofKindRange     = "range"
)

// ClaimInput carries the holder-side inputs for a named claim. Which
// fields a kind requires is checked in GenerateClaim; unset numeric
// fields stay nil so "zero" and "absent" cannot be confused.
type ClaimInput struct {
	Age          *int   `json:"age,omitempty"`
	Income       *int   `json:"income,omitempty"`
	MinThreshold *int   `json:"min_threshold,omitempty"`
	MaxThreshold *int   `json:"max_threshold,omitempty"`
	Country      string `json:"country,omitempty"`
	State        string `json:"state,omitempty"`
	Status       string `json:"status,omitempty"`
}

// GenerateThresholdProof proves a secret value clears a public floor.
// The returned proof still carries the seed; it belongs to the holder
// and must be stripped before the proof travels to a verifier.
func (m *Manager) GenerateThresholdProof(ctx context.Context, actual, min int) (zkp.ThresholdProof, error) {
	proof, err := zkp.ProveThreshold(actual, min, "")
	if err != nil {
		m.emitAudit(ctx, audit.EventProofGenerated, "deny", err.Error(), proofKindThreshold)
		return zkp.ThresholdProof{}, err
	}
	m.metrics.IncrementProofGenerated(proofKindThreshold)
	m.emitAudit(ctx, audit.EventProofGenerated, "allow", "", proofKindThreshold)
	return proof, nil
}

// GenerateRangeProof proves a secret value sits inside a public window.
func (m *Manager) GenerateRangeProof(ctx context.Context, actual, min, max int) (zkp.RangeProof, error) {
	proof, err := zkp.ProveRange(actual, min, max, "")
	if err != nil {
		m.emitAudit(ctx, audit.EventProofGenerated, "deny", err.Error(), proofKindRange)
		return zkp.RangeProof{}, err
	}
	m.metrics.IncrementProofGenerated(proofKindRange)
	m.emitAudit(ctx, audit.EventProofGenerated, "allow", "", proofKindRange)
	return proof, nil
}

// GenerateClaim dispatches to the named claim prover for kind. A kind
// that cannot honestly be proven from the supplied inputs fails with
// the prover's precondition error; nothing dishonest is ever emitted.
func (m *Manager) GenerateClaim(ctx context.Context, kind zkp.ClaimKind, in ClaimInput) (zkp.ClaimProof, error) {
	if !zkp.KnownKind(kind) {
		return zkp.ClaimProof{}, dErrors.Newf(dErrors.CodeNotFound, "unknown claim kind %q", kind)
	}

	proof, err := m.buildClaim(kind, in)
	if err != nil {
		m.emitAudit(ctx, audit.EventProofGenerated, "deny", err.Error(), string(kind))
		return zkp.ClaimProof{}, err
	}
	m.metrics.IncrementProofGenerated(string(kind))
	m.emitAudit(ctx, audit.EventProofGenerated, "allow", "", string(kind))
	return proof, nil
}

func (m *Manager) buildClaim(kind zkp.ClaimKind, in ClaimInput) (zkp.ClaimProof, error) {
	switch kind {
	case zkp.ClaimAgeOver18:
		if in.Age == nil {
			return zkp.ClaimProof{}, missingClaimInput(kind, "age")
		}
		return zkp.ProveAgeOver18(*in.Age)
	case zkp.ClaimAgeOver21:
		if in.Age == nil {
			return zkp.ClaimProof{}, missingClaimInput(kind, "age")
		}
		return zkp.ProveAgeOver21(*in.Age)
	case zkp.ClaimAgeRange:
		if in.Age == nil {
			return zkp.ClaimProof{}, missingClaimInput(kind, "age")
		}
		if in.MinThreshold == nil || in.MaxThreshold == nil {
			return zkp.ClaimProof{}, missingClaimInput(kind, "min_threshold and max_threshold")
		}
		return zkp.ProveAgeRange(*in.Age, *in.MinThreshold, *in.MaxThreshold)
	case zkp.ClaimIncomeThreshold:
		if in.Income == nil {
			return zkp.ClaimProof{}, missingClaimInput(kind, "income")
		}
		if in.MinThreshold == nil {
			return zkp.ClaimProof{}, missingClaimInput(kind, "min_threshold")
		}
		return zkp.ProveIncomeThreshold(*in.Income, *in.MinThreshold)
	case zkp.ClaimCitizenship:
		if in.Country == "" {
			return zkp.ClaimProof{}, missingClaimInput(kind, "country")
		}
		return zkp.ProveCitizenship(in.Country)
	case zkp.ClaimResidency:
		if in.State == "" {
			return zkp.ClaimProof{}, missingClaimInput(kind, "state")
		}
		return zkp.ProveResidency(in.State)
	case zkp.ClaimVaccinationStatus:
		if in.Status == "" {
			return zkp.ClaimProof{}, missingClaimInput(kind, "status")
		}
		return zkp.ProveVaccinationStatus(in.Status)
	case zkp.ClaimNoCriminalRecord:
		return zkp.ProveNoCriminalRecord()
	}
	return zkp.ClaimProof{}, dErrors.Newf(dErrors.CodeNotFound, "unknown claim kind %q", kind)
}

func missingClaimInput(kind zkp.ClaimKind, field string) error {
	return dErrors.Newf(dErrors.CodeInvalidInput, "claim %s requires %s", kind, field)
}

// VerifyThresholdProof checks a proof/commitment pair against a public
// floor. The verdict is the whole answer; there is nothing to error.
func (m *Manager) VerifyThresholdProof(ctx context.Context, proof, commitment string, min int) bool {
	ok := zkp.VerifyThreshold(proof, commitment, min)
	m.metrics.IncrementProofVerified(proofKindThreshold, ok)
	m.emitAudit(ctx, audit.EventProofVerified, verdictDecision(ok), "", proofKindThreshold)
	return ok
}

// VerifyRangeProof checks both halves of a range proof against the
// public window.
func (m *Manager) VerifyRangeProof(ctx context.Context, proof zkp.RangeProof, min, max int) bool {
	ok := zkp.VerifyRange(proof, min, max)
	m.metrics.IncrementProofVerified(proofKindRange, ok)
	m.emitAudit(ctx, audit.EventProofVerified, verdictDecision(ok), "", proofKindRange)
	return ok
}

// VerifyClaimProof checks a named claim proof against a verifier's
// request for it.
func (m *Manager) VerifyClaimProof(ctx context.Context, proof zkp.ClaimProof, req zkp.ClaimRequest) bool {
	ok := zkp.VerifyClaim(proof, req)
	m.metrics.IncrementProofVerified(string(proof.Kind), ok)
	m.emitAudit(ctx, audit.EventProofVerified, verdictDecision(ok), "", string(proof.Kind))
	return ok
}
