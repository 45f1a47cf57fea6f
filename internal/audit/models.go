// Package audit captures structured events for every ledger mutation and
// disclosure so operators can answer "who proved what, when" without
// reading application logs.
package audit

import "time"

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance.
	// These require tamper-proof storage and long retention.
	// Examples: credential issuance, revocation, identity proofs.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring and forensics.
	// Examples: tamper detection, snapshot persistence failures.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers events useful for debugging and operational
	// visibility. These can be sampled or aggregated with shorter retention.
	// Examples: session starts, validations, attribute verifications.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory `json:"category"`
	Timestamp time.Time     `json:"timestamp"`
	SessionID string        `json:"session_id,omitempty"`
	Subject   string        `json:"subject,omitempty"`
	Action    string        `json:"action"`
	Decision  string        `json:"decision,omitempty"`
	Reason    string        `json:"reason,omitempty"`
	IP        string        `json:"ip,omitempty"`
	Device    string        `json:"device,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
}

// ChainEvent names every audited action.
type ChainEvent string

const (
	// Session events
	EventSessionStarted ChainEvent = "session_started"

	// Ledger events
	EventCredentialIssued    ChainEvent = "credential_issued"
	EventCredentialSetIssued ChainEvent = "credential_set_issued"
	EventBlockRevoked        ChainEvent = "block_revoked"
	EventChainValidated      ChainEvent = "chain_validated"
	EventTamperDetected      ChainEvent = "tamper_detected"
	EventAttributeVerified   ChainEvent = "attribute_verified"

	// Proof events
	EventProofGenerated ChainEvent = "proof_generated"
	EventProofVerified  ChainEvent = "proof_verified"

	// Persistence events
	EventSnapshotSaved    ChainEvent = "snapshot_saved"
	EventSnapshotRestored ChainEvent = "snapshot_restored"
	EventSnapshotFailed   ChainEvent = "snapshot_failed"
)

// eventCategories maps each audit event to its category.
// Compliance: legal/regulatory significance, long retention required.
// Security: security monitoring, SIEM integration, alerting.
// Operations: debugging, operational visibility, can be sampled.
var eventCategories = map[ChainEvent]EventCategory{
	// Compliance events - issuance, revocation, and disclosures
	EventCredentialIssued:    CategoryCompliance,
	EventCredentialSetIssued: CategoryCompliance,
	EventBlockRevoked:        CategoryCompliance,
	EventProofGenerated:      CategoryCompliance,

	// Security events - integrity and persistence failures
	EventTamperDetected: CategorySecurity,
	EventSnapshotFailed: CategorySecurity,

	// Operations events - routine activity, can be sampled
	EventSessionStarted:    CategoryOperations,
	EventChainValidated:    CategoryOperations,
	EventAttributeVerified: CategoryOperations,
	EventProofVerified:     CategoryOperations,
	EventSnapshotSaved:     CategoryOperations,
	EventSnapshotRestored:  CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e ChainEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}
