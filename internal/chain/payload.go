package chain

import (
	"encoding/json"

	"credchain/internal/credential"
	dErrors "credchain/pkg/domain-errors"
)

// PayloadKind discriminates the block payload union.
type PayloadKind string

const (
	KindGenesis       PayloadKind = "genesis"
	KindCredential    PayloadKind = "credential"
	KindCredentialSet PayloadKind = "credential_set"
	KindRevocation    PayloadKind = "revocation"
)

// Payload is the closed set of things a block can carry. Only the four
// payload types in this package implement it; consumers switch on the
// concrete type and treat anything else as corrupt.
type Payload interface {
	Kind() PayloadKind
}

// GenesisPayload anchors the chain. It is valid only at index 0 and a
// ledger accepts exactly one.
type GenesisPayload struct {
	Note string `json:"note,omitempty"`
}

func (GenesisPayload) Kind() PayloadKind { return KindGenesis }

// CredentialPayload carries a single issued attribute record.
type CredentialPayload struct {
	Record credential.Record `json:"record"`
}

func (CredentialPayload) Kind() PayloadKind { return KindCredential }

// CredentialSetPayload carries every attribute issued for one subject
// in a single block, so one revocation marker voids them together.
type CredentialSetPayload struct {
	SubjectLabel string              `json:"subject_label,omitempty"`
	Records      []credential.Record `json:"records"`
}

func (CredentialSetPayload) Kind() PayloadKind { return KindCredentialSet }

// RevocationPayload marks an earlier block as void. The target block
// itself is never rewritten; revocation is the existence of a later
// marker that names it.
type RevocationPayload struct {
	TargetIndex uint64 `json:"target_index"`
	Reason      string `json:"reason,omitempty"`
}

func (RevocationPayload) Kind() PayloadKind { return KindRevocation }

// payloadEnvelope is the wire form of the union: a kind tag plus
// exactly one populated body field.
type payloadEnvelope struct {
	Kind          PayloadKind           `json:"kind"`
	Genesis       *GenesisPayload       `json:"genesis,omitempty"`
	Credential    *CredentialPayload    `json:"credential,omitempty"`
	CredentialSet *CredentialSetPayload `json:"credential_set,omitempty"`
	Revocation    *RevocationPayload    `json:"revocation,omitempty"`
}

// marshalPayload produces the canonical byte form of a payload, used
// both on the wire and as the payload segment of a block's hash
// preimage. encoding/json writes struct fields in declaration order,
// which keeps the bytes stable across runs and processes.
func marshalPayload(p Payload) ([]byte, error) {
	if p == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "block payload must not be nil")
	}
	env := payloadEnvelope{Kind: p.Kind()}
	switch v := p.(type) {
	case GenesisPayload:
		env.Genesis = &v
	case CredentialPayload:
		env.Credential = &v
	case CredentialSetPayload:
		env.CredentialSet = &v
	case RevocationPayload:
		env.Revocation = &v
	default:
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unknown payload type %T", p)
	}
	return json.Marshal(env)
}

func unmarshalPayload(data []byte) (Payload, error) {
	var env payloadEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "decode block payload")
	}
	switch env.Kind {
	case KindGenesis:
		if env.Genesis == nil {
			return nil, missingBody(env.Kind)
		}
		return *env.Genesis, nil
	case KindCredential:
		if env.Credential == nil {
			return nil, missingBody(env.Kind)
		}
		return *env.Credential, nil
	case KindCredentialSet:
		if env.CredentialSet == nil {
			return nil, missingBody(env.Kind)
		}
		return *env.CredentialSet, nil
	case KindRevocation:
		if env.Revocation == nil {
			return nil, missingBody(env.Kind)
		}
		return *env.Revocation, nil
	default:
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unknown payload kind %q", env.Kind)
	}
}

func missingBody(kind PayloadKind) error {
	return dErrors.Newf(dErrors.CodeInvalidInput, "payload envelope of kind %q has no body", kind)
}
