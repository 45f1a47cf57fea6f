package vault

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"credchain/internal/audit"
	"credchain/internal/chain"
	"credchain/internal/credential"
	"credchain/internal/crypto"
	"credchain/internal/mykad"
	id "credchain/pkg/domain"
	dErrors "credchain/pkg/domain-errors"
	"credchain/pkg/platform/sentinel"
)

// StartSession generates a key pair, restores the chain from its
// snapshot when one exists, mines the genesis block when it does not,
// and installs the result as the active session. A previous session is
// superseded; its chain lives on through the snapshot.
func (m *Manager) StartSession(ctx context.Context) (*Session, error) {
	ctx, span := m.tracer.Start(ctx, "vault.StartSession")
	defer span.End()

	keys, err := crypto.GenerateKeyPair()
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	ledgerOpts := []chain.Option{
		chain.WithDifficulty(m.difficulty),
		chain.WithLogger(m.logger),
	}

	var ledger *chain.Ledger
	restored := false
	blob, err := m.snapshots.Load(ctx)
	switch {
	case err == nil:
		blocks, err := chain.DecodeBlocks(blob)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "decode chain snapshot")
		}
		ledger, err = chain.NewFromBlocks(blocks, ledgerOpts...)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "restore chain from snapshot")
		}
		valid, err := ledger.Validate(ctx)
		if err != nil {
			return nil, err
		}
		if !valid {
			m.emitAudit(ctx, audit.EventTamperDetected, "", "restored chain failed validation", "")
			return nil, dErrors.New(dErrors.CodeInternal, "restored chain failed validation")
		}
		restored = true
	case errors.Is(err, sentinel.ErrNotFound):
		ledger = chain.New(ledgerOpts...)
	default:
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "load chain snapshot")
	}

	sess := &Session{
		id:        id.NewSessionID(),
		keys:      keys,
		ledger:    ledger,
		createdAt: time.Now(),
		restored:  restored,
	}

	if ledger.Length() == 0 {
		started := time.Now()
		if _, err := ledger.Append(ctx, chain.GenesisPayload{Note: "credchain vault genesis"}); err != nil {
			span.RecordError(err)
			return nil, err
		}
		m.metrics.ObserveBlockAppended(string(chain.KindGenesis), time.Since(started), ledger.Length())
	}

	m.mu.Lock()
	m.active = sess
	m.mu.Unlock()

	span.SetAttributes(
		attribute.Bool("session.restored", restored),
		attribute.Int("chain.length", ledger.Length()),
	)
	m.emitAudit(ctx, audit.EventSessionStarted, "", "", "")
	if restored {
		m.emitAudit(ctx, audit.EventSnapshotRestored, "", "", strconv.Itoa(ledger.Length())+" blocks")
	} else {
		m.persistSnapshot(ctx, sess)
	}
	return sess, nil
}

// AddCredential hashes, signs and mines a single attribute record.
func (m *Manager) AddCredential(ctx context.Context, in credential.Input) (chain.Block, error) {
	ctx, span := m.tracer.Start(ctx, "vault.AddCredential")
	defer span.End()

	sess, err := m.Current()
	if err != nil {
		return chain.Block{}, err
	}

	record, err := credential.BuildRecord(in.Attribute, in.Value, *sess.keys, in.SensitiveOrDefault())
	if err != nil {
		span.RecordError(err)
		return chain.Block{}, err
	}

	block, err := m.appendPayload(ctx, sess, chain.CredentialPayload{Record: record})
	if err != nil {
		span.RecordError(err)
		return chain.Block{}, err
	}
	span.SetAttributes(attribute.Int64("block.index", int64(block.Index)))

	m.emitAudit(ctx, audit.EventCredentialIssued, "", "", in.Attribute)
	m.persistSnapshot(ctx, sess)
	return block, nil
}

// AddCredentialSet issues every attribute of one subject in a single
// block, so one revocation later voids them together.
func (m *Manager) AddCredentialSet(ctx context.Context, subjectLabel string, inputs []credential.Input) (chain.Block, error) {
	ctx, span := m.tracer.Start(ctx, "vault.AddCredentialSet")
	defer span.End()

	if len(inputs) == 0 {
		return chain.Block{}, dErrors.New(dErrors.CodeInvalidInput, "credential set must contain at least one record")
	}

	sess, err := m.Current()
	if err != nil {
		return chain.Block{}, err
	}

	records := make([]credential.Record, 0, len(inputs))
	for _, in := range inputs {
		record, err := credential.BuildRecord(in.Attribute, in.Value, *sess.keys, in.SensitiveOrDefault())
		if err != nil {
			span.RecordError(err)
			return chain.Block{}, err
		}
		records = append(records, record)
	}

	block, err := m.appendPayload(ctx, sess, chain.CredentialSetPayload{
		SubjectLabel: subjectLabel,
		Records:      records,
	})
	if err != nil {
		span.RecordError(err)
		return chain.Block{}, err
	}
	span.SetAttributes(
		attribute.Int64("block.index", int64(block.Index)),
		attribute.Int("records", len(records)),
	)

	m.emitAudit(ctx, audit.EventCredentialSetIssued, "", "", subjectLabel)
	m.persistSnapshot(ctx, sess)
	return block, nil
}

// AddCredentialSetFromCard parses a Malaysian identity card number and
// issues the derived attributes plus the holder's printed name as one
// credential set labelled with the name.
func (m *Manager) AddCredentialSetFromCard(ctx context.Context, nric, fullName string) (chain.Block, error) {
	identity, err := mykad.Parse(nric)
	if err != nil {
		return chain.Block{}, err
	}
	return m.AddCredentialSet(ctx, fullName, mykad.CredentialInputs(identity, fullName))
}

// RevokeBlock mines a revocation marker for the block at index. The
// target block stays untouched; revocation is a later block naming it.
func (m *Manager) RevokeBlock(ctx context.Context, index uint64, reason string) (chain.Block, error) {
	ctx, span := m.tracer.Start(ctx, "vault.RevokeBlock")
	defer span.End()

	sess, err := m.Current()
	if err != nil {
		return chain.Block{}, err
	}

	block, err := m.appendPayload(ctx, sess, chain.RevocationPayload{TargetIndex: index, Reason: reason})
	if err != nil {
		span.RecordError(err)
		return chain.Block{}, err
	}
	span.SetAttributes(attribute.Int64("block.index", int64(block.Index)))

	m.emitAudit(ctx, audit.EventBlockRevoked, "", reason, strconv.FormatUint(index, 10))
	m.persistSnapshot(ctx, sess)
	return block, nil
}

// VerifyAttribute checks a candidate plaintext against the named
// attribute in the block at index. Missing blocks, missing attributes
// and revoked blocks all answer false.
func (m *Manager) VerifyAttribute(ctx context.Context, index uint64, attr, value string) (bool, error) {
	sess, err := m.Current()
	if err != nil {
		return false, err
	}

	ok, err := sess.ledger.VerifyAttributeValue(index, attr, value)
	if err != nil {
		m.emitAudit(ctx, audit.EventAttributeVerified, "deny", err.Error(), attr)
		return false, err
	}
	m.metrics.IncrementVerification(ok)
	m.emitAudit(ctx, audit.EventAttributeVerified, verdictDecision(ok), "", attr)
	return ok, nil
}

// IsLedgerValid re-validates the whole chain. An invalid chain is an
// answer here, not an error, but it does raise a tamper event.
func (m *Manager) IsLedgerValid(ctx context.Context) (bool, error) {
	ctx, span := m.tracer.Start(ctx, "vault.IsLedgerValid")
	defer span.End()

	sess, err := m.Current()
	if err != nil {
		return false, err
	}

	valid, err := sess.ledger.Validate(ctx)
	if err != nil {
		span.RecordError(err)
		return false, err
	}
	m.metrics.IncrementValidation(valid)
	m.emitAudit(ctx, audit.EventChainValidated, verdictDecision(valid), "", "")
	if !valid {
		m.emitAudit(ctx, audit.EventTamperDetected, "", "chain failed validation", "")
	}
	return valid, nil
}

// ListBlocks returns the chain in insertion order.
func (m *Manager) ListBlocks(ctx context.Context) ([]chain.Block, error) {
	_ = ctx
	sess, err := m.Current()
	if err != nil {
		return nil, err
	}
	return sess.ledger.Blocks(), nil
}

// GetBlock returns one block with its revocation status resolved.
func (m *Manager) GetBlock(ctx context.Context, index uint64) (chain.Block, bool, error) {
	_ = ctx
	sess, err := m.Current()
	if err != nil {
		return chain.Block{}, false, err
	}
	block, err := sess.ledger.GetBlock(index)
	if err != nil {
		return chain.Block{}, false, err
	}
	return block, sess.ledger.IsRevoked(index), nil
}

// PublicKey returns the active session's verification key.
func (m *Manager) PublicKey(ctx context.Context) (string, error) {
	_ = ctx
	sess, err := m.Current()
	if err != nil {
		return "", err
	}
	return sess.PublicKey()
}

// appendPayload mines and appends under the ledger lock, then records
// the mining metrics and fans the new block out to watchers.
func (m *Manager) appendPayload(ctx context.Context, sess *Session, p chain.Payload) (chain.Block, error) {
	started := time.Now()
	block, err := sess.ledger.Append(ctx, p)
	if err != nil {
		return chain.Block{}, err
	}
	m.metrics.ObserveBlockAppended(string(p.Kind()), time.Since(started), sess.ledger.Length())
	m.notifyWatchers(block)
	return block, nil
}

func verdictDecision(ok bool) string {
	if ok {
		return "allow"
	}
	return "deny"
}
