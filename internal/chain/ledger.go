// Package chain implements the append-only proof-of-work ledger that
// anchors issued credentials. Blocks carry a closed payload union
// (genesis, single credential, credential set, revocation marker) and
// are mined under an exclusive lock, so the chain grows one block at
// a time with every hash committing to the full content of its
// predecessor. Nothing here mutates history: revocation and every
// other state change is expressed as a new block.
package chain

import (
	"context"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"credchain/internal/credential"
	dErrors "credchain/pkg/domain-errors"
)

// DefaultDifficulty is the number of leading zero hex digits a block
// hash must carry. Four digits keeps mining around tens of
// milliseconds on current hardware.
const DefaultDifficulty = 4

// Option configures a Ledger.
type Option func(*Ledger)

// WithDifficulty sets the proof-of-work target. Zero disables the
// work requirement entirely, which is useful in tests.
func WithDifficulty(d int) Option {
	return func(l *Ledger) {
		if d < 0 {
			d = 0
		}
		l.difficulty = d
	}
}

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// Ledger is the in-memory chain. One exclusive lock wraps the whole
// read-tail, mine, extend sequence, so two concurrent appends can
// never both claim the same index or previous hash. Reads take the
// shared side of the lock and work on copies.
type Ledger struct {
	mu         sync.RWMutex
	blocks     []Block
	difficulty int
	target     string
	now        func() time.Time
	logger     *slog.Logger
}

// New returns an empty ledger. Nothing is mined yet: the first Append
// must carry the genesis payload.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		difficulty: DefaultDifficulty,
		now:        time.Now,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.target = strings.Repeat("0", l.difficulty)
	return l
}

// NewFromBlocks restores a ledger from a decoded snapshot. Only the
// shape is checked here; callers that do not trust the snapshot's
// origin should follow up with Validate.
func NewFromBlocks(blocks []Block, opts ...Option) (*Ledger, error) {
	l := New(opts...)
	if len(blocks) > 0 {
		first := blocks[0]
		if first.Index != 0 || first.Payload == nil || first.Payload.Kind() != KindGenesis {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "snapshot does not start with a genesis block")
		}
		l.blocks = make([]Block, len(blocks))
		copy(l.blocks, blocks)
	}
	return l, nil
}

// Append mines a block for the payload and extends the chain. The
// lock is held across the nonce search: appends serialize, and the
// tail read at entry is still the tail at link time. Cancelling ctx
// abandons the search with the chain untouched.
func (l *Ledger) Append(ctx context.Context, p Payload) (Block, error) {
	payloadJSON, err := marshalPayload(p)
	if err != nil {
		return Block{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.admit(p); err != nil {
		return Block{}, err
	}

	index := uint64(len(l.blocks))
	prevHash := GenesisPrevHash
	if index > 0 {
		prevHash = l.blocks[index-1].Hash
	}
	ts := l.now().UTC().UnixNano()

	started := time.Now()
	hash, nonce, err := mine(ctx, index, ts, payloadJSON, prevHash, l.target)
	if err != nil {
		return Block{}, err
	}

	b := Block{
		Index:     index,
		Timestamp: ts,
		Payload:   p,
		PrevHash:  prevHash,
		Nonce:     nonce,
		Hash:      hash,
	}
	l.blocks = append(l.blocks, b)

	l.logger.InfoContext(ctx, "block mined",
		slog.Uint64("index", index),
		slog.String("kind", string(p.Kind())),
		slog.Uint64("nonce", nonce),
		slog.Duration("took", time.Since(started)),
	)
	return b, nil
}

// admit enforces payload preconditions against the current tail.
// Callers hold the write lock.
func (l *Ledger) admit(p Payload) error {
	if len(l.blocks) == 0 {
		if p.Kind() != KindGenesis {
			return dErrors.New(dErrors.CodePrecondition, "chain has no genesis block yet")
		}
		return nil
	}
	switch v := p.(type) {
	case GenesisPayload:
		return dErrors.New(dErrors.CodePrecondition, "genesis block already present")
	case RevocationPayload:
		if v.TargetIndex >= uint64(len(l.blocks)) {
			return dErrors.Newf(dErrors.CodeInvalidReference, "revocation target %d does not exist", v.TargetIndex)
		}
		if v.TargetIndex == 0 {
			return dErrors.New(dErrors.CodeInvalidReference, "genesis block cannot be revoked")
		}
	}
	return nil
}

// Revoke appends a revocation marker for the block at target. The
// marker is mined and chained like any other block; the target block
// is left exactly as it was.
func (l *Ledger) Revoke(ctx context.Context, target uint64, reason string) (Block, error) {
	return l.Append(ctx, RevocationPayload{TargetIndex: target, Reason: reason})
}

// IsRevoked reports whether any later block is a revocation marker
// naming index. Unknown indexes are simply not revoked.
func (l *Ledger) IsRevoked(index uint64) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.isRevokedLocked(index)
}

func (l *Ledger) isRevokedLocked(index uint64) bool {
	for i := index + 1; i < uint64(len(l.blocks)); i++ {
		if rev, ok := l.blocks[i].Payload.(RevocationPayload); ok && rev.TargetIndex == index {
			return true
		}
	}
	return false
}

// GetBlock returns the block at index.
func (l *Ledger) GetBlock(index uint64) (Block, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if index >= uint64(len(l.blocks)) {
		return Block{}, dErrors.Newf(dErrors.CodeNotFound, "block %d does not exist", index)
	}
	return l.blocks[index], nil
}

// Blocks returns the chain in insertion order. The slice is a copy;
// payload contents are shared and must be treated as read-only.
func (l *Ledger) Blocks() []Block {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Block, len(l.blocks))
	copy(out, l.blocks)
	return out
}

// Length returns the number of blocks, genesis included.
func (l *Ledger) Length() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.blocks)
}

// Difficulty returns the leading-zero requirement this ledger mines
// and validates against.
func (l *Ledger) Difficulty() int {
	return l.difficulty
}

// Validate re-derives every hash and checks linkage from the genesis
// block up. Tampering is an answer, not a fault: the bool carries the
// verdict and the error fires only when the walk itself is abandoned.
func (l *Ledger) Validate(ctx context.Context) (bool, error) {
	blocks := l.Blocks()
	ok, err := ValidateBlocks(ctx, blocks, l.difficulty)
	if err != nil {
		return false, err
	}
	if !ok {
		l.logger.WarnContext(ctx, "chain failed validation", slog.Int("length", len(blocks)))
	}
	return ok, nil
}

// ValidateBlocks checks an arbitrary block sequence against the rules
// a ledger enforces while growing: genesis shape at index 0, dense
// indexes, hash linkage, and a recomputable hash that clears the
// difficulty target. Hash re-derivation is CPU-bound and per-block
// independent, so it fans out across cores.
func ValidateBlocks(ctx context.Context, blocks []Block, difficulty int) (bool, error) {
	if len(blocks) == 0 {
		return false, nil
	}
	if difficulty < 0 {
		difficulty = 0
	}
	target := strings.Repeat("0", difficulty)

	first := blocks[0]
	if first.Index != 0 || first.Payload == nil || first.Payload.Kind() != KindGenesis || first.PrevHash != GenesisPrevHash {
		return false, nil
	}
	for i := 1; i < len(blocks); i++ {
		if blocks[i].Index != uint64(i) || blocks[i].PrevHash != blocks[i-1].Hash {
			return false, nil
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	tampered := make([]bool, len(blocks))
	for i := range blocks {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			if !checkBlock(blocks[i], target) {
				tampered[i] = true
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeUnavailable, "validation abandoned")
	}
	for _, bad := range tampered {
		if bad {
			return false, nil
		}
	}
	return true, nil
}

// VerifyAttributeValue checks a candidate plaintext against the named
// attribute in the block at index. A missing block, a payload without
// that attribute, or a revoked block all answer false without error;
// only unusable key material inside the record surfaces as an error.
func (l *Ledger) VerifyAttributeValue(index uint64, attribute, candidate string) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if index >= uint64(len(l.blocks)) {
		return false, nil
	}
	if l.isRevokedLocked(index) {
		return false, nil
	}

	var records []credential.Record
	switch p := l.blocks[index].Payload.(type) {
	case CredentialPayload:
		records = []credential.Record{p.Record}
	case CredentialSetPayload:
		records = p.Records
	case GenesisPayload, RevocationPayload:
		return false, nil
	default:
		return false, nil
	}

	for _, rec := range records {
		if rec.Attribute == attribute {
			return rec.VerifyValue(candidate)
		}
	}
	return false, nil
}
