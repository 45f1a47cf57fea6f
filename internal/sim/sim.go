// Package sim drives synthetic issue-and-prove traffic against an
// in-memory ledger and reports mining and proving latencies. It backs
// the chainctl simulate command; the server never imports it.
package sim

import (
	"context"
	"log/slog"
	"math/rand"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"credchain/internal/chain"
	"credchain/internal/credential"
	"credchain/internal/crypto"
	"credchain/internal/zkp"
)

// Config sizes a simulation run. Zero values for the counts fall back
// to small defaults; Difficulty is passed through as given, so zero
// really means an unworked chain (instant appends).
type Config struct {
	// Holders is the number of concurrent credential issuers. Each
	// holder gets its own key pair and issues independently.
	Holders int

	// CredentialsPerHolder is how many credential blocks each holder
	// appends before stopping.
	CredentialsPerHolder int

	// MeanIssueInterval is the average gap between one holder's
	// appends. Gaps are drawn from a Poisson arrival process; zero
	// disables pacing and holders issue back to back.
	MeanIssueInterval time.Duration

	// Proofs is the total number of proof generations in the proving
	// phase, alternating threshold and range artifacts.
	Proofs int

	// ProofConcurrency caps how many proofs are generated at once.
	ProofConcurrency int

	// Difficulty is the proof-of-work target for the simulated chain.
	Difficulty int
}

func (c Config) withDefaults() Config {
	if c.Holders <= 0 {
		c.Holders = 4
	}
	if c.CredentialsPerHolder <= 0 {
		c.CredentialsPerHolder = 8
	}
	if c.Proofs <= 0 {
		c.Proofs = 32
	}
	if c.ProofConcurrency <= 0 {
		c.ProofConcurrency = 4
	}
	if c.MeanIssueInterval < 0 {
		c.MeanIssueInterval = 0
	}
	return c
}

// LatencyStats summarizes one set of observed durations.
type LatencyStats struct {
	Count  int
	Min    time.Duration
	Max    time.Duration
	Mean   time.Duration
	Median time.Duration
	P95    time.Duration
}

// Result is what a finished run reports.
type Result struct {
	// Blocks is the final chain length, genesis included.
	Blocks int

	// Proofs counts proof artifacts that were generated and then
	// verified successfully.
	Proofs int

	// Valid is the outcome of a full chain validation after the run.
	Valid bool

	Elapsed time.Duration
	Mining  LatencyStats
	Proving LatencyStats
}

// timings collects durations from many goroutines.
type timings struct {
	mu       sync.Mutex
	observed []time.Duration
}

func (t *timings) observe(d time.Duration) {
	t.mu.Lock()
	t.observed = append(t.observed, d)
	t.mu.Unlock()
}

func (t *timings) stats() LatencyStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.observed) == 0 {
		return LatencyStats{}
	}
	xs := make([]float64, len(t.observed))
	for i, d := range t.observed {
		xs[i] = d.Seconds()
	}
	sort.Float64s(xs)
	return LatencyStats{
		Count:  len(xs),
		Min:    secondsToDuration(xs[0]),
		Max:    secondsToDuration(xs[len(xs)-1]),
		Mean:   secondsToDuration(stat.Mean(xs, nil)),
		Median: secondsToDuration(stat.Quantile(0.5, stat.Empirical, xs, nil)),
		P95:    secondsToDuration(stat.Quantile(0.95, stat.Empirical, xs, nil)),
	}
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Run mines a fresh chain under the configured load and reports what
// it observed. Issuance runs first: every holder appends its quota of
// credential blocks, paced by Poisson arrivals when an interval is
// set. Proving runs second under the concurrency cap. Appends still
// serialize on the chain lock, so mining latency here includes the
// time spent queueing behind other holders.
func Run(ctx context.Context, cfg Config, logger *slog.Logger) (Result, error) {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	ledger := chain.New(
		chain.WithDifficulty(cfg.Difficulty),
		chain.WithLogger(logger),
	)
	if _, err := ledger.Append(ctx, chain.GenesisPayload{Note: "synthetic traffic run"}); err != nil {
		return Result{}, err
	}

	logger.InfoContext(ctx, "simulation started",
		slog.Int("holders", cfg.Holders),
		slog.Int("credentials_per_holder", cfg.CredentialsPerHolder),
		slog.Duration("mean_issue_interval", cfg.MeanIssueInterval),
		slog.Int("proofs", cfg.Proofs),
		slog.Int("proof_concurrency", cfg.ProofConcurrency),
		slog.Int("difficulty", cfg.Difficulty),
	)
	started := time.Now()

	mining := &timings{}
	if err := issueCredentials(ctx, ledger, cfg, mining); err != nil {
		return Result{}, err
	}

	proving := &timings{}
	proofsOK, err := generateProofs(ctx, cfg, logger, proving)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Blocks:  ledger.Length(),
		Proofs:  proofsOK,
		Elapsed: time.Since(started),
		Mining:  mining.stats(),
		Proving: proving.stats(),
	}
	valid, err := ledger.Validate(ctx)
	if err != nil {
		return res, err
	}
	res.Valid = valid

	logger.InfoContext(ctx, "simulation finished",
		slog.Int("blocks", res.Blocks),
		slog.Int("proofs", res.Proofs),
		slog.Bool("chain_valid", res.Valid),
		slog.Duration("elapsed", res.Elapsed),
	)
	return res, nil
}

// issueCredentials fans out one goroutine per holder. Each holder owns
// a key pair and appends single-credential blocks until its quota is
// done; the first error cancels the rest.
func issueCredentials(ctx context.Context, ledger *chain.Ledger, cfg Config, mining *timings) error {
	g, ctx := errgroup.WithContext(ctx)
	for h := 0; h < cfg.Holders; h++ {
		g.Go(func() error {
			kp, err := crypto.GenerateKeyPair()
			if err != nil {
				return err
			}
			arrivals := distuv.Poisson{}
			if cfg.MeanIssueInterval > 0 {
				arrivals.Lambda = 3600.0 / cfg.MeanIssueInterval.Seconds()
			}
			for i := 0; i < cfg.CredentialsPerHolder; i++ {
				if err := nextArrival(ctx, arrivals, i == 0, cfg.MeanIssueInterval); err != nil {
					return err
				}
				in := randomInput()
				rec, err := credential.BuildRecord(in.Attribute, in.Value, *kp, in.SensitiveOrDefault())
				if err != nil {
					return err
				}
				begin := time.Now()
				if _, err := ledger.Append(ctx, chain.CredentialPayload{Record: rec}); err != nil {
					return err
				}
				mining.observe(time.Since(begin))
			}
			return nil
		})
	}
	return g.Wait()
}

// nextArrival sleeps until the holder's next issue slot. The first
// slot is uniform over one mean interval so holders do not start in
// lockstep; later gaps come from the Poisson draw, scaled so the
// configured interval is the long-run average.
func nextArrival(ctx context.Context, arrivals distuv.Poisson, first bool, mean time.Duration) error {
	if mean <= 0 {
		return ctx.Err()
	}
	var gap time.Duration
	if first {
		gap = time.Duration(rand.Int63n(int64(mean)))
	} else if draw := arrivals.Rand(); draw > 0 {
		gap = time.Duration(3600.0 / draw * float64(time.Second))
	}
	if gap <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(gap)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// generateProofs runs the proving phase. A weighted semaphore caps the
// number of in-flight generations; the slot is acquired before the
// worker is spawned, so at most ProofConcurrency goroutines exist at
// once. Every artifact is verified immediately and only clean round
// trips count toward the result.
func generateProofs(ctx context.Context, cfg Config, logger *slog.Logger, proving *timings) (int, error) {
	sem := semaphore.NewWeighted(int64(cfg.ProofConcurrency))
	var wg sync.WaitGroup
	var verified atomic.Int64

	for i := 0; i < cfg.Proofs; i++ {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			defer sem.Release(1)

			age := 18 + rand.Intn(60)
			begin := time.Now()
			if n%2 == 0 {
				proof, err := zkp.ProveThreshold(age, 18, "")
				if err != nil {
					logger.WarnContext(ctx, "threshold proof failed", slog.Any("error", err))
					return
				}
				proving.observe(time.Since(begin))
				if !zkp.VerifyThreshold(proof.Proof, proof.Commitment, 18) {
					logger.WarnContext(ctx, "threshold proof did not verify", slog.Int("age", age))
					return
				}
			} else {
				proof, err := zkp.ProveRange(age, 18, 80, "")
				if err != nil {
					logger.WarnContext(ctx, "range proof failed", slog.Any("error", err))
					return
				}
				proving.observe(time.Since(begin))
				if !zkp.VerifyRange(proof, 18, 80) {
					logger.WarnContext(ctx, "range proof did not verify", slog.Int("age", age))
					return
				}
			}
			verified.Add(1)
		}(i)
	}
	wg.Wait()
	return int(verified.Load()), ctx.Err()
}

var birthStates = []string{"Johor", "Kedah", "Kuala Lumpur", "Penang", "Sabah", "Selangor"}

// randomInput fabricates one plausible attribute for a synthetic
// holder. Sensitivity follows the catalog defaults.
func randomInput() credential.Input {
	switch rand.Intn(5) {
	case 0:
		return credential.Input{Attribute: credential.AttrAge, Value: strconv.Itoa(18 + rand.Intn(60))}
	case 1:
		return credential.Input{Attribute: credential.AttrCitizenship, Value: "Malaysia"}
	case 2:
		return credential.Input{Attribute: credential.AttrBirthState, Value: birthStates[rand.Intn(len(birthStates))]}
	case 3:
		return credential.Input{Attribute: credential.AttrIncome, Value: strconv.Itoa(1500 + rand.Intn(20000))}
	default:
		return credential.Input{Attribute: credential.AttrOrganDonor, Value: []string{"yes", "no"}[rand.Intn(2)]}
	}
}
