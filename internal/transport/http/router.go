// Package httptransport exposes the vault over HTTP: session
// bootstrap, chain reads and writes, proof generation and
// verification, and a websocket stream of newly appended blocks.
// Handlers decode, validate, and delegate; chain semantics live
// behind the Vault and ProofEngine interfaces.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"credchain/internal/chain"
	"credchain/internal/credential"
	"credchain/internal/device"
	"credchain/internal/platform/metrics"
	"credchain/internal/platform/middleware"
	"credchain/internal/vault"
	"credchain/internal/zkp"
	id "credchain/pkg/domain"
	"credchain/pkg/platform/httputil"
)

// Vault defines the session and chain operations the API exposes.
type Vault interface {
	StartSession(ctx context.Context) (*vault.Session, error)
	AddCredential(ctx context.Context, in credential.Input) (chain.Block, error)
	AddCredentialSet(ctx context.Context, subjectLabel string, inputs []credential.Input) (chain.Block, error)
	AddCredentialSetFromCard(ctx context.Context, nric, fullName string) (chain.Block, error)
	RevokeBlock(ctx context.Context, index uint64, reason string) (chain.Block, error)
	VerifyAttribute(ctx context.Context, index uint64, attribute, value string) (bool, error)
	IsLedgerValid(ctx context.Context) (bool, error)
	ListBlocks(ctx context.Context) ([]chain.Block, error)
	GetBlock(ctx context.Context, index uint64) (chain.Block, bool, error)
	PublicKey(ctx context.Context) (string, error)
	Subscribe() (<-chan chain.Block, func())
}

// ProofEngine defines the proof operations the API exposes.
type ProofEngine interface {
	GenerateThresholdProof(ctx context.Context, actual, min int) (zkp.ThresholdProof, error)
	GenerateRangeProof(ctx context.Context, actual, min, max int) (zkp.RangeProof, error)
	GenerateClaim(ctx context.Context, kind zkp.ClaimKind, in vault.ClaimInput) (zkp.ClaimProof, error)
	VerifyThresholdProof(ctx context.Context, proof, commitment string, min int) bool
	VerifyRangeProof(ctx context.Context, proof zkp.RangeProof, min, max int) bool
	VerifyClaimProof(ctx context.Context, proof zkp.ClaimProof, req zkp.ClaimRequest) bool
}

// TokenIssuer mints bearer tokens for freshly started sessions.
type TokenIssuer interface {
	Issue(sessionID id.SessionID, deviceFingerprint string) (string, time.Time, error)
}

// Handler wires the vault endpoints to the vault manager.
type Handler struct {
	vault   Vault
	proofs  ProofEngine
	tokens  TokenIssuer
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New constructs the API handler with its dependencies.
func New(v Vault, proofs ProofEngine, tokens TokenIssuer, logger *slog.Logger, metrics *metrics.Metrics) *Handler {
	return &Handler{
		vault:   v,
		proofs:  proofs,
		tokens:  tokens,
		logger:  logger,
		metrics: metrics,
	}
}

// Register mounts the versioned API. auth gates session-scoped routes,
// admin additionally gates revocation, and timeout bounds every request
// except the watch stream, which lives as long as the client holds the
// socket open.
func (h *Handler) Register(r chi.Router, timeout time.Duration, auth, admin func(http.Handler) http.Handler) {
	r.Route("/v1", func(r chi.Router) {
		// Session bootstrap is the only unauthenticated mutation; the
		// token it returns gates everything below.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(timeout))
			r.Use(middleware.ContentTypeJSON)
			r.Post("/session", h.HandleStartSession)
		})

		// Proof verification is a pure function over the submitted
		// artifact; verifiers hold no session token.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(timeout))
			r.Use(middleware.ContentTypeJSON)
			r.Post("/proofs/verify", h.HandleVerifyProof)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth)
			r.Use(middleware.Timeout(timeout))
			r.Use(middleware.ContentTypeJSON)

			r.Post("/credentials", h.HandleAddCredential)
			r.Post("/credential-sets", h.HandleAddCredentialSet)
			r.Get("/blocks", h.HandleListBlocks)
			r.Get("/blocks/{index}", h.HandleGetBlock)
			r.Get("/chain/validate", h.HandleValidateChain)
			r.Post("/verify", h.HandleVerifyAttribute)

			r.Post("/proofs/threshold", h.HandleThresholdProof)
			r.Post("/proofs/range", h.HandleRangeProof)
			r.Post("/proofs/claims/{kind}", h.HandleClaimProof)

			r.Group(func(r chi.Router) {
				r.Use(admin)
				r.Post("/blocks/{index}/revoke", h.HandleRevokeBlock)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(auth)
			r.Get("/chain/watch", h.HandleWatch)
		})
	})
}

// RouterConfig carries everything NewRouter needs to assemble the API.
type RouterConfig struct {
	Vault          *vault.Manager
	Tokens         TokenIssuer
	Sessions       middleware.SessionValidator
	Devices        *device.Service
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	Registry       prometheus.Gatherer
	AdminTokenHash string
	RequestTimeout time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
}

// NewRouter assembles the full HTTP surface: the global middleware
// chain, the versioned API, the health probe, and the Prometheus
// scrape endpoint.
func NewRouter(cfg RouterConfig) chi.Router {
	h := New(cfg.Vault, cfg.Vault, cfg.Tokens, cfg.Logger, cfg.Metrics)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.DeviceContext(cfg.Devices))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Latency(cfg.Metrics))
	r.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst, cfg.Logger))

	r.Get("/healthz", h.HandleHealth)
	if cfg.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))
	}

	auth := middleware.RequireSession(cfg.Sessions, cfg.Logger)
	admin := middleware.RequireAdminToken(cfg.AdminTokenHash, cfg.Logger)
	h.Register(r, cfg.RequestTimeout, auth, admin)

	return r
}

// HandleHealth handles GET /healthz requests.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
