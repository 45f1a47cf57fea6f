package httptransport

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"credchain/internal/zkp"
	"credchain/pkg/platform/httputil"
	"credchain/pkg/requestcontext"
)

// HandleThresholdProof handles POST /v1/proofs/threshold requests. The
// returned artifact still carries the prover's seed; holders strip it
// before forwarding the proof to a verifier.
func (h *Handler) HandleThresholdProof(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[ThresholdProofRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	proof, err := h.proofs.GenerateThresholdProof(ctx, req.Value, req.MinThreshold)
	if err != nil {
		h.logger.WarnContext(ctx, "threshold proof rejected",
			"request_id", requestID,
			"min_threshold", req.MinThreshold,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "threshold proof generated",
		"request_id", requestID,
		"min_threshold", req.MinThreshold,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, proof)
}

// HandleRangeProof handles POST /v1/proofs/range requests.
func (h *Handler) HandleRangeProof(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[RangeProofRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	proof, err := h.proofs.GenerateRangeProof(ctx, req.Value, req.MinThreshold, req.MaxThreshold)
	if err != nil {
		h.logger.WarnContext(ctx, "range proof rejected",
			"request_id", requestID,
			"min_threshold", req.MinThreshold,
			"max_threshold", req.MaxThreshold,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "range proof generated",
		"request_id", requestID,
		"min_threshold", req.MinThreshold,
		"max_threshold", req.MaxThreshold,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, proof)
}

// HandleClaimProof handles POST /v1/proofs/claims/{kind} requests.
func (h *Handler) HandleClaimProof(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	kind := zkp.ClaimKind(chi.URLParam(r, "kind"))

	req, ok := httputil.DecodeAndPrepare[ClaimProofRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	proof, err := h.proofs.GenerateClaim(ctx, kind, req.Input())
	if err != nil {
		h.logger.WarnContext(ctx, "claim proof rejected",
			"request_id", requestID,
			"claim_kind", string(kind),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "claim proof generated",
		"request_id", requestID,
		"claim_kind", string(kind),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, proof)
}

// HandleVerifyProof handles POST /v1/proofs/verify requests. An
// invalid proof is an answer, not an error.
func (h *Handler) HandleVerifyProof(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[VerifyProofRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	var valid bool
	switch req.Kind {
	case ProofKindThreshold:
		s := req.Threshold
		valid = h.proofs.VerifyThresholdProof(ctx, s.Proof.Proof, s.Proof.Commitment, s.MinThreshold)
	case ProofKindRange:
		s := req.Range
		valid = h.proofs.VerifyRangeProof(ctx, s.Proof, s.MinThreshold, s.MaxThreshold)
	case ProofKindClaim:
		s := req.Claim
		valid = h.proofs.VerifyClaimProof(ctx, s.Proof, s.Request)
	}

	h.logger.InfoContext(ctx, "proof verified",
		"request_id", requestID,
		"proof_kind", req.Kind,
		"valid", valid,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, VerifyProofResponse{
		Kind:  req.Kind,
		Valid: valid,
	})
}
