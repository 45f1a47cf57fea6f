package httptransport

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"credchain/internal/chain"
	dErrors "credchain/pkg/domain-errors"
	"credchain/pkg/platform/httputil"
	"credchain/pkg/requestcontext"
)

// blockIndexParam parses the {index} route parameter.
func blockIndexParam(r *http.Request) (uint64, error) {
	raw := chi.URLParam(r, "index")
	index, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, dErrors.Newf(dErrors.CodeInvalidInput, "invalid block index %q", raw)
	}
	return index, nil
}

// HandleAddCredential handles POST /v1/credentials requests.
func (h *Handler) HandleAddCredential(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[CredentialRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	block, err := h.vault.AddCredential(ctx, req.Input())
	if err != nil {
		h.logger.ErrorContext(ctx, "credential append failed",
			"request_id", requestID,
			"attribute", req.Attribute,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "credential appended",
		"request_id", requestID,
		"attribute", req.Attribute,
		"block_index", block.Index,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusCreated, BlockResponse{Block: block})
}

// HandleAddCredentialSet handles POST /v1/credential-sets requests.
// The set either spells out its records or is derived server-side from
// an identity card number.
func (h *Handler) HandleAddCredentialSet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[CredentialSetRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	var (
		block chain.Block
		err   error
	)
	if req.FromCard() {
		block, err = h.vault.AddCredentialSetFromCard(ctx, req.NRIC, req.FullName)
	} else {
		block, err = h.vault.AddCredentialSet(ctx, req.SubjectLabel, req.Inputs())
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "credential set append failed",
			"request_id", requestID,
			"from_card", req.FromCard(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "credential set appended",
		"request_id", requestID,
		"from_card", req.FromCard(),
		"block_index", block.Index,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusCreated, BlockResponse{Block: block})
}

// HandleRevokeBlock handles POST /v1/blocks/{index}/revoke requests.
func (h *Handler) HandleRevokeBlock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	index, err := blockIndexParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[RevokeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	marker, err := h.vault.RevokeBlock(ctx, index, req.Reason)
	if err != nil {
		h.logger.ErrorContext(ctx, "revocation failed",
			"request_id", requestID,
			"block_index", index,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "block revoked",
		"request_id", requestID,
		"block_index", index,
		"marker_index", marker.Index,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusCreated, BlockResponse{Block: marker})
}

// HandleListBlocks handles GET /v1/blocks requests.
func (h *Handler) HandleListBlocks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	blocks, err := h.vault.ListBlocks(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "block listing failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, ListBlocksResponse{
		Blocks: blocks,
		Length: len(blocks),
	})
}

// HandleGetBlock handles GET /v1/blocks/{index} requests.
func (h *Handler) HandleGetBlock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	index, err := blockIndexParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	block, revoked, err := h.vault.GetBlock(ctx, index)
	if err != nil {
		h.logger.WarnContext(ctx, "block lookup failed",
			"request_id", requestID,
			"block_index", index,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, BlockResponse{Block: block, Revoked: revoked})
}

// HandleValidateChain handles GET /v1/chain/validate requests.
func (h *Handler) HandleValidateChain(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	blocks, err := h.vault.ListBlocks(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	valid, err := h.vault.IsLedgerValid(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "chain validation failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "chain validated",
		"request_id", requestID,
		"valid", valid,
		"length", len(blocks),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, ValidateChainResponse{
		Valid:  valid,
		Length: len(blocks),
	})
}

// HandleVerifyAttribute handles POST /v1/verify requests.
func (h *Handler) HandleVerifyAttribute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[VerifyAttributeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	matches, err := h.vault.VerifyAttribute(ctx, req.BlockIndex, req.Attribute, req.Value)
	if err != nil {
		h.logger.ErrorContext(ctx, "attribute verification failed",
			"request_id", requestID,
			"block_index", req.BlockIndex,
			"attribute", req.Attribute,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "attribute verified",
		"request_id", requestID,
		"block_index", req.BlockIndex,
		"attribute", req.Attribute,
		"matches", matches,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, VerifyAttributeResponse{
		Matches:    matches,
		BlockIndex: req.BlockIndex,
		Attribute:  req.Attribute,
	})
}
