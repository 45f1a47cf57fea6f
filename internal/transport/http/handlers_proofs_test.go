package httptransport

import (
	"encoding/json"
	"net/http"
	"testing"
)

func TestThresholdProofRoundTrip(t *testing.T) {
	router := newVaultRouter(t)
	token, _ := startSession(t, router)

	rec := doJSON(t, router, http.MethodPost, "/v1/proofs/threshold", token,
		map[string]any{"value": 30, "min_threshold": 18})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 generating proof, got %d: %s", rec.Code, rec.Body.String())
	}

	var proof struct {
		Proof      string `json:"proof"`
		Commitment string `json:"encrypted_threshold_value"`
		Seed       string `json:"seed"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&proof); err != nil {
		t.Fatalf("failed to decode proof: %v", err)
	}
	if proof.Proof == "" || proof.Commitment == "" {
		t.Fatalf("expected proof and commitment in response")
	}
	if proof.Seed == "" {
		t.Fatalf("expected the holder-facing artifact to carry its seed")
	}

	// Verification is open to anyone holding the artifact; no session
	// token on this request.
	rec = doJSON(t, router, http.MethodPost, "/v1/proofs/verify", "", map[string]any{
		"kind": "threshold",
		"threshold": map[string]any{
			"proof": map[string]any{
				"proof":                     proof.Proof,
				"encrypted_threshold_value": proof.Commitment,
			},
			"min_threshold": 18,
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 verifying proof, got %d: %s", rec.Code, rec.Body.String())
	}
	var verdict struct {
		Kind  string `json:"kind"`
		Valid bool   `json:"valid"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&verdict); err != nil {
		t.Fatalf("failed to decode verdict: %v", err)
	}
	if !verdict.Valid {
		t.Fatalf("expected an honest proof to verify")
	}

	// The same artifact cannot clear a higher floor.
	rec = doJSON(t, router, http.MethodPost, "/v1/proofs/verify", "", map[string]any{
		"kind": "threshold",
		"threshold": map[string]any{
			"proof": map[string]any{
				"proof":                     proof.Proof,
				"encrypted_threshold_value": proof.Commitment,
			},
			"min_threshold": 21,
		},
	})
	if err := json.NewDecoder(rec.Body).Decode(&verdict); err != nil {
		t.Fatalf("failed to decode verdict: %v", err)
	}
	if verdict.Valid {
		t.Fatalf("expected an 18-floor proof to fail a 21-floor check")
	}
}

func TestThresholdProofRejectsDishonestClaim(t *testing.T) {
	router := newVaultRouter(t)
	token, _ := startSession(t, router)

	rec := doJSON(t, router, http.MethodPost, "/v1/proofs/threshold", token,
		map[string]any{"value": 16, "min_threshold": 18})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an unsatisfiable claim, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	if body["error"] != "precondition_failed" {
		t.Fatalf("expected precondition_failed, got %q", body["error"])
	}
}

func TestRangeProofRoundTrip(t *testing.T) {
	router := newVaultRouter(t)
	token, _ := startSession(t, router)

	rec := doJSON(t, router, http.MethodPost, "/v1/proofs/range", token,
		map[string]any{"value": 30, "min_threshold": 21, "max_threshold": 45})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 generating range proof, got %d: %s", rec.Code, rec.Body.String())
	}
	artifact := json.RawMessage(rec.Body.Bytes())

	rec = doJSON(t, router, http.MethodPost, "/v1/proofs/verify", "", map[string]any{
		"kind": "range",
		"range": map[string]any{
			"proof":         artifact,
			"min_threshold": 21,
			"max_threshold": 45,
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 verifying range proof, got %d", rec.Code)
	}
	var verdict struct {
		Valid bool `json:"valid"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&verdict); err != nil {
		t.Fatalf("failed to decode verdict: %v", err)
	}
	if !verdict.Valid {
		t.Fatalf("expected the range proof to verify in its window")
	}

	// A window that excludes the secret value rejects the artifact.
	rec = doJSON(t, router, http.MethodPost, "/v1/proofs/verify", "", map[string]any{
		"kind": "range",
		"range": map[string]any{
			"proof":         artifact,
			"min_threshold": 31,
			"max_threshold": 45,
		},
	})
	if err := json.NewDecoder(rec.Body).Decode(&verdict); err != nil {
		t.Fatalf("failed to decode verdict: %v", err)
	}
	if verdict.Valid {
		t.Fatalf("expected the proof to fail outside its window")
	}
}

func TestRangeProofWindowValidation(t *testing.T) {
	router := newVaultRouter(t)
	token, _ := startSession(t, router)

	rec := doJSON(t, router, http.MethodPost, "/v1/proofs/range", token,
		map[string]any{"value": 30, "min_threshold": 45, "max_threshold": 21})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an inverted window, got %d", rec.Code)
	}
}

func TestClaimProofRoundTrip(t *testing.T) {
	router := newVaultRouter(t)
	token, _ := startSession(t, router)

	rec := doJSON(t, router, http.MethodPost, "/v1/proofs/claims/age_over_18", token,
		map[string]any{"age": 30})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 generating claim, got %d: %s", rec.Code, rec.Body.String())
	}

	var claim struct {
		Kind        string `json:"kind"`
		Proof       string `json:"proof"`
		Commitment  string `json:"commitment"`
		Description string `json:"description"`
	}
	raw := rec.Body.Bytes()
	if err := json.Unmarshal(raw, &claim); err != nil {
		t.Fatalf("failed to decode claim: %v", err)
	}
	if claim.Kind != "age_over_18" || claim.Proof == "" {
		t.Fatalf("unexpected claim artifact: %+v", claim)
	}

	rec = doJSON(t, router, http.MethodPost, "/v1/proofs/verify", "", map[string]any{
		"kind": "claim",
		"claim": map[string]any{
			"proof":   json.RawMessage(raw),
			"request": map[string]any{"kind": "age_over_18"},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 verifying claim, got %d: %s", rec.Code, rec.Body.String())
	}
	var verdict struct {
		Valid bool `json:"valid"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&verdict); err != nil {
		t.Fatalf("failed to decode verdict: %v", err)
	}
	if !verdict.Valid {
		t.Fatalf("expected the claim to verify against its own kind")
	}

	// A proof generated for one gate never satisfies another.
	rec = doJSON(t, router, http.MethodPost, "/v1/proofs/verify", "", map[string]any{
		"kind": "claim",
		"claim": map[string]any{
			"proof":   json.RawMessage(raw),
			"request": map[string]any{"kind": "age_over_21"},
		},
	})
	if err := json.NewDecoder(rec.Body).Decode(&verdict); err != nil {
		t.Fatalf("failed to decode verdict: %v", err)
	}
	if verdict.Valid {
		t.Fatalf("expected a kind mismatch to fail verification")
	}
}

func TestClaimProofInputErrors(t *testing.T) {
	router := newVaultRouter(t)
	token, _ := startSession(t, router)

	rec := doJSON(t, router, http.MethodPost, "/v1/proofs/claims/flying_license", token,
		map[string]any{"age": 30})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for an unknown claim kind, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, "/v1/proofs/claims/income_threshold", token,
		map[string]any{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing claim inputs, got %d", rec.Code)
	}
}

func TestVerifyProofRequestShape(t *testing.T) {
	router := newVaultRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/v1/proofs/verify", "",
		map[string]any{"kind": "bogus"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an unknown artifact kind, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, "/v1/proofs/verify", "",
		map[string]any{"kind": "threshold"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a missing threshold section, got %d", rec.Code)
	}
}
