package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/invsync/internal/core"
	"github.com/JonMunkholm/invsync/internal/match"
)

// MaxToolBodySize caps normalize and match request bodies (10MB).
const MaxToolBodySize = 10 << 20

// readJSON decodes a size-capped JSON body into dst.
func readJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxToolBodySize))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, r, http.StatusBadRequest, "failed to read body")
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		respondError(w, r, core.ValidationError{Message: "invalid JSON body: " + err.Error()})
		return false
	}
	return true
}

// handleNormalize runs raw supplier records through the supplier's field
// mapping. The body is a JSON array of records or {"records": [...]}.
// ?format=text returns the plain-text report instead of JSON.
func (s *Server) handleNormalize(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if !readJSON(w, r, &raw) {
		return
	}

	var records []map[string]any
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &records); err != nil {
			respondError(w, r, core.ValidationError{Message: "records must be JSON objects"})
			return
		}
	} else {
		var wrapped struct {
			Records []map[string]any `json:"records"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			respondError(w, r, core.ValidationError{Message: "records must be JSON objects"})
			return
		}
		records = wrapped.Records
	}
	if len(records) == 0 {
		respondError(w, r, core.ValidationError{Field: "records", Message: "is required"})
		return
	}

	batch := s.normalizer.NormalizeBatch(r.Context(), chi.URLParam(r, "supplierId"), records)
	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, batch.Report())
		return
	}
	writeJSON(w, http.StatusOK, batch)
}

// MatchRequest asks which candidates are the same product.
type MatchRequest struct {
	Product        core.NormalizedProduct `json:"product"`
	Candidates     []match.Candidate      `json:"candidates"`
	Limit          int                    `json:"limit"`
	SameBrandFirst bool                   `json:"sameBrandFirst"`
}

// MatchResponse carries the automatic match (if any) and every candidate
// worth a manual review.
type MatchResponse struct {
	Match   *core.ProductMatch  `json:"match"`
	Matches []core.ProductMatch `json:"matches"`
}

// handleMatch scores a product against a candidate pool.
func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	var req MatchRequest
	if !readJSON(w, r, &req) {
		return
	}

	resp := MatchResponse{
		Match:   match.FindMatch(req.Product, req.Candidates, match.Options{SameBrandFirst: req.SameBrandFirst}),
		Matches: match.FindMatches(req.Product, req.Candidates, req.Limit),
	}
	if resp.Matches == nil {
		resp.Matches = []core.ProductMatch{}
	}
	writeJSON(w, http.StatusOK, resp)
}
