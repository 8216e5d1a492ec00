package web

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/invsync/internal/core"
	"github.com/JonMunkholm/invsync/internal/inventory"
	"github.com/JonMunkholm/invsync/internal/logging"
)

// SyncResponse wraps one or more sync results.
type SyncResponse struct {
	Success bool                   `json:"success"`
	Result  *inventory.SyncResult  `json:"result,omitempty"`
	Results []inventory.SyncResult `json:"results,omitempty"`
}

// syncContext detaches a manual sync from the client connection and bounds
// it by the run timeout. A client that gives up does not abort a run
// halfway through a supplier's catalog.
func (s *Server) syncContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(r.Context()), s.cfg.Sync.RunTimeout)
}

// handleSyncStatus returns supplier sync state, the next scheduled sync and
// cache statistics.
func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	report, err := s.inventory.GetSyncStatus(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleSyncAll runs a sync for every active supplier.
func (s *Server) handleSyncAll(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.syncContext(r)
	defer cancel()

	logging.FromContext(ctx).Info("manual sync requested", "supplier", "all")
	results, err := s.inventory.SyncAllSuppliers(ctx, core.SourceSync)
	if err != nil {
		respondError(w, r, err)
		return
	}

	success := true
	for _, res := range results {
		if res.Status != core.SyncCompleted {
			success = false
		}
	}
	writeJSON(w, http.StatusOK, SyncResponse{Success: success, Results: results})
}

// handleSyncSupplier runs a sync for one supplier.
func (s *Server) handleSyncSupplier(w http.ResponseWriter, r *http.Request) {
	supplierID := chi.URLParam(r, "supplierId")
	ctx, cancel := s.syncContext(r)
	defer cancel()

	logging.FromContext(ctx).Info("manual sync requested", "supplier", supplierID)
	result, err := s.inventory.SyncSupplier(ctx, supplierID, core.SourceSync)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SyncResponse{
		Success: result.Status == core.SyncCompleted,
		Result:  result,
	})
}

// handleSyncHistory returns recent sync logs. ?limit= defaults to 20.
func (s *Server) handleSyncHistory(w http.ResponseWriter, r *http.Request) {
	logs, err := s.inventory.GetSyncHistory(r.Context(), parseIntParam(r, "limit", 0))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": logs})
}

// handleRecentChanges returns recent inventory changes. ?limit= defaults
// to 50.
func (s *Server) handleRecentChanges(w http.ResponseWriter, r *http.Request) {
	changes, err := s.inventory.GetRecentChanges(r.Context(), parseIntParam(r, "limit", 0))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"changes": changes})
}

// handleGetInventory returns the current state of one SKU. The optional
// supplierId query parameter picks one supplier's variant.
func (s *Server) handleGetInventory(w http.ResponseWriter, r *http.Request) {
	v, err := s.inventory.GetInventory(r.Context(), r.URL.Query().Get("supplierId"), chi.URLParam(r, "sku"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// parseIntParam parses a positive integer query parameter with a default.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}
