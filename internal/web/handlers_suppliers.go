package web

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/invsync/internal/connector"
	"github.com/JonMunkholm/invsync/internal/core"
	"github.com/JonMunkholm/invsync/internal/logging"
	"github.com/JonMunkholm/invsync/internal/normalize"
)

// cachedConnector looks up a supplier's connector behind the shared cache.
func (s *Server) cachedConnector(r *http.Request) (*connector.Cached, error) {
	conn, err := s.inventory.Connectors().MustGet(chi.URLParam(r, "supplierId"))
	if err != nil {
		return nil, err
	}
	return connector.WithCache(conn, s.inventory.Cache()), nil
}

// handleListSuppliers returns the supplier registry.
func (s *Server) handleListSuppliers(w http.ResponseWriter, r *http.Request) {
	sups, err := s.inventory.ListSuppliers(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"suppliers": sups})
}

// handleDetectSupplier guesses which supplier a supplier SKU belongs to.
func (s *Server) handleDetectSupplier(w http.ResponseWriter, r *http.Request) {
	sku := strings.TrimSpace(r.URL.Query().Get("sku"))
	if sku == "" {
		respondError(w, r, core.ValidationError{Field: "sku", Message: "is required"})
		return
	}
	id := normalize.DetectSupplier(sku)
	_, connected := s.inventory.Connectors().Get(id)
	writeJSON(w, http.StatusOK, map[string]any{
		"supplierSku": sku,
		"supplierId":  id,
		"connected":   connected,
	})
}

// handleSupplierProducts returns a supplier's catalog from the product list
// cache.
func (s *Server) handleSupplierProducts(w http.ResponseWriter, r *http.Request) {
	conn, err := s.cachedConnector(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	products, err := conn.FetchProducts(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"supplierId": conn.SupplierID(),
		"count":      len(products),
		"products":   products,
	})
}

// handleSupplierProduct returns one product from the detail cache.
func (s *Server) handleSupplierProduct(w http.ResponseWriter, r *http.Request) {
	conn, err := s.cachedConnector(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	p, err := conn.FetchProduct(r.Context(), chi.URLParam(r, "productId"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleQuote prices ?qty= units (default 1) of a product from its tiers.
func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	conn, err := s.cachedConnector(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	quote, err := conn.Quote(r.Context(), chi.URLParam(r, "productId"), parseIntParam(r, "qty", 1))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

// handleInvalidateSupplierCache drops a supplier's cached lists, details
// and prices.
func (s *Server) handleInvalidateSupplierCache(w http.ResponseWriter, r *http.Request) {
	conn, err := s.cachedConnector(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	conn.Invalidate(r.Context())
	logging.FromContext(r.Context()).Info("supplier cache invalidated", "supplier", conn.SupplierID())
	w.WriteHeader(http.StatusNoContent)
}

// handleImportCatalog refreshes the catalog entries a supplier's sync walks.
func (s *Server) handleImportCatalog(w http.ResponseWriter, r *http.Request) {
	supplierID := chi.URLParam(r, "supplierId")
	ctx, cancel := s.syncContext(r)
	defer cancel()

	n, err := s.inventory.ImportCatalog(ctx, supplierID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"supplierId": strings.ToLower(strings.TrimSpace(supplierID)),
		"variants":   n,
	})
}
