package web

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/JonMunkholm/invsync/internal/core"
	"github.com/JonMunkholm/invsync/internal/logging"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw webhook body.
const SignatureHeader = "x-signature"

// WebhookPayload is a supplier's push update for one SKU.
type WebhookPayload struct {
	SupplierID string   `json:"supplierId"`
	SKU        string   `json:"sku"`
	Quantity   *int     `json:"quantity,omitempty"`
	Price      *float64 `json:"price,omitempty"`
	LeadTime   *int     `json:"leadTime,omitempty"`
}

// Validate checks the required fields.
func (p WebhookPayload) Validate() error {
	var errs core.ValidationErrors
	if strings.TrimSpace(p.SupplierID) == "" {
		errs = append(errs, core.ValidationError{Field: "supplierId", Message: "is required"})
	}
	if strings.TrimSpace(p.SKU) == "" {
		errs = append(errs, core.ValidationError{Field: "sku", Message: "is required"})
	}
	if p.Quantity == nil && p.Price == nil && p.LeadTime == nil {
		errs = append(errs, core.ValidationError{Message: "one of quantity, price or leadTime is required"})
	}
	if p.Price != nil && *p.Price < 0 {
		errs = append(errs, core.ValidationError{Field: "price", Value: fmt.Sprint(*p.Price), Message: "must not be negative"})
	}
	if p.LeadTime != nil && *p.LeadTime < 0 {
		errs = append(errs, core.ValidationError{Field: "leadTime", Value: fmt.Sprint(*p.LeadTime), Message: "must not be negative"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// WebhookResponse acknowledges an applied update.
type WebhookResponse struct {
	Success  bool     `json:"success"`
	Message  string   `json:"message"`
	SKU      string   `json:"sku"`
	Quantity int      `json:"quantity"`
	Price    *float64 `json:"price,omitempty"`
}

// Sign returns the hex HMAC-SHA256 of body under secret, as suppliers are
// expected to send it.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// verifySignature checks sig against body. It returns (false, nil) when
// verification was skipped because the supplier has no secret or the
// request carried no signature.
func verifySignature(supplierID, secret, sig string, body []byte) (bool, error) {
	if secret == "" || sig == "" {
		return false, nil
	}
	got, err := hex.DecodeString(strings.TrimSpace(sig))
	if err != nil {
		return false, &core.SignatureError{SupplierID: supplierID}
	}
	want, _ := hex.DecodeString(Sign(secret, body))
	if !hmac.Equal(got, want) {
		return false, &core.SignatureError{SupplierID: supplierID}
	}
	return true, nil
}

// handleInventoryWebhook applies a supplier push update through the same
// path as a scheduled sync, tagged as a webhook change.
func (s *Server) handleInventoryWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.Webhook.MaxBodyBytes))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "webhook body too large")
			return
		}
		writeError(w, r, http.StatusBadRequest, "failed to read body")
		return
	}

	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		respondError(w, r, core.ValidationError{Message: "invalid JSON body"})
		return
	}
	if err := payload.Validate(); err != nil {
		respondError(w, r, err)
		return
	}

	secret := s.cfg.Webhook.SecretFor(payload.SupplierID)
	verified, err := verifySignature(payload.SupplierID, secret, r.Header.Get(SignatureHeader), body)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if !verified {
		logger.Warn("webhook accepted without signature verification",
			"supplier", payload.SupplierID,
			"sku", payload.SKU,
			"secret_configured", secret != "",
		)
	}

	key := core.NewVariantKey(payload.SupplierID, payload.SKU)
	item, err := s.inventory.ResolveVariant(ctx, key)
	if err != nil {
		respondError(w, r, err)
		return
	}

	changes, err := s.inventory.UpdateVariantInventory(ctx, *item, core.VariantUpdate{
		Quantity:     payload.Quantity,
		Price:        payload.Price,
		LeadTimeDays: payload.LeadTime,
	}, core.SourceWebhook)
	if err != nil {
		respondError(w, r, err)
		return
	}

	resp := WebhookResponse{
		Success: true,
		Message: fmt.Sprintf("inventory updated, %d change(s) detected", len(changes)),
		SKU:     key.SKU,
	}
	if v, err := s.inventory.Variant(ctx, key); err == nil {
		resp.Quantity = v.Inventory.Quantity
		price := v.Price
		resp.Price = &price
	}
	writeJSON(w, http.StatusOK, resp)
}
