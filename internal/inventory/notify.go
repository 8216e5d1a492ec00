package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/JonMunkholm/invsync/internal/core"
	"github.com/JonMunkholm/invsync/internal/logging"
)

// PriceAlertThreshold is the fractional price increase that triggers an
// alert.
const PriceAlertThreshold = 0.10

// EventKind names a stock alert.
type EventKind string

const (
	EventOutOfStock    EventKind = "out_of_stock"
	EventLowStock      EventKind = "low_stock"
	EventPriceIncrease EventKind = "price_increase"
)

// ChangeEvent is a notification-worthy transition of one variant.
type ChangeEvent struct {
	Kind        EventKind         `json:"kind"`
	SupplierID  string            `json:"supplierId"`
	SKU         string            `json:"sku"`
	VariantID   string            `json:"variantId"`
	OldQuantity int               `json:"oldQuantity"`
	NewQuantity int               `json:"newQuantity"`
	OldPrice    float64           `json:"oldPrice,omitempty"`
	NewPrice    float64           `json:"newPrice,omitempty"`
	Increase    float64           `json:"increase,omitempty"`
	Source      core.ChangeSource `json:"source"`
	DetectedAt  time.Time         `json:"detectedAt"`

	// changeIDs are the persisted changes the event reports on.
	changeIDs []string
}

// Notifier delivers change events. Delivery failures are logged by the
// caller and never fail a sync.
type Notifier interface {
	Notify(ctx context.Context, ev ChangeEvent) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, ev ChangeEvent) error

func (f NotifierFunc) Notify(ctx context.Context, ev ChangeEvent) error { return f(ctx, ev) }

// LogNotifier writes events to the log.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Notify(ctx context.Context, ev ChangeEvent) error {
	logger := n.Logger
	if logger == nil {
		logger = logging.Component("notify")
	}
	attrs := []any{
		"kind", ev.Kind,
		"supplier", ev.SupplierID,
		"sku", ev.SKU,
		"source", ev.Source,
	}
	switch ev.Kind {
	case EventPriceIncrease:
		attrs = append(attrs, "old_price", ev.OldPrice, "new_price", ev.NewPrice,
			"increase_pct", fmt.Sprintf("%.1f", ev.Increase*100))
	default:
		attrs = append(attrs, "old_quantity", ev.OldQuantity, "new_quantity", ev.NewQuantity)
	}
	logger.Warn("inventory alert", attrs...)
	return nil
}

// MultiNotifier fans an event out to every notifier. The event counts as
// delivered when at least one notifier took it; failed sinks are logged and
// an error is returned only when all of them failed.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, ev ChangeEvent) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == len(m) {
		return errors.Join(errs...)
	}
	logging.Component("notify").Warn("notification partially delivered",
		"kind", ev.Kind, "sku", ev.SKU, "failed", len(errs), "sinks", len(m), "error", errors.Join(errs...))
	return nil
}

// HTTPNotifier posts each event as JSON to a URL.
type HTTPNotifier struct {
	URL    string
	Client *http.Client
}

func (n HTTPNotifier) Notify(ctx context.Context, ev ChangeEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := n.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return core.Transient("notify", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notify: unexpected status code: %s", resp.Status)
	}
	return nil
}
