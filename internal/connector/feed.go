package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/JonMunkholm/invsync/internal/core"
	"github.com/JonMunkholm/invsync/internal/logging"
	"github.com/JonMunkholm/invsync/internal/pipeline"
)

// maxFeedBytes caps a single feed download.
const maxFeedBytes = 64 << 20

// FeedOptions configures a Feed connector.
type FeedOptions struct {
	// Client is the HTTP client (default: http.DefaultClient).
	Client *http.Client

	// Timeout bounds each request attempt (default: 5s).
	Timeout time.Duration

	// Retry is applied to transient failures (5xx, 429, network errors).
	Retry core.RetryPolicy

	// Rate and Burst limit outgoing requests. Zero Rate means unlimited.
	Rate  float64
	Burst int

	// ProductURL fetches one product when set; "{id}" is replaced by the
	// escaped product id. Without it FetchProduct scans the feed snapshot.
	ProductURL string

	// SnapshotTTL is how long a downloaded feed serves FetchProduct scans
	// (default: 1m).
	SnapshotTTL time.Duration
}

// Feed reads a supplier's catalog from a JSON document over HTTP and runs
// it through the normalization pipeline.
//
// The document is either an array of raw records or an object wrapping one
// under "data", "products" or "items".
type Feed struct {
	supplierID string
	feedURL    string
	normalizer *pipeline.Service
	client     *http.Client
	limiter    *rate.Limiter
	opts       FeedOptions
	logger     *slog.Logger

	mu         sync.Mutex
	snapshot   map[string]core.NormalizedProduct
	snapshotAt time.Time
}

// NewFeed creates a JSON feed connector.
func NewFeed(supplierID, feedURL string, normalizer *pipeline.Service, opts FeedOptions) *Feed {
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.SnapshotTTL <= 0 {
		opts.SnapshotTTL = time.Minute
	}
	limit := rate.Inf
	if opts.Rate > 0 {
		limit = rate.Limit(opts.Rate)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}

	id := normalizeID(supplierID)
	return &Feed{
		supplierID: id,
		feedURL:    feedURL,
		normalizer: normalizer,
		client:     opts.Client,
		limiter:    rate.NewLimiter(limit, burst),
		opts:       opts,
		logger:     logging.Component("connector").With("supplier", id),
	}
}

func (f *Feed) SupplierID() string { return f.supplierID }

// FetchProducts downloads and normalizes the whole feed. Records that fail
// normalization are logged and skipped.
func (f *Feed) FetchProducts(ctx context.Context) ([]core.NormalizedProduct, error) {
	doc, err := f.getJSON(ctx, f.feedURL)
	if err != nil {
		return nil, err
	}
	records := recordList(doc)
	if records == nil {
		return nil, fmt.Errorf("feed %s: unexpected document shape", f.supplierID)
	}

	batch := f.normalizer.NormalizeBatch(ctx, f.supplierID, records)
	if batch.Summary.Failed > 0 {
		f.logger.Warn("feed records skipped",
			"failed", batch.Summary.Failed,
			"total", batch.Summary.Total,
		)
	}
	products := batch.Products()

	snap := make(map[string]core.NormalizedProduct, len(products))
	for _, p := range products {
		snap[strings.ToUpper(p.StyleID)] = p
	}
	f.mu.Lock()
	f.snapshot = snap
	f.snapshotAt = time.Now()
	f.mu.Unlock()

	return products, nil
}

// FetchProduct returns one product by supplier product id.
func (f *Feed) FetchProduct(ctx context.Context, id string) (*core.NormalizedProduct, error) {
	id = strings.TrimSpace(id)
	if f.opts.ProductURL != "" {
		return f.fetchOne(ctx, id)
	}

	f.mu.Lock()
	fresh := f.snapshot != nil && time.Since(f.snapshotAt) < f.opts.SnapshotTTL
	f.mu.Unlock()
	if !fresh {
		if _, err := f.FetchProducts(ctx); err != nil {
			return nil, err
		}
	}

	f.mu.Lock()
	p, ok := f.snapshot[strings.ToUpper(id)]
	f.mu.Unlock()
	if !ok {
		return nil, &core.NotFoundError{Resource: "product", ID: f.supplierID + "/" + id}
	}
	return &p, nil
}

func (f *Feed) fetchOne(ctx context.Context, id string) (*core.NormalizedProduct, error) {
	u := strings.ReplaceAll(f.opts.ProductURL, "{id}", url.PathEscape(id))
	doc, err := f.getJSON(ctx, u)
	if err != nil {
		return nil, err
	}

	raw, ok := unwrap(doc, "data", "product").(map[string]any)
	if !ok {
		return nil, fmt.Errorf("feed %s: product %s: unexpected document shape", f.supplierID, id)
	}
	res := f.normalizer.Normalize(ctx, f.supplierID, raw)
	if !res.OK() {
		return nil, core.ValidationError{
			Field:   "product",
			Value:   id,
			Message: strings.Join(res.Errors, "; "),
		}
	}
	return res.Product, nil
}

// TestConnection makes one GET against the feed without retries.
func (f *Feed) TestConnection(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.feedURL, nil)
	if err != nil {
		return false
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<10))
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// getJSON performs a rate-limited GET under the retry policy, bounding each
// attempt by the configured timeout.
func (f *Feed) getJSON(ctx context.Context, target string) (any, error) {
	var doc any
	err := f.opts.Retry.Do(ctx, func(ctx context.Context) error {
		doc = nil
		if err := f.limiter.Wait(ctx); err != nil {
			return err
		}

		attemptCtx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, target, nil)
		if err != nil {
			return core.ValidationError{Field: "url", Value: target, Message: err.Error()}
		}
		req.Header.Set("Accept", "application/json")

		resp, err := f.client.Do(req)
		if err != nil {
			return core.Transient("fetch "+f.supplierID, err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return &core.NotFoundError{Resource: "feed", ID: target}
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return core.Transient("fetch "+f.supplierID, fmt.Errorf("unexpected status code: %s", resp.Status))
		case resp.StatusCode != http.StatusOK:
			return fmt.Errorf("fetch %s: unexpected status code: %s", f.supplierID, resp.Status)
		}

		if err := json.NewDecoder(io.LimitReader(resp.Body, maxFeedBytes)).Decode(&doc); err != nil {
			return core.Transient("decode "+f.supplierID, err)
		}
		return nil
	})
	if err != nil {
		f.logger.Warn("supplier fetch failed", "url", target, "error", err)
		return nil, err
	}
	return doc, nil
}

// recordList finds the record array in a feed document.
func recordList(doc any) []map[string]any {
	list, ok := unwrap(doc, "data", "products", "items").([]any)
	if !ok {
		return nil
	}
	records := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if rec, ok := item.(map[string]any); ok {
			records = append(records, rec)
		}
	}
	return records
}

// unwrap returns the value under the first wrapper key present on an
// object document, or the document itself.
func unwrap(doc any, keys ...string) any {
	obj, ok := doc.(map[string]any)
	if !ok {
		return doc
	}
	for _, k := range keys {
		if v, ok := obj[k]; ok && v != nil {
			return v
		}
	}
	return doc
}
