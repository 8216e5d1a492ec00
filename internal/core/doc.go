// Package core holds the domain model for supplier inventory sync.
//
// Everything here is free of storage and transport concerns so it can be
// shared by the normalization pipeline, the sync service, the HTTP layer
// and tests.
//
// # Model
//
//   - [NormalizedProduct]: a supplier record after the normalization pipeline
//   - [ProductVariant]: the persisted size/color row with its inventory level
//   - [InventoryChange]: one field-level difference found while applying an update
//   - [SyncLog]: the persisted record of one supplier sync run
//   - [VariantKey]: the comparable (supplier, SKU) identity used for storage,
//     diffing and cache keys
//
// # Errors
//
// The taxonomy is [ValidationError], [NotFoundError], [TransientError] and
// [SignatureError]. [StatusCode] maps them to HTTP codes and [MapError]
// maps any error to an operator-facing message with a support code:
//
//   - SUP/SKU: unknown supplier or SKU
//   - SIG: webhook signature failures
//   - VAL: validation failures
//   - INT: supplier and cache integration failures
//   - DB: persistence conflicts
//   - SYNC: every sync slot busy ([ErrTooManySyncs], HTTP 429)
//
// # Retries
//
// [RetryPolicy] is the only retry primitive; supplier fetches and cache
// reconnects both use it.
package core
