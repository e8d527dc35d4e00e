// Package draft implements the per-request RFQ draft store.
//
// A Store owns one request's draft: the selected vendors and the
// item × vendor quote matrix with per-item make lists. Every mutation builds a
// new snapshot, swaps it in under the store mutex, and writes the snapshot
// through to a KV backend. Readers only ever see whole snapshots.
//
// Durability contract:
//   - Load happens once per session (Open)
//   - Save happens after every mutation (write-through)
//   - Clear happens only after a successful commit, driven by the caller
//   - Corrupt stored data falls back to an empty draft and is logged, never returned
//
// Listeners receive events for changes other components must react to
// (vendor removed, quote cleared, draft hydrated). Events are delivered after
// the store mutex is released, in mutation order.
package draft
