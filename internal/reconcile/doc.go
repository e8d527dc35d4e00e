// Package reconcile drives a sent-back request through its editing modes.
//
// # Modes
//
// A session starts in edit mode, where the RFQ draft (vendors, quotes and
// makes) may change. Moving to view mode checkpoints the draft: when it
// differs from the last persisted snapshot, every item is reconciled against
// the current winners and the item list plus RFQ snapshot are written as one
// document update. View mode freezes the draft and enables winner selection.
// Review commits the request: it requires a winner for every item, writes the
// reconciled items with the "Vendor Selected" workflow state and clears the
// durable draft. Committed is terminal.
//
//	edit ──ToView──▶ view ──Commit──▶ committed
//	  ▲                │
//	  └─────ToEdit─────┘
//
// # Reconciliation
//
// Apply is a pure function. An item with a winner is overwritten with the
// winning vendor, its draft price and chosen make. An item without a winner has
// those fields stripped. Applying twice yields the same list.
//
// # Failure
//
// A failed transition leaves mode, items, draft and durable draft unchanged,
// so the same transition can be retried without loss. Failures are reported as
// *TransitionError with a code, matched with IsIncompleteSelection and
// IsPersistenceFailure.
package reconcile
