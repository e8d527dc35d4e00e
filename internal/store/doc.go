// Package store provides SQLite-backed storage for sent-back requests,
// quotation rows, vendors, orders, payments and RFQ drafts.
//
// # Documents
//
// Scalar fields live in their own columns so they can be filtered through
// queryir and updated individually. List fields (item_list, category_list,
// order_list, makes) and the RFQ snapshot are stored as JSON TEXT in the
// {"list": [...]} form used on the wire.
//
// # Ordering
//
// Every read is ordered, with id ASC COLLATE BINARY as the final key, so
// repeated reads return identical sequences.
//
// # Partial updates
//
// UpdateQuotation writes only the touched columns of one row.
// UpdateSentBack writes the item list, RFQ snapshot and workflow state of a
// request in one statement and bumps its revision.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
