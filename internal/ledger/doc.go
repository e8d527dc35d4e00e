// Package ledger provides the quotation data model shared by every quotedesk package.
//
// This package contains record types and pure helpers only. All other internal
// packages import ledger; ledger imports nothing internal, so it stays the
// foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Money and quantities are shopspring decimals, never floats
//   - List-valued wire fields use the {"list": [...]} envelope and keep their order
//   - A Make list is a radio set: at most one entry is enabled
//   - All JSON tags use snake_case except the RFQ draft keys, which keep the
//     camelCase names stored by existing clients (selectedVendors, vendorQuotes)
package ledger
