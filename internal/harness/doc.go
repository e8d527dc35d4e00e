// Package harness runs YAML scenarios against a fresh in-memory store and
// records a deterministic trace of what each step did.
//
// A scenario seeds documents (vendors, sent-back requests, quotation rows,
// orders, payments), opens the target request in edit mode and executes its
// flow steps through the real components: the reconciliation engine, quote
// edit sessions with batched writes, and the debounced amount guard driven by
// a virtual clock. Every step appends one trace event holding its arguments,
// its outcome ("ok" or an error code) and a small result map.
//
// # Steps
//
//	rfq.add_vendors    vendors: [V1, V2]
//	rfq.remove_vendor  vendor
//	rfq.set_quote      item, vendor, price (omitted or null clears)
//	rfq.set_make       item, vendor, make
//	rfq.view           checkpoint to view mode
//	rfq.edit           back to edit mode
//	rfq.select         item, vendor
//	rfq.commit         review and commit
//	quotes.open        vendor (request defaults to the scenario request)
//	quotes.price       row, price
//	quotes.make        row, make
//	quotes.add_makes   row, makes: [...]
//	quotes.lead_time   days
//	quotes.submit
//	payments.enter     document, amount
//	clock.advance      ms
//
// A step without an expect clause must succeed. An expect clause names the
// outcome and a subset of result fields.
//
// # Golden traces
//
// RunWithGolden renders the trace with FormatTrace and compares it against
// testdata/golden/<scenario>.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
