package ledger

import (
	"github.com/shopspring/decimal"
)

// ItemID identifies a requested line within a request.
type ItemID string

// VendorID identifies a vendor document.
type VendorID string

// RequestID identifies a sent-back request.
type RequestID string

// Mode is the editing mode of a sent-back request session.
type Mode string

const (
	// ModeEdit allows draft mutations (vendors, quotes, makes).
	ModeEdit Mode = "edit"
	// ModeView freezes the draft and allows winner selection.
	ModeView Mode = "view"
	// ModeCommitted is terminal: the request moved to approval.
	ModeCommitted Mode = "committed"
)

// Workflow states written on sent-back documents.
const (
	StatePending   = "Pending"
	StateSentBack  = "Sent Back"
	StateReviewing = "Vendor Selected"
)

// Vendor is a supplier that may quote on a request.
type Vendor struct {
	ID         VendorID `json:"name"`
	Name       string   `json:"vendor_name"`
	Type       string   `json:"vendor_type,omitempty"`
	City       string   `json:"vendor_city,omitempty"`
	State      string   `json:"vendor_state,omitempty"`
	AddressRef string   `json:"vendor_address,omitempty"`
}

// Category groups items and carries the default makes for new items.
type Category struct {
	Name  string   `json:"name"`
	Makes MakeList `json:"makes,omitempty"`
}

// Item is one requested line of a sent-back request.
//
// Vendor, Quote and Make are the resolution fields written by reconciliation.
// An item without a vendor is unresolved.
type Item struct {
	ID       ItemID          `json:"name"`
	Name     string          `json:"item"`
	Category string          `json:"category"`
	Quantity decimal.Decimal `json:"quantity"`
	Unit     string          `json:"unit"`
	Tax      decimal.Decimal `json:"tax"`
	Status   string          `json:"status,omitempty"`
	Comment  string          `json:"comment,omitempty"`
	Makes    MakeList        `json:"makes,omitempty"`

	Vendor VendorID         `json:"vendor,omitempty"`
	Quote  *decimal.Decimal `json:"quote,omitempty"`
	Make   string           `json:"make,omitempty"`
}

// Resolved reports whether the item carries a winning vendor.
func (it Item) Resolved() bool {
	return it.Vendor != ""
}

// Award returns a copy of the item resolved to the given vendor quote.
func (it Item) Award(vendor VendorID, q Quote) Item {
	out := it.Clone()
	out.Vendor = vendor
	out.Quote = nil
	if q.Price != nil {
		p := *q.Price
		out.Quote = &p
	}
	out.Make = q.Make
	return out
}

// Strip returns a copy of the item with its resolution fields removed.
func (it Item) Strip() Item {
	out := it.Clone()
	out.Vendor = ""
	out.Quote = nil
	out.Make = ""
	return out
}

// Clone returns a deep copy of the item.
func (it Item) Clone() Item {
	out := it
	out.Makes = it.Makes.Clone()
	if it.Quote != nil {
		q := *it.Quote
		out.Quote = &q
	}
	return out
}

// CloneItems deep-copies an item list.
func CloneItems(items []Item) []Item {
	if items == nil {
		return nil
	}
	out := make([]Item, len(items))
	for i, it := range items {
		out[i] = it.Clone()
	}
	return out
}

// SentBack is the persisted sent-back request document.
type SentBack struct {
	ID                 RequestID  `json:"name"`
	Project            string     `json:"project"`
	ProcurementRequest string     `json:"procurement_request"`
	WorkflowState      string     `json:"workflow_state"`
	Type               string     `json:"type,omitempty"`
	Items              []Item     `json:"item_list"`
	Categories         []Category `json:"category_list"`
	RFQ                RFQ        `json:"rfq_data"`
	Revision           int64      `json:"revision"`
}

// CategoryNames returns the declared category names in order.
func (sb SentBack) CategoryNames() []string {
	names := make([]string, len(sb.Categories))
	for i, c := range sb.Categories {
		names[i] = c.Name
	}
	return names
}

// Category returns the declared category with the given name.
func (sb SentBack) Category(name string) (Category, bool) {
	for _, c := range sb.Categories {
		if c.Name == name {
			return c, true
		}
	}
	return Category{}, false
}

// QuotationRow is one vendor's quotation request for one item.
// Rows are the ledger of the per-vendor quote editing flow.
type QuotationRow struct {
	ID       string           `json:"name"`
	Request  string           `json:"procurement_task"`
	Vendor   VendorID         `json:"vendor"`
	Item     ItemID           `json:"item"`
	Category string           `json:"category"`
	Quantity decimal.Decimal  `json:"quantity"`
	Quote    *decimal.Decimal `json:"quote,omitempty"`
	LeadTime int              `json:"lead_time,omitempty"`
	Makes    MakeList         `json:"makes,omitempty"`
}

// Priced reports whether the row carries a positive quote.
func (r QuotationRow) Priced() bool {
	return r.Quote != nil && r.Quote.IsPositive()
}

// OrderKind distinguishes purchase orders from service orders.
type OrderKind string

const (
	OrderPurchase OrderKind = "purchase"
	OrderService  OrderKind = "service"
)

// OrderLine is one priced line of an order.
type OrderLine struct {
	Item     string          `json:"item,omitempty"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"quote"`
	Tax      decimal.Decimal `json:"tax"`
}

// Order is a purchase or service order that payments are booked against.
type Order struct {
	ID            string      `json:"name"`
	Kind          OrderKind   `json:"kind"`
	Project       string      `json:"project,omitempty"`
	Vendor        VendorID    `json:"vendor,omitempty"`
	TaxApplicable bool        `json:"gst"`
	Lines         []OrderLine `json:"order_list"`
}

// Payment statuses.
const (
	PaymentRequested = "Requested"
	PaymentApproved  = "Approved"
	PaymentPaid      = "Paid"
)

// Payment is a project payment booked against an order.
type Payment struct {
	ID           string          `json:"name"`
	DocumentType string          `json:"document_type"`
	DocumentName string          `json:"document_name"`
	Project      string          `json:"project,omitempty"`
	Vendor       VendorID        `json:"vendor,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	TDS          decimal.Decimal `json:"tds"`
	UTR          string          `json:"utr,omitempty"`
	Status       string          `json:"status"`
}
