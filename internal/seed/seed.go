// Package seed reads YAML fixtures of vendors, sent-back requests, quotation
// rows, orders and payments, and imports them into a store.
package seed

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/roach88/quotedesk/internal/ledger"
	"github.com/roach88/quotedesk/internal/store"
)

// Fixture is the YAML document layout.
type Fixture struct {
	Vendors    []Vendor    `yaml:"vendors,omitempty"`
	Requests   []Request   `yaml:"requests,omitempty"`
	Quotations []Quotation `yaml:"quotations,omitempty"`
	Orders     []Order     `yaml:"orders,omitempty"`
	Payments   []Payment   `yaml:"payments,omitempty"`
}

// Vendor is a vendor document.
type Vendor struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Type  string `yaml:"type,omitempty"`
	City  string `yaml:"city,omitempty"`
	State string `yaml:"state,omitempty"`
}

// Request is a sent-back request with its items and declared categories.
type Request struct {
	ID                 string     `yaml:"id"`
	Project            string     `yaml:"project,omitempty"`
	ProcurementRequest string     `yaml:"procurement_request,omitempty"`
	State              string     `yaml:"state,omitempty"`
	Categories         []Category `yaml:"categories,omitempty"`
	Items              []Item     `yaml:"items"`
}

// Category declares default makes for its items.
type Category struct {
	Name  string   `yaml:"name"`
	Makes []string `yaml:"makes,omitempty"`
}

// Item is one requested line.
type Item struct {
	ID       string          `yaml:"id"`
	Name     string          `yaml:"name,omitempty"`
	Category string          `yaml:"category"`
	Quantity decimal.Decimal `yaml:"quantity"`
	Unit     string          `yaml:"unit,omitempty"`
	Tax      decimal.Decimal `yaml:"tax,omitempty"`
	Makes    []string        `yaml:"makes,omitempty"`
}

// Quotation is a vendor's quotation row for one item.
type Quotation struct {
	ID       string           `yaml:"id,omitempty"`
	Request  string           `yaml:"request"`
	Vendor   string           `yaml:"vendor"`
	Item     string           `yaml:"item"`
	Category string           `yaml:"category"`
	Quantity decimal.Decimal  `yaml:"quantity"`
	Quote    *decimal.Decimal `yaml:"quote,omitempty"`
	LeadTime int              `yaml:"lead_time,omitempty"`
	Makes    []string         `yaml:"makes,omitempty"`
	// Make is enabled in Makes, appending it when absent.
	Make string `yaml:"make,omitempty"`
}

// Order is a purchase or service order.
type Order struct {
	ID     string      `yaml:"id"`
	Kind   string      `yaml:"kind"`
	Vendor string      `yaml:"vendor,omitempty"`
	GST    bool        `yaml:"gst,omitempty"`
	Lines  []OrderLine `yaml:"lines"`
}

// OrderLine is one priced order line.
type OrderLine struct {
	Item     string          `yaml:"item,omitempty"`
	Quantity decimal.Decimal `yaml:"quantity"`
	Price    decimal.Decimal `yaml:"price"`
	Tax      decimal.Decimal `yaml:"tax,omitempty"`
}

// Payment is a payment booked against an order.
type Payment struct {
	ID       string          `yaml:"id,omitempty"`
	Document string          `yaml:"document"`
	Type     string          `yaml:"type,omitempty"`
	Amount   decimal.Decimal `yaml:"amount"`
	TDS      decimal.Decimal `yaml:"tds,omitempty"`
	Status   string          `yaml:"status,omitempty"`
}

// Counts reports how many documents an import stored.
type Counts struct {
	Vendors    int
	Requests   int
	Quotations int
	Orders     int
	Payments   int
}

// String formats the counts for CLI output.
func (c Counts) String() string {
	return fmt.Sprintf("%d vendor(s), %d request(s), %d quotation(s), %d order(s), %d payment(s)",
		c.Vendors, c.Requests, c.Quotations, c.Orders, c.Payments)
}

// LoadFile reads a fixture file.
func LoadFile(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture file: %w", err)
	}
	return Decode(bytes.NewReader(data))
}

// Decode parses a fixture, rejecting unknown fields.
func Decode(r io.Reader) (*Fixture, error) {
	var f Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &f, nil
}

// SentBack converts a request to its document form.
func (r Request) SentBack() ledger.SentBack {
	state := r.State
	if state == "" {
		state = ledger.StateSentBack
	}
	sb := ledger.SentBack{
		ID:                 ledger.RequestID(r.ID),
		Project:            r.Project,
		ProcurementRequest: r.ProcurementRequest,
		WorkflowState:      state,
		RFQ:                ledger.NewRFQ(),
	}
	for _, c := range r.Categories {
		sb.Categories = append(sb.Categories, ledger.Category{Name: c.Name, Makes: ledger.NewMakeList(c.Makes...)})
	}
	for _, it := range r.Items {
		sb.Items = append(sb.Items, ledger.Item{
			ID:       ledger.ItemID(it.ID),
			Name:     it.Name,
			Category: it.Category,
			Quantity: it.Quantity,
			Unit:     it.Unit,
			Tax:      it.Tax,
			Status:   ledger.StatePending,
			Makes:    ledger.NewMakeList(it.Makes...),
		})
	}
	return sb
}

// Row converts a quotation to its document form.
func (q Quotation) Row() (ledger.QuotationRow, error) {
	row := ledger.QuotationRow{
		ID:       q.ID,
		Request:  q.Request,
		Vendor:   ledger.VendorID(q.Vendor),
		Item:     ledger.ItemID(q.Item),
		Category: q.Category,
		Quantity: q.Quantity,
		Quote:    q.Quote,
		LeadTime: q.LeadTime,
		Makes:    ledger.NewMakeList(q.Makes...),
	}
	if q.Make != "" {
		makes, err := row.Makes.Select(q.Make)
		if err != nil {
			return ledger.QuotationRow{}, fmt.Errorf("quotation %s: %w", q.ID, err)
		}
		row.Makes = makes
	}
	return row, nil
}

// Import stores every document of the fixture. Quotation rows and payments
// without an id get one from the store.
func Import(ctx context.Context, st *store.Store, f *Fixture) (Counts, error) {
	var c Counts
	for _, v := range f.Vendors {
		err := st.UpsertVendor(ctx, ledger.Vendor{
			ID: ledger.VendorID(v.ID), Name: v.Name, Type: v.Type, City: v.City, State: v.State,
		})
		if err != nil {
			return c, fmt.Errorf("import: %w", err)
		}
		c.Vendors++
	}
	for _, r := range f.Requests {
		if err := st.InsertSentBack(ctx, r.SentBack()); err != nil {
			return c, fmt.Errorf("import: %w", err)
		}
		c.Requests++
	}
	for _, q := range f.Quotations {
		if q.ID == "" {
			q.ID = st.NewID()
		}
		row, err := q.Row()
		if err != nil {
			return c, fmt.Errorf("import: %w", err)
		}
		if err := st.InsertQuotation(ctx, row); err != nil {
			return c, fmt.Errorf("import: %w", err)
		}
		c.Quotations++
	}
	for _, o := range f.Orders {
		if err := st.InsertOrder(ctx, o.order()); err != nil {
			return c, fmt.Errorf("import: %w", err)
		}
		c.Orders++
	}
	for _, p := range f.Payments {
		if _, err := st.InsertPayment(ctx, p.payment()); err != nil {
			return c, fmt.Errorf("import: %w", err)
		}
		c.Payments++
	}
	return c, nil
}

func (o Order) order() ledger.Order {
	out := ledger.Order{
		ID:            o.ID,
		Kind:          ledger.OrderKind(o.Kind),
		Vendor:        ledger.VendorID(o.Vendor),
		TaxApplicable: o.GST,
	}
	if out.Kind == "" {
		out.Kind = ledger.OrderPurchase
	}
	for _, l := range o.Lines {
		out.Lines = append(out.Lines, ledger.OrderLine{Item: l.Item, Quantity: l.Quantity, Price: l.Price, Tax: l.Tax})
	}
	return out
}

func (p Payment) payment() ledger.Payment {
	status := p.Status
	if status == "" {
		status = ledger.PaymentPaid
	}
	docType := p.Type
	if docType == "" {
		docType = "Procurement Orders"
	}
	return ledger.Payment{
		ID:           p.ID,
		DocumentType: docType,
		DocumentName: p.Document,
		Amount:       p.Amount,
		TDS:          p.TDS,
		Status:       status,
	}
}
