package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/roach88/quotedesk/internal/ledger"
	"github.com/roach88/quotedesk/internal/queryir"
)

// Collection names.
const (
	Vendors    = "vendors"
	SentBacks  = "sent_back"
	Quotations = "quotation_requests"
	Orders     = "orders"
	Payments   = "payments"
)

func byID(id string) queryir.Predicate {
	return queryir.Equals{Field: "id", Value: queryir.String(id)}
}

// UpsertVendor inserts or replaces a vendor.
func (s *Store) UpsertVendor(ctx context.Context, v ledger.Vendor) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO vendors (id, vendor_name, vendor_type, vendor_city, vendor_state, vendor_address)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			vendor_name = excluded.vendor_name,
			vendor_type = excluded.vendor_type,
			vendor_city = excluded.vendor_city,
			vendor_state = excluded.vendor_state,
			vendor_address = excluded.vendor_address
	`, string(v.ID), v.Name, v.Type, v.City, v.State, v.AddressRef)
	if err != nil {
		return fmt.Errorf("upsert vendor %s: %w", v.ID, err)
	}
	return nil
}

// FindVendors returns the vendors matching filter (nil matches all).
func (s *Store) FindVendors(ctx context.Context, filter queryir.Predicate) ([]ledger.Vendor, error) {
	q := queryir.Select{
		From:   Vendors,
		Fields: []string{"id", "vendor_name", "vendor_type", "vendor_city", "vendor_state", "vendor_address"},
		Filter: filter,
	}
	out := []ledger.Vendor{}
	err := s.query(ctx, q, func(rows *sql.Rows) error {
		var v ledger.Vendor
		var id string
		if err := rows.Scan(&id, &v.Name, &v.Type, &v.City, &v.State, &v.AddressRef); err != nil {
			return fmt.Errorf("scan vendor: %w", err)
		}
		v.ID = ledger.VendorID(id)
		out = append(out, v)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("find vendors: %w", err)
	}
	return out, nil
}

// InsertSentBack stores a new sent-back request.
func (s *Store) InsertSentBack(ctx context.Context, sb ledger.SentBack) error {
	items, err := marshalList(sb.Items)
	if err != nil {
		return fmt.Errorf("insert sent back %s: %w", sb.ID, err)
	}
	cats, err := marshalList(sb.Categories)
	if err != nil {
		return fmt.Errorf("insert sent back %s: %w", sb.ID, err)
	}
	rfq, err := marshalRFQ(sb.RFQ)
	if err != nil {
		return fmt.Errorf("insert sent back %s: %w", sb.ID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sent_back
		(id, project, procurement_request, workflow_state, type, item_list, category_list, rfq_data, revision)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, string(sb.ID), sb.Project, sb.ProcurementRequest, sb.WorkflowState, sb.Type, items, cats, rfq, sb.Revision)
	if err != nil {
		return fmt.Errorf("insert sent back %s: %w", sb.ID, err)
	}
	return nil
}

// FindSentBacks returns the sent-back requests matching filter.
func (s *Store) FindSentBacks(ctx context.Context, filter queryir.Predicate) ([]ledger.SentBack, error) {
	q := queryir.Select{
		From: SentBacks,
		Fields: []string{
			"id", "project", "procurement_request", "workflow_state", "type",
			"item_list", "category_list", "rfq_data", "revision",
		},
		Filter: filter,
	}
	out := []ledger.SentBack{}
	err := s.query(ctx, q, func(rows *sql.Rows) error {
		var sb ledger.SentBack
		var id, items, cats, rfq string
		if err := rows.Scan(&id, &sb.Project, &sb.ProcurementRequest, &sb.WorkflowState, &sb.Type,
			&items, &cats, &rfq, &sb.Revision); err != nil {
			return fmt.Errorf("scan sent back: %w", err)
		}
		sb.ID = ledger.RequestID(id)
		var err error
		if sb.Items, err = unmarshalList[ledger.Item](items); err != nil {
			return fmt.Errorf("sent back %s item_list: %w", id, err)
		}
		if sb.Categories, err = unmarshalList[ledger.Category](cats); err != nil {
			return fmt.Errorf("sent back %s category_list: %w", id, err)
		}
		if sb.RFQ, err = unmarshalRFQ(rfq); err != nil {
			return fmt.Errorf("sent back %s rfq_data: %w", id, err)
		}
		out = append(out, sb)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("find sent back: %w", err)
	}
	return out, nil
}

// GetSentBack returns one sent-back request.
func (s *Store) GetSentBack(ctx context.Context, id ledger.RequestID) (ledger.SentBack, error) {
	found, err := s.FindSentBacks(ctx, byID(string(id)))
	if err != nil {
		return ledger.SentBack{}, err
	}
	if len(found) == 0 {
		return ledger.SentBack{}, fmt.Errorf("sent back %s: %w", id, ErrNotFound)
	}
	return found[0], nil
}

// SentBackUpdate is the reconciled state written back to a request.
type SentBackUpdate struct {
	Items []ledger.Item
	RFQ   ledger.RFQ
	// WorkflowState is left unchanged when empty.
	WorkflowState string
	// ExpectRevision rejects the write with ErrConflict when the stored
	// revision differs. Negative skips the check.
	ExpectRevision int64
}

// UpdateSentBack writes the item list and RFQ snapshot of a request in one
// statement and returns the new revision.
func (s *Store) UpdateSentBack(ctx context.Context, id ledger.RequestID, u SentBackUpdate) (int64, error) {
	items, err := marshalList(u.Items)
	if err != nil {
		return 0, fmt.Errorf("update sent back %s: %w", id, err)
	}
	rfq, err := marshalRFQ(u.RFQ)
	if err != nil {
		return 0, fmt.Errorf("update sent back %s: %w", id, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("update sent back %s: begin tx: %w", id, err)
	}
	defer tx.Rollback() // No-op if committed

	var revision int64
	err = tx.QueryRowContext(ctx, `SELECT revision FROM sent_back WHERE id = ?`, string(id)).Scan(&revision)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("update sent back %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("update sent back %s: %w", id, err)
	}
	if u.ExpectRevision >= 0 && u.ExpectRevision != revision {
		return 0, fmt.Errorf("update sent back %s: have %d, expected %d: %w", id, revision, u.ExpectRevision, ErrConflict)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE sent_back
		SET item_list = ?, rfq_data = ?,
			workflow_state = CASE WHEN ? = '' THEN workflow_state ELSE ? END,
			revision = revision + 1
		WHERE id = ?
	`, items, rfq, u.WorkflowState, u.WorkflowState, string(id))
	if err != nil {
		return 0, fmt.Errorf("update sent back %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("update sent back %s: commit: %w", id, err)
	}
	return revision + 1, nil
}

// InsertQuotation stores a new quotation row.
func (s *Store) InsertQuotation(ctx context.Context, r ledger.QuotationRow) error {
	makes, err := marshalMakes(r.Makes)
	if err != nil {
		return fmt.Errorf("insert quotation %s: %w", r.ID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO quotation_requests
		(id, procurement_task, vendor, item, category, quantity, quote, lead_time, makes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.Request, string(r.Vendor), string(r.Item), r.Category, r.Quantity, nullDecimal(r.Quote), r.LeadTime, makes)
	if err != nil {
		return fmt.Errorf("insert quotation %s: %w", r.ID, err)
	}
	return nil
}

// FindQuotations returns the quotation rows matching filter.
func (s *Store) FindQuotations(ctx context.Context, filter queryir.Predicate) ([]ledger.QuotationRow, error) {
	q := queryir.Select{
		From:   Quotations,
		Fields: []string{"id", "procurement_task", "vendor", "item", "category", "quantity", "quote", "lead_time", "makes"},
		Filter: filter,
	}
	out := []ledger.QuotationRow{}
	err := s.query(ctx, q, func(rows *sql.Rows) error {
		var r ledger.QuotationRow
		var vendor, item, makes string
		var quote decimal.NullDecimal
		if err := rows.Scan(&r.ID, &r.Request, &vendor, &item, &r.Category, &r.Quantity, &quote, &r.LeadTime, &makes); err != nil {
			return fmt.Errorf("scan quotation: %w", err)
		}
		r.Vendor = ledger.VendorID(vendor)
		r.Item = ledger.ItemID(item)
		if quote.Valid {
			q := quote.Decimal
			r.Quote = &q
		}
		var err error
		if r.Makes, err = unmarshalMakes(makes); err != nil {
			return fmt.Errorf("quotation %s: %w", r.ID, err)
		}
		out = append(out, r)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("find quotations: %w", err)
	}
	return out, nil
}

// UpdateQuotation writes the touched fields of one quotation row. lead_time
// is always written; quote and makes only when the patch touched them.
func (s *Store) UpdateQuotation(ctx context.Context, id string, p ledger.QuotationPatch) error {
	sets := []string{"lead_time = ?"}
	args := []any{p.LeadTime}
	if p.QuoteSet {
		sets = append(sets, "quote = ?")
		args = append(args, nullDecimal(p.QuoteValue()))
	}
	if p.MakesSet {
		makes, err := marshalMakes(p.Makes)
		if err != nil {
			return fmt.Errorf("update quotation %s: %w", id, err)
		}
		sets = append(sets, "makes = ?")
		args = append(args, makes)
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		"UPDATE quotation_requests SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("update quotation %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update quotation %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("update quotation %s: %w", id, ErrNotFound)
	}
	return nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*d)
}

// InsertOrder stores a purchase or service order.
func (s *Store) InsertOrder(ctx context.Context, o ledger.Order) error {
	lines, err := marshalList(o.Lines)
	if err != nil {
		return fmt.Errorf("insert order %s: %w", o.ID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO orders (id, kind, project, vendor, gst, order_list)
		VALUES (?, ?, ?, ?, ?, ?)
	`, o.ID, string(o.Kind), o.Project, string(o.Vendor), o.TaxApplicable, lines)
	if err != nil {
		return fmt.Errorf("insert order %s: %w", o.ID, err)
	}
	return nil
}

// FindOrders returns the orders matching filter.
func (s *Store) FindOrders(ctx context.Context, filter queryir.Predicate) ([]ledger.Order, error) {
	q := queryir.Select{
		From:   Orders,
		Fields: []string{"id", "kind", "project", "vendor", "gst", "order_list"},
		Filter: filter,
	}
	out := []ledger.Order{}
	err := s.query(ctx, q, func(rows *sql.Rows) error {
		var o ledger.Order
		var kind, vendor, lines string
		if err := rows.Scan(&o.ID, &kind, &o.Project, &vendor, &o.TaxApplicable, &lines); err != nil {
			return fmt.Errorf("scan order: %w", err)
		}
		o.Kind = ledger.OrderKind(kind)
		o.Vendor = ledger.VendorID(vendor)
		var err error
		if o.Lines, err = unmarshalList[ledger.OrderLine](lines); err != nil {
			return fmt.Errorf("order %s: %w", o.ID, err)
		}
		out = append(out, o)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("find orders: %w", err)
	}
	return out, nil
}

// GetOrder returns one order.
func (s *Store) GetOrder(ctx context.Context, id string) (ledger.Order, error) {
	found, err := s.FindOrders(ctx, byID(id))
	if err != nil {
		return ledger.Order{}, err
	}
	if len(found) == 0 {
		return ledger.Order{}, fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	return found[0], nil
}

// InsertPayment stores a payment, assigning an id when p.ID is empty.
// Returns the stored id.
func (s *Store) InsertPayment(ctx context.Context, p ledger.Payment) (string, error) {
	if p.ID == "" {
		p.ID = s.ids.Generate()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payments
		(id, document_type, document_name, project, vendor, amount, tds, utr, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.DocumentType, p.DocumentName, p.Project, string(p.Vendor), p.Amount, p.TDS, p.UTR, p.Status)
	if err != nil {
		return "", fmt.Errorf("insert payment %s: %w", p.ID, err)
	}
	return p.ID, nil
}

// FindPayments returns the payments matching filter.
func (s *Store) FindPayments(ctx context.Context, filter queryir.Predicate) ([]ledger.Payment, error) {
	q := queryir.Select{
		From:   Payments,
		Fields: []string{"id", "document_type", "document_name", "project", "vendor", "amount", "tds", "utr", "status"},
		Filter: filter,
	}
	out := []ledger.Payment{}
	err := s.query(ctx, q, func(rows *sql.Rows) error {
		var p ledger.Payment
		var vendor string
		if err := rows.Scan(&p.ID, &p.DocumentType, &p.DocumentName, &p.Project, &vendor,
			&p.Amount, &p.TDS, &p.UTR, &p.Status); err != nil {
			return fmt.Errorf("scan payment: %w", err)
		}
		p.Vendor = ledger.VendorID(vendor)
		out = append(out, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("find payments: %w", err)
	}
	return out, nil
}
