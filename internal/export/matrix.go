// Package export renders a request's vendor comparison as CSV or as an XLSX
// RFQ workbook.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/jszwec/csvutil"
	"github.com/shopspring/decimal"

	"github.com/roach88/quotedesk/internal/ledger"
)

// Row is one item/vendor cell of the comparison matrix.
type Row struct {
	Item       string `csv:"item" json:"item"`
	Name       string `csv:"name" json:"name,omitempty"`
	Category   string `csv:"category" json:"category,omitempty"`
	Quantity   string `csv:"quantity" json:"quantity,omitempty"`
	Unit       string `csv:"unit" json:"unit,omitempty"`
	Vendor     string `csv:"vendor" json:"vendor"`
	VendorName string `csv:"vendor_name" json:"vendor_name,omitempty"`
	Quote      string `csv:"quote" json:"quote,omitempty"`
	Make       string `csv:"make" json:"make,omitempty"`
	Kind       string `csv:"kind" json:"kind,omitempty"`
	Amount     string `csv:"amount" json:"amount,omitempty"`
	Lowest     bool   `csv:"lowest" json:"lowest,omitempty"`
	Winner     bool   `csv:"winner" json:"winner,omitempty"`
}

// Matrix builds the comparison rows in item order, then selected-vendor order.
// Lowest marks every vendor sharing the item's lowest positive quote.
func Matrix(items []ledger.Item, rfq ledger.RFQ, winners map[ledger.ItemID]ledger.VendorID) []Row {
	rows := make([]Row, 0, len(items)*len(rfq.SelectedVendors))
	for _, it := range items {
		low, hasLow := lowest(it.ID, rfq)
		for _, v := range rfq.SelectedVendors {
			q, _ := rfq.Quote(it.ID, v.ID)
			row := Row{
				Item:       string(it.ID),
				Name:       displayName(it),
				Category:   it.Category,
				Quantity:   it.Quantity.String(),
				Unit:       it.Unit,
				Vendor:     string(v.ID),
				VendorName: v.Name,
				Make:       q.Make,
				Kind:       q.Kind().String(),
				Winner:     winners[it.ID] == v.ID,
			}
			if q.Priced() {
				row.Quote = q.Price.StringFixed(2)
				row.Amount = quantityOrOne(it.Quantity).Mul(*q.Price).StringFixed(2)
				row.Lowest = hasLow && q.Price.Equal(low)
			}
			rows = append(rows, row)
		}
	}
	return rows
}

// WriteCSV encodes rows with a header line.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	if len(rows) == 0 {
		if err := enc.EncodeHeader(Row{}); err != nil {
			return fmt.Errorf("encode csv header: %w", err)
		}
	}
	for _, r := range rows {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode csv row %s/%s: %w", r.Item, r.Vendor, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// ReadCSV decodes rows written by WriteCSV.
func ReadCSV(r io.Reader) ([]Row, error) {
	dec, err := csvutil.NewDecoder(csv.NewReader(r))
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to create CSV decoder: %w", err)
	}
	var rows []Row
	if err := dec.Decode(&rows); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decode CSV: %w", err)
	}
	return rows, nil
}

func lowest(item ledger.ItemID, rfq ledger.RFQ) (decimal.Decimal, bool) {
	var low decimal.Decimal
	found := false
	for _, v := range rfq.SelectedVendors {
		q, _ := rfq.Quote(item, v.ID)
		if !q.Priced() {
			continue
		}
		if !found || q.Price.LessThan(low) {
			low = *q.Price
			found = true
		}
	}
	return low, found
}

func displayName(it ledger.Item) string {
	if it.Name != "" {
		return it.Name
	}
	return string(it.ID)
}

func quantityOrOne(q decimal.Decimal) decimal.Decimal {
	if q.IsZero() {
		return decimal.NewFromInt(1)
	}
	return q
}
