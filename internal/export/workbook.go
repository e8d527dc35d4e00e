package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/roach88/quotedesk/internal/ledger"
)

// Sheet names of the RFQ workbook.
const (
	SheetRFQ     = "RFQ"
	SheetVendors = "Vendors"
)

var itemHeaders = []string{"Item", "Name", "Category", "Quantity", "Unit"}

// Workbook builds the RFQ workbook of a request.
//
// The RFQ sheet has one row per item and two columns per selected vendor
// (rate and make), followed by the winning vendor. Unpriced cells stay blank.
// The Vendors sheet lists the selected vendors.
func Workbook(sb ledger.SentBack, rfq ledger.RFQ, winners map[ledger.ItemID]ledger.VendorID) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetRFQ); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}

	headers := append([]string(nil), itemHeaders...)
	for _, v := range rfq.SelectedVendors {
		headers = append(headers, vendorLabel(v)+" rate", vendorLabel(v)+" make")
	}
	headers = append(headers, "Winner")
	if err := setRow(f, SheetRFQ, 1, toAny(headers)); err != nil {
		return nil, err
	}
	if err := styleRow(f, SheetRFQ, 1, len(headers), bold); err != nil {
		return nil, err
	}

	for i, it := range sb.Items {
		row := []any{string(it.ID), displayName(it), it.Category, it.Quantity.InexactFloat64(), it.Unit}
		for _, v := range rfq.SelectedVendors {
			q, _ := rfq.Quote(it.ID, v.ID)
			if q.Priced() {
				row = append(row, q.Price.InexactFloat64())
			} else {
				row = append(row, nil)
			}
			row = append(row, q.Make)
		}
		row = append(row, string(winners[it.ID]))
		if err := setRow(f, SheetRFQ, i+2, row); err != nil {
			return nil, err
		}
	}

	if _, err := f.NewSheet(SheetVendors); err != nil {
		return nil, fmt.Errorf("create vendor sheet: %w", err)
	}
	vh := []any{"Vendor", "Name", "Type", "City", "State"}
	if err := setRow(f, SheetVendors, 1, vh); err != nil {
		return nil, err
	}
	if err := styleRow(f, SheetVendors, 1, len(vh), bold); err != nil {
		return nil, err
	}
	for i, v := range rfq.SelectedVendors {
		if err := setRow(f, SheetVendors, i+2, []any{string(v.ID), v.Name, v.Type, v.City, v.State}); err != nil {
			return nil, err
		}
	}

	if err := f.SetDocProps(&excelize.DocProperties{
		Title:   fmt.Sprintf("RFQ %s", sb.ID),
		Subject: sb.ProcurementRequest,
	}); err != nil {
		return nil, fmt.Errorf("set doc props: %w", err)
	}
	f.SetActiveSheet(0)
	return f, nil
}

// WriteXLSX writes the RFQ workbook to w.
func WriteXLSX(w io.Writer, sb ledger.SentBack, rfq ledger.RFQ, winners map[ledger.ItemID]ledger.VendorID) error {
	f, err := Workbook(sb, rfq, winners)
	if err != nil {
		return fmt.Errorf("build workbook %s: %w", sb.ID, err)
	}
	defer f.Close()
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook %s: %w", sb.ID, err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("%s row %d: %w", sheet, row, err)
	}
	return nil
}

func styleRow(f *excelize.File, sheet string, row, cols, style int) error {
	first, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(cols, row)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, first, last, style)
}

func vendorLabel(v ledger.Vendor) string {
	if v.Name != "" {
		return v.Name
	}
	return string(v.ID)
}

func toAny(s []string) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}
