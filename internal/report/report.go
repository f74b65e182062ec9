// Package report writes sell cycle results to an xlsx workbook.
package report

import (
	"github.com/xuri/excelize/v2"
	"golang.org/x/xerrors"

	"csgo-seller/internal/models"
)

const (
	SalesSheet   = "Sales"
	SummarySheet = "Summary"
)

var salesHeader = []interface{}{"Listing ID", "Item", "Class ID", "Instance ID", "Price"}

// WriteSellReport saves r to path, replacing any existing file.
// Prices are written in major units.
func WriteSellReport(path string, r *models.SellReport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SalesSheet); err != nil {
		return xerrors.Errorf("renaming sheet: %w", err)
	}
	if err := f.SetSheetRow(SalesSheet, "A1", &salesHeader); err != nil {
		return xerrors.Errorf("writing header: %w", err)
	}

	for i, item := range r.Listed {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			item.ListingID,
			item.MarketHashName,
			item.ClassID,
			item.InstanceID,
			float64(item.SellPrice) / 100,
		}
		if err := f.SetSheetRow(SalesSheet, cell, &row); err != nil {
			return xerrors.Errorf("writing row %d: %w", i+2, err)
		}
	}

	if _, err := f.NewSheet(SummarySheet); err != nil {
		return xerrors.Errorf("creating summary sheet: %w", err)
	}
	summary := [][]interface{}{
		{"Started", r.StartedAt.Format("2006-01-02 15:04:05")},
		{"Finished", r.FinishedAt.Format("2006-01-02 15:04:05")},
		{"Items", r.Considered},
		{"Sold", r.Count()},
		{"Total", float64(r.TotalCost) / 100},
	}
	for i := range summary {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SummarySheet, cell, &summary[i]); err != nil {
			return xerrors.Errorf("writing summary: %w", err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return xerrors.Errorf("saving %s: %w", path, err)
	}
	return nil
}
