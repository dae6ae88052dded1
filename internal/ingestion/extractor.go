package ingestion

import (
	"fmt"
	"strings"
	"time"

	"github.com/avolkov/spimexfeed/internal/domain/models"
)

// Markers and layout of the SPIMEX "TRADE_SUMMARY" sheet. The sheet is
// semi-structured: the data region is located by content, not by position.
const (
	// anchorMarker starts the metric-ton section; rows of interest begin
	// headerOffset rows below it.
	anchorMarker = "Единица измерения: Метрическая тонна"
	headerOffset = 3

	// Subtotal rows carry one of these in the product-code column.
	totalMarker        = "Итого:"
	sectionTotalMarker = "Итого по секции:"

	// Column indices within the sheet.
	colCode   = 1
	colName   = 2
	colBasis  = 3
	colVolume = 4
	colTotal  = 5
	colCount  = 14
)

// artifactDateLayout is the YYYYMMDD date embedded in report filenames.
const artifactDateLayout = "20060102"

// RowError records a row that could not be parsed. Row failures never fail
// the file; they are collected so the caller can log them.
type RowError struct {
	Row int // zero-based row index within the sheet
	Err error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

// Extract walks one report table and returns the trade records of its data
// region, with tradeDate attached to every record.
//
// The data region starts headerOffset rows below the first row whose marker
// column contains anchorMarker and runs to the end of the table. A table
// without the anchor yields no records and no error. Subtotal rows, rows
// with a blank or dash product code or contract count, and rows whose count
// is zero or malformed are skipped; per-row parse failures are reported in
// the second return value and never abort the pass.
func Extract(table Table, tradeDate time.Time) ([]models.TradeRecord, []RowError) {
	anchor := findAnchor(table)
	if anchor < 0 {
		return nil, nil
	}

	var (
		records []models.TradeRecord
		rowErrs []RowError
	)

	for i := anchor + headerOffset; i < len(table); i++ {
		code := table.Cell(i, colCode)

		if isSubtotal(code) {
			continue
		}
		if code.IsBlank() || table.Cell(i, colCount).IsBlank() {
			continue
		}

		rec, err := extractRow(table, i, tradeDate)
		if err != nil {
			rowErrs = append(rowErrs, RowError{Row: i, Err: err})
			continue
		}
		if rec == nil {
			// count <= 0: not a trade row, not an error either
			continue
		}
		records = append(records, *rec)
	}

	return records, rowErrs
}

// extractRow converts one data row into a record. It returns (nil, nil) for
// rows with a non-positive contract count.
func extractRow(table Table, row int, tradeDate time.Time) (*models.TradeRecord, error) {
	count, err := table.Cell(row, colCount).AsCount()
	if err != nil {
		return nil, fmt.Errorf("contract count: %w", err)
	}
	if count <= 0 {
		return nil, nil
	}

	volume, err := table.Cell(row, colVolume).AsDecimal()
	if err != nil {
		return nil, fmt.Errorf("volume: %w", err)
	}
	total, err := table.Cell(row, colTotal).AsDecimal()
	if err != nil {
		return nil, fmt.Errorf("total: %w", err)
	}

	code := table.Cell(row, colCode).AsString()
	parts := models.DeriveProductParts(code)

	return &models.TradeRecord{
		ExchangeProductID:   code,
		ExchangeProductName: table.Cell(row, colName).AsString(),
		OilID:               parts.OilID,
		DeliveryBasisID:     parts.DeliveryBasisID,
		DeliveryBasisName:   table.Cell(row, colBasis).AsString(),
		DeliveryTypeID:      parts.DeliveryTypeID,
		Volume:              volume,
		Total:               total,
		Count:               count,
		Date:                tradeDate,
	}, nil
}

// findAnchor returns the index of the first row whose marker column contains
// the unit-of-measure marker, or -1 when the table has no data region.
func findAnchor(table Table) int {
	for i := range table {
		c := table.Cell(i, colCode)
		if c.Kind == CellText && strings.Contains(c.Text, anchorMarker) {
			return i
		}
	}
	return -1
}

func isSubtotal(c Cell) bool {
	if c.Kind != CellText {
		return false
	}
	return strings.Contains(c.Text, totalMarker) || strings.Contains(c.Text, sectionTotalMarker)
}

// TradeDateFromArtifact parses the trading date out of a report artifact
// name: the first 8 characters of the last underscore-delimited token, as
// YYYYMMDD. For "oil_xls_20250722162000.xls" that is 2025-07-22.
func TradeDateFromArtifact(name string) (time.Time, error) {
	parts := strings.Split(name, "_")
	token := parts[len(parts)-1]
	if len(token) < len(artifactDateLayout) {
		return time.Time{}, fmt.Errorf("artifact %q: no date token", name)
	}
	d, err := time.Parse(artifactDateLayout, token[:len(artifactDateLayout)])
	if err != nil {
		return time.Time{}, fmt.Errorf("artifact %q: %w", name, err)
	}
	return d, nil
}
