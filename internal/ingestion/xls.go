package ingestion

import (
	"fmt"
	"strings"

	"github.com/extrame/xls"
)

// tradeSummarySheet is the sheet the exchange publishes the daily summary on.
const tradeSummarySheet = "TRADE_SUMMARY"

// ReadTable opens a legacy .xls report artifact and returns its trade-summary
// sheet as a Table. It prefers the TRADE_SUMMARY sheet and falls back to the
// first sheet when the workbook does not carry that name.
//
// The xls reader surfaces every populated cell as text, so cells become the
// Text variant (or Empty when blank); numeric coercion is deferred to the
// extractor's per-field rules.
func ReadTable(path string) (Table, error) {
	wb, err := xls.Open(path, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}

	sheet := findSheet(wb)
	if sheet == nil {
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}

	table := make(Table, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			table = append(table, nil)
			continue
		}

		cells := make([]Cell, row.LastCol()+1)
		for c := range cells {
			cells[c] = EmptyCell()
		}
		for c := row.FirstCol(); c <= row.LastCol(); c++ {
			if v := row.Col(c); strings.TrimSpace(v) != "" {
				cells[c] = TextCell(v)
			}
		}
		table = append(table, cells)
	}

	return table, nil
}

func findSheet(wb *xls.WorkBook) *xls.WorkSheet {
	for i := 0; i < wb.NumSheets(); i++ {
		if s := wb.GetSheet(i); s != nil && s.Name == tradeSummarySheet {
			return s
		}
	}
	return wb.GetSheet(0)
}
