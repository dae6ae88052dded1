package ingestion

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// CellKind discriminates the value held by a Cell.
type CellKind int

const (
	CellEmpty CellKind = iota
	CellNumber
	CellText
)

// Cell is one spreadsheet cell as a tagged variant: empty, numeric, or text.
// Coercion to domain field types happens through the As* methods so every
// field has one explicit conversion rule instead of ad hoc type switches.
type Cell struct {
	Kind   CellKind
	Number decimal.Decimal
	Text   string
}

// EmptyCell returns the empty variant.
func EmptyCell() Cell { return Cell{Kind: CellEmpty} }

// NumberCell wraps a numeric value.
func NumberCell(d decimal.Decimal) Cell { return Cell{Kind: CellNumber, Number: d} }

// TextCell wraps a text value.
func TextCell(s string) Cell { return Cell{Kind: CellText, Text: s} }

// IsBlank reports whether the cell is empty, whitespace-only text, or the
// placeholder dash the reports use for absent values.
func (c Cell) IsBlank() bool {
	switch c.Kind {
	case CellEmpty:
		return true
	case CellText:
		s := strings.TrimSpace(c.Text)
		return s == "" || s == "-"
	default:
		return false
	}
}

// AsString returns the trimmed textual value. Numbers render in plain
// decimal notation; empty cells yield "".
func (c Cell) AsString() string {
	switch c.Kind {
	case CellNumber:
		return c.Number.String()
	case CellText:
		return strings.TrimSpace(c.Text)
	default:
		return ""
	}
}

// AsCount coerces the cell to a contract count: a non-negative integer.
// Numeric cells must hold an integral value. Text cells may render the count
// either as a plain integer or in decimal notation ("7.0"), depending on how
// the workbook stored it; both are accepted as long as the value is integral.
// Empty cells coerce to zero.
func (c Cell) AsCount() (int, error) {
	switch c.Kind {
	case CellEmpty:
		return 0, nil
	case CellNumber:
		if !c.Number.IsInteger() {
			return 0, fmt.Errorf("count is not integral: %s", c.Number)
		}
		return int(c.Number.IntPart()), nil
	default:
		s := strings.TrimSpace(c.Text)
		if n, err := strconv.Atoi(s); err == nil {
			return n, nil
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return 0, fmt.Errorf("count %q: %w", c.Text, err)
		}
		if !d.IsInteger() {
			return 0, fmt.Errorf("count %q is not integral", c.Text)
		}
		return int(d.IntPart()), nil
	}
}

// AsDecimal coerces the cell to a decimal amount. Text cells may embed
// thousands-separator spaces (regular or non-breaking), which are stripped
// before parsing. Empty cells coerce to zero.
func (c Cell) AsDecimal() (decimal.Decimal, error) {
	switch c.Kind {
	case CellEmpty:
		return decimal.Zero, nil
	case CellNumber:
		return c.Number, nil
	default:
		s := strings.TrimSpace(c.Text)
		if s == "" {
			return decimal.Zero, nil
		}
		s = strings.ReplaceAll(s, " ", "")
		s = strings.ReplaceAll(s, " ", "")
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, fmt.Errorf("amount %q: %w", c.Text, err)
		}
		return d, nil
	}
}

// Table is the in-memory form of one report sheet: rows of cells in source
// order. Rows may have different lengths; out-of-range cells read as empty.
type Table [][]Cell

// Cell returns the cell at (row, col), or the empty cell when either index
// is out of range.
func (t Table) Cell(row, col int) Cell {
	if row < 0 || row >= len(t) {
		return EmptyCell()
	}
	r := t[row]
	if col < 0 || col >= len(r) {
		return EmptyCell()
	}
	return r[col]
}
