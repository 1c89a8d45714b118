package sheet

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Matrix sheets put the column headers in row 1 and the row headers in
// column A, so matrix cell (i, j) lives at column j+2, row i+2.
const (
	HeaderRow    = 1
	HeaderCol    = 1
	FirstDataRow = 2
	FirstDataCol = 2
)

// Spreadsheet limits that formulas must respect.
const (
	MaxFunctionArgs = 255
	MaxFormulaLen   = 8192
)

// FormulaTable is a square table of formulas indexed by roster keys. An
// empty cell means "no formula".
type FormulaTable struct {
	Keys   []string
	Labels []string
	// Cells[i][j] holds a formula without the leading '='.
	Cells [][]string
}

// NewFormulaTable returns an empty table over keys.
func NewFormulaTable(keys, labels []string) FormulaTable {
	cells := make([][]string, len(keys))
	for i := range cells {
		cells[i] = make([]string, len(keys))
	}
	return FormulaTable{Keys: keys, Labels: labels, Cells: cells}
}

// CellName returns the A1 name of matrix cell (i, j).
func CellName(i, j int) string {
	name, err := excelize.CoordinatesToCellName(j+FirstDataCol, i+FirstDataRow)
	if err != nil {
		panic(fmt.Sprintf("sheet: invalid matrix coordinates (%d, %d): %v", i, j, err))
	}
	return name
}

// RangeName returns the A1 range covering matrix rows i0..i1 and columns
// j0..j1 inclusive. A single cell yields its plain name.
func RangeName(i0, j0, i1, j1 int) string {
	if i0 == i1 && j0 == j1 {
		return CellName(i0, j0)
	}
	return CellName(i0, j0) + ":" + CellName(i1, j1)
}

// QuoteSheet quotes a sheet name for use in a formula reference.
func QuoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// CellRef returns a formula reference to matrix cell (i, j) of sheet name.
func CellRef(name string, i, j int) string {
	return QuoteSheet(name) + "!" + CellName(i, j)
}

// SpanRef returns a 3D reference to matrix cell (i, j) across every sheet
// from first to last in workbook order.
func SpanRef(first, last string, i, j int) string {
	return QuoteSheet(first+":"+last) + "!" + CellName(i, j)
}

// MeanFormula returns a formula for the mean of refs that evaluates to an
// empty string when none of them holds a number. Argument lists longer
// than a spreadsheet function accepts are split into partial sums.
func MeanFormula(refs []string) string {
	if len(refs) == 0 {
		return ""
	}
	if len(refs) <= MaxFunctionArgs {
		return `IFERROR(AVERAGE(` + strings.Join(refs, ",") + `),"")`
	}
	var sums, counts []string
	for start := 0; start < len(refs); start += MaxFunctionArgs {
		end := min(start+MaxFunctionArgs, len(refs))
		chunk := strings.Join(refs[start:end], ",")
		sums = append(sums, "SUM("+chunk+")")
		counts = append(counts, "COUNT("+chunk+")")
	}
	return `IFERROR((` + strings.Join(sums, "+") + `)/(` + strings.Join(counts, "+") + `),"")`
}

// Runs groups sorted, distinct indexes into maximal contiguous [lo, hi] runs.
func Runs(indexes []int) [][2]int {
	var runs [][2]int
	for _, idx := range indexes {
		if n := len(runs); n > 0 && runs[n-1][1]+1 == idx {
			runs[n-1][1] = idx
			continue
		}
		runs = append(runs, [2]int{idx, idx})
	}
	return runs
}
