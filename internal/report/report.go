// Package report assembles the similarity workbook: a students sheet, one
// color-coded matrix sheet per unit that produced a result, and an average
// sheet of cross-sheet formulas.
//
// Results may arrive in any order. The Builder buffers them by enumeration
// slot and only writes a sheet once every earlier slot is resolved, so the
// sheet names and their order never depend on worker scheduling.
package report

import (
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/richardbrinkman/plagiarism/internal/sheet"
)

// Heat map stops applied to every score range.
const (
	LowColor  = "#00FF00"
	MidColor  = "#FFFF00"
	HighColor = "#FF0000"
)

// ScoreFormat is the number format of score cells.
const ScoreFormat = "0.00"

// ErrCompleted is returned by Add after Complete.
var ErrCompleted = errors.New("report: builder already completed")

// Written describes one matrix sheet added to the workbook.
type Written struct {
	Slot   int
	UnitID string
	Sheet  string
}

// Builder writes a workbook incrementally. It is not safe for concurrent
// use: a single goroutine owns it for the whole run.
type Builder struct {
	f      *excelize.File
	units  []string
	namer  *sheet.Namer
	sheets []string

	results  map[int]*sheet.Matrix
	resolved map[int]bool
	next     int

	scoreStyle  int
	headerStyle int
	completed   bool
}

// NewBuilder returns a Builder for the enumerated units and writes the
// students sheet from roster.
func NewBuilder(unitIDs []string, roster *sheet.Roster) (*Builder, error) {
	f := excelize.NewFile()
	b := &Builder{
		f:        f,
		units:    unitIDs,
		namer:    sheet.NewNamer(),
		results:  make(map[int]*sheet.Matrix),
		resolved: make(map[int]bool),
	}

	format := ScoreFormat
	var err error
	if b.scoreStyle, err = f.NewStyle(&excelize.Style{CustomNumFmt: &format}); err != nil {
		return nil, fmt.Errorf("report: score style: %w", err)
	}
	if b.headerStyle, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err != nil {
		return nil, fmt.Errorf("report: header style: %w", err)
	}

	if err := f.SetSheetName(f.GetSheetName(0), sheet.StudentsSheet); err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	if err := b.writeRoster(roster); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Builder) writeRoster(r *sheet.Roster) error {
	name := sheet.StudentsSheet
	header := append([]string{r.KeyName}, r.Columns...)
	if err := b.f.SetSheetRow(name, "A1", &header); err != nil {
		return fmt.Errorf("report: students header: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(header), 1)
	if err := b.f.SetCellStyle(name, "A1", last, b.headerStyle); err != nil {
		return fmt.Errorf("report: students header: %w", err)
	}
	for i, key := range r.Keys() {
		row := append([]string{key}, r.Row(key)...)
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := b.f.SetSheetRow(name, cell, &row); err != nil {
			return fmt.Errorf("report: student %s: %w", key, err)
		}
	}
	return nil
}

// Add records the result of slot. A nil matrix marks the unit as failed;
// it gets no sheet. Add returns the sheets written by this call, which may
// include buffered results of later slots.
func (b *Builder) Add(slot int, m *sheet.Matrix) ([]Written, error) {
	if b.completed {
		return nil, ErrCompleted
	}
	if slot < 0 || slot >= len(b.units) {
		return nil, fmt.Errorf("report: slot %d out of range [0, %d)", slot, len(b.units))
	}
	if b.resolved[slot] {
		return nil, fmt.Errorf("report: slot %d added twice", slot)
	}
	b.resolved[slot] = true
	if m != nil {
		b.results[slot] = m
	}
	return b.flush()
}

// Complete resolves every slot that never reported as failed and writes
// the remaining buffered sheets.
func (b *Builder) Complete() ([]Written, error) {
	if b.completed {
		return nil, nil
	}
	for slot := range b.units {
		b.resolved[slot] = true
	}
	written, err := b.flush()
	b.completed = true
	return written, err
}

func (b *Builder) flush() ([]Written, error) {
	var written []Written
	for b.next < len(b.units) && b.resolved[b.next] {
		slot := b.next
		b.next++
		m, ok := b.results[slot]
		if !ok {
			continue
		}
		delete(b.results, slot)
		name := b.namer.Next(b.units[slot])
		if err := b.writeMatrix(name, m); err != nil {
			return written, err
		}
		b.sheets = append(b.sheets, name)
		written = append(written, Written{Slot: slot, UnitID: b.units[slot], Sheet: name})
	}
	return written, nil
}

// Sheets returns the names of the matrix sheets in workbook order.
func (b *Builder) Sheets() []string {
	return append([]string(nil), b.sheets...)
}

func (b *Builder) writeMatrix(name string, m *sheet.Matrix) error {
	if _, err := b.f.NewSheet(name); err != nil {
		return fmt.Errorf("report: sheet %s: %w", name, err)
	}
	if err := b.writeHeaders(name, m.Labels()); err != nil {
		return err
	}
	n := m.Len()
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v, ok := m.Score(i, j)
			if !ok {
				continue
			}
			if err := b.f.SetCellFloat(name, sheet.CellName(i, j), v, -1, 64); err != nil {
				return fmt.Errorf("report: sheet %s: %w", name, err)
			}
		}
	}
	return b.formatScores(name, n)
}

// WriteAverage appends the average sheet.
func (b *Builder) WriteAverage(ft sheet.FormulaTable) error {
	name := sheet.AverageSheet
	if _, err := b.f.NewSheet(name); err != nil {
		return fmt.Errorf("report: average sheet: %w", err)
	}
	if err := b.writeHeaders(name, ft.Labels); err != nil {
		return err
	}
	for i, row := range ft.Cells {
		for j, formula := range row {
			if formula == "" {
				continue
			}
			if err := b.f.SetCellFormula(name, sheet.CellName(i, j), formula); err != nil {
				return fmt.Errorf("report: average (%d, %d): %w", i, j, err)
			}
		}
	}
	return b.formatScores(name, len(ft.Keys))
}

// writeHeaders puts labels along row 1 and column A and freezes both.
func (b *Builder) writeHeaders(name string, labels []string) error {
	for i, label := range labels {
		col, _ := excelize.CoordinatesToCellName(i+sheet.FirstDataCol, sheet.HeaderRow)
		row, _ := excelize.CoordinatesToCellName(sheet.HeaderCol, i+sheet.FirstDataRow)
		if err := b.f.SetCellStr(name, col, label); err != nil {
			return fmt.Errorf("report: sheet %s: %w", name, err)
		}
		if err := b.f.SetCellStr(name, row, label); err != nil {
			return fmt.Errorf("report: sheet %s: %w", name, err)
		}
	}
	if len(labels) == 0 {
		return nil
	}
	if err := b.f.SetCellStyle(name, "B1", lastColumnHeader(len(labels)), b.headerStyle); err != nil {
		return fmt.Errorf("report: sheet %s: %w", name, err)
	}
	if err := b.f.SetCellStyle(name, "A2", lastRowHeader(len(labels)), b.headerStyle); err != nil {
		return fmt.Errorf("report: sheet %s: %w", name, err)
	}
	return b.f.SetPanes(name, &excelize.Panes{
		Freeze:      true,
		XSplit:      1,
		YSplit:      1,
		TopLeftCell: "B2",
		ActivePane:  "bottomRight",
		Selection:   []excelize.Selection{{SQRef: "B2", ActiveCell: "B2", Pane: "bottomRight"}},
	})
}

func lastColumnHeader(n int) string {
	cell, _ := excelize.CoordinatesToCellName(n-1+sheet.FirstDataCol, sheet.HeaderRow)
	return cell
}

func lastRowHeader(n int) string {
	cell, _ := excelize.CoordinatesToCellName(sheet.HeaderCol, n-1+sheet.FirstDataRow)
	return cell
}

// formatScores applies the number format and the green-yellow-red scale
// to the n×n score block.
func (b *Builder) formatScores(name string, n int) error {
	if n == 0 {
		return nil
	}
	first, last := sheet.CellName(0, 0), sheet.CellName(n-1, n-1)
	if err := b.f.SetCellStyle(name, first, last, b.scoreStyle); err != nil {
		return fmt.Errorf("report: sheet %s: %w", name, err)
	}
	err := b.f.SetConditionalFormat(name, first+":"+last, []excelize.ConditionalFormatOptions{{
		Type:     "3_color_scale",
		Criteria: "=",
		MinType:  "num",
		MidType:  "num",
		MaxType:  "num",
		MinValue: "0",
		MidValue: "0.5",
		MaxValue: "1",
		MinColor: LowColor,
		MidColor: MidColor,
		MaxColor: HighColor,
	}})
	if err != nil {
		return fmt.Errorf("report: sheet %s: heat map: %w", name, err)
	}
	return nil
}

// WriteTo writes the workbook to w.
func (b *Builder) WriteTo(w io.Writer) (int64, error) {
	b.f.SetActiveSheet(0)
	return b.f.WriteTo(w)
}

// Save writes the workbook to path.
func (b *Builder) Save(path string) error {
	b.f.SetActiveSheet(0)
	if err := b.f.SaveAs(path); err != nil {
		return fmt.Errorf("report: save %s: %w", path, err)
	}
	return nil
}

// Close releases the workbook's temporary resources.
func (b *Builder) Close() error {
	return b.f.Close()
}
