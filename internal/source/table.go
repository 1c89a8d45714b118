package source

import (
	"archive/zip"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/gobwas/glob"
	"github.com/xuri/excelize/v2"

	"github.com/richardbrinkman/plagiarism/internal/convert"
	apperrors "github.com/richardbrinkman/plagiarism/internal/errors"
)

// table is a header plus rows, each row padded or cut to the header width.
type table struct {
	header []string
	rows   [][]string
	index  map[string]int
}

func newTable(records [][]string) (*table, error) {
	if len(records) == 0 {
		return nil, errors.New("export has no header row")
	}
	t := &table{index: make(map[string]int)}
	for i, h := range records[0] {
		h = strings.TrimSpace(h)
		t.header = append(t.header, h)
		if _, dup := t.index[h]; !dup && h != "" {
			t.index[h] = i
		}
	}
	width := len(t.header)
	for _, rec := range records[1:] {
		if isBlank(rec) {
			continue
		}
		row := make([]string, width)
		copy(row, rec)
		t.rows = append(t.rows, row)
	}
	return t, nil
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func (t *table) has(name string) bool {
	_, ok := t.index[name]
	return ok
}

func (t *table) col(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

// match returns the indexes of header cells matched by g, in header order.
func (t *table) match(g glob.Glob) []int {
	var out []int
	for i, h := range t.header {
		if h != "" && g.Match(h) {
			out = append(out, i)
		}
	}
	return out
}

// readCSV reads a delimited text export. The delimiter is sniffed from the
// header line. Exports that terminate every data row with an extra
// delimiter are tolerated: surplus trailing fields are dropped.
func readCSV(path string) (*table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.InputError{Path: path, Cause: err}
	}
	text, err := convert.DecodeText(raw)
	if err != nil {
		return nil, apperrors.InputError{Path: path, Cause: err}
	}

	r := csv.NewReader(strings.NewReader(text))
	r.Comma = sniffDelimiter(text)
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	var records [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.InputError{Path: path, Cause: err}
		}
		records = append(records, rec)
	}
	t, err := newTable(records)
	if err != nil {
		return nil, apperrors.InputError{Path: path, Cause: err}
	}
	return t, nil
}

// sniffDelimiter picks the most frequent of ';', ',' and tab on the first
// line, ignoring quoted sections. Comma wins ties.
func sniffDelimiter(text string) rune {
	line, _, _ := strings.Cut(text, "\n")
	counts := map[rune]int{}
	quoted := false
	for _, c := range line {
		switch c {
		case '"':
			quoted = !quoted
		case ';', ',', '\t':
			if !quoted {
				counts[c]++
			}
		}
	}
	best := ','
	for _, c := range []rune{';', '\t'} {
		if counts[c] > counts[best] {
			best = c
		}
	}
	return best
}

// readXLSX reads the first worksheet of a workbook.
func readXLSX(path string) (*table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperrors.InputError{Path: path, Cause: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperrors.InputError{Path: path, Cause: errors.New("workbook has no sheets")}
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, apperrors.InputError{Path: path, Cause: err}
	}
	t, err := newTable(rows)
	if err != nil {
		return nil, apperrors.InputError{Path: path, Cause: err}
	}
	return t, nil
}

// looksLikeXLSX reports whether a generic zip carries a workbook part.
func looksLikeXLSX(path string) bool {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return false
	}
	defer zr.Close()
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, "xl/") {
			return true
		}
	}
	return false
}
