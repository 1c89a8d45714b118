package source

import (
	"context"
	"iter"
	"slices"
	"strconv"
	"strings"

	apperrors "github.com/richardbrinkman/plagiarism/internal/errors"
	"github.com/richardbrinkman/plagiarism/internal/logging"
	"github.com/richardbrinkman/plagiarism/internal/sheet"
)

// tabularSource serves both tabular exports. Every unit covers the whole
// roster in roster order, so every unit sheet shares one cell layout.
type tabularSource struct {
	kind    Kind
	roster  *sheet.Roster
	units   []string
	answers []map[string]string
}

func (s *tabularSource) Kind() Kind                { return s.kind }
func (s *tabularSource) Mode() Mode                { return PerUnit }
func (s *tabularSource) UnitIDs() []string         { return slices.Clone(s.units) }
func (s *tabularSource) StudentTab() *sheet.Roster { return s.roster }
func (s *tabularSource) Close() error              { return nil }

func (s *tabularSource) Jobs() iter.Seq[Job] {
	return func(yield func(Job) bool) {
		keys := s.roster.Keys()
		for u, unitID := range s.units {
			answers := s.answers[u]
			entries := make([]Entry, len(keys))
			for i, key := range keys {
				text := answers[key]
				entries[i] = Entry{
					Key:       key,
					StudentID: key,
					Name:      key,
					Label:     s.roster.Display(key),
					Load: func(context.Context) (string, error) {
						if strings.TrimSpace(text) == "" {
							return "", ErrNoText
						}
						return text, nil
					},
				}
			}
			if !yield(Job{UnitID: unitID, Entries: entries}) {
				return
			}
		}
	}
}

// AverageTab averages cell (i, j) over every given sheet. All unit sheets
// are contiguous in the workbook, so a formula that would grow too long
// falls back to a 3D reference spanning the first to the last sheet.
func (s *tabularSource) AverageTab(sheetNames []string) sheet.FormulaTable {
	keys := s.roster.Keys()
	ft := sheet.NewFormulaTable(keys, s.roster.Labels())
	if len(sheetNames) == 0 {
		return ft
	}
	refs := make([]string, len(sheetNames))
	for i := range keys {
		for j := range keys {
			if i == j {
				continue
			}
			for k, name := range sheetNames {
				refs[k] = sheet.CellRef(name, i, j)
			}
			f := sheet.MeanFormula(refs)
			if len(f) >= sheet.MaxFormulaLen {
				f = `IFERROR(AVERAGE(` + sheet.SpanRef(sheetNames[0], sheetNames[len(sheetNames)-1], i, j) + `),"")`
			}
			ft.Cells[i][j] = f
		}
	}
	return ft
}

// rosterFrom builds the roster columns selected by the roster glob.
func rosterFrom(t *table, keyName string, cols Columns) (*sheet.Roster, []int) {
	attrs := cols.roster
	var idx []int
	var names []string
	for _, i := range t.match(attrs) {
		if t.header[i] == keyName {
			continue
		}
		idx = append(idx, i)
		names = append(names, t.header[i])
	}
	return sheet.NewRoster(keyName, names...), idx
}

func pick(row []string, idx []int) []string {
	out := make([]string, len(idx))
	for k, i := range idx {
		out[k] = strings.TrimSpace(row[i])
	}
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// Row-per-candidate export
// ─────────────────────────────────────────────────────────────────────────────

func newCandidateSource(t *table, cols Columns, log logging.Logger) (*tabularSource, error) {
	cc := cols.Candidate
	keyCol, ok := t.col(cc.Reference)
	if !ok {
		return nil, apperrors.MissingColumnError{Column: cc.Reference, Variant: KindCandidate.String()}
	}
	gradeCol, hasGrade := t.col(cc.Grade)

	var rows [][]string
	for n, row := range t.rows {
		if hasGrade && isInvalidGrade(row[gradeCol], cc.InvalidMarkers) {
			log.Debug("skipping candidate with invalid grade", logging.Int("row", n+2))
			continue
		}
		rows = append(rows, row)
	}

	roster, attrIdx := rosterFrom(t, cc.Reference, cols)
	keyed := make([][]string, 0, len(rows))
	for n, row := range rows {
		key := strings.TrimSpace(row[keyCol])
		if key == "" {
			log.Warn("skipping candidate without reference", logging.Int("row", n+2))
			continue
		}
		if !roster.Add(key, pick(row, attrIdx)...) {
			log.Warn("skipping duplicate candidate", logging.String("reference", key))
			continue
		}
		keyed = append(keyed, row)
	}

	src := &tabularSource{kind: KindCandidate, roster: roster}
	for _, a := range t.match(cc.answers) {
		header := t.header[a]
		src.units = append(src.units, unitName(t, keyed, header, cc))
		answers := make(map[string]string, len(keyed))
		for _, row := range keyed {
			answers[strings.TrimSpace(row[keyCol])] = row[a]
		}
		src.answers = append(src.answers, answers)
	}
	return src, nil
}

// unitName returns the first non-empty value of the name column paired with
// an answer column, or the answer header itself.
func unitName(t *table, rows [][]string, header string, cc CandidateColumns) string {
	if !strings.HasPrefix(header, cc.AnswerPrefix) {
		return header
	}
	nameCol, ok := t.col(cc.NamePrefix + strings.TrimPrefix(header, cc.AnswerPrefix))
	if !ok {
		return header
	}
	for _, row := range rows {
		if v := strings.TrimSpace(row[nameCol]); v != "" {
			return v
		}
	}
	return header
}

func isInvalidGrade(v string, markers []string) bool {
	v = strings.TrimSpace(v)
	for _, m := range markers {
		if strings.EqualFold(v, m) {
			return true
		}
	}
	return false
}

// ─────────────────────────────────────────────────────────────────────────────
// Row-per-(candidate, question) export
// ─────────────────────────────────────────────────────────────────────────────

func newQuestionSource(t *table, cols Columns, log logging.Logger) (*tabularSource, error) {
	qc := cols.Question
	keyCol, ok := t.col(qc.StudentNumber)
	if !ok {
		return nil, apperrors.MissingColumnError{Column: qc.StudentNumber, Variant: KindQuestion.String()}
	}
	questionCol, _ := t.col(qc.Question)
	typeCol, _ := t.col(qc.QuestionType)
	openCol, hasOpen := t.col(qc.OpenAnswer)
	choiceCol, hasChoice := t.col(qc.ChoiceAnswer)
	if !hasOpen && !hasChoice {
		return nil, apperrors.MissingColumnError{Column: qc.OpenAnswer, Variant: KindQuestion.String()}
	}
	invalidCol, hasInvalid := t.col(qc.InvalidAttempts)

	roster, attrIdx := rosterFrom(t, qc.StudentNumber, cols)
	src := &tabularSource{kind: KindQuestion, roster: roster}
	unitIndex := map[string]int{}
	answerCol := map[string]int{}

	for n, row := range t.rows {
		if hasInvalid && hasInvalidAttempts(row[invalidCol]) {
			log.Debug("skipping answer with invalid attempts", logging.Int("row", n+2))
			continue
		}
		key := strings.TrimSpace(row[keyCol])
		question := strings.TrimSpace(row[questionCol])
		if key == "" || question == "" {
			log.Warn("skipping row without student number or question", logging.Int("row", n+2))
			continue
		}
		roster.Add(key, pick(row, attrIdx)...)

		u, seen := unitIndex[question]
		if !seen {
			u = len(src.units)
			unitIndex[question] = u
			src.units = append(src.units, question)
			src.answers = append(src.answers, map[string]string{})
			answerCol[question] = chooseAnswerColumn(row[typeCol], qc.OpenTypes, openCol, hasOpen, choiceCol, hasChoice)
		}
		if _, dup := src.answers[u][key]; dup {
			continue
		}
		if c := answerCol[question]; c >= 0 {
			src.answers[u][key] = row[c]
		}
	}
	return src, nil
}

// chooseAnswerColumn returns the open-text column for open question types
// and the multiple-choice column otherwise, or -1 when the export lacks it.
func chooseAnswerColumn(qtype string, openTypes []string, openCol int, hasOpen bool, choiceCol int, hasChoice bool) int {
	open := false
	qtype = strings.TrimSpace(qtype)
	for _, t := range openTypes {
		if strings.EqualFold(qtype, t) {
			open = true
			break
		}
	}
	switch {
	case open && hasOpen:
		return openCol
	case !open && hasChoice:
		return choiceCol
	default:
		return -1
	}
}

// hasInvalidAttempts reports whether the cell holds a non-zero count.
// Anything that is not a number counts as invalid.
func hasInvalidAttempts(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return false
	}
	n, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", "."), 64)
	return err != nil || n != 0
}
