// Package source normalizes the supported input shapes into one contract:
// an ordered list of comparison units, a student roster, a lazy job stream
// and a builder for the cross-sheet average formulas.
//
// Three variants exist:
//
//   - an archive (zip or directory) of individual submissions exported by
//     Blackboard, compared as one whole corpus;
//   - a row-per-candidate export whose answer columns are the units;
//   - a row-per-(candidate, question) export grouped by question.
//
// The variant is chosen once, by Open, from the content of the input.
package source

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"os"

	"github.com/gabriel-vasile/mimetype"

	"github.com/richardbrinkman/plagiarism/internal/convert"
	apperrors "github.com/richardbrinkman/plagiarism/internal/errors"
	"github.com/richardbrinkman/plagiarism/internal/logging"
	"github.com/richardbrinkman/plagiarism/internal/sheet"
)

// Kind identifies a source variant.
type Kind int

const (
	KindArchive Kind = iota
	KindCandidate
	KindQuestion
)

func (k Kind) String() string {
	switch k {
	case KindArchive:
		return "archive"
	case KindCandidate:
		return "candidate"
	case KindQuestion:
		return "question"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Mode selects how jobs are decomposed into comparisons.
type Mode int

const (
	// WholeCorpus compares every pair of entries of a job as its own task.
	WholeCorpus Mode = iota
	// PerUnit computes the full matrix of a job in one task.
	PerUnit
)

func (m Mode) String() string {
	if m == WholeCorpus {
		return "whole-corpus"
	}
	return "per-unit"
}

// ErrNoText is returned by Entry.Load when a student left an answer blank.
// The corresponding matrix cells stay null.
var ErrNoText = errors.New("no answer text")

// Entry is one student's contribution to a unit.
type Entry struct {
	// Key is unique within the job and indexes the matrix.
	Key string
	// StudentID is the roster key of the author.
	StudentID string
	// Name is a short identifier used in progress messages.
	Name string
	// Label is the matrix header shown in the report.
	Label string
	// Load materializes the text. It may be called concurrently.
	Load func(ctx context.Context) (string, error)
}

// Job is one comparison unit with its entries in matrix order.
type Job struct {
	UnitID  string
	Entries []Entry
}

// Keys returns the entry keys in order.
func (j Job) Keys() []string {
	keys := make([]string, len(j.Entries))
	for i, e := range j.Entries {
		keys[i] = e.Key
	}
	return keys
}

// Labels returns the entry labels in order.
func (j Job) Labels() []string {
	labels := make([]string, len(j.Entries))
	for i, e := range j.Entries {
		labels[i] = e.Label
	}
	return labels
}

// Source is the read-only view of one run's input.
type Source interface {
	Kind() Kind
	Mode() Mode
	// UnitIDs lists the units in enumeration order. Jobs yields them in
	// the same order.
	UnitIDs() []string
	StudentTab() *sheet.Roster
	Jobs() iter.Seq[Job]
	// AverageTab returns, indexed by roster keys, formulas averaging each
	// student pair over the given sheets. sheetNames are the names the
	// report gave to the units that produced a sheet, in workbook order.
	AverageTab(sheetNames []string) sheet.FormulaTable
	// Close releases temporary files and memoized conversions.
	Close() error
}

// Options configures Open.
type Options struct {
	// Converter turns archive submissions into text. Defaults to a
	// convert.Dispatcher.
	Converter convert.Converter
	// Columns names the columns of tabular exports.
	Columns Columns
	// Logger receives skipped-row and skipped-line diagnostics.
	Logger logging.Logger
	// TempDir is where zip archives are extracted. Defaults to os.TempDir.
	TempDir string
}

func (o Options) withDefaults() (Options, error) {
	if o.Converter == nil {
		o.Converter = convert.NewDispatcher()
	}
	if o.Logger == nil {
		o.Logger = logging.Nop()
	}
	cols, err := o.Columns.Compile()
	o.Columns = cols
	return o, err
}

// MIME types recognized by Open.
const (
	mimeZip  = "application/zip"
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Open inspects path and returns the matching Source. Every ingestion
// failure is fatal and returned before any job exists.
func Open(ctx context.Context, path string, opts Options) (Source, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, apperrors.InputError{Path: path, Cause: err}
	}
	if info.IsDir() {
		return openArchive(ctx, path, "", opts)
	}

	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, apperrors.InputError{Path: path, Cause: err}
	}

	switch {
	case mtype.Is(mimeXLSX):
		t, err := readXLSX(path)
		if err != nil {
			return nil, err
		}
		return openTable(path, mtype.String(), t, opts)
	case mtype.Is(mimeZip):
		if looksLikeXLSX(path) {
			t, err := readXLSX(path)
			if err != nil {
				return nil, err
			}
			return openTable(path, mimeXLSX, t, opts)
		}
		dir, err := extractZip(path, opts.TempDir)
		if err != nil {
			return nil, err
		}
		src, err := openArchive(ctx, contentRoot(dir), dir, opts)
		if err != nil {
			_ = os.RemoveAll(dir)
			return nil, err
		}
		return src, nil
	case isText(mtype):
		t, err := readCSV(path)
		if err != nil {
			return nil, err
		}
		return openTable(path, mtype.String(), t, opts)
	default:
		return nil, apperrors.UnsupportedFormatError{Path: path, MIME: mtype.String()}
	}
}

func isText(mtype *mimetype.MIME) bool {
	for m := mtype; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}

// openTable classifies a tabular export by its header.
func openTable(path, mime string, t *table, opts Options) (Source, error) {
	cols := opts.Columns
	switch {
	case t.has(cols.Question.Question) && t.has(cols.Question.QuestionType):
		return newQuestionSource(t, cols, opts.Logger)
	case len(t.match(cols.Candidate.answers)) > 0:
		return newCandidateSource(t, cols, opts.Logger)
	default:
		return nil, apperrors.UnsupportedFormatError{
			Path:   path,
			MIME:   mime,
			Reason: "header matches neither a question export nor a candidate export",
		}
	}
}
