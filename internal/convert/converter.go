//go:generate mockgen -source=converter.go -destination=mocks/mock_converter.go -package=mocks

// Package convert turns submitted documents into plain text for comparison.
//
// The format of a document is detected from its content, never from its
// file name. A Dispatcher maps detected media types to readers; a Cache
// memoizes the outcome per path for the lifetime of one run.
package convert

import (
	"context"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	apperrors "github.com/richardbrinkman/plagiarism/internal/errors"
)

// Converter materializes a document as text.
type Converter interface {
	Convert(ctx context.Context, path string) (string, error)
}

// Reader extracts text from a document of one known format.
type Reader func(ctx context.Context, path string) (string, error)

type rule struct {
	pattern *regexp.Regexp
	read    Reader
}

// Dispatcher selects a Reader by matching the detected media type of a
// document, then each of its parent types, against an ordered rule list.
type Dispatcher struct {
	rules  []rule
	detect func(path string) (*mimetype.MIME, error)
}

// NewDispatcher returns a Dispatcher with the built-in readers registered.
func NewDispatcher() *Dispatcher {
	d := &Dispatcher{detect: mimetype.DetectFile}
	d.Register(`^application/csv$`, ReadText)
	d.Register(`^application/pdf$`, ReadPDF)
	d.Register(`^application/vnd\.oasis\.opendocument\.text$`, ReadODT)
	d.Register(`^application/vnd\.openxmlformats-officedocument\.wordprocessingml\.document$`, ReadDOCX)
	d.Register(`^application/(?:vnd\.sqlite3|x-sqlite3)$`, ReadSQLite)
	d.Register(`^text/.+$`, ReadText)
	return d
}

// Register appends a rule. Rules are tried in registration order, so a
// pattern registered earlier wins over a later, broader one.
func (d *Dispatcher) Register(pattern string, read Reader) {
	d.rules = append(d.rules, rule{pattern: regexp.MustCompile(pattern), read: read})
}

// Convert detects the media type of path and runs the first matching reader.
func (d *Dispatcher) Convert(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	mtype, err := d.detect(path)
	if err != nil {
		return "", apperrors.ConversionError{Path: path, Cause: err}
	}
	read, ok := d.lookup(mtype)
	if !ok {
		return "", apperrors.ConversionError{Path: path, MIME: baseType(mtype.String())}
	}
	text, err := read(ctx, path)
	if err != nil {
		return "", apperrors.ConversionError{Path: path, MIME: baseType(mtype.String()), Cause: err}
	}
	return text, nil
}

// lookup walks the detected type and its ancestors, returning the first
// reader whose pattern matches.
func (d *Dispatcher) lookup(mtype *mimetype.MIME) (Reader, bool) {
	for m := mtype; m != nil; m = m.Parent() {
		name := baseType(m.String())
		for _, r := range d.rules {
			if r.pattern.MatchString(name) {
				return r.read, true
			}
		}
	}
	return nil, false
}

// baseType strips media type parameters such as "; charset=utf-8".
func baseType(mime string) string {
	base, _, _ := strings.Cut(mime, ";")
	return strings.TrimSpace(base)
}

// Func adapts an ordinary function to the Converter interface.
type Func func(ctx context.Context, path string) (string, error)

// Convert calls f.
func (f Func) Convert(ctx context.Context, path string) (string, error) { return f(ctx, path) }

var (
	_ Converter = (*Dispatcher)(nil)
	_ Converter = Func(nil)
)
