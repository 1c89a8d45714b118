package diff

import (
	"context"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"

	"github.com/richardbrinkman/plagiarism/internal/convert"
)

// DefaultWrapColumn is the width at which lines are wrapped.
const DefaultWrapColumn = 60

// Options configures the HTML rendering.
type Options struct {
	// FromDesc and ToDesc head the left and right columns.
	FromDesc string
	ToDesc   string
	// WrapColumn wraps lines wider than this many characters. Zero selects
	// DefaultWrapColumn; a negative value disables wrapping.
	WrapColumn int
}

func (o Options) wrap() int {
	switch {
	case o.WrapColumn == 0:
		return DefaultWrapColumn
	case o.WrapColumn < 0:
		return 0
	default:
		return o.WrapColumn
	}
}

type page struct {
	Title    string
	FromDesc string
	ToDesc   string
	Rows     []Row
	Same     bool
}

var pageTemplate = template.Must(template.New("diff").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
table.diff { font-family: monospace; border-collapse: collapse; border: 1px solid #ccc; }
table.diff th { background: #eee; padding: 2px 6px; text-align: left; }
table.diff td { padding: 0 6px; white-space: pre; vertical-align: top; }
td.num { color: #888; text-align: right; border-right: 1px solid #ccc; }
td.added { background: #e6ffec; }
td.deleted { background: #ffebe9; }
td.changed { background: #fff8c5; }
td.empty { background: #f6f8fa; }
td.added span, td.deleted span, td.changed span { font-weight: bold; }
td.changed span { background: #f5c26b; }
</style>
</head>
<body>
<table class="diff">
<thead><tr><th></th><th>{{.FromDesc}}</th><th></th><th>{{.ToDesc}}</th></tr></thead>
<tbody>
{{- if .Same}}
<tr><td></td><td colspan="3">No differences found.</td></tr>
{{- end}}
{{- range .Rows}}
<tr>{{template "cell" .Left}}{{template "cell" .Right}}</tr>
{{- end}}
</tbody>
</table>
</body>
</html>
{{define "cell"}}<td class="num">{{if .Num}}{{.Num}}{{else if .Cont}}&gt;{{end}}</td><td class="{{.Kind}}">{{range .Segments}}{{if .Changed}}<span>{{.Text}}</span>{{else}}{{.Text}}{{end}}{{end}}</td>{{end}}`))

// WriteHTML writes a complete HTML page comparing a and b.
func WriteHTML(w io.Writer, a, b []string, opts Options) error {
	rows := Compare(a, b, opts.wrap())
	same := true
	for _, r := range rows {
		if r.Left.Kind != KindEqual || r.Right.Kind != KindEqual {
			same = false
			break
		}
	}
	return pageTemplate.Execute(w, page{
		Title:    fmt.Sprintf("%s vs %s", opts.FromDesc, opts.ToDesc),
		FromDesc: opts.FromDesc,
		ToDesc:   opts.ToDesc,
		Rows:     rows,
		Same:     same,
	})
}

// Files converts the documents at from and to into text with conv and
// writes their comparison to output. Any format the converter reads can
// be compared.
func Files(ctx context.Context, conv convert.Converter, from, to, output string, opts Options) error {
	a, err := conv.Convert(ctx, from)
	if err != nil {
		return err
	}
	b, err := conv.Convert(ctx, to)
	if err != nil {
		return err
	}
	if opts.FromDesc == "" {
		opts.FromDesc = filepath.Base(from)
	}
	if opts.ToDesc == "" {
		opts.ToDesc = filepath.Base(to)
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("cannot create %s: %w", output, err)
	}
	if err := WriteHTML(f, Lines(a), Lines(b), opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
