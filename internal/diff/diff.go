// Package diff renders a side-by-side HTML comparison of two texts, with
// the changed characters of modified lines highlighted. It is used to
// inspect a suspicious pair flagged in a report.
package diff

import (
	"strings"
	"unicode/utf8"

	"github.com/pmezard/go-difflib/difflib"
)

// Cell kinds.
const (
	KindEqual   = "equal"
	KindChanged = "changed"
	KindAdded   = "added"
	KindDeleted = "deleted"
	KindEmpty   = "empty"
)

const tabSize = 8

// Segment is a run of characters that is either shared by both sides or
// present on one side only.
type Segment struct {
	Text    string
	Changed bool
}

// Cell is one side of a row. Num is the 1-based line number, or 0 for the
// empty side of an insertion or deletion and for wrapped continuations.
type Cell struct {
	Num      int
	Cont     bool
	Kind     string
	Segments []Segment
}

// Row pairs a line of the left text with a line of the right text.
type Row struct {
	Left, Right Cell
}

// Lines splits text into lines, accepting \n and \r\n endings. A trailing
// newline does not start an extra line.
func Lines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

// Compare aligns a and b line by line. Lines of a replaced block are
// paired in order and their differing characters are marked; unpaired
// lines face an empty cell. Rows wider than wrap runes are wrapped into
// continuation rows; wrap <= 0 disables wrapping.
func Compare(a, b []string, wrap int) []Row {
	a, b = expandAll(a), expandAll(b)
	m := difflib.NewMatcher(a, b)
	var rows []Row
	for _, op := range m.GetOpCodes() {
		switch op.Tag {
		case 'e':
			for k := 0; k < op.I2-op.I1; k++ {
				rows = append(rows, Row{
					Left:  plain(op.I1+k+1, KindEqual, a[op.I1+k]),
					Right: plain(op.J1+k+1, KindEqual, b[op.J1+k]),
				})
			}
		case 'd':
			for i := op.I1; i < op.I2; i++ {
				rows = append(rows, Row{Left: plain(i+1, KindDeleted, a[i]), Right: empty()})
			}
		case 'i':
			for j := op.J1; j < op.J2; j++ {
				rows = append(rows, Row{Left: empty(), Right: plain(j+1, KindAdded, b[j])})
			}
		case 'r':
			n, k := op.I2-op.I1, op.J2-op.J1
			for p := 0; p < max(n, k); p++ {
				switch {
				case p < n && p < k:
					left, right := intraline(a[op.I1+p], b[op.J1+p])
					rows = append(rows, Row{
						Left:  Cell{Num: op.I1 + p + 1, Kind: KindChanged, Segments: left},
						Right: Cell{Num: op.J1 + p + 1, Kind: KindChanged, Segments: right},
					})
				case p < n:
					rows = append(rows, Row{Left: plain(op.I1+p+1, KindDeleted, a[op.I1+p]), Right: empty()})
				default:
					rows = append(rows, Row{Left: empty(), Right: plain(op.J1+p+1, KindAdded, b[op.J1+p])})
				}
			}
		}
	}
	if wrap > 0 {
		rows = wrapRows(rows, wrap)
	}
	return rows
}

func plain(num int, kind, text string) Cell {
	return Cell{Num: num, Kind: kind, Segments: []Segment{{Text: text, Changed: kind != KindEqual}}}
}

func empty() Cell { return Cell{Kind: KindEmpty} }

// intraline marks the characters that differ between two paired lines.
func intraline(a, b string) (left, right []Segment) {
	ra, rb := runes(a), runes(b)
	m := difflib.NewMatcher(ra, rb)
	for _, op := range m.GetOpCodes() {
		sa := strings.Join(ra[op.I1:op.I2], "")
		sb := strings.Join(rb[op.J1:op.J2], "")
		changed := op.Tag != 'e'
		left = appendSegment(left, sa, changed)
		right = appendSegment(right, sb, changed)
	}
	return left, right
}

// appendSegment appends text, merging it into the last segment when both
// have the same state.
func appendSegment(segs []Segment, text string, changed bool) []Segment {
	if text == "" {
		return segs
	}
	if n := len(segs); n > 0 && segs[n-1].Changed == changed {
		segs[n-1].Text += text
		return segs
	}
	return append(segs, Segment{Text: text, Changed: changed})
}

// runes splits s into one string per character.
func runes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

func expandAll(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = expandTabs(l)
	}
	return out
}

// expandTabs replaces tabs with spaces up to the next multiple of tabSize.
func expandTabs(s string) string {
	if !strings.Contains(s, "\t") {
		return s
	}
	var b strings.Builder
	col := 0
	for _, r := range s {
		if r == '\t' {
			n := tabSize - col%tabSize
			b.WriteString(strings.Repeat(" ", n))
			col += n
			continue
		}
		b.WriteRune(r)
		col++
	}
	return b.String()
}

// wrapRows splits rows whose cells are wider than width.
func wrapRows(rows []Row, width int) []Row {
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		left, right := wrapCell(row.Left, width), wrapCell(row.Right, width)
		for i := 0; i < max(len(left), len(right)); i++ {
			var r Row
			r.Left = pick(left, i, row.Left.Kind)
			r.Right = pick(right, i, row.Right.Kind)
			out = append(out, r)
		}
	}
	return out
}

func pick(cells []Cell, i int, kind string) Cell {
	if i < len(cells) {
		return cells[i]
	}
	return Cell{Cont: true, Kind: kind}
}

// wrapCell splits c into chunks of at most width runes. Every chunk but
// the first is a continuation.
func wrapCell(c Cell, width int) []Cell {
	var chunks []Cell
	cur := Cell{Num: c.Num, Kind: c.Kind}
	used := 0
	for _, seg := range c.Segments {
		text := seg.Text
		for text != "" {
			if used == width {
				chunks = append(chunks, cur)
				cur = Cell{Cont: true, Kind: c.Kind}
				used = 0
			}
			n := min(width-used, utf8.RuneCountInString(text))
			head, tail := splitRunes(text, n)
			cur.Segments = appendSegment(cur.Segments, head, seg.Changed)
			used += n
			text = tail
		}
	}
	return append(chunks, cur)
}

// splitRunes splits s after n runes.
func splitRunes(s string, n int) (string, string) {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos], s[pos:]
		}
		i++
	}
	return s, ""
}
