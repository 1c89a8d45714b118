package tui

import (
	"fmt"
	"strings"

	"github.com/richardbrinkman/plagiarism/internal/progress"
)

// unitRow is the latest status of one unit or pair.
type unitRow struct {
	name   string
	status progress.Status
}

// UnitsModel lists every unit or pair seen on the stream, in order of
// first appearance, with its latest status. It scrolls when the list is
// taller than the panel and follows the tail unless the user scrolled up.
type UnitsModel struct {
	rows   []unitRow
	index  map[string]int
	offset int
	follow bool
	width  int
	height int
}

// NewUnitsModel creates an empty list.
func NewUnitsModel() UnitsModel {
	return UnitsModel{index: make(map[string]int), follow: true}
}

// SetSize updates dimensions.
func (u *UnitsModel) SetSize(w, h int) {
	u.width = w
	u.height = h
	u.clamp()
}

// AddEvent records e. Run-level and keepalive events are ignored.
func (u *UnitsModel) AddEvent(e progress.Event) {
	if e.UnitID == "" || e.Status == progress.StatusKeepalive {
		return
	}
	if i, ok := u.index[e.UnitID]; ok {
		u.rows[i].status = e.Status
		return
	}
	u.index[e.UnitID] = len(u.rows)
	u.rows = append(u.rows, unitRow{name: e.UnitID, status: e.Status})
	if u.follow {
		u.offset = u.maxOffset()
	}
}

// Len returns the number of listed units.
func (u UnitsModel) Len() int { return len(u.rows) }

// Scroll moves the view by delta rows. Scrolling back to the bottom
// resumes following new rows.
func (u *UnitsModel) Scroll(delta int) {
	u.offset += delta
	u.clamp()
	u.follow = u.offset == u.maxOffset()
}

// PageSize is the number of visible rows.
func (u UnitsModel) PageSize() int { return max(u.height-2, 1) }

func (u UnitsModel) maxOffset() int { return max(len(u.rows)-u.PageSize(), 0) }

func (u *UnitsModel) clamp() {
	u.offset = min(max(u.offset, 0), u.maxOffset())
}

// View renders the visible rows.
func (u UnitsModel) View() string {
	end := min(u.offset+u.PageSize(), len(u.rows))
	lines := make([]string, 0, end-u.offset)
	for _, r := range u.rows[u.offset:end] {
		status := statusStyle(r.status).Render(fmt.Sprintf("%10s", r.status))
		lines = append(lines, fmt.Sprintf("[%s] %s", status, truncate(r.name, max(u.width-18, 8))))
	}
	return panelStyle.
		Width(max(u.width-2, 0)).
		Height(max(u.height-2, 0)).
		Render(strings.Join(lines, "\n"))
}

// truncate shortens s to n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
