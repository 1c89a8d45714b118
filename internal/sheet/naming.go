package sheet

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Sheet names the workbook reserves for itself.
const (
	StudentsSheet = "students"
	AverageSheet  = "average"
	// HistorySheet is reserved by spreadsheet applications.
	HistorySheet = "history"
)

// MaxNameLen is the longest sheet name a workbook accepts.
const MaxNameLen = 31

// fallbackLabel replaces labels that sanitize to nothing.
const fallbackLabel = "unit"

var illegalChars = strings.NewReplacer("[", "", "]", "", "*", "", ":", "", "?", "", "/", "", "\\", "")

// Label derives a sheet label from a unit id: spreadsheet-illegal
// characters removed, lower-cased, last 31 characters kept.
func Label(unitID string) string {
	label := strings.ToLower(illegalChars.Replace(unitID))
	label = lastRunes(label, MaxNameLen)
	// A sheet name may not start or end with an apostrophe.
	label = strings.Trim(label, "'")
	if strings.TrimSpace(label) == "" {
		return fallbackLabel
	}
	return label
}

// Namer hands out unique sheet names in call order.
type Namer struct {
	used map[string]struct{}
}

// NewNamer returns a Namer with the workbook's own sheet names reserved.
func NewNamer() *Namer {
	n := &Namer{used: make(map[string]struct{})}
	for _, name := range []string{StudentsSheet, AverageSheet, HistorySheet} {
		n.used[name] = struct{}{}
	}
	return n
}

// Next returns a unique name for unitID. A label already taken is cut to
// its first 29 characters and suffixed with 00, 01, ... until unique.
func (n *Namer) Next(unitID string) string {
	label := Label(unitID)
	if n.take(label) {
		return label
	}
	for i := 0; ; i++ {
		suffix := fmt.Sprintf("%02d", i)
		base := firstRunes(label, MaxNameLen-len(suffix))
		if n.take(base + suffix) {
			return base + suffix
		}
	}
}

func (n *Namer) take(name string) bool {
	if _, ok := n.used[name]; ok {
		return false
	}
	n.used[name] = struct{}{}
	return true
}

func firstRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}

func lastRunes(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[len(r)-limit:])
}
