package sheet

import (
	"slices"
	"strings"
)

// Roster is the ordered student table: unique keys mapped to display
// attributes. It is the first sheet of every report.
type Roster struct {
	// KeyName is the header of the key column.
	KeyName string
	// Columns are the headers of the attribute columns.
	Columns []string

	keys []string
	rows map[string][]string
}

// NewRoster returns an empty roster.
func NewRoster(keyName string, columns ...string) *Roster {
	return &Roster{
		KeyName: keyName,
		Columns: slices.Clone(columns),
		rows:    make(map[string][]string),
	}
}

// Add appends key with its attribute values. It reports false, leaving the
// roster unchanged, when key is already present.
func (r *Roster) Add(key string, values ...string) bool {
	if _, ok := r.rows[key]; ok {
		return false
	}
	row := make([]string, len(r.Columns))
	copy(row, values)
	r.keys = append(r.keys, key)
	r.rows[key] = row
	return true
}

// Has reports whether key is present.
func (r *Roster) Has(key string) bool {
	_, ok := r.rows[key]
	return ok
}

// Keys returns the keys in insertion order.
func (r *Roster) Keys() []string { return r.keys }

// Len returns the number of students.
func (r *Roster) Len() int { return len(r.keys) }

// Row returns the attribute values of key.
func (r *Roster) Row(key string) []string { return r.rows[key] }

// Display returns the non-empty attributes of key joined by spaces, or the
// key itself when there are none.
func (r *Roster) Display(key string) string {
	parts := make([]string, 0, len(r.Columns))
	for _, v := range r.rows[key] {
		if v = strings.TrimSpace(v); v != "" {
			parts = append(parts, v)
		}
	}
	if len(parts) == 0 {
		return key
	}
	return strings.Join(parts, " ")
}

// Labels returns Display for every key in order.
func (r *Roster) Labels() []string {
	labels := make([]string, len(r.keys))
	for i, k := range r.keys {
		labels[i] = r.Display(k)
	}
	return labels
}
