// Package sheet holds the data model shared by the ingestion layer and the
// report builder: similarity matrices, the student roster, cross-sheet
// formula tables, the cell layout of a matrix sheet and sheet naming.
package sheet

import (
	"math"
	"slices"
)

// Matrix is a square, symmetric similarity matrix indexed by entry keys.
// Cells that were never set, including the diagonal, are null.
//
// A Matrix is filled by exactly one goroutine and must not be modified once
// it has been handed to the report builder.
type Matrix struct {
	keys   []string
	labels []string
	index  map[string]int
	cells  []float64
}

// NewMatrix returns an all-null matrix over keys. labels are the display
// headers and default to the keys when nil.
func NewMatrix(keys, labels []string) *Matrix {
	n := len(keys)
	if labels == nil {
		labels = keys
	}
	m := &Matrix{
		keys:   slices.Clone(keys),
		labels: slices.Clone(labels),
		index:  make(map[string]int, n),
		cells:  make([]float64, n*n),
	}
	for i, k := range keys {
		m.index[k] = i
	}
	for i := range m.cells {
		m.cells[i] = math.NaN()
	}
	return m
}

// Len returns the number of rows (and columns).
func (m *Matrix) Len() int { return len(m.keys) }

// Keys returns the row and column keys in order.
func (m *Matrix) Keys() []string { return m.keys }

// Labels returns the display headers in order.
func (m *Matrix) Labels() []string { return m.labels }

// Index returns the position of key.
func (m *Matrix) Index(key string) (int, bool) {
	i, ok := m.index[key]
	return i, ok
}

// Set stores v at (i, j) and (j, i). Diagonal writes are ignored.
func (m *Matrix) Set(i, j int, v float64) {
	if i == j {
		return
	}
	n := len(m.keys)
	m.cells[i*n+j] = v
	m.cells[j*n+i] = v
}

// Score returns the value at (i, j) and whether it is non-null.
func (m *Matrix) Score(i, j int) (float64, bool) {
	v := m.cells[i*len(m.keys)+j]
	if math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// Filled returns the number of non-null unordered pairs.
func (m *Matrix) Filled() int {
	n := len(m.keys)
	filled := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if _, ok := m.Score(i, j); ok {
				filled++
			}
		}
	}
	return filled
}
