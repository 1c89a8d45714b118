// Package ui provides the color themes shared by the terminal renderers and
// the dashboard: one color per progress status, plus lipgloss equivalents.
//
// This package is a leaf dependency so that presentation packages can
// share colors without depending on each other.
package ui
