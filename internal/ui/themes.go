package ui

import (
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines a color scheme for terminal output.
// Each field contains an ANSI escape code.
type Theme struct {
	// Name is the identifier of the theme.
	Name string
	// Processing marks a job a worker is currently on.
	Processing string
	// Processed marks a job that produced a result.
	Processed string
	// Finished marks a unit whose sheet was written.
	Finished string
	// Error marks a failed job.
	Error string
	// Info is used for headings and informational messages.
	Info string
	// Dim is used for secondary text such as keepalive records.
	Dim string
	// Bold is the escape code for bold text.
	Bold string
	// Reset clears all formatting.
	Reset string
}

var (
	// DarkTheme is optimized for dark terminal backgrounds.
	DarkTheme = Theme{
		Name:       "dark",
		Processing: "\033[31m", // Red
		Processed:  "\033[33m", // Yellow
		Finished:   "\033[32m", // Green
		Error:      "\033[91m", // Bright red
		Info:       "\033[38;5;39m",
		Dim:        "\033[38;5;245m",
		Bold:       "\033[1m",
		Reset:      "\033[0m",
	}

	// LightTheme is optimized for light terminal backgrounds.
	LightTheme = Theme{
		Name:       "light",
		Processing: "\033[38;5;124m",
		Processed:  "\033[38;5;130m",
		Finished:   "\033[38;5;28m",
		Error:      "\033[38;5;160m",
		Info:       "\033[38;5;27m",
		Dim:        "\033[38;5;240m",
		Bold:       "\033[1m",
		Reset:      "\033[0m",
	}

	// NoColorTheme disables all color output.
	// Used when NO_COLOR is set or --no-color is given.
	NoColorTheme = Theme{Name: "none"}

	currentTheme = DarkTheme
	themeMutex   sync.RWMutex
)

// TUITheme defines lipgloss-compatible colors for the dashboard.
type TUITheme struct {
	Text       lipgloss.TerminalColor
	Border     lipgloss.TerminalColor
	Accent     lipgloss.TerminalColor
	Processing lipgloss.TerminalColor
	Processed  lipgloss.TerminalColor
	Finished   lipgloss.TerminalColor
	Error      lipgloss.TerminalColor
	Dim        lipgloss.TerminalColor
}

var (
	// DarkTUITheme mirrors DarkTheme for the dashboard.
	DarkTUITheme = TUITheme{
		Text:       lipgloss.Color("#E0E0E0"),
		Border:     lipgloss.Color("#4488FF"),
		Accent:     lipgloss.Color("#4488FF"),
		Processing: lipgloss.Color("#FF4444"),
		Processed:  lipgloss.Color("#FFD700"),
		Finished:   lipgloss.Color("#00C853"),
		Error:      lipgloss.Color("#FF1744"),
		Dim:        lipgloss.Color("#666666"),
	}

	// NoColorTUITheme renders with the terminal's default colors.
	NoColorTUITheme = TUITheme{
		Text:       lipgloss.NoColor{},
		Border:     lipgloss.NoColor{},
		Accent:     lipgloss.NoColor{},
		Processing: lipgloss.NoColor{},
		Processed:  lipgloss.NoColor{},
		Finished:   lipgloss.NoColor{},
		Error:      lipgloss.NoColor{},
		Dim:        lipgloss.NoColor{},
	}
)

// GetCurrentTUITheme returns the dashboard theme matching the active theme.
func GetCurrentTUITheme() TUITheme {
	themeMutex.RLock()
	defer themeMutex.RUnlock()
	if currentTheme.Name == NoColorTheme.Name {
		return NoColorTUITheme
	}
	return DarkTUITheme
}

// GetCurrentTheme returns the currently active theme.
func GetCurrentTheme() Theme {
	themeMutex.RLock()
	defer themeMutex.RUnlock()
	return currentTheme
}

// SetCurrentTheme sets the active theme. Tests use it to restore state.
func SetCurrentTheme(t Theme) {
	themeMutex.Lock()
	defer themeMutex.Unlock()
	currentTheme = t
}

// SetTheme changes the active theme by name: "dark", "light" or "none".
// Unknown names select the dark theme.
func SetTheme(name string) {
	themeMutex.Lock()
	defer themeMutex.Unlock()
	switch name {
	case LightTheme.Name:
		currentTheme = LightTheme
	case NoColorTheme.Name:
		currentTheme = NoColorTheme
	default:
		currentTheme = DarkTheme
	}
}

// InitTheme selects the theme from the noColor flag and the NO_COLOR
// environment variable (https://no-color.org/).
func InitTheme(noColor bool) {
	themeMutex.Lock()
	defer themeMutex.Unlock()
	if noColor {
		currentTheme = NoColorTheme
		return
	}
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		currentTheme = NoColorTheme
		return
	}
	currentTheme = DarkTheme
}

// StatusColor returns the escape code for a progress status name, or ""
// for statuses without a color.
func StatusColor(status string) string {
	t := GetCurrentTheme()
	switch status {
	case "processing":
		return t.Processing
	case "processed":
		return t.Processed
	case "finished", "completed":
		return t.Finished
	case "error":
		return t.Error
	case "keepalive":
		return t.Dim
	default:
		return ""
	}
}

// ColorReset returns the reset escape code of the active theme.
func ColorReset() string { return GetCurrentTheme().Reset }

// ColorBold returns the bold escape code of the active theme.
func ColorBold() string { return GetCurrentTheme().Bold }

// ColorInfo returns the informational color of the active theme.
func ColorInfo() string { return GetCurrentTheme().Info }

// ColorError returns the error color of the active theme.
func ColorError() string { return GetCurrentTheme().Error }

// ColorSuccess returns the color of finished units.
func ColorSuccess() string { return GetCurrentTheme().Finished }
