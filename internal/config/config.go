// Package config holds the application configuration and resolves it from
// command-line flags, PLAGIARISM_* environment variables and an optional
// config file, in that order of precedence, on top of the defaults.
package config

import (
	"time"

	"github.com/spf13/pflag"

	apperrors "github.com/richardbrinkman/plagiarism/internal/errors"
	"github.com/richardbrinkman/plagiarism/internal/logging"
	"github.com/richardbrinkman/plagiarism/internal/similarity"
	"github.com/richardbrinkman/plagiarism/internal/source"
)

// EnvPrefix is the prefix of every environment variable override.
const EnvPrefix = "PLAGIARISM_"

// Defaults.
const (
	DefaultOutput     = "plagiarism.xlsx"
	DefaultRenderer   = "auto"
	DefaultAlgorithm  = "ratio"
	DefaultLogLevel   = "info"
	DefaultAddr       = ":8080"
	DefaultUploadDir  = "static"
	DefaultKeepalive  = 15 * time.Second
	DefaultSessionTTL = time.Hour
	DefaultMaxUpload  = 256 << 20
)

// AppConfig holds the configuration of every command.
type AppConfig struct {
	// ConfigFile is the optional YAML, TOML or JSON file read by Load.
	ConfigFile string
	LogLevel   string
	NoColor    bool

	// Input is the archive, directory or tabular export to analyse.
	Input  string
	Output string
	// Renderer selects the progress display: auto, lines, plain, spinner or tui.
	Renderer  string
	NoANSI    bool
	Algorithm string
	// Workers bounds the concurrent comparisons; 0 means GOMAXPROCS.
	Workers int
	// Timeout aborts the run; 0 disables it.
	Timeout time.Duration

	Addr       string
	UploadDir  string
	Keepalive  time.Duration
	SessionTTL time.Duration
	MaxUpload  int64

	// Columns names the columns of tabular exports. It is only read from
	// the config file's "columns" section.
	Columns source.Columns
}

// Default returns the configuration used when nothing overrides it.
func Default() AppConfig {
	return AppConfig{
		LogLevel:   DefaultLogLevel,
		Output:     DefaultOutput,
		Renderer:   DefaultRenderer,
		Algorithm:  DefaultAlgorithm,
		Addr:       DefaultAddr,
		UploadDir:  DefaultUploadDir,
		Keepalive:  DefaultKeepalive,
		SessionTTL: DefaultSessionTTL,
		MaxUpload:  DefaultMaxUpload,
		Columns:    source.DefaultColumns(),
	}
}

// RegisterGlobalFlags binds the flags shared by every command.
func RegisterGlobalFlags(fs *pflag.FlagSet, c *AppConfig) {
	fs.StringVar(&c.ConfigFile, "config", c.ConfigFile, "config file (YAML, TOML or JSON)")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level: debug, info, warn or error")
	fs.BoolVar(&c.NoColor, "no-color", c.NoColor, "disable colors (also honors NO_COLOR)")
}

// RegisterDetectFlags binds the flags of the detect command.
func RegisterDetectFlags(fs *pflag.FlagSet, c *AppConfig) {
	fs.StringVarP(&c.Input, "input", "i", c.Input, "archive, directory, CSV or XLSX export to analyse")
	fs.StringVarP(&c.Output, "output", "o", c.Output, "path of the generated report")
	fs.StringVar(&c.Renderer, "renderer", c.Renderer, "progress display: auto, lines, plain, spinner or tui")
	fs.BoolVar(&c.NoANSI, "no-ansi", c.NoANSI, "print one plain line per event instead of updating lines in place")
	fs.StringVarP(&c.Algorithm, "algorithm", "a", c.Algorithm, "similarity algorithm: ratio or levenshtein")
	fs.IntVarP(&c.Workers, "workers", "w", c.Workers, "concurrent comparisons (0 = number of CPUs)")
	fs.DurationVar(&c.Timeout, "timeout", c.Timeout, "abort the run after this duration (0 = never)")
}

// RegisterServeFlags binds the flags of the serve command.
func RegisterServeFlags(fs *pflag.FlagSet, c *AppConfig) {
	fs.StringVar(&c.Addr, "addr", c.Addr, "listen address")
	fs.StringVar(&c.UploadDir, "upload-dir", c.UploadDir, "directory for uploads and reports")
	fs.DurationVar(&c.Keepalive, "keepalive", c.Keepalive, "interval of keep-alive records on progress streams")
	fs.DurationVar(&c.SessionTTL, "session-ttl", c.SessionTTL, "how long finished sessions and reports are kept")
	fs.StringVarP(&c.Algorithm, "algorithm", "a", c.Algorithm, "similarity algorithm: ratio or levenshtein")
	fs.IntVarP(&c.Workers, "workers", "w", c.Workers, "concurrent comparisons per run (0 = number of CPUs)")
}

// Load resolves c against its sources. Values of flags set on the command
// line are kept; every other value comes from the environment, then from
// the config file (c.ConfigFile or PLAGIARISM_CONFIG), then the default.
func Load(c *AppConfig, fs *pflag.FlagSet) error {
	if path := configPath(c, fs); path != "" {
		if err := applyFile(c, fs, path); err != nil {
			return err
		}
	}
	if err := applyEnvOverrides(c, fs); err != nil {
		return err
	}
	return c.Validate()
}

// Validate checks the values that would otherwise fail late in the run.
func (c *AppConfig) Validate() error {
	if _, err := similarity.ByName(c.Algorithm); err != nil {
		return apperrors.NewConfigError("%v", err)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return apperrors.NewConfigError("%v", err)
	}
	if c.Workers < 0 {
		return apperrors.NewConfigError("workers must be >= 0, got %d", c.Workers)
	}
	if c.Timeout < 0 {
		return apperrors.NewConfigError("timeout must be >= 0, got %s", c.Timeout)
	}
	if c.Keepalive <= 0 {
		return apperrors.NewConfigError("keepalive must be > 0, got %s", c.Keepalive)
	}
	cols, err := c.Columns.Compile()
	if err != nil {
		return err
	}
	c.Columns = cols
	return nil
}
