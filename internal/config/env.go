// This file contains the override table shared by the environment and the
// config file.

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	apperrors "github.com/richardbrinkman/plagiarism/internal/errors"
)

// override declares a single configurable value. key is the config file
// key; the environment variable is EnvPrefix + upper(key). Both are
// ignored when any of flags was set on the command line.
type override struct {
	key   string
	flags []string
	apply func(*AppConfig, string) error
}

// overrides is the declarative table of every overridable value.
var overrides = []override{
	// String overrides
	{"input", []string{"input"}, func(c *AppConfig, v string) error {
		c.Input = v
		return nil
	}},
	{"output", []string{"output"}, func(c *AppConfig, v string) error {
		c.Output = v
		return nil
	}},
	{"renderer", []string{"renderer"}, func(c *AppConfig, v string) error {
		c.Renderer = v
		return nil
	}},
	{"algorithm", []string{"algorithm"}, func(c *AppConfig, v string) error {
		c.Algorithm = v
		return nil
	}},
	{"log_level", []string{"log-level"}, func(c *AppConfig, v string) error {
		c.LogLevel = v
		return nil
	}},
	{"addr", []string{"addr"}, func(c *AppConfig, v string) error {
		c.Addr = v
		return nil
	}},
	{"upload_dir", []string{"upload-dir"}, func(c *AppConfig, v string) error {
		c.UploadDir = v
		return nil
	}},

	// Numeric overrides
	{"workers", []string{"workers"}, func(c *AppConfig, v string) error {
		return parseInt(v, &c.Workers)
	}},
	{"max_upload", nil, func(c *AppConfig, v string) error {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return err
		}
		c.MaxUpload = n
		return nil
	}},

	// Duration overrides
	{"timeout", []string{"timeout"}, func(c *AppConfig, v string) error {
		return parseDuration(v, &c.Timeout)
	}},
	{"keepalive", []string{"keepalive"}, func(c *AppConfig, v string) error {
		return parseDuration(v, &c.Keepalive)
	}},
	{"session_ttl", []string{"session-ttl"}, func(c *AppConfig, v string) error {
		return parseDuration(v, &c.SessionTTL)
	}},

	// Boolean overrides
	{"no_ansi", []string{"no-ansi"}, func(c *AppConfig, v string) error {
		return parseBool(v, &c.NoANSI)
	}},
	{"no_color", []string{"no-color"}, func(c *AppConfig, v string) error {
		return parseBool(v, &c.NoColor)
	}},
}

// EnvKey returns the environment variable of a config key.
func EnvKey(key string) string {
	return EnvPrefix + strings.ToUpper(key)
}

func parseInt(v string, dst *int) error {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

func parseDuration(v string, dst *time.Duration) error {
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return err
	}
	*dst = d
	return nil
}

// parseBool accepts "true", "1", "yes" as true and "false", "0", "no" as
// false (case-insensitive).
func parseBool(v string, dst *bool) error {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes":
		*dst = true
	case "false", "0", "no":
		*dst = false
	default:
		return strconv.ErrSyntax
	}
	return nil
}

// isFlagSetAny checks if any of the specified flags were explicitly set.
// A nil flag set counts as nothing set.
func isFlagSetAny(fs *pflag.FlagSet, names ...string) bool {
	if fs == nil {
		return false
	}
	for _, name := range names {
		if f := fs.Lookup(name); f != nil && f.Changed {
			return true
		}
	}
	return false
}

// applyEnvOverrides applies environment variable values to the configuration
// for any flags that were not explicitly set on the command line.
//
// Supported environment variables (all prefixed with PLAGIARISM_):
//   - INPUT, OUTPUT, RENDERER, ALGORITHM, LOG_LEVEL, ADDR, UPLOAD_DIR,
//     WORKERS, MAX_UPLOAD, TIMEOUT, KEEPALIVE, SESSION_TTL, NO_ANSI, NO_COLOR
func applyEnvOverrides(c *AppConfig, fs *pflag.FlagSet) error {
	for _, o := range overrides {
		if isFlagSetAny(fs, o.flags...) {
			continue
		}
		env := EnvKey(o.key)
		if val := os.Getenv(env); val != "" {
			if err := o.apply(c, val); err != nil {
				return apperrors.NewConfigError("invalid %s=%q: %v", env, val, err)
			}
		}
	}
	return nil
}

// ApplyPort honors the PORT variable of container platforms when --addr
// and PLAGIARISM_ADDR are both unset.
func ApplyPort(c *AppConfig, fs *pflag.FlagSet) {
	if isFlagSetAny(fs, "addr") || os.Getenv(EnvKey("addr")) != "" {
		return
	}
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		c.Addr = ":" + port
	}
}
