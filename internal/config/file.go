package config

import (
	"errors"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	apperrors "github.com/richardbrinkman/plagiarism/internal/errors"
)

// configPath returns the config file to read, if any.
func configPath(c *AppConfig, fs *pflag.FlagSet) string {
	if c.ConfigFile != "" || isFlagSetAny(fs, "config") {
		return c.ConfigFile
	}
	return os.Getenv(EnvKey("config"))
}

// applyFile reads the config file at path. The format follows the
// extension. Keys of flags set on the command line are skipped; the
// "columns" section replaces the column conventions field by field.
func applyFile(c *AppConfig, fs *pflag.FlagSet, path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return apperrors.NewConfigError("cannot read config file %q: %v", path, err)
	}

	for _, o := range overrides {
		if !v.IsSet(o.key) || isFlagSetAny(fs, o.flags...) {
			continue
		}
		if err := o.apply(c, v.GetString(o.key)); err != nil {
			return apperrors.NewConfigError("invalid %q in %s: %v", o.key, path, err)
		}
	}

	if v.IsSet("columns") {
		if err := v.UnmarshalKey("columns", &c.Columns); err != nil {
			return apperrors.NewConfigError("invalid columns section in %s: %v", path, err)
		}
	}
	c.ConfigFile = path
	return nil
}

// LoadDotEnv loads KEY=value pairs from path into the environment without
// overriding variables that are already set. A missing file is not an
// error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return apperrors.NewConfigError("cannot read %s: %v", path, err)
	}
	return nil
}
