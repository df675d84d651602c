// Package config loads svdgen settings from defaults, an optional
// svdgen.yaml, SVDGEN_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/OpenTraceLab/svdgen/pkg/emit"
	"github.com/OpenTraceLab/svdgen/pkg/svd"
)

// Keys
const (
	KeyTarget         = "target"
	KeyTemplates      = "templates"
	KeyEscapePrefix   = "escape.prefix"
	KeyEscapeSuffix   = "escape.suffix"
	KeyEscapeKeywords = "escape.keywords"
	KeyGroupConflicts = "group_conflicts"
	KeyFormat         = "format"
	KeySVDDir         = "svd_dir"
)

// Name is the config file base name, without extension.
const Name = "svdgen"

// Config is the resolved configuration.
type Config struct {
	Target         string   `mapstructure:"target"`
	Templates      string   `mapstructure:"templates"`
	EscapePrefix   string   `mapstructure:"-"`
	EscapeSuffix   string   `mapstructure:"-"`
	EscapeKeywords []string `mapstructure:"-"`
	GroupConflicts string   `mapstructure:"group_conflicts"`
	Format         bool     `mapstructure:"format"`
	SVDDir         string   `mapstructure:"svd_dir"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

// New returns a viper instance with defaults, the environment binding and
// the standard search path. file, when set, replaces the search path.
func New(file string) (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault(KeyTarget, "rust")
	v.SetDefault(KeyTemplates, "")
	v.SetDefault(KeyEscapePrefix, "")
	v.SetDefault(KeyEscapeSuffix, "")
	v.SetDefault(KeyEscapeKeywords, []string{})
	v.SetDefault(KeyGroupConflicts, "error")
	v.SetDefault(KeyFormat, true)
	v.SetDefault(KeySVDDir, "")

	v.SetEnvPrefix("SVDGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		path, err := homedir.Expand(file)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(Name)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", Name))
		}
	}
	return v, nil
}

// Load reads the config file, if one is found, and binds flags whose names
// match keys. An explicitly named file must exist.
func Load(file string, flags *pflag.FlagSet) (*Config, error) {
	v, err := New(file)
	if err != nil {
		return nil, err
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: %w", err)
		}
	}
	if flags != nil {
		for _, key := range []string{KeyTarget, KeyTemplates, KeyGroupConflicts, KeyFormat, KeySVDDir} {
			if f := flags.Lookup(flagName(key)); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("config: %w", err)
				}
			}
		}
	}
	return decode(v)
}

func flagName(key string) string {
	return strings.ReplaceAll(key, "_", "-")
}

func decode(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	c.EscapePrefix = v.GetString(KeyEscapePrefix)
	c.EscapeSuffix = v.GetString(KeyEscapeSuffix)
	c.EscapeKeywords = v.GetStringSlice(KeyEscapeKeywords)
	c.File = v.ConfigFileUsed()

	if c.Templates != "" {
		t, err := homedir.Expand(c.Templates)
		if err != nil {
			return nil, fmt.Errorf("config: templates: %w", err)
		}
		c.Templates = t
	}
	if c.SVDDir != "" {
		d, err := homedir.Expand(c.SVDDir)
		if err != nil {
			return nil, fmt.Errorf("config: svd_dir: %w", err)
		}
		c.SVDDir = d
	}
	if _, err := svd.ParseConflictPolicy(c.GroupConflicts); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &c, nil
}

// Emit converts the settings into an emit configuration.
func (c *Config) Emit() *emit.Config {
	return &emit.Config{
		Target:       c.Target,
		Format:       c.Format,
		Templates:    c.Templates,
		EscapePrefix: c.EscapePrefix,
		EscapeSuffix: c.EscapeSuffix,
		Keywords:     c.EscapeKeywords,
	}
}

// LoadOptions converts the settings into description loader options.
func (c *Config) LoadOptions() svd.Options {
	policy, _ := svd.ParseConflictPolicy(c.GroupConflicts)
	return svd.Options{GroupConflicts: policy}
}

// ResolveInput expands ~ in path and, when a relative path does not exist,
// retries it under SVDDir.
func (c *Config) ResolveInput(path string) (string, error) {
	p, err := homedir.Expand(path)
	if err != nil {
		return "", fmt.Errorf("config: %w", err)
	}
	_, err = os.Stat(p)
	if err == nil || filepath.IsAbs(p) || c.SVDDir == "" {
		return p, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("config: %w", err)
	}
	alt := filepath.Join(c.SVDDir, p)
	if _, err := os.Stat(alt); err == nil {
		return alt, nil
	}
	return p, nil
}
