package emit

import (
	"fmt"
	"os"
	"strings"

	"github.com/OpenTraceLab/svdgen/pkg/template"
)

// Config controls what Emit produces.
type Config struct {
	// Output
	Target string // dialect name, "rust" or "go" (default: rust)
	Format bool   // run the dialect's source formatter where it has one (default: true)

	// Templates is a directory whose files shadow the dialect's embedded
	// templates. Empty uses the embedded set only.
	Templates string

	// Identifier escaping on top of the dialect's defaults
	EscapePrefix string
	EscapeSuffix string
	Keywords     []string

	dialect Dialect
}

// DefaultConfig returns a Config generating Rust with embedded templates.
func DefaultConfig() *Config {
	return &Config{
		Target: "rust",
		Format: true,
	}
}

// Validate checks the configuration and resolves the dialect.
func (c *Config) Validate() error {
	if c.Target == "" {
		c.Target = "rust"
	}
	d, ok := dialects[strings.ToLower(c.Target)]
	if !ok {
		return fmt.Errorf("emit: unknown target %q (have %s)", c.Target, strings.Join(Targets(), ", "))
	}
	c.dialect = d

	if c.Templates != "" {
		info, err := os.Stat(c.Templates)
		if err != nil {
			return fmt.Errorf("emit: templates: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("emit: templates: %s is not a directory", c.Templates)
		}
	}
	return nil
}

// Dialect returns the resolved dialect. Validate must have succeeded.
func (c *Config) Dialect() Dialect { return c.dialect }

// Naming is the dialect's escaping policy with the configured overrides.
func (c *Config) Naming() Naming {
	return c.dialect.Naming().With(c.EscapePrefix, c.EscapeSuffix, c.Keywords)
}

// TemplateSet returns the templates in effect: the override directory, if
// any, over the dialect's embedded files.
func (c *Config) TemplateSet() *template.Set {
	if c.Templates != "" {
		return template.NewSet(os.DirFS(c.Templates), c.dialect.Templates())
	}
	return template.NewSet(c.dialect.Templates())
}
