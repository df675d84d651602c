package emit

import "strings"

// Naming escapes identifiers that collide with reserved words of the
// output language.
type Naming struct {
	Keywords map[string]bool
	Prefix   string
	Suffix   string
}

// Escape returns ident, wrapped in Prefix and Suffix when it is reserved.
func (n Naming) Escape(ident string) string {
	if !n.Keywords[ident] {
		return ident
	}
	return n.Prefix + ident + n.Suffix
}

// With overrides the affixes when set and adds extra reserved words.
func (n Naming) With(prefix, suffix string, extra []string) Naming {
	out := Naming{
		Keywords: make(map[string]bool, len(n.Keywords)+len(extra)),
		Prefix:   n.Prefix,
		Suffix:   n.Suffix,
	}
	for k := range n.Keywords {
		out.Keywords[k] = true
	}
	for _, k := range extra {
		if k = strings.TrimSpace(k); k != "" {
			out.Keywords[k] = true
		}
	}
	if prefix != "" || suffix != "" {
		out.Prefix, out.Suffix = prefix, suffix
	}
	return out
}

func keywordSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

// self, Self, super and crate cannot be raw identifiers and are left out.
var rustKeywords = keywordSet(
	"as", "break", "const", "continue", "else", "enum", "extern", "false",
	"fn", "for", "if", "impl", "in", "let", "loop", "match", "mod", "move",
	"mut", "pub", "ref", "return", "static", "struct", "trait", "true",
	"type", "unsafe", "use", "where", "while", "async", "await", "dyn",
	"abstract", "become", "box", "do", "final", "macro", "override", "priv",
	"typeof", "unsized", "virtual", "yield", "try", "union", "gen",
)

var goKeywords = keywordSet(
	"break", "case", "chan", "const", "continue", "default", "defer",
	"else", "fallthrough", "for", "func", "go", "goto", "if", "import",
	"interface", "map", "package", "range", "return", "select", "struct",
	"switch", "type", "var",
)
