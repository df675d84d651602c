package dump

import (
	"fmt"
	"sort"
	"strings"

	"github.com/chewxy/sexp"
)

// encodeSexp writes a generic tree as s-expressions. A map entry becomes
// (key value...), a sequence repeats its key once per item, strings are
// quoted and numbers and booleans are bare atoms.
func encodeSexp(tree any) ([]byte, error) {
	m, ok := tree.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("top level is %T, not a map", tree)
	}
	var sb strings.Builder
	for _, k := range sortedKeys(m) {
		for _, e := range entries(k, m[k]) {
			pretty(&sb, e, 0)
		}
	}
	return []byte(sb.String()), nil
}

// entries converts one keyed value into its expressions. A nil value has
// none and a sequence has one per item.
func entries(key string, v any) []sexp.Sexp {
	head := sexp.Symbol(symbol(key))
	switch v := v.(type) {
	case nil:
		return nil
	case []any:
		if len(v) == 0 {
			return []sexp.Sexp{sexp.List{head}}
		}
		var out []sexp.Sexp
		for _, item := range v {
			out = append(out, entries(key, item)...)
		}
		return out
	case map[string]any:
		l := sexp.List{head}
		for _, k := range sortedKeys(v) {
			l = append(l, entries(k, v[k])...)
		}
		return []sexp.Sexp{l}
	}
	return []sexp.Sexp{sexp.List{head, sexp.Symbol(atom(v))}}
}

// pretty prints a list on one line when its tail is all atoms and breaks
// it one child per line otherwise.
func pretty(sb *strings.Builder, s sexp.Sexp, depth int) {
	indent(sb, depth)
	l, ok := s.(sexp.List)
	if !ok || flat(l) {
		fmt.Fprintf(sb, "%s\n", s)
		return
	}
	fmt.Fprintf(sb, "(%s\n", l.Head())
	for _, child := range l[1:] {
		pretty(sb, child, depth+1)
	}
	indent(sb, depth)
	sb.WriteString(")\n")
}

func flat(l sexp.List) bool {
	for _, child := range l[1:] {
		if !child.IsLeaf() {
			return false
		}
	}
	return true
}

func indent(sb *strings.Builder, depth int) {
	sb.WriteString(strings.Repeat("  ", depth))
}

// symbol strips the attribute and text markers of element keys and maps
// namespace separators to underscores.
func symbol(key string) string {
	s := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.', r == '_':
			return r
		}
		return '_'
	}, strings.TrimLeft(key, "@#"))
	if s == "" {
		return "text"
	}
	return s
}

func atom(v any) string {
	switch v := v.(type) {
	case string:
		s := strings.Join(strings.Fields(v), " ")
		s = strings.ReplaceAll(s, `\`, `\\`)
		return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
	case bool:
		if v {
			return "true"
		}
		return "false"
	}
	return fmt.Sprint(v)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
