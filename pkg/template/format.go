package template

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/alecthomas/participle/v2"
	plexer "github.com/alecthomas/participle/v2/lexer"
)

// directiveLexer tokenizes a format directive after the fill character has
// been split off: [align][sign][#][0][width][verb].
var directiveLexer = plexer.MustSimple([]plexer.SimpleRule{
	{Name: "Align", Pattern: `[<>^=]`},
	{Name: "Sign", Pattern: `[-+ ]`},
	{Name: "Alt", Pattern: `#`},
	{Name: "Digits", Pattern: `[0-9]+`},
	{Name: "Verb", Pattern: `[bdoxXs]`},
})

type directive struct {
	Align string `parser:"@Align?"`
	Sign  string `parser:"@Sign?"`
	Alt   bool   `parser:"@Alt?"`
	Width string `parser:"@Digits?"`
	Verb  string `parser:"@Verb?"`
}

var directiveParser = participle.MustBuild[directive](
	participle.Lexer(directiveLexer),
)

// FormatValue applies a format directive to a raw value. Values that parse
// as integers (decimal, 0x, 0o or 0b) are formatted as numbers, anything
// else as a string. An empty directive returns the value unchanged.
func FormatValue(value, spec string) (string, error) {
	if spec == "" {
		return value, nil
	}

	fill := ' '
	if r, size := utf8.DecodeRuneInString(spec); size < len(spec) && strings.ContainsRune("<>^=", rune(spec[size])) {
		fill, spec = r, spec[size:]
	}

	d, err := directiveParser.ParseString("", spec)
	if err != nil {
		return "", fmt.Errorf("%w: directive %q: %v", ErrFormat, spec, err)
	}

	width := 0
	zero := false
	if d.Width != "" {
		if len(d.Width) > 1 && d.Width[0] == '0' {
			zero = true
		}
		width, err = strconv.Atoi(d.Width)
		if err != nil {
			return "", fmt.Errorf("%w: width %q", ErrFormat, d.Width)
		}
	}

	neg, mag, isInt := parseInt(value)
	if d.Verb == "s" || (d.Verb == "" && !isInt) {
		if d.Sign != "" || d.Alt || d.Align == "=" {
			return "", fmt.Errorf("%w: directive %q does not apply to strings", ErrFormat, spec)
		}
		align := d.Align
		if align == "" {
			align = "<"
		}
		if zero && d.Align == "" {
			fill = '0'
		}
		return pad("", value, width, fill, align), nil
	}
	if !isInt {
		return "", fmt.Errorf("%w: %q is not an integer", ErrFormat, value)
	}

	verb := d.Verb
	if verb == "" {
		verb = "d"
	}
	var digits, prefix string
	switch verb {
	case "b":
		digits, prefix = strconv.FormatUint(mag, 2), "0b"
	case "o":
		digits, prefix = strconv.FormatUint(mag, 8), "0o"
	case "x":
		digits, prefix = strconv.FormatUint(mag, 16), "0x"
	case "X":
		digits, prefix = strings.ToUpper(strconv.FormatUint(mag, 16)), "0X"
	default:
		digits = strconv.FormatUint(mag, 10)
	}
	if !d.Alt {
		prefix = ""
	}

	sign := ""
	switch {
	case neg:
		sign = "-"
	case d.Sign == "+":
		sign = "+"
	case d.Sign == " ":
		sign = " "
	}

	align := d.Align
	if zero && align == "" {
		align, fill = "=", '0'
	}
	if align == "" {
		align = ">"
	}
	return pad(sign+prefix, digits, width, fill, align), nil
}

// pad lays head and body out in width runes. Alignment "=" puts the padding
// between them.
func pad(head, body string, width int, fill rune, align string) string {
	n := width - utf8.RuneCountInString(head) - utf8.RuneCountInString(body)
	if n <= 0 {
		return head + body
	}
	switch align {
	case "<":
		return head + body + strings.Repeat(string(fill), n)
	case "^":
		left := n / 2
		return strings.Repeat(string(fill), left) + head + body + strings.Repeat(string(fill), n-left)
	case "=":
		return head + strings.Repeat(string(fill), n) + body
	}
	return strings.Repeat(string(fill), n) + head + body
}

// parseInt accepts an optional sign and any Go integer literal prefix.
func parseInt(s string) (neg bool, mag uint64, ok bool) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "-"):
		neg, s = true, s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}
	if s == "" || s[0] == '-' || s[0] == '+' {
		return false, 0, false
	}
	base := 0
	if len(s) > 1 && s[0] == '0' && s[1] >= '0' && s[1] <= '9' {
		// leading zeros are decimal, not octal
		base = 10
	}
	v, err := strconv.ParseUint(s, base, 64)
	if err != nil {
		return false, 0, false
	}
	return neg && v != 0, v, true
}
