package svd

import (
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// rangeLexer covers the small value grammars embedded in element text:
// bitRange "[msb:lsb]" and dimIndex "0-3", "A-D" or "A,B,C".
var rangeLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "Number", Pattern: `0[xX][0-9a-fA-F]+|[0-9]+`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Punct", Pattern: `[\[\]:,\-]`},
})

type bitRangeExpr struct {
	Msb string `parser:"\"[\" @Number"`
	Lsb string `parser:"\":\" @Number \"]\""`
}

type dimIndexExpr struct {
	Range *dimRangeExpr `parser:"  @@"`
	List  []string      `parser:"| @(Number | Ident) ( \",\" @(Number | Ident) )*"`
}

type dimRangeExpr struct {
	From string `parser:"@(Number | Ident) \"-\""`
	To   string `parser:"@(Number | Ident)"`
}

var (
	bitRangeParser = participle.MustBuild[bitRangeExpr](
		participle.Lexer(rangeLexer),
		participle.Elide("Whitespace"),
	)
	dimIndexParser = participle.MustBuild[dimIndexExpr](
		participle.Lexer(rangeLexer),
		participle.Elide("Whitespace"),
		participle.UseLookahead(2),
	)
)

// ParseNumber parses an SVD scalar: decimal, 0x/0X hex, 0b binary or
// #-prefixed binary. Leading zeros on decimal values do not switch to octal.
func ParseNumber(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return 0, strconv.ErrSyntax
	case strings.HasPrefix(s, "#"):
		return strconv.ParseUint(s[1:], 2, 64)
	case len(s) > 1 && s[0] == '0' && isDigits(s[1:]):
		return strconv.ParseUint(s, 10, 64)
	}
	return strconv.ParseUint(s, 0, 64)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// ParseBitRange parses "[msb:lsb]" into an offset and width.
func ParseBitRange(s string) (offset, width uint64, err error) {
	expr, err := bitRangeParser.ParseString("", s)
	if err != nil {
		return 0, 0, Malformed(KindBitRange, "", "bitRange %q: %v", s, err)
	}
	return msbLsb(expr.Msb, expr.Lsb)
}

func msbLsb(msbText, lsbText string) (offset, width uint64, err error) {
	msb, err := ParseNumber(msbText)
	if err != nil {
		return 0, 0, Malformed(KindNumber, "", "msb %q", msbText)
	}
	lsb, err := ParseNumber(lsbText)
	if err != nil {
		return 0, 0, Malformed(KindNumber, "", "lsb %q", lsbText)
	}
	if msb < lsb {
		return 0, 0, Malformed(KindBitRange, "", "msb %d below lsb %d", msb, lsb)
	}
	return lsb, msb - lsb + 1, nil
}

// ParseDimIndex expands a dimIndex value into its instance names.
func ParseDimIndex(s string) ([]string, error) {
	expr, err := dimIndexParser.ParseString("", s)
	if err != nil {
		return nil, Malformed(KindDimIndex, "", "dimIndex %q: %v", s, err)
	}
	if expr.Range == nil {
		return expr.List, nil
	}
	from, to := expr.Range.From, expr.Range.To
	if lo, err := ParseNumber(from); err == nil {
		hi, err := ParseNumber(to)
		if err != nil || hi < lo {
			return nil, Malformed(KindDimIndex, "", "dimIndex %q: bad range", s)
		}
		var out []string
		for i := lo; i <= hi; i++ {
			out = append(out, strconv.FormatUint(i, 10))
		}
		return out, nil
	}
	if len(from) != 1 || len(to) != 1 || to[0] < from[0] {
		return nil, Malformed(KindDimIndex, "", "dimIndex %q: bad range", s)
	}
	var out []string
	for c := from[0]; c <= to[0]; c++ {
		out = append(out, string(c))
	}
	return out, nil
}
