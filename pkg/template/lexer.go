package template

import (
	"fmt"
	"strings"
)

// tokenKind is the type of a template token
type tokenKind int

const (
	tokEOF tokenKind = iota
	tokText
	tokScalar     // /*% name[:format] %*/
	tokBlockStart // /*! name --->   on its own line
	tokBlockEnd   // !*/             on its own line
	tokField      // %name[:format]%  inside blocks
	tokInclude    // #name#           inside blocks
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of template"
	case tokText:
		return "text"
	case tokScalar:
		return "scalar marker"
	case tokBlockStart:
		return "block start"
	case tokBlockEnd:
		return "block end"
	case tokField:
		return "row field"
	case tokInclude:
		return "include"
	}
	return fmt.Sprintf("token(%d)", int(k))
}

// token is a lexical token. For markers Value holds the name; for text the
// literal run.
type token struct {
	kind   tokenKind
	value  string
	format string
	indent string // leading whitespace of a block start line
	line   int
}

// lexer splits template text into literal runs and markers. Row fields and
// includes are only recognized while a block is open.
type lexer struct {
	src   string
	pos   int
	line  int
	depth int
}

func newLexer(src string) *lexer {
	return &lexer{src: src, line: 1}
}

// next consumes and returns the next token
func (l *lexer) next() (token, error) {
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, line: l.line}, nil
	}

	if tok, n, ok, err := l.markerAt(l.pos); err != nil {
		return token{}, err
	} else if ok {
		l.advance(n)
		switch tok.kind {
		case tokBlockStart:
			l.depth++
		case tokBlockEnd:
			l.depth--
		}
		return tok, nil
	}

	start, line := l.pos, l.line
	for l.pos < len(l.src) {
		if _, _, ok, err := l.markerAt(l.pos); (ok || err != nil) && l.pos > start {
			break
		}
		l.advance(1)
	}
	return token{kind: tokText, value: l.src[start:l.pos], line: line}, nil
}

func (l *lexer) advance(n int) {
	l.line += strings.Count(l.src[l.pos:l.pos+n], "\n")
	l.pos += n
}

// markerAt recognizes a marker starting at i and returns its length.
func (l *lexer) markerAt(i int) (token, int, bool, error) {
	rest := l.src[i:]

	if i == 0 || l.src[i-1] == '\n' {
		if tok, n, ok := blockLine(rest); ok {
			tok.line = l.line
			return tok, n, true, nil
		}
	}

	if strings.HasPrefix(rest, "/*%") {
		end := strings.Index(rest, "%*/")
		nl := strings.IndexByte(rest, '\n')
		if end < 0 || (nl >= 0 && nl < end) {
			return token{}, 0, false, fmt.Errorf("%w: line %d: unterminated scalar marker", ErrSyntax, l.line)
		}
		name, format := splitName(strings.TrimSpace(rest[3:end]))
		if !isIdent(name) {
			return token{}, 0, false, fmt.Errorf("%w: line %d: bad scalar name %q", ErrSyntax, l.line, name)
		}
		return token{kind: tokScalar, value: name, format: format, line: l.line}, end + 3, true, nil
	}

	if l.depth == 0 {
		return token{}, 0, false, nil
	}

	switch rest[0] {
	case '%':
		n := identLen(rest[1:])
		if n == 0 {
			return token{}, 0, false, nil
		}
		name := rest[1 : 1+n]
		after := rest[1+n:]
		if strings.HasPrefix(after, "%") {
			return token{kind: tokField, value: name, line: l.line}, n + 2, true, nil
		}
		if strings.HasPrefix(after, ":") {
			end := strings.IndexAny(after, "%\n")
			if end > 0 && after[end] == '%' {
				return token{kind: tokField, value: name, format: after[1:end], line: l.line}, 1 + n + end + 1, true, nil
			}
		}
	case '#':
		n := linkLen(rest[1:])
		if n > 0 && strings.HasPrefix(rest[1+n:], "#") {
			return token{kind: tokInclude, value: rest[1 : 1+n], line: l.line}, n + 2, true, nil
		}
	}
	return token{}, 0, false, nil
}

// blockLine matches a whole block start or block end line, newline included.
func blockLine(s string) (token, int, bool) {
	i := blanks(s, 0)
	indent := s[:i]

	var tok token
	switch {
	case strings.HasPrefix(s[i:], "/*!"):
		j := blanks(s, i+3)
		n := identLen(s[j:])
		if n == 0 {
			return token{}, 0, false
		}
		name := s[j : j+n]
		j = blanks(s, j+n)
		if !strings.HasPrefix(s[j:], "--->") {
			return token{}, 0, false
		}
		i = j + 4
		tok = token{kind: tokBlockStart, value: name, indent: indent}
	case strings.HasPrefix(s[i:], "!*/"):
		i += 3
		tok = token{kind: tokBlockEnd}
	default:
		return token{}, 0, false
	}

	i = blanks(s, i)
	switch {
	case i == len(s):
	case s[i] == '\n':
		i++
	case strings.HasPrefix(s[i:], "\r\n"):
		i += 2
	default:
		return token{}, 0, false
	}
	return tok, i, true
}

func blanks(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	return i
}

func splitName(s string) (name, format string) {
	if i := strings.IndexByte(s, ':'); i >= 0 {
		return strings.TrimSpace(s[:i]), s[i+1:]
	}
	return s, ""
}

func isIdent(s string) bool {
	return s != "" && identLen(s) == len(s)
}

func identLen(s string) int {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_' || 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z':
		case '0' <= c && c <= '9' && i > 0:
		default:
			return i
		}
	}
	return len(s)
}

// linkLen measures an include name: identifier characters plus . - /
func linkLen(s string) int {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_' || c == '.' || c == '-' || c == '/':
		case 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9':
		default:
			return i
		}
	}
	return len(s)
}
