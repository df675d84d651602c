package template

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSyntax is returned for templates whose markers do not parse.
	ErrSyntax = errors.New("template: syntax error")

	// ErrFieldMissing is returned when a render references names the data
	// does not provide. The concrete error is a *FieldMissingError.
	ErrFieldMissing = errors.New("template: field missing")

	// ErrLinkMissing is returned when an included template does not exist.
	ErrLinkMissing = errors.New("template: link missing")

	// ErrFormat is returned for bad format directives or values they
	// cannot format.
	ErrFormat = errors.New("template: bad format")
)

// FieldMissingError lists every name one render could not resolve. Row
// fields are qualified by their block name, blocks are prefixed with "block ".
type FieldMissingError struct {
	Template string
	Names    []string
}

func (e *FieldMissingError) Error() string {
	return fmt.Sprintf("template: %s: missing %s", e.Template, strings.Join(e.Names, ", "))
}

func (e *FieldMissingError) Unwrap() error { return ErrFieldMissing }

// LinkMissingError names an include that could not be loaded.
type LinkMissingError struct {
	Template string
	Link     string
	Line     int
}

func (e *LinkMissingError) Error() string {
	return fmt.Sprintf("template: %s:%d: include %s not found", e.Template, e.Line, e.Link)
}

func (e *LinkMissingError) Unwrap() error { return ErrLinkMissing }

// parser builds the template AST from the lexer's tokens
type parser struct {
	lex *lexer
}

// Parse parses template text.
func Parse(name, src string) (*Template, error) {
	p := &parser{lex: newLexer(src)}
	nodes, err := p.parseNodes(nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return &Template{Name: name, Nodes: nodes}, nil
}

// parseNodes reads nodes until EOF or, inside a block, its end marker.
func (p *parser) parseNodes(open *token) ([]Node, error) {
	var nodes []Node
	for {
		tok, err := p.lex.next()
		if err != nil {
			return nil, err
		}

		switch tok.kind {
		case tokEOF:
			if open != nil {
				return nil, fmt.Errorf("%w: line %d: block %s is never closed", ErrSyntax, open.line, open.value)
			}
			return nodes, nil

		case tokBlockEnd:
			if open == nil {
				return nil, fmt.Errorf("%w: line %d: block end without a block", ErrSyntax, tok.line)
			}
			return nodes, nil

		case tokBlockStart:
			start := tok
			body, err := p.parseNodes(&start)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, &Block{Name: tok.value, Indent: tok.indent, Body: body, Line: tok.line})

		case tokText:
			nodes = append(nodes, &Text{Value: tok.value})

		case tokScalar:
			nodes = append(nodes, &Field{Name: tok.value, Format: tok.format, Scalar: true, Line: tok.line})

		case tokField:
			nodes = append(nodes, &Field{Name: tok.value, Format: tok.format, Line: tok.line})

		case tokInclude:
			nodes = append(nodes, &Include{Name: tok.value, Line: tok.line})

		default:
			return nil, fmt.Errorf("%w: line %d: unexpected %s", ErrSyntax, tok.line, tok.kind)
		}
	}
}
