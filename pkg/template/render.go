package template

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

const maxIncludeDepth = 32

// Data is what a template renders against. Fields answer scalars and row
// fields, Blocks hold the rows of each block.
type Data struct {
	Fields map[string]string
	Blocks map[string][]Data
}

// Set stores a field value. Non-string values are formatted with fmt.Sprint.
func (d *Data) Set(name string, value any) {
	if d.Fields == nil {
		d.Fields = make(map[string]string)
	}
	switch v := value.(type) {
	case string:
		d.Fields[name] = v
	default:
		d.Fields[name] = fmt.Sprint(v)
	}
}

// Add appends a row to the named block.
func (d *Data) Add(block string, row Data) {
	if d.Blocks == nil {
		d.Blocks = make(map[string][]Data)
	}
	d.Blocks[block] = append(d.Blocks[block], row)
}

// Rows declares a block, possibly with no rows.
func (d *Data) Rows(block string, rows ...Data) {
	if d.Blocks == nil {
		d.Blocks = make(map[string][]Data)
	}
	d.Blocks[block] = append(d.Blocks[block], rows...)
}

// Loader resolves an include name to a parsed template. A loader reports a
// missing template with an error matching fs.ErrNotExist.
type Loader func(name string) (*Template, error)

// Render renders t against data. Templates with includes need RenderWith.
func (t *Template) Render(data Data) (string, error) {
	return t.RenderWith(data, nil)
}

// RenderWith renders t, resolving includes through load. All missing names
// of the render are collected into one *FieldMissingError.
func (t *Template) RenderWith(data Data, load Loader) (string, error) {
	r := &renderer{root: t.Name, load: load, missing: make(map[string]bool)}
	var b strings.Builder
	if err := r.render(t, []frame{{data: data}}, &b); err != nil {
		return "", err
	}
	if len(r.missing) > 0 {
		names := make([]string, 0, len(r.missing))
		for n := range r.missing {
			names = append(names, n)
		}
		sort.Strings(names)
		return "", &FieldMissingError{Template: t.Name, Names: names}
	}
	return b.String(), nil
}

type frame struct {
	block string
	data  Data
}

type renderer struct {
	root    string
	load    Loader
	missing map[string]bool
	depth   int
}

func (r *renderer) render(t *Template, scope []frame, b *strings.Builder) error {
	return r.nodes(t, t.Nodes, scope, b)
}

func (r *renderer) nodes(t *Template, nodes []Node, scope []frame, b *strings.Builder) error {
	for _, n := range nodes {
		switch n := n.(type) {
		case *Text:
			b.WriteString(n.Value)

		case *Field:
			value, ok := r.lookup(n, scope)
			if !ok {
				continue
			}
			out, err := FormatValue(value, n.Format)
			if err != nil {
				return fmt.Errorf("%s:%d: %s: %w", t.Name, n.Line, n.Name, err)
			}
			b.WriteString(out)

		case *Block:
			rows, ok := blockRows(n.Name, scope)
			if !ok {
				r.missing["block "+n.Name] = true
				continue
			}
			var body strings.Builder
			for _, row := range rows {
				inner := append(scope[:len(scope):len(scope)], frame{block: n.Name, data: row})
				if err := r.nodes(t, n.Body, inner, &body); err != nil {
					return err
				}
			}
			if out := strings.TrimLeft(body.String(), " \t\r\n"); out != "" {
				b.WriteString(n.Indent)
				b.WriteString(out)
			}

		case *Include:
			out, err := r.include(t, n, scope[len(scope)-1].data)
			if err != nil {
				return err
			}
			b.WriteString(strings.TrimLeft(out, " \t\r\n"))
		}
	}
	return nil
}

// lookup resolves scalars against the outermost data and row fields from
// the innermost row outward.
func (r *renderer) lookup(f *Field, scope []frame) (string, bool) {
	if f.Scalar {
		v, ok := scope[0].data.Fields[f.Name]
		if !ok {
			r.missing[f.Name] = true
		}
		return v, ok
	}
	for i := len(scope) - 1; i >= 0; i-- {
		if v, ok := scope[i].data.Fields[f.Name]; ok {
			return v, true
		}
	}
	r.missing[scope[len(scope)-1].block+"."+f.Name] = true
	return "", false
}

func blockRows(name string, scope []frame) ([]Data, bool) {
	for i := len(scope) - 1; i >= 0; i-- {
		if rows, ok := scope[i].data.Blocks[name]; ok {
			return rows, true
		}
	}
	return nil, false
}

func (r *renderer) include(t *Template, inc *Include, row Data) (string, error) {
	link := path.Join(path.Dir(t.Name), inc.Name)
	missing := &LinkMissingError{Template: t.Name, Link: link, Line: inc.Line}
	if r.load == nil {
		return "", missing
	}
	if r.depth >= maxIncludeDepth {
		return "", fmt.Errorf("%w: %s:%d: includes nested deeper than %d", ErrSyntax, t.Name, inc.Line, maxIncludeDepth)
	}

	sub, err := r.load(link)
	if errors.Is(err, fs.ErrNotExist) {
		return "", missing
	}
	if err != nil {
		return "", err
	}

	r.depth++
	defer func() { r.depth-- }()
	var b strings.Builder
	if err := r.render(sub, []frame{{block: inc.Name, data: row}}, &b); err != nil {
		return "", err
	}
	return b.String(), nil
}
