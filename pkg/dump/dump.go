// Package dump writes the loaded description tree or the built device model
// as a structured document, for debugging descriptions and templates.
package dump

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"

	"github.com/OpenTraceLab/svdgen/pkg/device"
	"github.com/OpenTraceLab/svdgen/pkg/svd"
	"github.com/OpenTraceLab/svdgen/pkg/svd/element"
)

// ErrUnknownFormat is returned for a format name Formats does not list.
var ErrUnknownFormat = errors.New("dump: unknown format")

// Format selects the document encoding.
type Format string

const (
	YAML Format = "yaml"
	JSON Format = "json"
	Sexp Format = "sexp"
	CBOR Format = "cbor"
)

// Formats lists the supported format names.
func Formats() []string {
	return []string{string(YAML), string(JSON), string(Sexp), string(CBOR)}
}

// ParseFormat maps a format name to a Format, ignoring case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case YAML, JSON, Sexp, CBOR:
		return f, nil
	}
	return "", fmt.Errorf("%w %q (have %s)", ErrUnknownFormat, s, strings.Join(Formats(), ", "))
}

// Raw writes the normalized element tree of doc. Every leaf is text; list
// tags always hold sequences.
func Raw(w io.Writer, doc *svd.Document, f Format) error {
	tree := map[string]any{doc.Root.Tag: element.ToMap(doc.Root)}
	return write(w, tree, tree, f)
}

// Model writes the built device model. yaml and json use the model's own
// tags; sexp and cbor encode its json form, sexp under a device root.
func Model(w io.Writer, dev *device.Device, f Format) error {
	switch f {
	case YAML, JSON:
		return write(w, dev, nil, f)
	}
	tree, err := generic(dev)
	if err != nil {
		return err
	}
	if f == Sexp {
		tree = map[string]any{"device": tree}
	}
	return write(w, tree, tree, f)
}

// write encodes v; tree is the generic form of v, needed by sexp and cbor.
func write(w io.Writer, v any, tree any, f Format) error {
	var out []byte
	var err error
	switch f {
	case YAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err = enc.Encode(v); err == nil {
			err = enc.Close()
		}
		out = buf.Bytes()
	case JSON:
		out, err = json.MarshalIndent(v, "", "  ")
		out = append(out, '\n')
	case Sexp:
		out, err = encodeSexp(tree)
	case CBOR:
		var em cbor.EncMode
		if em, err = cbor.CoreDetEncOptions().EncMode(); err == nil {
			out, err = em.Marshal(tree)
		}
	default:
		_, err = ParseFormat(string(f))
		return err
	}
	if err != nil {
		return fmt.Errorf("dump: %s: %w", f, err)
	}
	_, err = w.Write(out)
	return err
}

// generic converts v to maps, slices and scalars through its json form.
// Integers stay integers.
func generic(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("dump: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("dump: %w", err)
	}
	return numbers(out), nil
}

func numbers(v any) any {
	switch v := v.(type) {
	case map[string]any:
		for k, e := range v {
			v[k] = numbers(e)
		}
	case []any:
		for i, e := range v {
			v[i] = numbers(e)
		}
	case json.Number:
		if u, err := strconv.ParseUint(v.String(), 10, 64); err == nil {
			return u
		}
		if i, err := v.Int64(); err == nil {
			return i
		}
		f, _ := v.Float64()
		return f
	}
	return v
}
