package svd

import (
	"errors"
	"fmt"
)

var (
	// ErrInputNotFound is returned when the description path does not name a file.
	ErrInputNotFound = errors.New("svd: input not found")

	// ErrMalformedDocument is returned for content that is not well-formed XML.
	ErrMalformedDocument = errors.New("svd: malformed document")

	// ErrMalformedDescription is returned for well-formed documents that do
	// not describe a usable device. The concrete error is a *DescriptionError.
	ErrMalformedDescription = errors.New("svd: malformed description")
)

// Kind classifies a malformed description.
type Kind int

const (
	KindBitRange Kind = iota + 1
	KindDerivation
	KindAccess
	KindFieldOverflow
	KindFieldOverlap
	KindEmptyCluster
	KindNestedCluster
	KindGroupConflict
	KindNumber
	KindMissingElement
	KindDimIndex
)

var kindNames = map[Kind]string{
	KindBitRange:       "bit range",
	KindDerivation:     "unresolvable derivation",
	KindAccess:         "unknown access",
	KindFieldOverflow:  "field exceeds 32 bits",
	KindFieldOverlap:   "overlapping fields",
	KindEmptyCluster:   "empty cluster",
	KindNestedCluster:  "nested cluster",
	KindGroupConflict:  "conflicting group definitions",
	KindNumber:         "bad number",
	KindMissingElement: "missing element",
	KindDimIndex:       "bad dimIndex",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// DescriptionError is the concrete MalformedDescription error.
type DescriptionError struct {
	Kind Kind
	Path string // dotted location, e.g. TIMER.CTRL.EN
	Msg  string
}

func (e *DescriptionError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("svd: %s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("svd: %s: %s: %s", e.Kind, e.Path, e.Msg)
}

func (e *DescriptionError) Unwrap() error { return ErrMalformedDescription }

// Malformed builds a *DescriptionError.
func Malformed(kind Kind, path, format string, args ...any) error {
	return &DescriptionError{Kind: kind, Path: path, Msg: fmt.Sprintf(format, args...)}
}

// IsKind reports whether err is a malformed description of the given kind.
func IsKind(err error, kind Kind) bool {
	var de *DescriptionError
	return errors.As(err, &de) && de.Kind == kind
}
