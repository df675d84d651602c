package device

import (
	"fmt"
	"strings"

	"github.com/OpenTraceLab/svdgen/pkg/svd"
)

// Access is a register access permission.
type Access int

const (
	ReadOnly Access = iota + 1
	WriteOnly
	ReadWrite
	WriteOnce
	ReadWriteOnce
)

// Permission bits of the 3-bit access code.
const (
	PermRead  uint8 = 0b100
	PermWrite uint8 = 0b010
)

var accessNames = map[string]Access{
	"read-only":      ReadOnly,
	"write-only":     WriteOnly,
	"read-write":     ReadWrite,
	"writeOnce":      WriteOnce,
	"writeonce":      WriteOnce,
	"read-writeOnce": ReadWriteOnce,
	"read-writeonce": ReadWriteOnce,
}

// ParseAccess maps an SVD access string to an Access. Only the CMSIS
// spellings match, with the once forms also accepted in lower case.
func ParseAccess(s string) (Access, error) {
	if a, ok := accessNames[strings.TrimSpace(s)]; ok {
		return a, nil
	}
	return 0, svd.Malformed(svd.KindAccess, "", "%q", s)
}

// Bits returns the 3-bit permission code.
func (a Access) Bits() uint8 {
	switch a {
	case ReadOnly:
		return PermRead
	case WriteOnly, WriteOnce:
		return PermWrite
	case ReadWrite, ReadWriteOnce:
		return PermRead | PermWrite
	}
	return 0
}

func (a Access) String() string {
	switch a {
	case ReadOnly:
		return "read-only"
	case WriteOnly:
		return "write-only"
	case ReadWrite:
		return "read-write"
	case WriteOnce:
		return "writeOnce"
	case ReadWriteOnce:
		return "read-writeOnce"
	}
	return fmt.Sprintf("access(%d)", int(a))
}

// MarshalText renders the SVD spelling.
func (a Access) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}
