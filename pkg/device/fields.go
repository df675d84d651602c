package device

import (
	"fmt"
	"sort"

	"github.com/OpenTraceLab/svdgen/pkg/svd"
)

// FillFields sorts fields by bit offset and pads every gap, including the
// space above the last field, with reserved fields so the widths sum to 32.
func FillFields(path string, fields []Field) ([]Field, error) {
	sorted := append([]Field(nil), fields...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].BitOffset < sorted[j].BitOffset
	})

	var out []Field
	var cursor uint64
	for _, f := range sorted {
		if f.BitWidth == 0 {
			return nil, svd.Malformed(svd.KindBitRange, path+"."+f.Name, "zero width")
		}
		if f.BitOffset+f.BitWidth > RegisterBits {
			return nil, svd.Malformed(svd.KindFieldOverflow, path+"."+f.Name,
				"bits %d..%d", f.BitOffset, f.BitOffset+f.BitWidth-1)
		}
		if f.BitOffset < cursor {
			return nil, svd.Malformed(svd.KindFieldOverlap, path+"."+f.Name,
				"starts at bit %d inside the previous field", f.BitOffset)
		}
		if f.BitOffset > cursor {
			out = append(out, reserved(cursor, f.BitOffset-cursor))
		}
		out = append(out, f)
		cursor = f.BitOffset + f.BitWidth
	}
	if cursor < RegisterBits {
		out = append(out, reserved(cursor, RegisterBits-cursor))
	}
	return out, nil
}

func reserved(offset, width uint64) Field {
	return Field{
		Name:      fmt.Sprintf("reserved%d", offset),
		BitOffset: offset,
		BitWidth:  width,
		Reserved:  true,
	}
}
