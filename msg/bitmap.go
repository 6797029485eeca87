package msg

import (
	"fmt"
	"slices"

	"github.com/ftl/iso8583-parser/iso8583"
)

const (
	bitmapBytes = 8
	bitmapChars = 2 * bitmapBytes
)

// Bitmap is the set of fields present in a message.
type Bitmap struct {
	ids       []int
	secondary bool
	raw       []byte
}

// DecodeBitmap interprets the primary bitmap at the start of b and, if it indicates so or
// forceSecondary is set, the following secondary bitmap. It returns the bitmap and the number
// of bytes that were consumed. Field 1 only signals the secondary bitmap and is never reported.
func DecodeBitmap(b []byte, forceSecondary bool) (Bitmap, int, error) {
	if len(b) < bitmapBytes {
		return Bitmap{}, 0, fmt.Errorf("%w: primary bitmap needs %d bytes, but only %d left", iso8583.ErrTruncatedMessage, bitmapBytes, len(b))
	}

	positions := iso8583.BitPositions(b[:bitmapBytes])
	secondary := forceSecondary || (len(positions) > 0 && positions[0] == 0)
	consumed := bitmapBytes

	if secondary {
		if len(b) < 2*bitmapBytes {
			return Bitmap{}, 0, fmt.Errorf("%w: secondary bitmap needs %d bytes, but only %d left", iso8583.ErrTruncatedMessage, bitmapBytes, len(b)-bitmapBytes)
		}
		for _, position := range iso8583.BitPositions(b[bitmapBytes : 2*bitmapBytes]) {
			positions = append(positions, position+64)
		}
		consumed += bitmapBytes
	}

	ids := make([]int, 0, len(positions))
	for _, position := range positions {
		if position == 0 {
			continue
		}
		ids = append(ids, position+1)
	}

	return Bitmap{
		ids:       ids,
		secondary: secondary,
		raw:       slices.Clone(b[:consumed]),
	}, consumed, nil
}

// IDs returns the numbers of all present fields in ascending order.
func (b Bitmap) IDs() []int {
	return slices.Clone(b.ids)
}

// Has reports if the given field is present.
func (b Bitmap) Has(id int) bool {
	_, found := slices.BinarySearch(b.ids, id)
	return found
}

// Secondary reports if the bitmap includes a secondary bitmap.
func (b Bitmap) Secondary() bool {
	return b.secondary
}

// String returns the hex representation of the bitmap as it appeared in the message.
func (b Bitmap) String() string {
	return iso8583.BinaryToHex(b.raw)
}

// readBitmap converts the bitmap at the cursor position of the hex text and decodes it.
func readBitmap(data string, cursor int) (Bitmap, int, error) {
	available := len(data) - cursor
	chars := min(2*bitmapChars, available-available%2)

	b, err := iso8583.HexToBinary(data[cursor : cursor+chars])
	if err != nil {
		return Bitmap{}, cursor, err
	}
	result, consumed, err := DecodeBitmap(b, false)
	if err != nil {
		return Bitmap{}, cursor, err
	}
	return result, cursor + 2*consumed, nil
}
