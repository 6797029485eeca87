package iso8583

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// MaxField is the highest field number that can be indicated by a primary and a secondary bitmap.
const MaxField = 128

var hexSanitizer = regexp.MustCompile(`[\s"]+`)

// Sanitize removes whitespace and double quotes from a message that was pasted or read from a log.
// The parser itself only accepts pure hex text, so adapters call Sanitize before parsing.
func Sanitize(s string) string {
	return hexSanitizer.ReplaceAllString(s, "")
}

// ValidateHex checks that s is a valid hex string: even length and only hex digits.
func ValidateHex(s string) error {
	if len(s)%2 != 0 {
		return fmt.Errorf("%w: odd length %d", ErrMalformedHex, len(s))
	}
	for i := 0; i < len(s); i++ {
		if !isHexDigit(s[i]) {
			return fmt.Errorf("%w: invalid character %q at position %d", ErrMalformedHex, s[i], i)
		}
	}
	return nil
}

// HexToBinary converts the hex representation of a message or a part of it into a slice of bytes
func HexToBinary(s string) ([]byte, error) {
	if err := ValidateHex(s); err != nil {
		return nil, err
	}
	return hex.DecodeString(s)
}

// BinaryToHex converts a slice of bytes into the upper case hex representation
func BinaryToHex(b []byte) string {
	return strings.ToUpper(hex.EncodeToString(b))
}

// BitPositions returns the 0-based indices of all bits that are set in b. The bytes are scanned in
// order, the bits of each byte most significant bit first.
func BitPositions(b []byte) []int {
	result := make([]int, 0, len(b)*8)
	for i, v := range b {
		for j := 0; j < 8; j++ {
			if v&(0x80>>j) != 0 {
				result = append(result, i*8+j)
			}
		}
	}
	return result
}

func isHexDigit(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

// IsDecimal reports if s is not empty and consists of decimal digits only.
func IsDecimal(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
