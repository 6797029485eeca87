package dict

import (
	"fmt"
	"math"
)

// LengthKind distinguishes fixed length fields from fields with a length prefix.
type LengthKind byte

// All supported length kinds
const (
	FixedLength LengthKind = iota
	VariableLength
)

// LengthRule describes how many characters of the message hex text belong to a field.
//
// A fixed rule covers Length data units. A variable rule is preceded by Digits characters that
// contain the decimal number of data units, which must not exceed Max. A data unit is one
// character (a nibble) unless the rule is byte counted, then it is two characters. Packed rules
// pad an odd number of characters with one trailing nibble, so the field occupies whole bytes.
type LengthRule struct {
	Kind   LengthKind
	Length int
	Digits int
	Max    int
	Bytes  bool
	Pad    bool
}

// Fixed returns a rule for a field with exactly n data units.
func Fixed(n int) LengthRule {
	return LengthRule{Kind: FixedLength, Length: n}
}

// Variable returns a rule for a field with a decimal length prefix of the given number of digits.
func Variable(digits, max int) LengthRule {
	return LengthRule{Kind: VariableLength, Digits: digits, Max: max}
}

// ByteCounted returns a copy of the rule that counts its data length in bytes.
func (r LengthRule) ByteCounted() LengthRule {
	r.Bytes = true
	return r
}

// Packed returns a copy of the rule that pads odd character counts to whole bytes.
func (r LengthRule) Packed() LengthRule {
	r.Pad = true
	return r
}

// ByteAligned reports if every value of the rule consists of whole bytes.
func (r LengthRule) ByteAligned() bool {
	return r.Bytes || (r.Kind == FixedLength && r.Length%2 == 0)
}

// Chars returns the number of characters of raw data that n data units occupy.
func (r LengthRule) Chars(n int) int {
	if r.Bytes {
		return 2 * n
	}
	return n
}

// Span returns the number of characters that n data units occupy in the message, including padding.
func (r LengthRule) Span(n int) int {
	chars := r.Chars(n)
	if r.Pad && chars%2 == 1 {
		return chars + 1
	}
	return chars
}

// Validate checks that the rule describes a decodable field.
func (r LengthRule) Validate() error {
	switch r.Kind {
	case FixedLength:
		if r.Length <= 0 {
			return fmt.Errorf("fixed length must be positive, got %d", r.Length)
		}
	case VariableLength:
		if r.Digits < 1 || r.Digits > 4 {
			return fmt.Errorf("length prefix must have 1 to 4 digits, got %d", r.Digits)
		}
		limit := int(math.Pow10(r.Digits)) - 1
		if r.Max <= 0 || r.Max > limit {
			return fmt.Errorf("maximum length of a %d digit prefix must be within 1..%d, got %d", r.Digits, limit, r.Max)
		}
	default:
		return fmt.Errorf("unknown length kind %d", r.Kind)
	}
	return nil
}

func (r LengthRule) String() string {
	unit := ""
	if r.Bytes {
		unit = " bytes"
	}
	switch r.Kind {
	case FixedLength:
		return fmt.Sprintf("fixed %d%s", r.Length, unit)
	case VariableLength:
		return fmt.Sprintf("%sVAR ..%d%s", repeatL(r.Digits), r.Max, unit)
	default:
		return "invalid"
	}
}

func repeatL(n int) string {
	result := make([]byte, n)
	for i := range result {
		result[i] = 'L'
	}
	return string(result)
}
