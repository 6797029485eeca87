package msg

import (
	"fmt"
	"strconv"

	"github.com/ftl/iso8583-parser/dict"
	"github.com/ftl/iso8583-parser/iso8583"
)

// Extract reads the field at the cursor position of the hex text according to the given rule.
// It returns the raw value of the field without length prefix and padding, and the position
// of the next field.
func Extract(data string, cursor int, rule dict.LengthRule) (string, int, error) {
	var length int
	switch rule.Kind {
	case dict.FixedLength:
		length = rule.Length
	case dict.VariableLength:
		if len(data)-cursor < rule.Digits {
			return "", cursor, fmt.Errorf("%w: length prefix needs %d characters, but only %d left", iso8583.ErrTruncatedMessage, rule.Digits, len(data)-cursor)
		}
		prefix := data[cursor : cursor+rule.Digits]
		if !iso8583.IsDecimal(prefix) {
			return "", cursor, fmt.Errorf("%w: length prefix %q is not numeric", iso8583.ErrInvalidLength, prefix)
		}
		length, _ = strconv.Atoi(prefix)
		if length > rule.Max {
			return "", cursor, fmt.Errorf("%w: %d exceeds the maximum of %d", iso8583.ErrInvalidLength, length, rule.Max)
		}
		cursor += rule.Digits
	default:
		return "", cursor, fmt.Errorf("unknown length kind %d", rule.Kind)
	}

	span := rule.Span(length)
	if len(data)-cursor < span {
		return "", cursor, fmt.Errorf("%w: %d characters needed, but only %d left", iso8583.ErrTruncatedMessage, span, len(data)-cursor)
	}

	return data[cursor : cursor+rule.Chars(length)], cursor + span, nil
}
