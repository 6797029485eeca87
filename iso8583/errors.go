package iso8583

import (
	"errors"
	"fmt"
)

// The error taxonomy of the decoder. Every error returned by the parser wraps exactly one of these.
var (
	ErrMalformedHex      = errors.New("malformed hex")
	ErrInvalidMTI        = errors.New("invalid MTI")
	ErrTruncatedMessage  = errors.New("truncated message")
	ErrTrailingData      = errors.New("trailing data")
	ErrInvalidLength     = errors.New("invalid length")
	ErrUnknownField      = errors.New("unknown field")
	ErrTruncatedSubfield = errors.New("truncated subfield")
	ErrConflictingModes  = errors.New("private TLV and LTV decoding are mutually exclusive")
)

// FieldError attaches the number of the field that could not be decoded to an error.
type FieldError struct {
	Field int
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %d: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// Kind returns the name of the taxonomy entry that err belongs to, or "unknown".
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMalformedHex):
		return "malformed_hex"
	case errors.Is(err, ErrInvalidMTI):
		return "invalid_mti"
	case errors.Is(err, ErrTruncatedMessage):
		return "truncated_message"
	case errors.Is(err, ErrTrailingData):
		return "trailing_data"
	case errors.Is(err, ErrInvalidLength):
		return "invalid_length"
	case errors.Is(err, ErrUnknownField):
		return "unknown_field"
	case errors.Is(err, ErrTruncatedSubfield):
		return "truncated_subfield"
	case errors.Is(err, ErrConflictingModes):
		return "conflicting_modes"
	default:
		return "unknown"
	}
}

// FieldOf returns the number of the field that caused err, if any.
func FieldOf(err error) (int, bool) {
	var fieldErr *FieldError
	if errors.As(err, &fieldErr) {
		return fieldErr.Field, true
	}
	return 0, false
}
