package private

import (
	"fmt"
	"strings"

	"github.com/ftl/iso8583-parser/iso8583"
)

// Entry is a single sub-field, tag and value are given as hex text. Entries holds the nested
// sub-fields of a constructed EMV template.
type Entry struct {
	Tag     string  `json:"tag" yaml:"tag"`
	Value   string  `json:"value" yaml:"value"`
	Entries []Entry `json:"entries,omitempty" yaml:"entries,omitempty"`
}

// Text returns the value as printable ASCII, non-printable bytes are replaced by a dot.
func (e Entry) Text() string {
	data, err := iso8583.HexToBinary(e.Value)
	if err != nil {
		return e.Value
	}
	var result strings.Builder
	for _, b := range data {
		if b < ' ' || b > '~' {
			result.WriteByte('.')
		} else {
			result.WriteByte(b)
		}
	}
	return result.String()
}

func (e Entry) String() string {
	return fmt.Sprintf("%s=%s", e.Tag, e.Value)
}

// DecodeTLV splits raw into a sequence of tokens, each consisting of a one byte tag, a one byte
// length and the value.
func DecodeTLV(raw string) ([]Entry, error) {
	stream, err := newTokenStream(raw)
	if err != nil {
		return nil, err
	}

	result := make([]Entry, 0)
	for !stream.eof() {
		tag, err := stream.readU1("tag")
		if err != nil {
			return nil, err
		}
		length, err := stream.readU1("length")
		if err != nil {
			return nil, fmt.Errorf("tag %02X: %w", tag, err)
		}
		value, err := stream.readBytes("value", int(length))
		if err != nil {
			return nil, fmt.Errorf("tag %02X: %w", tag, err)
		}
		result = append(result, Entry{
			Tag:   fmt.Sprintf("%02X", tag),
			Value: iso8583.BinaryToHex(value),
		})
	}
	return result, nil
}

// DecodeLTV splits raw into a sequence of tokens, each consisting of a one byte length, a one byte
// tag and the value.
func DecodeLTV(raw string) ([]Entry, error) {
	stream, err := newTokenStream(raw)
	if err != nil {
		return nil, err
	}

	result := make([]Entry, 0)
	for !stream.eof() {
		length, err := stream.readU1("length")
		if err != nil {
			return nil, err
		}
		tag, err := stream.readU1("tag")
		if err != nil {
			return nil, err
		}
		value, err := stream.readBytes("value", int(length))
		if err != nil {
			return nil, fmt.Errorf("tag %02X: %w", tag, err)
		}
		result = append(result, Entry{
			Tag:   fmt.Sprintf("%02X", tag),
			Value: iso8583.BinaryToHex(value),
		})
	}
	return result, nil
}
