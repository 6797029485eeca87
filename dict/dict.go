package dict

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/ftl/iso8583-parser/iso8583"
)

// Encoding describes how the raw hex of a field is rendered for display.
type Encoding byte

// All supported field encodings
const (
	BCD Encoding = iota
	ASCII
	EBCDIC
	Binary
)

// EncodingsByName maps all supported encodings by their string representation
var EncodingsByName = map[string]Encoding{
	"BCD":    BCD,
	"ASCII":  ASCII,
	"EBCDIC": EBCDIC,
	"BINARY": Binary,
}

// EncodingByName returns the Encoding with the given name
func EncodingByName(name string) (Encoding, error) {
	sanitized := strings.ToUpper(strings.TrimSpace(name))
	if sanitized == "" {
		return BCD, nil
	}
	result, ok := EncodingsByName[sanitized]
	if !ok {
		return 0, fmt.Errorf("invalid field encoding %s", name)
	}
	return result, nil
}

func (e Encoding) String() string {
	for k, v := range EncodingsByName {
		if v == e {
			return k
		}
	}
	return "UNKNOWN"
}

// Definition describes a single field of an ISO8583 message.
type Definition struct {
	ID       int
	Name     string
	Rule     LengthRule
	Encoding Encoding

	// Private marks fields that may carry private TLV or LTV sub-fields.
	Private bool
	// EMV marks fields that carry BER-TLV encoded chip data.
	EMV bool
}

// Validate checks the field number, the length rule and that text encoded fields always hold
// whole bytes.
func (d Definition) Validate() error {
	if d.ID < 2 || d.ID > iso8583.MaxField {
		return fmt.Errorf("field number must be within 2..%d, got %d", iso8583.MaxField, d.ID)
	}
	if err := d.Rule.Validate(); err != nil {
		return fmt.Errorf("field %d: %w", d.ID, err)
	}
	if (d.Encoding == ASCII || d.Encoding == EBCDIC) && !d.Rule.ByteAligned() {
		return fmt.Errorf("field %d: %s text needs whole bytes, but the length is %s", d.ID, d.Encoding, d.Rule)
	}
	return nil
}

// Entry is the read-only view of a definition that is exported for display.
type Entry struct {
	ID   int    `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Dictionary is an immutable table of field definitions. It is safe for concurrent use.
type Dictionary struct {
	definitions map[int]Definition
	ids         []int
}

// New creates a dictionary from the given definitions.
func New(definitions ...Definition) (*Dictionary, error) {
	result := &Dictionary{
		definitions: make(map[int]Definition, len(definitions)),
		ids:         make([]int, 0, len(definitions)),
	}
	for _, d := range definitions {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if _, ok := result.definitions[d.ID]; ok {
			return nil, fmt.Errorf("field %d is defined twice", d.ID)
		}
		result.definitions[d.ID] = d
		result.ids = append(result.ids, d.ID)
	}
	slices.Sort(result.ids)
	return result, nil
}

// DefinitionFor returns the definition of the given field.
func (d *Dictionary) DefinitionFor(id int) (Definition, bool) {
	result, ok := d.definitions[id]
	return result, ok
}

// Name returns the name of the given field, or its number if the field is unknown or has no name.
func (d *Dictionary) Name(id int) string {
	definition, ok := d.definitions[id]
	if !ok || definition.Name == "" {
		return strconv.Itoa(id)
	}
	return definition.Name
}

// Entries returns the number and name of all defined fields in ascending order.
func (d *Dictionary) Entries() []Entry {
	result := make([]Entry, 0, len(d.ids))
	for _, id := range d.ids {
		result = append(result, Entry{ID: id, Name: d.Name(id)})
	}
	return result
}

// Definitions returns all definitions in ascending order of their field number.
func (d *Dictionary) Definitions() []Definition {
	result := make([]Definition, 0, len(d.ids))
	for _, id := range d.ids {
		result = append(result, d.definitions[id])
	}
	return result
}

// Len returns the number of defined fields.
func (d *Dictionary) Len() int {
	return len(d.ids)
}
