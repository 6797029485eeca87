package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"google.golang.org/protobuf/encoding/protodelim"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
	"gopkg.in/yaml.v3"

	"github.com/ftl/iso8583-parser/dict"
	"github.com/ftl/iso8583-parser/iso8583"
	"github.com/ftl/iso8583-parser/msg"
	"github.com/ftl/iso8583-parser/private"
)

// FormatByName returns the Format with the given name
func FormatByName(name string) (Format, error) {
	sanitized := strings.ToUpper(strings.TrimSpace(name))
	result, ok := FormatsByName[sanitized]
	if !ok {
		return 0, fmt.Errorf("invalid output format %s", name)
	}
	return result, nil
}

// Format represents an output format for decoded messages
type Format byte

func (f Format) String() string {
	for k, v := range FormatsByName {
		if v == f {
			return strings.ToLower(k)
		}
	}
	return "unknown"
}

// All supported output formats
const (
	Text Format = iota
	JSON
	YAML
	ProtoJSON
	Proto
)

// FormatsByName maps all supported output formats by their string representation
var FormatsByName = map[string]Format{
	"TEXT":      Text,
	"JSON":      JSON,
	"YAML":      YAML,
	"PROTOJSON": ProtoJSON,
	"PROTO":     Proto,
}

func structuredEntries(entries []private.Entry) []any {
	result := make([]any, 0, len(entries))
	for _, e := range entries {
		entry := map[string]any{
			"tag":   e.Tag,
			"value": e.Value,
		}
		if len(e.Entries) > 0 {
			entry["entries"] = structuredEntries(e.Entries)
		}
		result = append(result, entry)
	}
	return result
}

// Structured converts a message into a tree of maps and lists that can be serialized by any
// of the supported formats.
func Structured(m *msg.Message) map[string]any {
	fields := make([]any, 0, len(m.Fields))
	for _, f := range m.Fields {
		field := map[string]any{
			"id":     f.ID,
			"name":   f.Name,
			"length": f.Length,
			"raw":    f.Raw,
			"value":  f.Value,
		}
		if f.Subfields != nil {
			field["subfields"] = structuredEntries(f.Subfields)
		}
		fields = append(fields, field)
	}

	ids := make([]any, 0, len(m.Fields))
	for _, id := range m.IDs() {
		ids = append(ids, id)
	}

	result := map[string]any{
		"mti":       m.MTI,
		"bitmap":    m.Bitmap.String(),
		"field_ids": ids,
		"fields":    fields,
	}
	if m.Length > 0 {
		result["length"] = m.Length
	}
	if m.Header != "" {
		result["header"] = m.Header
	}
	return result
}

// Render writes the given message in the given format.
func Render(w io.Writer, m *msg.Message, format Format) error {
	if format == Text {
		return renderText(w, m)
	}
	return renderStructured(w, Structured(m), format)
}

// RenderError writes the given decoding error in the given format.
func RenderError(w io.Writer, err error, format Format) error {
	if format == Text {
		_, werr := fmt.Fprintf(w, "Error: %v\n", err)
		return werr
	}
	result := map[string]any{
		"error": err.Error(),
		"kind":  iso8583.Kind(err),
	}
	if field, ok := iso8583.FieldOf(err); ok {
		result["field"] = field
	}
	return renderStructured(w, result, format)
}

// RenderFields writes the number and name of all fields of the given dictionary.
func RenderFields(w io.Writer, dictionary *dict.Dictionary, format Format) error {
	if format == Text {
		for _, entry := range dictionary.Entries() {
			if _, err := fmt.Fprintf(w, "%3d %s\n", entry.ID, entry.Name); err != nil {
				return err
			}
		}
		return nil
	}

	entries := make([]any, 0, dictionary.Len())
	for _, entry := range dictionary.Entries() {
		entries = append(entries, map[string]any{"id": entry.ID, "name": entry.Name})
	}
	return renderStructured(w, map[string]any{"fields": entries}, format)
}

func renderStructured(w io.Writer, value map[string]any, format Format) error {
	switch format {
	case JSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(value)
	case YAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(value); err != nil {
			return err
		}
		return encoder.Close()
	case ProtoJSON, Proto:
		s, err := structpb.NewStruct(value)
		if err != nil {
			return fmt.Errorf("cannot convert to protobuf: %w", err)
		}
		if format == Proto {
			_, err = protodelim.MarshalTo(w, s)
			return err
		}
		b, err := protojson.MarshalOptions{Multiline: true}.Marshal(s)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", b)
		return err
	default:
		return fmt.Errorf("unsupported output format %s", format)
	}
}
