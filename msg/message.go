package msg

import (
	"log/slog"

	"github.com/ftl/iso8583-parser/private"
)

// Message is a decoded ISO8583 message.
type Message struct {
	// Length is the message length in bytes as announced by the header length prefix, if present.
	Length int
	// Header contains the hex text of the header bytes that follow the length prefix, e.g. a TPDU.
	Header string
	MTI    string
	Bitmap Bitmap
	Fields []Field
}

// Field is a decoded field of a message.
type Field struct {
	ID   int
	Name string
	// Length is the number of data units as given by the length prefix or the fixed length.
	Length int
	// Raw is the hex text of the field without length prefix and padding.
	Raw string
	// Value is the display text of the field according to its encoding.
	Value     string
	Subfields []private.Entry
}

// Field returns the field with the given number, if present.
func (m *Message) Field(id int) (Field, bool) {
	for _, f := range m.Fields {
		if f.ID == id {
			return f, true
		}
	}
	return Field{}, false
}

// IDs returns the numbers of all fields of the message in ascending order.
func (m *Message) IDs() []int {
	return m.Bitmap.IDs()
}

func (m *Message) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("mti", m.MTI),
		slog.String("bitmap", m.Bitmap.String()),
		slog.Any("fields", m.IDs()),
	)
}
