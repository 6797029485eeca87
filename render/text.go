package render

import (
	"fmt"
	"io"

	"github.com/ftl/iso8583-parser/msg"
	"github.com/ftl/iso8583-parser/private"
)

func renderText(w io.Writer, m *msg.Message) error {
	out := &textWriter{w: w}
	if m.Length > 0 {
		out.printf("Length: %d\n", m.Length)
	}
	if m.Header != "" {
		out.printf("Header: %s\n", m.Header)
	}
	out.printf("MTI: %s\n", m.MTI)
	out.printf("Bitmap: %s %v\n", m.Bitmap, m.IDs())
	for _, f := range m.Fields {
		out.printf("Field %3d | Length: %3d| %-25s | %s\n", f.ID, f.Length, f.Name, f.Value)
		out.entries(f.Subfields, "")
	}
	out.printf("\n")
	return out.err
}

func (t *textWriter) entries(entries []private.Entry, indent string) {
	for _, e := range entries {
		if len(e.Entries) > 0 {
			t.printf("          | %s%-6s\n", indent, e.Tag)
			t.entries(e.Entries, indent+"  ")
			continue
		}
		t.printf("          | %s%-6s %s (%s)\n", indent, e.Tag, e.Value, e.Text())
	}
}

// textWriter keeps the first write error, so the text format can be written without checking every line.
type textWriter struct {
	w   io.Writer
	err error
}

func (t *textWriter) printf(format string, args ...any) {
	if t.err != nil {
		return
	}
	_, t.err = fmt.Fprintf(t.w, format, args...)
}
