package msg

import (
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/ftl/iso8583-parser/dict"
	"github.com/ftl/iso8583-parser/iso8583"
)

/* Text related functions */

// textCodecs contains the encoding.Encoding instances used to render text fields.
// Fields with an encoding that is not contained here are rendered as raw hex.
var textCodecs = map[dict.Encoding]encoding.Encoding{
	dict.ASCII:  charmap.ISO8859_1,
	dict.EBCDIC: charmap.CodePage037,
}

// DecodeText renders the raw hex value of a field according to the given encoding.
func DecodeText(raw string, textEncoding dict.Encoding) (string, error) {
	codec, ok := textCodecs[textEncoding]
	if !ok {
		return raw, nil
	}

	bytes, err := iso8583.HexToBinary(raw)
	if err != nil {
		return "", err
	}
	decoded, err := codec.NewDecoder().Bytes(bytes)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}
