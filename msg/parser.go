package msg

import (
	"fmt"
	"log/slog"

	"github.com/ftl/iso8583-parser/dict"
	"github.com/ftl/iso8583-parser/iso8583"
	"github.com/ftl/iso8583-parser/private"
)

const (
	headerLengthChars = 4
	mtiChars          = 4
)

// Option configures a Parser.
type Option func(*Parser)

// WithDictionary sets the dictionary that defines the fields. The default is dict.Default().
func WithDictionary(dictionary *dict.Dictionary) Option {
	return func(p *Parser) {
		p.dictionary = dictionary
	}
}

// WithDecoders sets the sub-field decoders. The default is private.NewDecoders(). The parser keeps
// a copy, later changes to the given decoders have no effect.
func WithDecoders(decoders *private.Decoders) Option {
	return func(p *Parser) {
		p.decoders = decoders
	}
}

// WithLogger sets the logger that receives debug information about the decoding.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) {
		p.logger = logger
	}
}

// WithHeaderLength indicates that messages start with a two byte length of the remaining message.
func WithHeaderLength(enabled bool) Option {
	return func(p *Parser) {
		p.headerLength = enabled
	}
}

// WithHeaderBytes sets the number of header bytes that follow the length prefix, e.g. 5 for a TPDU.
// It only applies if the header length is enabled.
func WithHeaderBytes(n int) Option {
	return func(p *Parser) {
		p.headerBytes = n
	}
}

// WithPrivate selects the scheme used to decode the sub-fields of private fields: private.None,
// private.TLV or private.LTV.
func WithPrivate(scheme private.Scheme) Option {
	return func(p *Parser) {
		p.private = scheme
	}
}

// WithEMV enables decoding of EMV chip data fields.
func WithEMV(enabled bool) Option {
	return func(p *Parser) {
		p.emv = enabled
	}
}

// Parser decodes messages. Its configuration cannot be changed after creation, so a
// single parser may be used concurrently.
type Parser struct {
	dictionary   *dict.Dictionary
	decoders     *private.Decoders
	logger       *slog.Logger
	headerLength bool
	headerBytes  int
	private      private.Scheme
	emv          bool
}

// NewParser returns a new parser with the given options.
func NewParser(opts ...Option) (*Parser, error) {
	result := &Parser{
		dictionary: dict.Default(),
		decoders:   private.NewDecoders(),
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(result)
	}

	if result.dictionary == nil {
		return nil, fmt.Errorf("missing dictionary")
	}
	if result.decoders == nil {
		return nil, fmt.Errorf("missing sub-field decoders")
	}
	if result.headerBytes < 0 {
		return nil, fmt.Errorf("number of header bytes must not be negative, got %d", result.headerBytes)
	}
	switch result.private {
	case private.None, private.TLV, private.LTV:
	default:
		return nil, fmt.Errorf("invalid scheme for private fields: %s", result.private)
	}
	result.decoders = result.decoders.Clone()
	return result, nil
}

// PrivateScheme translates the flags for private TLV and LTV decoding into a scheme.
// Both flags together are rejected with ErrConflictingModes.
func PrivateScheme(tlvPrivate, ltvPrivate bool) (private.Scheme, error) {
	switch {
	case tlvPrivate && ltvPrivate:
		return private.None, iso8583.ErrConflictingModes
	case tlvPrivate:
		return private.TLV, nil
	case ltvPrivate:
		return private.LTV, nil
	default:
		return private.None, nil
	}
}

// Parse decodes the given hex text using the default dictionary.
func Parse(message string, includingHeaderLength, tlvPrivate, ltvPrivate bool) (*Message, error) {
	scheme, err := PrivateScheme(tlvPrivate, ltvPrivate)
	if err != nil {
		return nil, err
	}
	parser, err := NewParser(WithHeaderLength(includingHeaderLength), WithPrivate(scheme))
	if err != nil {
		return nil, err
	}
	return parser.Parse(message)
}

// Dictionary returns the dictionary used by the parser.
func (p *Parser) Dictionary() *dict.Dictionary {
	return p.dictionary
}

// Parse decodes the given hex text. The message must be consumed completely, any error aborts
// the decoding and no partial result is returned.
func (p *Parser) Parse(message string) (*Message, error) {
	if err := iso8583.ValidateHex(message); err != nil {
		return nil, err
	}

	result := &Message{}
	cursor := 0
	var err error

	if p.headerLength {
		cursor, err = p.readHeader(message, result)
		if err != nil {
			return nil, err
		}
	}

	if len(message)-cursor < mtiChars {
		return nil, fmt.Errorf("%w: missing MTI", iso8583.ErrTruncatedMessage)
	}
	result.MTI = message[cursor : cursor+mtiChars]
	if !iso8583.IsDecimal(result.MTI) {
		return nil, fmt.Errorf("%w: %q", iso8583.ErrInvalidMTI, result.MTI)
	}
	cursor += mtiChars

	result.Bitmap, cursor, err = readBitmap(message, cursor)
	if err != nil {
		return nil, fmt.Errorf("bitmap: %w", err)
	}
	p.logger.Debug("message header decoded", "mti", result.MTI, "bitmap", result.Bitmap.String())

	ids := result.Bitmap.IDs()
	result.Fields = make([]Field, 0, len(ids))
	for _, id := range ids {
		field, next, err := p.readField(message, cursor, id)
		if err != nil {
			return nil, &iso8583.FieldError{Field: id, Err: err}
		}
		p.logger.Debug("field decoded", "field", id, "position", cursor, "length", field.Length)
		result.Fields = append(result.Fields, field)
		cursor = next
	}

	if cursor < len(message) {
		return nil, fmt.Errorf("%w: %d characters left after the last field: %s", iso8583.ErrTrailingData, len(message)-cursor, message[cursor:])
	}
	return result, nil
}

// readHeader reads the two byte length prefix, validates it against the remaining message and
// keeps the configured number of header bytes.
func (p *Parser) readHeader(message string, result *Message) (int, error) {
	if len(message) < headerLengthChars {
		return 0, fmt.Errorf("%w: missing header length", iso8583.ErrTruncatedMessage)
	}
	lengthBytes, err := iso8583.HexToBinary(message[:headerLengthChars])
	if err != nil {
		return 0, err
	}
	result.Length = int(lengthBytes[0])<<8 | int(lengthBytes[1])

	remaining := len(message) - headerLengthChars
	expected := 2 * result.Length
	switch {
	case remaining < expected:
		return 0, fmt.Errorf("%w: header announces %d bytes, but only %d present", iso8583.ErrTruncatedMessage, result.Length, remaining/2)
	case remaining > expected:
		return 0, fmt.Errorf("%w: header announces %d bytes, but %d present", iso8583.ErrTrailingData, result.Length, remaining/2)
	}

	headerChars := 2 * p.headerBytes
	if remaining < headerChars {
		return 0, fmt.Errorf("%w: header needs %d bytes, but only %d present", iso8583.ErrTruncatedMessage, p.headerBytes, remaining/2)
	}
	result.Header = message[headerLengthChars : headerLengthChars+headerChars]

	return headerLengthChars + headerChars, nil
}

func (p *Parser) readField(message string, cursor int, id int) (Field, int, error) {
	definition, ok := p.dictionary.DefinitionFor(id)
	if !ok {
		return Field{}, cursor, iso8583.ErrUnknownField
	}

	raw, next, err := Extract(message, cursor, definition.Rule)
	if err != nil {
		return Field{}, cursor, err
	}

	value, err := DecodeText(raw, definition.Encoding)
	if err != nil {
		return Field{}, cursor, fmt.Errorf("%s value: %w", definition.Encoding, err)
	}

	result := Field{
		ID:     id,
		Name:   p.dictionary.Name(id),
		Length: len(raw),
		Raw:    raw,
		Value:  value,
	}
	if definition.Rule.Bytes {
		result.Length = len(raw) / 2
	}

	scheme := private.None
	switch {
	case definition.Private && p.private != private.None:
		scheme = p.private
	case definition.EMV && p.emv:
		scheme = private.EMV
	}
	if scheme != private.None {
		result.Subfields, err = p.decoders.Decode(scheme, raw)
		if err != nil {
			return Field{}, cursor, fmt.Errorf("%s sub-fields: %w", scheme, err)
		}
	}

	return result, next, nil
}
