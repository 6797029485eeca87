package private

import (
	"fmt"
	"strings"

	"github.com/moov-io/bertlv"

	"github.com/ftl/iso8583-parser/iso8583"
)

// DecodeEMV splits raw into the BER-TLV data objects of EMV chip data (EMV Book 3, Annex B).
// Tags may span several bytes, lengths use the short form or the long form with up to two
// subsequent length bytes. The data objects of constructed templates (e.g. 71 or 72 with issuer
// scripts) are given as nested entries.
func DecodeEMV(raw string) ([]Entry, error) {
	stream, err := newTokenStream(raw)
	if err != nil {
		return nil, err
	}
	if err := checkEMVFraming(stream); err != nil {
		return nil, err
	}

	data, err := iso8583.HexToBinary(raw)
	if err != nil {
		return nil, err
	}
	objects, err := bertlv.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", iso8583.ErrTruncatedSubfield, err)
	}
	return emvEntries(objects)
}

func emvEntries(objects []bertlv.TLV) ([]Entry, error) {
	result := make([]Entry, 0, len(objects))
	for _, object := range objects {
		entry := Entry{
			Tag:   strings.ToUpper(object.Tag),
			Value: iso8583.BinaryToHex(object.Value),
		}
		if len(object.TLVs) > 0 {
			value, err := bertlv.Encode(object.TLVs)
			if err != nil {
				return nil, fmt.Errorf("tag %s: %w", entry.Tag, err)
			}
			entry.Value = iso8583.BinaryToHex(value)
			entry.Entries, err = emvEntries(object.TLVs)
			if err != nil {
				return nil, err
			}
		}
		result = append(result, entry)
	}
	return result, nil
}

// checkEMVFraming walks the top level data objects, so that incomplete chip data is reported as
// ErrTruncatedSubfield and unsupported length forms as ErrInvalidLength.
func checkEMVFraming(stream *tokenStream) error {
	for !stream.eof() {
		tag, err := readEMVTag(stream)
		if err != nil {
			return err
		}
		length, err := readEMVLength(stream)
		if err != nil {
			return fmt.Errorf("tag %X: %w", tag, err)
		}
		if _, err := stream.readBytes("value", length); err != nil {
			return fmt.Errorf("tag %X: %w", tag, err)
		}
	}
	return nil
}

func readEMVTag(stream *tokenStream) ([]byte, error) {
	first, err := stream.readU1("tag")
	if err != nil {
		return nil, err
	}
	tag := []byte{first}
	if first&0x1F != 0x1F {
		return tag, nil
	}
	for {
		next, err := stream.readU1("tag")
		if err != nil {
			return nil, err
		}
		tag = append(tag, next)
		if next&0x80 == 0 {
			return tag, nil
		}
	}
}

func readEMVLength(stream *tokenStream) (int, error) {
	first, err := stream.readU1("length")
	if err != nil {
		return 0, err
	}
	if first&0x80 == 0 {
		return int(first), nil
	}

	count := int(first & 0x7F)
	if count == 0 || count > 2 {
		return 0, fmt.Errorf("%w: unsupported length form %02X", iso8583.ErrInvalidLength, first)
	}
	lengthBytes, err := stream.readBytes("length", count)
	if err != nil {
		return 0, err
	}
	result := 0
	for _, b := range lengthBytes {
		result = result<<8 | int(b)
	}
	return result, nil
}
