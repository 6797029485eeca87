package private

import (
	"bytes"
	"fmt"

	"github.com/kaitai-io/kaitai_struct_go_runtime/kaitai"

	"github.com/ftl/iso8583-parser/iso8583"
)

// tokenStream reads the tokens of a closed sub-field stream. Reading beyond the end of the stream
// results in ErrTruncatedSubfield.
type tokenStream struct {
	stream *kaitai.Stream
	size   int64
}

func newTokenStream(raw string) (*tokenStream, error) {
	data, err := iso8583.HexToBinary(raw)
	if err != nil {
		return nil, err
	}
	return &tokenStream{
		stream: kaitai.NewStream(bytes.NewReader(data)),
		size:   int64(len(data)),
	}, nil
}

func (s *tokenStream) remaining() (int, error) {
	pos, err := s.stream.Pos()
	if err != nil {
		return 0, err
	}
	return int(s.size - pos), nil
}

func (s *tokenStream) eof() bool {
	eof, err := s.stream.EOF()
	return eof || err != nil
}

func (s *tokenStream) readU1(token string) (byte, error) {
	remaining, err := s.remaining()
	if err != nil {
		return 0, err
	}
	if remaining < 1 {
		return 0, fmt.Errorf("%w: missing %s", iso8583.ErrTruncatedSubfield, token)
	}
	return s.stream.ReadU1()
}

func (s *tokenStream) readBytes(token string, n int) ([]byte, error) {
	remaining, err := s.remaining()
	if err != nil {
		return nil, err
	}
	if remaining < n {
		return nil, fmt.Errorf("%w: %s needs %d bytes, but only %d left", iso8583.ErrTruncatedSubfield, token, n, remaining)
	}
	return s.stream.ReadBytes(n)
}
