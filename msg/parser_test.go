package msg

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ftl/iso8583-parser/dict"
	"github.com/ftl/iso8583-parser/iso8583"
	"github.com/ftl/iso8583-parser/private"
)

const (
	panOnlyMessage = "0200" + "4000000000000000" + "06" + "123456"

	purchaseMessage = "0200" +
		"3020000008818000" +
		"000000" +
		"000000001000" +
		"123456" +
		"313233343536373839303132" +
		"5445524D30303031" +
		"0009" + "0103ABCDEF0202CAFE" +
		"393738"

	emvMessage = "0200" + "0000000000000200" + "0013" + "9F020600000000100082021980"

	secondaryMessage = "0800" + "C000000000000000" + "0000000000000001" + "06123456" + "0102030405060708"
)

func TestParse_PANOnly(t *testing.T) {
	actual, err := Parse(panOnlyMessage, false, false, false)
	require.NoError(t, err)

	assert.Equal(t, "0200", actual.MTI)
	assert.Equal(t, []int{2}, actual.IDs())
	require.Len(t, actual.Fields, 1)
	assert.Equal(t, "123456", actual.Fields[0].Raw)
	assert.Equal(t, "Primary account number", actual.Fields[0].Name)
}

func TestParse_Purchase(t *testing.T) {
	expected := &Message{
		MTI: "0200",
		Fields: []Field{
			{ID: 3, Name: "Processing code", Length: 6, Raw: "000000", Value: "000000"},
			{ID: 4, Name: "Amount, transaction", Length: 12, Raw: "000000001000", Value: "000000001000"},
			{ID: 11, Name: "System trace audit number", Length: 6, Raw: "123456", Value: "123456"},
			{ID: 37, Name: "Retrieval reference number", Length: 12, Raw: "313233343536373839303132", Value: "123456789012"},
			{ID: 41, Name: "Card acceptor terminal identification", Length: 8, Raw: "5445524D30303031", Value: "TERM0001"},
			{
				ID: 48, Name: "Additional data (private)", Length: 9, Raw: "0103ABCDEF0202CAFE", Value: "0103ABCDEF0202CAFE",
				Subfields: []private.Entry{{Tag: "01", Value: "ABCDEF"}, {Tag: "02", Value: "CAFE"}},
			},
			{ID: 49, Name: "Currency code, transaction", Length: 3, Raw: "393738", Value: "978"},
		},
	}

	actual, err := Parse(purchaseMessage, false, true, false)
	require.NoError(t, err)

	if diff := cmp.Diff(expected, actual, cmpopts.IgnoreFields(Message{}, "Bitmap")); diff != "" {
		t.Errorf("unexpected message (-want +got):\n%s", diff)
	}
	assert.Equal(t, []int{3, 4, 11, 37, 41, 48, 49}, actual.IDs())
	assert.Equal(t, "3020000008818000", actual.Bitmap.String())
}

func TestParse_PrivateOnlyOnDesignatedFields(t *testing.T) {
	actual, err := Parse(purchaseMessage, false, false, false)
	require.NoError(t, err)

	for _, field := range actual.Fields {
		assert.Nil(t, field.Subfields, "field %d", field.ID)
	}

	actual, err = Parse(purchaseMessage, false, true, false)
	require.NoError(t, err)
	for _, field := range actual.Fields {
		if field.ID == 48 {
			assert.Len(t, field.Subfields, 2)
		} else {
			assert.Nil(t, field.Subfields, "field %d", field.ID)
		}
	}
}

func TestParse_HeaderLength(t *testing.T) {
	actual, err := Parse("000E"+panOnlyMessage, true, false, false)
	require.NoError(t, err)

	assert.Equal(t, 14, actual.Length)
	assert.Equal(t, "", actual.Header)
	assert.Equal(t, "0200", actual.MTI)

	_, err = Parse("000E"+panOnlyMessage, false, false, false)
	assert.Error(t, err)
}

func TestParser_HeaderBytes(t *testing.T) {
	parser, err := NewParser(WithHeaderLength(true), WithHeaderBytes(5))
	require.NoError(t, err)

	actual, err := parser.Parse("0013" + "6000010000" + panOnlyMessage)
	require.NoError(t, err)

	assert.Equal(t, 19, actual.Length)
	assert.Equal(t, "6000010000", actual.Header)
	assert.Equal(t, []int{2}, actual.IDs())
}

func TestParser_SecondaryBitmap(t *testing.T) {
	actual, err := Parse(secondaryMessage, false, false, false)
	require.NoError(t, err)

	assert.Equal(t, "0800", actual.MTI)
	assert.True(t, actual.Bitmap.Secondary())
	assert.Equal(t, []int{2, 128}, actual.IDs())
	mac, ok := actual.Field(128)
	require.True(t, ok)
	assert.Equal(t, "0102030405060708", mac.Raw)
	_, ok = actual.Field(1)
	assert.False(t, ok)
}

func TestParser_EMV(t *testing.T) {
	parser, err := NewParser(WithEMV(true))
	require.NoError(t, err)

	actual, err := parser.Parse(emvMessage)
	require.NoError(t, err)

	icc, ok := actual.Field(55)
	require.True(t, ok)
	assert.Equal(t, []private.Entry{{Tag: "9F02", Value: "000000001000"}, {Tag: "82", Value: "1980"}}, icc.Subfields)

	actual, err = Parse(emvMessage, false, false, false)
	require.NoError(t, err)
	icc, _ = actual.Field(55)
	assert.Nil(t, icc.Subfields)
}

func TestParse_Errors(t *testing.T) {
	tt := []struct {
		desc                  string
		message               string
		includingHeaderLength bool
		tlv                   bool
		ltv                   bool
		expectedErr           error
		expectedField         int
	}{
		{desc: "empty", message: "", expectedErr: iso8583.ErrTruncatedMessage},
		{desc: "short MTI", message: "02", expectedErr: iso8583.ErrTruncatedMessage},
		{desc: "odd length", message: "020", expectedErr: iso8583.ErrMalformedHex},
		{desc: "whitespace", message: "0200 4000000000000000", expectedErr: iso8583.ErrMalformedHex},
		{desc: "invalid MTI", message: "02A04000000000000000", expectedErr: iso8583.ErrInvalidMTI},
		{desc: "missing bitmap", message: "0200", expectedErr: iso8583.ErrTruncatedMessage},
		{desc: "truncated field", message: "0200" + "4000000000000000" + "06" + "1234", expectedErr: iso8583.ErrTruncatedMessage, expectedField: 2},
		{desc: "trailing data", message: panOnlyMessage + "00", expectedErr: iso8583.ErrTrailingData},
		{desc: "invalid length", message: "0200" + "4000000000000000" + "AB" + "123456", expectedErr: iso8583.ErrInvalidLength, expectedField: 2},
		{desc: "PAN too long", message: "0200" + "4000000000000000" + "20" + strings.Repeat("1", 20), expectedErr: iso8583.ErrInvalidLength, expectedField: 2},
		{desc: "unknown field", message: "0200" + "0100000000000000" + "12345678", expectedErr: iso8583.ErrUnknownField, expectedField: 8},
		{desc: "truncated subfield", message: purchaseMessage, ltv: true, expectedErr: iso8583.ErrTruncatedSubfield, expectedField: 48},
		{desc: "conflicting modes", message: panOnlyMessage, tlv: true, ltv: true, expectedErr: iso8583.ErrConflictingModes},
		{desc: "header too long", message: "000F" + panOnlyMessage, includingHeaderLength: true, expectedErr: iso8583.ErrTruncatedMessage},
		{desc: "header too short", message: "000D" + panOnlyMessage, includingHeaderLength: true, expectedErr: iso8583.ErrTrailingData},
		{desc: "missing header", message: "00", includingHeaderLength: true, expectedErr: iso8583.ErrTruncatedMessage},
	}
	for _, tc := range tt {
		t.Run(tc.desc, func(t *testing.T) {
			actual, err := Parse(tc.message, tc.includingHeaderLength, tc.tlv, tc.ltv)

			assert.Nil(t, actual)
			assert.ErrorIs(t, err, tc.expectedErr)
			field, ok := iso8583.FieldOf(err)
			if tc.expectedField == 0 {
				assert.False(t, ok)
			} else {
				assert.True(t, ok)
				assert.Equal(t, tc.expectedField, field)
			}
		})
	}
}

func TestParse_Deterministic(t *testing.T) {
	first, firstErr := Parse(purchaseMessage, false, false, true)
	second, secondErr := Parse(purchaseMessage, false, false, true)

	assert.Nil(t, first)
	assert.Nil(t, second)
	assert.Equal(t, firstErr.Error(), secondErr.Error())
}

func TestParser_Concurrent(t *testing.T) {
	parser, err := NewParser(WithPrivate(private.TLV))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			actual, err := parser.Parse(purchaseMessage)
			assert.NoError(t, err)
			assert.Len(t, actual.Fields, 7)
		}()
	}
	wg.Wait()
}

func TestParser_CustomDictionary(t *testing.T) {
	dictionary, err := dict.New(
		dict.Definition{ID: 2, Name: "Card number", Rule: dict.Variable(2, 99)},
		dict.Definition{ID: 3, Name: "Tags", Rule: dict.Variable(2, 99).ByteCounted(), Private: true},
	)
	require.NoError(t, err)
	parser, err := NewParser(WithDictionary(dictionary), WithPrivate(private.LTV))
	require.NoError(t, err)

	actual, err := parser.Parse("0200" + "6000000000000000" + "06123456" + "05" + "0301ABCDEF")
	require.NoError(t, err)

	pan, _ := actual.Field(2)
	assert.Equal(t, "Card number", pan.Name)
	assert.Equal(t, "123456", pan.Raw)
	tags, _ := actual.Field(3)
	assert.Equal(t, []private.Entry{{Tag: "01", Value: "ABCDEF"}}, tags.Subfields)
}

func TestParser_OddFieldsInARow(t *testing.T) {
	dictionary, err := dict.New(
		dict.Definition{ID: 2, Name: "Card number", Rule: dict.Variable(2, 99)},
		dict.Definition{ID: 3, Name: "Processing code", Rule: dict.Fixed(3)},
		dict.Definition{ID: 4, Name: "Amount", Rule: dict.Fixed(4)},
	)
	require.NoError(t, err)
	parser, err := NewParser(WithDictionary(dictionary))
	require.NoError(t, err)

	actual, err := parser.Parse("0200" + "7000000000000000" + "0512345" + "678" + "0100")
	require.NoError(t, err)

	assert.Equal(t, []int{2, 3, 4}, actual.IDs())
	pan, _ := actual.Field(2)
	assert.Equal(t, "12345", pan.Raw)
	code, _ := actual.Field(3)
	assert.Equal(t, "678", code.Raw)
	amount, _ := actual.Field(4)
	assert.Equal(t, "0100", amount.Raw)

	_, err = parser.Parse("0200" + "6000000000000000" + "0512345" + "678" + "0100")
	assert.ErrorIs(t, err, iso8583.ErrTrailingData)
}

func TestNewParser_Invalid(t *testing.T) {
	_, err := NewParser(WithHeaderBytes(-1))
	assert.Error(t, err)

	_, err = NewParser(WithDictionary(nil))
	assert.Error(t, err)

	_, err = NewParser(WithPrivate(private.Scheme(42)))
	assert.Error(t, err)

	_, err = NewParser(WithPrivate(private.EMV))
	assert.Error(t, err)

	_, err = NewParser(WithDecoders(nil))
	assert.Error(t, err)
}

func TestParser_DecodersAreCopied(t *testing.T) {
	decoders := private.NewDecoders()
	parser, err := NewParser(WithPrivate(private.TLV), WithDecoders(decoders))
	require.NoError(t, err)

	decoders.Set(private.TLV, func(raw string) ([]private.Entry, error) {
		return []private.Entry{{Tag: "00", Value: raw}}, nil
	})
	actual, err := parser.Parse(purchaseMessage)
	require.NoError(t, err)

	field48, ok := actual.Field(48)
	require.True(t, ok)
	require.NotEmpty(t, field48.Subfields)
	assert.NotEqual(t, "00", field48.Subfields[0].Tag)
}

func TestParser_Logger(t *testing.T) {
	buffer := new(bytes.Buffer)
	logger := slog.New(slog.NewTextHandler(buffer, &slog.HandlerOptions{Level: slog.LevelDebug}))
	parser, err := NewParser(WithLogger(logger))
	require.NoError(t, err)

	actual, err := parser.Parse(panOnlyMessage)
	require.NoError(t, err)
	logger.Info("decoded", "message", actual)

	assert.Contains(t, buffer.String(), "field decoded")
	assert.Contains(t, buffer.String(), "message.mti=0200")
	assert.NotContains(t, buffer.String(), "123456")
}

func TestMTIClass(t *testing.T) {
	tt := []struct {
		mti      string
		expected string
	}{
		{"0100", "authorization"},
		{"0200", "financial"},
		{"0420", "reversal"},
		{"0800", "network management"},
		{"0000", "unknown"},
		{"02", "unknown"},
	}
	for _, tc := range tt {
		t.Run(tc.mti, func(t *testing.T) {
			assert.Equal(t, tc.expected, MTIClass(tc.mti))
		})
	}
}
