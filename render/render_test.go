package render

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protodelim"
	"google.golang.org/protobuf/types/known/structpb"
	"gopkg.in/yaml.v3"

	"github.com/ftl/iso8583-parser/dict"
	"github.com/ftl/iso8583-parser/iso8583"
	"github.com/ftl/iso8583-parser/msg"
)

const testMessage = "0200" + "4000000000010000" + "06" + "123456" + "0004" + "0102CAFE"

func parseTestMessage(t *testing.T) *msg.Message {
	t.Helper()
	m, err := msg.Parse(testMessage, false, true, false)
	require.NoError(t, err)
	return m
}

func TestFormatByName(t *testing.T) {
	tt := []struct {
		value    string
		expected Format
		invalid  bool
	}{
		{"text", Text, false},
		{"JSON", JSON, false},
		{" yaml ", YAML, false},
		{"protojson", ProtoJSON, false},
		{"proto", Proto, false},
		{"xml", 0, true},
		{"", 0, true},
	}
	for _, tc := range tt {
		t.Run(tc.value, func(t *testing.T) {
			actual, err := FormatByName(tc.value)
			if tc.invalid {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, actual)
		})
	}
	assert.Equal(t, "protojson", ProtoJSON.String())
}

func TestRender_Text(t *testing.T) {
	buffer := new(bytes.Buffer)

	err := Render(buffer, parseTestMessage(t), Text)
	require.NoError(t, err)

	assert.Contains(t, buffer.String(), "MTI: 0200\nBitmap: 4000000000010000 [2 48]\n")
	assert.Contains(t, buffer.String(), "Field   2 | Length:   6| Primary account number    | 123456\n")
	assert.Contains(t, buffer.String(), "Field  48 | Length:   4| Additional data (private) | 0102CAFE\n")
	assert.Contains(t, buffer.String(), "          | 01     CAFE (..)\n")
}

func TestRender_EMVTemplate(t *testing.T) {
	parser, err := msg.NewParser(msg.WithEMV(true))
	require.NoError(t, err)
	m, err := parser.Parse("0200" + "4000000000000200" + "06" + "123456" + "0012" + "9F0201AA" + "7106" + "860401020304")
	require.NoError(t, err)

	text := new(bytes.Buffer)
	require.NoError(t, Render(text, m, Text))
	assert.Contains(t, text.String(), "          | 9F02   AA (.)\n          | 71    \n          |   86     01020304 (....)\n")

	structured := Structured(m)
	fields := structured["fields"].([]any)
	require.Len(t, fields, 2)
	expected := []any{
		map[string]any{"tag": "9F02", "value": "AA"},
		map[string]any{
			"tag":     "71",
			"value":   "860401020304",
			"entries": []any{map[string]any{"tag": "86", "value": "01020304"}},
		},
	}
	assert.Equal(t, expected, fields[1].(map[string]any)["subfields"])
}

func TestRender_JSON(t *testing.T) {
	buffer := new(bytes.Buffer)

	err := Render(buffer, parseTestMessage(t), JSON)
	require.NoError(t, err)

	var actual map[string]any
	require.NoError(t, json.Unmarshal(buffer.Bytes(), &actual))
	assert.Equal(t, "0200", actual["mti"])
	assert.Equal(t, []any{2.0, 48.0}, actual["field_ids"])
	fields := actual["fields"].([]any)
	require.Len(t, fields, 2)
	pan := fields[0].(map[string]any)
	assert.Equal(t, "123456", pan["raw"])
	assert.NotContains(t, pan, "subfields")
	private := fields[1].(map[string]any)
	assert.Equal(t, []any{map[string]any{"tag": "01", "value": "CAFE"}}, private["subfields"])
}

func TestRender_YAML(t *testing.T) {
	buffer := new(bytes.Buffer)

	err := Render(buffer, parseTestMessage(t), YAML)
	require.NoError(t, err)

	var actual struct {
		MTI    string `yaml:"mti"`
		Fields []struct {
			ID  int    `yaml:"id"`
			Raw string `yaml:"raw"`
		} `yaml:"fields"`
	}
	require.NoError(t, yaml.Unmarshal(buffer.Bytes(), &actual))
	assert.Equal(t, "0200", actual.MTI)
	require.Len(t, actual.Fields, 2)
	assert.Equal(t, 48, actual.Fields[1].ID)
	assert.Equal(t, "0102CAFE", actual.Fields[1].Raw)
}

func TestRender_ProtoJSON(t *testing.T) {
	buffer := new(bytes.Buffer)

	err := Render(buffer, parseTestMessage(t), ProtoJSON)
	require.NoError(t, err)

	var actual map[string]any
	require.NoError(t, json.Unmarshal(buffer.Bytes(), &actual))
	assert.Equal(t, "4000000000010000", actual["bitmap"])
}

func TestRender_Proto(t *testing.T) {
	buffer := new(bytes.Buffer)
	m := parseTestMessage(t)

	require.NoError(t, Render(buffer, m, Proto))
	require.NoError(t, Render(buffer, m, Proto))

	reader := bufio.NewReader(buffer)
	for range 2 {
		actual := new(structpb.Struct)
		require.NoError(t, protodelim.UnmarshalFrom(reader, actual))
		assert.Equal(t, "0200", actual.Fields["mti"].GetStringValue())
		assert.Len(t, actual.Fields["fields"].GetListValue().GetValues(), 2)
	}
}

func TestRenderError(t *testing.T) {
	err := fmt.Errorf("cannot decode: %w", &iso8583.FieldError{Field: 2, Err: iso8583.ErrTruncatedMessage})

	buffer := new(bytes.Buffer)
	require.NoError(t, RenderError(buffer, err, Text))
	assert.Equal(t, "Error: cannot decode: field 2: truncated message\n", buffer.String())

	buffer.Reset()
	require.NoError(t, RenderError(buffer, err, JSON))
	var actual map[string]any
	require.NoError(t, json.Unmarshal(buffer.Bytes(), &actual))
	assert.Equal(t, "truncated_message", actual["kind"])
	assert.Equal(t, 2.0, actual["field"])
}

func TestRenderFields(t *testing.T) {
	dictionary, err := dict.New(
		dict.Definition{ID: 2, Name: "PAN", Rule: dict.Variable(2, 19)},
		dict.Definition{ID: 3, Name: "Processing code", Rule: dict.Fixed(6)},
	)
	require.NoError(t, err)

	buffer := new(bytes.Buffer)
	require.NoError(t, RenderFields(buffer, dictionary, Text))
	assert.Equal(t, "  2 PAN\n  3 Processing code\n", buffer.String())

	buffer.Reset()
	require.NoError(t, RenderFields(buffer, dictionary, YAML))
	var actual struct {
		Fields []dict.Entry `yaml:"fields"`
	}
	require.NoError(t, yaml.Unmarshal(buffer.Bytes(), &actual))
	assert.Equal(t, dictionary.Entries(), actual.Fields)
}
