package processor

import (
	"context"
	"testing"

	"github.com/redpanda-data/benthos/v4/public/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ftl/iso8583-parser/iso8583"
)

const testMessage = "0200" + "4000000000010000" + "06" + "123456" + "0004" + "0102CAFE"

func newTestProcessor(t *testing.T, yamlConfig string) *Processor {
	t.Helper()
	conf, err := processorConfig().ParseYAML(yamlConfig, nil)
	require.NoError(t, err)
	result, err := newProcessorFromConfig(conf, service.MockResources())
	require.NoError(t, err)
	return result
}

func TestProcessor_Decode(t *testing.T) {
	processor := newTestProcessor(t, "private: tlv")
	defer processor.Close(context.Background())

	batch, err := processor.Process(context.Background(), service.NewMessage([]byte(" "+testMessage+"\n")))
	require.NoError(t, err)
	require.Len(t, batch, 1)
	require.NoError(t, batch[0].GetError())

	mti, ok := batch[0].MetaGet(MetaMTI)
	assert.True(t, ok)
	assert.Equal(t, "0200", mti)

	structured, err := batch[0].AsStructured()
	require.NoError(t, err)
	document := structured.(map[string]any)
	assert.Equal(t, "0200", document["mti"])
	fields := document["fields"].([]any)
	require.Len(t, fields, 2)
	private := fields[1].(map[string]any)
	assert.Equal(t, 48, private["id"])
	assert.Equal(t, []any{map[string]any{"tag": "01", "value": "CAFE"}}, private["subfields"])
}

func TestProcessor_DecodingError(t *testing.T) {
	processor := newTestProcessor(t, "")

	batch, err := processor.Process(context.Background(), service.NewMessage([]byte("0200"+"4000000000000000"+"0612")))
	require.NoError(t, err)
	require.Len(t, batch, 1)

	assert.ErrorIs(t, batch[0].GetError(), iso8583.ErrTruncatedMessage)
	kind, _ := batch[0].MetaGet(MetaError)
	assert.Equal(t, "truncated_message", kind)
	field, _ := batch[0].MetaGet(MetaField)
	assert.Equal(t, "2", field)
}

func TestProcessor_Filter(t *testing.T) {
	processor := newTestProcessor(t, `filter: 'mti == "0800"'`)

	batch, err := processor.Process(context.Background(), service.NewMessage([]byte(testMessage)))

	require.NoError(t, err)
	assert.Empty(t, batch)

	processor = newTestProcessor(t, `filter: '48 in fields'`)

	batch, err = processor.Process(context.Background(), service.NewMessage([]byte(testMessage)))

	require.NoError(t, err)
	assert.Len(t, batch, 1)
}

func TestProcessor_InvalidConfig(t *testing.T) {
	tt := []struct {
		desc       string
		yamlConfig string
	}{
		{"negative header bytes", "header_bytes: -1"},
		{"invalid filter", "filter: 'mti =='"},
		{"missing dictionary", "dictionary: /does/not/exist.yaml"},
	}
	for _, tc := range tt {
		t.Run(tc.desc, func(t *testing.T) {
			conf, err := processorConfig().ParseYAML(tc.yamlConfig, nil)
			require.NoError(t, err)

			_, err = newProcessorFromConfig(conf, service.MockResources())

			assert.Error(t, err)
		})
	}
}
