package processor

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/redpanda-data/benthos/v4/public/service"

	"github.com/ftl/iso8583-parser/config"
	"github.com/ftl/iso8583-parser/filter"
	"github.com/ftl/iso8583-parser/iso8583"
	"github.com/ftl/iso8583-parser/msg"
	"github.com/ftl/iso8583-parser/render"
)

// Metadata keys set on processed messages
const (
	MetaMTI   = "iso8583_mti"
	MetaError = "iso8583_error"
	MetaField = "iso8583_field"
)

func init() {
	err := service.RegisterProcessor(
		"iso8583",
		processorConfig(),
		func(conf *service.ParsedConfig, mgr *service.Resources) (service.Processor, error) {
			return newProcessorFromConfig(conf, mgr)
		},
	)
	if err != nil {
		panic(err)
	}
}

func processorConfig() *service.ConfigSpec {
	return service.NewConfigSpec().
		Summary("Decodes hex encoded ISO8583 messages into structured documents.").
		Description("The payload of each message is interpreted as the hex text of an ISO8583 message. " +
			"Whitespace and quotes are ignored. The payload is replaced by the decoded message, " +
			"messages that cannot be decoded are flagged with an error and the metadata field " + MetaError + ".").
		Field(service.NewBoolField("header_length").
			Description("Whether messages start with a two byte length of the remaining message.").
			Default(false)).
		Field(service.NewIntField("header_bytes").
			Description("Number of header bytes after the length prefix, e.g. 5 for a TPDU.").
			Default(0)).
		Field(service.NewStringEnumField("private", "none", "tlv", "ltv").
			Description("Encoding of the sub-fields of private fields.").
			Default("none")).
		Field(service.NewBoolField("emv").
			Description("Whether EMV chip data fields are split into their data objects.").
			Default(false)).
		Field(service.NewStringField("dictionary").
			Description("Path to a YAML dictionary profile that extends the built-in dictionary.").
			Example("./profiles/acquirer.yaml").
			Default("")).
		Field(service.NewStringField("filter").
			Description("CEL expression, only messages for which it evaluates to true are kept.").
			Example(`mti == "0200" && 48 in fields`).
			Default("")).
		Version("0.1.0")
}

// Processor is a Benthos processor that decodes ISO8583 messages.
type Processor struct {
	parser    *msg.Parser
	filter    *filter.Program
	logger    *service.Logger
	mDecoded  *service.MetricCounter
	mErrors   *service.MetricCounter
	mFiltered *service.MetricCounter
}

func newProcessorFromConfig(conf *service.ParsedConfig, mgr *service.Resources) (*Processor, error) {
	c := config.Defaults()
	var err error
	if c.HeaderLength, err = conf.FieldBool("header_length"); err != nil {
		return nil, err
	}
	if c.HeaderBytes, err = conf.FieldInt("header_bytes"); err != nil {
		return nil, err
	}
	if c.Private, err = conf.FieldString("private"); err != nil {
		return nil, err
	}
	if c.EMV, err = conf.FieldBool("emv"); err != nil {
		return nil, err
	}
	if c.Dictionary, err = conf.FieldString("dictionary"); err != nil {
		return nil, err
	}
	if c.Filter, err = conf.FieldString("filter"); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	parser, err := c.NewParser(slog.New(slog.DiscardHandler))
	if err != nil {
		return nil, err
	}

	var program *filter.Program
	if c.Filter != "" {
		program, err = filter.Compile(c.Filter)
		if err != nil {
			return nil, err
		}
	}

	metrics := mgr.Metrics()
	return &Processor{
		parser:    parser,
		filter:    program,
		logger:    mgr.Logger(),
		mDecoded:  metrics.NewCounter("iso8583_decoded_messages"),
		mErrors:   metrics.NewCounter("iso8583_decoding_errors"),
		mFiltered: metrics.NewCounter("iso8583_filtered_messages"),
	}, nil
}

// Process decodes the payload of the message.
func (p *Processor) Process(ctx context.Context, m *service.Message) (service.MessageBatch, error) {
	payload, err := m.AsBytes()
	if err != nil {
		p.fail(m, fmt.Errorf("failed to get payload from message: %w", err))
		return service.MessageBatch{m}, nil
	}

	decoded, err := p.parser.Parse(iso8583.Sanitize(string(payload)))
	if err != nil {
		p.fail(m, err)
		return service.MessageBatch{m}, nil
	}

	if p.filter != nil {
		match, err := p.filter.Match(decoded)
		if err != nil {
			p.fail(m, err)
			return service.MessageBatch{m}, nil
		}
		if !match {
			p.mFiltered.Incr(1)
			return nil, nil
		}
	}

	result := m.Copy()
	result.SetStructured(render.Structured(decoded))
	result.MetaSet(MetaMTI, decoded.MTI)
	p.mDecoded.Incr(1)
	p.logger.Tracef("decoded %s message with fields %v", decoded.MTI, decoded.IDs())

	return service.MessageBatch{result}, nil
}

func (p *Processor) fail(m *service.Message, err error) {
	p.logger.Debugf("cannot decode message: %v", err)
	p.mErrors.Incr(1)
	m.MetaSet(MetaError, iso8583.Kind(err))
	if field, ok := iso8583.FieldOf(err); ok {
		m.MetaSet(MetaField, strconv.Itoa(field))
	}
	m.SetError(err)
}

// Close releases the resources of the processor.
func (p *Processor) Close(ctx context.Context) error {
	return nil
}
