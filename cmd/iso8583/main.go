package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/ftl/iso8583-parser/com"
	"github.com/ftl/iso8583-parser/config"
	"github.com/ftl/iso8583-parser/filter"
	"github.com/ftl/iso8583-parser/iso8583"
	"github.com/ftl/iso8583-parser/msg"
	"github.com/ftl/iso8583-parser/private"
	"github.com/ftl/iso8583-parser/render"
	"github.com/ftl/iso8583-parser/serial"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

type options struct {
	configFile  string
	message     string
	tlv         bool
	ltv         bool
	listFields  bool
	traceFile   string
	findSerial  string
	cfg         config.Config
	headerBytes int
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	result := &options{}
	defaults := config.Defaults()

	flags := flag.NewFlagSet("iso8583", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.Usage = func() {
		fmt.Fprintf(stderr, "Usage: iso8583 [flags]\n\nDecodes hex encoded ISO8583 messages given with -m or read line by line from stdin.\n\n")
		flags.PrintDefaults()
	}
	flags.StringVar(&result.configFile, "c", "", "YAML configuration file")
	flags.StringVar(&result.message, "m", "", "the hex encoded message, read from stdin if empty")
	flags.BoolVar(&result.cfg.HeaderLength, "i", false, "messages start with a two byte header length")
	flags.IntVar(&result.headerBytes, "header-bytes", 0, "number of header bytes after the header length, e.g. 5 for a TPDU")
	flags.BoolVar(&result.tlv, "t", false, "decode private fields as TLV")
	flags.BoolVar(&result.ltv, "l", false, "decode private fields as LTV")
	flags.BoolVar(&result.cfg.EMV, "e", false, "decode EMV chip data fields")
	flags.StringVar(&result.cfg.Dictionary, "d", "", "YAML dictionary profile that extends the built-in dictionary")
	flags.StringVar(&result.cfg.Format, "f", defaults.Format, "output format: text, json, yaml, protojson, proto")
	flags.StringVar(&result.cfg.Filter, "filter", "", "CEL expression, only matching messages are written")
	flags.StringVar(&result.cfg.Log.Level, "log-level", defaults.Log.Level, "log level: debug, info, warn, error")
	flags.StringVar(&result.cfg.Serial.Port, "serial", "", "read messages from the given serial port")
	flags.StringVar(&result.findSerial, "serial-find", "", "read messages from the serial port with the given description")
	flags.UintVar(&result.cfg.Serial.BaudRate, "baud", serial.DefaultBaudRate, "baud rate of the serial port")
	flags.StringVar(&result.traceFile, "trace", "", "trace all received lines to the given file")
	flags.BoolVar(&result.listFields, "list-fields", false, "list the fields of the dictionary and exit")

	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	if flags.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", flags.Args())
	}

	cfg := defaults
	if result.configFile != "" {
		var err error
		cfg, err = config.Load(result.configFile)
		if err != nil {
			return nil, err
		}
	}

	var err error
	flags.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "i":
			cfg.HeaderLength = result.cfg.HeaderLength
		case "header-bytes":
			cfg.HeaderBytes = result.headerBytes
		case "t", "l":
			var scheme private.Scheme
			scheme, err = msg.PrivateScheme(result.tlv, result.ltv)
			if err == nil {
				cfg.Private = scheme.String()
			}
		case "e":
			cfg.EMV = result.cfg.EMV
		case "d":
			cfg.Dictionary = result.cfg.Dictionary
		case "f":
			cfg.Format = result.cfg.Format
		case "filter":
			cfg.Filter = result.cfg.Filter
		case "log-level":
			cfg.Log.Level = result.cfg.Log.Level
		case "serial":
			cfg.Serial.Port = result.cfg.Serial.Port
		case "serial-find":
			cfg.Serial.Description = result.findSerial
		case "baud":
			cfg.Serial.BaudRate = result.cfg.Serial.BaudRate
		}
	})
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	result.cfg = cfg
	return result, nil
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	logger, err := opts.cfg.NewLogger(stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	d, err := newDecoder(opts.cfg, logger, stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if opts.listFields {
		if err := render.RenderFields(stdout, d.parser.Dictionary(), d.format); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	if opts.message != "" {
		d.Decode(opts.message)
		return d.ExitCode()
	}

	if err := d.Session(ctx, stdin, opts); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	logger.Info("session ended", "decoded", d.decoded, "failed", d.failed, "filtered", d.filtered)
	return d.ExitCode()
}

type decoder struct {
	parser *msg.Parser
	filter *filter.Program
	format render.Format
	logger *slog.Logger
	stdout io.Writer
	stderr io.Writer

	decoded  int
	failed   int
	filtered int
}

func newDecoder(cfg config.Config, logger *slog.Logger, stdout, stderr io.Writer) (*decoder, error) {
	parser, err := cfg.NewParser(logger)
	if err != nil {
		return nil, err
	}
	format, err := render.FormatByName(cfg.Format)
	if err != nil {
		return nil, err
	}
	result := &decoder{
		parser: parser,
		format: format,
		logger: logger,
		stdout: stdout,
		stderr: stderr,
	}
	if cfg.Filter != "" {
		result.filter, err = filter.Compile(cfg.Filter)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

// Decode decodes a single message and writes the result.
func (d *decoder) Decode(line string) {
	m, err := d.parser.Parse(iso8583.Sanitize(line))
	if err != nil {
		d.failed++
		d.logger.Warn("cannot decode message", "kind", iso8583.Kind(err), "error", err)
		if d.format == render.Text {
			render.RenderError(d.stderr, err, render.Text)
		} else {
			render.RenderError(d.stdout, err, d.format)
		}
		return
	}

	if d.filter != nil {
		match, err := d.filter.Match(m)
		if err != nil {
			d.failed++
			d.logger.Warn("cannot apply filter", "error", err)
			fmt.Fprintf(d.stderr, "Error: %v\n", err)
			return
		}
		if !match {
			d.filtered++
			d.logger.Debug("message filtered", "message", m)
			return
		}
	}

	d.decoded++
	if err := render.Render(d.stdout, m, d.format); err != nil {
		d.logger.Error("cannot write message", "error", err)
	}
}

// Session decodes all messages read line by line from stdin or the configured serial port.
// When ctx is cancelled, the message that is currently decoded is finished and the session ends.
func (d *decoder) Session(ctx context.Context, stdin io.Reader, opts *options) error {
	var tracer io.Writer
	if opts.traceFile != "" {
		f, err := os.Create(opts.traceFile)
		if err != nil {
			return err
		}
		defer f.Close()
		tracer = f
	}

	portName := opts.cfg.Serial.Port
	if portName == "" && opts.cfg.Serial.Description != "" {
		var err error
		portName, err = serial.FindPortName(opts.cfg.Serial.Description)
		if err != nil {
			return err
		}
	}

	var session *com.Session
	if portName != "" {
		port := serial.Port{Name: portName, BaudRate: opts.cfg.Serial.BaudRate}
		var device io.Closer
		var err error
		if tracer != nil {
			session, device, err = serial.OpenWithTrace(port, tracer, d.Decode)
		} else {
			session, device, err = serial.Open(port, d.Decode)
		}
		if err != nil {
			return err
		}
		d.logger.Info("reading messages from serial port", "port", portName)
		defer device.Close()
	} else if tracer != nil {
		session = com.NewWithTrace(stdin, tracer, d.Decode)
	} else {
		session = com.New(stdin, d.Decode)
	}

	err := session.Wait(ctx)
	if err != nil && ctx.Err() != nil {
		d.logger.Info("session cancelled")
		session.Stop()
		return nil
	}
	return err
}

// ExitCode returns 1 if any message could not be decoded.
func (d *decoder) ExitCode() int {
	if d.failed > 0 {
		return 1
	}
	return 0
}
