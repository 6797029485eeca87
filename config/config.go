package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ftl/iso8583-parser/dict"
	"github.com/ftl/iso8583-parser/msg"
	"github.com/ftl/iso8583-parser/private"
	"github.com/ftl/iso8583-parser/render"
)

// Config contains the settings of the decoder command.
type Config struct {
	HeaderLength bool   `yaml:"header_length"`
	HeaderBytes  int    `yaml:"header_bytes"`
	Private      string `yaml:"private"`
	EMV          bool   `yaml:"emv"`
	Dictionary   string `yaml:"dictionary"`
	Format       string `yaml:"format"`
	Filter       string `yaml:"filter"`
	Log          Log    `yaml:"log"`
	Serial       Serial `yaml:"serial"`
}

// Log configures the diagnostic output on stderr.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Serial configures the serial port to read messages from.
type Serial struct {
	Port        string `yaml:"port"`
	Description string `yaml:"description"`
	BaudRate    uint   `yaml:"baud_rate"`
}

// Defaults returns the configuration that is used if no file is given.
func Defaults() Config {
	return Config{
		Private: "none",
		Format:  "text",
		Log: Log{
			Level:  "warn",
			Format: "text",
		},
	}
}

// Load reads the YAML file with the given name on top of the defaults. Unknown keys are rejected.
func Load(filename string) (Config, error) {
	f, err := os.Open(filename)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()
	return Read(f)
}

// Read reads a YAML configuration on top of the defaults. Unknown keys are rejected.
func Read(r io.Reader) (Config, error) {
	result := Defaults()
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&result); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("cannot parse configuration: %w", err)
	}
	return result, nil
}

// Validate checks all settings that can be checked without touching the file system.
func (c Config) Validate() error {
	if c.HeaderBytes < 0 {
		return fmt.Errorf("header_bytes must not be negative, got %d", c.HeaderBytes)
	}
	if _, err := c.PrivateScheme(); err != nil {
		return err
	}
	if _, err := render.FormatByName(c.Format); err != nil {
		return err
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("invalid log format %s", c.Log.Format)
	}
	return nil
}

// PrivateScheme returns the scheme for private sub-fields. Only TLV and LTV are allowed.
func (c Config) PrivateScheme() (private.Scheme, error) {
	result, err := private.SchemeByName(c.Private)
	if err != nil {
		return private.None, err
	}
	switch result {
	case private.None, private.TLV, private.LTV:
		return result, nil
	default:
		return private.None, fmt.Errorf("private sub-fields must be none, tlv or ltv, got %s", c.Private)
	}
}

// LogLevel returns the configured log level.
func (c Config) LogLevel() (slog.Level, error) {
	var result slog.Level
	if strings.TrimSpace(c.Log.Level) == "" {
		return slog.LevelWarn, nil
	}
	if err := result.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("invalid log level %s", c.Log.Level)
	}
	return result, nil
}

// NewLogger creates the logger for the diagnostic output.
func (c Config) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := c.LogLevel()
	if err != nil {
		return nil, err
	}
	options := &slog.HandlerOptions{Level: level}
	if strings.ToLower(c.Log.Format) == "json" {
		return slog.New(slog.NewJSONHandler(w, options)), nil
	}
	return slog.New(slog.NewTextHandler(w, options)), nil
}

// LoadDictionary returns the default dictionary, extended by the configured profile.
func (c Config) LoadDictionary() (*dict.Dictionary, error) {
	if c.Dictionary == "" {
		return dict.Default(), nil
	}
	return dict.LoadFile(c.Dictionary, dict.Default())
}

// NewParser creates a parser according to the configuration.
func (c Config) NewParser(logger *slog.Logger) (*msg.Parser, error) {
	scheme, err := c.PrivateScheme()
	if err != nil {
		return nil, err
	}
	dictionary, err := c.LoadDictionary()
	if err != nil {
		return nil, err
	}
	return msg.NewParser(
		msg.WithDictionary(dictionary),
		msg.WithLogger(logger),
		msg.WithHeaderLength(c.HeaderLength),
		msg.WithHeaderBytes(c.HeaderBytes),
		msg.WithPrivate(scheme),
		msg.WithEMV(c.EMV),
	)
}
