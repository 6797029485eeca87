package dict

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// A profile adjusts a base dictionary to the dialect of a specific acquirer or switch:
//
//	fields:
//	  - id: 48
//	    name: Additional data
//	    length: {variable: 3, max: 999, bytes: true}
//	    encoding: ascii
//	    private: true
//	  - id: 60
//	    remove: true
type profile struct {
	Fields []profileField `yaml:"fields"`
}

type profileField struct {
	ID       int           `yaml:"id"`
	Name     string        `yaml:"name"`
	Length   profileLength `yaml:"length"`
	Encoding string        `yaml:"encoding"`
	Private  bool          `yaml:"private"`
	EMV      bool          `yaml:"emv"`
	Remove   bool          `yaml:"remove"`
}

type profileLength struct {
	Fixed    int  `yaml:"fixed"`
	Variable int  `yaml:"variable"`
	Max      int  `yaml:"max"`
	Bytes    bool `yaml:"bytes"`
	Packed   bool `yaml:"packed"`
}

func (l profileLength) rule() (LengthRule, error) {
	var result LengthRule
	switch {
	case l.Fixed > 0 && l.Variable > 0:
		return LengthRule{}, fmt.Errorf("length is either fixed or variable")
	case l.Fixed > 0:
		result = Fixed(l.Fixed)
	case l.Variable > 0:
		result = Variable(l.Variable, l.Max)
	default:
		return LengthRule{}, fmt.Errorf("missing length")
	}
	result.Bytes = l.Bytes
	result.Pad = l.Packed
	return result, nil
}

// LoadFile reads a YAML profile from the given file and applies it to base.
func LoadFile(filename string, base *Dictionary) (*Dictionary, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("cannot read dictionary profile: %w", err)
	}
	return LoadYAML(bytes.NewReader(content), base)
}

// LoadYAML reads a YAML profile and returns a new dictionary that contains the definitions of base,
// overridden and extended by the fields of the profile. If base is nil, the profile stands alone.
func LoadYAML(r io.Reader, base *Dictionary) (*Dictionary, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	var p profile
	err := decoder.Decode(&p)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("cannot parse dictionary profile: %w", err)
	}

	definitions := make(map[int]Definition)
	if base != nil {
		for _, d := range base.Definitions() {
			definitions[d.ID] = d
		}
	}

	for i, f := range p.Fields {
		if f.Remove {
			delete(definitions, f.ID)
			continue
		}
		rule, err := f.Length.rule()
		if err != nil {
			return nil, fmt.Errorf("profile entry %d (field %d): %w", i, f.ID, err)
		}
		encoding, err := EncodingByName(f.Encoding)
		if err != nil {
			return nil, fmt.Errorf("profile entry %d (field %d): %w", i, f.ID, err)
		}
		definitions[f.ID] = Definition{
			ID:       f.ID,
			Name:     f.Name,
			Rule:     rule,
			Encoding: encoding,
			Private:  f.Private,
			EMV:      f.EMV,
		}
	}

	merged := make([]Definition, 0, len(definitions))
	for _, d := range definitions {
		merged = append(merged, d)
	}
	return New(merged...)
}
