package private

import (
	"fmt"
	"strings"
)

// Scheme identifies an encoding of sub-fields within a field.
type Scheme byte

// All built-in sub-field schemes
const (
	None Scheme = iota
	TLV
	LTV
	EMV
)

// SchemesByName maps all built-in schemes by their string representation
var SchemesByName = map[string]Scheme{
	"NONE": None,
	"TLV":  TLV,
	"LTV":  LTV,
	"EMV":  EMV,
}

// SchemeByName returns the Scheme with the given name. An empty name selects None.
func SchemeByName(name string) (Scheme, error) {
	sanitized := strings.ToUpper(strings.TrimSpace(name))
	if sanitized == "" {
		return None, nil
	}
	result, ok := SchemesByName[sanitized]
	if !ok {
		return 0, fmt.Errorf("invalid sub-field scheme %s", name)
	}
	return result, nil
}

func (s Scheme) String() string {
	for k, v := range SchemesByName {
		if v == s {
			return k
		}
	}
	return "UNKNOWN"
}

// DecoderFunc splits the raw hex value of a field into sub-fields.
type DecoderFunc func(raw string) ([]Entry, error)

// Decoders holds the sub-field decoder for each scheme.
type Decoders struct {
	decoders map[Scheme]DecoderFunc
}

// NewDecoders returns a new set of decoders that uses the built-in decoders for TLV, LTV and EMV.
func NewDecoders() *Decoders {
	return &Decoders{
		decoders: map[Scheme]DecoderFunc{
			TLV: DecodeTLV,
			LTV: DecodeLTV,
			EMV: DecodeEMV,
		},
	}
}

// Set an individual decoder for the given scheme, e.g. for a vendor specific variant of TLV.
func (d *Decoders) Set(scheme Scheme, decoder DecoderFunc) {
	d.decoders[scheme] = decoder
}

// Clone returns a copy of the decoders that is not affected by later calls to Set.
func (d *Decoders) Clone() *Decoders {
	result := &Decoders{
		decoders: make(map[Scheme]DecoderFunc, len(d.decoders)),
	}
	for scheme, decoder := range d.decoders {
		result.decoders[scheme] = decoder
	}
	return result
}

// Decode splits raw into sub-fields using the decoder registered for the given scheme.
func (d *Decoders) Decode(scheme Scheme, raw string) ([]Entry, error) {
	decoder, ok := d.decoders[scheme]
	if !ok {
		return nil, fmt.Errorf("no sub-field decoder registered for scheme %s", scheme)
	}
	return decoder(raw)
}
