package advdata

import "maps"

// DecodeFunc decodes one AD structure. An error turns the record into
// Malformed; the raw bytes are kept either way.
type DecodeFunc func(h Header) (Record, error)

// Decoder maps AD type codes and MSD company identifiers to decoders.
// A Decoder is immutable once built and safe for concurrent use.
type Decoder struct {
	types     map[byte]DecodeFunc
	companies map[uint16]MSDDecodeFunc
}

type Option func(*Decoder)

// WithADType registers fn for an AD type code, replacing any default.
func WithADType(code byte, fn DecodeFunc) Option {
	return func(d *Decoder) { d.types[code] = fn }
}

// WithCompany registers fn for a manufacturer company identifier.
func WithCompany(id uint16, fn MSDDecodeFunc) Option {
	return func(d *Decoder) { d.companies[id] = fn }
}

var (
	defaultTypes = map[byte]DecodeFunc{
		TypeFlags:          decodeFlags,
		TypeSomeUUID16:     decodeServiceList16,
		TypeAllUUID16:      decodeServiceList16,
		TypeSomeUUID32:     decodeServiceList32,
		TypeAllUUID32:      decodeServiceList32,
		TypeSomeUUID128:    decodeServiceList128,
		TypeAllUUID128:     decodeServiceList128,
		TypeShortName:      decodeShortName,
		TypeCompleteName:   decodeCompleteName,
		TypeTxPower:        decodeTxPower,
		TypeServiceData16:  decodeServiceData16,
		TypeServiceData32:  decodeServiceData32,
		TypeServiceData128: decodeServiceData128,
	}
	defaultCompanies = map[uint16]MSDDecodeFunc{
		CompanyApple:     decodeApple,
		CompanyMicrosoft: decodeMicrosoft,
	}

	std = NewDecoder()
)

func NewDecoder(opts ...Option) *Decoder {
	d := &Decoder{
		types:     maps.Clone(defaultTypes),
		companies: maps.Clone(defaultCompanies),
	}
	d.types[TypeManufacturerData] = d.decodeMSD
	for _, o := range opts {
		o(d)
	}
	return d
}

// DecodeBlock decodes one AD structure. It never fails: unknown types become
// Generic and decoder errors become Malformed.
func (d *Decoder) DecodeBlock(typ byte, payload []byte) Record {
	h := Header{Type: typ, Data: HexBytes(payload)}
	fn, ok := d.types[typ]
	if !ok {
		return Generic{Header: h}
	}
	r, err := fn(h)
	if err != nil {
		return Malformed{Header: h, Err: err.Error()}
	}
	return r
}

// Decode tokenizes buf and decodes every block in order.
func (d *Decoder) Decode(buf []byte) []Record {
	var out []Record
	for b := range Blocks(buf) {
		out = append(out, d.DecodeBlock(b.Type, b.Payload))
	}
	return out
}

// DecodeMSD decodes a manufacturer specific payload (company id first).
func (d *Decoder) DecodeMSD(payload []byte) (Record, error) {
	return d.decodeMSD(Header{Type: TypeManufacturerData, Data: HexBytes(payload)})
}

// Decode uses the default decoder.
func Decode(buf []byte) []Record { return std.Decode(buf) }

// DecodeBlock uses the default decoder.
func DecodeBlock(typ byte, payload []byte) Record { return std.DecodeBlock(typ, payload) }

// DecodeMSD uses the default decoder.
func DecodeMSD(payload []byte) (Record, error) { return std.DecodeMSD(payload) }
