package advdata

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"blesniff/internal/remoteid"
)

// Record is one decoded AD structure. Every record keeps the AD type code and
// the raw payload bytes, whether decoding succeeded or not.
type Record interface {
	TypeCode() byte
	Raw() []byte
	Kind() string
	String() string
}

// Header is the part shared by all records.
type Header struct {
	Type byte     `json:"type"`
	Data HexBytes `json:"raw"`
}

func (h Header) TypeCode() byte { return h.Type }
func (h Header) Raw() []byte    { return h.Data }

// HexBytes renders as a hex string in JSON.
type HexBytes []byte

func (b HexBytes) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(b)), nil
}

func (b HexBytes) String() string { return hex.EncodeToString(b) }

// UUID16 is a 16-bit assigned service UUID.
type UUID16 uint16

func (u UUID16) String() string                { return fmt.Sprintf("0x%04X", uint16(u)) }
func (u UUID16) MarshalText() ([]byte, error) { return []byte(u.String()), nil }

// UUID32 is a 32-bit service UUID.
type UUID32 uint32

func (u UUID32) String() string                { return fmt.Sprintf("0x%08X", uint32(u)) }
func (u UUID32) MarshalText() ([]byte, error) { return []byte(u.String()), nil }

type Flags struct {
	Header
	Flags byte     `json:"flags"`
	Names []string `json:"names,omitempty"`
}

func (Flags) Kind() string { return "Flags" }
func (r Flags) String() string {
	return fmt.Sprintf("Flags: 0x%02X [%s]", r.Flags, strings.Join(r.Names, ", "))
}

type ServiceList16 struct {
	Header
	Complete bool     `json:"complete"`
	UUIDs    []UUID16 `json:"uuids"`
}

func (ServiceList16) Kind() string { return "ServiceList16" }
func (r ServiceList16) String() string {
	return fmt.Sprintf("16-bit Service UUIDs: %s", joinStringers(r.UUIDs))
}

type ServiceList32 struct {
	Header
	Complete bool     `json:"complete"`
	UUIDs    []UUID32 `json:"uuids"`
}

func (ServiceList32) Kind() string { return "ServiceList32" }
func (r ServiceList32) String() string {
	return fmt.Sprintf("32-bit Service UUIDs: %s", joinStringers(r.UUIDs))
}

type ServiceList128 struct {
	Header
	Complete bool        `json:"complete"`
	UUIDs    []uuid.UUID `json:"uuids"`
}

func (ServiceList128) Kind() string { return "ServiceList128" }
func (r ServiceList128) String() string {
	return fmt.Sprintf("128-bit Service UUIDs: %s", joinStringers(r.UUIDs))
}

type ShortenedName struct {
	Header
	Name string `json:"name"`
}

func (ShortenedName) Kind() string     { return "ShortenedName" }
func (r ShortenedName) String() string { return fmt.Sprintf("Shortened Name: %q", r.Name) }

type CompleteName struct {
	Header
	Name string `json:"name"`
}

func (CompleteName) Kind() string     { return "CompleteName" }
func (r CompleteName) String() string { return fmt.Sprintf("Complete Name: %q", r.Name) }

type TxPowerLevel struct {
	Header
	DBm int8 `json:"dbm"`
}

func (TxPowerLevel) Kind() string     { return "TxPowerLevel" }
func (r TxPowerLevel) String() string { return fmt.Sprintf("Tx Power: %+d dBm", r.DBm) }

type ServiceData16 struct {
	Header
	UUID        UUID16   `json:"uuid"`
	ServiceData HexBytes `json:"service_data"`
}

func (ServiceData16) Kind() string { return "ServiceData16" }
func (r ServiceData16) String() string {
	return fmt.Sprintf("Service Data %s: %s", r.UUID, r.ServiceData)
}

type ServiceData32 struct {
	Header
	UUID        UUID32   `json:"uuid"`
	ServiceData HexBytes `json:"service_data"`
}

func (ServiceData32) Kind() string { return "ServiceData32" }
func (r ServiceData32) String() string {
	return fmt.Sprintf("Service Data %s: %s", r.UUID, r.ServiceData)
}

type ServiceData128 struct {
	Header
	UUID        uuid.UUID `json:"uuid"`
	ServiceData HexBytes  `json:"service_data"`
}

func (ServiceData128) Kind() string { return "ServiceData128" }
func (r ServiceData128) String() string {
	return fmt.Sprintf("Service Data %s: %s", r.UUID, r.ServiceData)
}

// RemoteID is a single ASTM F3411 message carried in Service Data 0xFFFA.
// Counter is set when the ASTM application code and message counter
// preceded the message.
type RemoteID struct {
	Header
	Counter *uint8           `json:"counter,omitempty"`
	Message remoteid.Message `json:"-"`
}

func (RemoteID) Kind() string { return "RemoteID" }
func (r RemoteID) String() string {
	return fmt.Sprintf("Remote ID %v", r.Message)
}

// RemoteIDPack is a message pack carried in Service Data 0xFFFA.
type RemoteIDPack struct {
	Header
	Pack remoteid.Pack `json:"pack"`
}

func (RemoteIDPack) Kind() string { return "RemoteIDPack" }
func (r RemoteIDPack) String() string {
	parts := make([]string, 0, len(r.Pack.Messages))
	for _, m := range r.Pack.Messages {
		parts = append(parts, fmt.Sprint(m))
	}
	return fmt.Sprintf("Remote ID Pack #%d (%d/%d): %s", r.Pack.Counter, len(r.Pack.Messages), r.Pack.Quantity, strings.Join(parts, "; "))
}

// Generic is an AD type without a registered decoder.
type Generic struct {
	Header
}

func (Generic) Kind() string { return "Generic" }
func (r Generic) String() string {
	name := TypeName(r.Type)
	if name == "" {
		name = "Unknown"
	}
	return fmt.Sprintf("%s (0x%02X): %s", name, r.Type, r.Data)
}

// Malformed is an AD type whose decoder rejected the payload.
type Malformed struct {
	Header
	Err string `json:"error"`
}

func (Malformed) Kind() string { return "Malformed" }
func (r Malformed) String() string {
	return fmt.Sprintf("Malformed 0x%02X (%s): %s", r.Type, r.Err, r.Data)
}

func joinStringers[T fmt.Stringer](in []T) string {
	parts := make([]string, 0, len(in))
	for _, v := range in {
		parts = append(parts, v.String())
	}
	return strings.Join(parts, ", ")
}
