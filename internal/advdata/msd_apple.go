package advdata

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var appleTypeNames = map[byte]string{
	0x02: "iBeacon",
	0x03: "AirPrint",
	0x05: "AirDrop",
	0x06: "HomeKit",
	0x07: "Proximity Pairing",
	0x08: "Hey Siri",
	0x09: "AirPlay Target",
	0x0A: "AirPlay Source",
	0x0B: "Magic Switch",
	0x0C: "Handoff",
	0x0D: "Tethering Target",
	0x0E: "Tethering Source",
	0x0F: "Nearby Action",
	0x10: "Nearby Info",
	0x12: "Find My",
}

// AppleMessage is one type-length-value element of Apple Continuity data.
type AppleMessage struct {
	Type byte     `json:"type"`
	Name string   `json:"name,omitempty"`
	Data HexBytes `json:"data"`
}

type IBeacon struct {
	UUID          uuid.UUID `json:"uuid"`
	Major         uint16    `json:"major"`
	Minor         uint16    `json:"minor"`
	MeasuredPower int8      `json:"measured_power"`
}

type AppleMSD struct {
	ManufacturerSpecific
	Messages []AppleMessage `json:"messages"`
	IBeacon  *IBeacon       `json:"ibeacon,omitempty"`
}

func (AppleMSD) Kind() string { return "AppleMSD" }
func (r AppleMSD) String() string {
	names := make([]string, 0, len(r.Messages))
	for _, m := range r.Messages {
		n := m.Name
		if n == "" {
			n = fmt.Sprintf("0x%02X", m.Type)
		}
		names = append(names, n)
	}
	s := "Apple: " + strings.Join(names, ", ")
	if r.IBeacon != nil {
		s += fmt.Sprintf(" (iBeacon %s major=%d minor=%d power=%d)", r.IBeacon.UUID, r.IBeacon.Major, r.IBeacon.Minor, r.IBeacon.MeasuredPower)
	}
	return s
}

func decodeApple(base ManufacturerSpecific) (Record, error) {
	r := AppleMSD{ManufacturerSpecific: base}
	d := []byte(base.VendorData)
	for len(d) > 0 {
		if len(d) < 2 {
			return nil, fmt.Errorf("%w: apple element header", ErrShortPayload)
		}
		typ, l := d[0], int(d[1])
		if 2+l > len(d) {
			return nil, fmt.Errorf("%w: apple element 0x%02X declares %d bytes, %d left", ErrShortPayload, typ, l, len(d)-2)
		}
		m := AppleMessage{Type: typ, Name: appleTypeNames[typ], Data: HexBytes(d[2 : 2+l])}
		r.Messages = append(r.Messages, m)
		if typ == 0x02 && l == 21 {
			b, err := decodeIBeacon(m.Data)
			if err != nil {
				return nil, err
			}
			r.IBeacon = b
		}
		d = d[2+l:]
	}
	return r, nil
}

// decodeIBeacon reads the 21 byte iBeacon body; the proximity UUID is big endian.
func decodeIBeacon(b []byte) (*IBeacon, error) {
	u, err := uuid.FromBytes(b[0:16])
	if err != nil {
		return nil, err
	}
	return &IBeacon{
		UUID:          u,
		Major:         binary.BigEndian.Uint16(b[16:18]),
		Minor:         binary.BigEndian.Uint16(b[18:20]),
		MeasuredPower: int8(b[20]),
	}, nil
}
