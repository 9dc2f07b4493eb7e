package advdata

import (
	"encoding/binary"
	"errors"
	"fmt"
	"slices"
	"unicode/utf8"

	"github.com/google/uuid"

	"blesniff/internal/remoteid"
)

var (
	ErrShortPayload = errors.New("payload too short")
	ErrBadLength    = errors.New("payload length is not a multiple of the field width")
	ErrBadText      = errors.New("text is not valid UTF-8")
)

func shortPayload(h Header, need int) error {
	return fmt.Errorf("%w: type 0x%02X has %d bytes, need %d", ErrShortPayload, h.Type, len(h.Data), need)
}

func decodeFlags(h Header) (Record, error) {
	if len(h.Data) < 1 {
		return nil, shortPayload(h, 1)
	}
	r := Flags{Header: h, Flags: h.Data[0]}
	for _, f := range flagNames {
		if r.Flags&f.bit != 0 {
			r.Names = append(r.Names, f.name)
		}
	}
	return r, nil
}

func listWidth(h Header, w int) error {
	if len(h.Data)%w != 0 {
		return fmt.Errorf("%w: %d bytes, width %d", ErrBadLength, len(h.Data), w)
	}
	return nil
}

func decodeServiceList16(h Header) (Record, error) {
	if err := listWidth(h, 2); err != nil {
		return nil, err
	}
	r := ServiceList16{Header: h, Complete: h.Type == TypeAllUUID16}
	for d := h.Data; len(d) > 0; d = d[2:] {
		r.UUIDs = append(r.UUIDs, UUID16(binary.LittleEndian.Uint16(d)))
	}
	return r, nil
}

func decodeServiceList32(h Header) (Record, error) {
	if err := listWidth(h, 4); err != nil {
		return nil, err
	}
	r := ServiceList32{Header: h, Complete: h.Type == TypeAllUUID32}
	for d := h.Data; len(d) > 0; d = d[4:] {
		r.UUIDs = append(r.UUIDs, UUID32(binary.LittleEndian.Uint32(d)))
	}
	return r, nil
}

func decodeServiceList128(h Header) (Record, error) {
	if err := listWidth(h, 16); err != nil {
		return nil, err
	}
	r := ServiceList128{Header: h, Complete: h.Type == TypeAllUUID128}
	for d := h.Data; len(d) > 0; d = d[16:] {
		u, err := uuidLE(d[:16])
		if err != nil {
			return nil, err
		}
		r.UUIDs = append(r.UUIDs, u)
	}
	return r, nil
}

// uuidLE converts a little-endian on-air 128-bit UUID.
func uuidLE(b []byte) (uuid.UUID, error) {
	be := slices.Clone(b)
	slices.Reverse(be)
	return uuid.FromBytes(be)
}

func text(h Header) (string, error) {
	if !utf8.Valid(h.Data) {
		return "", ErrBadText
	}
	return string(h.Data), nil
}

func decodeShortName(h Header) (Record, error) {
	s, err := text(h)
	if err != nil {
		return nil, err
	}
	return ShortenedName{Header: h, Name: s}, nil
}

func decodeCompleteName(h Header) (Record, error) {
	s, err := text(h)
	if err != nil {
		return nil, err
	}
	return CompleteName{Header: h, Name: s}, nil
}

func decodeTxPower(h Header) (Record, error) {
	if len(h.Data) < 1 {
		return nil, shortPayload(h, 1)
	}
	return TxPowerLevel{Header: h, DBm: int8(h.Data[0])}, nil
}

func decodeServiceData16(h Header) (Record, error) {
	if len(h.Data) < 2 {
		return nil, shortPayload(h, 2)
	}
	u := UUID16(binary.LittleEndian.Uint16(h.Data))
	if u == RemoteIDServiceUUID {
		return decodeRemoteID(h, h.Data[2:])
	}
	return ServiceData16{Header: h, UUID: u, ServiceData: HexBytes(h.Data[2:])}, nil
}

func decodeServiceData32(h Header) (Record, error) {
	if len(h.Data) < 4 {
		return nil, shortPayload(h, 4)
	}
	return ServiceData32{
		Header:      h,
		UUID:        UUID32(binary.LittleEndian.Uint32(h.Data)),
		ServiceData: HexBytes(h.Data[4:]),
	}, nil
}

func decodeServiceData128(h Header) (Record, error) {
	if len(h.Data) < 16 {
		return nil, shortPayload(h, 16)
	}
	u, err := uuidLE(h.Data[:16])
	if err != nil {
		return nil, err
	}
	return ServiceData128{Header: h, UUID: u, ServiceData: HexBytes(h.Data[16:])}, nil
}

// decodeRemoteID picks the entry point for ASTM service data. With the
// application code present the layout is [0x0D][counter][message...] and a
// pack is recognised by type nibble 0xF right after the counter.
// A bare Basic ID with ua_type 13 also starts with 0x0D; it is read as the
// application code.
func decodeRemoteID(h Header, sd []byte) (Record, error) {
	if len(sd) == 0 || sd[0] != remoteIDAppCode {
		return RemoteID{Header: h, Message: remoteid.DecodeMessage(sd)}, nil
	}
	sd = sd[1:]
	if len(sd) == 0 {
		return nil, fmt.Errorf("%w: remote id service data has no message counter", ErrShortPayload)
	}
	if len(sd) > 1 && sd[1]>>4 == remoteid.TypeMessagePack {
		p, err := remoteid.DecodeMessagePack(sd)
		if err != nil {
			return nil, err
		}
		return RemoteIDPack{Header: h, Pack: p}, nil
	}
	counter := sd[0]
	return RemoteID{Header: h, Counter: &counter, Message: remoteid.DecodeMessage(sd[1:])}, nil
}
