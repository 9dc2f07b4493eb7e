package remoteid

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var (
	ErrShortMessage = errors.New("message too short")
	ErrBadText      = errors.New("text field is not valid UTF-8")
	ErrShortPack    = errors.New("message pack header too short")
)

const coordScale = 1e7

// DecodeMessage decodes a single message. data starts at the message header
// byte; any transport framing must already be stripped.
// Decoding never fails: problems are reported as an Error message.
func DecodeMessage(data []byte) Message {
	if len(data) == 0 {
		return Unknown{Type: -1}
	}

	typ := int(data[0] >> 4)
	if data[0] == TypeLegacy22 && len(data) >= minLegacy22 {
		typ = TypeLegacy22
	}

	var (
		m   Message
		err error
	)
	switch typ {
	case TypeBasicID:
		m, err = decodeBasicID(data)
	case TypeLocationVector:
		m, err = decodeLocationVector(data)
	case TypeSelfID:
		m, err = decodeSelfID(data)
	case TypeSystem:
		m, err = decodeSystem(data)
	case TypeOperatorID:
		m, err = decodeOperatorID(data)
	case TypeLegacy22:
		m, err = decodeLegacy22(data)
	default:
		return Unknown{Type: typ, Data: data}
	}
	if err != nil {
		return Error{Type: typ, Reason: err.Error()}
	}
	return m
}

func need(data []byte, n int) error {
	if len(data) < n {
		return fmt.Errorf("%w: have %d bytes, need %d", ErrShortMessage, len(data), n)
	}
	return nil
}

func decodeBasicID(data []byte) (Message, error) {
	if err := need(data, minBasicID); err != nil {
		return nil, err
	}
	id, err := asciiField(data[1:])
	if err != nil {
		return nil, err
	}
	return BasicID{
		IDType:  data[0] >> 4,
		UAType:  data[0] & 0x0F,
		DroneID: id,
	}, nil
}

func decodeLocationVector(data []byte) (Message, error) {
	if err := need(data, minLocationVector); err != nil {
		return nil, err
	}
	return LocationVector{
		OperationalStatus: data[0] >> 4,
		EastWestDirection: (data[0] >> 1) & 0x01,
		SpeedMultiplier:   data[0] & 0x01,
		Direction:         data[1],
		Speed:             data[2],
		VerticalSpeed:     data[3],
		Latitude:          coord(data[4:8]),
		Longitude:         coord(data[8:12]),
		PressureAltitude:  i16(data[12:14]),
		GeodeticAltitude:  i16(data[14:16]),
		HeightAGL:         i16(data[16:18]),
		HorizAccuracy:     data[18] >> 4,
		VertAccuracy:      data[18] & 0x0F,
		BaroAccuracy:      data[19] >> 4,
		SpeedAccuracy:     data[19] & 0x0F,
		Timestamp:         float64(u24(data[20:23])) / 10,
		TimestampAccuracy: data[23],
	}, nil
}

func decodeSelfID(data []byte) (Message, error) {
	if err := need(data, minSelfID); err != nil {
		return nil, err
	}
	desc, err := asciiField(data[1:])
	if err != nil {
		return nil, err
	}
	return SelfID{DescriptionType: data[0] >> 4, Description: desc}, nil
}

// decodeSystem follows the on-air layout where byte 16 is shared by the
// classification category nibble and the high byte of the operator altitude.
func decodeSystem(data []byte) (Message, error) {
	if err := need(data, minSystem); err != nil {
		return nil, err
	}
	return System{
		ClassificationType:       data[0] >> 6,
		OperatorLocationType:     (data[0] >> 4) & 0x03,
		OperatorLatitude:         coord(data[1:5]),
		OperatorLongitude:        coord(data[5:9]),
		AreaCount:                data[9],
		AreaRadius:               binary.BigEndian.Uint16(data[10:12]),
		AreaCeiling:              binary.BigEndian.Uint16(data[12:14]),
		AreaFloor:                binary.BigEndian.Uint16(data[14:16]),
		UAClassificationCategory: data[16] >> 4,
		OperatorGeodeticAltitude: i16(data[16:18]),
		MessageTimestamp:         binary.BigEndian.Uint32(data[18:22]),
	}, nil
}

func decodeOperatorID(data []byte) (Message, error) {
	if err := need(data, minOperatorID); err != nil {
		return nil, err
	}
	id, err := asciiField(data[1:])
	if err != nil {
		return nil, err
	}
	return OperatorID{OperatorIDType: data[0] >> 4, OperatorID: id}, nil
}

func decodeLegacy22(data []byte) (Message, error) {
	if err := need(data, minLegacy22); err != nil {
		return nil, err
	}
	id, err := asciiField(data[10:26])
	if err != nil {
		return nil, fmt.Errorf("drone id: %w", err)
	}
	desc, err := asciiField(data[83:147])
	if err != nil {
		return nil, fmt.Errorf("description: %w", err)
	}
	return MessageType22{DroneID: id, Description: desc}, nil
}

func asciiField(b []byte) (string, error) {
	if !utf8.Valid(b) {
		return "", ErrBadText
	}
	return strings.TrimRight(string(b), "\x00"), nil
}

func coord(b []byte) float64 {
	return float64(int32(binary.BigEndian.Uint32(b))) / coordScale
}

func i16(b []byte) int16 {
	return int16(binary.BigEndian.Uint16(b))
}

func u24(b []byte) uint32 {
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}
