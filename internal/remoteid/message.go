package remoteid

import "fmt"

// Message type nibbles (high nibble of the first message byte).
const (
	TypeBasicID        = 0x0
	TypeLocationVector = 0x1
	TypeAuth           = 0x2
	TypeSelfID         = 0x3
	TypeSystem         = 0x4
	TypeOperatorID     = 0x5
	TypeMessagePack    = 0xF

	// TypeLegacy22 is not an ASTM nibble. Some transmitters emit a 147+ byte
	// combined frame whose first byte is 22 and whose fields sit at fixed
	// offsets regardless of any size header.
	TypeLegacy22 = 22
)

// Minimum payload sizes per message type.
const (
	minBasicID        = 2
	minLocationVector = 24
	minSelfID         = 2
	minSystem         = 22
	minOperatorID     = 2
	minLegacy22       = 147
)

// Message is one decoded ASTM F3411 message.
// The concrete type is one of BasicID, LocationVector, SelfID, System,
// OperatorID, MessageType22, Unknown or Error.
type Message interface {
	// MessageType is the type nibble (or 22) the message was decoded as.
	// Unknown returns -1 for an empty payload.
	MessageType() int
	Name() string
}

type BasicID struct {
	IDType  uint8  `json:"id_type"`
	UAType  uint8  `json:"ua_type"`
	DroneID string `json:"drone_id"`
}

func (BasicID) MessageType() int { return TypeBasicID }
func (BasicID) Name() string     { return "Basic ID" }

func (m BasicID) String() string {
	return fmt.Sprintf("Basic ID: %s (id_type=%s, ua_type=%s)", m.DroneID, IDTypeName(m.IDType), UATypeName(m.UAType))
}

// LocationVector carries the raw on-air values; use the accessor methods for
// unit conversion.
type LocationVector struct {
	OperationalStatus uint8   `json:"operational_status"`
	EastWestDirection uint8   `json:"ew_direction"`
	SpeedMultiplier   uint8   `json:"speed_multiplier"`
	Direction         uint8   `json:"direction"`
	Speed             uint8   `json:"speed"`
	VerticalSpeed     uint8   `json:"vert_speed"`
	Latitude          float64 `json:"latitude"`
	Longitude         float64 `json:"longitude"`
	PressureAltitude  int16   `json:"pressure_altitude"`
	GeodeticAltitude  int16   `json:"geodetic_altitude"`
	HeightAGL         int16   `json:"height_agl"`
	HorizAccuracy     uint8   `json:"horiz_accuracy"`
	VertAccuracy      uint8   `json:"vert_accuracy"`
	BaroAccuracy      uint8   `json:"baro_accuracy"`
	SpeedAccuracy     uint8   `json:"speed_accuracy"`
	// Timestamp is seconds (tenths on air) since the top of the hour.
	Timestamp         float64 `json:"timestamp"`
	TimestampAccuracy uint8   `json:"timestamp_accuracy"`
}

func (LocationVector) MessageType() int { return TypeLocationVector }
func (LocationVector) Name() string     { return "Location/Vector" }

// EastWest returns "West" when the E/W direction bit is set.
func (m LocationVector) EastWest() string {
	if m.EastWestDirection != 0 {
		return "West"
	}
	return "East"
}

// TrackDirection is the course over ground in degrees (0-359).
func (m LocationVector) TrackDirection() int {
	d := int(m.Direction)
	if m.EastWestDirection != 0 {
		d += 180
	}
	return d
}

// SpeedMPS is the horizontal ground speed in metres per second.
func (m LocationVector) SpeedMPS() float64 {
	if m.SpeedMultiplier != 0 {
		return float64(m.Speed)*0.75 + 255*0.25
	}
	return float64(m.Speed) * 0.25
}

// VerticalSpeedMPS is the signed climb rate in metres per second.
func (m LocationVector) VerticalSpeedMPS() float64 {
	return float64(int8(m.VerticalSpeed)) * 0.5
}

func (m LocationVector) String() string {
	return fmt.Sprintf("Location/Vector: %.7f, %.7f alt=%d status=%s t=%.1fs",
		m.Latitude, m.Longitude, m.GeodeticAltitude, OperationalStatusName(m.OperationalStatus), m.Timestamp)
}

type SelfID struct {
	DescriptionType uint8  `json:"description_type"`
	Description     string `json:"description"`
}

func (SelfID) MessageType() int { return TypeSelfID }
func (SelfID) Name() string     { return "Self-ID" }

func (m SelfID) String() string {
	return fmt.Sprintf("Self-ID: %q (type=%d)", m.Description, m.DescriptionType)
}

type System struct {
	ClassificationType       uint8   `json:"classification_type"`
	OperatorLocationType     uint8   `json:"operator_location_type"`
	OperatorLatitude         float64 `json:"operator_latitude"`
	OperatorLongitude        float64 `json:"operator_longitude"`
	AreaCount                uint8   `json:"area_count"`
	AreaRadius               uint16  `json:"area_radius"`
	AreaCeiling              uint16  `json:"area_ceiling"`
	AreaFloor                uint16  `json:"area_floor"`
	UAClassificationCategory uint8   `json:"ua_classification_category"`
	OperatorGeodeticAltitude int16   `json:"operator_geodetic_alt"`
	MessageTimestamp         uint32  `json:"message_timestamp"`
}

func (System) MessageType() int { return TypeSystem }
func (System) Name() string     { return "System" }

func (m System) String() string {
	return fmt.Sprintf("System: operator %.7f, %.7f area_count=%d radius=%d", m.OperatorLatitude, m.OperatorLongitude, m.AreaCount, m.AreaRadius)
}

type OperatorID struct {
	OperatorIDType uint8  `json:"operator_id_type"`
	OperatorID     string `json:"operator_id"`
}

func (OperatorID) MessageType() int { return TypeOperatorID }
func (OperatorID) Name() string     { return "Operator ID" }

func (m OperatorID) String() string {
	return fmt.Sprintf("Operator ID: %s (type=%d)", m.OperatorID, m.OperatorIDType)
}

// MessageType22 is the fixed-offset legacy combined frame.
type MessageType22 struct {
	DroneID     string `json:"drone_id"`
	Description string `json:"description"`
}

func (MessageType22) MessageType() int { return TypeLegacy22 }
func (MessageType22) Name() string     { return "Message Type 22" }

func (m MessageType22) String() string {
	return fmt.Sprintf("Message Type 22: %s %q", m.DroneID, m.Description)
}

// Unknown retains the bytes of a message whose type is not decoded.
type Unknown struct {
	Type int    `json:"message_type"`
	Data []byte `json:"-"`
}

func (m Unknown) MessageType() int { return m.Type }
func (Unknown) Name() string       { return "Unknown" }

func (m Unknown) String() string {
	if m.Type < 0 {
		return "Unknown (empty)"
	}
	return fmt.Sprintf("Unknown (type=%d, %d bytes)", m.Type, len(m.Data))
}

// Error is a message that matched a known type but failed to decode.
type Error struct {
	Type   int    `json:"message_type"`
	Reason string `json:"reason"`
}

func (m Error) MessageType() int { return m.Type }
func (Error) Name() string       { return "Error" }

func (m Error) String() string {
	return fmt.Sprintf("Error (type=%d): %s", m.Type, m.Reason)
}
