package advdata

// Advertising data types (Bluetooth Assigned Numbers, Common Data Types).
const (
	TypeFlags            = 0x01
	TypeSomeUUID16       = 0x02
	TypeAllUUID16        = 0x03
	TypeSomeUUID32       = 0x04
	TypeAllUUID32        = 0x05
	TypeSomeUUID128      = 0x06
	TypeAllUUID128       = 0x07
	TypeShortName        = 0x08
	TypeCompleteName     = 0x09
	TypeTxPower          = 0x0A
	TypeServiceData16    = 0x16
	TypeAppearance       = 0x19
	TypeServiceData32    = 0x20
	TypeServiceData128   = 0x21
	TypeManufacturerData = 0xFF
)

// Flags bits.
const (
	FlagLimitedDiscoverable = 0x01
	FlagGeneralDiscoverable = 0x02
	FlagBREDRNotSupported   = 0x04
	FlagBothController      = 0x08
	FlagBothHost            = 0x10
)

// RemoteIDServiceUUID is the ASTM F3411 service UUID carried in Service Data.
const RemoteIDServiceUUID = 0xFFFA

// remoteIDAppCode prefixes ASTM F3411 service data ahead of the message counter.
const remoteIDAppCode = 0x0D

// TypeName returns the assigned name of an AD type, or "" when unknown.
func TypeName(t byte) string {
	switch t {
	case TypeFlags:
		return "Flags"
	case TypeSomeUUID16:
		return "Incomplete List of 16-bit Service Class UUIDs"
	case TypeAllUUID16:
		return "Complete List of 16-bit Service Class UUIDs"
	case TypeSomeUUID32:
		return "Incomplete List of 32-bit Service Class UUIDs"
	case TypeAllUUID32:
		return "Complete List of 32-bit Service Class UUIDs"
	case TypeSomeUUID128:
		return "Incomplete List of 128-bit Service Class UUIDs"
	case TypeAllUUID128:
		return "Complete List of 128-bit Service Class UUIDs"
	case TypeShortName:
		return "Shortened Local Name"
	case TypeCompleteName:
		return "Complete Local Name"
	case TypeTxPower:
		return "Tx Power Level"
	case TypeServiceData16:
		return "Service Data - 16-bit UUID"
	case TypeAppearance:
		return "Appearance"
	case TypeServiceData32:
		return "Service Data - 32-bit UUID"
	case TypeServiceData128:
		return "Service Data - 128-bit UUID"
	case TypeManufacturerData:
		return "Manufacturer Specific Data"
	default:
		return ""
	}
}

var flagNames = []struct {
	bit  byte
	name string
}{
	{FlagLimitedDiscoverable, "LE Limited Discoverable"},
	{FlagGeneralDiscoverable, "LE General Discoverable"},
	{FlagBREDRNotSupported, "BR/EDR Not Supported"},
	{FlagBothController, "LE and BR/EDR (Controller)"},
	{FlagBothHost, "LE and BR/EDR (Host)"},
}
