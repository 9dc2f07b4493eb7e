package advdata

import "fmt"

var cdpDeviceTypes = map[byte]string{
	1:  "Xbox One",
	6:  "Apple iPhone",
	7:  "Apple iPad",
	8:  "Android device",
	9:  "Windows 10 Desktop",
	11: "Windows 10 Phone",
	12: "Linux device",
	13: "Windows IoT",
	14: "Surface Hub",
	15: "Windows laptop",
	16: "Windows tablet",
}

// MicrosoftMSD is a Connected Devices Platform beacon.
type MicrosoftMSD struct {
	ManufacturerSpecific
	ScenarioType   byte     `json:"scenario_type"`
	Version        byte     `json:"version"`
	DeviceType     byte     `json:"device_type"`
	DeviceTypeName string   `json:"device_type_name,omitempty"`
	VersionFlags   byte     `json:"version_flags"`
	Salt           HexBytes `json:"salt,omitempty"`
	DeviceHash     HexBytes `json:"device_hash,omitempty"`
}

func (MicrosoftMSD) Kind() string { return "MicrosoftMSD" }
func (r MicrosoftMSD) String() string {
	name := r.DeviceTypeName
	if name == "" {
		name = fmt.Sprintf("type %d", r.DeviceType)
	}
	return fmt.Sprintf("Microsoft CDP: scenario=%d version=%d device=%s flags=0x%02X", r.ScenarioType, r.Version, name, r.VersionFlags)
}

func decodeMicrosoft(base ManufacturerSpecific) (Record, error) {
	d := []byte(base.VendorData)
	if len(d) < 4 {
		return nil, fmt.Errorf("%w: microsoft cdp header has %d bytes, need 4", ErrShortPayload, len(d))
	}
	r := MicrosoftMSD{
		ManufacturerSpecific: base,
		ScenarioType:         d[0],
		Version:              d[1] >> 5,
		DeviceType:           d[1] & 0x1F,
		VersionFlags:         d[2],
	}
	r.DeviceTypeName = cdpDeviceTypes[r.DeviceType]
	if len(d) >= 8 {
		r.Salt = HexBytes(d[4:8])
		r.DeviceHash = HexBytes(d[8:])
	}
	return r, nil
}
