package capture

import (
	"bytes"
	"cmp"
	"encoding/binary"
	"maps"
	"slices"

	"github.com/google/uuid"

	"blesniff/internal/advdata"
)

var bluetoothBase = uuid.MustParse("00000000-0000-1000-8000-00805f9b34fb")

// Fields is an advertisement already split up by the host stack. BlueZ and
// tinygo on Linux hand out parsed fields instead of the raw payload, so
// Payload re-encodes them as AD structures for the decoder.
type Fields struct {
	Name             string
	TxPower          *int8
	ServiceUUIDs     []uuid.UUID
	ManufacturerData map[uint16][]byte
	ServiceData      map[uuid.UUID][]byte

	// Extra holds AD types the stack passed through untouched
	// (BlueZ AdvertisingData), keyed by AD type.
	Extra map[byte][]byte
}

// short16 reports the 16-bit alias of u when it sits on the Bluetooth base UUID.
func short16(u uuid.UUID) (uint16, bool) {
	if u[0] != 0 || u[1] != 0 || !bytes.Equal(u[4:], bluetoothBase[4:]) {
		return 0, false
	}
	return binary.BigEndian.Uint16(u[2:4]), true
}

func reversed(u uuid.UUID) []byte {
	b := slices.Clone(u[:])
	slices.Reverse(b)
	return b
}

// Payload encodes f. Fields whose body would not fit a one-byte length are dropped.
func (f Fields) Payload() []byte {
	var out []byte
	put := func(typ byte, body []byte) {
		if len(body) > 254 {
			return
		}
		out = append(out, byte(len(body)+1), typ)
		out = append(out, body...)
	}

	if f.Name != "" {
		put(advdata.TypeCompleteName, []byte(f.Name))
	}
	if f.TxPower != nil {
		put(advdata.TypeTxPower, []byte{byte(*f.TxPower)})
	}

	var list16, list128 []byte
	for _, u := range f.ServiceUUIDs {
		if s, ok := short16(u); ok {
			list16 = binary.LittleEndian.AppendUint16(list16, s)
			continue
		}
		list128 = append(list128, reversed(u)...)
	}
	if len(list16) > 0 {
		put(advdata.TypeAllUUID16, list16)
	}
	if len(list128) > 0 {
		put(advdata.TypeAllUUID128, list128)
	}

	for _, u := range slices.SortedFunc(maps.Keys(f.ServiceData), func(a, b uuid.UUID) int {
		return bytes.Compare(a[:], b[:])
	}) {
		data := f.ServiceData[u]
		if s, ok := short16(u); ok {
			put(advdata.TypeServiceData16, append(binary.LittleEndian.AppendUint16(nil, s), data...))
			continue
		}
		put(advdata.TypeServiceData128, append(reversed(u), data...))
	}

	for _, id := range slices.SortedFunc(maps.Keys(f.ManufacturerData), cmp.Compare[uint16]) {
		put(advdata.TypeManufacturerData, append(binary.LittleEndian.AppendUint16(nil, id), f.ManufacturerData[id]...))
	}

	for _, t := range slices.Sorted(maps.Keys(f.Extra)) {
		put(t, f.Extra[t])
	}
	return out
}
