package capture

import (
	"bytes"
	"context"
	"errors"
	"log"
	"os"
	"strings"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/google/uuid"

	"blesniff/internal/advdata"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		addr    string
		rssi    *int
		payload []byte
		err     error
	}{
		{name: "bare hex", line: "020106", payload: []byte{2, 1, 6}},
		{name: "spaced hex", line: "02 01 06", payload: []byte{2, 1, 6}},
		{name: "0x prefix", line: "0x020106", payload: []byte{2, 1, 6}},
		{name: "address and rssi", line: "aa:bb:cc:dd:ee:ff -67 020106", addr: "AA:BB:CC:DD:EE:FF", rssi: ptr(-67), payload: []byte{2, 1, 6}},
		{name: "dbm suffix", line: "-67dBm 02:01:06", rssi: ptr(-67), payload: []byte{2, 1, 6}},
		{name: "rssi key", line: "AA:BB:CC:DD:EE:FF rssi=-40 0201 06", addr: "AA:BB:CC:DD:EE:FF", rssi: ptr(-40), payload: []byte{2, 1, 6}},
		{name: "positive number is hex", line: "12 34", payload: []byte{0x12, 0x34}},
		{name: "comment", line: "# capture", err: ErrNoPayload},
		{name: "blank", line: "   ", err: ErrNoPayload},
		{name: "odd hex", line: "02010", err: errors.New("bad")},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f, err := ParseLine(tc.line)
			if tc.err != nil {
				if err == nil {
					t.Fatalf("expected error, got %+v", f)
				}
				if errors.Is(tc.err, ErrNoPayload) && !errors.Is(err, ErrNoPayload) {
					t.Fatalf("err = %v", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if f.Addr != tc.addr || !bytes.Equal(f.Payload, tc.payload) {
				t.Fatalf("got addr=%q payload=%x", f.Addr, f.Payload)
			}
			if (f.RSSI == nil) != (tc.rssi == nil) || (f.RSSI != nil && *f.RSSI != *tc.rssi) {
				t.Fatalf("rssi = %v, want %v", f.RSSI, tc.rssi)
			}
		})
	}
}

func ptr(v int) *int { return &v }

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })
	return &buf
}

func TestHexSource(t *testing.T) {
	logs := captureLog(t)
	in := strings.NewReader("# header\n020106\nzz\nAA:BB:CC:DD:EE:FF -50 0303FAFF\n")
	src := &HexSource{Label: "test", R: in}
	out := make(chan Frame, 8)
	if err := src.Run(context.Background(), out); err != nil {
		t.Fatal(err)
	}
	close(out)
	var frames []Frame
	for f := range out {
		frames = append(frames, f)
	}
	if len(frames) != 2 {
		t.Fatalf("frames = %d", len(frames))
	}
	if frames[1].Source != "hex:test" || frames[1].Addr != "AA:BB:CC:DD:EE:FF" || frames[1].Time.IsZero() {
		t.Fatalf("frame = %+v", frames[1])
	}
	for _, want := range []string{"hex:test: line 3: bad payload hex", "hex:test: read 4 lines, 2 frames, 1 skipped"} {
		if !strings.Contains(logs.String(), want) {
			t.Errorf("log missing %q:\n%s", want, logs.String())
		}
	}
}

func TestHexSourceCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := &HexSource{R: strings.NewReader("020106\n020106\n")}
	if err := src.Run(ctx, make(chan Frame)); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}

func TestFieldsPayloadDecodes(t *testing.T) {
	custom := uuid.MustParse("6e400001-b5a3-f393-e0a9-e50e24dcca9e")
	rid := uuid.MustParse("0000fffa-0000-1000-8000-00805f9b34fb")
	tx := int8(-8)
	f := Fields{
		Name:             "Beacon",
		TxPower:          &tx,
		ServiceUUIDs:     []uuid.UUID{uuid.MustParse("0000180f-0000-1000-8000-00805f9b34fb"), custom},
		ManufacturerData: map[uint16][]byte{0x0059: {1, 2}},
		ServiceData: map[uuid.UUID][]byte{
			rid:    {0x0D, 0x05, 0x30, 'h', 'i'},
			custom: {0xAA},
		},
		Extra: map[byte][]byte{advdata.TypeFlags: {0x06}},
	}

	recs := advdata.Decode(f.Payload())
	got := map[string]advdata.Record{}
	for _, r := range recs {
		got[r.Kind()] = r
	}
	for _, k := range []string{"CompleteName", "TxPowerLevel", "ServiceList16", "ServiceList128", "ManufacturerSpecific", "RemoteID", "ServiceData128", "Flags"} {
		if _, ok := got[k]; !ok {
			t.Errorf("missing %s in %v", k, recs)
		}
	}
	if l := got["ServiceList128"].(advdata.ServiceList128); len(l.UUIDs) != 1 || l.UUIDs[0] != custom {
		t.Errorf("128-bit list = %v", l.UUIDs)
	}
	if sd := got["ServiceData128"].(advdata.ServiceData128); sd.UUID != custom {
		t.Errorf("service data uuid = %s", sd.UUID)
	}
	if r := got["RemoteID"].(advdata.RemoteID); r.Counter == nil || *r.Counter != 5 {
		t.Errorf("remote id = %+v", r)
	}
	if m := got["ManufacturerSpecific"].(advdata.ManufacturerSpecific); m.CompanyID != 0x0059 {
		t.Errorf("company = 0x%04X", m.CompanyID)
	}
}

func TestFieldsPayloadDropsOversized(t *testing.T) {
	f := Fields{Name: strings.Repeat("x", 300)}
	if p := f.Payload(); len(p) != 0 {
		t.Fatalf("payload = %d bytes", len(p))
	}
}

func TestFrameFromDevice(t *testing.T) {
	dev := map[string]dbus.Variant{
		"Address":          dbus.MakeVariant("c0:11:22:33:44:55"),
		"AddressType":      dbus.MakeVariant("random"),
		"RSSI":             dbus.MakeVariant(int16(-71)),
		"Name":             dbus.MakeVariant("Drone"),
		"ManufacturerData": dbus.MakeVariant(map[uint16]dbus.Variant{0x004C: dbus.MakeVariant([]byte{0x10, 0x01, 0x00})}),
		"ServiceData":      dbus.MakeVariant(map[string]dbus.Variant{"0000fffa-0000-1000-8000-00805f9b34fb": dbus.MakeVariant([]byte{0x00, 'X'})}),
		"AdvertisingData":  dbus.MakeVariant(map[byte][]byte{0x01: {0x06}}),
	}
	f, ok := frameFromDevice(dev)
	if !ok {
		t.Fatal("device skipped")
	}
	if f.Addr != "C0:11:22:33:44:55" || f.AddrType != "static_random" || f.RSSI == nil || *f.RSSI != -71 {
		t.Fatalf("frame = %+v", f)
	}
	kinds := []string{}
	for _, r := range advdata.Decode(f.Payload) {
		kinds = append(kinds, r.Kind())
	}
	want := "CompleteName,RemoteID,AppleMSD,Flags"
	if strings.Join(kinds, ",") != want {
		t.Fatalf("kinds = %v", kinds)
	}

	delete(dev, "RSSI")
	if _, ok := frameFromDevice(dev); ok {
		t.Fatal("device without RSSI was not skipped")
	}
}

func TestClassifyAddress(t *testing.T) {
	tests := []struct {
		mac    string
		random bool
		want   string
	}{
		{"00:11:22:33:44:55", false, "public"},
		{"3F:11:22:33:44:55", true, "non_resolvable_private"},
		{"4A:11:22:33:44:55", true, "resolvable_private"},
		{"8A:11:22:33:44:55", true, "reserved"},
		{"C0:11:22:33:44:55", true, "static_random"},
		{"bogus", true, "random"},
	}
	for _, tc := range tests {
		if got := ClassifyAddress(tc.mac, tc.random); got != tc.want {
			t.Errorf("ClassifyAddress(%s, %v) = %s, want %s", tc.mac, tc.random, got, tc.want)
		}
	}
}
