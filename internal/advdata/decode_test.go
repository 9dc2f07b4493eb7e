package advdata

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/google/uuid"

	"blesniff/internal/remoteid"
)

// sample advertisement: flags, complete name, tx power, 16-bit uuid list,
// Apple iBeacon MSD.
func sampleAdv() []byte {
	var b []byte
	b = append(b, 0x02, TypeFlags, 0x06)
	b = append(b, 0x05, TypeCompleteName, 'T', 'a', 'g', '1')
	b = append(b, 0x02, TypeTxPower, 0xF4)
	b = append(b, 0x05, TypeAllUUID16, 0x0F, 0x18, 0xFA, 0xFF)
	msd := []byte{0x4C, 0x00, 0x02, 0x15}
	msd = append(msd, ibeaconUUID[:]...)
	msd = append(msd, 0x00, 0x01, 0x00, 0x02, 0xC5)
	b = append(b, byte(len(msd)+1), TypeManufacturerData)
	b = append(b, msd...)
	return b
}

var ibeaconUUID = uuid.MustParse("e2c56db5-dffb-48d2-b060-d0f5a71096e0")

func TestTokenize(t *testing.T) {
	blocks := Tokenize(sampleAdv())
	if len(blocks) != 5 {
		t.Fatalf("blocks = %d", len(blocks))
	}
	for _, b := range blocks {
		if len(b.Payload) != int(b.Length)-1 {
			t.Errorf("type 0x%02X payload %d, length %d", b.Type, len(b.Payload), b.Length)
		}
	}
	if blocks[1].Type != TypeCompleteName || string(blocks[1].Payload) != "Tag1" {
		t.Fatalf("name block = %+v", blocks[1])
	}
}

func TestTokenizeStopsOnBadLength(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
		want int
	}{
		{"empty", nil, 0},
		{"zero length", []byte{0x02, 0x01, 0x06, 0x00, 0x09, 'x'}, 1},
		{"overrun", []byte{0x02, 0x01, 0x06, 0x09, 0x09, 'a', 'b'}, 1},
		{"lone length byte", []byte{0x02, 0x01, 0x06, 0x01}, 1},
		{"length one", []byte{0x01, 0x2A, 0x02, 0x01, 0x06}, 2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Tokenize(tc.buf); len(got) != tc.want {
				t.Fatalf("got %d blocks, want %d", len(got), tc.want)
			}
		})
	}
}

func TestTruncationYieldsPrefix(t *testing.T) {
	full := sampleAdv()
	want := Decode(full)
	for n := 0; n <= len(full); n++ {
		got := Decode(full[:n])
		consumed := 0
		for _, b := range Tokenize(full[:n]) {
			consumed += 1 + int(b.Length)
		}
		if consumed > n {
			t.Fatalf("n=%d consumed %d", n, consumed)
		}
		if len(got) > len(want) {
			t.Fatalf("n=%d got %d records", n, len(got))
		}
		for i := range got {
			if got[i].Kind() != want[i].Kind() || !bytes.Equal(got[i].Raw(), want[i].Raw()) {
				t.Fatalf("n=%d record %d = %v, want %v", n, i, got[i], want[i])
			}
		}
	}
}

func TestDecodeSample(t *testing.T) {
	recs := Decode(sampleAdv())
	kinds := make([]string, 0, len(recs))
	for _, r := range recs {
		kinds = append(kinds, r.Kind())
	}
	want := []string{"Flags", "CompleteName", "TxPowerLevel", "ServiceList16", "AppleMSD"}
	if !reflect.DeepEqual(kinds, want) {
		t.Fatalf("kinds = %v", kinds)
	}

	if f := recs[0].(Flags); f.Flags != 0x06 || len(f.Names) != 2 {
		t.Errorf("flags = %+v", f)
	}
	if n := recs[1].(CompleteName); n.Name != "Tag1" {
		t.Errorf("name = %q", n.Name)
	}
	if p := recs[2].(TxPowerLevel); p.DBm != -12 {
		t.Errorf("tx power = %d", p.DBm)
	}
	l := recs[3].(ServiceList16)
	if !l.Complete || !reflect.DeepEqual(l.UUIDs, []UUID16{0x180F, 0xFFFA}) {
		t.Errorf("uuids = %+v", l)
	}
	a := recs[4].(AppleMSD)
	if a.CompanyID != CompanyApple || a.IBeacon == nil {
		t.Fatalf("apple = %+v", a)
	}
	if a.IBeacon.UUID != ibeaconUUID || a.IBeacon.Major != 1 || a.IBeacon.Minor != 2 || a.IBeacon.MeasuredPower != -59 {
		t.Errorf("ibeacon = %+v", a.IBeacon)
	}
}

func TestDecodeBlockKeepsRaw(t *testing.T) {
	tests := []struct {
		name    string
		typ     byte
		payload []byte
		kind    string
	}{
		{"flags", TypeFlags, []byte{0x06}, "Flags"},
		{"empty flags", TypeFlags, nil, "Malformed"},
		{"odd uuid16 list", TypeSomeUUID16, []byte{0x01, 0x02, 0x03}, "Malformed"},
		{"uuid32 list", TypeAllUUID32, []byte{1, 2, 3, 4}, "ServiceList32"},
		{"short uuid128 list", TypeAllUUID128, make([]byte, 15), "Malformed"},
		{"bad name", TypeShortName, []byte{0xC3, 0x28}, "Malformed"},
		{"appearance", TypeAppearance, []byte{0xC1, 0x03}, "Generic"},
		{"vendor type", 0x3D, []byte{1}, "Generic"},
		{"service data 16", TypeServiceData16, []byte{0x0F, 0x18, 0x64}, "ServiceData16"},
		{"short service data 32", TypeServiceData32, []byte{1, 2, 3}, "Malformed"},
		{"short msd", TypeManufacturerData, []byte{0x4C}, "Malformed"},
		{"unknown company", TypeManufacturerData, []byte{0x34, 0x12, 0xAA}, "ManufacturerSpecific"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := DecodeBlock(tc.typ, tc.payload)
			if r.Kind() != tc.kind {
				t.Fatalf("kind = %s (%v)", r.Kind(), r)
			}
			if r.TypeCode() != tc.typ || !bytes.Equal(r.Raw(), tc.payload) {
				t.Fatalf("type/raw not kept: 0x%02X %x", r.TypeCode(), r.Raw())
			}
		})
	}
}

func TestServiceData128(t *testing.T) {
	u := uuid.MustParse("0000fd6f-0000-1000-8000-00805f9b34fb")
	le := make([]byte, 16)
	for i := range le {
		le[i] = u[15-i]
	}
	r, ok := DecodeBlock(TypeServiceData128, append(le, 0x42)).(ServiceData128)
	if !ok {
		t.Fatal("expected ServiceData128")
	}
	if r.UUID != u || !bytes.Equal(r.ServiceData, []byte{0x42}) {
		t.Fatalf("got %+v", r)
	}
}

func TestDecodeMSD(t *testing.T) {
	r, err := DecodeMSD([]byte{0x4C, 0x00, 0x10, 0x02, 0x0B, 0x1C})
	if err != nil {
		t.Fatal(err)
	}
	a, ok := r.(AppleMSD)
	if !ok || len(a.Messages) != 1 || a.Messages[0].Name != "Nearby Info" {
		t.Fatalf("apple = %#v", r)
	}

	r, err = DecodeMSD([]byte{0x06, 0x00, 0x01, 0x09, 0x20, 0x00, 1, 2, 3, 4, 0xAA, 0xBB})
	if err != nil {
		t.Fatal(err)
	}
	m, ok := r.(MicrosoftMSD)
	if !ok {
		t.Fatalf("microsoft = %#v", r)
	}
	if m.ScenarioType != 1 || m.DeviceType != 9 || m.DeviceTypeName != "Windows 10 Desktop" || m.VersionFlags != 0x20 {
		t.Errorf("cdp = %+v", m)
	}
	if !bytes.Equal(m.Salt, []byte{1, 2, 3, 4}) || !bytes.Equal(m.DeviceHash, []byte{0xAA, 0xBB}) {
		t.Errorf("salt/hash = %x %x", m.Salt, m.DeviceHash)
	}

	vendor := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	r, err = DecodeMSD(append([]byte{0x59, 0x00}, vendor...))
	if err != nil {
		t.Fatal(err)
	}
	g, ok := r.(ManufacturerSpecific)
	if !ok || g.CompanyID != 0x0059 || !bytes.Equal(g.VendorData, vendor) {
		t.Fatalf("generic = %#v", r)
	}

	if _, err := DecodeMSD([]byte{0x4C, 0x00, 0x07, 0x19, 0x01}); !errors.Is(err, ErrShortPayload) {
		t.Fatalf("truncated apple element: err = %v", err)
	}
	if _, err := DecodeMSD([]byte{0x06}); !errors.Is(err, ErrShortPayload) {
		t.Fatalf("short: err = %v", err)
	}
}

func remoteIDBlock(sd ...byte) []byte {
	b := []byte{byte(len(sd) + 3), TypeServiceData16, 0xFA, 0xFF}
	return append(b, sd...)
}

func TestRemoteIDRouting(t *testing.T) {
	basic := append([]byte{0x0D, 0x07, 0x02}, []byte("DRONE1\x00\x00")...)
	recs := Decode(remoteIDBlock(basic...))
	if len(recs) != 1 {
		t.Fatalf("records = %d", len(recs))
	}
	rid, ok := recs[0].(RemoteID)
	if !ok {
		t.Fatalf("record = %#v", recs[0])
	}
	if rid.Counter == nil || *rid.Counter != 7 {
		t.Fatalf("counter = %v", rid.Counter)
	}
	if rid.Message != (remoteid.BasicID{IDType: 0, UAType: 2, DroneID: "DRONE1"}) {
		t.Fatalf("message = %#v", rid.Message)
	}

	// No application code: the message starts right after the UUID.
	rid = Decode(remoteIDBlock(0x30, 'h', 'i'))[0].(RemoteID)
	if rid.Counter != nil || rid.Message != (remoteid.SelfID{DescriptionType: 3, Description: "hi"}) {
		t.Fatalf("bare = %#v", rid)
	}

	// A short location message is an Error inside a RemoteID record.
	rid = Decode(remoteIDBlock(0x0D, 0x01, 0x10, 0x00))[0].(RemoteID)
	if e, ok := rid.Message.(remoteid.Error); !ok || e.Type != 1 {
		t.Fatalf("short location = %#v", rid.Message)
	}

	// Empty service data after the uuid.
	rid = Decode(remoteIDBlock())[0].(RemoteID)
	if u, ok := rid.Message.(remoteid.Unknown); !ok || u.Type != -1 {
		t.Fatalf("empty = %#v", rid.Message)
	}
}

func TestRemoteIDAppCodeWins(t *testing.T) {
	// 0x0D is both the application code and a Basic ID header with
	// ua_type 13. The application code reading is taken.
	rid, ok := Decode(remoteIDBlock(0x0D, 'D', 'R', 'N', '1'))[0].(RemoteID)
	if !ok {
		t.Fatalf("expected RemoteID")
	}
	if rid.Counter == nil || *rid.Counter != 'D' {
		t.Fatalf("counter = %v", rid.Counter)
	}
	if rid.Message != (remoteid.OperatorID{OperatorIDType: 5, OperatorID: "N1"}) {
		t.Fatalf("message = %#v", rid.Message)
	}
}

func TestRemoteIDPackRouting(t *testing.T) {
	msg := make([]byte, 25)
	msg[0] = 0x50
	copy(msg[1:], "OP-42")
	sd := []byte{0x0D, 0x03, 0xF2, 25, 1}
	sd = append(sd, msg...)

	r, ok := Decode(remoteIDBlock(sd...))[0].(RemoteIDPack)
	if !ok {
		t.Fatalf("expected pack, got %#v", Decode(remoteIDBlock(sd...))[0])
	}
	if r.Pack.Counter != 3 || len(r.Pack.Messages) != 1 {
		t.Fatalf("pack = %+v", r.Pack)
	}
	if r.Pack.Messages[0] != (remoteid.OperatorID{OperatorIDType: 5, OperatorID: "OP-42"}) {
		t.Fatalf("message = %#v", r.Pack.Messages[0])
	}
}

func TestCustomRegistrations(t *testing.T) {
	calls := 0
	d := NewDecoder(
		WithADType(TypeAppearance, func(h Header) (Record, error) {
			calls++
			return Generic{Header: h}, nil
		}),
		WithCompany(0x0059, func(base ManufacturerSpecific) (Record, error) {
			return nil, errors.New("nordic layout not supported")
		}),
	)
	d.DecodeBlock(TypeAppearance, []byte{0x00, 0x00})
	if calls != 1 {
		t.Fatalf("custom decoder not used")
	}
	if r := d.DecodeBlock(TypeManufacturerData, []byte{0x59, 0x00, 1}); r.Kind() != "Malformed" {
		t.Fatalf("kind = %s", r.Kind())
	}
	// The default decoder is unaffected.
	if r := DecodeBlock(TypeManufacturerData, []byte{0x59, 0x00, 1}); r.Kind() != "ManufacturerSpecific" {
		t.Fatalf("default kind = %s", r.Kind())
	}
}

func TestMarshalRecords(t *testing.T) {
	recs := Decode(append(sampleAdv(), remoteIDBlock(0x00, 'A', 'B')...))
	b, err := MarshalRecords(recs)
	if err != nil {
		t.Fatal(err)
	}
	var out []map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatal(err)
	}
	if len(out) != 6 {
		t.Fatalf("entries = %d", len(out))
	}
	s := string(b)
	for _, want := range []string{`"kind":"AppleMSD"`, `"raw":"06"`, `"uuids":["0x180F","0xFFFA"]`, `"drone_id":"AB"`, `"name":"Basic ID"`} {
		if !strings.Contains(s, want) {
			t.Errorf("json missing %s", want)
		}
	}
}
