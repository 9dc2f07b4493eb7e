package ids

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadOverlay(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "default", "company_identifiers.yaml"), `
company_identifiers:
  - value: 0x0059
    name: 'Nordic Semiconductor ASA'
  - value: 0x004C
    name: 'Apple, Inc.'
`)
	writeFile(t, filepath.Join(dir, "custom", "company_identifiers.yaml"), `
company_identifiers:
  - value: "0059"
    name: 'Nordic (lab)'
`)
	writeFile(t, filepath.Join(dir, "default", "service_uuids.yaml"), `
uuids:
  - uuid: 0x180D
    name: Heart Rate
  - uuid: 6e400001-b5a3-f393-e0a9-e50e24dcca9e
    name: Nordic UART
  - uuid: zz
    name: broken
`)
	writeFile(t, filepath.Join(dir, "default", "oui.csv"), "Registry,Assignment,Organization Name,Organization Address\nMA-L,F0-18-98,Apple Inc,Cupertino\n")

	r, err := Load(LoadConfig{DataDir: dir})
	if err != nil {
		t.Fatal(err)
	}
	if got := r.CompanyName(0x0059); got != "Nordic (lab)" {
		t.Errorf("custom overlay: %q", got)
	}
	if got := r.AnnotateCompany(0x004C); got != "0x004C (Apple, Inc.)" {
		t.Errorf("annotate: %q", got)
	}
	if got := r.AnnotateCompany(0x1234); got != "0x1234" {
		t.Errorf("annotate unknown: %q", got)
	}
	if got := r.ServiceName16(0x180D); got != "Heart Rate" {
		t.Errorf("service16: %q", got)
	}
	if got := r.ServiceName(uuid.MustParse("6E400001-B5A3-F393-E0A9-E50E24DCCA9E")); got != "Nordic UART" {
		t.Errorf("service128: %q", got)
	}
	if got := r.ServiceName16(0xFFFA); got != "ASTM Remote ID" {
		t.Errorf("builtin service: %q", got)
	}
	if got := r.VendorForMAC("f0:18:98:01:02:03"); got != "Apple Inc" {
		t.Errorf("vendor: %q", got)
	}
}

func TestLoadMissingDirs(t *testing.T) {
	r, err := Load(LoadConfig{DataDir: filepath.Join(t.TempDir(), "nope")})
	if err != nil {
		t.Fatal(err)
	}
	if r.CompanyName(0x0006) != "Microsoft" {
		t.Fatal("builtin companies missing")
	}

	if _, err := Load(LoadConfig{DataDir: t.TempDir(), CustomDir: "/does/not/exist"}); err == nil {
		t.Fatal("expected error for explicit missing custom dir")
	}
}

func TestNilResolver(t *testing.T) {
	var r *Resolver
	if r.CompanyName(1) != "" || r.VendorForMAC("AA:BB:CC:DD:EE:FF") != "" || r.ServiceName16(0x180F) != "" {
		t.Fatal("nil resolver resolved a name")
	}
}

func TestMacHex(t *testing.T) {
	tests := map[string]string{
		"aa:bb:cc:dd:ee:ff": "AABBCCDDEEFF",
		"AA-BB-CC-DD-EE-FF": "AABBCCDDEEFF",
		"":                  "",
		"aa:bb":             "",
		"aa:bb:cc:dd:ee:gg": "",
	}
	for in, want := range tests {
		if got := macHex(in); got != want {
			t.Errorf("macHex(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestVendorLongestPrefix(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "default", "oui.csv"), `Registry,Assignment,Organization Name,Organization Address
MA-L,70B3D5,IEEE Registration Authority,Piscataway
MA-M,70B3D5E,Block Vendor,Somewhere
MA-S,70B3D5F2F,Small Vendor,Elsewhere
MA-L,F0189,Short Row,Nowhere
MA-M,F01898,Wrong Registry,Nowhere
`)
	writeFile(t, filepath.Join(dir, "custom", "oui.csv"), `Registry,Assignment,Organization Name
MA-L,F0-18-98,Apple Inc
`)

	r, err := Load(LoadConfig{DataDir: dir})
	if !errors.Is(err, ErrBadOUI) {
		t.Fatalf("err = %v, want ErrBadOUI", err)
	}

	tests := map[string]string{
		"70:B3:D5:F2:F1:23": "Small Vendor",
		"70:B3:D5:E1:23:45": "Block Vendor",
		"70:B3:D5:01:23:45": "IEEE Registration Authority",
		"f0:18:98:01:02:03": "Apple Inc",
		"00:11:22:33:44:55": "",
	}
	for mac, want := range tests {
		if got := r.VendorForMAC(mac); got != want {
			t.Errorf("VendorForMAC(%q) = %q, want %q", mac, got, want)
		}
	}
}

func TestReadOUIColumnsByName(t *testing.T) {
	got, err := readOUI(strings.NewReader("Organization Name,Assignment\nAcme,00-1A-2B\n"))
	if err != nil {
		t.Fatal(err)
	}
	if got["001A2B"] != "Acme" || len(got) != 1 {
		t.Fatalf("got %v", got)
	}
}
