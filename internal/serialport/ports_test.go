package serialport

import "testing"

func TestPortString(t *testing.T) {
	tests := []struct {
		p    Port
		want string
	}{
		{Port{Name: "/dev/ttyACM0"}, "/dev/ttyACM0"},
		{Port{Name: "/dev/ttyACM0", Product: "nRF52 Sniffer", VID: "1915", PID: "522a"}, "/dev/ttyACM0 (nRF52 Sniffer 1915:522a)"},
		{Port{Name: "/dev/ttyUSB0", VID: "067b", PID: "2303"}, "/dev/ttyUSB0 (067b:2303)"},
	}
	for _, tc := range tests {
		if got := tc.p.String(); got != tc.want {
			t.Errorf("String() = %q, want %q", got, tc.want)
		}
	}
}
