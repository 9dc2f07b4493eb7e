package status

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"

	"blesniff/internal/capture"
	"blesniff/internal/sniffer"
	"blesniff/internal/util"
)

func TestPrintOnce(t *testing.T) {
	var buf bytes.Buffer
	util.SetConsole(&buf, false)
	defer util.SetConsole(os.Stdout, true)

	s := sniffer.New(sniffer.Config{})
	s.Handle(context.Background(), capture.Frame{Addr: "AA:BB:CC:DD:EE:FF", Payload: []byte{0x02, 0x01, 0x06}})
	buf.Reset()

	printOnce(context.Background(), Provider{Sniffer: s})
	out := buf.String()
	if !strings.Contains(out, "[STATS] Frames: 1, Devices: 1, Records: 1") {
		t.Fatalf("status = %q", out)
	}
	if strings.Contains(out, "[GPS DATA]") || strings.Contains(out, "[DB STATS]") {
		t.Fatalf("disabled providers printed: %q", out)
	}
}
