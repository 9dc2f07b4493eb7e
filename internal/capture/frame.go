package capture

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Frame is one received advertisement payload.
type Frame struct {
	Time     time.Time
	Source   string
	Addr     string
	AddrType string
	RSSI     *int
	Payload  []byte
}

// Source produces frames until ctx is done or the input ends.
// Run closes nothing; the caller owns out.
type Source interface {
	Name() string
	Run(ctx context.Context, out chan<- Frame) error
}

var ErrNoPayload = errors.New("line has no payload")

// ParseLine parses "[AA:BB:CC:DD:EE:FF] [-67] 0201060303FAFF..." as written
// by sniffer firmware and by hand. The hex may be split by spaces or colons
// and may carry a 0x prefix. RSSI is recognised by its sign or a dBm suffix.
// Blank and # lines return ErrNoPayload.
func ParseLine(line string) (Frame, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return Frame{}, ErrNoPayload
	}
	fields := strings.Fields(line)

	var f Frame
	if len(fields) > 1 && isMAC(fields[0]) {
		f.Addr = strings.ToUpper(fields[0])
		fields = fields[1:]
	}
	if len(fields) > 1 {
		if v, ok := parseRSSI(fields[0]); ok {
			f.RSSI = &v
			fields = fields[1:]
		}
	}

	h := strings.Join(fields, "")
	h = strings.TrimPrefix(strings.TrimPrefix(h, "0x"), "0X")
	h = strings.ReplaceAll(h, ":", "")
	if h == "" {
		return Frame{}, ErrNoPayload
	}
	b, err := hex.DecodeString(h)
	if err != nil {
		return Frame{}, fmt.Errorf("bad payload hex: %w", err)
	}
	f.Payload = b
	return f, nil
}

func isMAC(s string) bool {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ':' || r == '-' })
	if len(parts) != 6 || len(s) != 17 {
		return false
	}
	for _, p := range parts {
		if len(p) != 2 {
			return false
		}
		if _, err := strconv.ParseUint(p, 16, 8); err != nil {
			return false
		}
	}
	return true
}

func parseRSSI(s string) (int, bool) {
	s = strings.ToLower(s)
	tagged := strings.HasPrefix(s, "rssi=")
	s = strings.TrimPrefix(s, "rssi=")
	unit := tagged || strings.HasSuffix(s, "dbm")
	s = strings.TrimSuffix(s, "dbm")
	if !unit && !strings.HasPrefix(s, "-") {
		return 0, false
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < -127 || v > 20 {
		return 0, false
	}
	return v, true
}

// send delivers f unless ctx is done first.
func send(ctx context.Context, out chan<- Frame, f Frame) bool {
	select {
	case out <- f:
		return true
	case <-ctx.Done():
		return false
	}
}
