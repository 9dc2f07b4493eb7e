package serialport

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// Port is a serial device with whatever USB details the enumerator found.
type Port struct {
	Name    string
	Product string
	VID     string
	PID     string
	Serial  string
}

func (p Port) String() string {
	if p.Product == "" && p.VID == "" {
		return p.Name
	}
	return p.Name + " (" + strings.TrimSpace(p.Product+" "+p.VID+":"+p.PID) + ")"
}

// ListPorts returns the serial devices present on the system.
// Sniffer dongles and USB GPS receivers typically appear as /dev/ttyUSB* or /dev/ttyACM*.
func ListPorts() ([]Port, error) {
	detailed, err := enumerator.GetDetailedPortsList()
	if err == nil && len(detailed) > 0 {
		out := make([]Port, 0, len(detailed))
		for _, p := range detailed {
			out = append(out, Port{
				Name:    p.Name,
				Product: p.Product,
				VID:     p.VID,
				PID:     p.PID,
				Serial:  p.SerialNumber,
			})
		}
		return out, nil
	}

	names, err2 := serial.GetPortsList()
	if err2 != nil {
		if err != nil {
			return nil, err
		}
		return nil, err2
	}
	out := make([]Port, 0, len(names))
	for _, n := range names {
		out = append(out, Port{Name: n})
	}
	return out, nil
}

// GuessDevice returns a likely serial device that is not in exclude,
// or "" when nothing is found. The sniffer and the GPS receiver are both
// serial devices, so callers pass the one already claimed.
func GuessDevice(exclude ...string) string {
	taken := func(p string) bool {
		if p == "" {
			return true
		}
		if slices.Contains(exclude, p) {
			return true
		}
		if r, err := filepath.EvalSymlinks(p); err == nil && slices.Contains(exclude, r) {
			return true
		}
		return false
	}

	if matches, _ := filepath.Glob("/dev/serial/by-id/*"); len(matches) > 0 {
		for _, m := range matches {
			if !taken(m) {
				return m
			}
		}
	}

	if ports, _ := ListPorts(); len(ports) > 0 {
		for _, p := range ports {
			if !taken(p.Name) {
				return p.Name
			}
		}
	}

	for _, c := range []string{"/dev/ttyACM0", "/dev/ttyUSB0", "/dev/ttyACM1", "/dev/ttyUSB1", "/dev/ttyAMA0"} {
		if _, err := os.Stat(c); err == nil && !taken(c) {
			return c
		}
	}
	return ""
}

// Open opens dev in 8N1 mode at baud.
func Open(dev string, baud int) (serial.Port, error) {
	return serial.Open(dev, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
}
