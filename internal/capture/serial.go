package capture

import (
	"context"
	"errors"
	"log"
	"time"

	"blesniff/internal/serialport"
	"blesniff/internal/util"
)

// SerialSource reads hex lines from a sniffer dongle on a serial port.
// It reopens the port after unplug, re-detecting the device when its path changes.
type SerialSource struct {
	Device  string
	Baud    int
	Exclude []string
}

func (s *SerialSource) Name() string { return "serial:" + s.Device }

func (s *SerialSource) Run(ctx context.Context, out chan<- Frame) error {
	if s.Baud <= 0 {
		s.Baud = 115200
	}
	if s.Device == "" {
		s.Device = serialport.GuessDevice(s.Exclude...)
	}
	if s.Device == "" {
		return errors.New("no serial sniffer device detected")
	}

	connected := false
	for ctx.Err() == nil {
		if !connected {
			util.Linef("[CAPTURE]", util.ColorGray, "opening serial %s (%d baud)", s.Device, s.Baud)
			log.Printf("capture: opening serial %s (%d baud)", s.Device, s.Baud)
		}
		connected = true
		if err := s.read(ctx, out); err != nil && ctx.Err() == nil {
			connected = false
			util.Linef("[CAPTURE]", util.ColorYellow, "serial disconnected: %v", err)
			log.Printf("capture: serial disconnected: %v", err)
			if guessed := serialport.GuessDevice(s.Exclude...); guessed != "" && guessed != s.Device {
				util.Linef("[CAPTURE]", util.ColorGray, "serial device changed -> %s", guessed)
				s.Device = guessed
			}
			select {
			case <-ctx.Done():
			case <-time.After(2 * time.Second):
			}
		}
	}
	return nil
}

func (s *SerialSource) read(ctx context.Context, out chan<- Frame) error {
	port, err := serialport.Open(s.Device, s.Baud)
	if err != nil {
		return err
	}
	defer port.Close()

	stop := context.AfterFunc(ctx, func() { _ = port.Close() })
	defer stop()

	if err := scanLines(ctx, port, s.Name(), out); err != nil {
		return err
	}
	return errors.New("serial reader stopped")
}
