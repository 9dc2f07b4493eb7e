package gps

import (
	"bufio"
	"context"
	"errors"
	"log"
	"strings"
	"time"

	nmea "github.com/adrianmo/go-nmea"

	"blesniff/internal/serialport"
	"blesniff/internal/util"
)

func (s *State) runSerialLoop(ctx context.Context, cfg Config) {
	dev := cfg.SerialDev
	connected := false
	for ctx.Err() == nil {
		if !connected {
			util.Linef("[GPS]", util.ColorGray, "opening serial %s (%d baud)", dev, cfg.SerialBaud)
			log.Printf("gps: opening serial %s (%d baud)", dev, cfg.SerialBaud)
		}
		connected = true
		if err := s.readSerial(ctx, dev, cfg.SerialBaud); err != nil {
			connected = false
			util.Linef("[GPS]", util.ColorYellow, "serial disconnected: %v", err)
			log.Printf("gps: serial disconnected: %v", err)

			// Hot-plug: the device may come back under another name.
			if guessed := serialport.GuessDevice(cfg.Exclude...); guessed != "" && guessed != dev {
				util.Linef("[GPS]", util.ColorGray, "serial device changed -> %s", guessed)
				log.Printf("gps: serial device changed -> %s", guessed)
				dev = guessed
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(2 * time.Second):
			}
		}
	}
}

func (s *State) readSerial(ctx context.Context, dev string, baud int) error {
	port, err := serialport.Open(dev, baud)
	if err != nil {
		return err
	}
	defer port.Close()

	s.setActiveCloser("serial", func() { _ = port.Close() })
	defer s.clearActiveCloser()

	// Unblock the scanner when ctx is canceled.
	go func() {
		<-ctx.Done()
		_ = port.Close()
	}()

	scanner := bufio.NewScanner(port)
	scanner.Buffer(make([]byte, 0, 64*1024), 256*1024)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "$") {
			continue
		}
		s.updatePacket()
		s.handleNMEA(line)
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return errors.New("serial reader stopped")
}

func (s *State) handleNMEA(line string) {
	sent, err := nmea.Parse(line)
	if err != nil {
		return
	}
	switch v := sent.(type) {
	case nmea.RMC:
		if strings.EqualFold(v.Validity, "A") {
			s.updateFix(v.Latitude, v.Longitude)
		}
	case nmea.GGA:
		// FixQuality "0" is invalid.
		if v.FixQuality != "0" && (v.Latitude != 0 || v.Longitude != 0) {
			s.updateFix(v.Latitude, v.Longitude)
			s.updateAltitude(v.Altitude)
		}
	case nmea.GLL:
		if strings.EqualFold(v.Validity, "A") {
			s.updateFix(v.Latitude, v.Longitude)
		}
	case nmea.GNS:
		if v.Latitude != 0 || v.Longitude != 0 {
			s.updateFix(v.Latitude, v.Longitude)
			s.updateAltitude(v.Altitude)
		}
	}
}
