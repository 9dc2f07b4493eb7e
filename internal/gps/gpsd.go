package gps

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"strings"
	"time"

	"blesniff/internal/util"
)

func (s *State) runGPSDLoop(ctx context.Context, addr string) {
	connected := false
	for ctx.Err() == nil {
		if !connected {
			util.Linef("[GPS]", util.ColorGray, "connecting to gpsd %s", addr)
			log.Printf("gps: connecting to gpsd %s", addr)
		}
		connected = true
		if err := s.readGPSD(ctx, addr); err != nil {
			connected = false
			util.Linef("[GPS]", util.ColorYellow, "gpsd disconnected: %v", err)
			log.Printf("gps: gpsd disconnected: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(2 * time.Second):
			}
		}
	}
}

type gpsdTPV struct {
	Class  string       `json:"class"`
	Mode   *json.Number `json:"mode"`
	Lat    *float64     `json:"lat"`
	Lon    *float64     `json:"lon"`
	AltHAE *float64     `json:"altHAE"`
	Alt    *float64     `json:"alt"`
}

func (s *State) readGPSD(ctx context.Context, addr string) error {
	conn, err := (&net.Dialer{Timeout: 2 * time.Second}).DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	s.setActiveCloser("gpsd", func() { _ = conn.Close() })
	defer s.clearActiveCloser()

	_, _ = conn.Write([]byte("?WATCH={\"enable\":true,\"json\":true}\n"))

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 256*1024)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		s.updatePacket()
		s.handleGPSD(line)
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return errors.New("gpsd connection closed")
}

// handleGPSD applies a TPV report with mode >= 2 (2D fix or better).
func (s *State) handleGPSD(line string) {
	var tpv gpsdTPV
	if err := json.Unmarshal([]byte(line), &tpv); err != nil {
		return
	}
	if tpv.Class != "TPV" || tpv.Mode == nil || tpv.Lat == nil || tpv.Lon == nil {
		return
	}
	if mode, err := tpv.Mode.Int64(); err != nil || mode < 2 {
		return
	}
	s.updateFix(*tpv.Lat, *tpv.Lon)
	switch {
	case tpv.AltHAE != nil:
		s.updateAltitude(*tpv.AltHAE)
	case tpv.Alt != nil:
		s.updateAltitude(*tpv.Alt)
	}
}
