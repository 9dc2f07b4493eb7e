package gps

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strings"
	"sync"
	"time"

	"blesniff/internal/serialport"
	"blesniff/internal/util"
)

type Config struct {
	// Mode: auto|gpsd|serial
	Mode string

	// GPSDAddr: host:port, e.g. 127.0.0.1:2947
	GPSDAddr string

	// SerialDev: e.g. /dev/ttyACM0
	SerialDev string
	// SerialBaud: typical 9600
	SerialBaud int

	// Exclude lists serial devices that must not be probed as GPS
	// (the sniffer dongle, when it is also a serial device).
	Exclude []string
}

// Fix is the receiver position.
type Fix struct {
	Lat  float64
	Lon  float64
	Alt  float64
	Time time.Time
}

func (f Fix) String() string {
	return fmt.Sprintf("%f, %f", f.Lat, f.Lon)
}

// State tracks the receiver position from gpsd or a serial NMEA device.
type State struct {
	mu sync.RWMutex

	enabled bool
	online  bool

	fix        Fix
	lastPacket time.Time
	timeout    time.Duration

	// activeCloser is set while a reader is running; the watchdog uses it to
	// force a reconnect when packets stop.
	activeCloser func()
	activeKind   string
}

func NewState(enabled bool, timeout time.Duration) *State {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &State{enabled: enabled, timeout: timeout}
}

func (s *State) Enabled() bool { return s != nil && s.enabled }

// Source returns the active reader kind: "gpsd", "serial", or "".
func (s *State) Source() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeKind
}

// Snapshot returns the last fix. ok is false when no fix was ever received;
// stale is true when the fix is older than the freshness timeout.
func (s *State) Snapshot() (f Fix, ok bool, stale bool) {
	if s == nil {
		return Fix{}, false, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.enabled || s.fix.Time.IsZero() {
		return Fix{}, false, false
	}
	return s.fix, true, time.Since(s.fix.Time) > s.timeout
}

// Label renders the fix for the status line: "lat, lon" when fresh,
// "(lat, lon)" when cached and "" when there is no fix.
func (s *State) Label() string {
	f, ok, stale := s.Snapshot()
	switch {
	case !ok:
		return ""
	case stale:
		return "(" + f.String() + ")"
	default:
		return f.String()
	}
}

func (s *State) Status() string {
	if s == nil {
		return "off"
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch {
	case !s.enabled:
		return "off"
	case s.online:
		return "online"
	default:
		return "offline"
	}
}

// Stop closes the active reader. It is safe to call multiple times.
func (s *State) Stop() {
	s.mu.RLock()
	closer := s.activeCloser
	s.mu.RUnlock()
	if closer != nil {
		closer()
	}
}

// Start launches the reader selected by cfg.Mode and returns immediately.
func (s *State) Start(ctx context.Context, cfg Config) error {
	if !s.enabled {
		return nil
	}
	cfg = normalizeConfig(cfg)

	switch cfg.Mode {
	case "gpsd":
	case "serial":
		if cfg.SerialDev == "" {
			return errors.New("gps serial mode requires a device path (e.g., --gps-device /dev/ttyACM0)")
		}
	case "auto":
		if canConnectGPSD(cfg.GPSDAddr, 800*time.Millisecond) {
			cfg.Mode = "gpsd"
			break
		}
		if cfg.SerialDev == "" {
			cfg.SerialDev = serialport.GuessDevice(cfg.Exclude...)
		}
		if cfg.SerialDev == "" {
			return fmt.Errorf("gps auto mode: gpsd not reachable at %s and no serial device detected", cfg.GPSDAddr)
		}
		cfg.Mode = "serial"
	default:
		return fmt.Errorf("invalid gps mode: %q (expected auto|gpsd|serial)", cfg.Mode)
	}

	go s.statusLoop(ctx)
	go s.watchdogLoop(ctx)
	if cfg.Mode == "gpsd" {
		go s.runGPSDLoop(ctx, cfg.GPSDAddr)
	} else {
		go s.runSerialLoop(ctx, cfg)
	}
	return nil
}

func normalizeConfig(cfg Config) Config {
	cfg.Mode = strings.ToLower(strings.TrimSpace(cfg.Mode))
	if cfg.Mode == "" {
		cfg.Mode = "auto"
	}
	cfg.GPSDAddr = strings.TrimSpace(cfg.GPSDAddr)
	if cfg.GPSDAddr == "" {
		cfg.GPSDAddr = "127.0.0.1:2947"
	}
	cfg.SerialDev = strings.TrimSpace(cfg.SerialDev)
	if cfg.SerialBaud <= 0 {
		cfg.SerialBaud = 9600
	}
	return cfg
}

func canConnectGPSD(addr string, timeout time.Duration) bool {
	c, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return false
	}
	_ = c.Close()
	return true
}

func (s *State) updateFix(lat, lon float64) {
	s.mu.Lock()
	s.fix.Lat = lat
	s.fix.Lon = lon
	s.fix.Time = time.Now()
	s.mu.Unlock()
}

func (s *State) updateAltitude(alt float64) {
	s.mu.Lock()
	s.fix.Alt = alt
	s.mu.Unlock()
}

func (s *State) updatePacket() {
	s.mu.Lock()
	s.lastPacket = time.Now()
	s.mu.Unlock()
}

func (s *State) setActiveCloser(kind string, closer func()) {
	s.mu.Lock()
	s.activeKind = kind
	s.activeCloser = closer
	// A fresh connection counts as a packet so the watchdog does not fire at once.
	s.lastPacket = time.Now()
	s.mu.Unlock()
}

func (s *State) clearActiveCloser() {
	s.mu.Lock()
	s.activeKind = ""
	s.activeCloser = nil
	s.mu.Unlock()
}

func (s *State) statusLoop(ctx context.Context) {
	t := time.NewTicker(time.Second)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}

		s.mu.Lock()
		was := s.online
		s.online = !s.fix.Time.IsZero() && time.Since(s.fix.Time) <= s.timeout
		now := s.online
		s.mu.Unlock()

		if was == now {
			continue
		}
		if now {
			util.Line("[GPS]", util.ColorGreen, "signal acquired")
			log.Printf("gps: signal acquired")
			continue
		}
		if last := s.Label(); last != "" {
			util.Linef("[GPS]", util.ColorYellow, "signal lost (using last known %s)", last)
			log.Printf("gps: signal lost (using last known %s)", last)
		} else {
			util.Line("[GPS]", util.ColorYellow, "signal lost (no last known fix)")
			log.Printf("gps: signal lost")
		}
	}
}

// watchdogLoop forces a reconnect when packets stop arriving, which covers
// USB hot-unplug and stalled gpsd streams.
func (s *State) watchdogLoop(ctx context.Context) {
	const noPacketTimeout = 12 * time.Second
	const minReconnectPeriod = 10 * time.Second

	t := time.NewTicker(time.Second)
	defer t.Stop()

	var lastKick time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}

		s.mu.RLock()
		lp := s.lastPacket
		closer := s.activeCloser
		kind := s.activeKind
		s.mu.RUnlock()

		if closer == nil || lp.IsZero() || time.Since(lp) <= noPacketTimeout {
			continue
		}
		if !lastKick.IsZero() && time.Since(lastKick) < minReconnectPeriod {
			continue
		}
		lastKick = time.Now()
		util.Linef("[GPS]", util.ColorYellow, "no packets for %s (%s) -> reconnecting", noPacketTimeout, kind)
		log.Printf("gps: no packets for %s (%s) -> reconnecting", noPacketTimeout, kind)
		closer()
	}
}
