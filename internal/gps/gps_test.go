package gps

import (
	"math"
	"testing"
	"time"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		want, tol              float64
	}{
		{"same point", 51.5, -0.12, 51.5, -0.12, 0, 1e-6},
		{"one degree of latitude", 0, 0, 1, 0, 111195, 5},
		{"london to paris", 51.5074, -0.1278, 48.8566, 2.3522, 343560, 500},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Distance(tc.lat1, tc.lon1, tc.lat2, tc.lon2)
			if math.Abs(got-tc.want) > tc.tol {
				t.Fatalf("got %.1f m, want %.1f m", got, tc.want)
			}
		})
	}
}

func TestBearing(t *testing.T) {
	if b := Bearing(0, 0, 1, 0); math.Abs(b) > 1e-9 {
		t.Fatalf("north = %v", b)
	}
	if b := Bearing(0, 0, 0, 1); math.Abs(b-90) > 1e-9 {
		t.Fatalf("east = %v", b)
	}
	if b := Bearing(0, 0, 0, -1); math.Abs(b-270) > 1e-9 {
		t.Fatalf("west = %v", b)
	}
}

func TestHandleNMEA(t *testing.T) {
	s := NewState(true, time.Minute)
	s.handleNMEA("$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47")
	f, ok, stale := s.Snapshot()
	if !ok || stale {
		t.Fatalf("ok=%v stale=%v", ok, stale)
	}
	if math.Abs(f.Lat-48.1173) > 1e-4 || math.Abs(f.Lon-11.516667) > 1e-4 || f.Alt != 545.4 {
		t.Fatalf("fix = %+v", f)
	}

	// Void RMC is ignored.
	s = NewState(true, time.Minute)
	s.handleNMEA("$GPRMC,123519,V,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*7D")
	if _, ok, _ := s.Snapshot(); ok {
		t.Fatal("void RMC produced a fix")
	}
}

func TestHandleGPSD(t *testing.T) {
	s := NewState(true, time.Minute)
	s.handleGPSD(`{"class":"TPV","mode":1,"lat":10,"lon":20}`)
	if _, ok, _ := s.Snapshot(); ok {
		t.Fatal("mode 1 produced a fix")
	}
	s.handleGPSD(`{"class":"SKY"}`)
	s.handleGPSD(`{"class":"TPV","mode":3,"lat":10.5,"lon":-20.25,"altHAE":120.5}`)
	f, ok, _ := s.Snapshot()
	if !ok || f.Lat != 10.5 || f.Lon != -20.25 || f.Alt != 120.5 {
		t.Fatalf("fix = %+v ok=%v", f, ok)
	}
	if s.Label() != "10.500000, -20.250000" {
		t.Fatalf("label = %q", s.Label())
	}
}

func TestDisabledState(t *testing.T) {
	s := NewState(false, time.Second)
	s.updateFix(1, 2)
	if _, ok, _ := s.Snapshot(); ok {
		t.Fatal("disabled state reported a fix")
	}
	if s.Status() != "off" {
		t.Fatalf("status = %s", s.Status())
	}
	var nilState *State
	if nilState.Label() != "" || nilState.Enabled() {
		t.Fatal("nil state")
	}
}
