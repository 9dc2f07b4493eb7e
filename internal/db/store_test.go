package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "capture.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestInitializeIsIdempotent(t *testing.T) {
	s := openTemp(t)
	if err := s.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	cols, err := tableColumns(context.Background(), s.db, "advertisements")
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range []string{"adv_raw", "adv_json", "malformed", "gps"} {
		if !cols[c] {
			t.Errorf("missing column %s", c)
		}
	}
}

func TestInsertAndStatistics(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	sid, err := s.CreateSession(ctx, "hex:stdin", nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	rssi := -60
	now := time.Now()
	advID, err := s.InsertAdvertisement(ctx, AdvertisementParams{
		SessionID: sid, MAC: "aa:bb:cc:dd:ee:ff", Time: now, RSSI: &rssi,
		Raw: "020106", JSON: `[]`, Name: "Tag1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.InsertAdvertisement(ctx, AdvertisementParams{
		SessionID: sid, MAC: "AA:BB:CC:DD:EE:FF", Time: now.Add(time.Second), Raw: "0201", Malformed: true,
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.InsertAdvertisement(ctx, AdvertisementParams{SessionID: sid, Raw: "020106"}); err != nil {
		t.Fatal(err)
	}

	var count int
	var name string
	if err := s.db.QueryRow(`SELECT detection_count, name FROM devices WHERE mac = 'AA:BB:CC:DD:EE:FF'`).Scan(&count, &name); err != nil {
		t.Fatal(err)
	}
	if count != 2 || name != "Tag1" {
		t.Fatalf("device row: count=%d name=%q", count, name)
	}

	counter := uint8(7)
	lat, lon := 51.5, -0.12
	for _, p := range []RemoteIDParams{
		{SessionID: sid, AdvertisementID: advID, MAC: "aa:bb:cc:dd:ee:ff", Counter: &counter, MessageType: 0, MessageName: "Basic ID", DroneID: "DRONE1"},
		{SessionID: sid, AdvertisementID: advID, MAC: "aa:bb:cc:dd:ee:ff", MessageType: 1, MessageName: "Location/Vector", Latitude: &lat, Longitude: &lon},
	} {
		if _, err := s.InsertRemoteIDMessage(ctx, p); err != nil {
			t.Fatal(err)
		}
	}

	id, err := s.LastDroneID(ctx, "AA:BB:CC:DD:EE:FF")
	if err != nil || id != "DRONE1" {
		t.Fatalf("last drone id = %q, %v", id, err)
	}
	if id, err := s.LastDroneID(ctx, "11:22:33:44:55:66"); err != nil || id != "" {
		t.Fatalf("unknown mac = %q, %v", id, err)
	}

	st, err := s.GetStatistics(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := Statistics{Sessions: 1, Devices: 1, NamedDevices: 1, Advertisements: 3, Malformed: 1, RemoteIDMessages: 2, Drones: 1}
	if st != want {
		t.Fatalf("stats = %+v, want %+v", st, want)
	}
}
