package db

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

func (s *Store) CreateSession(ctx context.Context, source string, tag *string, gpsStart *string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `INSERT INTO capture_sessions (started_at, source, tag, gps_start) VALUES (?, ?, ?, ?)`,
		formatTime(time.Now()),
		source,
		optString(tag),
		optString(gpsStart),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

type AdvertisementParams struct {
	SessionID int64
	MAC       string
	Time      time.Time
	RSSI      *int
	Raw       string
	JSON      string
	Malformed bool
	GPS       *string

	// Device summary fields, applied to the devices row.
	Name    string
	Company string
	Vendor  string
}

// InsertAdvertisement stores one advertisement and upserts its device row.
// Frames without an address are stored with a NULL device.
func (s *Store) InsertAdvertisement(ctx context.Context, p AdvertisementParams) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mac := normalizeMAC(p.MAC)
	ts := formatTime(p.Time)

	var devID sql.NullInt64
	if mac != "" {
		id, err := s.upsertDevice(ctx, mac, ts, p)
		if err != nil {
			return 0, err
		}
		devID = sql.NullInt64{Int64: id, Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
INSERT INTO advertisements (session_id, device_id, mac, timestamp, rssi, adv_raw, adv_json, malformed, gps)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`, p.SessionID, devID, nonEmpty(mac), ts, optInt(p.RSSI), p.Raw, nonEmpty(p.JSON), boolToInt(p.Malformed), optString(p.GPS))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// upsertDevice must be called with s.mu held.
func (s *Store) upsertDevice(ctx context.Context, mac, ts string, p AdvertisementParams) (int64, error) {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO devices (mac, name, company, vendor, first_seen, last_seen, last_rssi, detection_count)
VALUES (?, ?, ?, ?, ?, ?, ?, 1)
ON CONFLICT(mac) DO UPDATE SET
	name = COALESCE(excluded.name, devices.name),
	company = COALESCE(excluded.company, devices.company),
	vendor = COALESCE(excluded.vendor, devices.vendor),
	last_seen = excluded.last_seen,
	last_rssi = COALESCE(excluded.last_rssi, devices.last_rssi),
	detection_count = devices.detection_count + 1
`, mac, nonEmpty(p.Name), nonEmpty(p.Company), nonEmpty(p.Vendor), ts, ts, optInt(p.RSSI))
	if err != nil {
		return 0, err
	}
	var id int64
	if err := s.db.QueryRowContext(ctx, `SELECT id FROM devices WHERE mac = ?`, mac).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

type RemoteIDParams struct {
	SessionID       int64
	AdvertisementID int64
	MAC             string
	Time            time.Time
	Counter         *uint8
	MessageType     int
	MessageName     string

	DroneID     string
	OperatorID  string
	Description string
	Latitude    *float64
	Longitude   *float64
	Altitude    *float64
	Speed       *float64
	Direction   *int
	DistanceM   *float64

	JSON string
}

func (s *Store) InsertRemoteIDMessage(ctx context.Context, p RemoteIDParams) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var advID any
	if p.AdvertisementID > 0 {
		advID = p.AdvertisementID
	}
	res, err := s.db.ExecContext(ctx, `
INSERT INTO remote_id_messages (
	session_id, advertisement_id, mac, timestamp, counter, message_type, message_name,
	drone_id, latitude, longitude, altitude, speed, direction,
	operator_id, description, distance_m, message_json
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		p.SessionID, advID, nonEmpty(normalizeMAC(p.MAC)), formatTime(p.Time), optUint8(p.Counter), p.MessageType, p.MessageName,
		nonEmpty(p.DroneID), optFloat(p.Latitude), optFloat(p.Longitude), optFloat(p.Altitude), optFloat(p.Speed), optInt(p.Direction),
		nonEmpty(p.OperatorID), nonEmpty(p.Description), optFloat(p.DistanceM), nonEmpty(p.JSON),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// LastDroneID returns the most recent Basic ID seen from mac, so location
// messages sent without one can be attributed.
func (s *Store) LastDroneID(ctx context.Context, mac string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var id string
	err := s.db.QueryRowContext(ctx, `
SELECT drone_id FROM remote_id_messages
WHERE mac = ? AND drone_id IS NOT NULL
ORDER BY id DESC LIMIT 1`, normalizeMAC(mac)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return id, err
}

type Statistics struct {
	Sessions         int
	Devices          int
	NamedDevices     int
	Advertisements   int
	Malformed        int
	RemoteIDMessages int
	Drones           int
}

func (s *Store) GetStatistics(ctx context.Context) (Statistics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var st Statistics
	queries := []struct {
		dst *int
		q   string
	}{
		{&st.Sessions, `SELECT COUNT(*) FROM capture_sessions`},
		{&st.Devices, `SELECT COUNT(*) FROM devices`},
		{&st.NamedDevices, `SELECT COUNT(*) FROM devices WHERE name IS NOT NULL AND TRIM(name) != ''`},
		{&st.Advertisements, `SELECT COUNT(*) FROM advertisements`},
		{&st.Malformed, `SELECT COUNT(*) FROM advertisements WHERE malformed = 1`},
		{&st.RemoteIDMessages, `SELECT COUNT(*) FROM remote_id_messages`},
		{&st.Drones, `SELECT COUNT(DISTINCT drone_id) FROM remote_id_messages WHERE drone_id IS NOT NULL`},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.q).Scan(q.dst); err != nil {
			return Statistics{}, err
		}
	}
	return st, nil
}
