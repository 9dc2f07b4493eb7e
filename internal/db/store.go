package db

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const timeLayout = "2006-01-02 15:04:05.000"

type Store struct {
	mu sync.Mutex
	db *sql.DB
}

func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// Best-effort; foreign keys are off by default in SQLite.
	_, _ = db.Exec(`PRAGMA foreign_keys = ON;`)
	_, _ = db.Exec(`PRAGMA journal_mode = WAL;`)
	// SQLite is effectively single-writer; one connection avoids SQLITE_BUSY
	// when the decode workers write concurrently.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{db: db}
	if err := s.Initialize(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

var schema = []string{`
CREATE TABLE IF NOT EXISTS capture_sessions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at TEXT,
	source TEXT,
	tag TEXT,
	gps_start TEXT
);`, `
CREATE TABLE IF NOT EXISTS devices (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	mac TEXT UNIQUE COLLATE NOCASE,
	name TEXT,
	company TEXT,
	vendor TEXT,
	first_seen TEXT,
	last_seen TEXT,
	last_rssi INTEGER,
	detection_count INTEGER DEFAULT 1
);`, `
CREATE TABLE IF NOT EXISTS advertisements (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id INTEGER,
	device_id INTEGER,
	mac TEXT,
	timestamp TEXT,
	rssi INTEGER,
	adv_raw TEXT,
	adv_json TEXT,
	malformed INTEGER DEFAULT 0,
	gps TEXT,
	FOREIGN KEY(session_id) REFERENCES capture_sessions(id) ON DELETE CASCADE,
	FOREIGN KEY(device_id) REFERENCES devices(id) ON DELETE CASCADE
);`,
	`CREATE INDEX IF NOT EXISTS idx_advertisements_mac ON advertisements(mac)`, `
CREATE TABLE IF NOT EXISTS remote_id_messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id INTEGER,
	advertisement_id INTEGER,
	mac TEXT,
	timestamp TEXT,
	counter INTEGER,
	message_type INTEGER,
	message_name TEXT,
	drone_id TEXT,
	latitude REAL,
	longitude REAL,
	altitude REAL,
	speed REAL,
	direction INTEGER,
	operator_id TEXT,
	description TEXT,
	distance_m REAL,
	message_json TEXT,
	FOREIGN KEY(advertisement_id) REFERENCES advertisements(id) ON DELETE CASCADE
);`,
	`CREATE INDEX IF NOT EXISTS idx_remote_id_mac_time ON remote_id_messages(mac, timestamp)`,
}

// Initialize creates missing tables and applies column additions for
// databases written by older versions.
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, q := range schema {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}

	cols, err := tableColumns(ctx, s.db, "advertisements")
	if err != nil {
		return err
	}
	if !cols["gps"] {
		_ = execIgnore(s.db, ctx, `ALTER TABLE advertisements ADD COLUMN gps TEXT`)
	}
	if !cols["malformed"] {
		_ = execIgnore(s.db, ctx, `ALTER TABLE advertisements ADD COLUMN malformed INTEGER DEFAULT 0`)
	}
	return nil
}

func tableColumns(ctx context.Context, db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, `PRAGMA table_info(`+table+`);`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	cols := map[string]bool{}
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull int
		var dflt sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return nil, err
		}
		cols[name] = true
	}
	return cols, rows.Err()
}

func execIgnore(db *sql.DB, ctx context.Context, q string) error {
	_, err := db.ExecContext(ctx, q)
	return err
}

func normalizeMAC(mac string) string {
	return strings.ToUpper(strings.TrimSpace(mac))
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.Format(timeLayout)
}

func optString(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func optInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func optFloat(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func optUint8(p *uint8) any {
	if p == nil {
		return nil
	}
	return int(*p)
}

func nonEmpty(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
