// Package store provides the SQLite-backed durable store for tripburn state.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register sqlite driver
)

// Setting keys.
const (
	SettingShareCode   = "share_code"
	SettingLastShareAt = "share_published_at"
)

// DB is the local durable store: versioned state blobs, settings and a sync log.
type DB struct {
	db   *sql.DB
	path string
}

// Open opens or creates the database at the given path.
func Open(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{db: db, path: dbPath}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Path returns the database file path.
func (d *DB) Path() string {
	return d.path
}

// GetBlob returns the document stored under key, or nil if there is none.
func (d *DB) GetBlob(key string) ([]byte, error) {
	var data []byte
	err := d.db.QueryRow("SELECT data FROM blobs WHERE key = ?", key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// PutBlob replaces the document stored under key.
func (d *DB) PutBlob(key string, data []byte) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := d.db.Exec(`INSERT OR REPLACE INTO blobs (key, data, updated_at) VALUES (?, ?, ?)`, key, data, now)
	return err
}

// BlobUpdatedAt returns when key was last written. Zero time if never.
func (d *DB) BlobUpdatedAt(key string) (time.Time, error) {
	var at string
	err := d.db.QueryRow("SELECT updated_at FROM blobs WHERE key = ?", key).Scan(&at)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339Nano, at)
}

// GetSetting returns a setting value, or "" when unset.
func (d *DB) GetSetting(key string) (string, error) {
	var v string
	err := d.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return v, err
}

// SetSetting stores a setting. An empty value deletes it.
func (d *DB) SetSetting(key, value string) error {
	if value == "" {
		_, err := d.db.Exec("DELETE FROM settings WHERE key = ?", key)
		return err
	}
	_, err := d.db.Exec("INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)", key, value)
	return err
}

// SyncEvent is one entry of the sync log.
type SyncEvent struct {
	Op      string // push, pull, share
	Slug    string
	OK      bool
	Message string
	At      time.Time
}

// RecordSync appends to the sync log and trims it to the most recent 500 entries.
func (d *DB) RecordSync(ev SyncEvent) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	ok := 0
	if ev.OK {
		ok = 1
	}
	_, err = tx.Exec(`INSERT INTO sync_events (op, slug, ok, message, at) VALUES (?, ?, ?, ?, ?)`,
		ev.Op, ev.Slug, ok, ev.Message, ev.At.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return err
	}
	_, err = tx.Exec(`DELETE FROM sync_events WHERE id <= (SELECT MAX(id) FROM sync_events) - 500`)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// RecentSyncEvents returns up to limit log entries, newest first.
func (d *DB) RecentSyncEvents(limit int) ([]SyncEvent, error) {
	rows, err := d.db.Query(`SELECT op, COALESCE(slug, ''), ok, COALESCE(message, ''), at
		FROM sync_events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []SyncEvent
	for rows.Next() {
		var ev SyncEvent
		var ok int
		var at string
		if err := rows.Scan(&ev.Op, &ev.Slug, &ok, &ev.Message, &at); err != nil {
			return nil, err
		}
		ev.OK = ok == 1
		ev.At, _ = time.Parse(time.RFC3339Nano, at)
		out = append(out, ev)
	}
	return out, rows.Err()
}

// LastSync returns the newest successful event for op, and whether one exists.
func (d *DB) LastSync(op string) (SyncEvent, bool, error) {
	var ev SyncEvent
	var at string
	err := d.db.QueryRow(`SELECT op, COALESCE(slug, ''), COALESCE(message, ''), at FROM sync_events
		WHERE op = ? AND ok = 1 ORDER BY id DESC LIMIT 1`, op).Scan(&ev.Op, &ev.Slug, &ev.Message, &at)
	if errors.Is(err, sql.ErrNoRows) {
		return SyncEvent{}, false, nil
	}
	if err != nil {
		return SyncEvent{}, false, err
	}
	ev.OK = true
	ev.At, _ = time.Parse(time.RFC3339Nano, at)
	return ev, true, nil
}
