// Package db persists the tracking journal: a snapshot of the object
// catalog, one row per render run, and one row per playback upload.
// SQLite keeps the whole thing a single file on the host.
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/orbview/satgrid/internal/monitoring"
	"github.com/orbview/satgrid/internal/sat"
)

type DB struct {
	*sql.DB
}

// schema is the current shape of the database. Fresh databases are
// created from it directly and stamped at the latest migration version;
// existing databases reach the same shape through the migration files.
const schema = `
	CREATE TABLE IF NOT EXISTS objects (
		norad_id      BIGINT PRIMARY KEY,
		name          TEXT,
		object_type   TEXT,
		launch_year   BIGINT,
		constellation TEXT,
		purposes      TEXT,
		group_tags    TEXT,
		epoch         TIMESTAMP,
		refreshed_at  TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS runs (
		run_id       TEXT PRIMARY KEY,
		area_slug    TEXT,
		mode         TEXT,
		run_at       TIMESTAMP,
		duration_ms  BIGINT,
		considered   BIGINT,
		drawn        BIGINT,
		out_of_frame BIGINT,
		skipped      BIGINT,
		timestamp    TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS uploads (
		session_id   TEXT PRIMARY KEY,
		cache_id     TEXT,
		area_slug    TEXT,
		frame_count  BIGINT,
		view_count   BIGINT,
		status       TEXT,
		detail       TEXT,
		uploaded_at  TIMESTAMP,
		timestamp    TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_runs_run_at ON runs(run_at);
`

// OpenDB opens the database without touching the schema. The migrate
// command uses it so migrations stay the only writer of schema changes.
// Pragmas ride on the DSN so every pooled connection gets them.
func OpenDB(path string) (*DB, error) {
	dsn := "file:" + path +
		"?_pragma=busy_timeout(5000)" +
		"&_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_pragma=temp_store(MEMORY)"
	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := sqldb.Ping(); err != nil {
		sqldb.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &DB{sqldb}, nil
}

// NewDB opens the database and ensures the current schema exists. A
// database created from scratch is baselined at the latest migration
// version so later upgrades apply cleanly.
func NewDB(path string) (*DB, error) {
	_, statErr := os.Stat(path)
	fresh := errors.Is(statErr, os.ErrNotExist)

	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	if fresh {
		if err := db.stampLatestVersion(); err != nil {
			db.Close()
			return nil, err
		}
	}
	return db, nil
}

// NewDBWithMigrationCheck opens the database and refuses to return it
// when the schema lags behind the shipped migrations. Pass skipCheck to
// bypass the refusal, for tooling that must open old databases.
func NewDBWithMigrationCheck(path string, skipCheck bool) (*DB, error) {
	db, err := NewDB(path)
	if err != nil {
		return nil, err
	}
	if skipCheck {
		return db, nil
	}

	fsys, err := getMigrationsFS()
	if err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.CheckAndPromptMigrations(fsys); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) stampLatestVersion() error {
	fsys, err := getMigrationsFS()
	if err != nil {
		return err
	}
	latest, err := GetLatestMigrationVersion(fsys)
	if err != nil {
		return err
	}
	return db.BaselineAtVersion(latest)
}

// Run is one render-run journal row: where and when a snapshot was
// rendered, how long it took, and how the catalog broke down.
type Run struct {
	ID         string    `json:"id"`
	AreaSlug   string    `json:"area_slug"`
	Mode       string    `json:"mode"`
	At         time.Time `json:"at"`
	DurationMS int64     `json:"duration_ms"`
	Considered int       `json:"considered"`
	Drawn      int       `json:"drawn"`
	OutOfFrame int       `json:"out_of_frame"`
	Skipped    int       `json:"skipped"`
}

// RecordRun inserts one render-run row.
func (db *DB) RecordRun(run Run) error {
	_, err := db.Exec(
		`INSERT INTO runs (
			run_id, area_slug, mode, run_at, duration_ms,
			considered, drawn, out_of_frame, skipped
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.AreaSlug, run.Mode, encodeTime(run.At), run.DurationMS,
		run.Considered, run.Drawn, run.OutOfFrame, run.Skipped,
	)
	return err
}

// RecentRuns returns the newest render runs, newest first.
func (db *DB) RecentRuns(limit int) ([]Run, error) {
	rows, err := db.Query(
		`SELECT run_id, area_slug, mode, run_at, duration_ms,
			considered, drawn, out_of_frame, skipped
		FROM runs ORDER BY run_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var at string
		if err := rows.Scan(
			&run.ID, &run.AreaSlug, &run.Mode, &at, &run.DurationMS,
			&run.Considered, &run.Drawn, &run.OutOfFrame, &run.Skipped,
		); err != nil {
			return nil, err
		}
		if run.At, err = decodeTime(at); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Upload journal statuses.
const (
	UploadCommitted = "committed"
	UploadRejected  = "rejected"
)

// Upload is one playback-upload journal row. Rejected uploads keep a row
// too, with the failure detail, so bad bakes stay visible.
type Upload struct {
	SessionID  string    `json:"session_id"`
	CacheID    string    `json:"cache_id"`
	AreaSlug   string    `json:"area_slug"`
	FrameCount int       `json:"frame_count"`
	ViewCount  int       `json:"view_count"`
	Status     string    `json:"status"`
	Detail     string    `json:"detail,omitempty"`
	At         time.Time `json:"at"`
}

// RecordUpload inserts one upload journal row.
func (db *DB) RecordUpload(u Upload) error {
	_, err := db.Exec(
		`INSERT INTO uploads (
			session_id, cache_id, area_slug, frame_count, view_count,
			status, detail, uploaded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.SessionID, u.CacheID, u.AreaSlug, u.FrameCount, u.ViewCount,
		u.Status, u.Detail, encodeTime(u.At),
	)
	return err
}

// RecentUploads returns the newest upload journal rows, newest first.
func (db *DB) RecentUploads(limit int) ([]Upload, error) {
	rows, err := db.Query(
		`SELECT session_id, cache_id, area_slug, frame_count, view_count,
			status, detail, uploaded_at
		FROM uploads ORDER BY uploaded_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var uploads []Upload
	for rows.Next() {
		var u Upload
		var at string
		if err := rows.Scan(
			&u.SessionID, &u.CacheID, &u.AreaSlug, &u.FrameCount,
			&u.ViewCount, &u.Status, &u.Detail, &at,
		); err != nil {
			return nil, err
		}
		if u.At, err = decodeTime(at); err != nil {
			return nil, err
		}
		uploads = append(uploads, u)
	}
	return uploads, rows.Err()
}

// ReplaceObjects replaces the persisted catalog snapshot in one
// transaction, so readers never see a half-refreshed table.
func (db *DB) ReplaceObjects(objs []*sat.TrackedObject) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM objects`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(
		`INSERT INTO objects (
			norad_id, name, object_type, launch_year, constellation,
			purposes, group_tags, epoch
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, o := range objs {
		purposes := make([]string, len(o.Purposes))
		for i, p := range o.Purposes {
			purposes[i] = p.String()
		}
		if _, err := stmt.Exec(
			o.NoradID, o.Name, o.Type.String(), o.LaunchYear, o.Constellation,
			strings.Join(purposes, ","), strings.Join(o.Groups, ","),
			encodeTime(o.Epoch),
		); err != nil {
			return fmt.Errorf("object %d: %w", o.NoradID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	monitoring.Debugf("db: catalog snapshot replaced, %d objects", len(objs))
	return nil
}

// ObjectCount returns the number of rows in the catalog snapshot.
func (db *DB) ObjectCount() (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM objects`).Scan(&n)
	return n, err
}

// Times are stored as RFC 3339 text so rows stay readable in tailsql
// and survive the driver's type mapping.
func encodeTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func decodeTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad stored timestamp %q: %w", s, err)
	}
	return t, nil
}
