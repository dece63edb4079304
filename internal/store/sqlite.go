package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	appLog "beatclock/internal/log"
	"beatclock/internal/model"
)

// ErrNotFound is returned when a reminder ID does not exist.
var ErrNotFound = errors.New("store: not found")

const settingsKey = "settings"

// SQLite provides SQLite-backed storage for reminders and settings.
type SQLite struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema.
func Open(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One writer keeps SQLITE_BUSY out of the request path.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS reminders (
			id           INTEGER PRIMARY KEY,
			title        TEXT    NOT NULL,
			description  TEXT    NOT NULL DEFAULT '',
			date         TEXT    NOT NULL,
			time         TEXT    NOT NULL DEFAULT '',
			beats        TEXT    NOT NULL DEFAULT '',
			repeat       TEXT    NOT NULL DEFAULT 'none',
			alert_before TEXT    NOT NULL DEFAULT '15min',
			due_at       TEXT    NOT NULL,
			dismissed    INTEGER NOT NULL DEFAULT 0,
			created_at   TEXT    NOT NULL
		);
		CREATE TABLE IF NOT EXISTS kv (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// InsertReminder stores a new reminder.
func (s *SQLite) InsertReminder(ctx context.Context, r model.Reminder) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reminders (id, title, description, date, time, beats, repeat, alert_before, due_at, dismissed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.Title, r.Description, r.Date, r.Time, r.Beats, r.Repeat, r.AlertBefore,
		r.DueAt.UTC().Format(time.RFC3339Nano), boolInt(r.Dismissed), r.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert reminder: %w", err)
	}
	return nil
}

// ListReminders returns every reminder ordered by ID. Rows with unreadable
// timestamps are skipped.
func (s *SQLite) ListReminders(ctx context.Context) ([]model.Reminder, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, date, time, beats, repeat, alert_before, due_at, dismissed, created_at
		FROM reminders ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	defer rows.Close()

	var out []model.Reminder
	for rows.Next() {
		var (
			r                model.Reminder
			dueAt, createdAt string
			dismissed        int
		)
		if err := rows.Scan(&r.ID, &r.Title, &r.Description, &r.Date, &r.Time, &r.Beats,
			&r.Repeat, &r.AlertBefore, &dueAt, &dismissed, &createdAt); err != nil {
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		r.DueAt, err = time.Parse(time.RFC3339Nano, dueAt)
		if err != nil {
			appLog.Error("skipping reminder with bad due_at", err, "id", r.ID)
			continue
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		r.Dismissed = dismissed != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// MarkDismissed sets the dismissed flag. Dismissed reminders are kept.
func (s *SQLite) MarkDismissed(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE reminders SET dismissed = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("dismiss reminder: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("dismiss reminder %d: %w", id, ErrNotFound)
	}
	return nil
}

// LoadSettings returns the stored settings, normalized. A missing or
// unreadable record yields the defaults; only a failing database is an error.
func (s *SQLite) LoadSettings(ctx context.Context) (model.Settings, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, settingsKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return model.DefaultSettings(), nil
	}
	if err != nil {
		return model.DefaultSettings(), fmt.Errorf("load settings: %w", err)
	}

	var st model.Settings
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		appLog.Error("stored settings unreadable; using defaults", err)
		return model.DefaultSettings(), nil
	}
	st.Normalize()
	return st, nil
}

// SaveSettings normalizes and stores st.
func (s *SQLite) SaveSettings(ctx context.Context, st model.Settings) error {
	st.Normalize()
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, settingsKey, string(data), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
