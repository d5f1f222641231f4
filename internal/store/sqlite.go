package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	appLog "schoolcal/internal/log"
	"schoolcal/internal/model"
)

// SQLite stores one row per event with the full record as a JSON payload.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (creating if needed) the database at path and migrates it.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	dsn := "file:" + path + "?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	// sqlite has a single writer.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping sqlite: %w", err)
	}
	if err := migrate(ctx, db, goose.DialectSQLite3, "sqlite"); err != nil {
		_ = db.Close()
		return nil, err
	}
	appLog.Info("store: sqlite ready", "path", path)
	return &SQLite{db: db, now: time.Now}, nil
}

func (s *SQLite) ready() error {
	if s == nil || s.db == nil {
		return ErrNotInitialized
	}
	return nil
}

func (s *SQLite) List(ctx context.Context) ([]model.Event, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, payload FROM events ORDER BY date, id`)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()

	var out []model.Event
	for rows.Next() {
		var (
			id      string
			payload []byte
		)
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("store: scan: %w", err)
		}
		e, err := decode(id, payload)
		if err != nil {
			continue
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLite) Get(ctx context.Context, id string) (model.Event, error) {
	if err := s.ready(); err != nil {
		return model.Event{}, err
	}
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM events WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Event{}, ErrNotFound
	}
	if err != nil {
		return model.Event{}, fmt.Errorf("store: get %s: %w", id, err)
	}
	return decode(id, payload)
}

func (s *SQLite) Put(ctx context.Context, e model.Event) (model.Event, error) {
	if err := s.ready(); err != nil {
		return model.Event{}, err
	}
	stored, err := stamp(e, s.now())
	if err != nil {
		return model.Event{}, err
	}
	payload, err := encode(stored)
	if err != nil {
		return model.Event{}, err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events (id, date, type, last_modified, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			date = excluded.date,
			type = excluded.type,
			last_modified = excluded.last_modified,
			payload = excluded.payload`,
		stored.ID, stored.Date, stored.Type, stored.LastModified.UTC().Format(time.RFC3339Nano), string(payload),
	)
	if err != nil {
		return model.Event{}, fmt.Errorf("store: put %s: %w", stored.ID, err)
	}
	return stored, nil
}

func (s *SQLite) Delete(ctx context.Context, id string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id); err != nil {
		return fmt.Errorf("store: delete %s: %w", id, err)
	}
	return nil
}

func (s *SQLite) Clear(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM events`); err != nil {
		return fmt.Errorf("store: clear: %w", err)
	}
	return nil
}

func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
