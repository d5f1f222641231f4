package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	appLog "schoolcal/internal/log"
	"schoolcal/internal/model"
)

// Postgres stores events in a jsonb payload column.
type Postgres struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// OpenPostgres connects to dsn and migrates the schema.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("store: postgres requires store_dsn")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping postgres: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	err = migrate(ctx, db, goose.DialectPostgres, "postgres")
	_ = db.Close()
	if err != nil {
		pool.Close()
		return nil, err
	}
	appLog.Info("store: postgres ready")
	return &Postgres{pool: pool, now: time.Now}, nil
}

func (p *Postgres) ready() error {
	if p == nil || p.pool == nil {
		return ErrNotInitialized
	}
	return nil
}

func (p *Postgres) List(ctx context.Context) ([]model.Event, error) {
	if err := p.ready(); err != nil {
		return nil, err
	}
	rows, err := p.pool.Query(ctx, `SELECT id, payload FROM events ORDER BY date, id`)
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

func (p *Postgres) Get(ctx context.Context, id string) (model.Event, error) {
	if err := p.ready(); err != nil {
		return model.Event{}, err
	}
	var payload []byte
	err := p.pool.QueryRow(ctx, `SELECT payload FROM events WHERE id = $1`, id).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Event{}, ErrNotFound
	}
	if err != nil {
		return model.Event{}, fmt.Errorf("store: get %s: %w", id, err)
	}
	return decode(id, payload)
}

func (p *Postgres) Put(ctx context.Context, e model.Event) (model.Event, error) {
	if err := p.ready(); err != nil {
		return model.Event{}, err
	}
	stored, err := stamp(e, p.now())
	if err != nil {
		return model.Event{}, err
	}
	payload, err := encode(stored)
	if err != nil {
		return model.Event{}, err
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO events (id, date, type, last_modified, payload)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			date = EXCLUDED.date,
			type = EXCLUDED.type,
			last_modified = EXCLUDED.last_modified,
			payload = EXCLUDED.payload`,
		stored.ID, stored.Date, stored.Type, stored.LastModified, payload,
	)
	if err != nil {
		return model.Event{}, fmt.Errorf("store: put %s: %w", stored.ID, err)
	}
	return stored, nil
}

func (p *Postgres) Delete(ctx context.Context, id string) error {
	if err := p.ready(); err != nil {
		return err
	}
	if _, err := p.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, id); err != nil {
		return fmt.Errorf("store: delete %s: %w", id, err)
	}
	return nil
}

func (p *Postgres) Clear(ctx context.Context) error {
	if err := p.ready(); err != nil {
		return err
	}
	if _, err := p.pool.Exec(ctx, `DELETE FROM events`); err != nil {
		return fmt.Errorf("store: clear: %w", err)
	}
	return nil
}

func (p *Postgres) Close() error {
	if p == nil || p.pool == nil {
		return nil
	}
	p.pool.Close()
	p.pool = nil
	return nil
}
