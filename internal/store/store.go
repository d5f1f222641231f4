// Package store persists calendar events keyed by id. Backends share the
// same contract: List returns every record, Put upserts and stamps sync
// metadata, Delete and Clear remove records.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"schoolcal/internal/config"
	appLog "schoolcal/internal/log"
	"schoolcal/internal/model"
)

// Store is the record store used by the calendar service.
type Store interface {
	List(ctx context.Context) ([]model.Event, error)
	Get(ctx context.Context, id string) (model.Event, error)
	Put(ctx context.Context, e model.Event) (model.Event, error)
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
	Close() error
}

// Open builds the backend named by cfg.StoreDriver and applies migrations.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	if cfg == nil {
		return nil, config.ErrNilConfig
	}
	switch cfg.StoreDriver {
	case "memory":
		return NewMemory(), nil
	case "", "sqlite":
		path := cfg.SQLitePath()
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return nil, fmt.Errorf("store: create data dir: %w", err)
			}
		}
		return OpenSQLite(ctx, path)
	case "postgres":
		return OpenPostgres(ctx, cfg.StoreDSN)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.StoreDriver)
	}
}

// stamp prepares an event for writing: lastModified is set to now, a
// missing sync status becomes local and a missing creation time is filled.
func stamp(e model.Event, now time.Time) (model.Event, error) {
	if strings.TrimSpace(e.ID) == "" {
		return model.Event{}, ErrMissingID
	}
	if e.SyncStatus == "" {
		e.SyncStatus = model.SyncLocal
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.LastModified = now
	e.YearTags = slices.Clone(e.YearTags)
	return e, nil
}

func encode(e model.Event) ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("store: encode %s: %w", e.ID, err)
	}
	return b, nil
}

func decode(id string, payload []byte) (model.Event, error) {
	var e model.Event
	if err := json.Unmarshal(payload, &e); err != nil {
		appLog.Error("store: corrupt record", err, "id", id)
		return model.Event{}, fmt.Errorf("store: decode %s: %w", id, err)
	}
	return e, nil
}
