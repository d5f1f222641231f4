package importer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/sourcegraph/conc/pool"

	appLog "schoolcal/internal/log"
	"schoolcal/internal/model"
)

// Putter is the subset of the record store used for bulk saves.
type Putter interface {
	Put(ctx context.Context, e model.Event) (model.Event, error)
}

// SaveOptions tunes SaveAll. Zero values pick defaults.
type SaveOptions struct {
	Workers  int
	Attempts uint
	Delay    time.Duration
}

func (o SaveOptions) withDefaults() SaveOptions {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.Attempts == 0 {
		o.Attempts = 3
	}
	if o.Delay <= 0 {
		o.Delay = 50 * time.Millisecond
	}
	return o
}

// Result summarises a bulk import.
type Result struct {
	// Rows is the number of input rows or entries seen.
	Rows int `json:"rows"`
	// Imported is the number of events durably saved.
	Imported int `json:"imported"`
	// Skipped counts rows that could not be interpreted.
	Skipped int `json:"skipped"`
	// Failed counts events the store rejected.
	Failed int `json:"failed"`
}

// SaveAll puts every event and returns only after all saves have settled,
// successful or not. Each put is retried a few times. The returned slice
// holds the stored copies of the successful saves; err joins the failures.
func SaveAll(ctx context.Context, p Putter, events []model.Event, opts SaveOptions) ([]model.Event, error) {
	opts = opts.withDefaults()

	var (
		mu    sync.Mutex
		saved = make([]model.Event, 0, len(events))
	)

	wp := pool.New().WithErrors().WithMaxGoroutines(opts.Workers)
	for _, ev := range events {
		wp.Go(func() error {
			var stored model.Event
			err := retry.Do(
				func() error {
					var putErr error
					stored, putErr = p.Put(ctx, ev)
					return putErr
				},
				retry.Context(ctx),
				retry.Attempts(opts.Attempts),
				retry.Delay(opts.Delay),
				retry.LastErrorOnly(true),
			)
			if err != nil {
				appLog.Error("import: save failed", err, "id", ev.ID)
				return fmt.Errorf("save %s: %w", ev.ID, err)
			}
			mu.Lock()
			saved = append(saved, stored)
			mu.Unlock()
			return nil
		})
	}
	err := wp.Wait()
	return saved, err
}
