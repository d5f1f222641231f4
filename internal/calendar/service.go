// Package calendar is the application service behind the CLI and the HTTP
// API. It owns the in-memory event set and the derived term structure,
// reloads both from the record store after every write, and reports the
// outcome of each user-facing operation through a Notifier.
package calendar

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"schoolcal/internal/dates"
	"schoolcal/internal/importer"
	appLog "schoolcal/internal/log"
	"schoolcal/internal/metrics"
	"schoolcal/internal/model"
	"schoolcal/internal/store"
	"schoolcal/internal/terms"
	"schoolcal/internal/view"
)

// Options wires a Service. Store is required.
type Options struct {
	Store    store.Store
	Letters  *terms.Letters
	Metrics  *metrics.Manager
	Notifier Notifier
	Save     importer.SaveOptions
	// Now defaults to time.Now.
	Now func() time.Time
}

// Outcome is what a mutating operation reports back to its caller.
type Outcome struct {
	Notice
	Result *importer.Result `json:"result,omitempty"`
	Event  *model.Event     `json:"event,omitempty"`
	Letter model.Letter     `json:"letter,omitempty"`
}

type Service struct {
	store    store.Store
	letters  *terms.Letters
	metrics  *metrics.Manager
	notifier Notifier
	save     importer.SaveOptions
	now      func() time.Time

	mu      sync.RWMutex
	events  []model.Event
	weeks   []model.TermWeek
	groups  []model.TermGroup
	termKey string
}

func New(opts Options) (*Service, error) {
	if opts.Store == nil {
		return nil, store.ErrNotInitialized
	}
	if opts.Letters == nil {
		opts.Letters = terms.NewLetters(nil)
	}
	if opts.Notifier == nil {
		opts.Notifier = LogNotifier{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		store:    opts.Store,
		letters:  opts.Letters,
		metrics:  opts.Metrics,
		notifier: opts.Notifier,
		save:     opts.Save,
		now:      opts.Now,
	}, nil
}

func (s *Service) notify(n Notice) Outcome {
	s.notifier.Notify(n)
	return Outcome{Notice: n}
}

// Refresh reloads every event from the store, backfills missing sync
// metadata, sorts by date and rebuilds the term structure when the term
// markers changed.
func (s *Service) Refresh(ctx context.Context) error {
	started := time.Now()
	events, err := s.store.List(ctx)
	if err != nil {
		appLog.Error("refresh: list failed", err)
		return fmt.Errorf("refresh: %w", err)
	}

	var stale []model.Event
	for i := range events {
		if importer.EnsureSyncMetadata(&events[i]) {
			stale = append(stale, events[i])
		}
	}
	if len(stale) > 0 {
		saved, err := importer.SaveAll(ctx, s.store, stale, s.save)
		if err != nil {
			appLog.Error("refresh: sync metadata backfill incomplete", err, "pending", len(stale)-len(saved))
		}
		byID := make(map[string]model.Event, len(saved))
		for _, e := range saved {
			byID[e.ID] = e
		}
		for i := range events {
			if e, ok := byID[events[i].ID]; ok {
				events[i] = e
			}
		}
		appLog.Info("refresh: backfilled sync metadata", "count", len(saved))
	}

	sortByDate(events)

	s.mu.Lock()
	key := termMarkerKey(events)
	if key != s.termKey {
		s.weeks = terms.BuildWeeks(events)
		s.groups = terms.BuildGroups(s.weeks)
		s.termKey = key
	}
	s.events = events
	groups := len(s.groups)
	s.mu.Unlock()

	s.metrics.ObserveRefresh(time.Since(started).Seconds(), len(events), groups)
	appLog.Debug("refresh complete", "events", len(events), "terms", groups)
	return nil
}

// sortByDate orders events chronologically; unreadable dates go last.
func sortByDate(events []model.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i].Date, events[j].Date
		av, bv := dates.Valid(a), dates.Valid(b)
		if av != bv {
			return av
		}
		return av && a < b
	})
}

// termMarkerKey hashes the fields of term markers that feed derivation.
func termMarkerKey(events []model.Event) string {
	h := sha256.New()
	h.Write([]byte{1})
	for _, e := range events {
		if !e.IsTerm() {
			continue
		}
		fmt.Fprintf(h, "%s\x00%s\x00%s\x00%s\x00%s\x1e", e.ID, e.Title, e.StartDate, e.EndDate, e.Notes)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Events returns a copy of the current event set in date order.
func (s *Service) Events() []model.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.events)
}

// Groups returns the derived terms.
func (s *Service) Groups() []model.TermGroup {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.groups)
}

// Weeks returns the derived term weeks.
func (s *Service) Weeks() []model.TermWeek {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.weeks)
}

// Letters exposes the week-letter preferences.
func (s *Service) Letters() *terms.Letters { return s.letters }

// Snapshot renders both views for st from the current data.
func (s *Service) Snapshot(st view.State) view.Snapshot {
	s.mu.RLock()
	events, groups := s.events, s.groups
	s.mu.RUnlock()
	return view.Render(st, events, groups, s.letters, s.now())
}

// AddEvent validates and saves a manually entered event.
func (s *Service) AddEvent(ctx context.Context, in importer.ManualInput) (Outcome, error) {
	ev, err := importer.NewManualEvent(in)
	switch {
	case err == nil:
	case errors.Is(err, importer.ErrTitleRequired):
		return s.notify(Notice{Message: "Please provide an event title.", Variant: VariantError}), err
	case errors.Is(err, importer.ErrInvalidDate):
		return s.notify(Notice{Message: "Please choose a valid date.", Variant: VariantError}), err
	default:
		return s.notify(Notice{Message: "Unable to save event", Variant: VariantError}), err
	}

	stored, err := s.store.Put(ctx, ev)
	if err != nil {
		appLog.Error("unable to save event", err, "id", ev.ID)
		return s.notify(Notice{Message: "Unable to save event", Variant: VariantError}), err
	}
	if err := s.Refresh(ctx); err != nil {
		appLog.Error("refresh after save failed", err)
	}
	out := s.notify(Notice{Message: "Event saved", Variant: VariantSuccess})
	out.Event = &stored
	return out, nil
}

// DeleteEvent removes one event. Unknown ids are not an error.
func (s *Service) DeleteEvent(ctx context.Context, id string) (Outcome, error) {
	if err := s.store.Delete(ctx, id); err != nil {
		appLog.Error("unable to remove event", err, "id", id)
		return s.notify(Notice{Message: "Unable to remove event", Variant: VariantError}), err
	}
	if err := s.Refresh(ctx); err != nil {
		appLog.Error("refresh after delete failed", err)
	}
	return s.notify(Notice{Message: "Event removed", Variant: VariantSuccess}), nil
}

// ClearAll removes every event. Week-letter preferences are kept.
func (s *Service) ClearAll(ctx context.Context) (Outcome, error) {
	if err := s.store.Clear(ctx); err != nil {
		appLog.Error("unable to clear events", err)
		return s.notify(Notice{Message: "Failed to clear events.", Variant: VariantError}), err
	}
	if err := s.Refresh(ctx); err != nil {
		appLog.Error("refresh after clear failed", err)
	}
	return s.notify(Notice{Message: "All local events have been cleared.", Variant: VariantSuccess}), nil
}

// ToggleWeekLetter flips the first-week letter of a derived term.
func (s *Service) ToggleWeekLetter(termName string) (Outcome, error) {
	known := slices.ContainsFunc(s.Groups(), func(g model.TermGroup) bool { return g.TermName == termName })
	if !known {
		return s.notify(Notice{Message: "No term data available yet.", Variant: VariantInfo}),
			fmt.Errorf("%w: %q", ErrUnknownTerm, termName)
	}
	next, err := s.letters.Toggle(termName)
	if err != nil {
		out := s.notify(Notice{Message: "Unable to save week letter preference.", Variant: VariantError})
		out.Letter = next
		return out, err
	}
	out := s.notify(Notice{Message: fmt.Sprintf("%s now starts with week %s.", termName, next), Variant: VariantSuccess})
	out.Letter = next
	return out, nil
}

// Event reads a single event straight from the store.
func (s *Service) Event(ctx context.Context, id string) (model.Event, error) {
	return s.store.Get(ctx, id)
}
