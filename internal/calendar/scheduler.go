package calendar

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"schoolcal/internal/config"
	appLog "schoolcal/internal/log"
)

// Scheduler re-imports the configured feeds on a cron schedule.
type Scheduler struct {
	c       *cron.Cron
	syncer  *Syncer
	feeds   []config.FeedConfig
	running sync.Mutex
	extra   sync.WaitGroup
}

// NewScheduler registers one job for schedule, a standard five-field cron
// expression or a descriptor such as "@every 1h".
func NewScheduler(schedule string, syncer *Syncer, feeds []config.FeedConfig) (*Scheduler, error) {
	s := &Scheduler{c: cron.New(), syncer: syncer, feeds: feeds}
	if _, err := s.c.AddFunc(schedule, s.run); err != nil {
		return nil, fmt.Errorf("scheduler: bad refresh_cron %q: %w", schedule, err)
	}
	return s, nil
}

// run performs one pass unless another is in flight.
func (s *Scheduler) run() {
	if !s.running.TryLock() {
		appLog.Warn("feed sync still running; skipping")
		return
	}
	defer s.running.Unlock()
	if _, err := s.syncer.SyncFeeds(context.Background(), s.feeds); err != nil {
		appLog.Error("scheduled feed sync failed", err)
	}
}

// RunNow starts a pass in the background, outside the schedule. It shares
// the guard with scheduled ticks, so the two never overlap. Stop waits for it.
func (s *Scheduler) RunNow() {
	s.extra.Go(s.run)
}

func (s *Scheduler) Start() {
	appLog.Info("scheduler started", "feeds", len(s.feeds))
	s.c.Start()
}

// Stop waits for running passes to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.c.Stop()
	extra := make(chan struct{})
	go func() {
		s.extra.Wait()
		close(extra)
	}()
	for _, ch := range []<-chan struct{}{done.Done(), extra} {
		select {
		case <-ch:
		case <-ctx.Done():
			appLog.Warn("scheduler stop timed out")
			return
		}
	}
	appLog.Info("scheduler stopped")
}
