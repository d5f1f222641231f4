package calendar

import (
	"context"
	"errors"
	"fmt"

	"schoolcal/internal/config"
	"schoolcal/internal/feed"
	appLog "schoolcal/internal/log"
)

// FeedReport is the result of one configured feed in a sync pass.
type FeedReport struct {
	ID        string  `json:"id"`
	FromCache bool    `json:"fromCache"`
	Outcome   Outcome `json:"outcome"`
	Err       error   `json:"-"`
}

// Syncer imports every configured feed, remote or local.
type Syncer struct {
	svc     *Service
	fetcher *feed.Fetcher
	loader  *feed.Loader
}

func NewSyncer(svc *Service, fetcher *feed.Fetcher, loader *feed.Loader) *Syncer {
	if loader == nil {
		loader = feed.NewLoader(nil)
	}
	return &Syncer{svc: svc, fetcher: fetcher, loader: loader}
}

// SyncFeeds runs one pass over feeds. A failing feed does not stop the
// others; the joined error lists every failure.
func (s *Syncer) SyncFeeds(ctx context.Context, feeds []config.FeedConfig) ([]FeedReport, error) {
	reports := make([]FeedReport, 0, len(feeds))
	var errs []error
	for _, fc := range feeds {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		rep := s.syncOne(ctx, fc)
		if rep.Err != nil {
			errs = append(errs, fmt.Errorf("feed %s: %w", fc.ID, rep.Err))
		}
		reports = append(reports, rep)
	}
	appLog.Info("feed sync pass done", "feeds", len(feeds), "failed", len(errs))
	return reports, errors.Join(errs...)
}

func (s *Syncer) syncOne(ctx context.Context, fc config.FeedConfig) FeedReport {
	rep := FeedReport{ID: fc.ID}

	src, mapped, err := sourceForFeed(fc.Source)
	if err != nil {
		appLog.Error("feed has unknown source", err, "id", fc.ID, "source", fc.Source)
		rep.Err = err
		return rep
	}

	var body []byte
	switch {
	case fc.URL != "":
		if s.fetcher == nil {
			rep.Err = feed.ErrEmptySource
			return rep
		}
		res, err := s.fetcher.FetchOne(ctx, feed.Source{ID: fc.ID, URL: fc.URL})
		s.svc.metrics.RecordFeedFetch(fc.ID, res.FromCache, err)
		if err != nil {
			rep.Err = err
			return rep
		}
		body, rep.FromCache = res.Body, res.FromCache
	case fc.Path != "":
		text, err := s.loader.ReadText(fc.Path)
		s.svc.metrics.RecordFeedFetch(fc.ID, false, err)
		if err != nil {
			rep.Err = err
			return rep
		}
		body = []byte(text)
	default:
		rep.Err = feed.ErrEmptySource
		return rep
	}

	if mapped {
		name := fc.Path
		if name == "" {
			name = fc.URL
		}
		rep.Outcome, rep.Err = s.svc.ImportAuto(ctx, body, name, src)
	} else {
		rep.Outcome, rep.Err = s.svc.ImportJSON(ctx, body)
	}
	return rep
}
