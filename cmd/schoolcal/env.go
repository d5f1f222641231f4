package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"

	"schoolcal/internal/calendar"
	"schoolcal/internal/config"
	"schoolcal/internal/feed"
	appLog "schoolcal/internal/log"
	"schoolcal/internal/metrics"
	"schoolcal/internal/store"
	"schoolcal/internal/terms"
)

// appEnv is everything a command needs, opened from the config file.
type appEnv struct {
	cfg     *config.Config
	store   store.Store
	svc     *calendar.Service
	metrics *metrics.Manager
	fs      afero.Fs
}

// openEnv loads the config and opens the store. Interactive commands echo
// notices to stdout; the server only logs them.
func openEnv(c *cli.Context, serving bool) (*appEnv, error) {
	cfgPath := c.String("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", cfgPath, err)
	}

	appLog.Configure(appLog.Options{Level: appLog.ParseLevel(cfg.LogLevel), File: cfg.LogFile})
	if cfg.Timezone != "" {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			appLog.Error("failed to load timezone; keeping local", err, "name", cfg.Timezone)
		} else {
			time.Local = loc
		}
	}
	appLog.Debug("effective config",
		"listen", cfg.Listen,
		"timezone", cfg.Timezone,
		"store_driver", cfg.StoreDriver,
		"data_dir", cfg.DataDir,
		"feeds", len(cfg.Feeds),
	)

	st, err := store.Open(c.Context, cfg)
	if err != nil {
		return nil, err
	}

	fsys := afero.NewOsFs()
	var (
		m        *metrics.Manager
		notifier calendar.Notifier = calendar.LogNotifier{}
	)
	if serving {
		m = metrics.NewManager(metrics.WithProcessCollectors())
	} else {
		notifier = calendar.NotifierFunc(func(n calendar.Notice) {
			appLog.Debug("notice", "message", n.Message, "variant", string(n.Variant))
			fmt.Fprintln(c.App.Writer, n.Message)
		})
	}
	svc, err := calendar.New(calendar.Options{
		Store:    st,
		Letters:  terms.NewLetters(terms.NewPrefStore(fsys, cfg.DataDir)),
		Metrics:  m,
		Notifier: notifier,
	})
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	if err := svc.Refresh(c.Context); err != nil {
		_ = st.Close()
		return nil, err
	}
	return &appEnv{cfg: cfg, store: st, svc: svc, metrics: m, fs: fsys}, nil
}

func (e *appEnv) Close() {
	if err := e.store.Close(); err != nil {
		appLog.Error("store close failed", err)
	}
}

func (e *appEnv) syncer() *calendar.Syncer {
	fetcher := feed.NewFetcher(e.fs, filepath.Join(e.cfg.DataDir, "feed-cache"))
	return calendar.NewSyncer(e.svc, fetcher, feed.NewLoader(e.fs))
}
