package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"

	"schoolcal/internal/calendar"
	"schoolcal/internal/capture"
	"schoolcal/internal/feed"
	"schoolcal/internal/importer"
	appLog "schoolcal/internal/log"
	"schoolcal/internal/view"
	"schoolcal/internal/web"
)

var viewFlags = []cli.Flag{
	&cli.StringFlag{Name: "date", Usage: "selected date (YYYY-MM-DD or DD/MM/YYYY); defaults to today"},
	&cli.StringFlag{Name: "filter", Usage: "case-insensitive text filter"},
	&cli.IntSliceFlag{Name: "year", Usage: "year level filter, repeatable"},
}

func stateFromFlags(c *cli.Context, mode view.Mode) view.State {
	return viewState(mode, c.String("date"), c.String("filter"), c.IntSlice("year"))
}

// viewState builds the selection for the day and term commands. Repeating
// a year keeps it selected once.
func viewState(mode view.Mode, date, text string, years []int) view.State {
	st := view.NewState(mode)
	if date != "" {
		st = st.WithDate(date)
	}
	st = st.WithFilter(text)
	for _, y := range years {
		if !slices.Contains(st.Years, y) {
			st = st.ToggleYear(y)
		}
	}
	return st
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the HTTP API and re-import configured feeds on a schedule.",
		Action: func(c *cli.Context) error {
			env, err := openEnv(c, true)
			if err != nil {
				return err
			}
			defer env.Close()

			if len(env.cfg.Feeds) > 0 {
				sched, err := calendar.NewScheduler(env.cfg.RefreshCron, env.syncer(), env.cfg.Feeds)
				if err != nil {
					return err
				}
				sched.Start()
				sched.RunNow()
				defer func() {
					ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
					defer cancel()
					sched.Stop(ctx)
				}()
			}

			srv := web.NewServer(env.cfg, env.svc, env.metrics)
			return web.StartServer(c.Context, srv)
		},
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import a calendar export file.",
		ArgsUsage: "<nswdoe|sentral|json|auto> <file>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "as", Value: "nswdoe", Usage: "source for CSV or iCalendar data under auto"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return cli.ShowSubcommandHelp(c)
			}
			kind, path := c.Args().Get(0), c.Args().Get(1)

			env, err := openEnv(c, false)
			if err != nil {
				return err
			}
			defer env.Close()

			text, err := feed.NewLoader(env.fs).ReadText(path)
			if err != nil {
				return err
			}
			data := []byte(text)

			var out calendar.Outcome
			switch kind {
			case "json":
				out, err = env.svc.ImportJSON(c.Context, data)
			case "auto":
				src, serr := importer.SourceByName(c.String("as"))
				if serr != nil {
					return serr
				}
				out, err = env.svc.ImportAuto(c.Context, data, path, src)
			default:
				src, serr := importer.SourceByName(kind)
				if serr != nil {
					return serr
				}
				if k, _ := feed.DetectKind(data, path); k == feed.KindICS {
					out, err = env.svc.ImportICS(c.Context, data, src)
				} else {
					out, err = env.svc.ImportCSV(c.Context, text, src)
				}
			}
			if out.Result != nil {
				fmt.Fprintf(c.App.Writer, "rows=%d imported=%d skipped=%d failed=%d\n",
					out.Result.Rows, out.Result.Imported, out.Result.Skipped, out.Result.Failed)
			}
			return err
		},
	}
}

func fetchCommand() *cli.Command {
	return &cli.Command{
		Name:  "fetch",
		Usage: "Pull every configured feed once.",
		Action: func(c *cli.Context) error {
			env, err := openEnv(c, false)
			if err != nil {
				return err
			}
			defer env.Close()

			if len(env.cfg.Feeds) == 0 {
				fmt.Fprintln(c.App.Writer, "No feeds configured.")
				return nil
			}
			reports, err := env.syncer().SyncFeeds(c.Context, env.cfg.Feeds)
			for _, r := range reports {
				status := "ok"
				if r.Err != nil {
					status = r.Err.Error()
				} else if r.FromCache {
					status = "ok (cached)"
				}
				fmt.Fprintf(c.App.Writer, "%s: %s\n", r.ID, status)
			}
			return err
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Export events as JSON or iCalendar.",
		ArgsUsage: "<json|ics>",
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output file; stdout when empty"},
		}, viewFlags...),
		Action: func(c *cli.Context) error {
			format := c.Args().First()
			if format != "json" && format != "ics" {
				return cli.ShowSubcommandHelp(c)
			}
			env, err := openEnv(c, false)
			if err != nil {
				return err
			}
			defer env.Close()

			var data []byte
			if format == "json" {
				data, _, err = env.svc.ExportJSON(c.Context)
			} else {
				data, err = env.svc.ExportICS(stateFromFlags(c, view.ModeTerm).Criteria())
				if errors.Is(err, calendar.ErrNothingToExport) {
					fmt.Fprintln(c.App.Writer, "No events to export.")
				}
			}
			if err != nil {
				if errors.Is(err, calendar.ErrNothingToExport) {
					return nil
				}
				return err
			}

			out := c.String("out")
			if out == "" {
				_, err := c.App.Writer.Write(data)
				return err
			}
			if dir := filepath.Dir(out); dir != "." {
				if err := env.fs.MkdirAll(dir, 0o755); err != nil {
					return err
				}
			}
			if err := afero.WriteFile(env.fs, out, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			appLog.Info("export written", "path", out, "bytes", len(data))
			return nil
		},
	}
}

func dayCommand() *cli.Command {
	return &cli.Command{
		Name:  "day",
		Usage: "Show the events of one day.",
		Flags: viewFlags,
		Action: func(c *cli.Context) error {
			env, err := openEnv(c, false)
			if err != nil {
				return err
			}
			defer env.Close()
			printDay(c.App.Writer, env.svc.Snapshot(stateFromFlags(c, view.ModeDay)))
			return nil
		},
	}
}

func termCommand() *cli.Command {
	return &cli.Command{
		Name:  "term",
		Usage: "Show the term grid around a date.",
		Flags: viewFlags,
		Action: func(c *cli.Context) error {
			env, err := openEnv(c, false)
			if err != nil {
				return err
			}
			defer env.Close()
			printTerm(c.App.Writer, env.svc.Snapshot(stateFromFlags(c, view.ModeTerm)))
			return nil
		},
	}
}

func letterCommand() *cli.Command {
	return &cli.Command{
		Name:      "letter",
		Usage:     "Toggle whether a term starts with week A or week B; lists terms without an argument.",
		ArgsUsage: "[term name]",
		Action: func(c *cli.Context) error {
			if c.NArg() > 1 {
				return cli.ShowSubcommandHelp(c)
			}
			env, err := openEnv(c, false)
			if err != nil {
				return err
			}
			defer env.Close()
			if c.NArg() == 0 {
				letters := env.svc.Letters()
				for _, g := range env.svc.Groups() {
					fmt.Fprintf(c.App.Writer, "%s  %s  first week %s\n", g.TermName, view.FormatRange(g.StartDate, g.EndDate), letters.First(g.TermName))
				}
				return nil
			}
			_, err = env.svc.ToggleWeekLetter(c.Args().First())
			return err
		},
	}
}

func addCommand() *cli.Command {
	return &cli.Command{
		Name:  "add",
		Usage: "Add a personal event.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Required: true},
			&cli.StringFlag{Name: "date", Required: true},
			&cli.StringFlag{Name: "subject"},
			&cli.StringFlag{Name: "notes"},
			&cli.StringFlag{Name: "color"},
		},
		Action: func(c *cli.Context) error {
			env, err := openEnv(c, false)
			if err != nil {
				return err
			}
			defer env.Close()
			out, err := env.svc.AddEvent(c.Context, importer.ManualInput{
				Title:   c.String("title"),
				Date:    c.String("date"),
				Subject: c.String("subject"),
				Notes:   c.String("notes"),
				Color:   c.String("color"),
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, out.Event.ID)
			return nil
		},
	}
}

func deleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Remove one event by id.",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.ShowSubcommandHelp(c)
			}
			env, err := openEnv(c, false)
			if err != nil {
				return err
			}
			defer env.Close()
			_, err = env.svc.DeleteEvent(c.Context, c.Args().First())
			return err
		},
	}
}

func clearCommand() *cli.Command {
	return &cli.Command{
		Name:  "clear",
		Usage: "Remove every stored event.",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "yes", Usage: "confirm removal of all events"},
		},
		Action: func(c *cli.Context) error {
			if !c.Bool("yes") {
				return errors.New("refusing to clear without --yes")
			}
			env, err := openEnv(c, false)
			if err != nil {
				return err
			}
			defer env.Close()
			_, err = env.svc.ClearAll(c.Context)
			return err
		},
	}
}

func captureCommand() *cli.Command {
	return &cli.Command{
		Name:  "capture",
		Usage: "Screenshot the printable term grid of a running server.",
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: "term.png"},
			&cli.StringFlag{Name: "url", Usage: "server base URL; defaults to the configured listen address"},
			&cli.IntFlag{Name: "width"},
			&cli.IntFlag{Name: "height"},
		}, viewFlags...),
		Action: func(c *cli.Context) error {
			env, err := openEnv(c, false)
			if err != nil {
				return err
			}
			defer env.Close()

			base := c.String("url")
			if base == "" {
				base = "http://" + env.cfg.Listen
			}
			err = capture.TermPNG(c.Context, env.fs, capture.Options{
				BaseURL:    base,
				State:      stateFromFlags(c, view.ModeTerm),
				OutputPath: c.String("out"),
				Width:      c.Int("width"),
				Height:     c.Int("height"),
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, "wrote", c.String("out"))
			return nil
		},
	}
}
