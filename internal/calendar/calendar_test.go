package calendar_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/afero"

	"schoolcal/internal/calendar"
	"schoolcal/internal/config"
	"schoolcal/internal/feed"
	"schoolcal/internal/filter"
	"schoolcal/internal/importer"
	"schoolcal/internal/model"
	"schoolcal/internal/store"
	"schoolcal/internal/terms"
	"schoolcal/internal/view"
)

const doeCSV = `Title,StartDate,EndDate,Description
Term 1 Week 1,27/01/2026,30/01/2026,
Term 1 Week 2,02/02/2026,06/02/2026,
Year 7 swimming carnival,28/01/2026,28/01/2026,Bring hats
Mystery,,,no date here
`

var errRejected = errors.New("rejected")

// flakyStore refuses to store events whose title mentions "swimming".
type flakyStore struct {
	*store.Memory
}

func (f flakyStore) Put(ctx context.Context, e model.Event) (model.Event, error) {
	if strings.Contains(e.Title, "swimming") {
		return model.Event{}, errRejected
	}
	return f.Memory.Put(ctx, e)
}

func newService(st store.Store) (*calendar.Service, *calendar.Recorder) {
	rec := &calendar.Recorder{}
	svc, err := calendar.New(calendar.Options{
		Store:    st,
		Letters:  terms.NewLetters(terms.NewPrefStore(afero.NewMemMapFs(), "/prefs")),
		Notifier: rec,
		Save:     importer.SaveOptions{Attempts: 1},
		Now:      func() time.Time { return time.Date(2026, 2, 1, 9, 0, 0, 0, time.Local) },
	})
	if err != nil {
		panic(err)
	}
	return svc, rec
}

func TestNew(t *testing.T) {
	Convey("A service needs a store", t, func() {
		_, err := calendar.New(calendar.Options{})
		So(errors.Is(err, store.ErrNotInitialized), ShouldBeTrue)
	})
}

func TestImportCSV(t *testing.T) {
	ctx := context.Background()

	Convey("Given an empty store", t, func() {
		svc, rec := newService(store.NewMemory())

		Convey("importing a DOE export saves every dated row", func() {
			out, err := svc.ImportCSV(ctx, doeCSV, importer.NSWDOE)
			So(err, ShouldBeNil)
			So(out.Message, ShouldEqual, "Imported 3 NSW DOE entries.")
			So(out.Variant, ShouldEqual, calendar.VariantSuccess)
			So(*out.Result, ShouldResemble, importer.Result{Rows: 4, Imported: 3, Skipped: 1})
			So(rec.Last(), ShouldResemble, out.Notice)

			So(svc.Events(), ShouldHaveLength, 3)
			So(svc.Groups(), ShouldHaveLength, 1)
			So(svc.Groups()[0].TermName, ShouldEqual, "Term 1")
			So(svc.Weeks(), ShouldHaveLength, 2)

			Convey("events come back in date order", func() {
				events := svc.Events()
				So(events[0].Date, ShouldEqual, "2026-01-27")
				So(events[1].Date, ShouldEqual, "2026-01-28")
				So(events[2].Date, ShouldEqual, "2026-02-02")
			})

			Convey("importing the same export again changes nothing", func() {
				before := svc.Events()
				_, err := svc.ImportCSV(ctx, doeCSV, importer.NSWDOE)
				So(err, ShouldBeNil)
				after := svc.Events()
				So(after, ShouldHaveLength, len(before))
				for i := range before {
					So(after[i].ID, ShouldEqual, before[i].ID)
				}
			})

			Convey("the snapshot shows the day and the term", func() {
				snap := svc.Snapshot(view.State{SelectedDate: "2026-01-28", Mode: view.ModeTerm})
				So(snap.Day.Count, ShouldEqual, 1)
				So(snap.Day.Events[0].Title, ShouldEqual, "Year 7 swimming carnival")
				So(snap.Header.WorkspaceTitle, ShouldEqual, "Term 1")
				So(snap.Term.Weeks, ShouldHaveLength, 2)
			})
		})

		Convey("a rejected save fails the import but keeps the rest", func() {
			svc, rec := newService(flakyStore{store.NewMemory()})
			out, err := svc.ImportCSV(ctx, doeCSV, importer.NSWDOE)
			So(errors.Is(err, errRejected), ShouldBeTrue)
			So(out.Message, ShouldEqual, "Failed to import NSW DOE data.")
			So(out.Variant, ShouldEqual, calendar.VariantError)
			So(out.Result.Imported, ShouldEqual, 2)
			So(out.Result.Failed, ShouldEqual, 1)
			So(rec.Last().Variant, ShouldEqual, calendar.VariantError)
			So(svc.Events(), ShouldHaveLength, 2)
		})
	})
}

func TestJSONRoundTrip(t *testing.T) {
	ctx := context.Background()

	Convey("Given imported events", t, func() {
		svc, _ := newService(store.NewMemory())
		_, err := svc.ImportCSV(ctx, doeCSV, importer.Sentral)
		So(err, ShouldBeNil)
		ids := make([]string, 0, 3)
		for _, e := range svc.Events() {
			ids = append(ids, e.ID)
		}

		Convey("an export re-imports with the same ids", func() {
			data, out, err := svc.ExportJSON(ctx)
			So(err, ShouldBeNil)
			So(out.Message, ShouldEqual, "JSON export ready.")
			So(string(data), ShouldContainSubstring, "\n  {")

			_, err = svc.ClearAll(ctx)
			So(err, ShouldBeNil)
			So(svc.Events(), ShouldBeEmpty)
			So(svc.Groups(), ShouldBeEmpty)

			out, err = svc.ImportJSON(ctx, data)
			So(err, ShouldBeNil)
			So(out.Message, ShouldEqual, "3 records imported.")
			got := make([]string, 0, 3)
			for _, e := range svc.Events() {
				got = append(got, e.ID)
			}
			So(got, ShouldResemble, ids)
			So(svc.Groups(), ShouldHaveLength, 1)
		})

		Convey("the export file name carries the date", func() {
			So(svc.ExportFileName(), ShouldEqual, "schoolcal-export-2026-02-01.json")
		})

		Convey("an ICS export skips term markers", func() {
			data, err := svc.ExportICS(filter.Criteria{})
			So(err, ShouldBeNil)
			So(string(data), ShouldContainSubstring, "swimming carnival")
			So(string(data), ShouldNotContainSubstring, "Term 1 Week 1")

			_, err = svc.ExportICS(filter.Criteria{Text: "nothing matches this"})
			So(errors.Is(err, calendar.ErrNothingToExport), ShouldBeTrue)
		})
	})

	Convey("Exporting an empty store reports info", t, func() {
		svc, _ := newService(store.NewMemory())
		data, out, err := svc.ExportJSON(context.Background())
		So(data, ShouldBeNil)
		So(errors.Is(err, calendar.ErrNothingToExport), ShouldBeTrue)
		So(out.Variant, ShouldEqual, calendar.VariantInfo)
		So(out.Message, ShouldEqual, "No events to export.")
	})

	Convey("Bad JSON payloads", t, func() {
		svc, _ := newService(store.NewMemory())

		Convey("an object is rejected", func() {
			out, err := svc.ImportJSON(context.Background(), []byte(`{"id":"x"}`))
			So(errors.Is(err, importer.ErrNotArray), ShouldBeTrue)
			So(out.Message, ShouldEqual, "JSON import failed.")
		})

		Convey("an array without dated entries is rejected", func() {
			out, err := svc.ImportJSON(context.Background(), []byte(`[{"title":"x"}]`))
			So(errors.Is(err, importer.ErrNoValidRecords), ShouldBeTrue)
			So(out.Message, ShouldEqual, "No valid records found in JSON.")
		})
	})
}

func TestImportAuto(t *testing.T) {
	ctx := context.Background()
	ics := strings.Join([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//test//EN",
		"BEGIN:VEVENT",
		"UID:athletics@school",
		"DTSTAMP:20260101T000000Z",
		"DTSTART;VALUE=DATE:20260305",
		"DTEND;VALUE=DATE:20260306",
		"SUMMARY:Athletics carnival",
		"END:VEVENT",
		"END:VCALENDAR",
		"",
	}, "\r\n")

	Convey("ImportAuto routes by content", t, func() {
		svc, _ := newService(store.NewMemory())

		Convey("iCalendar feeds go through the row mapping", func() {
			out, err := svc.ImportAuto(ctx, []byte(ics), "feed.ics", importer.Sentral)
			So(err, ShouldBeNil)
			So(out.Result.Imported, ShouldEqual, 1)
			ev := svc.Events()[0]
			So(ev.Title, ShouldEqual, "Athletics carnival")
			So(ev.Date, ShouldEqual, "2026-03-05")
			So(ev.Origin, ShouldEqual, model.OriginSentral)
			So(ev.ID, ShouldStartWith, "sentral-")
		})

		Convey("CSV text is parsed as an export", func() {
			out, err := svc.ImportAuto(ctx, []byte(doeCSV), "doe.csv", importer.NSWDOE)
			So(err, ShouldBeNil)
			So(out.Result.Imported, ShouldEqual, 3)
		})

		Convey("JSON keeps its own origin", func() {
			payload, _ := json.Marshal([]map[string]any{{"id": "p1", "title": "Dentist", "date": "2026-03-02"}})
			_, err := svc.ImportAuto(ctx, payload, "backup.json", importer.NSWDOE)
			So(err, ShouldBeNil)
			So(svc.Events()[0].Origin, ShouldEqual, model.OriginPersonal)
		})
	})
}

func TestManualEvents(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service", t, func() {
		svc, rec := newService(store.NewMemory())

		Convey("a valid event is saved and listed", func() {
			out, err := svc.AddEvent(ctx, importer.ManualInput{Title: " Dentist ", Date: "02/03/2026"})
			So(err, ShouldBeNil)
			So(out.Message, ShouldEqual, "Event saved")
			So(out.Event.Date, ShouldEqual, "2026-03-02")
			So(svc.Events(), ShouldHaveLength, 1)

			Convey("and removed again", func() {
				out, err := svc.DeleteEvent(ctx, out.Event.ID)
				So(err, ShouldBeNil)
				So(out.Message, ShouldEqual, "Event removed")
				So(svc.Events(), ShouldBeEmpty)
			})
		})

		Convey("a missing title is refused", func() {
			_, err := svc.AddEvent(ctx, importer.ManualInput{Date: "2026-03-02"})
			So(errors.Is(err, importer.ErrTitleRequired), ShouldBeTrue)
			So(rec.Last().Message, ShouldEqual, "Please provide an event title.")
		})

		Convey("an unreadable date is refused", func() {
			_, err := svc.AddEvent(ctx, importer.ManualInput{Title: "x", Date: "someday"})
			So(errors.Is(err, importer.ErrInvalidDate), ShouldBeTrue)
			So(rec.Last().Message, ShouldEqual, "Please choose a valid date.")
		})

		Convey("deleting an unknown id is fine", func() {
			_, err := svc.DeleteEvent(ctx, "nope")
			So(err, ShouldBeNil)
		})
	})
}

func TestWeekLetters(t *testing.T) {
	ctx := context.Background()

	Convey("Given derived terms", t, func() {
		svc, _ := newService(store.NewMemory())
		_, err := svc.ImportCSV(ctx, doeCSV, importer.NSWDOE)
		So(err, ShouldBeNil)

		Convey("toggling flips the first letter", func() {
			out, err := svc.ToggleWeekLetter("Term 1")
			So(err, ShouldBeNil)
			So(out.Letter, ShouldEqual, model.LetterB)
			So(out.Message, ShouldEqual, "Term 1 now starts with week B.")
			snap := svc.Snapshot(view.State{SelectedDate: "2026-02-03", Mode: view.ModeTerm})
			So(snap.Term.Weeks[0].Title, ShouldEqual, "Week 1b")
		})

		Convey("an unknown term is reported", func() {
			out, err := svc.ToggleWeekLetter("Term 9")
			So(errors.Is(err, calendar.ErrUnknownTerm), ShouldBeTrue)
			So(out.Variant, ShouldEqual, calendar.VariantInfo)
		})
	})
}

func TestTermMarkerKey(t *testing.T) {
	Convey("The term key only depends on term markers", t, func() {
		base := []model.Event{
			{ID: "w1", Title: "Term 1 Week 1", StartDate: "2026-01-27", EndDate: "2026-01-30", Type: model.TypeTerm},
			{ID: "a", Title: "Assembly", Date: "2026-01-28", Type: model.TypeEvent},
		}
		key := calendar.TermMarkerKey(base)

		more := append(base, model.Event{ID: "b", Title: "Excursion", Type: model.TypeEvent})
		So(calendar.TermMarkerKey(more), ShouldEqual, key)

		moved := []model.Event{base[0], base[1]}
		moved[0].EndDate = "2026-01-31"
		So(calendar.TermMarkerKey(moved), ShouldNotEqual, key)
	})
}

func TestSyncFeeds(t *testing.T) {
	ctx := context.Background()

	Convey("Given local feed files", t, func() {
		fsys := afero.NewMemMapFs()
		So(afero.WriteFile(fsys, "/feeds/doe.csv", []byte(doeCSV), 0o644), ShouldBeNil)
		So(afero.WriteFile(fsys, "/feeds/backup.json", []byte(`[{"id":"p1","title":"Dentist","date":"2026-03-02"}]`), 0o644), ShouldBeNil)

		svc, _ := newService(store.NewMemory())
		syncer := calendar.NewSyncer(svc, nil, feed.NewLoader(fsys))

		Convey("every readable feed is imported", func() {
			reports, err := syncer.SyncFeeds(ctx, []config.FeedConfig{
				{ID: "doe", Source: "nswdoe", Path: "/feeds/doe.csv"},
				{ID: "backup", Source: "json", Path: "/feeds/backup.json"},
			})
			So(err, ShouldBeNil)
			So(reports, ShouldHaveLength, 2)
			So(reports[0].Outcome.Result.Imported, ShouldEqual, 3)
			So(svc.Events(), ShouldHaveLength, 4)
		})

		Convey("a bad feed does not stop the others", func() {
			reports, err := syncer.SyncFeeds(ctx, []config.FeedConfig{
				{ID: "moodle", Source: "moodle", Path: "/feeds/doe.csv"},
				{ID: "gone", Source: "sentral", Path: "/feeds/missing.csv"},
				{ID: "remote", Source: "sentral", URL: "http://example.invalid/cal.ics"},
				{ID: "doe", Source: "nswdoe", Path: "/feeds/doe.csv"},
			})
			So(err, ShouldNotBeNil)
			So(errors.Is(reports[0].Err, calendar.ErrUnknownFeedSource), ShouldBeTrue)
			So(reports[1].Err, ShouldNotBeNil)
			So(errors.Is(reports[2].Err, feed.ErrEmptySource), ShouldBeTrue)
			So(reports[3].Err, ShouldBeNil)
			So(svc.Events(), ShouldHaveLength, 3)
		})
	})
}

func TestScheduler(t *testing.T) {
	Convey("A malformed schedule is rejected", t, func() {
		svc, _ := newService(store.NewMemory())
		_, err := calendar.NewScheduler("every now and then", calendar.NewSyncer(svc, nil, nil), nil)
		So(err, ShouldNotBeNil)

		s, err := calendar.NewScheduler("@every 1h", calendar.NewSyncer(svc, nil, nil), nil)
		So(err, ShouldBeNil)
		s.Start()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		s.Stop(ctx)
	})
}

func TestSchedulerRunNow(t *testing.T) {
	Convey("Given a scheduler over a local feed", t, func() {
		fsys := afero.NewMemMapFs()
		So(afero.WriteFile(fsys, "/feeds/doe.csv", []byte(doeCSV), 0o644), ShouldBeNil)
		svc, _ := newService(store.NewMemory())
		s, err := calendar.NewScheduler("@every 1h", calendar.NewSyncer(svc, nil, feed.NewLoader(fsys)), []config.FeedConfig{
			{ID: "doe", Source: "nswdoe", Path: "/feeds/doe.csv"},
		})
		So(err, ShouldBeNil)

		stop := func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			s.Stop(ctx)
		}

		Convey("an immediate pass imports the feed", func() {
			s.Start()
			s.RunNow()
			stop()
			So(svc.Events(), ShouldHaveLength, 3)
		})

		Convey("an immediate pass is skipped while another pass holds the guard", func() {
			release := s.Hold()
			s.RunNow()
			stop()
			release()
			So(svc.Events(), ShouldBeEmpty)

			s.RunNow()
			stop()
			So(svc.Events(), ShouldHaveLength, 3)
		})
	})
}
