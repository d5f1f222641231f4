package web_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/afero"

	"schoolcal/internal/calendar"
	"schoolcal/internal/config"
	"schoolcal/internal/metrics"
	"schoolcal/internal/model"
	"schoolcal/internal/store"
	"schoolcal/internal/terms"
	"schoolcal/internal/view"
	"schoolcal/internal/web"
)

const sentralCSV = `Title,StartDate,EndDate,Groups
Term 1 Week 1,27/01/2026,30/01/2026,
Term 1 Week 2,02/02/2026,06/02/2026,
Year 9 camp,03/02/2026,03/02/2026,Year 9
`

func newServer(cfg *config.Config) (*web.Server, *metrics.Manager) {
	svc, err := calendar.New(calendar.Options{
		Store:    store.NewMemory(),
		Letters:  terms.NewLetters(terms.NewPrefStore(afero.NewMemMapFs(), "/prefs")),
		Notifier: &calendar.Recorder{},
		Now:      func() time.Time { return time.Date(2026, 2, 1, 9, 0, 0, 0, time.Local) },
	})
	if err != nil {
		panic(err)
	}
	m := metrics.NewManager()
	if cfg == nil {
		cfg = config.DefaultConfig()
		cfg.ImportRatePerSec = 0
	}
	return web.NewServer(cfg, svc, m), m
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](rec *httptest.ResponseRecorder) T {
	var v T
	_ = json.Unmarshal(rec.Body.Bytes(), &v)
	return v
}

func TestHealthAndMetrics(t *testing.T) {
	Convey("Given a server", t, func() {
		s, _ := newServer(nil)
		h := s.Handler()

		rec := do(h, http.MethodGet, "/health", "")
		So(rec.Code, ShouldEqual, http.StatusOK)
		So(rec.Body.String(), ShouldEqual, "OK")

		rec = do(h, http.MethodGet, "/metrics", "")
		So(rec.Code, ShouldEqual, http.StatusOK)
		So(rec.Body.String(), ShouldContainSubstring, `route="/health"`)
	})
}

func TestImportAndView(t *testing.T) {
	Convey("Given a server with a Sentral import", t, func() {
		s, _ := newServer(nil)
		h := s.Handler()

		rec := do(h, http.MethodPost, "/api/import/sentral", sentralCSV)
		So(rec.Code, ShouldEqual, http.StatusOK)
		out := decode[calendar.Outcome](rec)
		So(out.Message, ShouldEqual, "Imported 3 Sentral entries.")
		So(out.Variant, ShouldEqual, calendar.VariantSuccess)

		Convey("the events are listed", func() {
			events := decode[[]model.Event](do(h, http.MethodGet, "/api/events", ""))
			So(events, ShouldHaveLength, 3)

			Convey("and each can be fetched by id", func() {
				rec := do(h, http.MethodGet, "/api/events/"+events[2].ID, "")
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(do(h, http.MethodGet, "/api/events/missing", "").Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("the view reflects query state", func() {
			snap := decode[view.Snapshot](do(h, http.MethodGet, "/api/view?date=2026-02-03&mode=term", ""))
			So(snap.State.SelectedDate, ShouldEqual, "2026-02-03")
			So(snap.Header.WorkspaceTitle, ShouldEqual, "Term 1")
			So(snap.Day.Count, ShouldEqual, 1)
			So(snap.Term.Weeks, ShouldHaveLength, 2)

			snap = decode[view.Snapshot](do(h, http.MethodGet, "/api/view?date=2026-02-03&year=7", ""))
			So(snap.Day.Count, ShouldEqual, 0)
		})

		Convey("the letter toggle flips the first week", func() {
			rec := do(h, http.MethodPost, "/api/terms/Term%201/letter", "")
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(decode[calendar.Outcome](rec).Letter, ShouldEqual, model.LetterB)

			So(do(h, http.MethodPost, "/api/terms/Term%209/letter", "").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("the print page is ready for capture", func() {
			rec := do(h, http.MethodGet, "/print/term?date=2026-02-03", "")
			So(rec.Code, ShouldEqual, http.StatusOK)
			body := rec.Body.String()
			So(body, ShouldContainSubstring, `data-ready="true"`)
			So(body, ShouldContainSubstring, "Week 2b")
			So(body, ShouldContainSubstring, "Year 9 camp")
		})

		Convey("the exports carry the events", func() {
			rec := do(h, http.MethodGet, "/api/export.json", "")
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Header().Get("Content-Disposition"), ShouldContainSubstring, "schoolcal-export-2026-02-01.json")

			rec = do(h, http.MethodGet, "/api/export.ics", "")
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Body.String(), ShouldContainSubstring, "BEGIN:VCALENDAR")
		})

		Convey("clearing empties the store", func() {
			rec := do(h, http.MethodDelete, "/api/events", "")
			So(decode[calendar.Outcome](rec).Message, ShouldEqual, "All local events have been cleared.")
			So(do(h, http.MethodGet, "/api/export.json", "").Code, ShouldEqual, http.StatusNoContent)
		})
	})
}

func TestManualEvents(t *testing.T) {
	Convey("Given a server", t, func() {
		s, _ := newServer(nil)
		h := s.Handler()

		Convey("a valid event is created", func() {
			rec := do(h, http.MethodPost, "/api/events", `{"title":"Dentist","date":"2026-03-02"}`)
			So(rec.Code, ShouldEqual, http.StatusCreated)
			out := decode[calendar.Outcome](rec)
			So(out.Message, ShouldEqual, "Event saved")

			rec = do(h, http.MethodDelete, "/api/events/"+out.Event.ID, "")
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(decode[calendar.Outcome](rec).Message, ShouldEqual, "Event removed")
		})

		Convey("a missing title is a bad request", func() {
			rec := do(h, http.MethodPost, "/api/events", `{"date":"2026-03-02"}`)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
			So(decode[calendar.Outcome](rec).Message, ShouldEqual, "Please provide an event title.")
		})

		Convey("malformed JSON is rejected", func() {
			So(do(h, http.MethodPost, "/api/events", `{`).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("a JSON object import is rejected", func() {
			rec := do(h, http.MethodPost, "/api/import/json", `{"id":"x"}`)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
			So(decode[calendar.Outcome](rec).Message, ShouldEqual, "JSON import failed.")
		})

		Convey("an unknown source is not found", func() {
			So(do(h, http.MethodPost, "/api/import/moodle", "a,b").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestImportRateLimit(t *testing.T) {
	Convey("Imports beyond the burst are throttled", t, func() {
		cfg := config.DefaultConfig()
		cfg.ImportRatePerSec = 0.001
		cfg.ImportBurst = 1
		s, _ := newServer(cfg)
		h := s.Handler()

		So(do(h, http.MethodPost, "/api/import/sentral", sentralCSV).Code, ShouldEqual, http.StatusOK)
		rec := do(h, http.MethodPost, "/api/import/sentral", sentralCSV)
		So(rec.Code, ShouldEqual, http.StatusTooManyRequests)
		So(decode[calendar.Outcome](rec).Variant, ShouldEqual, calendar.VariantError)
	})
}
