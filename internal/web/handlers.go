package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"schoolcal/internal/calendar"
	"schoolcal/internal/feed"
	"schoolcal/internal/importer"
	appLog "schoolcal/internal/log"
	"schoolcal/internal/model"
	"schoolcal/internal/store"
)

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Snapshot(s.stateFromQuery(r)))
}

func (s *Server) handleListEvents(w http.ResponseWriter, _ *http.Request) {
	events := s.svc.Events()
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	ev, err := s.svc.Event(r.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "event not found")
	case err != nil:
		appLog.Error("api: get event failed", err, "id", id)
		writeError(w, http.StatusInternalServerError, "failed to read event")
	default:
		writeJSON(w, http.StatusOK, ev)
	}
}

func (s *Server) handleAddEvent(w http.ResponseWriter, r *http.Request) {
	var in importer.ManualInput
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	out, err := s.svc.AddEvent(r.Context(), in)
	switch {
	case err == nil:
		writeOutcome(w, http.StatusCreated, out)
	case errors.Is(err, importer.ErrTitleRequired), errors.Is(err, importer.ErrInvalidDate):
		writeOutcome(w, http.StatusBadRequest, out)
	default:
		writeOutcome(w, http.StatusInternalServerError, out)
	}
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	out, err := s.svc.DeleteEvent(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeOutcome(w, http.StatusInternalServerError, out)
		return
	}
	writeOutcome(w, http.StatusOK, out)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	out, err := s.svc.ClearAll(r.Context())
	if err != nil {
		writeOutcome(w, http.StatusInternalServerError, out)
		return
	}
	writeOutcome(w, http.StatusOK, out)
}

// handleImport accepts a raw body. nswdoe and sentral take CSV or
// iCalendar, json takes an export, auto sniffs and attributes CSV to
// ?as= (default nswdoe).
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow() {
		writeOutcome(w, http.StatusTooManyRequests, calendar.Outcome{Notice: calendar.Notice{
			Message: "Too many imports, try again shortly.",
			Variant: calendar.VariantError,
		}})
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "import body too large")
		return
	}

	ctx := r.Context()
	name := mux.Vars(r)["source"]
	var out calendar.Outcome
	switch name {
	case "json":
		out, err = s.svc.ImportJSON(ctx, data)
	case "auto":
		as := r.URL.Query().Get("as")
		if as == "" {
			as = "nswdoe"
		}
		src, serr := importer.SourceByName(as)
		if serr != nil {
			writeError(w, http.StatusBadRequest, serr.Error())
			return
		}
		out, err = s.svc.ImportAuto(ctx, data, r.URL.Query().Get("name"), src)
	default:
		src, serr := importer.SourceByName(name)
		if serr != nil {
			writeError(w, http.StatusNotFound, serr.Error())
			return
		}
		if kind, _ := feed.DetectKind(data, ""); kind == feed.KindICS {
			out, err = s.svc.ImportICS(ctx, data, src)
		} else {
			out, err = s.svc.ImportCSV(ctx, string(data), src)
		}
	}

	switch {
	case err == nil:
		writeOutcome(w, http.StatusOK, out)
	case errors.Is(err, importer.ErrNotArray),
		errors.Is(err, importer.ErrNoValidRecords),
		errors.Is(err, feed.ErrUnsupportedFormat):
		writeOutcome(w, http.StatusBadRequest, out)
	default:
		writeOutcome(w, http.StatusInternalServerError, out)
	}
}

func (s *Server) handleExportJSON(w http.ResponseWriter, r *http.Request) {
	data, out, err := s.svc.ExportJSON(r.Context())
	switch {
	case errors.Is(err, calendar.ErrNothingToExport):
		w.WriteHeader(http.StatusNoContent)
		return
	case err != nil:
		writeOutcome(w, http.StatusInternalServerError, out)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+s.svc.ExportFileName()+`"`)
	_, _ = w.Write(data)
}

func (s *Server) handleExportICS(w http.ResponseWriter, r *http.Request) {
	data, err := s.svc.ExportICS(s.stateFromQuery(r).Criteria())
	if errors.Is(err, calendar.ErrNothingToExport) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		appLog.Error("api: ics export failed", err)
		writeError(w, http.StatusInternalServerError, "ics export failed")
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="schoolcal.ics"`)
	_, _ = w.Write(data)
}

func (s *Server) handleToggleLetter(w http.ResponseWriter, r *http.Request) {
	out, err := s.svc.ToggleWeekLetter(mux.Vars(r)["term"])
	switch {
	case err == nil:
		writeOutcome(w, http.StatusOK, out)
	case errors.Is(err, calendar.ErrUnknownTerm):
		writeOutcome(w, http.StatusNotFound, out)
	default:
		writeOutcome(w, http.StatusInternalServerError, out)
	}
}
