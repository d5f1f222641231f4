package web

import (
	"bytes"
	"html/template"
	"net/http"
	"strings"

	appLog "schoolcal/internal/log"
	"schoolcal/internal/view"
)

var templateFuncs = template.FuncMap{
	"lower": func(s string) string { return strings.ToLower(s) },
}

type printPage struct {
	Snapshot  view.Snapshot
	EmptyTerm string
	EmptyCell string
}

// handlePrintTerm renders the term grid as a standalone page. The root
// element carries data-ready="true" once rendered so capture can wait on it.
func (s *Server) handlePrintTerm(w http.ResponseWriter, r *http.Request) {
	st := s.stateFromQuery(r).WithMode(view.ModeTerm)
	page := printPage{
		Snapshot:  s.svc.Snapshot(st),
		EmptyTerm: view.EmptyTerm,
		EmptyCell: view.EmptyCell,
	}
	var buf bytes.Buffer
	if err := s.printTpl.Execute(&buf, page); err != nil {
		appLog.Error("print: template failed", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
