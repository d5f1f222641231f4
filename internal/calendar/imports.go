package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"schoolcal/internal/csvparse"
	"schoolcal/internal/feed"
	"schoolcal/internal/filter"
	"schoolcal/internal/ics"
	"schoolcal/internal/importer"
	appLog "schoolcal/internal/log"
	"schoolcal/internal/model"
)

// ImportCSV maps every row of a CSV export and saves the events. Rows
// without a readable date are skipped and counted.
func (s *Service) ImportCSV(ctx context.Context, text string, src importer.Source) (Outcome, error) {
	rows := csvparse.ParseRecords(text)
	events, skipped := importer.MapRecords(rows, src)
	appLog.Info("import: csv mapped", "source", src.Key, "rows", len(rows), "events", len(events), "skipped", skipped)
	return s.saveImported(ctx, src, events, importer.Result{Rows: len(rows), Skipped: skipped})
}

// ImportICS expands an iCalendar subscription around the current year and
// imports the occurrences through the CSV row mapping.
func (s *Service) ImportICS(ctx context.Context, body []byte, src importer.Source) (Outcome, error) {
	fail := func(err error) (Outcome, error) {
		appLog.Error("import: ics failed", err, "source", src.Key)
		s.metrics.RecordImport(src.Key, 0, 0, 0, err)
		return s.notify(Notice{Message: fmt.Sprintf("Failed to import %s data.", src.Label), Variant: VariantError}), err
	}
	parsed, err := ics.Parse(body)
	if err != nil {
		return fail(err)
	}
	occ, err := ics.Expand(parsed, ics.SchoolYears(s.now()))
	if err != nil {
		return fail(err)
	}
	rows := ics.Records(occ)
	events, skipped := importer.MapRecords(rows, src)
	return s.saveImported(ctx, src, events, importer.Result{Rows: len(rows), Skipped: skipped})
}

func (s *Service) saveImported(ctx context.Context, src importer.Source, events []model.Event, res importer.Result) (Outcome, error) {
	saved, err := importer.SaveAll(ctx, s.store, events, s.save)
	res.Imported = len(saved)
	res.Failed = len(events) - len(saved)
	// Refresh even after a partial failure so the views match the store.
	if rerr := s.Refresh(ctx); rerr != nil {
		appLog.Error("refresh after import failed", rerr)
	}
	s.metrics.RecordImport(src.Key, res.Imported, res.Skipped, res.Failed, err)

	if err != nil {
		appLog.Error("import failed", err, "source", src.Key, "imported", res.Imported, "failed", res.Failed)
		out := s.notify(Notice{Message: fmt.Sprintf("Failed to import %s data.", src.Label), Variant: VariantError})
		out.Result = &res
		return out, err
	}
	out := s.notify(Notice{Message: fmt.Sprintf("Imported %d %s entries.", len(events), src.Label), Variant: VariantSuccess})
	out.Result = &res
	return out, nil
}

var jsonSource = importer.Source{Key: "json", Origin: model.OriginPersonal, Label: "JSON"}

// ImportJSON re-imports an export (or any array of event-shaped objects).
func (s *Service) ImportJSON(ctx context.Context, data []byte) (Outcome, error) {
	entries, err := importer.DecodeEntries(data)
	if err != nil {
		appLog.Error("JSON import failed", err)
		s.metrics.RecordImport(jsonSource.Key, 0, 0, 0, err)
		return s.notify(Notice{Message: "JSON import failed.", Variant: VariantError}), err
	}
	events, skipped := importer.NormalizeEntries(entries)
	res := importer.Result{Rows: len(entries), Skipped: skipped}
	if len(events) == 0 {
		s.metrics.RecordImport(jsonSource.Key, 0, skipped, 0, importer.ErrNoValidRecords)
		out := s.notify(Notice{Message: "No valid records found in JSON.", Variant: VariantError})
		out.Result = &res
		return out, importer.ErrNoValidRecords
	}

	saved, err := importer.SaveAll(ctx, s.store, events, s.save)
	res.Imported = len(saved)
	res.Failed = len(events) - len(saved)
	if rerr := s.Refresh(ctx); rerr != nil {
		appLog.Error("refresh after import failed", rerr)
	}
	s.metrics.RecordImport(jsonSource.Key, res.Imported, res.Skipped, res.Failed, err)
	if err != nil {
		appLog.Error("JSON import failed", err, "imported", res.Imported, "failed", res.Failed)
		out := s.notify(Notice{Message: "JSON import failed.", Variant: VariantError})
		out.Result = &res
		return out, err
	}
	out := s.notify(Notice{Message: fmt.Sprintf("%d records imported.", len(events)), Variant: VariantSuccess})
	out.Result = &res
	return out, nil
}

// ImportAuto sniffs the payload format. CSV and iCalendar payloads are
// attributed to src; JSON carries its own origin.
func (s *Service) ImportAuto(ctx context.Context, data []byte, name string, src importer.Source) (Outcome, error) {
	kind, err := feed.DetectKind(data, name)
	if err != nil {
		appLog.Error("import: unrecognised payload", err, "name", name)
		return s.notify(Notice{Message: fmt.Sprintf("Failed to import %s data.", src.Label), Variant: VariantError}), err
	}
	switch kind {
	case feed.KindJSON:
		return s.ImportJSON(ctx, data)
	case feed.KindICS:
		return s.ImportICS(ctx, data, src)
	default:
		return s.ImportCSV(ctx, string(data), src)
	}
}

// ExportJSON returns the store contents pretty-printed.
func (s *Service) ExportJSON(ctx context.Context) ([]byte, Outcome, error) {
	events, err := s.store.List(ctx)
	if err != nil {
		appLog.Error("JSON export failed", err)
		return nil, s.notify(Notice{Message: "JSON export failed.", Variant: VariantError}), err
	}
	if len(events) == 0 {
		return nil, s.notify(Notice{Message: "No events to export.", Variant: VariantInfo}), ErrNothingToExport
	}
	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		appLog.Error("JSON export failed", err)
		return nil, s.notify(Notice{Message: "JSON export failed.", Variant: VariantError}), err
	}
	return data, s.notify(Notice{Message: "JSON export ready.", Variant: VariantSuccess}), nil
}

// ExportFileName is the suggested download name for a JSON export.
func (s *Service) ExportFileName() string {
	return "schoolcal-export-" + s.now().Format("2006-01-02") + ".json"
}

// ExportICS writes the non-term events matching c as iCalendar.
func (s *Service) ExportICS(c filter.Criteria) ([]byte, error) {
	var out []model.Event
	for _, e := range filter.Apply(s.Events(), c) {
		if !e.IsTerm() {
			out = append(out, e)
		}
	}
	if len(out) == 0 {
		return nil, ErrNothingToExport
	}
	return ics.Export(out, s.now()), nil
}

// sourceForFeed maps a feed's source setting to an import source. ok is
// false for JSON feeds.
func sourceForFeed(name string) (importer.Source, bool, error) {
	if strings.EqualFold(strings.TrimSpace(name), "json") {
		return jsonSource, false, nil
	}
	src, err := importer.SourceByName(name)
	if err != nil {
		return importer.Source{}, false, errors.Join(ErrUnknownFeedSource, err)
	}
	return src, true, nil
}
