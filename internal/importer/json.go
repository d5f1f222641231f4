package importer

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"schoolcal/internal/dates"
	"schoolcal/internal/model"
)

// Entry is one element of a JSON import payload. Keys are taken as written,
// so both exported events ("subject", "notes") and raw feed objects
// ("Groups", "Description") are understood.
type Entry map[string]any

// String returns the value at key as text. Numbers and booleans are
// formatted, anything absent or null is "".
func (e Entry) String(key string) string {
	switch v := e[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

func (e Entry) first(keys ...string) string {
	for _, k := range keys {
		if v := e.String(k); v != "" {
			return v
		}
	}
	return ""
}

// DecodeEntries parses a JSON payload that must be a top-level array.
// Elements that are not objects are dropped.
func DecodeEntries(data []byte) ([]Entry, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		var probe any
		if json.Unmarshal(data, &probe) == nil {
			return nil, ErrNotArray
		}
		return nil, fmt.Errorf("decode JSON import: %w", err)
	}
	entries := make([]Entry, 0, len(raw))
	for _, item := range raw {
		var e Entry
		if err := json.Unmarshal(item, &e); err != nil || e == nil {
			entries = append(entries, nil)
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// NormalizeImported converts a JSON entry into an event. ok is false for a
// nil entry or one whose date does not normalize.
//
// An explicit id is kept as is so that re-importing an export upserts the
// same records. Entries without one get an id built from their source,
// title and date.
func NormalizeImported(e Entry) (model.Event, bool) {
	if e == nil {
		return model.Event{}, false
	}
	date := dates.Normalize(e.String("date"))
	if date == "" {
		return model.Event{}, false
	}

	origin := model.Origin(e.String("origin"))
	if origin == "" {
		origin = model.OriginPersonal
	}
	title := e.String("title")
	if title == "" {
		title = fallbackTitle
	}

	id := e.String("id")
	if id == "" {
		source := e.String("source")
		if source == "" {
			source = string(origin)
		}
		id = BuildEventID(source, title+"-"+date, date)
	}

	subject := e.first("subject", "Groups", "Subject")
	notes := e.first("notes", "Description")

	var yearTags []string
	if list, isList := e["yearTags"].([]any); isList {
		yearTags = make([]string, 0, len(list))
		for _, v := range list {
			if s, ok := v.(string); ok {
				yearTags = append(yearTags, s)
			}
		}
	} else {
		yearTags = YearTagsFromText(strings.Join([]string{title, subject, notes}, " "))
	}

	now := time.Now()
	return model.Event{
		ID:           id,
		Title:        title,
		Date:         date,
		StartDate:    orDefault(dates.Normalize(e.String("startDate")), date),
		EndDate:      orDefault(dates.Normalize(e.String("endDate")), date),
		Type:         orDefault(e.String("type"), model.TypeEvent),
		Subject:      subject,
		Notes:        notes,
		Color:        orDefault(e.String("color"), model.ColorDefault),
		Origin:       origin,
		Source:       orDefault(e.String("source"), string(origin)),
		YearTags:     yearTags,
		CreatedAt:    timestampOr(e.String("createdAt"), now),
		LastModified: timestampOr(e.String("lastModified"), now),
		SyncStatus:   model.SyncStatus(orDefault(e.String("syncStatus"), string(model.SyncLocal))),
	}, true
}

// NormalizeEntries normalizes every entry and counts the ones dropped.
func NormalizeEntries(entries []Entry) (events []model.Event, skipped int) {
	events = make([]model.Event, 0, len(entries))
	for _, e := range entries {
		ev, ok := NormalizeImported(e)
		if !ok {
			skipped++
			continue
		}
		events = append(events, ev)
	}
	return events, skipped
}

func timestampOr(raw string, def time.Time) time.Time {
	if raw == "" {
		return def
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return def
	}
	return t
}
