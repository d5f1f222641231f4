// Package importer turns CSV rows and JSON objects from school calendar
// exports into canonical events and saves them in bulk.
package importer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"schoolcal/internal/csvparse"
	"schoolcal/internal/dates"
	"schoolcal/internal/model"
)

const (
	maxIDLength   = 40
	fallbackTitle = "Imported event"
	termMention   = "term"
)

var (
	nonAlnum   = regexp.MustCompile(`[^a-z0-9]+`)
	yearRef    = regexp.MustCompile(`(?i)\b(?:year|yr)\s*(7|8|9|10|11|12)\b`)
	levelSplit = regexp.MustCompile(`[;,]`)
)

// SanitizeID lower-cases value, collapses every run of characters outside
// [a-z0-9] into one hyphen, and caps the result at 40 characters. The
// result never starts or ends with a hyphen.
func SanitizeID(value string) string {
	s := nonAlnum.ReplaceAllString(strings.ToLower(value), "-")
	s = strings.Trim(s, "-")
	if len(s) > maxIDLength {
		s = strings.TrimRight(s[:maxIDLength], "-")
	}
	return s
}

// BuildEventID composes <source>-<sanitized base>-<YYYYMMDD>.
func BuildEventID(source, base, isoDate string) string {
	return fmt.Sprintf("%s-%s-%s", strings.ToLower(source), SanitizeID(base), dates.Compact(isoDate))
}

// tagSet keeps year tags unique in first-seen order.
type tagSet struct {
	seen map[string]struct{}
	tags []string
}

func newTagSet() *tagSet {
	return &tagSet{seen: map[string]struct{}{}, tags: []string{}}
}

func (s *tagSet) add(year string) {
	tag := "Year " + year
	if _, ok := s.seen[tag]; ok {
		return
	}
	s.seen[tag] = struct{}{}
	s.tags = append(s.tags, tag)
}

func (s *tagSet) addFromText(text string) {
	for _, m := range yearRef.FindAllStringSubmatch(text, -1) {
		s.add(m[1])
	}
}

// addFromLevels reads a "7;8" or "Year 9, Year 10" style list.
func (s *tagSet) addFromLevels(field string) {
	for _, seg := range levelSplit.Split(field, -1) {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		if n, err := strconv.Atoi(leadingDigits(seg)); err == nil && n >= 7 && n <= 12 {
			s.add(strconv.Itoa(n))
		}
		s.addFromText(seg)
	}
}

func leadingDigits(s string) string {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return s[:i]
}

// YearTagsFromText extracts "Year N" tags (N in 7..12) from free text.
func YearTagsFromText(text string) []string {
	s := newTagSet()
	s.addFromText(text)
	return s.tags
}

// YearTagsForRow scans the descriptive columns of an import row and its
// year-level column.
func YearTagsForRow(row csvparse.Record) []string {
	s := newTagSet()
	for _, key := range []string{"Title", "Subject", "Description", "Groups", "Type", "Event", "Notes"} {
		s.addFromText(row[key])
	}
	s.addFromLevels(row.Get("Year Levels", "YearLevels", "Year"))
	return s.tags
}

// MapRow converts one CSV record into an event. ok is false when none of
// Date, StartDate or EndDate normalizes to a date.
func MapRow(row csvparse.Record, src Source) (model.Event, bool) {
	date := firstDate(row["Date"], row["StartDate"], row["EndDate"])
	if date == "" {
		return model.Event{}, false
	}

	title := row.Get("Title", "Subject", "Event", "Description")
	if title == "" {
		title = fallbackTitle
	}

	base := row["ID"]
	if base == "" {
		base = title + "-" + date
	}

	var notes []string
	if d := row["Description"]; d != "" && d != title {
		notes = append(notes, d)
	}
	if v := row["Start Time"]; v != "" {
		notes = append(notes, "Start "+v)
	}
	if v := row["End Time"]; v != "" {
		notes = append(notes, "End "+v)
	}

	subject := row.Get("Groups", "Year Levels", "Subject", "Type", "Showtimeas")
	if subject == "" {
		subject = src.Label
	}

	// A title mentioning "term" marks the row as a term week unless the
	// export states a type of its own.
	isTerm := strings.Contains(strings.ToLower(title), termMention)
	typ := row["Type"]
	if typ == "" {
		typ = model.TypeEvent
		if isTerm {
			typ = model.TypeTerm
		}
	}
	color := model.ColorDefault
	switch {
	case isTerm:
		color = model.ColorTerm
	case row["Type"] == model.TypeRecurring:
		color = model.ColorRecurring
	}

	now := time.Now()
	return model.Event{
		ID:           BuildEventID(src.Key, base, date),
		Title:        title,
		Date:         date,
		StartDate:    orDefault(dates.Normalize(row["StartDate"]), date),
		EndDate:      orDefault(dates.Normalize(row["EndDate"]), date),
		Type:         typ,
		Subject:      subject,
		Notes:        strings.Join(notes, " | "),
		Color:        color,
		Origin:       src.Origin,
		Source:       src.Key,
		YearTags:     YearTagsForRow(row),
		CreatedAt:    now,
		LastModified: now,
		SyncStatus:   model.SyncLocal,
	}, true
}

// MapRecords maps every record, returning the events and the number of
// rows skipped for lack of a readable date.
func MapRecords(rows []csvparse.Record, src Source) (events []model.Event, skipped int) {
	events = make([]model.Event, 0, len(rows))
	for _, row := range rows {
		ev, ok := MapRow(row, src)
		if !ok {
			skipped++
			continue
		}
		events = append(events, ev)
	}
	return events, skipped
}

func firstDate(candidates ...string) string {
	for _, c := range candidates {
		if d := dates.Normalize(c); d != "" {
			return d
		}
	}
	return ""
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
