// Package ics reads iCalendar subscriptions into import records and writes
// the event set back out as an iCalendar file.
package ics

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "schoolcal/internal/log"
)

// ErrEmptyBody is returned when there is nothing to parse.
var ErrEmptyBody = errors.New("ics: empty body")

// VEvent is the subset of a VEVENT needed to build calendar entries.
type VEvent struct {
	UID         string
	Summary     string
	Description string
	Location    string

	Start  time.Time
	End    time.Time
	AllDay bool

	RawRRule     string
	ExDates      []time.Time
	RecurrenceID *time.Time
}

// IsOverride reports whether the VEVENT replaces one instance of a series.
func (v VEvent) IsOverride() bool { return v.RecurrenceID != nil }

// Parse reads every VEVENT from body. Events that cannot be read are
// logged and skipped.
func Parse(body []byte) ([]VEvent, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, ErrEmptyBody
	}
	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err)
		return nil, err
	}

	events := make([]VEvent, 0)
	for _, comp := range cal.Events() {
		ev, perr := parseVEvent(comp)
		if perr != nil {
			appLog.Error("ics vevent skipped", perr)
			continue
		}
		events = append(events, ev)
	}
	appLog.Debug("ics parse completed", "event_count", len(events))
	return events, nil
}

func parseVEvent(ve *ical.VEvent) (VEvent, error) {
	var out VEvent

	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
		out.UID = strings.TrimSpace(p.Value)
	}
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = strings.TrimSpace(p.Value)
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = strings.TrimSpace(p.Value)
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		out.Location = strings.TrimSpace(p.Value)
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil || dtStart.Value == "" {
		return out, errors.New("missing DTSTART")
	}
	out.AllDay = isDateValue(dtStart)

	if out.AllDay {
		start, err := parseDateValue(dtStart.Value)
		if err != nil {
			return out, err
		}
		out.Start = localDay(start)
		out.End = out.Start.AddDate(0, 0, 1)
		if p := ve.GetProperty(ical.ComponentPropertyDtEnd); p != nil {
			if end, err := parseDateValue(p.Value); err == nil && localDay(end).After(out.Start) {
				out.End = localDay(end)
			}
		}
	} else {
		start, err := ve.GetStartAt()
		if err != nil {
			return out, err
		}
		out.Start = start
		out.End = start
		if end, err := ve.GetEndAt(); err == nil && !end.Before(start) {
			out.End = end
		}
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.RawRRule = p.Value
	}
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			if t, err := parseICSTime(part); err == nil {
				out.ExDates = append(out.ExDates, t)
			}
		}
	}
	if p := ve.GetProperty("RECURRENCE-ID"); p != nil {
		if t, err := parseICSTime(p.Value); err == nil {
			out.RecurrenceID = &t
		}
	}
	return out, nil
}

// localDay keeps the calendar fields of t at local noon. Midnight is not
// safe: zones that start daylight saving at 00:00 skip it.
func localDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 12, 0, 0, 0, time.Local)
}

// parseDateValue reads the YYYYMMDD part of a DATE or DATE-TIME value. The
// result is UTC midnight and only its calendar fields are meaningful.
func parseDateValue(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if len(v) > 8 {
		v = v[:8]
	}
	return time.Parse("20060102", v)
}

// isDateValue reports VALUE=DATE or a value without a time part.
func isDateValue(p *ical.IANAProperty) bool {
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

// parseICSTime reads the basic DATE and DATE-TIME forms used by EXDATE and
// RECURRENCE-ID. Floating times are local. Bare dates come back as UTC
// midnight for localDay to place.
func parseICSTime(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return time.Time{}, errors.New("empty time value")
	case strings.HasSuffix(v, "Z"):
		return time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation("20060102T150405", v, time.Local)
	default:
		return parseDateValue(v)
	}
}
