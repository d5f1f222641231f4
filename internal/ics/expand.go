package ics

import (
	"errors"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"schoolcal/internal/csvparse"
	"schoolcal/internal/dates"
	appLog "schoolcal/internal/log"
)

const defaultMaxOccurrences = 1000

// Window bounds recurrence expansion. Both ends are inclusive.
type Window struct {
	Start time.Time
	End   time.Time
	// MaxOccurrences caps each series; zero means 1000.
	MaxOccurrences int
}

// SchoolYears covers the whole of the previous, current and next calendar
// year around now.
func SchoolYears(now time.Time) Window {
	return Window{
		Start: time.Date(now.Year()-1, time.January, 1, 0, 0, 0, 0, time.Local),
		End:   time.Date(now.Year()+1, time.December, 31, 23, 59, 59, 0, time.Local),
	}
}

// Occurrence is one concrete instance of a VEVENT.
type Occurrence struct {
	UID         string
	Summary     string
	Description string
	Location    string
	AllDay      bool
	Start       time.Time
	End         time.Time
}

// Expand turns base events, recurring series and their overrides into
// concrete occurrences inside w.
func Expand(events []VEvent, w Window) ([]Occurrence, error) {
	if w.End.Before(w.Start) {
		return nil, errors.New("ics: window ends before it starts")
	}
	if w.MaxOccurrences <= 0 {
		w.MaxOccurrences = defaultMaxOccurrences
	}

	var (
		order     []string
		bases     = map[string][]VEvent{}
		overrides = map[string][]VEvent{}
	)
	for _, ev := range events {
		if ev.IsOverride() {
			overrides[ev.UID] = append(overrides[ev.UID], ev)
			continue
		}
		if _, seen := bases[ev.UID]; !seen {
			order = append(order, ev.UID)
		}
		bases[ev.UID] = append(bases[ev.UID], ev)
	}

	out := make([]Occurrence, 0, len(events))
	for _, uid := range order {
		for _, ev := range bases[uid] {
			if ev.RawRRule == "" {
				if overlaps(ev.Start, ev.End, w.Start, w.End) {
					out = append(out, occurrence(ev, overrides[uid], ev.Start, ev.End))
				}
				continue
			}
			occ, truncated := expandSeries(ev, overrides[uid], w)
			if truncated {
				appLog.Warn("ics: series truncated", "uid", uid, "cap", w.MaxOccurrences)
			}
			out = append(out, occ...)
		}
	}
	return out, nil
}

func expandSeries(ev VEvent, overrides []VEvent, w Window) ([]Occurrence, bool) {
	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("ics: bad RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil, false
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		if ev.AllDay {
			ex = localDay(ex)
		}
		set.ExDate(ex.In(ev.Start.Location()))
	}

	starts := set.Between(w.Start.In(ev.Start.Location()), w.End.In(ev.Start.Location()), true)
	truncated := len(starts) > w.MaxOccurrences
	if truncated {
		starts = starts[:w.MaxOccurrences]
	}

	span := ev.End.Sub(ev.Start)
	out := make([]Occurrence, 0, len(starts))
	for _, s := range starts {
		if ev.AllDay {
			s = localDay(s)
			out = append(out, occurrence(ev, overrides, s, s.AddDate(0, 0, int(span.Hours()/24+0.5))))
			continue
		}
		out = append(out, occurrence(ev, overrides, s, s.Add(span)))
	}
	return out, truncated
}

// occurrence applies the override whose RECURRENCE-ID matches start, if any.
func occurrence(ev VEvent, overrides []VEvent, start, end time.Time) Occurrence {
	for _, ov := range overrides {
		if ov.RecurrenceID.Equal(start) || (ev.AllDay && localDay(*ov.RecurrenceID).Equal(start)) {
			ev, start, end = ov, ov.Start, ov.End
			break
		}
	}
	return Occurrence{
		UID:         ev.UID,
		Summary:     ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		AllDay:      ev.AllDay,
		Start:       start,
		End:         end,
	}
}

func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aEnd.Before(bStart) && !bEnd.Before(aStart)
}

// Records converts occurrences into import rows with the column names of
// the CSV exports, so they go through the same normalization. All-day end
// dates are exclusive in iCalendar and inclusive in rows.
func Records(occ []Occurrence) []csvparse.Record {
	rows := make([]csvparse.Record, 0, len(occ))
	for _, o := range occ {
		start := o.Start.In(time.Local)
		end := o.End.In(time.Local)
		if o.AllDay {
			start, end = o.Start, o.End.AddDate(0, 0, -1)
			if end.Before(start) {
				end = start
			}
		}
		row := csvparse.Record{
			"Title":     o.Summary,
			"Date":      dates.FormatISO(start),
			"StartDate": dates.FormatISO(start),
			"EndDate":   dates.FormatISO(end),
		}
		if o.UID != "" {
			row["ID"] = o.UID
		}
		var desc []string
		if o.Description != "" {
			desc = append(desc, o.Description)
		}
		if o.Location != "" {
			desc = append(desc, "Location "+o.Location)
		}
		if len(desc) > 0 {
			row["Description"] = strings.Join(desc, " | ")
		}
		if !o.AllDay {
			row["Start Time"] = start.Format("15:04")
			row["End Time"] = end.Format("15:04")
		}
		rows = append(rows, row)
	}
	return rows
}
