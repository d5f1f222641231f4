package dates

import (
	"time"

	"github.com/teambition/rrule-go"
)

var schoolDays = []rrule.Weekday{rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR}

// schoolDayRule yields Monday to Friday occurrences starting at dtstart.
func schoolDayRule(dtstart time.Time, count int) (*rrule.RRule, error) {
	return rrule.NewRRule(rrule.ROption{
		Freq:      rrule.DAILY,
		Dtstart:   dtstart,
		Count:     count,
		Byweekday: schoolDays,
	})
}

// MondayOf returns the Monday on or before the given local day.
func MondayOf(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return localDay(t.Year(), t.Month(), t.Day()-offset)
}

// WeekDays lists Monday to Friday of the week containing startISO. A weekend
// start still maps to the preceding Monday. Invalid input yields nil.
func WeekDays(startISO string) []string {
	start, ok := ParseISO(startISO)
	if !ok || !Valid(startISO) {
		return nil
	}
	r, err := schoolDayRule(MondayOf(start), 5)
	if err != nil {
		return nil
	}
	out := make([]string, 0, 5)
	for _, d := range r.All() {
		out = append(out, FormatISO(d.In(time.Local)))
	}
	return out
}

// NextWorkingDay moves one school day forward (step >= 0) or backward
// (step < 0) from iso, skipping Saturdays and Sundays. The magnitude of
// step is ignored. Invalid input is returned unchanged.
func NextWorkingDay(iso string, step int) string {
	t, ok := ParseISO(iso)
	if !ok {
		return iso
	}
	if step >= 0 {
		r, err := schoolDayRule(t, 0)
		if err != nil {
			return iso
		}
		return FormatISO(r.After(t, false).In(time.Local))
	}
	// Anchor a week back so the rule has occurrences before t.
	r, err := schoolDayRule(t.AddDate(0, 0, -7), 0)
	if err != nil {
		return iso
	}
	return FormatISO(r.Before(t, false).In(time.Local))
}
