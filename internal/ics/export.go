package ics

import (
	"time"

	ical "github.com/arran4/golang-ical"

	"schoolcal/internal/dates"
	"schoolcal/internal/model"
)

const productID = "-//schoolcal//school calendar//EN"

// Export writes events as all-day VEVENTs. Multi-day events span
// StartDate to EndDate inclusive; unreadable dates fall back to Date and
// events without any readable date are left out.
func Export(events []model.Event, now time.Time) []byte {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	cal.SetXWRCalName("schoolcal")

	for _, e := range events {
		start, end, ok := span(e)
		if !ok {
			continue
		}
		ve := cal.AddEvent(e.ID)
		ve.SetDtStampTime(now.UTC())
		ve.SetSummary(e.Title)
		ve.SetAllDayStartAt(start)
		ve.SetAllDayEndAt(end.AddDate(0, 0, 1))
		if e.Notes != "" {
			ve.SetDescription(e.Notes)
		}
		if e.Subject != "" {
			ve.AddProperty(ical.ComponentPropertyCategories, e.Subject)
		}
		if !e.CreatedAt.IsZero() {
			ve.SetCreatedTime(e.CreatedAt.UTC())
		}
		if !e.LastModified.IsZero() {
			ve.SetModifiedAt(e.LastModified.UTC())
		}
	}
	return []byte(cal.Serialize())
}

func span(e model.Event) (time.Time, time.Time, bool) {
	startISO, endISO := e.StartDate, e.EndDate
	if !dates.Valid(startISO) {
		startISO = e.Date
	}
	if !dates.Valid(endISO) || endISO < startISO {
		endISO = startISO
	}
	if !dates.Valid(startISO) {
		return time.Time{}, time.Time{}, false
	}
	start, _ := dates.ParseISO(startISO)
	end, _ := dates.ParseISO(endISO)
	return start, end, true
}
