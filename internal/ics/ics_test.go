package ics_test

import (
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"schoolcal/internal/ics"
	"schoolcal/internal/model"
)

const feed = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//test//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:camp@school\r\n" +
	"DTSTAMP:20260101T000000Z\r\n" +
	"SUMMARY:Year 9 camp\r\n" +
	"DESCRIPTION:Bring a sleeping bag\r\n" +
	"LOCATION:Myall Lakes\r\n" +
	"DTSTART;VALUE=DATE:20260311\r\n" +
	"DTEND;VALUE=DATE:20260314\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:sport@school\r\n" +
	"DTSTAMP:20260101T000000Z\r\n" +
	"SUMMARY:Sport\r\n" +
	"DTSTART:20260202T133000\r\n" +
	"DTEND:20260202T150000\r\n" +
	"RRULE:FREQ=WEEKLY;COUNT=4\r\n" +
	"EXDATE:20260209T133000\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:sport@school\r\n" +
	"DTSTAMP:20260101T000000Z\r\n" +
	"SUMMARY:Sport (moved)\r\n" +
	"RECURRENCE-ID:20260216T133000\r\n" +
	"DTSTART:20260217T133000\r\n" +
	"DTEND:20260217T150000\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func window() ics.Window {
	return ics.SchoolYears(time.Date(2026, 6, 1, 0, 0, 0, 0, time.Local))
}

func TestParseAndExpand(t *testing.T) {
	Convey("Given a subscription with a multi-day event and a weekly series", t, func() {
		events, err := ics.Parse([]byte(feed))
		So(err, ShouldBeNil)
		So(events, ShouldHaveLength, 3)

		camp := events[0]
		So(camp.AllDay, ShouldBeTrue)
		So(camp.Summary, ShouldEqual, "Year 9 camp")
		So(events[2].IsOverride(), ShouldBeTrue)

		occ, err := ics.Expand(events, window())
		So(err, ShouldBeNil)

		Convey("the series drops its EXDATE and applies the override", func() {
			var sport []ics.Occurrence
			for _, o := range occ {
				if o.UID == "sport@school" {
					sport = append(sport, o)
				}
			}
			So(sport, ShouldHaveLength, 3)
			So(sport[0].Start.Day(), ShouldEqual, 2)
			So(sport[1].Start.Day(), ShouldEqual, 17)
			So(sport[1].Summary, ShouldEqual, "Sport (moved)")
			So(sport[2].Start.Day(), ShouldEqual, 23)
		})

		Convey("records carry inclusive dates and times", func() {
			rows := ics.Records(occ)
			So(rows, ShouldHaveLength, 4)
			So(rows[0]["StartDate"], ShouldEqual, "2026-03-11")
			So(rows[0]["EndDate"], ShouldEqual, "2026-03-13")
			So(rows[0]["ID"], ShouldEqual, "camp@school")
			So(rows[0]["Description"], ShouldEqual, "Bring a sleeping bag | Location Myall Lakes")
			So(rows[1]["Date"], ShouldEqual, "2026-02-02")
			So(rows[1]["Start Time"], ShouldEqual, "13:30")
			So(rows[1]["End Time"], ShouldEqual, "15:00")
		})
	})

	Convey("An empty body is rejected", t, func() {
		_, err := ics.Parse([]byte("  "))
		So(err, ShouldEqual, ics.ErrEmptyBody)
	})

	Convey("An inverted window is rejected", t, func() {
		w := window()
		w.Start, w.End = w.End, w.Start
		_, err := ics.Expand(nil, w)
		So(err, ShouldNotBeNil)
	})
}

func TestExport(t *testing.T) {
	Convey("Export writes all-day events that read back", t, func() {
		now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
		body := ics.Export([]model.Event{
			{ID: "a", Title: "Swimming carnival", Date: "2026-02-10", Subject: "Sport", Notes: "Bring a towel"},
			{ID: "b", Title: "Camp", Date: "2026-03-11", StartDate: "2026-03-11", EndDate: "2026-03-13"},
			{ID: "c", Title: "No date"},
		}, now)

		text := string(body)
		So(text, ShouldContainSubstring, "BEGIN:VCALENDAR")
		So(strings.Count(text, "BEGIN:VEVENT"), ShouldEqual, 2)

		parsed, err := ics.Parse(body)
		So(err, ShouldBeNil)
		So(parsed, ShouldHaveLength, 2)
		So(parsed[0].UID, ShouldEqual, "a")
		So(parsed[0].AllDay, ShouldBeTrue)
		So(parsed[0].Description, ShouldEqual, "Bring a towel")

		rows := ics.Records([]ics.Occurrence{{
			UID: parsed[1].UID, Summary: parsed[1].Summary, AllDay: true,
			Start: parsed[1].Start, End: parsed[1].End,
		}})
		So(rows[0]["StartDate"], ShouldEqual, "2026-03-11")
		So(rows[0]["EndDate"], ShouldEqual, "2026-03-13")
	})
}

func TestAllDayAcrossMidnightDaylightSaving(t *testing.T) {
	loc, err := time.LoadLocation("America/Santiago")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	saved := time.Local
	time.Local = loc
	defer func() { time.Local = saved }()

	body := "BEGIN:VCALENDAR\r\n" +
		"VERSION:2.0\r\n" +
		"PRODID:-//test//EN\r\n" +
		"BEGIN:VEVENT\r\n" +
		"UID:fair@school\r\n" +
		"DTSTAMP:20260101T000000Z\r\n" +
		"SUMMARY:Book fair\r\n" +
		"DTSTART;VALUE=DATE:20260906\r\n" +
		"DTEND;VALUE=DATE:20260908\r\n" +
		"END:VEVENT\r\n" +
		"BEGIN:VEVENT\r\n" +
		"UID:club@school\r\n" +
		"DTSTAMP:20260101T000000Z\r\n" +
		"SUMMARY:Chess club\r\n" +
		"DTSTART;VALUE=DATE:20260830\r\n" +
		"RRULE:FREQ=WEEKLY;COUNT=3\r\n" +
		"EXDATE;VALUE=DATE:20260913\r\n" +
		"END:VEVENT\r\n" +
		"END:VCALENDAR\r\n"

	Convey("All-day events keep their days when local midnight is skipped", t, func() {
		parsed, err := ics.Parse([]byte(body))
		So(err, ShouldBeNil)
		So(parsed, ShouldHaveLength, 2)
		So(parsed[0].Start.Day(), ShouldEqual, 6)

		occ, err := ics.Expand(parsed, ics.SchoolYears(time.Date(2026, 6, 1, 12, 0, 0, 0, loc)))
		So(err, ShouldBeNil)
		rows := ics.Records(occ)
		So(rows, ShouldHaveLength, 3)
		So(rows[0]["StartDate"], ShouldEqual, "2026-09-06")
		So(rows[0]["EndDate"], ShouldEqual, "2026-09-07")
		So(rows[1]["Date"], ShouldEqual, "2026-08-30")
		So(rows[2]["Date"], ShouldEqual, "2026-09-06")
	})
}
