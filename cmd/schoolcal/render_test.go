package main

import (
	"bytes"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"schoolcal/internal/view"
)

func TestPrint(t *testing.T) {
	Convey("Given a snapshot", t, func() {
		snap := view.Snapshot{
			Header: view.Header{
				DayHeading:        "Tuesday, 3 February",
				EventCount:        "1 events",
				WorkspaceTitle:    "Term 1",
				WorkspaceSubtitle: "27 Jan - 6 Feb",
				LetterToggle:      "First week A",
				LastUpdated:       "Last updated: 2 hours ago",
			},
			Day: view.DayView{Count: 1, Events: []view.EventCard{
				{Title: "Year 9 camp", Subject: "Year 9", Notes: "Bring a hat", Badge: view.BadgeFor("")},
			}},
			Term: view.TermView{Weeks: []view.WeekView{{
				Title: "Week 2b",
				Range: "2 Feb - 6 Feb",
				Days: []view.DayCell{
					{Label: "Mon, 2 Feb"},
					{Label: "Tue, 3 Feb", Selected: true, Events: []view.EventCard{{Title: "Year 9 camp", Subject: "Year 9", Badge: view.BadgeFor("")}}},
				},
			}}},
		}

		Convey("the day listing shows each card", func() {
			var buf bytes.Buffer
			printDay(&buf, snap)
			So(buf.String(), ShouldContainSubstring, "Tuesday, 3 February  (1 events)")
			So(buf.String(), ShouldContainSubstring, "- Year 9 camp [Year 9] (local)\n    Bring a hat")
		})

		Convey("the term grid marks the selected day", func() {
			var buf bytes.Buffer
			printTerm(&buf, snap)
			So(buf.String(), ShouldContainSubstring, "Week 2b  2 Feb - 6 Feb")
			So(buf.String(), ShouldContainSubstring, "  Mon, 2 Feb\n    "+view.EmptyCell)
			So(buf.String(), ShouldContainSubstring, "* Tue, 3 Feb")
		})

		Convey("an empty day and term say so", func() {
			var buf bytes.Buffer
			printDay(&buf, view.Snapshot{})
			So(buf.String(), ShouldContainSubstring, view.EmptyDay)
			buf.Reset()
			printTerm(&buf, view.Snapshot{})
			So(buf.String(), ShouldContainSubstring, view.EmptyTerm)
		})
	})
}
