package importer_test

import (
	"errors"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"schoolcal/internal/csvparse"
	"schoolcal/internal/importer"
	"schoolcal/internal/model"
)

func TestSanitizeID(t *testing.T) {
	Convey("SanitizeID", t, func() {
		So(importer.SanitizeID("Term 1 Week 3-2026-02-10"), ShouldEqual, "term-1-week-3-2026-02-10")
		So(importer.SanitizeID("  --Hello, World!!  "), ShouldEqual, "hello-world")
		So(importer.SanitizeID("ÉCOLE day"), ShouldEqual, "cole-day")

		Convey("caps the length at 40 without a trailing hyphen", func() {
			long := strings.Repeat("a", 39) + " bcd"
			got := importer.SanitizeID(long)
			So(len(got), ShouldBeLessThanOrEqualTo, 40)
			So(strings.HasSuffix(got, "-"), ShouldBeFalse)
			So(got, ShouldEqual, strings.Repeat("a", 39))
		})
	})
}

func TestYearTags(t *testing.T) {
	Convey("YearTagsFromText finds year references once each", t, func() {
		So(importer.YearTagsFromText("Year 7 and yr10 excursion, YEAR 7 again"), ShouldResemble,
			[]string{"Year 7", "Year 10"})
		So(importer.YearTagsFromText("Year 6 and Year 120"), ShouldBeEmpty)
	})

	Convey("YearTagsForRow reads text columns and the level column", t, func() {
		row := csvparse.Record{
			"Title":       "Science fair",
			"Description": "Open to Year 9",
			"Year Levels": "7; 8, Year 11, 13",
		}
		So(importer.YearTagsForRow(row), ShouldResemble, []string{"Year 9", "Year 7", "Year 8", "Year 11"})
	})
}

func TestMapRow(t *testing.T) {
	Convey("Given an NSW DOE term row", t, func() {
		row := csvparse.Record{
			"Title":     "Term 1 Week 1",
			"Date":      "27/01/2026",
			"StartDate": "27/01/2026",
			"EndDate":   "30/01/2026",
		}
		ev, ok := importer.MapRow(row, importer.NSWDOE)

		So(ok, ShouldBeTrue)
		So(ev.ID, ShouldEqual, "nsw-doe-term-1-week-1-2026-01-27-20260127")
		So(ev.Date, ShouldEqual, "2026-01-27")
		So(ev.StartDate, ShouldEqual, "2026-01-27")
		So(ev.EndDate, ShouldEqual, "2026-01-30")
		So(ev.Type, ShouldEqual, model.TypeTerm)
		So(ev.Color, ShouldEqual, model.ColorTerm)
		So(ev.Subject, ShouldEqual, "NSW DOE")
		So(ev.Origin, ShouldEqual, model.OriginNSWDOE)
		So(ev.Source, ShouldEqual, "nsw-doe")
		So(ev.SyncStatus, ShouldEqual, model.SyncLocal)
		So(ev.CreatedAt.IsZero(), ShouldBeFalse)
	})

	Convey("Given a Sentral row with times and an explicit id", t, func() {
		row := csvparse.Record{
			"ID":          "EV-42",
			"Subject":     "Maths",
			"Description": "Bring calculators",
			"StartDate":   "03/02/2026",
			"Start Time":  "9:00",
			"End Time":    "10:00",
			"Groups":      "Year 8",
			"Type":        "Recurring",
		}
		ev, ok := importer.MapRow(row, importer.Sentral)

		So(ok, ShouldBeTrue)
		So(ev.ID, ShouldEqual, "sentral-ev-42-20260203")
		So(ev.Title, ShouldEqual, "Maths")
		So(ev.Date, ShouldEqual, "2026-02-03")
		So(ev.EndDate, ShouldEqual, "2026-02-03")
		So(ev.Notes, ShouldEqual, "Bring calculators | Start 9:00 | End 10:00")
		So(ev.Subject, ShouldEqual, "Year 8")
		So(ev.Type, ShouldEqual, "Recurring")
		So(ev.Color, ShouldEqual, model.ColorRecurring)
		So(ev.YearTags, ShouldResemble, []string{"Year 8"})
		So(ev.Origin, ShouldEqual, model.OriginSentral)
	})

	Convey("A row with no readable date is rejected", t, func() {
		_, ok := importer.MapRow(csvparse.Record{"Title": "Mystery", "Date": "soon"}, importer.NSWDOE)
		So(ok, ShouldBeFalse)
	})

	Convey("A row without a title gets the placeholder", t, func() {
		ev, ok := importer.MapRow(csvparse.Record{"Date": "2026-03-01"}, importer.Sentral)
		So(ok, ShouldBeTrue)
		So(ev.Title, ShouldEqual, "Imported event")
		So(ev.Type, ShouldEqual, model.TypeEvent)
		So(ev.Subject, ShouldEqual, "Sentral")
		So(ev.YearTags, ShouldBeEmpty)
	})

	Convey("Importing the same rows twice yields the same ids", t, func() {
		recs := csvparse.ParseRecords("Date,Title\n10/02/2026,Assembly\nbad,Skip me\n11/02/2026,Sport\n")
		first, skipped := importer.MapRecords(recs, importer.NSWDOE)
		second, _ := importer.MapRecords(recs, importer.NSWDOE)

		So(skipped, ShouldEqual, 1)
		So(first, ShouldHaveLength, 2)
		for i := range first {
			So(second[i].ID, ShouldEqual, first[i].ID)
		}
	})
}

func TestSourceByName(t *testing.T) {
	Convey("SourceByName", t, func() {
		src, err := importer.SourceByName("NSWDOE")
		So(err, ShouldBeNil)
		So(src, ShouldResemble, importer.NSWDOE)

		src, err = importer.SourceByName(" sentral ")
		So(err, ShouldBeNil)
		So(src.Key, ShouldEqual, "sentral")

		_, err = importer.SourceByName("gradebook")
		So(errors.Is(err, importer.ErrUnknownSource), ShouldBeTrue)
	})
}
