package csvparse_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"schoolcal/internal/csvparse"
)

func TestParse(t *testing.T) {
	Convey("Parse", t, func() {
		Convey("keeps commas and newlines inside quotes", func() {
			rows := csvparse.Parse("a,\"b,c\",\"line1\nline2\"\n")
			So(rows, ShouldResemble, [][]string{{"a", "b,c", "line1\nline2"}})
		})

		Convey("unescapes doubled quotes inside quoted fields", func() {
			rows := csvparse.Parse(`"say ""hi""",x`)
			So(rows, ShouldResemble, [][]string{{`say "hi"`, "x"}})
		})

		Convey("treats CRLF, CR and LF as row ends and skips blank lines", func() {
			rows := csvparse.Parse("a,b\r\n\r\nc,d\re,f\n\n")
			So(rows, ShouldResemble, [][]string{{"a", "b"}, {"c", "d"}, {"e", "f"}})
		})

		Convey("emits a final row without trailing newline", func() {
			rows := csvparse.Parse("a,b\nc,d")
			So(rows, ShouldHaveLength, 2)
			So(rows[1], ShouldResemble, []string{"c", "d"})
		})

		Convey("keeps a trailing empty field", func() {
			So(csvparse.Parse("a,\n"), ShouldResemble, [][]string{{"a", ""}})
		})

		Convey("runs an unterminated quote to the end of input", func() {
			So(csvparse.Parse("a,\"b\nc"), ShouldResemble, [][]string{{"a", "b\nc"}})
		})

		Convey("returns nothing for empty input", func() {
			So(csvparse.Parse(""), ShouldBeEmpty)
		})
	})
}

func TestParseRecords(t *testing.T) {
	Convey("ParseRecords maps rows onto the header", t, func() {
		text := "\uFEFF Date , Title ,Notes\n10/02/2026,  Assembly ,\n11/02/2026\n"
		recs := csvparse.ParseRecords(text)

		So(recs, ShouldHaveLength, 2)
		So(recs[0], ShouldResemble, csvparse.Record{"Date": "10/02/2026", "Title": "Assembly", "Notes": ""})

		Convey("missing cells become empty strings", func() {
			So(recs[1]["Title"], ShouldEqual, "")
			So(recs[1]["Notes"], ShouldEqual, "")
		})

		Convey("Get returns the first non-empty value", func() {
			So(recs[0].Get("Subject", "Title"), ShouldEqual, "Assembly")
			So(recs[1].Get("Subject", "Title"), ShouldEqual, "")
		})
	})

	Convey("Header-only input yields no records", t, func() {
		So(csvparse.ParseRecords("Date,Title\n"), ShouldBeEmpty)
		So(csvparse.ParseRecords(""), ShouldBeEmpty)
	})
}
