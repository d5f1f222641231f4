// Package dates converts loosely formatted calendar dates into canonical
// YYYY-MM-DD strings and performs local-calendar arithmetic on them.
//
// All conversions use time.Local: an ISO date names a local calendar day,
// never a UTC instant. Days are carried as local noon, since some zones
// start daylight saving at midnight and skip 00:00 entirely.
package dates

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	isoPattern   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	isoParts     = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
	partSplitter = regexp.MustCompile(`[/\\-]`)
)

// instantLayouts carry a zone and name an instant, converted to the local day.
var instantLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
}

// wallLayouts are zone-less; only their calendar fields are read.
var wallLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"Mon Jan 2 2006",
	"Mon Jan 02 2006",
	"Mon, Jan 2, 2006",
	"Monday, January 2, 2006",
	"Monday, 2 January 2006",
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 Jan 2006",
	"02 Jan 2006",
	"2006 January 2",
	"2006 Jan 2",
}

// Normalize converts a raw date string into an ISO date, or "" when it
// cannot be interpreted.
//
//   - Strings already shaped like YYYY-MM-DD are returned as is.
//   - Otherwise the string is split on '/', '\' or '-' and read as
//     day/month/year. When the first number exceeds 31 day and month are
//     swapped. Two-digit years are taken to be 20xx. Out of range parts roll
//     over (month 13 is January of the next year).
//   - Failing that, a set of common textual layouts is tried.
func Normalize(raw string) string {
	value := strings.TrimSpace(raw)
	if value == "" {
		return ""
	}
	if isoPattern.MatchString(value) {
		return value
	}

	if pieces := partSplitter.Split(value, -1); len(pieces) >= 3 {
		nums := make([]int, 0, len(pieces))
		for _, p := range pieces {
			n, ok := leadingInt(p)
			if !ok {
				nums = nil
				break
			}
			nums = append(nums, n)
		}
		if nums != nil {
			day, month, year := nums[0], nums[1], nums[2]
			if day > 31 {
				day, month = month, day
			}
			if year < 100 {
				year += 2000
			}
			return FormatISO(localDay(year, time.Month(month), day))
		}
	}

	for _, layout := range instantLayouts {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return FormatISO(t.In(time.Local))
		}
	}
	for _, layout := range wallLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return FormatISO(t)
		}
	}
	return ""
}

// leadingInt reads an optionally signed run of leading digits, ignoring
// leading whitespace and anything after the digits ("2026 9:00" -> 2026).
func leadingInt(s string) (int, bool) {
	s = strings.TrimLeft(s, " \t\r\n")
	neg := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}
	n, digits := 0, 0
	for digits < len(s) && s[digits] >= '0' && s[digits] <= '9' {
		if n < 1_000_000_000 {
			n = n*10 + int(s[digits]-'0')
		}
		digits++
	}
	if digits == 0 {
		return 0, false
	}
	if neg {
		n = -n
	}
	return n, true
}

// FormatISO renders the local calendar day of t as YYYY-MM-DD.
func FormatISO(t time.Time) string {
	return fmt.Sprintf("%04d-%02d-%02d", t.Year(), int(t.Month()), t.Day())
}

// localDay is noon on the given local calendar day. Overflowing fields roll
// over as they do for time.Date.
func localDay(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 12, 0, 0, 0, time.Local)
}

// ParseISO converts YYYY-MM-DD into local noon of that day. Day and month overflow
// roll forward the same way Normalize does. ok is false for any other shape.
func ParseISO(iso string) (t time.Time, ok bool) {
	m := isoParts.FindStringSubmatch(iso)
	if m == nil {
		return time.Time{}, false
	}
	y, _ := strconv.Atoi(m[1])
	mo, _ := strconv.Atoi(m[2])
	d, _ := strconv.Atoi(m[3])
	return localDay(y, time.Month(mo), d), true
}

// Valid reports whether iso is a well formed YYYY-MM-DD naming a real day.
// Only valid dates take part in range comparisons, which keeps string and
// chronological ordering in agreement.
func Valid(iso string) bool {
	t, ok := ParseISO(iso)
	return ok && FormatISO(t) == iso
}

// Today is the current local calendar day.
func Today() string {
	return FormatISO(time.Now())
}

// AddDays shifts an ISO date by n calendar days. Invalid input yields "".
func AddDays(iso string, n int) string {
	t, ok := ParseISO(iso)
	if !ok {
		return ""
	}
	return FormatISO(t.AddDate(0, 0, n))
}

// AddYears shifts an ISO date by n years. 29 February rolls to 1 March in a
// non-leap target year.
func AddYears(iso string, n int) string {
	t, ok := ParseISO(iso)
	if !ok {
		return ""
	}
	return FormatISO(localDay(t.Year()+n, t.Month(), t.Day()))
}

// Compact strips the hyphens from an ISO date (2026-02-10 -> 20260210).
func Compact(iso string) string {
	return strings.ReplaceAll(iso, "-", "")
}
