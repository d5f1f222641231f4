// Package filter selects events by free text and year level.
package filter

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/text/cases"

	"schoolcal/internal/model"
)

// Criteria is the active filter. The zero value matches everything.
type Criteria struct {
	// Text is matched case-insensitively as a substring of the title,
	// subject or notes.
	Text string
	// Years restricts matches to events referring to any of these year
	// levels. Empty means no year restriction.
	Years []int
}

// Active reports whether the criteria restrict anything.
func (c Criteria) Active() bool {
	return strings.TrimSpace(c.Text) != "" || len(c.Years) > 0
}

var (
	patternMu sync.Mutex
	patterns  = map[int]*regexp.Regexp{}
)

func yearPattern(year int) *regexp.Regexp {
	patternMu.Lock()
	defer patternMu.Unlock()
	re, ok := patterns[year]
	if !ok {
		re = regexp.MustCompile(fmt.Sprintf(`(?i)\b(?:year|yr)\s*%d\b`, year))
		patterns[year] = re
	}
	return re
}

func fold(s string) string {
	return cases.Fold().String(s)
}

// Matches reports whether e passes both the text and the year filter.
func Matches(e model.Event, c Criteria) bool {
	return matchesText(e, c.Text) && MatchesYears(e, c.Years)
}

func matchesText(e model.Event, text string) bool {
	needle := fold(strings.TrimSpace(text))
	if needle == "" {
		return true
	}
	return strings.Contains(fold(e.Title), needle) ||
		strings.Contains(fold(e.Subject), needle) ||
		strings.Contains(fold(e.Notes), needle)
}

// MatchesYears is true when years is empty or e refers to any of them.
func MatchesYears(e model.Event, years []int) bool {
	if len(years) == 0 {
		return true
	}
	return slices.ContainsFunc(years, func(y int) bool { return HasYear(e, y) })
}

// HasYear reports whether e carries the "Year N" tag or mentions year N in
// its title, subject or notes.
func HasYear(e model.Event, year int) bool {
	if year == 0 {
		return false
	}
	if slices.Contains(e.YearTags, "Year "+strconv.Itoa(year)) {
		return true
	}
	text := e.Title + " " + e.Subject + " " + e.Notes
	return yearPattern(year).MatchString(text)
}

// Apply returns the events that match, preserving order.
func Apply(events []model.Event, c Criteria) []model.Event {
	out := make([]model.Event, 0, len(events))
	for _, e := range events {
		if Matches(e, c) {
			out = append(out, e)
		}
	}
	return out
}

// ParseYears reads year levels from strings such as "7", "Year 8" or
// "9,10". Duplicates and unreadable parts are dropped.
func ParseYears(values ...string) []int {
	var out []int
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			part = strings.TrimSpace(strings.TrimPrefix(strings.ToLower(part), "year"))
			n, err := strconv.Atoi(part)
			if err != nil || n <= 0 || slices.Contains(out, n) {
				continue
			}
			out = append(out, n)
		}
	}
	slices.Sort(out)
	return out
}

// ToggleYear adds year to years or removes it when already present.
func ToggleYear(years []int, year int) []int {
	if i := slices.Index(years, year); i >= 0 {
		return slices.Delete(slices.Clone(years), i, i+1)
	}
	out := append(slices.Clone(years), year)
	slices.Sort(out)
	return out
}
