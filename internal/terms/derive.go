// Package terms reconstructs school terms and weeks from term-marker
// events and tracks the alternating A/B week letter of each term.
package terms

import (
	"regexp"
	"sort"

	"schoolcal/internal/dates"
	"schoolcal/internal/model"
)

var (
	termNamePattern  = regexp.MustCompile(`(?i)(Term\s*\d+)`)
	weekLabelPattern = regexp.MustCompile(`(?i)Week\s*(\d+)`)
)

// TermName extracts "Term N" from a title, keeping its original spelling,
// or "Term" when there is none.
func TermName(title string) string {
	if m := termNamePattern.FindStringSubmatch(title); m != nil {
		return m[1]
	}
	return "Term"
}

// WeekLabel extracts "Week N" from a title, or "Week" when there is none.
func WeekLabel(title string) string {
	if m := weekLabelPattern.FindStringSubmatch(title); m != nil {
		return "Week " + m[1]
	}
	return "Week"
}

// earlier reports whether a is strictly before b. Invalid dates never
// compare as earlier or later.
func earlier(a, b string) bool {
	return dates.Valid(a) && dates.Valid(b) && a < b
}

// BuildWeeks derives one TermWeek per distinct term name and week label from
// term-marker events that carry both a start and an end date. When several
// markers share a key the one starting first wins. Weeks are returned in
// start order.
func BuildWeeks(events []model.Event) []model.TermWeek {
	byKey := map[string]int{}
	var weeks []model.TermWeek

	for _, e := range events {
		if !e.IsTerm() || e.StartDate == "" || e.EndDate == "" {
			continue
		}
		w := model.TermWeek{
			ID:        e.ID,
			Title:     e.Title,
			TermName:  TermName(e.Title),
			WeekLabel: WeekLabel(e.Title),
			StartDate: e.StartDate,
			EndDate:   e.EndDate,
			Notes:     e.Notes,
		}
		key := w.TermName + "-" + w.WeekLabel
		idx, seen := byKey[key]
		switch {
		case !seen:
			byKey[key] = len(weeks)
			weeks = append(weeks, w)
		case earlier(w.StartDate, weeks[idx].StartDate):
			weeks[idx] = w
		}
	}

	sortByStart(weeks, func(w model.TermWeek) string { return w.StartDate })
	return weeks
}

// BuildGroups collects weeks by term name. A group spans the earliest week
// start to the latest week end; an invalid bound is replaced by any
// candidate. Weeks inside a group and the groups themselves are ordered by
// start date.
func BuildGroups(weeks []model.TermWeek) []model.TermGroup {
	byName := map[string]int{}
	var groups []model.TermGroup

	for _, w := range weeks {
		if w.TermName == "" {
			continue
		}
		idx, seen := byName[w.TermName]
		if !seen {
			byName[w.TermName] = len(groups)
			groups = append(groups, model.TermGroup{
				TermName:  w.TermName,
				StartDate: w.StartDate,
				EndDate:   w.EndDate,
			})
			idx = len(groups) - 1
		}
		g := &groups[idx]
		g.Weeks = append(g.Weeks, w)
		if earlier(w.StartDate, g.StartDate) || !dates.Valid(g.StartDate) {
			g.StartDate = w.StartDate
		}
		if earlier(g.EndDate, w.EndDate) || !dates.Valid(g.EndDate) {
			g.EndDate = w.EndDate
		}
	}

	for i := range groups {
		sortByStart(groups[i].Weeks, func(w model.TermWeek) string { return w.StartDate })
	}
	sortByStart(groups, func(g model.TermGroup) string { return g.StartDate })
	return groups
}

// sortByStart orders items by their ISO start date, stable for ties.
// Items with invalid dates keep their relative order after the valid ones.
func sortByStart[T any](items []T, start func(T) string) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := start(items[i]), start(items[j])
		av, bv := dates.Valid(a), dates.Valid(b)
		if av != bv {
			return av
		}
		return av && a < b
	})
}
