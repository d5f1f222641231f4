// Package view projects the event set and application state into plain
// view models for the day list and the term grid. It never touches
// storage; presentation layers (CLI, HTTP, printable HTML) bind to the
// structures it returns.
package view

import (
	"fmt"
	"strings"
	"time"

	"schoolcal/internal/dates"
	"schoolcal/internal/filter"
	"schoolcal/internal/model"
	"schoolcal/internal/terms"
)

// LetterSource supplies week letters for the term grid.
type LetterSource interface {
	First(termName string) model.Letter
	Letter(termName string, index int) model.Letter
}

// SyncBadge is the label and CSS class for an event's sync status.
type SyncBadge struct {
	Label string `json:"label"`
	Class string `json:"class"`
}

var syncBadges = map[model.SyncStatus]SyncBadge{
	model.SyncLocal:    {Label: "Local", Class: "sync-local"},
	model.SyncSynced:   {Label: "Synced", Class: "sync-synced"},
	model.SyncConflict: {Label: "Conflict", Class: "sync-conflict"},
}

// BadgeFor maps a status to its badge; unknown or empty is Local.
func BadgeFor(s model.SyncStatus) SyncBadge {
	if b, ok := syncBadges[model.SyncStatus(strings.ToLower(string(s)))]; ok {
		return b
	}
	return syncBadges[model.SyncLocal]
}

// EventCard is one event as shown in a list.
type EventCard struct {
	ID       string       `json:"id"`
	Title    string       `json:"title"`
	Date     string       `json:"date"`
	Subject  string       `json:"subject"`
	Notes    string       `json:"notes"`
	Color    string       `json:"color"`
	Origin   model.Origin `json:"origin"`
	YearTags []string     `json:"yearTags"`
	Badge    SyncBadge    `json:"badge"`
}

// Header carries the labels around both views.
type Header struct {
	Year              int    `json:"year"`
	DateLabel         string `json:"dateLabel"`
	DayHeading        string `json:"dayHeading"`
	WorkspaceTitle    string `json:"workspaceTitle"`
	WorkspaceSubtitle string `json:"workspaceSubtitle"`
	LetterToggle      string `json:"letterToggle"`
	LetterEnabled     bool   `json:"letterEnabled"`
	EventCount        string `json:"eventCount"`
	LastUpdated       string `json:"lastUpdated"`
}

// DayView lists the non-term events on the selected date.
type DayView struct {
	Date   string      `json:"date"`
	Events []EventCard `json:"events"`
	Count  int         `json:"count"`
}

// DayCell is one weekday inside a term week.
type DayCell struct {
	Date     string      `json:"date"`
	Label    string      `json:"label"`
	Selected bool        `json:"selected"`
	Events   []EventCard `json:"events"`
}

// WeekView is one row of the term grid.
type WeekView struct {
	Title     string       `json:"title"`
	WeekLabel string       `json:"weekLabel"`
	Letter    model.Letter `json:"letter"`
	StartDate string       `json:"startDate"`
	EndDate   string       `json:"endDate"`
	Range     string       `json:"range"`
	Notes     string       `json:"notes"`
	Days      []DayCell    `json:"days"`
}

// TermView is the grid for the selected term. Weeks is empty when no term
// data exists.
type TermView struct {
	TermName    string       `json:"termName"`
	StartDate   string       `json:"startDate"`
	EndDate     string       `json:"endDate"`
	Range       string       `json:"range"`
	FirstLetter model.Letter `json:"firstLetter"`
	Weeks       []WeekView   `json:"weeks"`
}

// Snapshot is everything a presentation layer needs for one render.
type Snapshot struct {
	State  State    `json:"state"`
	Header Header   `json:"header"`
	Day    DayView  `json:"day"`
	Term   TermView `json:"term"`
}

// Messages shown for empty projections.
const (
	EmptyDay   = "No events scheduled for this day."
	EmptyTerm  = "No term data available yet."
	EmptyCell  = "No scheduled events"
	NoTermName = "Term view"
)

// Render derives both projections from the same state and event set.
// now feeds the "last updated" label.
func Render(st State, events []model.Event, groups []model.TermGroup, letters LetterSource, now time.Time) Snapshot {
	crit := st.Criteria()
	visible := make([]model.Event, 0, len(events))
	for _, e := range events {
		if !e.IsTerm() && filter.Matches(e, crit) {
			visible = append(visible, e)
		}
	}
	byDate := groupByDate(visible)

	day := DayView{Date: st.SelectedDate, Events: cards(byDate[st.SelectedDate])}
	day.Count = len(day.Events)

	group := terms.SelectedGroup(st.SelectedDate, groups)
	term := TermView{Weeks: []WeekView{}}
	if group != nil {
		term = termView(*group, st.SelectedDate, byDate, letters)
	}

	return Snapshot{
		State:  st,
		Header: header(st, group, day.Count, letters, model.LatestLastModified(events), now),
		Day:    day,
		Term:   term,
	}
}

func header(st State, group *model.TermGroup, count int, letters LetterSource, latest, now time.Time) Header {
	h := Header{
		WorkspaceTitle: NoTermName,
		LetterToggle:   "First week A",
		EventCount:     fmt.Sprintf("%d events", count),
		LastUpdated:    "Last updated: —",
	}
	if d, ok := dates.ParseISO(st.SelectedDate); ok {
		h.Year = d.Year()
		h.DateLabel = d.Format("Mon, 2 Jan 2006")
		h.DayHeading = d.Format("Monday, 2 January")
	}
	if st.Mode == ModeTerm && group != nil && len(group.Weeks) > 0 {
		h.WorkspaceTitle = group.TermName
		h.WorkspaceSubtitle = FormatRange(group.StartDate, group.EndDate)
	}
	if group != nil {
		h.LetterToggle = "First week " + string(letters.First(group.TermName))
		h.LetterEnabled = true
	}
	if !latest.IsZero() {
		h.LastUpdated = "Last updated: " + dates.TimeAgo(latest, now)
	}
	return h
}

func termView(g model.TermGroup, selected string, byDate map[string][]model.Event, letters LetterSource) TermView {
	tv := TermView{
		TermName:    g.TermName,
		StartDate:   g.StartDate,
		EndDate:     g.EndDate,
		Range:       FormatRange(g.StartDate, g.EndDate),
		FirstLetter: letters.First(g.TermName),
		Weeks:       make([]WeekView, 0, len(g.Weeks)),
	}
	for i, w := range g.Weeks {
		letter := letters.Letter(g.TermName, i)
		wv := WeekView{
			Title:     w.WeekLabel + strings.ToLower(string(letter)),
			WeekLabel: w.WeekLabel,
			Letter:    letter,
			StartDate: w.StartDate,
			EndDate:   w.EndDate,
			Range:     FormatRange(w.StartDate, w.EndDate),
			Notes:     w.Notes,
			Days:      []DayCell{},
		}
		for _, iso := range dates.WeekDays(w.StartDate) {
			wv.Days = append(wv.Days, DayCell{
				Date:     iso,
				Label:    dayLabel(iso),
				Selected: iso == selected,
				Events:   cards(byDate[iso]),
			})
		}
		tv.Weeks = append(tv.Weeks, wv)
	}
	return tv
}

// FormatRange renders "27 Jan - 2 Apr". Unreadable bounds render as given.
func FormatRange(start, end string) string {
	return shortDate(start) + " - " + shortDate(end)
}

func shortDate(iso string) string {
	if !dates.Valid(iso) {
		return iso
	}
	d, _ := dates.ParseISO(iso)
	return d.Format("2 Jan")
}

func dayLabel(iso string) string {
	d, ok := dates.ParseISO(iso)
	if !ok {
		return iso
	}
	return d.Format("Mon, 2 Jan")
}

func groupByDate(events []model.Event) map[string][]model.Event {
	out := make(map[string][]model.Event)
	for _, e := range events {
		if e.Date == "" {
			continue
		}
		out[e.Date] = append(out[e.Date], e)
	}
	return out
}

func cards(events []model.Event) []EventCard {
	out := make([]EventCard, 0, len(events))
	for _, e := range events {
		subject := e.Subject
		if subject == "" {
			subject = "General"
		}
		out = append(out, EventCard{
			ID:       e.ID,
			Title:    e.Title,
			Date:     e.Date,
			Subject:  subject,
			Notes:    e.Notes,
			Color:    e.Color,
			Origin:   e.Origin,
			YearTags: e.YearTags,
			Badge:    BadgeFor(e.SyncStatus),
		})
	}
	return out
}
