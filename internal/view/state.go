package view

import (
	"schoolcal/internal/dates"
	"schoolcal/internal/filter"
	"schoolcal/internal/model"
	"schoolcal/internal/terms"
)

// Mode selects which projection a presentation layer shows.
type Mode string

const (
	ModeDay  Mode = "day"
	ModeTerm Mode = "term"
)

// ParseMode falls back to term for anything but "day".
func ParseMode(s string) Mode {
	if Mode(s) == ModeDay {
		return ModeDay
	}
	return ModeTerm
}

// State is the explicit application state the views are derived from.
// Methods return modified copies.
type State struct {
	SelectedDate string `json:"selectedDate"`
	Filter       string `json:"filter"`
	Years        []int  `json:"years"`
	Mode         Mode   `json:"mode"`
}

// NewState starts on today's date.
func NewState(mode Mode) State {
	return State{SelectedDate: dates.Today(), Mode: mode}
}

// Criteria is the filter implied by the state.
func (s State) Criteria() filter.Criteria {
	return filter.Criteria{Text: s.Filter, Years: s.Years}
}

// WithDate selects a date. Input that does not normalize is ignored.
func (s State) WithDate(raw string) State {
	if d := dates.Normalize(raw); d != "" && dates.Valid(d) {
		s.SelectedDate = d
	}
	return s
}

func (s State) WithFilter(text string) State {
	s.Filter = text
	return s
}

// ClearFilter drops both the text and the year filters.
func (s State) ClearFilter() State {
	s.Filter = ""
	s.Years = nil
	return s
}

func (s State) ToggleYear(year int) State {
	s.Years = filter.ToggleYear(s.Years, year)
	return s
}

func (s State) WithMode(m Mode) State {
	s.Mode = m
	return s
}

// Navigate moves by step terms in term mode or by one school day in day
// mode.
func (s State) Navigate(step int, groups []model.TermGroup) State {
	if s.Mode == ModeTerm {
		s.SelectedDate = terms.ChangeTerm(s.SelectedDate, groups, step)
		return s
	}
	s.SelectedDate = dates.NextWorkingDay(s.SelectedDate, step)
	return s
}

// ChangeYear moves the selected date by step years.
func (s State) ChangeYear(step int) State {
	if d := dates.AddYears(s.SelectedDate, step); d != "" {
		s.SelectedDate = d
	}
	return s
}
