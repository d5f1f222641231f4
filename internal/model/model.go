package model

import "time"

// Origin records where an event came from.
type Origin string

const (
	OriginPersonal Origin = "personal"
	OriginNSWDOE   Origin = "NSWDOE"
	OriginSentral  Origin = "Sentral"
)

// SyncStatus tracks an event's relation to a remote copy. Only "local" is
// ever assigned; "synced" and "conflict" are reserved and render as badges.
type SyncStatus string

const (
	SyncLocal    SyncStatus = "local"
	SyncSynced   SyncStatus = "synced"
	SyncConflict SyncStatus = "conflict"
)

// Event types with special handling. Any other string is kept verbatim.
const (
	TypeEvent = "event"
	TypeTerm  = "term"
	// TypeRecurring is the CSV type that selects the recurring colour.
	TypeRecurring = "Recurring"
)

// Display colours.
const (
	ColorDefault   = "#1d3c72"
	ColorTerm      = "#f3a712"
	ColorRecurring = "#6c63ff"
)

// Event is a single calendar entry. Dates are ISO YYYY-MM-DD strings that
// name local calendar days.
//
// Term-marker events (Type == "term") carry StartDate/EndDate spanning one
// school week and a title naming the term and week ("Term 1 Week 3").
type Event struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Date         string     `json:"date"`
	StartDate    string     `json:"startDate,omitempty"`
	EndDate      string     `json:"endDate,omitempty"`
	Type         string     `json:"type"`
	Subject      string     `json:"subject,omitempty"`
	Notes        string     `json:"notes,omitempty"`
	Color        string     `json:"color,omitempty"`
	Origin       Origin     `json:"origin"`
	Source       string     `json:"source,omitempty"`
	YearTags     []string   `json:"yearTags"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastModified time.Time  `json:"lastModified"`
	SyncStatus   SyncStatus `json:"syncStatus"`
}

// IsTerm reports whether the event is a term-week marker.
func (e Event) IsTerm() bool {
	return e.Type == TypeTerm
}

// TermWeek is one school week derived from a term-marker event.
type TermWeek struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	TermName  string `json:"termName"`
	WeekLabel string `json:"weekLabel"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Notes     string `json:"notes,omitempty"`
}

// TermGroup spans every week sharing a term name.
type TermGroup struct {
	TermName  string     `json:"termName"`
	StartDate string     `json:"startDate"`
	EndDate   string     `json:"endDate"`
	Weeks     []TermWeek `json:"weeks"`
}

// Contains reports whether iso falls inside the group, inclusive.
func (g TermGroup) Contains(iso string) bool {
	return iso >= g.StartDate && iso <= g.EndDate
}

// Same reports whether two groups describe the same term span.
func (g TermGroup) Same(o TermGroup) bool {
	return g.TermName == o.TermName && g.StartDate == o.StartDate && g.EndDate == o.EndDate
}

// Letter is the alternating A/B week label.
type Letter string

const (
	LetterA Letter = "A"
	LetterB Letter = "B"
)

// Flip returns the other letter.
func (l Letter) Flip() Letter {
	if l == LetterB {
		return LetterA
	}
	return LetterB
}

// LatestLastModified returns the newest non-zero LastModified, or the zero
// time when no event carries one.
func LatestLastModified(events []Event) time.Time {
	var latest time.Time
	for _, e := range events {
		if e.LastModified.After(latest) {
			latest = e.LastModified
		}
	}
	return latest
}
