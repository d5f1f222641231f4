package importer

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"schoolcal/internal/dates"
	"schoolcal/internal/model"
)

// ManualInput is a user-entered event before validation.
type ManualInput struct {
	Title   string `json:"title"`
	Date    string `json:"date"`
	Subject string `json:"subject"`
	Notes   string `json:"notes"`
	Color   string `json:"color"`
}

// Validate trims the text fields and normalizes the date in place.
func (in *ManualInput) Validate() error {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return ErrTitleRequired
	}
	date := dates.Normalize(in.Date)
	if date == "" {
		return ErrInvalidDate
	}
	in.Date = date
	in.Subject = strings.TrimSpace(in.Subject)
	in.Notes = strings.TrimSpace(in.Notes)
	in.Color = strings.TrimSpace(in.Color)
	return nil
}

// NewManualEvent validates in and builds a personal event with a random id.
func NewManualEvent(in ManualInput) (model.Event, error) {
	if err := in.Validate(); err != nil {
		return model.Event{}, err
	}
	now := time.Now()
	return model.Event{
		ID:           uuid.NewString(),
		Title:        in.Title,
		Date:         in.Date,
		StartDate:    in.Date,
		EndDate:      in.Date,
		Type:         model.TypeEvent,
		Subject:      in.Subject,
		Notes:        in.Notes,
		Color:        orDefault(in.Color, model.ColorDefault),
		Origin:       model.OriginPersonal,
		Source:       string(model.OriginPersonal),
		YearTags:     YearTagsFromText(in.Title + " " + in.Subject + " " + in.Notes),
		CreatedAt:    now,
		LastModified: now,
		SyncStatus:   model.SyncLocal,
	}, nil
}

// EnsureSyncMetadata fills in a missing sync status or modification time.
// It reports whether the event changed and needs saving.
func EnsureSyncMetadata(e *model.Event) bool {
	changed := false
	if e.SyncStatus == "" {
		e.SyncStatus = model.SyncLocal
		changed = true
	}
	if e.LastModified.IsZero() {
		e.LastModified = time.Now()
		changed = true
	}
	return changed
}
