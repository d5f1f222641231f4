package calendar

import "errors"

var (
	// ErrNothingToExport is returned by exports when the store is empty.
	ErrNothingToExport = errors.New("no events to export")
	// ErrUnknownTerm is returned when toggling a letter for a term that has no weeks.
	ErrUnknownTerm = errors.New("unknown term")
	// ErrUnknownFeedSource is returned for a feed whose source is not a known import format.
	ErrUnknownFeedSource = errors.New("unknown feed source")
)
