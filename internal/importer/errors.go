package importer

import "errors"

var (
	// ErrTitleRequired is returned when a manual entry has a blank title.
	ErrTitleRequired = errors.New("event title is required")
	// ErrInvalidDate is returned when a manual entry's date cannot be normalized.
	ErrInvalidDate = errors.New("event date is not a valid date")
	// ErrNotArray is returned when a JSON payload is not a top-level array.
	ErrNotArray = errors.New("JSON payload must be an array")
	// ErrNoValidRecords is returned when a JSON array yields no usable events.
	ErrNoValidRecords = errors.New("no valid records found in JSON")
	// ErrUnknownSource is returned by SourceByName for an unrecognised key.
	ErrUnknownSource = errors.New("unknown import source")
)
