package feed

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/afero"
)

// Kind is the payload format of an import.
type Kind string

const (
	KindCSV  Kind = "csv"
	KindJSON Kind = "json"
	KindICS  Kind = "ics"
)

// Loader reads import files from a filesystem.
type Loader struct {
	fs afero.Fs
}

// NewLoader reads from fsys; nil means the OS filesystem.
func NewLoader(fsys afero.Fs) *Loader {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &Loader{fs: fsys}
}

// ReadText returns the whole file as a string.
func (l *Loader) ReadText(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", ErrEmptySource
	}
	data, err := afero.ReadFile(l.fs, path)
	if err != nil {
		return "", fmt.Errorf("feed: read %s: %w", path, err)
	}
	return string(data), nil
}

// DetectKind decides between CSV, JSON and iCalendar from the content, falling back
// to the file extension of name.
func DetectKind(data []byte, name string) (Kind, error) {
	mt := mimetype.Detect(data)
	switch {
	case mt.Is("text/calendar"):
		return KindICS, nil
	case mt.Is("application/json"):
		return KindJSON, nil
	case mt.Is("text/csv"):
		return KindCSV, nil
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return KindJSON, nil
	case ".csv":
		return KindCSV, nil
	case ".ics", ".ical":
		return KindICS, nil
	}

	trimmed := bytes.TrimLeft(data, " \t\r\n\uFEFF")
	if bytes.HasPrefix(trimmed, []byte("BEGIN:VCALENDAR")) {
		return KindICS, nil
	}
	if len(trimmed) > 0 && (trimmed[0] == '[' || trimmed[0] == '{') {
		return KindJSON, nil
	}
	if bytes.IndexByte(trimmed, ',') >= 0 {
		return KindCSV, nil
	}
	return "", ErrUnsupportedFormat
}
