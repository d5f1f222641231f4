package importer

import (
	"fmt"
	"strings"

	"schoolcal/internal/model"
)

// Source describes a CSV export format.
type Source struct {
	// Key prefixes generated ids and is stored as Event.Source.
	Key string
	// Origin is stored as Event.Origin.
	Origin model.Origin
	// Label is the human readable name used in messages and as the
	// fallback subject.
	Label string
}

var (
	NSWDOE  = Source{Key: "nsw-doe", Origin: model.OriginNSWDOE, Label: "NSW DOE"}
	Sentral = Source{Key: "sentral", Origin: model.OriginSentral, Label: "Sentral"}
)

// SourceByName resolves a CLI/HTTP/config source name.
func SourceByName(name string) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "nswdoe", "nsw-doe", "doe":
		return NSWDOE, nil
	case "sentral":
		return Sentral, nil
	default:
		return Source{}, fmt.Errorf("%w: %q", ErrUnknownSource, name)
	}
}
