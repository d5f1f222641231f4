package dates

import (
	"fmt"
	"math"
	"time"
)

// TimeAgo renders the distance from ts to now in coarse English units.
// A zero or future ts reads as "just now".
func TimeAgo(ts, now time.Time) string {
	if ts.IsZero() {
		return "just now"
	}
	seconds := math.Floor(now.Sub(ts).Seconds())
	switch {
	case seconds < 60:
		return "just now"
	case seconds < 3600:
		return plural(math.Round(seconds/60), "minute")
	case seconds < 86400:
		return plural(math.Round(seconds/3600), "hour")
	default:
		return plural(math.Round(seconds/86400), "day")
	}
}

func plural(n float64, unit string) string {
	return fmt.Sprintf("%d %ss ago", int64(n), unit)
}
