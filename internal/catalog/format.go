package catalog

import (
	"fmt"
	"math"
)

// FormatDuration renders a length for listings, e.g. "1h 5m" or "24m".
func FormatDuration(seconds float64) string {
	s := wholeSeconds(seconds)
	hours := s / 3600
	minutes := (s % 3600) / 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

// FormatClock renders a player position, e.g. "1:02:03" or "4:05".
func FormatClock(seconds float64) string {
	s := wholeSeconds(seconds)
	hours := s / 3600
	minutes := (s % 3600) / 60
	secs := s % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%d:%02d", minutes, secs)
}

func wholeSeconds(seconds float64) int64 {
	if math.IsNaN(seconds) || seconds < 0 {
		return 0
	}
	return int64(math.Floor(seconds))
}
