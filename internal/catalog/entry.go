package catalog

import (
	"math"
	"strings"
	"time"
)

const (
	MinRating     = 1.0
	MaxRating     = 10.0
	DefaultRating = 5.0
)

// Entry is one uploaded video's metadata and playback state.
type Entry struct {
	ID               string    `json:"id" yaml:"id"`
	Title            string    `json:"title" yaml:"title"`
	Description      string    `json:"description" yaml:"description"`
	MediaRef         string    `json:"mediaRef" yaml:"mediaRef"`
	DurationSeconds  float64   `json:"durationSeconds" yaml:"durationSeconds"`
	UploadedAt       time.Time `json:"uploadedAt" yaml:"uploadedAt"`
	Genres           []string  `json:"genres" yaml:"genres"`
	Rating           float64   `json:"rating" yaml:"rating"`
	WatchTimeSeconds float64   `json:"watchTimeSeconds" yaml:"watchTimeSeconds"`
	Fingerprint      string    `json:"fingerprint,omitempty" yaml:"fingerprint,omitempty"`
}

// Clone returns a deep copy of e.
func (e Entry) Clone() Entry {
	if e.Genres != nil {
		e.Genres = append([]string(nil), e.Genres...)
	}
	return e
}

// ClampWatchTime bounds t to [0, DurationSeconds]. NaN counts as 0.
func (e Entry) ClampWatchTime(t float64) float64 {
	if math.IsNaN(t) || t < 0 {
		return 0
	}
	if t > e.DurationSeconds {
		return e.DurationSeconds
	}
	return t
}

// ProgressPercent is the share of the video already watched, 0..100.
func (e Entry) ProgressPercent() float64 {
	if e.DurationSeconds <= 0 {
		return 0
	}
	return e.ClampWatchTime(e.WatchTimeSeconds) / e.DurationSeconds * 100
}

// Validate checks the invariants every persisted entry must hold.
func (e Entry) Validate() error {
	if e.ID == "" {
		return &ValidationError{Field: "id", Err: ErrInvalidID}
	}
	if _, err := ValidateTitle(e.Title); err != nil {
		return err
	}
	return ValidateRating(e.Rating)
}

// ValidateTitle returns the trimmed title or a ValidationError when it is blank.
func ValidateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", &ValidationError{Field: "title", Err: ErrTitleRequired}
	}
	return title, nil
}

// ValidateRating accepts values in [1, 10] that are multiples of 0.5.
func ValidateRating(rating float64) error {
	if math.IsNaN(rating) || rating < MinRating || rating > MaxRating {
		return &ValidationError{Field: "rating", Err: ErrInvalidRating}
	}
	if rating*2 != math.Trunc(rating*2) {
		return &ValidationError{Field: "rating", Err: ErrInvalidRating}
	}
	return nil
}

// UntitledTitle replaces a blank title on a stored entry.
const UntitledTitle = "Untitled"

// Repair brings a stored entry back within the entry invariants instead of
// losing it. It returns the repaired entry and the fields it changed. newID
// supplies an id for entries stored without one.
func (e Entry) Repair(newID func() string) (Entry, []string) {
	var fixed []string
	if strings.TrimSpace(e.ID) == "" {
		e.ID = newID()
		fixed = append(fixed, "id")
	}
	if title := strings.TrimSpace(e.Title); title == "" {
		e.Title = UntitledTitle
		fixed = append(fixed, "title")
	}
	if ValidateRating(e.Rating) != nil {
		e.Rating = NearestRating(e.Rating)
		fixed = append(fixed, "rating")
	}
	if math.IsNaN(e.DurationSeconds) || math.IsInf(e.DurationSeconds, 0) || e.DurationSeconds < 0 {
		e.DurationSeconds = 0
		fixed = append(fixed, "durationSeconds")
	}
	if clamped := e.ClampWatchTime(e.WatchTimeSeconds); clamped != e.WatchTimeSeconds {
		e.WatchTimeSeconds = clamped
		fixed = append(fixed, "watchTimeSeconds")
	}
	return e, fixed
}

// NearestRating rounds rating to the closest valid value. NaN becomes the
// default rating.
func NearestRating(rating float64) float64 {
	if math.IsNaN(rating) {
		return DefaultRating
	}
	r := math.Round(rating*2) / 2
	return math.Max(MinRating, math.Min(MaxRating, r))
}
