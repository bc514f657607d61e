package catalog

import (
	"errors"
	"math"
	"testing"
)

func TestClampWatchTime(t *testing.T) {
	e := Entry{DurationSeconds: 1500}

	tests := []struct {
		in   float64
		want float64
	}{
		{in: 300, want: 300},
		{in: -4, want: 0},
		{in: 1501, want: 1500},
		{in: math.NaN(), want: 0},
		{in: math.Inf(1), want: 1500},
	}
	for _, tt := range tests {
		if got := e.ClampWatchTime(tt.in); got != tt.want {
			t.Fatalf("ClampWatchTime(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestValidateRating(t *testing.T) {
	for _, ok := range []float64{1, 1.5, 5, 8.5, 10} {
		if err := ValidateRating(ok); err != nil {
			t.Fatalf("ValidateRating(%v) error = %v", ok, err)
		}
	}
	for _, bad := range []float64{0, 0.5, 10.5, 7.25, math.NaN()} {
		err := ValidateRating(bad)
		if !errors.Is(err, ErrInvalidRating) || !IsValidation(err) {
			t.Fatalf("ValidateRating(%v) error = %v, want ErrInvalidRating", bad, err)
		}
	}
}

func TestValidateTitle(t *testing.T) {
	got, err := ValidateTitle("  Pilot ")
	if err != nil || got != "Pilot" {
		t.Fatalf("ValidateTitle() = %q, %v", got, err)
	}
	if _, err := ValidateTitle(" \t "); !errors.Is(err, ErrTitleRequired) {
		t.Fatalf("ValidateTitle(blank) error = %v, want ErrTitleRequired", err)
	}
}

func TestNormalizeGenres(t *testing.T) {
	got, err := NormalizeGenres([]string{"action", "Drama", "ACTION", " ", "slice of life"})
	if err != nil {
		t.Fatalf("NormalizeGenres() error = %v", err)
	}
	want := []string{"Action", "Drama", "Slice of Life"}
	if len(got) != len(want) {
		t.Fatalf("NormalizeGenres() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("NormalizeGenres()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	if _, err := NormalizeGenres([]string{"Western"}); !errors.Is(err, ErrUnknownGenre) {
		t.Fatalf("NormalizeGenres(unknown) error = %v, want ErrUnknownGenre", err)
	}
}

func TestCollectionOperations(t *testing.T) {
	var c Collection
	c = c.Append(Entry{ID: "a", Title: "A", DurationSeconds: 10})
	c = c.Append(Entry{ID: "b", Title: "B", DurationSeconds: 20})

	updated, ok := c.WithWatchTime("b", 7)
	if !ok {
		t.Fatalf("WithWatchTime(b) reported missing")
	}
	if e, _ := updated.Find("b"); e.WatchTimeSeconds != 7 {
		t.Fatalf("watch time = %v, want 7", e.WatchTimeSeconds)
	}
	if e, _ := c.Find("b"); e.WatchTimeSeconds != 0 {
		t.Fatalf("WithWatchTime modified the receiver")
	}

	if _, ok := c.WithWatchTime("zzz", 1); ok {
		t.Fatalf("WithWatchTime(unknown) reported found")
	}

	removed, ok := updated.Without("a")
	if !ok || len(removed) != 1 || removed[0].ID != "b" {
		t.Fatalf("Without(a) = %v, %v", removed, ok)
	}
	again, ok := removed.Without("a")
	if ok || len(again) != 1 {
		t.Fatalf("second Without(a) = %v, %v", again, ok)
	}
}

func TestProgressPercent(t *testing.T) {
	e := Entry{DurationSeconds: 200, WatchTimeSeconds: 50}
	if got := e.ProgressPercent(); got != 25 {
		t.Fatalf("ProgressPercent() = %v, want 25", got)
	}
	if got := (Entry{}).ProgressPercent(); got != 0 {
		t.Fatalf("ProgressPercent() with zero duration = %v", got)
	}
}

func TestFormat(t *testing.T) {
	if got := FormatDuration(3900); got != "1h 5m" {
		t.Fatalf("FormatDuration(3900) = %q", got)
	}
	if got := FormatDuration(1500); got != "25m" {
		t.Fatalf("FormatDuration(1500) = %q", got)
	}
	if got := FormatClock(3723.9); got != "1:02:03" {
		t.Fatalf("FormatClock(3723.9) = %q", got)
	}
	if got := FormatClock(245); got != "4:05" {
		t.Fatalf("FormatClock(245) = %q", got)
	}
}

func TestRepair(t *testing.T) {
	newID := func() string { return "generated" }

	valid := Entry{ID: "a", Title: "Pilot", Rating: 8.5, DurationSeconds: 100, WatchTimeSeconds: 10}
	if got, fixed := valid.Repair(newID); len(fixed) != 0 || got.Rating != 8.5 {
		t.Fatalf("Repair(valid) = %+v, fixed %v", got, fixed)
	}

	broken := Entry{Title: "  ", Rating: 7.3, DurationSeconds: 100, WatchTimeSeconds: 250}
	got, fixed := broken.Repair(newID)
	if err := got.Validate(); err != nil {
		t.Fatalf("repaired entry still invalid: %v", err)
	}
	if got.ID != "generated" || got.Title != UntitledTitle || got.Rating != 7.5 || got.WatchTimeSeconds != 100 {
		t.Fatalf("Repair() = %+v", got)
	}
	if len(fixed) != 4 {
		t.Fatalf("fixed = %v, want id, title, rating and watchTimeSeconds", fixed)
	}
}

func TestNearestRating(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{in: 7.3, want: 7.5},
		{in: 7.2, want: 7},
		{in: 0, want: MinRating},
		{in: 42, want: MaxRating},
		{in: math.NaN(), want: DefaultRating},
	}
	for _, tt := range tests {
		if got := NearestRating(tt.in); got != tt.want {
			t.Fatalf("NearestRating(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
