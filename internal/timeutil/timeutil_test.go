package timeutil

import (
	"testing"
	"time"
)

func TestNextFixedFireTimeLandsExactlyOnBoundary(t *testing.T) {
	midnight := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	got := NextFixedFireTime(midnight, 0, time.UTC)
	if !got.Equal(midnight) {
		t.Fatalf("got %v, want %v (arriving exactly on an anchor must not skip a day)", got, midnight)
	}
}

func TestNextFixedFireTimeLaterTodayWhenNotYetReached(t *testing.T) {
	after := time.Date(2026, 1, 1, 3, 0, 0, 0, time.UTC)
	got := NextFixedFireTime(after, 6*time.Hour, time.UTC)
	want := time.Date(2026, 1, 1, 6, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestNextFixedFireTimeRollsToTomorrowWhenAlreadyPassed(t *testing.T) {
	after := time.Date(2026, 1, 1, 13, 0, 0, 0, time.UTC)
	got := NextFixedFireTime(after, 0, time.UTC)
	want := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestCeilToMinuteBoundaryRoundsUp(t *testing.T) {
	from := time.Date(2026, 1, 1, 8, 12, 0, 0, time.UTC)
	got := CeilToMinuteBoundary(from, 30)
	want := time.Date(2026, 1, 1, 8, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestCeilToMinuteBoundaryNoOpOnExactBoundary(t *testing.T) {
	from := time.Date(2026, 1, 1, 8, 30, 0, 0, time.UTC)
	got := CeilToMinuteBoundary(from, 30)
	if !got.Equal(from) {
		t.Fatalf("got %v, want %v (already on boundary)", got, from)
	}
}
