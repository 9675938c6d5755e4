package testfixtures

import (
	"testing"
	"time"
)

func TestClockDefaultsToReferenceTime(t *testing.T) {
	clock := NewClock(time.Time{})
	if !clock.Now().Equal(ReferenceTime()) {
		t.Fatalf("expected ReferenceTime, got %v", clock.Now())
	}
}

func TestClockAdvanceAndSet(t *testing.T) {
	start := time.Date(2025, time.March, 14, 9, 26, 0, 0, time.UTC)
	clock := NewClock(start)

	updated := clock.Advance(90 * time.Minute)
	if !updated.Equal(start.Add(90 * time.Minute)) {
		t.Fatalf("advance returned %v", updated)
	}

	clock.Set(start.Add(2 * time.Hour))
	if got := clock.Now(); !got.Equal(start.Add(2 * time.Hour)) {
		t.Fatalf("expected %v, got %v", start.Add(2*time.Hour), got)
	}
}

func TestClockDates(t *testing.T) {
	clock := NewClock(time.Date(2025, time.March, 5, 22, 0, 0, 0, time.UTC))

	if got := clock.Today(nil); got != "2025-03-05" {
		t.Fatalf("expected 2025-03-05, got %s", got)
	}
	if got := clock.Today(time.FixedZone("UTC+9", 9*60*60)); got != "2025-03-06" {
		t.Fatalf("expected local date 2025-03-06, got %s", got)
	}
	if got := clock.DateOffset(-5); got != "2025-02-28" {
		t.Fatalf("expected 2025-02-28, got %s", got)
	}

	nowFn := clock.NowFunc()
	clock.Advance(time.Minute)
	if got := nowFn(); !got.Equal(clock.Now()) {
		t.Fatalf("expected NowFunc to follow the clock, got %v", got)
	}
}
