package timectrl

import (
	"errors"
	"testing"
	"time"
)

func TestSweepVisitsInclusiveRange(t *testing.T) {
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	s, err := NewSweep(start, start.Add(time.Hour), 15*time.Minute)
	if err != nil {
		t.Fatalf("NewSweep: %v", err)
	}

	var seen []time.Time
	s.AddListener(func(at time.Time) error {
		seen = append(seen, at)
		return nil
	})

	n, err := s.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n != 5 || len(seen) != 5 {
		t.Fatalf("visited %d instants (%d seen), want 5", n, len(seen))
	}
	if !seen[4].Equal(start.Add(time.Hour)) {
		t.Fatalf("last instant = %v, want end of range", seen[4])
	}
	if got := s.Now(); !got.Equal(start.Add(time.Hour)) {
		t.Fatalf("Now() = %v after run", got)
	}
}

func TestSweepStopsOnListenerError(t *testing.T) {
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	s, err := NewSweep(start, start.Add(10*time.Second), time.Second)
	if err != nil {
		t.Fatalf("NewSweep: %v", err)
	}

	boom := errors.New("boom")
	s.AddListener(func(at time.Time) error {
		if at.Sub(start) == 3*time.Second {
			return boom
		}
		return nil
	})

	n, err := s.Run()
	if !errors.Is(err, boom) {
		t.Fatalf("Run error = %v, want boom", err)
	}
	if n != 4 {
		t.Fatalf("visited %d instants, want 4", n)
	}
}

func TestNewSweepRejectsBadRanges(t *testing.T) {
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	if _, err := NewSweep(start, start.Add(time.Hour), 0); err == nil {
		t.Fatalf("expected error for zero step")
	}
	if _, err := NewSweep(start, start.Add(-time.Hour), time.Minute); err == nil {
		t.Fatalf("expected error for reversed range")
	}
	if _, err := NewSweep(start, start.Add(MaxSteps*time.Second), time.Second); err == nil {
		t.Fatalf("expected error for oversized sweep")
	}
}

func TestSetTime(t *testing.T) {
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	s, err := NewSweep(start, start, time.Second)
	if err != nil {
		t.Fatalf("NewSweep: %v", err)
	}
	newNow := start.Add(42 * time.Second)
	s.SetTime(newNow)
	if got := s.Now(); !got.Equal(newNow) {
		t.Fatalf("Now() = %v, want %v", got, newNow)
	}

	var _ Clock = SystemClock{}
	var _ Clock = s
}
