// Package timectrl steps through instants for time-dependent frame
// conversions such as body rotation.
package timectrl

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// MaxSteps bounds the number of instants a single sweep may visit.
const MaxSteps = 1_000_000

// Clock is a source of the current instant.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// Sweep walks from Start to End (inclusive) in steps of Step and notifies
// registered listeners at every instant. It advances as fast as listeners
// return; nothing waits on the wall clock.
type Sweep struct {
	mu    sync.RWMutex
	Start time.Time
	End   time.Time
	Step  time.Duration

	currentTime time.Time

	listeners []func(time.Time) error
}

// NewSweep validates the range and constructs a sweep positioned at start.
func NewSweep(start, end time.Time, step time.Duration) (*Sweep, error) {
	if step <= 0 {
		return nil, errors.New("step must be positive")
	}
	if end.Before(start) {
		return nil, fmt.Errorf("end %s is before start %s", end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	if steps := end.Sub(start) / step; steps >= MaxSteps {
		return nil, fmt.Errorf("sweep of %d steps exceeds limit of %d", steps+1, MaxSteps)
	}
	return &Sweep{
		Start:       start,
		End:         end,
		Step:        step,
		currentTime: start,
	}, nil
}

// Now returns the instant the sweep last visited. Implements Clock.
func (s *Sweep) Now() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentTime
}

// SetTime repositions the sweep without notifying listeners.
func (s *Sweep) SetTime(t time.Time) {
	s.mu.Lock()
	s.currentTime = t
	s.mu.Unlock()
}

// AddListener registers a callback invoked at every instant.
func (s *Sweep) AddListener(fn func(time.Time) error) {
	s.listeners = append(s.listeners, fn)
}

// Run visits every instant in order and returns the first listener error.
// It returns the number of instants visited.
func (s *Sweep) Run() (int, error) {
	visited := 0
	for t := s.Start; !t.After(s.End); t = t.Add(s.Step) {
		s.SetTime(t)
		visited++
		for _, fn := range s.listeners {
			if err := fn(t); err != nil {
				return visited, err
			}
		}
	}
	return visited, nil
}
