package watch

import (
	"sync"
	"time"
)

// State is the watcher's shared status. The preview server reads it while the
// watch loop updates it.
type State struct {
	mu          sync.RWMutex
	baseline    time.Time
	pending     bool
	lastError   error
	rebuilds    int
	failures    int
	lastRebuild time.Time
}

// Snapshot is a point-in-time copy of State.
type Snapshot struct {
	Baseline    time.Time `json:"baseline"`
	Pending     bool      `json:"pending"`
	LastError   string    `json:"lastError,omitempty"`
	Rebuilds    int       `json:"rebuilds"`
	Failures    int       `json:"failures"`
	LastRebuild time.Time `json:"lastRebuild,omitzero"`
}

// Snapshot returns a copy of the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		Baseline:    s.baseline,
		Pending:     s.pending,
		Rebuilds:    s.rebuilds,
		Failures:    s.failures,
		LastRebuild: s.lastRebuild,
	}
	if s.lastError != nil {
		snap.LastError = s.lastError.Error()
	}
	return snap
}

// LastError returns the error of the most recent rebuild, nil after a success.
func (s *State) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

func (s *State) setBaseline(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baseline = t
}

// changed reports whether latest is past the baseline while no rebuild is pending.
func (s *State) changed(latest time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.pending && latest.After(s.baseline)
}

func (s *State) markPending() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = true
}

// finish records a completed rebuild, moves the baseline and clears pending.
func (s *State) finish(baseline, at time.Time, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baseline = baseline
	s.pending = false
	s.lastError = err
	s.lastRebuild = at
	s.rebuilds++
	if err != nil {
		s.failures++
	}
}
