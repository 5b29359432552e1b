package scan

import (
	"context"
	"sync"

	"github.com/zombor/cleanscan/internal/waste"
)

// Outcome is the finished result of one scan: a report or an error, never both
type Outcome struct {
	ScanID uint64
	Report *waste.ScanReport
	Err    error
}

// Session owns the "current scan" slot of one client. Scan ids increase
// monotonically; an outcome is applied only while its id is still current,
// so a late response for a superseded scan never overwrites a newer one.
type Session struct {
	mu      sync.Mutex
	seq     uint64
	cancel  context.CancelFunc
	outcome *Outcome
}

// NewSession creates an empty session
func NewSession() *Session {
	return &Session{}
}

// Begin starts a new scan and supersedes any scan in flight. The returned
// context is cancelled when the scan is superseded or the session closes.
func (s *Session) Begin(parent context.Context) (uint64, context.Context) {
	ctx, cancel := context.WithCancel(parent)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	s.seq++
	s.cancel = cancel
	s.outcome = nil
	return s.seq, ctx
}

// Apply stores o if its scan is still current and reports whether it did
func (s *Session) Apply(o Outcome) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if o.ScanID != s.seq || s.cancel == nil {
		return false
	}
	s.cancel()
	s.cancel = nil
	s.outcome = &o
	return true
}

// Reset discards the current result and supersedes anything in flight,
// as when the user starts over without picking an image.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.seq++
	s.outcome = nil
}

// Current returns the last applied outcome, or nil
func (s *Session) Current() *Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome
}

// InFlight reports whether the current scan has not finished yet
func (s *Session) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// Close cancels any scan in flight
func (s *Session) Close() {
	s.Reset()
}
