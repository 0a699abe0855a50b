// Package abort provides the cooperative cancellation flag shared by batch
// workers and the retry policy. The flag is level-triggered: once set it stays
// set for the life of the batch, and in-flight network calls are never
// interrupted; workers observe the flag at well-defined poll points instead.
package abort

import "sync/atomic"

// Signal is a shared abort flag with atomic set/check semantics. The zero
// value is ready to use. A nil *Signal is valid and never reports aborted,
// so callers that do not need cancellation can pass nil.
type Signal struct {
	flag atomic.Bool
}

// NewSignal returns a cleared signal.
func NewSignal() *Signal {
	return &Signal{}
}

// Set raises the flag. Safe to call from any goroutine, repeatedly.
func (s *Signal) Set() {
	s.flag.Store(true)
}

// IsSet reports whether the flag has been raised.
func (s *Signal) IsSet() bool {
	if s == nil {
		return false
	}
	return s.flag.Load()
}
