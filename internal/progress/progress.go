// Package progress composes fractional progress reports of nested work.
package progress

import "sync"

// Func observes overall progress in [0, 1].
type Func func(fraction float64)

// Sink receives the progress of one piece of work in [0, 1]. A child created
// with Sub covers a slice of its parent's range. The nil Sink discards reports.
type Sink struct {
	mu     *sync.Mutex
	report Func
	// current is this sink's own fraction, in its local [0, 1] scale.
	current float64
	// reserved is how much of the local scale children have claimed.
	reserved float64
}

// New returns a root sink forwarding to fn. Observed values never decrease
// and never exceed 1.
func New(fn Func) *Sink {
	if fn == nil {
		return nil
	}
	last := 0.0
	return &Sink{
		mu: &sync.Mutex{},
		report: func(f float64) {
			if f <= last {
				return
			}
			last = f
			fn(f)
		},
	}
}

// Report sets this sink's fraction. Values are clamped to [0, 1] and
// regressions are ignored.
func (s *Sink) Report(fraction float64) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set(clamp(fraction))
}

// Current returns this sink's fraction.
func (s *Sink) Current() float64 {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Sub returns a child sink mapped onto [c, c+w] of this sink, where c is the
// furthest point reached or reserved so far. w is clamped to what is left.
func (s *Sink) Sub(weight float64) *Sink {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	from := s.current
	if s.reserved > from {
		from = s.reserved
	}
	w := clamp(weight)
	if from+w > 1 {
		w = 1 - from
	}
	s.reserved = from + w

	return &Sink{
		mu:     s.mu,
		report: s.childReport(from, w),
	}
}

// childReport maps a child's local fraction into this sink's scale.
func (s *Sink) childReport(from, w float64) Func {
	return func(f float64) {
		s.set(from + f*w)
	}
}

// set must be called with mu held.
func (s *Sink) set(f float64) {
	if f <= s.current {
		return
	}
	s.current = f
	s.report(f)
}

func clamp(f float64) float64 {
	switch {
	case f != f || f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}
