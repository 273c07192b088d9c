package server

import "sync/atomic"

// Stats tracks request counters for one server.
type Stats struct {
	total    atomic.Uint64
	rejected atomic.Uint64
	active   atomic.Int64
}

func (s *Stats) OnRequestStart() {
	s.total.Add(1)
	s.active.Add(1)
}

func (s *Stats) OnRequestEnd() {
	s.active.Add(-1)
}

func (s *Stats) OnRejected() {
	s.rejected.Add(1)
}

// Total is the number of requests received since start.
func (s *Stats) Total() uint64 {
	return s.total.Load()
}

// Rejected is the number of requests the guard turned away.
func (s *Stats) Rejected() uint64 {
	return s.rejected.Load()
}

// Active is the number of requests currently in flight.
func (s *Stats) Active() int64 {
	return s.active.Load()
}
