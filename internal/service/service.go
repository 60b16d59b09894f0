// Package service implements the application use cases on top of the scoring
// packages and the persistence ports.
package service

import "time"

// Option configures a service.
type Option func(*settings)

type settings struct {
	now func() time.Time
}

// WithClock overrides the wall clock used for "now". The default is UTC.
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

func applyOptions(opts []Option) settings {
	s := settings{now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
