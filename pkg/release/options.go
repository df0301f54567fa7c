package release

import (
	"time"

	"github.com/segmentio/ksuid"
	"go.uber.org/zap"
)

// Option for a Releaser
type Option func(*Releaser)

// Logger for release flows
func Logger(l *zap.Logger) Option {
	return func(r *Releaser) {
		if l != nil {
			r.l = l
		}
	}
}

// Metrics records the outcome and stage durations of release flows
func Metrics(m Recorder) Option {
	return func(r *Releaser) {
		if m != nil {
			r.metrics = m
		}
	}
}

// Timeout bounds a whole release flow. Zero means no limit.
func Timeout(d time.Duration) Option {
	return func(r *Releaser) {
		r.timeout = d
	}
}

// Clock used to time release flows
func Clock(now func() time.Time) Option {
	return func(r *Releaser) {
		if now != nil {
			r.now = now
		}
	}
}

// RunID generates the identifier of a release flow
func RunID(gen func() string) Option {
	return func(r *Releaser) {
		if gen != nil {
			r.runID = gen
		}
	}
}

func defaultRunID() string {
	return ksuid.New().String()
}
