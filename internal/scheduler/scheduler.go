// Package scheduler runs the service's calendar-bound maintenance jobs.
//
// Jobs are registered with cron expressions evaluated in the restaurant's
// time zone, so "0 0 * * *" fires at local midnight.
package scheduler

import (
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Cron expressions of the built-in maintenance jobs.
const (
	// DayRolloverSpec fires when the restaurant's weekday changes.
	DayRolloverSpec = "0 0 * * *"
	// DedupPurgeSpec fires once an hour.
	DedupPurgeSpec = "@hourly"
)

// Scheduler provides cron-based job scheduling.
type Scheduler struct {
	cron *cron.Cron
}

// Option configures a Scheduler.
type Option func(*[]cron.Option)

// WithLocation evaluates expressions in loc instead of the local zone.
func WithLocation(loc *time.Location) Option {
	return func(o *[]cron.Option) { *o = append(*o, cron.WithLocation(loc)) }
}

// NewScheduler creates and starts a cron scheduler.
func NewScheduler(opts ...Option) *Scheduler {
	// Standard 5-field parser (min, hour, dom, month, dow) plus @hourly style descriptors.
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	cronOpts := []cron.Option{cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger))}
	for _, opt := range opts {
		opt(&cronOpts)
	}
	c := cron.New(cronOpts...)
	c.Start()
	return &Scheduler{cron: c}
}

// AddJob schedules task under name using the provided cron expression.
// It returns an error if the expression is invalid.
func (s *Scheduler) AddJob(name, expr string, task func()) error {
	_, err := s.cron.AddFunc(expr, func() {
		start := time.Now()
		task()
		slog.Debug("Scheduler: job finished", "job", name, "duration", time.Since(start))
	})
	if err != nil {
		return err
	}
	slog.Info("Scheduler.AddJob: job scheduled", "job", name, "spec", expr)
	return nil
}

// Len returns the number of scheduled jobs.
func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

// Next returns when the earliest job fires next, or the zero time with no jobs.
func (s *Scheduler) Next() time.Time {
	var next time.Time
	for _, e := range s.cron.Entries() {
		if next.IsZero() || e.Next.Before(next) {
			next = e.Next
		}
	}
	return next
}

// Stop stops the cron scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
