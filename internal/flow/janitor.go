package flow

import (
	"log/slog"
	"sync"
	"time"
)

// DefaultJanitorInterval is how often idle state is swept.
const DefaultJanitorInterval = time.Minute

// Sweeper removes expired entries and reports how many it removed.
type Sweeper interface {
	Sweep() int
}

// Janitor periodically sweeps the registry and call bindings.
type Janitor struct {
	interval time.Duration
	sweepers []Sweeper

	once sync.Once
	stop chan struct{}
	done chan struct{}
}

// NewJanitor creates a stopped janitor.
func NewJanitor(interval time.Duration, sweepers ...Sweeper) *Janitor {
	if interval <= 0 {
		interval = DefaultJanitorInterval
	}
	return &Janitor{
		interval: interval,
		sweepers: sweepers,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs the sweep loop in a goroutine until Stop.
func (j *Janitor) Start() {
	go func() {
		defer close(j.done)
		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				j.RunOnce()
			case <-j.stop:
				return
			}
		}
	}()
	slog.Debug("Janitor.Start: started", "interval", j.interval, "sweepers", len(j.sweepers))
}

// Stop ends the sweep loop and waits for it to exit. It must follow Start.
func (j *Janitor) Stop() {
	j.once.Do(func() { close(j.stop) })
	<-j.done
}

// RunOnce sweeps every target and returns the total removed.
func (j *Janitor) RunOnce() int {
	total := 0
	for _, s := range j.sweepers {
		total += s.Sweep()
	}
	return total
}
