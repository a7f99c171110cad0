package system

import (
	"fmt"
	"sort"
	"time"
)

type startup struct {
	name string
	fn   func() error
}

// Runner executes systems in phase order each cycle. Systems sharing a phase
// run in registration order.
type Runner struct {
	systems  []System
	sorted   bool
	startups []startup
	started  bool
	frame    Frame
}

func NewRunner() *Runner {
	return &Runner{
		systems: make([]System, 0, 16),
	}
}

func (r *Runner) Register(s System) {
	r.systems = append(r.systems, s)
	r.sorted = false
}

// RegisterStartup adds a callback run once by Start, before the first cycle.
func (r *Runner) RegisterStartup(name string, fn func() error) {
	r.startups = append(r.startups, startup{name: name, fn: fn})
}

// Start runs startup callbacks in registration order. It is a no-op after
// the first successful call.
func (r *Runner) Start(now time.Time) error {
	if r.started {
		return nil
	}
	for _, s := range r.startups {
		if err := s.fn(); err != nil {
			return fmt.Errorf("startup %s: %w", s.name, err)
		}
	}
	r.started = true
	r.frame.Now = now
	return nil
}

// Tick runs one cycle and returns the frame it ran with.
func (r *Runner) Tick(now time.Time, dt time.Duration) *Frame {
	r.ensureSorted()
	r.frame.Cycle++
	r.frame.Dt = dt
	r.frame.Now = now
	for _, s := range r.systems {
		if g, ok := s.(Gated); ok && g.RunsIn() != r.frame.State {
			continue
		}
		s.Update(&r.frame)
	}
	return &r.frame
}

// Frame returns the current frame.
func (r *Runner) Frame() *Frame { return &r.frame }

func (r *Runner) ensureSorted() {
	if !r.sorted {
		sort.SliceStable(r.systems, func(i, j int) bool {
			return r.systems[i].Phase() < r.systems[j].Phase()
		})
		r.sorted = true
	}
}
