package system

import (
	"time"

	"github.com/l1jgo/assetstage/internal/core/event"
	coresys "github.com/l1jgo/assetstage/internal/core/system"
	"github.com/l1jgo/assetstage/internal/loadstate"
	"go.uber.org/zap"
)

// Hook runs once on entry to Loaded.
type Hook struct {
	Name string
	Fn   func(f *coresys.Frame) error
}

// TransitionSystem advances the load tracker and, on the single
// Loading -> Loaded edge, runs the on-enter hooks in order. It is the only
// writer of Frame.State. Phase 1 (Transition).
type TransitionSystem struct {
	tracker *loadstate.Tracker
	hooks   []Hook
	bus     *event.Bus
	log     *zap.Logger

	stallAfter time.Duration
	lastStall  time.Time
	failures   int
}

func NewTransitionSystem(tracker *loadstate.Tracker, bus *event.Bus, stallAfter time.Duration, log *zap.Logger) *TransitionSystem {
	return &TransitionSystem{tracker: tracker, bus: bus, stallAfter: stallAfter, log: log}
}

// OnEnterLoaded appends a hook. Hooks added after the edge never run.
func (s *TransitionSystem) OnEnterLoaded(name string, fn func(f *coresys.Frame) error) {
	s.hooks = append(s.hooks, Hook{Name: name, Fn: fn})
}

func (s *TransitionSystem) Phase() coresys.Phase { return coresys.PhaseTransition }

func (s *TransitionSystem) Update(f *coresys.Frame) {
	switch s.tracker.Step(f.Now) {
	case loadstate.EnteredLoaded:
		f.State = s.tracker.State()
		after := s.tracker.TimeInLoading(f.Now)
		s.log.Info("assets loaded",
			zap.String("collection", s.tracker.Collection().Name()),
			zap.Int("tickets", s.tracker.Collection().Len()),
			zap.Uint64("cycle", f.Cycle),
			zap.Duration("after", after))
		for _, h := range s.hooks {
			if err := h.Fn(f); err != nil {
				s.failures++
				s.log.Error("on-enter hook failed", zap.String("hook", h.Name), zap.Error(err))
			}
		}
		event.Emit(s.bus, event.StateEntered{
			Collection: s.tracker.Collection().Name(),
			Cycle:      f.Cycle,
			After:      after,
		})
	case loadstate.NoChange:
		f.State = s.tracker.State()
		if f.State == loadstate.Loading {
			s.reportStall(f.Now)
		}
	}
}

// HookFailures returns how many on-enter hooks returned an error.
func (s *TransitionSystem) HookFailures() int { return s.failures }

func (s *TransitionSystem) reportStall(now time.Time) {
	if !s.tracker.Stalled(now, s.stallAfter) {
		return
	}
	if !s.lastStall.IsZero() && now.Sub(s.lastStall) < s.stallAfter {
		return
	}
	s.lastStall = now
	pending, failed := s.tracker.Blocking()
	s.log.Warn("asset loading stalled",
		zap.String("collection", s.tracker.Collection().Name()),
		zap.Duration("waiting", s.tracker.TimeInLoading(now)),
		zap.Uint64("cycles", s.tracker.CyclesInLoading()),
		zap.Strings("pending", memberIDs(pending)),
		zap.Strings("failed", memberIDs(failed)))
}

func memberIDs(ms []loadstate.Member) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.ID()
	}
	return out
}
