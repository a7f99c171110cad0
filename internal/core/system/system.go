package system

import (
	"time"

	"github.com/l1jgo/assetstage/internal/loadstate"
)

// Phase defines execution ordering within a single cycle.
type Phase int

const (
	PhaseLoad       Phase = iota // 0: dispatch last cycle's events, drain decode completions
	PhaseTransition              // 1: advance load state, run on-enter hooks
	PhaseSpawn                   // 2: realise spawned scene instances
	PhaseAnimate                 // 3: bind new animation players, then sample clips
	PhasePolicy                  // 4: visibility reveal policy
	PhaseOverlay                 // 5: telemetry readout
	PhasePersist                 // 6: journal flush
	PhaseCleanup                 // 7: destroy queued entities
)

func (p Phase) String() string {
	switch p {
	case PhaseLoad:
		return "load"
	case PhaseTransition:
		return "transition"
	case PhaseSpawn:
		return "spawn"
	case PhaseAnimate:
		return "animate"
	case PhasePolicy:
		return "policy"
	case PhaseOverlay:
		return "overlay"
	case PhasePersist:
		return "persist"
	case PhaseCleanup:
		return "cleanup"
	default:
		return "unknown"
	}
}

// Frame is the per-cycle context threaded through every system. State is
// owned here rather than in a global; only the transition system writes it.
type Frame struct {
	Cycle uint64
	Dt    time.Duration
	Now   time.Time
	State loadstate.State
}

// System is the interface every cycle system implements.
type System interface {
	Phase() Phase
	Update(f *Frame)
}

// Gated systems run only while the frame is in the returned state.
type Gated interface {
	RunsIn() loadstate.State
}
