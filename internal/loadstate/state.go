// Package loadstate aggregates asset tickets into one readiness edge.
//
// The only state machine is Loading -> Loaded. The forward transition fires
// at most once; Advance on Loaded is a no-op.
package loadstate

import (
	"time"

	"github.com/l1jgo/assetstage/internal/asset"
)

type State uint8

const (
	Loading State = iota
	Loaded
)

func (s State) String() string {
	if s == Loaded {
		return "Loaded"
	}
	return "Loading"
}

// Transition is what one Advance call observed.
type Transition uint8

const (
	NoChange Transition = iota
	EnteredLoaded
)

func (t Transition) String() string {
	if t == EnteredLoaded {
		return "EnteredLoaded"
	}
	return "NoChange"
}

// Member is anything a collection waits on. *asset.Ticket implements it.
type Member interface {
	ID() string
	Status() asset.Status
}

// Collection is a named, immutable group of members gating one transition.
type Collection struct {
	name    string
	members []Member
}

func NewCollection(name string, members ...Member) *Collection {
	return &Collection{name: name, members: append([]Member(nil), members...)}
}

func (c *Collection) Name() string { return c.name }
func (c *Collection) Len() int     { return len(c.members) }

// Members returns a copy of the member list.
func (c *Collection) Members() []Member {
	return append([]Member(nil), c.members...)
}

// AllReady reports whether every member resolved. A failed member keeps the
// collection unready forever. An empty collection is ready.
func AllReady(c *Collection) bool {
	for _, m := range c.members {
		if m.Status() != asset.StatusResolved {
			return false
		}
	}
	return true
}

// Advance computes the next state. It reports EnteredLoaded only on the call
// that moves Loading to Loaded.
func Advance(s State, c *Collection) (State, Transition) {
	if s == Loaded {
		return Loaded, NoChange
	}
	if AllReady(c) {
		return Loaded, EnteredLoaded
	}
	return Loading, NoChange
}

// Tracker owns the state for one collection and measures time spent loading.
type Tracker struct {
	coll      *Collection
	state     State
	startedAt time.Time
	loadedAt  time.Time
	cycles    uint64
}

// NewTracker starts tracking c in Loading at now.
func NewTracker(c *Collection, now time.Time) *Tracker {
	return &Tracker{coll: c, startedAt: now}
}

// Step advances the state once. Call it once per cycle.
func (t *Tracker) Step(now time.Time) Transition {
	next, tr := Advance(t.state, t.coll)
	if t.state == Loading {
		t.cycles++
	}
	t.state = next
	if tr == EnteredLoaded {
		t.loadedAt = now
	}
	return tr
}

func (t *Tracker) State() State            { return t.state }
func (t *Tracker) Collection() *Collection { return t.coll }

// CyclesInLoading counts Step calls made while Loading, including the one
// that transitioned.
func (t *Tracker) CyclesInLoading() uint64 { return t.cycles }

// TimeInLoading returns how long the collection has been (or was) loading.
func (t *Tracker) TimeInLoading(now time.Time) time.Duration {
	if t.state == Loaded {
		return t.loadedAt.Sub(t.startedAt)
	}
	return now.Sub(t.startedAt)
}

// LoadedAt returns when the transition happened; zero while Loading.
func (t *Tracker) LoadedAt() time.Time { return t.loadedAt }

// Stalled reports whether the tracker has been Loading for at least threshold.
// A zero threshold disables stall detection.
func (t *Tracker) Stalled(now time.Time, threshold time.Duration) bool {
	return threshold > 0 && t.state == Loading && now.Sub(t.startedAt) >= threshold
}

// Blocking returns the members holding the collection back, split into
// those still loading and those failed.
func (t *Tracker) Blocking() (pending, failed []Member) {
	for _, m := range t.coll.members {
		switch m.Status() {
		case asset.StatusLoading:
			pending = append(pending, m)
		case asset.StatusFailed:
			failed = append(failed, m)
		}
	}
	return pending, failed
}
