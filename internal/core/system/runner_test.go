package system

import (
	"errors"
	"testing"
	"time"

	"github.com/l1jgo/assetstage/internal/loadstate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	name  string
	phase Phase
	log   *[]string
	fn    func(*Frame)
}

func (r *recorder) Phase() Phase { return r.phase }
func (r *recorder) Update(f *Frame) {
	*r.log = append(*r.log, r.name)
	if r.fn != nil {
		r.fn(f)
	}
}

type gated struct {
	recorder
	state loadstate.State
}

func (g *gated) RunsIn() loadstate.State { return g.state }

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestRunnerOrdersByPhaseThenRegistration(t *testing.T) {
	var log []string
	r := NewRunner()
	r.Register(&recorder{name: "overlay", phase: PhaseOverlay, log: &log})
	r.Register(&recorder{name: "driver", phase: PhaseAnimate, log: &log})
	r.Register(&recorder{name: "sampler", phase: PhaseAnimate, log: &log})
	r.Register(&recorder{name: "poll", phase: PhaseLoad, log: &log})
	r.Register(&recorder{name: "cleanup", phase: PhaseCleanup, log: &log})

	f := r.Tick(t0, time.Second)
	assert.Equal(t, []string{"poll", "driver", "sampler", "overlay", "cleanup"}, log)
	assert.Equal(t, uint64(1), f.Cycle)
	assert.Equal(t, time.Second, f.Dt)
}

func TestGatedSystemsSeeSameCycleTransition(t *testing.T) {
	var log []string
	r := NewRunner()
	r.Register(&gated{recorder: recorder{name: "loaded-only", phase: PhaseSpawn, log: &log}, state: loadstate.Loaded})
	r.Register(&gated{recorder: recorder{name: "loading-only", phase: PhaseLoad, log: &log}, state: loadstate.Loading})
	flip := false
	r.Register(&recorder{name: "transition", phase: PhaseTransition, log: &log, fn: func(f *Frame) {
		if flip {
			f.State = loadstate.Loaded
		}
	}})

	r.Tick(t0, 0)
	assert.Equal(t, []string{"loading-only", "transition"}, log)

	log = nil
	flip = true
	r.Tick(t0, 0)
	assert.Equal(t, []string{"loading-only", "transition", "loaded-only"}, log)

	log = nil
	r.Tick(t0, 0)
	assert.Equal(t, []string{"transition", "loaded-only"}, log)

}

func TestStartRunsOnce(t *testing.T) {
	r := NewRunner()
	calls := 0
	r.RegisterStartup("count", func() error { calls++; return nil })
	require.NoError(t, r.Start(t0))
	require.NoError(t, r.Start(t0))
	assert.Equal(t, 1, calls)
}

func TestStartStopsOnError(t *testing.T) {
	r := NewRunner()
	boom := errors.New("boom")
	ran := false
	r.RegisterStartup("fail", func() error { return boom })
	r.RegisterStartup("after", func() error { ran = true; return nil })
	err := r.Start(t0)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "startup fail")
	assert.False(t, ran)
}
