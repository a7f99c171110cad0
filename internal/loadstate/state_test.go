package loadstate

import (
	"testing"
	"time"

	"github.com/l1jgo/assetstage/internal/asset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type member struct {
	id     string
	status asset.Status
}

func (m *member) ID() string           { return m.id }
func (m *member) Status() asset.Status { return m.status }

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestEmptyCollectionIsReady(t *testing.T) {
	c := NewCollection("empty")
	assert.True(t, AllReady(c))

	tr := NewTracker(c, t0)
	assert.Equal(t, EnteredLoaded, tr.Step(t0))
	assert.Equal(t, Loaded, tr.State())
	assert.Equal(t, uint64(1), tr.CyclesInLoading())
}

func TestReadyOnlyAfterLastResolves(t *testing.T) {
	ms := []*member{{id: "a"}, {id: "b"}, {id: "c"}}
	c := NewCollection("gltf", ms[0], ms[1], ms[2])
	tr := NewTracker(c, t0)

	for i, m := range ms {
		assert.False(t, AllReady(c))
		assert.Equal(t, NoChange, tr.Step(t0.Add(time.Duration(i)*time.Second)))
		assert.Equal(t, Loading, tr.State())
		m.status = asset.StatusResolved
	}
	assert.True(t, AllReady(c))
	assert.Equal(t, EnteredLoaded, tr.Step(t0.Add(3*time.Second)))
	assert.Equal(t, 3*time.Second, tr.TimeInLoading(t0.Add(time.Hour)))
	assert.Equal(t, t0.Add(3*time.Second), tr.LoadedAt())
}

func TestAdvanceIsMonotonicAndEdgeTriggered(t *testing.T) {
	m := &member{id: "a", status: asset.StatusResolved}
	c := NewCollection("c", m)

	s, tr := Advance(Loading, c)
	require.Equal(t, Loaded, s)
	require.Equal(t, EnteredLoaded, tr)

	edges := 0
	for i := 0; i < 100; i++ {
		var got Transition
		s, got = Advance(s, c)
		assert.Equal(t, Loaded, s)
		if got == EnteredLoaded {
			edges++
		}
	}
	assert.Zero(t, edges)

	// losing readiness after the edge does not reverse the state
	m.status = asset.StatusFailed
	s, tr = Advance(s, c)
	assert.Equal(t, Loaded, s)
	assert.Equal(t, NoChange, tr)
}

func TestFailureIsolation(t *testing.T) {
	a := &member{id: "a", status: asset.StatusResolved}
	b := &member{id: "b", status: asset.StatusFailed}
	mixed := NewCollection("mixed", a, b)
	clean := NewCollection("clean", a)

	mt := NewTracker(mixed, t0)
	ct := NewTracker(clean, t0)
	for i := 0; i < 10; i++ {
		mt.Step(t0)
		ct.Step(t0)
	}
	assert.False(t, AllReady(mixed))
	assert.Equal(t, Loading, mt.State())
	assert.Equal(t, Loaded, ct.State())

	pending, failed := mt.Blocking()
	assert.Empty(t, pending)
	require.Len(t, failed, 1)
	assert.Equal(t, "b", failed[0].ID())
}

func TestStalled(t *testing.T) {
	m := &member{id: "slow"}
	tr := NewTracker(NewCollection("c", m), t0)
	tr.Step(t0)

	assert.False(t, tr.Stalled(t0.Add(time.Second), 5*time.Second))
	assert.True(t, tr.Stalled(t0.Add(5*time.Second), 5*time.Second))
	assert.False(t, tr.Stalled(t0.Add(time.Hour), 0), "zero threshold disables detection")
	assert.Equal(t, 10*time.Second, tr.TimeInLoading(t0.Add(10*time.Second)))

	pending, failed := tr.Blocking()
	assert.Len(t, pending, 1)
	assert.Empty(t, failed)

	m.status = asset.StatusResolved
	tr.Step(t0.Add(6 * time.Second))
	assert.False(t, tr.Stalled(t0.Add(time.Hour), 5*time.Second))
}

func TestCollectionIsImmutable(t *testing.T) {
	ms := []Member{&member{id: "a"}}
	c := NewCollection("c", ms...)
	ms[0] = &member{id: "swapped"}
	assert.Equal(t, "a", c.Members()[0].ID())

	got := c.Members()
	got[0] = nil
	assert.NotNil(t, c.Members()[0])
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, "c", c.Name())
}
