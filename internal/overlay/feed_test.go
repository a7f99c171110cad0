package overlay

import (
	"bytes"
	"strings"
	"testing"

	"github.com/l1jgo/assetstage/internal/mathx"
	"github.com/l1jgo/assetstage/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSink struct{ lines []string }

func (c *captureSink) Line(s string) { c.lines = append(c.lines, s) }

func TestFeedNoObjectsNoOutput(t *testing.T) {
	sink := &captureSink{}
	f, err := NewFeed(world.NewState(), Options{}, sink)
	require.NoError(t, err)
	assert.Nil(t, f.Sample())
	assert.Empty(t, sink.lines)
}

func TestFeedSceneRoots(t *testing.T) {
	ws := world.NewState()
	tr := mathx.Identity()
	tr.Scale = mathx.Vec3{1.5, 2, 1}
	ws.Spawn(world.Template{Name: "Scene", Transform: tr}, world.SceneObject("scene"))
	ws.Spawn(world.Template{Name: "Untagged", Transform: mathx.Identity()})

	sink := &captureSink{}
	f, err := NewFeed(ws, Options{Locale: "en", Precision: 2}, sink)
	require.NoError(t, err)

	lines := f.Sample()
	require.Len(t, lines, 1)
	assert.Equal(t, "Scene scale: (1.50, 2.00, 1.00)", lines[0])
	assert.Equal(t, lines, sink.lines)
}

func TestFeedMarkerFilter(t *testing.T) {
	ws := world.NewState()
	ws.Spawn(world.Template{Name: "Root", Transform: mathx.Identity()}, world.SceneObject("scene"))
	ws.Spawn(world.Template{Name: "Cube", Transform: mathx.Identity(), Markers: []string{"MyGltfCube"}})

	var buf bytes.Buffer
	f, err := NewFeed(ws, Options{Marker: "MyGltfCube", Precision: 1}, WriterSink{W: &buf})
	require.NoError(t, err)
	f.Sample()
	f.Sample()

	out := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, []string{"Cube scale: (1.0, 1.0, 1.0)", "Cube scale: (1.0, 1.0, 1.0)"}, out)
}

func TestFeedDoesNotMutate(t *testing.T) {
	ws := world.NewState()
	id := ws.Spawn(world.Template{Transform: mathx.FromXYZ(1, 2, 3)}, world.SceneObject("scene"))
	f, err := NewFeed(ws, Options{}, &captureSink{})
	require.NoError(t, err)
	f.Sample()
	tr, _ := ws.Transforms.Get(id)
	assert.Equal(t, mathx.FromXYZ(1, 2, 3), *tr)
}

func TestFeedLocaleGrouping(t *testing.T) {
	ws := world.NewState()
	tr := mathx.Identity()
	tr.Scale = mathx.Vec3{1234.5, 1, 1}
	ws.Spawn(world.Template{Name: "Big", Transform: tr}, world.SceneObject("scene"))

	f, err := NewFeed(ws, Options{Locale: "en-US", Precision: 1}, &captureSink{})
	require.NoError(t, err)
	assert.Equal(t, "Big scale: (1,234.5, 1.0, 1.0)", f.Sample()[0])
}

func TestFeedBadLocale(t *testing.T) {
	_, err := NewFeed(world.NewState(), Options{Locale: "not a tag!"}, &captureSink{})
	assert.Error(t, err)
}
