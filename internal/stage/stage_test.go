package stage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/l1jgo/assetstage/internal/asset"
	"github.com/l1jgo/assetstage/internal/component"
	"github.com/l1jgo/assetstage/internal/config"
	"github.com/l1jgo/assetstage/internal/decode"
	"github.com/l1jgo/assetstage/internal/loadstate"
	"github.com/l1jgo/assetstage/internal/mathx"
	"github.com/l1jgo/assetstage/internal/persist"
	"github.com/l1jgo/assetstage/internal/scripting"
	"github.com/l1jgo/assetstage/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const dt = 250 * time.Millisecond

type captureSink struct {
	lines []string
}

func (c *captureSink) Line(s string) { c.lines = append(c.lines, s) }

type memJournal struct {
	mu   sync.Mutex
	recs []persist.LoadRecord
}

func (m *memJournal) RecordLoads(_ context.Context, recs []persist.LoadRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, recs...)
	return nil
}

func cubeDocument() *asset.Document {
	return &asset.Document{
		Nodes:  []asset.Node{{Name: "Cube", Transform: mathx.Identity()}},
		Scenes: []asset.Scene{{Name: "Scene", Roots: []int{0}}},
		Clips: []asset.Clip{{
			Name:     "CubeAction",
			Duration: 2,
			Tracks: []asset.Track{{
				Node:     0,
				Property: asset.PropertyScale,
				Times:    []float64{0, 1, 2},
				Values:   []mathx.Vec3{mathx.One, {2, 2, 2}, mathx.One},
			}},
		}},
		DefaultScene: 0,
	}
}

const twoTicketConfig = `
[stage]
name = "C"
stall_warning = "0s"

[assets]
root = ""
workers = 1

[[assets.collection]]
id = "S"
path = "scene.yaml#Scene0"
kind = "scene"

[[assets.collection]]
id = "A"
path = "scene.yaml#Animation0"
kind = "animation"

[activation]
scene_asset = "S"
spawn_viewpoint = false

[animation]
clip_asset = "A"

[overlay]
precision = 2
`

func parseConfig(t *testing.T, src string) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(src))
	require.NoError(t, err)
	return cfg
}

// stepUntilLoaded steps s until it reaches Loaded, checking check before
// every cycle that stays in Loading.
func stepUntilLoaded(t *testing.T, s *Stage, now *time.Time, check func()) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for s.State() != loadstate.Loaded {
		require.True(t, time.Now().Before(deadline), "stage never loaded")
		check()
		*now = now.Add(dt)
		s.Step(*now, dt)
		if s.State() != loadstate.Loaded {
			time.Sleep(time.Millisecond)
		}
	}
}

func TestEndToEndActivation(t *testing.T) {
	gate := make(chan struct{})
	dec := asset.DecoderFunc(func(string) (*asset.Document, error) {
		<-gate
		return cubeDocument(), nil
	})
	sink := &captureSink{}
	journal := &memJournal{}
	now := time.Unix(1000, 0)

	s, err := New(Options{
		Config:  parseConfig(t, twoTicketConfig),
		Decoder: dec,
		Log:     zap.NewNop(),
		Sink:    sink,
		Journal: journal,
	}, now)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		now = now.Add(dt)
		f := s.Step(now, dt)
		assert.Equal(t, loadstate.Loading, f.State)
	}
	assert.Zero(t, s.World.Len(), "nothing spawns while loading")
	assert.Empty(t, sink.lines)

	close(gate)
	stepUntilLoaded(t, s, &now, func() {
		assert.Empty(t, s.World.Query(world.Filter{Scene: true}))
	})

	// The transition cycle: one hidden tagged object, one loop play, one line.
	tagged := s.World.Query(world.Filter{Scene: true})
	require.Len(t, tagged, 1)
	root := tagged[0]
	vis, _ := s.World.Visibility.Get(root)
	assert.False(t, vis.Visible)

	player, ok := s.World.Players.Get(root)
	require.True(t, ok)
	assert.Equal(t, 1, player.Starts)
	assert.Equal(t, component.RepeatLoop, player.Repeat)
	assert.Equal(t, "A", player.Ticket)

	require.Len(t, sink.lines, 1)
	assert.Equal(t, "Scene scale: (1.00, 1.00, 1.00)", sink.lines[0])

	for i := 0; i < 40; i++ {
		now = now.Add(dt)
		s.Step(now, dt)
	}
	assert.Len(t, s.World.Query(world.Filter{Scene: true}), 1, "activation fired once")
	assert.Equal(t, 1, player.Starts, "playback started once")
	assert.True(t, player.Playing)
	assert.Len(t, sink.lines, 41)
	assert.False(t, vis.Visible, "no reveal policy keeps it hidden")
	assert.Zero(t, s.HookFailures())
	assert.Zero(t, s.Driver.Violations())

	require.NoError(t, s.Close(context.Background()))
	journal.mu.Lock()
	defer journal.mu.Unlock()
	require.Len(t, journal.recs, 2)
	for _, r := range journal.recs {
		assert.Equal(t, "resolved", r.Status)
	}
}

func TestFailureIsolation(t *testing.T) {
	failing := asset.DecoderFunc(func(path string) (*asset.Document, error) {
		return nil, &decode.DecodeError{Path: path, Err: errors.New("truncated")}
	})
	good := asset.DecoderFunc(func(string) (*asset.Document, error) {
		return cubeDocument(), nil
	})

	cfgB := parseConfig(t, `
[stage]
name = "B"
stall_warning = "0s"
[[assets.collection]]
id = "scene"
path = "scene.yaml"
kind = "scene"
[activation]
scene_asset = "scene"
`)
	cfgB.Assets.Root = ""

	now := time.Unix(0, 0)
	broken, err := New(Options{Config: parseConfig(t, twoTicketConfig), Decoder: failing, Log: zap.NewNop()}, now)
	require.NoError(t, err)
	defer broken.Close(context.Background())
	healthy, err := New(Options{Config: cfgB, Decoder: good, Log: zap.NewNop()}, now)
	require.NoError(t, err)
	defer healthy.Close(context.Background())

	stepUntilLoaded(t, healthy, &now, func() {})
	for i := 0; i < 100 && len(broken.Assets.Failed()) < 2; i++ {
		broken.Step(now, dt)
		time.Sleep(time.Millisecond)
	}
	for i := 0; i < 20; i++ {
		now = now.Add(dt)
		broken.Step(now, dt)
	}

	assert.Equal(t, loadstate.Loaded, healthy.State())
	assert.Equal(t, loadstate.Loading, broken.State())
	assert.Zero(t, broken.World.Len())

	pending, failed := broken.Tracker.Blocking()
	assert.Empty(t, pending)
	require.Len(t, failed, 2)
	var de *decode.DecodeError
	assert.True(t, errors.As(broken.Tickets()[0].Err(), &de))
	assert.Greater(t, broken.Tracker.TimeInLoading(now), time.Duration(0))
}

func TestEmptyCollectionLoadsOnFirstCycle(t *testing.T) {
	cfg := parseConfig(t, "[overlay]\nenabled = false\n")
	s, err := New(Options{Config: cfg, Decoder: asset.DecoderFunc(func(string) (*asset.Document, error) {
		return nil, errors.New("never called")
	}), Log: zap.NewNop()}, time.Unix(0, 0))
	require.NoError(t, err)
	defer s.Close(context.Background())

	f := s.Step(time.Unix(1, 0), dt)
	assert.Equal(t, loadstate.Loaded, f.State)
	assert.Nil(t, s.Activation)
	assert.Equal(t, 1, s.World.Cameras.Len(), "viewpoint spawns on enter")
}

func TestNewRejectsUnknownBindings(t *testing.T) {
	cfg := parseConfig(t, twoTicketConfig)
	cfg.Animation.Repeat = "sometimes"
	_, err := New(Options{Config: cfg, Decoder: asset.DecoderFunc(func(string) (*asset.Document, error) {
		return cubeDocument(), nil
	}), Log: zap.NewNop()}, time.Unix(0, 0))
	assert.Error(t, err)

	cfg = parseConfig(t, twoTicketConfig)
	cfg.Assets.Collection[0].Kind = "texture"
	_, err = New(Options{Config: cfg, Decoder: asset.DecoderFunc(func(string) (*asset.Document, error) {
		return cubeDocument(), nil
	}), Log: zap.NewNop()}, time.Unix(0, 0))
	assert.Error(t, err)
}

func TestGLTFSceneWithRevealScript(t *testing.T) {
	cfg := parseConfig(t, `
[stage]
name = "startup"
stall_warning = "0s"

[assets]
root = "../decode/testdata"

[[assets.collection]]
id = "scene"
path = "test_scale.gltf#Scene0"
kind = "scene"

[[assets.collection]]
id = "cube_animation"
path = "test_scale.gltf#Animation0"
kind = "animation"

[activation]
scene_asset = "scene"

[animation]
clip_asset = "cube_animation"

[overlay]
marker = "MyGltfCube"
precision = 3
`)
	engine, err := scripting.NewEngine("../../scripts", zap.NewNop())
	require.NoError(t, err)
	defer engine.Close()

	sink := &captureSink{}
	now := time.Unix(0, 0)
	s, err := New(Options{Config: cfg, Decoder: decode.New(), Log: zap.NewNop(), Policy: engine, Sink: sink}, now)
	require.NoError(t, err)
	defer s.Close(context.Background())

	stepUntilLoaded(t, s, &now, func() {})
	require.NotEmpty(t, sink.lines)
	assert.Equal(t, "Cube scale: (1.250, 1.250, 1.250)", sink.lines[len(sink.lines)-1])

	now = now.Add(dt)
	s.Step(now, dt)
	assert.Equal(t, "Cube scale: (1.500, 1.500, 1.500)", sink.lines[len(sink.lines)-1])

	root := s.World.Query(world.Filter{Scene: true})[0]
	vis, _ := s.World.Visibility.Get(root)
	assert.False(t, vis.Visible)

	now = now.Add(dt)
	s.Step(now, dt)
	assert.True(t, vis.Visible, "reveal script shows the scene two cycles after loading")

	for _, line := range sink.lines {
		assert.True(t, strings.HasPrefix(line, "Cube scale:"), line)
	}
}

func TestWatchReloadsFixedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.yaml")
	require.NoError(t, os.WriteFile(path, []byte("nodes: [unclosed"), 0o644))

	cfg := parseConfig(t, `
[stage]
stall_warning = "0s"
[[assets.collection]]
id = "scene"
path = "scene.yaml"
kind = "scene"
[overlay]
enabled = false
`)
	cfg.Assets.Root = dir
	cfg.Activation.SpawnViewpoint = false

	now := time.Unix(0, 0)
	s, err := New(Options{Config: cfg, Decoder: decode.New(), Log: zap.NewNop()}, now)
	require.NoError(t, err)
	defer s.Close(context.Background())

	require.Eventually(t, func() bool {
		s.Step(now, dt)
		return len(s.Assets.Failed()) == 1
	}, 2*time.Second, 5*time.Millisecond)

	w, err := asset.NewWatcher(s.WatchDirs()...)
	require.NoError(t, err)
	defer w.Close()
	s.Watch(w)

	tmp := filepath.Join(t.TempDir(), "scene.yaml")
	require.NoError(t, os.WriteFile(tmp, []byte("scenes:\n  - name: Fixed\n    roots: [0]\nnodes:\n  - name: A\n"), 0o644))
	require.NoError(t, os.Rename(tmp, path))

	stepUntilLoaded(t, s, &now, func() {})
	tk := s.Tickets()[0]
	assert.Equal(t, asset.StatusResolved, tk.Status())
	assert.Equal(t, 2, tk.Attempts())
}
