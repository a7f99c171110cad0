package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, 16*time.Millisecond, cfg.Stage.TickRate)
	assert.Equal(t, 2, cfg.Assets.Workers)
	assert.True(t, cfg.Activation.InitiallyHidden)
	assert.Equal(t, "loop", cfg.Animation.Repeat)
	assert.Equal(t, 1.0, cfg.Animation.Speed)
	assert.Equal(t, "en", cfg.Overlay.Locale)
	assert.False(t, cfg.Journal.Enabled)
}

func TestParseCollection(t *testing.T) {
	cfg, err := Parse([]byte(`
[stage]
tick_rate = "50ms"
max_cycles = 10

[[assets.collection]]
id = "scene"
path = "test_scale.gltf#Scene0"
kind = "scene"

[[assets.collection]]
id = "clip"
path = "test_scale.gltf#Animation0"
kind = "animation"

[activation]
scene_asset = "scene"
scene_name = "Scene"

[animation]
clip_asset = "clip"
repeat = "none"
`))
	require.NoError(t, err)
	assert.Equal(t, 50*time.Millisecond, cfg.Stage.TickRate)
	assert.Equal(t, uint64(10), cfg.Stage.MaxCycles)
	require.Len(t, cfg.Assets.Collection, 2)
	assert.Equal(t, AssetConfig{ID: "clip", Path: "test_scale.gltf#Animation0", Kind: "animation"}, cfg.Assets.Collection[1])
	assert.Equal(t, "Scene", cfg.Activation.SceneName)
	assert.Equal(t, "none", cfg.Animation.Repeat)
	assert.True(t, cfg.Activation.SpawnViewpoint, "unset keys keep defaults")
}

func TestParseRejects(t *testing.T) {
	cases := map[string]string{
		"duplicate id": `
[[assets.collection]]
id = "a"
path = "x.gltf"
[[assets.collection]]
id = "a"
path = "y.gltf"`,
		"missing path": `
[[assets.collection]]
id = "a"`,
		"unknown scene asset": `
[activation]
scene_asset = "nope"`,
		"unknown clip asset": `
[animation]
clip_asset = "nope"`,
		"zero workers": `
[assets]
workers = 0`,
		"journal without dsn": `
[journal]
enabled = true
dsn = ""`,
		"bad toml": `[stage`,
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(src))
			assert.Error(t, err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stage.toml")
	require.NoError(t, os.WriteFile(path, []byte("[stage]\nname = \"demo\"\n"), 0o644))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "demo", cfg.Stage.Name)
	assert.NotZero(t, cfg.Stage.StartTime)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestShippedConfigParses(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "config", "assetstage.toml"))
	require.NoError(t, err)
	assert.Len(t, cfg.Assets.Collection, 2)
	assert.Equal(t, "MyGltfCube", cfg.Overlay.Marker)
}
