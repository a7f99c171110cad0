package scripting

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeScript(t *testing.T, dir, name, src string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644))
}

func TestShouldRevealScript(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "reveal.lua", `
function should_reveal(ctx)
  return ctx.playing and ctx.cycles >= 3 and ctx.asset == "scene"
end
`)
	e, err := NewEngine(dir, zap.NewNop())
	require.NoError(t, err)
	defer e.Close()
	assert.Equal(t, 1, e.Loaded())

	assert.False(t, e.ShouldReveal(RevealContext{Asset: "scene", Cycles: 2, Playing: true}))
	assert.False(t, e.ShouldReveal(RevealContext{Asset: "scene", Cycles: 3}))
	assert.True(t, e.ShouldReveal(RevealContext{Asset: "scene", Cycles: 3, Playing: true}))
}

func TestMissingDirKeepsHidden(t *testing.T) {
	e, err := NewEngine(filepath.Join(t.TempDir(), "absent"), zap.NewNop())
	require.NoError(t, err)
	defer e.Close()
	assert.Zero(t, e.Loaded())
	assert.False(t, e.ShouldReveal(RevealContext{Cycles: 100}))
}

func TestScriptErrorKeepsHidden(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "broken.lua", `function should_reveal(ctx) error("boom") end`)
	e, err := NewEngine(dir, zap.NewNop())
	require.NoError(t, err)
	defer e.Close()
	assert.False(t, e.ShouldReveal(RevealContext{}))
}

func TestSyntaxErrorFailsLoad(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "bad.lua", `function (`)
	_, err := NewEngine(dir, zap.NewNop())
	assert.Error(t, err)
}

func TestScriptsLoadInNameOrder(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "a.lua", `function should_reveal(ctx) return false end`)
	writeScript(t, dir, "b.lua", `function should_reveal(ctx) return ctx.seconds > 1 end`)
	writeScript(t, dir, "notes.txt", `not lua`)
	e, err := NewEngine(dir, zap.NewNop())
	require.NoError(t, err)
	defer e.Close()
	assert.Equal(t, 2, e.Loaded())
	assert.True(t, e.ShouldReveal(RevealContext{Seconds: 1.5}))
}
