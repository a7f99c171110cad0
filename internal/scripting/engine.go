package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM holding the reveal policy.
// Single-goroutine access only (cycle loop).
type Engine struct {
	vm     *lua.LState
	log    *zap.Logger
	loaded int
}

// NewEngine creates a Lua engine and loads every .lua file in scriptsDir,
// in name order. A missing directory yields an engine with no scripts.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState()
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}
	if scriptsDir == "" {
		return e, nil
	}
	if err := e.loadDir(scriptsDir); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load scripts: %w", err)
	}
	return e, nil
}

func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.loaded++
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// Loaded returns the number of script files run at startup.
func (e *Engine) Loaded() int { return e.loaded }

// RevealContext is what a reveal policy sees about one hidden object.
type RevealContext struct {
	Entity  string
	Name    string
	Asset   string
	Cycles  uint64  // cycles since Loaded was entered
	Seconds float64 // time since Loaded was entered
	Nodes   int     // realised scene nodes, 0 before instancing
	Playing bool    // animation started on the object
}

// ShouldReveal calls the Lua should_reveal(ctx) function. A missing function
// or a script error keeps the object hidden.
func (e *Engine) ShouldReveal(ctx RevealContext) bool {
	fn := e.vm.GetGlobal("should_reveal")
	if fn == lua.LNil {
		return false
	}

	t := e.vm.NewTable()
	t.RawSetString("entity", lua.LString(ctx.Entity))
	t.RawSetString("name", lua.LString(ctx.Name))
	t.RawSetString("asset", lua.LString(ctx.Asset))
	t.RawSetString("cycles", lua.LNumber(ctx.Cycles))
	t.RawSetString("seconds", lua.LNumber(ctx.Seconds))
	t.RawSetString("nodes", lua.LNumber(ctx.Nodes))
	t.RawSetString("playing", lua.LBool(ctx.Playing))

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		e.log.Error("lua should_reveal error", zap.Error(err))
		return false
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)
	return lua.LVAsBool(result)
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
