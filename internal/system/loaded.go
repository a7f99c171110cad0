package system

import (
	"github.com/l1jgo/assetstage/internal/animation"
	coresys "github.com/l1jgo/assetstage/internal/core/system"
	"github.com/l1jgo/assetstage/internal/loadstate"
	"github.com/l1jgo/assetstage/internal/overlay"
	"github.com/l1jgo/assetstage/internal/scene"
	"github.com/l1jgo/assetstage/internal/scripting"
	"github.com/l1jgo/assetstage/internal/world"
)

// loadedOnly is embedded by systems that only run once assets are loaded.
type loadedOnly struct{}

func (loadedOnly) RunsIn() loadstate.State { return loadstate.Loaded }

// SceneSpawnSystem realises scene instances spawned by activation.
// Phase 2 (Spawn), Loaded only.
type SceneSpawnSystem struct {
	loadedOnly
	instancer *scene.Instancer
}

func NewSceneSpawnSystem(in *scene.Instancer) *SceneSpawnSystem {
	return &SceneSpawnSystem{instancer: in}
}

func (s *SceneSpawnSystem) Phase() coresys.Phase { return coresys.PhaseSpawn }

func (s *SceneSpawnSystem) Update(_ *coresys.Frame) { s.instancer.Realize() }

// AnimationSystem binds clips to new players, then samples every playing
// clip. Phase 3 (Animate), Loaded only.
type AnimationSystem struct {
	loadedOnly
	driver  *animation.Driver
	sampler *animation.Sampler
}

func NewAnimationSystem(d *animation.Driver, s *animation.Sampler) *AnimationSystem {
	return &AnimationSystem{driver: d, sampler: s}
}

func (s *AnimationSystem) Phase() coresys.Phase { return coresys.PhaseAnimate }

func (s *AnimationSystem) Update(f *coresys.Frame) {
	s.driver.Update()
	s.sampler.Advance(f.Dt)
}

// RevealPolicy decides whether a hidden scene object becomes visible.
type RevealPolicy interface {
	ShouldReveal(ctx scripting.RevealContext) bool
}

// RevealSystem asks the policy about every hidden scene-tagged object.
// Revealing is one-way. Phase 4 (Policy), Loaded only.
type RevealSystem struct {
	loadedOnly
	world   *world.State
	policy  RevealPolicy
	tracker *loadstate.Tracker

	enteredCycle uint64
}

func NewRevealSystem(ws *world.State, policy RevealPolicy, tracker *loadstate.Tracker) *RevealSystem {
	return &RevealSystem{world: ws, policy: policy, tracker: tracker}
}

func (s *RevealSystem) Phase() coresys.Phase { return coresys.PhasePolicy }

func (s *RevealSystem) Update(f *coresys.Frame) {
	if s.enteredCycle == 0 {
		s.enteredCycle = f.Cycle
	}
	for _, id := range s.world.Query(world.Filter{Scene: true}) {
		vis, ok := s.world.Visibility.Get(id)
		if !ok || vis.Visible {
			continue
		}
		ctx := scripting.RevealContext{
			Entity:  id.String(),
			Name:    s.world.Name(id),
			Cycles:  f.Cycle - s.enteredCycle,
			Seconds: f.Now.Sub(s.tracker.LoadedAt()).Seconds(),
		}
		if tag, ok := s.world.Tags.Get(id); ok {
			ctx.Asset = tag.Asset
		}
		if inst, ok := s.world.Instances.Get(id); ok {
			ctx.Nodes = len(inst.Nodes)
		}
		if p, ok := s.world.Players.Get(id); ok {
			ctx.Playing = p.Playing
		}
		if s.policy.ShouldReveal(ctx) {
			vis.Visible = true
		}
	}
}

// OverlaySystem emits the telemetry readout. Phase 5 (Overlay), Loaded
// only, after animation so it reads this cycle's sampled transforms.
type OverlaySystem struct {
	loadedOnly
	feed *overlay.Feed
}

func NewOverlaySystem(feed *overlay.Feed) *OverlaySystem {
	return &OverlaySystem{feed: feed}
}

func (s *OverlaySystem) Phase() coresys.Phase { return coresys.PhaseOverlay }

func (s *OverlaySystem) Update(_ *coresys.Frame) { s.feed.Sample() }
