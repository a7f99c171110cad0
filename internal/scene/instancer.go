// Package scene realises spawned scene instances into their node hierarchy.
package scene

import (
	"github.com/l1jgo/assetstage/internal/component"
	"github.com/l1jgo/assetstage/internal/core/ecs"
	"github.com/l1jgo/assetstage/internal/world"
	"go.uber.org/zap"
)

// Instancer expands every unrealised SceneInstance. The instance root keeps
// its SceneTag; the nodes it spawns are linked to it by SceneMember. When the
// document carries clips targeting nodes of the scene, the root gains an
// AnimationPlayer, which is the capability the animation driver waits for.
type Instancer struct {
	world *world.State
	log   *zap.Logger
}

func NewInstancer(ws *world.State, log *zap.Logger) *Instancer {
	return &Instancer{world: ws, log: log}
}

// Realize expands pending instances and returns how many it expanded.
func (in *Instancer) Realize() int {
	n := 0
	for _, root := range in.world.Instances.IDs() {
		inst, _ := in.world.Instances.Get(root)
		if inst.Realized {
			continue
		}
		in.realize(root, inst)
		n++
	}
	return n
}

func (in *Instancer) realize(root ecs.EntityID, inst *component.SceneInstance) {
	doc := inst.Document
	roots := doc.Scenes[inst.Scene].Roots
	nodes := make(map[int]ecs.EntityID)
	parents := make(map[int]ecs.EntityID, len(roots))
	for _, r := range roots {
		parents[r] = root
	}

	// pre-order, so every parent is spawned before its children
	for _, idx := range doc.Subtree(roots) {
		node := doc.Nodes[idx]
		parent := parents[idx]
		id := in.world.Spawn(world.Template{
			Name:      node.Name,
			Transform: node.Transform,
			Visible:   true,
			Markers:   node.Components,
		}, world.MemberOf(root, idx, parent))
		nodes[idx] = id
		for _, c := range node.Children {
			if _, ok := parents[c]; !ok {
				parents[c] = id
			}
		}
	}

	inst.Nodes = nodes
	inst.Realized = true

	targets := make(map[int]ecs.EntityID)
	for _, idx := range doc.AnimatedNodes() {
		if id, ok := nodes[idx]; ok {
			targets[idx] = id
		}
	}
	if len(targets) > 0 {
		in.world.Players.Set(root, &component.AnimationPlayer{Targets: targets, Speed: 1})
	}

	in.log.Debug("scene instance realised",
		zap.Stringer("root", root),
		zap.Int("nodes", len(nodes)),
		zap.Int("animated", len(targets)))
}
