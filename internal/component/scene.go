package component

import (
	"github.com/l1jgo/assetstage/internal/asset"
	"github.com/l1jgo/assetstage/internal/core/ecs"
)

// SceneTag marks an object spawned by scene activation. It is attached at
// spawn time and never removed while the object lives.
type SceneTag struct {
	Asset string // ticket id of the scene-graph asset
}

// SceneInstance is a pending or realised instantiation of one scene of a
// decoded document. The scene instancer fills Nodes when it realises it.
type SceneInstance struct {
	Document *asset.Document
	Scene    int
	Realized bool
	Nodes    map[int]ecs.EntityID // document node index -> entity
}

// SceneMember links an instanced node back to its instance root.
type SceneMember struct {
	Root ecs.EntityID
	Node int
}

// Hierarchy stores parent/child links between instanced nodes.
type Hierarchy struct {
	Parent    ecs.EntityID
	HasParent bool
	Children  []ecs.EntityID
}

// Name is a display name taken from the source node or scene.
type Name struct {
	Value string
}

// Visibility starts hidden for activated scenes; a reveal policy flips it.
type Visibility struct {
	Visible bool
}

// Markers are component names carried in node extras, e.g. "MyGltfCube".
type Markers struct {
	Names []string
}
