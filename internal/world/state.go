package world

import (
	"slices"

	"github.com/l1jgo/assetstage/internal/component"
	"github.com/l1jgo/assetstage/internal/core/ecs"
	"github.com/l1jgo/assetstage/internal/mathx"
)

// State is the live object space. Activation spawns into it; the animation
// driver, reveal policy and overlay query it. Accessed only from the cycle
// goroutine, so no locks.
type State struct {
	ecs *ecs.World

	Transforms *ecs.Store[mathx.Transform]
	Names      *ecs.Store[component.Name]
	Visibility *ecs.Store[component.Visibility]
	Tags       *ecs.Store[component.SceneTag]
	Instances  *ecs.Store[component.SceneInstance]
	Members    *ecs.Store[component.SceneMember]
	Hierarchy  *ecs.Store[component.Hierarchy]
	Markers    *ecs.Store[component.Markers]
	Players    *ecs.Store[component.AnimationPlayer]
	Cameras    *ecs.Store[component.Camera]

	ambient    component.AmbientLight
	hasAmbient bool
}

func NewState() *State {
	w := ecs.NewWorld()
	return &State{
		ecs:        w,
		Transforms: ecs.Register[mathx.Transform](w),
		Names:      ecs.Register[component.Name](w),
		Visibility: ecs.Register[component.Visibility](w),
		Tags:       ecs.Register[component.SceneTag](w),
		Instances:  ecs.Register[component.SceneInstance](w),
		Members:    ecs.Register[component.SceneMember](w),
		Hierarchy:  ecs.Register[component.Hierarchy](w),
		Markers:    ecs.Register[component.Markers](w),
		Players:    ecs.Register[component.AnimationPlayer](w),
		Cameras:    ecs.Register[component.Camera](w),
	}
}

// Template describes the components a spawned object starts with.
type Template struct {
	Name      string
	Transform mathx.Transform
	Visible   bool
	Scene     *component.SceneInstance
	Markers   []string
	Camera    *component.Camera
}

// Tag attaches a marker relationship at spawn time.
type Tag func(s *State, id ecs.EntityID)

// SceneObject tags an object as activated from the given scene asset.
func SceneObject(assetID string) Tag {
	return func(s *State, id ecs.EntityID) {
		s.Tags.Set(id, &component.SceneTag{Asset: assetID})
	}
}

// MemberOf links an instanced node to its instance root and parent.
func MemberOf(root ecs.EntityID, node int, parent ecs.EntityID) Tag {
	return func(s *State, id ecs.EntityID) {
		s.Members.Set(id, &component.SceneMember{Root: root, Node: node})
		s.hierarchy(id).Parent = parent
		s.hierarchy(id).HasParent = true
		ph := s.hierarchy(parent)
		ph.Children = append(ph.Children, id)
	}
}

// Spawn creates an object from tpl and applies tags.
func (s *State) Spawn(tpl Template, tags ...Tag) ecs.EntityID {
	id := s.ecs.CreateEntity()
	tr := tpl.Transform
	s.Transforms.Set(id, &tr)
	s.Visibility.Set(id, &component.Visibility{Visible: tpl.Visible})
	if tpl.Name != "" {
		s.Names.Set(id, &component.Name{Value: tpl.Name})
	}
	if tpl.Scene != nil {
		s.Instances.Set(id, tpl.Scene)
	}
	if len(tpl.Markers) > 0 {
		s.Markers.Set(id, &component.Markers{Names: append([]string(nil), tpl.Markers...)})
	}
	if tpl.Camera != nil {
		s.Cameras.Set(id, tpl.Camera)
	}
	for _, tag := range tags {
		tag(s, id)
	}
	return id
}

func (s *State) hierarchy(id ecs.EntityID) *component.Hierarchy {
	h, ok := s.Hierarchy.Get(id)
	if !ok {
		h = &component.Hierarchy{}
		s.Hierarchy.Set(id, h)
	}
	return h
}

// Filter selects objects in Query. Zero fields match everything.
type Filter struct {
	Scene  bool   // has SceneTag
	Marker string // carries this marker component
	Player bool   // has an AnimationPlayer
}

// Query returns matching objects in spawn-slot order.
func (s *State) Query(f Filter) []ecs.EntityID {
	var out []ecs.EntityID
	for _, id := range s.Transforms.IDs() {
		if f.Scene && !s.Tags.Has(id) {
			continue
		}
		if f.Player && !s.Players.Has(id) {
			continue
		}
		if f.Marker != "" && !s.HasMarker(id, f.Marker) {
			continue
		}
		out = append(out, id)
	}
	return out
}

// HasMarker reports whether id carries the named marker component.
func (s *State) HasMarker(id ecs.EntityID, name string) bool {
	m, ok := s.Markers.Get(id)
	return ok && slices.Contains(m.Names, name)
}

// Name returns the display name of id, or its entity string.
func (s *State) Name(id ecs.EntityID) string {
	if n, ok := s.Names.Get(id); ok && n.Value != "" {
		return n.Value
	}
	return id.String()
}

func (s *State) Alive(id ecs.EntityID) bool { return s.ecs.Alive(id) }
func (s *State) Len() int                   { return s.ecs.Len() }

// Destroy queues id and its instanced children for end-of-cycle removal.
func (s *State) Destroy(id ecs.EntityID) {
	if h, ok := s.Hierarchy.Get(id); ok {
		for _, c := range h.Children {
			s.Destroy(c)
		}
	}
	s.ecs.MarkForDestruction(id)
}

// FlushDestroyQueue removes queued objects; called in the cleanup phase.
func (s *State) FlushDestroyQueue() int { return s.ecs.FlushDestroyQueue() }

// SetAmbientLight installs the ambient light resource.
func (s *State) SetAmbientLight(l component.AmbientLight) {
	s.ambient = l
	s.hasAmbient = true
}

// AmbientLight returns the ambient light resource, if installed.
func (s *State) AmbientLight() (component.AmbientLight, bool) {
	return s.ambient, s.hasAmbient
}
