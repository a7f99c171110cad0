package world

import (
	"testing"

	"github.com/l1jgo/assetstage/internal/component"
	"github.com/l1jgo/assetstage/internal/core/ecs"
	"github.com/l1jgo/assetstage/internal/mathx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpawnAppliesTemplateAndTags(t *testing.T) {
	s := NewState()
	id := s.Spawn(Template{
		Name:      "Scene",
		Transform: mathx.FromXYZ(1, 2, 3),
		Markers:   []string{"MyGltfCube"},
	}, SceneObject("scene"))

	tr, ok := s.Transforms.Get(id)
	require.True(t, ok)
	assert.Equal(t, mathx.Vec3{1, 2, 3}, tr.Translation)

	vis, ok := s.Visibility.Get(id)
	require.True(t, ok)
	assert.False(t, vis.Visible)

	tag, ok := s.Tags.Get(id)
	require.True(t, ok)
	assert.Equal(t, "scene", tag.Asset)
	assert.True(t, s.HasMarker(id, "MyGltfCube"))
	assert.False(t, s.HasMarker(id, "Other"))
	assert.Equal(t, "Scene", s.Name(id))
}

func TestQueryFilters(t *testing.T) {
	s := NewState()
	root := s.Spawn(Template{Transform: mathx.Identity()}, SceneObject("scene"))
	cube := s.Spawn(Template{Transform: mathx.Identity(), Markers: []string{"MyGltfCube"}}, MemberOf(root, 0, root))
	plain := s.Spawn(Template{Transform: mathx.Identity()})
	s.Players.Set(root, &component.AnimationPlayer{})

	assert.Equal(t, []ecs.EntityID{root, cube, plain}, s.Query(Filter{}))
	assert.Equal(t, []ecs.EntityID{root}, s.Query(Filter{Scene: true}))
	assert.Equal(t, []ecs.EntityID{cube}, s.Query(Filter{Marker: "MyGltfCube"}))
	assert.Equal(t, []ecs.EntityID{root}, s.Query(Filter{Player: true}))
	assert.Empty(t, s.Query(Filter{Scene: true, Marker: "MyGltfCube"}))
}

func TestDestroyRemovesSubtree(t *testing.T) {
	s := NewState()
	root := s.Spawn(Template{Transform: mathx.Identity()}, SceneObject("scene"))
	child := s.Spawn(Template{Transform: mathx.Identity()}, MemberOf(root, 0, root))
	grandchild := s.Spawn(Template{Transform: mathx.Identity()}, MemberOf(root, 1, child))
	other := s.Spawn(Template{Transform: mathx.Identity()})

	h, _ := s.Hierarchy.Get(child)
	assert.Equal(t, root, h.Parent)
	assert.True(t, h.HasParent)

	s.Destroy(root)
	assert.True(t, s.Alive(root), "destruction is deferred")
	assert.Equal(t, 3, s.FlushDestroyQueue())

	assert.False(t, s.Alive(root))
	assert.False(t, s.Alive(child))
	assert.False(t, s.Alive(grandchild))
	assert.True(t, s.Alive(other))
	assert.Equal(t, 1, s.Len())
	assert.False(t, s.Tags.Has(root))
}

func TestAmbientLight(t *testing.T) {
	s := NewState()
	_, ok := s.AmbientLight()
	assert.False(t, ok)
	s.SetAmbientLight(component.AmbientLight{Brightness: 0.5})
	l, ok := s.AmbientLight()
	assert.True(t, ok)
	assert.Equal(t, 0.5, l.Brightness)
}
