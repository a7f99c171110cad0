package activation

import (
	"github.com/l1jgo/assetstage/internal/component"
	"github.com/l1jgo/assetstage/internal/core/ecs"
	"github.com/l1jgo/assetstage/internal/mathx"
	"github.com/l1jgo/assetstage/internal/world"
)

// SpawnViewpoint places a camera five units back on +Z and installs a half
// brightness white ambient light.
func SpawnViewpoint(ws *world.State) ecs.EntityID {
	cam := ws.Spawn(world.Template{
		Name:      "Camera",
		Transform: mathx.FromXYZ(0, 0, 5),
		Visible:   true,
		Camera:    &component.Camera{FOV: 45},
	})
	ws.SetAmbientLight(component.AmbientLight{
		Color:      [3]float64{1, 1, 1},
		Brightness: 0.5,
	})
	return cam
}
