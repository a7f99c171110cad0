package mathx

import "fmt"

// Vec3 is a 3-component vector in engine units.
type Vec3 [3]float64

// One is the identity scale.
var One = Vec3{1, 1, 1}

// Lerp interpolates between a and b by t in [0,1].
func Lerp(a, b Vec3, t float64) Vec3 {
	return Vec3{
		a[0] + (b[0]-a[0])*t,
		a[1] + (b[1]-a[1])*t,
		a[2] + (b[2]-a[2])*t,
	}
}

func (v Vec3) String() string {
	return fmt.Sprintf("(%g, %g, %g)", v[0], v[1], v[2])
}

// Quat is a unit quaternion stored as x, y, z, w.
type Quat [4]float64

// IdentityQuat is the no-rotation quaternion.
var IdentityQuat = Quat{0, 0, 0, 1}

// Transform is a local translation / rotation / scale triple.
type Transform struct {
	Translation Vec3
	Rotation    Quat
	Scale       Vec3
}

// Identity returns a transform with no translation, no rotation and unit scale.
func Identity() Transform {
	return Transform{Rotation: IdentityQuat, Scale: One}
}

// FromXYZ returns an identity transform translated to (x, y, z).
func FromXYZ(x, y, z float64) Transform {
	t := Identity()
	t.Translation = Vec3{x, y, z}
	return t
}
