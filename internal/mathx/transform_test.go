package mathx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLerp(t *testing.T) {
	a := Vec3{1, 1, 1}
	b := Vec3{3, 5, 1}
	assert.Equal(t, a, Lerp(a, b, 0))
	assert.Equal(t, b, Lerp(a, b, 1))
	assert.Equal(t, Vec3{2, 3, 1}, Lerp(a, b, 0.5))
}

func TestIdentity(t *testing.T) {
	tr := Identity()
	assert.Equal(t, One, tr.Scale)
	assert.Equal(t, IdentityQuat, tr.Rotation)
	assert.Equal(t, Vec3{}, tr.Translation)

	cam := FromXYZ(0, 0, 5)
	assert.Equal(t, Vec3{0, 0, 5}, cam.Translation)
	assert.Equal(t, One, cam.Scale)
}

func TestVec3String(t *testing.T) {
	assert.Equal(t, "(1, 2.5, 3)", Vec3{1, 2.5, 3}.String())
}
