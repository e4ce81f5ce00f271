package math

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	assert.Equal(t, float32(0.01), Clamp(float32(-3), 0.01, 1))
	assert.Equal(t, float32(1), Clamp(float32(3), 0.01, 1))
	assert.Equal(t, uint32(5), Clamp(uint32(5), 1, 10))
}

func unitObject(transform mgl32.Mat4) *metadata.RenderObject {
	return &metadata.RenderObject{
		Bounds: metadata.Bounds{
			Origin:       mgl32.Vec3{0, 0, 0},
			Extents:      mgl32.Vec3{0.5, 0.5, 0.5},
			SphereRadius: 0.87,
		},
		Transform: transform,
	}
}

func testViewProj() mgl32.Mat4 {
	proj := PerspectiveZO(mgl32.DegToRad(70), 16.0/9.0, 10000, 0.1)
	view := mgl32.Translate3D(0, 0, -5)
	return proj.Mul4(view)
}

func TestIsVisibleInFront(t *testing.T) {
	assert.True(t, IsVisible(unitObject(mgl32.Ident4()), testViewProj()))
}

func TestIsVisibleOffToTheSide(t *testing.T) {
	assert.False(t, IsVisible(unitObject(mgl32.Translate3D(100, 0, 0)), testViewProj()))
	assert.False(t, IsVisible(unitObject(mgl32.Translate3D(0, -100, 0)), testViewProj()))
}

func TestIsVisibleIdentityClipSpace(t *testing.T) {
	// with an identity projection the box is already in clip space
	inside := unitObject(mgl32.Translate3D(0, 0, 0.5))
	assert.True(t, IsVisible(inside, mgl32.Ident4()))

	behind := unitObject(mgl32.Translate3D(0, 0, -2))
	assert.False(t, IsVisible(behind, mgl32.Ident4()))

	beyond := unitObject(mgl32.Translate3D(0, 0, 3))
	assert.False(t, IsVisible(beyond, mgl32.Ident4()))
}

func TestPerspectiveZOReverseDepth(t *testing.T) {
	proj := PerspectiveZO(mgl32.DegToRad(70), 1, 10000, 0.1)
	depth := func(z float32) float32 {
		clip := proj.Mul4x1(mgl32.Vec4{0, 0, z, 1})
		return clip.Z() / clip.W()
	}
	assert.InDelta(t, 1.0, depth(-0.1), 1e-4)
	assert.InDelta(t, 0.0, depth(-10000), 1e-4)
	assert.Greater(t, depth(-1), depth(-10))
}

func TestGeometryGenerateNormals(t *testing.T) {
	vertices := []metadata.Vertex{
		{Position: mgl32.Vec3{0, 0, 0}},
		{Position: mgl32.Vec3{1, 0, 0}},
		{Position: mgl32.Vec3{0, 1, 0}},
	}
	GeometryGenerateNormals(vertices, []uint32{0, 1, 2})
	for _, v := range vertices {
		assert.InDelta(t, 1.0, v.Normal.Z(), 1e-6)
	}
}
