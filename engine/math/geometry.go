package math

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

// GeometryGenerateNormals assigns each triangle's face normal to its three vertices.
// Used for meshes imported without a normal attribute.
func GeometryGenerateNormals(vertices []metadata.Vertex, indices []uint32) {
	for i := 0; i+2 < len(indices); i += 3 {
		i0 := indices[i+0]
		i1 := indices[i+1]
		i2 := indices[i+2]
		if int(i0) >= len(vertices) || int(i1) >= len(vertices) || int(i2) >= len(vertices) {
			continue
		}

		edge1 := vertices[i1].Position.Sub(vertices[i0].Position)
		edge2 := vertices[i2].Position.Sub(vertices[i0].Position)

		c := edge1.Cross(edge2)
		if c.Len() == 0 {
			continue
		}
		normal := c.Normalize()

		// NOTE: This just generates a face normal. Smoothing out should be done in a separate pass if desired.
		vertices[i0].Normal = normal
		vertices[i1].Normal = normal
		vertices[i2].Normal = normal
	}
}

var cubeCorners = [8]mgl32.Vec3{
	{1, 1, 1},
	{1, 1, -1},
	{1, -1, 1},
	{1, -1, -1},
	{-1, 1, 1},
	{-1, 1, -1},
	{-1, -1, 1},
	{-1, -1, -1},
}

// IsVisible reports whether the bounding box of obj overlaps the clip volume
// of viewProj. Depth is tested against [0, 1].
func IsVisible(obj *metadata.RenderObject, viewProj mgl32.Mat4) bool {
	matrix := viewProj.Mul4(obj.Transform)

	lo := mgl32.Vec3{1.5, 1.5, 1.5}
	hi := mgl32.Vec3{-1.5, -1.5, -1.5}

	for _, corner := range cubeCorners {
		p := obj.Bounds.Origin.Add(mgl32.Vec3{
			corner.X() * obj.Bounds.Extents.X(),
			corner.Y() * obj.Bounds.Extents.Y(),
			corner.Z() * obj.Bounds.Extents.Z(),
		})
		v := matrix.Mul4x1(p.Vec4(1))

		// perspective correction
		x, y, z := v.X()/v.W(), v.Y()/v.W(), v.Z()/v.W()

		lo = mgl32.Vec3{min(x, lo.X()), min(y, lo.Y()), min(z, lo.Z())}
		hi = mgl32.Vec3{max(x, hi.X()), max(y, hi.Y()), max(z, hi.Z())}
	}

	// check the clip space box is within the view
	if lo.Z() > 1.0 || hi.Z() < 0.0 || lo.X() > 1.0 || hi.X() < -1.0 || lo.Y() > 1.0 || hi.Y() < -1.0 {
		return false
	}
	return true
}
