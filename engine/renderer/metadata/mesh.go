package metadata

import "github.com/go-gl/mathgl/mgl32"

// Bounds is an axis aligned box around Origin with half-size Extents, plus
// the radius of the sphere enclosing it.
type Bounds struct {
	Origin       mgl32.Vec3
	SphereRadius float32
	Extents      mgl32.Vec3
}

// NewBounds builds the bounds enclosing the given points.
func NewBounds(points []mgl32.Vec3) Bounds {
	if len(points) == 0 {
		return Bounds{}
	}
	minPos := points[0]
	maxPos := points[0]
	for _, p := range points[1:] {
		for i := 0; i < 3; i++ {
			if p[i] < minPos[i] {
				minPos[i] = p[i]
			}
			if p[i] > maxPos[i] {
				maxPos[i] = p[i]
			}
		}
	}
	extents := maxPos.Sub(minPos).Mul(0.5)
	return Bounds{
		Origin:       maxPos.Add(minPos).Mul(0.5),
		Extents:      extents,
		SphereRadius: extents.Len(),
	}
}

/** @brief A range of indices of a mesh drawn with a single material. */
type GeoSurface struct {
	StartIndex uint32
	Count      uint32
	Bounds     Bounds
	Material   *GLTFMaterial
}

type MeshAsset struct {
	Name        string
	Surfaces    []GeoSurface
	MeshBuffers GPUMeshBuffers
}
