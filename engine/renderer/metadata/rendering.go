package metadata

import "github.com/go-gl/mathgl/mgl32"

/**
 * @brief A single draw: a range of an index buffer rendered with a
 * material and a world transform. Render objects only reference data
 * owned elsewhere and live for one frame.
 */
type RenderObject struct {
	IndexCount          uint32
	FirstIndex          uint32
	IndexBuffer         Buffer
	Material            *MaterialInstance
	Bounds              Bounds
	Transform           mgl32.Mat4
	VertexBufferAddress uint64
}

/** @brief The render objects collected for the current frame. */
type DrawContext struct {
	OpaqueSurfaces      []RenderObject
	TransparentSurfaces []RenderObject
}

// Clear empties both lists and keeps their capacity.
func (dc *DrawContext) Clear() {
	dc.OpaqueSurfaces = dc.OpaqueSurfaces[:0]
	dc.TransparentSurfaces = dc.TransparentSurfaces[:0]
}

// Scene-wide uniform data bound at set 0 of every material pipeline.
type GPUSceneData struct {
	View              mgl32.Mat4
	Proj              mgl32.Mat4
	ViewProj          mgl32.Mat4
	AmbientColor      mgl32.Vec4
	SunlightDirection mgl32.Vec4
	SunlightColor     mgl32.Vec4
}

// GPUDrawPushConstants is pushed once per draw to the vertex stage.
type GPUDrawPushConstants struct {
	WorldMatrix  mgl32.Mat4
	VertexBuffer uint64
}

// EngineStats are the per-frame statistics exposed to overlays. Times are
// in milliseconds.
type EngineStats struct {
	FrameTime       float64
	TriangleCount   int
	DrawcallCount   int
	SceneUpdateTime float64
	MeshDrawTime    float64
}

type ComputePushConstants struct {
	Data1 mgl32.Vec4
	Data2 mgl32.Vec4
	Data3 mgl32.Vec4
	Data4 mgl32.Vec4
}

/** @brief A named full-screen compute pass selectable at runtime. */
type ComputeEffect struct {
	Name     string
	Pipeline Pipeline
	Layout   PipelineLayout
	Data     ComputePushConstants
}
