package renderer

import (
	"cmp"
	"slices"
	"time"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer/descriptors"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

// opaqueDrawOrder returns the indices of the opaque surfaces grouped by
// material and then by index buffer. With culling enabled, surfaces outside
// the view are left out.
func (r *Renderer) opaqueDrawOrder() []int {
	opaque := r.drawCommands.OpaqueSurfaces
	order := make([]int, 0, len(opaque))
	for i := range opaque {
		if r.config.EnableCulling && !math.IsVisible(&opaque[i], r.sceneData.ViewProj) {
			continue
		}
		order = append(order, i)
	}

	slices.SortStableFunc(order, func(a, b int) int {
		A, B := &opaque[a], &opaque[b]
		if c := cmp.Compare(A.Material.ID, B.Material.ID); c != 0 {
			return c
		}
		return cmp.Compare(A.IndexBuffer, B.IndexBuffer)
	})
	return order
}

func (r *Renderer) drawGeometry(cmd metadata.CommandBuffer, frame *FrameData) error {
	start := time.Now()
	r.stats.DrawcallCount = 0
	r.stats.TriangleCount = 0

	if err := validateDrawContext(&r.drawCommands); err != nil {
		core.LogError(err.Error())
		return core.Fatal(err)
	}
	order := r.opaqueDrawOrder()

	// scene data lives for one frame
	sceneBuffer, err := r.CreateBuffer(uint64(unsafe.Sizeof(metadata.GPUSceneData{})), metadata.BufferUsageUniformBuffer, metadata.MemoryUsageCpuToGpu)
	if err != nil {
		return err
	}
	frame.DeletionQueue.Push(func() {
		r.DestroyBuffer(sceneBuffer)
	})
	copy(sceneBuffer.Mapped, metadata.AsBytes(&r.sceneData))

	globalDescriptor, err := frame.FrameDescriptors.Allocate(r.backend, r.gpuSceneDataDescriptorLayout)
	if err != nil {
		return err
	}
	var writer descriptors.Writer
	writer.WriteBuffer(0, sceneBuffer.Buffer, sceneBuffer.Size, 0, metadata.DescriptorTypeUniformBuffer)
	writer.UpdateSet(r.backend, globalDescriptor)

	r.backend.CmdBeginRendering(cmd, metadata.RenderingInfo{
		ColorView:  r.drawImage.View,
		DepthView:  r.depthImage.View,
		Extent:     r.drawExtent,
		ClearDepth: 0,
	})

	var lastPipeline *metadata.MaterialPipeline
	var lastMaterial *metadata.MaterialInstance
	var lastIndexBuffer metadata.Buffer

	draw := func(obj *metadata.RenderObject) {
		if obj.Material != lastMaterial {
			lastMaterial = obj.Material
			if obj.Material.Pipeline != lastPipeline {
				lastPipeline = obj.Material.Pipeline
				r.backend.CmdBindPipeline(cmd, metadata.PipelineBindPointGraphics, lastPipeline.Pipeline)
				r.backend.CmdBindDescriptorSets(cmd, metadata.PipelineBindPointGraphics, lastPipeline.Layout, 0, []metadata.DescriptorSet{globalDescriptor})
				r.backend.CmdSetViewport(cmd, r.drawExtent)
				r.backend.CmdSetScissor(cmd, r.drawExtent)
			}
			r.backend.CmdBindDescriptorSets(cmd, metadata.PipelineBindPointGraphics, lastPipeline.Layout, 1, []metadata.DescriptorSet{obj.Material.MaterialSet})
		}
		if obj.IndexBuffer != lastIndexBuffer {
			lastIndexBuffer = obj.IndexBuffer
			r.backend.CmdBindIndexBuffer(cmd, obj.IndexBuffer, 0)
		}

		pushConstants := metadata.GPUDrawPushConstants{
			WorldMatrix:  obj.Transform,
			VertexBuffer: obj.VertexBufferAddress,
		}
		r.backend.CmdPushConstants(cmd, lastPipeline.Layout, metadata.ShaderStageVertex, 0, metadata.AsBytes(&pushConstants))
		r.backend.CmdDrawIndexed(cmd, obj.IndexCount, 1, obj.FirstIndex, 0, 0)

		r.stats.DrawcallCount++
		r.stats.TriangleCount += int(obj.IndexCount / 3)
	}

	for _, i := range order {
		draw(&r.drawCommands.OpaqueSurfaces[i])
	}
	for i := range r.drawCommands.TransparentSurfaces {
		draw(&r.drawCommands.TransparentSurfaces[i])
	}

	r.backend.CmdEndRendering(cmd)

	r.drawCommands.Clear()
	r.stats.MeshDrawTime = float64(time.Since(start).Microseconds()) / 1000.0
	return nil
}

// validateDrawContext rejects render objects the draw loop cannot bind.
func validateDrawContext(ctx *metadata.DrawContext) error {
	for i := range ctx.OpaqueSurfaces {
		if ctx.OpaqueSurfaces[i].Material == nil || ctx.OpaqueSurfaces[i].Material.Pipeline == nil {
			return errors.Newf("opaque render object %d has no material pipeline", i)
		}
	}
	for i := range ctx.TransparentSurfaces {
		if ctx.TransparentSurfaces[i].Material == nil || ctx.TransparentSurfaces[i].Material.Pipeline == nil {
			return errors.Newf("transparent render object %d has no material pipeline", i)
		}
	}
	return nil
}
