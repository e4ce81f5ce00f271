package renderer

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/lumen/engine/assets/loaders"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

// local workgroup size of the background shaders
const computeGroupSize = 16

type effectDefinition struct {
	name   string
	shader string
	data   metadata.ComputePushConstants
}

var backgroundEffects = []effectDefinition{
	{
		name:   "gradient",
		shader: "gradient_color.comp.spv",
		data: metadata.ComputePushConstants{
			Data1: mgl32.Vec4{1, 0, 0, 1},
			Data2: mgl32.Vec4{0, 0, 1, 1},
		},
	},
	{
		name:   "sky",
		shader: "sky.comp.spv",
		data: metadata.ComputePushConstants{
			Data1: mgl32.Vec4{0.1, 0.2, 0.4, 0.97},
		},
	},
}

// loadShaderModule reads a compiled shader from the configured shader
// filesystem. Missing or malformed shaders are fatal.
func (r *Renderer) loadShaderModule(name string) (metadata.ShaderModule, error) {
	code, err := loaders.LoadSPIRV(r.config.Shaders, name)
	if err != nil {
		core.LogError("Error when building the shader module %s: %s", name, err.Error())
		return 0, core.Fatal(err)
	}
	module, err := r.backend.CreateShaderModule(code)
	if err != nil {
		err = errors.Wrapf(err, "failed to create shader module %s", name)
		core.LogError(err.Error())
		return 0, core.Fatal(err)
	}
	return module, nil
}

func (r *Renderer) initBackgroundPipelines() error {
	layout, err := r.backend.CreatePipelineLayout(metadata.PipelineLayoutConfig{
		SetLayouts: []metadata.DescriptorSetLayout{r.drawImageDescriptorLayout},
		PushConstantRanges: []metadata.PushConstantRange{{
			Stages: metadata.ShaderStageCompute,
			Offset: 0,
			Size:   uint32(unsafe.Sizeof(metadata.ComputePushConstants{})),
		}},
	})
	if err != nil {
		return core.Fatal(errors.Wrap(err, "failed to create compute pipeline layout"))
	}
	r.mainDeletionQueue.Push(func() {
		r.backend.DestroyPipelineLayout(layout)
	})

	for _, def := range backgroundEffects {
		module, err := r.loadShaderModule(def.shader)
		if err != nil {
			return err
		}
		pipeline, err := r.backend.CreateComputePipeline(layout, module)
		r.backend.DestroyShaderModule(module)
		if err != nil {
			return core.Fatal(errors.Wrapf(err, "failed to create compute pipeline %s", def.name))
		}
		r.mainDeletionQueue.Push(func() {
			r.backend.DestroyPipeline(pipeline)
		})

		r.effects = append(r.effects, metadata.ComputeEffect{
			Name:     def.name,
			Pipeline: pipeline,
			Layout:   layout,
			Data:     def.data,
		})
	}
	r.currentEffect = min(max(r.config.Effect, 0), len(r.effects)-1)
	return nil
}

func dispatchGroups(size uint32) uint32 {
	return (size + computeGroupSize - 1) / computeGroupSize
}

func (r *Renderer) drawBackground(cmd metadata.CommandBuffer) {
	effect := &r.effects[r.currentEffect]

	r.backend.CmdBindPipeline(cmd, metadata.PipelineBindPointCompute, effect.Pipeline)
	r.backend.CmdBindDescriptorSets(cmd, metadata.PipelineBindPointCompute, effect.Layout, 0, []metadata.DescriptorSet{r.drawImageDescriptors})
	r.backend.CmdPushConstants(cmd, effect.Layout, metadata.ShaderStageCompute, 0, metadata.AsBytes(&effect.Data))
	r.backend.CmdDispatch(cmd, dispatchGroups(r.drawExtent.Width), dispatchGroups(r.drawExtent.Height), 1)
}

// Effects returns the background effects. Overlays may edit their Data in place.
func (r *Renderer) Effects() []metadata.ComputeEffect {
	return r.effects
}

func (r *Renderer) CurrentEffect() int {
	return r.currentEffect
}

func (r *Renderer) SetCurrentEffect(i int) error {
	if i < 0 || i >= len(r.effects) {
		return errors.Newf("effect index %d out of range [0, %d)", i, len(r.effects))
	}
	r.currentEffect = i
	return nil
}
