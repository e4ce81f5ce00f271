package renderer

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/lumen/engine/renderer/descriptors"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

const checkerboardSize = 16

var defaultMaterialRatios = []descriptors.PoolSizeRatio{
	{Type: metadata.DescriptorTypeUniformBuffer, Ratio: 1},
	{Type: metadata.DescriptorTypeCombinedImageSampler, Ratio: 2},
}

// packUnorm4x8 packs a color into one RGBA8 texel.
func packUnorm4x8(c mgl32.Vec4) [4]byte {
	var out [4]byte
	for i := 0; i < 4; i++ {
		v := min(max(c[i], 0), 1)
		out[i] = byte(v*255 + 0.5)
	}
	return out
}

func (r *Renderer) createSolidImage(color mgl32.Vec4) (metadata.AllocatedImage, error) {
	texel := packUnorm4x8(color)
	return r.CreateImageWithData(texel[:], metadata.Extent3D{Width: 1, Height: 1, Depth: 1},
		metadata.FormatR8G8B8A8Unorm, metadata.ImageUsageSampled, false)
}

// checkerboardPixels returns a size by size magenta and black checkerboard.
func checkerboardPixels(size int) []byte {
	magenta := packUnorm4x8(mgl32.Vec4{1, 0, 1, 1})
	black := packUnorm4x8(mgl32.Vec4{0, 0, 0, 0})
	pixels := make([]byte, 0, size*size*4)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if (x%2)^(y%2) == 1 {
				pixels = append(pixels, magenta[:]...)
			} else {
				pixels = append(pixels, black[:]...)
			}
		}
	}
	return pixels
}

func (r *Renderer) initDefaultData() error {
	var err error
	d := &r.defaults

	if d.WhiteImage, err = r.createSolidImage(mgl32.Vec4{1, 1, 1, 1}); err != nil {
		return err
	}
	if d.GreyImage, err = r.createSolidImage(mgl32.Vec4{0.66, 0.66, 0.66, 1}); err != nil {
		return err
	}
	if d.BlackImage, err = r.createSolidImage(mgl32.Vec4{0, 0, 0, 0}); err != nil {
		return err
	}
	d.ErrorCheckerboardImage, err = r.CreateImageWithData(checkerboardPixels(checkerboardSize),
		metadata.Extent3D{Width: checkerboardSize, Height: checkerboardSize, Depth: 1},
		metadata.FormatR8G8B8A8Unorm, metadata.ImageUsageSampled, false)
	if err != nil {
		return err
	}

	if d.SamplerNearest, err = r.CreateSampler(metadata.SamplerConfig{
		MagFilter: metadata.FilterNearest,
		MinFilter: metadata.FilterNearest,
	}); err != nil {
		return err
	}
	if d.SamplerLinear, err = r.CreateSampler(metadata.SamplerConfig{
		MagFilter: metadata.FilterLinear,
		MinFilter: metadata.FilterLinear,
	}); err != nil {
		return err
	}

	images := []metadata.AllocatedImage{d.WhiteImage, d.GreyImage, d.BlackImage, d.ErrorCheckerboardImage}
	samplers := []metadata.Sampler{d.SamplerNearest, d.SamplerLinear}
	r.mainDeletionQueue.Push(func() {
		for _, s := range samplers {
			r.DestroySampler(s)
		}
		for _, img := range images {
			r.DestroyImage(img)
		}
	})

	// default material: white texture with neutral factors
	constants, err := r.CreateBuffer(uint64(unsafe.Sizeof(metadata.MaterialConstants{})), metadata.BufferUsageUniformBuffer, metadata.MemoryUsageCpuToGpu)
	if err != nil {
		return err
	}
	r.mainDeletionQueue.Push(func() {
		r.DestroyBuffer(constants)
	})
	materialConstants := metadata.MaterialConstants{
		ColorFactors:      mgl32.Vec4{1, 1, 1, 1},
		MetalRoughFactors: mgl32.Vec4{1, 0.5, 0, 0},
	}
	copy(constants.Mapped, metadata.AsBytes(&materialConstants))

	if err := r.defaultMaterialDescriptors.Init(r.backend, 1, defaultMaterialRatios); err != nil {
		return err
	}
	r.mainDeletionQueue.Push(func() {
		r.defaultMaterialDescriptors.DestroyPools(r.backend)
	})

	instance, err := r.WriteMaterial(metadata.MaterialPassMainColor, metadata.MaterialResources{
		ColorImage:        d.WhiteImage,
		ColorSampler:      d.SamplerLinear,
		MetalRoughImage:   d.WhiteImage,
		MetalRoughSampler: d.SamplerLinear,
		DataBuffer:        constants.Buffer,
		DataBufferOffset:  0,
	}, &r.defaultMaterialDescriptors)
	if err != nil {
		return err
	}
	d.DefaultMaterial = metadata.GLTFMaterial{
		Name: metadata.DefaultMaterialName,
		Data: instance,
	}
	return nil
}
