// Package descriptors builds descriptor set layouts, hands out descriptor
// sets from pools and batches descriptor writes.
package descriptors

import "github.com/spaghettifunk/lumen/engine/renderer/metadata"

// Device is the part of the renderer backend that owns descriptor objects.
type Device interface {
	CreateDescriptorSetLayout(bindings []metadata.DescriptorBinding) (metadata.DescriptorSetLayout, error)
	DestroyDescriptorSetLayout(layout metadata.DescriptorSetLayout)
	CreateDescriptorPool(maxSets uint32, sizes []metadata.PoolSize) (metadata.DescriptorPool, error)
	ResetDescriptorPool(pool metadata.DescriptorPool) error
	DestroyDescriptorPool(pool metadata.DescriptorPool)
	AllocateDescriptorSet(pool metadata.DescriptorPool, layout metadata.DescriptorSetLayout) (metadata.DescriptorSet, error)
	UpdateDescriptorSet(set metadata.DescriptorSet, writes []metadata.DescriptorWrite)
}

// PoolSizeRatio is the number of descriptors of Type reserved per set.
type PoolSizeRatio struct {
	Type  metadata.DescriptorType
	Ratio float32
}

func poolSizes(setCount uint32, ratios []PoolSizeRatio) []metadata.PoolSize {
	sizes := make([]metadata.PoolSize, 0, len(ratios))
	for _, r := range ratios {
		sizes = append(sizes, metadata.PoolSize{
			Type:  r.Type,
			Count: uint32(r.Ratio * float32(setCount)),
		})
	}
	return sizes
}

type LayoutBuilder struct {
	bindings []metadata.DescriptorBinding
}

func (b *LayoutBuilder) AddBinding(binding uint32, descriptorType metadata.DescriptorType) *LayoutBuilder {
	b.bindings = append(b.bindings, metadata.DescriptorBinding{
		Binding: binding,
		Type:    descriptorType,
		Count:   1,
	})
	return b
}

func (b *LayoutBuilder) Clear() {
	b.bindings = b.bindings[:0]
}

// Build creates the layout with stages OR-ed into every binding.
func (b *LayoutBuilder) Build(device Device, stages metadata.ShaderStage) (metadata.DescriptorSetLayout, error) {
	bindings := make([]metadata.DescriptorBinding, len(b.bindings))
	for i, binding := range b.bindings {
		binding.Stages |= stages
		bindings[i] = binding
	}
	return device.CreateDescriptorSetLayout(bindings)
}

// SetAllocator is satisfied by both Allocator and GrowableAllocator.
type SetAllocator interface {
	Allocate(device Device, layout metadata.DescriptorSetLayout) (metadata.DescriptorSet, error)
}
