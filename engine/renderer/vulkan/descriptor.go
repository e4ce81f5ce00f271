package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

/**
 * @brief A descriptor set and the pool it was allocated from. Sets are
 * never freed one by one, they go away when their pool is reset or destroyed.
 */
type VulkanDescriptorSet struct {
	Handle vk.DescriptorSet
	Pool   metadata.DescriptorPool
}

func (vb *VulkanBackend) CreateDescriptorSetLayout(bindings []metadata.DescriptorBinding) (metadata.DescriptorSetLayout, error) {
	layoutBindings := make([]vk.DescriptorSetLayoutBinding, len(bindings))
	for i, b := range bindings {
		layoutBindings[i] = vk.DescriptorSetLayoutBinding{
			Binding:         b.Binding,
			DescriptorType:  toVkDescriptorType(b.Type),
			DescriptorCount: max(b.Count, 1),
			StageFlags:      toVkShaderStages(b.Stages),
		}
	}

	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(layoutBindings)),
		PBindings:    layoutBindings,
	}

	var layout vk.DescriptorSetLayout
	err := vb.locks.SafeCall(DescriptorManagement, func() error {
		return resultError(vk.CreateDescriptorSetLayout(vb.device(), &layoutInfo, vb.context.Allocator, &layout), "vkCreateDescriptorSetLayout")
	})
	if err != nil {
		return 0, err
	}
	return metadata.DescriptorSetLayout(vb.setLayouts.add(layout)), nil
}

func (vb *VulkanBackend) DestroyDescriptorSetLayout(handle metadata.DescriptorSetLayout) {
	if layout, ok := vb.setLayouts.remove(metadata.Handle(handle)); ok {
		vk.DestroyDescriptorSetLayout(vb.device(), layout, vb.context.Allocator)
	}
}

func (vb *VulkanBackend) CreateDescriptorPool(maxSets uint32, sizes []metadata.PoolSize) (metadata.DescriptorPool, error) {
	poolSizes := make([]vk.DescriptorPoolSize, 0, len(sizes))
	for _, s := range sizes {
		if s.Count == 0 {
			continue
		}
		poolSizes = append(poolSizes, vk.DescriptorPoolSize{
			Type:            toVkDescriptorType(s.Type),
			DescriptorCount: s.Count,
		})
	}
	if len(poolSizes) == 0 {
		return 0, errors.New("descriptor pool needs at least one non-empty pool size")
	}

	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       maxSets,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}

	var pool vk.DescriptorPool
	err := vb.locks.SafeCall(DescriptorManagement, func() error {
		return resultError(vk.CreateDescriptorPool(vb.device(), &poolInfo, vb.context.Allocator, &pool), "vkCreateDescriptorPool")
	})
	if err != nil {
		return 0, err
	}
	return metadata.DescriptorPool(vb.descriptorPools.add(pool)), nil
}

func (vb *VulkanBackend) forgetSets(pool metadata.DescriptorPool) {
	vb.descriptorSets.removeWhere(func(s VulkanDescriptorSet) bool { return s.Pool == pool })
}

// ResetDescriptorPool returns every set of the pool to it.
func (vb *VulkanBackend) ResetDescriptorPool(handle metadata.DescriptorPool) error {
	pool, ok := vb.descriptorPools.get(metadata.Handle(handle))
	if !ok {
		return errors.Newf("unknown descriptor pool %d", handle)
	}
	err := vb.locks.SafeCall(DescriptorManagement, func() error {
		return resultError(vk.ResetDescriptorPool(vb.device(), pool, 0), "vkResetDescriptorPool")
	})
	vb.forgetSets(handle)
	return err
}

func (vb *VulkanBackend) DestroyDescriptorPool(handle metadata.DescriptorPool) {
	pool, ok := vb.descriptorPools.remove(metadata.Handle(handle))
	if !ok {
		return
	}
	_ = vb.locks.SafeCall(DescriptorManagement, func() error {
		vk.DestroyDescriptorPool(vb.device(), pool, vb.context.Allocator)
		return nil
	})
	vb.forgetSets(handle)
}

// AllocateDescriptorSet returns metadata.ErrOutOfPoolMemory or
// metadata.ErrFragmentedPool when the pool is full.
func (vb *VulkanBackend) AllocateDescriptorSet(handle metadata.DescriptorPool, layout metadata.DescriptorSetLayout) (metadata.DescriptorSet, error) {
	pool, ok := vb.descriptorPools.get(metadata.Handle(handle))
	if !ok {
		return 0, errors.Newf("unknown descriptor pool %d", handle)
	}
	allocInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{vb.setLayouts.must(metadata.Handle(layout))},
	}

	sets := make([]vk.DescriptorSet, 1)
	err := vb.locks.SafeCall(DescriptorManagement, func() error {
		return resultError(vk.AllocateDescriptorSets(vb.device(), &allocInfo, &sets[0]), "vkAllocateDescriptorSets")
	})
	if err != nil {
		return 0, err
	}
	return metadata.DescriptorSet(vb.descriptorSets.add(VulkanDescriptorSet{Handle: sets[0], Pool: handle})), nil
}

func (vb *VulkanBackend) UpdateDescriptorSet(handle metadata.DescriptorSet, writes []metadata.DescriptorWrite) {
	set, ok := vb.descriptorSets.get(metadata.Handle(handle))
	if !ok || len(writes) == 0 {
		return
	}

	vkWrites := make([]vk.WriteDescriptorSet, 0, len(writes))
	for _, w := range writes {
		write := vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set.Handle,
			DstBinding:      w.Binding,
			DstArrayElement: 0,
			DescriptorCount: 1,
			DescriptorType:  toVkDescriptorType(w.Type),
		}
		switch {
		case w.Buffer != nil:
			buffer, _ := vb.buffers.get(metadata.Handle(w.Buffer.Buffer))
			if buffer == nil {
				continue
			}
			write.PBufferInfo = []vk.DescriptorBufferInfo{{
				Buffer: buffer.Handle,
				Offset: vk.DeviceSize(w.Buffer.Offset),
				Range:  vk.DeviceSize(w.Buffer.Range),
			}}
		case w.Image != nil:
			info := vk.DescriptorImageInfo{
				Sampler:     vb.samplers.must(metadata.Handle(w.Image.Sampler)),
				ImageLayout: toVkImageLayout(w.Image.Layout),
			}
			if view, ok := vb.imageViews.get(metadata.Handle(w.Image.View)); ok {
				info.ImageView = view.Handle
			}
			write.PImageInfo = []vk.DescriptorImageInfo{info}
		default:
			continue
		}
		vkWrites = append(vkWrites, write)
	}

	_ = vb.locks.SafeCall(DescriptorManagement, func() error {
		vk.UpdateDescriptorSets(vb.device(), uint32(len(vkWrites)), vkWrites, 0, nil)
		return nil
	})
}
