package descriptors

import (
	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

// Allocator hands out sets from a single pool that never grows.
type Allocator struct {
	pool metadata.DescriptorPool
}

func (a *Allocator) InitPool(device Device, maxSets uint32, ratios []PoolSizeRatio) error {
	pool, err := device.CreateDescriptorPool(maxSets, poolSizes(maxSets, ratios))
	if err != nil {
		err = errors.Wrap(err, "failed to create descriptor pool")
		core.LogError(err.Error())
		return core.Fatal(err)
	}
	a.pool = pool
	return nil
}

func (a *Allocator) ClearDescriptors(device Device) error {
	return device.ResetDescriptorPool(a.pool)
}

func (a *Allocator) DestroyPool(device Device) {
	if a.pool == 0 {
		return
	}
	device.DestroyDescriptorPool(a.pool)
	a.pool = 0
}

// Allocate returns a set for layout. Running out of space is fatal.
func (a *Allocator) Allocate(device Device, layout metadata.DescriptorSetLayout) (metadata.DescriptorSet, error) {
	set, err := device.AllocateDescriptorSet(a.pool, layout)
	if err != nil {
		err = errors.Mark(errors.Wrap(err, "fixed descriptor pool allocation failed"), metadata.ErrDescriptorPoolExhausted)
		core.LogError(err.Error())
		return 0, core.Fatal(err)
	}
	return set, nil
}
