package descriptors

import (
	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

const (
	growthFactor   = 1.5
	MaxSetsPerPool = 4092
)

/**
 * @brief Descriptor allocator that adds pools on demand. Every new pool is
 * 1.5 times larger than the previous one, up to MaxSetsPerPool sets.
 * Pools that reported exhaustion are parked in the full list until the
 * next ClearPools.
 */
type GrowableAllocator struct {
	ratios      []PoolSizeRatio
	fullPools   []metadata.DescriptorPool
	readyPools  []metadata.DescriptorPool
	setsPerPool uint32
}

func (g *GrowableAllocator) Init(device Device, initialSets uint32, ratios []PoolSizeRatio) error {
	g.ratios = append(g.ratios[:0], ratios...)

	pool, err := g.createPool(device, initialSets)
	if err != nil {
		return err
	}
	g.setsPerPool = nextPoolSize(initialSets)
	g.readyPools = append(g.readyPools, pool)
	return nil
}

func nextPoolSize(current uint32) uint32 {
	return min(uint32(float64(current)*growthFactor), MaxSetsPerPool)
}

// ClearPools resets every pool and makes all of them ready again.
func (g *GrowableAllocator) ClearPools(device Device) error {
	for _, pool := range g.readyPools {
		if err := device.ResetDescriptorPool(pool); err != nil {
			return errors.Wrap(err, "failed to reset descriptor pool")
		}
	}
	for _, pool := range g.fullPools {
		if err := device.ResetDescriptorPool(pool); err != nil {
			return errors.Wrap(err, "failed to reset descriptor pool")
		}
		g.readyPools = append(g.readyPools, pool)
	}
	g.fullPools = g.fullPools[:0]
	return nil
}

func (g *GrowableAllocator) DestroyPools(device Device) {
	for _, pool := range g.readyPools {
		device.DestroyDescriptorPool(pool)
	}
	for _, pool := range g.fullPools {
		device.DestroyDescriptorPool(pool)
	}
	g.readyPools = nil
	g.fullPools = nil
}

// Allocate returns a set for layout, moving to a fresh pool once if the current
// one is out of memory or fragmented. A second failure is fatal.
func (g *GrowableAllocator) Allocate(device Device, layout metadata.DescriptorSetLayout) (metadata.DescriptorSet, error) {
	pool, err := g.getPool(device)
	if err != nil {
		return 0, err
	}

	set, err := device.AllocateDescriptorSet(pool, layout)
	if errors.Is(err, metadata.ErrOutOfPoolMemory) || errors.Is(err, metadata.ErrFragmentedPool) {
		g.fullPools = append(g.fullPools, pool)

		pool, err = g.getPool(device)
		if err != nil {
			return 0, err
		}
		set, err = device.AllocateDescriptorSet(pool, layout)
	}
	if err != nil {
		err = errors.Wrap(err, "descriptor set allocation failed after growing")
		core.LogError(err.Error())
		return 0, core.Fatal(err)
	}

	g.readyPools = append(g.readyPools, pool)
	return set, nil
}

func (g *GrowableAllocator) getPool(device Device) (metadata.DescriptorPool, error) {
	if n := len(g.readyPools); n > 0 {
		pool := g.readyPools[n-1]
		g.readyPools = g.readyPools[:n-1]
		return pool, nil
	}

	pool, err := g.createPool(device, g.setsPerPool)
	if err != nil {
		return 0, err
	}
	g.setsPerPool = nextPoolSize(g.setsPerPool)
	return pool, nil
}

func (g *GrowableAllocator) createPool(device Device, setCount uint32) (metadata.DescriptorPool, error) {
	pool, err := device.CreateDescriptorPool(setCount, poolSizes(setCount, g.ratios))
	if err != nil {
		err = errors.Wrapf(err, "failed to create descriptor pool of %d sets", setCount)
		core.LogError(err.Error())
		return 0, core.Fatal(err)
	}
	core.LogDebug("descriptor pool created with %d sets", setCount)
	return pool, nil
}

func (g *GrowableAllocator) PoolCount() int {
	return len(g.readyPools) + len(g.fullPools)
}

func (g *GrowableAllocator) ReadyCount() int {
	return len(g.readyPools)
}

func (g *GrowableAllocator) FullCount() int {
	return len(g.fullPools)
}

// SetsPerPool is the size the next created pool will have.
func (g *GrowableAllocator) SetsPerPool() uint32 {
	return g.setsPerPool
}
