package vulkan

import (
	"math"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistrySharesHandleCounter(t *testing.T) {
	var counter atomic.Uint64
	fences := newRegistry[string](&counter)
	semaphores := newRegistry[int](&counter)

	a := fences.add("a")
	b := semaphores.add(7)
	c := fences.add("c")

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, b, c)
	assert.NotZero(t, a)

	v, ok := fences.get(c)
	require.True(t, ok)
	assert.Equal(t, "c", v)

	_, ok = fences.get(b)
	assert.False(t, ok, "handles are not shared between registries")
	assert.Equal(t, 7, semaphores.must(b))
	assert.Equal(t, 0, semaphores.must(a))
}

func TestRegistryRemove(t *testing.T) {
	var counter atomic.Uint64
	r := newRegistry[int](&counter)
	h := r.add(1)

	v, ok := r.remove(h)
	require.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = r.remove(h)
	assert.False(t, ok)
	assert.Equal(t, 0, r.len())
}

func TestRegistryRemoveWhere(t *testing.T) {
	var counter atomic.Uint64
	r := newRegistry[VulkanDescriptorSet](&counter)
	r.add(VulkanDescriptorSet{Pool: 1})
	r.add(VulkanDescriptorSet{Pool: 2})
	keep := r.add(VulkanDescriptorSet{Pool: 2})
	r.add(VulkanDescriptorSet{Pool: 1})

	removed := r.removeWhere(func(s VulkanDescriptorSet) bool { return s.Pool == 1 })
	assert.Len(t, removed, 2)
	assert.Equal(t, 2, r.len())

	set, ok := r.get(keep)
	require.True(t, ok)
	assert.Equal(t, metadata.DescriptorPool(2), set.Pool)

	assert.Len(t, r.drain(), 2)
	assert.Equal(t, 0, r.len())
}

func TestRegistryConcurrentAdd(t *testing.T) {
	var counter atomic.Uint64
	r := newRegistry[int](&counter)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.add(i)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1600, r.len())
	assert.Equal(t, uint64(1600), counter.Load())
}

func TestResultErrorMarksSentinels(t *testing.T) {
	assert.NoError(t, resultError(vk.Success, "op"))

	tests := []struct {
		result vk.Result
		target error
	}{
		{vk.ErrorOutOfDate, metadata.ErrOutOfDate},
		{vk.Suboptimal, metadata.ErrOutOfDate},
		{vk.ErrorOutOfPoolMemory, metadata.ErrOutOfPoolMemory},
		{vk.ErrorFragmentedPool, metadata.ErrFragmentedPool},
		{vk.Timeout, metadata.ErrTimeout},
	}
	for _, tt := range tests {
		err := resultError(tt.result, "vkOp")
		require.Error(t, err)
		assert.True(t, errors.Is(err, tt.target), "result %d", tt.result)
		assert.Contains(t, err.Error(), "vkOp")
	}

	err := resultError(vk.ErrorDeviceLost, "vkQueueSubmit")
	require.Error(t, err)
	assert.False(t, errors.Is(err, metadata.ErrOutOfDate))
	assert.Contains(t, err.Error(), "VK_ERROR_DEVICE_LOST")
}

func TestVulkanResultIsSuccess(t *testing.T) {
	assert.True(t, VulkanResultIsSuccess(vk.Success))
	assert.True(t, VulkanResultIsSuccess(vk.Suboptimal))
	assert.False(t, VulkanResultIsSuccess(vk.ErrorOutOfDeviceMemory))
}

func TestSafeStrings(t *testing.T) {
	assert.Equal(t, "\x00", VulkanSafeString(""))
	assert.Equal(t, "main\x00", VulkanSafeString("main"))
	assert.Equal(t, "main\x00", VulkanSafeString("main\x00"))

	in := []string{"a", "b\x00"}
	out := VulkanSafeStrings(in)
	assert.Equal(t, []string{"a\x00", "b\x00"}, out)
	assert.Equal(t, "a", in[0], "input is not modified")
}

func TestCString(t *testing.T) {
	name := make([]byte, 256)
	copy(name, "VK_KHR_swapchain")
	assert.Equal(t, "VK_KHR_swapchain", cString(name))
	assert.Equal(t, "abc", cString([]byte("abc")))
}

func TestChooseSurfaceFormat(t *testing.T) {
	preferred := vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	other := vk.SurfaceFormat{Format: vk.FormatR8g8b8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear}

	assert.Equal(t, preferred, chooseSurfaceFormat([]vk.SurfaceFormat{other, preferred}))
	assert.Equal(t, other, chooseSurfaceFormat([]vk.SurfaceFormat{other}))
}

func TestChoosePresentMode(t *testing.T) {
	modes := []vk.PresentMode{vk.PresentModeImmediate, vk.PresentModeMailbox, vk.PresentModeFifo}
	assert.Equal(t, vk.PresentModeFifo, choosePresentMode(modes, true))
	assert.Equal(t, vk.PresentModeMailbox, choosePresentMode(modes, false))
	assert.Equal(t, vk.PresentModeFifo, choosePresentMode([]vk.PresentMode{vk.PresentModeFifo}, false))
}

func TestChooseExtent(t *testing.T) {
	fixed := vk.SurfaceCapabilities{CurrentExtent: vk.Extent2D{Width: 800, Height: 600}}
	assert.Equal(t, vk.Extent2D{Width: 800, Height: 600}, chooseExtent(fixed, 1920, 1080))

	free := vk.SurfaceCapabilities{
		CurrentExtent:  vk.Extent2D{Width: math.MaxUint32, Height: math.MaxUint32},
		MinImageExtent: vk.Extent2D{Width: 64, Height: 64},
		MaxImageExtent: vk.Extent2D{Width: 1024, Height: 1024},
	}
	assert.Equal(t, vk.Extent2D{Width: 1024, Height: 64}, chooseExtent(free, 4000, 10))
	assert.Equal(t, vk.Extent2D{Width: 300, Height: 200}, chooseExtent(free, 300, 200))
}

func TestAspects(t *testing.T) {
	assert.Equal(t, vk.ImageAspectFlags(vk.ImageAspectDepthBit), aspectFor(vk.FormatD32Sfloat))
	assert.Equal(t, vk.ImageAspectFlags(vk.ImageAspectColorBit), aspectFor(vk.FormatR16g16b16a16Sfloat))
	assert.Equal(t, vk.ImageAspectFlags(vk.ImageAspectDepthBit|vk.ImageAspectStencilBit), aspectFor(vk.FormatD24UnormS8Uint))

	assert.Equal(t, vk.ImageAspectFlags(vk.ImageAspectDepthBit),
		aspectForLayout(vk.FormatD24UnormS8Uint, metadata.ImageLayoutDepthAttachmentOptimal))
	assert.Equal(t, vk.ImageAspectFlags(vk.ImageAspectColorBit),
		aspectForLayout(vk.FormatB8g8r8a8Unorm, metadata.ImageLayoutPresentSrc))
}

func TestImageLayoutConversion(t *testing.T) {
	assert.Equal(t, vk.ImageLayoutDepthStencilAttachmentOptimal, toVkImageLayout(metadata.ImageLayoutDepthAttachmentOptimal))
	assert.Equal(t, vk.ImageLayoutPresentSrc, toVkImageLayout(metadata.ImageLayoutPresentSrc))
	assert.Equal(t, vk.ImageLayoutGeneral, toVkImageLayout(metadata.ImageLayoutGeneral))
	assert.Equal(t, vk.ImageLayoutTransferDstOptimal, toVkImageLayout(metadata.ImageLayoutTransferDstOptimal))
}

func TestBlendAttachment(t *testing.T) {
	opaque := blendAttachment(metadata.BlendModeNone)
	assert.Equal(t, vk.Bool32(vk.False), opaque.BlendEnable)

	additive := blendAttachment(metadata.BlendModeAdditive)
	assert.Equal(t, vk.Bool32(vk.True), additive.BlendEnable)
	assert.Equal(t, vk.BlendFactorOne, additive.DstColorBlendFactor)

	alpha := blendAttachment(metadata.BlendModeAlpha)
	assert.Equal(t, vk.BlendFactorSrcAlpha, alpha.SrcColorBlendFactor)
	assert.Equal(t, vk.BlendFactorOneMinusSrcAlpha, alpha.DstColorBlendFactor)
}

func TestLockPoolGroupsAreIndependent(t *testing.T) {
	pool := NewVulkanLockPool()
	pool.SetQueueFamily(0)

	err := pool.SafeCall(ResourceManagement, func() error {
		// a different group can be taken while one is held
		return pool.SafeCall(PipelineManagement, func() error {
			return pool.SafeQueueCall(0, func() error { return nil })
		})
	})
	assert.NoError(t, err)

	sentinel := errors.New("boom")
	assert.ErrorIs(t, pool.SafeCall(DescriptorManagement, func() error { return sentinel }), sentinel)
}
