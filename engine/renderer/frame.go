package renderer

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/lumen/engine/containers"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/descriptors"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

// FrameOverlap is the number of frames the CPU may record ahead of the GPU.
const FrameOverlap = 2

const frameInitialSets = 1000

var frameDescriptorRatios = []descriptors.PoolSizeRatio{
	{Type: metadata.DescriptorTypeStorageImage, Ratio: 3},
	{Type: metadata.DescriptorTypeStorageBuffer, Ratio: 3},
	{Type: metadata.DescriptorTypeUniformBuffer, Ratio: 3},
	{Type: metadata.DescriptorTypeCombinedImageSampler, Ratio: 4},
}

type FrameState uint8

const (
	FrameIdle FrameState = iota
	FrameRecording
	FrameSubmitted
)

func (s FrameState) String() string {
	switch s {
	case FrameIdle:
		return "idle"
	case FrameRecording:
		return "recording"
	case FrameSubmitted:
		return "submitted"
	default:
		return "unknown"
	}
}

/**
 * @brief Per-frame resources. A slot is reused every FrameOverlap frames,
 * after waiting on its own RenderFence.
 */
type FrameData struct {
	CommandPool       metadata.CommandPool
	MainCommandBuffer metadata.CommandBuffer

	// Signaled by acquire, waited on by the submit.
	SwapchainSemaphore metadata.Semaphore
	// The present semaphore of the image acquired this frame. Owned by the swapchain manager.
	RenderSemaphore metadata.Semaphore
	RenderFence     metadata.Fence

	DeletionQueue    containers.DeletionQueue
	FrameDescriptors descriptors.GrowableAllocator

	State FrameState
}

type FrameRing struct {
	backend     Backend
	frames      [FrameOverlap]FrameData
	frameNumber uint64
}

func (fr *FrameRing) Init(backend Backend) error {
	fr.backend = backend
	for i := range fr.frames {
		frame := &fr.frames[i]

		pool, err := backend.CreateCommandPool()
		if err != nil {
			return core.Fatal(errors.Wrapf(err, "frame %d: failed to create command pool", i))
		}
		frame.CommandPool = pool

		cmd, err := backend.AllocateCommandBuffer(pool)
		if err != nil {
			return core.Fatal(errors.Wrapf(err, "frame %d: failed to allocate command buffer", i))
		}
		frame.MainCommandBuffer = cmd

		// signaled so the first wait on the slot returns immediately
		fence, err := backend.CreateFence(true)
		if err != nil {
			return core.Fatal(errors.Wrapf(err, "frame %d: failed to create fence", i))
		}
		frame.RenderFence = fence

		semaphore, err := backend.CreateSemaphore()
		if err != nil {
			return core.Fatal(errors.Wrapf(err, "frame %d: failed to create semaphore", i))
		}
		frame.SwapchainSemaphore = semaphore

		if err := frame.FrameDescriptors.Init(backend, frameInitialSets, frameDescriptorRatios); err != nil {
			return err
		}
		frame.State = FrameIdle
	}
	return nil
}

// Current returns the slot of the frame being prepared.
func (fr *FrameRing) Current() *FrameData {
	return &fr.frames[fr.frameNumber%FrameOverlap]
}

func (fr *FrameRing) Frame(i int) *FrameData {
	return &fr.frames[i]
}

func (fr *FrameRing) FrameNumber() uint64 {
	return fr.frameNumber
}

func (fr *FrameRing) Advance() {
	fr.frameNumber++
}

// BeginFrame waits until the GPU is done with the current slot and releases
// everything the slot deferred during its previous use.
func (fr *FrameRing) BeginFrame(timeout time.Duration) (*FrameData, error) {
	frame := fr.Current()
	if err := fr.backend.WaitForFence(frame.RenderFence, timeout); err != nil {
		err = errors.Wrapf(err, "frame %d: render fence wait failed", fr.frameNumber)
		core.LogError(err.Error())
		return nil, core.Fatal(err)
	}
	frame.State = FrameIdle

	frame.DeletionQueue.Flush()
	if err := frame.FrameDescriptors.ClearPools(fr.backend); err != nil {
		return nil, core.Fatal(err)
	}
	return frame, nil
}

func (fr *FrameRing) StartRecording(frame *FrameData) error {
	if err := fr.backend.ResetFence(frame.RenderFence); err != nil {
		return core.Fatal(errors.Wrap(err, "failed to reset render fence"))
	}
	if err := fr.backend.ResetCommandBuffer(frame.MainCommandBuffer); err != nil {
		return core.Fatal(errors.Wrap(err, "failed to reset command buffer"))
	}
	if err := fr.backend.BeginCommandBuffer(frame.MainCommandBuffer, true); err != nil {
		return core.Fatal(errors.Wrap(err, "failed to begin command buffer"))
	}
	frame.State = FrameRecording
	return nil
}

// EndFrame closes the command buffer and submits it. The frame fence is
// signaled when the GPU finishes.
func (fr *FrameRing) EndFrame(frame *FrameData, wait, signal metadata.Semaphore) error {
	if err := fr.backend.EndCommandBuffer(frame.MainCommandBuffer); err != nil {
		return core.Fatal(errors.Wrap(err, "failed to end command buffer"))
	}
	err := fr.backend.Submit(metadata.SubmitInfo{
		CommandBuffer:   frame.MainCommandBuffer,
		WaitSemaphore:   wait,
		WaitStage:       metadata.PipelineStageColorAttachmentOutput,
		SignalSemaphore: signal,
	}, frame.RenderFence)
	if err != nil {
		err = errors.Wrap(err, "failed to submit frame")
		core.LogError(err.Error())
		return core.Fatal(err)
	}
	frame.State = FrameSubmitted
	return nil
}

// Destroy releases every per-frame object. The GPU must be idle.
func (fr *FrameRing) Destroy() {
	if fr.backend == nil {
		return
	}
	for i := range fr.frames {
		frame := &fr.frames[i]
		if frame.CommandPool != 0 {
			fr.backend.DestroyCommandPool(frame.CommandPool)
		}
		if frame.RenderFence != 0 {
			fr.backend.DestroyFence(frame.RenderFence)
		}
		if frame.SwapchainSemaphore != 0 {
			fr.backend.DestroySemaphore(frame.SwapchainSemaphore)
		}
		frame.DeletionQueue.Flush()
		frame.FrameDescriptors.DestroyPools(fr.backend)
		*frame = FrameData{}
	}
}
