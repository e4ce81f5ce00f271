package renderer

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

// practically unbounded
const immediateTimeout = 9999999999 * time.Nanosecond

// ImmediateSubmitter records and runs one-off command buffers synchronously,
// for uploads that must finish before the caller continues.
type ImmediateSubmitter struct {
	backend Backend
	pool    metadata.CommandPool
	cmd     metadata.CommandBuffer
	fence   metadata.Fence
}

func (im *ImmediateSubmitter) Init(backend Backend) error {
	im.backend = backend

	pool, err := backend.CreateCommandPool()
	if err != nil {
		return core.Fatal(errors.Wrap(err, "immediate submit: failed to create command pool"))
	}
	im.pool = pool

	cmd, err := backend.AllocateCommandBuffer(pool)
	if err != nil {
		return core.Fatal(errors.Wrap(err, "immediate submit: failed to allocate command buffer"))
	}
	im.cmd = cmd

	fence, err := backend.CreateFence(true)
	if err != nil {
		return core.Fatal(errors.Wrap(err, "immediate submit: failed to create fence"))
	}
	im.fence = fence
	return nil
}

// Submit records through fn and blocks until the GPU has executed it.
func (im *ImmediateSubmitter) Submit(fn func(cmd metadata.CommandBuffer)) error {
	if err := im.backend.ResetFence(im.fence); err != nil {
		return core.Fatal(errors.Wrap(err, "immediate submit: failed to reset fence"))
	}
	if err := im.backend.ResetCommandBuffer(im.cmd); err != nil {
		return core.Fatal(errors.Wrap(err, "immediate submit: failed to reset command buffer"))
	}
	if err := im.backend.BeginCommandBuffer(im.cmd, true); err != nil {
		return core.Fatal(errors.Wrap(err, "immediate submit: failed to begin command buffer"))
	}

	fn(im.cmd)

	if err := im.backend.EndCommandBuffer(im.cmd); err != nil {
		return core.Fatal(errors.Wrap(err, "immediate submit: failed to end command buffer"))
	}
	if err := im.backend.Submit(metadata.SubmitInfo{CommandBuffer: im.cmd}, im.fence); err != nil {
		return core.Fatal(errors.Wrap(err, "immediate submit: failed to submit"))
	}
	if err := im.backend.WaitForFence(im.fence, immediateTimeout); err != nil {
		err = errors.Wrap(err, "immediate submit: fence wait failed")
		core.LogError(err.Error())
		return core.Fatal(err)
	}
	return nil
}

func (im *ImmediateSubmitter) Destroy() {
	if im.backend == nil {
		return
	}
	im.backend.DestroyCommandPool(im.pool)
	im.backend.DestroyFence(im.fence)
	*im = ImmediateSubmitter{}
}
