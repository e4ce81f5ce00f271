package renderer

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/lumen/engine/containers"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

/**
 * @brief Owns the swapchain, its image views and one ready-for-present
 * semaphore per swapchain image. Recreating the swapchain keeps the
 * semaphores, new ones are only added when the image count grows.
 */
type SwapchainManager struct {
	backend  Backend
	deletion *containers.DeletionQueue

	info            metadata.SwapchainInfo
	readyForPresent []metadata.Semaphore
}

func NewSwapchainManager(backend Backend, deletion *containers.DeletionQueue) *SwapchainManager {
	return &SwapchainManager{
		backend:  backend,
		deletion: deletion,
	}
}

func (s *SwapchainManager) Create(width, height uint32) error {
	info, err := s.backend.CreateSwapchain(width, height)
	if err != nil {
		err = errors.Wrapf(err, "failed to create swapchain %dx%d", width, height)
		core.LogError(err.Error())
		return core.Fatal(err)
	}
	s.info = info

	for len(s.readyForPresent) < len(info.Images) {
		semaphore, err := s.backend.CreateSemaphore()
		if err != nil {
			return core.Fatal(errors.Wrap(err, "failed to create present semaphore"))
		}
		s.readyForPresent = append(s.readyForPresent, semaphore)
		s.deletion.Push(func() {
			s.backend.DestroySemaphore(semaphore)
		})
	}

	core.LogDebug("swapchain created: %dx%d, %d images", info.Extent.Width, info.Extent.Height, len(info.Images))
	return nil
}

// Destroy releases the image views and the swapchain. Semaphores stay alive.
func (s *SwapchainManager) Destroy() {
	if s.info.Handle == 0 {
		return
	}
	for _, view := range s.info.Views {
		s.backend.DestroyImageView(view)
	}
	s.backend.DestroySwapchain(s.info.Handle)
	s.info = metadata.SwapchainInfo{}
}

// Resize rebuilds the swapchain for the new window size.
func (s *SwapchainManager) Resize(width, height uint32) error {
	if err := s.backend.WaitIdle(); err != nil {
		return core.Fatal(errors.Wrap(err, "wait idle before swapchain resize"))
	}
	s.Destroy()
	return s.Create(width, height)
}

// Acquire returns the index of the next image. metadata.ErrOutOfDate is
// returned unchanged, every other failure is fatal.
func (s *SwapchainManager) Acquire(timeout time.Duration, signal metadata.Semaphore) (uint32, error) {
	index, err := s.backend.AcquireNextImage(s.info.Handle, timeout, signal)
	if err != nil {
		if errors.Is(err, metadata.ErrOutOfDate) {
			return 0, err
		}
		err = errors.Wrap(err, "failed to acquire swapchain image")
		core.LogError(err.Error())
		return 0, core.Fatal(err)
	}
	return index, nil
}

func (s *SwapchainManager) Present(imageIndex uint32, wait metadata.Semaphore) error {
	err := s.backend.Present(s.info.Handle, imageIndex, wait)
	if err != nil {
		if errors.Is(err, metadata.ErrOutOfDate) {
			return err
		}
		err = errors.Wrap(err, "failed to present swapchain image")
		core.LogError(err.Error())
		return core.Fatal(err)
	}
	return nil
}

func (s *SwapchainManager) Info() metadata.SwapchainInfo {
	return s.info
}

func (s *SwapchainManager) Extent() metadata.Extent2D {
	return s.info.Extent
}

func (s *SwapchainManager) ImageCount() int {
	return len(s.info.Images)
}

func (s *SwapchainManager) Image(index uint32) metadata.Image {
	return s.info.Images[index]
}

func (s *SwapchainManager) View(index uint32) metadata.ImageView {
	return s.info.Views[index]
}

// PresentSemaphore returns the semaphore signaled when rendering to image index completes.
func (s *SwapchainManager) PresentSemaphore(index uint32) metadata.Semaphore {
	return s.readyForPresent[index]
}

func (s *SwapchainManager) PresentSemaphoreCount() int {
	return len(s.readyForPresent)
}
