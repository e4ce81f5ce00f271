package metadata

import "github.com/cockroachdb/errors"

// Errors returned by renderer backends. They are compared with errors.Is.
var (
	// ErrOutOfDate means the swapchain no longer matches the surface.
	ErrOutOfDate = errors.New("swapchain out of date")
	// ErrOutOfPoolMemory means a descriptor pool has no room for another set.
	ErrOutOfPoolMemory = errors.New("descriptor pool out of memory")
	// ErrFragmentedPool means a descriptor pool is too fragmented to allocate from.
	ErrFragmentedPool = errors.New("descriptor pool fragmented")
	// ErrTimeout means a fence or acquire wait did not complete in time.
	ErrTimeout = errors.New("wait timed out")
	// ErrDescriptorPoolExhausted is returned by the fixed descriptor allocator.
	ErrDescriptorPoolExhausted = errors.New("descriptor pool exhausted")
)
