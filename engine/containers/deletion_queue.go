package containers

/**
 * @brief Holds cleanup closures and runs them newest first.
 * Resources are destroyed in the reverse order they were created, so an object
 * registered after its dependencies is released before them.
 */
type DeletionQueue struct {
	deletors []func()
}

func NewDeletionQueue() *DeletionQueue {
	return &DeletionQueue{}
}

// Push registers fn to run on the next Flush.
func (dq *DeletionQueue) Push(fn func()) {
	if fn == nil {
		return
	}
	dq.deletors = append(dq.deletors, fn)
}

// Flush runs every registered closure in reverse order and empties the queue.
// Closures pushed while flushing run in the next Flush.
func (dq *DeletionQueue) Flush() {
	pending := dq.deletors
	dq.deletors = nil
	for i := len(pending) - 1; i >= 0; i-- {
		pending[i]()
	}
}

func (dq *DeletionQueue) Len() int {
	return len(dq.deletors)
}
