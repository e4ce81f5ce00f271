package core

import "github.com/cockroachdb/errors"

var (
	ErrSwapchainBooting     = errors.New("swapchain resized or recreated, booting")
	ErrEngineAlreadyRunning = errors.New("a renderer instance is already running")
	ErrUnknown              = errors.New("unknown")

	// ErrFatal marks errors after which the process cannot continue.
	ErrFatal = errors.New("fatal")
)

// Fatal marks err as unrecoverable. A nil err stays nil.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(err, ErrFatal)
}

// Fatalf builds a new error and marks it as unrecoverable.
func Fatalf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrFatal)
}

func IsFatal(err error) bool {
	return errors.Is(err, ErrFatal)
}
