package cwrun

import (
	"errors"
	"fmt"
	"time"
)

// Exit codes surfaced by the cwrun binary. When the container exits naturally
// with a non-zero status, that status is reported as-is instead.
const (
	ExitOK              = 0
	ExitInvalidArgument = 1
	ExitLaunchFailed    = 2
	ExitShutdownTimeout = 3
)

// InvalidArgumentError reports a missing or empty required launch field.
type InvalidArgumentError struct {
	Field string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument: --%s is required and must not be empty", e.Field)
}

// LaunchError reports that the container engine failed to start the container.
type LaunchError struct {
	Image string
	Err   error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("failed to launch container from image %q: %s", e.Image, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// ShutdownTimeoutError reports that the container ignored the graceful stop
// and had to be killed after the grace period.
type ShutdownTimeoutError struct {
	Container string
	Grace     time.Duration
}

func (e *ShutdownTimeoutError) Error() string {
	return fmt.Sprintf("container %s did not stop within %s, forcefully killed", e.Container, e.Grace)
}

// ExitCode maps an error to the process exit code the binary should use.
// Unrecognized errors map to ExitInvalidArgument, matching the usage-error
// default of the CLI layer.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var timeoutErr *ShutdownTimeoutError
	if errors.As(err, &timeoutErr) {
		return ExitShutdownTimeout
	}

	var launchErr *LaunchError
	if errors.As(err, &launchErr) {
		return ExitLaunchFailed
	}

	return ExitInvalidArgument
}
