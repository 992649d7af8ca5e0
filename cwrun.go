// Package cwrun runs a shell command inside a Docker container and ships the
// container's output to AWS CloudWatch Logs through Docker's built-in awslogs
// logging driver. Log batching, retry and delivery are entirely the driver's
// job; this package only builds the right invocation, stays attached to the
// container and relays termination signals.
package cwrun

import (
	"github.com/streamingfast/logging"
)

var zlog, _ = logging.PackageLogger("cwrun", "github.com/cwrun/cwrun")
