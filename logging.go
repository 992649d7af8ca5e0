package cwrun

import (
	"sync"

	"github.com/streamingfast/logging"
	"go.uber.org/zap"
)

var setupLoggingOnce sync.Once

// SetupLogging instantiates the shared loggers. Commands call this before
// doing any work; repeated calls are no-ops.
func SetupLogging() {
	setupLoggingOnce.Do(func() {
		logging.InstantiateLoggers(logging.WithDefaultLevel(zap.WarnLevel))
	})
}
