package cwrun

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/segmentio/ksuid"
	"go.uber.org/zap"
)

// DefaultGracePeriod is how long a container gets to exit after a graceful
// stop before it is forcefully killed.
const DefaultGracePeriod = 10 * time.Second

// killReapTimeout bounds how long we wait for the engine process to be reaped
// after a forceful kill.
const killReapTimeout = 5 * time.Second

// sigtermExitCode is what a container reports when it exits on SIGTERM.
const sigtermExitCode = 128 + int(syscall.SIGTERM)

// LaunchRequest is the validated set of parameters describing what to run and
// where to ship its logs. All fields are required.
type LaunchRequest struct {
	Image           string
	Command         string
	LogGroup        string
	LogStream       string
	AccessKeyID     string
	SecretAccessKey string
	Region          string
}

// Validate checks that every required field is present and non-empty.
func (r *LaunchRequest) Validate() error {
	fields := []struct {
		flag  string
		value string
	}{
		{"docker-image", r.Image},
		{"bash-command", r.Command},
		{"aws-cloudwatch-group", r.LogGroup},
		{"aws-cloudwatch-stream", r.LogStream},
		{"aws-access-key-id", r.AccessKeyID},
		{"aws-secret-access-key", r.SecretAccessKey},
		{"aws-region", r.Region},
	}

	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return &InvalidArgumentError{Field: f.flag}
		}
	}
	return nil
}

// LaunchOptions carries the operator-facing knobs that are not part of the
// launch request itself.
type LaunchOptions struct {
	// ContainerName pins the container name. When empty a unique name is
	// generated for every run; there is no implicit name-based reuse.
	ContainerName string

	// NamePrefix is the prefix for generated container names.
	NamePrefix string

	// GracePeriod overrides DefaultGracePeriod when positive.
	GracePeriod time.Duration

	// CreateGroup asks the awslogs driver to create the log group on demand.
	CreateGroup bool

	// Env holds extra NAME=VALUE entries for the container environment.
	Env []string

	// Keep leaves the container around after exit.
	Keep bool
}

// Launcher validates a launch request, turns it into one container-run
// invocation and stays attached until the container exits or a termination
// signal arrives.
type Launcher struct {
	engine Engine

	// signals is injectable for tests; Launch allocates one when nil.
	signals chan os.Signal
}

// NewLauncher creates a Launcher on top of the given engine.
func NewLauncher(engine Engine) *Launcher {
	return &Launcher{engine: engine}
}

// BuildRunSpec assembles the container-run invocation for a request. Exposed
// so the info command can display the exact engine call without running it.
func BuildRunSpec(req *LaunchRequest, opts LaunchOptions) RunSpec {
	name := opts.ContainerName
	if name == "" {
		name = GenerateContainerName(opts.NamePrefix)
	}

	return RunSpec{
		Name:            name,
		Image:           req.Image,
		Command:         req.Command,
		LogGroup:        req.LogGroup,
		LogStream:       req.LogStream,
		Region:          req.Region,
		CreateGroup:     opts.CreateGroup,
		AccessKeyID:     req.AccessKeyID,
		SecretAccessKey: req.SecretAccessKey,
		Env:             opts.Env,
		Keep:            opts.Keep,
	}
}

// Launch runs the request to completion. The returned int is the process exit
// code to use: the container's own exit status on a natural exit, or one of
// the Exit* codes when launching or shutting down failed.
func (l *Launcher) Launch(req *LaunchRequest, opts LaunchOptions) (int, error) {
	if err := req.Validate(); err != nil {
		return ExitInvalidArgument, err
	}

	grace := opts.GracePeriod
	if grace <= 0 {
		grace = DefaultGracePeriod
	}

	spec := BuildRunSpec(req, opts)

	sigs := l.signals
	if sigs == nil {
		sigs = make(chan os.Signal, 1)
	}
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	ctr, err := l.engine.Run(spec)
	if err != nil {
		return ExitLaunchFailed, &LaunchError{Image: req.Image, Err: err}
	}

	zlog.Info("container started",
		zap.String("name", spec.Name),
		zap.String("image", spec.Image),
		zap.String("log_group", spec.LogGroup),
		zap.String("log_stream", spec.LogStream))

	select {
	case res := <-ctr.Done():
		return finish(req.Image, res)
	case sig := <-sigs:
		zlog.Info("termination signal received, stopping container",
			zap.String("signal", sig.String()),
			zap.String("name", ctr.Name()))
		return l.shutdown(ctr, grace)
	}
}

// finish maps a natural container exit to a process exit code. Engine-level
// startup failures surface as `docker run` exit status 125.
func finish(image string, res RunResult) (int, error) {
	if res.Err != nil {
		return ExitLaunchFailed, &LaunchError{Image: image, Err: res.Err}
	}
	if res.ExitCode == dockerDaemonError {
		return ExitLaunchFailed, &LaunchError{
			Image: image,
			Err:   fmt.Errorf("container engine reported exit status %d", res.ExitCode),
		}
	}

	zlog.Info("container exited", zap.Int("exit_code", res.ExitCode))
	return res.ExitCode, nil
}

// shutdown issues exactly one graceful stop, waits out the grace period and
// escalates to exactly one forceful kill if the container is still running.
func (l *Launcher) shutdown(ctr RunningContainer, grace time.Duration) (int, error) {
	if err := l.engine.Stop(ctr.Name()); err != nil {
		zlog.Warn("graceful stop failed", zap.String("name", ctr.Name()), zap.Error(err))
	}

	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case res := <-ctr.Done():
		if res.ExitCode == 0 || res.ExitCode == sigtermExitCode {
			zlog.Info("container stopped cleanly", zap.String("name", ctr.Name()))
			return ExitOK, nil
		}
		zlog.Info("container exited during grace period", zap.Int("exit_code", res.ExitCode))
		return res.ExitCode, nil
	case <-timer.C:
	}

	if err := l.engine.Kill(ctr.Name()); err != nil {
		zlog.Warn("forceful kill failed", zap.String("name", ctr.Name()), zap.Error(err))
	}

	// Bounded wait for the engine process to be reaped after the kill so we
	// never race cleanup on exit.
	reap := time.NewTimer(killReapTimeout)
	defer reap.Stop()
	select {
	case <-ctr.Done():
	case <-reap.C:
		zlog.Warn("engine process did not exit after kill", zap.String("name", ctr.Name()))
	}

	return ExitShutdownTimeout, &ShutdownTimeoutError{Container: ctr.Name(), Grace: grace}
}

// GenerateContainerName returns a unique container name with the given
// prefix. Names are unique per run so two launches never collide.
func GenerateContainerName(prefix string) string {
	if prefix == "" {
		prefix = "cwrun"
	}
	return prefix + "-" + ksuid.New().String()
}
