package cwrun

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// Option names understood by Docker's awslogs logging driver.
const (
	logDriverName     = "awslogs"
	logOptRegion      = "awslogs-region"
	logOptGroup       = "awslogs-group"
	logOptStream      = "awslogs-stream"
	logOptCreateGroup = "awslogs-create-group"
)

// dockerDaemonError is the exit status `docker run` reports when the daemon
// itself failed to start the container (bad image name, unreachable daemon,
// invalid log options). Statuses above it come from the container command.
const dockerDaemonError = 125

// RunSpec describes a single `docker run` invocation.
type RunSpec struct {
	// Name is the container name, unique per run unless pinned by the operator.
	Name string
	// Image is the image to run.
	Image string
	// Command is the shell command executed inside the container via /bin/sh -c.
	Command string

	// LogGroup, LogStream and Region configure the awslogs driver destination.
	LogGroup  string
	LogStream string
	Region    string
	// CreateGroup asks the driver to create the log group if it does not exist.
	CreateGroup bool

	// AccessKeyID and SecretAccessKey are exported to the engine invocation so
	// the awslogs driver can authenticate. They are never passed to the
	// container itself.
	AccessKeyID     string
	SecretAccessKey string

	// Env holds extra NAME=VALUE entries for the container environment.
	Env []string
	// Keep leaves the container around after exit instead of removing it.
	Keep bool
}

// Args returns the docker CLI arguments for this run, excluding the binary
// name itself.
func (s RunSpec) Args() []string {
	args := []string{"run"}
	if !s.Keep {
		args = append(args, "--rm")
	}
	args = append(args, "--name", s.Name)

	args = append(args,
		"--log-driver", logDriverName,
		"--log-opt", logOptRegion+"="+s.Region,
		"--log-opt", logOptGroup+"="+s.LogGroup,
		"--log-opt", logOptStream+"="+s.LogStream,
	)
	if s.CreateGroup {
		args = append(args, "--log-opt", logOptCreateGroup+"=true")
	}

	for _, env := range s.Env {
		args = append(args, "-e", env)
	}

	args = append(args, s.Image, "/bin/sh", "-c", s.Command)
	return args
}

// RunResult is the terminal status of a container run.
type RunResult struct {
	// ExitCode is the container's exit status as reported by `docker run`.
	ExitCode int
	// Err is set when the run failed for a reason other than a non-zero
	// container exit.
	Err error
}

// RunningContainer is a handle on a started container.
type RunningContainer interface {
	// Name returns the container name.
	Name() string
	// Done delivers exactly one RunResult when the container exits.
	Done() <-chan RunResult
}

// ContainerInfo contains information about a container known to the engine.
type ContainerInfo struct {
	ID     string
	Name   string
	Status string
	Image  string
}

// Engine abstracts the container engine CLI.
type Engine interface {
	// Run starts a container and returns a handle attached to its lifetime.
	Run(spec RunSpec) (RunningContainer, error)

	// Stop asks the container to terminate gracefully (SIGTERM).
	Stop(name string) error

	// Kill terminates the container immediately (SIGKILL).
	Kill(name string) error

	// Find returns info about a container by exact name, nil if absent.
	Find(name string) (*ContainerInfo, error)
}

// DockerEngine drives containers through the docker CLI.
type DockerEngine struct {
	// Binary is the docker binary to invoke; "docker" when empty.
	Binary string
}

// NewDockerEngine creates a docker CLI engine using the configured binary.
func NewDockerEngine(config *Config) *DockerEngine {
	var binary string
	if config != nil {
		binary = config.DockerBinary
	}
	return &DockerEngine{Binary: binary}
}

func (e *DockerEngine) binary() string {
	if e.Binary != "" {
		return e.Binary
	}
	return "docker"
}

type dockerContainer struct {
	name string
	done chan RunResult
}

func (c *dockerContainer) Name() string           { return c.name }
func (c *dockerContainer) Done() <-chan RunResult { return c.done }

// Run starts `docker run` attached, streaming the container's output to the
// caller's stdout/stderr. The AWS credentials ride on the engine process
// environment so the awslogs driver can authenticate.
func (e *DockerEngine) Run(spec RunSpec) (RunningContainer, error) {
	args := spec.Args()

	zlog.Debug("executing docker command",
		zap.String("cmd", e.binary()),
		zap.Strings("args", args))

	cmd := exec.Command(e.binary(), args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(),
		"AWS_ACCESS_KEY_ID="+spec.AccessKeyID,
		"AWS_SECRET_ACCESS_KEY="+spec.SecretAccessKey,
		"AWS_REGION="+spec.Region,
	)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("docker run failed to start: %w", err)
	}

	ctr := &dockerContainer{name: spec.Name, done: make(chan RunResult, 1)}
	go func() {
		err := cmd.Wait()
		if err == nil {
			ctr.done <- RunResult{ExitCode: 0}
			return
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			ctr.done <- RunResult{ExitCode: exitErr.ExitCode()}
			return
		}

		ctr.done <- RunResult{ExitCode: -1, Err: err}
	}()

	return ctr, nil
}

// Stop sends SIGTERM to the container's main process.
func (e *DockerEngine) Stop(name string) error {
	zlog.Info("stopping container", zap.String("name", name))

	cmd := exec.Command(e.binary(), "kill", "--signal", "TERM", name)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("docker kill --signal TERM failed: %w (stderr: %s)", err, stderr.String())
	}
	return nil
}

// Kill sends SIGKILL to the container's main process.
func (e *DockerEngine) Kill(name string) error {
	zlog.Info("killing container", zap.String("name", name))

	cmd := exec.Command(e.binary(), "kill", name)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("docker kill failed: %w (stderr: %s)", err, stderr.String())
	}
	return nil
}

// Find looks up a container by exact name using docker ps.
func (e *DockerEngine) Find(name string) (*ContainerInfo, error) {
	cmd := exec.Command(e.binary(), "ps", "-a",
		"--filter", fmt.Sprintf("name=^%s$", name),
		"--format", "{{json .}}")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		zlog.Debug("docker ps command failed",
			zap.Error(err),
			zap.String("stderr", stderr.String()))
		return nil, fmt.Errorf("docker ps failed: %w", err)
	}

	output := strings.TrimSpace(stdout.String())
	if output == "" {
		return nil, nil
	}

	// docker ps emits one JSON object per line; an exact name filter yields
	// at most one.
	return parseContainerLine(strings.SplitN(output, "\n", 2)[0])
}

func parseContainerLine(line string) (*ContainerInfo, error) {
	var containerData struct {
		ID     string `json:"ID"`
		Names  string `json:"Names"`
		Image  string `json:"Image"`
		State  string `json:"State"`
		Status string `json:"Status"`
	}

	if err := json.Unmarshal([]byte(line), &containerData); err != nil {
		return nil, fmt.Errorf("failed to parse docker ps output: %w", err)
	}

	return &ContainerInfo{
		ID:     containerData.ID,
		Name:   containerData.Names,
		Status: containerData.State,
		Image:  containerData.Image,
	}, nil
}
