package cwrun

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunSpecArgs(t *testing.T) {
	spec := RunSpec{
		Name:        "job-1",
		Image:       "python",
		Command:     "echo hi",
		LogGroup:    "g1",
		LogStream:   "s1",
		Region:      "us-east-1",
		CreateGroup: true,
	}

	assert.Equal(t, []string{
		"run", "--rm", "--name", "job-1",
		"--log-driver", "awslogs",
		"--log-opt", "awslogs-region=us-east-1",
		"--log-opt", "awslogs-group=g1",
		"--log-opt", "awslogs-stream=s1",
		"--log-opt", "awslogs-create-group=true",
		"python", "/bin/sh", "-c", "echo hi",
	}, spec.Args())
}

func TestRunSpecArgsNoCreateGroup(t *testing.T) {
	spec := RunSpec{
		Name:      "job-2",
		Image:     "alpine",
		Command:   "true",
		LogGroup:  "group",
		LogStream: "stream",
		Region:    "eu-west-1",
	}

	args := spec.Args()
	assert.NotContains(t, args, "awslogs-create-group=true")
	assert.Contains(t, args, "awslogs-region=eu-west-1")
}

func TestRunSpecArgsKeepAndEnv(t *testing.T) {
	spec := RunSpec{
		Name:      "job-3",
		Image:     "alpine",
		Command:   "env",
		LogGroup:  "g",
		LogStream: "s",
		Region:    "us-east-1",
		Env:       []string{"FOO=bar", "BAZ=qux"},
		Keep:      true,
	}

	args := spec.Args()
	assert.NotContains(t, args, "--rm")
	assert.Contains(t, args, "-e")
	assert.Contains(t, args, "FOO=bar")
	assert.Contains(t, args, "BAZ=qux")

	// The shell command is always the trailing triple.
	require.GreaterOrEqual(t, len(args), 3)
	assert.Equal(t, []string{"/bin/sh", "-c", "env"}, args[len(args)-3:])
}

func TestParseContainerLine(t *testing.T) {
	line := `{"ID":"abc123def456","Names":"cwrun-2hYx","Image":"python","State":"running","Status":"Up 3 seconds"}`

	info, err := parseContainerLine(line)
	require.NoError(t, err)
	assert.Equal(t, "abc123def456", info.ID)
	assert.Equal(t, "cwrun-2hYx", info.Name)
	assert.Equal(t, "running", info.Status)
	assert.Equal(t, "python", info.Image)
}

func TestParseContainerLineMalformed(t *testing.T) {
	_, err := parseContainerLine("not json")
	require.Error(t, err)
}

func TestNewDockerEngineBinary(t *testing.T) {
	assert.Equal(t, "docker", NewDockerEngine(nil).binary())
	assert.Equal(t, "podman", NewDockerEngine(&Config{DockerBinary: "podman"}).binary())
}
