package cwrun

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	origHome := os.Getenv("HOME")
	tempDir := t.TempDir()
	os.Setenv("HOME", tempDir)
	defer os.Setenv("HOME", origHome)

	config, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(tempDir, ".config", "cwrun"), config.DataDir)
	assert.Equal(t, "docker", config.DockerBinary)
	assert.Equal(t, "cwrun", config.NamePrefix)
	assert.Equal(t, DefaultBaseImage, config.BaseImage)
	assert.Equal(t, DefaultGracePeriod, config.GracePeriod())
	assert.True(t, config.CreateGroupEnabled())
}

func TestLoadConfigFromFile(t *testing.T) {
	origHome := os.Getenv("HOME")
	tempDir := t.TempDir()
	os.Setenv("HOME", tempDir)
	defer os.Setenv("HOME", origHome)

	dataDir := filepath.Join(tempDir, ".config", "cwrun")
	require.NoError(t, os.MkdirAll(dataDir, 0755))

	content := `docker_binary: podman
grace_period_seconds: 30
name_prefix: batch
create_group: false
`
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "config.yaml"), []byte(content), 0644))

	config, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "podman", config.DockerBinary)
	assert.Equal(t, 30*time.Second, config.GracePeriod())
	assert.Equal(t, "batch", config.NamePrefix)
	assert.False(t, config.CreateGroupEnabled())
}

func TestSaveConfigRoundtrip(t *testing.T) {
	tempDir := t.TempDir()

	enabled := false
	config := &Config{
		DataDir:            tempDir,
		DockerBinary:       "docker",
		GracePeriodSeconds: 5,
		NamePrefix:         "job",
		CreateGroup:        &enabled,
		BaseImage:          "alpine:3.20",
	}

	require.NoError(t, SaveConfig(config))

	data, err := os.ReadFile(filepath.Join(tempDir, "config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "name_prefix: job")
	assert.Contains(t, string(data), "grace_period_seconds: 5")
}

func TestGracePeriodFallback(t *testing.T) {
	config := &Config{GracePeriodSeconds: 0}
	assert.Equal(t, DefaultGracePeriod, config.GracePeriod())

	config.GracePeriodSeconds = -3
	assert.Equal(t, DefaultGracePeriod, config.GracePeriod())
}

func TestExpandPath(t *testing.T) {
	homeDir, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, homeDir, expandPath("~"))
	assert.Equal(t, filepath.Join(homeDir, "x"), expandPath("~/x"))
	assert.Equal(t, "/abs/path", expandPath("/abs/path"))
}
