package cwrun

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Config holds global configuration for cwrun. None of its fields belong to
// the launch request itself; the seven request flags stay mandatory on the
// command line regardless of what the file contains.
type Config struct {
	// DataDir is the path to cwrun's data directory (default: ~/.config/cwrun)
	DataDir string `yaml:"data_dir"`

	// DockerBinary is the container engine binary to invoke (default: "docker")
	DockerBinary string `yaml:"docker_binary"`

	// GracePeriodSeconds is how long to wait after a graceful stop before
	// killing the container (default: 10)
	GracePeriodSeconds int `yaml:"grace_period_seconds"`

	// NamePrefix is the prefix for generated container names (default: "cwrun")
	NamePrefix string `yaml:"name_prefix"`

	// CreateGroup asks the awslogs driver to create missing log groups
	// (default: true)
	CreateGroup *bool `yaml:"create_group"`

	// BaseImage is the FROM image used when building a missing image
	// (default: "python:3.12-slim")
	BaseImage string `yaml:"base_image"`
}

// DefaultBaseImage is the base used by the image builder when the config does
// not name one.
const DefaultBaseImage = "python:3.12-slim"

// GracePeriod returns the configured grace period as a duration.
func (c *Config) GracePeriod() time.Duration {
	if c.GracePeriodSeconds <= 0 {
		return DefaultGracePeriod
	}
	return time.Duration(c.GracePeriodSeconds) * time.Second
}

// CreateGroupEnabled reports whether missing log groups should be created.
func (c *Config) CreateGroupEnabled() bool {
	if c.CreateGroup == nil {
		return true
	}
	return *c.CreateGroup
}

// LoadConfig loads the global configuration from ~/.config/cwrun/config.yaml.
// Creates the data directory if it doesn't exist and returns sensible
// defaults when the file is absent.
func LoadConfig() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}

	config := &Config{
		DataDir:            filepath.Join(homeDir, ".config", "cwrun"),
		DockerBinary:       "docker",
		GracePeriodSeconds: int(DefaultGracePeriod / time.Second),
		NamePrefix:         "cwrun",
		BaseImage:          DefaultBaseImage,
	}

	if err := os.MkdirAll(config.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cwrun data directory: %w", err)
	}

	configPath := filepath.Join(config.DataDir, "config.yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			zlog.Debug("no config file found, using defaults",
				zap.String("config_path", configPath))
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.DataDir = expandPath(config.DataDir)

	zlog.Debug("loaded config",
		zap.String("config_path", configPath),
		zap.String("data_dir", config.DataDir),
		zap.String("docker_binary", config.DockerBinary),
		zap.Int("grace_period_seconds", config.GracePeriodSeconds))

	return config, nil
}

// SaveConfig saves the global configuration to its data directory.
func SaveConfig(config *Config) error {
	configPath := filepath.Join(config.DataDir, "config.yaml")

	if err := os.MkdirAll(config.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create cwrun data directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	zlog.Debug("saved config", zap.String("config_path", configPath))
	return nil
}

// expandPath expands a leading ~ to the user's home directory.
func expandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return homeDir
	}
	return filepath.Join(homeDir, strings.TrimPrefix(path, "~/"))
}
