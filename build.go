package cwrun

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// ImageBuilder builds a minimal shell-capable image when the requested image
// is not present locally. Used by the opt-in --build-missing path; a normal
// run never builds anything.
type ImageBuilder struct {
	// Binary is the docker binary to invoke; "docker" when empty.
	Binary string

	// BaseImage is the FROM line of the generated Dockerfile.
	BaseImage string
}

// NewImageBuilder creates an image builder using the configured engine binary
// and base image.
func NewImageBuilder(config *Config) *ImageBuilder {
	builder := &ImageBuilder{}
	if config != nil {
		builder.Binary = config.DockerBinary
		builder.BaseImage = config.BaseImage
	}
	return builder
}

func (b *ImageBuilder) binary() string {
	if b.Binary != "" {
		return b.Binary
	}
	return "docker"
}

func (b *ImageBuilder) base() string {
	if b.BaseImage != "" {
		return b.BaseImage
	}
	return DefaultBaseImage
}

// ImageExists checks whether the image is present in the local image store.
func (b *ImageBuilder) ImageExists(image string) bool {
	cmd := exec.Command(b.binary(), "image", "inspect", image)
	return cmd.Run() == nil
}

// GenerateDockerfile creates the Dockerfile for a minimal command-runner
// image derived from the configured base.
func (b *ImageBuilder) GenerateDockerfile() string {
	var sb strings.Builder
	sb.WriteString("# Auto-generated by cwrun\n")
	fmt.Fprintf(&sb, "FROM %s\n\n", b.base())
	sb.WriteString("# The launcher always overrides this with /bin/sh -c <command>\n")
	sb.WriteString("CMD [\"/bin/sh\"]\n")
	return sb.String()
}

// EnsureImage builds the image when it is missing from the local store.
func (b *ImageBuilder) EnsureImage(image string, forceRebuild bool) error {
	if !forceRebuild && b.ImageExists(image) {
		zlog.Debug("using existing image", zap.String("image", image))
		return nil
	}

	zlog.Info("building image",
		zap.String("image", image),
		zap.String("base", b.base()))

	tempDir, err := os.MkdirTemp("", "cwrun-build-")
	if err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	dockerfilePath := filepath.Join(tempDir, "Dockerfile")
	if err := os.WriteFile(dockerfilePath, []byte(b.GenerateDockerfile()), 0644); err != nil {
		return fmt.Errorf("failed to write Dockerfile: %w", err)
	}

	cmd := exec.Command(b.binary(), "build", "-t", image, "-f", dockerfilePath, tempDir)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("docker build failed: %w", err)
	}

	zlog.Info("image built successfully", zap.String("image", image))
	return nil
}
