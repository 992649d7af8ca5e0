package cwrun

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"go.uber.org/zap"
)

// DefaultDropInDir is where the Docker daemon credential drop-in is written.
const DefaultDropInDir = "/etc/systemd/system/docker.service.d"

// dropInFileName is the systemd drop-in file carrying the AWS credentials.
const dropInFileName = "aws-credentials.conf"

// ProvisionOptions describes the one-time host bootstrap that lets the Docker
// daemon's awslogs driver authenticate. This is operator-invoked setup and is
// never executed from the run path.
type ProvisionOptions struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string

	// DropInDir overrides DefaultDropInDir, mainly for tests.
	DropInDir string

	// RestartDocker controls whether systemd is reloaded and the docker
	// service restarted after writing the drop-in.
	RestartDocker bool
}

// ResolveProvisionCredentials fills missing credential fields from the
// standard AWS environment/config chain (AWS_ACCESS_KEY_ID,
// AWS_SECRET_ACCESS_KEY, AWS_REGION, shared config files, ...).
func ResolveProvisionCredentials(ctx context.Context, opts *ProvisionOptions) error {
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" && opts.Region != "" {
		return nil
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(opts.Region))
	if err != nil {
		return fmt.Errorf("failed to load AWS config: %w", err)
	}

	if opts.Region == "" {
		opts.Region = cfg.Region
	}

	if opts.AccessKeyID == "" || opts.SecretAccessKey == "" {
		creds, err := cfg.Credentials.Retrieve(ctx)
		if err != nil {
			return fmt.Errorf("failed to resolve AWS credentials: %w", err)
		}
		opts.AccessKeyID = creds.AccessKeyID
		opts.SecretAccessKey = creds.SecretAccessKey
	}

	if opts.AccessKeyID == "" || opts.SecretAccessKey == "" {
		return &InvalidArgumentError{Field: "aws-access-key-id"}
	}
	if opts.Region == "" {
		return &InvalidArgumentError{Field: "aws-region"}
	}
	return nil
}

// RenderDropIn returns the systemd drop-in contents exporting the AWS
// credentials to the Docker daemon environment.
func RenderDropIn(opts ProvisionOptions) string {
	var sb strings.Builder
	sb.WriteString("# Generated by cwrun provision\n")
	sb.WriteString("[Service]\n")
	fmt.Fprintf(&sb, "Environment=%q\n", "AWS_ACCESS_KEY_ID="+opts.AccessKeyID)
	fmt.Fprintf(&sb, "Environment=%q\n", "AWS_SECRET_ACCESS_KEY="+opts.SecretAccessKey)
	fmt.Fprintf(&sb, "Environment=%q\n", "AWS_REGION="+opts.Region)
	return sb.String()
}

// Provision writes the credential drop-in and optionally restarts the Docker
// service so the awslogs driver picks the credentials up.
func Provision(ctx context.Context, opts ProvisionOptions) error {
	dir := opts.DropInDir
	if dir == "" {
		dir = DefaultDropInDir
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create drop-in directory: %w", err)
	}

	path := filepath.Join(dir, dropInFileName)
	if err := os.WriteFile(path, []byte(RenderDropIn(opts)), 0600); err != nil {
		return fmt.Errorf("failed to write drop-in file: %w", err)
	}

	zlog.Info("wrote docker daemon credential drop-in", zap.String("path", path))

	if !opts.RestartDocker {
		return nil
	}

	for _, args := range [][]string{{"daemon-reload"}, {"restart", "docker"}} {
		cmd := exec.CommandContext(ctx, "systemctl", args...)
		var stderr bytes.Buffer
		cmd.Stderr = &stderr

		zlog.Debug("executing systemctl", zap.Strings("args", args))
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("systemctl %s failed: %w (stderr: %s)",
				strings.Join(args, " "), err, stderr.String())
		}
	}

	zlog.Info("docker service restarted with AWS credentials")
	return nil
}
