package cwrun

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderDropIn(t *testing.T) {
	content := RenderDropIn(ProvisionOptions{
		AccessKeyID:     "AKIAEXAMPLE",
		SecretAccessKey: "s3cret",
		Region:          "us-east-1",
	})

	assert.Contains(t, content, "[Service]")
	assert.Contains(t, content, `Environment="AWS_ACCESS_KEY_ID=AKIAEXAMPLE"`)
	assert.Contains(t, content, `Environment="AWS_SECRET_ACCESS_KEY=s3cret"`)
	assert.Contains(t, content, `Environment="AWS_REGION=us-east-1"`)
}

func TestProvisionWritesDropIn(t *testing.T) {
	tempDir := t.TempDir()

	err := Provision(context.Background(), ProvisionOptions{
		AccessKeyID:     "AKIAEXAMPLE",
		SecretAccessKey: "s3cret",
		Region:          "eu-central-1",
		DropInDir:       tempDir,
		RestartDocker:   false,
	})
	require.NoError(t, err)

	path := filepath.Join(tempDir, "aws-credentials.conf")
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm(), "credential file must not be world readable")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "AWS_REGION=eu-central-1")
}

func TestResolveProvisionCredentialsExplicit(t *testing.T) {
	opts := &ProvisionOptions{
		AccessKeyID:     "AKIAEXAMPLE",
		SecretAccessKey: "s3cret",
		Region:          "us-east-1",
	}

	require.NoError(t, ResolveProvisionCredentials(context.Background(), opts))
	assert.Equal(t, "AKIAEXAMPLE", opts.AccessKeyID)
}

func TestResolveProvisionCredentialsFromEnv(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIAFROMENV")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "envsecret")
	t.Setenv("AWS_REGION", "ap-southeast-2")

	opts := &ProvisionOptions{}
	require.NoError(t, ResolveProvisionCredentials(context.Background(), opts))

	assert.Equal(t, "AKIAFROMENV", opts.AccessKeyID)
	assert.Equal(t, "envsecret", opts.SecretAccessKey)
	assert.Equal(t, "ap-southeast-2", opts.Region)
}
