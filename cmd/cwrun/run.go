package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/cwrun/cwrun"
	"github.com/spf13/cobra"
)

// runE launches the container and stays attached to its lifetime.
func runE(cmd *cobra.Command, args []string) error {
	cwrun.SetupLogging()

	config, err := cwrun.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	req := requestFromFlags(cmd)
	if err := req.Validate(); err != nil {
		// Fail before side effects: no preflight, no build, no engine call.
		return err
	}

	opts, err := optionsFromFlags(cmd, config)
	if err != nil {
		return err
	}

	verify, _ := cmd.Flags().GetBool("verify-credentials")
	if verify {
		identity, err := cwrun.VerifyCredentials(context.Background(), req.AccessKeyID, req.SecretAccessKey, req.Region)
		if err != nil {
			return fmt.Errorf("credential preflight failed: %w", err)
		}
		cmd.Printf("Credentials verified: %s (account %s)\n", identity.ARN, identity.Account)
	}

	buildMissing, _ := cmd.Flags().GetBool("build-missing")
	if buildMissing {
		builder := cwrun.NewImageBuilder(config)
		if err := builder.EnsureImage(req.Image, false); err != nil {
			return fmt.Errorf("failed to ensure image: %w", err)
		}
	}

	launcher := cwrun.NewLauncher(cwrun.NewDockerEngine(config))
	code, err := launcher.Launch(req, opts)
	if err != nil {
		return err
	}
	if code != 0 {
		// Natural non-zero container exit: mirror it without an error wrapper.
		os.Exit(code)
	}
	return nil
}

// infoE prints the docker invocation a run would execute.
func infoE(cmd *cobra.Command, args []string) error {
	cwrun.SetupLogging()

	config, err := cwrun.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	req := requestFromFlags(cmd)
	if err := req.Validate(); err != nil {
		return err
	}

	opts, err := optionsFromFlags(cmd, config)
	if err != nil {
		return err
	}

	spec := cwrun.BuildRunSpec(req, opts)
	cmd.Printf("Container name: %s\n", spec.Name)
	cmd.Printf("Grace period:   %s\n", opts.GracePeriod)
	cmd.Printf("Command:\n  %s %s\n", config.DockerBinary, formatDockerCommand(spec.Args()))
	return nil
}

func requestFromFlags(cmd *cobra.Command) *cwrun.LaunchRequest {
	getString := func(name string) string {
		value, _ := cmd.Flags().GetString(name)
		return value
	}

	return &cwrun.LaunchRequest{
		Image:           getString("docker-image"),
		Command:         getString("bash-command"),
		LogGroup:        getString("aws-cloudwatch-group"),
		LogStream:       getString("aws-cloudwatch-stream"),
		AccessKeyID:     getString("aws-access-key-id"),
		SecretAccessKey: getString("aws-secret-access-key"),
		Region:          getString("aws-region"),
	}
}

func optionsFromFlags(cmd *cobra.Command, config *cwrun.Config) (cwrun.LaunchOptions, error) {
	containerName, err := cmd.Flags().GetString("container-name")
	if err != nil {
		return cwrun.LaunchOptions{}, fmt.Errorf("failed to get container-name flag: %w", err)
	}

	grace, err := cmd.Flags().GetDuration("grace-period")
	if err != nil {
		return cwrun.LaunchOptions{}, fmt.Errorf("failed to get grace-period flag: %w", err)
	}
	if grace <= 0 {
		grace = config.GracePeriod()
	}

	createGroup, err := cmd.Flags().GetBool("create-group")
	if err != nil {
		return cwrun.LaunchOptions{}, fmt.Errorf("failed to get create-group flag: %w", err)
	}
	if !cmd.Flags().Changed("create-group") {
		createGroup = config.CreateGroupEnabled()
	}

	env, err := cmd.Flags().GetStringSlice("env")
	if err != nil {
		return cwrun.LaunchOptions{}, fmt.Errorf("failed to get env flag: %w", err)
	}

	keep, err := cmd.Flags().GetBool("keep")
	if err != nil {
		return cwrun.LaunchOptions{}, fmt.Errorf("failed to get keep flag: %w", err)
	}

	return cwrun.LaunchOptions{
		ContainerName: containerName,
		NamePrefix:    config.NamePrefix,
		GracePeriod:   grace,
		CreateGroup:   createGroup,
		Env:           env,
		Keep:          keep,
	}, nil
}

// formatDockerCommand formats docker command arguments for display, quoting
// values containing spaces and truncating very long ones.
func formatDockerCommand(args []string) string {
	var result []string
	for _, arg := range args {
		if len(arg) > 80 {
			arg = arg[:77] + "..."
		}
		if strings.Contains(arg, " ") {
			arg = fmt.Sprintf("%q", arg)
		}
		result = append(result, arg)
	}
	return strings.Join(result, " ")
}
