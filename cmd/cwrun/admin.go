package main

import (
	"context"
	"fmt"

	"github.com/cwrun/cwrun"
	"github.com/spf13/cobra"
	. "github.com/streamingfast/cli"
)

// provisionE writes the Docker daemon credential drop-in and restarts the
// service. This is a one-time host bootstrap, separate from the run path.
func provisionE(cmd *cobra.Command, args []string) error {
	cwrun.SetupLogging()

	opts := cwrun.ProvisionOptions{}
	opts.AccessKeyID, _ = cmd.Flags().GetString("aws-access-key-id")
	opts.SecretAccessKey, _ = cmd.Flags().GetString("aws-secret-access-key")
	opts.Region, _ = cmd.Flags().GetString("aws-region")
	opts.DropInDir, _ = cmd.Flags().GetString("drop-in-dir")

	noRestart, _ := cmd.Flags().GetBool("no-restart")
	opts.RestartDocker = !noRestart

	if err := cwrun.ResolveProvisionCredentials(context.Background(), &opts); err != nil {
		return err
	}

	if opts.RestartDocker {
		skipPrompt, _ := cmd.Flags().GetBool("yes")
		if !skipPrompt {
			answeredYes, _ := AskConfirmation("This will restart the docker service, interrupting all running containers. Continue?")
			if !answeredYes {
				cmd.Println("Aborted.")
				return nil
			}
		}
	}

	if err := cwrun.Provision(context.Background(), opts); err != nil {
		return fmt.Errorf("provisioning failed: %w", err)
	}

	cmd.Println("Docker daemon credentials provisioned")
	if !opts.RestartDocker {
		cmd.Println("Restart skipped; run 'systemctl daemon-reload && systemctl restart docker' to apply")
	}
	return nil
}

// credsCheckE verifies credentials against AWS STS.
func credsCheckE(cmd *cobra.Command, args []string) error {
	cwrun.SetupLogging()

	accessKeyID, _ := cmd.Flags().GetString("aws-access-key-id")
	secretAccessKey, _ := cmd.Flags().GetString("aws-secret-access-key")
	region, _ := cmd.Flags().GetString("aws-region")

	identity, err := cwrun.VerifyCredentials(context.Background(), accessKeyID, secretAccessKey, region)
	if err != nil {
		return fmt.Errorf("credential check failed: %w", err)
	}

	cmd.Println("Credentials OK")
	cmd.Printf("  Account: %s\n", identity.Account)
	cmd.Printf("  ARN:     %s\n", identity.ARN)
	cmd.Printf("  UserID:  %s\n", identity.UserID)
	return nil
}

// stopE stops (or kills) a container started by cwrun.
func stopE(cmd *cobra.Command, args []string) error {
	cwrun.SetupLogging()

	config, err := cwrun.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	name := args[0]
	engine := cwrun.NewDockerEngine(config)

	info, err := engine.Find(name)
	if err != nil {
		return fmt.Errorf("failed to find container: %w", err)
	}
	if info == nil {
		cmd.Printf("No container named %q\n", name)
		return nil
	}
	if info.Status != "running" {
		cmd.Printf("Container %q is not running (status: %s)\n", name, info.Status)
		return nil
	}

	force, _ := cmd.Flags().GetBool("force")
	if force {
		if err := engine.Kill(name); err != nil {
			return fmt.Errorf("failed to kill container: %w", err)
		}
		cmd.Printf("Container killed: %s (%s)\n", info.Name, shortID(info.ID))
		return nil
	}

	if err := engine.Stop(name); err != nil {
		return fmt.Errorf("failed to stop container: %w", err)
	}
	cmd.Printf("Stop requested: %s (%s)\n", info.Name, shortID(info.ID))
	return nil
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
