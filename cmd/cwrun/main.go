package main

import (
	"fmt"
	"os"

	"github.com/cwrun/cwrun"
	"github.com/spf13/pflag"
	. "github.com/streamingfast/cli"
	"github.com/streamingfast/logging"
	"go.uber.org/zap"
)

// Version is set via ldflags at build time
var version = "dev"

var zlog, _ = logging.PackageLogger("cwrun", "github.com/cwrun/cwrun/cmd/main")

func init() {
	logging.InstantiateLoggers(logging.WithDefaultLevel(zap.DPanicLevel))
}

func main() {
	Run(
		"cwrun <command>",
		"Run a command in a Docker container and ship its output to AWS CloudWatch Logs",

		ConfigureVersion(version),
		ConfigureViper("CWRUN"),

		// Default command (no subcommand = run)
		Execute(runE),

		Command(runE,
			"run",
			"Launch a container with the awslogs logging driver attached",
			Description(`
				Starts a container from the given image running the given shell
				command, with Docker's awslogs logging driver pointed at the
				requested CloudWatch Logs group and stream. The process stays
				attached to the container and mirrors its exit status.

				SIGINT and SIGTERM are forwarded to the container as a graceful
				stop; if the container is still running when the grace period
				expires it is forcefully killed and the process exits with
				status 3.
			`),
			Flags(launchFlags),
		),

		Command(infoE,
			"info",
			"Show the docker invocation a run would execute, without running it",
			Flags(launchFlags),
		),

		Command(provisionE,
			"provision",
			"Write AWS credentials for the Docker daemon and restart it",
			Description(`
				One-time host bootstrap: writes a systemd drop-in exporting
				AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY and AWS_REGION to the
				Docker daemon, then reloads systemd and restarts the docker
				service so the awslogs driver can authenticate.

				Credentials omitted from the flags are resolved through the
				standard AWS environment/config chain.
			`),
			Flags(func(flags *pflag.FlagSet) {
				flags.String("aws-access-key-id", "", "AWS access key id for the Docker daemon")
				flags.String("aws-secret-access-key", "", "AWS secret access key for the Docker daemon")
				flags.String("aws-region", "", "AWS region for the Docker daemon")
				flags.String("drop-in-dir", "", "Directory for the systemd drop-in (default: "+cwrun.DefaultDropInDir+")")
				flags.Bool("no-restart", false, "Write the drop-in without restarting the docker service")
				flags.BoolP("yes", "y", false, "Skip the confirmation prompt before restarting docker")
			}),
		),

		Group("creds", "Manage the AWS credentials used by the logging driver",
			Command(credsCheckE,
				"check",
				"Verify credentials against AWS STS",
				Flags(func(flags *pflag.FlagSet) {
					flags.String("aws-access-key-id", "", "AWS access key id to verify (default: standard AWS chain)")
					flags.String("aws-secret-access-key", "", "AWS secret access key to verify")
					flags.String("aws-region", "", "AWS region to verify against")
				}),
			),
		),

		Command(stopE,
			"stop <container>",
			"Stop a container started by cwrun",
			ExactArgs(1),
			Flags(func(flags *pflag.FlagSet) {
				flags.Bool("force", false, "Kill the container immediately instead of stopping gracefully")
			}),
		),

		OnCommandError(func(err error) {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			zlog.Debug("command error", zap.Error(err))
			os.Exit(cwrun.ExitCode(err))
		}),
	)
}

// launchFlags is shared by run and info so both describe the same invocation.
func launchFlags(flags *pflag.FlagSet) {
	flags.String("docker-image", "", "Name of the Docker image to run")
	flags.String("bash-command", "", "Shell command to run inside the container")
	flags.String("aws-cloudwatch-group", "", "CloudWatch Logs group to ship output to")
	flags.String("aws-cloudwatch-stream", "", "CloudWatch Logs stream within the group")
	flags.String("aws-access-key-id", "", "AWS access key id used by the awslogs driver")
	flags.String("aws-secret-access-key", "", "AWS secret access key used by the awslogs driver")
	flags.String("aws-region", "", "AWS region the log group lives in")

	flags.String("container-name", "", "Container name (default: generated, unique per run)")
	flags.Duration("grace-period", 0, "How long to wait after a graceful stop before killing (default from config)")
	flags.Bool("create-group", true, "Ask the awslogs driver to create the log group if missing")
	flags.StringSliceP("env", "e", nil, "Extra NAME=VALUE environment entries for the container")
	flags.Bool("keep", false, "Keep the container after exit instead of removing it")
	flags.Bool("verify-credentials", false, "Check the credentials against AWS STS before launching")
	flags.Bool("build-missing", false, "Build a minimal image when the requested image is absent locally")
}
