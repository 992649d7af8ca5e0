package cwrun

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"go.uber.org/zap"
)

// CallerIdentity is the AWS identity resolved during a credential preflight.
type CallerIdentity struct {
	Account string
	ARN     string
	UserID  string
}

// credentialLoadOptions builds the AWS config load options for a preflight.
// Explicit key material becomes a static provider; otherwise the default
// chain (environment, shared config, instance metadata) applies.
func credentialLoadOptions(accessKeyID, secretAccessKey, region string) []func(*awsconfig.LoadOptions) error {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if accessKeyID != "" || secretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		))
	}
	return opts
}

// VerifyCredentials checks the supplied credentials against AWS STS. This
// only calls STS, never CloudWatch Logs: log delivery stays fully delegated
// to the awslogs driver, the preflight just surfaces bad keys before launch
// instead of as silent driver-side drops.
func VerifyCredentials(ctx context.Context, accessKeyID, secretAccessKey, region string) (*CallerIdentity, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, credentialLoadOptions(accessKeyID, secretAccessKey, region)...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := sts.NewFromConfig(cfg)
	identity, err := client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, fmt.Errorf("failed to get caller identity: %w", err)
	}

	resolved := &CallerIdentity{
		Account: aws.ToString(identity.Account),
		ARN:     aws.ToString(identity.Arn),
		UserID:  aws.ToString(identity.UserId),
	}

	zlog.Debug("verified AWS credentials",
		zap.String("account", resolved.Account),
		zap.String("arn", resolved.ARN))

	return resolved, nil
}
