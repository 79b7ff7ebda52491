package database

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/cockroachdb/errors"

	"circletel_billing/internal/config"
)

// ConnectDynamoDB creates a DynamoDB client. A non-empty dynamodb.endpoint points the client at
// DynamoDB Local (e.g. http://dynamodb:8000).
func ConnectDynamoDB(ctx context.Context, cfg *config.Configuration) (*dynamodb.Client, error) {
	awsCfg, err := NewAWSConfig(ctx, cfg.AWS)
	if err != nil {
		return nil, errors.Wrap(err, "create dynamodb config")
	}
	endpoint := cfg.DynamoDB.Endpoint
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}

// NewAWSConfig loads the shared AWS config. Static credentials are used when both keys are set;
// DynamoDB Local does not validate them but the SDK requires some.
func NewAWSConfig(ctx context.Context, cfg config.AWSConfig) (aws.Config, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	return awsconfig.LoadDefaultConfig(ctx, loadOpts...)
}
