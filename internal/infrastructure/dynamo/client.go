package dynamo

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/go-api-users/internal/config"
	"github.com/go-api-users/internal/infrastructure/awscfg"
)

// maxAttempts covers throttling bursts on pay-per-request tables.
const maxAttempts = 5

// NewClient creates a DynamoDB client from the shared AWS configuration.
// AWSEndpointURL, when set, points the client at LocalStack.
func NewClient(ctx context.Context, cfg *config.Config) (*dynamodb.Client, error) {
	awsCfg, err := awscfg.Load(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return dynamodb.NewFromConfig(awsCfg, clientOptions(cfg)), nil
}

func clientOptions(cfg *config.Config) func(*dynamodb.Options) {
	return func(o *dynamodb.Options) {
		o.RetryMaxAttempts = maxAttempts
		if cfg.AWSEndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
		}
	}
}
