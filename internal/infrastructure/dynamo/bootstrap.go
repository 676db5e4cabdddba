package dynamo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-api-users/internal/config"
)

const tableActiveTimeout = 2 * time.Minute

// Bootstrap creates the users and sessions tables with their GSIs when they
// are missing and waits until both are ACTIVE. Safe to call on every startup.
func Bootstrap(ctx context.Context, client *dynamodb.Client, tables config.DynamoTables) error {
	inputs := []*dynamodb.CreateTableInput{
		table(tables.Users, "user_id", gsi(emailIndex, "email")),
		table(tables.Sessions, "session_id", gsi(userIDIndex, "user_id")),
	}
	for _, in := range inputs {
		if err := createTable(ctx, client, in); err != nil {
			return err
		}
	}

	waiter := dynamodb.NewTableExistsWaiter(client)
	for _, in := range inputs {
		err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: in.TableName}, tableActiveTimeout)
		if err != nil {
			return fmt.Errorf("wait for table %s: %w", aws.ToString(in.TableName), err)
		}
	}
	return nil
}

// Ping checks that the users table is reachable.
func Ping(ctx context.Context, client *dynamodb.Client, tables config.DynamoTables) error {
	_, err := client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(tables.Users)})
	return err
}

// table describes a pay-per-request table keyed by the string attribute key,
// with one GSI whose hash key is also a string attribute.
func table(name, key string, index types.GlobalSecondaryIndex) *dynamodb.CreateTableInput {
	indexKey := index.KeySchema[0].AttributeName
	return &dynamodb.CreateTableInput{
		TableName:   aws.String(name),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(key), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: indexKey, AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(key), KeyType: types.KeyTypeHash},
		},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{index},
	}
}

func gsi(indexName, hashKey string) types.GlobalSecondaryIndex {
	return types.GlobalSecondaryIndex{
		IndexName: aws.String(indexName),
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(hashKey), KeyType: types.KeyTypeHash},
		},
		Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
	}
}

func createTable(ctx context.Context, client *dynamodb.Client, input *dynamodb.CreateTableInput) error {
	_, err := client.CreateTable(ctx, input)
	var inUse *types.ResourceInUseException
	switch {
	case err == nil:
		slog.Info("created table", "table", aws.ToString(input.TableName))
	case errors.As(err, &inUse):
		// already exists
	default:
		return fmt.Errorf("create table %s: %w", aws.ToString(input.TableName), err)
	}
	return nil
}
