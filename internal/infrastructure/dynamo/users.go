package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-api-users/internal/domain"
)

const emailIndex = "email-index"

// UserRepo provides typed DynamoDB operations for the users table.
type UserRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewUserRepo(client *dynamodb.Client, tableName string) *UserRepo {
	return &UserRepo{client: client, tableName: tableName}
}

// Put stores u. The email index is not unique in DynamoDB, so ownership of
// the address is checked first.
func (r *UserRepo) Put(ctx context.Context, u *domain.User) error {
	if err := r.ensureEmailOwner(ctx, u.Email, u.UserID); err != nil {
		return err
	}
	item, err := marshalUser(u)
	if err != nil {
		return err
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *UserRepo) Get(ctx context.Context, userID string) (*domain.User, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey("user_id", userID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Item, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	out, err := r.client.Query(ctx, emailQuery(r.tableName, email))
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Items[0], &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) Update(ctx context.Context, userID string, updates map[string]any) error {
	if email, ok := updates[domain.FieldEmail].(string); ok {
		if err := r.ensureEmailOwner(ctx, email, userID); err != nil {
			return err
		}
	}
	fields := make(map[string]any, len(updates)+1)
	for k, v := range updates {
		fields[k] = v
	}
	fields[domain.FieldUpdatedAt] = time.Now().UTC()
	ue, err := buildUpdateExpr(fields)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("user_id", userID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("attribute_exists(user_id)"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return notFoundOnCondition(err, "user not found")
}

func (r *UserRepo) SoftDelete(ctx context.Context, userID string) error {
	return r.Update(ctx, userID, map[string]any{domain.FieldDeletedAt: time.Now().UTC()})
}

// List scans the table page by page and filters in memory. The users table
// has no sort key usable for newest-first ordering.
func (r *UserRepo) List(ctx context.Context, f domain.UserFilter) ([]domain.User, int, error) {
	var all []domain.User
	paginator := dynamodb.NewScanPaginator(r.client, activeUsersScan(r.tableName))
	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, 0, err
		}
		var page []domain.User
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, 0, err
		}
		all = append(all, page...)
	}
	users, total := domain.FilterUsers(all, f)
	return users, total, nil
}

// marshalUser converts u to a users-table item. Nil optional fields are left
// out rather than written as NULL so the active-user filter can rely on
// deleted_at being absent.
func marshalUser(u *domain.User) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(u)
	if err != nil {
		return nil, fmt.Errorf("marshal user: %w", err)
	}
	return item, nil
}

func emailQuery(table, email string) *dynamodb.QueryInput {
	return &dynamodb.QueryInput{
		TableName:                 aws.String(table),
		IndexName:                 aws.String(emailIndex),
		KeyConditionExpression:    aws.String("#a = :v"),
		ExpressionAttributeNames:  map[string]string{"#a": domain.FieldEmail},
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": &types.AttributeValueMemberS{Value: email}},
		Limit:                     aws.Int32(1),
	}
}

// activeUsersScan skips soft-deleted users. Items stored with an explicit NULL
// deleted_at count as active.
func activeUsersScan(table string) *dynamodb.ScanInput {
	return &dynamodb.ScanInput{
		TableName:                aws.String(table),
		FilterExpression:         aws.String("attribute_not_exists(#d) OR attribute_type(#d, :null)"),
		ExpressionAttributeNames: map[string]string{"#d": domain.FieldDeletedAt},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":null": &types.AttributeValueMemberS{Value: "NULL"},
		},
	}
}

func (r *UserRepo) ensureEmailOwner(ctx context.Context, email, userID string) error {
	existing, err := r.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	if existing.UserID != userID {
		return fmt.Errorf("email taken: %w", domain.ErrConflict)
	}
	return nil
}

// notFoundOnCondition maps a failed attribute_exists condition to ErrNotFound.
func notFoundOnCondition(err error, msg string) error {
	if err == nil {
		return nil
	}
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return fmt.Errorf("%s: %w", msg, domain.ErrNotFound)
	}
	return err
}
