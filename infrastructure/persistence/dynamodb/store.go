// Package dynamodb implements the catalog's storage engine on DynamoDB:
// a thin store adapter plus the four entity repositories built on it.
package dynamodb

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	apperrors "catalog-backend/pkg/errors"
)

// Item is a raw stored row.
type Item = map[string]types.AttributeValue

// ErrConditionFailed is returned by Put when the write's condition did not
// hold on the existing item.
var ErrConditionFailed = stderrors.New("conditional check failed")

// defaultResultLimit bounds queries and scans that do not state their own
// limit.
const defaultResultLimit = 1000

// PutInput is a single-item write. When ConditionNotExists names an
// attribute, the write succeeds only if no item with this primary key
// already carries that attribute, i.e. only if the row is absent.
type PutInput struct {
	Table              string
	Item               Item
	ConditionNotExists string
}

// QueryInput is a partition query, optionally against a secondary index,
// optionally narrowed by a begins_with condition on the range key.
type QueryInput struct {
	Table      string
	Index      string
	KeyAttr    string
	KeyValue   string
	PrefixAttr string
	Prefix     string
	Limit      int32
}

// ScanInput is a full-table (or full-index) scan with optional equality or
// prefix filters applied server-side.
type ScanInput struct {
	Table       string
	Index       string
	EqualsAttr  string
	EqualsValue string
	PrefixAttr  string
	Prefix      string
	Limit       int32
}

// BatchWriteInput is a non-atomic multi-item write. Puts and deletes are
// submitted together but the store gives no atomicity guarantee across them.
type BatchWriteInput struct {
	Table   string
	Puts    []Item
	Deletes []Item
}

// Store wraps the wide-column store's primitive operations. Repositories
// depend on this interface; tests substitute an in-memory fake.
type Store interface {
	// Get returns the item at key, or nil when absent. Absence is not an
	// error.
	Get(ctx context.Context, table string, key Item) (Item, error)
	Put(ctx context.Context, in PutInput) error
	Delete(ctx context.Context, table string, key Item) error
	Query(ctx context.Context, in QueryInput) ([]Item, error)
	Scan(ctx context.Context, in ScanInput) ([]Item, error)
	BatchWrite(ctx context.Context, in BatchWriteInput) error
}

type dynamoStore struct {
	client *awsdynamodb.Client
	logger *zap.Logger
}

// NewStore creates a Store backed by a DynamoDB client.
func NewStore(client *awsdynamodb.Client, logger *zap.Logger) Store {
	return &dynamoStore{client: client, logger: logger}
}

func (s *dynamoStore) Get(ctx context.Context, table string, key Item) (Item, error) {
	out, err := s.client.GetItem(ctx, &awsdynamodb.GetItemInput{
		TableName: aws.String(table),
		Key:       key,
	})
	if err != nil {
		return nil, translateError("get item", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	return out.Item, nil
}

func (s *dynamoStore) Put(ctx context.Context, in PutInput) error {
	input := &awsdynamodb.PutItemInput{
		TableName: aws.String(in.Table),
		Item:      in.Item,
	}

	if in.ConditionNotExists != "" {
		cond := expression.AttributeNotExists(expression.Name(in.ConditionNotExists))
		expr, err := expression.NewBuilder().WithCondition(cond).Build()
		if err != nil {
			return fmt.Errorf("failed to build condition expression: %w", err)
		}
		input.ConditionExpression = expr.Condition()
		input.ExpressionAttributeNames = expr.Names()
	}

	if _, err := s.client.PutItem(ctx, input); err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if stderrors.As(err, &conditionFailed) {
			return ErrConditionFailed
		}
		return translateError("put item", err)
	}
	return nil
}

func (s *dynamoStore) Delete(ctx context.Context, table string, key Item) error {
	_, err := s.client.DeleteItem(ctx, &awsdynamodb.DeleteItemInput{
		TableName: aws.String(table),
		Key:       key,
	})
	if err != nil {
		return translateError("delete item", err)
	}
	return nil
}

func (s *dynamoStore) Query(ctx context.Context, in QueryInput) ([]Item, error) {
	keyCond := expression.Key(in.KeyAttr).Equal(expression.Value(in.KeyValue))
	if in.PrefixAttr != "" {
		keyCond = keyCond.And(expression.Key(in.PrefixAttr).BeginsWith(in.Prefix))
	}

	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build key condition: %w", err)
	}

	limit := in.Limit
	if limit <= 0 {
		limit = defaultResultLimit
	}

	items := make([]Item, 0)
	var startKey Item
	for {
		remaining := limit - int32(len(items))
		out, err := s.client.Query(ctx, &awsdynamodb.QueryInput{
			TableName:                 aws.String(in.Table),
			IndexName:                 indexName(in.Index),
			KeyConditionExpression:    expr.KeyCondition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         startKey,
			Limit:                     aws.Int32(remaining),
		})
		if err != nil {
			return nil, translateError("query", err)
		}
		items = append(items, out.Items...)
		if int32(len(items)) >= limit || len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	if int32(len(items)) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *dynamoStore) Scan(ctx context.Context, in ScanInput) ([]Item, error) {
	builder := expression.NewBuilder()
	hasFilter := false
	var filter expression.ConditionBuilder

	if in.EqualsAttr != "" {
		filter = expression.Name(in.EqualsAttr).Equal(expression.Value(in.EqualsValue))
		hasFilter = true
	}
	if in.PrefixAttr != "" {
		cond := expression.Name(in.PrefixAttr).BeginsWith(in.Prefix)
		if hasFilter {
			filter = filter.And(cond)
		} else {
			filter = cond
			hasFilter = true
		}
	}
	if hasFilter {
		builder = builder.WithFilter(filter)
	}

	expr, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build scan filter: %w", err)
	}

	limit := in.Limit
	if limit <= 0 {
		limit = defaultResultLimit
	}

	items := make([]Item, 0)
	var startKey Item
	for {
		out, err := s.client.Scan(ctx, &awsdynamodb.ScanInput{
			TableName:                 aws.String(in.Table),
			IndexName:                 indexName(in.Index),
			FilterExpression:          expr.Filter(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return nil, translateError("scan", err)
		}
		items = append(items, out.Items...)
		if int32(len(items)) >= limit || len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	if int32(len(items)) > limit {
		items = items[:limit]
	}
	return items, nil
}

// BatchWrite submits puts and deletes in one batch request. Unprocessed
// requests are resubmitted a few times; anything still unprocessed after
// that surfaces as an error with no rollback of what did land.
func (s *dynamoStore) BatchWrite(ctx context.Context, in BatchWriteInput) error {
	requests := make([]types.WriteRequest, 0, len(in.Puts)+len(in.Deletes))
	for _, item := range in.Puts {
		requests = append(requests, types.WriteRequest{
			PutRequest: &types.PutRequest{Item: item},
		})
	}
	for _, key := range in.Deletes {
		requests = append(requests, types.WriteRequest{
			DeleteRequest: &types.DeleteRequest{Key: key},
		})
	}

	const maxAttempts = 3
	for attempt := 0; attempt < maxAttempts; attempt++ {
		out, err := s.client.BatchWriteItem(ctx, &awsdynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{in.Table: requests},
		})
		if err != nil {
			return translateError("batch write", err)
		}
		unprocessed := out.UnprocessedItems[in.Table]
		if len(unprocessed) == 0 {
			return nil
		}
		s.logger.Warn("Batch write left unprocessed requests",
			zap.Int("unprocessed", len(unprocessed)),
			zap.Int("attempt", attempt+1),
		)
		requests = unprocessed

		select {
		case <-time.After(time.Duration(attempt+1) * 50 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("batch write left %d unprocessed requests", len(requests))
}

func indexName(index string) *string {
	if index == "" {
		return nil
	}
	return aws.String(index)
}

// translateError maps transient backend failures onto the Unavailable kind
// so callers can make retry decisions; everything else passes through.
func translateError(op string, err error) error {
	var apiErr smithy.APIError
	if stderrors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ProvisionedThroughputExceededException",
			"ThrottlingException",
			"RequestLimitExceeded",
			"InternalServerError",
			"ServiceUnavailable":
			return apperrors.NewUnavailableError(op + " failed: " + apiErr.ErrorMessage()).WithCause(err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
