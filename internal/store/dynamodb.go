package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/models"
)

// DynamoDBClient is the subset of DynamoDB operations used by the store.
// *dynamodb.Client satisfies it; tests substitute a stub.
type DynamoDBClient interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// DynamoDBTables names the three tables. Key schema:
//
//	recommendations: resource_id (HASH)
//	usage:           resource_id (HASH), record_key (RANGE)
//	predictions:     prediction_date (HASH)
type DynamoDBTables struct {
	Recommendations string
	Usage           string
	Predictions     string
}

// batchWriteLimit is the DynamoDB BatchWriteItem maximum.
const batchWriteLimit = 25

const maxUnprocessedRetries = 5

// DynamoDB is a Store backed by DynamoDB tables.
type DynamoDB struct {
	client DynamoDBClient
	tables DynamoDBTables
}

// NewDynamoDB returns a store using client and tables.
func NewDynamoDB(client DynamoDBClient, tables DynamoDBTables) *DynamoDB {
	return &DynamoDB{client: client, tables: tables}
}

func (d *DynamoDB) Close() error { return nil }

func (d *DynamoDB) Get(ctx context.Context, resourceID string) (models.WasteRecommendation, error) {
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.tables.Recommendations),
		Key:            map[string]types.AttributeValue{"resource_id": &types.AttributeValueMemberS{Value: resourceID}},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return models.WasteRecommendation{}, fmt.Errorf("get recommendation %q: %w", resourceID, err)
	}
	if len(out.Item) == 0 {
		return models.WasteRecommendation{}, fmt.Errorf("recommendation %q: %w", resourceID, ErrNotFound)
	}
	return decodeRecItem(out.Item)
}

func (d *DynamoDB) Put(ctx context.Context, rec models.WasteRecommendation) error {
	item, err := attributevalue.MarshalMap(toRecItem(rec))
	if err != nil {
		return fmt.Errorf("marshal recommendation %q: %w", rec.ResourceID, err)
	}
	if _, err := d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.tables.Recommendations),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("put recommendation %q: %w", rec.ResourceID, err)
	}
	return nil
}

// ListByStatus scans the recommendations table with a status filter.
func (d *DynamoDB) ListByStatus(ctx context.Context, status models.Status) ([]models.WasteRecommendation, error) {
	items, err := d.scanAll(ctx, &dynamodb.ScanInput{
		TableName:                 aws.String(d.tables.Recommendations),
		FilterExpression:          aws.String("#s = :s"),
		ExpressionAttributeNames:  map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{":s": &types.AttributeValueMemberS{Value: string(status)}},
	})
	if err != nil {
		return nil, fmt.Errorf("scan recommendations: %w", err)
	}

	out := make([]models.WasteRecommendation, 0, len(items))
	for _, item := range items {
		rec, err := decodeRecItem(item)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ResourceID < out[j].ResourceID })
	return out, nil
}

// UpdateStatus uses a conditional update so a missing item is reported as
// ErrNotFound instead of being created.
func (d *DynamoDB) UpdateStatus(ctx context.Context, resourceID string, status models.Status, at time.Time) (models.WasteRecommendation, error) {
	out, err := d.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                aws.String(d.tables.Recommendations),
		Key:                      map[string]types.AttributeValue{"resource_id": &types.AttributeValueMemberS{Value: resourceID}},
		UpdateExpression:         aws.String("SET #s = :s, updated_at = :u"),
		ConditionExpression:      aws.String("attribute_exists(resource_id)"),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":s": &types.AttributeValueMemberS{Value: string(status)},
			":u": &types.AttributeValueMemberS{Value: formatTS(at)},
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return models.WasteRecommendation{}, fmt.Errorf("recommendation %q: %w", resourceID, ErrNotFound)
		}
		return models.WasteRecommendation{}, fmt.Errorf("update recommendation %q: %w", resourceID, err)
	}
	return decodeRecItem(out.Attributes)
}

// DeleteActive is a conditional delete; a missing or non-Active item fails
// the condition and is reported as not removed.
func (d *DynamoDB) DeleteActive(ctx context.Context, resourceID string) (bool, error) {
	_, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                aws.String(d.tables.Recommendations),
		Key:                      map[string]types.AttributeValue{"resource_id": &types.AttributeValueMemberS{Value: resourceID}},
		ConditionExpression:      aws.String("#s = :s"),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":s": &types.AttributeValueMemberS{Value: string(models.StatusActive)},
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return false, nil
		}
		return false, fmt.Errorf("delete recommendation %q: %w", resourceID, err)
	}
	return true, nil
}

// PutUsage writes records in batches of 25, retrying unprocessed items a
// bounded number of times.
func (d *DynamoDB) PutUsage(ctx context.Context, recs []models.UsageRecord) error {
	for start := 0; start < len(recs); start += batchWriteLimit {
		end := min(start+batchWriteLimit, len(recs))

		reqs := make([]types.WriteRequest, 0, end-start)
		for _, r := range recs[start:end] {
			item, err := attributevalue.MarshalMap(toUsageItem(r))
			if err != nil {
				return fmt.Errorf("marshal usage for %q: %w", r.ResourceID, err)
			}
			reqs = append(reqs, types.WriteRequest{PutRequest: &types.PutRequest{Item: item}})
		}

		pending := map[string][]types.WriteRequest{d.tables.Usage: reqs}
		for attempt := 0; len(pending) > 0; attempt++ {
			if attempt > maxUnprocessedRetries {
				return fmt.Errorf("batch write usage: %d item(s) left unprocessed", len(pending[d.tables.Usage]))
			}
			out, err := d.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: pending})
			if err != nil {
				return fmt.Errorf("batch write usage: %w", err)
			}
			pending = out.UnprocessedItems
			if len(pending) > 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(time.Duration(attempt+1) * 100 * time.Millisecond):
				}
			}
		}
	}
	return nil
}

func (d *DynamoDB) UsageFor(ctx context.Context, resourceID string) ([]models.UsageRecord, error) {
	var items []map[string]types.AttributeValue
	p := dynamodb.NewQueryPaginator(d.client, &dynamodb.QueryInput{
		TableName:              aws.String(d.tables.Usage),
		KeyConditionExpression: aws.String("resource_id = :r"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":r": &types.AttributeValueMemberS{Value: resourceID},
		},
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("query usage for %q: %w", resourceID, err)
		}
		items = append(items, page.Items...)
	}
	return decodeUsageItems(items)
}

func (d *DynamoDB) UsageSince(ctx context.Context, since time.Time) ([]models.UsageRecord, error) {
	items, err := d.scanAll(ctx, &dynamodb.ScanInput{
		TableName:                aws.String(d.tables.Usage),
		FilterExpression:         aws.String("#ts >= :since"),
		ExpressionAttributeNames: map[string]string{"#ts": "timestamp"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":since": &types.AttributeValueMemberS{Value: formatTS(since)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("scan usage: %w", err)
	}
	return decodeUsageItems(items)
}

func (d *DynamoDB) PutPrediction(ctx context.Context, p models.Prediction) error {
	item, err := attributevalue.MarshalMap(toPredictionItem(p))
	if err != nil {
		return fmt.Errorf("marshal prediction %s: %w", p.PredictionDate, err)
	}
	if _, err := d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.tables.Predictions),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("put prediction %s: %w", p.PredictionDate, err)
	}
	return nil
}

// LatestPrediction scans the (small, one row per day) predictions table.
func (d *DynamoDB) LatestPrediction(ctx context.Context) (models.Prediction, error) {
	items, err := d.scanAll(ctx, &dynamodb.ScanInput{TableName: aws.String(d.tables.Predictions)})
	if err != nil {
		return models.Prediction{}, fmt.Errorf("scan predictions: %w", err)
	}
	var latest *predictionItem
	for _, item := range items {
		var pi predictionItem
		if err := attributevalue.UnmarshalMap(item, &pi); err != nil {
			return models.Prediction{}, fmt.Errorf("unmarshal prediction: %w", err)
		}
		if latest == nil || pi.PredictionDate > latest.PredictionDate {
			latest = &pi
		}
	}
	if latest == nil {
		return models.Prediction{}, fmt.Errorf("latest prediction: %w", ErrNotFound)
	}
	return latest.toModel()
}

func (d *DynamoDB) scanAll(ctx context.Context, in *dynamodb.ScanInput) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue
	p := dynamodb.NewScanPaginator(d.client, in)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		items = append(items, page.Items...)
	}
	return items, nil
}

func decodeRecItem(item map[string]types.AttributeValue) (models.WasteRecommendation, error) {
	var ri recommendationItem
	if err := attributevalue.UnmarshalMap(item, &ri); err != nil {
		return models.WasteRecommendation{}, fmt.Errorf("unmarshal recommendation: %w", err)
	}
	return ri.toModel()
}

func decodeUsageItems(items []map[string]types.AttributeValue) ([]models.UsageRecord, error) {
	out := make([]models.UsageRecord, 0, len(items))
	for _, item := range items {
		var ui usageItem
		if err := attributevalue.UnmarshalMap(item, &ui); err != nil {
			return nil, fmt.Errorf("unmarshal usage: %w", err)
		}
		r, err := ui.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	sortUsage(out)
	return out, nil
}
