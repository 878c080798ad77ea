package storeinfra

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/YoadTamar/aws-hw2/directory"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// Secondary index names, each sorted by Rating.
const (
	CategoryIndex          = "CategoryIndex"
	GeoRegionIndex         = "GeoRegionIndex"
	GeoRegionCategoryIndex = "GeoRegionCategoryIndex"
)

const (
	attrKey            = "SimpleKey"
	attrCategory       = "Category"
	attrRegion         = "GeoRegion"
	attrRegionCategory = "RegionCategory"
	attrRating         = "Rating"
	attrRatingCount    = "RatingCount"
)

// DynamoDBAPI is the subset of the DynamoDB client used by DynamoStore.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

type recordItem struct {
	SimpleKey      string  `dynamodbav:"SimpleKey"`
	Category       string  `dynamodbav:"Category"`
	GeoRegion      string  `dynamodbav:"GeoRegion"`
	RegionCategory string  `dynamodbav:"RegionCategory"`
	Rating         float64 `dynamodbav:"Rating"`
	RatingCount    int     `dynamodbav:"RatingCount"`
}

// regionCategory escapes both parts so a '#' inside a region or category cannot
// shift the boundary between them.
func regionCategory(region, category string) string {
	return url.QueryEscape(region) + "#" + url.QueryEscape(category)
}

func toItem(r directory.Record) recordItem {
	return recordItem{
		SimpleKey:      r.Name,
		Category:       r.Category,
		GeoRegion:      r.Region,
		RegionCategory: regionCategory(r.Region, r.Category),
		Rating:         r.Rating,
		RatingCount:    r.RatingCount,
	}
}

func (i recordItem) record() directory.Record {
	return directory.Record{
		Name:        i.SimpleKey,
		Category:    i.Category,
		Region:      i.GeoRegion,
		Rating:      i.Rating,
		RatingCount: i.RatingCount,
	}
}

// DynamoStore keeps records in a single DynamoDB table.
type DynamoStore struct {
	client    DynamoDBAPI
	tableName string
	logger    *zap.Logger
}

var _ directory.RecordStore = (*DynamoStore)(nil)

func NewDynamoStore(client DynamoDBAPI, tableName string, logger *zap.Logger) *DynamoStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DynamoStore{client: client, tableName: tableName, logger: logger}
}

// NewDynamoClient loads the default AWS configuration for region. A non-empty
// endpoint overrides the service endpoint, for DynamoDB Local.
func NewDynamoClient(ctx context.Context, region, endpoint string) (*dynamodb.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}

func (s *DynamoStore) key(name string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrKey: &types.AttributeValueMemberS{Value: name},
	}
}

func (s *DynamoStore) Get(ctx context.Context, name string) (directory.Record, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key:       s.key(name),
	})
	if err != nil {
		return directory.Record{}, fmt.Errorf("failed to get item: %w", err)
	}
	if len(out.Item) == 0 {
		return directory.Record{}, directory.ErrRecordNotFound
	}

	var item recordItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return directory.Record{}, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	return item.record(), nil
}

func (s *DynamoStore) Insert(ctx context.Context, record directory.Record) error {
	av, err := attributevalue.MarshalMap(toItem(record))
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}

	expr, err := expression.NewBuilder().
		WithCondition(expression.Name(attrKey).AttributeNotExists()).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build expression: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(s.tableName),
		Item:                      av,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return directory.ErrRecordExists
		}
		return fmt.Errorf("failed to put item: %w", err)
	}
	return nil
}

func (s *DynamoStore) Delete(ctx context.Context, name string) error {
	if _, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       s.key(name),
	}); err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return nil
}

func (s *DynamoStore) UpdateRating(ctx context.Context, update directory.RatingUpdate) error {
	cond := expression.Name(attrKey).AttributeExists()
	if update.ExpectedCount != nil {
		cond = cond.And(expression.Name(attrRatingCount).Equal(expression.Value(*update.ExpectedCount)))
	}
	set := expression.Set(expression.Name(attrRating), expression.Value(update.Rating)).
		Set(expression.Name(attrRatingCount), expression.Value(update.Count))

	expr, err := expression.NewBuilder().
		WithCondition(cond).
		WithUpdate(set).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build expression: %w", err)
	}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                           aws.String(s.tableName),
		Key:                                 s.key(update.Name),
		ConditionExpression:                 expr.Condition(),
		UpdateExpression:                    expr.Update(),
		ExpressionAttributeNames:            expr.Names(),
		ExpressionAttributeValues:           expr.Values(),
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			if len(ccf.Item) == 0 {
				return directory.ErrRecordNotFound
			}
			return directory.ErrStaleRating
		}
		return fmt.Errorf("failed to update item: %w", err)
	}
	return nil
}

func (s *DynamoStore) QueryByCategory(ctx context.Context, category string, limit int) ([]directory.Record, error) {
	return s.query(ctx, CategoryIndex, attrCategory, category, limit)
}

func (s *DynamoStore) QueryByRegion(ctx context.Context, region string, limit int) ([]directory.Record, error) {
	return s.query(ctx, GeoRegionIndex, attrRegion, region, limit)
}

func (s *DynamoStore) QueryByRegionAndCategory(ctx context.Context, region, category string, limit int) ([]directory.Record, error) {
	return s.query(ctx, GeoRegionCategoryIndex, attrRegionCategory, regionCategory(region, category), limit)
}

// query reads an index in descending rating order, following pages until limit
// records are collected or the partition is exhausted.
func (s *DynamoStore) query(ctx context.Context, index, attr, value string, limit int) ([]directory.Record, error) {
	out := make([]directory.Record, 0)
	if limit <= 0 {
		return out, nil
	}

	expr, err := expression.NewBuilder().
		WithKeyCondition(expression.Key(attr).Equal(expression.Value(value))).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	var startKey map[string]types.AttributeValue
	for len(out) < limit {
		result, err := s.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(s.tableName),
			IndexName:                 aws.String(index),
			KeyConditionExpression:    expr.KeyCondition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ScanIndexForward:          aws.Bool(false),
			Limit:                     aws.Int32(int32(limit - len(out))),
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to query %s: %w", index, err)
		}

		var items []recordItem
		if err := attributevalue.UnmarshalListOfMaps(result.Items, &items); err != nil {
			return nil, fmt.Errorf("failed to unmarshal items: %w", err)
		}
		for _, item := range items {
			out = append(out, item.record())
		}

		if len(result.LastEvaluatedKey) == 0 {
			break
		}
		startKey = result.LastEvaluatedKey
	}

	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// CreateTable creates the records table with its three rating-sorted indexes.
// An existing table is left untouched.
func (s *DynamoStore) CreateTable(ctx context.Context) error {
	gsi := func(name, hash string) types.GlobalSecondaryIndex {
		return types.GlobalSecondaryIndex{
			IndexName: aws.String(name),
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String(hash), KeyType: types.KeyTypeHash},
				{AttributeName: aws.String(attrRating), KeyType: types.KeyTypeRange},
			},
			Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
		}
	}
	attr := func(name string, t types.ScalarAttributeType) types.AttributeDefinition {
		return types.AttributeDefinition{AttributeName: aws.String(name), AttributeType: t}
	}

	_, err := s.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName:   aws.String(s.tableName),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			attr(attrKey, types.ScalarAttributeTypeS),
			attr(attrCategory, types.ScalarAttributeTypeS),
			attr(attrRegion, types.ScalarAttributeTypeS),
			attr(attrRegionCategory, types.ScalarAttributeTypeS),
			attr(attrRating, types.ScalarAttributeTypeN),
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(attrKey), KeyType: types.KeyTypeHash},
		},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			gsi(CategoryIndex, attrCategory),
			gsi(GeoRegionIndex, attrRegion),
			gsi(GeoRegionCategoryIndex, attrRegionCategory),
		},
	})
	if err != nil {
		var inUse *types.ResourceInUseException
		if errors.As(err, &inUse) {
			s.logger.Info("table already exists", zap.String("table", s.tableName))
			return nil
		}
		return fmt.Errorf("failed to create table %s: %w", s.tableName, err)
	}

	s.logger.Info("table created", zap.String("table", s.tableName))
	return nil
}
