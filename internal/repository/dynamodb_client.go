package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"spaceapps-board/internal/domain"
)

const (
	pkPrefixRecord = "REC#"
	skRecord       = "RECORD"
	tableWaitTime  = 30 * time.Second

	// Fixed-width UTC layout, nanosecond precision.
	sortTimeLayout = "2006-01-02T15:04:05.000000000Z"
)

// dynamodbAPI is the minimal DynamoDB interface required by DynamoStore.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// DynamoStore keeps records in a single DynamoDB table.
type DynamoStore struct {
	api       dynamodbAPI
	tableName string
	opts      options
}

// NewDynamoStore creates a DynamoDB backed Store.
func NewDynamoStore(api dynamodbAPI, tableName string, opts ...Option) (*DynamoStore, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &DynamoStore{api: api, tableName: tableName, opts: buildOptions(opts)}, nil
}

func recordPK(id string) string {
	return pkPrefixRecord + id
}

func createdAtKey(ts time.Time) string {
	return ts.UTC().Format(sortTimeLayout)
}

// List returns every record, newest first, from a strongly consistent Scan so
// the result reflects every acknowledged write.
func (s *DynamoStore) List(ctx context.Context) ([]domain.Record, error) {
	in := &dynamodb.ScanInput{
		TableName:        aws.String(s.tableName),
		ConsistentRead:   aws.Bool(true),
		FilterExpression: aws.String("SK = :sk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":sk": &types.AttributeValueMemberS{Value: skRecord},
		},
	}

	records := make([]domain.Record, 0)
	p := dynamodb.NewScanPaginator(s.api, in)
	for p.HasMorePages() {
		out, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("repository: List scan: %w", err)
		}
		for _, item := range out.Items {
			rec, err := itemToRecord(item)
			if err != nil {
				return nil, fmt.Errorf("repository: List unmarshal: %w", err)
			}
			records = append(records, rec)
		}
	}
	slices.SortFunc(records, newestFirst)
	return records, nil
}

// newestFirst orders by creation time descending, then by id descending.
func newestFirst(a, b domain.Record) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return strings.Compare(b.ID, a.ID)
}

// Create assigns an id and creation time and persists the record.
func (s *DynamoStore) Create(ctx context.Context, name, message string) (domain.Record, error) {
	rec := domain.Record{
		ID:        s.opts.newID(),
		Name:      name,
		Message:   message,
		CreatedAt: s.opts.now().UTC(),
	}
	_, err := s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                recordItem(rec),
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		return domain.Record{}, fmt.Errorf("repository: Create: %w", err)
	}
	return rec, nil
}

// Get reads a single record with a strongly consistent read.
func (s *DynamoStore) Get(ctx context.Context, id string) (domain.Record, error) {
	if err := checkID(id); err != nil {
		return domain.Record{}, err
	}
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            recordKey(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return domain.Record{}, fmt.Errorf("repository: Get get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return domain.Record{}, ErrNotFound
	}
	rec, err := itemToRecord(out.Item)
	if err != nil {
		return domain.Record{}, fmt.Errorf("repository: Get unmarshal: %w", err)
	}
	return rec, nil
}

// Delete removes the record and returns what was stored.
func (s *DynamoStore) Delete(ctx context.Context, id string) (domain.Record, error) {
	if err := checkID(id); err != nil {
		return domain.Record{}, err
	}
	out, err := s.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(s.tableName),
		Key:          recordKey(id),
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return domain.Record{}, fmt.Errorf("repository: Delete: %w", err)
	}
	if out == nil || len(out.Attributes) == 0 {
		return domain.Record{}, ErrNotFound
	}
	rec, err := itemToRecord(out.Attributes)
	if err != nil {
		return domain.Record{}, fmt.Errorf("repository: Delete unmarshal: %w", err)
	}
	return rec, nil
}

// EnsureTable creates the table when missing and waits until it is active.
// Intended for local DynamoDB; production tables are provisioned out of band.
func (s *DynamoStore) EnsureTable(ctx context.Context) error {
	_, err := s.api.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName:   aws.String(s.tableName),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("PK"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("SK"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("PK"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("SK"), KeyType: types.KeyTypeRange},
		},
	})
	if err != nil {
		var inUse *types.ResourceInUseException
		if !errors.As(err, &inUse) {
			return fmt.Errorf("repository: EnsureTable create: %w", err)
		}
	}

	waiter := dynamodb.NewTableExistsWaiter(s.api)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.tableName)}, tableWaitTime); err != nil {
		return fmt.Errorf("repository: EnsureTable wait: %w", err)
	}
	return nil
}

func recordKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: recordPK(id)},
		"SK": &types.AttributeValueMemberS{Value: skRecord},
	}
}

func recordItem(rec domain.Record) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":        &types.AttributeValueMemberS{Value: recordPK(rec.ID)},
		"SK":        &types.AttributeValueMemberS{Value: skRecord},
		"id":        &types.AttributeValueMemberS{Value: rec.ID},
		"name":      &types.AttributeValueMemberS{Value: rec.Name},
		"message":   &types.AttributeValueMemberS{Value: rec.Message},
		"createdAt": &types.AttributeValueMemberS{Value: createdAtKey(rec.CreatedAt)},
	}
}

// itemToRecord converts a DynamoDB attribute map to a Record.
func itemToRecord(item map[string]types.AttributeValue) (domain.Record, error) {
	id, err := strAttr(item, "id")
	if err != nil {
		return domain.Record{}, err
	}
	name, err := strAttr(item, "name")
	if err != nil {
		return domain.Record{}, err
	}
	message, err := strAttr(item, "message")
	if err != nil {
		return domain.Record{}, err
	}
	rawCreatedAt, err := strAttr(item, "createdAt")
	if err != nil {
		return domain.Record{}, err
	}
	createdAt, err := time.Parse(sortTimeLayout, rawCreatedAt)
	if err != nil {
		return domain.Record{}, fmt.Errorf("repository: parse attribute %q: %w", "createdAt", err)
	}
	return domain.Record{
		ID:        id,
		Name:      name,
		Message:   message,
		CreatedAt: createdAt.UTC(),
	}, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}
