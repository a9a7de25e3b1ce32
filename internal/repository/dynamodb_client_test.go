package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"

	"spaceapps-board/internal/domain"
)

const testID = "0b6f3a9e-4c1d-4f5e-9a7b-2d3c4e5f6a7b"

type fakeDynamo struct {
	getOut      *dynamodb.GetItemOutput
	getErr      error
	putErr      error
	deleteOut   *dynamodb.DeleteItemOutput
	deleteErr   error
	scanPages   []*dynamodb.ScanOutput
	scanErr     error
	createErr   error
	describeOut *dynamodb.DescribeTableOutput

	lastGetInput    *dynamodb.GetItemInput
	lastPutInput    *dynamodb.PutItemInput
	lastDeleteInput *dynamodb.DeleteItemInput
	scanInputs      []*dynamodb.ScanInput
	lastCreateInput *dynamodb.CreateTableInput
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.lastGetInput = in
	return f.getOut, f.getErr
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.lastPutInput = in
	return &dynamodb.PutItemOutput{}, f.putErr
}

func (f *fakeDynamo) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.lastDeleteInput = in
	return f.deleteOut, f.deleteErr
}

func (f *fakeDynamo) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.scanInputs = append(f.scanInputs, in)
	if f.scanErr != nil {
		return nil, f.scanErr
	}
	idx := len(f.scanInputs) - 1
	if idx >= len(f.scanPages) {
		return &dynamodb.ScanOutput{}, nil
	}
	return f.scanPages[idx], nil
}

func (f *fakeDynamo) CreateTable(_ context.Context, in *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	f.lastCreateInput = in
	return &dynamodb.CreateTableOutput{}, f.createErr
}

func (f *fakeDynamo) DescribeTable(_ context.Context, _ *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	return f.describeOut, nil
}

func makeRecordItem(id, name, message string, createdAt time.Time) map[string]types.AttributeValue {
	return recordItem(domain.Record{ID: id, Name: name, Message: message, CreatedAt: createdAt})
}

func fixedClock() time.Time {
	return time.Date(2025, 10, 4, 12, 30, 0, 120000000, time.UTC)
}

func mustNewDynamoStore(t *testing.T, db *fakeDynamo) *DynamoStore {
	t.Helper()
	s, err := NewDynamoStore(db, "test-table",
		WithClock(fixedClock),
		WithIDGenerator(func() string { return testID }),
	)
	require.NoError(t, err)
	return s
}

func TestNewDynamoStore_Validation(t *testing.T) {
	_, err := NewDynamoStore(nil, "t")
	require.Error(t, err)
	require.Contains(t, err.Error(), "must not be nil")

	_, err = NewDynamoStore(&fakeDynamo{}, "  ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "table name")
}

func TestDynamoCreate_HappyPath(t *testing.T) {
	db := &fakeDynamo{}
	s := mustNewDynamoStore(t, db)

	rec, err := s.Create(context.Background(), "Ada", "Hello")
	require.NoError(t, err)
	require.Equal(t, testID, rec.ID)
	require.Equal(t, fixedClock(), rec.CreatedAt)

	in := db.lastPutInput
	require.NotNil(t, in)
	require.Equal(t, "test-table", *in.TableName)
	require.Equal(t, "attribute_not_exists(PK)", *in.ConditionExpression)
	require.Equal(t, "REC#"+testID, in.Item["PK"].(*types.AttributeValueMemberS).Value)
	require.Equal(t, "RECORD", in.Item["SK"].(*types.AttributeValueMemberS).Value)
	require.Equal(t, "2025-10-04T12:30:00.120000000Z", in.Item["createdAt"].(*types.AttributeValueMemberS).Value)
	require.Equal(t, "Ada", in.Item["name"].(*types.AttributeValueMemberS).Value)
}

func TestDynamoCreate_PutError(t *testing.T) {
	db := &fakeDynamo{putErr: errors.New("boom")}
	s := mustNewDynamoStore(t, db)
	_, err := s.Create(context.Background(), "Ada", "Hello")
	require.Error(t, err)
	require.ErrorContains(t, err, "Create")
	require.ErrorContains(t, err, "boom")
}

func TestDynamoGet_HappyPath(t *testing.T) {
	created := fixedClock()
	db := &fakeDynamo{getOut: &dynamodb.GetItemOutput{Item: makeRecordItem(testID, "Ada", "Hello", created)}}
	s := mustNewDynamoStore(t, db)

	rec, err := s.Get(context.Background(), testID)
	require.NoError(t, err)
	require.Equal(t, domain.Record{ID: testID, Name: "Ada", Message: "Hello", CreatedAt: created}, rec)
	require.True(t, *db.lastGetInput.ConsistentRead)
	require.Equal(t, "REC#"+testID, db.lastGetInput.Key["PK"].(*types.AttributeValueMemberS).Value)
}

func TestDynamoGet_NotFound(t *testing.T) {
	db := &fakeDynamo{getOut: &dynamodb.GetItemOutput{}}
	s := mustNewDynamoStore(t, db)
	_, err := s.Get(context.Background(), testID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDynamoGet_InvalidID(t *testing.T) {
	db := &fakeDynamo{}
	s := mustNewDynamoStore(t, db)
	_, err := s.Get(context.Background(), "not-an-id")
	require.ErrorIs(t, err, ErrInvalidID)
	require.Nil(t, db.lastGetInput)
}

func TestDynamoGet_MalformedItem(t *testing.T) {
	item := makeRecordItem(testID, "Ada", "Hello", fixedClock())
	item["createdAt"] = &types.AttributeValueMemberN{Value: "1"}
	db := &fakeDynamo{getOut: &dynamodb.GetItemOutput{Item: item}}
	s := mustNewDynamoStore(t, db)
	_, err := s.Get(context.Background(), testID)
	require.Error(t, err)
	require.Contains(t, err.Error(), "not a string")
}

func TestDynamoGet_GetItemError(t *testing.T) {
	db := &fakeDynamo{getErr: errors.New("throttled")}
	s := mustNewDynamoStore(t, db)
	_, err := s.Get(context.Background(), testID)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotFound)
	require.Contains(t, err.Error(), "Get get item")
}

func TestDynamoDelete_HappyPath(t *testing.T) {
	db := &fakeDynamo{deleteOut: &dynamodb.DeleteItemOutput{Attributes: makeRecordItem(testID, "Ada", "Hello", fixedClock())}}
	s := mustNewDynamoStore(t, db)

	rec, err := s.Delete(context.Background(), testID)
	require.NoError(t, err)
	require.Equal(t, "Ada", rec.Name)
	require.Equal(t, types.ReturnValueAllOld, db.lastDeleteInput.ReturnValues)
}

func TestDynamoDelete_NotFound(t *testing.T) {
	db := &fakeDynamo{deleteOut: &dynamodb.DeleteItemOutput{}}
	s := mustNewDynamoStore(t, db)
	_, err := s.Delete(context.Background(), testID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDynamoDelete_InvalidID(t *testing.T) {
	db := &fakeDynamo{}
	s := mustNewDynamoStore(t, db)
	_, err := s.Delete(context.Background(), "abc")
	require.ErrorIs(t, err, ErrInvalidID)
	require.Nil(t, db.lastDeleteInput)
}

func TestDynamoList_ConsistentScanSortedNewestFirst(t *testing.T) {
	t0 := fixedClock()
	db := &fakeDynamo{
		scanPages: []*dynamodb.ScanOutput{
			{
				Items: []map[string]types.AttributeValue{
					makeRecordItem("a", "A", "1", t0),
					makeRecordItem("c", "C", "3", t0.Add(2*time.Second)),
				},
				LastEvaluatedKey: map[string]types.AttributeValue{"PK": &types.AttributeValueMemberS{Value: "REC#c"}},
			},
			{
				Items: []map[string]types.AttributeValue{makeRecordItem("b", "B", "2", t0.Add(time.Second))},
			},
		},
	}
	s := mustNewDynamoStore(t, db)

	recs, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 3)
	require.Equal(t, []string{"C", "B", "A"}, []string{recs[0].Name, recs[1].Name, recs[2].Name})

	require.Len(t, db.scanInputs, 2)
	for _, in := range db.scanInputs {
		require.NotNil(t, in.ConsistentRead)
		require.True(t, *in.ConsistentRead)
		require.Equal(t, "SK = :sk", *in.FilterExpression)
	}
	require.NotEmpty(t, db.scanInputs[1].ExclusiveStartKey)
}

func TestDynamoList_SameInstantOrderedByID(t *testing.T) {
	t0 := fixedClock()
	db := &fakeDynamo{
		scanPages: []*dynamodb.ScanOutput{{
			Items: []map[string]types.AttributeValue{
				makeRecordItem("id-1", "first", "m", t0),
				makeRecordItem("id-2", "second", "m", t0),
			},
		}},
	}
	s := mustNewDynamoStore(t, db)

	recs, err := s.List(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"id-2", "id-1"}, []string{recs[0].ID, recs[1].ID})
}

func TestDynamoList_Empty(t *testing.T) {
	db := &fakeDynamo{scanPages: []*dynamodb.ScanOutput{{}}}
	s := mustNewDynamoStore(t, db)
	recs, err := s.List(context.Background())
	require.NoError(t, err)
	require.NotNil(t, recs)
	require.Empty(t, recs)
}

func TestDynamoList_ScanError(t *testing.T) {
	db := &fakeDynamo{scanErr: errors.New("ResourceNotFoundException")}
	s := mustNewDynamoStore(t, db)
	_, err := s.List(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "List scan")
}

func TestEnsureTable_CreatesAndWaits(t *testing.T) {
	db := &fakeDynamo{describeOut: &dynamodb.DescribeTableOutput{Table: &types.TableDescription{TableStatus: types.TableStatusActive}}}
	s := mustNewDynamoStore(t, db)

	require.NoError(t, s.EnsureTable(context.Background()))
	require.NotNil(t, db.lastCreateInput)
	require.Len(t, db.lastCreateInput.KeySchema, 2)
	require.Empty(t, db.lastCreateInput.GlobalSecondaryIndexes)
}

func TestEnsureTable_ExistingTable(t *testing.T) {
	db := &fakeDynamo{
		createErr:   &types.ResourceInUseException{Message: strPtr("table exists")},
		describeOut: &dynamodb.DescribeTableOutput{Table: &types.TableDescription{TableStatus: types.TableStatusActive}},
	}
	s := mustNewDynamoStore(t, db)
	require.NoError(t, s.EnsureTable(context.Background()))
}

func TestEnsureTable_CreateError(t *testing.T) {
	db := &fakeDynamo{createErr: errors.New("access denied")}
	s := mustNewDynamoStore(t, db)
	err := s.EnsureTable(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "EnsureTable create")
}

func strPtr(s string) *string { return &s }
