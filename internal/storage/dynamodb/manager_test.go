package dynamodb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	ddb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/armory/internal/common"
	"github.com/bobmcallan/armory/internal/models"
	"github.com/bobmcallan/armory/internal/storage"
)

// recordingAPI captures requests and returns canned errors.
type recordingAPI struct {
	API

	transactions []*ddb.TransactWriteItemsInput
	transactErr  error

	batches       int
	unprocessed   int
	batchErr      error
	lastBatchSize int
}

func (r *recordingAPI) TransactWriteItems(_ context.Context, in *ddb.TransactWriteItemsInput, _ ...func(*ddb.Options)) (*ddb.TransactWriteItemsOutput, error) {
	r.transactions = append(r.transactions, in)
	if r.transactErr != nil {
		return nil, r.transactErr
	}
	return &ddb.TransactWriteItemsOutput{}, nil
}

func (r *recordingAPI) BatchWriteItem(_ context.Context, in *ddb.BatchWriteItemInput, _ ...func(*ddb.Options)) (*ddb.BatchWriteItemOutput, error) {
	r.batches++
	if r.batchErr != nil {
		return nil, r.batchErr
	}
	out := &ddb.BatchWriteItemOutput{}
	for table, reqs := range in.RequestItems {
		r.lastBatchSize = len(reqs)
		if r.unprocessed > 0 {
			r.unprocessed--
			out.UnprocessedItems = map[string][]types.WriteRequest{table: reqs[:1]}
		}
	}
	return out, nil
}

func testTables() Tables {
	return Tables{
		Profiles:   "profiles",
		Characters: "characters",
		Instances:  "instances",
		UserIndex:  "user_id-index",
		TypeIndex:  "category_index",
	}
}

func TestTransactWrite_BuildsItems(t *testing.T) {
	api := &recordingAPI{}
	m := NewManagerWithClient(common.NewSilentLogger(), api, testTables())
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	char := &models.EnrichedCharacter{
		CharacterIdentity: models.CharacterIdentity{ID: 42, Name: "Foo"},
		UserID:            7,
		IsValid:           true,
	}
	err := m.TransactWrite(context.Background(), []models.WriteItem{
		models.PutCharacter(char),
		models.DeleteCharacter(43),
		models.TouchProfile(7, now),
		models.PutInstance(&models.Instance{ID: 1, Type: models.InstanceRaid}),
	})
	require.NoError(t, err)
	require.Len(t, api.transactions, 1)

	items := api.transactions[0].TransactItems
	require.Len(t, items, 4)

	put := items[0].Put
	require.NotNil(t, put)
	assert.Equal(t, "characters", *put.TableName)
	assert.Equal(t, &types.AttributeValueMemberN{Value: "42"}, put.Item["character_id"])
	assert.Equal(t, &types.AttributeValueMemberN{Value: "7"}, put.Item["user_id"])
	assert.Equal(t, &types.AttributeValueMemberS{Value: "Foo"}, put.Item["name"])

	del := items[1].Delete
	require.NotNil(t, del)
	assert.Equal(t, &types.AttributeValueMemberN{Value: "43"}, del.Key["character_id"])

	upd := items[2].Update
	require.NotNil(t, upd)
	assert.Equal(t, "profiles", *upd.TableName)
	assert.Equal(t, "SET updated_at = :now", *upd.UpdateExpression)
	assert.Equal(t, &types.AttributeValueMemberS{Value: "2026-01-01T00:00:00Z"}, upd.ExpressionAttributeValues[":now"])

	inst := items[3].Put
	require.NotNil(t, inst)
	assert.Equal(t, "instances", *inst.TableName)
	assert.Equal(t, &types.AttributeValueMemberS{Value: "raid"}, inst.Item["type"])
}

func TestTransactWrite_RejectsOversizedChunk(t *testing.T) {
	m := NewManagerWithClient(common.NewSilentLogger(), &recordingAPI{}, testTables())
	items := make([]models.WriteItem, MaxTransactionItems+1)
	for i := range items {
		items[i] = models.DeleteCharacter(int64(i))
	}
	require.Error(t, m.TransactWrite(context.Background(), items))
}

func TestTransactWrite_MapsThrottling(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		throttled bool
	}{
		{"provisioned throughput", &types.ProvisionedThroughputExceededException{Message: aws.String("slow down")}, true},
		{"request limit", &types.RequestLimitExceeded{Message: aws.String("limit")}, true},
		{"throttling api error", &smithy.GenericAPIError{Code: "ThrottlingException"}, true},
		{"cancelled by throttling", &types.TransactionCanceledException{
			CancellationReasons: []types.CancellationReason{{Code: aws.String("None")}, {Code: aws.String("ThrottlingError")}},
		}, true},
		{"cancelled by condition", &types.TransactionCanceledException{
			CancellationReasons: []types.CancellationReason{{Code: aws.String("ConditionalCheckFailed")}},
		}, false},
		{"other", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &recordingAPI{transactErr: tt.err}
			m := NewManagerWithClient(common.NewSilentLogger(), api, testTables())
			err := m.TransactWrite(context.Background(), []models.WriteItem{models.DeleteCharacter(1)})
			require.Error(t, err)
			assert.Equal(t, tt.throttled, storage.IsThroughputExceeded(err))
		})
	}
}

func TestDeleteProfiles_ResubmitsUnprocessed(t *testing.T) {
	api := &recordingAPI{unprocessed: 2}
	m := NewManagerWithClient(common.NewSilentLogger(), api, testTables())

	require.NoError(t, m.ProfileStore().DeleteProfiles(context.Background(), []int64{1, 2, 3}))
	assert.Equal(t, 3, api.batches)
	assert.Equal(t, 1, api.lastBatchSize)
}

func TestDeleteProfiles_PermanentError(t *testing.T) {
	api := &recordingAPI{batchErr: errors.New("access denied")}
	m := NewManagerWithClient(common.NewSilentLogger(), api, testTables())

	require.Error(t, m.ProfileStore().DeleteProfiles(context.Background(), []int64{1}))
	assert.Equal(t, 1, api.batches)
}

func TestDeleteProfiles_RejectsOversizedBatch(t *testing.T) {
	m := NewManagerWithClient(common.NewSilentLogger(), &recordingAPI{}, testTables())
	ids := make([]int64, MaxBatchWriteItems+1)
	require.Error(t, m.ProfileStore().DeleteProfiles(context.Background(), ids))
}
