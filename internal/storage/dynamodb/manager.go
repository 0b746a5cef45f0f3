// Package dynamodb implements the document store on Amazon DynamoDB.
package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	ddb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	"github.com/bobmcallan/armory/internal/common"
	"github.com/bobmcallan/armory/internal/interfaces"
	"github.com/bobmcallan/armory/internal/models"
	"github.com/bobmcallan/armory/internal/storage"
)

const (
	// MaxTransactionItems is the chunk size used for TransactWriteItems.
	MaxTransactionItems = 25

	// MaxBatchWriteItems is the BatchWriteItem request limit.
	MaxBatchWriteItems = 25
)

// API is the subset of the DynamoDB client the stores use.
type API interface {
	GetItem(ctx context.Context, params *ddb.GetItemInput, optFns ...func(*ddb.Options)) (*ddb.GetItemOutput, error)
	PutItem(ctx context.Context, params *ddb.PutItemInput, optFns ...func(*ddb.Options)) (*ddb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *ddb.UpdateItemInput, optFns ...func(*ddb.Options)) (*ddb.UpdateItemOutput, error)
	Query(ctx context.Context, params *ddb.QueryInput, optFns ...func(*ddb.Options)) (*ddb.QueryOutput, error)
	Scan(ctx context.Context, params *ddb.ScanInput, optFns ...func(*ddb.Options)) (*ddb.ScanOutput, error)
	BatchWriteItem(ctx context.Context, params *ddb.BatchWriteItemInput, optFns ...func(*ddb.Options)) (*ddb.BatchWriteItemOutput, error)
	TransactWriteItems(ctx context.Context, params *ddb.TransactWriteItemsInput, optFns ...func(*ddb.Options)) (*ddb.TransactWriteItemsOutput, error)
}

// Tables names the tables and indexes.
type Tables struct {
	Profiles   string
	Characters string
	Instances  string
	UserIndex  string
	TypeIndex  string
}

// TablesFromConfig reads table names from config.
func TablesFromConfig(cfg common.DynamoDBConfig) Tables {
	return Tables{
		Profiles:   cfg.ProfilesTable,
		Characters: cfg.CharactersTable,
		Instances:  cfg.InstancesTable,
		UserIndex:  cfg.UserIndex,
		TypeIndex:  cfg.TypeIndex,
	}
}

// Manager implements interfaces.StorageManager on DynamoDB.
type Manager struct {
	client API
	tables Tables
	logger *common.Logger

	profileStore   *ProfileStore
	characterStore *CharacterStore
	instanceStore  *InstanceStore
}

// NewManager builds a DynamoDB client from the shared AWS config. endpoint
// points the client at DynamoDB Local when set.
func NewManager(logger *common.Logger, awsCfg aws.Config, endpoint string, cfg common.DynamoDBConfig) *Manager {
	client := ddb.NewFromConfig(awsCfg, func(o *ddb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	m := NewManagerWithClient(logger, client, TablesFromConfig(cfg))

	logger.Info().
		Str("profiles", cfg.ProfilesTable).
		Str("characters", cfg.CharactersTable).
		Str("instances", cfg.InstancesTable).
		Msg("DynamoDB storage manager initialized")
	return m
}

// NewManagerWithClient wraps an existing client.
func NewManagerWithClient(logger *common.Logger, client API, tables Tables) *Manager {
	return &Manager{
		client:         client,
		tables:         tables,
		logger:         logger,
		profileStore:   &ProfileStore{client: client, table: tables.Profiles, logger: logger},
		characterStore: &CharacterStore{client: client, table: tables.Characters, userIndex: tables.UserIndex, logger: logger},
		instanceStore:  &InstanceStore{client: client, table: tables.Instances, typeIndex: tables.TypeIndex, logger: logger},
	}
}

func (m *Manager) ProfileStore() interfaces.ProfileStore {
	return m.profileStore
}

func (m *Manager) CharacterStore() interfaces.CharacterStore {
	return m.characterStore
}

func (m *Manager) InstanceStore() interfaces.InstanceStore {
	return m.instanceStore
}

func (m *Manager) MaxTransactionItems() int {
	return MaxTransactionItems
}

func (m *Manager) Close() error {
	return nil
}

// TransactWrite applies items in one TransactWriteItems call.
func (m *Manager) TransactWrite(ctx context.Context, items []models.WriteItem) error {
	if len(items) == 0 {
		return nil
	}
	if len(items) > MaxTransactionItems {
		return fmt.Errorf("transaction of %d items exceeds limit of %d", len(items), MaxTransactionItems)
	}

	txItems := make([]types.TransactWriteItem, 0, len(items))
	for _, item := range items {
		tx, err := m.transactItem(item)
		if err != nil {
			return err
		}
		txItems = append(txItems, tx)
	}

	_, err := m.client.TransactWriteItems(ctx, &ddb.TransactWriteItemsInput{TransactItems: txItems})
	if err != nil {
		return fmt.Errorf("transact write %d items: %w", len(items), mapError(err))
	}
	return nil
}

func (m *Manager) transactItem(item models.WriteItem) (types.TransactWriteItem, error) {
	switch item.Op {
	case models.OpPutCharacter:
		av, err := marshalCharacter(item.Character)
		if err != nil {
			return types.TransactWriteItem{}, err
		}
		return types.TransactWriteItem{Put: &types.Put{TableName: aws.String(m.tables.Characters), Item: av}}, nil

	case models.OpDeleteCharacter:
		return types.TransactWriteItem{Delete: &types.Delete{
			TableName: aws.String(m.tables.Characters),
			Key:       numberKey("character_id", item.CharacterID),
		}}, nil

	case models.OpTouchProfile:
		at, err := attributevalue.Marshal(item.At.UTC())
		if err != nil {
			return types.TransactWriteItem{}, fmt.Errorf("marshal touch time: %w", err)
		}
		return types.TransactWriteItem{Update: &types.Update{
			TableName:                 aws.String(m.tables.Profiles),
			Key:                       numberKey("user_id", item.UserID),
			UpdateExpression:          aws.String("SET updated_at = :now"),
			ExpressionAttributeValues: map[string]types.AttributeValue{":now": at},
		}}, nil

	case models.OpPutInstance:
		av, err := marshalMap(item.Instance)
		if err != nil {
			return types.TransactWriteItem{}, fmt.Errorf("marshal instance %d: %w", item.Instance.ID, err)
		}
		return types.TransactWriteItem{Put: &types.Put{TableName: aws.String(m.tables.Instances), Item: av}}, nil

	default:
		return types.TransactWriteItem{}, fmt.Errorf("unsupported write op %s", item.Op)
	}
}

// Compile-time check
var _ interfaces.StorageManager = (*Manager)(nil)

func marshalMap(v any) (map[string]types.AttributeValue, error) {
	return attributevalue.MarshalMapWithOptions(v, func(o *attributevalue.EncoderOptions) {
		o.TagKey = "json"
	})
}

func unmarshalMap(m map[string]types.AttributeValue, v any) error {
	return attributevalue.UnmarshalMapWithOptions(m, v, func(o *attributevalue.DecoderOptions) {
		o.TagKey = "json"
	})
}

// marshalCharacter adds the character_id partition key to the record.
func marshalCharacter(c *models.EnrichedCharacter) (map[string]types.AttributeValue, error) {
	av, err := marshalMap(c)
	if err != nil {
		return nil, fmt.Errorf("marshal character %d: %w", c.ID, err)
	}
	av["character_id"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(c.ID, 10)}
	return av, nil
}

func numberKey(name string, id int64) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		name: &types.AttributeValueMemberN{Value: strconv.FormatInt(id, 10)},
	}
}

var throttlingCodes = map[string]bool{
	"ProvisionedThroughputExceededException": true,
	"ProvisionedThroughputExceeded":          true,
	"RequestLimitExceeded":                   true,
	"ThrottlingException":                    true,
	"ThrottlingError":                        true,
}

// mapError wraps throttling failures with storage.ErrThroughputExceeded. A
// cancelled transaction counts as throttled when any item was throttled.
func mapError(err error) error {
	var tce *types.TransactionCanceledException
	if errors.As(err, &tce) {
		for _, r := range tce.CancellationReasons {
			if r.Code != nil && throttlingCodes[*r.Code] {
				return fmt.Errorf("%w: %w", storage.ErrThroughputExceeded, err)
			}
		}
		return err
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && throttlingCodes[apiErr.ErrorCode()] {
		return fmt.Errorf("%w: %w", storage.ErrThroughputExceeded, err)
	}
	return err
}
