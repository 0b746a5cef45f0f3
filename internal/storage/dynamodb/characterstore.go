package dynamodb

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	ddb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/bobmcallan/armory/internal/common"
	"github.com/bobmcallan/armory/internal/models"
	"github.com/bobmcallan/armory/internal/storage"
)

// CharacterStore reads characters keyed by character_id, with a user_id GSI.
type CharacterStore struct {
	client    API
	table     string
	userIndex string
	logger    *common.Logger
}

func (s *CharacterStore) GetCharacter(ctx context.Context, characterID int64) (*models.EnrichedCharacter, error) {
	out, err := s.client.GetItem(ctx, &ddb.GetItemInput{
		TableName: aws.String(s.table),
		Key:       numberKey("character_id", characterID),
	})
	if err != nil {
		return nil, fmt.Errorf("get character %d: %w", characterID, mapError(err))
	}
	if out.Item == nil {
		return nil, fmt.Errorf("character %d: %w", characterID, storage.ErrNotFound)
	}
	var c models.EnrichedCharacter
	if err := unmarshalMap(out.Item, &c); err != nil {
		return nil, fmt.Errorf("unmarshal character %d: %w", characterID, err)
	}
	return &c, nil
}

func (s *CharacterStore) ListCharactersByUser(ctx context.Context, userID int64) ([]*models.EnrichedCharacter, error) {
	p := ddb.NewQueryPaginator(s.client, &ddb.QueryInput{
		TableName:                 aws.String(s.table),
		IndexName:                 aws.String(s.userIndex),
		KeyConditionExpression:    aws.String("user_id = :user_id"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":user_id": &types.AttributeValueMemberN{Value: strconv.FormatInt(userID, 10)}},
	})

	var out []*models.EnrichedCharacter
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("query characters of %d: %w", userID, mapError(err))
		}
		for _, item := range page.Items {
			var c models.EnrichedCharacter
			if err := unmarshalMap(item, &c); err != nil {
				return nil, fmt.Errorf("unmarshal character: %w", err)
			}
			out = append(out, &c)
		}
	}
	return out, nil
}
