package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	ddb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cenkalti/backoff/v4"

	"github.com/bobmcallan/armory/internal/common"
	"github.com/bobmcallan/armory/internal/models"
	"github.com/bobmcallan/armory/internal/storage"
)

// ProfileStore keeps profiles keyed by user_id.
type ProfileStore struct {
	client API
	table  string
	logger *common.Logger
}

func (s *ProfileStore) GetProfile(ctx context.Context, userID int64) (*models.Profile, error) {
	out, err := s.client.GetItem(ctx, &ddb.GetItemInput{
		TableName: aws.String(s.table),
		Key:       numberKey("user_id", userID),
	})
	if err != nil {
		return nil, fmt.Errorf("get profile %d: %w", userID, mapError(err))
	}
	if out.Item == nil {
		return nil, fmt.Errorf("profile %d: %w", userID, storage.ErrNotFound)
	}
	var p models.Profile
	if err := unmarshalMap(out.Item, &p); err != nil {
		return nil, fmt.Errorf("unmarshal profile %d: %w", userID, err)
	}
	return &p, nil
}

func (s *ProfileStore) SaveProfile(ctx context.Context, profile *models.Profile) error {
	av, err := marshalMap(profile)
	if err != nil {
		return fmt.Errorf("marshal profile %d: %w", profile.UserID, err)
	}
	if _, err := s.client.PutItem(ctx, &ddb.PutItemInput{TableName: aws.String(s.table), Item: av}); err != nil {
		return fmt.Errorf("put profile %d: %w", profile.UserID, mapError(err))
	}
	return nil
}

func (s *ProfileStore) ListProfiles(ctx context.Context) ([]*models.Profile, error) {
	var out []*models.Profile
	p := ddb.NewScanPaginator(s.client, &ddb.ScanInput{TableName: aws.String(s.table)})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan profiles: %w", mapError(err))
		}
		for _, item := range page.Items {
			var profile models.Profile
			if err := unmarshalMap(item, &profile); err != nil {
				return nil, fmt.Errorf("unmarshal profile: %w", err)
			}
			out = append(out, &profile)
		}
	}
	return out, nil
}

// ListStaleProfiles scans for profiles whose updated_at sorts before cutoff.
func (s *ProfileStore) ListStaleProfiles(ctx context.Context, cutoff time.Time) ([]int64, error) {
	threshold, err := attributevalue.Marshal(cutoff.UTC())
	if err != nil {
		return nil, fmt.Errorf("marshal cutoff: %w", err)
	}

	var ids []int64
	p := ddb.NewScanPaginator(s.client, &ddb.ScanInput{
		TableName:                 aws.String(s.table),
		FilterExpression:          aws.String("updated_at < :threshold"),
		ProjectionExpression:      aws.String("user_id"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":threshold": threshold},
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan stale profiles: %w", mapError(err))
		}
		for _, item := range page.Items {
			var row struct {
				UserID int64 `json:"user_id"`
			}
			if err := unmarshalMap(item, &row); err != nil {
				return nil, fmt.Errorf("unmarshal profile id: %w", err)
			}
			ids = append(ids, row.UserID)
		}
	}
	return ids, nil
}

// DeleteProfiles removes up to MaxBatchWriteItems profiles, resubmitting
// unprocessed deletes with backoff.
func (s *ProfileStore) DeleteProfiles(ctx context.Context, userIDs []int64) error {
	if len(userIDs) == 0 {
		return nil
	}
	if len(userIDs) > MaxBatchWriteItems {
		return fmt.Errorf("batch of %d deletes exceeds limit of %d", len(userIDs), MaxBatchWriteItems)
	}

	requests := make([]types.WriteRequest, 0, len(userIDs))
	for _, id := range userIDs {
		requests = append(requests, types.WriteRequest{DeleteRequest: &types.DeleteRequest{Key: numberKey("user_id", id)}})
	}
	pending := map[string][]types.WriteRequest{s.table: requests}

	op := func() error {
		out, err := s.client.BatchWriteItem(ctx, &ddb.BatchWriteItemInput{RequestItems: pending})
		if err != nil {
			err = mapError(err)
			if storage.IsThroughputExceeded(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		if len(out.UnprocessedItems) > 0 {
			pending = out.UnprocessedItems
			return fmt.Errorf("%d unprocessed deletes: %w", len(out.UnprocessedItems[s.table]), storage.ErrThroughputExceeded)
		}
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5), ctx)
	if err := backoff.Retry(op, b); err != nil {
		return fmt.Errorf("delete %d profiles: %w", len(userIDs), err)
	}
	return nil
}

func (s *ProfileStore) MaxBatchDelete() int {
	return MaxBatchWriteItems
}

// SetForcedUpdate stores until as forced_update on an existing profile.
func (s *ProfileStore) SetForcedUpdate(ctx context.Context, userID int64, until time.Time) (*models.Profile, error) {
	at, err := attributevalue.Marshal(until.UTC())
	if err != nil {
		return nil, fmt.Errorf("marshal forced update: %w", err)
	}
	out, err := s.client.UpdateItem(ctx, &ddb.UpdateItemInput{
		TableName:                 aws.String(s.table),
		Key:                       numberKey("user_id", userID),
		UpdateExpression:          aws.String("SET forced_update = :until"),
		ConditionExpression:       aws.String("attribute_exists(user_id)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":until": at},
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil, fmt.Errorf("profile %d: %w", userID, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("set forced update of %d: %w", userID, mapError(err))
	}
	var p models.Profile
	if err := unmarshalMap(out.Attributes, &p); err != nil {
		return nil, fmt.Errorf("unmarshal profile %d: %w", userID, err)
	}
	s.logger.Debug().Int64("user_id", userID).Time("until", until).Msg("Forced update cooldown set")
	return &p, nil
}
