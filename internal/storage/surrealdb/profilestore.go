package surrealdb

import (
	"context"
	"fmt"
	"time"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/bobmcallan/armory/internal/common"
	"github.com/bobmcallan/armory/internal/models"
	"github.com/bobmcallan/armory/internal/storage"
)

// ProfileStore implements interfaces.ProfileStore using SurrealDB.
type ProfileStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

// NewProfileStore creates a new ProfileStore.
func NewProfileStore(db *surrealdb.DB, logger *common.Logger) *ProfileStore {
	return &ProfileStore{db: db, logger: logger}
}

func (s *ProfileStore) GetProfile(ctx context.Context, userID int64) (*models.Profile, error) {
	profile, err := surrealdb.Select[models.Profile](ctx, s.db, surrealmodels.NewRecordID(tableProfile, userID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, fmt.Errorf("profile %d: %w", userID, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to select profile: %w", err)
	}
	if profile == nil || profile.UserID == 0 {
		return nil, fmt.Errorf("profile %d: %w", userID, storage.ErrNotFound)
	}
	return profile, nil
}

func (s *ProfileStore) SaveProfile(ctx context.Context, profile *models.Profile) error {
	sql := "UPSERT $rid CONTENT $profile"
	vars := map[string]any{"rid": surrealmodels.NewRecordID(tableProfile, profile.UserID), "profile": profile}

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		_, err := surrealdb.Query[[]models.Profile](ctx, s.db, sql, vars)
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("failed to save profile after retries: %w", lastErr)
}

func (s *ProfileStore) ListProfiles(ctx context.Context) ([]*models.Profile, error) {
	results, err := surrealdb.Query[[]models.Profile](ctx, s.db, "SELECT * FROM profile", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	var out []*models.Profile
	if results != nil && len(*results) > 0 {
		for i := range (*results)[0].Result {
			out = append(out, &(*results)[0].Result[i])
		}
	}
	return out, nil
}

func (s *ProfileStore) ListStaleProfiles(ctx context.Context, cutoff time.Time) ([]int64, error) {
	sql := "SELECT user_id FROM profile WHERE updated_at < $cutoff"
	results, err := surrealdb.Query[[]struct {
		UserID int64 `json:"user_id"`
	}](ctx, s.db, sql, map[string]any{"cutoff": cutoff.UTC()})
	if err != nil {
		return nil, fmt.Errorf("failed to list stale profiles: %w", err)
	}
	var ids []int64
	if results != nil && len(*results) > 0 {
		for _, row := range (*results)[0].Result {
			ids = append(ids, row.UserID)
		}
	}
	return ids, nil
}

func (s *ProfileStore) DeleteProfiles(ctx context.Context, userIDs []int64) error {
	if len(userIDs) == 0 {
		return nil
	}
	if len(userIDs) > s.MaxBatchDelete() {
		return fmt.Errorf("batch of %d deletes exceeds limit of %d", len(userIDs), s.MaxBatchDelete())
	}
	if _, err := surrealdb.Query[any](ctx, s.db, "DELETE profile WHERE user_id IN $ids", map[string]any{"ids": userIDs}); err != nil {
		return fmt.Errorf("failed to delete profiles: %w", mapError(err))
	}
	return nil
}

func (s *ProfileStore) MaxBatchDelete() int {
	return 25
}

func (s *ProfileStore) SetForcedUpdate(ctx context.Context, userID int64, until time.Time) (*models.Profile, error) {
	sql := "UPDATE $rid SET forced_update = $until RETURN AFTER"
	vars := map[string]any{"rid": surrealmodels.NewRecordID(tableProfile, userID), "until": until.UTC()}

	results, err := surrealdb.Query[[]models.Profile](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to set forced update: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("profile %d: %w", userID, storage.ErrNotFound)
	}
	return &(*results)[0].Result[0], nil
}
