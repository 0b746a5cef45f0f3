package surrealdb

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/bobmcallan/armory/internal/common"
	"github.com/bobmcallan/armory/internal/models"
	"github.com/bobmcallan/armory/internal/storage"
)

// characterDoc wraps a character so its own id does not collide with the
// record id.
type characterDoc struct {
	CharacterID int64                     `json:"character_id"`
	UserID      int64                     `json:"user_id"`
	Character   *models.EnrichedCharacter `json:"character"`
}

func newCharacterDoc(c *models.EnrichedCharacter) characterDoc {
	return characterDoc{CharacterID: c.ID, UserID: c.UserID, Character: c}
}

// CharacterStore implements interfaces.CharacterStore using SurrealDB.
type CharacterStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

// NewCharacterStore creates a new CharacterStore.
func NewCharacterStore(db *surrealdb.DB, logger *common.Logger) *CharacterStore {
	return &CharacterStore{db: db, logger: logger}
}

func (s *CharacterStore) GetCharacter(ctx context.Context, characterID int64) (*models.EnrichedCharacter, error) {
	sql := "SELECT character_id, user_id, character FROM $rid"
	vars := map[string]any{"rid": surrealmodels.NewRecordID(tableCharacter, characterID)}

	results, err := surrealdb.Query[[]characterDoc](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to get character: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 || (*results)[0].Result[0].Character == nil {
		return nil, fmt.Errorf("character %d: %w", characterID, storage.ErrNotFound)
	}
	return (*results)[0].Result[0].Character, nil
}

func (s *CharacterStore) ListCharactersByUser(ctx context.Context, userID int64) ([]*models.EnrichedCharacter, error) {
	sql := "SELECT character_id, user_id, character FROM character WHERE user_id = $user_id"
	results, err := surrealdb.Query[[]characterDoc](ctx, s.db, sql, map[string]any{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("failed to list characters: %w", err)
	}
	var out []*models.EnrichedCharacter
	if results != nil && len(*results) > 0 {
		for _, doc := range (*results)[0].Result {
			if doc.Character != nil {
				out = append(out, doc.Character)
			}
		}
	}
	return out, nil
}
