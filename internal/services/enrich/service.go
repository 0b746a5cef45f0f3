// Package enrich assembles one stored character record from the upstream
// status, media, equipment, summary and talent documents.
package enrich

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bobmcallan/armory/internal/clients/battlenet"
	"github.com/bobmcallan/armory/internal/common"
	"github.com/bobmcallan/armory/internal/interfaces"
	"github.com/bobmcallan/armory/internal/models"
	"github.com/bobmcallan/armory/internal/normalize"
)

// Service implements interfaces.CharacterEnricher.
type Service struct {
	client  interfaces.BattlenetClient
	assets  interfaces.AssetCache
	deleter interfaces.CharacterDeleter
	logger  *common.Logger
	now     func() time.Time // injectable clock for testing
}

var _ interfaces.CharacterEnricher = (*Service)(nil)

// NewService creates an enrichment service. deleter removes characters the
// upstream reports as gone.
func NewService(client interfaces.BattlenetClient, assets interfaces.AssetCache, deleter interfaces.CharacterDeleter, logger *common.Logger) *Service {
	return &Service{
		client:  client,
		assets:  assets,
		deleter: deleter,
		logger:  logger,
		now:     time.Now,
	}
}

// Enrich checks the character's status first. An invalid or missing
// character is deleted from storage and nil is returned without further
// upstream calls. Otherwise every fragment is fetched concurrently and any
// fragment failure fails the whole character.
func (s *Service) Enrich(ctx context.Context, character models.CharacterIdentity, region string) (*models.EnrichedCharacter, error) {
	valid, err := s.isValid(ctx, character, region)
	if err != nil {
		return nil, fmt.Errorf("status %s-%s: %w", character.Realm.Name, character.Name, err)
	}
	if !valid {
		s.logger.Info().
			Int64("character_id", character.ID).
			Str("name", character.Name).
			Msg("Character no longer valid, deleting")
		if err := s.deleter.DeleteCharacter(ctx, character.ID); err != nil {
			return nil, fmt.Errorf("delete invalid character %d: %w", character.ID, err)
		}
		return nil, nil
	}

	record := &models.EnrichedCharacter{
		CharacterIdentity: character,
		Region:            region,
		IsValid:           true,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		resp, err := s.client.CharacterMedia(gctx, character, region)
		if err != nil {
			return fmt.Errorf("media: %w", err)
		}
		media, err := normalize.Media(gctx, s.assets, character.ID, resp)
		if err != nil {
			return fmt.Errorf("media: %w", err)
		}
		record.Media = media
		return nil
	})

	g.Go(func() error {
		resp, err := s.client.CharacterEquipment(gctx, character, region)
		if err != nil {
			return fmt.Errorf("equipment: %w", err)
		}
		equipment, err := normalize.Equipment(gctx, s.assets, s.client, resp)
		if err != nil {
			return fmt.Errorf("equipment: %w", err)
		}
		record.Equipment = equipment
		return nil
	})

	g.Go(func() error {
		resp, err := s.client.CharacterSummary(gctx, character, region)
		if err != nil {
			return fmt.Errorf("summary: %w", err)
		}
		record.Summary = normalize.Summary(resp)
		return nil
	})

	if models.SupportsTalents(character) {
		g.Go(func() error {
			resp, err := s.client.CharacterSpecializations(gctx, character, region)
			if err != nil {
				return fmt.Errorf("specializations: %w", err)
			}
			talents, err := normalize.Talents(resp)
			if err != nil {
				return fmt.Errorf("specializations: %w", err)
			}
			record.Talents = talents
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("enrich %s-%s: %w", character.Realm.Name, character.Name, err)
	}

	record.Touch(s.now())
	return record, nil
}

// isValid treats a 404 on the status document as an invalid character.
func (s *Service) isValid(ctx context.Context, character models.CharacterIdentity, region string) (bool, error) {
	status, err := s.client.CharacterStatus(ctx, character, region)
	if err != nil {
		if battlenet.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return status.IsValid, nil
}
