package sync

import (
	"context"
	"fmt"
	gosync "sync"
	"time"

	"github.com/bobmcallan/armory/internal/models"
	"github.com/bobmcallan/armory/internal/normalize"
)

// ResyncAll re-enriches every stored character of every profile. Failures of
// single characters are recorded in the report and never abort the run.
func (s *Service) ResyncAll(ctx context.Context) (*Report, error) {
	report := s.newReport("resync")
	defer s.finish(report)

	profiles, err := s.storage.ProfileStore().ListProfiles(ctx)
	if err != nil {
		return report, fmt.Errorf("list profiles: %w", err)
	}

	var (
		mu     gosync.Mutex
		stored []*models.EnrichedCharacter
	)
	errs := forEach(ctx, s.config.Concurrency, profiles, func(ctx context.Context, p *models.Profile) error {
		chars, err := s.storage.CharacterStore().ListCharactersByUser(ctx, p.UserID)
		if err != nil {
			return err
		}
		mu.Lock()
		stored = append(stored, chars...)
		mu.Unlock()
		return nil
	})
	for i, err := range errs {
		if err != nil {
			s.logger.Warn().Err(err).Int64("user_id", profiles[i].UserID).Msg("Failed to list characters")
			report.fail(profiles[i].UserID, err)
		}
	}

	updated := s.enrichStored(ctx, report, stored)
	if err := s.writer.Write(ctx, updated); err != nil {
		return report, err
	}
	return report, nil
}

// ForceUpdate re-enriches one user's characters on request. It is refused
// with ErrCooldown until the previous forced update's cooldown has passed.
func (s *Service) ForceUpdate(ctx context.Context, userID int64) (*Report, error) {
	profiles := s.storage.ProfileStore()
	profile, err := profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get profile %d: %w", userID, err)
	}

	now := s.now()
	if profile.InCooldown(now) {
		return nil, fmt.Errorf("%w: user %d until %s", ErrCooldown, userID, profile.ForcedUpdate.UTC().Format(time.RFC3339))
	}

	stored, err := s.storage.CharacterStore().ListCharactersByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list characters of %d: %w", userID, err)
	}
	if len(stored) == 0 {
		return nil, fmt.Errorf("user %d: %w", userID, ErrNoCharacters)
	}

	report := s.newReport("force_update")
	defer s.finish(report)

	updated := s.enrichStored(ctx, report, stored)
	if err := s.writer.Write(ctx, updated); err != nil {
		return report, err
	}

	until := now.Add(s.config.GetForcedCooldown())
	if _, err := profiles.SetForcedUpdate(ctx, userID, until); err != nil {
		return report, fmt.Errorf("set forced update of %d: %w", userID, err)
	}
	return report, nil
}

// enrichStored re-enriches stored records and returns the valid results.
func (s *Service) enrichStored(ctx context.Context, report *Report, stored []*models.EnrichedCharacter) []*models.EnrichedCharacter {
	report.Processed += len(stored)

	var (
		mu      gosync.Mutex
		updated []*models.EnrichedCharacter
	)
	errs := forEach(ctx, s.config.Concurrency, stored, func(ctx context.Context, rec *models.EnrichedCharacter) error {
		enriched, err := s.enricher.Enrich(ctx, rec.CharacterIdentity, rec.Region)
		if err != nil {
			return err
		}
		if enriched == nil {
			report.count("invalid")
			return nil
		}
		enriched.UserID = rec.UserID
		mu.Lock()
		updated = append(updated, enriched)
		mu.Unlock()
		report.count("updated")
		return nil
	})
	for i, err := range errs {
		if err != nil {
			s.logger.Warn().
				Err(err).
				Str("run_id", report.RunID).
				Int64("character_id", stored[i].ID).
				Msg("Failed to enrich character")
			report.fail(stored[i].ID, err)
		}
	}
	return updated
}

// ImportCharacters enriches and stores newly linked characters for a user in
// chunks. A character that fails to enrich is stored as its bare identity so
// the next resync can retry it; an invalid one is left deleted.
func (s *Service) ImportCharacters(ctx context.Context, userID int64, region string, characters []models.CharacterIdentity) (*Report, error) {
	if region == "" {
		return nil, fmt.Errorf("import for %d: region is required", userID)
	}

	report := s.newReport("import")
	defer s.finish(report)

	for _, batch := range chunk(characters, s.config.ImportChunkSize) {
		report.Processed += len(batch)
		records := make([]*models.EnrichedCharacter, len(batch))
		errs := forEach(ctx, s.config.Concurrency, indexes(len(batch)), func(ctx context.Context, i int) error {
			character := batch[i]
			enriched, err := s.enricher.Enrich(ctx, character, region)
			if err != nil {
				return err
			}
			records[i] = enriched
			return nil
		})

		var writes []*models.EnrichedCharacter
		for i, rec := range records {
			switch {
			case errs[i] != nil:
				s.logger.Warn().Err(errs[i]).Int64("character_id", batch[i].ID).Msg("Import falling back to bare character")
				report.fail(batch[i].ID, errs[i])
				rec = &models.EnrichedCharacter{CharacterIdentity: batch[i], Region: region}
				rec.Touch(s.now())
			case rec == nil:
				// Enrich has already deleted it
				report.count("invalid")
				continue
			default:
				report.count("updated")
			}
			rec.UserID = userID
			writes = append(writes, rec)
		}

		if len(writes) == 0 {
			continue
		}
		if err := s.writer.Write(ctx, writes); err != nil {
			return report, fmt.Errorf("import for %d: %w", userID, err)
		}
	}
	return report, nil
}

// FetchCharacters lists the characters of a user's account in every
// namespace, authorising with the bearer token stored on the profile.
func (s *Service) FetchCharacters(ctx context.Context, userID int64, region string, namespaces []string) ([]models.CharacterIdentity, error) {
	profile, err := s.storage.ProfileStore().GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get profile %d: %w", userID, err)
	}
	if region == "" {
		region = profile.Region
	}
	if region == "" {
		return nil, fmt.Errorf("fetch characters for %d: region is required", userID)
	}
	if len(namespaces) == 0 {
		namespaces = s.config.Namespaces
	}

	results := make([][]models.CharacterIdentity, len(namespaces))
	errs := forEach(ctx, len(namespaces), indexes(len(namespaces)), func(ctx context.Context, i int) error {
		resp, err := s.client.AccountCharacters(ctx, region, namespaces[i], profile.State)
		if err != nil {
			return fmt.Errorf("namespace %s: %w", namespaces[i], err)
		}
		results[i] = normalize.Characters(resp, namespaces[i])
		return nil
	})

	out := []models.CharacterIdentity{}
	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("fetch characters for %d: %w", userID, err)
		}
		out = append(out, results[i]...)
	}
	return out, nil
}

func indexes(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
