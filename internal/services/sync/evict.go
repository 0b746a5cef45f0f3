package sync

import (
	"context"
	"fmt"
)

// EvictStaleProfiles deletes profiles idle for longer than the configured
// age, in batches with a bounded number of concurrent batch deletes.
func (s *Service) EvictStaleProfiles(ctx context.Context) (*Report, error) {
	report := s.newReport("evict")
	defer s.finish(report)

	profiles := s.storage.ProfileStore()
	cutoff := s.now().Add(-s.config.GetEvictAfter())

	ids, err := profiles.ListStaleProfiles(ctx, cutoff)
	if err != nil {
		return report, fmt.Errorf("list stale profiles: %w", err)
	}
	if len(ids) == 0 {
		s.logger.Info().Time("cutoff", cutoff).Msg("No outdated profiles found")
		return report, nil
	}
	report.Processed = len(ids)

	size := s.config.EvictBatchSize
	if limit := profiles.MaxBatchDelete(); limit > 0 && (size <= 0 || size > limit) {
		size = limit
	}

	s.logger.Info().Int("profiles", len(ids)).Int("batch_size", size).Msg("Deleting outdated profiles")

	batches := chunk(ids, size)
	errs := forEach(ctx, s.config.EvictConcurrency, batches, profiles.DeleteProfiles)

	var firstErr error
	for i, err := range errs {
		if err != nil {
			s.logger.Error().Err(err).Int("batch", i).Msg("Failed to delete profile batch")
			for _, id := range batches[i] {
				report.fail(id, err)
			}
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		for range batches[i] {
			report.count("evicted")
		}
	}
	if firstErr != nil {
		return report, fmt.Errorf("evict profiles: %w", firstErr)
	}
	return report, nil
}
