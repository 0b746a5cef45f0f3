package sync

import (
	"context"
	"fmt"
	gosync "sync"

	"github.com/bobmcallan/armory/internal/models"
	"github.com/bobmcallan/armory/internal/normalize"
	"github.com/bobmcallan/armory/internal/services/assets"
)

// RefreshInstances rebuilds the journal instance catalogue. An instance
// whose tile cannot be stored is kept without an image.
func (s *Service) RefreshInstances(ctx context.Context) (*Report, error) {
	report := s.newReport("instances")
	defer s.finish(report)

	region := s.config.InstanceRegion
	index, err := s.client.JournalInstanceIndex(ctx, region)
	if err != nil {
		return report, fmt.Errorf("journal index: %w", err)
	}
	report.Processed = len(index.Instances)

	var (
		mu        gosync.Mutex
		instances []*models.Instance
	)
	errs := forEach(ctx, s.config.InstanceConcurrency, index.Instances, func(ctx context.Context, ref models.NamedRef) error {
		resp, err := s.client.JournalInstance(ctx, region, ref.ID)
		if err != nil {
			return err
		}
		inst := normalize.Instance(resp, s.instanceImage(ctx, region, resp), s.now())
		mu.Lock()
		instances = append(instances, inst)
		mu.Unlock()
		report.count("updated")
		return nil
	})
	for i, err := range errs {
		if err != nil {
			s.logger.Warn().Err(err).Int64("instance_id", index.Instances[i].ID).Msg("Failed to fetch instance")
			report.fail(index.Instances[i].ID, err)
		}
	}

	if len(instances) == 0 {
		s.logger.Info().Msg("No instances to write")
		return report, nil
	}
	if err := s.writer.WriteInstances(ctx, instances); err != nil {
		return report, err
	}
	return report, nil
}

func (s *Service) instanceImage(ctx context.Context, region string, resp *models.JournalInstanceResponse) *string {
	if resp.Media == nil {
		return nil
	}
	mediaID := resp.Media.ID
	name, err := s.assets.EnsureStoredFunc(ctx, assets.InstanceKey(resp.ID), func(ctx context.Context) (string, error) {
		media, err := s.client.JournalInstanceMedia(ctx, region, mediaID)
		if err != nil {
			return "", err
		}
		for _, a := range media.Assets {
			if a.Value != "" {
				return a.Value, nil
			}
		}
		return "", fmt.Errorf("journal instance media %d has no assets", mediaID)
	})
	if err != nil {
		s.logger.Warn().Err(err).Int64("instance_id", resp.ID).Msg("Failed to store instance tile")
		return nil
	}
	return &name
}

// Instances returns the stored catalogue grouped by expansion, newest first,
// keeping only instances with a tracked mode.
func (s *Service) Instances(ctx context.Context) ([]models.ExpansionInstances, error) {
	var all []*models.Instance
	for _, typ := range []string{models.InstanceRaid, models.InstanceDungeon} {
		list, err := s.storage.InstanceStore().ListInstances(ctx, typ)
		if err != nil {
			return nil, fmt.Errorf("list %s instances: %w", typ, err)
		}
		all = append(all, list...)
	}
	return normalize.GroupInstancesByExpansion(all), nil
}
