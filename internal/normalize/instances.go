package normalize

import (
	"strings"
	"time"

	"github.com/bobmcallan/armory/internal/models"
)

// Instance converts a journal instance. image is the stored tile filename, if any.
func Instance(resp *models.JournalInstanceResponse, image *string, now time.Time) *models.Instance {
	inst := &models.Instance{
		ID:           resp.ID,
		Name:         resp.Name,
		Type:         strings.ToLower(resp.Category.Type),
		Expansion:    resp.Expansion.Name,
		ExpansionID:  resp.Expansion.ID,
		MinimumLevel: resp.MinimumLevel,
		Image:        image,
		Modes:        make([]models.InstanceMode, 0, len(resp.Modes)),
		UpdatedAt:    now.UTC(),
	}
	for _, m := range resp.Modes {
		inst.Modes = append(inst.Modes, models.InstanceMode{
			Type:      m.Mode.Type,
			Name:      m.Mode.Name,
			Players:   m.Players,
			IsTracked: m.IsTracked,
		})
	}
	return inst
}

// IsTracked reports whether any mode of the instance is tracked.
func IsTracked(inst *models.Instance) bool {
	for _, m := range inst.Modes {
		if m.IsTracked {
			return true
		}
	}
	return false
}

// GroupInstancesByExpansion groups tracked instances by expansion, newest
// expansion first. Within a group instances keep the reverse of their input
// order. Expansions outside the known list are dropped.
func GroupInstancesByExpansion(instances []*models.Instance) []models.ExpansionInstances {
	byExpansion := make(map[string]*models.ExpansionInstances)
	for _, inst := range instances {
		if !IsTracked(inst) {
			continue
		}
		group, ok := byExpansion[inst.Expansion]
		if !ok {
			group = &models.ExpansionInstances{
				Expansion: inst.Expansion,
				Raids:     []models.Instance{},
				Dungeons:  []models.Instance{},
			}
			byExpansion[inst.Expansion] = group
		}
		if inst.Type == models.InstanceDungeon {
			group.Dungeons = append([]models.Instance{*inst}, group.Dungeons...)
		} else {
			group.Raids = append([]models.Instance{*inst}, group.Raids...)
		}
	}

	out := make([]models.ExpansionInstances, 0, len(byExpansion))
	for i := len(models.Expansions) - 1; i >= 0; i-- {
		if group, ok := byExpansion[models.Expansions[i]]; ok {
			out = append(out, *group)
		}
	}
	return out
}
