package normalize

import "github.com/bobmcallan/armory/internal/models"

// Talents picks the active loadout of the active specialization. Talent ids
// come from each selection's tooltip; selections without one are skipped.
func Talents(resp *models.SpecializationsResponse) (*models.TalentLoadout, error) {
	if resp.ActiveSpecialization == nil {
		return nil, &ValidationError{Field: "specializations", Reason: "no active specialization"}
	}
	active := resp.ActiveSpecialization

	for _, spec := range resp.Specializations {
		if spec.Specialization.ID != active.ID {
			continue
		}
		for _, loadout := range spec.Loadouts {
			if !loadout.IsActive {
				continue
			}
			out := &models.TalentLoadout{
				SpecID:       active.ID,
				SpecName:     active.Name,
				LoadoutCode:  loadout.TalentLoadoutCode,
				ClassTalents: talentIDs(loadout.SelectedClassTalents),
				SpecTalents:  talentIDs(loadout.SelectedSpecTalents),
				HeroTalents:  talentIDs(loadout.SelectedHeroTalents),
			}
			if resp.ActiveHeroTalentTree != nil {
				out.HeroTree = strPtr(resp.ActiveHeroTalentTree.Name)
			}
			return out, nil
		}
		return nil, &ValidationError{Field: "specializations", Reason: "active specialization has no active loadout"}
	}

	return nil, &ValidationError{Field: "specializations", Reason: "active specialization not listed"}
}

func talentIDs(selected []models.SelectedTalent) []int64 {
	ids := make([]int64, 0, len(selected))
	for _, t := range selected {
		if t.Tooltip == nil || t.Tooltip.Talent == nil {
			continue
		}
		ids = append(ids, t.Tooltip.Talent.ID)
	}
	return ids
}
