package normalize

import "github.com/bobmcallan/armory/internal/models"

// Summary flattens the profile summary; absent fields stay nil.
func Summary(resp *models.SummaryResponse) models.Summary {
	s := models.Summary{
		Title:             nameOf(resp.ActiveTitle),
		Spec:              nameOf(resp.ActiveSpec),
		AchievementPoints: resp.AchievementPoints,
		AverageItemLevel:  resp.AverageItemLevel,
		EquippedItemLevel: resp.EquippedItemLevel,
		LastLogin:         resp.LastLoginTimestamp,
		IsGhost:           resp.IsGhost,
		IsSelfFound:       resp.IsSelfFound,
	}
	if resp.Guild != nil {
		id := resp.Guild.ID
		s.GuildID = &id
		s.GuildName = strPtr(resp.Guild.Name)
	}
	return s
}
