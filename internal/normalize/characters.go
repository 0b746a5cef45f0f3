package normalize

import "github.com/bobmcallan/armory/internal/models"

// Characters flattens an account profile into identities tagged with namespace.
func Characters(resp *models.AccountProfileResponse, namespace string) []models.CharacterIdentity {
	out := []models.CharacterIdentity{}
	ns := models.CanonicalNamespace(namespace)
	for _, account := range resp.WowAccounts {
		for _, c := range account.Characters {
			out = append(out, models.CharacterIdentity{
				ID:   c.ID,
				Name: c.Name,
				Realm: models.Realm{
					ID:   c.Realm.ID,
					Name: c.Realm.Name,
					Slug: c.Realm.Slug,
				},
				Class:     c.PlayableClass.Name,
				Race:      c.PlayableRace.Name,
				Gender:    c.Gender.Name,
				Faction:   c.Faction.Name,
				Level:     c.Level,
				Namespace: ns,
			})
		}
	}
	return out
}
