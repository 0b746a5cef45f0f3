package models

import "time"

// Realm identifies the game server a character lives on.
type Realm struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug,omitempty"`
}

// CharacterIdentity is the minimal description of a character as it appears
// in an account listing.
type CharacterIdentity struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Realm     Realm  `json:"realm"`
	Class     string `json:"class"`
	Race      string `json:"race"`
	Gender    string `json:"gender"`
	Faction   string `json:"faction"`
	Level     int    `json:"level"`
	Namespace string `json:"namespace"`
}

// Summary holds the flattened profile summary. Pointer fields are nil when
// the upstream omitted them.
type Summary struct {
	Title             *string `json:"title"`
	Spec              *string `json:"spec"`
	AchievementPoints *int    `json:"achievement_points"`
	AverageItemLevel  *int    `json:"average_item_level"`
	EquippedItemLevel *int    `json:"equipped_item_level"`
	GuildID           *int64  `json:"guild_id"`
	GuildName         *string `json:"guild_name"`
	LastLogin         *int64  `json:"last_login"`
	IsGhost           *bool   `json:"is_ghost"`
	IsSelfFound       *bool   `json:"is_self_found"`
}

// EnrichedCharacter is the stored record: identity plus every normalized fragment.
type EnrichedCharacter struct {
	CharacterIdentity
	Summary

	UserID    int64                `json:"user_id"`
	Region    string               `json:"region"`
	Media     map[string]string    `json:"media"`
	Equipment map[string]*ItemView `json:"equipment"`
	Talents   *TalentLoadout       `json:"talents"`
	IsValid   bool                 `json:"is_valid"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// Touch stamps UpdatedAt.
func (c *EnrichedCharacter) Touch(now time.Time) {
	c.UpdatedAt = now.UTC()
}

// TalentLoadout is the active talent selection of the active specialization.
type TalentLoadout struct {
	SpecID       int64   `json:"spec_id"`
	SpecName     string  `json:"spec_name"`
	HeroTree     *string `json:"hero_tree"`
	LoadoutCode  string  `json:"loadout_code"`
	ClassTalents []int64 `json:"class_talents"`
	SpecTalents  []int64 `json:"spec_talents"`
	HeroTalents  []int64 `json:"hero_talents"`
}
