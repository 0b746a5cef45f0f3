package models

// Upstream response shapes of the Battle.net profile and game data APIs.
// Only fields the normalizers read are declared.

// Link is a `key.href` reference to another API document.
type Link struct {
	Key struct {
		Href string `json:"href"`
	} `json:"key"`
}

// NamedRef is the common `{name, id}` pair.
type NamedRef struct {
	Name string `json:"name"`
	ID   int64  `json:"id"`
}

// TypedName is the common `{type, name}` pair.
type TypedName struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// RGBA is a colour with 0-255 channels and a 0-1 alpha.
type RGBA struct {
	R int     `json:"r"`
	G int     `json:"g"`
	B int     `json:"b"`
	A float64 `json:"a"`
}

// TokenResponse is the OAuth client-credentials grant response.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// StatusResponse is the character profile status document.
type StatusResponse struct {
	ID      int64 `json:"id"`
	IsValid bool  `json:"is_valid"`
}

// MediaResponse lists the rendered assets of a character, item or instance.
type MediaResponse struct {
	Assets []MediaAsset `json:"assets"`
}

type MediaAsset struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// EquipmentResponse is the character equipment document.
type EquipmentResponse struct {
	EquippedItems []EquippedItem `json:"equipped_items"`
}

type EquippedItem struct {
	Item struct {
		ID int64 `json:"id"`
	} `json:"item"`
	Slot            TypedName        `json:"slot"`
	Name            string           `json:"name"`
	Quality         TypedName        `json:"quality"`
	ItemSubclass    *NamedRef        `json:"item_subclass"`
	NameDescription *NameDescription `json:"name_description"`
	Media           *Link            `json:"media"`
	Level           *struct {
		Value *int `json:"value"`
	} `json:"level"`
	Enchantments []struct {
		DisplayString string `json:"display_string"`
	} `json:"enchantments"`
	Sockets []ItemSocketResponse `json:"sockets"`
	Stats   []ItemStatResponse   `json:"stats"`
	Spells  []struct {
		Spell       NamedRef `json:"spell"`
		Description string   `json:"description"`
	} `json:"spells"`
	Set          *ItemSetResponse `json:"set"`
	Requirements *struct {
		Level *struct {
			DisplayString string `json:"display_string"`
		} `json:"level"`
		DisplayString string `json:"display_string"`
	} `json:"requirements"`
	Transmog *struct {
		Item NamedRef `json:"item"`
	} `json:"transmog"`
}

type NameDescription struct {
	DisplayString string `json:"display_string"`
	Color         RGBA   `json:"color"`
}

type ItemSocketResponse struct {
	SocketType TypedName `json:"socket_type"`
	Item       *NamedRef `json:"item"`
	Display    string    `json:"display_string"`
	Media      *Link     `json:"media"`
}

type ItemStatResponse struct {
	Type    TypedName `json:"type"`
	Value   int       `json:"value"`
	Display struct {
		DisplayString string `json:"display_string"`
		Color         RGBA   `json:"color"`
	} `json:"display"`
	IsEquipBonus bool `json:"is_equip_bonus"`
}

type ItemSetResponse struct {
	ItemSet NamedRef `json:"item_set"`
	Items   []struct {
		Item       NamedRef `json:"item"`
		IsEquipped bool     `json:"is_equipped"`
	} `json:"items"`
	Effects []struct {
		DisplayString string `json:"display_string"`
		RequiredCount int    `json:"required_count"`
		IsActive      bool   `json:"is_active"`
	} `json:"effects"`
	DisplayString string `json:"display_string"`
}

// SummaryResponse is the character profile summary document.
type SummaryResponse struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	ActiveSpec         *NamedRef `json:"active_spec"`
	ActiveTitle        *NamedRef `json:"active_title"`
	Guild              *NamedRef `json:"guild"`
	AchievementPoints  *int      `json:"achievement_points"`
	LastLoginTimestamp *int64    `json:"last_login_timestamp"`
	AverageItemLevel   *int      `json:"average_item_level"`
	EquippedItemLevel  *int      `json:"equipped_item_level"`
	IsGhost            *bool     `json:"is_ghost"`
	IsSelfFound        *bool     `json:"is_self_found"`
}

// SpecializationsResponse is the retail character specializations document.
type SpecializationsResponse struct {
	Specializations      []SpecializationEntry `json:"specializations"`
	ActiveSpecialization *NamedRef             `json:"active_specialization"`
	ActiveHeroTalentTree *NamedRef             `json:"active_hero_talent_tree"`
}

type SpecializationEntry struct {
	Specialization NamedRef        `json:"specialization"`
	Loadouts       []LoadoutDetail `json:"loadouts"`
}

type LoadoutDetail struct {
	IsActive             bool             `json:"is_active"`
	TalentLoadoutCode    string           `json:"talent_loadout_code"`
	SelectedClassTalents []SelectedTalent `json:"selected_class_talents"`
	SelectedSpecTalents  []SelectedTalent `json:"selected_spec_talents"`
	SelectedHeroTalents  []SelectedTalent `json:"selected_hero_talents"`
}

// SelectedTalent is one chosen talent node. Tooltip is absent for nodes
// that carry no player-facing talent.
type SelectedTalent struct {
	ID      int64 `json:"id"`
	Rank    int   `json:"rank"`
	Tooltip *struct {
		Talent *NamedRef `json:"talent"`
	} `json:"tooltip"`
}

// AccountProfileResponse is the `/profile/user/wow` document.
type AccountProfileResponse struct {
	ID          int64        `json:"id"`
	WowAccounts []WowAccount `json:"wow_accounts"`
}

type WowAccount struct {
	ID         int64              `json:"id"`
	Characters []AccountCharacter `json:"characters"`
}

type AccountCharacter struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Realm struct {
		Name string `json:"name"`
		ID   int64  `json:"id"`
		Slug string `json:"slug"`
	} `json:"realm"`
	PlayableClass NamedRef  `json:"playable_class"`
	PlayableRace  NamedRef  `json:"playable_race"`
	Gender        TypedName `json:"gender"`
	Faction       TypedName `json:"faction"`
	Level         int       `json:"level"`
}

// JournalInstanceIndex is the `/data/wow/journal-instance/index` document.
type JournalInstanceIndex struct {
	Instances []NamedRef `json:"instances"`
}

// JournalInstanceResponse is one `/data/wow/journal-instance/{id}` document.
type JournalInstanceResponse struct {
	ID           int64         `json:"id"`
	Name         string        `json:"name"`
	Expansion    NamedRef      `json:"expansion"`
	Category     TypedName     `json:"category"`
	MinimumLevel int           `json:"minimum_level"`
	Media        *JournalMedia `json:"media"`
	Modes        []JournalMode `json:"modes"`
}

type JournalMedia struct {
	ID int64 `json:"id"`
}

type JournalMode struct {
	Mode      TypedName `json:"mode"`
	Players   int       `json:"players"`
	IsTracked bool      `json:"is_tracked"`
}
