package models

// EquipmentSlots is the canonical set of slot keys every equipment map carries.
var EquipmentSlots = []string{
	"head", "neck", "shoulder", "back", "chest", "shirt", "tabard", "wrist",
	"hands", "waist", "legs", "feet", "finger_1", "finger_2",
	"trinket_1", "trinket_2", "main_hand", "off_hand",
}

// ItemView is the flattened, display-ready form of one equipped item.
// Lists are always non-nil; optional scalars are nil when absent upstream.
type ItemView struct {
	ID           int64        `json:"id"`
	Name         string       `json:"name"`
	Type         *string      `json:"type"`
	Quality      *string      `json:"quality"`
	Level        *int         `json:"level"`
	Image        *string      `json:"image"`
	Upgrade      *ItemUpgrade `json:"upgrade"`
	Requirement  *string      `json:"requirement"`
	Transmog     *string      `json:"transmog"`
	Stats        []ItemStat   `json:"stats"`
	Spells       []ItemSpell  `json:"spells"`
	Sockets      []ItemSocket `json:"sockets"`
	Enchantments []string     `json:"enchantments"`
	Set          *ItemSet     `json:"set"`
}

// ItemUpgrade is the coloured name description (e.g. "Mythic 4/8").
type ItemUpgrade struct {
	Text  string `json:"text"`
	Color string `json:"color"`
}

// ItemStat is one stat line.
type ItemStat struct {
	Name         string `json:"name"`
	Value        int    `json:"value"`
	Display      string `json:"display"`
	Color        string `json:"color"`
	IsEquipBonus bool   `json:"is_equip_bonus"`
}

// ItemSpell is an on-use or on-equip effect.
type ItemSpell struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ItemSocket is a gem socket, optionally filled.
type ItemSocket struct {
	Type    string  `json:"type"`
	Name    string  `json:"name"`
	Item    *string `json:"item"`
	Display *string `json:"display"`
	Image   *string `json:"image"`
}

// ItemSet describes set membership and bonuses.
type ItemSet struct {
	ID      int64       `json:"id"`
	Name    string      `json:"name"`
	Display string      `json:"display"`
	Items   []SetItem   `json:"items"`
	Effects []SetEffect `json:"effects"`
}

type SetItem struct {
	Name       string `json:"name"`
	IsEquipped bool   `json:"is_equipped"`
}

type SetEffect struct {
	Display       string `json:"display"`
	RequiredCount int    `json:"required_count"`
	IsActive      bool   `json:"is_active"`
}
