package models

import "time"

// Instance types
const (
	InstanceRaid    = "raid"
	InstanceDungeon = "dungeon"
)

// Expansions in release order.
var Expansions = []string{
	"Classic",
	"Burning Crusade",
	"Wrath of the Lich King",
	"Cataclysm",
	"Mists of Pandaria",
	"Warlords of Draenor",
	"Legion",
	"Battle for Azeroth",
	"Shadowlands",
	"Dragonflight",
	"The War Within",
}

// Instance is a journal raid or dungeon.
type Instance struct {
	ID           int64          `json:"id"`
	Name         string         `json:"name"`
	Type         string         `json:"type"`
	Expansion    string         `json:"expansion"`
	ExpansionID  int64          `json:"expansion_id"`
	MinimumLevel int            `json:"minimum_level"`
	Image        *string        `json:"image"`
	Modes        []InstanceMode `json:"modes"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// InstanceMode is one difficulty of an instance.
type InstanceMode struct {
	Type      string `json:"type"`
	Name      string `json:"name"`
	Players   int    `json:"players"`
	IsTracked bool   `json:"is_tracked"`
}

// ExpansionInstances groups instances of one expansion.
type ExpansionInstances struct {
	Expansion string     `json:"expansion"`
	Raids     []Instance `json:"raids"`
	Dungeons  []Instance `json:"dungeons"`
}
