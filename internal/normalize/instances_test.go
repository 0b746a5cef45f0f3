package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/armory/internal/models"
)

func TestInstance(t *testing.T) {
	resp := decode[models.JournalInstanceResponse](t, `{
	  "id": 1273, "name": "Nerub-ar Palace",
	  "expansion": {"name": "The War Within", "id": 514},
	  "category": {"type": "RAID"},
	  "minimum_level": 80,
	  "modes": [
	    {"mode": {"type": "HEROIC", "name": "Heroic"}, "players": 30, "is_tracked": true},
	    {"mode": {"type": "LFR", "name": "Raid Finder"}, "players": 25, "is_tracked": false}
	  ]
	}`)
	image := "1273.jpg"
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	got := Instance(resp, &image, now)
	assert.Equal(t, int64(1273), got.ID)
	assert.Equal(t, models.InstanceRaid, got.Type)
	assert.Equal(t, "The War Within", got.Expansion)
	assert.Equal(t, int64(514), got.ExpansionID)
	assert.Equal(t, &image, got.Image)
	assert.Equal(t, now, got.UpdatedAt)
	require.Len(t, got.Modes, 2)
	assert.True(t, IsTracked(got))
}

func inst(id int64, typ, expansion string, tracked bool) *models.Instance {
	return &models.Instance{
		ID:        id,
		Type:      typ,
		Expansion: expansion,
		Modes:     []models.InstanceMode{{Type: "NORMAL", IsTracked: tracked}},
	}
}

func TestGroupInstancesByExpansion(t *testing.T) {
	in := []*models.Instance{
		inst(1, models.InstanceRaid, "Classic", true),
		inst(2, models.InstanceRaid, "The War Within", true),
		inst(3, models.InstanceDungeon, "The War Within", true),
		inst(4, models.InstanceRaid, "The War Within", true),
		inst(5, models.InstanceRaid, "Legion", false),
		inst(6, models.InstanceRaid, "Unknown Expansion", true),
	}

	got := GroupInstancesByExpansion(in)
	require.Len(t, got, 2)

	assert.Equal(t, "The War Within", got[0].Expansion)
	require.Len(t, got[0].Raids, 2)
	assert.Equal(t, int64(4), got[0].Raids[0].ID)
	assert.Equal(t, int64(2), got[0].Raids[1].ID)
	require.Len(t, got[0].Dungeons, 1)

	assert.Equal(t, "Classic", got[1].Expansion)
	assert.Empty(t, got[1].Dungeons)
}
