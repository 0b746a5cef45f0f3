package surrealdb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/armory/internal/common"
	"github.com/bobmcallan/armory/internal/models"
	"github.com/bobmcallan/armory/internal/storage"
	tcommon "github.com/bobmcallan/armory/tests/common"
)

func TestNewManager(t *testing.T) {
	sc := tcommon.StartSurrealDB(t)

	mgr, err := NewManager(testLogger(), common.SurrealDBConfig{
		Address:   sc.Address(),
		Username:  "root",
		Password:  "root",
		Namespace: "armory_test",
		Database:  testDatabase(t),
	})
	require.NoError(t, err)
	defer mgr.Close()

	assert.NotNil(t, mgr.ProfileStore())
	assert.NotNil(t, mgr.CharacterStore())
	assert.NotNil(t, mgr.InstanceStore())
	assert.Equal(t, MaxTransactionItems, mgr.MaxTransactionItems())
}

func TestMapError(t *testing.T) {
	conflict := mapError(errors.New("Transaction conflict: Resource busy. This transaction can be retried"))
	assert.ErrorIs(t, conflict, storage.ErrThroughputExceeded)

	other := mapError(errors.New("parse error"))
	assert.False(t, errors.Is(other, storage.ErrThroughputExceeded))
}

func TestProfileStore_RoundTrip(t *testing.T) {
	m := testManager(t)
	ctx := context.Background()
	store := m.ProfileStore()

	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveProfile(ctx, &models.Profile{
		UserID:    7,
		State:     "bearer",
		Region:    "eu",
		ExpiresIn: 86399,
		CreatedAt: created,
		UpdatedAt: created,
	}))

	got, err := store.GetProfile(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "bearer", got.State)
	assert.Equal(t, "eu", got.Region)
	assert.True(t, got.UpdatedAt.Equal(created))

	_, err = store.GetProfile(ctx, 8)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	until := created.Add(time.Hour)
	updated, err := store.SetForcedUpdate(ctx, 7, until)
	require.NoError(t, err)
	assert.True(t, updated.ForcedUpdate.Equal(until))

	_, err = store.SetForcedUpdate(ctx, 8, until)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestProfileStore_StaleAndDelete(t *testing.T) {
	m := testManager(t)
	ctx := context.Background()
	store := m.ProfileStore()
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	for i := int64(1); i <= 30; i++ {
		require.NoError(t, store.SaveProfile(ctx, &models.Profile{UserID: i, UpdatedAt: now.Add(-40 * 24 * time.Hour)}))
	}
	require.NoError(t, store.SaveProfile(ctx, &models.Profile{UserID: 100, UpdatedAt: now}))

	ids, err := store.ListStaleProfiles(ctx, now.Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.Len(t, ids, 30)

	require.NoError(t, store.DeleteProfiles(ctx, ids[:25]))
	require.NoError(t, store.DeleteProfiles(ctx, ids[25:]))

	all, err := store.ListProfiles(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, int64(100), all[0].UserID)

	err = store.DeleteProfiles(ctx, make([]int64, store.MaxBatchDelete()+1))
	assert.Error(t, err)
}

func TestTransactWrite_CharactersAndTouch(t *testing.T) {
	m := testManager(t)
	ctx := context.Background()
	old := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := old.Add(48 * time.Hour)

	require.NoError(t, m.ProfileStore().SaveProfile(ctx, &models.Profile{UserID: 7, UpdatedAt: old}))

	points := 100
	quality := "Epic"
	equipment := map[string]*models.ItemView{}
	for _, slot := range models.EquipmentSlots {
		equipment[slot] = nil
	}
	equipment["head"] = &models.ItemView{ID: 1, Name: "Crown", Quality: &quality, Stats: []models.ItemStat{}}

	require.NoError(t, m.TransactWrite(ctx, []models.WriteItem{
		models.PutCharacter(&models.EnrichedCharacter{
			CharacterIdentity: models.CharacterIdentity{ID: 1, Name: "Foo", Realm: models.Realm{ID: 5, Name: "Stormrage"}, Namespace: "retail"},
			Summary:           models.Summary{AchievementPoints: &points},
			UserID:            7,
			Region:            "eu",
			Equipment:         equipment,
			IsValid:           true,
			UpdatedAt:         now,
		}),
		models.PutCharacter(&models.EnrichedCharacter{
			CharacterIdentity: models.CharacterIdentity{ID: 2, Name: "Bar", Namespace: "classic"},
			UserID:            7,
			Region:            "eu",
		}),
		models.TouchProfile(7, now),
	}))

	got, err := m.CharacterStore().GetCharacter(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ID)
	assert.Equal(t, "Stormrage", got.Realm.Name)
	assert.Equal(t, 100, *got.AchievementPoints)
	assert.Equal(t, "Epic", *got.Equipment["head"].Quality)

	list, err := m.CharacterStore().ListCharactersByUser(ctx, 7)
	require.NoError(t, err)
	require.Len(t, list, 2)
	ids := []int64{list[0].ID, list[1].ID}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	assert.Equal(t, []int64{1, 2}, ids)

	profile, err := m.ProfileStore().GetProfile(ctx, 7)
	require.NoError(t, err)
	assert.True(t, profile.UpdatedAt.Equal(now))

	require.NoError(t, m.TransactWrite(ctx, []models.WriteItem{models.DeleteCharacter(2)}))
	_, err = m.CharacterStore().GetCharacter(ctx, 2)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTransactWrite_Limits(t *testing.T) {
	m := testManager(t)
	ctx := context.Background()

	assert.NoError(t, m.TransactWrite(ctx, nil))

	items := make([]models.WriteItem, MaxTransactionItems+1)
	for i := range items {
		items[i] = models.DeleteCharacter(int64(i))
	}
	assert.Error(t, m.TransactWrite(ctx, items))

	err := m.TransactWrite(ctx, []models.WriteItem{{Op: models.WriteOp(99)}})
	assert.Error(t, err)
}

func TestInstanceStore_ListByType(t *testing.T) {
	m := testManager(t)
	ctx := context.Background()

	var items []models.WriteItem
	for i := int64(1); i <= 6; i++ {
		kind := models.InstanceRaid
		if i%2 == 0 {
			kind = models.InstanceDungeon
		}
		items = append(items, models.PutInstance(&models.Instance{
			ID:        i,
			Name:      fmt.Sprintf("Instance %d", i),
			Type:      kind,
			Expansion: "Dragonflight",
			Modes:     []models.InstanceMode{{Type: "NORMAL", Name: "Normal", Players: 5, IsTracked: true}},
		}))
	}
	require.NoError(t, m.TransactWrite(ctx, items))

	raids, err := m.InstanceStore().ListInstances(ctx, models.InstanceRaid)
	require.NoError(t, err)
	require.Len(t, raids, 3)
	assert.Equal(t, int64(1), raids[0].ID)
	assert.Equal(t, "Dragonflight", raids[0].Expansion)
	require.Len(t, raids[0].Modes, 1)
	assert.True(t, raids[0].Modes[0].IsTracked)

	dungeons, err := m.InstanceStore().ListInstances(ctx, models.InstanceDungeon)
	require.NoError(t, err)
	assert.Len(t, dungeons, 3)
}
