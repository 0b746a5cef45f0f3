package normalize

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/bobmcallan/armory/internal/interfaces"
	"github.com/bobmcallan/armory/internal/models"
	"github.com/bobmcallan/armory/internal/services/assets"
)

// Equipment maps equipped items by slot. Every canonical slot is present;
// empty slots are nil. Item and socket icons are stored through cache.
func Equipment(ctx context.Context, cache interfaces.AssetCache, media MediaResolver, resp *models.EquipmentResponse) (map[string]*models.ItemView, error) {
	out := make(map[string]*models.ItemView, len(models.EquipmentSlots))
	for _, slot := range models.EquipmentSlots {
		out[slot] = nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for i := range resp.EquippedItems {
		item := &resp.EquippedItems[i]
		g.Go(func() error {
			view, err := itemView(gctx, cache, media, item)
			if err != nil {
				return fmt.Errorf("item %d (%s): %w", item.Item.ID, item.Slot.Type, err)
			}
			mu.Lock()
			out[slotKey(item.Slot.Type)] = view
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func itemView(ctx context.Context, cache interfaces.AssetCache, media MediaResolver, item *models.EquippedItem) (*models.ItemView, error) {
	view := &models.ItemView{
		ID:           item.Item.ID,
		Name:         item.Name,
		Type:         nameOf(item.ItemSubclass),
		Quality:      strPtr(item.Quality.Name),
		Stats:        []models.ItemStat{},
		Spells:       []models.ItemSpell{},
		Sockets:      []models.ItemSocket{},
		Enchantments: []string{},
	}

	if item.Level != nil {
		view.Level = item.Level.Value
	}
	if item.NameDescription != nil && item.NameDescription.DisplayString != "" {
		view.Upgrade = &models.ItemUpgrade{
			Text:  item.NameDescription.DisplayString,
			Color: RGBAToHex(item.NameDescription.Color),
		}
	}
	if r := item.Requirements; r != nil {
		if r.Level != nil && r.Level.DisplayString != "" {
			view.Requirement = strPtr(r.Level.DisplayString)
		} else {
			view.Requirement = strPtr(r.DisplayString)
		}
	}
	if item.Transmog != nil {
		view.Transmog = strPtr(item.Transmog.Item.Name)
	}

	for _, s := range item.Stats {
		view.Stats = append(view.Stats, models.ItemStat{
			Name:         s.Type.Name,
			Value:        s.Value,
			Display:      s.Display.DisplayString,
			Color:        RGBAToHex(s.Display.Color),
			IsEquipBonus: s.IsEquipBonus,
		})
	}
	for _, s := range item.Spells {
		view.Spells = append(view.Spells, models.ItemSpell{Name: s.Spell.Name, Description: s.Description})
	}
	for _, e := range item.Enchantments {
		if e.DisplayString != "" {
			view.Enchantments = append(view.Enchantments, e.DisplayString)
		}
	}
	if item.Set != nil {
		view.Set = itemSet(item.Set)
	}

	if item.Media != nil && item.Media.Key.Href != "" {
		name, err := cache.EnsureStoredFunc(ctx, assets.ItemIconKey(item.Item.ID), iconResolver(media, item.Media.Key.Href))
		if err != nil {
			return nil, err
		}
		view.Image = &name
	}

	for _, socket := range item.Sockets {
		s, err := itemSocket(ctx, cache, media, item.Item.ID, socket)
		if err != nil {
			return nil, err
		}
		view.Sockets = append(view.Sockets, s)
	}

	return view, nil
}

// itemSocket keys gem icons by the gem's item id when the socket is filled
// so the same gem is stored once across all items.
func itemSocket(ctx context.Context, cache interfaces.AssetCache, media MediaResolver, itemID int64, socket models.ItemSocketResponse) (models.ItemSocket, error) {
	out := models.ItemSocket{
		Type:    socket.SocketType.Type,
		Name:    socket.SocketType.Name,
		Display: strPtr(socket.Display),
	}
	if socket.Item != nil {
		out.Item = strPtr(socket.Item.Name)
		if socket.Item.ID != 0 {
			itemID = socket.Item.ID
		}
	}
	if socket.Media != nil && socket.Media.Key.Href != "" {
		name, err := cache.EnsureStoredFunc(ctx, assets.SocketKey(itemID, socket.SocketType.Type), iconResolver(media, socket.Media.Key.Href))
		if err != nil {
			return out, err
		}
		out.Image = &name
	}
	return out, nil
}

func itemSet(set *models.ItemSetResponse) *models.ItemSet {
	out := &models.ItemSet{
		ID:      set.ItemSet.ID,
		Name:    set.ItemSet.Name,
		Display: set.DisplayString,
		Items:   make([]models.SetItem, 0, len(set.Items)),
		Effects: make([]models.SetEffect, 0, len(set.Effects)),
	}
	for _, i := range set.Items {
		out.Items = append(out.Items, models.SetItem{Name: i.Item.Name, IsEquipped: i.IsEquipped})
	}
	for _, e := range set.Effects {
		out.Effects = append(out.Effects, models.SetEffect{
			Display:       e.DisplayString,
			RequiredCount: e.RequiredCount,
			IsActive:      e.IsActive,
		})
	}
	return out
}

func iconResolver(media MediaResolver, href string) func(context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		resp, err := media.Media(ctx, href)
		if err != nil {
			return "", err
		}
		src, ok := firstAsset(resp, "icon")
		if !ok {
			return "", &ValidationError{Field: "media", Reason: "no assets at " + href}
		}
		return src, nil
	}
}
