package normalize

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/bobmcallan/armory/internal/interfaces"
	"github.com/bobmcallan/armory/internal/models"
	"github.com/bobmcallan/armory/internal/services/assets"
)

// Media stores every character render and returns asset key -> stored filename.
// Any failed upload fails the whole fragment.
func Media(ctx context.Context, cache interfaces.AssetCache, characterID int64, resp *models.MediaResponse) (map[string]string, error) {
	out := make(map[string]string, len(resp.Assets))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, asset := range resp.Assets {
		asset := asset
		if asset.Key == "" || asset.Value == "" {
			continue
		}
		g.Go(func() error {
			name, err := cache.EnsureStored(gctx, assets.CharacterKey(characterID, asset.Key, asset.Value), asset.Value)
			if err != nil {
				return err
			}
			mu.Lock()
			out[asset.Key] = name
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// firstAsset picks the named asset, else the first one.
func firstAsset(resp *models.MediaResponse, key string) (string, bool) {
	for _, a := range resp.Assets {
		if a.Key == key && a.Value != "" {
			return a.Value, true
		}
	}
	for _, a := range resp.Assets {
		if a.Value != "" {
			return a.Value, true
		}
	}
	return "", false
}
