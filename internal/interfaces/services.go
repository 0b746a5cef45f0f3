package interfaces

import (
	"context"

	"github.com/bobmcallan/armory/internal/models"
)

// AssetCache stores derived media in the object store exactly once per key
type AssetCache interface {
	// EnsureStored returns the basename of key, downloading sourceURL on a miss
	EnsureStored(ctx context.Context, key, sourceURL string) (string, error)

	// EnsureStoredFunc resolves the source URL only on a miss
	EnsureStoredFunc(ctx context.Context, key string, resolve func(context.Context) (string, error)) (string, error)
}

// CharacterEnricher turns a character identity into a stored record
type CharacterEnricher interface {
	// Enrich returns nil, nil when the upstream reports the character invalid
	Enrich(ctx context.Context, character models.CharacterIdentity, region string) (*models.EnrichedCharacter, error)
}

// CharacterDeleter removes characters that no longer exist upstream
type CharacterDeleter interface {
	DeleteCharacter(ctx context.Context, characterID int64) error
}

// RecordWriter persists records through throughput-limited transactions
type RecordWriter interface {
	CharacterDeleter
	Write(ctx context.Context, records []*models.EnrichedCharacter) error
	WriteInstances(ctx context.Context, instances []*models.Instance) error
}
