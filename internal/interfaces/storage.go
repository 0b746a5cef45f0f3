package interfaces

import (
	"context"
	"time"

	"github.com/bobmcallan/armory/internal/models"
)

// StorageManager coordinates the document store tables
type StorageManager interface {
	ProfileStore() ProfileStore
	CharacterStore() CharacterStore
	InstanceStore() InstanceStore

	// TransactWrite applies all items atomically. Implementations return an
	// error wrapping storage.ErrThroughputExceeded when the store throttles.
	TransactWrite(ctx context.Context, items []models.WriteItem) error

	// MaxTransactionItems is the largest batch TransactWrite accepts
	MaxTransactionItems() int

	Close() error
}

// ProfileStore manages linked streamer profiles
type ProfileStore interface {
	GetProfile(ctx context.Context, userID int64) (*models.Profile, error)
	SaveProfile(ctx context.Context, profile *models.Profile) error
	ListProfiles(ctx context.Context) ([]*models.Profile, error)

	// ListStaleProfiles returns ids of profiles last updated before cutoff
	ListStaleProfiles(ctx context.Context, cutoff time.Time) ([]int64, error)

	// DeleteProfiles removes a batch of at most MaxBatchDelete profiles
	DeleteProfiles(ctx context.Context, userIDs []int64) error
	MaxBatchDelete() int

	// SetForcedUpdate records the end of the forced-update cooldown
	SetForcedUpdate(ctx context.Context, userID int64, until time.Time) (*models.Profile, error)
}

// CharacterStore reads enriched characters
type CharacterStore interface {
	GetCharacter(ctx context.Context, characterID int64) (*models.EnrichedCharacter, error)
	ListCharactersByUser(ctx context.Context, userID int64) ([]*models.EnrichedCharacter, error)
}

// InstanceStore reads journal instances
type InstanceStore interface {
	ListInstances(ctx context.Context, instanceType string) ([]*models.Instance, error)
}

// BlobStore is the object store holding cached media
type BlobStore interface {
	// Exists reports whether key is present. Stores that answer 403 for
	// missing keys report false, nil.
	Exists(ctx context.Context, key string) (bool, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte, meta models.ObjectMeta) error
	Delete(ctx context.Context, key string) error
	Close() error
}
