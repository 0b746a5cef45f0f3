// Package interfaces defines service contracts for Armory
package interfaces

import (
	"context"

	"github.com/bobmcallan/armory/internal/models"
)

// CredentialProvider loads the Battle.net client credentials
type CredentialProvider interface {
	ClientCredentials(ctx context.Context) (*models.ClientCredentials, error)
}

// TokenSource hands out a valid application access token
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// BattlenetClient provides access to the Battle.net profile and game data APIs
type BattlenetClient interface {
	// Character profile documents, addressed by realm slug and lowercased name
	CharacterStatus(ctx context.Context, character models.CharacterIdentity, region string) (*models.StatusResponse, error)
	CharacterMedia(ctx context.Context, character models.CharacterIdentity, region string) (*models.MediaResponse, error)
	CharacterEquipment(ctx context.Context, character models.CharacterIdentity, region string) (*models.EquipmentResponse, error)
	CharacterSummary(ctx context.Context, character models.CharacterIdentity, region string) (*models.SummaryResponse, error)
	CharacterSpecializations(ctx context.Context, character models.CharacterIdentity, region string) (*models.SpecializationsResponse, error)

	// Media follows a `key.href` media link
	Media(ctx context.Context, href string) (*models.MediaResponse, error)

	// AccountCharacters lists the characters of the account owning userToken
	AccountCharacters(ctx context.Context, region, namespace, userToken string) (*models.AccountProfileResponse, error)

	// Journal (static data)
	JournalInstanceIndex(ctx context.Context, region string) (*models.JournalInstanceIndex, error)
	JournalInstance(ctx context.Context, region string, id int64) (*models.JournalInstanceResponse, error)
	JournalInstanceMedia(ctx context.Context, region string, id int64) (*models.MediaResponse, error)
}
