// Package secrets loads Battle.net client credentials from AWS Secrets Manager
// or static configuration.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/goccy/go-json"

	"github.com/bobmcallan/armory/internal/common"
	"github.com/bobmcallan/armory/internal/interfaces"
	"github.com/bobmcallan/armory/internal/models"
)

// SecretsManagerAPI is the subset of the Secrets Manager client in use.
type SecretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretsManagerProvider reads a JSON secret {"client_id", "client_secret"}.
type SecretsManagerProvider struct {
	client   SecretsManagerAPI
	secretID string
	logger   *common.Logger
}

var _ interfaces.CredentialProvider = (*SecretsManagerProvider)(nil)

// NewSecretsManagerProvider creates a provider for secretID.
func NewSecretsManagerProvider(client SecretsManagerAPI, secretID string, logger *common.Logger) *SecretsManagerProvider {
	return &SecretsManagerProvider{client: client, secretID: secretID, logger: logger}
}

// ClientCredentials fetches and decodes the secret.
func (p *SecretsManagerProvider) ClientCredentials(ctx context.Context) (*models.ClientCredentials, error) {
	out, err := p.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(p.secretID),
	})
	if err != nil {
		return nil, fmt.Errorf("get secret %s: %w", p.secretID, err)
	}
	if out.SecretString == nil {
		return nil, fmt.Errorf("secret %s has no string value", p.secretID)
	}

	var creds models.ClientCredentials
	if err := json.Unmarshal([]byte(*out.SecretString), &creds); err != nil {
		return nil, fmt.Errorf("decode secret %s: %w", p.secretID, err)
	}
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, fmt.Errorf("secret %s is missing client_id or client_secret", p.secretID)
	}

	p.logger.Debug().Str("secret_id", p.secretID).Msg("Client credentials loaded")
	return &creds, nil
}

// StaticProvider returns fixed credentials, e.g. from config or env.
type StaticProvider struct {
	creds models.ClientCredentials
}

// NewStaticProvider creates a provider for fixed credentials.
func NewStaticProvider(clientID, clientSecret string) *StaticProvider {
	return &StaticProvider{creds: models.ClientCredentials{ClientID: clientID, ClientSecret: clientSecret}}
}

func (p *StaticProvider) ClientCredentials(ctx context.Context) (*models.ClientCredentials, error) {
	if p.creds.ClientID == "" || p.creds.ClientSecret == "" {
		return nil, errors.New("static client credentials are empty")
	}
	c := p.creds
	return &c, nil
}

// CredentialCache loads credentials once on first use and serves them until
// Invalidate is called. A failed load is not cached.
type CredentialCache struct {
	provider interfaces.CredentialProvider

	mu    sync.Mutex
	creds *models.ClientCredentials
}

var _ interfaces.CredentialProvider = (*CredentialCache)(nil)

// NewCredentialCache wraps provider.
func NewCredentialCache(provider interfaces.CredentialProvider) *CredentialCache {
	return &CredentialCache{provider: provider}
}

func (c *CredentialCache) ClientCredentials(ctx context.Context) (*models.ClientCredentials, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.creds != nil {
		creds := *c.creds
		return &creds, nil
	}

	creds, err := c.provider.ClientCredentials(ctx)
	if err != nil {
		return nil, err
	}
	c.creds = creds
	out := *creds
	return &out, nil
}

// Invalidate forgets the cached credentials, e.g. after rotation.
func (c *CredentialCache) Invalidate() {
	c.mu.Lock()
	c.creds = nil
	c.mu.Unlock()
}
