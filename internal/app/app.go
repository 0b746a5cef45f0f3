package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/bobmcallan/armory/internal/clients/battlenet"
	"github.com/bobmcallan/armory/internal/clients/secrets"
	"github.com/bobmcallan/armory/internal/common"
	"github.com/bobmcallan/armory/internal/interfaces"
	"github.com/bobmcallan/armory/internal/services/assets"
	"github.com/bobmcallan/armory/internal/services/enrich"
	"github.com/bobmcallan/armory/internal/services/persist"
	armsync "github.com/bobmcallan/armory/internal/services/sync"
	"github.com/bobmcallan/armory/internal/storage"
	"github.com/bobmcallan/armory/internal/storage/dynamodb"
	"github.com/bobmcallan/armory/internal/storage/surrealdb"
)

// App holds the initialized clients, stores and services.
// It is shared by every cmd/armory subcommand.
type App struct {
	Config      *common.Config
	Logger      *common.Logger
	Storage     interfaces.StorageManager
	Blobs       interfaces.BlobStore
	Credentials *secrets.CredentialCache
	Tokens      *battlenet.TokenCache
	Client      *battlenet.Client
	Assets      *assets.Cache
	Writer      *persist.Writer
	Enricher    *enrich.Service
	Sync        *armsync.Service
	StartupTime time.Time

	schedulerCancel context.CancelFunc
	schedulerDone   chan struct{}
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// ResolveConfigPath picks the config file: the given path, ARMORY_CONFIG,
// armory.toml next to the binary, then config/armory.toml.
func ResolveConfigPath(configPath string) string {
	if configPath == "" {
		configPath = os.Getenv("ARMORY_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(getBinaryDir(), "armory.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/armory.toml"
		}
	}
	return configPath
}

// NewApp loads configuration and initializes everything.
func NewApp(ctx context.Context, configPath string) (*App, error) {
	common.LoadVersionFromFile()

	config, err := common.LoadConfig(ResolveConfigPath(configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return NewAppFromConfig(ctx, config, common.NewLoggerFromConfig(config.Logging))
}

// NewAppFromConfig initializes everything from an already loaded config.
func NewAppFromConfig(ctx context.Context, config *common.Config, logger *common.Logger) (*App, error) {
	startupStart := time.Now()

	// Resolve relative blob path to binary directory
	if fc := &config.Storage.Blob.File; fc.BasePath != "" && !filepath.IsAbs(fc.BasePath) {
		fc.BasePath = filepath.Join(getBinaryDir(), fc.BasePath)
	}

	awsCfg, err := loadAWSConfig(ctx, config)
	if err != nil {
		return nil, err
	}

	storageManager, err := newStorageManager(logger, config, awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	blobs, err := newBlobStore(logger, config, awsCfg)
	if err != nil {
		storageManager.Close()
		return nil, fmt.Errorf("failed to initialize blob store: %w", err)
	}

	credentials := secrets.NewCredentialCache(newCredentialProvider(logger, config, awsCfg))

	bn := config.Battlenet
	tokens := battlenet.NewTokenCache(credentials,
		battlenet.WithOAuthURL(bn.OAuthURL),
		battlenet.WithTokenTimeout(bn.GetRequestTimeout()),
		battlenet.WithTokenLogger(logger),
	)

	client := battlenet.NewClient(tokens,
		battlenet.WithAPIBaseURL(bn.APIBaseURL),
		battlenet.WithLocale(bn.Locale),
		battlenet.WithLogger(logger),
		battlenet.WithRateLimit(bn.RateLimit),
		battlenet.WithTimeout(bn.GetTimeout()),
		battlenet.WithRequestTimeout(bn.GetRequestTimeout()),
		battlenet.WithCircuitBreaker(bn.Breaker.MaxFailures, bn.Breaker.GetOpenTimeout()),
	)

	assetCache := assets.NewCache(blobs, logger)
	writer := persist.NewWriterFromConfig(storageManager, config.Persist, logger)
	enricher := enrich.NewService(client, assetCache, writer, logger)
	syncService := armsync.NewService(client, enricher, writer, storageManager, assetCache, config.Sync, logger)

	a := &App{
		Config:      config,
		Logger:      logger,
		Storage:     storageManager,
		Blobs:       blobs,
		Credentials: credentials,
		Tokens:      tokens,
		Client:      client,
		Assets:      assetCache,
		Writer:      writer,
		Enricher:    enricher,
		Sync:        syncService,
		StartupTime: startupStart,
	}

	logger.Info().Dur("startup", time.Since(startupStart)).Msg("App initialized")
	return a, nil
}

func loadAWSConfig(ctx context.Context, config *common.Config) (aws.Config, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(config.AWS.Region))
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return awsCfg, nil
}

func newStorageManager(logger *common.Logger, config *common.Config, awsCfg aws.Config) (interfaces.StorageManager, error) {
	switch config.Storage.Backend {
	case "surrealdb":
		m, err := surrealdb.NewManager(logger, config.Storage.SurrealDB)
		if err != nil {
			return nil, err
		}
		return m, nil
	case "dynamodb", "":
		return dynamodb.NewManager(logger, awsCfg, config.AWS.Endpoint, config.Storage.DynamoDB), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", config.Storage.Backend)
	}
}

func newBlobStore(logger *common.Logger, config *common.Config, awsCfg aws.Config) (interfaces.BlobStore, error) {
	switch config.Storage.Blob.Backend {
	case "file":
		fb, err := storage.NewFileBlobStore(logger, config.Storage.Blob.File)
		if err != nil {
			return nil, err
		}
		return fb, nil
	case "s3", "":
		sb, err := storage.NewS3BlobStore(logger, awsCfg, config.Storage.Blob.S3)
		if err != nil {
			return nil, err
		}
		return sb, nil
	default:
		return nil, fmt.Errorf("unknown blob backend %q", config.Storage.Blob.Backend)
	}
}

func newCredentialProvider(logger *common.Logger, config *common.Config, awsCfg aws.Config) interfaces.CredentialProvider {
	bn := config.Battlenet
	if bn.HasStaticCredentials() {
		return secrets.NewStaticProvider(bn.ClientID, bn.ClientSecret)
	}
	return secrets.NewSecretsManagerProvider(secretsmanager.NewFromConfig(awsCfg), bn.SecretID, logger)
}

// Close releases all resources held by the App.
// Shutdown order: stop scheduler, close blob store, close storage.
func (a *App) Close() {
	a.StopScheduler()
	if a.Blobs != nil {
		a.Blobs.Close()
		a.Blobs = nil
	}
	if a.Storage != nil {
		a.Storage.Close()
		a.Storage = nil
	}
}
