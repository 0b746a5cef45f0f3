package common

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for Armory
type Config struct {
	Environment string          `toml:"environment"`
	Server      ServerConfig    `toml:"server"`
	Logging     LoggingConfig   `toml:"logging"`
	Battlenet   BattlenetConfig `toml:"battlenet"`
	AWS         AWSConfig       `toml:"aws"`
	Storage     StorageConfig   `toml:"storage"`
	Persist     PersistConfig   `toml:"persist"`
	Sync        SyncConfig      `toml:"sync"`
}

// ServerConfig holds the health/metrics listener configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port" validate:"gte=0,lte=65535"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level" validate:"omitempty,oneof=trace debug info warn warning error"`
	Format string `toml:"format" validate:"omitempty,oneof=json console"`
}

// BattlenetConfig holds Blizzard API client configuration.
// Credentials come either from ClientID/ClientSecret or from the AWS secret named by SecretID.
type BattlenetConfig struct {
	ClientID       string               `toml:"client_id"`
	ClientSecret   string               `toml:"client_secret"`
	SecretID       string               `toml:"secret_id"`
	OAuthURL       string               `toml:"oauth_url" validate:"required,url"`
	APIBaseURL     string               `toml:"api_base_url" validate:"required"`
	Region         string               `toml:"region" validate:"required"`
	Locale         string               `toml:"locale"`
	RateLimit      int                  `toml:"rate_limit" validate:"gte=0"`
	Timeout        string               `toml:"timeout"`
	RequestTimeout string               `toml:"request_timeout"`
	Breaker        CircuitBreakerConfig `toml:"breaker"`
}

// GetTimeout parses and returns the HTTP client timeout
func (c *BattlenetConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 30*time.Second)
}

// GetRequestTimeout parses and returns the per-call upstream timeout
func (c *BattlenetConfig) GetRequestTimeout() time.Duration {
	return parseDuration(c.RequestTimeout, 10*time.Second)
}

// CircuitBreakerConfig controls the upstream circuit breaker
type CircuitBreakerConfig struct {
	MaxFailures uint32 `toml:"max_failures"`
	OpenTimeout string `toml:"open_timeout"`
}

// GetOpenTimeout parses and returns how long the breaker stays open
func (c *CircuitBreakerConfig) GetOpenTimeout() time.Duration {
	return parseDuration(c.OpenTimeout, 30*time.Second)
}

// AWSConfig holds shared AWS SDK settings
type AWSConfig struct {
	Region   string `toml:"region"`
	Endpoint string `toml:"endpoint"` // Custom endpoint for local stacks (DynamoDB Local, MinIO)
}

// StorageConfig selects and configures the document and object stores
type StorageConfig struct {
	Backend   string          `toml:"backend" validate:"required,oneof=dynamodb surrealdb"`
	DynamoDB  DynamoDBConfig  `toml:"dynamodb"`
	SurrealDB SurrealDBConfig `toml:"surrealdb"`
	Blob      BlobConfig      `toml:"blob"`
}

// DynamoDBConfig holds table names for the DynamoDB backend
type DynamoDBConfig struct {
	ProfilesTable   string `toml:"profiles_table"`
	CharactersTable string `toml:"characters_table"`
	InstancesTable  string `toml:"instances_table"`
	UserIndex       string `toml:"user_index"`
	TypeIndex       string `toml:"type_index"`
}

// SurrealDBConfig holds connection settings for the SurrealDB backend
type SurrealDBConfig struct {
	Address   string `toml:"address"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
	Namespace string `toml:"namespace"`
	Database  string `toml:"database"`
}

// BlobConfig selects the object store used for cached media
type BlobConfig struct {
	Backend string         `toml:"backend" validate:"required,oneof=s3 file"`
	File    FileBlobConfig `toml:"file"`
	S3      S3Config       `toml:"s3"`
}

// FileBlobConfig holds local filesystem blob configuration
type FileBlobConfig struct {
	BasePath string `toml:"base_path"`
}

// S3Config holds S3 bucket configuration
type S3Config struct {
	Bucket       string `toml:"bucket"`
	Prefix       string `toml:"prefix"`
	Region       string `toml:"region"`
	Endpoint     string `toml:"endpoint"` // S3-compatible stores (MinIO, R2)
	AccessKey    string `toml:"access_key"`
	SecretKey    string `toml:"secret_key"`
	UsePathStyle bool   `toml:"use_path_style"`
}

// PersistConfig holds retry policy for throughput-limited writes
type PersistConfig struct {
	MaxAttempts     int    `toml:"max_attempts" validate:"gte=1"`
	InitialInterval string `toml:"initial_interval"`
	MaxInterval     string `toml:"max_interval"`
}

// GetInitialInterval parses the first backoff delay
func (c *PersistConfig) GetInitialInterval() time.Duration {
	return parseDuration(c.InitialInterval, 100*time.Millisecond)
}

// GetMaxInterval parses the backoff ceiling
func (c *PersistConfig) GetMaxInterval() time.Duration {
	return parseDuration(c.MaxInterval, 5*time.Second)
}

// SyncConfig holds batch job settings
type SyncConfig struct {
	Concurrency         int      `toml:"concurrency" validate:"gte=1"`
	ImportChunkSize     int      `toml:"import_chunk_size" validate:"gte=1"`
	ForcedCooldown      string   `toml:"forced_cooldown"`
	EvictAfter          string   `toml:"evict_after"`
	EvictBatchSize      int      `toml:"evict_batch_size" validate:"gte=1"`
	EvictConcurrency    int      `toml:"evict_concurrency" validate:"gte=1"`
	Namespaces          []string `toml:"namespaces"`
	InstanceRegion      string   `toml:"instance_region"`
	ResyncInterval      string   `toml:"resync_interval"`
	EvictInterval       string   `toml:"evict_interval"`
	InstancesInterval   string   `toml:"instances_interval"`
	InstanceConcurrency int      `toml:"instance_concurrency" validate:"gte=1"`
}

// GetForcedCooldown parses the minimum time between forced updates
func (c *SyncConfig) GetForcedCooldown() time.Duration {
	return parseDuration(c.ForcedCooldown, time.Hour)
}

// GetEvictAfter parses the idle age at which profiles are evicted
func (c *SyncConfig) GetEvictAfter() time.Duration {
	return parseDuration(c.EvictAfter, 30*24*time.Hour)
}

// GetResyncInterval parses the scheduled resync period
func (c *SyncConfig) GetResyncInterval() time.Duration {
	return parseDuration(c.ResyncInterval, 6*time.Hour)
}

// GetEvictInterval parses the scheduled eviction period
func (c *SyncConfig) GetEvictInterval() time.Duration {
	return parseDuration(c.EvictInterval, 24*time.Hour)
}

// GetInstancesInterval parses the scheduled instance refresh period
func (c *SyncConfig) GetInstancesInterval() time.Duration {
	return parseDuration(c.InstancesInterval, 7*24*time.Hour)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Battlenet: BattlenetConfig{
			OAuthURL:       "https://oauth.battle.net/token",
			APIBaseURL:     "https://{region}.api.blizzard.com",
			Region:         "eu",
			Locale:         "en_US",
			RateLimit:      100,
			Timeout:        "30s",
			RequestTimeout: "10s",
			Breaker: CircuitBreakerConfig{
				MaxFailures: 5,
				OpenTimeout: "30s",
			},
		},
		AWS: AWSConfig{
			Region: "eu-west-1",
		},
		Storage: StorageConfig{
			Backend: "dynamodb",
			DynamoDB: DynamoDBConfig{
				ProfilesTable:   "wow-extension-profiles",
				CharactersTable: "wow-extension-characters",
				InstancesTable:  "wow-extension-raids",
				UserIndex:       "user_id-index",
				TypeIndex:       "category_index",
			},
			SurrealDB: SurrealDBConfig{
				Address:   "ws://localhost:8000/rpc",
				Username:  "root",
				Password:  "root",
				Namespace: "armory",
				Database:  "armory",
			},
			Blob: BlobConfig{
				Backend: "s3",
				File:    FileBlobConfig{BasePath: "data/blobs"},
				S3:      S3Config{Bucket: "wow-extension-assets"},
			},
		},
		Persist: PersistConfig{
			MaxAttempts:     5,
			InitialInterval: "100ms",
			MaxInterval:     "5s",
		},
		Sync: SyncConfig{
			Concurrency:         10,
			ImportChunkSize:     100,
			ForcedCooldown:      "1h",
			EvictAfter:          "720h",
			EvictBatchSize:      25,
			EvictConcurrency:    5,
			Namespaces:          []string{"retail", "classic", "classic1x"},
			InstanceRegion:      "eu",
			ResyncInterval:      "6h",
			EvictInterval:       "24h",
			InstancesInterval:   "168h",
			InstanceConcurrency: 5,
		},
	}
}

// LoadConfig loads configuration from files with environment overrides.
// Later files override earlier ones; missing files are skipped.
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for _, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks struct constraints and cross-field requirements
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	if c.Storage.Blob.Backend == "s3" && c.Storage.Blob.S3.Bucket == "" {
		return errors.New("invalid config: storage.blob.s3.bucket is required for the s3 backend")
	}
	return nil
}

// HasStaticCredentials reports whether client credentials are set inline
func (c *BattlenetConfig) HasStaticCredentials() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("ARMORY_ENV"); env != "" {
		config.Environment = env
	}
	if host := os.Getenv("ARMORY_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("ARMORY_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if level := os.Getenv("ARMORY_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	// Battle.net
	if v := os.Getenv("ARMORY_BATTLENET_CLIENT_ID"); v != "" {
		config.Battlenet.ClientID = v
	}
	if v := os.Getenv("ARMORY_BATTLENET_CLIENT_SECRET"); v != "" {
		config.Battlenet.ClientSecret = v
	}
	if v := os.Getenv("ARMORY_BATTLENET_SECRET_ID"); v != "" {
		config.Battlenet.SecretID = v
	}
	if v := os.Getenv("ARMORY_BATTLENET_REGION"); v != "" {
		config.Battlenet.Region = strings.ToLower(v)
	}

	// AWS
	if v := os.Getenv("AWS_REGION"); v != "" {
		config.AWS.Region = v
	}
	if v := os.Getenv("ARMORY_AWS_ENDPOINT"); v != "" {
		config.AWS.Endpoint = v
	}

	// Storage
	if v := os.Getenv("ARMORY_STORAGE_BACKEND"); v != "" {
		config.Storage.Backend = v
	}
	if v := os.Getenv("ARMORY_BLOB_BACKEND"); v != "" {
		config.Storage.Blob.Backend = v
	}
	if v := os.Getenv("ARMORY_BLOB_BUCKET"); v != "" {
		config.Storage.Blob.S3.Bucket = v
	}
	if v := os.Getenv("ARMORY_SURREALDB_ADDRESS"); v != "" {
		config.Storage.SurrealDB.Address = v
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
