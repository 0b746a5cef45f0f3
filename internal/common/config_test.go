package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig_Defaults(t *testing.T) {
	cfg := NewDefaultConfig()
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port default = %d, want %d", cfg.Server.Port, 8080)
	}
	if cfg.Storage.DynamoDB.CharactersTable != "wow-extension-characters" {
		t.Errorf("CharactersTable = %q", cfg.Storage.DynamoDB.CharactersTable)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfig_PortEnvOverride(t *testing.T) {
	t.Setenv("ARMORY_PORT", "9090")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d after env override, want %d", cfg.Server.Port, 9090)
	}
}

func TestConfig_CredentialEnvOverride(t *testing.T) {
	t.Setenv("ARMORY_BATTLENET_CLIENT_ID", "id-from-env")
	t.Setenv("ARMORY_BATTLENET_CLIENT_SECRET", "secret-from-env")
	t.Setenv("ARMORY_BATTLENET_REGION", "US")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	if !cfg.Battlenet.HasStaticCredentials() {
		t.Fatal("expected static credentials from env")
	}
	if cfg.Battlenet.Region != "us" {
		t.Errorf("Region = %q, want %q", cfg.Battlenet.Region, "us")
	}
}

func TestConfig_DurationFallbacks(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Battlenet.RequestTimeout = "not-a-duration"
	cfg.Sync.ForcedCooldown = ""

	if got := cfg.Battlenet.GetRequestTimeout(); got != 10*time.Second {
		t.Errorf("GetRequestTimeout() = %v, want 10s", got)
	}
	if got := cfg.Sync.GetForcedCooldown(); got != time.Hour {
		t.Errorf("GetForcedCooldown() = %v, want 1h", got)
	}
	if got := cfg.Sync.GetEvictAfter(); got != 30*24*time.Hour {
		t.Errorf("GetEvictAfter() = %v, want 720h", got)
	}
}

func TestLoadConfig_FileOverridesAndMissingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "armory.toml")
	data := `
environment = "production"

[battlenet]
region = "us"
request_timeout = "3s"

[storage]
backend = "surrealdb"

[storage.blob]
backend = "file"

[sync]
concurrency = 4
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(filepath.Join(dir, "missing.toml"), path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if !cfg.IsProduction() {
		t.Error("expected production environment")
	}
	if cfg.Battlenet.Region != "us" {
		t.Errorf("Region = %q, want us", cfg.Battlenet.Region)
	}
	if cfg.Battlenet.GetRequestTimeout() != 3*time.Second {
		t.Errorf("RequestTimeout = %v, want 3s", cfg.Battlenet.GetRequestTimeout())
	}
	if cfg.Storage.Backend != "surrealdb" || cfg.Storage.Blob.Backend != "file" {
		t.Errorf("storage = %q/%q", cfg.Storage.Backend, cfg.Storage.Blob.Backend)
	}
	if cfg.Sync.Concurrency != 4 {
		t.Errorf("Concurrency = %d, want 4", cfg.Sync.Concurrency)
	}
	// untouched defaults survive the merge
	if cfg.Sync.EvictBatchSize != 25 {
		t.Errorf("EvictBatchSize = %d, want 25", cfg.Sync.EvictBatchSize)
	}
}

func TestLoadConfig_RejectsUnknownBackend(t *testing.T) {
	t.Setenv("ARMORY_STORAGE_BACKEND", "mongodb")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected validation error for unknown storage backend")
	}
}

func TestConfig_ValidateRequiresBucketForS3(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Storage.Blob.S3.Bucket = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when s3 bucket is empty")
	}
}

func TestLoadConfig_ExampleFileMatchesDefaults(t *testing.T) {
	path := filepath.Join("..", "..", "config", "armory.toml")
	if _, err := os.Stat(path); err != nil {
		t.Skipf("example config not found: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig(example) error: %v", err)
	}
	def := NewDefaultConfig()
	if cfg.Sync.GetForcedCooldown() != def.Sync.GetForcedCooldown() {
		t.Errorf("forced cooldown = %v, want %v", cfg.Sync.GetForcedCooldown(), def.Sync.GetForcedCooldown())
	}
	if cfg.Sync.GetEvictAfter() != 30*24*time.Hour {
		t.Errorf("evict after = %v", cfg.Sync.GetEvictAfter())
	}
	if cfg.Storage.DynamoDB.TypeIndex != def.Storage.DynamoDB.TypeIndex {
		t.Errorf("type index = %q", cfg.Storage.DynamoDB.TypeIndex)
	}
}
