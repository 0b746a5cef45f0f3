// Package assets stores derived media (character renders, item icons) in
// the object store, fetching each key from its source only once.
package assets

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/bobmcallan/armory/internal/clients/battlenet"
	"github.com/bobmcallan/armory/internal/common"
	"github.com/bobmcallan/armory/internal/interfaces"
	"github.com/bobmcallan/armory/internal/metrics"
	"github.com/bobmcallan/armory/internal/models"
	"github.com/bobmcallan/armory/internal/storage"
)

const (
	// VolatileMarker flags keys whose content changes under a stable key.
	VolatileMarker = "main-raw"

	// NoCacheControl is the Cache-Control header for volatile objects.
	NoCacheControl = "no-cache, no-store, must-revalidate, max-age=0"

	DefaultDownloadTimeout = 30 * time.Second
	DefaultMaxObjectBytes  = 16 << 20
)

// BlobStoreError is an object store failure other than a missing key.
type BlobStoreError struct {
	Op  string
	Key string
	Err error
}

func (e *BlobStoreError) Error() string {
	return fmt.Sprintf("blob store %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *BlobStoreError) Unwrap() error { return e.Err }

// Cache implements interfaces.AssetCache.
// Concurrent calls for the same absent key may both upload; the writes are
// identical so the race is harmless.
type Cache struct {
	store      interfaces.BlobStore
	httpClient *http.Client
	logger     *common.Logger
	maxBytes   int64
}

var _ interfaces.AssetCache = (*Cache)(nil)

// Option configures the cache
type Option func(*Cache)

// WithHTTPClient sets the client used to download sources
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Cache) {
		c.httpClient = hc
	}
}

// WithMaxObjectBytes caps the size of a single download
func WithMaxObjectBytes(n int64) Option {
	return func(c *Cache) {
		c.maxBytes = n
	}
}

// NewCache creates a cache over store
func NewCache(store interfaces.BlobStore, logger *common.Logger, opts ...Option) *Cache {
	c := &Cache{
		store:      store,
		httpClient: &http.Client{Timeout: DefaultDownloadTimeout},
		logger:     logger,
		maxBytes:   DefaultMaxObjectBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsVolatile reports whether key bypasses the existence check.
func IsVolatile(key string) bool {
	return strings.Contains(key, VolatileMarker)
}

// EnsureStored returns path.Base(key), uploading sourceURL first when the
// key is absent or volatile.
func (c *Cache) EnsureStored(ctx context.Context, key, sourceURL string) (string, error) {
	return c.EnsureStoredFunc(ctx, key, func(context.Context) (string, error) {
		return sourceURL, nil
	})
}

// EnsureStoredFunc is EnsureStored with the source URL resolved only on a miss.
func (c *Cache) EnsureStoredFunc(ctx context.Context, key string, resolve func(context.Context) (string, error)) (string, error) {
	name := path.Base(key)
	volatile := IsVolatile(key)

	if volatile {
		metrics.BlobCacheLookups.WithLabelValues("volatile").Inc()
	} else {
		exists, err := c.store.Exists(ctx, key)
		if err != nil {
			return "", &BlobStoreError{Op: "exists", Key: key, Err: err}
		}
		if exists {
			metrics.BlobCacheLookups.WithLabelValues("hit").Inc()
			return name, nil
		}
		metrics.BlobCacheLookups.WithLabelValues("miss").Inc()
	}

	sourceURL, err := resolve(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve source for %s: %w", key, err)
	}

	data, err := c.download(ctx, sourceURL)
	if err != nil {
		return "", err
	}

	meta := models.ObjectMeta{ContentType: storage.ContentTypeFor(key)}
	if volatile {
		meta.CacheControl = NoCacheControl
	}
	if err := c.store.Put(ctx, key, data, meta); err != nil {
		return "", &BlobStoreError{Op: "put", Key: key, Err: err}
	}

	metrics.BlobUploadBytes.Add(float64(len(data)))
	c.logger.Debug().Str("key", key).Int("bytes", len(data)).Bool("volatile", volatile).Msg("Asset stored")
	return name, nil
}

func (c *Cache) download(ctx context.Context, sourceURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", sourceURL, err)
	}
	req.Header.Set("User-Agent", common.UserAgent())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", sourceURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &battlenet.UpstreamError{
			StatusCode: resp.StatusCode,
			Status:     http.StatusText(resp.StatusCode),
			URL:        sourceURL,
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", sourceURL, err)
	}
	if int64(len(data)) > c.maxBytes {
		return nil, fmt.Errorf("download %s: object exceeds %d bytes", sourceURL, c.maxBytes)
	}
	return data, nil
}
