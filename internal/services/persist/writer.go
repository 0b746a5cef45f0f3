// Package persist writes enriched records to the document store in
// transaction-sized chunks, backing off while the store throttles.
package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/bobmcallan/armory/internal/common"
	"github.com/bobmcallan/armory/internal/interfaces"
	"github.com/bobmcallan/armory/internal/metrics"
	"github.com/bobmcallan/armory/internal/models"
	"github.com/bobmcallan/armory/internal/storage"
)

const (
	DefaultMaxAttempts         = 5
	DefaultInitialInterval     = 100 * time.Millisecond
	DefaultMaxInterval         = 5 * time.Second
	DefaultRandomizationFactor = 0.5
)

// ThroughputExceededError is returned when a chunk is still throttled after
// every attempt. Chunks committed before it stay committed.
type ThroughputExceededError struct {
	Attempts int
	Items    int
	Err      error
}

func (e *ThroughputExceededError) Error() string {
	return fmt.Sprintf("transaction of %d items throttled after %d attempts: %v", e.Items, e.Attempts, e.Err)
}

func (e *ThroughputExceededError) Unwrap() error { return e.Err }

// Writer implements interfaces.RecordWriter.
type Writer struct {
	store       interfaces.StorageManager
	logger      *common.Logger
	maxAttempts int
	initial     time.Duration
	max         time.Duration
	jitter      float64
	notify      func(attempt int, delay time.Duration)
	now         func() time.Time
}

var _ interfaces.RecordWriter = (*Writer)(nil)

// Option configures a Writer
type Option func(*Writer)

// WithRetryPolicy bounds attempts per chunk and the backoff delays.
func WithRetryPolicy(maxAttempts int, initial, max time.Duration) Option {
	return func(w *Writer) {
		if maxAttempts > 0 {
			w.maxAttempts = maxAttempts
		}
		if initial > 0 {
			w.initial = initial
		}
		if max > 0 {
			w.max = max
		}
	}
}

// WithJitter sets the randomization factor applied to each delay. 0 disables jitter.
func WithJitter(factor float64) Option {
	return func(w *Writer) {
		w.jitter = factor
	}
}

// WithRetryNotify is called before each retry with the delay about to be slept.
func WithRetryNotify(fn func(attempt int, delay time.Duration)) Option {
	return func(w *Writer) {
		w.notify = fn
	}
}

// WithClock overrides the clock used for profile touches.
func WithClock(now func() time.Time) Option {
	return func(w *Writer) {
		w.now = now
	}
}

// NewWriter creates a Writer over store.
func NewWriter(store interfaces.StorageManager, logger *common.Logger, opts ...Option) *Writer {
	w := &Writer{
		store:       store,
		logger:      logger,
		maxAttempts: DefaultMaxAttempts,
		initial:     DefaultInitialInterval,
		max:         DefaultMaxInterval,
		jitter:      DefaultRandomizationFactor,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// NewWriterFromConfig creates a Writer with the configured retry policy.
func NewWriterFromConfig(store interfaces.StorageManager, cfg common.PersistConfig, logger *common.Logger, opts ...Option) *Writer {
	base := []Option{WithRetryPolicy(cfg.MaxAttempts, cfg.GetInitialInterval(), cfg.GetMaxInterval())}
	return NewWriter(store, logger, append(base, opts...)...)
}

// Write stores records chunk by chunk, then touches the profile of every
// distinct owner so the profile is not evicted as idle.
func (w *Writer) Write(ctx context.Context, records []*models.EnrichedCharacter) error {
	items := make([]models.WriteItem, 0, len(records))
	var users []int64
	seen := make(map[int64]bool)
	for _, r := range records {
		if r == nil {
			continue
		}
		items = append(items, models.PutCharacter(r))
		if r.UserID != 0 && !seen[r.UserID] {
			seen[r.UserID] = true
			users = append(users, r.UserID)
		}
	}

	if err := w.writeChunked(ctx, items); err != nil {
		return fmt.Errorf("write characters: %w", err)
	}

	if len(users) == 0 {
		return nil
	}
	now := w.now().UTC()
	touches := make([]models.WriteItem, 0, len(users))
	for _, id := range users {
		touches = append(touches, models.TouchProfile(id, now))
	}
	if err := w.writeChunked(ctx, touches); err != nil {
		return fmt.Errorf("touch profiles: %w", err)
	}
	return nil
}

// DeleteCharacter removes one character record.
func (w *Writer) DeleteCharacter(ctx context.Context, characterID int64) error {
	if err := w.transact(ctx, []models.WriteItem{models.DeleteCharacter(characterID)}); err != nil {
		return fmt.Errorf("delete character %d: %w", characterID, err)
	}
	return nil
}

// WriteInstances stores journal instances through the same chunked path.
func (w *Writer) WriteInstances(ctx context.Context, instances []*models.Instance) error {
	items := make([]models.WriteItem, 0, len(instances))
	for _, inst := range instances {
		if inst != nil {
			items = append(items, models.PutInstance(inst))
		}
	}
	if err := w.writeChunked(ctx, items); err != nil {
		return fmt.Errorf("write instances: %w", err)
	}
	return nil
}

func (w *Writer) writeChunked(ctx context.Context, items []models.WriteItem) error {
	size := w.store.MaxTransactionItems()
	if size <= 0 {
		size = len(items)
	}
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		if err := w.transact(ctx, items[start:end]); err != nil {
			return fmt.Errorf("chunk %d-%d of %d: %w", start, end, len(items), err)
		}
	}
	return nil
}

// transact applies one chunk, retrying only throughput errors.
func (w *Writer) transact(ctx context.Context, chunk []models.WriteItem) error {
	attempts := 0
	op := func() error {
		attempts++
		err := w.store.TransactWrite(ctx, chunk)
		if err == nil {
			return nil
		}
		if storage.IsThroughputExceeded(err) {
			return err
		}
		return backoff.Permanent(err)
	}

	notify := func(err error, delay time.Duration) {
		metrics.TransactionRetries.Inc()
		w.logger.Warn().
			Err(err).
			Int("attempt", attempts).
			Int("items", len(chunk)).
			Dur("delay", delay).
			Msg("Transaction throttled, backing off")
		if w.notify != nil {
			w.notify(attempts, delay)
		}
	}

	err := backoff.RetryNotify(op, w.policy(ctx), notify)
	switch {
	case err == nil:
		metrics.TransactionChunks.WithLabelValues("ok").Inc()
		return nil
	case storage.IsThroughputExceeded(err):
		metrics.TransactionChunks.WithLabelValues("throttled").Inc()
		return &ThroughputExceededError{Attempts: attempts, Items: len(chunk), Err: err}
	default:
		metrics.TransactionChunks.WithLabelValues("error").Inc()
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			return perm.Err
		}
		return err
	}
}

func (w *Writer) policy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = w.initial
	b.MaxInterval = w.max
	b.RandomizationFactor = w.jitter
	b.Multiplier = 2
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(w.maxAttempts-1)), ctx)
}
