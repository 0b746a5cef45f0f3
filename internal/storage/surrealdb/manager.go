package surrealdb

import (
	"context"
	"fmt"
	"strings"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/bobmcallan/armory/internal/common"
	"github.com/bobmcallan/armory/internal/interfaces"
	"github.com/bobmcallan/armory/internal/models"
	"github.com/bobmcallan/armory/internal/storage"
)

// MaxTransactionItems bounds the statements in one transaction query.
const MaxTransactionItems = 100

const (
	tableProfile   = "profile"
	tableCharacter = "character"
	tableInstance  = "instance"
)

// Manager implements interfaces.StorageManager using SurrealDB.
type Manager struct {
	db     *surrealdb.DB
	logger *common.Logger

	profileStore   *ProfileStore
	characterStore *CharacterStore
	instanceStore  *InstanceStore
}

// NewManager creates a new StorageManager connected to SurrealDB.
func NewManager(logger *common.Logger, config common.SurrealDBConfig) (*Manager, error) {
	ctx := context.Background()

	db, err := surrealdb.New(config.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}

	if _, err := db.SignIn(ctx, map[string]interface{}{
		"user": config.Username,
		"pass": config.Password,
	}); err != nil {
		return nil, fmt.Errorf("failed to sign in to SurrealDB: %w", err)
	}

	if err := db.Use(ctx, config.Namespace, config.Database); err != nil {
		return nil, fmt.Errorf("failed to select namespace/database: %w", err)
	}

	m, err := NewManagerWithDB(ctx, db, logger)
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("address", config.Address).
		Str("namespace", config.Namespace).
		Str("database", config.Database).
		Msg("SurrealDB storage manager initialized")
	return m, nil
}

// NewManagerWithDB defines the tables on an already selected database.
func NewManagerWithDB(ctx context.Context, db *surrealdb.DB, logger *common.Logger) (*Manager, error) {
	// SurrealDB v3 errors on querying non-existent tables
	for _, table := range []string{tableProfile, tableCharacter, tableInstance} {
		sql := fmt.Sprintf("DEFINE TABLE IF NOT EXISTS %s SCHEMALESS", table)
		if _, err := surrealdb.Query[any](ctx, db, sql, nil); err != nil {
			return nil, fmt.Errorf("failed to define table %s: %w", table, err)
		}
	}

	return &Manager{
		db:             db,
		logger:         logger,
		profileStore:   NewProfileStore(db, logger),
		characterStore: NewCharacterStore(db, logger),
		instanceStore:  NewInstanceStore(db, logger),
	}, nil
}

func (m *Manager) ProfileStore() interfaces.ProfileStore {
	return m.profileStore
}

func (m *Manager) CharacterStore() interfaces.CharacterStore {
	return m.characterStore
}

func (m *Manager) InstanceStore() interfaces.InstanceStore {
	return m.instanceStore
}

func (m *Manager) MaxTransactionItems() int {
	return MaxTransactionItems
}

// TransactWrite applies all items inside one BEGIN/COMMIT query.
func (m *Manager) TransactWrite(ctx context.Context, items []models.WriteItem) error {
	if len(items) == 0 {
		return nil
	}
	if len(items) > MaxTransactionItems {
		return fmt.Errorf("transaction of %d items exceeds limit of %d", len(items), MaxTransactionItems)
	}

	var sql strings.Builder
	vars := make(map[string]any, len(items)*2)
	sql.WriteString("BEGIN TRANSACTION;\n")
	for i, item := range items {
		rid := fmt.Sprintf("rid%d", i)
		val := fmt.Sprintf("v%d", i)
		switch item.Op {
		case models.OpPutCharacter:
			vars[rid] = surrealmodels.NewRecordID(tableCharacter, item.Character.ID)
			vars[val] = newCharacterDoc(item.Character)
			fmt.Fprintf(&sql, "UPSERT $%s CONTENT $%s;\n", rid, val)
		case models.OpDeleteCharacter:
			vars[rid] = surrealmodels.NewRecordID(tableCharacter, item.CharacterID)
			fmt.Fprintf(&sql, "DELETE $%s;\n", rid)
		case models.OpTouchProfile:
			vars[rid] = surrealmodels.NewRecordID(tableProfile, item.UserID)
			vars[val] = item.At.UTC()
			fmt.Fprintf(&sql, "UPDATE $%s SET updated_at = $%s;\n", rid, val)
		case models.OpPutInstance:
			vars[rid] = surrealmodels.NewRecordID(tableInstance, item.Instance.ID)
			vars[val] = newInstanceDoc(item.Instance)
			fmt.Fprintf(&sql, "UPSERT $%s CONTENT $%s;\n", rid, val)
		default:
			return fmt.Errorf("unsupported write op %s", item.Op)
		}
	}
	sql.WriteString("COMMIT TRANSACTION;")

	if _, err := surrealdb.Query[any](ctx, m.db, sql.String(), vars); err != nil {
		return fmt.Errorf("transact write %d items: %w", len(items), mapError(err))
	}
	return nil
}

func (m *Manager) Close() error {
	m.db.Close(context.Background())
	return nil
}

// Compile-time check
var _ interfaces.StorageManager = (*Manager)(nil)

// mapError treats transaction conflicts as throttling so writers back off
// and retry.
func mapError(err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "conflict") || strings.Contains(msg, "can be retried") {
		return fmt.Errorf("%w: %w", storage.ErrThroughputExceeded, err)
	}
	return err
}

func isNotFoundError(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "not found")
}
