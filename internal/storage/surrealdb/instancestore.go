package surrealdb

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"

	"github.com/bobmcallan/armory/internal/common"
	"github.com/bobmcallan/armory/internal/models"
)

type instanceDoc struct {
	InstanceID int64            `json:"instance_id"`
	Type       string           `json:"type"`
	Instance   *models.Instance `json:"instance"`
}

func newInstanceDoc(i *models.Instance) instanceDoc {
	return instanceDoc{InstanceID: i.ID, Type: i.Type, Instance: i}
}

// InstanceStore implements interfaces.InstanceStore using SurrealDB.
type InstanceStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

// NewInstanceStore creates a new InstanceStore.
func NewInstanceStore(db *surrealdb.DB, logger *common.Logger) *InstanceStore {
	return &InstanceStore{db: db, logger: logger}
}

func (s *InstanceStore) ListInstances(ctx context.Context, instanceType string) ([]*models.Instance, error) {
	sql := "SELECT instance_id, type, instance FROM instance WHERE type = $type ORDER BY instance_id"
	results, err := surrealdb.Query[[]instanceDoc](ctx, s.db, sql, map[string]any{"type": instanceType})
	if err != nil {
		return nil, fmt.Errorf("failed to list instances: %w", err)
	}
	var out []*models.Instance
	if results != nil && len(*results) > 0 {
		for _, doc := range (*results)[0].Result {
			if doc.Instance != nil {
				out = append(out, doc.Instance)
			}
		}
	}
	return out, nil
}
