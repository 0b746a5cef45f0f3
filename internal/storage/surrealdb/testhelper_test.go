package surrealdb

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	surreal "github.com/surrealdb/surrealdb.go"

	"github.com/bobmcallan/armory/internal/common"
	tcommon "github.com/bobmcallan/armory/tests/common"
)

// testDatabase returns a unique database name for t; SurrealDB rejects "/"
// in names so subtest separators are replaced.
func testDatabase(t *testing.T) string {
	sanitized := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	return fmt.Sprintf("t_%s_%d", sanitized, time.Now().UnixNano()%100000)
}

// testManager connects to the shared container and defines the tables in a
// fresh database.
func testManager(t *testing.T) *Manager {
	t.Helper()

	sc := tcommon.StartSurrealDB(t)
	ctx := context.Background()

	db, err := surreal.New(sc.Address())
	if err != nil {
		t.Fatalf("connect to SurrealDB: %v", err)
	}
	if _, err := db.SignIn(ctx, map[string]interface{}{
		"user": "root",
		"pass": "root",
	}); err != nil {
		t.Fatalf("sign in to SurrealDB: %v", err)
	}
	if err := db.Use(ctx, "armory_test", testDatabase(t)); err != nil {
		t.Fatalf("select namespace/database: %v", err)
	}

	m, err := NewManagerWithDB(ctx, db, testLogger())
	if err != nil {
		t.Fatalf("init manager: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

// testLogger returns a silent logger for tests.
func testLogger() *common.Logger {
	return common.NewSilentLogger()
}
