package domain

import (
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return db
}

func TestIdempotency_Migration_Indexes_AndInsert(t *testing.T) {
	db := newTestDB(t)
	if err := db.AutoMigrate(&Idempotency{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	m := db.Migrator()
	if !m.HasIndex(&Idempotency{}, "ux_scope_key") {
		t.Fatalf("expected composite index ux_scope_key to exist")
	}

	now := time.Now().UTC()
	rec := &Idempotency{
		ID:        "id-1",
		Scope:     "sync",
		Key:       "k1",
		Status:    200,
		Response:  datatypes.JSON(`{"success":true,"synced":1,"total":1}`),
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
	if err := db.Create(rec).Error; err != nil {
		t.Fatalf("insert valid: %v", err)
	}

	var got Idempotency
	if err := db.First(&got, "id = ?", "id-1").Error; err != nil {
		t.Fatalf("readback: %v", err)
	}
	if got.Scope != "sync" || got.Key != "k1" || got.Status != 200 {
		t.Fatalf("unexpected row: %+v", got)
	}
	if string(got.Response) != `{"success":true,"synced":1,"total":1}` {
		t.Fatalf("response not preserved: %s", got.Response)
	}

	// (scope, key) must be unique
	dup := &Idempotency{ID: "id-2", Scope: "sync", Key: "k1", Status: 200, Response: datatypes.JSON(`{}`), ExpiresAt: now}
	if err := db.Create(dup).Error; err == nil {
		t.Fatalf("expected UNIQUE constraint violation on (scope, key)")
	}

	// same key in another scope is fine
	other := &Idempotency{ID: "id-3", Scope: "timer", Key: "k1", Status: 200, Response: datatypes.JSON(`{}`), ExpiresAt: now}
	if err := db.Create(other).Error; err != nil {
		t.Fatalf("insert other scope: %v", err)
	}
}
