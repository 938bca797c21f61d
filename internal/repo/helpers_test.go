package repo

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/matchday-live/internal/domain"
)

// newRepoDB opens a unique in-memory database per test. With migrate empty
// the full schema is created; pass models to migrate a subset.
func newRepoDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	db.Exec("PRAGMA foreign_keys=ON;")

	if len(migrate) == 0 {
		if err := AutoMigrate(db); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
		return db
	}
	if err := db.AutoMigrate(migrate...); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seedMatch(t *testing.T, db *gorm.DB, id string) *domain.Match {
	t.Helper()
	m := &domain.Match{ID: id, HomeTeam: "Home FC", AwayTeam: "Away FC", KickoffAt: time.Now().UTC()}
	if err := CreateMatch(context.Background(), db, m); err != nil {
		t.Fatalf("seed match: %v", err)
	}
	return m
}

func ptrInt64(v int64) *int64 { return &v }
func ptrInt(v int) *int       { return &v }
