package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/matchday-live/internal/domain"
	"github.com/tbourn/matchday-live/internal/repo"
)

var kickoff = time.Date(2025, 5, 10, 15, 0, 0, 0, time.UTC)

func newSvcDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())
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
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seedMatch(t *testing.T, db *gorm.DB, id string) {
	t.Helper()
	if err := repo.CreateMatch(context.Background(), db, &domain.Match{
		ID: id, HomeTeam: "Home FC", AwayTeam: "Away United", KickoffAt: kickoff,
	}); err != nil {
		t.Fatalf("seed match: %v", err)
	}
}

// timerRepo adapts the repo package to TimerRepo.
type timerRepo struct{}

func (timerRepo) GetMatch(ctx context.Context, db *gorm.DB, id string) (*domain.Match, error) {
	return repo.GetMatch(ctx, db, id)
}

func (timerRepo) GetTimerSettings(ctx context.Context, db *gorm.DB, matchID string) (*domain.MatchTimerSettings, error) {
	return repo.GetTimerSettings(ctx, db, matchID)
}

func (timerRepo) SaveTimerSettings(ctx context.Context, db *gorm.DB, s *domain.MatchTimerSettings) error {
	return repo.SaveTimerSettings(ctx, db, s)
}

type recordingPublisher struct {
	timers  []domain.MatchTimerSettings
	entries []domain.LiveBlogEntry
	err     error
}

func (p *recordingPublisher) PublishEntries(_ context.Context, _ string, entries []domain.LiveBlogEntry) error {
	p.entries = append(p.entries, entries...)
	return p.err
}

func (p *recordingPublisher) PublishTimer(_ context.Context, _ string, s *domain.MatchTimerSettings) error {
	p.timers = append(p.timers, *s)
	return p.err
}

func ptr[T any](v T) *T { return &v }
