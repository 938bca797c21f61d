package livesync

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/matchday-live/internal/config"
	"github.com/tbourn/matchday-live/internal/domain"
	"github.com/tbourn/matchday-live/internal/feed"
	"github.com/tbourn/matchday-live/internal/repo"
)

var t0 = time.Date(2025, 5, 10, 15, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:livesync_%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	db.Exec("PRAGMA foreign_keys=ON;")
	require.NoError(t, repo.AutoMigrate(db))
	return db
}

type flags struct {
	timer, liveBlog, score bool
}

var allOn = flags{timer: true, liveBlog: true, score: true}

func seed(t *testing.T, db *gorm.DB, matchID string, fixtureID int64, f flags) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, repo.CreateMatch(ctx, db, &domain.Match{
		ID: matchID, HomeTeam: "Home FC", AwayTeam: "Away United", KickoffAt: t0,
	}))
	_, err := repo.UpsertAutomationConfig(ctx, db, &domain.MatchAutomationSettings{
		MatchID:           matchID,
		AutomationEnabled: true,
		APIFixtureID:      &fixtureID,
		AutoTimer:         f.timer,
		AutoLiveBlog:      f.liveBlog,
		AutoScore:         f.score,
	})
	require.NoError(t, err)
}

// fakeFeed serves canned fixtures by id.
type fakeFeed struct {
	mu       sync.Mutex
	fixtures map[int64]*feed.Fixture
	errs     map[int64]error
	calls    int
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{fixtures: map[int64]*feed.Fixture{}, errs: map[int64]error{}}
}

func (f *fakeFeed) set(id int64, fx *feed.Fixture) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fixtures[id] = fx
}

func (f *fakeFeed) fail(id int64, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[id] = err
}

func (f *fakeFeed) FetchFixture(_ context.Context, id int64) (*feed.Fixture, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := f.errs[id]; err != nil {
		return nil, err
	}
	fx, ok := f.fixtures[id]
	if !ok {
		return nil, feed.ErrFixtureNotFound
	}
	cp := *fx
	return &cp, nil
}

func ip(v int) *int       { return &v }
func i64p(v int64) *int64 { return &v }

func fixture(id int64, code string, elapsed *int, home, away int, events ...feed.Event) *feed.Fixture {
	return &feed.Fixture{
		Fixture: feed.FixtureInfo{ID: id, Status: feed.Status{Short: code, Elapsed: elapsed}},
		Teams:   feed.Teams{Home: feed.Team{ID: 33, Name: "Home FC"}, Away: feed.Team{ID: 40, Name: "Away United"}},
		Goals:   feed.Goals{Home: ip(home), Away: ip(away)},
		Events:  events,
	}
}

func goal(minute int, playerID int64, name string) feed.Event {
	return feed.Event{
		Time:   feed.EventTime{Elapsed: minute},
		Team:   feed.Team{ID: 33, Name: "Home FC"},
		Player: feed.Person{ID: &playerID, Name: name},
		Type:   "Goal",
		Detail: "Normal Goal",
	}
}

func yellow(minute int, name string) feed.Event {
	return feed.Event{
		Time:   feed.EventTime{Elapsed: minute},
		Team:   feed.Team{ID: 40, Name: "Away United"},
		Player: feed.Person{Name: name},
		Type:   "Card",
		Detail: "Yellow Card",
	}
}

// recorder captures everything the engine publishes.
type recorder struct {
	mu      sync.Mutex
	entries []domain.LiveBlogEntry
	timers  int
}

func (r *recorder) PublishEntries(_ context.Context, _ string, entries []domain.LiveBlogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entries...)
	return nil
}

func (r *recorder) PublishTimer(context.Context, string, *domain.MatchTimerSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timers++
	return nil
}

func newTestEngine(db *gorm.DB, src FixtureSource) (*Engine, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClockAt(t0)
	return &Engine{DB: db, Feed: src, Clock: clock, ErrorRingSize: 10}, clock
}

func automation(t *testing.T, db *gorm.DB, matchID string) *domain.MatchAutomationSettings {
	t.Helper()
	s, err := repo.GetAutomationSettings(context.Background(), db, matchID)
	require.NoError(t, err)
	return s
}

func matchRow(t *testing.T, db *gorm.DB, matchID string) *domain.Match {
	t.Helper()
	m, err := repo.GetMatch(context.Background(), db, matchID)
	require.NoError(t, err)
	return m
}

func countType(t *testing.T, db *gorm.DB, matchID, entryType string) int64 {
	t.Helper()
	n, err := repo.CountLiveBlogEntriesByType(context.Background(), db, matchID, entryType)
	require.NoError(t, err)
	return n
}

func countAll(t *testing.T, db *gorm.DB, matchID string) int64 {
	t.Helper()
	n, err := repo.CountLiveBlogEntries(context.Background(), db, matchID)
	require.NoError(t, err)
	return n
}

func configForTest() config.SyncConfig {
	return config.SyncConfig{InterMatchDelay: 2 * time.Second, MatchTimeout: 5 * time.Second}
}
