package livesync

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/matchday-live/internal/domain"
	"github.com/tbourn/matchday-live/internal/feed"
	"github.com/tbourn/matchday-live/internal/repo"
)

func TestRun_KickoffAndIdempotentEvents(t *testing.T) {
	db := newTestDB(t)
	seed(t, db, "m1", 100, allOn)
	src := newFakeFeed()
	src.set(100, fixture(100, "1H", ip(21), 1, 0, goal(12, 909, "A. Striker"), yellow(20, "C. Defender")))
	e, _ := newTestEngine(db, src)
	ctx := context.Background()

	res, err := e.Run(ctx, RunOptions{})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.Total)
	assert.Equal(t, 1, res.Synced)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "m1", res.Results[0].MatchID)
	assert.True(t, res.Results[0].Result.Success)
	assert.Contains(t, res.Results[0].Result.Message, "3 new entries")

	m := matchRow(t, db, "m1")
	assert.Equal(t, domain.MatchLive, m.Status)
	assert.Equal(t, 1, m.HomeScore)
	assert.Equal(t, 0, m.AwayScore)

	timer, err := repo.GetTimerSettings(ctx, db, "m1")
	require.NoError(t, err)
	assert.True(t, timer.IsTimerRunning)
	assert.Equal(t, 1, timer.CurrentHalf)
	require.NotNil(t, timer.HalfStartedAt)
	assert.True(t, timer.HalfStartedAt.Equal(t0))

	auto := automation(t, db, "m1")
	assert.Equal(t, "1H", auto.LastKnownStatus)
	assert.Len(t, auto.EventsSynced, 2)
	require.NotNil(t, auto.LastAPISync)
	assert.True(t, auto.LastAPISync.Equal(t0))
	assert.EqualValues(t, 1, countType(t, db, "m1", domain.EntryKickoff))
	assert.EqualValues(t, 1, countType(t, db, "m1", domain.EntryGoal))
	assert.EqualValues(t, 1, countType(t, db, "m1", domain.EntryYellowCard))

	// replaying the same feed inserts nothing
	res, err = e.Run(ctx, RunOptions{})
	require.NoError(t, err)
	assert.Contains(t, res.Results[0].Result.Message, "0 new entries")
	assert.EqualValues(t, 3, countAll(t, db, "m1"))
	assert.Len(t, automation(t, db, "m1").EventsSynced, 2)

	// only the new event is appended
	src.set(100, fixture(100, "1H", ip(31), 2, 0, goal(12, 909, "A. Striker"), yellow(20, "C. Defender"), goal(30, 911, "D. Forward")))
	_, err = e.Run(ctx, RunOptions{})
	require.NoError(t, err)
	assert.EqualValues(t, 4, countAll(t, db, "m1"))
	assert.Len(t, automation(t, db, "m1").EventsSynced, 3)
	assert.Equal(t, 2, matchRow(t, db, "m1").HomeScore)
}

func TestRun_LastAPISyncAlwaysAdvances(t *testing.T) {
	db := newTestDB(t)
	seed(t, db, "m1", 100, allOn)
	src := newFakeFeed()
	src.set(100, fixture(100, "NS", nil, 0, 0))
	e, clock := newTestEngine(db, src)

	_, err := e.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	clock.Advance(30 * time.Second)
	_, err = e.Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	auto := automation(t, db, "m1")
	require.NotNil(t, auto.LastAPISync)
	assert.True(t, auto.LastAPISync.Equal(t0.Add(30*time.Second)))
	assert.Equal(t, "NS", auto.LastKnownStatus)
	assert.EqualValues(t, 0, countAll(t, db, "m1"))
	assert.Equal(t, domain.MatchUpcoming, matchRow(t, db, "m1").Status)
}

func TestRun_FullTimeIsEdgeTriggered(t *testing.T) {
	db := newTestDB(t)
	seed(t, db, "m1", 100, allOn)
	src := newFakeFeed()
	e, clock := newTestEngine(db, src)
	ctx := context.Background()

	src.set(100, fixture(100, "2H", ip(60), 1, 1))
	_, err := e.Run(ctx, RunOptions{})
	require.NoError(t, err)

	clock.Advance(48 * time.Minute)
	src.set(100, fixture(100, "FT", ip(93), 2, 1))
	_, err = e.Run(ctx, RunOptions{})
	require.NoError(t, err)

	// same code again, with a late score correction
	src.set(100, fixture(100, "FT", ip(93), 2, 2))
	_, err = e.Run(ctx, RunOptions{})
	require.NoError(t, err)

	m := matchRow(t, db, "m1")
	assert.Equal(t, domain.MatchFinished, m.Status)
	assert.Equal(t, 2, m.HomeScore)
	assert.Equal(t, 2, m.AwayScore, "score overwrite reapplies on every pass")

	timer, err := repo.GetTimerSettings(ctx, db, "m1")
	require.NoError(t, err)
	assert.False(t, timer.IsTimerRunning)
	assert.True(t, timer.IsPaused)
	assert.Equal(t, 93, timer.PausedAtMinute)
	assert.Equal(t, 3, timer.SecondHalfExtraTime)

	assert.EqualValues(t, 1, countType(t, db, "m1", domain.EntryFulltime))
	entries, err := repo.ListLiveBlogEntriesPage(ctx, db, "m1", 0, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.EntryFulltime, entries[0].EntryType)
	require.NotNil(t, entries[0].Minute)
	assert.Equal(t, 93, *entries[0].Minute)
	assert.Contains(t, entries[0].Content, "Home FC 2-1 Away United")
}

func TestRun_BatchIsolation(t *testing.T) {
	db := newTestDB(t)
	src := newFakeFeed()
	for i, id := range []string{"m1", "m2", "m3"} {
		fid := int64(i + 1)
		seed(t, db, id, fid, allOn)
		src.set(fid, fixture(fid, "1H", ip(5), 0, 0))
	}
	src.fail(2, errors.New("feed down"))
	e, _ := newTestEngine(db, src)

	okBefore := testutil.ToFloat64(matchSyncsTotal.WithLabelValues("ok"))
	errBefore := testutil.ToFloat64(matchSyncsTotal.WithLabelValues("error"))

	res, err := e.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 2, res.Synced)
	require.Len(t, res.Results, 3)
	assert.True(t, res.Results[0].Result.Success)
	assert.False(t, res.Results[1].Result.Success)
	assert.Contains(t, res.Results[1].Result.Message, "feed down")
	assert.True(t, res.Results[2].Result.Success)

	assert.Equal(t, "1H", automation(t, db, "m1").LastKnownStatus)
	assert.Equal(t, "1H", automation(t, db, "m3").LastKnownStatus)
	assert.Equal(t, domain.MatchLive, matchRow(t, db, "m3").Status)

	failed := automation(t, db, "m2")
	assert.Equal(t, "", failed.LastKnownStatus)
	assert.Nil(t, failed.LastAPISync)
	require.Len(t, failed.SyncErrors, 1)
	assert.Contains(t, failed.SyncErrors[0].Error, "feed down")
	assert.True(t, failed.SyncErrors[0].At.Equal(t0))
	assert.Equal(t, domain.MatchUpcoming, matchRow(t, db, "m2").Status)

	assert.Equal(t, okBefore+2, testutil.ToFloat64(matchSyncsTotal.WithLabelValues("ok")))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(matchSyncsTotal.WithLabelValues("error")))
}

func TestRun_ErrorRingKeepsLastTen(t *testing.T) {
	db := newTestDB(t)
	seed(t, db, "m1", 100, allOn)
	src := newFakeFeed()
	e, clock := newTestEngine(db, src)

	for i := 1; i <= 11; i++ {
		src.fail(100, fmt.Errorf("boom %d", i))
		_, err := e.Run(context.Background(), RunOptions{})
		require.NoError(t, err)
		clock.Advance(time.Minute)
	}

	ring := automation(t, db, "m1").SyncErrors
	require.Len(t, ring, 10)
	assert.Contains(t, ring[0].Error, "boom 2")
	assert.Contains(t, ring[9].Error, "boom 11")
	assert.True(t, ring[9].At.After(ring[0].At))
}

func TestRun_FeatureFlagsOff(t *testing.T) {
	db := newTestDB(t)
	seed(t, db, "m1", 100, flags{})
	src := newFakeFeed()
	src.set(100, fixture(100, "1H", ip(15), 1, 0, goal(12, 909, "A. Striker")))
	e, _ := newTestEngine(db, src)
	ctx := context.Background()

	res, err := e.Run(ctx, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Synced)

	_, err = repo.GetTimerSettings(ctx, db, "m1")
	assert.ErrorIs(t, err, repo.ErrNotFound)
	m := matchRow(t, db, "m1")
	assert.Equal(t, 0, m.HomeScore)
	assert.Equal(t, domain.MatchLive, m.Status)
	assert.EqualValues(t, 0, countAll(t, db, "m1"))

	auto := automation(t, db, "m1")
	assert.Equal(t, "1H", auto.LastKnownStatus)
	assert.Empty(t, auto.EventsSynced)
}

func TestRun_ExtraTimeAndPenalties(t *testing.T) {
	db := newTestDB(t)
	seed(t, db, "m1", 100, allOn)
	src := newFakeFeed()
	e, clock := newTestEngine(db, src)
	ctx := context.Background()

	step := func(code string, elapsed int) *domain.MatchTimerSettings {
		t.Helper()
		src.set(100, fixture(100, code, ip(elapsed), 1, 1))
		res, err := e.Run(ctx, RunOptions{})
		require.NoError(t, err)
		require.Equal(t, 1, res.Synced, res.Results)
		timer, err := repo.GetTimerSettings(ctx, db, "m1")
		require.NoError(t, err)
		clock.Advance(time.Minute)
		return timer
	}

	timer := step("ET", 91)
	assert.Equal(t, 3, timer.CurrentHalf)
	assert.True(t, timer.IsExtraTime)
	assert.True(t, timer.IsTimerRunning)

	timer = step("BT", 105)
	assert.True(t, timer.IsPaused)
	assert.Equal(t, 105, timer.PausedAtMinute)

	timer = step("ET", 106)
	assert.Equal(t, 4, timer.CurrentHalf, "ET after BT starts the second period")
	assert.True(t, timer.IsTimerRunning)

	timer = step("P", 120)
	assert.Equal(t, 4, timer.CurrentHalf)
	assert.True(t, timer.IsTimerRunning, "penalties leave the clock alone")

	timer = step("PEN", 120)
	assert.True(t, timer.IsPaused)
	assert.Equal(t, 120, timer.PausedAtMinute)
	assert.Equal(t, 0, timer.SecondHalfExtraTime)

	assert.Equal(t, domain.MatchFinished, matchRow(t, db, "m1").Status)
	assert.EqualValues(t, 2, countType(t, db, "m1", domain.EntryKickoff))
	assert.EqualValues(t, 1, countType(t, db, "m1", domain.EntryHalftime))
	assert.EqualValues(t, 1, countType(t, db, "m1", domain.EntryImportant))
	assert.EqualValues(t, 1, countType(t, db, "m1", domain.EntryFulltime))
}

func TestRun_UnmappedStatusLeavesClockAlone(t *testing.T) {
	db := newTestDB(t)
	seed(t, db, "m1", 100, allOn)
	src := newFakeFeed()
	e, _ := newTestEngine(db, src)
	ctx := context.Background()

	src.set(100, fixture(100, "1H", ip(30), 0, 0))
	_, err := e.Run(ctx, RunOptions{})
	require.NoError(t, err)

	src.set(100, fixture(100, "SUSP", ip(31), 0, 0))
	res, err := e.Run(ctx, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Synced)

	timer, err := repo.GetTimerSettings(ctx, db, "m1")
	require.NoError(t, err)
	assert.True(t, timer.IsTimerRunning)
	assert.Equal(t, "SUSP", automation(t, db, "m1").LastKnownStatus)
	assert.EqualValues(t, 1, countAll(t, db, "m1"))
	assert.Equal(t, domain.MatchLive, matchRow(t, db, "m1").Status)
}

func TestRun_HalfRegressionIsSkipped(t *testing.T) {
	db := newTestDB(t)
	seed(t, db, "m1", 100, allOn)
	ctx := context.Background()
	started := t0.Add(-2 * time.Hour)
	require.NoError(t, repo.SaveTimerSettings(ctx, db, &domain.MatchTimerSettings{
		MatchID: "m1", TimerStartedAt: &started, HalfStartedAt: &started,
		IsTimerRunning: true, CurrentHalf: 3, IsExtraTime: true,
	}))

	src := newFakeFeed()
	src.set(100, fixture(100, "2H", ip(50), 0, 0))
	e, _ := newTestEngine(db, src)

	res, err := e.Run(ctx, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Synced)
	timer, err := repo.GetTimerSettings(ctx, db, "m1")
	require.NoError(t, err)
	assert.Equal(t, 3, timer.CurrentHalf)
}

func TestRun_SingleMatchAndDisabled(t *testing.T) {
	db := newTestDB(t)
	seed(t, db, "m1", 1, allOn)
	seed(t, db, "m2", 2, allOn)
	src := newFakeFeed()
	src.set(1, fixture(1, "NS", nil, 0, 0))
	src.set(2, fixture(2, "NS", nil, 0, 0))
	e, _ := newTestEngine(db, src)
	ctx := context.Background()

	res, err := e.Run(ctx, RunOptions{MatchID: "m2"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
	assert.Equal(t, "m2", res.Results[0].MatchID)
	assert.Equal(t, 1, src.calls)

	_, err = repo.UpsertAutomationConfig(ctx, db, &domain.MatchAutomationSettings{
		MatchID: "m2", AutomationEnabled: false, APIFixtureID: i64p(2),
	})
	require.NoError(t, err)
	res, err = e.Run(ctx, RunOptions{MatchID: "m2"})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Total)
	assert.Empty(t, res.Results)

	res, err = e.Run(ctx, RunOptions{MatchID: "unknown"})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Total)
}

func TestRun_InterMatchDelayUsesClock(t *testing.T) {
	db := newTestDB(t)
	src := newFakeFeed()
	for i, id := range []string{"m1", "m2", "m3"} {
		fid := int64(i + 1)
		seed(t, db, id, fid, allOn)
		src.set(fid, fixture(fid, "NS", nil, 0, 0))
	}
	e, clock := newTestEngine(db, src)
	e.InterMatchDelay = time.Second

	done := make(chan *BatchResult, 1)
	go func() {
		res, _ := e.Run(context.Background(), RunOptions{})
		done <- res
	}()

	wait, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := 0; i < 2; i++ {
		require.NoError(t, clock.BlockUntilContext(wait, 1))
		clock.Advance(time.Second)
	}

	select {
	case res := <-done:
		require.NotNil(t, res)
		assert.Equal(t, 3, res.Synced)
	case <-wait.Done():
		t.Fatal("batch did not finish")
	}
}

func TestRun_CancelledBetweenMatchesReturnsPartial(t *testing.T) {
	db := newTestDB(t)
	src := newFakeFeed()
	for i, id := range []string{"m1", "m2", "m3"} {
		fid := int64(i + 1)
		seed(t, db, id, fid, allOn)
		src.set(fid, fixture(fid, "NS", nil, 0, 0))
	}
	e, clock := newTestEngine(db, src)
	e.InterMatchDelay = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan *BatchResult, 1)
	go func() {
		res, _ := e.Run(ctx, RunOptions{})
		done <- res
	}()

	wait, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	require.NoError(t, clock.BlockUntilContext(wait, 1))
	cancel()

	select {
	case res := <-done:
		require.NotNil(t, res)
		assert.Equal(t, 3, res.Total)
		assert.Equal(t, 1, res.Synced)
		assert.Len(t, res.Results, 1)
	case <-wait.Done():
		t.Fatal("batch did not stop")
	}
}

type blockingFeed struct{}

func (blockingFeed) FetchFixture(ctx context.Context, _ int64) (*feed.Fixture, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestRun_MatchTimeout(t *testing.T) {
	db := newTestDB(t)
	seed(t, db, "m1", 100, allOn)
	e, _ := newTestEngine(db, blockingFeed{})
	e.MatchTimeout = 20 * time.Millisecond

	res, err := e.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Synced)
	assert.Contains(t, res.Results[0].Result.Message, "deadline exceeded")
	require.Len(t, automation(t, db, "m1").SyncErrors, 1)
}

func TestRun_ListFailureIsEngineError(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:livesync_nolist?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	e, _ := newTestEngine(db, newFakeFeed())

	res, err := e.Run(context.Background(), RunOptions{})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Contains(t, err.Error(), "list automation settings")
}

func TestRun_PublishesAfterCommit(t *testing.T) {
	db := newTestDB(t)
	seed(t, db, "m1", 100, allOn)
	src := newFakeFeed()
	src.set(100, fixture(100, "1H", ip(13), 1, 0, goal(12, 909, "A. Striker")))
	e, _ := newTestEngine(db, src)
	rec := &recorder{}
	e.Publisher = rec

	_, err := e.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	require.Len(t, rec.entries, 2)
	assert.Equal(t, 1, rec.timers)
	for _, en := range rec.entries {
		assert.NotEmpty(t, en.ID)
		assert.Equal(t, "m1", en.MatchID)
	}

	_, err = e.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Len(t, rec.entries, 2, "nothing new, nothing published")
	assert.Equal(t, 1, rec.timers)
}

func TestSyncMatch_DisabledMatchIsRecorded(t *testing.T) {
	db := newTestDB(t)
	seed(t, db, "m1", 100, allOn)
	ctx := context.Background()
	_, err := repo.UpsertAutomationConfig(ctx, db, &domain.MatchAutomationSettings{MatchID: "m1"})
	require.NoError(t, err)

	e, _ := newTestEngine(db, newFakeFeed())
	_, err = e.SyncMatch(ctx, "m1")
	require.ErrorIs(t, err, ErrNoFixture)
	assert.Len(t, automation(t, db, "m1").SyncErrors, 1)
}

func TestNewEngine(t *testing.T) {
	e := NewEngine(nil, newFakeFeed(), nil, nil, configForTest())
	assert.Equal(t, 2*time.Second, e.InterMatchDelay)
	assert.Equal(t, 5*time.Second, e.MatchTimeout)
	assert.Equal(t, 10, e.ringSize())
	assert.NotNil(t, e.clock())
	assert.NotNil(t, e.publisher())
}
