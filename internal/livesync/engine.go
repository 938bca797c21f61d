// Package livesync reconciles local match state with the external fixture
// feed. Each pass fetches the fixture, applies at most one clock transition
// per status change, overwrites the score, turns unseen feed events into
// live-blog entries and advances the per-match sync cursor.
//
// Matches are processed one after another with a short pause in between so
// a batch never bursts the feed's rate limit. A failing match is recorded in
// its bounded error ring and never aborts the rest of the batch.
package livesync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/tbourn/matchday-live/internal/broadcast"
	"github.com/tbourn/matchday-live/internal/config"
	"github.com/tbourn/matchday-live/internal/domain"
	"github.com/tbourn/matchday-live/internal/feed"
	"github.com/tbourn/matchday-live/internal/matchclock"
	"github.com/tbourn/matchday-live/internal/repo"
)

// ErrNoFixture is returned for a match whose automation record has no
// fixture id or has been disabled since the batch was listed.
var ErrNoFixture = errors.New("automation disabled or no fixture configured")

const defaultErrorRingSize = 10

// FixtureSource fetches fixture snapshots. *feed.Client implements it.
type FixtureSource interface {
	FetchFixture(ctx context.Context, id int64) (*feed.Fixture, error)
}

// Engine runs sync batches. The zero value is not usable; set DB and Feed
// or use NewEngine.
type Engine struct {
	DB        *gorm.DB
	Feed      FixtureSource
	Clock     clockwork.Clock
	Publisher broadcast.Publisher

	InterMatchDelay time.Duration
	MatchTimeout    time.Duration
	ErrorRingSize   int

	group singleflight.Group
}

// NewEngine wires an Engine from the sync configuration. A nil clock means
// the real clock; a nil publisher means no fan-out.
func NewEngine(db *gorm.DB, src FixtureSource, clock clockwork.Clock, pub broadcast.Publisher, cfg config.SyncConfig) *Engine {
	return &Engine{
		DB:              db,
		Feed:            src,
		Clock:           clock,
		Publisher:       pub,
		InterMatchDelay: cfg.InterMatchDelay,
		MatchTimeout:    cfg.MatchTimeout,
		ErrorRingSize:   cfg.ErrorRingSize,
	}
}

// RunOptions narrows a batch. An empty MatchID syncs every eligible match.
type RunOptions struct {
	MatchID string
}

// MatchResult is the outcome of one match in a batch.
type MatchResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// MatchOutcome pairs a match with its result.
type MatchOutcome struct {
	MatchID string      `json:"matchId"`
	Result  MatchResult `json:"result"`
}

// BatchResult summarises a batch. Success is true whenever the batch itself
// ran, even if some matches failed.
type BatchResult struct {
	Success bool           `json:"success"`
	Synced  int            `json:"synced"`
	Total   int            `json:"total"`
	Results []MatchOutcome `json:"results"`
}

// syncReport describes what one successful pass changed.
type syncReport struct {
	FixtureID int64
	Status    string
	Action    Action
	Entries   []domain.LiveBlogEntry
	Timer     *domain.MatchTimerSettings
}

func (r *syncReport) message() string {
	return fmt.Sprintf("synced: status %s, %d new entries", orDash(r.Status), len(r.Entries))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func (e *Engine) clock() clockwork.Clock {
	if e.Clock == nil {
		return clockwork.NewRealClock()
	}
	return e.Clock
}

func (e *Engine) publisher() broadcast.Publisher {
	if e.Publisher == nil {
		return broadcast.Noop{}
	}
	return e.Publisher
}

func (e *Engine) ringSize() int {
	if e.ErrorRingSize <= 0 {
		return defaultErrorRingSize
	}
	return e.ErrorRingSize
}

// Run executes one batch. The only error returned is failure to list the
// eligible matches; per-match failures are reported in the result. When ctx
// is cancelled between matches the batch stops early and the partial result
// is returned.
func (e *Engine) Run(ctx context.Context, opts RunOptions) (*BatchResult, error) {
	tr := otel.Tracer("livesync/Engine")
	ctx, span := tr.Start(ctx, "Run",
		trace.WithAttributes(attribute.String("match.id", opts.MatchID)),
	)
	defer span.End()

	batchesTotal.Inc()
	started := e.clock().Now()

	list, err := repo.ListSyncableAutomation(ctx, e.DB, opts.MatchID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list automation settings")
		return nil, fmt.Errorf("list automation settings: %w", err)
	}

	res := &BatchResult{Success: true, Total: len(list), Results: make([]MatchOutcome, 0, len(list))}
	for i := range list {
		if i > 0 && !e.pause(ctx) {
			log.Warn().Err(ctx.Err()).Int("done", i).Int("total", len(list)).Msg("sync batch interrupted")
			break
		}
		matchID := list[i].MatchID
		msg, err := e.SyncMatch(ctx, matchID)
		out := MatchOutcome{MatchID: matchID, Result: MatchResult{Success: err == nil, Message: msg}}
		if err != nil {
			out.Result.Message = err.Error()
		} else {
			res.Synced++
		}
		res.Results = append(res.Results, out)
	}

	span.SetAttributes(attribute.Int("sync.total", res.Total), attribute.Int("sync.synced", res.Synced))
	log.Info().
		Str("match_id", opts.MatchID).
		Int("total", res.Total).
		Int("synced", res.Synced).
		Dur("took", e.clock().Since(started)).
		Msg("sync batch finished")
	return res, nil
}

// pause waits InterMatchDelay on the engine clock. It reports false when ctx
// ends first.
func (e *Engine) pause(ctx context.Context) bool {
	if e.InterMatchDelay <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-e.clock().After(e.InterMatchDelay):
		return true
	}
}

// SyncMatch runs one pass for matchID and returns a short human-readable
// summary. Concurrent calls for the same match share a single pass. On
// failure the error is appended to the match's error ring.
func (e *Engine) SyncMatch(ctx context.Context, matchID string) (string, error) {
	v, err, shared := e.group.Do(matchID, func() (any, error) {
		return e.syncMatch(ctx, matchID)
	})
	if shared {
		log.Debug().Str("match_id", matchID).Msg("sync collapsed into in-flight pass")
	}
	if err != nil {
		return "", err
	}
	return v.(*syncReport).message(), nil
}

func (e *Engine) syncMatch(ctx context.Context, matchID string) (*syncReport, error) {
	tr := otel.Tracer("livesync/Engine")
	ctx, span := tr.Start(ctx, "SyncMatch",
		trace.WithAttributes(attribute.String("match.id", matchID)),
	)
	defer span.End()

	rep, err := e.syncOnce(ctx, matchID)
	if err != nil {
		matchSyncsTotal.WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "sync failed")
		log.Error().Err(err).Str("match_id", matchID).Msg("match sync failed")

		rec := domain.SyncError{At: e.clock().Now().UTC(), Error: err.Error()}
		if rerr := repo.AppendSyncError(context.WithoutCancel(ctx), e.DB, matchID, rec, e.ringSize()); rerr != nil {
			log.Error().Err(rerr).Str("match_id", matchID).Msg("record sync error")
		}
		return nil, err
	}

	matchSyncsTotal.WithLabelValues("ok").Inc()
	entriesInsertedTotal.Add(float64(len(rep.Entries)))
	log.Info().
		Str("match_id", matchID).
		Int64("fixture_id", rep.FixtureID).
		Str("status", rep.Status).
		Str("action", rep.Action.String()).
		Int("entries", len(rep.Entries)).
		Msg("match synced")

	e.broadcast(ctx, matchID, rep)
	return rep, nil
}

func (e *Engine) syncOnce(ctx context.Context, matchID string) (*syncReport, error) {
	if e.MatchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.MatchTimeout)
		defer cancel()
	}

	auto, err := repo.GetAutomationSettings(ctx, e.DB, matchID)
	if err != nil {
		return nil, fmt.Errorf("load automation settings: %w", err)
	}
	if !auto.AutomationEnabled || auto.APIFixtureID == nil {
		return nil, ErrNoFixture
	}

	fx, err := e.Feed.FetchFixture(ctx, *auto.APIFixtureID)
	if err != nil {
		return nil, fmt.Errorf("fetch fixture %d: %w", *auto.APIFixtureID, err)
	}

	var rep *syncReport
	err = e.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var terr error
		rep, terr = e.apply(ctx, tx, matchID, fx)
		return terr
	})
	if err != nil {
		return nil, err
	}
	return rep, nil
}

// apply performs every write of one pass inside tx. Clock changes come first
// so entries written in the same pass agree with the new timer state.
func (e *Engine) apply(ctx context.Context, tx *gorm.DB, matchID string, fx *feed.Fixture) (*syncReport, error) {
	auto, err := repo.LockAutomationSettings(ctx, tx, matchID)
	if err != nil {
		return nil, fmt.Errorf("lock automation settings: %w", err)
	}
	match, err := repo.GetMatch(ctx, tx, matchID)
	if err != nil {
		return nil, fmt.Errorf("load match: %w", err)
	}

	now := e.clock().Now().UTC()
	status := fx.Fixture.Status
	code := strings.ToUpper(strings.TrimSpace(status.Short))
	rep := &syncReport{FixtureID: fx.Fixture.ID, Status: code}
	var drafts []Draft

	rep.Action = NextAction(auto.LastKnownStatus, code)
	switch rep.Action {
	case ActionNone:
	case ActionUnmapped:
		transitionsTotal.WithLabelValues(rep.Action.String()).Inc()
		log.Warn().Str("match_id", matchID).Str("from", auto.LastKnownStatus).Str("to", code).Msg("unmapped feed status")
	default:
		transitionsTotal.WithLabelValues(rep.Action.String()).Inc()

		if auto.AutoTimer {
			timer, err := e.transitionTimer(ctx, tx, matchID, rep.Action, status, now)
			if err != nil {
				return nil, err
			}
			rep.Timer = timer
		}
		if st := rep.Action.matchStatus(); st != "" && st != match.Status {
			if err := repo.UpdateMatchStatus(ctx, tx, matchID, st); err != nil {
				return nil, fmt.Errorf("update match status: %w", err)
			}
		}
		if auto.AutoLiveBlog {
			if d := transitionDraft(rep.Action, code, fx, match); d != nil {
				drafts = append(drafts, *d)
			}
		}
	}

	if auto.AutoScore && (fx.Goals.Home != nil || fx.Goals.Away != nil) {
		if err := repo.UpdateMatchScore(ctx, tx, matchID, deref(fx.Goals.Home), deref(fx.Goals.Away)); err != nil {
			return nil, fmt.Errorf("update score: %w", err)
		}
	}

	synced := append([]string(nil), auto.EventsSynced...)
	if auto.AutoLiveBlog {
		seen := make(map[string]struct{}, len(synced)+len(fx.Events))
		for _, h := range synced {
			seen[h] = struct{}{}
		}
		sides := sidesFor(fx, match)
		for _, ev := range fx.Events {
			h := EventHash(ev)
			if _, dup := seen[h]; dup {
				continue
			}
			seen[h] = struct{}{}
			synced = append(synced, h)
			if d := DraftFor(ev, sides); d != nil {
				drafts = append(drafts, *d)
			}
		}
	}

	if len(drafts) > 0 {
		rep.Entries = make([]domain.LiveBlogEntry, len(drafts))
		for i, d := range drafts {
			rep.Entries[i] = d.Entry(matchID)
			rep.Entries[i].CreatedAt = now
		}
		if err := repo.InsertLiveBlogEntries(ctx, tx, rep.Entries); err != nil {
			return nil, fmt.Errorf("insert live-blog entries: %w", err)
		}
	}

	if err := repo.SaveSyncCursor(ctx, tx, matchID, code, synced, now); err != nil {
		return nil, fmt.Errorf("save sync cursor: %w", err)
	}
	return rep, nil
}

// transitionTimer applies the clock operation for action, creating the timer
// record on first use. A transition that would move the clock back to an
// earlier period is logged and skipped.
func (e *Engine) transitionTimer(ctx context.Context, tx *gorm.DB, matchID string, action Action, st feed.Status, now time.Time) (*domain.MatchTimerSettings, error) {
	timer, err := repo.GetTimerSettings(ctx, tx, matchID)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		timer = matchclock.New(matchID)
	case err != nil:
		return nil, fmt.Errorf("load timer: %w", err)
	}

	t, ok := action.timerTransition(matchclock.Half(timer.CurrentHalf))
	if !ok {
		return nil, nil
	}
	if err := matchclock.Apply(timer, t, now, stoppage(t, st)); err != nil {
		if errors.Is(err, matchclock.ErrHalfRegression) {
			log.Warn().Str("match_id", matchID).Str("transition", t.String()).Int("half", timer.CurrentHalf).Msg("timer transition skipped")
			return nil, nil
		}
		return nil, fmt.Errorf("apply %s: %w", t, err)
	}
	if err := repo.SaveTimerSettings(ctx, tx, timer); err != nil {
		return nil, fmt.Errorf("save timer: %w", err)
	}
	return timer, nil
}

// stoppage derives the added minutes for an end-of-period transition from
// the feed: minutes played past the nominal end plus any announced extra.
func stoppage(t matchclock.Transition, st feed.Status) int {
	var nominal int
	switch t {
	case matchclock.EndFirstHalf:
		nominal = 45
	case matchclock.EndMatch:
		nominal = 90
	case matchclock.EndExtraTime1:
		nominal = 105
	case matchclock.EndExtraTime2:
		nominal = 120
	default:
		return 0
	}
	added := 0
	if st.Elapsed != nil && *st.Elapsed > nominal {
		added = *st.Elapsed - nominal
	}
	if st.Extra != nil && *st.Extra > 0 {
		added += *st.Extra
	}
	return added
}

func (e *Engine) broadcast(ctx context.Context, matchID string, rep *syncReport) {
	pub := e.publisher()
	if rep.Timer != nil {
		if err := pub.PublishTimer(ctx, matchID, rep.Timer); err != nil {
			log.Warn().Err(err).Str("match_id", matchID).Msg("publish timer")
		}
	}
	if len(rep.Entries) > 0 {
		if err := pub.PublishEntries(ctx, matchID, rep.Entries); err != nil {
			log.Warn().Err(err).Str("match_id", matchID).Msg("publish live-blog entries")
		}
	}
}

func sidesFor(fx *feed.Fixture, m *domain.Match) Sides {
	s := Sides{
		HomeID:   fx.Teams.Home.ID,
		AwayID:   fx.Teams.Away.ID,
		HomeName: fx.Teams.Home.Name,
		AwayName: fx.Teams.Away.Name,
	}
	if s.HomeName == "" {
		s.HomeName = m.HomeTeam
	}
	if s.AwayName == "" {
		s.AwayName = m.AwayTeam
	}
	return s
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
