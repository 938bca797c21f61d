// Package handlers exposes the REST endpoints of the live match service.
//
// Handlers are transport-thin: they validate input, call application
// services, and translate results into HTTP responses (including
// conditional, idempotent and streaming responses).
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/tbourn/matchday-live/internal/domain"
	"github.com/tbourn/matchday-live/internal/livesync"
	"github.com/tbourn/matchday-live/internal/matchclock"
	"github.com/tbourn/matchday-live/internal/services"
)

//
// Service contracts (context-aware)
//

// TimerService drives and reads the match clock.
type TimerService interface {
	// Get returns the persisted timer of a match (the default state when the
	// clock never started).
	Get(ctx context.Context, matchID string) (*domain.MatchTimerSettings, error)
	// Apply performs a clock transition.
	Apply(ctx context.Context, matchID string, t matchclock.Transition, extra int) (*domain.MatchTimerSettings, error)
	// SetExtraTime corrects the announced stoppage of the current half.
	SetExtraTime(ctx context.Context, matchID string, minutes int) (*domain.MatchTimerSettings, error)
	// Watch streams snapshots until ctx ends or fn fails.
	Watch(ctx context.Context, matchID string, every time.Duration, fn func(matchclock.Snapshot) error) error
}

// AutomationService manages per-match sync settings.
type AutomationService interface {
	Get(ctx context.Context, matchID string) (*domain.MatchAutomationSettings, error)
	Configure(ctx context.Context, matchID string, cfg services.AutomationConfig) (*domain.MatchAutomationSettings, error)
}

// LiveBlogService lists and appends live-blog entries.
type LiveBlogService interface {
	ListPage(ctx context.Context, matchID string, page, pageSize int) ([]domain.LiveBlogEntry, int64, error)
	// Stats returns the entry count and newest creation time for ETags.
	Stats(ctx context.Context, matchID string) (int64, *time.Time, error)
	Post(ctx context.Context, matchID string, in services.NewEntry) (*domain.LiveBlogEntry, error)
}

// MatchService assembles the combined live view.
type MatchService interface {
	Live(ctx context.Context, matchID string, limit int) (*services.LiveView, error)
}

// IdempotencyStore persists responses of requests that carried an
// Idempotency-Key.
type IdempotencyStore interface {
	Lookup(ctx context.Context, scope, key string, now time.Time) (*domain.Idempotency, error)
	Save(ctx context.Context, scope, key string, status int, body []byte, now time.Time, ttl time.Duration) error
}

//
// Handler wiring
//

// Deps carries everything the handlers need. Idempotency may be nil, which
// disables response replay.
type Deps struct {
	Timers         TimerService
	Automation     AutomationService
	LiveBlog       LiveBlogService
	Matches        MatchService
	Sync           livesync.Runner
	Idempotency    IdempotencyStore
	Clock          clockwork.Clock
	StreamInterval time.Duration
	IdempotencyTTL time.Duration
}

// Handlers groups the HTTP endpoints.
type Handlers struct {
	timers     TimerService
	automation AutomationService
	liveBlog   LiveBlogService
	matches    MatchService
	sync       livesync.Runner
	idem       IdempotencyStore
	clock      clockwork.Clock
	streamTick time.Duration
	idemTTL    time.Duration
}

// New constructs Handlers from d, filling in defaults for the clock (real),
// stream interval (1s) and idempotency TTL (24h).
func New(d Deps) *Handlers {
	h := &Handlers{
		timers:     d.Timers,
		automation: d.Automation,
		liveBlog:   d.LiveBlog,
		matches:    d.Matches,
		sync:       d.Sync,
		idem:       d.Idempotency,
		clock:      d.Clock,
		streamTick: d.StreamInterval,
		idemTTL:    d.IdempotencyTTL,
	}
	if h.clock == nil {
		h.clock = clockwork.NewRealClock()
	}
	if h.streamTick <= 0 {
		h.streamTick = time.Second
	}
	if h.idemTTL <= 0 {
		h.idemTTL = 24 * time.Hour
	}
	return h
}

// matchID reads and validates the :id path parameter, writing a 400 when it
// is not a UUID.
func matchID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "match id must be a UUID")
		return "", false
	}
	return id, true
}
