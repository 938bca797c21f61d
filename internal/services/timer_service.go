// Package services – TimerService
//
// TimerService owns the persisted match clock. Every write is a
// read-modify-write of the single timer record of a match inside one
// transaction; the minute shown to fans is never stored and is derived on
// read from the record and the service clock.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/matchday-live/internal/broadcast"
	"github.com/tbourn/matchday-live/internal/domain"
	"github.com/tbourn/matchday-live/internal/matchclock"
	"github.com/tbourn/matchday-live/internal/repo"
)

// TimerRepo defines the repository contract required by TimerService.
type TimerRepo interface {
	// GetMatch fetches a match by id.
	GetMatch(ctx context.Context, db *gorm.DB, id string) (*domain.Match, error)

	// GetTimerSettings fetches the timer record of a match.
	GetTimerSettings(ctx context.Context, db *gorm.DB, matchID string) (*domain.MatchTimerSettings, error)

	// SaveTimerSettings upserts a timer record.
	SaveTimerSettings(ctx context.Context, db *gorm.DB, s *domain.MatchTimerSettings) error
}

// TimerService applies clock transitions and derives the displayed minute.
type TimerService struct {
	DB        *gorm.DB
	Repo      TimerRepo
	Clock     clockwork.Clock
	Publisher broadcast.Publisher
}

// NewTimerService constructs a TimerService. A nil clock means the real
// clock and a nil publisher disables fan-out.
func NewTimerService(db *gorm.DB, r TimerRepo, clock clockwork.Clock, pub broadcast.Publisher) *TimerService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if pub == nil {
		pub = broadcast.Noop{}
	}
	return &TimerService{DB: db, Repo: r, Clock: clock, Publisher: pub}
}

// Get returns the timer of matchID. A match whose clock never started yields
// the default state rather than an error.
func (s *TimerService) Get(ctx context.Context, matchID string) (*domain.MatchTimerSettings, error) {
	return s.load(ctx, s.DB, matchID)
}

func (s *TimerService) load(ctx context.Context, db *gorm.DB, matchID string) (*domain.MatchTimerSettings, error) {
	if _, err := s.Repo.GetMatch(ctx, db, matchID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	t, err := s.Repo.GetTimerSettings(ctx, db, matchID)
	if errors.Is(err, repo.ErrNotFound) {
		return matchclock.New(matchID), nil
	}
	return t, err
}

// Snapshot returns the derived view of the clock at the current time.
func (s *TimerService) Snapshot(ctx context.Context, matchID string) (matchclock.Snapshot, error) {
	t, err := s.Get(ctx, matchID)
	if err != nil {
		return matchclock.Snapshot{}, err
	}
	return matchclock.TakeSnapshot(matchID, t, s.Clock.Now()), nil
}

// Apply performs transition t on the clock of matchID. extra is the
// announced stoppage for end-of-period transitions.
func (s *TimerService) Apply(ctx context.Context, matchID string, t matchclock.Transition, extra int) (*domain.MatchTimerSettings, error) {
	tr := otel.Tracer("services/TimerService")
	ctx, span := tr.Start(ctx, "Apply",
		trace.WithAttributes(
			attribute.String("match.id", matchID),
			attribute.String("timer.transition", t.String()),
		),
	)
	defer span.End()

	if extra < 0 {
		return nil, ErrInvalidExtraTime
	}
	return s.mutate(ctx, matchID, func(timer *domain.MatchTimerSettings) error {
		return matchclock.Apply(timer, t, s.Clock.Now(), extra)
	})
}

// SetExtraTime corrects the announced stoppage of the current half.
func (s *TimerService) SetExtraTime(ctx context.Context, matchID string, minutes int) (*domain.MatchTimerSettings, error) {
	if minutes < 0 {
		return nil, ErrInvalidExtraTime
	}
	return s.mutate(ctx, matchID, func(timer *domain.MatchTimerSettings) error {
		return matchclock.SetExtraTime(timer, minutes)
	})
}

func (s *TimerService) mutate(ctx context.Context, matchID string, fn func(*domain.MatchTimerSettings) error) (*domain.MatchTimerSettings, error) {
	var out *domain.MatchTimerSettings
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		timer, err := s.load(ctx, tx, matchID)
		if err != nil {
			return err
		}
		if err := fn(timer); err != nil {
			return err
		}
		if err := s.Repo.SaveTimerSettings(ctx, tx, timer); err != nil {
			return err
		}
		out = timer
		return nil
	})
	if err != nil {
		return nil, err
	}
	if perr := s.Publisher.PublishTimer(ctx, matchID, out); perr != nil {
		log.Warn().Err(perr).Str("match_id", matchID).Msg("publish timer")
	}
	return out, nil
}

// Watch calls fn with a fresh snapshot immediately and then once per every
// until ctx ends or fn returns an error. The record is re-read on each tick
// so admin and sync updates show up without a reconnect.
func (s *TimerService) Watch(ctx context.Context, matchID string, every time.Duration, fn func(matchclock.Snapshot) error) error {
	snap, err := s.Snapshot(ctx, matchID)
	if err != nil {
		return err
	}
	if err := fn(snap); err != nil {
		return err
	}

	ticker := s.Clock.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.Chan():
			snap, err := s.Snapshot(ctx, matchID)
			if err != nil {
				return err
			}
			if err := fn(snap); err != nil {
				return err
			}
		}
	}
}
