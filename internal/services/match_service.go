package services

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"

	"github.com/tbourn/matchday-live/internal/domain"
	"github.com/tbourn/matchday-live/internal/matchclock"
	"github.com/tbourn/matchday-live/internal/repo"
)

// LiveView is everything a fan page needs in one response.
type LiveView struct {
	Match   *domain.Match          `json:"match"`
	Timer   matchclock.Snapshot    `json:"timer"`
	Entries []domain.LiveBlogEntry `json:"entries"`
}

// MatchService assembles the combined live view of a match.
type MatchService struct {
	DB    *gorm.DB
	Clock clockwork.Clock
}

// Live returns the match, its clock and the latest entries (at most limit,
// 10 when limit is not positive).
func (s *MatchService) Live(ctx context.Context, matchID string, limit int) (*LiveView, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	m, err := repo.GetMatch(ctx, s.DB, matchID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}

	timer, err := repo.GetTimerSettings(ctx, s.DB, matchID)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	entries, err := repo.ListLiveBlogEntriesPage(ctx, s.DB, matchID, 0, limit)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []domain.LiveBlogEntry{}
	}

	now := time.Now()
	if s.Clock != nil {
		now = s.Clock.Now()
	}
	return &LiveView{Match: m, Timer: matchclock.TakeSnapshot(matchID, timer, now), Entries: entries}, nil
}
