package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/matchday-live/internal/domain"
)

// timerColumns are the mutable columns of match_timer_settings.
var timerColumns = []string{
	"timer_started_at",
	"half_started_at",
	"is_timer_running",
	"is_paused",
	"current_half",
	"first_half_extra_time",
	"second_half_extra_time",
	"is_extra_time",
	"paused_at_minute",
	"updated_at",
}

// GetTimerSettings returns the timer record for matchID or ErrNotFound.
func GetTimerSettings(ctx context.Context, db *gorm.DB, matchID string) (*domain.MatchTimerSettings, error) {
	var s domain.MatchTimerSettings
	if err := db.WithContext(ctx).Where("match_id = ?", matchID).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// SaveTimerSettings persists s. A record loaded from the database (non-empty
// ID) is updated in place; a new record is inserted as an upsert keyed by
// match_id so concurrent first writes converge on a single row.
func SaveTimerSettings(ctx context.Context, db *gorm.DB, s *domain.MatchTimerSettings) error {
	q := db.WithContext(ctx).Omit(clause.Associations)
	if s.ID != "" {
		return q.Save(s).Error
	}
	s.ID = uuid.NewString()
	return q.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "match_id"}},
		DoUpdates: clause.AssignmentColumns(timerColumns),
	}).Create(s).Error
}
