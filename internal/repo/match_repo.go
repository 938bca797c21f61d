// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Match model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only
// persistence and query composition.
//
// Error semantics:
//   - When a match is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// Functions:
//
//   - CreateMatch(ctx, db, m) -> error
//     Inserts a match, generating a UUID when ID is empty.
//
//   - GetMatch(ctx, db, id) -> *domain.Match, error
//     Fetches a single match, or ErrNotFound if missing.
//
//   - UpdateMatchScore(ctx, db, id, home, away) -> error
//     Overwrites both score columns.
//
//   - UpdateMatchStatus(ctx, db, id, status) -> error
//     Sets the coarse lifecycle status.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/matchday-live/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateMatch inserts m. An empty ID is replaced by a random UUID and an
// empty status defaults to upcoming.
func CreateMatch(ctx context.Context, db *gorm.DB, m *domain.Match) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Status == "" {
		m.Status = domain.MatchUpcoming
	}
	return db.WithContext(ctx).Omit(clause.Associations).Create(m).Error
}

// GetMatch fetches a single match by ID. If the record does not exist, it
// returns ErrNotFound.
func GetMatch(ctx context.Context, db *gorm.DB, id string) (*domain.Match, error) {
	var m domain.Match
	if err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// UpdateMatchScore overwrites the score of match id. It returns ErrNotFound
// when no row matches.
func UpdateMatchScore(ctx context.Context, db *gorm.DB, id string, home, away int) error {
	return updateMatch(ctx, db, id, map[string]any{
		"home_score": home,
		"away_score": away,
	})
}

// UpdateMatchStatus sets the coarse lifecycle status of match id.
func UpdateMatchStatus(ctx context.Context, db *gorm.DB, id, status string) error {
	return updateMatch(ctx, db, id, map[string]any{"status": status})
}

func updateMatch(ctx context.Context, db *gorm.DB, id string, cols map[string]any) error {
	cols["updated_at"] = time.Now().UTC()
	res := db.WithContext(ctx).
		Model(&domain.Match{}).
		Where("id = ?", id).
		Updates(cols)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
