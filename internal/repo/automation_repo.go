package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/matchday-live/internal/domain"
)

// automationConfigColumns are the operator-controlled columns. The sync
// cursor columns are deliberately absent so reconfiguring never rewinds it.
var automationConfigColumns = []string{
	"automation_enabled",
	"api_fixture_id",
	"auto_timer",
	"auto_live_blog",
	"auto_score",
	"updated_at",
}

// GetAutomationSettings returns the automation record for matchID or ErrNotFound.
func GetAutomationSettings(ctx context.Context, db *gorm.DB, matchID string) (*domain.MatchAutomationSettings, error) {
	var s domain.MatchAutomationSettings
	if err := db.WithContext(ctx).Where("match_id = ?", matchID).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// LockAutomationSettings reads the automation record for matchID inside a
// transaction, taking a row lock where the dialect supports it.
func LockAutomationSettings(ctx context.Context, tx *gorm.DB, matchID string) (*domain.MatchAutomationSettings, error) {
	var s domain.MatchAutomationSettings
	if err := forUpdate(tx.WithContext(ctx)).Where("match_id = ?", matchID).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// ListSyncableAutomation returns the records the sync engine should visit:
// automation enabled and a fixture id configured. A non-empty matchID
// narrows the result to that match.
func ListSyncableAutomation(ctx context.Context, db *gorm.DB, matchID string) ([]domain.MatchAutomationSettings, error) {
	q := db.WithContext(ctx).
		Where("automation_enabled = ? AND api_fixture_id IS NOT NULL", true)
	if matchID != "" {
		q = q.Where("match_id = ?", matchID)
	}
	var out []domain.MatchAutomationSettings
	err := q.Order("match_id").Find(&out).Error
	return out, err
}

// UpsertAutomationConfig inserts or updates the operator flags and fixture id
// of s.MatchID, leaving the sync cursor untouched, and returns the stored row.
func UpsertAutomationConfig(ctx context.Context, db *gorm.DB, s *domain.MatchAutomationSettings) (*domain.MatchAutomationSettings, error) {
	rec := *s
	rec.ID = uuid.NewString()
	now := time.Now().UTC()
	rec.CreatedAt, rec.UpdatedAt = now, now
	err := db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "match_id"}},
			DoUpdates: clause.AssignmentColumns(automationConfigColumns),
		}).
		Create(&rec).Error
	if err != nil {
		return nil, err
	}
	return GetAutomationSettings(ctx, db, s.MatchID)
}

// SaveSyncCursor records the outcome of a successful sync pass: the status
// just observed, the full set of processed event hashes and the sync time.
func SaveSyncCursor(ctx context.Context, db *gorm.DB, matchID, status string, synced []string, at time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.MatchAutomationSettings{}).
		Where("match_id = ?", matchID).
		Updates(map[string]any{
			"last_known_status": status,
			"events_synced":     datatypes.JSONSlice[string](synced),
			"last_api_sync":     at,
			"updated_at":        at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendSyncError pushes e onto the bounded error ring of matchID.
func AppendSyncError(ctx context.Context, db *gorm.DB, matchID string, e domain.SyncError, limit int) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		s, err := LockAutomationSettings(ctx, tx, matchID)
		if err != nil {
			return err
		}
		ring := domain.PushSyncError(s.SyncErrors, e, limit)
		return tx.Model(&domain.MatchAutomationSettings{}).
			Where("match_id = ?", matchID).
			Updates(map[string]any{
				"sync_errors": datatypes.JSONSlice[domain.SyncError](ring),
				"updated_at":  time.Now().UTC(),
			}).Error
	})
}
