package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/matchday-live/internal/domain"
)

// insertBatchSize bounds the rows per INSERT statement.
const insertBatchSize = 100

// InsertLiveBlogEntries writes entries in batched INSERT statements. Missing
// IDs and timestamps are filled in place so callers can publish the stored
// rows afterwards. An empty slice is a no-op.
func InsertLiveBlogEntries(ctx context.Context, db *gorm.DB, entries []domain.LiveBlogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range entries {
		if entries[i].ID == "" {
			entries[i].ID = uuid.NewString()
		}
		if entries[i].CreatedAt.IsZero() {
			entries[i].CreatedAt = now
		}
	}
	return db.WithContext(ctx).
		Omit(clause.Associations).
		CreateInBatches(&entries, insertBatchSize).Error
}

// ListLiveBlogEntriesPage returns a page of entries for matchID, newest first.
// Entries written in the same batch share a timestamp and are ordered by
// minute, latest first.
func ListLiveBlogEntriesPage(ctx context.Context, db *gorm.DB, matchID string, offset, limit int) ([]domain.LiveBlogEntry, error) {
	var out []domain.LiveBlogEntry
	err := db.WithContext(ctx).
		Where("match_id = ?", matchID).
		Order("created_at desc").
		Order("COALESCE(minute, -1) desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountLiveBlogEntries returns the number of entries for matchID.
func CountLiveBlogEntries(ctx context.Context, db *gorm.DB, matchID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.LiveBlogEntry{}).
		Where("match_id = ?", matchID).
		Count(&total).Error
	return total, err
}

// CountLiveBlogEntriesByType returns the number of entries of entryType for matchID.
func CountLiveBlogEntriesByType(ctx context.Context, db *gorm.DB, matchID, entryType string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.LiveBlogEntry{}).
		Where("match_id = ? AND entry_type = ?", matchID, entryType).
		Count(&total).Error
	return total, err
}
