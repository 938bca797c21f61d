// Package services – LiveBlogService
//
// LiveBlogService reads the append-only live blog of a match and lets
// editors post manual entries next to the ones written by the sync engine.
package services

import (
	"context"
	"errors"
	"strings"
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

const (
	defaultPageSize = 20
	maxPageSize     = 100
	maxTitleRunes   = 255
)

// NewEntry is a manual live-blog post.
type NewEntry struct {
	Minute      *int
	EntryType   string
	Title       string
	Content     string
	IsImportant bool
	TeamSide    *string
}

// LiveBlogService lists and appends live-blog entries.
type LiveBlogService struct {
	DB        *gorm.DB
	Clock     clockwork.Clock
	Publisher broadcast.Publisher
}

func (s *LiveBlogService) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock.Now()
}

// ListPage returns a page of entries, newest first, and the total count.
// Invalid page values fall back to the first page of 20.
func (s *LiveBlogService) ListPage(ctx context.Context, matchID string, page, pageSize int) ([]domain.LiveBlogEntry, int64, error) {
	tr := otel.Tracer("services/LiveBlogService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("match.id", matchID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	if err := requireMatch(ctx, s.DB, matchID); err != nil {
		return nil, 0, err
	}

	total, err := repo.CountLiveBlogEntries(ctx, s.DB, matchID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.LiveBlogEntry{}, 0, nil
	}
	items, err := repo.ListLiveBlogEntriesPage(ctx, s.DB, matchID, (page-1)*pageSize, pageSize)
	return items, total, err
}

// Stats returns the entry count and newest creation time, used for ETags.
func (s *LiveBlogService) Stats(ctx context.Context, matchID string) (int64, *time.Time, error) {
	return repo.LiveBlogStats(ctx, s.DB, matchID)
}

// Post validates and stores a manual entry. Without an explicit minute the
// current minute of the match clock is used once the clock has started.
func (s *LiveBlogService) Post(ctx context.Context, matchID string, in NewEntry) (*domain.LiveBlogEntry, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, ErrEmptyTitle
	}
	if r := []rune(title); len(r) > maxTitleRunes {
		title = string(r[:maxTitleRunes])
	}
	if in.Minute != nil && *in.Minute < 0 {
		return nil, ErrInvalidMinute
	}
	if in.TeamSide != nil && *in.TeamSide != domain.SideHome && *in.TeamSide != domain.SideAway {
		return nil, ErrInvalidTeamSide
	}
	entryType := strings.ToLower(strings.TrimSpace(in.EntryType))
	if entryType == "" {
		entryType = domain.EntryUpdate
	}

	entry := domain.LiveBlogEntry{
		MatchID:     matchID,
		Minute:      in.Minute,
		EntryType:   entryType,
		Title:       title,
		Content:     strings.TrimSpace(in.Content),
		IsImportant: in.IsImportant,
		TeamSide:    in.TeamSide,
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireMatch(ctx, tx, matchID); err != nil {
			return err
		}
		now := s.now().UTC()
		if entry.Minute == nil {
			timer, err := repo.GetTimerSettings(ctx, tx, matchID)
			switch {
			case err == nil && timer.TimerStartedAt != nil:
				m := matchclock.NumericMinute(timer, now)
				entry.Minute = &m
			case err != nil && !errors.Is(err, repo.ErrNotFound):
				return err
			}
		}
		entry.CreatedAt = now
		entries := []domain.LiveBlogEntry{entry}
		if err := repo.InsertLiveBlogEntries(ctx, tx, entries); err != nil {
			return err
		}
		entry = entries[0]
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.Publisher != nil {
		if perr := s.Publisher.PublishEntries(ctx, matchID, []domain.LiveBlogEntry{entry}); perr != nil {
			log.Warn().Err(perr).Str("match_id", matchID).Msg("publish live-blog entry")
		}
	}
	return &entry, nil
}

func requireMatch(ctx context.Context, db *gorm.DB, matchID string) error {
	if _, err := repo.GetMatch(ctx, db, matchID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrMatchNotFound
		}
		return err
	}
	return nil
}
