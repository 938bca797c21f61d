package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tbourn/matchday-live/internal/domain"
	"github.com/tbourn/matchday-live/internal/repo"
)

// AutomationConfig is the operator-controlled part of a match's automation
// record.
type AutomationConfig struct {
	Enabled      bool
	FixtureID    *int64
	AutoTimer    bool
	AutoLiveBlog bool
	AutoScore    bool
}

// AutomationService manages per-match sync settings. The sync cursor itself
// is owned by the sync engine and is never modified here.
type AutomationService struct {
	DB *gorm.DB
}

// Get returns the automation record of matchID.
func (s *AutomationService) Get(ctx context.Context, matchID string) (*domain.MatchAutomationSettings, error) {
	if err := s.requireMatch(ctx, matchID); err != nil {
		return nil, err
	}
	a, err := repo.GetAutomationSettings(ctx, s.DB, matchID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrAutomationNotFound
	}
	return a, err
}

// Configure creates or updates the automation flags and fixture binding of
// matchID. Events already synced and the last known status are preserved.
func (s *AutomationService) Configure(ctx context.Context, matchID string, cfg AutomationConfig) (*domain.MatchAutomationSettings, error) {
	if cfg.FixtureID != nil && *cfg.FixtureID <= 0 {
		return nil, ErrInvalidFixtureID
	}
	if err := s.requireMatch(ctx, matchID); err != nil {
		return nil, err
	}
	return repo.UpsertAutomationConfig(ctx, s.DB, &domain.MatchAutomationSettings{
		MatchID:           matchID,
		AutomationEnabled: cfg.Enabled,
		APIFixtureID:      cfg.FixtureID,
		AutoTimer:         cfg.AutoTimer,
		AutoLiveBlog:      cfg.AutoLiveBlog,
		AutoScore:         cfg.AutoScore,
	})
}

func (s *AutomationService) requireMatch(ctx context.Context, matchID string) error {
	if _, err := repo.GetMatch(ctx, s.DB, matchID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrMatchNotFound
		}
		return err
	}
	return nil
}
