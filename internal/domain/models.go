// Package domain defines the persistence models for matches, their live
// timers, sync automation settings and live-blog entries. These types are
// mapped with GORM and form the core data layer of the matchday service.
package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Coarse match lifecycle values stored in Match.Status.
const (
	MatchUpcoming = "upcoming"
	MatchLive     = "live"
	MatchFinished = "finished"
)

// Live-blog entry types written by the sync engine. The set is open; admins
// may post other values.
const (
	EntryKickoff    = "kickoff"
	EntryHalftime   = "halftime"
	EntryFulltime   = "fulltime"
	EntryGoal       = "goal"
	EntryYellowCard = "yellow_card"
	EntryRedCard    = "red_card"
	EntrySubstitute = "substitution"
	EntryVAR        = "var"
	EntryImportant  = "important"
	EntryUpdate     = "update"
)

// Team sides for LiveBlogEntry.TeamSide.
const (
	SideHome = "home"
	SideAway = "away"
)

// Match is a fixture played by the club. Only the fields the live engine
// reads or writes are modelled here.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - HomeTeam / AwayTeam: display names used in generated entries.
//   - Status: upcoming, live or finished (enforced by DB constraint).
//   - HomeScore / AwayScore: current score, overwritten from the feed when
//     auto-score is enabled.
type Match struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	HomeTeam  string    `json:"home_team"  gorm:"type:varchar(128);not null"`
	AwayTeam  string    `json:"away_team"  gorm:"type:varchar(128);not null"`
	KickoffAt time.Time `json:"kickoff_at" gorm:"index"`
	Status    string    `json:"status"     gorm:"type:varchar(16);not null;default:'upcoming';check:status IN ('upcoming','live','finished')"`
	HomeScore int       `json:"home_score" gorm:"not null;default:0"`
	AwayScore int       `json:"away_score" gorm:"not null;default:0"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Match.
func (Match) TableName() string { return "matches" }

// MatchTimerSettings is the persisted clock of a single match. The displayed
// minute is never stored; it is derived from HalfStartedAt and the current
// time, or from PausedAtMinute while the clock is stopped.
//
// Fields:
//   - MatchID: owning match, at most one record per match.
//   - TimerStartedAt: wall time of the first kick-off.
//   - HalfStartedAt: wall time the current period began.
//   - IsTimerRunning / IsPaused: never both true.
//   - CurrentHalf: 1, 2, 3 (first period of extra time) or 4.
//   - FirstHalfExtraTime / SecondHalfExtraTime: announced stoppage minutes.
//   - PausedAtMinute: frozen display minute while paused.
type MatchTimerSettings struct {
	ID                  string     `json:"id"                     gorm:"type:char(36);primaryKey"`
	MatchID             string     `json:"match_id"               gorm:"type:char(36);not null;uniqueIndex:ux_timer_match"`
	TimerStartedAt      *time.Time `json:"timer_started_at"`
	HalfStartedAt       *time.Time `json:"half_started_at"`
	IsTimerRunning      bool       `json:"is_timer_running"       gorm:"not null"`
	IsPaused            bool       `json:"is_paused"              gorm:"not null"`
	CurrentHalf         int        `json:"current_half"           gorm:"not null;default:1;check:current_half BETWEEN 1 AND 4"`
	FirstHalfExtraTime  int        `json:"first_half_extra_time"  gorm:"not null;default:0"`
	SecondHalfExtraTime int        `json:"second_half_extra_time" gorm:"not null;default:0"`
	IsExtraTime         bool       `json:"is_extra_time"          gorm:"not null"`
	PausedAtMinute      int        `json:"paused_at_minute"       gorm:"not null;default:0"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`

	Match Match `json:"-" gorm:"foreignKey:MatchID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for MatchTimerSettings.
func (MatchTimerSettings) TableName() string { return "match_timer_settings" }

// SyncError is one entry of the bounded per-match failure log.
type SyncError struct {
	At    time.Time `json:"at"`
	Error string    `json:"error"`
}

// MatchAutomationSettings binds a match to an external fixture and carries
// the sync cursor: the last status seen and every event hash already turned
// into a live-blog entry.
type MatchAutomationSettings struct {
	ID                string                         `json:"id"                 gorm:"type:char(36);primaryKey"`
	MatchID           string                         `json:"match_id"           gorm:"type:char(36);not null;uniqueIndex:ux_automation_match"`
	AutomationEnabled bool                           `json:"automation_enabled" gorm:"not null;index"`
	APIFixtureID      *int64                         `json:"api_fixture_id"`
	AutoTimer         bool                           `json:"auto_timer"         gorm:"not null"`
	AutoLiveBlog      bool                           `json:"auto_live_blog"     gorm:"not null"`
	AutoScore         bool                           `json:"auto_score"         gorm:"not null"`
	EventsSynced      datatypes.JSONSlice[string]    `json:"events_synced"`
	LastKnownStatus   string                         `json:"last_known_status"  gorm:"type:varchar(8);not null;default:''"`
	SyncErrors        datatypes.JSONSlice[SyncError] `json:"sync_errors"`
	LastAPISync       *time.Time                     `json:"last_api_sync"`
	CreatedAt         time.Time                      `json:"created_at"`
	UpdatedAt         time.Time                      `json:"updated_at"`

	Match Match `json:"-" gorm:"foreignKey:MatchID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for MatchAutomationSettings.
func (MatchAutomationSettings) TableName() string { return "match_automation_settings" }

// HasSynced reports whether the event hash is already in the cursor.
func (s *MatchAutomationSettings) HasSynced(hash string) bool {
	for _, h := range s.EventsSynced {
		if h == hash {
			return true
		}
	}
	return false
}

// PushSyncError appends e to ring and drops the oldest entries so that at
// most limit remain. A non-positive limit keeps only e.
func PushSyncError(ring []SyncError, e SyncError, limit int) []SyncError {
	if limit < 1 {
		limit = 1
	}
	out := append(append([]SyncError(nil), ring...), e)
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// LiveBlogEntry is one item in a match's minute-by-minute feed.
type LiveBlogEntry struct {
	ID          string    `json:"id"           gorm:"type:char(36);primaryKey"`
	MatchID     string    `json:"match_id"     gorm:"type:char(36);not null;index:idx_match_entries,priority:1"`
	Minute      *int      `json:"minute,omitempty"`
	EntryType   string    `json:"entry_type"   gorm:"type:varchar(32);not null"`
	Title       string    `json:"title"        gorm:"type:varchar(255);not null"`
	Content     string    `json:"content"      gorm:"type:text;not null"`
	IsImportant bool      `json:"is_important" gorm:"not null"`
	TeamSide    *string   `json:"team_side,omitempty" gorm:"type:varchar(8)"`
	CreatedAt   time.Time `json:"created_at"   gorm:"index:idx_match_entries,priority:2"`

	Match Match `json:"-" gorm:"foreignKey:MatchID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for LiveBlogEntry.
func (LiveBlogEntry) TableName() string { return "live_blog_entries" }
