package livesync

import (
	"fmt"

	"github.com/tbourn/matchday-live/internal/domain"
	"github.com/tbourn/matchday-live/internal/feed"
)

func minute(m int) *int { return &m }

func scoreLine(fx *feed.Fixture, m *domain.Match) string {
	home, away := m.HomeScore, m.AwayScore
	if fx.Goals.Home != nil || fx.Goals.Away != nil {
		home, away = deref(fx.Goals.Home), deref(fx.Goals.Away)
	}
	return fmt.Sprintf("%s %d-%d %s", m.HomeTeam, home, away, m.AwayTeam)
}

// transitionDraft is the live-blog entry announcing a status change, or nil
// for actions that have none. code is the new feed status code.
func transitionDraft(a Action, code string, fx *feed.Fixture, m *domain.Match) *Draft {
	switch a {
	case ActionStartFirstHalf:
		return &Draft{
			Minute:      minute(0),
			EntryType:   domain.EntryKickoff,
			Title:       "Kick-off!",
			Content:     fmt.Sprintf("%s v %s is under way.", m.HomeTeam, m.AwayTeam),
			IsImportant: true,
		}
	case ActionEndFirstHalf:
		return &Draft{
			Minute:      minute(45),
			EntryType:   domain.EntryHalftime,
			Title:       "Half-time",
			Content:     "Half-time: " + scoreLine(fx, m) + ".",
			IsImportant: true,
		}
	case ActionStartSecondHalf:
		return &Draft{
			Minute:    minute(46),
			EntryType: domain.EntryKickoff,
			Title:     "Second half under way",
			Content:   "The second half has started.",
		}
	case ActionStartExtraTime1:
		return &Draft{
			Minute:      minute(91),
			EntryType:   domain.EntryKickoff,
			Title:       "Extra time",
			Content:     "Level after 90 minutes: " + scoreLine(fx, m) + ". Extra time begins.",
			IsImportant: true,
		}
	case ActionEndExtraTime1:
		return &Draft{
			Minute:    minute(105),
			EntryType: domain.EntryHalftime,
			Title:     "Extra-time break",
			Content:   "End of the first period of extra time: " + scoreLine(fx, m) + ".",
		}
	case ActionStartExtraTime2:
		return &Draft{
			Minute:    minute(106),
			EntryType: domain.EntryKickoff,
			Title:     "Second period of extra time",
			Content:   "The second period of extra time is under way.",
		}
	case ActionPenalties:
		return &Draft{
			Minute:      minute(120),
			EntryType:   domain.EntryImportant,
			Title:       "Penalty shoot-out",
			Content:     "Still level after extra time: " + scoreLine(fx, m) + ". We go to penalties.",
			IsImportant: true,
		}
	case ActionEndMatch:
		return &Draft{
			Minute:      minute(fulltimeMinute(code, fx.Fixture.Status)),
			EntryType:   domain.EntryFulltime,
			Title:       "Full-time",
			Content:     "Full-time: " + scoreLine(fx, m) + ".",
			IsImportant: true,
		}
	default:
		return nil
	}
}

// fulltimeMinute is the feed's elapsed minute, or the nominal end of the
// match when the feed omits it.
func fulltimeMinute(code string, st feed.Status) int {
	if st.Elapsed != nil && *st.Elapsed > 0 {
		return *st.Elapsed
	}
	if p := ParsePhase(code); p == PhaseAfterExtraTime || p == PhaseAfterPenalties {
		return 120
	}
	return 90
}
