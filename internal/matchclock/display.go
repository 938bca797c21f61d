package matchclock

import (
	"strconv"
	"time"

	"github.com/tbourn/matchday-live/internal/domain"
)

// Snapshot is the derived, read-only view of a timer at one instant.
type Snapshot struct {
	MatchID   string `json:"match_id"`
	Display   string `json:"display"`
	Minute    int    `json:"minute"`
	Half      int    `json:"half"`
	Running   bool   `json:"running"`
	Paused    bool   `json:"paused"`
	ExtraTime bool   `json:"extra_time"`
}

// TakeSnapshot derives the display and numeric minute of s at now. A nil s
// is treated as a clock that never started.
func TakeSnapshot(matchID string, s *domain.MatchTimerSettings, now time.Time) Snapshot {
	snap := Snapshot{MatchID: matchID, Display: DisplayMinute(s, now), Minute: NumericMinute(s, now), Half: int(FirstHalf)}
	if s != nil {
		snap.Half = s.CurrentHalf
		snap.Running = s.IsTimerRunning
		snap.Paused = s.IsPaused
		snap.ExtraTime = s.IsExtraTime
	}
	return snap
}

// elapsedMinutes returns whole minutes since the current period started,
// never negative.
func elapsedMinutes(s *domain.MatchTimerSettings, now time.Time) int {
	d := now.Sub(*s.HalfStartedAt)
	if d < 0 {
		return 0
	}
	return int(d / time.Minute)
}

func stoppageCap(announced int) int {
	if announced > 0 {
		return announced
	}
	return defaultStoppage
}

func withStoppage(base, added int) string {
	return strconv.Itoa(base) + "'+" + strconv.Itoa(added)
}

// DisplayMinute renders the minute shown to fans: a plain minute such as
// "23", or nominal-plus-stoppage such as "45'+2".
//
// While paused the value is frozen at the end of the current period.
// While running, minutes past the nominal end of a period are shown as
// stoppage, capped at the announced stoppage (10 when none was announced)
// for regular halves and at 5 for extra-time periods.
func DisplayMinute(s *domain.MatchTimerSettings, now time.Time) string {
	if s == nil {
		return "0"
	}
	if s.IsPaused {
		return pausedDisplay(s)
	}
	if !s.IsTimerRunning || s.HalfStartedAt == nil {
		return "0"
	}

	e := elapsedMinutes(s, now)
	switch Half(s.CurrentHalf) {
	case FirstHalf:
		if e > regularPeriod {
			return withStoppage(firstHalfEnd, min(e-regularPeriod, stoppageCap(s.FirstHalfExtraTime)))
		}
		return strconv.Itoa(e)
	case SecondHalf:
		if e > regularPeriod {
			return withStoppage(secondHalfEnd, min(e-regularPeriod, stoppageCap(s.SecondHalfExtraTime)))
		}
		return strconv.Itoa(min(firstHalfEnd+e, secondHalfEnd))
	case ExtraTimeFirst:
		if e > extraPeriod {
			return withStoppage(extraTimeFirstEnd, min(e-extraPeriod, extraStoppage))
		}
		return strconv.Itoa(min(secondHalfEnd+e, extraTimeFirstEnd))
	case ExtraTimeSecond:
		if e > extraPeriod {
			return withStoppage(extraTimeSecondEnd, min(e-extraPeriod, extraStoppage))
		}
		return strconv.Itoa(min(extraTimeFirstEnd+e, extraTimeSecondEnd))
	default:
		return "0"
	}
}

func pausedDisplay(s *domain.MatchTimerSettings) string {
	switch Half(s.CurrentHalf) {
	case FirstHalf:
		if s.FirstHalfExtraTime > 0 {
			return withStoppage(firstHalfEnd, s.FirstHalfExtraTime)
		}
		return strconv.Itoa(firstHalfEnd)
	case SecondHalf:
		if s.SecondHalfExtraTime > 0 {
			return withStoppage(secondHalfEnd, s.SecondHalfExtraTime)
		}
		return strconv.Itoa(secondHalfEnd)
	case ExtraTimeFirst:
		return strconv.Itoa(extraTimeFirstEnd)
	case ExtraTimeSecond:
		return strconv.Itoa(extraTimeSecondEnd)
	default:
		return strconv.Itoa(s.PausedAtMinute)
	}
}

// NumericMinute returns the running minute as a plain integer, clamped to the
// end of the current period plus its stoppage cap. Paused clocks report
// PausedAtMinute; clocks that never started report 0.
func NumericMinute(s *domain.MatchTimerSettings, now time.Time) int {
	if s == nil {
		return 0
	}
	if s.IsPaused {
		return s.PausedAtMinute
	}
	if !s.IsTimerRunning || s.HalfStartedAt == nil {
		return 0
	}
	e := elapsedMinutes(s, now)
	switch Half(s.CurrentHalf) {
	case FirstHalf:
		return min(e, firstHalfEnd+stoppageCap(s.FirstHalfExtraTime))
	case SecondHalf:
		return min(firstHalfEnd+e, secondHalfEnd+stoppageCap(s.SecondHalfExtraTime))
	case ExtraTimeFirst:
		return min(secondHalfEnd+e, extraTimeFirstEnd+extraStoppage)
	case ExtraTimeSecond:
		return min(extraTimeFirstEnd+e, extraTimeSecondEnd+extraStoppage)
	default:
		return 0
	}
}
