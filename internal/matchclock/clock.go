// Package matchclock holds the pure timer logic of a match: the period
// transitions applied to a persisted domain.MatchTimerSettings record and the
// derivation of the displayed minute from it. Nothing here touches storage
// or reads the wall clock; callers pass the current time in.
package matchclock

import (
	"errors"
	"time"

	"github.com/tbourn/matchday-live/internal/domain"
)

// Half identifies a period of play.
type Half int

// Periods of play. Extra-time periods are numbered after the regular halves.
const (
	FirstHalf       Half = 1
	SecondHalf      Half = 2
	ExtraTimeFirst  Half = 3
	ExtraTimeSecond Half = 4
)

// Nominal minute at which each period ends, and the stoppage cap used when no
// stoppage has been announced.
const (
	firstHalfEnd       = 45
	secondHalfEnd      = 90
	extraTimeFirstEnd  = 105
	extraTimeSecondEnd = 120

	regularPeriod   = 45
	extraPeriod     = 15
	defaultStoppage = 10
	extraStoppage   = 5
)

// Transition is a timer operation.
type Transition int

// Timer operations.
const (
	StartFirstHalf Transition = iota + 1
	EndFirstHalf
	StartSecondHalf
	EndMatch
	StartExtraTime1
	EndExtraTime1
	StartExtraTime2
	EndExtraTime2
)

var transitionNames = map[Transition]string{
	StartFirstHalf:  "start-first-half",
	EndFirstHalf:    "end-first-half",
	StartSecondHalf: "start-second-half",
	EndMatch:        "end-match",
	StartExtraTime1: "start-extra-time-1",
	EndExtraTime1:   "end-extra-time-1",
	StartExtraTime2: "start-extra-time-2",
	EndExtraTime2:   "end-extra-time-2",
}

// String returns the kebab-case name used by the HTTP API.
func (t Transition) String() string {
	if n, ok := transitionNames[t]; ok {
		return n
	}
	return "unknown"
}

// ParseTransition resolves a kebab-case name to a Transition.
func ParseTransition(name string) (Transition, bool) {
	for t, n := range transitionNames {
		if n == name {
			return t, true
		}
	}
	return 0, false
}

var (
	// ErrHalfRegression is returned when a start operation would move the
	// clock to an earlier period than the one already under way.
	ErrHalfRegression = errors.New("period cannot move backwards")
	// ErrNegativeExtraTime is returned for negative stoppage minutes.
	ErrNegativeExtraTime = errors.New("extra time must be >= 0")
	// ErrNoStoppageField is returned by SetExtraTime during extra-time periods,
	// which carry no stored stoppage value.
	ErrNoStoppageField = errors.New("current period has no stoppage field")
	// ErrUnknownTransition is returned by Apply for an unrecognised operation.
	ErrUnknownTransition = errors.New("unknown timer transition")
)

// New returns the default state of a match whose clock has never started.
func New(matchID string) *domain.MatchTimerSettings {
	return &domain.MatchTimerSettings{MatchID: matchID, CurrentHalf: int(FirstHalf)}
}

// Apply performs t on s at time now. extra is the announced stoppage for the
// End* operations and is ignored otherwise.
func Apply(s *domain.MatchTimerSettings, t Transition, now time.Time, extra int) error {
	if extra < 0 {
		return ErrNegativeExtraTime
	}
	switch t {
	case StartFirstHalf:
		startFirstHalf(s, now)
	case EndFirstHalf:
		stop(s, firstHalfEnd+extra)
		s.FirstHalfExtraTime = extra
	case StartSecondHalf:
		return startPeriod(s, SecondHalf, now)
	case EndMatch:
		stop(s, secondHalfEnd+extra)
		s.SecondHalfExtraTime = extra
	case StartExtraTime1:
		return startPeriod(s, ExtraTimeFirst, now)
	case EndExtraTime1:
		stop(s, extraTimeFirstEnd+extra)
	case StartExtraTime2:
		return startPeriod(s, ExtraTimeSecond, now)
	case EndExtraTime2:
		stop(s, extraTimeSecondEnd+extra)
	default:
		return ErrUnknownTransition
	}
	return nil
}

func startFirstHalf(s *domain.MatchTimerSettings, now time.Time) {
	at := now.UTC()
	s.TimerStartedAt = &at
	s.HalfStartedAt = &at
	s.CurrentHalf = int(FirstHalf)
	s.IsTimerRunning = true
	s.IsPaused = false
	s.FirstHalfExtraTime = 0
	s.SecondHalfExtraTime = 0
	s.IsExtraTime = false
	s.PausedAtMinute = 0
}

func startPeriod(s *domain.MatchTimerSettings, h Half, now time.Time) error {
	if s.TimerStartedAt != nil && Half(s.CurrentHalf) > h {
		return ErrHalfRegression
	}
	at := now.UTC()
	if s.TimerStartedAt == nil {
		s.TimerStartedAt = &at
	}
	s.HalfStartedAt = &at
	s.CurrentHalf = int(h)
	s.IsTimerRunning = true
	s.IsPaused = false
	s.IsExtraTime = h >= ExtraTimeFirst
	return nil
}

func stop(s *domain.MatchTimerSettings, minute int) {
	s.IsTimerRunning = false
	s.IsPaused = true
	s.PausedAtMinute = minute
}

// SetExtraTime corrects the announced stoppage of the current regular half.
// While paused at the end of that half the frozen minute follows.
func SetExtraTime(s *domain.MatchTimerSettings, minutes int) error {
	if minutes < 0 {
		return ErrNegativeExtraTime
	}
	switch Half(s.CurrentHalf) {
	case FirstHalf:
		s.FirstHalfExtraTime = minutes
		if s.IsPaused {
			s.PausedAtMinute = firstHalfEnd + minutes
		}
	case SecondHalf:
		s.SecondHalfExtraTime = minutes
		if s.IsPaused {
			s.PausedAtMinute = secondHalfEnd + minutes
		}
	default:
		return ErrNoStoppageField
	}
	return nil
}
