package livesync

import (
	"strings"

	"github.com/tbourn/matchday-live/internal/domain"
	"github.com/tbourn/matchday-live/internal/matchclock"
)

// Phase is the engine's view of a feed status code.
type Phase int

// Feed phases. PhaseUnknown covers every code the engine has no rule for
// (suspended, abandoned, postponed, ...).
const (
	PhaseUnknown Phase = iota
	PhaseUnscheduled
	PhaseFirstHalf
	PhaseHalfTime
	PhaseSecondHalf
	PhaseExtraTime
	PhaseExtraTimeBreak
	PhasePenalties
	PhaseFullTime
	PhaseAfterExtraTime
	PhaseAfterPenalties
)

var phaseCodes = map[string]Phase{
	"":    PhaseUnscheduled,
	"NS":  PhaseUnscheduled,
	"TBD": PhaseUnscheduled,
	"1H":  PhaseFirstHalf,
	"HT":  PhaseHalfTime,
	"2H":  PhaseSecondHalf,
	"ET":  PhaseExtraTime,
	"BT":  PhaseExtraTimeBreak,
	"P":   PhasePenalties,
	"FT":  PhaseFullTime,
	"AET": PhaseAfterExtraTime,
	"PEN": PhaseAfterPenalties,
}

// ParsePhase maps a feed status code to a Phase. Codes are case-insensitive.
func ParsePhase(code string) Phase {
	if p, ok := phaseCodes[strings.ToUpper(strings.TrimSpace(code))]; ok {
		return p
	}
	return PhaseUnknown
}

// Terminal reports whether the match is over in this phase.
func (p Phase) Terminal() bool {
	return p == PhaseFullTime || p == PhaseAfterExtraTime || p == PhaseAfterPenalties
}

// Action is what a status edge asks the engine to do.
type Action int

// Actions produced by NextAction.
const (
	ActionNone Action = iota
	ActionUnmapped
	ActionStartFirstHalf
	ActionEndFirstHalf
	ActionStartSecondHalf
	ActionStartExtraTime1
	ActionEndExtraTime1
	ActionStartExtraTime2
	ActionPenalties
	ActionEndMatch
)

var actionNames = map[Action]string{
	ActionNone:            "none",
	ActionUnmapped:        "unmapped",
	ActionStartFirstHalf:  "start_first_half",
	ActionEndFirstHalf:    "end_first_half",
	ActionStartSecondHalf: "start_second_half",
	ActionStartExtraTime1: "start_extra_time_1",
	ActionEndExtraTime1:   "end_extra_time_1",
	ActionStartExtraTime2: "start_extra_time_2",
	ActionPenalties:       "penalties",
	ActionEndMatch:        "end_match",
}

func (a Action) String() string {
	if n, ok := actionNames[a]; ok {
		return n
	}
	return "unknown"
}

// NextAction is the transition table. It fires only on a change of status
// code; observing the same code again is always ActionNone.
func NextAction(lastCode, code string) Action {
	if strings.EqualFold(strings.TrimSpace(lastCode), strings.TrimSpace(code)) {
		return ActionNone
	}
	last, next := ParsePhase(lastCode), ParsePhase(code)
	switch next {
	case PhaseUnscheduled:
		return ActionNone
	case PhaseFirstHalf:
		return ActionStartFirstHalf
	case PhaseHalfTime:
		return ActionEndFirstHalf
	case PhaseSecondHalf:
		return ActionStartSecondHalf
	case PhaseExtraTime:
		if last == PhaseExtraTimeBreak {
			return ActionStartExtraTime2
		}
		return ActionStartExtraTime1
	case PhaseExtraTimeBreak:
		return ActionEndExtraTime1
	case PhasePenalties:
		return ActionPenalties
	case PhaseFullTime, PhaseAfterExtraTime, PhaseAfterPenalties:
		if last.Terminal() {
			return ActionNone
		}
		return ActionEndMatch
	default:
		return ActionUnmapped
	}
}

// matchStatus is the coarse Match.Status an action implies, or "" for none.
func (a Action) matchStatus() string {
	switch a {
	case ActionNone, ActionUnmapped:
		return ""
	case ActionEndMatch:
		return domain.MatchFinished
	default:
		return domain.MatchLive
	}
}

// timerTransition resolves the clock operation for a, given the half the
// clock is currently in. ok is false when the action leaves the clock alone.
func (a Action) timerTransition(current matchclock.Half) (t matchclock.Transition, ok bool) {
	switch a {
	case ActionStartFirstHalf:
		return matchclock.StartFirstHalf, true
	case ActionEndFirstHalf:
		return matchclock.EndFirstHalf, true
	case ActionStartSecondHalf:
		return matchclock.StartSecondHalf, true
	case ActionStartExtraTime1:
		return matchclock.StartExtraTime1, true
	case ActionEndExtraTime1:
		return matchclock.EndExtraTime1, true
	case ActionStartExtraTime2:
		return matchclock.StartExtraTime2, true
	case ActionEndMatch:
		if current >= matchclock.ExtraTimeFirst {
			return matchclock.EndExtraTime2, true
		}
		return matchclock.EndMatch, true
	default:
		return 0, false
	}
}
