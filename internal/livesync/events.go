package livesync

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tbourn/matchday-live/internal/domain"
	"github.com/tbourn/matchday-live/internal/feed"
)

// Draft is a live-blog entry before it is bound to a match and stored.
type Draft struct {
	Minute      *int
	EntryType   string
	Title       string
	Content     string
	IsImportant bool
	TeamSide    *string
}

// Entry binds d to matchID.
func (d Draft) Entry(matchID string) domain.LiveBlogEntry {
	return domain.LiveBlogEntry{
		MatchID:     matchID,
		Minute:      d.Minute,
		EntryType:   d.EntryType,
		Title:       d.Title,
		Content:     d.Content,
		IsImportant: d.IsImportant,
		TeamSide:    d.TeamSide,
	}
}

// Sides identifies the home and away clubs of a fixture so events can be
// attributed to a side.
type Sides struct {
	HomeID, AwayID     int64
	HomeName, AwayName string
}

// Of returns "home", "away" or nil. Team ids are compared first; names are a
// fallback for feeds that omit ids.
func (s Sides) Of(t feed.Team) *string {
	side := ""
	switch {
	case t.ID != 0 && t.ID == s.HomeID:
		side = domain.SideHome
	case t.ID != 0 && t.ID == s.AwayID:
		side = domain.SideAway
	case t.Name != "" && strings.EqualFold(t.Name, s.HomeName):
		side = domain.SideHome
	case t.Name != "" && strings.EqualFold(t.Name, s.AwayName):
		side = domain.SideAway
	default:
		return nil
	}
	return &side
}

// EventTemplate turns one feed event into a draft, or nil when the event
// should not appear in the live blog.
type EventTemplate func(e feed.Event, sides Sides) *Draft

// eventTemplates is keyed by the lower-cased feed event type.
var eventTemplates = map[string]EventTemplate{
	"goal":  goalEntry,
	"card":  cardEntry,
	"subst": substitutionEntry,
	"var":   varEntry,
}

// DraftFor applies the template registered for e.Type. Unknown types yield nil.
func DraftFor(e feed.Event, sides Sides) *Draft {
	tpl, ok := eventTemplates[strings.ToLower(strings.TrimSpace(e.Type))]
	if !ok {
		return nil
	}
	return tpl(e, sides)
}

// EventHash is the dedup key of a feed event: minute, type, player and detail.
// The assist is not part of the key.
func EventHash(e feed.Event) string {
	player := e.Player.Name
	if e.Player.ID != nil {
		player = strconv.FormatInt(*e.Player.ID, 10)
	}
	return fmt.Sprintf("%d-%s-%s-%s", e.Time.Elapsed, e.Type, player, e.Detail)
}

func eventMinute(e feed.Event) *int {
	m := e.Time.Elapsed
	if e.Time.Extra != nil && *e.Time.Extra > 0 {
		m += *e.Time.Extra
	}
	return &m
}

func nameOr(p feed.Person, fallback string) string {
	if n := strings.TrimSpace(p.Name); n != "" {
		return n
	}
	return fallback
}

func goalEntry(e feed.Event, sides Sides) *Draft {
	d := &Draft{
		Minute:      eventMinute(e),
		EntryType:   domain.EntryGoal,
		IsImportant: true,
		TeamSide:    sides.Of(e.Team),
	}
	scorer := nameOr(e.Player, "Unknown player")
	switch strings.ToLower(e.Detail) {
	case "own goal":
		d.Title = "Own goal!"
		d.Content = fmt.Sprintf("Own goal by %s (%s).", scorer, e.Team.Name)
	case "penalty":
		d.Title = "GOAL! Penalty converted"
		d.Content = fmt.Sprintf("%s scores from the spot for %s.", scorer, e.Team.Name)
	case "missed penalty":
		d.EntryType = domain.EntryImportant
		d.Title = "Penalty missed"
		d.Content = fmt.Sprintf("%s fails to convert the penalty for %s.", scorer, e.Team.Name)
	default:
		d.Title = "GOAL! " + e.Team.Name
		d.Content = fmt.Sprintf("%s scores for %s.", scorer, e.Team.Name)
		if a := strings.TrimSpace(e.Assist.Name); a != "" {
			d.Content += " Assist: " + a + "."
		}
	}
	return d
}

func cardEntry(e feed.Event, sides Sides) *Draft {
	player := nameOr(e.Player, "Unknown player")
	d := &Draft{
		Minute:   eventMinute(e),
		TeamSide: sides.Of(e.Team),
	}
	switch strings.ToLower(e.Detail) {
	case "yellow card":
		d.EntryType = domain.EntryYellowCard
		d.Title = "Yellow card"
		d.Content = fmt.Sprintf("%s (%s) is booked.", player, e.Team.Name)
	case "red card":
		d.EntryType = domain.EntryRedCard
		d.IsImportant = true
		d.Title = "Red card!"
		d.Content = fmt.Sprintf("%s (%s) is sent off.", player, e.Team.Name)
	case "second yellow card":
		d.EntryType = domain.EntryRedCard
		d.IsImportant = true
		d.Title = "Second yellow, red card!"
		d.Content = fmt.Sprintf("%s (%s) picks up a second booking and is sent off.", player, e.Team.Name)
	default:
		return nil
	}
	return d
}

// substitutionEntry follows the feed convention of player = leaving the
// pitch and assist = coming on.
func substitutionEntry(e feed.Event, sides Sides) *Draft {
	off := nameOr(e.Player, "Unknown player")
	on := nameOr(e.Assist, "Unknown player")
	return &Draft{
		Minute:    eventMinute(e),
		EntryType: domain.EntrySubstitute,
		Title:     "Substitution " + e.Team.Name,
		Content:   fmt.Sprintf("%s comes on for %s.", on, off),
		TeamSide:  sides.Of(e.Team),
	}
}

func varEntry(e feed.Event, sides Sides) *Draft {
	detail := strings.TrimSpace(e.Detail)
	if detail == "" {
		detail = "decision"
	}
	title := "VAR: " + cases.Title(language.English).String(detail)
	content := fmt.Sprintf("VAR review for %s: %s.", e.Team.Name, strings.ToLower(detail))
	if p := strings.TrimSpace(e.Player.Name); p != "" {
		content = fmt.Sprintf("VAR review involving %s (%s): %s.", p, e.Team.Name, strings.ToLower(detail))
	}
	return &Draft{
		Minute:      eventMinute(e),
		EntryType:   domain.EntryVAR,
		Title:       title,
		Content:     content,
		IsImportant: true,
		TeamSide:    sides.Of(e.Team),
	}
}
