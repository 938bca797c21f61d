// Package services holds the application use-cases behind the HTTP API: the
// match clock, automation settings, the live blog and the combined live view.
// This file centralizes service-level error values so handlers can map them
// to HTTP results consistently.
package services

import "errors"

var (
	// ErrMatchNotFound indicates that the requested match does not exist.
	ErrMatchNotFound = errors.New("match not found")

	// ErrAutomationNotFound is returned when a match has never been
	// configured for automatic sync.
	ErrAutomationNotFound = errors.New("automation not configured")

	// ErrInvalidFixtureID is returned for a non-positive external fixture id.
	ErrInvalidFixtureID = errors.New("fixture id must be positive")

	// ErrInvalidExtraTime is returned for negative stoppage minutes.
	ErrInvalidExtraTime = errors.New("extra time must be >= 0")

	// ErrEmptyTitle is returned when a live-blog entry has no title.
	ErrEmptyTitle = errors.New("title is empty")

	// ErrInvalidMinute is returned for a negative entry minute.
	ErrInvalidMinute = errors.New("minute must be >= 0")

	// ErrInvalidTeamSide is returned when team_side is neither home nor away.
	ErrInvalidTeamSide = errors.New("team side must be home or away")
)
