package feed

import "encoding/json"

// Status is the fixture status block. Short holds the feed's status code
// (NS, 1H, HT, 2H, ET, BT, P, FT, AET, PEN, ...).
type Status struct {
	Long    string `json:"long"`
	Short   string `json:"short"`
	Elapsed *int   `json:"elapsed"`
	Extra   *int   `json:"extra"`
}

// FixtureInfo identifies the fixture and carries its status.
type FixtureInfo struct {
	ID     int64  `json:"id"`
	Status Status `json:"status"`
}

// Team is a club reference as the feed reports it.
type Team struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Teams holds both sides of a fixture.
type Teams struct {
	Home Team `json:"home"`
	Away Team `json:"away"`
}

// Goals is the current score. Values are null before kickoff.
type Goals struct {
	Home *int `json:"home"`
	Away *int `json:"away"`
}

// Person is a player or assist reference. Either field may be empty.
type Person struct {
	ID   *int64 `json:"id"`
	Name string `json:"name"`
}

// EventTime is the minute an event happened, with stoppage in Extra.
type EventTime struct {
	Elapsed int  `json:"elapsed"`
	Extra   *int `json:"extra"`
}

// Event is one entry of the fixture's event list.
type Event struct {
	Time     EventTime `json:"time"`
	Team     Team      `json:"team"`
	Player   Person    `json:"player"`
	Assist   Person    `json:"assist"`
	Type     string    `json:"type"`
	Detail   string    `json:"detail"`
	Comments string    `json:"comments"`
}

// Fixture is the snapshot returned for a single fixture id.
type Fixture struct {
	Fixture FixtureInfo `json:"fixture"`
	Teams   Teams       `json:"teams"`
	Goals   Goals       `json:"goals"`
	Events  []Event     `json:"events"`
}

// envelope is the top-level response of every api-football endpoint.
// Errors is an empty array on success and an object keyed by field on
// failure, so it is decoded lazily.
type envelope struct {
	Errors   json.RawMessage `json:"errors"`
	Results  int             `json:"results"`
	Response []Fixture       `json:"response"`
}
