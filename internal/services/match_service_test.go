package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/tbourn/matchday-live/internal/matchclock"
)

func TestMatchService_Live(t *testing.T) {
	db := newSvcDB(t)
	seedMatch(t, db, "m1")
	clock := clockwork.NewFakeClockAt(kickoff)
	ctx := context.Background()

	m := &MatchService{DB: db, Clock: clock}
	view, err := m.Live(ctx, "m1", 0)
	if err != nil {
		t.Fatalf("Live: %v", err)
	}
	if view.Match.HomeTeam != "Home FC" || view.Timer.Display != "0" || view.Entries == nil || len(view.Entries) != 0 {
		t.Fatalf("unexpected empty view: %+v", view)
	}

	timers := NewTimerService(db, timerRepo{}, clock, nil)
	blog := &LiveBlogService{DB: db, Clock: clock}
	if _, err := timers.Apply(ctx, "m1", matchclock.StartFirstHalf, 0); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 12; i++ {
		clock.Advance(time.Minute)
		if _, err := blog.Post(ctx, "m1", NewEntry{Title: "update"}); err != nil {
			t.Fatal(err)
		}
	}

	view, err = m.Live(ctx, "m1", 0)
	if err != nil {
		t.Fatalf("Live: %v", err)
	}
	if view.Timer.Display != "12" || !view.Timer.Running {
		t.Fatalf("timer: %+v", view.Timer)
	}
	if len(view.Entries) != 10 || *view.Entries[0].Minute != 12 {
		t.Fatalf("expected 10 newest entries, got %d", len(view.Entries))
	}

	view, _ = m.Live(ctx, "m1", 3)
	if len(view.Entries) != 3 {
		t.Fatalf("limit ignored: %d", len(view.Entries))
	}

	if _, err := m.Live(ctx, "nope", 0); !errors.Is(err, ErrMatchNotFound) {
		t.Fatalf("expected ErrMatchNotFound, got %v", err)
	}
}
