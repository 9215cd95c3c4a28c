package game

import (
	"context"
	"errors"
	"testing"
)

func feudSession(t *testing.T) *Session {
	t.Helper()
	ctx := context.Background()
	s := newTestSession(t, nil, testBank())
	s.SeedRoster(
		[]Player{
			{ID: "p1", Name: "Alice", TeamID: "t1"},
			{ID: "p2", Name: "Bob", TeamID: "t2"},
			{ID: "p3", Name: "Cara", TeamID: "t1"},
		},
		[]Team{{ID: "t1", Name: "Red"}, {ID: "t2", Name: "Blue"}},
	)
	s.StartGame(ctx)
	return s
}

func TestBuzzOrderIsStrictlyIncreasing(t *testing.T) {
	ctx := context.Background()
	s := feudSession(t)

	for i, id := range []string{"p2", "p1", "p3"} {
		entry, err := s.SubmitBuzz(ctx, id)
		if err != nil {
			t.Fatalf("buzz %s: %v", id, err)
		}
		if entry.Order != i+1 {
			t.Errorf("buzz %s order = %d, want %d", id, entry.Order, i+1)
		}
	}

	order := s.BuzzOrder("q1")
	if len(order) != 3 {
		t.Fatalf("got %d entries, want 3", len(order))
	}
	if order[0].PlayerID != "p2" || order[2].PlayerID != "p3" {
		t.Errorf("order = %+v", order)
	}
	if order[0].TeamID != "t2" {
		t.Errorf("buzz carries team id, got %q", order[0].TeamID)
	}
}

func TestDuplicateBuzzRejectedWithoutSideEffects(t *testing.T) {
	ctx := context.Background()
	s := feudSession(t)

	if _, err := s.SubmitBuzz(ctx, "p1"); err != nil {
		t.Fatalf("first buzz: %v", err)
	}
	if _, err := s.SubmitBuzz(ctx, "p1"); !errors.Is(err, ErrAlreadyBuzzed) {
		t.Fatalf("repeat buzz = %v, want ErrAlreadyBuzzed", err)
	}

	if got := s.BuzzOrder("q1"); len(got) != 1 {
		t.Errorf("queue = %+v, want untouched single entry", got)
	}

	// The next player still gets the next slot.
	entry, err := s.SubmitBuzz(ctx, "p2")
	if err != nil {
		t.Fatalf("buzz p2: %v", err)
	}
	if entry.Order != 2 {
		t.Errorf("p2 order = %d, want 2", entry.Order)
	}
}

func TestClearBuzzers(t *testing.T) {
	ctx := context.Background()
	s := feudSession(t)

	if _, err := s.SubmitBuzz(ctx, "p1"); err != nil {
		t.Fatalf("buzz: %v", err)
	}
	if err := s.ClearBuzzers(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if got := s.BuzzOrder("q1"); len(got) != 0 {
		t.Errorf("queue after clear = %+v", got)
	}
	// Cleared players may buzz again.
	if _, err := s.SubmitBuzz(ctx, "p1"); err != nil {
		t.Errorf("re-buzz after clear: %v", err)
	}
}

func TestFeudInitAndBuzzMirroring(t *testing.T) {
	ctx := context.Background()
	s := feudSession(t)

	if err := s.InitFeud("t1", "missing"); !errors.Is(err, ErrUnknownTeam) {
		t.Fatalf("init with unknown team = %v, want ErrUnknownTeam", err)
	}
	if err := s.InitFeud("t1", "t2"); err != nil {
		t.Fatalf("init: %v", err)
	}

	st := s.State()
	if st.Feud.Phase != FeudPhaseFaceOff || st.Feud.ActiveTeamID != "t1" {
		t.Fatalf("feud = %+v", st.Feud)
	}

	if _, err := s.SubmitBuzz(ctx, "p2"); err != nil {
		t.Fatalf("buzz: %v", err)
	}
	st = s.State()
	if len(st.Feud.BuzzOrder) != 1 || st.Feud.BuzzOrder[0].PlayerID != "p2" {
		t.Errorf("feud buzz order = %+v", st.Feud.BuzzOrder)
	}
}

func TestThreeStrikesHandsOverTheBoard(t *testing.T) {
	s := feudSession(t)
	if err := s.InitFeud("t1", "t2"); err != nil {
		t.Fatalf("init: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := s.AddStrike(); err != nil {
			t.Fatalf("strike %d: %v", i+1, err)
		}
	}
	if st := s.State(); st.Feud.Strikes != 2 || st.Feud.ActiveTeamID != "t1" {
		t.Fatalf("feud after two strikes = %+v", st.Feud)
	}

	if err := s.AddStrike(); err != nil {
		t.Fatalf("third strike: %v", err)
	}

	st := s.State()
	if st.Feud.ActiveTeamID != "t2" || st.Feud.OpposingTeamID != "t1" {
		t.Errorf("teams not swapped: %+v", st.Feud)
	}
	if st.Feud.Strikes != 0 || st.Feud.TeamAnswers != 0 || len(st.Feud.BuzzOrder) != 0 {
		t.Errorf("feud counters not reset: %+v", st.Feud)
	}
	if st.Feud.Phase != FeudPhaseTeamPlay {
		t.Errorf("phase = %q, want team_play", st.Feud.Phase)
	}
}

func TestRemoveStrikeFloorsAtZero(t *testing.T) {
	s := feudSession(t)
	if err := s.InitFeud("t1", "t2"); err != nil {
		t.Fatalf("init: %v", err)
	}

	if err := s.RemoveStrike(); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if st := s.State(); st.Feud.Strikes != 0 {
		t.Errorf("strikes = %d, want 0", st.Feud.Strikes)
	}
}

func TestFeudActionsRequireActiveRound(t *testing.T) {
	s := feudSession(t)

	if err := s.AddStrike(); !errors.Is(err, ErrFeudNotActive) {
		t.Errorf("strike = %v, want ErrFeudNotActive", err)
	}
	if err := s.SwitchTeams(); !errors.Is(err, ErrFeudNotActive) {
		t.Errorf("switch = %v, want ErrFeudNotActive", err)
	}
}

func TestManualSwitchTeams(t *testing.T) {
	s := feudSession(t)
	if err := s.InitFeud("t1", "t2"); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := s.AddStrike(); err != nil {
		t.Fatalf("strike: %v", err)
	}
	if err := s.SwitchTeams(); err != nil {
		t.Fatalf("switch: %v", err)
	}

	st := s.State()
	if st.Feud.ActiveTeamID != "t2" || st.Feud.Strikes != 0 {
		t.Errorf("feud after manual switch = %+v", st.Feud)
	}
}

func TestAdvancingSlideClearsBuzzState(t *testing.T) {
	ctx := context.Background()
	s := feudSession(t)

	if err := s.InitFeud("t1", "t2"); err != nil {
		t.Fatalf("init feud: %v", err)
	}
	if _, err := s.SubmitBuzz(ctx, "p1"); err != nil {
		t.Fatalf("buzz: %v", err)
	}

	if err := s.AdvanceSlide(ctx, 1); err != nil {
		t.Fatalf("advance: %v", err)
	}
	st := s.State()
	if len(st.Feud.BuzzOrder) != 0 || st.Feud.CurrentBuzzer != 0 {
		t.Errorf("feud buzz state survived the slide change: %+v", st.Feud)
	}
	if got := s.BuzzOrder("q1"); len(got) != 0 {
		t.Errorf("buzz queue for the departed question = %+v, want empty", got)
	}

	// Coming back to the question starts from a clean board.
	if err := s.AdvanceSlide(ctx, -1); err != nil {
		t.Fatalf("advance back: %v", err)
	}
	entry, err := s.SubmitBuzz(ctx, "p1")
	if err != nil {
		t.Fatalf("buzz after revisit: %v", err)
	}
	if entry.Order != 1 {
		t.Errorf("order after revisit = %d, want 1", entry.Order)
	}
}
