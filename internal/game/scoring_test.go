package game

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/jonboulle/clockwork"
)

type bankProvider struct {
	qs []Question
}

func (b bankProvider) AllQuestions(context.Context) ([]Question, error) {
	return b.qs, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testBank() []Question {
	return []Question{
		{ID: "q1", Category: "Geo", Type: QuestionTypeMultipleChoice, Prompt: "Capital of France?", Options: []string{"Paris", "Lyon"}, Answer: "Paris"},
		{ID: "q2", Category: "Film", Type: QuestionTypeOpenEnded, Prompt: "Name a 1994 movie."},
		{ID: "q3", Category: "Math", Type: QuestionTypeBuzzer, Prompt: "17 times 6?", Answer: "102"},
	}
}

func newTestSession(t *testing.T, clock clockwork.Clock, qs []Question) *Session {
	t.Helper()
	if clock == nil {
		clock = clockwork.NewFakeClock()
	}
	s := NewSession(Options{
		Logger:    discardLogger(),
		Clock:     clock,
		Questions: bankProvider{qs},
	})
	if err := s.ReloadQuestions(context.Background()); err != nil {
		t.Fatalf("reload questions: %v", err)
	}
	return s
}

func TestComputePoints(t *testing.T) {
	locked := 7

	tests := []struct {
		name string
		set  Settings
		rec  AnswerRecord
		want int
	}{
		{
			name: "flat multiplier without decay",
			set:  Settings{ScoreMultiplier: 10},
			rec:  AnswerRecord{TimeRemaining: 1, TimeLimit: 30},
			want: 10,
		},
		{
			name: "decay at half time",
			set:  Settings{ScoreMultiplier: 10, DecayScoring: true, MinScorePercent: 25},
			rec:  AnswerRecord{TimeRemaining: 15, TimeLimit: 30},
			want: 5,
		},
		{
			name: "decay clamped at floor",
			set:  Settings{ScoreMultiplier: 10, DecayScoring: true, MinScorePercent: 25},
			rec:  AnswerRecord{TimeRemaining: 1, TimeLimit: 30},
			want: 3,
		},
		{
			name: "decay with full time left",
			set:  Settings{ScoreMultiplier: 10, DecayScoring: true, MinScorePercent: 25},
			rec:  AnswerRecord{TimeRemaining: 30, TimeLimit: 30},
			want: 10,
		},
		{
			name: "zero limit falls back to multiplier",
			set:  Settings{ScoreMultiplier: 10, DecayScoring: true, MinScorePercent: 25},
			rec:  AnswerRecord{TimeRemaining: 0, TimeLimit: 0},
			want: 10,
		},
		{
			name: "locked score wins",
			set:  Settings{ScoreMultiplier: 10, DecayScoring: true, MinScorePercent: 25},
			rec:  AnswerRecord{TimeRemaining: 30, TimeLimit: 30, LockedScore: &locked},
			want: 7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := computePoints(tt.set, tt.rec); got != tt.want {
				t.Errorf("computePoints() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSubmitAnswerMultipleChoice(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, nil, testBank())
	s.SeedRoster([]Player{{ID: "p1", Name: "Alice"}}, nil)
	s.StartGame(ctx)

	// Case and surrounding whitespace must not matter.
	if err := s.SubmitAnswer(ctx, "p1", "  paris "); err != nil {
		t.Fatalf("submit: %v", err)
	}

	recs := s.Answers("q1")
	if len(recs) != 1 {
		t.Fatalf("got %d answers, want 1", len(recs))
	}
	if recs[0].Correct == nil || !*recs[0].Correct {
		t.Error("answer not judged correct")
	}

	if err := s.SubmitAnswer(ctx, "p1", "Lyon"); !errors.Is(err, ErrAlreadyAnswered) {
		t.Errorf("second submit = %v, want ErrAlreadyAnswered", err)
	}
}

func TestSubmitAnswerUnknownPlayer(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, nil, testBank())
	s.StartGame(ctx)

	if err := s.SubmitAnswer(ctx, "ghost", "Paris"); !errors.Is(err, ErrUnknownPlayer) {
		t.Errorf("submit = %v, want ErrUnknownPlayer", err)
	}
}

func TestSubmitAnswerBeforeStart(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, nil, testBank())
	s.SeedRoster([]Player{{ID: "p1", Name: "Alice"}}, nil)

	if err := s.SubmitAnswer(ctx, "p1", "Paris"); !errors.Is(err, ErrNotStarted) {
		t.Errorf("submit = %v, want ErrNotStarted", err)
	}
}

func TestRevealSettlesExactlyOnce(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, nil, testBank())
	s.SeedRoster([]Player{{ID: "p1", Name: "Alice"}, {ID: "p2", Name: "Bob"}}, nil)
	s.StartGame(ctx)

	if err := s.SubmitAnswer(ctx, "p1", "Paris"); err != nil {
		t.Fatalf("submit p1: %v", err)
	}
	if err := s.SubmitAnswer(ctx, "p2", "Lyon"); err != nil {
		t.Fatalf("submit p2: %v", err)
	}

	if err := s.ToggleAnswer(ctx); err != nil {
		t.Fatalf("reveal: %v", err)
	}

	score := func(id string) int {
		p, ok := s.Player(id)
		if !ok {
			t.Fatalf("player %s missing", id)
		}
		return p.Score
	}

	if got := score("p1"); got != 10 {
		t.Errorf("p1 score = %d, want 10", got)
	}
	if got := score("p2"); got != 0 {
		t.Errorf("p2 score = %d, want 0", got)
	}

	// Hide, reveal again, then advance: the question must not pay twice.
	if err := s.ToggleAnswer(ctx); err != nil {
		t.Fatalf("hide: %v", err)
	}
	if err := s.ToggleAnswer(ctx); err != nil {
		t.Fatalf("re-reveal: %v", err)
	}
	if err := s.AdvanceSlide(ctx, +1); err != nil {
		t.Fatalf("advance: %v", err)
	}

	if got := score("p1"); got != 10 {
		t.Errorf("p1 score after re-reveal and advance = %d, want 10", got)
	}
}

func TestAdvanceSettlesUnrevealedQuestion(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, nil, testBank())
	s.SeedRoster([]Player{{ID: "p1", Name: "Alice"}}, nil)
	s.StartGame(ctx)

	if err := s.SubmitAnswer(ctx, "p1", "Paris"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := s.AdvanceSlide(ctx, +1); err != nil {
		t.Fatalf("advance: %v", err)
	}

	p, _ := s.Player("p1")
	if p.Score != 10 {
		t.Errorf("score = %d, want 10 (advance must settle scoring)", p.Score)
	}
}

func TestPendingPointsAccumulateAndCommit(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, nil, testBank())
	s.SeedRoster([]Player{{ID: "p1", Name: "Alice"}}, nil)
	s.StartGame(ctx)

	// Move to the open-ended question.
	if err := s.AdvanceSlide(ctx, +1); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if err := s.SubmitAnswer(ctx, "p1", "The Lion King"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	recs := s.Answers("q2")
	if len(recs) != 1 || recs[0].Correct != nil {
		t.Fatal("open-ended answer must stay unjudged")
	}

	if err := s.AwardPendingPoints(ctx, "p1", "", 1); err != nil {
		t.Fatalf("award 1: %v", err)
	}
	if err := s.AwardPendingPoints(ctx, "p1", "", 3); err != nil {
		t.Fatalf("award 3: %v", err)
	}

	pend := s.PendingAwards("q2")
	if len(pend) != 1 || pend[0].Points != 4 {
		t.Fatalf("pending = %+v, want one award of 4", pend)
	}
	if pend[0].AnswerText != "The Lion King" {
		t.Errorf("pending answer text = %q", pend[0].AnswerText)
	}

	// Nothing committed until reveal or advance.
	p, _ := s.Player("p1")
	if p.Score != 0 {
		t.Fatalf("score before commit = %d, want 0", p.Score)
	}

	if err := s.ToggleAnswer(ctx); err != nil {
		t.Fatalf("reveal: %v", err)
	}
	p, _ = s.Player("p1")
	if p.Score != 4 {
		t.Errorf("score after commit = %d, want 4", p.Score)
	}
	if pend := s.PendingAwards("q2"); len(pend) != 0 {
		t.Errorf("pending after commit = %+v, want empty", pend)
	}

	// Advancing afterwards must not commit again.
	if err := s.AdvanceSlide(ctx, +1); err != nil {
		t.Fatalf("advance: %v", err)
	}
	p, _ = s.Player("p1")
	if p.Score != 4 {
		t.Errorf("score after advance = %d, want 4", p.Score)
	}
}

func TestDecayScoreLockedAtSubmission(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, nil, testBank())
	s.SeedRoster([]Player{{ID: "p1", Name: "Alice"}}, nil)

	decay := true
	s.ApplyDelta(StateDelta{Settings: &SettingsDelta{DecayScoring: &decay}})
	s.StartGame(ctx)

	// Simulate half the countdown having elapsed.
	s.mu.Lock()
	s.state.TimerSecondsRemaining = 15
	s.mu.Unlock()

	if err := s.SubmitAnswer(ctx, "p1", "Paris"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	recs := s.Answers("q1")
	if recs[0].LockedScore == nil || *recs[0].LockedScore != 5 {
		t.Fatalf("locked score = %v, want 5", recs[0].LockedScore)
	}

	// Time keeps draining before the reveal; the payout must not shrink.
	s.mu.Lock()
	s.state.TimerSecondsRemaining = 0
	s.mu.Unlock()

	if err := s.ToggleAnswer(ctx); err != nil {
		t.Fatalf("reveal: %v", err)
	}
	p, _ := s.Player("p1")
	if p.Score != 5 {
		t.Errorf("score = %d, want 5", p.Score)
	}
}

func TestAwardTeamPoints(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, nil, testBank())
	s.SeedRoster(nil, []Team{{ID: "t1", Name: "Red"}})

	if err := s.AwardTeamPoints(ctx, "t1", 25); err != nil {
		t.Fatalf("award: %v", err)
	}
	if err := s.AwardTeamPoints(ctx, "t1", 10); err != nil {
		t.Fatalf("award: %v", err)
	}

	teams := s.Teams()
	if len(teams) != 1 || teams[0].Score != 35 {
		t.Errorf("teams = %+v, want one team at 35", teams)
	}

	if err := s.AwardTeamPoints(ctx, "nope", 5); !errors.Is(err, ErrUnknownTeam) {
		t.Errorf("award unknown team = %v, want ErrUnknownTeam", err)
	}
}

func TestClearAnswersCurrentQuestion(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, nil, testBank())
	s.SeedRoster([]Player{{ID: "p1", Name: "Alice"}}, nil)
	s.StartGame(ctx)

	if err := s.SubmitAnswer(ctx, "p1", "Paris"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := s.AwardPendingPoints(ctx, "p1", "", 2); err != nil {
		t.Fatalf("award: %v", err)
	}

	if err := s.ClearAnswers(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}

	if got := s.Answers("q1"); len(got) != 0 {
		t.Errorf("answers after clear = %+v", got)
	}
	if got := s.PendingAwards("q1"); len(got) != 0 {
		t.Errorf("pending after clear = %+v", got)
	}

	// The player may answer again after a clear.
	if err := s.SubmitAnswer(ctx, "p1", "Lyon"); err != nil {
		t.Errorf("resubmit after clear: %v", err)
	}
}
