package store

import (
	"context"
	"errors"
	"testing"

	"github.com/quizdeck/quizdeck/internal/database"
	"github.com/quizdeck/quizdeck/internal/game"
	"github.com/quizdeck/quizdeck/internal/migrations"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := database.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := migrations.Run(context.Background(), db); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	return New(db)
}

func TestSeedQuestionsIsIdempotent(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	qs := []game.Question{
		{ID: "q1", Category: "Geo", Type: game.QuestionTypeMultipleChoice, Prompt: "?", Options: []string{"a", "b"}, Answer: "a"},
		{ID: "q2", Type: game.QuestionTypeOpenEnded, Prompt: "?", Options: []string{}},
	}
	if err := st.SeedQuestions(ctx, qs); err != nil {
		t.Fatalf("seed: %v", err)
	}
	// Second seed with different content must be a no-op.
	if err := st.SeedQuestions(ctx, qs[:1]); err != nil {
		t.Fatalf("re-seed: %v", err)
	}

	got, err := st.AllQuestions(ctx)
	if err != nil {
		t.Fatalf("all questions: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d questions, want 2", len(got))
	}
	if got[0].ID != "q1" || got[1].ID != "q2" {
		t.Errorf("order = %s, %s", got[0].ID, got[1].ID)
	}
	if len(got[0].Options) != 2 || got[0].Options[0] != "a" {
		t.Errorf("options = %v", got[0].Options)
	}
}

func TestPlayerRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	p := game.Player{ID: "p1", Name: "Alice", Score: 7, Connected: true}
	if err := st.SavePlayer(ctx, p); err != nil {
		t.Fatalf("save: %v", err)
	}
	// Saving again updates in place.
	p.Name = "Alicia"
	if err := st.SavePlayer(ctx, p); err != nil {
		t.Fatalf("re-save: %v", err)
	}

	players, err := st.LoadPlayers(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(players) != 1 {
		t.Fatalf("got %d players, want 1", len(players))
	}
	if players[0].Name != "Alicia" || players[0].Score != 7 {
		t.Errorf("player = %+v", players[0])
	}

	if err := st.UpdateScore(ctx, "p1", 20); err != nil {
		t.Fatalf("update score: %v", err)
	}
	if err := st.ResetPlayerScores(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	players, _ = st.LoadPlayers(ctx)
	if players[0].Score != 0 {
		t.Errorf("score after reset = %d", players[0].Score)
	}

	if err := st.DeleteAllPlayers(ctx); err != nil {
		t.Fatalf("delete: %v", err)
	}
	players, _ = st.LoadPlayers(ctx)
	if len(players) != 0 {
		t.Errorf("players after delete = %+v", players)
	}
}

func TestRecordAnswerFirstWriteWins(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	if err := st.SavePlayer(ctx, game.Player{ID: "p1", Name: "Alice"}); err != nil {
		t.Fatalf("save player: %v", err)
	}

	correct := true
	rec := game.AnswerRecord{PlayerID: "p1", QuestionID: "q1", Value: "Paris", Correct: &correct, TimeRemaining: 10, TimeLimit: 30}
	if err := st.RecordAnswer(ctx, rec); err != nil {
		t.Fatalf("record: %v", err)
	}

	// A second write for the same (player, question) is silently dropped.
	rec.Value = "Lyon"
	if err := st.RecordAnswer(ctx, rec); err != nil {
		t.Fatalf("re-record: %v", err)
	}

	if err := st.MarkAnswerScored(ctx, "p1", "q1"); err != nil {
		t.Fatalf("mark scored: %v", err)
	}

	if err := st.ClearQuestionAnswers(ctx, "q1"); err != nil {
		t.Fatalf("clear question: %v", err)
	}
	if err := st.ClearAnswers(ctx); err != nil {
		t.Fatalf("clear all: %v", err)
	}
}

func TestPendingPointsUpsert(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	if err := st.SavePlayer(ctx, game.Player{ID: "p1", Name: "Alice"}); err != nil {
		t.Fatalf("save player: %v", err)
	}

	award := game.PendingAward{PlayerID: "p1", QuestionID: "q1", Points: 2, AnswerText: "blue"}
	if err := st.UpsertPendingPoints(ctx, award); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	// The session sends the accumulated total; the row holds the latest value.
	award.Points = 5
	if err := st.UpsertPendingPoints(ctx, award); err != nil {
		t.Fatalf("re-upsert: %v", err)
	}
	if err := st.DeletePendingPoints(ctx, "q1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

func TestTeamCRUD(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	team, err := st.CreateTeam(ctx, "Red", "#ff0000")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if team.ID == "" || team.Name != "Red" || team.Score != 0 {
		t.Fatalf("team = %+v", team)
	}

	if err := st.UpdateTeamScore(ctx, team.ID, 30); err != nil {
		t.Fatalf("update score: %v", err)
	}
	teams, err := st.LoadTeams(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(teams) != 1 || teams[0].Score != 30 {
		t.Errorf("teams = %+v", teams)
	}
}

func TestHostSessions(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	if _, err := st.HostByEmail(ctx, "nobody@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing host = %v, want ErrNotFound", err)
	}

	if err := st.CreateHost(ctx, "host@example.com", "hash"); err != nil {
		t.Fatalf("create host: %v", err)
	}
	host, err := st.HostByEmail(ctx, "host@example.com")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}

	sid, err := st.CreateHostSession(ctx, host.ID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	got, err := st.HostFromSession(ctx, sid)
	if err != nil || got.ID != host.ID {
		t.Fatalf("from session = %+v, %v", got, err)
	}

	if err := st.DeleteHostSession(ctx, sid); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, err := st.HostFromSession(ctx, sid); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted session = %v, want ErrNotFound", err)
	}
}
