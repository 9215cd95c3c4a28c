// Package game implements the live session core: the authoritative session
// state, the countdown timer, scoring, buzzer arbitration, and the action
// dispatcher that ties them together. Everything external (HTTP, storage)
// talks to this package through the Session and the interfaces below.
package game

import (
	"context"
	"time"
)

const (
	QuestionTypeMultipleChoice = "multiple_choice"
	QuestionTypeOpenEnded      = "open_ended"
	QuestionTypeBuzzer         = "buzzer"
)

// Question is a single entry from the question bank. The bank itself is an
// external collaborator; the core only reads it to resolve the current
// question for scoring.
type Question struct {
	ID          string   `json:"id"`
	Category    string   `json:"category"`
	Type        string   `json:"type"`
	Prompt      string   `json:"prompt"`
	Options     []string `json:"options"`
	Answer      string   `json:"answer"`
	Explanation string   `json:"explanation"`
}

type Player struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Score     int    `json:"score"`
	Connected bool   `json:"connected"`
	TeamID    string `json:"teamId,omitempty"`
}

type Team struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Score int    `json:"score"`
}

// AnswerRecord is one player's submission for one question. At most one
// exists per (player, question). Correct stays nil for open-ended answers
// until the host judges them. Scored guards the objective pass so a question
// is never awarded twice.
type AnswerRecord struct {
	PlayerID      string    `json:"playerId"`
	QuestionID    string    `json:"questionId"`
	Value         string    `json:"value"`
	Correct       *bool     `json:"correct,omitempty"`
	TimeRemaining int       `json:"timeRemaining"`
	TimeLimit     int       `json:"timeLimit"`
	LockedScore   *int      `json:"lockedScore,omitempty"`
	Scored        bool      `json:"-"`
	SubmittedAt   time.Time `json:"submittedAt"`
}

// PendingAward is a host-proposed score for a judged answer. It exists only
// between "host awards points" and the commit on reveal/advance. Re-awarding
// the same (player, question) accumulates into one record.
type PendingAward struct {
	PlayerID   string `json:"playerId"`
	QuestionID string `json:"questionId"`
	Points     int    `json:"points"`
	AnswerText string `json:"answerText"`
}

// BuzzerEntry records one buzz-in. Order is 1-based and strictly increasing
// per question; entries are never reassigned.
type BuzzerEntry struct {
	PlayerID   string    `json:"playerId"`
	QuestionID string    `json:"questionId"`
	TeamID     string    `json:"teamId,omitempty"`
	Order      int       `json:"order"`
	BuzzedAt   time.Time `json:"buzzedAt"`
}

// Store is the persistence collaborator. The in-memory session is
// authoritative; every call here is best-effort and must never block the
// live game flow.
type Store interface {
	ClearAnswers(ctx context.Context) error
	ClearQuestionAnswers(ctx context.Context, questionID string) error
	RecordAnswer(ctx context.Context, rec AnswerRecord) error
	MarkAnswerScored(ctx context.Context, playerID, questionID string) error
	UpdateScore(ctx context.Context, playerID string, score int) error
	UpdateTeamScore(ctx context.Context, teamID string, score int) error
	UpsertPendingPoints(ctx context.Context, award PendingAward) error
	DeletePendingPoints(ctx context.Context, questionID string) error
	SavePlayer(ctx context.Context, p Player) error
	SetPlayerConnected(ctx context.Context, playerID string, connected bool) error
	ResetPlayerScores(ctx context.Context) error
	DeleteAllPlayers(ctx context.Context) error
}

// QuestionProvider resolves the question bank.
type QuestionProvider interface {
	AllQuestions(ctx context.Context) ([]Question, error)
}
