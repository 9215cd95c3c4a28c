// Package store persists the session's side effects (answers, scores,
// pending points) and serves the question bank. The live session never
// waits on this package; see game.Session.persist.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/quizdeck/quizdeck/internal/game"
)

var ErrNotFound = errors.New("not found")

type SQLiteStore struct {
	db *sql.DB
}

func New(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// AllQuestions implements game.QuestionProvider.
func (s *SQLiteStore) AllQuestions(ctx context.Context) ([]game.Question, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, category, type, prompt, options, answer, explanation
		FROM questions
		ORDER BY sort_order, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []game.Question
	for rows.Next() {
		var q game.Question
		var options string
		if err := rows.Scan(&q.ID, &q.Category, &q.Type, &q.Prompt, &options, &q.Answer, &q.Explanation); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(options), &q.Options); err != nil {
			return nil, fmt.Errorf("decoding options for question %s: %w", q.ID, err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ClearAnswers(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM answers`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM pending_points`); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) ClearQuestionAnswers(ctx context.Context, questionID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM answers WHERE question_id = ?`, questionID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM pending_points WHERE question_id = ?`, questionID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) RecordAnswer(ctx context.Context, rec game.AnswerRecord) error {
	var correct sql.NullInt64
	if rec.Correct != nil {
		correct.Valid = true
		if *rec.Correct {
			correct.Int64 = 1
		}
	}
	var locked sql.NullInt64
	if rec.LockedScore != nil {
		locked = sql.NullInt64{Int64: int64(*rec.LockedScore), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO answers (player_id, question_id, value, is_correct, time_remaining, time_limit, locked_score)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (player_id, question_id) DO NOTHING
	`, rec.PlayerID, rec.QuestionID, rec.Value, correct, rec.TimeRemaining, rec.TimeLimit, locked)
	return err
}

func (s *SQLiteStore) MarkAnswerScored(ctx context.Context, playerID, questionID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE answers SET scored_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
		WHERE player_id = ? AND question_id = ? AND scored_at IS NULL
	`, playerID, questionID)
	return err
}

func (s *SQLiteStore) UpdateScore(ctx context.Context, playerID string, score int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE players SET score = ? WHERE id = ?
	`, score, playerID)
	return err
}

func (s *SQLiteStore) UpdateTeamScore(ctx context.Context, teamID string, score int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE teams SET score = ? WHERE id = ?
	`, score, teamID)
	return err
}

func (s *SQLiteStore) UpsertPendingPoints(ctx context.Context, award game.PendingAward) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pending_points (player_id, question_id, points, answer_text)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (player_id, question_id) DO UPDATE SET
			points = excluded.points,
			answer_text = excluded.answer_text,
			updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
	`, award.PlayerID, award.QuestionID, award.Points, award.AnswerText)
	return err
}

func (s *SQLiteStore) DeletePendingPoints(ctx context.Context, questionID string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM pending_points WHERE question_id = ?
	`, questionID)
	return err
}

func (s *SQLiteStore) SavePlayer(ctx context.Context, p game.Player) error {
	var teamID sql.NullString
	if p.TeamID != "" {
		teamID = sql.NullString{String: p.TeamID, Valid: true}
	}
	connected := 0
	if p.Connected {
		connected = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO players (id, name, score, team_id, connected)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			team_id = excluded.team_id,
			connected = excluded.connected
	`, p.ID, p.Name, p.Score, teamID, connected)
	return err
}

func (s *SQLiteStore) SetPlayerConnected(ctx context.Context, playerID string, connected bool) error {
	v := 0
	if connected {
		v = 1
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE players SET connected = ? WHERE id = ?
	`, v, playerID)
	return err
}

func (s *SQLiteStore) ResetPlayerScores(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `UPDATE players SET score = 0`)
	return err
}

func (s *SQLiteStore) DeleteAllPlayers(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM players`)
	return err
}

// LoadPlayers restores the roster at boot so a restart does not lose
// scores mid-evening.
func (s *SQLiteStore) LoadPlayers(ctx context.Context) ([]game.Player, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, score, team_id FROM players ORDER BY joined_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []game.Player
	for rows.Next() {
		var p game.Player
		var teamID sql.NullString
		if err := rows.Scan(&p.ID, &p.Name, &p.Score, &teamID); err != nil {
			return nil, err
		}
		p.TeamID = teamID.String
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) LoadTeams(ctx context.Context) ([]game.Team, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, color, score FROM teams ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []game.Team
	for rows.Next() {
		var t game.Team
		if err := rows.Scan(&t.ID, &t.Name, &t.Color, &t.Score); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) CreateTeam(ctx context.Context, name, color string) (game.Team, error) {
	var t game.Team
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO teams (name, color)
		VALUES (?, ?)
		RETURNING id, name, color, score
	`, name, color).Scan(&t.ID, &t.Name, &t.Color, &t.Score)
	return t, err
}
