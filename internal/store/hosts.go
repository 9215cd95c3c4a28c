package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/quizdeck/quizdeck/internal/game"
)

type Host struct {
	ID           string
	Email        string
	PasswordHash string
}

func (s *SQLiteStore) HostByEmail(ctx context.Context, email string) (Host, error) {
	var h Host
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash FROM hosts WHERE email = ?
	`, email).Scan(&h.ID, &h.Email, &h.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return Host{}, ErrNotFound
	}
	return h, err
}

func (s *SQLiteStore) CreateHost(ctx context.Context, email, passwordHash string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO hosts (email, password_hash)
		VALUES (?, ?)
		ON CONFLICT (email) DO UPDATE SET password_hash = excluded.password_hash
	`, email, passwordHash)
	return err
}

func (s *SQLiteStore) CreateHostSession(ctx context.Context, hostID string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO host_sessions (host_id) VALUES (?) RETURNING id
	`, hostID).Scan(&id)
	return id, err
}

func (s *SQLiteStore) HostFromSession(ctx context.Context, sessionID string) (Host, error) {
	var h Host
	err := s.db.QueryRowContext(ctx, `
		SELECT h.id, h.email, h.password_hash
		FROM host_sessions s JOIN hosts h ON h.id = s.host_id
		WHERE s.id = ?
	`, sessionID).Scan(&h.ID, &h.Email, &h.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return Host{}, ErrNotFound
	}
	return h, err
}

func (s *SQLiteStore) DeleteHostSession(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM host_sessions WHERE id = ?
	`, sessionID)
	return err
}

// SeedQuestions inserts the given questions if the bank is empty.
func (s *SQLiteStore) SeedQuestions(ctx context.Context, questions []game.Question) error {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM questions`).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i, q := range questions {
		options, err := json.Marshal(q.Options)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO questions (id, category, type, prompt, options, answer, explanation, sort_order)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, q.ID, q.Category, q.Type, q.Prompt, string(options), q.Answer, q.Explanation, i); err != nil {
			return err
		}
	}
	return tx.Commit()
}
