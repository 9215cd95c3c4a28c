package server

import (
	"context"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/quizdeck/quizdeck/internal/game"
	"github.com/quizdeck/quizdeck/internal/store"
)

const seedHostEmail = "host@quizdeck.local"

// Seed provisions the host account and a starter question bank. Idempotent:
// questions are only inserted into an empty bank, and the host upsert keeps
// the password in sync with configuration.
func Seed(ctx context.Context, logger *slog.Logger, st *store.SQLiteStore, hostPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(hostPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := st.CreateHost(ctx, seedHostEmail, string(hash)); err != nil {
		return err
	}

	if err := st.SeedQuestions(ctx, demoQuestions()); err != nil {
		return err
	}

	logger.Info("seed complete", "host", seedHostEmail)
	return nil
}

func demoQuestions() []game.Question {
	return []game.Question{
		{
			ID:       "q-capital-fr",
			Category: "Geography",
			Type:     game.QuestionTypeMultipleChoice,
			Prompt:   "What is the capital of France?",
			Options:  []string{"Paris", "Lyon", "Marseille", "Toulouse"},
			Answer:   "Paris",
		},
		{
			ID:          "q-planet-red",
			Category:    "Science",
			Type:        game.QuestionTypeMultipleChoice,
			Prompt:      "Which planet is known as the Red Planet?",
			Options:     []string{"Venus", "Mars", "Jupiter", "Mercury"},
			Answer:      "Mars",
			Explanation: "Iron oxide on the surface gives Mars its color.",
		},
		{
			ID:       "q-movie-1994",
			Category: "Film",
			Type:     game.QuestionTypeOpenEnded,
			Prompt:   "Name a movie released in 1994.",
		},
		{
			ID:       "q-fast-math",
			Category: "Math",
			Type:     game.QuestionTypeBuzzer,
			Prompt:   "First to buzz: what is 17 times 6?",
			Answer:   "102",
		},
		{
			ID:       "q-survey-breakfast",
			Category: "Survey",
			Type:     game.QuestionTypeOpenEnded,
			Prompt:   "Name something people eat for breakfast.",
		},
	}
}
