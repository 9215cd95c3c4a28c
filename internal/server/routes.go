package server

import (
	"database/sql"
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"

	"github.com/quizdeck/quizdeck/internal/game"
	"github.com/quizdeck/quizdeck/internal/store"
)

func addRoutes(r chi.Router, logger *slog.Logger, session *game.Session, st *store.SQLiteStore, db *sql.DB) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("QuizDeck API", "/openapi.json", "/docs"))
	r.Get("/healthz", handleHealth(logger, db))

	r.Get("/ws", handleWS(logger, session, st))

	// Public game endpoints.
	r.Post("/api/join", handleJoin(session))
	r.Get("/api/game/state", handleGameState(session, st))
	r.Get("/api/game/leaderboard", handleLeaderboard(session))
	r.Get("/api/teams", handleListTeams(session))

	// Host auth.
	r.Post("/api/host/login", handleHostLogin(st))
	r.Post("/api/host/logout", handleHostLogout(st))
	r.Get("/api/host/me", handleHostMe(st))

	// Host-only game control over REST. The websocket carries the same
	// actions; these exist for tooling and recovery.
	r.Route("/api/host", func(r chi.Router) {
		r.Use(hostAuthMiddleware(st))
		r.Patch("/game/state", handleUpdateState(session))
		r.Post("/game/action", handleGameAction(session))
		r.Post("/teams", handleCreateTeam(session, st))
		r.Delete("/players", handleClearPlayers(logger, session))
		r.Get("/game/answers", handleListAnswers(session))
	})
}
