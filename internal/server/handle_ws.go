package server

import (
	"log/slog"
	"net/http"

	"github.com/quizdeck/quizdeck/internal/game"
	"github.com/quizdeck/quizdeck/internal/store"
)

// handleWS upgrades GET /ws. Role comes from the "role" query parameter
// and defaults to player. Host connections must carry a valid host session
// cookie; player connections must name a known playerId.
func handleWS(logger *slog.Logger, session *game.Session, st *store.SQLiteStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role := game.Role(r.URL.Query().Get("role"))
		if role == "" {
			role = game.RolePlayer
		}
		playerID := r.URL.Query().Get("playerId")

		switch role {
		case game.RoleHost:
			if _, ok := hostFromRequest(r, st); !ok {
				writeError(w, http.StatusUnauthorized, "not authenticated")
				return
			}
		case game.RoleDisplay:
		case game.RolePlayer:
			if _, ok := session.Player(playerID); !ok {
				writeError(w, http.StatusNotFound, "unknown player")
				return
			}
		default:
			writeError(w, http.StatusBadRequest, "invalid role")
			return
		}

		c, err := session.Registry().Upgrade(w, r, playerID, role)
		if err != nil {
			// Upgrade already wrote the handshake error.
			logger.Warn("websocket upgrade failed", "error", err)
			return
		}

		session.PlayerConnected(playerID, true)
		session.SendState(c)
	}
}
