package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/quizdeck/quizdeck/internal/game"
)

type JoinRequest struct {
	Name   string `json:"name"`
	TeamID string `json:"teamId,omitempty"`
}

type JoinResponse struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	TeamID   string `json:"teamId,omitempty"`
}

func handleJoin(session *game.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req JoinRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}

		player, err := session.JoinPlayer(r.Context(), req.Name, req.TeamID)
		if errors.Is(err, game.ErrUnknownTeam) {
			writeError(w, http.StatusNotFound, "team not found")
			return
		}
		if errors.Is(err, game.ErrTeamFull) {
			writeError(w, http.StatusConflict, "team is full")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, JoinResponse{
			PlayerID: player.ID,
			Name:     player.Name,
			TeamID:   player.TeamID,
		})
	}
}
