package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"

	"github.com/quizdeck/quizdeck/internal/game"
	"github.com/quizdeck/quizdeck/internal/store"
)

// GameStateResponse is the full snapshot returned by GET /api/game/state.
// Question answers are stripped unless the requester is a host or the
// answer has been revealed.
type GameStateResponse struct {
	State           game.SessionState `json:"state"`
	Players         []game.Player     `json:"players"`
	Teams           []game.Team       `json:"teams"`
	CurrentQuestion *game.Question    `json:"currentQuestion,omitempty"`
}

func handleGameState(session *game.Session, st *store.SQLiteStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := session.State()
		resp := GameStateResponse{
			State:   state,
			Players: session.Players(),
			Teams:   session.Teams(),
		}

		if q, ok := session.CurrentQuestion(); ok && state.FirstQuestionRevealed {
			_, isHost := hostFromRequest(r, st)
			if !isHost && !state.AnswerRevealed {
				q.Answer = ""
				q.Explanation = ""
			}
			resp.CurrentQuestion = &q
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

// LeaderboardEntry is one row of GET /api/game/leaderboard, ordered by
// score descending.
type LeaderboardEntry struct {
	Rank     int    `json:"rank"`
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
	TeamID   string `json:"teamId,omitempty"`
}

func handleLeaderboard(session *game.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		players := session.Players()
		sort.SliceStable(players, func(i, j int) bool { return players[i].Score > players[j].Score })

		entries := make([]LeaderboardEntry, 0, len(players))
		for i, p := range players {
			entries = append(entries, LeaderboardEntry{
				Rank:     i + 1,
				PlayerID: p.ID,
				Name:     p.Name,
				Score:    p.Score,
				TeamID:   p.TeamID,
			})
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

func handleListTeams(session *game.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, session.Teams())
	}
}

func handleUpdateState(session *game.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var delta game.StateDelta
		if err := readJSON(r, &delta); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		writeJSON(w, http.StatusOK, session.ApplyDelta(delta))
	}
}

// GameActionRequest mirrors the websocket GAME_ACTION envelope for REST
// clients.
type GameActionRequest struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func handleGameAction(session *game.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req GameActionRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Action == "" {
			writeError(w, http.StatusBadRequest, "action is required")
			return
		}

		src := game.Source{Role: game.RoleHost}
		if err := session.Dispatch(r.Context(), src, req.Action, req.Payload); err != nil {
			writeError(w, statusForActionError(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, session.State())
	}
}

func handleListAnswers(session *game.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, ok := session.CurrentQuestion()
		if !ok {
			writeError(w, http.StatusNotFound, "no current question")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"questionId": q.ID,
			"answers":    session.Answers(q.ID),
			"pending":    session.PendingAwards(q.ID),
			"buzzes":     session.BuzzOrder(q.ID),
		})
	}
}

func statusForActionError(err error) int {
	switch {
	case errors.Is(err, game.ErrUnknownAction), errors.Is(err, game.ErrInvalidPayload):
		return http.StatusBadRequest
	case errors.Is(err, game.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, game.ErrUnknownPlayer), errors.Is(err, game.ErrUnknownTeam), errors.Is(err, game.ErrNoQuestion):
		return http.StatusNotFound
	case errors.Is(err, game.ErrNotStarted), errors.Is(err, game.ErrAlreadyAnswered),
		errors.Is(err, game.ErrAlreadyBuzzed), errors.Is(err, game.ErrTeamFull),
		errors.Is(err, game.ErrFeudNotActive):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
