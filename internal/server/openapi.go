package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/quizdeck/quizdeck/internal/game"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "QuizDeck API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Backend API for the QuizDeck live trivia server.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of backend dependencies.")
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// GET /ws
	getWS, _ := r.NewOperationContext(http.MethodGet, "/ws")
	getWS.SetSummary("Game websocket")
	getWS.SetDescription("Upgrades to the realtime game connection. Pass role (host, display, player) and playerId as query parameters.")
	getWS.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusSwitchingProtocols),
		openapi.WithContentType("text/plain"))
	getWS.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	getWS.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getWS)

	// POST /api/join
	postJoin, _ := r.NewOperationContext(http.MethodPost, "/api/join")
	postJoin.SetSummary("Join the game")
	postJoin.SetDescription("Registers a player, optionally on a team. Returns the player id used for the websocket connection.")
	postJoin.AddReqStructure(JoinRequest{})
	postJoin.AddRespStructure(JoinResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postJoin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postJoin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	postJoin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postJoin)

	// GET /api/game/state
	getState, _ := r.NewOperationContext(http.MethodGet, "/api/game/state")
	getState.SetSummary("Get game state")
	getState.SetDescription("Returns the session state, roster, and current question. Answers are hidden until revealed unless a host session cookie is present.")
	getState.AddRespStructure(GameStateResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getState)

	// GET /api/game/leaderboard
	getLeaderboard, _ := r.NewOperationContext(http.MethodGet, "/api/game/leaderboard")
	getLeaderboard.SetSummary("Leaderboard")
	getLeaderboard.SetDescription("Returns players ranked by score.")
	getLeaderboard.AddRespStructure([]LeaderboardEntry{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getLeaderboard)

	// GET /api/teams
	getTeams, _ := r.NewOperationContext(http.MethodGet, "/api/teams")
	getTeams.SetSummary("List teams")
	getTeams.SetDescription("Returns the teams players may join.")
	getTeams.AddRespStructure([]game.Team{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getTeams)

	// POST /api/host/login
	postLogin, _ := r.NewOperationContext(http.MethodPost, "/api/host/login")
	postLogin.SetSummary("Host login")
	postLogin.SetDescription("Authenticate with email and password. Sets host_session cookie.")
	postLogin.AddReqStructure(HostLoginRequest{})
	postLogin.AddRespStructure(HostMeResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postLogin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(postLogin)

	// POST /api/host/logout
	postLogout, _ := r.NewOperationContext(http.MethodPost, "/api/host/logout")
	postLogout.SetSummary("Host logout")
	postLogout.SetDescription("Clears host session and cookie.")
	postLogout.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(postLogout)

	// GET /api/host/me
	getMe, _ := r.NewOperationContext(http.MethodGet, "/api/host/me")
	getMe.SetSummary("Current host")
	getMe.SetDescription("Returns the currently authenticated host. Requires host_session cookie.")
	getMe.AddRespStructure(HostMeResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getMe.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(getMe)

	// PATCH /api/host/game/state
	patchState, _ := r.NewOperationContext(http.MethodPatch, "/api/host/game/state")
	patchState.SetSummary("Update game state")
	patchState.SetDescription("Applies a partial state update (settings, leaderboard visibility). Requires host_session cookie.")
	patchState.AddReqStructure(game.StateDelta{})
	patchState.AddRespStructure(game.SessionState{}, openapi.WithHTTPStatus(http.StatusOK))
	patchState.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(patchState)

	// POST /api/host/game/action
	postAction, _ := r.NewOperationContext(http.MethodPost, "/api/host/game/action")
	postAction.SetSummary("Dispatch game action")
	postAction.SetDescription("Runs a game action (start, advance, reveal, award, feud control) outside the websocket. Requires host_session cookie.")
	postAction.AddReqStructure(GameActionRequest{})
	postAction.AddRespStructure(game.SessionState{}, openapi.WithHTTPStatus(http.StatusOK))
	postAction.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postAction.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	postAction.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(postAction)

	// GET /api/host/game/answers
	getAnswers, _ := r.NewOperationContext(http.MethodGet, "/api/host/game/answers")
	getAnswers.SetSummary("Current question answers")
	getAnswers.SetDescription("Returns submissions, pending awards, and buzz order for the current question. Requires host_session cookie.")
	getAnswers.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	getAnswers.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	getAnswers.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(getAnswers)

	// POST /api/host/teams
	postTeam, _ := r.NewOperationContext(http.MethodPost, "/api/host/teams")
	postTeam.SetSummary("Create team")
	postTeam.SetDescription("Creates a team players can join. Requires host_session cookie.")
	postTeam.AddReqStructure(CreateTeamRequest{})
	postTeam.AddRespStructure(game.Team{}, openapi.WithHTTPStatus(http.StatusCreated))
	postTeam.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postTeam.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(postTeam)

	// DELETE /api/host/players
	deletePlayers, _ := r.NewOperationContext(http.MethodDelete, "/api/host/players")
	deletePlayers.SetSummary("Clear players")
	deletePlayers.SetDescription("Removes every player from the roster. Requires host_session cookie.")
	deletePlayers.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	deletePlayers.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(deletePlayers)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
