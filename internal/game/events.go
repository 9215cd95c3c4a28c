package game

import "encoding/json"

// Client → server message types.
const (
	MsgPing        = "PING"
	MsgUpdateState = "UPDATE_STATE"
	MsgGameAction  = "GAME_ACTION"
)

// Server → client event types.
const (
	MsgPong                   = "PONG"
	MsgGameStateUpdate        = "GAME_STATE_UPDATE"
	MsgPlayerScoreUpdated     = "player_score_updated"
	MsgPlayerAnswerSubmitted  = "player_answer_submitted"
	MsgAnswersCleared         = "answers_cleared"
	MsgAllAnswersCleared      = "all_answers_cleared"
	MsgPendingPointsCommitted = "pending_points_committed"
	MsgBuzzerSubmitted        = "buzzer_submitted"
	MsgBuzzersCleared         = "buzzers_cleared"
	MsgFeudUpdated            = "feud_updated"
	MsgTeamScoreUpdated       = "team_score_updated"

	msgPlayerJoined = "player_joined"
)

// Envelope frames every inbound socket message.
type Envelope struct {
	Type    string          `json:"type"`
	State   json.RawMessage `json:"state,omitempty"`
	Action  string          `json:"action,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type pongEvent struct {
	Type string `json:"type"`
}

type stateEvent struct {
	Type  string       `json:"type"`
	State SessionState `json:"state"`
}

type scoreEvent struct {
	Type     string `json:"type"`
	PlayerID string `json:"playerId"`
	Score    int    `json:"score"`
}

// ScoreUpdate is one player's delta applied during a pending-points commit.
type ScoreUpdate struct {
	PlayerID string `json:"playerId"`
	Points   int    `json:"points"`
	Score    int    `json:"score"`
}

type pendingCommittedEvent struct {
	Type         string        `json:"type"`
	QuestionID   string        `json:"questionId"`
	ScoreUpdates []ScoreUpdate `json:"scoreUpdates"`
}

type payloadEvent struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type answerSubmittedPayload struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	QuestionID string `json:"questionId"`
	// Value is only included on the host copy of the event.
	Value string `json:"value,omitempty"`
}

type buzzerSubmittedPayload struct {
	PlayerID   string `json:"playerId"`
	QuestionID string `json:"questionId"`
	TeamID     string `json:"teamId,omitempty"`
	Order      int    `json:"order"`
}
