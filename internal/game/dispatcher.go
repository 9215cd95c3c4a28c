package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Action names accepted by the dispatcher. Anything outside this set is
// logged and ignored.
const (
	ActionStartGame         = "START_GAME"
	ActionEndGame           = "END_GAME"
	ActionNextSlide         = "NEXT_SLIDE"
	ActionPrevSlide         = "PREV_SLIDE"
	ActionRevealQuestion    = "REVEAL_QUESTION"
	ActionToggleAnswer      = "TOGGLE_ANSWER"
	ActionToggleLeaderboard = "TOGGLE_LEADERBOARD"
	ActionStartTimer        = "START_TIMER"
	ActionStopTimer         = "STOP_TIMER"
	ActionResetTimer        = "RESET_TIMER"
	ActionUpdateSettings    = "UPDATE_SETTINGS"
	ActionPlaylistAdd       = "PLAYLIST_ADD"
	ActionPlaylistRemove    = "PLAYLIST_REMOVE"
	ActionPlaylistSet       = "PLAYLIST_SET"
	ActionClearAnswers      = "CLEAR_ANSWERS"
	ActionSubmitAnswer      = "SUBMIT_ANSWER"
	ActionStageAnswer       = "STAGE_ANSWER"
	ActionSubmitBuzz        = "SUBMIT_BUZZ"
	ActionClearBuzzers      = "CLEAR_BUZZERS"
	ActionAwardPoints       = "AWARD_POINTS"
	ActionAwardTeamPoints   = "AWARD_TEAM_POINTS"
	ActionInitFeud          = "INIT_FEUD"
	ActionAddStrike         = "ADD_STRIKE"
	ActionRemoveStrike      = "REMOVE_STRIKE"
	ActionSwitchTeams       = "SWITCH_TEAMS"
)

// Source identifies who issued an action.
type Source struct {
	PlayerID string
	Role     Role
}

type playlistPayload struct {
	QuestionIDs []string `json:"questionIds"`
}

type answerPayload struct {
	Value string `json:"value"`
}

type awardPointsPayload struct {
	PlayerID   string `json:"playerId"`
	QuestionID string `json:"questionId,omitempty"`
	Points     int    `json:"points"`
}

type awardTeamPointsPayload struct {
	TeamID string `json:"teamId"`
	Points int    `json:"points"`
}

type initFeudPayload struct {
	ActiveTeamID   string `json:"activeTeamId"`
	OpposingTeamID string `json:"opposingTeamId"`
}

func decode[T any](payload json.RawMessage) (T, error) {
	var v T
	if len(payload) == 0 {
		return v, fmt.Errorf("%w: missing payload", ErrInvalidPayload)
	}
	if err := json.Unmarshal(payload, &v); err != nil {
		return v, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return v, nil
}

// Dispatch is the single entry point for every externally-sourced mutation,
// whether it arrived over a socket or the REST surface. Host-only actions
// are rejected for other roles; unknown actions never crash the session.
func (s *Session) Dispatch(ctx context.Context, src Source, name string, payload json.RawMessage) error {
	switch name {
	case ActionSubmitAnswer, ActionStageAnswer, ActionSubmitBuzz:
		return s.dispatchPlayer(ctx, src, name, payload)
	}

	if src.Role != RoleHost {
		return ErrForbidden
	}

	switch name {
	case ActionStartGame:
		s.StartGame(ctx)
		return nil
	case ActionEndGame:
		s.EndGame(ctx)
		return nil
	case ActionNextSlide:
		return s.AdvanceSlide(ctx, +1)
	case ActionPrevSlide:
		return s.AdvanceSlide(ctx, -1)
	case ActionRevealQuestion:
		return s.RevealQuestion()
	case ActionToggleAnswer:
		return s.ToggleAnswer(ctx)
	case ActionToggleLeaderboard:
		s.ToggleLeaderboard()
		return nil
	case ActionStartTimer:
		return s.StartTimer()
	case ActionStopTimer:
		s.StopTimer()
		return nil
	case ActionResetTimer:
		s.ResetTimer()
		return nil
	case ActionUpdateSettings:
		delta, err := decode[SettingsDelta](payload)
		if err != nil {
			return err
		}
		s.ApplyDelta(StateDelta{Settings: &delta})
		return nil
	case ActionPlaylistAdd, ActionPlaylistRemove, ActionPlaylistSet:
		p, err := decode[playlistPayload](payload)
		if err != nil {
			return err
		}
		s.updatePlaylist(name, p.QuestionIDs)
		return nil
	case ActionClearAnswers:
		return s.ClearAnswers(ctx)
	case ActionClearBuzzers:
		return s.ClearBuzzers()
	case ActionAwardPoints:
		p, err := decode[awardPointsPayload](payload)
		if err != nil {
			return err
		}
		return s.AwardPendingPoints(ctx, p.PlayerID, p.QuestionID, p.Points)
	case ActionAwardTeamPoints:
		p, err := decode[awardTeamPointsPayload](payload)
		if err != nil {
			return err
		}
		return s.AwardTeamPoints(ctx, p.TeamID, p.Points)
	case ActionInitFeud:
		p, err := decode[initFeudPayload](payload)
		if err != nil {
			return err
		}
		return s.InitFeud(p.ActiveTeamID, p.OpposingTeamID)
	case ActionAddStrike:
		return s.AddStrike()
	case ActionRemoveStrike:
		return s.RemoveStrike()
	case ActionSwitchTeams:
		return s.SwitchTeams()
	default:
		s.logger.Warn("ignoring unknown action", "action", name, "role", string(src.Role))
		return ErrUnknownAction
	}
}

func (s *Session) dispatchPlayer(ctx context.Context, src Source, name string, payload json.RawMessage) error {
	if src.PlayerID == "" {
		return ErrForbidden
	}
	switch name {
	case ActionSubmitAnswer:
		p, err := decode[answerPayload](payload)
		if err != nil {
			return err
		}
		return s.SubmitAnswer(ctx, src.PlayerID, p.Value)
	case ActionStageAnswer:
		p, err := decode[answerPayload](payload)
		if err != nil {
			return err
		}
		return s.StageAnswer(src.PlayerID, p.Value)
	case ActionSubmitBuzz:
		_, err := s.SubmitBuzz(ctx, src.PlayerID)
		return err
	}
	return ErrUnknownAction
}

func (s *Session) updatePlaylist(name string, questionIDs []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch name {
	case ActionPlaylistSet:
		s.state.Settings.Playlist = append([]string(nil), questionIDs...)
	case ActionPlaylistAdd:
		have := make(map[string]bool, len(s.state.Settings.Playlist))
		for _, id := range s.state.Settings.Playlist {
			have[id] = true
		}
		for _, id := range questionIDs {
			if !have[id] {
				s.state.Settings.Playlist = append(s.state.Settings.Playlist, id)
			}
		}
	case ActionPlaylistRemove:
		drop := make(map[string]bool, len(questionIDs))
		for _, id := range questionIDs {
			drop[id] = true
		}
		kept := s.state.Settings.Playlist[:0]
		for _, id := range s.state.Settings.Playlist {
			if !drop[id] {
				kept = append(kept, id)
			}
		}
		s.state.Settings.Playlist = kept
	}

	// The playlist can shrink under the current slide, or to nothing at all
	// when every ID is unknown; keep the slide in range either way.
	if qs := s.filteredQuestionsLocked(); s.state.SlideIndex >= len(qs) {
		s.state.SlideIndex = len(qs) - 1
		if s.state.SlideIndex < 0 {
			s.state.SlideIndex = 0
		}
	}
	s.broadcastStateLocked()
}

// HandleMessage is the inbound socket path: PING/PONG, partial state
// updates from the host, and game actions. Malformed frames and rejected
// actions are logged and absorbed; they never take the session down.
func (s *Session) HandleMessage(c *Conn, data []byte) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		s.logger.Warn("malformed message", "connection_id", c.ID, "error", err)
		return
	}

	switch env.Type {
	case MsgPing:
		s.registry.Send(c, pongEvent{Type: MsgPong})
	case MsgUpdateState:
		if c.Role != RoleHost {
			s.logger.Warn("state update from non-host ignored", "connection_id", c.ID, "role", string(c.Role))
			return
		}
		var delta StateDelta
		if err := json.Unmarshal(env.State, &delta); err != nil {
			s.logger.Warn("malformed state delta", "connection_id", c.ID, "error", err)
			return
		}
		s.ApplyDelta(delta)
	case MsgGameAction:
		src := Source{PlayerID: c.PlayerID, Role: c.Role}
		err := s.Dispatch(context.Background(), src, env.Action, env.Payload)
		switch {
		case err == nil:
		case errors.Is(err, ErrAlreadyBuzzed), errors.Is(err, ErrAlreadyAnswered):
			// Conflicts are private: tell the sender, nobody else.
			s.registry.Send(c, payloadEvent{Type: "action_rejected", Payload: map[string]string{
				"action": env.Action,
				"reason": err.Error(),
			}})
		default:
			s.logger.Warn("action rejected", "action", env.Action, "connection_id", c.ID, "error", err)
		}
	default:
		s.logger.Warn("unknown message type", "type", env.Type, "connection_id", c.ID)
	}
}
