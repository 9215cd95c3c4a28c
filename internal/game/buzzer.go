package game

import "context"

const feudStrikeLimit = 3

// SubmitBuzz appends a buzz-in for the current question. Order numbers are
// 1-based and strictly increasing; a player can hold at most one slot per
// question, and a repeat buzz is reported back as ErrAlreadyBuzzed without
// disturbing anyone else.
func (s *Session) SubmitBuzz(ctx context.Context, playerID string) (BuzzerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.currentQuestionLocked()
	if !ok {
		if !s.state.Started {
			return BuzzerEntry{}, ErrNotStarted
		}
		return BuzzerEntry{}, ErrNoQuestion
	}
	p, ok := s.players[playerID]
	if !ok {
		return BuzzerEntry{}, ErrUnknownPlayer
	}

	entries := s.buzzes[q.ID]
	for _, e := range entries {
		if e.PlayerID == playerID {
			return BuzzerEntry{}, ErrAlreadyBuzzed
		}
	}

	entry := BuzzerEntry{
		PlayerID:   playerID,
		QuestionID: q.ID,
		TeamID:     p.TeamID,
		Order:      len(entries) + 1,
		BuzzedAt:   s.clock.Now(),
	}
	s.buzzes[q.ID] = append(entries, entry)

	if s.state.Feud.Phase != FeudPhaseIdle {
		s.state.Feud.BuzzOrder = append(s.state.Feud.BuzzOrder, entry)
	}

	s.registry.Broadcast(payloadEvent{Type: MsgBuzzerSubmitted, Payload: buzzerSubmittedPayload{
		PlayerID:   entry.PlayerID,
		QuestionID: entry.QuestionID,
		TeamID:     entry.TeamID,
		Order:      entry.Order,
	}})
	s.broadcastStateLocked()
	return entry, nil
}

// BuzzOrder returns the buzz-in queue for a question, order ascending.
func (s *Session) BuzzOrder(questionID string) []BuzzerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]BuzzerEntry(nil), s.buzzes[questionID]...)
}

// ClearBuzzers wipes the buzz queue for the current question, typically as
// the host moves on.
func (s *Session) ClearBuzzers() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.Started {
		return ErrNotStarted
	}

	if q, ok := s.currentQuestionLocked(); ok {
		delete(s.buzzes, q.ID)
	}
	s.state.Feud.BuzzOrder = nil
	s.state.Feud.CurrentBuzzer = 0

	s.registry.Broadcast(payloadEvent{Type: MsgBuzzersCleared})
	s.broadcastStateLocked()
	return nil
}

// InitFeud resets the whole feud sub-state for a fresh face-off between two
// teams.
func (s *Session) InitFeud(activeTeamID, opposingTeamID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.teams[activeTeamID]; !ok {
		return ErrUnknownTeam
	}
	if _, ok := s.teams[opposingTeamID]; !ok {
		return ErrUnknownTeam
	}

	s.state.Feud = FeudState{
		ActiveTeamID:   activeTeamID,
		OpposingTeamID: opposingTeamID,
		Phase:          FeudPhaseFaceOff,
	}
	s.registry.Broadcast(payloadEvent{Type: MsgFeudUpdated, Payload: s.state.Feud})
	s.broadcastStateLocked()
	return nil
}

// AddStrike increments the strike counter; the third strike hands the board
// to the opposing team.
func (s *Session) AddStrike() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Feud.Phase == FeudPhaseIdle {
		return ErrFeudNotActive
	}

	s.state.Feud.Strikes++
	if s.state.Feud.Strikes >= feudStrikeLimit {
		s.switchTeamsLocked()
	}
	s.registry.Broadcast(payloadEvent{Type: MsgFeudUpdated, Payload: s.state.Feud})
	s.broadcastStateLocked()
	return nil
}

// RemoveStrike decrements the strike counter, floored at zero.
func (s *Session) RemoveStrike() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Feud.Phase == FeudPhaseIdle {
		return ErrFeudNotActive
	}

	if s.state.Feud.Strikes > 0 {
		s.state.Feud.Strikes--
	}
	s.registry.Broadcast(payloadEvent{Type: MsgFeudUpdated, Payload: s.state.Feud})
	s.broadcastStateLocked()
	return nil
}

// SwitchTeams swaps the active and opposing teams immediately.
func (s *Session) SwitchTeams() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Feud.Phase == FeudPhaseIdle {
		return ErrFeudNotActive
	}

	s.switchTeamsLocked()
	s.registry.Broadcast(payloadEvent{Type: MsgFeudUpdated, Payload: s.state.Feud})
	s.broadcastStateLocked()
	return nil
}

func (s *Session) switchTeamsLocked() {
	f := &s.state.Feud
	f.ActiveTeamID, f.OpposingTeamID = f.OpposingTeamID, f.ActiveTeamID
	f.Strikes = 0
	f.TeamAnswers = 0
	f.BuzzOrder = nil
	f.CurrentBuzzer = 0
	f.Phase = FeudPhaseTeamPlay
}
