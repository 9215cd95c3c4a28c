package game

import (
	"context"
	"math"
	"sort"
	"strings"
)

// computePoints resolves the points for one correct answer. A locked score
// frozen at submission time wins over everything; otherwise decay scales the
// multiplier by the fraction of time left, never below the configured floor.
func computePoints(set Settings, rec AnswerRecord) int {
	if rec.LockedScore != nil {
		return *rec.LockedScore
	}
	if !set.DecayScoring || rec.TimeLimit <= 0 {
		return set.ScoreMultiplier
	}
	frac := float64(rec.TimeRemaining) / float64(rec.TimeLimit)
	if floor := float64(set.MinScorePercent) / 100; frac < floor {
		frac = floor
	}
	return int(math.Round(float64(set.ScoreMultiplier) * frac))
}

// SubmitAnswer records a player's answer for the current question. Multiple
// choice is judged immediately; open-ended waits for the host. A second
// submission for the same question is rejected.
func (s *Session) SubmitAnswer(ctx context.Context, playerID, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.currentQuestionLocked()
	if !ok {
		if !s.state.Started {
			return ErrNotStarted
		}
		return ErrNoQuestion
	}
	return s.submitAnswerLocked(playerID, q, value)
}

func (s *Session) submitAnswerLocked(playerID string, q Question, value string) error {
	p, ok := s.players[playerID]
	if !ok {
		return ErrUnknownPlayer
	}
	if s.answers[q.ID] == nil {
		s.answers[q.ID] = make(map[string]*AnswerRecord)
	}
	if _, dup := s.answers[q.ID][playerID]; dup {
		return ErrAlreadyAnswered
	}

	rec := &AnswerRecord{
		PlayerID:      playerID,
		QuestionID:    q.ID,
		Value:         value,
		TimeRemaining: s.state.TimerSecondsRemaining,
		TimeLimit:     s.state.Settings.TimeLimitSeconds,
		SubmittedAt:   s.clock.Now(),
	}

	if q.Type != QuestionTypeOpenEnded {
		correct := strings.EqualFold(strings.TrimSpace(value), strings.TrimSpace(q.Answer))
		rec.Correct = &correct
		// Freeze the decayed score now so a late reveal can't shrink it.
		if s.state.Settings.DecayScoring {
			locked := computePoints(s.state.Settings, *rec)
			rec.LockedScore = &locked
		}
	}

	s.answers[q.ID][playerID] = rec
	delete(s.staged, playerID)

	snapshot := *rec
	s.persist("record answer", func(ctx context.Context) error {
		return s.store.RecordAnswer(ctx, snapshot)
	})

	note := answerSubmittedPayload{
		PlayerID:   playerID,
		PlayerName: p.Name,
		QuestionID: q.ID,
	}
	s.registry.BroadcastExceptRole(RoleHost, payloadEvent{Type: MsgPlayerAnswerSubmitted, Payload: note})
	note.Value = value
	s.registry.BroadcastRole(RoleHost, payloadEvent{Type: MsgPlayerAnswerSubmitted, Payload: note})
	return nil
}

// StageAnswer holds a player's in-progress answer without committing it. If
// the timer expires first, staged answers are submitted automatically.
func (s *Session) StageAnswer(playerID, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.Started {
		return ErrNotStarted
	}
	if _, ok := s.players[playerID]; !ok {
		return ErrUnknownPlayer
	}
	s.staged[playerID] = value
	return nil
}

// settleQuestionLocked runs both scoring paths for a question exactly once:
// the objective pass over correct answers, then the pending-points commit.
// Both are internally guarded, so reveal and advance can each call this in
// any order without double-awarding.
func (s *Session) settleQuestionLocked(q Question) {
	for _, rec := range s.sortedAnswersLocked(q.ID) {
		if rec.Scored || rec.Correct == nil || !*rec.Correct {
			continue
		}
		rec.Scored = true

		p, ok := s.players[rec.PlayerID]
		if !ok {
			continue
		}
		p.Score += computePoints(s.state.Settings, *rec)

		playerID, questionID, score := rec.PlayerID, rec.QuestionID, p.Score
		s.persist("mark answer scored", func(ctx context.Context) error {
			return s.store.MarkAnswerScored(ctx, playerID, questionID)
		})
		s.persist("update score", func(ctx context.Context) error {
			return s.store.UpdateScore(ctx, playerID, score)
		})
		s.registry.Broadcast(scoreEvent{Type: MsgPlayerScoreUpdated, PlayerID: playerID, Score: score})
	}

	s.commitPendingLocked(q.ID)
}

func (s *Session) sortedAnswersLocked(questionID string) []*AnswerRecord {
	recs := make([]*AnswerRecord, 0, len(s.answers[questionID]))
	for _, rec := range s.answers[questionID] {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].PlayerID < recs[j].PlayerID })
	return recs
}

// Answers returns the submissions recorded for a question, ordered by
// player id.
func (s *Session) Answers(questionID string) []AnswerRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]AnswerRecord, 0, len(s.answers[questionID]))
	for _, rec := range s.sortedAnswersLocked(questionID) {
		out = append(out, *rec)
	}
	return out
}

// AwardPendingPoints stages host-awarded points for a judged answer.
// Awarding the same player twice accumulates into a single pending record;
// nothing touches the real score until commit.
func (s *Session) AwardPendingPoints(ctx context.Context, playerID, questionID string, points int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.Started {
		return ErrNotStarted
	}
	if _, ok := s.players[playerID]; !ok {
		return ErrUnknownPlayer
	}
	if questionID == "" {
		q, ok := s.currentQuestionLocked()
		if !ok {
			return ErrNoQuestion
		}
		questionID = q.ID
	}

	if s.pending[questionID] == nil {
		s.pending[questionID] = make(map[string]*PendingAward)
	}
	award, ok := s.pending[questionID][playerID]
	if !ok {
		award = &PendingAward{PlayerID: playerID, QuestionID: questionID}
		if rec, ok := s.answers[questionID][playerID]; ok {
			award.AnswerText = rec.Value
		}
		s.pending[questionID][playerID] = award
	}
	award.Points += points

	snapshot := *award
	s.persist("upsert pending points", func(ctx context.Context) error {
		return s.store.UpsertPendingPoints(ctx, snapshot)
	})
	return nil
}

// commitPendingLocked atomically converts every pending award for a question
// into score deltas, emits one score update per player, and deletes the
// pending records. Zero pendings means zero broadcasts, not an error.
func (s *Session) commitPendingLocked(questionID string) {
	pend := s.pending[questionID]
	if len(pend) == 0 {
		return
	}

	playerIDs := make([]string, 0, len(pend))
	for id := range pend {
		playerIDs = append(playerIDs, id)
	}
	sort.Strings(playerIDs)

	updates := make([]ScoreUpdate, 0, len(playerIDs))
	for _, playerID := range playerIDs {
		award := pend[playerID]
		p, ok := s.players[playerID]
		if !ok {
			continue
		}
		p.Score += award.Points
		updates = append(updates, ScoreUpdate{PlayerID: playerID, Points: award.Points, Score: p.Score})

		id, score := playerID, p.Score
		s.persist("update score", func(ctx context.Context) error {
			return s.store.UpdateScore(ctx, id, score)
		})
		s.registry.Broadcast(scoreEvent{Type: MsgPlayerScoreUpdated, PlayerID: id, Score: score})
	}

	delete(s.pending, questionID)
	s.persist("delete pending points", func(ctx context.Context) error {
		return s.store.DeletePendingPoints(ctx, questionID)
	})
	s.registry.Broadcast(pendingCommittedEvent{
		Type:         MsgPendingPointsCommitted,
		QuestionID:   questionID,
		ScoreUpdates: updates,
	})
}

// PendingAwards returns the staged awards for a question, host-eyes only.
func (s *Session) PendingAwards(questionID string) []PendingAward {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PendingAward, 0, len(s.pending[questionID]))
	for _, award := range s.pending[questionID] {
		out = append(out, *award)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlayerID < out[j].PlayerID })
	return out
}

// AwardTeamPoints adds points directly to a team's cumulative score. Feud
// rounds use this when a team wins the board.
func (s *Session) AwardTeamPoints(ctx context.Context, teamID string, points int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.teams[teamID]
	if !ok {
		return ErrUnknownTeam
	}
	t.Score += points

	id, score := teamID, t.Score
	s.persist("update team score", func(ctx context.Context) error {
		return s.store.UpdateTeamScore(ctx, id, score)
	})
	s.registry.Broadcast(payloadEvent{Type: MsgTeamScoreUpdated, Payload: Team{ID: id, Name: t.Name, Color: t.Color, Score: score}})
	return nil
}

// ClearAnswers drops every answer and pending award for the current
// question, in memory and in storage.
func (s *Session) ClearAnswers(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.currentQuestionLocked()
	if !ok {
		if !s.state.Started {
			return ErrNotStarted
		}
		return ErrNoQuestion
	}

	delete(s.answers, q.ID)
	delete(s.pending, q.ID)
	s.persist("clear question answers", func(ctx context.Context) error {
		return s.store.ClearQuestionAnswers(ctx, q.ID)
	})
	s.registry.Broadcast(payloadEvent{Type: MsgAnswersCleared, Payload: map[string]string{"questionId": q.ID}})
	return nil
}
