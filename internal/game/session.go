package game

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

const persistTimeout = 5 * time.Second

// Options configures a Session.
type Options struct {
	Logger            *slog.Logger
	Clock             clockwork.Clock // nil means wall clock
	Store             Store
	Questions         QuestionProvider
	MaxTeamSize       int
	ResetPlayersOnEnd bool
}

// Session owns the one live game. All mutations funnel through its mutex so
// two actions are never applied as an interleaved half-update; broadcasts
// are taken from a snapshot and fanned out without blocking the next action.
type Session struct {
	logger    *slog.Logger
	clock     clockwork.Clock
	store     Store
	questions QuestionProvider
	registry  *Registry
	timer     *Timer

	maxTeamSize       int
	resetPlayersOnEnd bool

	mu      sync.Mutex
	state   SessionState
	players map[string]*Player
	teams   map[string]*Team
	answers map[string]map[string]*AnswerRecord // question → player → record
	pending map[string]map[string]*PendingAward // question → player → award
	buzzes  map[string][]BuzzerEntry            // question → ordered entries
	staged  map[string]string                   // player → unconfirmed answer text
	bank    []Question
}

func NewSession(opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	s := &Session{
		logger:            logger,
		clock:             clock,
		store:             opts.Store,
		questions:         opts.Questions,
		maxTeamSize:       opts.MaxTeamSize,
		resetPlayersOnEnd: opts.ResetPlayersOnEnd,
		state: SessionState{
			Settings: DefaultSettings(),
		},
		players: make(map[string]*Player),
		teams:   make(map[string]*Team),
		answers: make(map[string]map[string]*AnswerRecord),
		pending: make(map[string]map[string]*PendingAward),
		buzzes:  make(map[string][]BuzzerEntry),
		staged:  make(map[string]string),
	}
	s.state.TimerSecondsRemaining = s.state.Settings.TimeLimitSeconds

	s.registry = NewRegistry(logger)
	s.registry.SetHandlers(s.HandleMessage, s.handleDisconnect)
	s.timer = NewTimer(clock, s.tick, s.timerExpired)
	return s
}

// Registry exposes the connection registry so the HTTP layer can attach
// websocket clients.
func (s *Session) Registry() *Registry { return s.registry }

// State returns a snapshot of the current session state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// ReloadQuestions refreshes the cached question bank from the provider.
func (s *Session) ReloadQuestions(ctx context.Context) error {
	qs, err := s.questions.AllQuestions(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.bank = qs
	s.mu.Unlock()
	return nil
}

// SeedRoster installs players and teams loaded from storage at boot.
func (s *Session) SeedRoster(players []Player, teams []Team) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range players {
		p := players[i]
		p.Connected = false
		s.players[p.ID] = &p
	}
	for i := range teams {
		t := teams[i]
		s.teams[t.ID] = &t
	}
}

// ApplyDelta merges a partial state update and broadcasts the new canonical
// state. Lifecycle fields are not reachable this way.
func (s *Session) ApplyDelta(delta StateDelta) SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if delta.LeaderboardVisible != nil {
		s.state.LeaderboardVisible = *delta.LeaderboardVisible
	}
	if delta.Settings != nil {
		s.state.Settings.apply(*delta.Settings)
	}
	s.broadcastStateLocked()
	return s.state.clone()
}

// StartGame begins a fresh run: slide zero, flags cleared, timer reset, and
// every answer and pending award from a previous night wiped before the
// first question is shown.
func (s *Session) StartGame(ctx context.Context) {
	if err := s.ReloadQuestions(ctx); err != nil {
		s.logger.Error("reloading question bank", "error", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.timer.Stop()
	s.state.Started = true
	s.state.SlideIndex = 0
	s.state.FirstQuestionRevealed = false
	s.state.AnswerRevealed = false
	s.state.LeaderboardVisible = false
	s.state.TimerRunning = false
	s.state.TimerSecondsRemaining = s.state.Settings.TimeLimitSeconds
	s.state.Feud = FeudState{}
	s.clearRecordsLocked()

	s.persist("clear answers", func(ctx context.Context) error { return s.store.ClearAnswers(ctx) })
	s.registry.Broadcast(payloadEvent{Type: MsgAllAnswersCleared})
	s.broadcastStateLocked()
}

// EndGame is the inverse of StartGame.
func (s *Session) EndGame(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.timer.Stop()
	s.state.Started = false
	s.state.SlideIndex = 0
	s.state.FirstQuestionRevealed = false
	s.state.AnswerRevealed = false
	s.state.TimerRunning = false
	s.state.TimerSecondsRemaining = s.state.Settings.TimeLimitSeconds
	s.state.Feud = FeudState{}
	s.clearRecordsLocked()

	if s.resetPlayersOnEnd {
		for _, p := range s.players {
			p.Score = 0
		}
		s.persist("reset player scores", func(ctx context.Context) error { return s.store.ResetPlayerScores(ctx) })
	}

	s.persist("clear answers", func(ctx context.Context) error { return s.store.ClearAnswers(ctx) })
	s.registry.Broadcast(payloadEvent{Type: MsgAllAnswersCleared})
	s.broadcastStateLocked()
}

func (s *Session) clearRecordsLocked() {
	s.answers = make(map[string]map[string]*AnswerRecord)
	s.pending = make(map[string]map[string]*PendingAward)
	s.buzzes = make(map[string][]BuzzerEntry)
	s.staged = make(map[string]string)
}

// AdvanceSlide moves the slide index by dir (+1 or -1). Scoring for the
// question being left is finalized first, so a host advancing without
// revealing can never silently drop awards.
func (s *Session) AdvanceSlide(ctx context.Context, dir int) error {
	if dir != 1 && dir != -1 {
		return ErrInvalidPayload
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.Started {
		return ErrNotStarted
	}

	leaving, hasLeaving := s.currentQuestionLocked()
	if hasLeaving {
		s.settleQuestionLocked(leaving)
	}

	qs := s.filteredQuestionsLocked()
	idx := s.state.SlideIndex + dir
	if idx >= len(qs) {
		idx = len(qs) - 1
	}
	if idx < 0 {
		idx = 0
	}
	if idx != s.state.SlideIndex {
		// Buzz state is per question; leaving the slide resets the queue so
		// a revisit starts from a clean board.
		if hasLeaving {
			delete(s.buzzes, leaving.ID)
		}
		s.state.Feud.BuzzOrder = nil
		s.state.Feud.CurrentBuzzer = 0
	}
	s.state.SlideIndex = idx

	s.timer.Stop()
	s.state.TimerRunning = false
	s.state.TimerSecondsRemaining = s.state.Settings.TimeLimitSeconds
	s.state.AnswerRevealed = false
	s.staged = make(map[string]string)

	s.broadcastStateLocked()
	return nil
}

// RevealQuestion shows the question without starting the timer. Used when
// timed rounds are disabled.
func (s *Session) RevealQuestion() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.Started {
		return ErrNotStarted
	}
	s.state.FirstQuestionRevealed = true
	s.broadcastStateLocked()
	return nil
}

// ToggleAnswer flips answer visibility. The transition to revealed settles
// scoring for the current question; toggling again is harmless because
// settled records never re-award.
func (s *Session) ToggleAnswer(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.Started {
		return ErrNotStarted
	}

	revealing := !s.state.AnswerRevealed
	s.state.AnswerRevealed = revealing
	if revealing {
		if q, ok := s.currentQuestionLocked(); ok {
			s.settleQuestionLocked(q)
		}
	}
	s.broadcastStateLocked()
	return nil
}

// ToggleLeaderboard flips the leaderboard flag. Pure UI, no scoring.
func (s *Session) ToggleLeaderboard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.LeaderboardVisible = !s.state.LeaderboardVisible
	s.broadcastStateLocked()
}

// StartTimer begins the countdown for the current question. Idempotent: a
// running timer is left alone.
func (s *Session) StartTimer() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.Started {
		return ErrNotStarted
	}
	if s.state.TimerRunning {
		return nil
	}
	if s.state.TimerSecondsRemaining <= 0 {
		s.state.TimerSecondsRemaining = s.state.Settings.TimeLimitSeconds
	}
	s.state.FirstQuestionRevealed = true
	s.state.TimerRunning = true
	s.timer.Start()
	s.broadcastStateLocked()
	return nil
}

// StopTimer halts the countdown, discarding any pending tick.
func (s *Session) StopTimer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timer.Stop()
	s.state.TimerRunning = false
	s.broadcastStateLocked()
}

// ResetTimer stops the countdown and restores the configured limit.
func (s *Session) ResetTimer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timer.Stop()
	s.state.TimerRunning = false
	s.state.TimerSecondsRemaining = s.state.Settings.TimeLimitSeconds
	s.broadcastStateLocked()
}

// tick is the raw tick path: decrement and broadcast, nothing else. It must
// never trigger scoring or timer lifecycle. Returns false once the
// countdown is exhausted.
func (s *Session) tick(live func() bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !live() {
		// The tick was queued before a stop (or stop/start) took effect and
		// blocked on the lock in between. TimerRunning may already be true
		// again for a fresh countdown, so the generation check is the only
		// reliable signal. Returning false retires the stale loop; its
		// expiry hook is gated by the same check.
		return false
	}
	if !s.state.TimerRunning {
		// Stale tick racing a lifecycle stop; drop it.
		return true
	}
	if s.state.TimerSecondsRemaining > 0 {
		s.state.TimerSecondsRemaining--
	}
	s.broadcastStateLocked()
	return s.state.TimerSecondsRemaining > 0
}

// timerExpired is the lifecycle path taken when the countdown hits zero:
// any staged, unconfirmed answers are auto-submitted on the player's behalf.
func (s *Session) timerExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.TimerRunning = false
	if q, ok := s.currentQuestionLocked(); ok {
		for playerID, value := range s.staged {
			if err := s.submitAnswerLocked(playerID, q, value); err != nil {
				s.logger.Debug("auto-submit skipped", "player_id", playerID, "error", err)
			}
		}
	}
	s.staged = make(map[string]string)
	s.broadcastStateLocked()
}

// JoinPlayer registers a player, optionally onto a team (capped by the
// configured size limit).
func (s *Session) JoinPlayer(ctx context.Context, name, teamID string) (Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if teamID != "" {
		if _, ok := s.teams[teamID]; !ok {
			return Player{}, ErrUnknownTeam
		}
		members := 0
		for _, p := range s.players {
			if p.TeamID == teamID {
				members++
			}
		}
		if s.maxTeamSize > 0 && members >= s.maxTeamSize {
			return Player{}, ErrTeamFull
		}
	}

	p := &Player{
		ID:        uuid.NewString(),
		Name:      name,
		TeamID:    teamID,
		Connected: false,
	}
	s.players[p.ID] = p

	snapshot := *p
	s.persist("save player", func(ctx context.Context) error {
		return s.store.SavePlayer(ctx, snapshot)
	})
	s.registry.Broadcast(payloadEvent{Type: msgPlayerJoined, Payload: snapshot})
	return snapshot, nil
}

// AddTeam registers a team.
func (s *Session) AddTeam(t Team) {
	s.mu.Lock()
	defer s.mu.Unlock()
	team := t
	s.teams[t.ID] = &team
}

// ClearPlayers removes the whole roster. Only an explicit admin action
// reaches this; players are never deleted otherwise.
func (s *Session) ClearPlayers(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players = make(map[string]*Player)
	s.clearRecordsLocked()
	s.persist("delete players", func(ctx context.Context) error { return s.store.DeleteAllPlayers(ctx) })
	s.broadcastStateLocked()
}

// PlayerConnected flags a player's connectivity and persists it.
func (s *Session) PlayerConnected(playerID string, connected bool) {
	if playerID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[playerID]
	if !ok {
		return
	}
	p.Connected = connected
	s.persist("set player connected", func(ctx context.Context) error {
		return s.store.SetPlayerConnected(ctx, playerID, connected)
	})
}

func (s *Session) handleDisconnect(c *Conn) {
	s.PlayerConnected(c.PlayerID, false)
}

// Player looks up a single roster entry.
func (s *Session) Player(playerID string) (Player, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[playerID]
	if !ok {
		return Player{}, false
	}
	return *p, true
}

// SendState pushes the current state snapshot to one connection. Used right
// after a websocket upgrade so new clients render without waiting for the
// next broadcast.
func (s *Session) SendState(c *Conn) {
	s.mu.Lock()
	snapshot := s.state.clone()
	s.mu.Unlock()
	s.registry.Send(c, stateEvent{Type: MsgGameStateUpdate, State: snapshot})
}

// Players returns the roster sorted by score descending, then name.
func (s *Session) Players() []Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Player, 0, len(s.players))
	for _, p := range s.players {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Teams returns the teams sorted by score descending, then name.
func (s *Session) Teams() []Team {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Team, 0, len(s.teams))
	for _, t := range s.teams {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// CurrentQuestion returns the question at the current slide, if any.
func (s *Session) CurrentQuestion() (Question, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentQuestionLocked()
}

func (s *Session) currentQuestionLocked() (Question, bool) {
	if !s.state.Started {
		return Question{}, false
	}
	qs := s.filteredQuestionsLocked()
	if s.state.SlideIndex < 0 || s.state.SlideIndex >= len(qs) {
		return Question{}, false
	}
	return qs[s.state.SlideIndex], true
}

// filteredQuestionsLocked applies the playlist, category filter, and
// question limit to the cached bank. An explicit playlist overrides the
// category filter.
func (s *Session) filteredQuestionsLocked() []Question {
	set := s.state.Settings

	var out []Question
	if len(set.Playlist) > 0 {
		byID := make(map[string]Question, len(s.bank))
		for _, q := range s.bank {
			byID[q.ID] = q
		}
		for _, id := range set.Playlist {
			if q, ok := byID[id]; ok {
				out = append(out, q)
			}
		}
	} else if set.Category != "" {
		for _, q := range s.bank {
			if strings.EqualFold(q.Category, set.Category) {
				out = append(out, q)
			}
		}
	} else {
		out = s.bank
	}

	if set.QuestionLimit > 0 && len(out) > set.QuestionLimit {
		out = out[:set.QuestionLimit]
	}
	return out
}

func (s *Session) broadcastStateLocked() {
	s.registry.Broadcast(stateEvent{Type: MsgGameStateUpdate, State: s.state.clone()})
}

// persist runs a storage write detached from the caller: in-memory state
// and broadcasts never wait on the database, and a disconnecting client
// cannot cancel the write. Failures are logged and the game flows on.
func (s *Session) persist(op string, fn func(ctx context.Context) error) {
	if s.store == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			s.logger.Error("persistence failed", "op", op, "error", err)
		}
	}()
}
