package game

// Settings are the host-tunable knobs for a session. They ride along in
// every state broadcast so displays can self-configure.
type Settings struct {
	Title            string   `json:"title"`
	Subtitle         string   `json:"subtitle"`
	TimeLimitSeconds int      `json:"timeLimitSeconds"`
	QuestionLimit    int      `json:"questionLimit"` // 0 means no limit
	TimedRounds      bool     `json:"timedRounds"`
	ScoreMultiplier  int      `json:"scoreMultiplier"`
	DecayScoring     bool     `json:"decayScoring"`
	MinScorePercent  int      `json:"minScorePercent"`
	Category         string   `json:"category"` // empty means all categories
	Playlist         []string `json:"playlist"` // explicit question IDs, overrides category
}

func DefaultSettings() Settings {
	return Settings{
		Title:            "Trivia Night",
		TimeLimitSeconds: 30,
		TimedRounds:      true,
		ScoreMultiplier:  10,
		MinScorePercent:  25,
	}
}

type FeudPhase string

const (
	FeudPhaseIdle     FeudPhase = ""
	FeudPhaseFaceOff  FeudPhase = "face_off"
	FeudPhaseTeamPlay FeudPhase = "team_play"
)

// FeudState is the team-vs-team sub-state for buzzer rounds. It has no
// authority of its own: every transition broadcasts through the session.
type FeudState struct {
	ActiveTeamID   string        `json:"activeTeamId"`
	OpposingTeamID string        `json:"opposingTeamId"`
	Phase          FeudPhase     `json:"phase"`
	Strikes        int           `json:"strikes"`
	BuzzOrder      []BuzzerEntry `json:"buzzOrder"`
	CurrentBuzzer  int           `json:"currentBuzzer"`
	TeamAnswers    int           `json:"teamAnswers"`
}

// SessionState is the single authoritative state object. Exactly one exists
// per process; every mutation goes through the Session.
type SessionState struct {
	Started               bool      `json:"started"`
	SlideIndex            int       `json:"slideIndex"`
	FirstQuestionRevealed bool      `json:"firstQuestionRevealed"`
	AnswerRevealed        bool      `json:"answerRevealed"`
	TimerRunning          bool      `json:"timerRunning"`
	LeaderboardVisible    bool      `json:"leaderboardVisible"`
	TimerSecondsRemaining int       `json:"timerSecondsRemaining"`
	Settings              Settings  `json:"settings"`
	Feud                  FeudState `json:"feud"`
}

// clone returns a snapshot safe to hand to other goroutines.
func (st SessionState) clone() SessionState {
	out := st
	if st.Settings.Playlist != nil {
		out.Settings.Playlist = append([]string(nil), st.Settings.Playlist...)
	}
	if st.Feud.BuzzOrder != nil {
		out.Feud.BuzzOrder = append([]BuzzerEntry(nil), st.Feud.BuzzOrder...)
	}
	return out
}

// StateDelta is a partial state update. Only side-effect-free fields are
// settable this way; lifecycle transitions (start, advance, reveal) are
// explicit actions because they carry scoring and timer side effects.
type StateDelta struct {
	LeaderboardVisible *bool          `json:"leaderboardVisible,omitempty"`
	Settings           *SettingsDelta `json:"settings,omitempty"`
}

// SettingsDelta carries only the fields present in an UPDATE_SETTINGS action.
type SettingsDelta struct {
	Title            *string   `json:"title,omitempty"`
	Subtitle         *string   `json:"subtitle,omitempty"`
	TimeLimitSeconds *int      `json:"timeLimitSeconds,omitempty"`
	QuestionLimit    *int      `json:"questionLimit,omitempty"`
	TimedRounds      *bool     `json:"timedRounds,omitempty"`
	ScoreMultiplier  *int      `json:"scoreMultiplier,omitempty"`
	DecayScoring     *bool     `json:"decayScoring,omitempty"`
	MinScorePercent  *int      `json:"minScorePercent,omitempty"`
	Category         *string   `json:"category,omitempty"`
	Playlist         *[]string `json:"playlist,omitempty"`
}

func (s *Settings) apply(d SettingsDelta) {
	if d.Title != nil {
		s.Title = *d.Title
	}
	if d.Subtitle != nil {
		s.Subtitle = *d.Subtitle
	}
	if d.TimeLimitSeconds != nil && *d.TimeLimitSeconds > 0 {
		s.TimeLimitSeconds = *d.TimeLimitSeconds
	}
	if d.QuestionLimit != nil && *d.QuestionLimit >= 0 {
		s.QuestionLimit = *d.QuestionLimit
	}
	if d.TimedRounds != nil {
		s.TimedRounds = *d.TimedRounds
	}
	if d.ScoreMultiplier != nil && *d.ScoreMultiplier > 0 {
		s.ScoreMultiplier = *d.ScoreMultiplier
	}
	if d.DecayScoring != nil {
		s.DecayScoring = *d.DecayScoring
	}
	if d.MinScorePercent != nil && *d.MinScorePercent >= 0 && *d.MinScorePercent <= 100 {
		s.MinScorePercent = *d.MinScorePercent
	}
	if d.Category != nil {
		s.Category = *d.Category
	}
	if d.Playlist != nil {
		s.Playlist = append([]string(nil), (*d.Playlist)...)
	}
}
