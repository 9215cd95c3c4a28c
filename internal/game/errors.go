package game

import "errors"

var (
	ErrUnknownAction   = errors.New("unknown action")
	ErrInvalidPayload  = errors.New("invalid action payload")
	ErrForbidden       = errors.New("action not allowed for this role")
	ErrNotStarted      = errors.New("game not started")
	ErrNoQuestion      = errors.New("no current question")
	ErrAlreadyAnswered = errors.New("already answered")
	ErrAlreadyBuzzed   = errors.New("already buzzed")
	ErrUnknownPlayer   = errors.New("unknown player")
	ErrUnknownTeam     = errors.New("unknown team")
	ErrTeamFull        = errors.New("team is full")
	ErrFeudNotActive   = errors.New("feud round not active")
)
