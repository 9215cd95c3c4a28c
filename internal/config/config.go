package config

import (
	"fmt"
	"log/slog"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr string     `env:"HTTP_ADDR" envDefault:":8080"`
	DBPath   string     `env:"DB_PATH" envDefault:"data/quizdeck.db"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`

	// HostPassword seeds the host account on first boot.
	HostPassword string `env:"HOST_PASSWORD" envDefault:"letmein"`

	// MaxTeamSize caps how many players can join a single team.
	MaxTeamSize int `env:"MAX_TEAM_SIZE" envDefault:"8"`

	// ResetPlayersOnEnd clears player scores when the host ends a game.
	ResetPlayersOnEnd bool `env:"RESET_PLAYERS_ON_END" envDefault:"false"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return &cfg, nil
}
