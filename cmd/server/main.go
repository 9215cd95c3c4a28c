package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/quizdeck/quizdeck/internal/config"
	"github.com/quizdeck/quizdeck/internal/database"
	"github.com/quizdeck/quizdeck/internal/game"
	"github.com/quizdeck/quizdeck/internal/migrations"
	"github.com/quizdeck/quizdeck/internal/server"
	"github.com/quizdeck/quizdeck/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	// Local development convenience; missing file is fine.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// --- SQLite ---
	db, err := database.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer db.Close()

	if err := migrations.Run(ctx, db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("connected to sqlite", "path", cfg.DBPath)

	st := store.New(db)

	if err := server.Seed(ctx, logger, st, cfg.HostPassword); err != nil {
		return fmt.Errorf("seeding: %w", err)
	}

	// --- Game session ---
	session := game.NewSession(game.Options{
		Logger:            logger,
		Store:             st,
		Questions:         st,
		MaxTeamSize:       cfg.MaxTeamSize,
		ResetPlayersOnEnd: cfg.ResetPlayersOnEnd,
	})
	if err := session.ReloadQuestions(ctx); err != nil {
		return fmt.Errorf("loading question bank: %w", err)
	}

	players, err := st.LoadPlayers(ctx)
	if err != nil {
		return fmt.Errorf("loading players: %w", err)
	}
	teams, err := st.LoadTeams(ctx)
	if err != nil {
		return fmt.Errorf("loading teams: %w", err)
	}
	session.SeedRoster(players, teams)
	logger.Info("session ready", "players", len(players), "teams", len(teams))

	// --- HTTP server ---
	srv := server.New(cfg.HTTPAddr, logger, session, st, db)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}
