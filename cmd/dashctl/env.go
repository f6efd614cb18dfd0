package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"trading_dashboard/internal/api"
	"trading_dashboard/internal/auth"
	"trading_dashboard/internal/config"
	"trading_dashboard/internal/database"
	apperrors "trading_dashboard/internal/errors"
	"trading_dashboard/internal/logger"
	"trading_dashboard/internal/repository"
	"trading_dashboard/internal/services"
	"trading_dashboard/internal/session"
)

// env is everything a command needs, opened once per invocation.
type env struct {
	db      *database.DB
	client  *api.Client
	session *session.State
	logger  *logger.Logger

	accounts   *services.AccountService
	portfolios *services.PortfolioService
	views      *services.PortfolioViewService
	trades     *services.TradeService
}

// openEnv loads the configuration, opens the client storage and restores
// the terminal session from it.
func openEnv(ctx context.Context) (*env, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	level := "warn"
	if *verbose {
		level = "debug"
	}
	log := logger.New(level, true).Component("dashctl")

	db, err := database.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening client storage: %w", err)
	}
	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating client storage: %w", err)
	}

	encryptor, err := auth.NewEncryptor(cfg.EncryptionSecret)
	if err != nil {
		db.Close()
		return nil, err
	}

	baseURL := cfg.API.BaseURL
	if *apiURL != "" {
		baseURL = *apiURL
	}
	client := api.NewClient(
		api.WithBaseURL(baseURL),
		api.WithTimeout(cfg.API.GetTimeout()),
		api.WithRateLimit(cfg.API.RateLimit),
		api.WithLogger(log),
	)

	storage := repository.NewClientStorageRepository(db, encryptor)
	state := session.New(storage.TokenStore(repository.CLIScope), client, log)
	if err := state.Restore(ctx); err != nil {
		log.Warn().Err(err).Msg("restoring session")
	}

	return &env{
		db:         db,
		client:     client,
		session:    state,
		logger:     log,
		accounts:   services.NewAccountService(client, log),
		portfolios: services.NewPortfolioService(client, log),
		views:      services.NewPortfolioViewService(client, log),
		trades:     services.NewTradeService(client, log),
	}, nil
}

func (e *env) Close() error {
	return e.db.Close()
}

// requireLogin reports an error when no token is installed.
func (e *env) requireLogin() error {
	if !e.session.IsAuthenticated() {
		return apperrors.Unauthorized("Not logged in. Run 'dashctl login' first.")
	}
	return nil
}

// expired logs the terminal session out when the API rejected its token.
func (e *env) expired(ctx context.Context, err error) {
	if apperrors.IsAPI(err) && apperrors.IsUnauthorized(err) {
		if lerr := e.session.Logout(ctx); lerr != nil {
			e.logger.Warn().Err(lerr).Msg("clearing rejected token")
		}
	}
}

// fail prints the user-facing message of err.
func fail(err error) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error: %s\n", apperrors.UserMessage(err))
	return subcommands.ExitFailure
}

// withEnv opens the environment, runs fn and closes it again.
func withEnv(ctx context.Context, fn func(e *env) subcommands.ExitStatus) subcommands.ExitStatus {
	e, err := openEnv(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer e.Close()
	return fn(e)
}
