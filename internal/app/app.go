package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/questline/partyhub/internal/async"
	"github.com/questline/partyhub/internal/config"
	"github.com/questline/partyhub/internal/identity"
	"github.com/questline/partyhub/internal/identity/sqlite"
	"github.com/questline/partyhub/internal/party"
	transporthttp "github.com/questline/partyhub/internal/transport/http"
	"github.com/questline/partyhub/internal/transport/lobby"
)

// App wires together the party cache, lobby transport and the HTTP surface.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	loop            *async.Loop
	dispatcher      *async.Dispatcher
	pool            *lobby.Pool
	store           identity.Store
	connectCancel   context.CancelFunc
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	accounts := identity.NewService(logger, st)
	if err := accounts.Load(context.Background()); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("warm account cache: %w", err)
	}

	tokens := &identity.TokenConfig{
		Secret:   []byte(cfg.TokenSecret),
		Issuer:   cfg.TokenIssuer,
		Audience: cfg.TokenAudience,
		TTL:      cfg.TokenTTL,
	}

	loop := async.NewLoop(logger, cfg.TaskBuffer)

	// Lobby connections outlive the login request that opens them; they are
	// torn down together when the app shuts down.
	connectCtx, connectCancel := context.WithCancel(context.Background())
	dispatcher := async.NewDispatcher(connectCtx, loop, cfg.OpTimeout)

	registry := party.NewRegistry(party.RegistryConfig{
		Log:        logger,
		Exec:       loop,
		Dispatcher: dispatcher,
		Attributes: accounts,
		Platform:   cfg.Platform,
	})
	pool := lobby.NewPool(logger, cfg.LobbyURL, loop, registry)
	registry.SetBackend(pool)

	accountHandlers := transporthttp.NewAccountHandlers(connectCtx, accounts, pool, tokens, logger)
	partyHandlers := transporthttp.NewPartyHandlers(loop, registry, accounts, logger)
	server := transporthttp.NewServer(*cfg, tokens, accountHandlers, partyHandlers, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		loop:            loop,
		dispatcher:      dispatcher,
		pool:            pool,
		store:           st,
		connectCancel:   connectCancel,
		log:             logger,
	}, nil
}

// Run starts the task loop and HTTP server and blocks until context
// cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := a.loop.Run(ctx); err != nil && ctx.Err() == nil {
			a.log.Error().Err(err).Msg("task loop stopped")
		}
	}()

	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// cleanup closes the lobby connections, in-flight operations and the store.
func (a *App) cleanup() {
	a.connectCancel()
	a.pool.Close()
	a.dispatcher.Wait()

	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
