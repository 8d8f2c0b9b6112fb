// Package journalservice boots the unposted journal service: durable entry
// store, hydrated repository, transcription and insights collaborators, and
// the HTTP surface over them.
package journalservice

import (
	"context"
	"net"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/dhanaBhai/unposted/internal/api"
	"github.com/dhanaBhai/unposted/internal/blob"
	"github.com/dhanaBhai/unposted/internal/config"
	"github.com/dhanaBhai/unposted/internal/cryptox"
	"github.com/dhanaBhai/unposted/internal/insights"
	"github.com/dhanaBhai/unposted/internal/journal"
	"github.com/dhanaBhai/unposted/internal/logger"
	"github.com/dhanaBhai/unposted/internal/store/sqlite"
	"github.com/dhanaBhai/unposted/internal/transcribe"
)

// saltFile sits next to the database; losing it makes sealed audio unreadable.
const saltFile = "unposted.salt"

// Run starts the journal service HTTP server and blocks until shutdown or error.
func Run() error {
	log := logger.New("unposted-service")

	cfg, err := config.New()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return err
	}
	zerolog.SetGlobalLevel(logger.ParseLevel(cfg.LogLevel))

	log.Info().
		Str("environment", string(cfg.Environment)).
		Int("http_port", cfg.HTTPPort).
		Str("sqlite_path", cfg.SQLitePath).
		Str("transcribe_strategy", cfg.TranscribeStrategy).
		Bool("encryption", cfg.EnableEncryption).
		Msg("Journal service starting")

	// Root context bound to SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, cleanup, err := initDependencies(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	router := api.NewRouter(deps)

	server := newHTTPServer(ctx, cfg, router)
	errCh := serveHTTP(server, log, cfg)

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			log.Error().Stack().Err(err).Msg("Server forced to shutdown")
			return err
		}
		log.Info().Msg("Server exited")
		return nil
	case err := <-errCh:
		log.Error().Stack().Err(err).Msg("HTTP server failed")
		return err
	}
}

// initDependencies builds the store, repository and collaborators, failing
// fast when any of them cannot start.
func initDependencies(ctx context.Context, cfg *config.Config, log zerolog.Logger) (api.Deps, func(), error) {
	var opts []sqlite.Option
	if cfg.EnableEncryption {
		sealer, err := newSealer(cfg)
		if err != nil {
			log.Error().Stack().Err(err).Msg("Failed to initialize audio sealer")
			return api.Deps{}, nil, err
		}
		opts = append(opts, sqlite.WithSealer(sealer))
	}

	st, err := sqlite.New(ctx, cfg.SQLitePath, opts...)
	if err != nil {
		log.Error().Stack().Err(err).Msg("Entry store unavailable")
		return api.Deps{}, nil, err
	}
	cleanup := func() {
		if err := st.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close entry store")
		}
	}

	handles := blob.NewRegistry()
	repo := journal.New(st, handles)
	if err := repo.Hydrate(ctx); err != nil {
		log.Error().Stack().Err(err).Msg("Failed to hydrate journal from store")
		cleanup()
		return api.Deps{}, nil, err
	}
	log.Info().Int("entries", len(repo.All())).Msg("Journal hydrated")

	transcriber, err := transcribe.New(cfg)
	if err != nil {
		log.Error().Stack().Err(err).Msg("Failed to configure transcriber")
		cleanup()
		return api.Deps{}, nil, err
	}

	reflector := insights.NewClient(cfg.InsightsURL, cfg.InsightsModel, cfg.InsightsAPIKey)

	return api.Deps{
		Repo:          repo,
		Handles:       handles,
		Store:         st,
		Transcriber:   transcriber,
		Insights:      reflector,
		EncryptAtRest: cfg.EnableEncryption,
	}, cleanup, nil
}

func newSealer(cfg *config.Config) (*cryptox.Sealer, error) {
	salt, err := cryptox.LoadOrCreateSalt(filepath.Join(cfg.DataDir, saltFile))
	if err != nil {
		return nil, err
	}
	key := cryptox.DeriveKey([]byte(cfg.Passphrase), salt)
	return cryptox.NewSealer(key)
}

func newHTTPServer(ctx context.Context, cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.GetHTTPAddr(),
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
}

func serveHTTP(server *http.Server, log zerolog.Logger, cfg *config.Config) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	return errCh
}
