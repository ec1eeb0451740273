package cli

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/navlock/navlock/internal/bus"
	"github.com/navlock/navlock/internal/config"
	"github.com/navlock/navlock/internal/credentials"
	"github.com/navlock/navlock/internal/evaluator"
	"github.com/navlock/navlock/internal/interceptor"
	"github.com/navlock/navlock/internal/logging"
	"github.com/navlock/navlock/internal/mirror"
	"github.com/navlock/navlock/internal/services"
	"github.com/navlock/navlock/internal/session"
	"github.com/navlock/navlock/internal/storage"
	"github.com/navlock/navlock/internal/vault"
)

// App assembles the engine for interactive use: storage, vault, registries,
// session state, mirror, and interceptor, constructed once at startup and
// torn down on exit.
type App struct {
	config   *config.Config
	store    storage.Manager
	vault    *vault.Vault
	profiles *services.ProfileRegistry
	rules    *services.RuleRegistry
	sessions *session.Manager
	mirror   *mirror.Mirror
	nav      *interceptor.Interceptor
	logger   logging.Logger
	reader   *bufio.Reader

	// checkTabID is the synthetic tab the `check` command navigates in.
	checkTabID int
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	store, err := newStorageManager(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	events := bus.New()
	v := vault.New(store, newCodec(cfg), events, logger)

	profileRegistry := services.NewProfileRegistry(store, v, events, logger)
	ruleRegistry := services.NewRuleRegistry(store, v, events, logger)

	stateRepo := store.State(store.Conn())
	sessions, err := session.New(ctx, stateRepo, logger)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to restore session state: %w", err)
	}

	m, err := mirror.New(ctx, stateRepo, logger)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to restore mirror state: %w", err)
	}
	m.Attach(events)

	eval := evaluator.New(sessions, logger)
	icpt := interceptor.New(
		eval, m, ruleRegistry, v, credentials.VerifyPassword, sessions,
		cfg.BlockedViewURL, cfg.UnlockViewURL, logger,
	)

	return &App{
		config:     cfg,
		store:      store,
		vault:      v,
		profiles:   profileRegistry,
		rules:      ruleRegistry,
		sessions:   sessions,
		mirror:     m,
		nav:        icpt,
		logger:     logger,
		reader:     bufio.NewReader(os.Stdin),
		checkTabID: 1,
	}, nil
}

func newStorageManager(ctx context.Context, cfg *config.Config) (storage.Manager, error) {
	switch cfg.Backend {
	case config.BackendPostgres:
		return storage.NewPostgresManager(ctx, cfg.DatabaseDSN)
	case config.BackendSQLite:
		return storage.NewSQLiteManager(ctx, cfg.DatabaseDSN)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func newCodec(cfg *config.Config) vault.Codec {
	if cfg.Codec == config.CodecCompact {
		return vault.CompactCodec{}
	}
	return vault.JSONCodec{}
}

func (a *App) Run(ctx context.Context) {
	defer a.store.Close()

	if a.config.SweepInterval > 0 {
		go a.sessions.StartSweeper(ctx, a.config.SweepInterval)
	}

	a.Root(ctx)
}

func (a *App) isUnlocked() bool {
	return a.vault.Unlocked()
}

// refreshMirror rebuilds the ephemeral projection from the decrypted store.
// Called after unlock, when the authoritative records first become readable.
func (a *App) refreshMirror(ctx context.Context) error {
	profiles, err := a.profiles.GetAll(ctx)
	if err != nil {
		return err
	}
	rules, err := a.rules.GetAll(ctx)
	if err != nil {
		return err
	}
	return a.mirror.Refresh(ctx, profiles, rules)
}
