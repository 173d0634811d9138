// Package app assembles a tracker.Service from configuration. Both the
// server and taskctl start here.
package app

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/jackc/pgx/v5/pgxpool"

	"taskboard/internal/config"
	"taskboard/internal/db"
	"taskboard/pkg/suggest"
	"taskboard/pkg/task"
	"taskboard/pkg/tracker"
	"taskboard/pkg/user"
)

// App owns the opened resources behind a Service.
type App struct {
	Config  *config.Config
	Service *tracker.Service
	Store   task.Store

	log  *log.Logger
	pool *pgxpool.Pool
}

// Open connects the configured store, user directory and suggester.
func Open(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	a := &App{Config: cfg, log: logger}

	if cfg.Store.Driver == config.DriverPostgres {
		pool, err := db.Connect(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect: %w", err)
		}
		a.pool = pool
	}

	store, err := a.openStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Store = store

	users, err := a.openUsers(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Service = tracker.New(store, users, NewSuggester(cfg.Suggest), tracker.Options{
		Scale:          task.Scale(cfg.Points.Scale),
		StoreTimeout:   cfg.Store.Timeout.Duration,
		SuggestTimeout: cfg.Suggest.Timeout.Duration,
		MaxRetries:     cfg.Store.MaxRetries,
		MaxSuggestions: cfg.Suggest.MaxSuggestions,
		Logger:         logger.WithPrefix("tracker"),
	})
	return a, nil
}

// Close releases the store and the database pool.
func (a *App) Close() {
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.log.Warn("close store", "err", err)
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}

func (a *App) openStore(ctx context.Context) (task.Store, error) {
	cfg := a.Config.Store
	switch cfg.Driver {
	case config.DriverMemory:
		return task.NewMemStore(), nil
	case config.DriverFile:
		return task.NewFileStore(cfg.Path), nil
	case config.DriverSQLite:
		s, err := task.NewSQLiteStore(cfg.Path, cfg.Document)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store %s: %w", cfg.Path, err)
		}
		return s, nil
	case config.DriverPostgres:
		s := task.NewPgStore(a.pool, cfg.Document)
		if err := s.EnsureTable(ctx); err != nil {
			return nil, fmt.Errorf("ensure task_documents table: %w", err)
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}

// openUsers picks the user directory. With the postgres driver the users
// table is the directory and configured users are registered into it.
func (a *App) openUsers(ctx context.Context) (user.Directory, error) {
	var users user.Static
	switch {
	case a.Config.UsersFile != "":
		loaded, err := user.LoadFile(a.Config.UsersFile)
		if err != nil {
			return nil, err
		}
		users = loaded
	default:
		users = user.Static(a.Config.Users)
	}

	if a.pool == nil {
		return users, nil
	}
	pg := user.NewPgStore(a.pool)
	if err := pg.EnsureTable(ctx); err != nil {
		return nil, fmt.Errorf("ensure users table: %w", err)
	}
	for _, u := range users {
		if _, err := pg.Register(ctx, u); err != nil {
			return nil, err
		}
	}
	return pg, nil
}

// NewSuggester returns the configured suggestion client, or nil when
// suggestions are off.
func NewSuggester(cfg config.SuggestConfig) suggest.Suggester {
	switch cfg.Mode {
	case config.SuggestCommand:
		return &suggest.CommandSuggester{
			Binary:  cfg.Binary,
			Args:    cfg.Args,
			Timeout: cfg.Timeout.Duration,
		}
	case config.SuggestHTTP:
		return suggest.NewHTTPSuggester(cfg.URL, cfg.Timeout.Duration)
	}
	return nil
}
