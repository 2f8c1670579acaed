package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	_ "github.com/lib/pq"

	"github.com/roach88/badgify/internal/compiler"
	"github.com/roach88/badgify/internal/config"
	"github.com/roach88/badgify/internal/engine"
	"github.com/roach88/badgify/internal/lock"
	"github.com/roach88/badgify/internal/querysql"
	"github.com/roach88/badgify/internal/recipe"
	"github.com/roach88/badgify/internal/store"
)

// app wires the store, recipes and engine for one command invocation.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *store.Store
	registry *recipe.Registry
	engine   *engine.Engine
	closers  []io.Closer
}

// openApp opens the badge store and user database, loads and validates
// the recipes and builds the engine. The caller must Close the app.
func openApp(ctx context.Context, opts *RootOptions) (*app, error) {
	cfg := opts.Config
	a := &app{cfg: cfg, logger: opts.Logger}

	specs, err := loadValidRecipes(cfg.RecipesDir)
	if err != nil {
		return nil, err
	}

	a.logger.Debug("opening badge database", "path", cfg.DBPath)
	st, err := store.Open(cfg.DBPath, store.WithLogger(a.logger))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open badge database", err)
	}
	a.store = st
	a.closers = append(a.closers, st)

	userDB, dialect, err := a.openUserDB(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.registry = recipe.NewRegistry().WithLogger(a.logger)
	for _, spec := range specs {
		rec, err := recipe.NewQuery(spec, dialect)
		if err != nil {
			a.Close()
			return nil, WrapExitError(ExitFailure, "invalid recipe", err)
		}
		if err := a.registry.Register(rec); err != nil {
			a.Close()
			return nil, WrapExitError(ExitFailure, "invalid recipe", err)
		}
	}
	a.logger.Debug("recipes loaded", "count", a.registry.Len(), "dir", cfg.RecipesDir)

	engineOpts := []engine.EngineOption{
		engine.WithUserDB(userDB),
		engine.WithLogger(a.logger),
		engine.WithSalvageDuplicates(cfg.SalvageDuplicates),
	}
	if cfg.AutoDenormalize {
		engineOpts = append(engineOpts, engine.WithListener(engine.NewCounter(st)))
	}
	if cfg.RedisURL != "" {
		client, err := lock.Connect(ctx, cfg.RedisURL, a.logger)
		if err != nil {
			a.Close()
			return nil, WrapExitError(ExitCommandError, "failed to connect to redis", err)
		}
		a.closers = append(a.closers, client)
		engineOpts = append(engineOpts, engine.WithLocker(lock.NewRedis(client, cfg.LockTTL).WithLogger(a.logger)))
	}

	a.engine = engine.New(st, a.registry, engineOpts...)
	return a, nil
}

// openUserDB returns the database membership queries run on. Without a
// configured driver the badge database itself is used.
func (a *app) openUserDB(ctx context.Context) (recipe.Querier, querysql.Dialect, error) {
	if a.cfg.UserDBDriver == "" {
		return a.store.DB(), querysql.SQLite, nil
	}

	dialect, err := querysql.DialectFor(a.cfg.UserDBDriver)
	if err != nil {
		return nil, "", WrapExitError(ExitCommandError, "unsupported user database driver", err)
	}

	db, err := sql.Open(a.cfg.UserDBDriver, a.cfg.UserDBDSN)
	if err != nil {
		return nil, "", WrapExitError(ExitCommandError, "failed to open user database", err)
	}
	a.closers = append(a.closers, db)

	if err := db.PingContext(ctx); err != nil {
		return nil, "", WrapExitError(ExitCommandError, "failed to reach user database", err)
	}
	return db, dialect, nil
}

// Close releases everything openApp opened, in reverse order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Error("error closing resource", "error", err)
		}
	}
	a.closers = nil
}

// loadValidRecipes loads every recipe in dir and rejects the set if any
// recipe fails to compile or validate.
func loadValidRecipes(dir string) ([]recipe.Spec, error) {
	result, loadErrs := LoadRecipes(dir, LoadModeCollectAll)
	if result == nil {
		return nil, WrapExitError(ExitCommandError, "failed to load recipes", loadErrs[0])
	}
	if len(loadErrs) > 0 {
		return nil, WrapExitError(ExitFailure, "invalid recipes", errors.Join(loadErrs...))
	}

	if verrs := compiler.ValidateAll(result.Specs); len(verrs) > 0 {
		msgs := make([]string, len(verrs))
		for i, v := range verrs {
			msgs[i] = v.Error()
		}
		return nil, NewExitError(ExitFailure, fmt.Sprintf("invalid recipes:\n  %s", strings.Join(msgs, "\n  ")))
	}
	return result.Specs, nil
}
