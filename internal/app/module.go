package app

import (
	"context"
	"fmt"
	"io"

	"github.com/alexcole/firechat/internal/bus"
	"github.com/alexcole/firechat/internal/config"
	"github.com/alexcole/firechat/internal/identity"
	"github.com/alexcole/firechat/internal/lock"
	"github.com/alexcole/firechat/internal/logging"
	"github.com/alexcole/firechat/internal/session"
	"github.com/alexcole/firechat/internal/status"
	"github.com/alexcole/firechat/internal/store"
	intsync "github.com/alexcole/firechat/internal/sync"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved session configuration passed to the fx module.
type Params struct {
	SessionName string
	Config      *config.Config
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideBus,
			provideStateMachine,
			provideLock,
			provideIdentity,
			provideStore,
			provideConversations,
			provideMessages,
			provideEngine,
			provideDirectory,
			provideWatcher,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(session.LogPath(p.SessionName), p.SessionName)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := session.EnsureDir(p.SessionName); err != nil {
		return nil, err
	}
	logger.Info("acquiring session lock", zap.String("session", p.SessionName))
	l, err := lock.Acquire(session.LockPath(p.SessionName))
	if err != nil {
		return nil, err
	}
	logger.Info("session lock acquired")
	return l, nil
}

func provideIdentity(p Params) (identity.Identity, error) {
	id := identity.FromEmail(p.Config.Identity.Email, p.Config.Identity.Name)
	if !id.Valid() {
		return identity.Identity{}, fmt.Errorf("no identity configured: set identity.email in %s", session.ConfigPath())
	}
	return id, nil
}

func provideStore(p Params, b *bus.Bus, logger *zap.Logger) (store.Store, error) {
	switch p.Config.Store.Backend {
	case "", "sqlite":
		path := session.StorePath(p.SessionName)
		s, err := store.OpenSQLite(path, b)
		if err != nil {
			return nil, err
		}
		result, err := s.Migrate()
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		if result.Changed {
			logger.Info("migrations applied", zap.Uint("version", result.Version))
		} else {
			logger.Info("migrations up to date", zap.Uint("version", result.Version))
		}
		logger.Info("store initialized", zap.String("backend", "sqlite"), zap.String("path", path))
		return s, nil
	case "postgres":
		s, err := store.OpenPostgres(context.Background(), p.Config.Store.DSN, b)
		if err != nil {
			return nil, err
		}
		logger.Info("store initialized", zap.String("backend", "postgres"))
		return s, nil
	case "memory":
		logger.Info("store initialized", zap.String("backend", "memory"))
		return store.NewMemory(b), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", p.Config.Store.Backend)
	}
}

func provideConversations(s store.Store, logger *zap.Logger) *intsync.Conversations {
	return intsync.NewConversations(s, logger)
}

func provideMessages(s store.Store, logger *zap.Logger) *intsync.Messages {
	return intsync.NewMessages(s, logger)
}

func provideEngine(convs *intsync.Conversations, msgs *intsync.Messages, b *bus.Bus, logger *zap.Logger) *intsync.Engine {
	return intsync.NewEngine(convs, msgs, b, logger)
}

func provideDirectory(s store.Store, logger *zap.Logger) *intsync.Directory {
	return intsync.NewDirectory(s, logger)
}

func provideWatcher(s store.Store, id identity.Identity, logger *zap.Logger) *Watcher {
	return NewWatcher(s, id, logger)
}

func registerLifecycle(lc fx.Lifecycle, p Params, s store.Store, lk *lock.Lock, watcher *Watcher, machine *status.Machine, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			_ = machine.Transition(status.Opening)

			if err := watcher.Start(context.Background()); err != nil {
				_ = machine.Transition(status.Error)
				return err
			}

			_ = machine.Transition(status.Watching)
			logger.Info("daemon started", zap.String("session", p.SessionName))
			return nil
		},
		OnStop: func(_ context.Context) error {
			watcher.Stop()
			_ = machine.Transition(status.Stopped)
			if c, ok := s.(io.Closer); ok {
				if err := c.Close(); err != nil {
					logger.Warn("error closing store", zap.Error(err))
				}
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}
