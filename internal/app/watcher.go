package app

import (
	"context"
	"encoding/json"

	"github.com/alexcole/firechat/internal/chat"
	"github.com/alexcole/firechat/internal/identity"
	"github.com/alexcole/firechat/internal/store"
	"go.uber.org/zap"
)

// Watcher observes the configured identity's conversation list and logs
// incoming activity. It is the daemon's long-running foreground concern.
type Watcher struct {
	store  store.Store
	self   identity.Identity
	logger *zap.Logger
	cancel context.CancelFunc

	// last seen latest-message date per conversation id
	seen map[string]string
}

// NewWatcher creates a watcher for self's conversation list.
func NewWatcher(s store.Store, self identity.Identity, logger *zap.Logger) *Watcher {
	return &Watcher{
		store:  s,
		self:   self,
		logger: logger,
		seen:   make(map[string]string),
	}
}

// Start begins observing the conversation list.
func (w *Watcher) Start(ctx context.Context) error {
	ctx, w.cancel = context.WithCancel(ctx)

	snapshots, stop := w.store.Observe(ctx, w.self.Key+"/conversations")
	go func() {
		defer stop()
		for snap := range snapshots {
			w.apply(snap)
		}
	}()
	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
}

func (w *Watcher) apply(snap store.Snapshot) {
	if snap.Value == nil {
		return
	}
	var convs []chat.Conversation
	if err := json.Unmarshal(snap.Value, &convs); err != nil {
		w.logger.Warn("malformed conversation list", zap.Error(err))
		return
	}
	for _, c := range convs {
		prev, known := w.seen[c.ID]
		if known && prev == c.Latest.Date {
			continue
		}
		w.seen[c.ID] = c.Latest.Date
		if !known {
			w.logger.Info("conversation",
				zap.String("id", c.ID),
				zap.String("with", c.OtherName),
				zap.String("latest", c.Latest.Message))
			continue
		}
		w.logger.Info("new activity",
			zap.String("id", c.ID),
			zap.String("with", c.OtherName),
			zap.String("latest", c.Latest.Message),
			zap.Bool("read", c.Latest.IsRead))
	}
}
