// Package sync implements the conversation synchronization core: the
// per-user conversation summary lists, the shared per-conversation message
// logs, and the orchestrated workflows that keep both participants'
// denormalized views consistent over a store with single-path atomicity
// only.
package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/alexcole/firechat/internal/chat"
	"github.com/alexcole/firechat/internal/store"
	"go.uber.org/zap"
)

// Conversations owns the per-user conversation summary lists. Each list is
// one whole JSON document under "{userKey}/conversations"; every mutation
// is an optimistic read-modify-write of the full list.
type Conversations struct {
	store  store.Store
	logger *zap.Logger
}

// NewConversations creates the summary-list store.
func NewConversations(s store.Store, logger *zap.Logger) *Conversations {
	return &Conversations{store: s, logger: logger}
}

func conversationsPath(userKey string) string {
	return userKey + "/conversations"
}

// List returns the user's conversation summaries in store order. A user
// with no list yet gets an empty result, not an error.
func (c *Conversations) List(ctx context.Context, userKey string) ([]chat.Conversation, error) {
	raw, err := c.store.Get(ctx, conversationsPath(userKey))
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var list []chat.Conversation
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("decode conversation list for %s: %w", userKey, err)
	}
	return list, nil
}

// CreateEntry appends a new summary entry to the user's list, creating the
// list when absent. Called once per participant when a conversation is
// started; the two calls are independent writes with independent outcomes.
func (c *Conversations) CreateEntry(ctx context.Context, userKey string, conv chat.Conversation) error {
	list, err := c.List(ctx, userKey)
	if err != nil {
		return err
	}
	list = append(list, conv)
	return c.store.Set(ctx, conversationsPath(userKey), list)
}

// UpsertLatest replaces the latest-message state of the user's entry for
// convID. When the entry is missing (the user deleted the conversation, or
// never had a list) a fresh entry is synthesized with the same id, which is
// how a deleted conversation resurrects on the next message without
// duplicating history.
func (c *Conversations) UpsertLatest(ctx context.Context, userKey, convID, otherKey, otherName string, latest chat.LatestMessage) error {
	list, err := c.List(ctx, userKey)
	if err != nil {
		return err
	}

	updated := false
	for i := range list {
		if list[i].ID == convID {
			list[i].Latest = latest
			updated = true
			break
		}
	}
	if !updated {
		list = append(list, chat.Conversation{
			ID:        convID,
			OtherKey:  otherKey,
			OtherName: otherName,
			Latest:    latest,
		})
		c.logger.Info("resurrected conversation summary",
			zap.String("user", userKey),
			zap.String("conversation_id", convID))
	}

	return c.store.Set(ctx, conversationsPath(userKey), list)
}

// Delete removes the first entry matching convID from the user's own list.
// The counterpart's summary and the shared message log are untouched:
// deletion only hides the conversation for the caller. Deleting an entry
// that is not present is a no-op.
func (c *Conversations) Delete(ctx context.Context, userKey, convID string) error {
	list, err := c.List(ctx, userKey)
	if err != nil {
		return err
	}
	for i := range list {
		if list[i].ID == convID {
			list = append(list[:i], list[i+1:]...)
			return c.store.Set(ctx, conversationsPath(userKey), list)
		}
	}
	return nil
}

// FindExisting scans the recipient's summary list for a conversation whose
// counterpart is callerKey and returns its id, or store.ErrNotFound. Used
// to avoid minting a second conversation id when the two users already
// share a live conversation.
func (c *Conversations) FindExisting(ctx context.Context, recipientKey, callerKey string) (string, error) {
	list, err := c.List(ctx, recipientKey)
	if err != nil {
		return "", err
	}
	for _, conv := range list {
		if conv.OtherKey == callerKey {
			return conv.ID, nil
		}
	}
	return "", store.ErrNotFound
}
