package sync

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/alexcole/firechat/internal/chat"
	"github.com/alexcole/firechat/internal/store"
	"go.uber.org/zap"
)

// Messages owns the shared per-conversation message logs. The log under
// "{conversationId}/messages" is the source of truth for message order;
// append order is chronological because each append is a serialized
// read-modify-write of the whole list.
type Messages struct {
	store  store.Store
	logger *zap.Logger
}

// NewMessages creates the message-log store.
func NewMessages(s store.Store, logger *zap.Logger) *Messages {
	return &Messages{store: s, logger: logger}
}

func messagesPath(convID string) string {
	return convID + "/messages"
}

// CreateLog writes a brand-new single-element log for the conversation.
// Callers invoke this exactly once, at conversation creation; calling it
// on an existing conversation would replace its history.
func (m *Messages) CreateLog(ctx context.Context, convID string, first chat.Record) error {
	return m.store.Set(ctx, messagesPath(convID), []chat.Record{first})
}

// Append adds a record to the end of the conversation's log. Fails with
// store.ErrNotFound when no log exists: the log must have been created by
// CreateLog first.
func (m *Messages) Append(ctx context.Context, convID string, rec chat.Record) error {
	raw, err := m.store.Get(ctx, messagesPath(convID))
	if err != nil {
		return err
	}
	var recs []chat.Record
	if err := json.Unmarshal(raw, &recs); err != nil {
		return fmt.Errorf("decode message log %s: %w", convID, err)
	}
	recs = append(recs, rec)
	return m.store.Set(ctx, messagesPath(convID), recs)
}

// Fetch reconstructs the conversation's typed message feed in stored
// order. Records that cannot be decoded (bad date, malformed payload) are
// dropped; skipped reports how many, so the loss is observable rather than
// silent.
func (m *Messages) Fetch(ctx context.Context, convID string) (msgs []chat.Message, skipped int, err error) {
	raw, err := m.store.Get(ctx, messagesPath(convID))
	if err != nil {
		return nil, 0, err
	}
	var recs []chat.Record
	if err := json.Unmarshal(raw, &recs); err != nil {
		return nil, 0, fmt.Errorf("decode message log %s: %w", convID, err)
	}
	msgs, skipped = decodeFeed(recs)
	if skipped > 0 {
		m.logger.Warn("skipped undecodable message records",
			zap.String("conversation_id", convID),
			zap.Int("skipped", skipped))
	}
	return msgs, skipped, nil
}

// Feed is one live snapshot of a conversation's decoded message list.
type Feed struct {
	Messages []chat.Message
	Skipped  int
}

// Watch streams the decoded feed: the current state first, then a new Feed
// after every append, until ctx is done or the cancel func is called.
func (m *Messages) Watch(ctx context.Context, convID string) (<-chan Feed, func()) {
	snaps, cancel := m.store.Observe(ctx, messagesPath(convID))
	out := make(chan Feed, 16)

	go func() {
		defer close(out)
		for snap := range snaps {
			var recs []chat.Record
			if err := json.Unmarshal(snap.Value, &recs); err != nil {
				m.logger.Warn("undecodable message log snapshot",
					zap.String("conversation_id", convID),
					zap.Error(err))
				continue
			}
			msgs, skipped := decodeFeed(recs)
			select {
			case out <- Feed{Messages: msgs, Skipped: skipped}:
			default:
				// Slow consumer misses intermediate snapshots.
			}
		}
	}()

	return out, cancel
}

func decodeFeed(recs []chat.Record) ([]chat.Message, int) {
	msgs := make([]chat.Message, 0, len(recs))
	skipped := 0
	for _, rec := range recs {
		msg, ok := chat.DecodeRecord(rec)
		if !ok {
			skipped++
			continue
		}
		msgs = append(msgs, msg)
	}
	return msgs, skipped
}
