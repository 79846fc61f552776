package sync

import (
	"context"
	"errors"
	"time"

	"github.com/alexcole/firechat/internal/bus"
	"github.com/alexcole/firechat/internal/chat"
	"github.com/alexcole/firechat/internal/identity"
	"github.com/alexcole/firechat/internal/store"
	"go.uber.org/zap"
)

// ErrInvalidIdentity is returned when an operation is invoked without a
// resolved sender identity. Nothing has been written when it is returned.
var ErrInvalidIdentity = errors.New("sync: sender identity not resolved")

// Engine sequences the multi-step conversation workflows across the
// conversation and message stores. Each workflow is a chain of independent
// single-path writes with no rollback: a failure partway leaves the store
// in whatever state the last successful step produced, and the error tells
// the caller only that the operation did not complete.
type Engine struct {
	convs  *Conversations
	msgs   *Messages
	bus    *bus.Bus
	logger *zap.Logger
}

// NewEngine creates the orchestrator.
func NewEngine(convs *Conversations, msgs *Messages, b *bus.Bus, logger *zap.Logger) *Engine {
	return &Engine{convs: convs, msgs: msgs, bus: b, logger: logger}
}

// SendFirstMessage starts a conversation with the recipient and delivers
// the first message. When the recipient already holds a live conversation
// with the caller, that conversation's id is reused and the message goes
// through the normal append path, so the pair never ends up with two ids.
//
// Otherwise the workflow is: mint the conversation id from the first
// message id, write the sender's summary entry, write the recipient's
// summary entry, create the message log. The two summary writes have
// independent outcomes; a failed recipient write is logged and the
// workflow continues, since the recipient's view resurrects on the next
// message anyway.
func (e *Engine) SendFirstMessage(ctx context.Context, self identity.Identity, recipientKey, recipientName string, msg chat.Message) (string, error) {
	if !self.Valid() {
		return "", ErrInvalidIdentity
	}

	if id, err := e.convs.FindExisting(ctx, recipientKey, self.Key); err == nil {
		e.logger.Info("conversation already exists, appending instead",
			zap.String("conversation_id", id),
			zap.String("recipient", recipientKey))
		return id, e.SendMessage(ctx, self, id, recipientKey, recipientName, msg)
	} else if !errors.Is(err, store.ErrNotFound) {
		return "", err
	}

	msg.SenderKey = self.Key
	msg.SenderName = self.Name
	rec := chat.EncodeRecord(msg)
	convID := chat.ConversationID(msg.ID)

	if err := e.convs.CreateEntry(ctx, self.Key, chat.Conversation{
		ID:        convID,
		OtherKey:  recipientKey,
		OtherName: recipientName,
		Latest:    chat.LatestMessage{Date: rec.Date, Message: rec.Content, IsRead: true},
	}); err != nil {
		return "", err
	}

	if err := e.convs.CreateEntry(ctx, recipientKey, chat.Conversation{
		ID:        convID,
		OtherKey:  self.Key,
		OtherName: self.Name,
		Latest:    chat.LatestMessage{Date: rec.Date, Message: rec.Content, IsRead: false},
	}); err != nil {
		// Recipient summary missing is recoverable: the next message to
		// this conversation synthesizes it.
		e.logger.Error("recipient summary not created",
			zap.String("conversation_id", convID),
			zap.String("recipient", recipientKey),
			zap.Error(err))
	}

	if err := e.msgs.CreateLog(ctx, convID, rec); err != nil {
		return "", err
	}

	e.publish("conversation.created", map[string]string{
		"conversation_id": convID,
		"sender":          self.Key,
		"recipient":       recipientKey,
	})
	return convID, nil
}

// SendMessage appends a message to an existing conversation and refreshes
// both participants' latest-message summaries. Three sequential store
// round trips; each waits for the prior to complete, and an error aborts
// the rest without undoing what already landed.
func (e *Engine) SendMessage(ctx context.Context, self identity.Identity, convID, recipientKey, recipientName string, msg chat.Message) error {
	if !self.Valid() {
		return ErrInvalidIdentity
	}

	msg.SenderKey = self.Key
	msg.SenderName = self.Name
	rec := chat.EncodeRecord(msg)

	if err := e.msgs.Append(ctx, convID, rec); err != nil {
		return err
	}

	// Sender has read their own message; recipient has not.
	if err := e.convs.UpsertLatest(ctx, self.Key, convID, recipientKey, recipientName,
		chat.LatestMessage{Date: rec.Date, Message: rec.Content, IsRead: true}); err != nil {
		return err
	}
	if err := e.convs.UpsertLatest(ctx, recipientKey, convID, self.Key, self.Name,
		chat.LatestMessage{Date: rec.Date, Message: rec.Content, IsRead: false}); err != nil {
		return err
	}

	e.publish("message.sent", map[string]string{
		"conversation_id": convID,
		"message_id":      msg.ID,
		"sender":          self.Key,
	})
	return nil
}

// ListConversations returns the user's conversation summaries in store
// insertion order.
func (e *Engine) ListConversations(ctx context.Context, userKey string) ([]chat.Conversation, error) {
	return e.convs.List(ctx, userKey)
}

// ListMessages reconstructs the ordered typed feed for a conversation,
// with the count of records dropped during decoding.
func (e *Engine) ListMessages(ctx context.Context, convID string) ([]chat.Message, int, error) {
	return e.msgs.Fetch(ctx, convID)
}

// WatchMessages streams the decoded feed as the log changes.
func (e *Engine) WatchMessages(ctx context.Context, convID string) (<-chan Feed, func()) {
	return e.msgs.Watch(ctx, convID)
}

// DeleteConversation removes the conversation from the calling user's list
// only. The counterpart keeps their summary and the message log stays; the
// conversation resurrects for this user on the next message either side
// sends.
func (e *Engine) DeleteConversation(ctx context.Context, userKey, convID string) error {
	if err := e.convs.Delete(ctx, userKey, convID); err != nil {
		return err
	}
	e.publish("conversation.deleted", map[string]string{
		"conversation_id": convID,
		"user":            userKey,
	})
	return nil
}

// ResolveExisting returns the id of the live conversation the recipient
// already has with the caller, or store.ErrNotFound.
func (e *Engine) ResolveExisting(ctx context.Context, recipientKey, callerKey string) (string, error) {
	return e.convs.FindExisting(ctx, recipientKey, callerKey)
}

func (e *Engine) publish(kind string, payload map[string]string) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(bus.Event{Kind: kind, Timestamp: time.Now(), Payload: payload})
}
