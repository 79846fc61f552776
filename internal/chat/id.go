package chat

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewMessageID builds a message identifier from both participant keys and
// the send time, plus a random suffix so two messages composed in the same
// millisecond cannot collide.
func NewMessageID(otherKey, selfKey string, at time.Time) string {
	return fmt.Sprintf("%s_%s_%s_%s", otherKey, selfKey, FormatWireDate(at), uuid.NewString()[:8])
}

// ConversationID derives the immutable conversation id from the id of the
// conversation's first message.
func ConversationID(firstMessageID string) string {
	return "conversation_" + firstMessageID
}
