package chat

import "time"

// WireDateLayout is the single fixed layout for every date persisted to the
// store. Dates are always formatted in UTC so that the string form sorts in
// chronological order regardless of where a record was written.
const WireDateLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatWireDate renders t in the wire layout.
func FormatWireDate(t time.Time) string {
	return t.UTC().Format(WireDateLayout)
}

// ParseWireDate parses a stored date string.
func ParseWireDate(s string) (time.Time, error) {
	return time.Parse(WireDateLayout, s)
}

// Kind is the typed payload of a message. Implementations are Text, Photo,
// Video, Location and Unsupported.
type Kind interface {
	// KindType returns the flat type tag stored with the record.
	KindType() string
}

// Text is a plain text payload.
type Text string

func (Text) KindType() string { return "text" }

// Attachment is a media payload resolved to its uploaded URL. The upload
// itself happens before the message enters the sync layer; only the URL is
// carried here.
type Attachment struct {
	URL string
}

// Photo is an image attachment.
type Photo struct {
	Attachment
}

func (Photo) KindType() string { return "photo" }

// Video is a video attachment.
type Video struct {
	Attachment
}

func (Video) KindType() string { return "video" }

// Location is a geographic coordinate payload.
type Location struct {
	Longitude float64
	Latitude  float64
}

func (Location) KindType() string { return "location" }

// Unsupported is the placeholder for kinds the product does not persist
// with content (attributed text, emoji, audio, contact, link previews,
// custom payloads). The original type tag is retained; the content is not.
type Unsupported struct {
	Type string
}

func (u Unsupported) KindType() string { return u.Type }

// Message is the in-memory, typed form of a message.
type Message struct {
	ID         string
	SenderKey  string
	SenderName string
	SentAt     time.Time
	Kind       Kind
}

// Record is the flat, stored form of a message. Field names match the keys
// used in the backing store; a record is written once on send and never
// mutated.
type Record struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Content   string `json:"content"`
	Date      string `json:"date"`
	SenderKey string `json:"sender_email"`
	IsRead    bool   `json:"is_read"`
	Name      string `json:"name"`
}

// LatestMessage is the denormalized latest-message state carried on each
// conversation summary. It reflects the most recently successfully written
// message for that summary's owner.
type LatestMessage struct {
	Date    string `json:"date"`
	Message string `json:"message"`
	IsRead  bool   `json:"is_read"`
}

// Conversation is one user's denormalized view of a conversation: the
// shared id, the counterpart's identity, and the latest-message state.
// A conversation has no canonical record; it exists as one of these per
// participant plus the shared message log.
type Conversation struct {
	ID        string        `json:"id"`
	OtherKey  string        `json:"other_user_email"`
	OtherName string        `json:"name"`
	Latest    LatestMessage `json:"latest_message"`
}
