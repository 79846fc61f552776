package chat

import (
	"strconv"
	"strings"
)

// Encode maps a typed payload onto the flat (type, content) pair stored per
// record. Kinds the product never sends with content collapse to an empty
// content string; that loss is deliberate.
func Encode(k Kind) (typ, content string) {
	switch v := k.(type) {
	case Text:
		return "text", string(v)
	case Photo:
		return "photo", v.URL
	case Video:
		return "video", v.URL
	case Location:
		return "location", strconv.FormatFloat(v.Longitude, 'f', -1, 64) + "," + strconv.FormatFloat(v.Latitude, 'f', -1, 64)
	default:
		return k.KindType(), ""
	}
}

// Decode reconstructs a typed payload from the stored pair. ok is false
// only when the content is unusable (a malformed location); unknown type
// tags decode to an Unsupported placeholder rather than failing, so old
// records never break a feed.
func Decode(typ, content string) (k Kind, ok bool) {
	switch typ {
	case "text":
		return Text(content), true
	case "photo":
		return Photo{Attachment{URL: content}}, true
	case "video":
		return Video{Attachment{URL: content}}, true
	case "location":
		parts := strings.Split(content, ",")
		if len(parts) < 2 {
			return nil, false
		}
		lon, lonErr := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		lat, latErr := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if lonErr != nil || latErr != nil {
			return nil, false
		}
		return Location{Longitude: lon, Latitude: lat}, true
	default:
		return Unsupported{Type: typ}, true
	}
}

// DecodeRecord reconstructs the typed message from a stored record. ok is
// false when the record cannot be represented (unparseable date or
// payload); callers drop such records from the feed and count them.
func DecodeRecord(rec Record) (Message, bool) {
	sentAt, err := ParseWireDate(rec.Date)
	if err != nil {
		return Message{}, false
	}
	kind, ok := Decode(rec.Type, rec.Content)
	if !ok {
		return Message{}, false
	}
	return Message{
		ID:         rec.ID,
		SenderKey:  rec.SenderKey,
		SenderName: rec.Name,
		SentAt:     sentAt,
		Kind:       kind,
	}, true
}

// EncodeRecord flattens a typed message into its stored form.
func EncodeRecord(msg Message) Record {
	typ, content := Encode(msg.Kind)
	return Record{
		ID:        msg.ID,
		Type:      typ,
		Content:   content,
		Date:      FormatWireDate(msg.SentAt),
		SenderKey: msg.SenderKey,
		IsRead:    false,
		Name:      msg.SenderName,
	}
}
