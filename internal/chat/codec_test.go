package chat

import (
	"testing"
	"time"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name        string
		kind        Kind
		wantType    string
		wantContent string
	}{
		{"text", Text("hello"), "text", "hello"},
		{"empty text", Text(""), "text", ""},
		{"photo", Photo{Attachment{URL: "https://cdn.example.com/p.png"}}, "photo", "https://cdn.example.com/p.png"},
		{"video", Video{Attachment{URL: "https://cdn.example.com/v.mov"}}, "video", "https://cdn.example.com/v.mov"},
		{"location", Location{Longitude: -122.4, Latitude: 37.7}, "location", "-122.4,37.7"},
		{"location integers", Location{Longitude: 10, Latitude: -5}, "location", "10,-5"},
		{"emoji is lossy", Unsupported{Type: "emoji"}, "emoji", ""},
		{"audio is lossy", Unsupported{Type: "audio"}, "audio", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			typ, content := Encode(tt.kind)
			if typ != tt.wantType || content != tt.wantContent {
				t.Errorf("Encode() = (%q, %q), want (%q, %q)", typ, content, tt.wantType, tt.wantContent)
			}
		})
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		typ     string
		content string
		want    Kind
		wantOK  bool
	}{
		{"text", "text", "hi", Text("hi"), true},
		{"photo", "photo", "https://x/p.png", Photo{Attachment{URL: "https://x/p.png"}}, true},
		{"video", "video", "https://x/v.mov", Video{Attachment{URL: "https://x/v.mov"}}, true},
		{"location", "location", "-122.4,37.7", Location{Longitude: -122.4, Latitude: 37.7}, true},
		{"location with spaces", "location", " 1.5 , 2.5 ", Location{Longitude: 1.5, Latitude: 2.5}, true},
		{"location single component", "location", "1.0", nil, false},
		{"location empty", "location", "", nil, false},
		{"location not numeric", "location", "not,a,pair-of-numbers", nil, false},
		{"location half numeric", "location", "abc,1.0", nil, false},
		{"unknown tag", "contact", "", Unsupported{Type: "contact"}, true},
		{"attributed text", "attributedText", "", Unsupported{Type: "attributedText"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Decode(tt.typ, tt.content)
			if ok != tt.wantOK {
				t.Fatalf("Decode(%q, %q) ok = %v, want %v", tt.typ, tt.content, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if got != tt.want {
				t.Errorf("Decode(%q, %q) = %#v, want %#v", tt.typ, tt.content, got, tt.want)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	kinds := []Kind{
		Text("hi"),
		Photo{Attachment{URL: "https://cdn/p.png"}},
		Video{Attachment{URL: "https://cdn/v.mov"}},
		Location{Longitude: -122.4, Latitude: 37.7},
	}
	for _, k := range kinds {
		typ, content := Encode(k)
		back, ok := Decode(typ, content)
		if !ok {
			t.Fatalf("Decode(Encode(%#v)) not ok", k)
		}
		if back != k {
			t.Errorf("round trip %#v -> %#v", k, back)
		}
	}
}

func TestDecodeRecord(t *testing.T) {
	sent := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	rec := Record{
		ID:        "m1",
		Type:      "text",
		Content:   "hello",
		Date:      FormatWireDate(sent),
		SenderKey: "a-example-com",
		Name:      "Alice",
	}

	msg, ok := DecodeRecord(rec)
	if !ok {
		t.Fatal("DecodeRecord() not ok")
	}
	if msg.ID != "m1" || msg.SenderKey != "a-example-com" || msg.SenderName != "Alice" {
		t.Errorf("identity fields = %+v", msg)
	}
	if !msg.SentAt.Equal(sent) {
		t.Errorf("SentAt = %v, want %v", msg.SentAt, sent)
	}
	if msg.Kind != Text("hello") {
		t.Errorf("Kind = %#v, want Text(hello)", msg.Kind)
	}
}

func TestDecodeRecordBadDate(t *testing.T) {
	rec := Record{ID: "m1", Type: "text", Content: "hi", Date: "Sep 28, 2020 at 5:24:14 PM PDT"}
	if _, ok := DecodeRecord(rec); ok {
		t.Error("record with unparseable date must be dropped")
	}
}

func TestDecodeRecordBadLocation(t *testing.T) {
	rec := Record{ID: "m1", Type: "location", Content: "nowhere", Date: FormatWireDate(time.Now())}
	if _, ok := DecodeRecord(rec); ok {
		t.Error("record with malformed location must be dropped")
	}
}

func TestEncodeRecord(t *testing.T) {
	sent := time.Date(2026, 3, 14, 9, 26, 53, 120e6, time.UTC)
	msg := Message{
		ID:         "m1",
		SenderKey:  "a-example-com",
		SenderName: "Alice",
		SentAt:     sent,
		Kind:       Location{Longitude: 1, Latitude: 2},
	}

	rec := EncodeRecord(msg)
	if rec.Type != "location" || rec.Content != "1,2" {
		t.Errorf("payload = (%q, %q), want (location, 1,2)", rec.Type, rec.Content)
	}
	if rec.Date != "2026-03-14T09:26:53.120Z" {
		t.Errorf("Date = %q", rec.Date)
	}
	if rec.IsRead {
		t.Error("new records start unread")
	}

	back, ok := DecodeRecord(rec)
	if !ok {
		t.Fatal("DecodeRecord(EncodeRecord()) not ok")
	}
	if !back.SentAt.Equal(sent) {
		t.Errorf("SentAt = %v, want %v (millisecond precision)", back.SentAt, sent)
	}
}

func TestWireDateSortable(t *testing.T) {
	// Lexicographic order of the wire form must match chronological order.
	a := FormatWireDate(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	b := FormatWireDate(time.Date(2026, 1, 2, 3, 4, 6, 0, time.UTC))
	if !(a < b) {
		t.Errorf("wire dates not sortable: %q !< %q", a, b)
	}

	// A non-UTC time must normalize to the same wire form as its UTC equivalent.
	loc := time.FixedZone("PST", -8*3600)
	local := time.Date(2026, 1, 2, 3, 4, 5, 0, loc)
	if got, want := FormatWireDate(local), FormatWireDate(local.UTC()); got != want {
		t.Errorf("FormatWireDate local = %q, utc = %q", got, want)
	}
}
