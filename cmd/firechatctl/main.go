package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/alexcole/firechat/internal/bus"
	"github.com/alexcole/firechat/internal/chat"
	"github.com/alexcole/firechat/internal/config"
	"github.com/alexcole/firechat/internal/identity"
	"github.com/alexcole/firechat/internal/session"
	"github.com/alexcole/firechat/internal/store"
	intsync "github.com/alexcole/firechat/internal/sync"
	"github.com/alexcole/firechat/internal/upload"
	"go.uber.org/zap"
)

func main() {
	sessionFlag := flag.String("session", "", "session name (overrides config default)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	flag.Parse()

	sessionName := session.Resolve(*sessionFlag)
	if err := session.ValidateName(sessionName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load(session.ConfigPath())
	if err != nil {
		cfg = config.Default()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c, err := newClient(ctx, cfg, sessionName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer c.close()

	switch args[0] {
	case "register":
		if len(args) != 4 {
			fmt.Fprintln(os.Stderr, "usage: firechatctl register <first-name> <last-name> <email>")
			os.Exit(1)
		}
		c.cmdRegister(ctx, args[1], args[2], args[3])
	case "users":
		c.cmdUsers(ctx, *jsonFlag)
	case "chats":
		c.cmdChats(ctx, *jsonFlag)
	case "history":
		if len(args) != 2 {
			fmt.Fprintln(os.Stderr, "usage: firechatctl history <conversation-id>")
			os.Exit(1)
		}
		c.cmdHistory(ctx, args[1], *jsonFlag)
	case "send":
		if len(args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: firechatctl send <email> <text>")
			os.Exit(1)
		}
		c.cmdSend(ctx, args[1], chat.Text(strings.Join(args[2:], " ")))
	case "send-location":
		if len(args) != 4 {
			fmt.Fprintln(os.Stderr, "usage: firechatctl send-location <email> <longitude> <latitude>")
			os.Exit(1)
		}
		lon, err1 := strconv.ParseFloat(args[2], 64)
		lat, err2 := strconv.ParseFloat(args[3], 64)
		if err1 != nil || err2 != nil {
			fmt.Fprintln(os.Stderr, "error: coordinates must be numbers")
			os.Exit(1)
		}
		c.cmdSend(ctx, args[1], chat.Location{Longitude: lon, Latitude: lat})
	case "send-photo":
		if len(args) != 3 {
			fmt.Fprintln(os.Stderr, "usage: firechatctl send-photo <email> <file>")
			os.Exit(1)
		}
		c.cmdSendPhoto(ctx, args[1], args[2])
	case "delete":
		if len(args) != 2 {
			fmt.Fprintln(os.Stderr, "usage: firechatctl delete <conversation-id>")
			os.Exit(1)
		}
		c.cmdDelete(ctx, args[1])
	case "watch":
		if len(args) != 2 {
			fmt.Fprintln(os.Stderr, "usage: firechatctl watch <conversation-id>")
			os.Exit(1)
		}
		c.cmdWatch(args[1])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: firechatctl [--session <name>] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  register <first> <last> <email>        Register a user in the directory")
	fmt.Fprintln(os.Stderr, "  users                                  List registered users")
	fmt.Fprintln(os.Stderr, "  chats                                  List your conversations")
	fmt.Fprintln(os.Stderr, "  history <conversation-id>              Show a conversation's messages")
	fmt.Fprintln(os.Stderr, "  send <email> <text>                    Send a text message")
	fmt.Fprintln(os.Stderr, "  send-location <email> <lon> <lat>      Send a location")
	fmt.Fprintln(os.Stderr, "  send-photo <email> <file>              Upload and send a photo")
	fmt.Fprintln(os.Stderr, "  delete <conversation-id>               Delete a conversation from your list")
	fmt.Fprintln(os.Stderr, "  watch <conversation-id>                Stream a conversation's messages")
}

// client wires the sync components against the configured backend.
type client struct {
	cfg       *config.Config
	self      identity.Identity
	store     store.Store
	engine    *intsync.Engine
	directory *intsync.Directory
	closeFn   func()
}

func newClient(ctx context.Context, cfg *config.Config, sessionName string) (*client, error) {
	logger := zap.NewNop()
	b := bus.New()

	var (
		s       store.Store
		closeFn = func() {}
	)
	switch cfg.Store.Backend {
	case "", "sqlite":
		if err := session.EnsureDir(sessionName); err != nil {
			return nil, err
		}
		db, err := store.OpenSQLite(session.StorePath(sessionName), b)
		if err != nil {
			return nil, err
		}
		if _, err := db.Migrate(); err != nil {
			_ = db.Close()
			return nil, err
		}
		s = db
		closeFn = func() { _ = db.Close() }
	case "postgres":
		db, err := store.OpenPostgres(ctx, cfg.Store.DSN, b)
		if err != nil {
			return nil, err
		}
		s = db
		closeFn = func() { _ = db.Close() }
	case "memory":
		s = store.NewMemory(b)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	convs := intsync.NewConversations(s, logger)
	msgs := intsync.NewMessages(s, logger)
	return &client{
		cfg:       cfg,
		self:      identity.FromEmail(cfg.Identity.Email, cfg.Identity.Name),
		store:     s,
		engine:    intsync.NewEngine(convs, msgs, b, logger),
		directory: intsync.NewDirectory(s, logger),
		closeFn:   closeFn,
	}, nil
}

func (c *client) close() {
	c.closeFn()
}

func (c *client) requireIdentity() {
	if !c.self.Valid() {
		fmt.Fprintf(os.Stderr, "error: no identity configured: set identity.email in %s\n", session.ConfigPath())
		os.Exit(1)
	}
}

func (c *client) cmdRegister(ctx context.Context, first, last, email string) {
	if err := c.directory.RegisterUser(ctx, first, last, email); err != nil {
		if errors.Is(err, intsync.ErrUserExists) {
			fmt.Fprintf(os.Stderr, "error: %s is already registered\n", email)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Registered %s %s <%s>\n", first, last, email)
}

func (c *client) cmdUsers(ctx context.Context, jsonOut bool) {
	users, err := c.directory.ListUsers(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if jsonOut {
		outputJSON(users)
		return
	}
	for _, u := range users {
		fmt.Printf("%-30s %s\n", u.Email, u.Name)
	}
}

func (c *client) cmdChats(ctx context.Context, jsonOut bool) {
	c.requireIdentity()
	convs, err := c.engine.ListConversations(ctx, c.self.Key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if jsonOut {
		outputJSON(convs)
		return
	}
	for _, conv := range convs {
		marker := " "
		if !conv.Latest.IsRead {
			marker = "*"
		}
		fmt.Printf("%s %-40s %-20s %s\n", marker, conv.ID, conv.OtherName, conv.Latest.Message)
	}
}

func (c *client) cmdHistory(ctx context.Context, convID string, jsonOut bool) {
	msgs, skipped, err := c.engine.ListMessages(ctx, convID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			fmt.Fprintf(os.Stderr, "error: no conversation %q\n", convID)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if jsonOut {
		outputJSON(msgs)
		return
	}
	for _, m := range msgs {
		printMessage(m)
	}
	if skipped > 0 {
		fmt.Fprintf(os.Stderr, "warning: %d malformed records skipped\n", skipped)
	}
}

func (c *client) cmdSend(ctx context.Context, email string, kind chat.Kind) {
	c.requireIdentity()
	recipientKey := identity.SafeKey(email)
	recipientName := c.lookupName(ctx, recipientKey, email)

	now := time.Now()
	msg := chat.Message{
		ID:         chat.NewMessageID(recipientKey, c.self.Key, now),
		SenderKey:  c.self.Key,
		SenderName: c.self.Name,
		SentAt:     now,
		Kind:       kind,
	}

	convID, err := c.engine.ResolveExisting(ctx, c.self.Key, recipientKey)
	switch {
	case err == nil:
		err = c.engine.SendMessage(ctx, c.self, convID, recipientKey, recipientName, msg)
	case errors.Is(err, store.ErrNotFound):
		convID, err = c.engine.SendFirstMessage(ctx, c.self, recipientKey, recipientName, msg)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Sent to %s (%s)\n", recipientName, convID)
}

func (c *client) cmdSendPhoto(ctx context.Context, email, file string) {
	c.requireIdentity()
	if c.cfg.Upload.Endpoint == "" {
		fmt.Fprintf(os.Stderr, "error: no upload endpoint configured: set upload.endpoint in %s\n", session.ConfigPath())
		os.Exit(1)
	}
	data, err := os.ReadFile(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	recipientKey := identity.SafeKey(email)
	now := time.Now()
	msgID := chat.NewMessageID(recipientKey, c.self.Key, now)

	uploader := upload.NewHTTP(c.cfg.Upload.Endpoint, zap.NewNop())
	url, err := uploader.Upload(ctx, data, upload.PhotoFileName(msgID))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: upload failed: %v\n", err)
		os.Exit(1)
	}

	recipientName := c.lookupName(ctx, recipientKey, email)
	msg := chat.Message{
		ID:         msgID,
		SenderKey:  c.self.Key,
		SenderName: c.self.Name,
		SentAt:     now,
		Kind:       chat.Photo{Attachment: chat.Attachment{URL: url}},
	}

	convID, err := c.engine.ResolveExisting(ctx, c.self.Key, recipientKey)
	switch {
	case err == nil:
		err = c.engine.SendMessage(ctx, c.self, convID, recipientKey, recipientName, msg)
	case errors.Is(err, store.ErrNotFound):
		convID, err = c.engine.SendFirstMessage(ctx, c.self, recipientKey, recipientName, msg)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Sent photo to %s (%s)\n", recipientName, convID)
}

func (c *client) cmdDelete(ctx context.Context, convID string) {
	c.requireIdentity()
	if err := c.engine.DeleteConversation(ctx, c.self.Key, convID); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Deleted %s\n", convID)
}

func (c *client) cmdWatch(convID string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feeds, stop := c.engine.WatchMessages(ctx, convID)
	defer stop()

	for feed := range feeds {
		for _, m := range feed.Messages {
			printMessage(m)
		}
		if feed.Skipped > 0 {
			fmt.Fprintf(os.Stderr, "warning: %d malformed records skipped\n", feed.Skipped)
		}
	}
}

// lookupName resolves a display name from the directory, falling back to
// the raw email when the user is unknown.
func (c *client) lookupName(ctx context.Context, key, email string) string {
	users, err := c.directory.ListUsers(ctx)
	if err != nil {
		return email
	}
	for _, u := range users {
		if u.Email == key {
			return u.Name
		}
	}
	return email
}

func printMessage(m chat.Message) {
	ts := m.SentAt.Local().Format("2006-01-02 15:04")
	switch k := m.Kind.(type) {
	case chat.Text:
		fmt.Printf("[%s] %s: %s\n", ts, m.SenderName, string(k))
	case chat.Photo:
		fmt.Printf("[%s] %s: [photo] %s\n", ts, m.SenderName, k.URL)
	case chat.Video:
		fmt.Printf("[%s] %s: [video] %s\n", ts, m.SenderName, k.URL)
	case chat.Location:
		fmt.Printf("[%s] %s: [location] %g,%g\n", ts, m.SenderName, k.Longitude, k.Latitude)
	default:
		fmt.Printf("[%s] %s: [%s]\n", ts, m.SenderName, k.KindType())
	}
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
