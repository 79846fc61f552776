package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/alexcole/firechat/internal/identity"
	"github.com/alexcole/firechat/internal/store"
	"go.uber.org/zap"
)

// usersPath is the global directory of every registered user. It is a
// single append-only list, scanned linearly; that ceiling is accepted.
const usersPath = "users"

// ErrUserExists is returned by RegisterUser for an already-registered email.
var ErrUserExists = errors.New("sync: user already registered")

// DirectoryEntry is one row of the global user directory. Email holds the
// canonical key form, matching what conversation paths are derived from.
type DirectoryEntry struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Profile is the per-user profile document stored under the user key.
type Profile struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Directory manages user registration and lookup over the global users
// list and the per-user profile documents.
type Directory struct {
	store  store.Store
	logger *zap.Logger
}

// NewDirectory creates the user directory.
func NewDirectory(s store.Store, logger *zap.Logger) *Directory {
	return &Directory{store: s, logger: logger}
}

// RegisterUser writes the user's profile document and appends them to the
// global directory. The two writes are independent; a directory append
// failure leaves a registered but undiscoverable user.
func (d *Directory) RegisterUser(ctx context.Context, firstName, lastName, email string) error {
	key := identity.SafeKey(email)

	exists, err := d.UserExists(ctx, email)
	if err != nil {
		return err
	}
	if exists {
		return ErrUserExists
	}

	if err := d.store.Set(ctx, key, Profile{FirstName: firstName, LastName: lastName}); err != nil {
		return err
	}

	entries, err := d.ListUsers(ctx)
	if err != nil {
		return err
	}
	entries = append(entries, DirectoryEntry{
		Name:  firstName + " " + lastName,
		Email: key,
	})
	if err := d.store.Set(ctx, usersPath, entries); err != nil {
		return fmt.Errorf("append user directory: %w", err)
	}

	d.logger.Info("user registered", zap.String("user", key))
	return nil
}

// UserExists reports whether a profile document exists for the email.
func (d *Directory) UserExists(ctx context.Context, email string) (bool, error) {
	_, err := d.store.Get(ctx, identity.SafeKey(email))
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListUsers returns the global directory. An empty store yields an empty
// directory, not an error.
func (d *Directory) ListUsers(ctx context.Context) ([]DirectoryEntry, error) {
	raw, err := d.store.Get(ctx, usersPath)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var entries []DirectoryEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode user directory: %w", err)
	}
	return entries, nil
}
