package identity

import "strings"

var keyReplacer = strings.NewReplacer(".", "-", "@", "-")

// SafeKey canonicalizes a raw identity (typically an email address) into the
// storage-safe key used for every per-user path in the backing store, which
// forbids '.' and '@' in path components. The transform is total and
// idempotent: applying it twice yields the same key.
func SafeKey(raw string) string {
	return keyReplacer.Replace(raw)
}

// Identity carries the caller's resolved identity into sync operations.
// There is no ambient current-user lookup anywhere in the core; callers
// resolve their session once and pass the result explicitly.
type Identity struct {
	Key  string // canonical user key, SafeKey of the raw email
	Name string // display name shown to the counterpart
}

// FromEmail builds an Identity from a raw email address and display name.
func FromEmail(email, name string) Identity {
	return Identity{Key: SafeKey(email), Name: name}
}

// Valid reports whether both fields are present. Operations that would
// write on behalf of an invalid identity fail fast before touching the
// store.
func (id Identity) Valid() bool {
	return id.Key != "" && id.Name != ""
}
