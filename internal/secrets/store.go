package secrets

import (
	"context"
	"errors"
)

var (
	// ErrToolingUnavailable means the secret store backend (for example the
	// Bitwarden CLI binary) could not be found or did not respond.
	ErrToolingUnavailable = errors.New("secret store tooling unavailable")

	// ErrVaultLocked means the store is locked and no non-interactive unlock
	// path is available. The operator has to unlock it out of band.
	ErrVaultLocked = errors.New("secret store is locked, unlock it manually first")

	// ErrAuthenticationRequired means a lookup was attempted before a
	// successful Authenticate call.
	ErrAuthenticationRequired = errors.New("secret store authentication required")

	ErrItemNotFound         = errors.New("secret store item not found")
	ErrIncompleteCredential = errors.New("secret store item has incomplete credentials")
)

// Credentials is a username/password pair retrieved from a secret store.
// It is handed straight to the authenticator and must never be persisted,
// logged or embedded in error messages.
type Credentials struct {
	Username string
	Password string

	// Fields carries any extra custom fields attached to the item,
	// such as a TOTP seed or an account note.
	Fields map[string]string
}

// Store is the capability interface for a local credential vault.
// Implementations shell out to an external tool or talk to a remote
// secret manager; callers only ever see this interface so the
// authentication flow stays testable with a fake.
type Store interface {
	// CheckAvailable verifies the backing tool or service is reachable.
	CheckAvailable(ctx context.Context) error

	// IsUnlocked reports whether items can be read without further
	// authentication. It never returns an error.
	IsUnlocked(ctx context.Context) bool

	// Authenticate unlocks the store. It is idempotent: if the store is
	// already unlocked it returns immediately without re-prompting.
	Authenticate(ctx context.Context) error

	// GetCredentials looks up an item by name and returns its login pair.
	// Requires a prior successful Authenticate.
	GetCredentials(ctx context.Context, itemName string) (*Credentials, error)

	// Logout locks the store and clears any session material. Best effort,
	// never returns an error and is safe to call repeatedly.
	Logout(ctx context.Context)
}
