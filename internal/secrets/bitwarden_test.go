package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner records invocations and answers from a scripted handler.
type fakeRunner struct {
	calls [][]string
	envs  [][]string
	fn    func(args []string) (stdout string, err error)
}

func (f *fakeRunner) Run(_ context.Context, extraEnv []string, name string, args ...string) ([]byte, []byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	f.envs = append(f.envs, extraEnv)

	stdout, err := f.fn(args)
	return []byte(stdout), nil, err
}

func newTestStore(fn func(args []string) (string, error)) (*Bitwarden, *fakeRunner) {
	runner := &fakeRunner{fn: fn}
	return NewBitwarden(withRunner(runner)), runner
}

func itemsJSON(t *testing.T, items []bitwardenItem) string {
	t.Helper()
	data, err := json.Marshal(items)
	require.NoError(t, err)
	return string(data)
}

func garminItem() bitwardenItem {
	item := bitwardenItem{ID: "item1", Name: "Garmin User1"}
	item.Login.Username = "test@example.com"
	item.Login.Password = "testpass123"
	return item
}

func TestCheckAvailable(t *testing.T) {
	store, _ := newTestStore(func(args []string) (string, error) {
		require.Equal(t, []string{"--version"}, args)
		return "2024.1.0\n", nil
	})

	require.NoError(t, store.CheckAvailable(context.Background()))
}

func TestCheckAvailable_NotInstalled(t *testing.T) {
	store, _ := newTestStore(func(args []string) (string, error) {
		return "", exec.ErrNotFound
	})

	err := store.CheckAvailable(context.Background())
	assert.ErrorIs(t, err, ErrToolingUnavailable)
}

func TestAuthenticate_AlreadyUnlocked(t *testing.T) {
	store, runner := newTestStore(func(args []string) (string, error) {
		return "[]", nil // list items succeeds
	})

	require.NoError(t, store.Authenticate(context.Background()))

	// Second call is idempotent: no further CLI probing.
	before := len(runner.calls)
	require.NoError(t, store.Authenticate(context.Background()))
	assert.Equal(t, before, len(runner.calls))
}

func TestAuthenticate_SessionFromEnvironment(t *testing.T) {
	t.Setenv(bitwardenSessionEnv, "env_session_key")
	t.Setenv(bitwardenPasswordEnv, "")

	locked := true
	store, runner := newTestStore(func(args []string) (string, error) {
		if locked && args[0] == "list" {
			return "", errors.New("vault is locked")
		}
		return "[]", nil
	})

	require.NoError(t, store.Authenticate(context.Background()))

	// The adopted session key is passed to subsequent CLI calls.
	locked = false
	_, err := store.GetCredentials(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrItemNotFound)
	lastEnv := runner.envs[len(runner.envs)-1]
	assert.Contains(t, lastEnv, bitwardenSessionEnv+"=env_session_key")
}

func TestAuthenticate_UnlockWithEnvironmentSecret(t *testing.T) {
	t.Setenv(bitwardenSessionEnv, "")
	t.Setenv(bitwardenPasswordEnv, "master-password")

	unlocked := false
	store, _ := newTestStore(func(args []string) (string, error) {
		switch args[0] {
		case "list":
			if !unlocked {
				return "", errors.New("vault is locked")
			}
			return "[]", nil
		case "unlock":
			unlocked = true
			return "fresh_session_key\n", nil
		}
		return "", nil
	})

	require.NoError(t, store.Authenticate(context.Background()))
	assert.Equal(t, "fresh_session_key", store.sessionKey)
}

func TestAuthenticate_LockedWithoutSecret(t *testing.T) {
	t.Setenv(bitwardenSessionEnv, "")
	t.Setenv(bitwardenPasswordEnv, "")

	store, _ := newTestStore(func(args []string) (string, error) {
		return "", errors.New("vault is locked")
	})

	err := store.Authenticate(context.Background())
	assert.ErrorIs(t, err, ErrVaultLocked)
}

func TestGetCredentials(t *testing.T) {
	item := garminItem()
	item.Login.TOTP = "JBSWY3DP"

	store, _ := newTestStore(func(args []string) (string, error) {
		if args[0] == "list" {
			return itemsJSON(t, []bitwardenItem{item}), nil
		}
		return "", nil
	})
	require.NoError(t, store.Authenticate(context.Background()))

	creds, err := store.GetCredentials(context.Background(), "Garmin User1")
	require.NoError(t, err)
	assert.Equal(t, "test@example.com", creds.Username)
	assert.Equal(t, "testpass123", creds.Password)
	assert.Equal(t, "JBSWY3DP", creds.Fields["totp"])
}

func TestGetCredentials_RequiresAuthentication(t *testing.T) {
	store, _ := newTestStore(func(args []string) (string, error) {
		return "[]", nil
	})

	_, err := store.GetCredentials(context.Background(), "Garmin User1")
	assert.ErrorIs(t, err, ErrAuthenticationRequired)
}

func TestGetCredentials_ItemNotFound(t *testing.T) {
	store, _ := newTestStore(func(args []string) (string, error) {
		return "[]", nil
	})
	require.NoError(t, store.Authenticate(context.Background()))

	creds, err := store.GetCredentials(context.Background(), "NonExistentUser")
	assert.ErrorIs(t, err, ErrItemNotFound)
	assert.Nil(t, creds)
}

func TestGetCredentials_ExactNameMatchOnly(t *testing.T) {
	near := garminItem()
	near.Name = "Garmin User1 (old)"

	store, _ := newTestStore(func(args []string) (string, error) {
		if args[0] == "list" {
			return itemsJSON(t, []bitwardenItem{near}), nil
		}
		return "", nil
	})
	require.NoError(t, store.Authenticate(context.Background()))

	_, err := store.GetCredentials(context.Background(), "Garmin User1")
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestGetCredentials_Incomplete(t *testing.T) {
	item := garminItem()
	item.Login.Password = ""

	store, _ := newTestStore(func(args []string) (string, error) {
		if args[0] == "list" {
			return itemsJSON(t, []bitwardenItem{item}), nil
		}
		return "", nil
	})
	require.NoError(t, store.Authenticate(context.Background()))

	creds, err := store.GetCredentials(context.Background(), "Garmin User1")
	assert.ErrorIs(t, err, ErrIncompleteCredential)
	assert.Nil(t, creds)
	// The username must not leak through the error either.
	assert.NotContains(t, err.Error(), "test@example.com")
}

func TestLogout_Idempotent(t *testing.T) {
	store, runner := newTestStore(func(args []string) (string, error) {
		if args[0] == "lock" {
			return "", errors.New("lock failed")
		}
		return "[]", nil
	})
	require.NoError(t, store.Authenticate(context.Background()))

	// A failing lock is swallowed.
	store.Logout(context.Background())
	assert.False(t, store.authenticated)

	// Second logout is a pure no-op.
	before := len(runner.calls)
	store.Logout(context.Background())
	assert.Equal(t, before, len(runner.calls))
}
