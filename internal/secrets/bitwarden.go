package secrets

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

const (
	// Environment variables the Bitwarden CLI understands. BW_SESSION carries
	// an existing unlock token; BW_PASSWORD is our non-interactive unlock path.
	bitwardenSessionEnv  = "BW_SESSION"
	bitwardenPasswordEnv = "BW_PASSWORD"
)

// commandRunner is the exec seam. The real implementation shells out; tests
// substitute a fake so no bw binary is needed.
type commandRunner interface {
	Run(ctx context.Context, extraEnv []string, name string, args ...string) (stdout []byte, stderr []byte, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, extraEnv []string, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), extraEnv...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// bitwardenItem mirrors the JSON the CLI prints for `bw list items`.
type bitwardenItem struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Login struct {
		Username string `json:"username"`
		Password string `json:"password"`
		TOTP     string `json:"totp"`
	} `json:"login"`
	Fields []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"fields"`
}

// Bitwarden retrieves credentials through the Bitwarden CLI (`bw`).
// It holds the unlock session token for the lifetime of the process but
// never retains usernames or passwords beyond a GetCredentials return.
type Bitwarden struct {
	executable string
	runner     commandRunner

	mu            sync.Mutex
	sessionKey    string
	authenticated bool
}

// BitwardenOption configures a Bitwarden store.
type BitwardenOption func(*Bitwarden)

// WithExecutable overrides the CLI binary name or path.
func WithExecutable(path string) BitwardenOption {
	return func(b *Bitwarden) { b.executable = path }
}

func withRunner(r commandRunner) BitwardenOption {
	return func(b *Bitwarden) { b.runner = r }
}

// NewBitwarden returns a Store backed by the Bitwarden CLI.
func NewBitwarden(opts ...BitwardenOption) *Bitwarden {
	b := &Bitwarden{
		executable: "bw",
		runner:     execRunner{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Bitwarden) sessionEnv() []string {
	if len(b.sessionKey) == 0 {
		return nil
	}
	return []string{fmt.Sprintf("%s=%s", bitwardenSessionEnv, b.sessionKey)}
}

// CheckAvailable verifies the CLI is installed and answers a version query.
func (b *Bitwarden) CheckAvailable(ctx context.Context) error {
	stdout, _, err := b.runner.Run(ctx, nil, b.executable, "--version")
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return fmt.Errorf("%w: %s is not installed", ErrToolingUnavailable, b.executable)
		}
		return fmt.Errorf("%w: %s --version failed: %v", ErrToolingUnavailable, b.executable, err)
	}

	logrus.WithFields(logrus.Fields{
		"executable": b.executable,
		"version":    strings.TrimSpace(string(stdout)),
	}).Debugln("Secret store CLI available")

	return nil
}

// IsUnlocked probes the vault with a listing call. A locked vault makes the
// CLI exit non-zero, which we report as false rather than an error.
func (b *Bitwarden) IsUnlocked(ctx context.Context) bool {
	_, _, err := b.runner.Run(ctx, b.sessionEnv(), b.executable, "list", "items")
	return err == nil
}

// Authenticate unlocks the vault. Resolution order: already unlocked, an
// existing BW_SESSION in the environment, a non-interactive unlock using
// BW_PASSWORD. With none of those the caller gets ErrVaultLocked; prompting
// for the master password is not safe to automate.
func (b *Bitwarden) Authenticate(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.authenticated {
		return nil
	}

	if b.isUnlockedLocked(ctx) {
		logrus.Debugln("Secret store already unlocked")
		b.authenticated = true
		return nil
	}

	if session := os.Getenv(bitwardenSessionEnv); len(session) > 0 {
		logrus.Debugln("Using existing secret store session from environment")
		b.sessionKey = session
		b.authenticated = true
		return nil
	}

	if password := os.Getenv(bitwardenPasswordEnv); len(password) > 0 {
		stdout, stderr, err := b.runner.Run(ctx, nil,
			b.executable, "unlock", "--passwordenv", bitwardenPasswordEnv, "--raw")
		if err != nil {
			// stderr can echo vault state; keep it out of the error.
			_ = stderr
			return fmt.Errorf("%w: non-interactive unlock failed", ErrVaultLocked)
		}
		b.sessionKey = strings.TrimSpace(string(stdout))
		b.authenticated = true
		logrus.Debugln("Secret store unlocked with environment secret")
		return nil
	}

	return fmt.Errorf("%w: run '%s unlock' and export %s", ErrVaultLocked, b.executable, bitwardenSessionEnv)
}

func (b *Bitwarden) isUnlockedLocked(ctx context.Context) bool {
	_, _, err := b.runner.Run(ctx, b.sessionEnv(), b.executable, "list", "items")
	return err == nil
}

// GetCredentials finds an item by exact name, using the CLI search as a
// pre-filter, and returns its login pair plus any custom fields. The pair is
// never stored on the receiver.
func (b *Bitwarden) GetCredentials(ctx context.Context, itemName string) (*Credentials, error) {
	b.mu.Lock()
	authenticated := b.authenticated
	env := b.sessionEnv()
	b.mu.Unlock()

	if !authenticated {
		return nil, ErrAuthenticationRequired
	}

	stdout, stderr, err := b.runner.Run(ctx, env,
		b.executable, "list", "items", "--search", itemName)
	if err != nil {
		return nil, fmt.Errorf("listing secret store items: %v: %s", err, strings.TrimSpace(string(stderr)))
	}

	var items []bitwardenItem
	if err := json.Unmarshal(stdout, &items); err != nil {
		return nil, fmt.Errorf("parsing secret store response: %w", err)
	}

	var match *bitwardenItem
	for i := range items {
		if items[i].Name == itemName {
			match = &items[i]
			break
		}
	}
	if match == nil {
		return nil, fmt.Errorf("%w: %q", ErrItemNotFound, itemName)
	}

	if len(match.Login.Username) == 0 || len(match.Login.Password) == 0 {
		return nil, fmt.Errorf("%w: %q is missing a username or password", ErrIncompleteCredential, itemName)
	}

	creds := &Credentials{
		Username: match.Login.Username,
		Password: match.Login.Password,
	}
	if len(match.Login.TOTP) > 0 || len(match.Fields) > 0 {
		creds.Fields = make(map[string]string, len(match.Fields)+1)
		if len(match.Login.TOTP) > 0 {
			creds.Fields["totp"] = match.Login.TOTP
		}
		for _, f := range match.Fields {
			creds.Fields[f.Name] = f.Value
		}
	}

	logrus.WithFields(logrus.Fields{
		"item": itemName,
	}).Debugln("Retrieved credentials from secret store")

	return creds, nil
}

// Logout locks the vault and drops the session token. All failures are
// swallowed; locking the vault is best effort and must never break shutdown.
func (b *Bitwarden) Logout(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.authenticated && len(b.sessionKey) == 0 {
		return
	}

	if _, _, err := b.runner.Run(ctx, b.sessionEnv(), b.executable, "lock"); err != nil {
		logrus.WithError(err).Warnln("Failed to lock secret store")
	} else {
		logrus.Debugln("Secret store locked")
	}

	b.sessionKey = ""
	b.authenticated = false
}
