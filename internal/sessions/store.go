package sessions

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/swimlog/swimsync/internal/garmin"
)

const stateVersion = "1.0"

// ErrNoState means nothing has been persisted yet.
var ErrNoState = errors.New("no persisted session state")

// state is what lands on disk: either a resolved session, or a pending MFA
// ticket waiting for `swimsync mfa <code>` in a later process. Never both.
type state struct {
	Version   string          `yaml:"version"`
	Timestamp time.Time       `yaml:"timestamp"`
	Session   *garmin.Session `yaml:"session,omitempty"`
	Challenge map[string]any  `yaml:"challenge,omitempty"`
}

// Store persists session state under the user's config directory so repeat
// syncs skip the SSO exchange. Credentials never pass through here, only the
// resolved token and MFA tickets.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore returns a store rooted at dir, defaulting to ~/.config/swimsync.
func NewStore(dir string) (*Store, error) {
	if len(dir) == 0 {
		usr, err := user.Current()
		if err != nil {
			return nil, fmt.Errorf("resolving home directory: %w", err)
		}
		dir = filepath.Join(usr.HomeDir, ".config", "swimsync")
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	return &Store{path: filepath.Join(dir, "session.yaml")}, nil
}

// SaveSession persists a resolved session, clearing any pending challenge.
func (s *Store) SaveSession(session *garmin.Session) error {
	return s.write(state{Session: session})
}

// SaveChallenge persists a pending MFA ticket.
func (s *Store) SaveChallenge(ticket map[string]any) error {
	return s.write(state{Challenge: ticket})
}

// LoadSession returns the persisted session handle, if any.
func (s *Store) LoadSession() (*garmin.Session, error) {
	st, err := s.read()
	if err != nil {
		return nil, err
	}
	if st.Session == nil {
		return nil, ErrNoState
	}
	return st.Session, nil
}

// LoadChallenge returns the persisted MFA ticket, if any.
func (s *Store) LoadChallenge() (map[string]any, error) {
	st, err := s.read()
	if err != nil {
		return nil, err
	}
	if len(st.Challenge) == 0 {
		return nil, ErrNoState
	}
	return st.Challenge, nil
}

// Clear removes the persisted state. Missing state is not an error.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *Store) write(st state) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st.Version = stateVersion
	st.Timestamp = time.Now().UTC()

	data, err := yaml.Marshal(&st)
	if err != nil {
		return fmt.Errorf("encoding session state: %w", err)
	}

	// Owner-only: the file carries a live token.
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("writing session state: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"path": s.path,
	}).Debugln("Persisted session state")

	return nil
}

func (s *Store) read() (*state, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoState
		}
		return nil, fmt.Errorf("reading session state: %w", err)
	}

	var st state
	if err := yaml.Unmarshal(data, &st); err != nil {
		// Corrupt state is treated as absent rather than fatal.
		logrus.WithError(err).Warnln("Session state unreadable, ignoring")
		return nil, ErrNoState
	}
	return &st, nil
}
