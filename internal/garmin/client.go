package garmin

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultBaseURL = "https://connect.garmin.com"

// Client talks to the Garmin Connect API. It owns exactly one logical
// session: concurrent logins against the same client are not supported, the
// remote treats overlapping MFA challenges as conflicting. Data fetches are
// safe once the client is authenticated.
type Client struct {
	http *resty.Client

	mu        sync.Mutex
	state     State
	session   *Session
	challenge *MFAChallenge

	// rawToken holds the decoded body of the last SSO exchange. When login
	// fails with the MFA signature this is the unresolved ticket mapping.
	rawToken any
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different Connect endpoint,
// used by tests and self-hosted mirrors.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.http.SetBaseURL(baseURL) }
}

// WithTimeout bounds every remote call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.SetTimeout(d) }
}

// NewClient returns an unauthenticated Connect client.
func NewClient(opts ...Option) *Client {
	httpClient := resty.New().
		SetBaseURL(defaultBaseURL).
		SetTimeout(30 * time.Second).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "swimsync")

	c := &Client{
		http:  httpClient,
		state: StateUnauthenticated,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current authentication state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Session returns the live session handle, or nil when not authenticated.
func (c *Client) Session() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Challenge returns the pending MFA challenge, or nil.
func (c *Client) Challenge() *MFAChallenge {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.challenge
}

// RestoreSession adopts a previously persisted session handle so repeat runs
// skip the SSO exchange. Expired tokens are rejected; the caller has to log
// in again.
func (c *Client) RestoreSession(s *Session) error {
	if s == nil || s.Token == nil || !s.Token.Valid() {
		return fmt.Errorf("%w: stored session expired", ErrNotAuthenticated)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.session = s
	c.challenge = nil
	c.rawToken = nil
	c.state = StateAuthenticated
	c.http.SetAuthToken(s.Token.AccessToken)
	return nil
}

// RestoreChallenge adopts a persisted MFA ticket, putting the client back
// into the MFAPending state so a later process can call ResumeWithCode.
func (c *Client) RestoreChallenge(ticket map[string]any) error {
	if len(ticket) == 0 {
		return ErrNoPendingChallenge
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.challenge = &MFAChallenge{Ticket: ticket}
	c.session = nil
	c.state = StateMFAPending
	return nil
}

// requireSession is the guard precondition for every data fetch.
func (c *Client) requireSession() (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateAuthenticated || c.session == nil {
		return nil, ErrNotAuthenticated
	}
	return c.session, nil
}

// invalidateSession drops the handle after the remote rejected it, so
// subsequent fetches fail fast instead of hammering the API.
func (c *Client) invalidateSession() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.session = nil
	c.state = StateUnauthenticated
	c.http.SetAuthToken("")
}
