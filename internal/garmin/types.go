package garmin

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// State is the authentication lifecycle of a Client.
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticating
	StateAuthenticated
	StateMFAPending
	StateLoggedOut
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateMFAPending:
		return "mfa-pending"
	case StateLoggedOut:
		return "logged-out"
	default:
		return "unknown"
	}
}

// Session is the opaque authenticated handle. It is owned by exactly one
// Client; it is created on a successful login or MFA resumption and
// invalidated by Logout.
type Session struct {
	ID          uuid.UUID     `json:"id" yaml:"id"`
	DisplayName string        `json:"displayName" yaml:"displayName"`
	Token       *oauth2.Token `json:"token" yaml:"token"`
	CreatedAt   time.Time     `json:"createdAt" yaml:"createdAt"`
}

// MFAChallenge holds the partial OAuth ticket handed back by the SSO service
// when step-up authentication is required. It is consumed by ResumeWithCode
// and cleared on success or logout.
type MFAChallenge struct {
	Ticket map[string]any `json:"ticket" yaml:"ticket"`
}

// AuthStatus tags an AuthResult.
type AuthStatus int

const (
	// AuthAuthenticated: login completed, Session is set.
	AuthAuthenticated AuthStatus = iota
	// AuthMFARequired: the account needs a one-time code. Challenge is set.
	// This is an expected branch, not a failure; callers must prompt for a
	// code and call ResumeWithCode rather than abort.
	AuthMFARequired
)

// AuthResult is the successful-path outcome of Login or ResumeWithCode.
// Hard failures are returned as errors instead, so "needs a code" can never
// be mistaken for "wrong password".
type AuthResult struct {
	Status    AuthStatus
	Session   *Session
	Challenge *MFAChallenge
}
