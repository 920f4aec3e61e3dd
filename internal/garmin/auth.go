package garmin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

// Login runs the SSO exchange. Three outcomes:
//
//   - Authenticated: AuthResult with a live Session, challenge cleared.
//   - MFARequired: AuthResult with the extracted ticket; the client moves to
//     MFAPending and waits for ResumeWithCode. Not an error.
//   - failure: an error wrapping ErrAuthenticationFailed (or
//     ErrMFADetectionFailed when the challenge shape is unusable).
//
// Credentials are consumed here and never stored on the client.
func (c *Client) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateAuthenticating {
		return nil, errors.New("login already in progress")
	}
	c.state = StateAuthenticating

	token, err := c.signin(ctx, username, password)
	if err != nil {
		if isMFARequired(err) {
			challenge, mfaErr := c.extractChallenge()
			if mfaErr != nil {
				c.state = StateUnauthenticated
				return nil, mfaErr
			}
			c.challenge = challenge
			c.session = nil
			c.state = StateMFAPending

			logrus.Infoln("Step-up authentication required, waiting for one-time code")
			return &AuthResult{Status: AuthMFARequired, Challenge: challenge}, nil
		}

		c.state = StateUnauthenticated
		return nil, fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}

	return c.establishSession(ctx, token)
}

// ResumeWithCode completes a pending MFA challenge. Valid only in the
// MFAPending state. A rejected code leaves the challenge pending so the
// caller can prompt for a fresh one; nothing is retried automatically.
func (c *Client) ResumeWithCode(ctx context.Context, code string) (*AuthResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateMFAPending || c.challenge == nil {
		return nil, ErrNoPendingChallenge
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]any{
			"ticket": c.challenge.Ticket,
			"code":   code,
		}).
		Post("/sso/mfa/verify")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}

	if resp.IsError() {
		switch {
		case resp.StatusCode() >= http.StatusInternalServerError:
			return nil, fmt.Errorf("%w: sso answered %d", ErrRemoteUnavailable, resp.StatusCode())
		default:
			return nil, ErrInvalidCode
		}
	}

	var payload map[string]any
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, fmt.Errorf("%w: unreadable verification response", ErrMFADetectionFailed)
	}

	token, err := resolveToken(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: verification did not produce a token", ErrMFADetectionFailed)
	}

	logrus.Infoln("One-time code accepted")
	return c.establishSession(ctx, token)
}

// Logout invalidates the session handle. Best effort and idempotent: it never
// returns an error and is safe to call before any login or twice in a row.
func (c *Client) Logout(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil {
		// The remote invalidation is advisory; local state wins either way.
		if _, err := c.http.R().SetContext(ctx).Post("/sso/logout"); err != nil {
			logrus.WithError(err).Debugln("Remote logout failed")
		}
	}

	c.session = nil
	c.challenge = nil
	c.rawToken = nil
	c.http.SetAuthToken("")
	c.state = StateLoggedOut
}

// signin posts the credential pair and resolves the response into a token.
// The decoded body is parked on the client first so that a ticket-shaped
// response can be recovered as an MFA challenge.
func (c *Client) signin(ctx context.Context, username, password string) (*oauth2.Token, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{
			"username": username,
			"password": password,
		}).
		Post("/sso/signin")
	if err != nil {
		return nil, fmt.Errorf("sso signin: %v", err)
	}

	var payload map[string]any
	if len(resp.Body()) > 0 && json.Unmarshal(resp.Body(), &payload) == nil {
		c.rawToken = payload
	} else {
		c.rawToken = strings.TrimSpace(string(resp.Body()))
	}

	if resp.IsError() {
		msg, _ := payload["message"].(string)
		if len(msg) == 0 {
			msg = resp.Status()
		}
		return nil, fmt.Errorf("sso signin: %s", msg)
	}

	return resolveToken(payload)
}

// resolveToken turns an SSO response payload into an OAuth2 token. A payload
// with no access token is an unresolved login ticket, which carries none of
// a token's expiry state.
func resolveToken(payload map[string]any) (*oauth2.Token, error) {
	accessToken, _ := payload["access_token"].(string)
	if len(accessToken) == 0 {
		return nil, fmt.Errorf("sso: token payload has no attribute %q, got an unresolved ticket", "expired")
	}

	token := &oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}
	if tokenType, ok := payload["token_type"].(string); ok && len(tokenType) > 0 {
		token.TokenType = tokenType
	}
	if refresh, ok := payload["refresh_token"].(string); ok {
		token.RefreshToken = refresh
	}
	if expiresIn, ok := payload["expires_in"].(float64); ok && expiresIn > 0 {
		token.Expiry = time.Now().Add(time.Duration(expiresIn) * time.Second)
	}
	return token, nil
}

// isMFARequired classifies a login failure. Pure, no side effects. Two known
// signatures mean the account wants a one-time code:
//
//  1. an attribute-style complaint about "expired" on the token object,
//     which happens when the SSO stack got a raw ticket mapping back
//     instead of a resolved token, and
//  2. an explicit service message naming MFA as required or needed.
//
// Anything else, rejected credentials included, is a plain failure.
func isMFARequired(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())

	if strings.Contains(msg, "attribute") && strings.Contains(msg, "expired") {
		return true
	}
	if strings.Contains(msg, "mfa") &&
		(strings.Contains(msg, "required") || strings.Contains(msg, "needed")) {
		return true
	}
	return false
}

// extractChallenge lifts the parked token state into an MFAChallenge. A
// non-mapping state is fatal: the remote answered in a shape this client
// cannot guess at, so retrying would be unsafe.
func (c *Client) extractChallenge() (*MFAChallenge, error) {
	ticket, ok := c.rawToken.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: token state is %T, want a mapping", ErrMFADetectionFailed, c.rawToken)
	}
	return &MFAChallenge{Ticket: ticket}, nil
}

// establishSession finalizes authentication: resolve the profile, mint the
// session handle and clear any pending challenge. Caller holds c.mu.
func (c *Client) establishSession(ctx context.Context, token *oauth2.Token) (*AuthResult, error) {
	c.http.SetAuthToken(token.AccessToken)

	var profile struct {
		DisplayName string `json:"displayName"`
		FullName    string `json:"fullName"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&profile).
		Get("/userprofile-service/socialProfile")
	if err != nil {
		c.http.SetAuthToken("")
		c.state = StateUnauthenticated
		return nil, fmt.Errorf("%w: fetching profile: %v", ErrRemoteUnavailable, err)
	}
	if resp.IsError() {
		c.http.SetAuthToken("")
		c.state = StateUnauthenticated
		return nil, fmt.Errorf("%w: profile request answered %d", ErrRemoteUnavailable, resp.StatusCode())
	}

	session := &Session{
		ID:          uuid.New(),
		DisplayName: profile.DisplayName,
		Token:       token,
		CreatedAt:   time.Now().UTC(),
	}

	c.session = session
	c.challenge = nil
	c.rawToken = nil
	c.state = StateAuthenticated

	logrus.WithFields(logrus.Fields{
		"displayName": session.DisplayName,
		"session":     session.ID,
	}).Infoln("Authenticated with Garmin Connect")

	return &AuthResult{Status: AuthAuthenticated, Session: session}, nil
}
