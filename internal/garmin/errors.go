package garmin

import "errors"

var (
	// ErrAuthenticationFailed wraps any login failure that is not an MFA
	// challenge, most commonly rejected credentials.
	ErrAuthenticationFailed = errors.New("garmin authentication failed")

	// ErrInvalidCode means the remote rejected a submitted one-time code.
	// The challenge stays pending; the caller may retry with a fresh code.
	ErrInvalidCode = errors.New("one-time code rejected")

	// ErrMFADetectionFailed means the login looked like an MFA challenge but
	// the ticket state had an unexpected shape. Unrecoverable: the remote API
	// answered something this client cannot safely interpret.
	ErrMFADetectionFailed = errors.New("mfa detection failed: unexpected token state")

	// ErrNoPendingChallenge guards ResumeWithCode outside the MFAPending state.
	ErrNoPendingChallenge = errors.New("no pending mfa challenge")

	// ErrNotAuthenticated guards every data fetch. Also returned when the
	// remote invalidates the session mid-flight; the caller has to log in
	// again rather than retry.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrRemoteUnavailable is a transient network or service failure.
	// Safe for the caller to retry with backoff.
	ErrRemoteUnavailable = errors.New("garmin service unavailable")
)
