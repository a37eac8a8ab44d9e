package authkit

import "errors"

var (
	// ErrInvalidInput is returned when an operation receives a malformed
	// argument, such as an empty login or password.
	ErrInvalidInput = errors.New("invalid input")
	// ErrAccountExists is returned by Register when the login is already taken.
	ErrAccountExists = errors.New("account already exists")
	// ErrInvalidCredentials is returned by Login for both an unknown login and
	// a wrong password. The two cases are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid login or password")
	// ErrUnauthenticated is returned by CurrentAccount for any token failure:
	// bad signature, wrong algorithm, expiry, malformed input, or a subject
	// account that no longer exists.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrTOTPAlreadyEnabled is returned when enrollment is started or confirmed
	// for an account that already has a confirmed secret.
	ErrTOTPAlreadyEnabled = errors.New("totp already enabled")
	// ErrTOTPNotEnabled is returned by VerifyTOTPCode when the account has no
	// confirmed secret.
	ErrTOTPNotEnabled = errors.New("totp not enabled")
	// ErrNoPendingEnrollment is returned by ConfirmTOTPEnrollment when no
	// enrollment is in flight for the account.
	ErrNoPendingEnrollment = errors.New("no pending totp enrollment")
	// ErrEnrollmentExpired is returned when the pending enrollment window has
	// elapsed. The pending record is deleted as a side effect.
	ErrEnrollmentExpired = errors.New("totp enrollment window elapsed")
	// ErrTOTPCodeInvalid is returned when a submitted code does not match any
	// accepted time step.
	ErrTOTPCodeInvalid = errors.New("invalid totp code")
	// ErrSessionNotFound is returned by TerminateSession for both a nonexistent
	// session id and a session owned by a different account. The two cases are
	// deliberately indistinguishable.
	ErrSessionNotFound = errors.New("session not found")
	// ErrStoreUnavailable wraps storage backend failures and timeouts.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// ErrorKind classifies engine errors for transport mapping. The engine never
// chooses a wire status itself; callers switch on the kind.
type ErrorKind int

const (
	// KindNone means the error is nil or not an engine error.
	KindNone ErrorKind = iota
	// KindValidation covers malformed input.
	KindValidation
	// KindConflict covers duplicate logins and already-enabled TOTP.
	KindConflict
	// KindUnauthenticated covers credential and token failures, merged to
	// avoid enumeration leaks.
	KindUnauthenticated
	// KindNotFound covers unknown or foreign session ids, merged per the same
	// anti-enumeration rule.
	KindNotFound
	// KindExpired covers an elapsed pending-enrollment window.
	KindExpired
	// KindInvalidCode covers TOTP code mismatches.
	KindInvalidCode
	// KindUnavailable covers storage failures and timeouts.
	KindUnavailable
)

// Kind maps an engine error to its [ErrorKind]. Wrapped errors are matched
// with errors.Is, so stores may annotate sentinels with causes.
func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrNoPendingEnrollment), errors.Is(err, ErrTOTPNotEnabled):
		return KindValidation
	case errors.Is(err, ErrAccountExists), errors.Is(err, ErrTOTPAlreadyEnabled):
		return KindConflict
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrUnauthenticated):
		return KindUnauthenticated
	case errors.Is(err, ErrSessionNotFound):
		return KindNotFound
	case errors.Is(err, ErrEnrollmentExpired):
		return KindExpired
	case errors.Is(err, ErrTOTPCodeInvalid):
		return KindInvalidCode
	case errors.Is(err, ErrStoreUnavailable):
		return KindUnavailable
	default:
		return KindNone
	}
}
