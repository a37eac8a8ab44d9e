package authkit

import "time"

// Account is the public view of a stored account. The password hash and any
// TOTP secret never leave the engine; callers only see the derived
// TOTPEnabled flag.
type Account struct {
	ID          string
	Login       string
	TOTPEnabled bool
	CreatedAt   time.Time
}

// LoginResult is returned by [Engine.Login]. The token is issued and the
// session created even when SecondFactorRequired is true; callers that want
// to gate protected operations on the second factor must check the flag
// themselves before honoring the token.
type LoginResult struct {
	Token                string
	SessionID            string
	SecondFactorRequired bool
}

// EnrollmentMaterial is returned by [Engine.BeginTOTPEnrollment]. Secret is
// the raw base32 shared secret for manual entry; URI is the otpauth://
// provisioning URI embedding issuer, account login, and secret, suitable for
// QR rendering by the caller.
type EnrollmentMaterial struct {
	Secret string
	URI    string
}

// SessionInfo describes one logical login session in a listing. Current is
// set on exactly one entry when the account has any sessions: the one with
// the latest start time, ties broken by highest id.
type SessionInfo struct {
	ID        string
	Device    string
	StartedAt time.Time
	Current   bool
}
