// Package totp generates shared secrets and verifies time-based one-time
// codes. Codes follow the standard 30-second, 6-digit, SHA-1 derivation so
// off-the-shelf authenticator apps work without modification; verification
// tolerates a configurable number of time steps of clock drift on either
// side of now.
package totp
