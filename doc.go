// Package authkit provides an authentication and session-integrity engine with
// argon2id credential hashing, signed expiring bearer tokens, a two-phase TOTP
// enrollment state machine, and Redis-backed logical login sessions.
//
// The package is designed for request-per-call server workloads: Engine methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// authkit is the public surface. It exposes [Engine], [Builder], [Config],
// the sentinel error taxonomy, and value types (Account, LoginResult,
// SessionInfo, EnrollmentMaterial). Storage, audit dispatch, and metrics
// internals live under internal/ and are never exported. Transport concerns
// (routing, request decoding, status codes) belong to the caller; the engine
// returns typed results and classified errors ([Kind]) for the caller to map.
//
// # What this package must NOT do
//
//   - Expose Redis clients, store key layouts, or wire encodings in its
//     public API.
//   - Encode protocol status signaling; errors carry kinds, not status codes.
//   - Log, audit, or return a password, TOTP secret, or submitted code.
package authkit
