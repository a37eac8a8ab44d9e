// Package token issues and validates the engine's signed, expiring bearer
// tokens. A token is self-contained: it binds the subject account id and an
// expiry under an HMAC-SHA256 signature, so authenticity is verifiable
// without a store lookup. Confirming that the subject still exists is the
// caller's job.
package token
