// Package stores implements the Redis persistence layer: accounts with
// a unique login index, pending authenticator enrollments, and session
// records grouped per account.
//
// Every multi-key mutation runs as a Lua script or a MULTI/EXEC
// pipeline so concurrent callers never observe partial writes. Stores
// translate redis.Nil into typed not-found errors and wrap every other
// backend failure in ErrBackend so callers can classify outages without
// inspecting driver errors.
package stores
