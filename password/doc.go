// Package password implements one-way credential hashing with argon2id.
//
// Hashes are encoded in PHC string format, so every hash carries its own
// salt and cost parameters and can be verified after the configured
// parameters change. No other package in the module computes or compares
// password material.
package password
