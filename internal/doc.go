// Package internal contains supporting infrastructure that is not part
// of the public API surface: Redis-backed stores and the asynchronous
// audit dispatcher.
//
// Nothing under internal/ makes policy decisions. Stores persist and
// retrieve records atomically, the audit dispatcher delivers events;
// all orchestration lives in the root package.
package internal
