// Package statestore provides a schema-validated, namespace-prefixed hash
// store on top of Redis. It is the durable state backing for slipline:
// cursor positions, session credentials and any other small records that
// must survive restarts live here.
//
// # Core Concepts
//
// A Schema names a logical record type and declares the type of every field
// it may contain. Every write is validated against the bound schema before
// it touches Redis; a record that fails validation is never persisted, so a
// key either holds a complete valid field set or nothing at all.
//
// A Store binds one Schema (plus an optional namespace prefix) to a shared
// Redis client. Physical keys follow the pattern:
//
//	{prefix}:{schema_name}:{local_key}
//
// with empty segments elided. Reads decode each field according to its
// declared type, so a stored string that happens to look like a number is
// always returned as a string.
//
// # Failure Model
//
// Schema validation failure is the only expected rejection and is reported
// as a *ValidationError. Fetching a key that was never written returns an
// empty record, not an error. Any Redis transport failure is wrapped and
// propagated; callers must treat it as fatal for the current operation.
package statestore
