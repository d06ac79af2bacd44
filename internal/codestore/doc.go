// Package codestore provides durable per-community storage for join codes.
//
// A join code is an ordered sequence of exactly CodeLength token identifiers.
// The store keeps the full mapping in memory and rewrites it through a
// Backend after every mutation:
//   - FileBackend: human-readable JSON, written to a temp file in the same
//     directory and renamed over the canonical path
//   - SQLiteBackend: one table, replaced inside a single transaction
//
// # Guarantees
//
// Readers never observe a partially applied mutation. Set and Remove build a
// new mapping, persist it, and only then swap it in under the writer lock.
// A failed persist leaves the previous mapping in place.
//
// Loading is lenient. Missing backing data yields an empty mapping, and so
// does malformed backing data: the store is advisory state, so availability
// wins over strict validation. Entries that are not exactly CodeLength
// non-empty strings are dropped individually.
//
// The store does not know about the token catalog. Stored identifiers are
// kept even when the catalog no longer lists them.
package codestore
