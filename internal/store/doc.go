// Package store provides durable storage for AEGIS trust state.
//
// The SQLite-backed Store holds one trust record per code identity, the
// append-only trust event history, and the rollback audit log. Records
// are read and written incrementally per identity; the whole store is
// never loaded into memory.
//
// Memory is a map-backed implementation of the same interfaces for
// tests, so the trust ledger can be exercised without touching disk.
package store
