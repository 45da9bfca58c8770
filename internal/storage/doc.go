// Package storage provides SQLite-backed durable key-value storage for the
// restoration snapshot.
//
// Every snapshot save is one transaction: all keys are set or deleted
// together, so a reader never observes a partial snapshot. Each applied save
// is recorded with a logical sequence number and a content digest; saving
// the same content twice is a no-op.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// Digests are SHA-256 over canonical JSON (sorted keys, NFC-normalized
// strings, no HTML escaping) with domain separation.
package storage
