// Package sqlite provides a SQLite-backed implementation of the vector store port.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. One database file holds any number of
// named collections; each collection's entries are invisible to the others.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
// Embeddings are stored as little-endian float32 blobs next to the chunk text
// and its metadata.
//
// # Data Location
//
// By default, the database is stored at ~/.sercha-rag/data/index.db
//
// # Search
//
// Queries are exact: every entry of the collection is scored by cosine distance
// and ranked in Go. Ties are broken by insertion sequence.
//
// # Thread Safety
//
// All operations are thread-safe, including across processes sharing one data
// directory. Writes run in IMMEDIATE transactions under SQLite's WAL locking.
// Insert looks up already stored content hashes inside its transaction, so two
// processes inserting the same chunk keep one copy.
package sqlite
