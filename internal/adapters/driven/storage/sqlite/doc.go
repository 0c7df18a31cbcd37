// Package sqlite provides the SQLite-backed passage pool.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation.
//
// # Schema
//
// The schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
// Embeddings are stored as little-endian float32 blobs.
//
// # Data Location
//
// By default, the pool is read from ~/.htp/passages.db
//
// # Thread Safety
//
// All operations are thread-safe. The pool is opened read-only for serving.
package sqlite
