// Package domain defines the core entities of the retrieval layer.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Chunk: A bounded slice of a source document's text
//   - IndexEntry: A chunk stored alongside its embedding
//   - SearchResult: A chunk returned by a nearest-neighbour query
//   - ContextResult: Assembled, attributed context for a downstream model
//   - Filter: A metadata predicate applied at query time
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
