// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - EmbeddingService: Converts text into fixed-length vectors (Ollama, OpenAI, hashing)
//   - VectorStore: Persists index entries and answers nearest-neighbour queries (SQLite, memory)
//   - Chunker: Splits document text into overlapping chunks
//   - ExtractorRegistry: Turns uploaded bytes into text
//   - ConfigStore: Application configuration
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
