package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an upload whose type cannot be extracted.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrExtractionEmpty indicates extraction produced no usable text.
	// Callers treat it as an empty result, not a failure.
	ErrExtractionEmpty = errors.New("extraction produced no text")

	// ErrEmbeddingModelUnavailable indicates the embedding model could not be
	// loaded or reached. It is fatal at startup.
	ErrEmbeddingModelUnavailable = errors.New("embedding model unavailable")

	// ErrDimensionMismatch indicates a vector whose length differs from the
	// collection's fixed dimensionality.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrStorageUnavailable indicates the persistent index cannot be opened,
	// read, or written.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrInvalidFilter indicates a malformed metadata filter.
	ErrInvalidFilter = errors.New("invalid filter")
)
