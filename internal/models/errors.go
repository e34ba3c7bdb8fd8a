package models

import "errors"

// Failure taxonomy. Callers route on errors.Is; each failure is handled at
// the boundary closest to its origin (embedding is retried once, generation
// falls back to standard mode, empty extraction stores a zero-chunk
// document).
var (
	// ErrExtractionEmpty means no text was found in an upload. Not fatal.
	ErrExtractionEmpty = errors.New("no extractable text found")

	// ErrEmbeddingUnavailable means the embedding backend is unreachable.
	// Never substitute a zero vector: that would corrupt similarity ranking
	// without detection.
	ErrEmbeddingUnavailable = errors.New("embedding backend unavailable")

	// ErrNoRelevantContent means search returned nothing above the
	// relevance threshold. User-visible notice, not an error state.
	ErrNoRelevantContent = errors.New("no relevant content found")

	// ErrGenerationUnavailable means the external AI call failed or timed
	// out. Triggers automatic fallback to standard mode.
	ErrGenerationUnavailable = errors.New("generation backend unavailable")

	// ErrDocumentNotFound means the referenced document has no chunks or
	// was deleted.
	ErrDocumentNotFound = errors.New("document not found")
)
