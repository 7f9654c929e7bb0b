package retrieval

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is matched by every validation error.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmptyDocument indicates an empty or whitespace-only document.
	ErrEmptyDocument = fmt.Errorf("%w: document is empty", ErrInvalidInput)

	// ErrEmptyQuery indicates an empty or whitespace-only query.
	ErrEmptyQuery = fmt.Errorf("%w: query is empty", ErrInvalidInput)

	// ErrEmptyChunk indicates a caller-supplied chunk that is blank after trimming.
	ErrEmptyChunk = fmt.Errorf("%w: chunk is empty", ErrInvalidInput)

	// ErrInvalidTopK indicates a result count below one.
	ErrInvalidTopK = fmt.Errorf("%w: top_k must be at least 1", ErrInvalidInput)
)

// EmbeddingError reports a failed or malformed embedding.
type EmbeddingError struct {
	// Op is "ingest" or "search".
	Op  string
	Err error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding for %s: %v", e.Op, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// IngestionError reports a failed batch write. None of the batch should be
// assumed written.
type IngestionError struct {
	// Records is the size of the batch that failed.
	Records int
	Err     error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("writing %d records: %v", e.Records, e.Err)
}

func (e *IngestionError) Unwrap() error { return e.Err }

// QueryError reports a failed store query.
type QueryError struct {
	TopK int
	Err  error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("querying top %d: %v", e.TopK, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }
