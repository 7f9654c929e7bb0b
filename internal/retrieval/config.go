// Package retrieval ingests markdown documents into a vector store and
// answers similarity queries against it.
//
// Ingestion segments a document (see package segment), embeds every chunk in
// order, and writes all records to the store in one batch. Search embeds the
// query, asks the store for the nearest records and converts the reported
// cosine distance into a similarity score.
//
// Nothing here retries. Errors are returned as *EmbeddingError,
// *IngestionError or *QueryError, or as a validation sentinel matching
// ErrInvalidInput when input is rejected before any external call.
package retrieval

import (
	"time"

	"github.com/fyrsmithlabs/mdsearch/internal/config"
	"github.com/fyrsmithlabs/mdsearch/internal/segment"
)

// DefaultMaxMetadataText is the stored source text limit in characters.
const DefaultMaxMetadataText = 400

// ellipsis marks truncated source text.
const ellipsis = "..."

// Config configures ingestion and search.
type Config struct {
	// MaxChunkSize is the segmenter's chunk bound in characters.
	MaxChunkSize int

	// HardBound splits single paragraphs longer than MaxChunkSize.
	HardBound bool

	// MaxMetadataText bounds the source text stored with each record.
	MaxMetadataText int

	// Dimension is the expected embedding width. Zero disables the check.
	Dimension int

	// Clock stamps records. Defaults to time.Now.
	Clock func() time.Time
}

// ConfigFrom builds a retrieval Config from application configuration.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		MaxChunkSize:    cfg.Chunking.MaxChunkSize,
		HardBound:       cfg.Chunking.HardBound,
		MaxMetadataText: cfg.Chunking.MaxMetadataText,
		Dimension:       cfg.Embedding.Dimension,
	}
}

func (c Config) withDefaults() Config {
	if c.MaxChunkSize <= 0 {
		c.MaxChunkSize = segment.DefaultMaxChunkSize
	}
	if c.MaxMetadataText <= 0 {
		c.MaxMetadataText = DefaultMaxMetadataText
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	return c
}

// Segmenter returns a segmenter using the configured chunk bounds.
func (c Config) Segmenter() *segment.Segmenter {
	return segment.New(
		segment.WithMaxChunkSize(c.MaxChunkSize),
		segment.WithHardBound(c.HardBound),
	)
}
