package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Chunk is the unit of text that gets embedded and retrieved. One chunk
// aggregates the derived text of all elements in its group (a page by
// default), in extraction order.
type Chunk struct {
	DocumentID   string
	PageNumber   int
	ChunkIndex   int
	CombinedText string
	// SourceElementIDs lists the elements whose derived text went into
	// CombinedText, in extraction order.
	SourceElementIDs []string
}

// ID returns the stable chunk identifier used as the vector index key.
func (c *Chunk) ID() string {
	return fmt.Sprintf("%s:%d:%d", c.DocumentID, c.PageNumber, c.ChunkIndex)
}

// ContentHash returns the deterministic fingerprint of the chunk's
// combined text. Re-ingesting a chunk whose hash matches the stored one
// is a no-op, which keeps repeated uploads from duplicating vectors.
func (c *Chunk) ContentHash() string {
	sum := sha256.Sum256([]byte(c.CombinedText))
	return hex.EncodeToString(sum[:])
}

// ValidateChunk validates a Chunk instance
func ValidateChunk(c *Chunk) error {
	if c == nil {
		return fmt.Errorf("chunk cannot be nil")
	}

	if c.DocumentID == "" {
		return fmt.Errorf("chunk DocumentID is required")
	}

	if c.PageNumber <= 0 {
		return fmt.Errorf("chunk PageNumber must be greater than 0")
	}

	if c.ChunkIndex < 0 {
		return fmt.Errorf("chunk ChunkIndex cannot be negative")
	}

	if c.CombinedText == "" {
		return ErrEmptyChunk
	}

	return nil
}

// EmbeddingRecord is the persisted form of an embedded chunk: the vector
// plus the metadata needed for scoped retrieval and idempotent upserts.
type EmbeddingRecord struct {
	ChunkID          string
	DocumentID       string
	PageNumber       int
	ChunkIndex       int
	Content          string
	SourceElementIDs []string
	ContentHash      string
	Vector           []float32
}

// ScoredChunk pairs a retrieved chunk with its similarity score.
type ScoredChunk struct {
	Chunk Chunk
	Score float32
}
