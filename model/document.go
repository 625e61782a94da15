package model

import (
	"time"

	"github.com/google/uuid"
)

// Document represents a stored source document. The id is caller-supplied
// and acts as the primary key; re-storing the same id overwrites.
type Document struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Metadata  Metadata  `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Chunk is a fixed-size overlapping window of a document. Chunks are
// immutable once created except for the embedding, which is unset until
// the embedding step runs. The vector itself stays in the database;
// Embedded only reports its presence. Similarity is set on results of a
// similarity search.
type Chunk struct {
	ID         uuid.UUID `json:"id"`
	DocumentID string    `json:"document_id"`
	ChunkIndex int       `json:"chunk_index"`
	Content    string    `json:"content"`
	StartPos   int       `json:"start_pos"`
	EndPos     int       `json:"end_pos"`
	Embedded   bool      `json:"embedded"`
	CreatedAt  time.Time `json:"created_at"`
	Similarity float64   `json:"similarity,omitempty"`
}

// ChunkEntityLink marks that an entity is discussed in a chunk.
// The (chunk, entity) pair is unique; re-linking is idempotent.
type ChunkEntityLink struct {
	ChunkID  uuid.UUID `json:"chunk_id"`
	EntityID uuid.UUID `json:"entity_id"`
}
