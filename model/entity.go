package model

import (
	"time"

	"github.com/google/uuid"
)

// Entity represents a named node in the knowledge graph.
// Names are unique across the store; creating a duplicate fails.
type Entity struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Type         string    `json:"entity_type"`
	Observations []string  `json:"observations"`
	Metadata     Metadata  `json:"metadata,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Relationship represents a directed, typed edge between two entities.
// Publicly a relationship is identified by (from, to, type); the row id
// is internal.
type Relationship struct {
	ID         uuid.UUID `json:"id"`
	SourceID   uuid.UUID `json:"source_id"`
	TargetID   uuid.UUID `json:"target_id"`
	SourceName string    `json:"from,omitempty"`
	TargetName string    `json:"to,omitempty"`
	Type       string    `json:"relation_type"`
	Confidence float64   `json:"confidence"`
	Metadata   Metadata  `json:"metadata,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// EntityEmbedding is the one-to-one embedding attached to an entity.
// EmbeddingText records the exact text that was embedded.
type EntityEmbedding struct {
	EntityID      uuid.UUID `json:"entity_id"`
	Embedding     []float32 `json:"embedding"`
	EmbeddingText string    `json:"embedding_text"`
}

// EntityInput is the caller-facing shape for entity creation.
type EntityInput struct {
	Name         string   `json:"name"`
	EntityType   string   `json:"entityType"`
	Observations []string `json:"observations,omitempty"`
	Metadata     Metadata `json:"metadata,omitempty"`
}

// RelationInput identifies a relationship by entity names.
type RelationInput struct {
	From         string   `json:"from"`
	To           string   `json:"to"`
	RelationType string   `json:"relationType"`
	Confidence   *float64 `json:"confidence,omitempty"`
	Metadata     Metadata `json:"metadata,omitempty"`
}

// ObservationInput adds observations to an existing entity.
type ObservationInput struct {
	EntityName string   `json:"entityName"`
	Contents   []string `json:"contents"`
}

// ObservationDeletion removes exact-match observation strings from an entity.
type ObservationDeletion struct {
	EntityName   string   `json:"entityName"`
	Observations []string `json:"observations"`
}
