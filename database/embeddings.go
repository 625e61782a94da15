package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/siherrmann/knowledgestore/helper"
	"github.com/siherrmann/knowledgestore/model"
	loadSql "github.com/siherrmann/knowledgestore/sql"
)

// EmbeddingsDBHandlerFunctions defines the interface for entity embedding
// and chunk-entity link database operations.
type EmbeddingsDBHandlerFunctions interface {
	UpsertEntityEmbedding(embedding *model.EntityEmbedding) error
	SelectEntityEmbedding(entityID uuid.UUID) (*model.EntityEmbedding, error)
	DeleteEntityEmbedding(entityID uuid.UUID) (int, error)
	LinkChunkEntity(chunkID uuid.UUID, entityID uuid.UUID) (bool, error)
	SelectChunkLinksByEntity(entityID uuid.UUID) ([]*model.ChunkEntityLink, error)
	DeleteChunkLinksByEntity(entityID uuid.UUID) (int, error)
	DeleteChunkLinksByDocument(documentID string) (int, error)
}

// EmbeddingsDBHandler handles entity embeddings and chunk-entity links
type EmbeddingsDBHandler struct {
	db *helper.Database
}

// NewEmbeddingsDBHandler creates a new embeddings database handler.
// It initializes the database connection and loads embedding-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewEmbeddingsDBHandler(db *helper.Database, embeddingDim int, force bool) (*EmbeddingsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	embeddingsDbHandler := &EmbeddingsDBHandler{
		db: db,
	}

	err := loadSql.LoadEmbeddingsSql(embeddingsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load embeddings sql", err)
	}

	err = embeddingsDbHandler.CreateTables(embeddingDim)
	if err != nil {
		return nil, helper.NewError("create tables", err)
	}

	db.Logger.Info("Initialized EmbeddingsDBHandler")

	return embeddingsDbHandler, nil
}

// CreateTables creates the 'entity_embeddings' and 'chunk_entities' tables.
// If the tables already exist, it does not create them again.
func (h *EmbeddingsDBHandler) CreateTables(embeddingDim int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_entity_embeddings($1);`, embeddingDim)
	if err != nil {
		log.Panicf("error initializing entity_embeddings table: %#v", err)
	}

	_, err = h.db.Instance.ExecContext(ctx, `SELECT init_chunk_entities();`)
	if err != nil {
		log.Panicf("error initializing chunk_entities table: %#v", err)
	}

	h.db.Logger.Info("Checked/created tables entity_embeddings and chunk_entities")

	return nil
}

// UpsertEntityEmbedding inserts or replaces the embedding of an entity
func (h *EmbeddingsDBHandler) UpsertEntityEmbedding(embedding *model.EntityEmbedding) error {
	var vec pgvector.Vector
	row := h.db.Instance.QueryRow(
		`SELECT * FROM upsert_entity_embedding($1, $2, $3)`,
		embedding.EntityID,
		pgvector.NewVector(embedding.Embedding),
		embedding.EmbeddingText,
	)

	err := row.Scan(
		&embedding.EntityID,
		&vec,
		&embedding.EmbeddingText,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	embedding.Embedding = vec.Slice()

	return nil
}

// SelectEntityEmbedding retrieves the embedding of an entity
func (h *EmbeddingsDBHandler) SelectEntityEmbedding(entityID uuid.UUID) (*model.EntityEmbedding, error) {
	embedding := &model.EntityEmbedding{}
	var vec pgvector.Vector
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_entity_embedding($1)`,
		entityID,
	)

	err := row.Scan(
		&embedding.EntityID,
		&vec,
		&embedding.EmbeddingText,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("entity embedding %v: %w", entityID, model.ErrNotFound)
	}
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	embedding.Embedding = vec.Slice()

	return embedding, nil
}

// DeleteEntityEmbedding deletes the embedding of an entity and returns the
// number of rows removed.
func (h *EmbeddingsDBHandler) DeleteEntityEmbedding(entityID uuid.UUID) (int, error) {
	var deleted int
	err := h.db.Instance.QueryRow(
		`SELECT delete_entity_embedding($1)`,
		entityID,
	).Scan(&deleted)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}

	return deleted, nil
}

// LinkChunkEntity links a chunk to an entity. Returns true if a new link
// was created, false if the pair already existed.
func (h *EmbeddingsDBHandler) LinkChunkEntity(chunkID uuid.UUID, entityID uuid.UUID) (bool, error) {
	var created int
	err := h.db.Instance.QueryRow(
		`SELECT link_chunk_entity($1, $2)`,
		chunkID,
		entityID,
	).Scan(&created)
	if err != nil {
		return false, helper.NewError("scan", err)
	}

	return created > 0, nil
}

// SelectChunkLinksByEntity retrieves all chunk links of an entity
func (h *EmbeddingsDBHandler) SelectChunkLinksByEntity(entityID uuid.UUID) ([]*model.ChunkEntityLink, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_chunk_links_by_entity($1)`,
		entityID,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var links []*model.ChunkEntityLink
	for rows.Next() {
		link := &model.ChunkEntityLink{}
		err := rows.Scan(
			&link.ChunkID,
			&link.EntityID,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		links = append(links, link)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return links, nil
}

// DeleteChunkLinksByEntity deletes all chunk links of an entity. Must run
// before the entity row itself is deleted.
func (h *EmbeddingsDBHandler) DeleteChunkLinksByEntity(entityID uuid.UUID) (int, error) {
	var deleted int
	err := h.db.Instance.QueryRow(
		`SELECT delete_chunk_links_by_entity($1)`,
		entityID,
	).Scan(&deleted)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}

	return deleted, nil
}

// DeleteChunkLinksByDocument deletes all chunk links belonging to a
// document's chunks. Must run before the chunks themselves are deleted.
func (h *EmbeddingsDBHandler) DeleteChunkLinksByDocument(documentID string) (int, error) {
	var deleted int
	err := h.db.Instance.QueryRow(
		`SELECT delete_chunk_links_by_document($1)`,
		documentID,
	).Scan(&deleted)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}

	return deleted, nil
}
