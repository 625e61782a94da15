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

// ChunksDBHandlerFunctions defines the interface for Chunks database operations.
type ChunksDBHandlerFunctions interface {
	InsertChunk(chunk *model.Chunk) error
	SelectChunk(id uuid.UUID) (*model.Chunk, error)
	SelectChunksByDocument(documentID string) ([]*model.Chunk, error)
	SelectChunksWithoutEmbedding(documentID string) ([]*model.Chunk, error)
	UpdateChunkEmbedding(id uuid.UUID, embedding []float32) error
	DeleteChunksByDocument(documentID string) (int, error)
	SelectChunksBySimilarity(embedding []float32, limit int) ([]*model.Chunk, error)
	CountChunks() (int, error)
	CountEmbeddedChunks() (int, error)
}

// ChunksDBHandler handles chunk-related database operations
type ChunksDBHandler struct {
	db *helper.Database
}

// NewChunksDBHandler creates a new chunks database handler.
// It initializes the database connection and loads chunk-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewChunksDBHandler(db *helper.Database, embeddingDim int, force bool) (*ChunksDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	chunksDbHandler := &ChunksDBHandler{
		db: db,
	}

	err := loadSql.LoadChunksSql(chunksDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load chunks sql", err)
	}

	err = chunksDbHandler.CreateTable(embeddingDim)
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized ChunksDBHandler")

	return chunksDbHandler, nil
}

// CreateTable creates the 'chunks' table in the database.
// If the table already exists, it does not create it again.
// It also creates all necessary indexes.
func (h *ChunksDBHandler) CreateTable(embeddingDim int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_chunks($1);`, embeddingDim)
	if err != nil {
		log.Panicf("error initializing chunks table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table chunks")

	return nil
}

// InsertChunk inserts a new chunk without an embedding. The embedding is
// set later via UpdateChunkEmbedding.
func (h *ChunksDBHandler) InsertChunk(chunk *model.Chunk) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_chunk($1, $2, $3, $4, $5)`,
		chunk.DocumentID,
		chunk.ChunkIndex,
		chunk.Content,
		chunk.StartPos,
		chunk.EndPos,
	)

	err := scanChunk(row, chunk)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectChunk retrieves a chunk by ID
func (h *ChunksDBHandler) SelectChunk(id uuid.UUID) (*model.Chunk, error) {
	chunk := &model.Chunk{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_chunk($1)`,
		id,
	)

	err := scanChunk(row, chunk)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("chunk %v: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return chunk, nil
}

// SelectChunksByDocument retrieves all chunks for a document ordered by index
func (h *ChunksDBHandler) SelectChunksByDocument(documentID string) ([]*model.Chunk, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_chunks_by_document($1)`,
		documentID,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return scanChunks(rows)
}

// SelectChunksWithoutEmbedding retrieves a document's chunks that have no
// embedding yet, ordered by index.
func (h *ChunksDBHandler) SelectChunksWithoutEmbedding(documentID string) ([]*model.Chunk, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_chunks_without_embedding($1)`,
		documentID,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return scanChunks(rows)
}

// UpdateChunkEmbedding sets the embedding of a chunk
func (h *ChunksDBHandler) UpdateChunkEmbedding(id uuid.UUID, embedding []float32) error {
	var updated int
	err := h.db.Instance.QueryRow(
		`SELECT update_chunk_embedding($1, $2)`,
		id,
		pgvector.NewVector(embedding),
	).Scan(&updated)
	if err != nil {
		return helper.NewError("scan", err)
	}

	if updated == 0 {
		return fmt.Errorf("chunk %v: %w", id, model.ErrNotFound)
	}

	return nil
}

// DeleteChunksByDocument deletes all chunks of a document and returns the
// number of rows removed. Must run before the document row is deleted.
func (h *ChunksDBHandler) DeleteChunksByDocument(documentID string) (int, error) {
	var deleted int
	err := h.db.Instance.QueryRow(
		`SELECT delete_chunks_by_document($1)`,
		documentID,
	).Scan(&deleted)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}

	return deleted, nil
}

// SelectChunksBySimilarity performs vector similarity search over embedded chunks
func (h *ChunksDBHandler) SelectChunksBySimilarity(embedding []float32, limit int) ([]*model.Chunk, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_chunks_by_similarity($1, $2)`,
		pgvector.NewVector(embedding),
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var results []*model.Chunk
	for rows.Next() {
		chunk := &model.Chunk{Embedded: true}
		err := rows.Scan(
			&chunk.ID,
			&chunk.DocumentID,
			&chunk.ChunkIndex,
			&chunk.Content,
			&chunk.StartPos,
			&chunk.EndPos,
			&chunk.CreatedAt,
			&chunk.Similarity,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		results = append(results, chunk)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return results, nil
}

// CountChunks returns the number of stored chunks
func (h *ChunksDBHandler) CountChunks() (int, error) {
	var count int
	err := h.db.Instance.QueryRow(`SELECT count_chunks()`).Scan(&count)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}
	return count, nil
}

// CountEmbeddedChunks returns the number of chunks with an embedding
func (h *ChunksDBHandler) CountEmbeddedChunks() (int, error) {
	var count int
	err := h.db.Instance.QueryRow(`SELECT count_embedded_chunks()`).Scan(&count)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}
	return count, nil
}

func scanChunk(row rowScanner, chunk *model.Chunk) error {
	return row.Scan(
		&chunk.ID,
		&chunk.DocumentID,
		&chunk.ChunkIndex,
		&chunk.Content,
		&chunk.StartPos,
		&chunk.EndPos,
		&chunk.Embedded,
		&chunk.CreatedAt,
	)
}

func scanChunks(rows *sql.Rows) ([]*model.Chunk, error) {
	var chunks []*model.Chunk
	for rows.Next() {
		chunk := &model.Chunk{}
		err := scanChunk(rows, chunk)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		chunks = append(chunks, chunk)
	}

	err := rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return chunks, nil
}
