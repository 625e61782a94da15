package knowledgestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/siherrmann/knowledgestore/core/pipeline"
	"github.com/siherrmann/knowledgestore/core/search"
	"github.com/siherrmann/knowledgestore/database"
	"github.com/siherrmann/knowledgestore/helper"
	"github.com/siherrmann/knowledgestore/model"
	loadSql "github.com/siherrmann/knowledgestore/sql"
)

// KnowledgeStore provides a unified interface to the knowledge graph and
// the document retrieval pipeline.
type KnowledgeStore struct {
	DB            *helper.Database
	Entities      *database.EntitiesDBHandler
	Relationships *database.RelationshipsDBHandler
	Documents     *database.DocumentsDBHandler
	Chunks        *database.ChunksDBHandler
	Embeddings    *database.EmbeddingsDBHandler
	Engine        *search.Engine
	Context       *search.Aggregator
	Provider      pipeline.Provider // Optional embedding provider
	// Logging
	log *slog.Logger
}

// NewKnowledgeStore creates a new KnowledgeStore instance with all
// handlers initialized. The embedding dimension fixes the width of the
// chunk and entity embedding columns.
func NewKnowledgeStore(config *helper.DatabaseConfiguration, embeddingDim int) (*KnowledgeStore, error) {
	// Logger
	opts := helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelInfo,
		},
	}
	logger := slog.New(helper.NewPrettyHandler(os.Stdout, opts))

	// Initialize database
	db := helper.NewDatabase("knowledgestore", config, logger)
	err := loadSql.Init(db.Instance)
	if err != nil {
		return nil, helper.NewError("initialize database extensions", err)
	}

	// Create all handlers in dependency order (documents before chunks,
	// entities before relationships and embeddings).
	// force=false to not reload if functions already exist
	entities, err := database.NewEntitiesDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create entities handler", err)
	}

	relationships, err := database.NewRelationshipsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create relationships handler", err)
	}

	documents, err := database.NewDocumentsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create documents handler", err)
	}

	chunks, err := database.NewChunksDBHandler(db, embeddingDim, false)
	if err != nil {
		return nil, helper.NewError("create chunks handler", err)
	}

	embeddings, err := database.NewEmbeddingsDBHandler(db, embeddingDim, false)
	if err != nil {
		return nil, helper.NewError("create embeddings handler", err)
	}

	engine := search.NewEngine(documents, logger)

	return &KnowledgeStore{
		DB:            db,
		Entities:      entities,
		Relationships: relationships,
		Documents:     documents,
		Chunks:        chunks,
		Embeddings:    embeddings,
		Engine:        engine,
		Context:       search.NewAggregator(engine, entities, relationships),
		log:           logger,
	}, nil
}

// Close closes the database connection and the embedding provider.
func (k *KnowledgeStore) Close() error {
	if k.Provider != nil {
		if err := k.Provider.Close(); err != nil {
			k.log.Warn("Error closing embedding provider", slog.Any("error", err))
		}
	}
	if k.DB != nil && k.DB.Instance != nil {
		return k.DB.Instance.Close()
	}
	return nil
}

// SetProvider sets the embedding provider used for chunk and entity
// embeddings. A nil provider disables embedding; document processing
// then degrades to chunking only.
func (k *KnowledgeStore) SetProvider(provider pipeline.Provider) {
	k.Provider = provider
}

// UseProviderFromEnv selects the embedding provider via the
// KS_EMBEDDING_PROVIDER environment variable.
func (k *KnowledgeStore) UseProviderFromEnv() error {
	provider, err := pipeline.NewProviderFromEnv()
	if err != nil {
		return helper.NewError("create embedding provider", err)
	}

	k.Provider = provider
	return nil
}

// StoreDocument stores a document under a caller-supplied id. Storing an
// existing id overwrites content and metadata; chunks from a previous
// version stay untouched until the document is re-chunked.
func (k *KnowledgeStore) StoreDocument(id string, content string, metadata model.Metadata) (*model.Document, error) {
	if id == "" {
		return nil, helper.NewError("store document", fmt.Errorf("document id is empty"))
	}

	doc := &model.Document{
		ID:       id,
		Content:  content,
		Metadata: metadata,
	}

	err := k.Documents.UpsertDocument(doc)
	if err != nil {
		return nil, helper.NewError("upsert document", err)
	}

	k.log.Info("Stored document", slog.String("document_id", doc.ID))

	return doc, nil
}

// ListDocuments returns stored documents ordered by creation time.
func (k *KnowledgeStore) ListDocuments(limit int) ([]*model.Document, error) {
	if limit <= 0 {
		limit = 100
	}
	return k.Documents.SelectAllDocuments(limit)
}

// ChunkDocument replaces a document's chunks with freshly computed
// fixed-size windows. Chunking the same content with the same config
// always produces identical chunk boundaries.
func (k *KnowledgeStore) ChunkDocument(id string, config model.ChunkConfig) ([]*model.Chunk, error) {
	doc, err := k.Documents.SelectDocument(id)
	if err != nil {
		return nil, helper.NewError("select document", err)
	}

	windows, err := pipeline.SplitWindows(doc.Content, config)
	if err != nil {
		return nil, helper.NewError("split windows", err)
	}

	// Old chunks and their entity links go first so re-chunking never
	// leaves stale rows behind.
	_, err = k.Embeddings.DeleteChunkLinksByDocument(id)
	if err != nil {
		return nil, helper.NewError("delete chunk links", err)
	}
	_, err = k.Chunks.DeleteChunksByDocument(id)
	if err != nil {
		return nil, helper.NewError("delete chunks", err)
	}

	chunks := make([]*model.Chunk, 0, len(windows))
	for _, window := range windows {
		chunk := &model.Chunk{
			DocumentID: id,
			ChunkIndex: window.Index,
			Content:    window.Content,
			StartPos:   window.Start,
			EndPos:     window.End,
		}

		err = k.Chunks.InsertChunk(chunk)
		if err != nil {
			return nil, helper.NewError("insert chunk", err)
		}

		chunks = append(chunks, chunk)
	}

	k.log.Info("Chunked document", slog.String("document_id", id), slog.Int("chunks", len(chunks)))

	return chunks, nil
}

// EmbedChunks computes embeddings for all of a document's chunks that
// have none yet. Chunks are processed independently; a failed chunk is
// logged and skipped. Returns the number of chunks embedded in this call.
func (k *KnowledgeStore) EmbedChunks(ctx context.Context, id string) (int, error) {
	if k.Provider == nil {
		return 0, helper.NewError("embed chunks", fmt.Errorf("no embedding provider configured"))
	}

	chunks, err := k.Chunks.SelectChunksWithoutEmbedding(id)
	if err != nil {
		return 0, helper.NewError("select chunks", err)
	}

	embedded := 0
	for _, chunk := range chunks {
		embedding, err := k.Provider.Embed(ctx, chunk.Content)
		if err != nil {
			k.log.Warn("Error embedding chunk",
				slog.String("chunk_id", chunk.ID.String()),
				slog.Any("error", err))
			continue
		}

		err = k.Chunks.UpdateChunkEmbedding(chunk.ID, embedding)
		if err != nil {
			k.log.Warn("Error storing chunk embedding",
				slog.String("chunk_id", chunk.ID.String()),
				slog.Any("error", err))
			continue
		}

		embedded++
	}

	return embedded, nil
}

// ProcessDocument runs the full pipeline for one document: store,
// chunk, embed. Each step is recorded in the result. Without an
// embedding provider the embed step is skipped and the run still counts
// as successful; only a failed store or chunk step fails the run.
func (k *KnowledgeStore) ProcessDocument(ctx context.Context, id string, content string, config model.ChunkConfig, metadata model.Metadata) *model.ProcessResult {
	result := &model.ProcessResult{
		DocumentID: id,
		Success:    true,
	}

	_, err := k.StoreDocument(id, content, metadata)
	if err != nil {
		result.Steps = append(result.Steps, model.ProcessStep{Name: "store", Status: model.StepFailure, Detail: err.Error()})
		result.Success = false
		return result
	}
	result.Steps = append(result.Steps, model.ProcessStep{Name: "store", Status: model.StepSuccess})

	chunks, err := k.ChunkDocument(id, config)
	if err != nil {
		result.Steps = append(result.Steps, model.ProcessStep{Name: "chunk", Status: model.StepFailure, Detail: err.Error()})
		result.Success = false
		return result
	}
	result.ChunksCreated = len(chunks)
	result.Steps = append(result.Steps, model.ProcessStep{Name: "chunk", Status: model.StepSuccess})

	if k.Provider == nil {
		result.Steps = append(result.Steps, model.ProcessStep{Name: "embed", Status: model.StepSkipped, Detail: "no embedding provider configured"})
		return result
	}

	embedded, err := k.EmbedChunks(ctx, id)
	if err != nil {
		result.Steps = append(result.Steps, model.ProcessStep{Name: "embed", Status: model.StepFailure, Detail: err.Error()})
		return result
	}
	result.EmbeddedChunks = embedded
	result.Steps = append(result.Steps, model.ProcessStep{Name: "embed", Status: model.StepSuccess})

	return result
}

// DeleteDocuments deletes documents with their chunks and chunk-entity
// links. Graph entities are never touched. Each id is processed
// independently; unknown ids are reported, not fatal.
func (k *KnowledgeStore) DeleteDocuments(ids []string) *model.BatchDeleteResult {
	result := &model.BatchDeleteResult{
		Deleted:  []string{},
		NotFound: []string{},
		Errors:   []string{},
	}

	for _, id := range ids {
		_, err := k.Embeddings.DeleteChunkLinksByDocument(id)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%v: %v", id, err))
			continue
		}

		_, err = k.Chunks.DeleteChunksByDocument(id)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%v: %v", id, err))
			continue
		}

		deleted, err := k.Documents.DeleteDocument(id)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%v: %v", id, err))
			continue
		}

		if deleted == 0 {
			result.NotFound = append(result.NotFound, id)
			continue
		}

		result.Deleted = append(result.Deleted, id)
		k.log.Info("Deleted document", slog.String("document_id", id))
	}

	return result
}

// HybridSearch returns up to limit documents ranked for the query,
// using the full-text index when available.
func (k *KnowledgeStore) HybridSearch(query string, limit int) ([]*model.SearchResult, error) {
	return k.Engine.Search(query, limit)
}

// GetDetailedContext composes documents, entities and relationships
// relevant to the query into one response.
func (k *KnowledgeStore) GetDetailedContext(query string, config model.SearchConfig) (*model.DetailedContext, error) {
	return k.Context.GetDetailedContext(query, config)
}

// ExtractTerms returns the search terms the keyword ranking would use
// for the query.
func (k *KnowledgeStore) ExtractTerms(query string) []string {
	return search.ExtractKeywords(query)
}

// SearchChunksBySimilarity embeds the query and returns the most
// similar embedded chunks. Requires an embedding provider.
func (k *KnowledgeStore) SearchChunksBySimilarity(ctx context.Context, query string, limit int) ([]*model.Chunk, error) {
	if k.Provider == nil {
		return nil, helper.NewError("search chunks", fmt.Errorf("no embedding provider configured"))
	}
	if limit <= 0 {
		limit = model.DefaultSearchConfig().Limit
	}

	embedding, err := k.Provider.Embed(ctx, query)
	if err != nil {
		return nil, helper.NewError("embed query", err)
	}

	return k.Chunks.SelectChunksBySimilarity(embedding, limit)
}

// RebuildSearchIndex (re)creates the full-text index on documents and
// resets the engine's index probe so the next search uses it.
func (k *KnowledgeStore) RebuildSearchIndex() error {
	err := k.Documents.CreateFTSIndex()
	if err != nil {
		return helper.NewError("create full-text index", err)
	}

	k.Engine.ResetIndexProbe()
	k.log.Info("Rebuilt full-text search index")

	return nil
}

// LinkEntitiesToDocument links the named entities to every chunk of the
// document whose content mentions the entity name. Returns the number
// of links created and the entity names that do not exist.
func (k *KnowledgeStore) LinkEntitiesToDocument(documentID string, entityNames []string) (int, []string, error) {
	chunks, err := k.Chunks.SelectChunksByDocument(documentID)
	if err != nil {
		return 0, nil, helper.NewError("select chunks", err)
	}

	linked := 0
	notFound := []string{}
	for _, name := range entityNames {
		entity, err := k.Entities.SelectEntityByName(name)
		if errors.Is(err, model.ErrNotFound) {
			notFound = append(notFound, name)
			continue
		}
		if err != nil {
			return linked, notFound, helper.NewError("select entity", err)
		}

		for _, chunk := range chunks {
			if !containsFold(chunk.Content, entity.Name) {
				continue
			}

			created, err := k.Embeddings.LinkChunkEntity(chunk.ID, entity.ID)
			if err != nil {
				return linked, notFound, helper.NewError("link chunk entity", err)
			}
			if created {
				linked++
			}
		}
	}

	return linked, notFound, nil
}

// GetKnowledgeGraphStats summarizes the stored graph and corpus.
func (k *KnowledgeStore) GetKnowledgeGraphStats() (*model.GraphStats, error) {
	stats := &model.GraphStats{}

	var err error
	stats.Entities, err = k.Entities.CountEntities()
	if err != nil {
		return nil, helper.NewError("count entities", err)
	}

	stats.EntityTypes, err = k.Entities.CountEntitiesByType()
	if err != nil {
		return nil, helper.NewError("count entities by type", err)
	}

	stats.Relationships, err = k.Relationships.CountRelationships()
	if err != nil {
		return nil, helper.NewError("count relationships", err)
	}

	stats.Documents, err = k.Documents.CountDocuments()
	if err != nil {
		return nil, helper.NewError("count documents", err)
	}

	stats.Chunks, err = k.Chunks.CountChunks()
	if err != nil {
		return nil, helper.NewError("count chunks", err)
	}

	stats.EmbeddedChunks, err = k.Chunks.CountEmbeddedChunks()
	if err != nil {
		return nil, helper.NewError("count embedded chunks", err)
	}

	return stats, nil
}
