package database

import (
	"testing"

	"github.com/google/uuid"
	"github.com/siherrmann/knowledgestore/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntityEmbeddings(t *testing.T) {
	database := initDB(t)

	entitiesDbHandler, err := NewEntitiesDBHandler(database, true)
	require.NoError(t, err)
	embeddingsDbHandler, err := NewEmbeddingsDBHandler(database, testEmbeddingDim, true)
	require.NoError(t, err)

	entity := &model.Entity{Name: "Embedded Entity " + uuid.NewString(), Type: "PERSON"}
	require.NoError(t, entitiesDbHandler.InsertEntity(entity))
	t.Cleanup(func() {
		embeddingsDbHandler.DeleteEntityEmbedding(entity.ID)
		entitiesDbHandler.DeleteEntity(entity.ID)
	})

	t.Run("Upsert and select entity embedding", func(t *testing.T) {
		embedding := &model.EntityEmbedding{
			EntityID:      entity.ID,
			Embedding:     []float32{1, 0, 0},
			EmbeddingText: "Embedded Entity (PERSON)",
		}

		err := embeddingsDbHandler.UpsertEntityEmbedding(embedding)
		assert.NoError(t, err)

		found, err := embeddingsDbHandler.SelectEntityEmbedding(entity.ID)
		require.NoError(t, err)
		assert.Equal(t, []float32{1, 0, 0}, found.Embedding)
		assert.Equal(t, "Embedded Entity (PERSON)", found.EmbeddingText)
	})

	t.Run("Upsert replaces the previous embedding", func(t *testing.T) {
		updated := &model.EntityEmbedding{
			EntityID:      entity.ID,
			Embedding:     []float32{0, 1, 0},
			EmbeddingText: "updated text",
		}

		err := embeddingsDbHandler.UpsertEntityEmbedding(updated)
		assert.NoError(t, err)

		found, err := embeddingsDbHandler.SelectEntityEmbedding(entity.ID)
		require.NoError(t, err)
		assert.Equal(t, []float32{0, 1, 0}, found.Embedding)
		assert.Equal(t, "updated text", found.EmbeddingText)
	})

	t.Run("Select missing embedding returns not found", func(t *testing.T) {
		_, err := embeddingsDbHandler.SelectEntityEmbedding(uuid.New())
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("Delete entity embedding", func(t *testing.T) {
		deleted, err := embeddingsDbHandler.DeleteEntityEmbedding(entity.ID)
		assert.NoError(t, err)
		assert.Equal(t, 1, deleted)

		deleted, err = embeddingsDbHandler.DeleteEntityEmbedding(entity.ID)
		assert.NoError(t, err)
		assert.Equal(t, 0, deleted)
	})
}

func TestChunkEntityLinks(t *testing.T) {
	database := initDB(t)

	entitiesDbHandler, err := NewEntitiesDBHandler(database, true)
	require.NoError(t, err)
	documentsDbHandler, err := NewDocumentsDBHandler(database, true)
	require.NoError(t, err)
	chunksDbHandler, err := NewChunksDBHandler(database, testEmbeddingDim, true)
	require.NoError(t, err)
	embeddingsDbHandler, err := NewEmbeddingsDBHandler(database, testEmbeddingDim, true)
	require.NoError(t, err)

	entity := &model.Entity{Name: "Linked Entity " + uuid.NewString(), Type: "TECHNOLOGY"}
	require.NoError(t, entitiesDbHandler.InsertEntity(entity))

	setupChunkDocument(t, documentsDbHandler, "link-doc")
	chunk := &model.Chunk{DocumentID: "link-doc", ChunkIndex: 0, Content: "mentions the linked entity", StartPos: 0, EndPos: 26}
	require.NoError(t, chunksDbHandler.InsertChunk(chunk))

	t.Cleanup(func() {
		embeddingsDbHandler.DeleteChunkLinksByDocument("link-doc")
		chunksDbHandler.DeleteChunksByDocument("link-doc")
		entitiesDbHandler.DeleteEntity(entity.ID)
	})

	t.Run("Link chunk to entity", func(t *testing.T) {
		created, err := embeddingsDbHandler.LinkChunkEntity(chunk.ID, entity.ID)
		assert.NoError(t, err)
		assert.True(t, created)
	})

	t.Run("Linking the same pair again is a no-op", func(t *testing.T) {
		created, err := embeddingsDbHandler.LinkChunkEntity(chunk.ID, entity.ID)
		assert.NoError(t, err)
		assert.False(t, created)

		links, err := embeddingsDbHandler.SelectChunkLinksByEntity(entity.ID)
		require.NoError(t, err)
		assert.Len(t, links, 1)
	})

	t.Run("Delete links by entity", func(t *testing.T) {
		deleted, err := embeddingsDbHandler.DeleteChunkLinksByEntity(entity.ID)
		assert.NoError(t, err)
		assert.Equal(t, 1, deleted)
	})

	t.Run("Delete links by document", func(t *testing.T) {
		created, err := embeddingsDbHandler.LinkChunkEntity(chunk.ID, entity.ID)
		require.NoError(t, err)
		require.True(t, created)

		deleted, err := embeddingsDbHandler.DeleteChunkLinksByDocument("link-doc")
		assert.NoError(t, err)
		assert.Equal(t, 1, deleted)
	})
}
