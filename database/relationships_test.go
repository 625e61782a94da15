package database

import (
	"testing"

	"github.com/google/uuid"
	"github.com/siherrmann/knowledgestore/helper"
	"github.com/siherrmann/knowledgestore/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRelationshipEntities(t *testing.T, database *helper.Database) (*EntitiesDBHandler, *RelationshipsDBHandler, *model.Entity, *model.Entity) {
	t.Helper()

	entitiesDbHandler, err := NewEntitiesDBHandler(database, true)
	require.NoError(t, err)

	relationshipsDbHandler, err := NewRelationshipsDBHandler(database, true)
	require.NoError(t, err)

	source := &model.Entity{Name: "Source " + uuid.NewString(), Type: "PERSON"}
	target := &model.Entity{Name: "Target " + uuid.NewString(), Type: "COMPANY"}
	require.NoError(t, entitiesDbHandler.InsertEntity(source))
	require.NoError(t, entitiesDbHandler.InsertEntity(target))

	t.Cleanup(func() {
		relationshipsDbHandler.DeleteRelationshipsByEntity(source.ID)
		relationshipsDbHandler.DeleteRelationshipsByEntity(target.ID)
		entitiesDbHandler.DeleteEntity(source.ID)
		entitiesDbHandler.DeleteEntity(target.ID)
	})

	return entitiesDbHandler, relationshipsDbHandler, source, target
}

func TestRelationshipsInsert(t *testing.T) {
	database := initDB(t)
	_, relationshipsDbHandler, source, target := setupRelationshipEntities(t, database)

	t.Run("Insert relationship with default confidence", func(t *testing.T) {
		rel := &model.Relationship{
			SourceID:   source.ID,
			TargetID:   target.ID,
			Type:       "works_at",
			Confidence: 1.0,
		}

		err := relationshipsDbHandler.InsertRelationship(rel)
		assert.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, rel.ID)
		assert.Equal(t, 1.0, rel.Confidence)
	})

	t.Run("Duplicate triples are allowed", func(t *testing.T) {
		first := &model.Relationship{SourceID: source.ID, TargetID: target.ID, Type: "knows", Confidence: 0.5}
		second := &model.Relationship{SourceID: source.ID, TargetID: target.ID, Type: "knows", Confidence: 0.9}

		require.NoError(t, relationshipsDbHandler.InsertRelationship(first))
		require.NoError(t, relationshipsDbHandler.InsertRelationship(second))
		assert.NotEqual(t, first.ID, second.ID)
	})
}

func TestRelationshipsSelect(t *testing.T) {
	database := initDB(t)
	_, relationshipsDbHandler, source, target := setupRelationshipEntities(t, database)

	rel := &model.Relationship{SourceID: source.ID, TargetID: target.ID, Type: "works_at", Confidence: 1.0}
	require.NoError(t, relationshipsDbHandler.InsertRelationship(rel))

	t.Run("Select relationships from source side", func(t *testing.T) {
		found, err := relationshipsDbHandler.SelectRelationshipsFromEntity(source.ID, 10)
		assert.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, rel.ID, found[0].ID)

		found, err = relationshipsDbHandler.SelectRelationshipsFromEntity(target.ID, 10)
		assert.NoError(t, err)
		assert.Empty(t, found, "Expected target side to have no outgoing relationships")
	})

	t.Run("Select relationships by entity covers both sides", func(t *testing.T) {
		found, err := relationshipsDbHandler.SelectRelationshipsByEntity(target.ID)
		assert.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, rel.ID, found[0].ID)
	})
}

func TestRelationshipsDelete(t *testing.T) {
	database := initDB(t)
	_, relationshipsDbHandler, source, target := setupRelationshipEntities(t, database)

	t.Run("Delete by triple removes all duplicates", func(t *testing.T) {
		first := &model.Relationship{SourceID: source.ID, TargetID: target.ID, Type: "knows", Confidence: 1.0}
		second := &model.Relationship{SourceID: source.ID, TargetID: target.ID, Type: "knows", Confidence: 1.0}
		require.NoError(t, relationshipsDbHandler.InsertRelationship(first))
		require.NoError(t, relationshipsDbHandler.InsertRelationship(second))

		deleted, err := relationshipsDbHandler.DeleteRelationship(source.ID, target.ID, "knows")
		assert.NoError(t, err)
		assert.Equal(t, 2, deleted)
	})

	t.Run("Delete missing triple removes nothing", func(t *testing.T) {
		deleted, err := relationshipsDbHandler.DeleteRelationship(source.ID, target.ID, "never_existed")
		assert.NoError(t, err)
		assert.Equal(t, 0, deleted)
	})

	t.Run("Delete by entity removes both directions", func(t *testing.T) {
		outgoing := &model.Relationship{SourceID: source.ID, TargetID: target.ID, Type: "a", Confidence: 1.0}
		incoming := &model.Relationship{SourceID: target.ID, TargetID: source.ID, Type: "b", Confidence: 1.0}
		require.NoError(t, relationshipsDbHandler.InsertRelationship(outgoing))
		require.NoError(t, relationshipsDbHandler.InsertRelationship(incoming))

		deleted, err := relationshipsDbHandler.DeleteRelationshipsByEntity(source.ID)
		assert.NoError(t, err)
		assert.Equal(t, 2, deleted)
	})
}
