package knowledgestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/siherrmann/knowledgestore/helper"
	"github.com/siherrmann/knowledgestore/model"
)

// CreateEntities creates entities one by one. A duplicate name fails
// that entity with a conflict error; the rest of the batch continues.
// With an embedding provider set, each created entity also gets an
// embedding; an embedding failure is logged but never fails creation.
func (k *KnowledgeStore) CreateEntities(ctx context.Context, inputs []model.EntityInput) []model.EntityResult {
	results := make([]model.EntityResult, 0, len(inputs))
	for _, input := range inputs {
		entity := &model.Entity{
			Name:         input.Name,
			Type:         input.EntityType,
			Observations: input.Observations,
			Metadata:     input.Metadata,
		}

		err := k.Entities.InsertEntity(entity)
		if err != nil {
			results = append(results, model.EntityResult{
				Name:  input.Name,
				Error: err.Error(),
			})
			continue
		}

		k.embedEntity(ctx, entity)

		results = append(results, model.EntityResult{
			Name:    entity.Name,
			Success: true,
			ID:      entity.ID.String(),
		})
	}

	return results
}

// CreateRelations creates relationships one by one. Both endpoints must
// exist; a missing endpoint fails that relation only. Duplicate triples
// are allowed. Confidence defaults to 1.0 when not given.
func (k *KnowledgeStore) CreateRelations(inputs []model.RelationInput) []model.RelationResult {
	results := make([]model.RelationResult, 0, len(inputs))
	for _, input := range inputs {
		result := model.RelationResult{
			From: input.From,
			To:   input.To,
			Type: input.RelationType,
		}

		source, err := k.Entities.SelectEntityByName(input.From)
		if err != nil {
			result.Error = err.Error()
			results = append(results, result)
			continue
		}

		target, err := k.Entities.SelectEntityByName(input.To)
		if err != nil {
			result.Error = err.Error()
			results = append(results, result)
			continue
		}

		confidence := 1.0
		if input.Confidence != nil {
			confidence = *input.Confidence
		}

		err = k.Relationships.InsertRelationship(&model.Relationship{
			SourceID:   source.ID,
			TargetID:   target.ID,
			Type:       input.RelationType,
			Confidence: confidence,
			Metadata:   input.Metadata,
		})
		if err != nil {
			result.Error = err.Error()
			results = append(results, result)
			continue
		}

		result.Success = true
		results = append(results, result)
	}

	return results
}

// AddObservations appends observations to existing entities. Each input
// is processed independently; an unknown entity name is reported, not
// fatal. The append is a single statement per entity, so concurrent
// appends cannot lose observations.
func (k *KnowledgeStore) AddObservations(ctx context.Context, inputs []model.ObservationInput) *model.AddObservationsResult {
	result := &model.AddObservationsResult{
		Added:    []model.ObservationAddition{},
		NotFound: []string{},
		Errors:   []string{},
	}

	for _, input := range inputs {
		entity, err := k.Entities.SelectEntityByName(input.EntityName)
		if errors.Is(err, model.ErrNotFound) {
			result.NotFound = append(result.NotFound, input.EntityName)
			continue
		}
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%v: %v", input.EntityName, err))
			continue
		}

		updated, err := k.Entities.AppendObservations(entity.ID, input.Contents)
		if errors.Is(err, model.ErrNotFound) {
			result.NotFound = append(result.NotFound, input.EntityName)
			continue
		}
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%v: %v", input.EntityName, err))
			continue
		}

		k.embedEntity(ctx, updated)

		result.Added = append(result.Added, model.ObservationAddition{
			Entity:     input.EntityName,
			AddedCount: len(input.Contents),
		})
	}

	return result
}

// DeleteObservations removes exact-match observation strings from
// entities. Observations not present on the entity are ignored; the
// per-entity count reports how many were actually removed.
func (k *KnowledgeStore) DeleteObservations(deletions []model.ObservationDeletion) *model.DeleteObservationsResult {
	result := &model.DeleteObservationsResult{
		Deleted:  []model.ObservationRemoval{},
		NotFound: []string{},
		Errors:   []string{},
	}

	for _, deletion := range deletions {
		entity, err := k.Entities.SelectEntityByName(deletion.EntityName)
		if errors.Is(err, model.ErrNotFound) {
			result.NotFound = append(result.NotFound, deletion.EntityName)
			continue
		}
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%v: %v", deletion.EntityName, err))
			continue
		}

		removed, err := k.Entities.RemoveObservations(entity.ID, deletion.Observations)
		if errors.Is(err, model.ErrNotFound) {
			result.NotFound = append(result.NotFound, deletion.EntityName)
			continue
		}
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%v: %v", deletion.EntityName, err))
			continue
		}

		result.Deleted = append(result.Deleted, model.ObservationRemoval{
			Entity:       deletion.EntityName,
			RemovedCount: removed,
		})
	}

	return result
}

// DeleteEntities deletes entities with their relationships, chunk links
// and embeddings. Documents and chunks are never touched. Each name is
// processed independently; unknown names are reported, not fatal.
func (k *KnowledgeStore) DeleteEntities(names []string) *model.BatchDeleteResult {
	result := &model.BatchDeleteResult{
		Deleted:  []string{},
		NotFound: []string{},
		Errors:   []string{},
	}

	for _, name := range names {
		entity, err := k.Entities.SelectEntityByName(name)
		if errors.Is(err, model.ErrNotFound) {
			result.NotFound = append(result.NotFound, name)
			continue
		}
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%v: %v", name, err))
			continue
		}

		// Dependent rows go first so the entity row never ends up
		// referenced by leftovers.
		_, err = k.Relationships.DeleteRelationshipsByEntity(entity.ID)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%v: %v", name, err))
			continue
		}

		_, err = k.Embeddings.DeleteChunkLinksByEntity(entity.ID)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%v: %v", name, err))
			continue
		}

		_, err = k.Embeddings.DeleteEntityEmbedding(entity.ID)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%v: %v", name, err))
			continue
		}

		err = k.Entities.DeleteEntity(entity.ID)
		if errors.Is(err, model.ErrNotFound) {
			result.NotFound = append(result.NotFound, name)
			continue
		}
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%v: %v", name, err))
			continue
		}

		result.Deleted = append(result.Deleted, name)
		k.log.Info("Deleted entity", slog.String("name", name))
	}

	return result
}

// DeleteRelations deletes relationships identified by their public
// (from, to, type) triple. A triple whose endpoints or relationship
// rows do not exist is reported as not found.
func (k *KnowledgeStore) DeleteRelations(inputs []model.RelationInput) *model.BatchDeleteResult {
	result := &model.BatchDeleteResult{
		Deleted:  []string{},
		NotFound: []string{},
		Errors:   []string{},
	}

	for _, input := range inputs {
		label := fmt.Sprintf("%v -> %v (%v)", input.From, input.To, input.RelationType)

		source, err := k.Entities.SelectEntityByName(input.From)
		if errors.Is(err, model.ErrNotFound) {
			result.NotFound = append(result.NotFound, label)
			continue
		}
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%v: %v", label, err))
			continue
		}

		target, err := k.Entities.SelectEntityByName(input.To)
		if errors.Is(err, model.ErrNotFound) {
			result.NotFound = append(result.NotFound, label)
			continue
		}
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%v: %v", label, err))
			continue
		}

		deleted, err := k.Relationships.DeleteRelationship(source.ID, target.ID, input.RelationType)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%v: %v", label, err))
			continue
		}

		if deleted == 0 {
			result.NotFound = append(result.NotFound, label)
			continue
		}

		result.Deleted = append(result.Deleted, label)
	}

	return result
}

// SearchNodes searches entities by case-insensitive substring match on name.
func (k *KnowledgeStore) SearchNodes(query string, limit int) ([]*model.Entity, error) {
	if limit <= 0 {
		limit = model.DefaultSearchConfig().Limit
	}
	return k.Entities.SearchEntities(query, limit)
}

// OpenNodes retrieves entities by exact name. Unknown names are
// returned separately, not as an error.
func (k *KnowledgeStore) OpenNodes(names []string) ([]*model.Entity, []string, error) {
	entities := []*model.Entity{}
	notFound := []string{}
	for _, name := range names {
		entity, err := k.Entities.SelectEntityByName(name)
		if errors.Is(err, model.ErrNotFound) {
			notFound = append(notFound, name)
			continue
		}
		if err != nil {
			return entities, notFound, helper.NewError("select entity", err)
		}

		entities = append(entities, entity)
	}

	return entities, notFound, nil
}

// ReadGraph exports all entities and relationships. Relationship
// endpoints are resolved to entity names.
func (k *KnowledgeStore) ReadGraph() (*model.KnowledgeGraph, error) {
	entities, err := k.Entities.SelectAllEntities()
	if err != nil {
		return nil, helper.NewError("select entities", err)
	}

	relationships, err := k.Relationships.SelectAllRelationships()
	if err != nil {
		return nil, helper.NewError("select relationships", err)
	}

	names := map[string]string{}
	for _, entity := range entities {
		names[entity.ID.String()] = entity.Name
	}
	for _, rel := range relationships {
		rel.SourceName = names[rel.SourceID.String()]
		rel.TargetName = names[rel.TargetID.String()]
	}

	return &model.KnowledgeGraph{
		Entities:      entities,
		Relationships: relationships,
	}, nil
}

// EmbedAllEntities (re)computes embeddings for all entities. Entities
// are processed independently; a failed entity is logged and skipped.
// Returns the number of entities embedded.
func (k *KnowledgeStore) EmbedAllEntities(ctx context.Context) (int, error) {
	if k.Provider == nil {
		return 0, helper.NewError("embed entities", fmt.Errorf("no embedding provider configured"))
	}

	entities, err := k.Entities.SelectAllEntities()
	if err != nil {
		return 0, helper.NewError("select entities", err)
	}

	embedded := 0
	for _, entity := range entities {
		embedding, err := k.Provider.Embed(ctx, entityEmbeddingText(entity))
		if err != nil {
			k.log.Warn("Error embedding entity",
				slog.String("name", entity.Name),
				slog.Any("error", err))
			continue
		}

		err = k.Embeddings.UpsertEntityEmbedding(&model.EntityEmbedding{
			EntityID:      entity.ID,
			Embedding:     embedding,
			EmbeddingText: entityEmbeddingText(entity),
		})
		if err != nil {
			k.log.Warn("Error storing entity embedding",
				slog.String("name", entity.Name),
				slog.Any("error", err))
			continue
		}

		embedded++
	}

	return embedded, nil
}

// embedEntity embeds an entity if a provider is set. Failures are
// logged only; graph writes never depend on the embedding pipeline.
func (k *KnowledgeStore) embedEntity(ctx context.Context, entity *model.Entity) {
	if k.Provider == nil {
		return
	}

	text := entityEmbeddingText(entity)
	embedding, err := k.Provider.Embed(ctx, text)
	if err != nil {
		k.log.Warn("Error embedding entity",
			slog.String("name", entity.Name),
			slog.Any("error", err))
		return
	}

	err = k.Embeddings.UpsertEntityEmbedding(&model.EntityEmbedding{
		EntityID:      entity.ID,
		Embedding:     embedding,
		EmbeddingText: text,
	})
	if err != nil {
		k.log.Warn("Error storing entity embedding",
			slog.String("name", entity.Name),
			slog.Any("error", err))
	}
}

// entityEmbeddingText is the canonical text embedded for an entity.
func entityEmbeddingText(entity *model.Entity) string {
	text := fmt.Sprintf("%v (%v)", entity.Name, entity.Type)
	if len(entity.Observations) > 0 {
		text += ": " + strings.Join(entity.Observations, ". ")
	}
	return text
}

// containsFold reports whether s contains substr case-insensitively.
func containsFold(s string, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
