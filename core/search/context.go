package search

import (
	"github.com/siherrmann/knowledgestore/database"
	"github.com/siherrmann/knowledgestore/helper"
	"github.com/siherrmann/knowledgestore/model"
)

// Aggregator composes documents, entities and relationships into one
// context response for a query.
type Aggregator struct {
	engine        *Engine
	entities      database.EntitiesDBHandlerFunctions
	relationships database.RelationshipsDBHandlerFunctions
}

// NewAggregator creates a context aggregator.
func NewAggregator(engine *Engine, entities database.EntitiesDBHandlerFunctions, relationships database.RelationshipsDBHandlerFunctions) *Aggregator {
	return &Aggregator{
		engine:        engine,
		entities:      entities,
		relationships: relationships,
	}
}

// GetDetailedContext gathers up to config.Limit documents by keyword
// ranking and, when config.IncludeEntities is set, entities matching the
// query by name plus up to config.Limit outgoing relationships of those
// entities. Empty sections are valid; only storage errors fail the call.
func (a *Aggregator) GetDetailedContext(query string, config model.SearchConfig) (*model.DetailedContext, error) {
	if config.Limit <= 0 {
		config.Limit = model.DefaultSearchConfig().Limit
	}

	detailed := &model.DetailedContext{
		Query: query,
	}

	documents, err := a.engine.KeywordSearch(query, config.Limit)
	if err != nil {
		return nil, helper.NewError("search documents", err)
	}
	detailed.Documents = documents

	if !config.IncludeEntities {
		return detailed, nil
	}

	entities, err := a.entities.SearchEntities(query, config.Limit)
	if err != nil {
		return nil, helper.NewError("search entities", err)
	}
	detailed.Entities = entities

	names := map[string]string{}
	for _, entity := range entities {
		names[entity.ID.String()] = entity.Name
	}

	for _, entity := range entities {
		remaining := config.Limit - len(detailed.Relationships)
		if remaining <= 0 {
			break
		}

		relationships, err := a.relationships.SelectRelationshipsFromEntity(entity.ID, remaining)
		if err != nil {
			return nil, helper.NewError("select relationships", err)
		}

		for _, rel := range relationships {
			rel.SourceName = names[rel.SourceID.String()]

			if name, ok := names[rel.TargetID.String()]; ok {
				rel.TargetName = name
			} else {
				target, err := a.entities.SelectEntity(rel.TargetID)
				if err == nil {
					rel.TargetName = target.Name
					names[target.ID.String()] = target.Name
				}
			}

			detailed.Relationships = append(detailed.Relationships, rel)
		}
	}

	return detailed, nil
}
