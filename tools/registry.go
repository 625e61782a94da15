// Package tools exposes the knowledge store as a set of named
// operations over JSON argument objects. Transport and framing are the
// caller's concern; the registry only dispatches and (un)marshals.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	knowledgestore "github.com/siherrmann/knowledgestore"
	"github.com/siherrmann/knowledgestore/helper"
	"github.com/siherrmann/knowledgestore/model"
)

// Visibility restricts which tools a deployment exposes. Filtering
// only; tool behavior never depends on the mode.
type Visibility string

const (
	VisibilityAll       Visibility = "all"
	VisibilityGraph     Visibility = "graph"
	VisibilityDocuments Visibility = "documents"
	VisibilitySearch    Visibility = "search"
)

// Handler executes one tool call.
type Handler func(ctx context.Context, args json.RawMessage) (interface{}, error)

type tool struct {
	group   Visibility
	handler Handler
}

// Registry maps tool names to handlers and applies the visibility mode.
type Registry struct {
	store      *knowledgestore.KnowledgeStore
	visibility Visibility
	tools      map[string]tool
}

// NewRegistry creates a tool registry over the given store.
func NewRegistry(store *knowledgestore.KnowledgeStore, visibility Visibility) *Registry {
	if visibility == "" {
		visibility = VisibilityAll
	}

	registry := &Registry{
		store:      store,
		visibility: visibility,
		tools:      map[string]tool{},
	}
	registry.registerGraphTools()
	registry.registerDocumentTools()
	registry.registerSearchTools()

	return registry
}

// List returns the names of all visible tools, sorted.
func (r *Registry) List() []string {
	var names []string
	for name, t := range r.tools {
		if r.visible(t) {
			names = append(names, name)
		}
	}

	sort.Strings(names)

	return names
}

// Call executes the named tool with the given JSON arguments. Unknown
// or hidden tools fail; everything else is the tool's own result or error.
func (r *Registry) Call(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, error) {
	t, ok := r.tools[name]
	if !ok || !r.visible(t) {
		return nil, fmt.Errorf("unknown tool %q", name)
	}

	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}

	result, err := t.handler(ctx, args)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return nil, helper.NewError("marshal result", err)
	}

	return raw, nil
}

func (r *Registry) visible(t tool) bool {
	return r.visibility == VisibilityAll || r.visibility == t.group
}

func (r *Registry) register(name string, group Visibility, handler Handler) {
	r.tools[name] = tool{group: group, handler: handler}
}

func unmarshalArgs(args json.RawMessage, target interface{}) error {
	err := json.Unmarshal(args, target)
	if err != nil {
		return helper.NewError("unmarshal arguments", err)
	}
	return nil
}

// resolveChunkConfig fills in defaults for omitted fields only. An
// explicit zero (e.g. "overlap": 0) is kept as given, which is why the
// fields arrive as pointers.
func resolveChunkConfig(maxChunkSize *int, overlap *int) model.ChunkConfig {
	config := model.DefaultChunkConfig()
	if maxChunkSize != nil {
		config.MaxChunkSize = *maxChunkSize
	}
	if overlap != nil {
		config.Overlap = *overlap
	}
	return config
}

func (r *Registry) registerGraphTools() {
	r.register("createEntities", VisibilityGraph, func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		params := struct {
			Entities []model.EntityInput `json:"entities"`
		}{}
		if err := unmarshalArgs(args, &params); err != nil {
			return nil, err
		}
		return r.store.CreateEntities(ctx, params.Entities), nil
	})

	r.register("createRelations", VisibilityGraph, func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		params := struct {
			Relations []model.RelationInput `json:"relations"`
		}{}
		if err := unmarshalArgs(args, &params); err != nil {
			return nil, err
		}
		return r.store.CreateRelations(params.Relations), nil
	})

	r.register("addObservations", VisibilityGraph, func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		params := struct {
			Observations []model.ObservationInput `json:"observations"`
		}{}
		if err := unmarshalArgs(args, &params); err != nil {
			return nil, err
		}
		return r.store.AddObservations(ctx, params.Observations), nil
	})

	r.register("deleteEntities", VisibilityGraph, func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		params := struct {
			EntityNames []string `json:"entityNames"`
		}{}
		if err := unmarshalArgs(args, &params); err != nil {
			return nil, err
		}
		return r.store.DeleteEntities(params.EntityNames), nil
	})

	r.register("deleteRelations", VisibilityGraph, func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		params := struct {
			Relations []model.RelationInput `json:"relations"`
		}{}
		if err := unmarshalArgs(args, &params); err != nil {
			return nil, err
		}
		return r.store.DeleteRelations(params.Relations), nil
	})

	r.register("deleteObservations", VisibilityGraph, func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		params := struct {
			Deletions []model.ObservationDeletion `json:"deletions"`
		}{}
		if err := unmarshalArgs(args, &params); err != nil {
			return nil, err
		}
		return r.store.DeleteObservations(params.Deletions), nil
	})

	r.register("searchNodes", VisibilityGraph, func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		params := struct {
			Query string `json:"query"`
			Limit int    `json:"limit"`
		}{}
		if err := unmarshalArgs(args, &params); err != nil {
			return nil, err
		}
		entities, err := r.store.SearchNodes(params.Query, params.Limit)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"entities": entities}, nil
	})

	r.register("openNodes", VisibilityGraph, func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		params := struct {
			Names []string `json:"names"`
		}{}
		if err := unmarshalArgs(args, &params); err != nil {
			return nil, err
		}
		entities, notFound, err := r.store.OpenNodes(params.Names)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"entities": entities, "notFound": notFound}, nil
	})

	r.register("readGraph", VisibilityGraph, func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		return r.store.ReadGraph()
	})

	r.register("getKnowledgeGraphStats", VisibilityGraph, func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		return r.store.GetKnowledgeGraphStats()
	})

	r.register("embedAllEntities", VisibilityGraph, func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		embedded, err := r.store.EmbedAllEntities(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"embedded": embedded}, nil
	})
}

func (r *Registry) registerDocumentTools() {
	r.register("storeDocument", VisibilityDocuments, func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		params := struct {
			ID       string         `json:"id"`
			Content  string         `json:"content"`
			Metadata model.Metadata `json:"metadata"`
		}{}
		if err := unmarshalArgs(args, &params); err != nil {
			return nil, err
		}
		return r.store.StoreDocument(params.ID, params.Content, params.Metadata)
	})

	r.register("processDocument", VisibilityDocuments, func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		params := struct {
			ID           string         `json:"id"`
			Content      string         `json:"content"`
			MaxChunkSize *int           `json:"maxChunkSize"`
			Overlap      *int           `json:"overlap"`
			Metadata     model.Metadata `json:"metadata"`
		}{}
		if err := unmarshalArgs(args, &params); err != nil {
			return nil, err
		}

		config := resolveChunkConfig(params.MaxChunkSize, params.Overlap)

		return r.store.ProcessDocument(ctx, params.ID, params.Content, config, params.Metadata), nil
	})

	r.register("listDocuments", VisibilityDocuments, func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		params := struct {
			Limit int `json:"limit"`
		}{}
		if err := unmarshalArgs(args, &params); err != nil {
			return nil, err
		}
		documents, err := r.store.ListDocuments(params.Limit)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"documents": documents}, nil
	})

	r.register("deleteDocuments", VisibilityDocuments, func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		params := struct {
			IDs []string `json:"ids"`
		}{}
		if err := unmarshalArgs(args, &params); err != nil {
			return nil, err
		}
		return r.store.DeleteDocuments(params.IDs), nil
	})

	r.register("chunkDocument", VisibilityDocuments, func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		params := struct {
			ID           string `json:"id"`
			MaxChunkSize *int   `json:"maxChunkSize"`
			Overlap      *int   `json:"overlap"`
		}{}
		if err := unmarshalArgs(args, &params); err != nil {
			return nil, err
		}

		config := resolveChunkConfig(params.MaxChunkSize, params.Overlap)

		chunks, err := r.store.ChunkDocument(params.ID, config)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"chunks": chunks}, nil
	})

	r.register("embedChunks", VisibilityDocuments, func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		params := struct {
			ID string `json:"id"`
		}{}
		if err := unmarshalArgs(args, &params); err != nil {
			return nil, err
		}
		embedded, err := r.store.EmbedChunks(ctx, params.ID)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"embedded": embedded}, nil
	})

	r.register("linkEntitiesToDocument", VisibilityDocuments, func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		params := struct {
			DocumentID  string   `json:"documentId"`
			EntityNames []string `json:"entityNames"`
		}{}
		if err := unmarshalArgs(args, &params); err != nil {
			return nil, err
		}
		linked, notFound, err := r.store.LinkEntitiesToDocument(params.DocumentID, params.EntityNames)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"linked": linked, "notFound": notFound}, nil
	})
}

func (r *Registry) registerSearchTools() {
	r.register("hybridSearch", VisibilitySearch, func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		params := struct {
			Query string `json:"query"`
			Limit int    `json:"limit"`
		}{}
		if err := unmarshalArgs(args, &params); err != nil {
			return nil, err
		}
		results, err := r.store.HybridSearch(params.Query, params.Limit)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"results": results}, nil
	})

	r.register("getDetailedContext", VisibilitySearch, func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		params := struct {
			Query           string `json:"query"`
			Limit           int    `json:"limit"`
			IncludeEntities *bool  `json:"includeEntities"`
		}{}
		if err := unmarshalArgs(args, &params); err != nil {
			return nil, err
		}

		config := model.DefaultSearchConfig()
		if params.Limit > 0 {
			config.Limit = params.Limit
		}
		if params.IncludeEntities != nil {
			config.IncludeEntities = *params.IncludeEntities
		}

		return r.store.GetDetailedContext(params.Query, config)
	})

	r.register("searchChunks", VisibilitySearch, func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		params := struct {
			Query string `json:"query"`
			Limit int    `json:"limit"`
		}{}
		if err := unmarshalArgs(args, &params); err != nil {
			return nil, err
		}
		chunks, err := r.store.SearchChunksBySimilarity(ctx, params.Query, params.Limit)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"chunks": chunks}, nil
	})

	r.register("extractTerms", VisibilitySearch, func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		params := struct {
			Query string `json:"query"`
		}{}
		if err := unmarshalArgs(args, &params); err != nil {
			return nil, err
		}
		return map[string]interface{}{"terms": r.store.ExtractTerms(params.Query)}, nil
	})

	r.register("rebuildSearchIndex", VisibilitySearch, func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		err := r.store.RebuildSearchIndex()
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"rebuilt": true}, nil
	})
}
