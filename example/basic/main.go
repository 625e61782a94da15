package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	knowledgestore "github.com/siherrmann/knowledgestore"
	"github.com/siherrmann/knowledgestore/core/pipeline"
	"github.com/siherrmann/knowledgestore/helper"
	"github.com/siherrmann/knowledgestore/model"
	"github.com/siherrmann/knowledgestore/tools"
)

const sampleContent = `React is a JavaScript library for building user interfaces.

React components encapsulate state and rendering logic. Components have a
lifecycle with mounting, updating and unmounting phases, and hooks let
function components use state and side effects.

React applications are usually written in JavaScript or TypeScript and
rendered either in the browser or on the server.`

func main() {
	ctx := context.Background()

	// Start a test PostgreSQL container
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(ctx)

	// Create database configuration using the container port
	dbConfig := &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		User:     "postgres",
		Password: "postgres",
		Name:     "knowledgestore_test",
	}

	store, err := knowledgestore.NewKnowledgeStore(dbConfig, pipeline.DefaultDimension)
	if err != nil {
		log.Fatalf("Failed to create knowledge store: %v", err)
	}
	defer store.Close()

	// Select the embedding provider (local by default, "none" to skip)
	if err := store.UseProviderFromEnv(); err != nil {
		log.Fatalf("Failed to set up embedding provider: %v", err)
	}

	// Ingest a document: store, chunk, embed
	fmt.Println("Processing document...")
	result := store.ProcessDocument(ctx, "react-intro", sampleContent, model.DefaultChunkConfig(), model.Metadata{
		"topic": "react",
	})
	fmt.Printf("Processed document %q: success=%v chunks=%d embedded=%d\n",
		result.DocumentID, result.Success, result.ChunksCreated, result.EmbeddedChunks)

	// Build a small knowledge graph around the document
	store.CreateEntities(ctx, []model.EntityInput{
		{Name: "React", EntityType: "technology", Observations: []string{"a library for user interfaces"}},
		{Name: "JavaScript", EntityType: "language"},
	})
	store.CreateRelations([]model.RelationInput{
		{From: "React", To: "JavaScript", RelationType: "written_in"},
	})

	linked, _, err := store.LinkEntitiesToDocument("react-intro", []string{"React", "JavaScript"})
	if err != nil {
		log.Fatalf("Failed to link entities: %v", err)
	}
	fmt.Printf("Linked %d chunk-entity pairs\n", linked)

	// Search before and after building the full-text index
	results, err := store.HybridSearch("react lifecycle", 5)
	if err != nil {
		log.Fatalf("Search failed: %v", err)
	}
	for _, r := range results {
		fmt.Printf("[%s] %s (score %.2f)\n", r.Method, r.Document.ID, r.Score)
	}

	if err := store.RebuildSearchIndex(); err != nil {
		log.Fatalf("Failed to rebuild search index: %v", err)
	}

	results, err = store.HybridSearch("react lifecycle", 5)
	if err != nil {
		log.Fatalf("Search failed: %v", err)
	}
	for _, r := range results {
		fmt.Printf("[%s] %s (score %.2f)\n", r.Method, r.Document.ID, r.Score)
	}

	// The same operations are also available as named JSON tools
	registry := tools.NewRegistry(store, tools.VisibilityAll)
	raw, err := registry.Call(ctx, "getDetailedContext", json.RawMessage(`{"query":"React","limit":3}`))
	if err != nil {
		log.Fatalf("Tool call failed: %v", err)
	}
	fmt.Printf("getDetailedContext: %s\n", raw)

	stats, err := store.GetKnowledgeGraphStats()
	if err != nil {
		log.Fatalf("Failed to get stats: %v", err)
	}
	fmt.Printf("Stats: %d entities, %d relationships, %d documents, %d/%d chunks embedded\n",
		stats.Entities, stats.Relationships, stats.Documents, stats.EmbeddedChunks, stats.Chunks)
}
