package sql

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log"
)

//go:embed init.sql
var initSQL string

//go:embed entities.sql
var entitiesSQL string

//go:embed relationships.sql
var relationshipsSQL string

//go:embed documents.sql
var documentsSQL string

//go:embed chunks.sql
var chunksSQL string

//go:embed embeddings.sql
var embeddingsSQL string

// Function lists for verification
var EntitiesFunctions = []string{
	"init_entities",
	"insert_entity",
	"select_entity",
	"select_entity_by_name",
	"search_entities",
	"select_all_entities",
	"append_entity_observations",
	"remove_entity_observations",
	"delete_entity",
	"count_entities",
	"count_entities_by_type",
}

var RelationshipsFunctions = []string{
	"init_relationships",
	"insert_relationship",
	"select_relationships_from_entity",
	"select_relationships_by_entity",
	"select_all_relationships",
	"delete_relationship",
	"delete_relationships_by_entity",
	"count_relationships",
}

var DocumentsFunctions = []string{
	"init_documents",
	"upsert_document",
	"select_document",
	"select_all_documents",
	"delete_document",
	"search_documents_like",
	"search_documents_fts",
	"create_documents_fts_index",
	"has_documents_fts_index",
	"count_documents",
}

var ChunksFunctions = []string{
	"init_chunks",
	"insert_chunk",
	"select_chunk",
	"select_chunks_by_document",
	"select_chunks_without_embedding",
	"update_chunk_embedding",
	"delete_chunks_by_document",
	"select_chunks_by_similarity",
	"count_chunks",
	"count_embedded_chunks",
}

var EmbeddingsFunctions = []string{
	"init_entity_embeddings",
	"upsert_entity_embedding",
	"select_entity_embedding",
	"delete_entity_embedding",
	"init_chunk_entities",
	"link_chunk_entity",
	"select_chunk_links_by_entity",
	"delete_chunk_links_by_entity",
	"delete_chunk_links_by_document",
}

// Init intializes db extensions
func Init(db *sql.DB) error {
	_, err := db.Exec(initSQL)
	if err != nil {
		return fmt.Errorf("error executing schema SQL: %w", err)
	}

	log.Println("Database extensions initialized successfully")
	return nil
}

// LoadEntitiesSql loads entity-related SQL functions
func LoadEntitiesSql(db *sql.DB, force bool) error {
	return loadSql(db, force, entitiesSQL, EntitiesFunctions, "entities")
}

// LoadRelationshipsSql loads relationship-related SQL functions
func LoadRelationshipsSql(db *sql.DB, force bool) error {
	return loadSql(db, force, relationshipsSQL, RelationshipsFunctions, "relationships")
}

// LoadDocumentsSql loads document-related SQL functions
func LoadDocumentsSql(db *sql.DB, force bool) error {
	return loadSql(db, force, documentsSQL, DocumentsFunctions, "documents")
}

// LoadChunksSql loads chunk-related SQL functions
func LoadChunksSql(db *sql.DB, force bool) error {
	return loadSql(db, force, chunksSQL, ChunksFunctions, "chunks")
}

// LoadEmbeddingsSql loads embedding- and link-related SQL functions
func LoadEmbeddingsSql(db *sql.DB, force bool) error {
	return loadSql(db, force, embeddingsSQL, EmbeddingsFunctions, "embeddings")
}

// LoadAllSql loads all SQL functions
func LoadAllSql(db *sql.DB, force bool) error {
	if err := LoadEntitiesSql(db, force); err != nil {
		return err
	}

	if err := LoadRelationshipsSql(db, force); err != nil {
		return err
	}

	if err := LoadDocumentsSql(db, force); err != nil {
		return err
	}

	if err := LoadChunksSql(db, force); err != nil {
		return err
	}

	if err := LoadEmbeddingsSql(db, force); err != nil {
		return err
	}

	return nil
}

// loadSql executes a SQL file unless all of its functions already exist,
// then verifies that every function was created.
func loadSql(db *sql.DB, force bool, sqlText string, functions []string, name string) error {
	if !force {
		exist, err := checkFunctions(db, functions)
		if err != nil {
			return fmt.Errorf("error checking existing %s functions: %w", name, err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(sqlText)
	if err != nil {
		return fmt.Errorf("error executing %s SQL: %w", name, err)
	}

	exist, err := checkFunctions(db, functions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required %s SQL functions were created", name)
	}

	log.Printf("SQL %s functions loaded successfully", name)
	return nil
}

// checkFunctions verifies that all required functions exist in the database
func checkFunctions(db *sql.DB, sqlFunctions []string) (bool, error) {
	var allExist bool
	for _, f := range sqlFunctions {
		err := db.QueryRow(
			`SELECT EXISTS(SELECT 1 FROM pg_proc WHERE proname = $1);`,
			f,
		).Scan(&allExist)
		if err != nil {
			return false, fmt.Errorf("error checking existence of function %s: %w", f, err)
		}
		if !allExist {
			log.Printf("Function %s does not exist", f)
			break
		}
	}
	return allExist, nil
}
