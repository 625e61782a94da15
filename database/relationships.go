package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/knowledgestore/helper"
	"github.com/siherrmann/knowledgestore/model"
	loadSql "github.com/siherrmann/knowledgestore/sql"
)

// RelationshipsDBHandlerFunctions defines the interface for Relationships database operations.
type RelationshipsDBHandlerFunctions interface {
	InsertRelationship(rel *model.Relationship) error
	SelectRelationshipsFromEntity(entityID uuid.UUID, limit int) ([]*model.Relationship, error)
	SelectRelationshipsByEntity(entityID uuid.UUID) ([]*model.Relationship, error)
	SelectAllRelationships() ([]*model.Relationship, error)
	DeleteRelationship(sourceID uuid.UUID, targetID uuid.UUID, relationType string) (int, error)
	DeleteRelationshipsByEntity(entityID uuid.UUID) (int, error)
	CountRelationships() (int, error)
}

// RelationshipsDBHandler handles relationship-related database operations
type RelationshipsDBHandler struct {
	db *helper.Database
}

// NewRelationshipsDBHandler creates a new relationships database handler.
// It initializes the database connection and loads relationship-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewRelationshipsDBHandler(db *helper.Database, force bool) (*RelationshipsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	relationshipsDbHandler := &RelationshipsDBHandler{
		db: db,
	}

	err := loadSql.LoadRelationshipsSql(relationshipsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load relationships sql", err)
	}

	err = relationshipsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized RelationshipsDBHandler")

	return relationshipsDbHandler, nil
}

// CreateTable creates the 'relationships' table in the database.
// If the table already exists, it does not create it again.
// It also creates all necessary indexes.
func (h *RelationshipsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_relationships();`)
	if err != nil {
		log.Panicf("error initializing relationships table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table relationships")

	return nil
}

// InsertRelationship inserts a new relationship. Both endpoints must have
// been resolved to existing entity ids by the caller.
func (h *RelationshipsDBHandler) InsertRelationship(rel *model.Relationship) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_relationship($1, $2, $3, $4, $5)`,
		rel.SourceID,
		rel.TargetID,
		rel.Type,
		rel.Confidence,
		rel.Metadata,
	)

	err := scanRelationship(row, rel)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectRelationshipsFromEntity retrieves relationships where the entity is the source
func (h *RelationshipsDBHandler) SelectRelationshipsFromEntity(entityID uuid.UUID, limit int) ([]*model.Relationship, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_relationships_from_entity($1, $2)`,
		entityID,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return scanRelationships(rows)
}

// SelectRelationshipsByEntity retrieves relationships where the entity is source or target
func (h *RelationshipsDBHandler) SelectRelationshipsByEntity(entityID uuid.UUID) ([]*model.Relationship, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_relationships_by_entity($1)`,
		entityID,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return scanRelationships(rows)
}

// SelectAllRelationships retrieves all relationships ordered by creation time
func (h *RelationshipsDBHandler) SelectAllRelationships() ([]*model.Relationship, error) {
	rows, err := h.db.Instance.Query(`SELECT * FROM select_all_relationships()`)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return scanRelationships(rows)
}

// DeleteRelationship deletes by exact (source, target, type) match and
// returns the number of rows removed. Endpoint entities are never touched.
func (h *RelationshipsDBHandler) DeleteRelationship(sourceID uuid.UUID, targetID uuid.UUID, relationType string) (int, error) {
	var deleted int
	err := h.db.Instance.QueryRow(
		`SELECT delete_relationship($1, $2, $3)`,
		sourceID,
		targetID,
		relationType,
	).Scan(&deleted)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}

	return deleted, nil
}

// DeleteRelationshipsByEntity deletes all relationships where the entity
// is source or target. Must run before the entity row itself is deleted.
func (h *RelationshipsDBHandler) DeleteRelationshipsByEntity(entityID uuid.UUID) (int, error) {
	var deleted int
	err := h.db.Instance.QueryRow(
		`SELECT delete_relationships_by_entity($1)`,
		entityID,
	).Scan(&deleted)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}

	return deleted, nil
}

// CountRelationships returns the number of stored relationships
func (h *RelationshipsDBHandler) CountRelationships() (int, error) {
	var count int
	err := h.db.Instance.QueryRow(`SELECT count_relationships()`).Scan(&count)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}
	return count, nil
}

func scanRelationship(row rowScanner, rel *model.Relationship) error {
	return row.Scan(
		&rel.ID,
		&rel.SourceID,
		&rel.TargetID,
		&rel.Type,
		&rel.Confidence,
		&rel.Metadata,
		&rel.CreatedAt,
	)
}

func scanRelationships(rows *sql.Rows) ([]*model.Relationship, error) {
	var relationships []*model.Relationship
	for rows.Next() {
		rel := &model.Relationship{}
		err := scanRelationship(rows, rel)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		relationships = append(relationships, rel)
	}

	err := rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return relationships, nil
}
