package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/siherrmann/knowledgestore/helper"
	"github.com/siherrmann/knowledgestore/model"
	loadSql "github.com/siherrmann/knowledgestore/sql"
)

// EntitiesDBHandlerFunctions defines the interface for Entities database operations.
type EntitiesDBHandlerFunctions interface {
	InsertEntity(entity *model.Entity) error
	SelectEntity(id uuid.UUID) (*model.Entity, error)
	SelectEntityByName(name string) (*model.Entity, error)
	SearchEntities(term string, limit int) ([]*model.Entity, error)
	SelectAllEntities() ([]*model.Entity, error)
	AppendObservations(id uuid.UUID, observations []string) (*model.Entity, error)
	RemoveObservations(id uuid.UUID, observations []string) (int, error)
	DeleteEntity(id uuid.UUID) error
	CountEntities() (int, error)
	CountEntitiesByType() (map[string]int, error)
}

// EntitiesDBHandler handles entity-related database operations
type EntitiesDBHandler struct {
	db *helper.Database
}

// NewEntitiesDBHandler creates a new entities database handler.
// It initializes the database connection and loads entity-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewEntitiesDBHandler(db *helper.Database, force bool) (*EntitiesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	entitiesDbHandler := &EntitiesDBHandler{
		db: db,
	}

	err := loadSql.LoadEntitiesSql(entitiesDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load entities sql", err)
	}

	err = entitiesDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized EntitiesDBHandler")

	return entitiesDbHandler, nil
}

// CreateTable creates the 'entities' table in the database.
// If the table already exists, it does not create it again.
// It also creates all necessary indexes.
func (h *EntitiesDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_entities();`)
	if err != nil {
		log.Panicf("error initializing entities table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table entities")

	return nil
}

// InsertEntity inserts a new entity. A duplicate name fails with
// model.ErrAlreadyExists; it never silently merges.
func (h *EntitiesDBHandler) InsertEntity(entity *model.Entity) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_entity($1, $2, $3, $4)`,
		entity.Name,
		entity.Type,
		pq.Array(entity.Observations),
		entity.Metadata,
	)

	err := scanEntity(row, entity)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("entity %q: %w", entity.Name, model.ErrAlreadyExists)
		}
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectEntity retrieves an entity by ID
func (h *EntitiesDBHandler) SelectEntity(id uuid.UUID) (*model.Entity, error) {
	entity := &model.Entity{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_entity($1)`,
		id,
	)

	err := scanEntity(row, entity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("entity %v: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return entity, nil
}

// SelectEntityByName retrieves an entity by its unique name
func (h *EntitiesDBHandler) SelectEntityByName(name string) (*model.Entity, error) {
	entity := &model.Entity{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_entity_by_name($1)`,
		name,
	)

	err := scanEntity(row, entity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("entity %q: %w", name, model.ErrNotFound)
	}
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return entity, nil
}

// SearchEntities searches entities by case-insensitive substring match on name
func (h *EntitiesDBHandler) SearchEntities(term string, limit int) ([]*model.Entity, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM search_entities($1, $2)`,
		term,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return scanEntities(rows)
}

// SelectAllEntities retrieves all entities ordered by creation time
func (h *EntitiesDBHandler) SelectAllEntities() ([]*model.Entity, error) {
	rows, err := h.db.Instance.Query(`SELECT * FROM select_all_entities()`)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return scanEntities(rows)
}

// AppendObservations appends observations to an entity in a single
// statement, so concurrent appends cannot lose updates.
func (h *EntitiesDBHandler) AppendObservations(id uuid.UUID, observations []string) (*model.Entity, error) {
	entity := &model.Entity{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM append_entity_observations($1, $2)`,
		id,
		pq.Array(observations),
	)

	err := scanEntity(row, entity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("entity %v: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return entity, nil
}

// RemoveObservations removes exact-match observation strings and returns
// how many were removed.
func (h *EntitiesDBHandler) RemoveObservations(id uuid.UUID, observations []string) (int, error) {
	var removed int
	err := h.db.Instance.QueryRow(
		`SELECT remove_entity_observations($1, $2)`,
		id,
		pq.Array(observations),
	).Scan(&removed)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}

	if removed < 0 {
		return 0, fmt.Errorf("entity %v: %w", id, model.ErrNotFound)
	}

	return removed, nil
}

// DeleteEntity deletes an entity row by ID. Dependent relationships, links
// and embeddings must be removed by the caller first.
func (h *EntitiesDBHandler) DeleteEntity(id uuid.UUID) error {
	var deleted int
	err := h.db.Instance.QueryRow(
		`SELECT delete_entity($1)`,
		id,
	).Scan(&deleted)
	if err != nil {
		return helper.NewError("scan", err)
	}

	if deleted == 0 {
		return fmt.Errorf("entity %v: %w", id, model.ErrNotFound)
	}

	return nil
}

// CountEntities returns the number of stored entities
func (h *EntitiesDBHandler) CountEntities() (int, error) {
	var count int
	err := h.db.Instance.QueryRow(`SELECT count_entities()`).Scan(&count)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}
	return count, nil
}

// CountEntitiesByType returns entity counts grouped by type
func (h *EntitiesDBHandler) CountEntitiesByType() (map[string]int, error) {
	rows, err := h.db.Instance.Query(`SELECT * FROM count_entities_by_type()`)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var entityType string
		var count int
		err := rows.Scan(&entityType, &count)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		counts[entityType] = count
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return counts, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntity(row rowScanner, entity *model.Entity) error {
	return row.Scan(
		&entity.ID,
		&entity.Name,
		&entity.Type,
		pq.Array(&entity.Observations),
		&entity.Metadata,
		&entity.CreatedAt,
	)
}

func scanEntities(rows *sql.Rows) ([]*model.Entity, error) {
	var entities []*model.Entity
	for rows.Next() {
		entity := &model.Entity{}
		err := scanEntity(rows, entity)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		entities = append(entities, entity)
	}

	err := rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return entities, nil
}
