package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"
	"github.com/siherrmann/knowledgestore/helper"
	"github.com/siherrmann/knowledgestore/model"
	loadSql "github.com/siherrmann/knowledgestore/sql"
)

// DocumentsDBHandlerFunctions defines the interface for Documents database operations.
type DocumentsDBHandlerFunctions interface {
	UpsertDocument(doc *model.Document) error
	SelectDocument(id string) (*model.Document, error)
	SelectAllDocuments(limit int) ([]*model.Document, error)
	DeleteDocument(id string) (int, error)
	SearchDocumentsByKeywords(keywords []string, limit int) ([]*model.Document, error)
	SearchDocumentsFTS(query string, limit int) ([]*model.SearchResult, error)
	HasFTSIndex() (bool, error)
	CreateFTSIndex() error
	CountDocuments() (int, error)
}

// DocumentsDBHandler handles document-related database operations
type DocumentsDBHandler struct {
	db *helper.Database
}

// NewDocumentsDBHandler creates a new documents database handler.
// It initializes the database connection and loads document-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewDocumentsDBHandler(db *helper.Database, force bool) (*DocumentsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	documentsDbHandler := &DocumentsDBHandler{
		db: db,
	}

	err := loadSql.LoadDocumentsSql(documentsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load documents sql", err)
	}

	err = documentsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized DocumentsDBHandler")

	return documentsDbHandler, nil
}

// CreateTable creates the 'documents' table in the database.
// If the table already exists, it does not create it again.
func (h *DocumentsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_documents();`)
	if err != nil {
		log.Panicf("error initializing documents table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table documents")

	return nil
}

// UpsertDocument inserts a document or overwrites content and metadata if
// the id already exists.
func (h *DocumentsDBHandler) UpsertDocument(doc *model.Document) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM upsert_document($1, $2, $3)`,
		doc.ID,
		doc.Content,
		doc.Metadata,
	)

	err := scanDocument(row, doc)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectDocument retrieves a document by id
func (h *DocumentsDBHandler) SelectDocument(id string) (*model.Document, error) {
	doc := &model.Document{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_document($1)`,
		id,
	)

	err := scanDocument(row, doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %q: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return doc, nil
}

// SelectAllDocuments retrieves documents ordered by creation time
func (h *DocumentsDBHandler) SelectAllDocuments(limit int) ([]*model.Document, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_all_documents($1)`,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return scanDocuments(rows)
}

// DeleteDocument deletes a document row by id and returns the number of
// rows removed. Chunks and links must be removed by the caller first.
func (h *DocumentsDBHandler) DeleteDocument(id string) (int, error) {
	var deleted int
	err := h.db.Instance.QueryRow(
		`SELECT delete_document($1)`,
		id,
	).Scan(&deleted)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}

	return deleted, nil
}

// SearchDocumentsByKeywords fetches candidate documents whose content
// contains any keyword as a case-insensitive substring. Result order is
// creation order so that the caller's stable ranking keeps it for ties.
func (h *DocumentsDBHandler) SearchDocumentsByKeywords(keywords []string, limit int) ([]*model.Document, error) {
	patterns := make([]string, len(keywords))
	for i, kw := range keywords {
		patterns[i] = "%" + kw + "%"
	}

	rows, err := h.db.Instance.Query(
		`SELECT * FROM search_documents_like($1, $2)`,
		pq.Array(patterns),
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return scanDocuments(rows)
}

// SearchDocumentsFTS ranks documents by full-text relevance, descending.
func (h *DocumentsDBHandler) SearchDocumentsFTS(query string, limit int) ([]*model.SearchResult, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM search_documents_fts($1, $2)`,
		query,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var results []*model.SearchResult
	for rows.Next() {
		doc := &model.Document{}
		var rank float64
		err := rows.Scan(
			&doc.ID,
			&doc.Content,
			&doc.Metadata,
			&doc.CreatedAt,
			&rank,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		results = append(results, &model.SearchResult{
			Document: doc,
			Score:    rank,
			Method:   "fts",
		})
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return results, nil
}

// HasFTSIndex reports whether the full-text index on documents exists.
func (h *DocumentsDBHandler) HasFTSIndex() (bool, error) {
	var exists bool
	err := h.db.Instance.QueryRow(`SELECT has_documents_fts_index()`).Scan(&exists)
	if err != nil {
		return false, helper.NewError("scan", err)
	}
	return exists, nil
}

// CreateFTSIndex creates the full-text index on documents if missing.
func (h *DocumentsDBHandler) CreateFTSIndex() error {
	_, err := h.db.Instance.Exec(`SELECT create_documents_fts_index()`)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// CountDocuments returns the number of stored documents
func (h *DocumentsDBHandler) CountDocuments() (int, error) {
	var count int
	err := h.db.Instance.QueryRow(`SELECT count_documents()`).Scan(&count)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}
	return count, nil
}

func scanDocument(row rowScanner, doc *model.Document) error {
	return row.Scan(
		&doc.ID,
		&doc.Content,
		&doc.Metadata,
		&doc.CreatedAt,
	)
}

func scanDocuments(rows *sql.Rows) ([]*model.Document, error) {
	var documents []*model.Document
	for rows.Next() {
		doc := &model.Document{}
		err := scanDocument(rows, doc)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		documents = append(documents, doc)
	}

	err := rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return documents, nil
}
