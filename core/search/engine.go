package search

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/siherrmann/knowledgestore/database"
	"github.com/siherrmann/knowledgestore/helper"
	"github.com/siherrmann/knowledgestore/model"
)

// Engine ranks documents for a query. It prefers the full-text index
// when one exists and falls back to keyword substring ranking otherwise.
type Engine struct {
	documents database.DocumentsDBHandlerFunctions
	logger    *slog.Logger

	// mu guards ftsAvailable. The index probe runs once and is reused
	// until ResetIndexProbe is called.
	mu           sync.Mutex
	ftsAvailable *bool
}

// NewEngine creates a search engine over the given documents handler.
func NewEngine(documents database.DocumentsDBHandlerFunctions, logger *slog.Logger) *Engine {
	return &Engine{
		documents: documents,
		logger:    logger,
	}
}

// Search returns up to limit documents ranked for the query. With a
// full-text index present it uses full-text ranking; otherwise, or if
// the full-text query fails, it degrades to keyword ranking.
func (e *Engine) Search(query string, limit int) ([]*model.SearchResult, error) {
	if limit <= 0 {
		limit = model.DefaultSearchConfig().Limit
	}

	if e.ftsEnabled() {
		results, err := e.documents.SearchDocumentsFTS(query, limit)
		if err == nil {
			return results, nil
		}
		e.logger.Warn("Full-text search failed, falling back to keyword search", slog.Any("error", err))
	}

	return e.KeywordSearch(query, limit)
}

// KeywordSearch extracts keywords from the query, fetches candidate
// documents containing any of them and ranks candidates by how many
// distinct keywords they contain. Ties keep storage order. A query
// without usable keywords returns no results and runs no storage query.
func (e *Engine) KeywordSearch(query string, limit int) ([]*model.SearchResult, error) {
	if limit <= 0 {
		limit = model.DefaultSearchConfig().Limit
	}

	keywords := ExtractKeywords(query)
	if len(keywords) == 0 {
		return nil, nil
	}

	candidates, err := e.documents.SearchDocumentsByKeywords(keywords, 2*limit)
	if err != nil {
		return nil, helper.NewError("search documents by keywords", err)
	}

	results := make([]*model.SearchResult, 0, len(candidates))
	for _, doc := range candidates {
		results = append(results, &model.SearchResult{
			Document: doc,
			Score:    float64(ScoreByKeywords(doc.Content, keywords)),
			Method:   "keyword",
		})
	}

	sort.SliceStable(results, func(i int, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

// ResetIndexProbe discards the cached index probe so the next search
// checks again. Called after the full-text index is (re)built.
func (e *Engine) ResetIndexProbe() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.ftsAvailable = nil
}

func (e *Engine) ftsEnabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ftsAvailable == nil {
		exists, err := e.documents.HasFTSIndex()
		if err != nil {
			// Cache the negative answer too; ResetIndexProbe retries.
			e.logger.Warn("Full-text index probe failed, assuming no index", slog.Any("error", err))
			exists = false
		}

		e.ftsAvailable = &exists
	}

	return *e.ftsAvailable
}
