package search

import (
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/siherrmann/knowledgestore/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDocuments is an in-memory stand-in for the documents handler.
type fakeDocuments struct {
	documents     []*model.Document
	hasIndex      bool
	indexProbes   int
	probeError    error
	ftsError      error
	keywordError  error
	keywordCalled int
}

func (f *fakeDocuments) UpsertDocument(doc *model.Document) error {
	f.documents = append(f.documents, doc)
	return nil
}

func (f *fakeDocuments) SelectDocument(id string) (*model.Document, error) {
	for _, doc := range f.documents {
		if doc.ID == id {
			return doc, nil
		}
	}
	return nil, fmt.Errorf("document %q: %w", id, model.ErrNotFound)
}

func (f *fakeDocuments) SelectAllDocuments(limit int) ([]*model.Document, error) {
	if limit < len(f.documents) {
		return f.documents[:limit], nil
	}
	return f.documents, nil
}

func (f *fakeDocuments) DeleteDocument(id string) (int, error) {
	return 0, nil
}

func (f *fakeDocuments) SearchDocumentsByKeywords(keywords []string, limit int) ([]*model.Document, error) {
	f.keywordCalled++
	if f.keywordError != nil {
		return nil, f.keywordError
	}

	var matches []*model.Document
	for _, doc := range f.documents {
		lowered := strings.ToLower(doc.Content)
		for _, keyword := range keywords {
			if strings.Contains(lowered, keyword) {
				matches = append(matches, doc)
				break
			}
		}
		if len(matches) == limit {
			break
		}
	}

	return matches, nil
}

func (f *fakeDocuments) SearchDocumentsFTS(query string, limit int) ([]*model.SearchResult, error) {
	if f.ftsError != nil {
		return nil, f.ftsError
	}

	var results []*model.SearchResult
	for _, doc := range f.documents {
		if strings.Contains(strings.ToLower(doc.Content), strings.ToLower(query)) {
			results = append(results, &model.SearchResult{Document: doc, Score: 1, Method: "fts"})
		}
		if len(results) == limit {
			break
		}
	}

	return results, nil
}

func (f *fakeDocuments) HasFTSIndex() (bool, error) {
	f.indexProbes++
	if f.probeError != nil {
		return false, f.probeError
	}
	return f.hasIndex, nil
}

func (f *fakeDocuments) CreateFTSIndex() error {
	f.hasIndex = true
	return nil
}

func (f *fakeDocuments) CountDocuments() (int, error) {
	return len(f.documents), nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&strings.Builder{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestEngineKeywordSearch(t *testing.T) {
	documents := &fakeDocuments{
		documents: []*model.Document{
			{ID: "one", Content: "React components have a lifecycle"},
			{ID: "two", Content: "React hooks replace lifecycle methods in components"},
			{ID: "three", Content: "Cooking recipes for lifecycle"},
		},
	}
	engine := NewEngine(documents, testLogger())

	t.Run("Ranks documents by distinct keyword matches", func(t *testing.T) {
		results, err := engine.KeywordSearch("react lifecycle components", 5)
		require.NoError(t, err)
		require.Len(t, results, 3)

		assert.Equal(t, "one", results[0].Document.ID)
		assert.Equal(t, float64(3), results[0].Score)
		assert.Equal(t, "two", results[1].Document.ID)
		assert.Equal(t, "three", results[2].Document.ID)
		assert.Equal(t, float64(1), results[2].Score)
		assert.Equal(t, "keyword", results[0].Method)
	})

	t.Run("Ties keep storage order", func(t *testing.T) {
		results, err := engine.KeywordSearch("lifecycle", 5)
		require.NoError(t, err)
		require.Len(t, results, 3)

		assert.Equal(t, "one", results[0].Document.ID)
		assert.Equal(t, "two", results[1].Document.ID)
		assert.Equal(t, "three", results[2].Document.ID)
	})

	t.Run("Truncates to the limit after ranking", func(t *testing.T) {
		results, err := engine.KeywordSearch("react lifecycle components", 2)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "one", results[0].Document.ID)
	})

	t.Run("Query without usable keywords skips storage", func(t *testing.T) {
		before := documents.keywordCalled
		results, err := engine.KeywordSearch("a b", 5)
		require.NoError(t, err)
		assert.Empty(t, results)
		assert.Equal(t, before, documents.keywordCalled)
	})
}

func TestEngineSearch(t *testing.T) {
	t.Run("Uses full-text search when the index exists", func(t *testing.T) {
		documents := &fakeDocuments{
			documents: []*model.Document{{ID: "one", Content: "graph databases"}},
			hasIndex:  true,
		}
		engine := NewEngine(documents, testLogger())

		results, err := engine.Search("graph", 5)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "fts", results[0].Method)
	})

	t.Run("Falls back to keyword search without an index", func(t *testing.T) {
		documents := &fakeDocuments{
			documents: []*model.Document{{ID: "one", Content: "graph databases"}},
		}
		engine := NewEngine(documents, testLogger())

		results, err := engine.Search("graph", 5)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "keyword", results[0].Method)
	})

	t.Run("Falls back to keyword search when the full-text query fails", func(t *testing.T) {
		documents := &fakeDocuments{
			documents: []*model.Document{{ID: "one", Content: "graph databases"}},
			hasIndex:  true,
			ftsError:  fmt.Errorf("broken index"),
		}
		engine := NewEngine(documents, testLogger())

		results, err := engine.Search("graph", 5)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "keyword", results[0].Method)
	})

	t.Run("Caches a failed probe until reset", func(t *testing.T) {
		documents := &fakeDocuments{
			documents:  []*model.Document{{ID: "one", Content: "graph databases"}},
			hasIndex:   true,
			probeError: fmt.Errorf("connection refused"),
		}
		engine := NewEngine(documents, testLogger())

		results, err := engine.Search("graph", 5)
		require.NoError(t, err)
		assert.Equal(t, "keyword", results[0].Method)

		_, err = engine.Search("graph", 5)
		require.NoError(t, err)
		assert.Equal(t, 1, documents.indexProbes)

		documents.probeError = nil
		engine.ResetIndexProbe()

		results, err = engine.Search("graph", 5)
		require.NoError(t, err)
		assert.Equal(t, 2, documents.indexProbes)
		assert.Equal(t, "fts", results[0].Method)
	})

	t.Run("Probes the index once until reset", func(t *testing.T) {
		documents := &fakeDocuments{
			documents: []*model.Document{{ID: "one", Content: "graph databases"}},
		}
		engine := NewEngine(documents, testLogger())

		_, err := engine.Search("graph", 5)
		require.NoError(t, err)
		_, err = engine.Search("graph", 5)
		require.NoError(t, err)
		assert.Equal(t, 1, documents.indexProbes)

		documents.hasIndex = true
		engine.ResetIndexProbe()

		results, err := engine.Search("graph", 5)
		require.NoError(t, err)
		assert.Equal(t, 2, documents.indexProbes)
		assert.Equal(t, "fts", results[0].Method)
	})
}
