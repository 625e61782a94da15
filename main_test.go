package knowledgestore

import (
	"context"
	"log"
	"testing"

	"github.com/siherrmann/knowledgestore/core/pipeline"
	"github.com/siherrmann/knowledgestore/helper"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
)

var dbPort string

func TestMain(m *testing.M) {
	var teardown func(ctx context.Context, opts ...testcontainers.TerminateOption) error
	var err error
	teardown, dbPort, err = helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("error starting postgres container: %v", err)
	}

	m.Run()

	if teardown != nil && teardown(context.Background()) != nil {
		log.Fatalf("error tearing down postgres container: %v", err)
	}
}

func initStore(t *testing.T) *KnowledgeStore {
	helper.SetTestDatabaseConfigEnvs(t, dbPort)
	dbConfig, err := helper.NewDatabaseConfiguration()
	require.NoError(t, err, "failed to create database configuration")

	store, err := NewKnowledgeStore(dbConfig, 3)
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
	})

	return store
}

// testProvider returns deterministic 3-dimensional embeddings keyed on
// the text length, good enough to exercise the embedding paths.
func testProvider() pipeline.Provider {
	return &pipeline.FuncProvider{
		Fn: func(text string) ([]float32, error) {
			return []float32{float32(len(text)), 1, 0}, nil
		},
		Dim: 3,
	}
}
