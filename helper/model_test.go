package helper

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockModelDir creates an empty local model directory so PrepareModel
// skips the download, and cleans it up after the test.
func mockModelDir(t *testing.T, sanitizedName string) string {
	t.Helper()

	path := filepath.Join("./models", sanitizedName)
	require.NoError(t, os.MkdirAll(path, 0750))
	t.Cleanup(func() { os.RemoveAll(path) })

	return path
}

func TestPrepareModel(t *testing.T) {
	t.Run("Returns existing model path without downloading", func(t *testing.T) {
		path := mockModelDir(t, "knowledgestore_minilm-local")

		got, err := PrepareModel("knowledgestore/minilm-local", "")
		assert.NoError(t, err)
		assert.Equal(t, path, got)
	})

	t.Run("Sanitizes slashes in the model name", func(t *testing.T) {
		path := mockModelDir(t, "sentence-transformers_all-MiniLM-L6-v2")

		got, err := PrepareModel("sentence-transformers/all-MiniLM-L6-v2", "")
		assert.NoError(t, err)
		assert.Equal(t, path, got)
	})

	t.Run("Model name without slash is used directly", func(t *testing.T) {
		path := mockModelDir(t, "plain-model")

		got, err := PrepareModel("plain-model", "")
		assert.NoError(t, err)
		assert.Equal(t, path, got)
	})

	t.Run("Onnx file path is accepted for existing models", func(t *testing.T) {
		path := mockModelDir(t, "knowledgestore_onnx-variant")

		got, err := PrepareModel("knowledgestore/onnx-variant", "onnx/model.onnx")
		assert.NoError(t, err)
		assert.Equal(t, path, got)
	})

	t.Run("Missing model triggers a download attempt", func(t *testing.T) {
		modelName := "sentence-transformers/all-MiniLM-L6-v2"
		os.RemoveAll(filepath.Join("./models", "sentence-transformers_all-MiniLM-L6-v2"))

		// Download success depends on network access, so accept either
		// outcome but require a usable result on success.
		path, err := PrepareModel(modelName, "onnx/model.onnx")
		if err != nil {
			assert.Contains(t, err.Error(), "failed to")
		} else {
			assert.NotEmpty(t, path)
			assert.DirExists(t, path)
		}
	})
}
