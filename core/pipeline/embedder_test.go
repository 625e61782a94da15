package pipeline

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuncProvider(t *testing.T) {
	t.Run("Delegates to the wrapped function", func(t *testing.T) {
		provider := &FuncProvider{
			Fn: func(text string) ([]float32, error) {
				return []float32{float32(len(text)), 0, 0}, nil
			},
			Dim: 3,
		}

		embedding, err := provider.Embed(context.Background(), "abc")
		require.NoError(t, err)
		assert.Equal(t, []float32{3, 0, 0}, embedding)
		assert.Equal(t, 3, provider.Dimension())
		assert.NoError(t, provider.Close())
	})

	t.Run("Respects context cancellation", func(t *testing.T) {
		provider := &FuncProvider{
			Fn: func(text string) ([]float32, error) {
				return nil, fmt.Errorf("should not be called")
			},
			Dim: 3,
		}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := provider.Embed(ctx, "abc")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestL2Normalize(t *testing.T) {
	t.Run("Scales vector to unit length", func(t *testing.T) {
		v := []float32{3, 4}
		l2Normalize(v)

		assert.InDelta(t, 0.6, v[0], 1e-6)
		assert.InDelta(t, 0.8, v[1], 1e-6)

		var sum float64
		for _, x := range v {
			sum += float64(x) * float64(x)
		}
		assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-6)
	})

	t.Run("Leaves zero vector unchanged", func(t *testing.T) {
		v := []float32{0, 0, 0}
		l2Normalize(v)
		assert.Equal(t, []float32{0, 0, 0}, v)
	})
}
