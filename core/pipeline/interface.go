package pipeline

import "context"

// Provider generates embeddings for text. Implementations must return
// vectors of exactly Dimension() length.
type Provider interface {
	// Embed generates an embedding vector for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)
	// Dimension returns the length of the vectors this provider produces.
	Dimension() int
	// Close releases any resources held by the provider.
	Close() error
}

// FuncProvider adapts a plain function to a Provider.
type FuncProvider struct {
	Fn  func(text string) ([]float32, error)
	Dim int
}

func (p *FuncProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.Fn(text)
}

func (p *FuncProvider) Dimension() int {
	return p.Dim
}

func (p *FuncProvider) Close() error {
	return nil
}
