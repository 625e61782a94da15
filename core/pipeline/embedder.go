package pipeline

import (
	"context"
	"fmt"
	"math"
	"os"

	"github.com/knights-analytics/hugot"
	openai "github.com/sashabaranov/go-openai"
	"github.com/siherrmann/knowledgestore/helper"
)

const (
	// LocalModelName is the sentence transformer used by the local provider.
	// It produces 384-dimensional embeddings.
	LocalModelName = "sentence-transformers/all-MiniLM-L6-v2"
	// DefaultDimension is the vector dimension both built-in providers produce.
	DefaultDimension = 384
	// DefaultRemoteModel is the embedding model used by the remote provider.
	DefaultRemoteModel = "text-embedding-3-small"
)

// LocalProvider generates embeddings in-process with a sentence
// transformer model. The model is downloaded on first use.
type LocalProvider struct {
	session *hugot.Session
	embed   func(text string) ([]float32, error)
	dim     int
}

// NewLocalProvider prepares the local sentence transformer model and
// initializes the inference session.
func NewLocalProvider() (*LocalProvider, error) {
	modelPath, err := helper.PrepareModel(LocalModelName, "")
	if err != nil {
		return nil, helper.NewError("prepare model", err)
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, helper.NewError("create hugot session", err)
	}

	config := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "embedder-pipeline",
	}
	sentencePipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, helper.NewError("create sentence pipeline", fmt.Errorf("%w (cleanup error: %v)", err, destroyErr))
		}
		return nil, helper.NewError("create sentence pipeline", err)
	}

	return &LocalProvider{
		session: session,
		embed: func(text string) ([]float32, error) {
			result, err := sentencePipeline.RunPipeline([]string{text})
			if err != nil {
				return nil, helper.NewError("run pipeline", err)
			}

			if len(result.Embeddings) == 0 {
				return nil, fmt.Errorf("no embedding generated")
			}

			return result.Embeddings[0], nil
		},
		dim: DefaultDimension,
	}, nil
}

func (p *LocalProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	embedding, err := p.embed(text)
	if err != nil {
		return nil, err
	}

	if len(embedding) != p.dim {
		return nil, fmt.Errorf("expected %v-dimensional embedding, got %v", p.dim, len(embedding))
	}

	l2Normalize(embedding)

	return embedding, nil
}

func (p *LocalProvider) Dimension() int {
	return p.dim
}

func (p *LocalProvider) Close() error {
	return p.session.Destroy()
}

// OpenAIProvider generates embeddings via the OpenAI embeddings API.
// The requested dimension is passed to the API so the vectors match the
// local provider's dimension.
type OpenAIProvider struct {
	client *openai.Client
	model  string
	dim    int
}

// NewOpenAIProvider creates a remote embedding provider. The API key is
// read from the OPENAI_API_KEY environment variable.
func NewOpenAIProvider(model string, dimension int) (*OpenAIProvider, error) {
	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	if model == "" {
		model = DefaultRemoteModel
	}

	return &OpenAIProvider{
		client: openai.NewClient(key),
		model:  model,
		dim:    dimension,
	}, nil
}

func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if len(text) == 0 {
		return nil, fmt.Errorf("cannot embed empty text")
	}

	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model:      openai.EmbeddingModel(p.model),
		Input:      []string{text},
		Dimensions: p.dim,
	})
	if err != nil {
		return nil, helper.NewError("create embeddings", err)
	}

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embedding data returned from API")
	}

	raw := resp.Data[0].Embedding
	embedding := make([]float32, len(raw))
	for i := range raw {
		embedding[i] = float32(raw[i])
	}

	if len(embedding) != p.dim {
		return nil, fmt.Errorf("expected %v-dimensional embedding, got %v", p.dim, len(embedding))
	}

	l2Normalize(embedding)

	return embedding, nil
}

func (p *OpenAIProvider) Dimension() int {
	return p.dim
}

func (p *OpenAIProvider) Close() error {
	return nil
}

// NewProviderFromEnv selects the embedding provider from the
// KS_EMBEDDING_PROVIDER environment variable: "local" (default) runs the
// sentence transformer in-process, "openai" uses the embeddings API with
// the model from KS_EMBEDDING_MODEL, and "none" disables embedding.
func NewProviderFromEnv() (Provider, error) {
	switch provider := os.Getenv("KS_EMBEDDING_PROVIDER"); provider {
	case "", "local":
		return NewLocalProvider()
	case "openai":
		return NewOpenAIProvider(os.Getenv("KS_EMBEDDING_MODEL"), DefaultDimension)
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", provider)
	}
}

// l2Normalize scales the vector to unit length in place. Zero vectors
// are left unchanged.
func l2Normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}

	if sum == 0 {
		return
	}

	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
}
