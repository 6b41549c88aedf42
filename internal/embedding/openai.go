package embedding

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/schemalink/schemalink/internal/config"
	apperrors "github.com/schemalink/schemalink/internal/errors"
	"github.com/schemalink/schemalink/internal/logging"
)

// embeddingAPI is the slice of the go-openai client we use. Tests substitute
// a fake.
type embeddingAPI interface {
	CreateEmbeddings(
		ctx context.Context,
		req openai.EmbeddingRequestConverter,
	) (openai.EmbeddingResponse, error)
}

// OpenAIProvider generates embeddings through any OpenAI-compatible API.
type OpenAIProvider struct {
	client     embeddingAPI
	model      string
	dimensions int
	batchSize  int
}

// NewOpenAIProvider creates a provider from the embedding configuration.
func NewOpenAIProvider(cfg config.EmbeddingConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, apperrors.New(apperrors.ErrTypeEmbedding, "no embedding API key configured").
			WithSuggestion("Set SCHEMALINK_EMBEDDING_API_KEY")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &OpenAIProvider{
		client:     openai.NewClientWithConfig(clientConfig),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		batchSize:  cfg.BatchSize,
	}, nil
}

// Embed generates a normalized embedding for a single text.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(p.model),
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrTypeEmbedding, "embedding request failed")
	}

	if len(resp.Data) != 1 {
		return nil, apperrors.Newf(
			apperrors.ErrTypeEmbedding,
			"expected 1 embedding, got %d",
			len(resp.Data),
		)
	}

	return Normalize(resp.Data[0].Embedding), nil
}

// EmbedBatch generates normalized embeddings for multiple texts. Requests go
// out in configured batch sizes. When a batch request fails, each text in the
// batch is retried individually, and texts that still fail get a zero vector
// placeholder so the result always lines up with the input.
func (p *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	results := make([][]float32, 0, len(texts))

	for start := 0; start < len(texts); start += p.batchSize {
		end := min(start+p.batchSize, len(texts))
		batch := texts[start:end]

		vectors, err := p.embedChunk(ctx, batch)
		if err != nil {
			if ctx.Err() != nil {
				return nil, apperrors.Wrap(ctx.Err(), apperrors.ErrTypeEmbedding, "embedding batch canceled")
			}

			logging.Warnf("batch embedding failed, retrying %d texts individually: %v", len(batch), err)
			vectors = p.embedIndividually(ctx, batch)
		}

		results = append(results, vectors...)
	}

	return results, nil
}

// embedChunk sends one batch request and normalizes its vectors.
func (p *OpenAIProvider) embedChunk(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(p.model),
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	vectors := make([][]float32, len(resp.Data))
	for i, item := range resp.Data {
		vectors[i] = Normalize(item.Embedding)
	}

	return vectors, nil
}

// embedIndividually retries texts one at a time after a batch failure,
// substituting zero vectors for texts that still fail.
func (p *OpenAIProvider) embedIndividually(ctx context.Context, texts []string) [][]float32 {
	vectors := make([][]float32, len(texts))

	for i, text := range texts {
		vec, err := p.Embed(ctx, text)
		if err != nil {
			logging.Warnf("embedding failed for text %q, using zero vector: %v", truncate(text, 60), err)

			vectors[i] = ZeroVector(p.dimensions)

			continue
		}

		vectors[i] = vec
	}

	return vectors
}

// Dimensions returns the configured embedding dimensionality.
func (p *OpenAIProvider) Dimensions() int {
	return p.dimensions
}

// Name returns the provider name for identification.
func (p *OpenAIProvider) Name() string {
	return "openai:" + p.model
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n] + "..."
}
