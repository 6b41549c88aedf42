package reranker

import (
	"context"

	"github.com/hupe1980/go-huggingface"

	"github.com/schemalink/schemalink/internal/config"
	apperrors "github.com/schemalink/schemalink/internal/errors"
)

// sentenceSimilarityAPI is the slice of the Hugging Face inference client we
// use. Tests substitute a fake.
type sentenceSimilarityAPI interface {
	SentenceSimilarity(
		ctx context.Context,
		req *huggingface.SentenceSimilarityRequest,
	) (huggingface.SentenceSimilarityResponse, error)
}

// HFScorer scores query-candidate pairs through the Hugging Face inference
// API using a sentence similarity model.
type HFScorer struct {
	client sentenceSimilarityAPI
	model  string
}

// NewHFScorer creates a scorer from the reranker configuration.
func NewHFScorer(cfg config.RerankerConfig) (*HFScorer, error) {
	if cfg.HFToken == "" {
		return nil, apperrors.New(apperrors.ErrTypeReranker, "no Hugging Face token configured").
			WithSuggestion("Set SCHEMALINK_RERANKER_HF_TOKEN")
	}

	return &HFScorer{
		client: huggingface.NewInferenceClient(cfg.HFToken),
		model:  cfg.Model,
	}, nil
}

// ScorePairs scores every candidate text against the query in one request.
func (s *HFScorer) ScorePairs(ctx context.Context, query string, texts []string) ([]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := s.client.SentenceSimilarity(ctx, &huggingface.SentenceSimilarityRequest{
		Inputs: huggingface.SentenceSimilarityInputs{
			SourceSentence: query,
			Sentences:      texts,
		},
		Model: s.model,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrTypeReranker, "sentence similarity request failed")
	}

	if len(resp) != len(texts) {
		return nil, apperrors.Newf(
			apperrors.ErrTypeReranker,
			"expected %d scores, got %d",
			len(texts),
			len(resp),
		)
	}

	// The inference API responds with float32 scores.
	scores := make([]float64, len(resp))
	for i, v := range resp {
		scores[i] = float64(v)
	}

	return scores, nil
}
