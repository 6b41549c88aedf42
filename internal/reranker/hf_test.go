package reranker

import (
	"context"
	"errors"
	"testing"

	"github.com/hupe1980/go-huggingface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemalink/schemalink/internal/config"
)

type fakeSimilarityAPI struct {
	scores  []float32
	err     error
	lastReq *huggingface.SentenceSimilarityRequest
}

func (f *fakeSimilarityAPI) SentenceSimilarity(
	_ context.Context,
	req *huggingface.SentenceSimilarityRequest,
) (huggingface.SentenceSimilarityResponse, error) {
	f.lastReq = req

	if f.err != nil {
		return nil, f.err
	}

	return huggingface.SentenceSimilarityResponse(f.scores), nil
}

func TestHFScorerScorePairs(t *testing.T) {
	api := &fakeSimilarityAPI{scores: []float32{0.75, 0.25}}
	scorer := &HFScorer{client: api, model: "BAAI/bge-reranker-base"}

	scores, err := scorer.ScorePairs(context.Background(), "revenue", []string{"metrics: m", "users: u"})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.75, 0.25}, scores)

	assert.Equal(t, "revenue", api.lastReq.Inputs.SourceSentence)
	assert.Equal(t, []string{"metrics: m", "users: u"}, api.lastReq.Inputs.Sentences)
	assert.Equal(t, "BAAI/bge-reranker-base", api.lastReq.Model)
}

func TestHFScorerEmptyInput(t *testing.T) {
	scorer := &HFScorer{client: &fakeSimilarityAPI{}, model: "m"}

	scores, err := scorer.ScorePairs(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Nil(t, scores)
}

func TestHFScorerRequestError(t *testing.T) {
	scorer := &HFScorer{client: &fakeSimilarityAPI{err: errors.New("boom")}, model: "m"}

	_, err := scorer.ScorePairs(context.Background(), "q", []string{"a"})
	assert.Error(t, err)
}

func TestHFScorerCountMismatch(t *testing.T) {
	scorer := &HFScorer{client: &fakeSimilarityAPI{scores: []float32{0.5}}, model: "m"}

	_, err := scorer.ScorePairs(context.Background(), "q", []string{"a", "b"})
	assert.Error(t, err)
}

func TestNewHFScorerRequiresToken(t *testing.T) {
	_, err := NewHFScorer(config.RerankerConfig{Model: "m"})
	assert.Error(t, err)

	scorer, err := NewHFScorer(config.RerankerConfig{Model: "m", HFToken: "hf_test"})
	require.NoError(t, err)
	assert.NotNil(t, scorer)
}
