// Package reranker rescores vector search candidates with a cross-encoder
// and an optional LLM validation pass.
package reranker

import (
	"context"
	"fmt"
	"sort"
	"sync"

	apperrors "github.com/schemalink/schemalink/internal/errors"
	"github.com/schemalink/schemalink/internal/logging"
	"github.com/schemalink/schemalink/internal/vectorstore"
)

// defaultValidatorScore is assigned to candidates the validator did not
// mention in its response.
const defaultValidatorScore = 0.5

// PairScorer scores query-candidate text pairs. Higher means more relevant.
type PairScorer interface {
	ScorePairs(ctx context.Context, query string, texts []string) ([]float64, error)
}

// Validator produces relevance scores keyed by 1-based candidate index. Used
// as a second opinion when cross-encoder confidence is low.
type Validator interface {
	ScoreCandidates(ctx context.Context, query string, texts []string) (map[int]float64, error)
}

// Result carries reranked candidates plus flags describing which path
// produced them.
type Result struct {
	Candidates []vectorstore.Candidate

	// LLMValidated is set when validator scores replaced the cross-encoder
	// scores.
	LLMValidated bool

	// UsedFallback is set when validation was triggered but failed, leaving
	// the cross-encoder ordering in place.
	UsedFallback bool
}

// Reranker applies two-stage reranking to search candidates.
type Reranker struct {
	scorerFactory func() (PairScorer, error)
	validator     Validator

	// validationThreshold is the top-1 score below which the validator runs.
	validationThreshold float64

	scorerOnce sync.Once
	scorer     PairScorer
	scorerErr  error
}

// New creates a reranker. The scorer factory runs once, on first use, so a
// slow or failing backend never blocks construction. A nil validator
// disables the validation stage.
func New(
	scorerFactory func() (PairScorer, error),
	validator Validator,
	validationThreshold float64,
) *Reranker {
	return &Reranker{
		scorerFactory:       scorerFactory,
		validator:           validator,
		validationThreshold: validationThreshold,
	}
}

// NewWithScorer creates a reranker around an already-constructed scorer.
func NewWithScorer(scorer PairScorer, validator Validator, validationThreshold float64) *Reranker {
	return New(
		func() (PairScorer, error) { return scorer, nil },
		validator,
		validationThreshold,
	)
}

// RerankTables reranks table candidates and returns the top K.
func (r *Reranker) RerankTables(
	ctx context.Context,
	query string,
	candidates []vectorstore.Candidate,
	topK int,
) (Result, error) {
	return r.rerank(ctx, query, candidates, topK)
}

// RerankColumns reranks column candidates belonging to one table and returns
// the top K.
func (r *Reranker) RerankColumns(
	ctx context.Context,
	query string,
	candidates []vectorstore.Candidate,
	topK int,
) (Result, error) {
	return r.rerank(ctx, query, candidates, topK)
}

func (r *Reranker) rerank(
	ctx context.Context,
	query string,
	candidates []vectorstore.Candidate,
	topK int,
) (Result, error) {
	if len(candidates) == 0 {
		return Result{}, nil
	}

	scorer, err := r.ensureScorer()
	if err != nil {
		return Result{}, err
	}

	texts := make([]string, len(candidates))
	for i, candidate := range candidates {
		texts[i] = CandidateText(candidate)
	}

	scores, err := scorer.ScorePairs(ctx, query, texts)
	if err != nil {
		return Result{}, apperrors.Wrap(err, apperrors.ErrTypeReranker, "cross-encoder scoring failed")
	}

	if len(scores) != len(candidates) {
		return Result{}, apperrors.Newf(
			apperrors.ErrTypeReranker,
			"scorer returned %d scores for %d candidates",
			len(scores),
			len(candidates),
		)
	}

	ranked := applyScores(candidates, minMaxNormalize(scores))

	result := Result{}

	if r.validator != nil && ranked[0].Score < r.validationThreshold {
		logging.Debugf(
			"low reranker confidence (%.2f < %.2f), running LLM validation",
			ranked[0].Score,
			r.validationThreshold,
		)

		validated, err := r.validate(ctx, query, candidates, texts)
		if err != nil {
			logging.Warnf("LLM validation failed, keeping cross-encoder order: %v", err)

			result.UsedFallback = true
		} else {
			ranked = validated
			result.LLMValidated = true
		}
	}

	if len(ranked) > topK {
		ranked = ranked[:topK]
	}

	result.Candidates = ranked

	return result, nil
}

// validate asks the validator to rescore the original candidates. Candidates
// it does not mention get a neutral default score.
func (r *Reranker) validate(
	ctx context.Context,
	query string,
	candidates []vectorstore.Candidate,
	texts []string,
) ([]vectorstore.Candidate, error) {
	indexScores, err := r.validator.ScoreCandidates(ctx, query, texts)
	if err != nil {
		return nil, err
	}

	scores := make([]float64, len(candidates))

	for i := range candidates {
		score, ok := indexScores[i+1]
		if !ok {
			score = defaultValidatorScore
		}

		scores[i] = score
	}

	return applyScores(candidates, scores), nil
}

// ensureScorer builds the pair scorer once. A failed build is sticky.
func (r *Reranker) ensureScorer() (PairScorer, error) {
	r.scorerOnce.Do(func() {
		r.scorer, r.scorerErr = r.scorerFactory()
	})

	if r.scorerErr != nil {
		return nil, apperrors.Wrap(r.scorerErr, apperrors.ErrTypeReranker, "failed to initialize reranker scorer")
	}

	return r.scorer, nil
}

// applyScores copies candidates with new scores and sorts them descending.
// The copy keeps the caller's slice and metadata untouched.
func applyScores(candidates []vectorstore.Candidate, scores []float64) []vectorstore.Candidate {
	ranked := make([]vectorstore.Candidate, len(candidates))

	for i, candidate := range candidates {
		metadata := make(map[string]any, len(candidate.Metadata)+1)
		for k, v := range candidate.Metadata {
			metadata[k] = v
		}

		metadata["reranker_score"] = scores[i]

		candidate.Metadata = metadata
		candidate.Score = scores[i]
		ranked[i] = candidate
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	return ranked
}

// minMaxNormalize rescales scores into [0, 1]. When all scores are equal the
// input is returned unchanged.
func minMaxNormalize(scores []float64) []float64 {
	minScore, maxScore := scores[0], scores[0]
	for _, s := range scores[1:] {
		if s < minScore {
			minScore = s
		}

		if s > maxScore {
			maxScore = s
		}
	}

	if maxScore <= minScore {
		return scores
	}

	normalized := make([]float64, len(scores))
	for i, s := range scores {
		normalized[i] = (s - minScore) / (maxScore - minScore)
	}

	return normalized
}

// CandidateText renders a candidate the way it is presented to the scorer
// and validator.
func CandidateText(candidate vectorstore.Candidate) string {
	switch candidate.ElementType {
	case "table":
		return fmt.Sprintf("%s: %s", candidate.TableName, candidate.Description)
	case "column":
		colType, _ := candidate.Metadata["type"].(string)
		return fmt.Sprintf(
			"%s.%s (%s): %s",
			candidate.TableName,
			candidate.ColumnName,
			colType,
			candidate.Description,
		)
	default:
		if candidate.ColumnName != "" {
			return fmt.Sprintf("%s.%s: %s", candidate.TableName, candidate.ColumnName, candidate.Description)
		}

		return fmt.Sprintf("%s: %s", candidate.TableName, candidate.Description)
	}
}
