package reranker

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/schemalink/schemalink/internal/config"
	apperrors "github.com/schemalink/schemalink/internal/errors"
)

const validatorSystemPrompt = `You are an expert at ranking database schema elements by relevance to user queries.

Your task is to rank the provided candidates by their relevance to the user query.
Return a JSON object with candidate indices (1-based) as keys and relevance scores (0-1) as values.
Higher scores indicate better relevance.`

const validatorUserPromptFormat = `# USER QUERY #
%s

# CANDIDATES #
%s

# TASK #
Rank these candidates by relevance to the query. Return JSON with format:
{"1": 0.95, "2": 0.87, "3": 0.72, ...}

Return ONLY the JSON object, no additional text.`

// chatAPI is the slice of the go-openai client we use. Tests substitute a
// fake.
type chatAPI interface {
	CreateChatCompletion(
		ctx context.Context,
		req openai.ChatCompletionRequest,
	) (openai.ChatCompletionResponse, error)
}

// LLMValidator rescores candidates with a chat model through any
// OpenAI-compatible API, including Groq.
type LLMValidator struct {
	client chatAPI
	model  string
}

// NewLLMValidator creates a validator from the reranker configuration.
func NewLLMValidator(cfg config.RerankerConfig) (*LLMValidator, error) {
	if cfg.LLMAPIKey == "" {
		return nil, apperrors.New(apperrors.ErrTypeReranker, "no LLM API key configured").
			WithSuggestion("Set SCHEMALINK_LLM_API_KEY or disable LLM validation")
	}

	clientConfig := openai.DefaultConfig(cfg.LLMAPIKey)
	if cfg.LLMBaseURL != "" {
		clientConfig.BaseURL = cfg.LLMBaseURL
	}

	return &LLMValidator{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.LLMModel,
	}, nil
}

// ScoreCandidates asks the model to score every candidate and returns the
// scores keyed by 1-based candidate index.
func (v *LLMValidator) ScoreCandidates(
	ctx context.Context,
	query string,
	texts []string,
) (map[int]float64, error) {
	numbered := make([]string, len(texts))
	for i, text := range texts {
		numbered[i] = fmt.Sprintf("%d. %s", i+1, text)
	}

	resp, err := v.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: v.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: validatorSystemPrompt},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf(validatorUserPromptFormat, query, strings.Join(numbered, "\n")),
			},
		},
		Temperature: 0.1,
		MaxTokens:   500,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrTypeReranker, "LLM validation request failed")
	}

	if len(resp.Choices) == 0 {
		return nil, apperrors.New(apperrors.ErrTypeReranker, "LLM returned no choices")
	}

	return parseScores(resp.Choices[0].Message.Content)
}

// parseScores extracts the index-to-score map from the model response,
// tolerating markdown code fences around the JSON.
func parseScores(response string) (map[int]float64, error) {
	text := strings.TrimSpace(response)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var raw map[string]float64
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrTypeReranker, "LLM response is not a JSON score map")
	}

	scores := make(map[int]float64, len(raw))

	for key, score := range raw {
		index, err := strconv.Atoi(key)
		if err != nil {
			continue
		}

		scores[index] = score
	}

	return scores, nil
}
