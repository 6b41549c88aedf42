package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	err := New(ErrTypeSchema, "test error message")

	assert.Equal(t, ErrTypeSchema, err.Type)
	assert.Equal(t, "test error message", err.Message)
	assert.NoError(t, err.Cause)
}

func TestNewf(t *testing.T) {
	err := Newf(ErrTypeVectorStore, "failed to open %s", "collection")

	assert.Equal(t, ErrTypeVectorStore, err.Type)
	assert.Equal(t, "failed to open collection", err.Message)
}

func TestWrap(t *testing.T) {
	originalErr := errors.New("original error")
	wrappedErr := Wrap(originalErr, ErrTypeEmbedding, "embedding generation failed")

	assert.Equal(t, ErrTypeEmbedding, wrappedErr.Type)
	assert.Equal(t, "embedding generation failed", wrappedErr.Message)
	assert.Equal(t, originalErr, wrappedErr.Cause)
}

func TestWrapf(t *testing.T) {
	originalErr := errors.New("connection refused")
	wrappedErr := Wrapf(
		originalErr,
		ErrTypeVectorStore,
		"failed to open %s at %s",
		"schema_embeddings",
		"./vector_db",
	)

	assert.Equal(t, ErrTypeVectorStore, wrappedErr.Type)
	assert.Equal(t, "failed to open schema_embeddings at ./vector_db", wrappedErr.Message)
	assert.Equal(t, originalErr, wrappedErr.Cause)
}

func TestErrorString(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name: "error without cause",
			err: &Error{
				Type:    ErrTypeSchema,
				Message: "missing tables key",
			},
			expected: "schema: missing tables key",
		},
		{
			name: "error with cause",
			err: &Error{
				Type:    ErrTypeVectorStore,
				Message: "query failed",
				Cause:   errors.New("connection timeout"),
			},
			expected: "vector_store: query failed (caused by: connection timeout)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestUnwrap(t *testing.T) {
	originalErr := errors.New("original error")
	wrappedErr := Wrap(originalErr, ErrTypeReranker, "wrapped error")

	assert.Equal(t, originalErr, wrappedErr.Unwrap())
}

func TestWithSuggestion(t *testing.T) {
	err := New(ErrTypeEmbedding, "no embedding provider configured")
	err = err.WithSuggestion("Set SCHEMALINK_EMBEDDING_API_KEY")
	err = err.WithSuggestion("Check the embedding base URL")

	assert.Len(t, err.Suggestions, 2)
	assert.Contains(t, err.Suggestions, "Set SCHEMALINK_EMBEDDING_API_KEY")
	assert.Contains(t, err.Suggestions, "Check the embedding base URL")
}

func TestIsType(t *testing.T) {
	structErr := New(ErrTypeSchema, "schema error")
	regularErr := errors.New("regular error")

	assert.True(t, IsType(structErr, ErrTypeSchema))
	assert.False(t, IsType(structErr, ErrTypeVectorStore))
	assert.False(t, IsType(regularErr, ErrTypeSchema))
}

func TestGetType(t *testing.T) {
	structErr := New(ErrTypeReranker, "scorer error")
	regularErr := errors.New("regular error")

	assert.Equal(t, ErrTypeReranker, GetType(structErr))
	assert.Equal(t, ErrTypeInternal, GetType(regularErr))
}

func TestNewConfigError(t *testing.T) {
	err := NewConfigError("invalid value", "similarity_threshold")

	assert.Equal(t, ErrTypeConfig, err.Type)
	assert.Contains(t, err.Message, "invalid value")
	assert.Contains(t, err.Message, "similarity_threshold")
	assert.Contains(t, err.Suggestions, "Check your configuration file syntax")
}

func TestNewSchemaError(t *testing.T) {
	err := NewSchemaError("missing tables key", "./schema.json")

	assert.Equal(t, ErrTypeSchema, err.Type)
	assert.Contains(t, err.Message, "missing tables key")
	assert.Contains(t, err.Message, "./schema.json")
	assert.NotEmpty(t, err.Suggestions)
}
