// Package embedding generates and caches embedding vectors for schema
// elements through an OpenAI-compatible API.
package embedding

import (
	"context"
	"math"
)

// Provider defines the interface for embedding providers
type Provider interface {
	// Embed generates an embedding for a single text
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, preserving order.
	// Individual failures yield a zero vector rather than failing the batch.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the dimensionality of embeddings produced by this provider
	Dimensions() int

	// Name returns the provider name for identification
	Name() string
}

// Normalize scales a vector to unit length in place and returns it. Zero
// vectors are left untouched so failed-embedding placeholders survive.
func Normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}

	if sum == 0 {
		return vec
	}

	norm := math.Sqrt(sum)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}

	return vec
}

// ZeroVector returns an all-zero placeholder of the given dimensionality.
func ZeroVector(dimensions int) []float32 {
	return make([]float32, dimensions)
}

// IsZeroVector reports whether every component of the vector is zero.
func IsZeroVector(vec []float32) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}

	return true
}
