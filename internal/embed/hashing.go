// Package embed provides the vector encoders the similarity
// classifier ranks with: an HTTP client for a real embedding service
// and a deterministic hashing encoder for development and tests.
package embed

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"
)

const defaultDims = 256

// HashingEmbedder is a deterministic bag-of-words encoder: each token
// hashes into a fixed-size bucket vector. It captures keyword overlap
// only, no real semantics, which is enough for offline development and
// for exercising the similarity path in tests without a model server.
type HashingEmbedder struct {
	Dims int
}

func NewHashingEmbedder() *HashingEmbedder {
	return &HashingEmbedder{Dims: defaultDims}
}

func (h *HashingEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	dims := h.Dims
	if dims <= 0 {
		dims = defaultDims
	}

	out := make([][]float64, len(texts))
	for i, text := range texts {
		vec := make([]float64, dims)
		for _, token := range tokenize(text) {
			vec[bucket(token, dims)]++
		}
		out[i] = vec
	}
	return out, nil
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func bucket(token string, dims int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(token))
	return int(h.Sum32() % uint32(dims))
}
