package query

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
)

// Classification is the outcome of classifying one query.
type Classification struct {
	Intent     Intent
	Confidence float64
}

// Classifier resolves free query text to exactly one intent.
type Classifier interface {
	Classify(ctx context.Context, text string) (Classification, error)
}

// Embedder encodes texts into fixed-size vectors. The same embedder
// must encode both the intent descriptions and the incoming queries.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// RuleBasedClassifier applies ordered keyword rules against the
// lower-cased query; the first matching rule wins. It needs no
// external services and is fully deterministic.
type RuleBasedClassifier struct{}

func NewRuleBasedClassifier() RuleBasedClassifier {
	return RuleBasedClassifier{}
}

func (RuleBasedClassifier) Classify(_ context.Context, text string) (Classification, error) {
	q := strings.ToLower(text)
	switch {
	case strings.Contains(q, "total expense") && strings.Contains(q, "month"):
		return Classification{Intent: IntentMonthlyExpenseSummary, Confidence: 1}, nil
	case strings.Contains(q, "top") && strings.Contains(q, "category"):
		return Classification{Intent: IntentTopExpenseCategories, Confidence: 1}, nil
	case strings.Contains(q, "compare") && strings.Contains(q, "last month"):
		return Classification{Intent: IntentCompareMonthly, Confidence: 1}, nil
	case strings.Contains(q, "saving"):
		return Classification{Intent: IntentSavingsSummary, Confidence: 1}, nil
	case strings.Contains(q, "income") && strings.Contains(q, "month"):
		return Classification{Intent: IntentMonthlyIncomeSummary, Confidence: 1}, nil
	case strings.Contains(q, "breakdown") || strings.Contains(q, "category wise"):
		return Classification{Intent: IntentExpenseBreakdown, Confidence: 1}, nil
	default:
		return Classification{Intent: IntentUnknown, Confidence: 0}, nil
	}
}

// SimilarityClassifier ranks the query against precomputed intent
// description vectors by cosine similarity and returns the top hit.
// It is an explicitly constructed value with its own lifecycle:
// vectors are computed in New, and Reload swaps in a new catalog.
type SimilarityClassifier struct {
	embedder Embedder

	// MinConfidence below which the classification falls back to
	// unknown. Zero disables the gate and the top-1 intent is always
	// returned, however weak the match.
	minConfidence float64

	mu      sync.RWMutex
	defs    []IntentDef
	vectors [][]float64
}

// NewSimilarityClassifier embeds the catalog descriptions up front so
// Classify only has to encode the incoming query.
func NewSimilarityClassifier(ctx context.Context, embedder Embedder, defs []IntentDef, minConfidence float64) (*SimilarityClassifier, error) {
	c := &SimilarityClassifier{
		embedder:      embedder,
		minConfidence: minConfidence,
	}
	if err := c.Reload(ctx, defs); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload replaces the intent catalog and recomputes its vectors.
func (c *SimilarityClassifier) Reload(ctx context.Context, defs []IntentDef) error {
	if len(defs) == 0 {
		return fmt.Errorf("reload classifier: empty intent catalog")
	}
	texts := make([]string, len(defs))
	for i, def := range defs {
		texts[i] = def.Description
	}
	vectors, err := c.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed intent descriptions: %w", err)
	}
	if len(vectors) != len(defs) {
		return fmt.Errorf("embed intent descriptions: got %d vectors for %d intents", len(vectors), len(defs))
	}

	c.mu.Lock()
	c.defs = defs
	c.vectors = vectors
	c.mu.Unlock()
	return nil
}

func (c *SimilarityClassifier) Classify(ctx context.Context, text string) (Classification, error) {
	encoded, err := c.embedder.Embed(ctx, []string{text})
	if err != nil {
		return Classification{}, fmt.Errorf("embed query: %w", err)
	}
	if len(encoded) != 1 {
		return Classification{}, fmt.Errorf("embed query: got %d vectors for one text", len(encoded))
	}
	qv := encoded[0]

	c.mu.RLock()
	defer c.mu.RUnlock()

	bestIdx := 0
	bestScore := math.Inf(-1)
	for i, v := range c.vectors {
		// Strict > keeps the earlier catalog entry on ties.
		if score := cosine(qv, v); score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}

	if c.minConfidence > 0 && bestScore < c.minConfidence {
		return Classification{Intent: IntentUnknown, Confidence: bestScore}, nil
	}
	return Classification{Intent: c.defs[bestIdx].Name, Confidence: bestScore}, nil
}

// cosine computes cosine similarity; mismatched or zero vectors score 0.
func cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
