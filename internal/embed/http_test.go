package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPEmbedder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.Equal(t, []string{"hello", "world"}, req.Input)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"embedding": []float64{1, 2, 3}},
				{"embedding": []float64{4, 5, 6}},
			},
		})
	}))
	defer srv.Close()

	e := NewHTTPEmbedder(srv.URL, "test-model", "secret")

	vecs, err := e.Embed(context.Background(), []string{"hello", "world"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, []float64{1, 2, 3}, vecs[0])
	assert.Equal(t, []float64{4, 5, 6}, vecs[1])
}

func TestHTTPEmbedderNoAuthHeaderWithoutKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float64{1}}},
		})
	}))
	defer srv.Close()

	e := NewHTTPEmbedder(srv.URL, "", "")
	_, err := e.Embed(context.Background(), []string{"x"})
	require.NoError(t, err)
}

func TestHTTPEmbedderErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	e := NewHTTPEmbedder(srv.URL, "m", "")
	_, err := e.Embed(context.Background(), []string{"x"})
	require.Error(t, err)
	assert.ErrorContains(t, err, "status 500")
	assert.ErrorContains(t, err, "model not loaded")
}

func TestHTTPEmbedderVectorCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float64{1}}},
		})
	}))
	defer srv.Close()

	e := NewHTTPEmbedder(srv.URL, "m", "")
	_, err := e.Embed(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	assert.ErrorContains(t, err, "1 vectors for 2 texts")
}
