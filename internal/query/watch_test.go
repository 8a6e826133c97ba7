package query

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatchCatalogStopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "intents.yaml")
	catalog := "intents:\n  - name: savings_summary\n    desc: savings\n"
	if err := os.WriteFile(path, []byte(catalog), 0o644); err != nil {
		t.Fatal(err)
	}

	emb := &stubEmbedder{vectors: map[string][]float64{}}
	c, err := NewSimilarityClassifier(context.Background(), emb, similarityDefs(), 0)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- WatchCatalog(ctx, path, c) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("WatchCatalog() = %v, want nil on cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("WatchCatalog did not stop after cancel")
	}
}

func TestWatchCatalogMissingDirectory(t *testing.T) {
	c, err := NewSimilarityClassifier(context.Background(), &stubEmbedder{}, similarityDefs(), 0)
	if err != nil {
		t.Fatal(err)
	}

	err = WatchCatalog(context.Background(), "/no/such/dir/intents.yaml", c)
	if err == nil {
		t.Error("WatchCatalog() should fail for a missing directory")
	}
}
