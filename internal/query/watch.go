package query

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// WatchCatalog watches an intent catalog file and reloads the
// similarity classifier whenever the file changes. It blocks until the
// context is cancelled. Errors while reloading are logged and the
// previous catalog stays active.
func WatchCatalog(ctx context.Context, path string, classifier *SimilarityClassifier) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Editors typically replace files instead of writing in place, so
	// watch the directory and filter for our path.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Watching intent catalog", "path", path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(path) {
				continue
			}
			if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Rename) {
				continue
			}
			defs, err := LoadCatalogFile(path)
			if err != nil {
				slog.WarnContext(ctx, "Intent catalog reload skipped", "path", path, "error", err)
				continue
			}
			if err := classifier.Reload(ctx, defs); err != nil {
				slog.ErrorContext(ctx, "Intent catalog reload failed", "path", path, "error", err)
				continue
			}
			slog.InfoContext(ctx, "Intent catalog reloaded", "path", path, "intents", len(defs))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.ErrorContext(ctx, "Catalog watcher error", "error", err)
		}
	}
}
