package engine

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/tabmaster/tabmaster/pkg/log"
	"github.com/tabmaster/tabmaster/pkg/ruleset"
)

// WatchRuleset reloads the engine's rules whenever the file changes, until
// the context is canceled. Editors replace files rather than write in place,
// so the parent directory is watched and events are filtered by name.
// A reload failure keeps the previous rules and broadcasts [RulesetError].
func (e *Engine) WatchRuleset(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve ruleset path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}

	err = watcher.Add(filepath.Dir(abs))
	if err != nil {
		_ = watcher.Close()

		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	go e.watchLoop(ctx, watcher, abs)

	return nil
}

func (e *Engine) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, path string) {
	defer func() {
		if err := watcher.Close(); err != nil {
			log.WithContext(ctx).ErrorContext(ctx, "close watcher", slog.Any("error", err))
		}
	}()

	logger := log.WithContext(ctx).With(slog.String("path", path))

	for {
		select {
		case <-ctx.Done():
			return

		case evt, ok := <-watcher.Events:
			if !ok {
				return
			}

			if evt.Name != path || evt.Has(fsnotify.Chmod) {
				continue
			}

			if evt.Has(fsnotify.Remove) {
				// Replaced files fire Remove then Create; keep waiting.
				continue
			}

			e.reload(ctx, path, logger)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}

			logger.ErrorContext(ctx, "watch ruleset", slog.Any("error", err))
			e.broadcast(ctx, RulesetError{Path: path, Err: err})
		}
	}
}

func (e *Engine) reload(ctx context.Context, path string, logger *slog.Logger) {
	rs, err := ruleset.Load(path)
	if err != nil {
		logger.ErrorContext(ctx, "reload ruleset", slog.Any("error", err))
		e.broadcast(ctx, RulesetError{Path: path, Err: err})

		return
	}

	e.SetRules(rs.Rules)

	logger.InfoContext(ctx, "ruleset reloaded", slog.Int("rules", len(rs.Rules)))
	e.broadcast(ctx, RulesetReload{Path: path, Rules: len(rs.Rules)})
}
