package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the holder's config file whenever it changes on disk and
// invokes onReload with the previous and new configs after a successful
// swap. A file that reloads with an error keeps the previous config active.
// Blocks until ctx is canceled.
//
// The watch is registered on the containing directory because editors and
// config-management tools typically replace the file via rename, which
// drops a watch registered on the file itself.
func Watch(ctx context.Context, holder *Holder, logger *slog.Logger, onReload func(old, updated *Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating config watcher: %w", err)
	}
	defer watcher.Close()

	path := holder.Path()
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(path), err)
	}

	logger.Info("watching config for changes", slog.String("path", path))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if filepath.Clean(event.Name) != filepath.Clean(path) {
				continue
			}

			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			cfg, err := Load(path)
			if err != nil {
				logger.Warn("config reload failed, keeping previous config",
					slog.String("error", err.Error()),
				)

				continue
			}

			old := holder.Replace(cfg)
			logger.Info("config reloaded", slog.String("path", path))

			if onReload != nil {
				onReload(old, cfg)
			}

		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			logger.Warn("config watcher error", slog.String("error", watchErr.Error()))
		}
	}
}

// RotatedAccounts returns the names of accounts whose credential tuple
// (app_id, app_secret, domain) changed between two configs, including
// accounts that were removed. Cached clients built against the old tuple
// must be invalidated for these.
func RotatedAccounts(old, updated *Config) []string {
	if old == nil {
		return nil
	}

	var rotated []string

	for name, prev := range old.Accounts {
		next, ok := updated.Accounts[name]
		if !ok || prev.AppID != next.AppID || prev.AppSecret != next.AppSecret || prev.Domain != next.Domain {
			rotated = append(rotated, name)
		}
	}

	sort.Strings(rotated)

	return rotated
}
