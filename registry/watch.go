package registry

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/glasspane/glasspane/backend"
	"github.com/glasspane/glasspane/log"
	"github.com/samber/lo"
)

// Watch follows plugin directories on disk and invalidates cached library paths when they
// change outside the installer. onChange, when not nil, runs on the watcher goroutine.
// Watch returns once the watcher is set up; it stops when ctx is done.
func (r *Registry) Watch(ctx context.Context, onChange func(backend.Kind)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	roots := lo.Uniq(lo.Map(r.Kinds(), func(k backend.Kind, _ int) string {
		return filepath.Dir(r.entries[k].Installation.Directory())
	}))
	for _, root := range roots {
		if err := os.MkdirAll(root, os.ModePerm); err != nil {
			watcher.Close()
			return err
		}
		if err := watcher.Add(root); err != nil {
			watcher.Close()
			return err
		}
	}

	for _, kind := range r.Kinds() {
		dir := r.entries[kind].Installation.Directory()
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			_ = watcher.Add(dir)
		}
	}

	go r.watch(ctx, watcher, onChange)
	return nil
}

func (r *Registry) watch(ctx context.Context, watcher *fsnotify.Watcher, onChange func(backend.Kind)) {
	defer watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Warnf("plugin watcher: %v", err)
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			kind, ok := r.owner(event.Name)
			if !ok {
				continue
			}

			dir := r.entries[kind].Installation.Directory()
			if event.Name == dir && event.Has(fsnotify.Create) {
				_ = watcher.Add(dir)
			}

			log.With(log.Fields{"backend": kind.Name(), "op": event.Op.String()}).Debugf("plugin directory changed")
			r.entries[kind].Installation.Invalidate()
			if onChange != nil {
				onChange(kind)
			}
		}
	}
}

// owner maps a changed path to the plugin whose directory contains it.
func (r *Registry) owner(path string) (backend.Kind, bool) {
	return lo.Find(r.Kinds(), func(k backend.Kind) bool {
		dir := r.entries[k].Installation.Directory()
		return path == dir || strings.HasPrefix(path, dir+string(filepath.Separator))
	})
}
