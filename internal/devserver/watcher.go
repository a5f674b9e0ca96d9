package devserver

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/pageforge/internal/logfields"
	"git.home.luguber.info/inful/pageforge/internal/pferrors"
)

// Watcher watches a set of directory trees recursively and reports changes.
// fsnotify is not recursive, so every subdirectory is registered explicitly
// and newly created directories are registered as they appear.
type Watcher struct {
	fsw    *fsnotify.Watcher
	roots  []string
	notify func(path string)
}

// NewWatcher registers roots (recursively) and reports each relevant change
// through notify. Roots that do not exist yet are skipped; a later Rescan
// picks them up once created.
func NewWatcher(roots []string, notify func(path string)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, pferrors.Wrap(err, pferrors.CategoryIO, pferrors.SeverityFatal, "failed to create filesystem watcher")
	}
	w := &Watcher{fsw: fsw, roots: roots, notify: notify}
	w.Rescan()
	return w, nil
}

// Rescan re-walks all roots and registers any directories not yet watched.
// Registering an already watched directory is a no-op for fsnotify.
func (w *Watcher) Rescan() {
	for _, root := range w.roots {
		if root == "" {
			continue
		}
		w.addRecursive(root)
	}
}

func (w *Watcher) addRecursive(root string) {
	if _, err := os.Stat(root); err != nil {
		return
	}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil //nolint:nilerr // unreadable entries are skipped, not fatal
		}
		if ignoredName(d.Name()) && path != root {
			return fs.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			slog.Warn("failed to watch directory", logfields.Path(path), logfields.Error(err))
		}
		return nil
	})
	if err != nil {
		slog.Warn("watch scan failed", logfields.Path(root), logfields.Error(err))
	}
}

// Run pumps fsnotify events until ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Warn("filesystem watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	name := filepath.Base(ev.Name)
	if ignoredName(name) {
		return
	}

	if ev.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			w.addRecursive(ev.Name)
		}
	}

	if ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Write) ||
		ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename) {
		slog.Debug("filesystem change", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
		w.notify(ev.Name)
	}
}

func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// ignoredName filters editor droppings and hidden files.
func ignoredName(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	if strings.HasSuffix(name, "~") || strings.HasSuffix(name, ".swp") || strings.HasSuffix(name, ".tmp") {
		return true
	}
	return false
}
