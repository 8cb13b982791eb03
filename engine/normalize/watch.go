package normalize

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"

	"github.com/compozy/docsweep/pkg/logger"
	"github.com/fsnotify/fsnotify"
	"github.com/romdo/go-debounce"
	"github.com/spf13/afero"
)

// Watch runs a normalization pass, then re-runs it whenever matching files
// change under the root. It returns when ctx is canceled.
func (s *Service) Watch(ctx context.Context) error {
	if _, ok := s.fs.(*afero.OsFs); !ok {
		return ErrWatchUnsupported
	}
	log := logger.FromContext(ctx)
	if _, err := s.Run(ctx); err != nil {
		if !s.cfg.ContinueOnError {
			return err
		}
		log.Error("Initial normalization pass failed", "error", err)
	}
	watcher, err := s.setupWatcher(ctx)
	if err != nil {
		return err
	}
	defer watcher.Close()

	var runMu sync.Mutex
	rerun, cancel := debounce.NewWithMaxWait(s.wait, s.maxWait, func() {
		if ctx.Err() != nil {
			return
		}
		runMu.Lock()
		defer runMu.Unlock()
		report, err := s.Run(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Normalization pass failed", "error", err)
			return
		}
		if report != nil && report.Fixed > 0 {
			log.Info("Normalization pass finished", "fixed", report.Fixed)
		}
	})
	defer func() {
		cancel()
		// wait for an in-flight pass
		runMu.Lock()
		runMu.Unlock()
	}()

	log.Info("Watching for changes", "root", s.cfg.Root)
	w := s.newWalker()
	for {
		select {
		case <-ctx.Done():
			log.Debug("Context canceled, stopping watcher")
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			rel := w.relative(event.Name)
			if w.excluded(rel) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := s.fs.Stat(event.Name); err == nil && info.IsDir() {
					s.addTree(ctx, watcher, event.Name)
					rerun()
					continue
				}
			}
			if strings.HasSuffix(filepath.Base(event.Name), s.cfg.Extension) && w.included(rel) {
				log.Debug("Detected change, debouncing", "file", event.Name)
				rerun()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error("Watcher error", "error", err)
		}
	}
}

func (s *Service) setupWatcher(ctx context.Context) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	dirs, err := s.newWalker().listDirs(ctx, s.cfg.Root)
	if err != nil {
		_ = watcher.Close()
		return nil, err
	}
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			_ = watcher.Close()
			return nil, newFileError("watch", dir, err)
		}
	}
	return watcher, nil
}

// addTree registers a newly created directory and everything below it.
func (s *Service) addTree(ctx context.Context, watcher *fsnotify.Watcher, dir string) {
	log := logger.FromContext(ctx)
	dirs, err := s.newWalker().listDirs(ctx, dir)
	if err != nil {
		log.Warn("Failed to list new directory", "path", dir, "error", err)
		return
	}
	for _, d := range dirs {
		if err := watcher.Add(d); err != nil {
			log.Warn("Failed to watch directory", "path", d, "error", err)
		}
	}
}
