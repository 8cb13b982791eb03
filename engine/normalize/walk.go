package normalize

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/compozy/docsweep/pkg/logger"
	"github.com/spf13/afero"
)

// walker performs the depth-first traversal of the content tree.
type walker struct {
	fs             afero.Fs
	root           string
	extension      string
	include        []string
	exclude        []string
	followSymlinks bool
	visited        map[string]struct{}
	// onFile is invoked for every candidate file, onError for every traversal
	// failure. A non-nil return from either stops the walk.
	onFile    func(path string) error
	onError   func(err error) error
	onExclude func(path string)
}

func (w *walker) walk(ctx context.Context) error {
	w.visited = make(map[string]struct{})
	return w.walkDir(ctx, w.root)
}

func (w *walker) walkDir(ctx context.Context, dir string) error {
	log := logger.FromContext(ctx)
	resolved := w.realPath(dir)
	if _, seen := w.visited[resolved]; seen {
		log.Debug("Skipping already visited directory", "path", dir, "real_path", resolved)
		return nil
	}
	w.visited[resolved] = struct{}{}
	entries, err := afero.ReadDir(w.fs, dir)
	if err != nil {
		return w.onError(newFileError("list", dir, err))
	}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := filepath.Join(dir, entry.Name())
		isDir := entry.IsDir()
		if entry.Mode()&os.ModeSymlink != 0 {
			target, err := w.fs.Stat(path)
			if err != nil {
				if err := w.onError(newFileError("stat", path, err)); err != nil {
					return err
				}
				continue
			}
			if target.IsDir() && !w.followSymlinks {
				log.Debug("Skipping symlinked directory", "path", path)
				continue
			}
			isDir = target.IsDir()
		}
		rel := w.relative(path)
		if w.excluded(rel) {
			w.onExclude(path)
			continue
		}
		if isDir {
			if err := w.walkDir(ctx, path); err != nil {
				return err
			}
			continue
		}
		if !strings.HasSuffix(entry.Name(), w.extension) || !w.included(rel) {
			continue
		}
		if err := w.onFile(path); err != nil {
			return err
		}
	}
	return nil
}

// listDirs returns start and every directory below it the walk would enter.
func (w *walker) listDirs(ctx context.Context, start string) ([]string, error) {
	var dirs []string
	w.visited = make(map[string]struct{})
	var collect func(dir string) error
	collect = func(dir string) error {
		resolved := w.realPath(dir)
		if _, seen := w.visited[resolved]; seen {
			return nil
		}
		w.visited[resolved] = struct{}{}
		dirs = append(dirs, dir)
		entries, err := afero.ReadDir(w.fs, dir)
		if err != nil {
			return newFileError("list", dir, err)
		}
		for _, entry := range entries {
			if err := ctx.Err(); err != nil {
				return err
			}
			path := filepath.Join(dir, entry.Name())
			isDir := entry.IsDir()
			if entry.Mode()&os.ModeSymlink != 0 && w.followSymlinks {
				if target, err := w.fs.Stat(path); err == nil {
					isDir = target.IsDir()
				}
			}
			if !isDir || w.excluded(w.relative(path)) {
				continue
			}
			if err := collect(path); err != nil {
				return err
			}
		}
		return nil
	}
	if err := collect(start); err != nil {
		return nil, err
	}
	return dirs, nil
}

func (w *walker) relative(path string) string {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func (w *walker) excluded(rel string) bool {
	for _, pattern := range w.exclude {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

func (w *walker) included(rel string) bool {
	if len(w.include) == 0 {
		return true
	}
	for _, pattern := range w.include {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// realPath resolves symlinks on OS-backed filesystems. In-memory trees have
// no links, so the cleaned path identifies the directory.
func (w *walker) realPath(path string) string {
	if _, ok := w.fs.(*afero.OsFs); ok {
		if resolved, err := filepath.EvalSymlinks(path); err == nil {
			return resolved
		}
	}
	return filepath.Clean(path)
}
