package purge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/compozy/docsweep/pkg/config"
	"github.com/compozy/docsweep/pkg/logger"
	"github.com/sethvargo/go-retry"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

// Report summarizes one purge.
type Report struct {
	Listed  int
	Matched int
	Deleted []string
	Failed  map[string]error
}

// FailedNames returns the names of the entries that could not be deleted, sorted.
func (r *Report) FailedNames() []string {
	names := make([]string, 0, len(r.Failed))
	for name := range r.Failed {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Service deletes files with one extension from a single directory.
type Service struct {
	fs     afero.Fs
	cfg    config.PurgeConfig
	out    io.Writer
	errOut io.Writer
	mu     sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithOutput sets where "Deleted:" lines are written.
func WithOutput(w io.Writer) Option {
	return func(s *Service) {
		s.out = w
	}
}

// WithErrorOutput sets where per-file deletion errors are written.
func WithErrorOutput(w io.Writer) Option {
	return func(s *Service) {
		s.errOut = w
	}
}

// NewService creates a purge service that deletes from cfg.Dir on fs.
func NewService(fs afero.Fs, cfg *config.PurgeConfig, opts ...Option) *Service {
	if cfg == nil {
		def := config.Default().Purge
		cfg = &def
	}
	s := &Service{
		fs:     fs,
		cfg:    *cfg,
		out:    os.Stdout,
		errOut: os.Stderr,
	}
	if s.cfg.Workers < 1 {
		s.cfg.Workers = 1
	}
	if s.cfg.Retries < 0 {
		s.cfg.Retries = 0
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run lists the directory once and deletes every matching non-directory
// entry. Deletions run concurrently and fail independently; Run returns
// after all of them finished.
func (s *Service) Run(ctx context.Context) (*Report, error) {
	log := logger.FromContext(ctx).With("dir", s.cfg.Dir, "extension", s.cfg.Extension)
	entries, err := afero.ReadDir(s.fs, s.cfg.Dir)
	if err != nil {
		return nil, &ListError{Dir: s.cfg.Dir, Err: err}
	}
	report := &Report{Listed: len(entries), Failed: make(map[string]error)}
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(s.cfg.Workers)
	for _, entry := range entries {
		name := entry.Name()
		// A bare ".mdx" is a dotfile with no extension.
		if ext := filepath.Ext(name); ext == name || ext != s.cfg.Extension {
			continue
		}
		path := filepath.Join(s.cfg.Dir, name)
		if s.isDir(entry, path) {
			log.Debug("Skipping directory", "name", name)
			continue
		}
		if gctx.Err() != nil {
			break
		}
		report.Matched++
		group.Go(func() error {
			s.remove(gctx, report, name, path)
			return nil
		})
	}
	_ = group.Wait()
	log.Debug("Purge finished",
		"matched", report.Matched, "deleted", len(report.Deleted), "failed", len(report.Failed))
	if err := ctx.Err(); err != nil {
		return report, err
	}
	if s.cfg.FailOnError && len(report.Failed) > 0 {
		return report, fmt.Errorf("%w: %d of %d", ErrPartialPurge, len(report.Failed), report.Matched)
	}
	return report, nil
}

// isDir reports whether the entry is a directory or a link to one.
func (s *Service) isDir(entry os.FileInfo, path string) bool {
	if entry.IsDir() {
		return true
	}
	if entry.Mode()&os.ModeSymlink == 0 {
		return false
	}
	target, err := s.fs.Stat(path)
	return err == nil && target.IsDir()
}

func (s *Service) remove(ctx context.Context, report *Report, name, path string) {
	if err := ctx.Err(); err != nil {
		s.fail(report, name, err)
		return
	}
	if s.cfg.DryRun {
		s.mu.Lock()
		defer s.mu.Unlock()
		report.Deleted = append(report.Deleted, name)
		fmt.Fprintf(s.out, "Would delete: %s\n", name)
		return
	}
	if err := s.removeWithRetry(ctx, path); err != nil {
		logger.FromContext(ctx).Debug("Delete failed", "name", name, "error", err)
		s.fail(report, name, err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	report.Deleted = append(report.Deleted, name)
	fmt.Fprintf(s.out, "Deleted: %s\n", name)
}

// removeWithRetry retries transient failures up to cfg.Retries times with
// exponential backoff.
func (s *Service) removeWithRetry(ctx context.Context, path string) error {
	backoff := retry.WithMaxRetries(uint64(s.cfg.Retries), retry.NewExponential(s.backoffBase()))
	return retry.Do(ctx, backoff, func(_ context.Context) error {
		err := s.fs.Remove(path)
		if err == nil || !transient(err) {
			return err
		}
		return retry.RetryableError(err)
	})
}

func (s *Service) backoffBase() time.Duration {
	if s.cfg.RetryBackoff <= 0 {
		return time.Millisecond
	}
	return s.cfg.RetryBackoff
}

func transient(err error) bool {
	return !errors.Is(err, os.ErrPermission) && !errors.Is(err, os.ErrNotExist)
}

func (s *Service) fail(report *Report, name string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	report.Failed[name] = err
	fmt.Fprintf(s.errOut, "Error deleting %s: %v\n", name, err)
}
