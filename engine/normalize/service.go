package normalize

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/compozy/docsweep/pkg/config"
	"github.com/compozy/docsweep/pkg/logger"
	"github.com/spf13/afero"
)

const (
	defaultDebounceWait    = 200 * time.Millisecond
	defaultDebounceMaxWait = 2 * time.Second
)

// Report summarizes one normalization pass.
type Report struct {
	Scanned  int
	Fixed    int
	Fields   int
	Excluded int
	Changed  []string
	Errors   []error
}

// Service rewrites multi-line field values in a content tree.
type Service struct {
	fs      afero.Fs
	cfg     config.NormalizeConfig
	pattern *FieldPattern
	out     io.Writer
	errOut  io.Writer
	wait    time.Duration
	maxWait time.Duration
}

type Option func(*Service)

// WithOutput sets where per-file notices are written.
func WithOutput(w io.Writer) Option {
	return func(s *Service) {
		s.out = w
	}
}

// WithErrorOutput sets where per-file failures are reported when the run
// continues past errors.
func WithErrorOutput(w io.Writer) Option {
	return func(s *Service) {
		s.errOut = w
	}
}

// WithDebounce overrides the watch-mode re-run delays.
func WithDebounce(wait, maxWait time.Duration) Option {
	return func(s *Service) {
		s.wait = wait
		s.maxWait = maxWait
	}
}

func NewService(fs afero.Fs, cfg *config.NormalizeConfig, opts ...Option) (*Service, error) {
	if cfg == nil {
		def := config.Default().Normalize
		cfg = &def
	}
	pattern, err := NewFieldPattern(cfg.Field)
	if err != nil {
		return nil, err
	}
	s := &Service{
		fs:      fs,
		cfg:     *cfg,
		pattern: pattern,
		out:     os.Stdout,
		errOut:  os.Stderr,
		wait:    defaultDebounceWait,
		maxWait: defaultDebounceMaxWait,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run walks the configured root once and fixes every matching file.
func (s *Service) Run(ctx context.Context) (*Report, error) {
	log := logger.FromContext(ctx).With("root", s.cfg.Root, "field", s.pattern.Name())
	if err := s.checkRoot(); err != nil {
		return nil, err
	}
	report := &Report{}
	w := s.newWalker()
	w.onFile = func(path string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		report.Scanned++
		fields, err := s.processFile(path)
		if err != nil {
			return w.onError(err)
		}
		if fields > 0 {
			report.Fixed++
			report.Fields += fields
			report.Changed = append(report.Changed, path)
		}
		return nil
	}
	w.onError = func(err error) error {
		if !s.cfg.ContinueOnError {
			return err
		}
		log.Warn("Continuing after error", "error", err)
		fmt.Fprintf(s.errOut, "Error: %v\n", err)
		report.Errors = append(report.Errors, err)
		return nil
	}
	w.onExclude = func(path string) {
		log.Debug("Excluded by pattern", "path", path)
		report.Excluded++
	}
	if err := w.walk(ctx); err != nil {
		return report, err
	}
	log.Debug("Normalization finished",
		"scanned", report.Scanned, "fixed", report.Fixed, "errors", len(report.Errors))
	if len(report.Errors) > 0 {
		return report, errors.Join(report.Errors...)
	}
	return report, nil
}

func (s *Service) newWalker() *walker {
	return &walker{
		fs:             s.fs,
		root:           s.cfg.Root,
		extension:      s.cfg.Extension,
		include:        s.cfg.Include,
		exclude:        s.cfg.Exclude,
		followSymlinks: s.cfg.FollowSymlinks,
	}
}

func (s *Service) checkRoot() error {
	info, err := s.fs.Stat(s.cfg.Root)
	if err != nil {
		return newFileError("stat", s.cfg.Root, err)
	}
	if !info.IsDir() {
		return newFileError("list", s.cfg.Root, ErrNotDirectory)
	}
	return nil
}

// processFile returns the number of rewritten fields. Unchanged files are
// never written.
func (s *Service) processFile(path string) (int, error) {
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return 0, newFileError("read", path, err)
	}
	content := string(data)
	out, fields := s.pattern.Normalize(content)
	if out == content {
		return 0, nil
	}
	if s.cfg.DryRun {
		fmt.Fprintf(s.out, "Would fix: %s\n", path)
		return fields, nil
	}
	info, err := s.fs.Stat(path)
	if err != nil {
		return 0, newFileError("stat", path, err)
	}
	if err := afero.WriteFile(s.fs, path, []byte(out), info.Mode().Perm()); err != nil {
		return 0, newFileError("write", path, err)
	}
	fmt.Fprintf(s.out, "Fixed: %s\n", path)
	return fields, nil
}

// ResolveRoot returns the root the service should walk. A relative root is
// anchored at the executable's directory when RootRelativeToBinary is set.
func ResolveRoot(cfg *config.NormalizeConfig) (string, error) {
	if !cfg.RootRelativeToBinary || filepath.IsAbs(cfg.Root) {
		return cfg.Root, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Join(filepath.Dir(exe), cfg.Root), nil
}
