package purge

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/compozy/docsweep/pkg/config"
	"github.com/compozy/docsweep/pkg/logger"
	"github.com/compozy/docsweep/test/helpers"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(dir string) *config.PurgeConfig {
	cfg := config.Default().Purge
	cfg.Dir = dir
	return &cfg
}

func testContext() context.Context {
	return logger.ContextWithLogger(context.Background(), logger.NewForTests())
}

func exists(t *testing.T, fs afero.Fs, path string) bool {
	t.Helper()
	ok, err := afero.Exists(fs, path)
	require.NoError(t, err)
	return ok
}

func TestService_Run(t *testing.T) {
	t.Run("Should delete matching files and keep everything else", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		helpers.WriteTree(t, fs, "site", map[string]string{
			"a.mdx":        "a",
			"b.mdx":        "b",
			"c.txt":        "c",
			"d.mdx/":       "",
			"e.MDX":        "e",
			"nested/f.mdx": "f",
		})
		var out, errOut bytes.Buffer
		svc := NewService(fs, testConfig("site"), WithOutput(&out), WithErrorOutput(&errOut))

		report, err := svc.Run(testContext())
		require.NoError(t, err)

		assert.False(t, exists(t, fs, "site/a.mdx"))
		assert.False(t, exists(t, fs, "site/b.mdx"))
		assert.True(t, exists(t, fs, "site/c.txt"))
		assert.True(t, exists(t, fs, "site/d.mdx"))
		assert.True(t, exists(t, fs, "site/e.MDX"))
		assert.True(t, exists(t, fs, "site/nested/f.mdx"))
		assert.Equal(t, 6, report.Listed)
		assert.Equal(t, 2, report.Matched)
		assert.ElementsMatch(t, []string{"a.mdx", "b.mdx"}, report.Deleted)
		assert.Contains(t, out.String(), "Deleted: a.mdx\n")
		assert.Contains(t, out.String(), "Deleted: b.mdx\n")
		assert.Empty(t, errOut.String())
	})

	t.Run("Should keep a dotfile named after the extension", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		helpers.WriteTree(t, fs, "site", map[string]string{
			".mdx":  "dotfile",
			"a.mdx": "a",
		})
		var out bytes.Buffer
		svc := NewService(fs, testConfig("site"), WithOutput(&out), WithErrorOutput(io.Discard))

		report, err := svc.Run(testContext())
		require.NoError(t, err)

		assert.True(t, exists(t, fs, "site/.mdx"))
		assert.False(t, exists(t, fs, "site/a.mdx"))
		assert.Equal(t, 2, report.Listed)
		assert.Equal(t, 1, report.Matched)
		assert.Equal(t, []string{"a.mdx"}, report.Deleted)
		assert.NotContains(t, out.String(), "Deleted: .mdx\n")
	})

	t.Run("Should do nothing in an empty directory", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, fs.MkdirAll("site", 0o755))
		var out, errOut bytes.Buffer
		svc := NewService(fs, testConfig("site"), WithOutput(&out), WithErrorOutput(&errOut))

		report, err := svc.Run(testContext())
		require.NoError(t, err)

		assert.Zero(t, report.Listed)
		assert.Empty(t, out.String())
		assert.Empty(t, errOut.String())
	})

	t.Run("Should keep deleting after one entry fails", func(t *testing.T) {
		base := afero.NewMemMapFs()
		helpers.WriteTree(t, base, "site", map[string]string{
			"a.mdx": "a",
			"b.mdx": "b",
			"c.mdx": "c",
		})
		fs := helpers.NewFaultFs(base)
		fs.Fail(helpers.OpRemove, "site/b.mdx", syscall.EACCES)
		var out, errOut bytes.Buffer
		svc := NewService(fs, testConfig("site"), WithOutput(&out), WithErrorOutput(&errOut))

		report, err := svc.Run(testContext())
		require.NoError(t, err)

		assert.False(t, exists(t, base, "site/a.mdx"))
		assert.True(t, exists(t, base, "site/b.mdx"))
		assert.False(t, exists(t, base, "site/c.mdx"))
		assert.Equal(t, []string{"b.mdx"}, report.FailedNames())
		assert.ErrorIs(t, report.Failed["b.mdx"], syscall.EACCES)
		assert.Contains(t, errOut.String(), "Error deleting b.mdx: ")
		assert.NotContains(t, out.String(), "b.mdx")
	})

	t.Run("Should retry transient deletion failures", func(t *testing.T) {
		base := afero.NewMemMapFs()
		helpers.WriteTree(t, base, "site", map[string]string{"a.mdx": "a"})
		fs := helpers.NewFaultFs(base)
		fs.FailTimes(helpers.OpRemove, "site/a.mdx", syscall.EBUSY, 2)
		cfg := testConfig("site")
		cfg.Retries = 2
		cfg.RetryBackoff = time.Millisecond
		var errOut bytes.Buffer
		svc := NewService(fs, cfg, WithOutput(io.Discard), WithErrorOutput(&errOut))

		report, err := svc.Run(testContext())
		require.NoError(t, err)

		assert.Equal(t, []string{"a.mdx"}, report.Deleted)
		assert.False(t, exists(t, base, "site/a.mdx"))
		assert.Empty(t, errOut.String())
	})

	t.Run("Should give up on transient failures without retries", func(t *testing.T) {
		base := afero.NewMemMapFs()
		helpers.WriteTree(t, base, "site", map[string]string{"a.mdx": "a"})
		fs := helpers.NewFaultFs(base)
		fs.FailTimes(helpers.OpRemove, "site/a.mdx", syscall.EBUSY, 1)
		svc := NewService(fs, testConfig("site"), WithOutput(io.Discard), WithErrorOutput(io.Discard))

		report, err := svc.Run(testContext())
		require.NoError(t, err)

		assert.ErrorIs(t, report.Failed["a.mdx"], syscall.EBUSY)
		assert.True(t, exists(t, base, "site/a.mdx"))
	})

	t.Run("Should not retry permission errors", func(t *testing.T) {
		base := afero.NewMemMapFs()
		helpers.WriteTree(t, base, "site", map[string]string{"a.mdx": "a"})
		fs := helpers.NewFaultFs(base)
		fs.FailTimes(helpers.OpRemove, "site/a.mdx", syscall.EACCES, 1)
		cfg := testConfig("site")
		cfg.Retries = 3
		cfg.RetryBackoff = time.Millisecond
		svc := NewService(fs, cfg, WithOutput(io.Discard), WithErrorOutput(io.Discard))

		report, err := svc.Run(testContext())
		require.NoError(t, err)

		assert.ErrorIs(t, report.Failed["a.mdx"], syscall.EACCES)
		assert.True(t, exists(t, base, "site/a.mdx"))
	})

	t.Run("Should fail on partial purge when configured", func(t *testing.T) {
		base := afero.NewMemMapFs()
		helpers.WriteTree(t, base, "site", map[string]string{"a.mdx": "a", "b.mdx": "b"})
		fs := helpers.NewFaultFs(base)
		fs.Fail(helpers.OpRemove, "site/a.mdx", syscall.EACCES)
		cfg := testConfig("site")
		cfg.FailOnError = true
		svc := NewService(fs, cfg, WithOutput(io.Discard), WithErrorOutput(io.Discard))

		report, err := svc.Run(testContext())
		assert.ErrorIs(t, err, ErrPartialPurge)
		assert.ErrorContains(t, err, "1 of 2")
		assert.Equal(t, []string{"b.mdx"}, report.Deleted)
	})

	t.Run("Should report a listing failure without deleting", func(t *testing.T) {
		var out, errOut bytes.Buffer
		svc := NewService(afero.NewMemMapFs(), testConfig("missing"), WithOutput(&out), WithErrorOutput(&errOut))

		report, err := svc.Run(testContext())
		assert.Nil(t, report)
		var listErr *ListError
		require.True(t, errors.As(err, &listErr))
		assert.Equal(t, "missing", listErr.Dir)
		assert.ErrorIs(t, err, os.ErrNotExist)
		assert.Empty(t, out.String())
	})

	t.Run("Should only report in dry-run mode", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		helpers.WriteTree(t, fs, "site", map[string]string{"a.mdx": "a"})
		cfg := testConfig("site")
		cfg.DryRun = true
		var out bytes.Buffer
		svc := NewService(fs, cfg, WithOutput(&out), WithErrorOutput(io.Discard))

		_, err := svc.Run(testContext())
		require.NoError(t, err)

		assert.True(t, exists(t, fs, "site/a.mdx"))
		assert.Equal(t, "Would delete: a.mdx\n", out.String())
	})

	t.Run("Should process entries in listing order with one worker", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		helpers.WriteTree(t, fs, "site", map[string]string{"c.mdx": "", "a.mdx": "", "b.mdx": ""})
		cfg := testConfig("site")
		cfg.Workers = 1
		var out bytes.Buffer
		svc := NewService(fs, cfg, WithOutput(&out), WithErrorOutput(io.Discard))

		_, err := svc.Run(testContext())
		require.NoError(t, err)
		assert.Equal(t, "Deleted: a.mdx\nDeleted: b.mdx\nDeleted: c.mdx\n", out.String())
	})

	t.Run("Should use the configured extension", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		helpers.WriteTree(t, fs, "site", map[string]string{"a.bak": "", "a.mdx": ""})
		cfg := testConfig("site")
		cfg.Extension = ".bak"
		svc := NewService(fs, cfg, WithOutput(io.Discard), WithErrorOutput(io.Discard))

		_, err := svc.Run(testContext())
		require.NoError(t, err)
		assert.False(t, exists(t, fs, "site/a.bak"))
		assert.True(t, exists(t, fs, "site/a.mdx"))
	})

	t.Run("Should not dispatch deletions after cancellation", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		helpers.WriteTree(t, fs, "site", map[string]string{"a.mdx": ""})
		svc := NewService(fs, testConfig("site"), WithOutput(io.Discard), WithErrorOutput(io.Discard))
		ctx, cancel := context.WithCancel(testContext())
		cancel()

		_, err := svc.Run(ctx)
		assert.ErrorIs(t, err, context.Canceled)
		assert.True(t, exists(t, fs, "site/a.mdx"))
	})

	t.Run("Should not follow a link to a directory", func(t *testing.T) {
		dir := t.TempDir()
		target := t.TempDir()
		require.NoError(t, os.Symlink(target, filepath.Join(dir, "linked.mdx")))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "page.mdx"), nil, 0o644))
		svc := NewService(afero.NewOsFs(), testConfig(dir), WithOutput(io.Discard), WithErrorOutput(io.Discard))

		report, err := svc.Run(testContext())
		require.NoError(t, err)
		assert.Equal(t, []string{"page.mdx"}, report.Deleted)
		_, err = os.Lstat(filepath.Join(dir, "linked.mdx"))
		assert.NoError(t, err)
	})
}
