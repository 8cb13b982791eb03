package normalize

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_Watch(t *testing.T) {
	t.Run("Should reject filesystems it cannot observe", func(t *testing.T) {
		svc := newTestService(t, afero.NewMemMapFs(), testConfig("content"), io.Discard, io.Discard)
		assert.ErrorIs(t, svc.Watch(testContext()), ErrWatchUnsupported)
	})

	t.Run("Should fix files written after startup", func(t *testing.T) {
		root := t.TempDir()
		initial := filepath.Join(root, "initial.md")
		require.NoError(t, os.WriteFile(initial, []byte(multiLine), 0o644))
		svc, err := NewService(
			afero.NewOsFs(),
			testConfig(root),
			WithOutput(io.Discard),
			WithErrorOutput(io.Discard),
			WithDebounce(20*time.Millisecond, 200*time.Millisecond),
		)
		require.NoError(t, err)
		ctx, cancel := context.WithCancel(testContext())
		done := make(chan error, 1)
		go func() {
			done <- svc.Watch(ctx)
		}()

		fileContent := func(path string) func() bool {
			return func() bool {
				data, err := os.ReadFile(path)
				return err == nil && string(data) == fixedLine
			}
		}
		require.Eventually(t, fileContent(initial), 5*time.Second, 20*time.Millisecond)
		// the watcher is registered right after the initial pass
		time.Sleep(200 * time.Millisecond)

		nested := filepath.Join(root, "section")
		require.NoError(t, os.MkdirAll(nested, 0o755))
		later := filepath.Join(nested, "later.md")
		require.NoError(t, os.WriteFile(later, []byte(multiLine), 0o644))
		require.Eventually(t, fileContent(later), 5*time.Second, 20*time.Millisecond)

		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("watch did not stop after cancellation")
		}
	})
}
