package helpers

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const updateGoldenEnv = "UPDATE_GOLDEN"

// FindProjectRoot walks up from the working directory to the go.mod file.
func FindProjectRoot() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	projectRoot := wd
	for {
		if _, err := os.Stat(filepath.Join(projectRoot, "go.mod")); err == nil {
			return projectRoot, nil
		}
		parent := filepath.Dir(projectRoot)
		if parent == projectRoot {
			return "", fmt.Errorf("could not find project root (go.mod not found)")
		}
		projectRoot = parent
	}
}

func GoldenFilePath(t *testing.T, relPath string) string {
	t.Helper()
	root, err := FindProjectRoot()
	require.NoError(t, err)
	return filepath.Join(root, relPath)
}

func LoadGolden(t *testing.T, relPath string) []byte {
	t.Helper()
	content, err := os.ReadFile(GoldenFilePath(t, relPath))
	require.NoError(t, err)
	return content
}

func CompareWithGolden(t *testing.T, actual []byte, relPath string) {
	t.Helper()
	path := GoldenFilePath(t, relPath)
	if os.Getenv(updateGoldenEnv) == "1" {
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, actual, 0o600))
	}
	expected := LoadGolden(t, relPath)
	require.Equal(t, string(expected), string(actual))
}
