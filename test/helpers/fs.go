package helpers

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// Op names a filesystem call FaultFs can fail.
type Op string

const (
	OpOpen   Op = "open"
	OpWrite  Op = "write"
	OpRemove Op = "remove"
	OpStat   Op = "stat"
)

// FaultFs wraps an afero.Fs and returns injected errors for chosen
// operation and path pairs. It also counts write opens per path.
type FaultFs struct {
	afero.Fs
	mu     sync.Mutex
	faults map[Op]map[string]*fault
	writes map[string]int
}

// fault is an injected error; remaining < 0 means it never clears.
type fault struct {
	err       error
	remaining int
}

func NewFaultFs(base afero.Fs) *FaultFs {
	return &FaultFs{
		Fs:     base,
		faults: make(map[Op]map[string]*fault),
		writes: make(map[string]int),
	}
}

// Fail makes every op call on path return err.
func (f *FaultFs) Fail(op Op, path string, err error) {
	f.FailTimes(op, path, err, -1)
}

// FailTimes makes the next n op calls on path return err.
func (f *FaultFs) FailTimes(op Op, path string, err error, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.faults[op] == nil {
		f.faults[op] = make(map[string]*fault)
	}
	f.faults[op][filepath.Clean(path)] = &fault{err: err, remaining: n}
}

// Writes reports how many times path was opened for writing.
func (f *FaultFs) Writes(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes[filepath.Clean(path)]
}

func (f *FaultFs) fault(op Op, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	injected, ok := f.faults[op][filepath.Clean(name)]
	if !ok || injected.remaining == 0 {
		return nil
	}
	if injected.remaining > 0 {
		injected.remaining--
	}
	return &os.PathError{Op: string(op), Path: name, Err: injected.err}
}

func (f *FaultFs) Open(name string) (afero.File, error) {
	if err := f.fault(OpOpen, name); err != nil {
		return nil, err
	}
	return f.Fs.Open(name)
}

func (f *FaultFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if flag&(os.O_WRONLY|os.O_RDWR) != 0 {
		if err := f.fault(OpWrite, name); err != nil {
			return nil, err
		}
		f.mu.Lock()
		f.writes[filepath.Clean(name)]++
		f.mu.Unlock()
	} else if err := f.fault(OpOpen, name); err != nil {
		return nil, err
	}
	return f.Fs.OpenFile(name, flag, perm)
}

func (f *FaultFs) Remove(name string) error {
	if err := f.fault(OpRemove, name); err != nil {
		return err
	}
	return f.Fs.Remove(name)
}

func (f *FaultFs) Stat(name string) (os.FileInfo, error) {
	if err := f.fault(OpStat, name); err != nil {
		return nil, err
	}
	return f.Fs.Stat(name)
}

// WriteTree creates files from a path to content map, making parent
// directories as needed. Entries whose path ends in "/" become directories.
func WriteTree(t *testing.T, fs afero.Fs, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if rel[len(rel)-1] == '/' {
			require.NoError(t, fs.MkdirAll(path, 0o755))
			continue
		}
		require.NoError(t, fs.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	}
}

// ReadFile returns the content of path or fails the test.
func ReadFile(t *testing.T, fs afero.Fs, path string) string {
	t.Helper()
	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	return string(data)
}
