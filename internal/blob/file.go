package blob

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrNotExist is returned by Read when the backing store holds no data yet.
var ErrNotExist = fs.ErrNotExist

// File is a Handle backed by a single local file.
//
// Writes go through a temp file in the same directory followed by a rename,
// so a crash or write error mid-way never leaves a truncated document behind.
// Final permissions are 0600: the schedule is the user's private data.
type File struct {
	path string
}

// NewFile returns a file-backed handle at path, creating the parent
// directory if needed.
func NewFile(path string) (*File, error) {
	if path == "" {
		return nil, errors.New("blob: file path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	return &File{path: path}, nil
}

// Path returns the backing file path.
func (f *File) Path() string { return f.path }

// Read returns the full file contents, or ErrNotExist on first run.
func (f *File) Read(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotExist
		}
		return nil, err
	}
	return data, nil
}

// Write atomically replaces the file contents: temp file, sync, chmod,
// rename.
func (f *File) Write(_ context.Context, data []byte) error {
	dir := filepath.Dir(f.path)

	tmp, err := os.CreateTemp(dir, ".teamcal-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, f.path)
}
