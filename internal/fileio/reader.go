package fileio

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

var ErrDirectoryNotFound = errors.New("directory not found")

type DirectoryNotFoundError struct {
	error
	Path string
}

func NewDirectoryNotFoundError(path string, cause error) *DirectoryNotFoundError {
	err := fmt.Errorf("%w: %s", ErrDirectoryNotFound, path)
	if cause != nil {
		err = fmt.Errorf("%w: %s: %v", ErrDirectoryNotFound, path, cause)
	}
	return &DirectoryNotFoundError{error: err, Path: path}
}

func (e *DirectoryNotFoundError) Unwrap() error {
	return e.error
}

// Reader enumerates files of a directory tree.
type Reader struct{}

func NewReader() *Reader {
	return &Reader{}
}

// CheckDirExists fails with a DirectoryNotFoundError unless dir is an existing directory.
func (r *Reader) CheckDirExists(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return NewDirectoryNotFoundError(dir, err)
	}
	if !info.IsDir() {
		return NewDirectoryNotFoundError(dir, errors.New("not a directory"))
	}
	return nil
}

// Walk returns every regular file below root. Paths are joined onto root, so an
// absolute root yields absolute paths. Order follows the directory listing and
// must not be relied upon. Symlinks are followed only when they point to a
// regular file. Unreadable subdirectories are logged and skipped.
func (r *Reader) Walk(root string) ([]string, error) {
	if err := r.CheckDirExists(root); err != nil {
		return nil, err
	}

	files := []string{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return NewDirectoryNotFoundError(root, err)
			}
			zap.S().Named("walker").Warnw("skipping unreadable path", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		switch {
		case d.IsDir():
			return nil
		case d.Type().IsRegular():
			files = append(files, path)
		case d.Type()&fs.ModeSymlink != 0:
			if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
				files = append(files, path)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}
