package fileio

import (
	"fmt"
	"os"
	"path/filepath"
)

// Writer is a struct for writing generated files next to the sources
type Writer struct {
	// rootDir is prepended to every path, useful for testing
	rootDir string
}

// NewWriter creates a new writer
func NewWriter() *Writer {
	return &Writer{}
}

// SetRootdir sets the root directory for the writer, useful for testing
func (w *Writer) SetRootdir(path string) {
	w.rootDir = path
}

// PathFor returns the full path for the provided file
func (w *Writer) PathFor(filePath string) string {
	if w.rootDir == "" {
		return filePath
	}
	return filepath.Join(w.rootDir, filePath)
}

// WriteFile writes the file at the provided path, creating missing parent
// directories first. An existing file is truncated.
func (w *Writer) WriteFile(filePath string, data []byte) error {
	full := w.PathFor(filePath)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(full), err)
	}
	return os.WriteFile(full, data, 0o644)
}
