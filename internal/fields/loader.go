package fields

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var ErrNoLoader = errors.New("no loader registered")

// Definition is the callable exported by a definition unit.
type Definition func(renderContext map[string]any) (Group, error)

// Loader turns a definition unit on disk into its callable.
type Loader interface {
	Load(path string) (Definition, error)
}

type LoaderFunc func(path string) (Definition, error)

func (f LoaderFunc) Load(path string) (Definition, error) {
	return f(path)
}

// Registry picks a loader by file extension.
type Registry struct {
	loaders map[string]Loader
}

func NewRegistry() *Registry {
	return &Registry{loaders: map[string]Loader{}}
}

// DefaultRegistry knows about script units (.js, .cjs, .mjs) and static documents
// (.json, .yaml, .yml).
func DefaultRegistry() *Registry {
	script := NewScriptLoader()
	document := NewDocumentLoader()
	return NewRegistry().
		Register(".js", script).
		Register(".cjs", script).
		Register(".mjs", script).
		Register(".json", document).
		Register(".yaml", document).
		Register(".yml", document)
}

func (r *Registry) Register(ext string, l Loader) *Registry {
	r.loaders[strings.ToLower(ext)] = l
	return r
}

func (r *Registry) Load(path string) (Definition, error) {
	ext := strings.ToLower(filepath.Ext(path))
	l, ok := r.loaders[ext]
	if !ok {
		return nil, fmt.Errorf("%w for %q files", ErrNoLoader, ext)
	}
	return l.Load(path)
}
