package fields

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cmsdeploy/uploader/internal/fileio"
	"github.com/cmsdeploy/uploader/internal/report"
	"github.com/cmsdeploy/uploader/pkg/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type State string

const (
	StateNone        State = "none"
	StateLoading     State = "loading"
	StateInvoking    State = "invoking"
	StateSerializing State = "serializing"
	StateWritten     State = "written"
	StateFailed      State = "failed"
)

// Layout decides where the artifact of a definition unit is written.
type Layout string

const (
	// LayoutColocated writes <dir of unit>/<unit name>.json.
	LayoutColocated Layout = "colocated"
	// LayoutRoot writes <scan root>/<unit name>.json.
	LayoutRoot Layout = "root"
)

// DefaultDefinitionNames are the reserved base names of definition units.
var DefaultDefinitionNames = []string{"fields.js", "fields.cjs", "fields.mjs"}

// Matcher tells whether a root-relative, slash separated path is a definition unit.
type Matcher func(relativePath string) bool

// ReservedNames matches paths whose base name is one of names.
func ReservedNames(names ...string) Matcher {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return func(relativePath string) bool {
		base := relativePath
		if i := strings.LastIndex(relativePath, "/"); i >= 0 {
			base = relativePath[i+1:]
		}
		return set[base]
	}
}

// Result is the terminal state of one transformation.
type Result struct {
	Source   string
	Artifact string
	State    State
	Err      error
}

type Option func(t *Transformer)

func WithLoader(l Loader) Option {
	return func(t *Transformer) {
		t.loader = l
	}
}

func WithLayout(layout Layout) Option {
	return func(t *Transformer) {
		t.layout = layout
	}
}

func WithWriter(w *fileio.Writer) Option {
	return func(t *Transformer) {
		t.writer = w
	}
}

type Transformer struct {
	loader Loader
	writer *fileio.Writer
	sink   report.Sink
	layout Layout
}

func NewTransformer(sink report.Sink, opts ...Option) *Transformer {
	t := &Transformer{
		loader: DefaultRegistry(),
		writer: fileio.NewWriter(),
		sink:   report.Safe(sink),
		layout: LayoutColocated,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// ArtifactPath returns where the manifest of the unit at absPath is written.
func (t *Transformer) ArtifactPath(absPath, rootDir string) string {
	base := filepath.Base(absPath)
	name := strings.TrimSuffix(base, filepath.Ext(base)) + ".json"
	if t.layout == LayoutRoot {
		return filepath.Join(rootDir, name)
	}
	return filepath.Join(filepath.Dir(absPath), name)
}

// Transform converts one definition unit. It never panics and never returns an
// error: failures end in StateFailed and are reported through the sink.
func (t *Transformer) Transform(absPath, rootDir string) (res Result) {
	res = Result{Source: absPath, Artifact: t.ArtifactPath(absPath, rootDir), State: StateNone}
	logger := zap.S().Named("fields")

	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("panic during %s: %v", res.State, r)
			res.State = StateFailed
		}
		metrics.IncreaseDefinitionsTotalMetric(string(terminal(res.State)))
		if res.State == StateFailed {
			t.sink.Error(fmt.Sprintf("Failed to convert %s: %v", absPath, res.Err))
			logger.Errorw("definition conversion failed", "source", absPath, "error", res.Err)
			return
		}
		logger.Debugw("definition converted", "source", absPath, "artifact", res.Artifact)
	}()

	fail := func(err error) Result {
		res.Err = err
		res.State = StateFailed
		return res
	}

	t.sink.Info(fmt.Sprintf("Found a fields JS file: %s.", absPath))

	if res.Artifact == absPath {
		return fail(errors.New("artifact would overwrite its own definition unit"))
	}

	res.State = StateLoading
	def, err := t.loader.Load(absPath)
	if err != nil {
		return fail(err)
	}

	res.State = StateInvoking
	group, err := def(map[string]any{})
	if err != nil {
		return fail(err)
	}

	res.State = StateSerializing
	values, err := Serialize(Flatten(group))
	if err != nil {
		return fail(err)
	}
	data, err := Encode(values)
	if err != nil {
		return fail(err)
	}

	if err := t.writer.WriteFile(res.Artifact, data); err != nil {
		return fail(err)
	}
	res.State = StateWritten
	return res
}

// TransformAll converts every unit concurrently and returns once all of them settled.
// Results are in the order of units. Units sharing an artifact run one after the
// other in that order, so the last of them wins deterministically.
func (t *Transformer) TransformAll(ctx context.Context, units []string, rootDir string) []Result {
	results := make([]Result, len(units))

	groups := map[string][]int{}
	var order []string
	for i, unit := range units {
		artifact := t.ArtifactPath(unit, rootDir)
		if _, ok := groups[artifact]; !ok {
			order = append(order, artifact)
		}
		groups[artifact] = append(groups[artifact], i)
	}

	g, _ := errgroup.WithContext(ctx)
	for _, artifact := range order {
		idx := groups[artifact]
		if len(idx) > 1 {
			t.sink.Warn(fmt.Sprintf("%d fields JS files write to %s, keeping the output of %s.",
				len(idx), artifact, units[idx[len(idx)-1]]))
		}
		g.Go(func() error {
			for _, i := range idx {
				results[i] = t.Transform(units[i], rootDir)
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func terminal(s State) State {
	if s == StateWritten {
		return s
	}
	return StateFailed
}
