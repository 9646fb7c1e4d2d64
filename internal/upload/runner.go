package upload

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/cmsdeploy/uploader/internal/account"
	"github.com/cmsdeploy/uploader/internal/fields"
	"github.com/cmsdeploy/uploader/internal/fileio"
	"github.com/cmsdeploy/uploader/internal/report"
	"github.com/cmsdeploy/uploader/pkg/requestid"
	"go.uber.org/zap"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
)

// Assets routes part of the tree to the asset manager.
type Assets struct {
	Src  string
	Dest string
}

// Options are immutable for the duration of a run.
type Options struct {
	Src     string
	Dest    string
	Account string
	Assets  *Assets
	Exclude []string
	// ConfigPath only names the account config in error messages.
	ConfigPath string
	// DefinitionNames are the reserved base names of definition units.
	DefinitionNames []string
	Layout          fields.Layout
}

func (o Options) Validate() error {
	var errs []error
	if o.Src == "" {
		errs = append(errs, errors.New("source directory is required"))
	}
	if o.Dest == "" {
		errs = append(errs, errors.New("destination path is required"))
	}
	if o.Assets != nil && o.Assets.Src != "" && o.Assets.Dest == "" {
		errs = append(errs, errors.New("asset destination is required when an asset source is set"))
	}
	switch o.Layout {
	case "", fields.LayoutColocated, fields.LayoutRoot:
	default:
		errs = append(errs, fmt.Errorf("unknown artifact layout %q", o.Layout))
	}
	return utilerrors.NewAggregate(errs)
}

func (o Options) configPath() string {
	if o.ConfigPath == "" {
		return account.DefaultConfigFile
	}
	return o.ConfigPath
}

func (o Options) routing(srcDir string) RoutingConfig {
	cfg := RoutingConfig{
		SourceRoot:      srcDir,
		PrimaryDestRoot: o.Dest,
		ExcludePatterns: o.Exclude,
	}
	if o.Assets != nil {
		cfg.AssetSourceRoot = o.Assets.Src
		cfg.AssetDestRoot = o.Assets.Dest
	}
	return cfg
}

// Summary describes a completed run. Per-file failures are recorded here and in
// the sink, never returned as errors.
type Summary struct {
	RunID       string
	AccountID   int
	Outcomes    []Outcome
	Definitions []fields.Result
}

func (s *Summary) Count(status Status) int {
	n := 0
	for _, o := range s.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

func (s *Summary) DefinitionsFailed() int {
	n := 0
	for _, d := range s.Definitions {
		if d.State == fields.StateFailed {
			n++
		}
	}
	return n
}

func (s *Summary) String() string {
	return fmt.Sprintf("Uploaded %d file(s), skipped %d, failed %d. Converted %d of %d definition file(s).",
		s.Count(StatusSuccess), s.Count(StatusSkippedUnsupportedType), s.Count(StatusFailed),
		len(s.Definitions)-s.DefinitionsFailed(), len(s.Definitions))
}

type RunnerOption func(r *Runner)

func WithWalker(w Walker) RunnerOption {
	return func(r *Runner) {
		r.walker = w
	}
}

func WithLoader(l fields.Loader) RunnerOption {
	return func(r *Runner) {
		r.loader = l
	}
}

func WithSink(s report.Sink) RunnerOption {
	return func(r *Runner) {
		r.sink = s
	}
}

func WithUploadConcurrency(limit int) RunnerOption {
	return func(r *Runner) {
		r.concurrency = limit
	}
}

// Runner sequences one whole run: resolve the account, walk, classify,
// transform definitions, then upload.
type Runner struct {
	resolver    AccountResolver
	primary     Uploader
	assets      Uploader
	walker      Walker
	loader      fields.Loader
	sink        report.Sink
	concurrency int
}

func NewRunner(resolver AccountResolver, primary, assets Uploader, opts ...RunnerOption) *Runner {
	r := &Runner{
		resolver: resolver,
		primary:  primary,
		assets:   assets,
		walker:   fileio.NewReader(),
		loader:   fields.DefaultRegistry(),
		sink:     report.Discard,
	}
	for _, o := range opts {
		o(r)
	}
	r.sink = report.Safe(r.sink)
	return r
}

// Run fails only when the account cannot be resolved or the source root is
// not a directory. Both are checked before anything is uploaded.
func (r *Runner) Run(ctx context.Context, opts Options) (*Summary, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	accountID, ok := r.resolver.ResolveAccountID(opts.Account)
	if !ok {
		return nil, &AccountNotFoundError{Account: opts.Account, ConfigPath: opts.configPath()}
	}

	srcDir, err := filepath.Abs(opts.Src)
	if err != nil {
		return nil, err
	}

	summary := &Summary{RunID: requestid.Generate(), AccountID: accountID}
	ctx = requestid.WithRunID(ctx, summary.RunID)
	logger := zap.S().Named("runner").With("run_id", summary.RunID, "account", accountID)

	r.sink.Log(fmt.Sprintf("\nUploading files from %s to account %d.", srcDir, accountID))
	r.sink.Info(fmt.Sprintf("Scanning %s for files to upload.", srcDir))

	files, err := r.walker.Walk(srcDir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		r.sink.Warn(fmt.Sprintf("No files found in %s", srcDir))
		return summary, nil
	}

	names := opts.DefinitionNames
	if len(names) == 0 {
		names = fields.DefaultDefinitionNames
	}
	classifier := NewClassifier(opts.routing(srcDir), fields.ReservedNames(names...))

	seen := make(map[string]bool, len(files))
	jobs := make([]Job, 0, len(files))
	units := []string{}
	for _, f := range files {
		seen[f] = true
		c := classifier.Classify(f)
		if c.Excluded {
			continue
		}
		jobs = append(jobs, c.Job(f))
		if c.Transformable {
			units = append(units, f)
		}
	}
	logger.Infow("files classified", "files", len(files), "jobs", len(jobs), "definitions", len(units))

	if len(units) > 0 {
		layout := opts.Layout
		if layout == "" {
			layout = fields.LayoutColocated
		}
		transformer := fields.NewTransformer(r.sink, fields.WithLoader(r.loader), fields.WithLayout(layout))

		// every transformation settles before the first upload starts
		summary.Definitions = transformer.TransformAll(ctx, units, srcDir)

		for _, res := range summary.Definitions {
			if res.State != fields.StateWritten || seen[res.Artifact] {
				continue
			}
			seen[res.Artifact] = true
			if c := classifier.Classify(res.Artifact); !c.Excluded {
				jobs = append(jobs, c.Job(res.Artifact))
			}
		}
	}

	orchestrator := NewOrchestrator(opts.routing(srcDir), r.primary, r.assets, r.sink, WithConcurrency(r.concurrency))
	summary.Outcomes = orchestrator.Run(ctx, accountID, jobs)

	logger.Infow("run completed",
		"success", summary.Count(StatusSuccess),
		"skipped", summary.Count(StatusSkippedUnsupportedType),
		"failed", summary.Count(StatusFailed))
	return summary, nil
}
