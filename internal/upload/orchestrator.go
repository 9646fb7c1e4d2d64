package upload

import (
	"context"
	"fmt"
	"path"

	"github.com/cmsdeploy/uploader/internal/remote"
	"github.com/cmsdeploy/uploader/internal/report"
	"github.com/cmsdeploy/uploader/pkg/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type OrchestratorOption func(o *Orchestrator)

// WithConcurrency caps in-flight uploads. Zero or less dispatches every job at once.
func WithConcurrency(limit int) OrchestratorOption {
	return func(o *Orchestrator) {
		o.limit = limit
	}
}

// Orchestrator uploads jobs concurrently and collects one Outcome per job.
// A failing job never cancels its siblings and nothing is retried.
type Orchestrator struct {
	uploaders map[Channel]Uploader
	destRoots map[Channel]string
	sink      report.Sink
	limit     int
}

func NewOrchestrator(routing RoutingConfig, primary, assets Uploader, sink report.Sink, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		uploaders: map[Channel]Uploader{
			ChannelPrimary:      primary,
			ChannelAssetManager: assets,
		},
		destRoots: map[Channel]string{
			ChannelPrimary:      routing.PrimaryDestRoot,
			ChannelAssetManager: routing.AssetDestRoot,
		},
		sink: report.Safe(sink),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Destination is the remote path of job.
func (o *Orchestrator) Destination(job Job) string {
	return path.Join(normalizePath(o.destRoots[job.Channel]), job.RelativePath)
}

// Backend names the remote service behind channel, or "" when its uploader
// does not tell.
func (o *Orchestrator) Backend(channel Channel) string {
	if typed, ok := o.uploaders[channel].(interface{ Type() string }); ok {
		return typed.Type()
	}
	return ""
}

// Run returns once every job settled. Outcomes are in the order of jobs.
func (o *Orchestrator) Run(ctx context.Context, accountID int, jobs []Job) []Outcome {
	outcomes := make([]Outcome, len(jobs))

	var g errgroup.Group
	if o.limit > 0 {
		g.SetLimit(o.limit)
	}
	for i, job := range jobs {
		g.Go(func() error {
			outcomes[i] = o.upload(ctx, accountID, job)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

func (o *Orchestrator) upload(ctx context.Context, accountID int, job Job) (outcome Outcome) {
	dest := o.Destination(job)
	outcome = Outcome{Job: job, Destination: dest}
	logger := zap.S().Named("orchestrator").With("channel", job.Channel, "backend", o.Backend(job.Channel), "destination", dest)

	defer func() {
		metrics.IncreaseUploadsTotalMetric(string(job.Channel), string(outcome.Status))
	}()

	uploader := o.uploaders[job.Channel]
	if uploader == nil {
		outcome.Err = fmt.Errorf("no uploader configured for channel %s", job.Channel)
	} else {
		outcome.Err = uploader.Upload(ctx, accountID, job.AbsolutePath, dest)
	}

	switch {
	case outcome.Err == nil:
		outcome.Status = StatusSuccess
		if job.Channel == ChannelAssetManager {
			o.sink.Success(fmt.Sprintf("Successfully uploaded %s to file manager for account %d.", dest, accountID))
		} else {
			o.sink.Success(fmt.Sprintf("Successfully uploaded %s to account %d.", dest, accountID))
		}
		logger.Debugw("uploaded", "source", job.AbsolutePath)
	case job.Channel == ChannelPrimary && remote.IsUnknownFileType(outcome.Err):
		outcome.Status = StatusSkippedUnsupportedType
		o.sink.Info(fmt.Sprintf("Skipping %s as it is not a supported file type.", dest))
		logger.Debugw("skipped unsupported file type", "source", job.AbsolutePath)
	default:
		outcome.Status = StatusFailed
		o.sink.Error(fmt.Sprintf("Failed to upload %s to account %d. Reason: %s", dest, accountID, outcome.Err))
		logger.Debugw("upload failed", "source", job.AbsolutePath, "error", outcome.Err)
	}
	return outcome
}
