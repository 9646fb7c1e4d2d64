package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/cmsdeploy/uploader/internal/account"
	"github.com/cmsdeploy/uploader/internal/config"
	"github.com/cmsdeploy/uploader/internal/fields"
	"github.com/cmsdeploy/uploader/internal/remote"
	"github.com/cmsdeploy/uploader/internal/upload"
	"github.com/cmsdeploy/uploader/pkg/metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/thoas/go-funk"
	"go.uber.org/zap"
)

var (
	legalLayouts       = []string{string(fields.LayoutColocated), string(fields.LayoutRoot)}
	legalAssetBackends = []string{config.AssetBackendFileManager, config.AssetBackendS3}
)

type UploadOptions struct {
	GlobalOptions

	Src             string
	Dest            string
	Account         string
	AssetsSrc       string
	AssetsDest      string
	Exclude         []string
	DefinitionFiles []string
	Layout          string
	Concurrency     int
	AssetBackend    string
	MetricsFile     string

	cfg *config.Config
}

func DefaultUploadOptions() *UploadOptions {
	o := &UploadOptions{
		GlobalOptions:   DefaultGlobalOptions(),
		DefinitionFiles: fields.DefaultDefinitionNames,
		Layout:          string(fields.LayoutColocated),
		AssetBackend:    config.AssetBackendFileManager,
	}
	if cfg, err := config.New(); err == nil {
		o.Concurrency = cfg.Concurrency
		o.AssetBackend = cfg.AssetBackend
		o.MetricsFile = cfg.MetricsFile
		o.cfg = cfg
	}
	return o
}

func NewCmdUpload() *cobra.Command {
	o := DefaultUploadOptions()
	cmd := &cobra.Command{
		Use:          "upload",
		Short:        "Upload a local directory to an account",
		Example:      "upload --src dist --dest my-theme --account prod --assets-src assets --assets-dest my-theme-assets",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.Validate(args); err != nil {
				return err
			}
			return o.Run(cmd.Context(), args)
		},
	}
	o.Bind(cmd.Flags())

	if err := markRequired(cmd, "src", "dest"); err != nil {
		panic(err)
	}

	return cmd
}

func markRequired(cmd *cobra.Command, requiredFlags ...string) error {
	for _, flag := range requiredFlags {
		if err := cmd.MarkFlagRequired(flag); err != nil {
			return err
		}
	}

	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if funk.ContainsString(requiredFlags, f.Name) {
			f.Usage = fmt.Sprintf("%s (required)", f.Usage)
		}
	})

	return nil
}

func (o *UploadOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.StringVarP(&o.Src, "src", "s", o.Src, "Local directory to upload")
	fs.StringVarP(&o.Dest, "dest", "d", o.Dest, "Destination path in the design manager")
	fs.StringVarP(&o.Account, "account", "a", o.Account, "Account name or id, defaults to the default account of the config file")
	fs.StringVar(&o.AssetsSrc, "assets-src", o.AssetsSrc, "Files whose path contains this value go to the file manager")
	fs.StringVar(&o.AssetsDest, "assets-dest", o.AssetsDest, "Destination folder in the file manager")
	fs.StringSliceVarP(&o.Exclude, "exclude", "e", o.Exclude, "Exclude pattern: '.ext' matches a suffix, a glob matches with **, anything else a substring")
	fs.StringSliceVar(&o.DefinitionFiles, "definition-file", o.DefinitionFiles, "Base name of a field definition file")
	fs.StringVar(&o.Layout, "layout", o.Layout, fmt.Sprintf("Where converted definitions are written. One of: (%s).", strings.Join(legalLayouts, ", ")))
	fs.IntVar(&o.Concurrency, "concurrency", o.Concurrency, "Maximum uploads in flight, 0 for no limit")
	fs.StringVar(&o.AssetBackend, "asset-backend", o.AssetBackend, fmt.Sprintf("Asset upload backend. One of: (%s).", strings.Join(legalAssetBackends, ", ")))
	fs.StringVar(&o.MetricsFile, "metrics-file", o.MetricsFile, "Write run metrics in Prometheus text format to this file")
}

func (o *UploadOptions) Complete(cmd *cobra.Command, args []string) error {
	if err := o.GlobalOptions.Complete(cmd, args); err != nil {
		return err
	}
	return nil
}

func (o *UploadOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}

	if !funk.ContainsString(legalLayouts, o.Layout) {
		return fmt.Errorf("layout must be one of %s", strings.Join(legalLayouts, ", "))
	}
	if !funk.ContainsString(legalAssetBackends, o.AssetBackend) {
		return fmt.Errorf("asset backend must be one of %s", strings.Join(legalAssetBackends, ", "))
	}
	if o.AssetsSrc != "" && o.AssetsDest == "" {
		return fmt.Errorf("--assets-dest is required with --assets-src")
	}

	cfg := config.Config{}
	if o.cfg != nil {
		cfg = *o.cfg
	}
	cfg.Log.Format = o.LogFormat
	cfg.Concurrency = o.Concurrency
	cfg.AssetBackend = o.AssetBackend
	if err := cfg.Validate(); err != nil {
		return err
	}

	return nil
}

func (o *UploadOptions) Run(ctx context.Context, args []string) error {
	resolver, tokens, err := o.Resolver()
	if err != nil {
		return fmt.Errorf("loading account config: %w", err)
	}

	client := o.Client(tokens)
	assets, err := o.assetUploader(client)
	if err != nil {
		return fmt.Errorf("creating asset uploader: %w", err)
	}

	sink := o.Sink()
	runner := upload.NewRunner(resolver, remote.NewContentUploader(client), assets,
		upload.WithSink(sink),
		upload.WithUploadConcurrency(o.Concurrency),
	)

	opts := upload.Options{
		Src:             o.Src,
		Dest:            o.Dest,
		Account:         o.Account,
		Exclude:         o.Exclude,
		ConfigPath:      o.ConfigPath,
		DefinitionNames: o.DefinitionFiles,
		Layout:          fields.Layout(o.Layout),
	}
	if cfg, ok := resolver.(*account.Config); ok {
		opts.ConfigPath = cfg.Path()
	}
	if o.AssetsSrc != "" {
		opts.Assets = &upload.Assets{Src: o.AssetsSrc, Dest: o.AssetsDest}
	}

	summary, err := runner.Run(ctx, opts)
	if err != nil {
		return err
	}
	sink.Log(summary.String())

	if o.MetricsFile != "" {
		if err := metrics.WriteToTextfile(o.MetricsFile); err != nil {
			zap.S().Named("cli").Errorw("failed to write metrics", "file", o.MetricsFile, "error", err)
		}
	}
	return nil
}

func (o *UploadOptions) assetUploader(client *remote.Client) (upload.Uploader, error) {
	if o.AssetBackend != config.AssetBackendS3 {
		return remote.NewFileManagerUploader(client), nil
	}
	s3 := o.cfg.ObjectStore
	return remote.NewObjectStoreUploader(
		remote.WithEndpoint(s3.Endpoint),
		remote.WithBucket(s3.Bucket),
		remote.WithAccessKey(s3.AccessKey),
		remote.WithSecretKey(s3.SecretKey),
		remote.WithRegion(s3.Region),
		remote.WithSSL(s3.UseSSL),
	)
}
