package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cmsdeploy/uploader/internal/fields"
	"github.com/cmsdeploy/uploader/internal/fileio"
	"github.com/cmsdeploy/uploader/internal/upload"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/thoas/go-funk"
)

type FieldsOptions struct {
	GlobalOptions

	Src             string
	Exclude         []string
	DefinitionFiles []string
	Layout          string
}

func DefaultFieldsOptions() *FieldsOptions {
	return &FieldsOptions{
		GlobalOptions:   DefaultGlobalOptions(),
		DefinitionFiles: fields.DefaultDefinitionNames,
		Layout:          string(fields.LayoutColocated),
	}
}

func NewCmdFields() *cobra.Command {
	o := DefaultFieldsOptions()
	cmd := &cobra.Command{
		Use:          "fields",
		Short:        "Convert field definition files to JSON without uploading",
		Example:      "fields --src dist --definition-file fields.js",
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

	if err := markRequired(cmd, "src"); err != nil {
		panic(err)
	}

	return cmd
}

func (o *FieldsOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.StringVarP(&o.Src, "src", "s", o.Src, "Local directory to scan")
	fs.StringSliceVarP(&o.Exclude, "exclude", "e", o.Exclude, "Exclude pattern: '.ext' matches a suffix, a glob matches with **, anything else a substring")
	fs.StringSliceVar(&o.DefinitionFiles, "definition-file", o.DefinitionFiles, "Base name of a field definition file")
	fs.StringVar(&o.Layout, "layout", o.Layout, fmt.Sprintf("Where converted definitions are written. One of: (%s).", strings.Join(legalLayouts, ", ")))
}

func (o *FieldsOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	if !funk.ContainsString(legalLayouts, o.Layout) {
		return fmt.Errorf("layout must be one of %s", strings.Join(legalLayouts, ", "))
	}
	if len(o.DefinitionFiles) == 0 {
		return fmt.Errorf("at least one definition file name is required")
	}
	return nil
}

func (o *FieldsOptions) Run(ctx context.Context, args []string) error {
	srcDir, err := filepath.Abs(o.Src)
	if err != nil {
		return err
	}

	sink := o.Sink()
	sink.Info(fmt.Sprintf("Scanning %s for field definitions.", srcDir))

	files, err := fileio.NewReader().Walk(srcDir)
	if err != nil {
		return err
	}

	classifier := upload.NewClassifier(upload.RoutingConfig{
		SourceRoot:      srcDir,
		ExcludePatterns: o.Exclude,
	}, fields.ReservedNames(o.DefinitionFiles...))

	units := []string{}
	for _, f := range files {
		if c := classifier.Classify(f); !c.Excluded && c.Transformable {
			units = append(units, f)
		}
	}
	if len(units) == 0 {
		sink.Warn(fmt.Sprintf("No field definitions found in %s", srcDir))
		return nil
	}

	transformer := fields.NewTransformer(sink, fields.WithLayout(fields.Layout(o.Layout)))
	failed := 0
	for _, res := range transformer.TransformAll(ctx, units, srcDir) {
		if res.State == fields.StateFailed {
			failed++
			continue
		}
		sink.Success(fmt.Sprintf("Wrote %s.", res.Artifact))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d definition file(s) failed to convert", failed, len(units))
	}
	return nil
}
