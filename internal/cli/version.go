package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/cmsdeploy/uploader/pkg/version"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type VersionOptions struct {
	Output string

	out io.Writer
}

func DefaultVersionOptions() *VersionOptions {
	return &VersionOptions{
		Output: "",
		out:    os.Stdout,
	}
}

func NewCmdVersion() *cobra.Command {
	o := DefaultVersionOptions()
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print uploader version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			o.out = cmd.OutOrStdout()
			return o.Run(cmd.Context(), args)
		},
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *VersionOptions) Bind(fs *pflag.FlagSet) {
	fs.StringVarP(&o.Output, "output", "o", o.Output, "Output format. One of: (json).")
}

func (o *VersionOptions) Run(ctx context.Context, args []string) error {
	versionInfo := version.Get()
	if o.Output == jsonFormat {
		marshalled, err := json.Marshal(versionInfo)
		if err != nil {
			return err
		}
		fmt.Fprintf(o.out, "%s\n", string(marshalled))
		return nil
	}
	fmt.Fprintf(o.out, "Uploader Version: %s\n", versionInfo.String())
	return nil
}
