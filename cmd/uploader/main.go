package main

import (
	"os"

	"github.com/cmsdeploy/uploader/internal/cli"
	"github.com/spf13/cobra"
)

func main() {
	command := NewUploaderCommand()
	if err := command.Execute(); err != nil {
		os.Exit(1)
	}
}

func NewUploaderCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "uploader [flags] [options]",
		Short: "uploader syncs a local build directory to a CMS account.",
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
			os.Exit(1)
		},
	}
	cmd.AddCommand(cli.NewCmdUpload())
	cmd.AddCommand(cli.NewCmdFields())
	cmd.AddCommand(cli.NewCmdAccounts())
	cmd.AddCommand(cli.NewCmdVersion())

	return cmd
}
