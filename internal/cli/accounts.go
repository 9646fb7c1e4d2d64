package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/cmsdeploy/uploader/internal/account"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/thoas/go-funk"
	"sigs.k8s.io/yaml"
)

const (
	jsonFormat  = "json"
	yamlFormat  = "yaml"
	tableFormat = "table"
)

var (
	legalOutputTypes = []string{jsonFormat, yamlFormat, tableFormat}
)

type AccountsOptions struct {
	GlobalOptions

	Output string
}

type accountView struct {
	Name      string `json:"name"`
	AccountID int    `json:"accountId"`
	Env       string `json:"env,omitempty"`
	AuthType  string `json:"authType,omitempty"`
	Default   bool   `json:"default"`
}

func DefaultAccountsOptions() *AccountsOptions {
	return &AccountsOptions{
		GlobalOptions: DefaultGlobalOptions(),
		Output:        tableFormat,
	}
}

func NewCmdAccounts() *cobra.Command {
	o := DefaultAccountsOptions()
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "List the accounts of the account config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.Validate(args); err != nil {
				return err
			}
			return o.Run(cmd.Context(), args)
		},
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *AccountsOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.StringVarP(&o.Output, "output", "o", o.Output, fmt.Sprintf("Output format. One of: (%s).", strings.Join(legalOutputTypes, ", ")))
}

func (o *AccountsOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}

	if !funk.Contains(legalOutputTypes, o.Output) {
		return fmt.Errorf("output format must be one of %s", strings.Join(legalOutputTypes, ", "))
	}

	return nil
}

func (o *AccountsOptions) Run(ctx context.Context, args []string) error {
	cfg, err := o.Accounts()
	if err != nil {
		return fmt.Errorf("loading account config: %w", err)
	}

	defaultAccount, _ := cfg.Lookup("")
	views := funk.Map(cfg.All(), func(a account.Account) accountView {
		return accountView{
			Name:      a.Name,
			AccountID: a.ID(),
			Env:       a.Env,
			AuthType:  a.AuthType,
			Default:   a.ID() == defaultAccount.ID() && a.Name == defaultAccount.Name,
		}
	}).([]accountView)

	switch o.Output {
	case jsonFormat:
		marshalled, err := json.Marshal(views)
		if err != nil {
			return fmt.Errorf("marshalling accounts: %w", err)
		}
		fmt.Fprintf(o.out, "%s\n", string(marshalled))
		return nil
	case yamlFormat:
		marshalled, err := yaml.Marshal(views)
		if err != nil {
			return fmt.Errorf("marshalling accounts: %w", err)
		}
		fmt.Fprintf(o.out, "%s", string(marshalled))
		return nil
	default:
		return o.printTable(views)
	}
}

func (o *AccountsOptions) printTable(views []accountView) error {
	w := tabwriter.NewWriter(o.out, 0, 8, 1, '\t', 0)
	fmt.Fprintln(w, "NAME\tACCOUNT ID\tENV\tAUTH TYPE\tDEFAULT")
	for _, v := range views {
		def := ""
		if v.Default {
			def = "*"
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n", v.Name, v.AccountID, v.Env, v.AuthType, def)
	}
	return w.Flush()
}
