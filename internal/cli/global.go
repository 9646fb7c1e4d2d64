package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cmsdeploy/uploader/internal/account"
	"github.com/cmsdeploy/uploader/internal/config"
	"github.com/cmsdeploy/uploader/internal/remote"
	"github.com/cmsdeploy/uploader/internal/report"
	"github.com/cmsdeploy/uploader/internal/upload"
	"github.com/cmsdeploy/uploader/pkg/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/thoas/go-funk"
	"go.uber.org/zap"
)

var (
	legalLogFormats = []string{config.LogFormatPretty, config.LogFormatConsole, config.LogFormatJSON}
)

type GlobalOptions struct {
	ConfigPath  string
	LogLevel    string
	LogFormat   string
	BaseURL     string
	AccessToken string

	out io.Writer
}

func DefaultGlobalOptions() GlobalOptions {
	o := GlobalOptions{
		ConfigPath: account.DefaultConfigFile,
		LogLevel:   "info",
		LogFormat:  config.LogFormatPretty,
		BaseURL:    remote.DefaultBaseURL,
		out:        os.Stdout,
	}
	if cfg, err := config.New(); err == nil {
		o.ConfigPath = cfg.ConfigPath
		o.LogLevel = cfg.Log.Level
		o.LogFormat = cfg.Log.Format
		o.BaseURL = cfg.API.BaseURL
		o.AccessToken = cfg.API.AccessToken
	}
	return o
}

func (o *GlobalOptions) Bind(fs *pflag.FlagSet) {
	fs.StringVarP(&o.ConfigPath, "config", "c", o.ConfigPath, "Path to the account config file")
	fs.StringVar(&o.LogLevel, "log-level", o.LogLevel, "Diagnostic log level")
	fs.StringVar(&o.LogFormat, "log-format", o.LogFormat, fmt.Sprintf("Report format. One of: (%s).", strings.Join(legalLogFormats, ", ")))
	fs.StringVar(&o.BaseURL, "api-base-url", o.BaseURL, "Base URL of the content API")
}

func (o *GlobalOptions) Complete(cmd *cobra.Command, args []string) error {
	encoding := log.ConsoleEncoding
	if o.LogFormat == config.LogFormatJSON {
		encoding = log.JSONEncoding
	}
	zap.ReplaceGlobals(log.InitLog(log.ParseLevel(o.LogLevel), encoding))
	if cmd != nil {
		o.out = cmd.OutOrStdout()
	}
	return nil
}

func (o *GlobalOptions) Validate(args []string) error {
	if !funk.Contains(legalLogFormats, o.LogFormat) {
		return fmt.Errorf("log format must be one of %s", strings.Join(legalLogFormats, ", "))
	}
	return nil
}

// Sink returns the reporting sink selected by the log format.
func (o *GlobalOptions) Sink() report.Sink {
	if o.LogFormat == config.LogFormatPretty {
		return report.NewConsoleSink(o.out)
	}
	return report.NewZapSink(zap.S().Named("report"))
}

// Accounts parses the account config file.
func (o *GlobalOptions) Accounts() (*account.Config, error) {
	return account.ParseConfigFile(account.FindConfigFile(o.ConfigPath))
}

// Resolver returns the account resolver and the token source of a run. Without
// an account config file numeric account ids are accepted as they are and the
// access token comes from the environment.
func (o *GlobalOptions) Resolver() (upload.AccountResolver, remote.TokenSource, error) {
	cfg, err := o.Accounts()
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, nil, err
		}
		zap.S().Named("cli").Debugw("no account config file", "path", o.ConfigPath)
		resolver := upload.AccountResolverFunc(func(nameOrID string) (int, bool) {
			id, err := strconv.Atoi(strings.TrimSpace(nameOrID))
			return id, err == nil && id > 0
		})
		return resolver, remote.StaticToken(o.AccessToken), nil
	}

	tokens := func(accountID int) (string, error) {
		token, err := cfg.AccessToken(accountID)
		if err != nil && o.AccessToken != "" {
			return o.AccessToken, nil
		}
		return token, err
	}
	return cfg, tokens, nil
}

func (o *GlobalOptions) Client(tokens remote.TokenSource) *remote.Client {
	return remote.NewClient(o.BaseURL, remote.WithTokenSource(tokens))
}
