package upload

import (
	"context"
	"fmt"
)

// Channel is the remote destination family a file is sent to.
type Channel string

const (
	ChannelPrimary      Channel = "primary"
	ChannelAssetManager Channel = "asset-manager"
)

// Job is one file scheduled for upload. It is consumed exactly once.
type Job struct {
	AbsolutePath string
	// RelativePath is root relative and slash separated.
	RelativePath string
	Channel      Channel
}

type Status string

const (
	StatusSuccess                Status = "success"
	StatusSkippedUnsupportedType Status = "skipped"
	StatusFailed                 Status = "failed"
)

// Outcome is the settled result of a Job.
type Outcome struct {
	Job         Job
	Status      Status
	Destination string
	Err         error
}

func (o Outcome) ErrorMessage() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

// RoutingConfig is read-only for the lifetime of a run.
type RoutingConfig struct {
	SourceRoot      string
	PrimaryDestRoot string
	// AssetSourceRoot and AssetDestRoot are optional. Files whose path contains
	// AssetSourceRoot go to the asset manager.
	AssetSourceRoot string
	AssetDestRoot   string
	ExcludePatterns []string
}

// Uploader is a channel upload capability.
type Uploader interface {
	Upload(ctx context.Context, accountID int, localPath, remotePath string) error
}

type UploaderFunc func(ctx context.Context, accountID int, localPath, remotePath string) error

func (f UploaderFunc) Upload(ctx context.Context, accountID int, localPath, remotePath string) error {
	return f(ctx, accountID, localPath, remotePath)
}

// AccountResolver maps an account name or id to an account id.
// An empty value selects the default account.
type AccountResolver interface {
	ResolveAccountID(nameOrID string) (int, bool)
}

type AccountResolverFunc func(nameOrID string) (int, bool)

func (f AccountResolverFunc) ResolveAccountID(nameOrID string) (int, bool) {
	return f(nameOrID)
}

// Walker lists the regular files below a root directory.
type Walker interface {
	Walk(root string) ([]string, error)
}

type AccountNotFoundError struct {
	Account    string
	ConfigPath string
}

func (e *AccountNotFoundError) Error() string {
	return fmt.Sprintf("Account %s not found in %s.", e.Account, e.ConfigPath)
}
