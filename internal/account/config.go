package account

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/client-go/util/homedir"
	"sigs.k8s.io/yaml"
)

const (
	// DefaultConfigFile is the account-config file looked up in the working directory.
	DefaultConfigFile = "hubspot.config.yml"
)

var ErrNoAccessToken = errors.New("no access token")

// Config is the content of an account-config file.
// Both the legacy "portals" and the newer "accounts" layouts are accepted.
type Config struct {
	DefaultPortal  string    `json:"defaultPortal,omitempty"`
	DefaultAccount string    `json:"defaultAccount,omitempty"`
	Portals        []Account `json:"portals,omitempty"`
	Accounts       []Account `json:"accounts,omitempty"`

	// path is the file the config was read from
	path string `json:"-"`
}

type Account struct {
	Name              string `json:"name"`
	PortalID          int    `json:"portalId,omitempty"`
	AccountID         int    `json:"accountId,omitempty"`
	Env               string `json:"env,omitempty"`
	AuthType          string `json:"authType,omitempty"`
	PersonalAccessKey string `json:"personalAccessKey,omitempty"`
	Auth              *Auth  `json:"auth,omitempty"`
}

type Auth struct {
	TokenInfo TokenInfo `json:"tokenInfo"`
}

type TokenInfo struct {
	AccessToken string `json:"accessToken,omitempty"`
	ExpiresAt   string `json:"expiresAt,omitempty"`
}

// ID returns the numeric account identifier, whichever layout it came from.
func (a Account) ID() int {
	if a.AccountID != 0 {
		return a.AccountID
	}
	return a.PortalID
}

func (a Account) AccessToken() string {
	if a.Auth == nil {
		return ""
	}
	return a.Auth.TokenInfo.AccessToken
}

// DefaultGlobalConfigPath is the per-user account-config file.
func DefaultGlobalConfigPath() string {
	return filepath.Join(homedir.HomeDir(), ".hubspot", DefaultConfigFile)
}

// FindConfigFile returns filename when it exists. For the default file name it falls
// back to the per-user file.
func FindConfigFile(filename string) string {
	if _, err := os.Stat(filename); err == nil {
		return filename
	}
	if filename == DefaultConfigFile {
		if global := DefaultGlobalConfigPath(); fileExists(global) {
			return global
		}
	}
	return filename
}

func ParseConfigFile(filename string) (*Config, error) {
	contents, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	config := &Config{}
	if err := yaml.Unmarshal(contents, config); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	config.path = filename
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) Path() string {
	return c.path
}

// All returns every configured account, legacy portals first.
func (c *Config) All() []Account {
	all := make([]Account, 0, len(c.Portals)+len(c.Accounts))
	all = append(all, c.Portals...)
	return append(all, c.Accounts...)
}

func (c *Config) defaultName() string {
	if c.DefaultAccount != "" {
		return c.DefaultAccount
	}
	return c.DefaultPortal
}

// ResolveAccountID maps an account name or numeric id to an account id.
// An empty nameOrID selects the default account.
func (c *Config) ResolveAccountID(nameOrID string) (int, bool) {
	a, ok := c.Lookup(nameOrID)
	if !ok {
		return 0, false
	}
	return a.ID(), true
}

func (c *Config) Lookup(nameOrID string) (Account, bool) {
	if c == nil {
		return Account{}, false
	}
	nameOrID = strings.TrimSpace(nameOrID)
	if nameOrID == "" {
		nameOrID = c.defaultName()
		if nameOrID == "" {
			return Account{}, false
		}
	}

	if id, err := strconv.Atoi(nameOrID); err == nil {
		for _, a := range c.All() {
			if a.ID() == id {
				return a, true
			}
		}
	}
	for _, a := range c.All() {
		if a.Name == nameOrID {
			return a, true
		}
	}
	return Account{}, false
}

// AccessToken returns the stored access token of the account with the given id.
func (c *Config) AccessToken(accountID int) (string, error) {
	for _, a := range c.All() {
		if a.ID() == accountID {
			if token := a.AccessToken(); token != "" {
				return token, nil
			}
			return "", fmt.Errorf("account %d: %w", accountID, ErrNoAccessToken)
		}
	}
	return "", fmt.Errorf("account %d not found", accountID)
}

func (c *Config) Validate() error {
	validationErrors := make([]error, 0)
	names := map[string]bool{}
	for i, a := range c.All() {
		if a.ID() == 0 {
			validationErrors = append(validationErrors, fmt.Errorf("account #%d (%q) has no id", i, a.Name))
		}
		if a.Name == "" {
			continue
		}
		if names[a.Name] {
			validationErrors = append(validationErrors, fmt.Errorf("duplicate account name %q", a.Name))
		}
		names[a.Name] = true
	}
	if len(validationErrors) > 0 {
		return fmt.Errorf("invalid configuration: %v", utilerrors.NewAggregate(validationErrors).Error())
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
