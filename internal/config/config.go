package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
)

const (
	AssetBackendFileManager = "filemanager"
	AssetBackendS3          = "s3"

	LogFormatPretty  = "pretty"
	LogFormatConsole = "console"
	LogFormatJSON    = "json"
)

var singleConfig *Config = nil

type Config struct {
	Log         logConfig
	API         apiConfig
	ObjectStore objectStoreConfig
	// ConfigPath is the account-config file, relative to the working directory.
	ConfigPath   string `envconfig:"UPLOADER_CONFIG_PATH" default:"hubspot.config.yml"`
	Concurrency  int    `envconfig:"UPLOADER_CONCURRENCY" default:"0"`
	AssetBackend string `envconfig:"UPLOADER_ASSET_BACKEND" default:"filemanager"`
	MetricsFile  string `envconfig:"UPLOADER_METRICS_FILE" default:""`
}

type logConfig struct {
	Level  string `envconfig:"UPLOADER_LOG_LEVEL" default:"info"`
	Format string `envconfig:"UPLOADER_LOG_FORMAT" default:"pretty"`
}

type apiConfig struct {
	BaseURL     string `envconfig:"UPLOADER_API_BASE_URL" default:"https://api.hubapi.com"`
	AccessToken string `envconfig:"UPLOADER_ACCESS_TOKEN" default:""`
}

type objectStoreConfig struct {
	Endpoint  string `envconfig:"UPLOADER_S3_ENDPOINT" default:""`
	Bucket    string `envconfig:"UPLOADER_S3_BUCKET" default:""`
	AccessKey string `envconfig:"UPLOADER_S3_ACCESS_KEY" default:""`
	SecretKey string `envconfig:"UPLOADER_S3_SECRET_KEY" default:""`
	Region    string `envconfig:"UPLOADER_S3_REGION" default:"us-east-1"`
	UseSSL    bool   `envconfig:"UPLOADER_S3_USE_SSL" default:"true"`
}

// New returns the process configuration, loading it on first use.
func New() (*Config, error) {
	if singleConfig == nil {
		cfg, err := Load()
		if err != nil {
			return nil, err
		}
		singleConfig = cfg
	}
	return singleConfig, nil
}

// Load reads an optional .env file from the working directory and then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := new(Config)
	if err := envconfig.Process("", cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	errs := []error{}

	switch c.Log.Format {
	case LogFormatPretty, LogFormatConsole, LogFormatJSON:
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}

	if c.Concurrency < 0 {
		errs = append(errs, fmt.Errorf("concurrency must not be negative"))
	}

	switch c.AssetBackend {
	case AssetBackendFileManager:
	case AssetBackendS3:
		if c.ObjectStore.Endpoint == "" {
			errs = append(errs, fmt.Errorf("s3 endpoint is required"))
		}
		if c.ObjectStore.Bucket == "" {
			errs = append(errs, fmt.Errorf("s3 bucket is required"))
		}
		if c.ObjectStore.AccessKey == "" || c.ObjectStore.SecretKey == "" {
			errs = append(errs, fmt.Errorf("s3 access key and secret key are required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown asset backend %q", c.AssetBackend))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %v", utilerrors.NewAggregate(errs).Error())
	}
	return nil
}
