package remote

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
)

const defaultRegion = "us-east-1"

type ObjectStoreOpts func(c *objectStoreConfig)

type objectStoreConfig struct {
	endpoint        string
	bucket          string
	accessKey       string
	secretAccessKey string
	region          string
	useSSL          bool
}

func newObjectStoreConfig(opts ...ObjectStoreOpts) *objectStoreConfig {
	cfg := &objectStoreConfig{
		useSSL: false,
		region: defaultRegion,
	}

	for _, o := range opts {
		o(cfg)
	}
	return cfg
}

func (c *objectStoreConfig) validate() error {
	var errs []error
	if strings.TrimSpace(c.endpoint) == "" {
		errs = append(errs, errors.New("object store endpoint is required"))
	}
	if strings.TrimSpace(c.bucket) == "" {
		errs = append(errs, errors.New("object store bucket is required"))
	}
	if c.accessKey == "" || c.secretAccessKey == "" {
		errs = append(errs, errors.New("object store access key and secret key are required"))
	}
	return utilerrors.NewAggregate(errs)
}

// ObjectStoreUploader mirrors assets into an S3 compatible bucket, keyed by account.
type ObjectStoreUploader struct {
	cfg      *objectStoreConfig
	client   *minio.Client
	initOnce sync.Once
	initErr  error
}

func NewObjectStoreUploader(opts ...ObjectStoreOpts) (*ObjectStoreUploader, error) {
	cfg := newObjectStoreConfig(opts...)
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	client, err := minio.New(cfg.endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.accessKey, cfg.secretAccessKey, ""),
		Secure: cfg.useSSL,
		Region: cfg.region,
	})
	if err != nil {
		return nil, fmt.Errorf("init object store client: %w", err)
	}

	return &ObjectStoreUploader{cfg: cfg, client: client}, nil
}

func (s *ObjectStoreUploader) ensureBucket(ctx context.Context) error {
	s.initOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.cfg.bucket)
		if err != nil {
			s.initErr = err
			return
		}
		if exists {
			return
		}
		s.initErr = s.client.MakeBucket(ctx, s.cfg.bucket, minio.MakeBucketOptions{Region: s.cfg.region})
	})
	return s.initErr
}

func (s *ObjectStoreUploader) Upload(ctx context.Context, accountID int, localPath, remotePath string) error {
	if err := s.ensureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(localPath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := s.client.FPutObject(ctx, s.cfg.bucket, ObjectKey(accountID, remotePath), localPath, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

func (s *ObjectStoreUploader) Type() string {
	return "object-store"
}

// ObjectKey is the bucket key an asset lands under.
func ObjectKey(accountID int, remotePath string) string {
	return path.Join(strconv.Itoa(accountID), strings.TrimLeft(remotePath, "/"))
}

func WithEndpoint(endpoint string) ObjectStoreOpts {
	return func(c *objectStoreConfig) {
		c.endpoint = endpoint
	}
}

func WithBucket(bucket string) ObjectStoreOpts {
	return func(c *objectStoreConfig) {
		c.bucket = bucket
	}
}

func WithAccessKey(accessKey string) ObjectStoreOpts {
	return func(c *objectStoreConfig) {
		c.accessKey = accessKey
	}
}

func WithSecretKey(secretKey string) ObjectStoreOpts {
	return func(c *objectStoreConfig) {
		c.secretAccessKey = secretKey
	}
}

func WithRegion(region string) ObjectStoreOpts {
	return func(c *objectStoreConfig) {
		if region != "" {
			c.region = region
		}
	}
}

func WithSSL(useSSL bool) ObjectStoreOpts {
	return func(c *objectStoreConfig) {
		c.useSSL = useSSL
	}
}
