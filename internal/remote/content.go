package remote

import (
	"context"
	"net/url"
)

// ContentUploader uploads files to the design manager (primary channel).
type ContentUploader struct {
	client *Client
}

func NewContentUploader(c *Client) *ContentUploader {
	return &ContentUploader{client: c}
}

func (u *ContentUploader) Upload(ctx context.Context, accountID int, localPath, remotePath string) error {
	endpoint := "content/filemapper/v1/upload/" + url.PathEscape(remotePath)
	return u.client.uploadFile(ctx, accountID, endpoint, localPath, nil)
}

func (u *ContentUploader) Type() string {
	return "design-manager"
}
