package remote

import (
	"context"
	"encoding/json"
	"path"
)

type fileManagerOptions struct {
	Access    string `json:"access"`
	Overwrite bool   `json:"overwrite"`
}

// FileManagerUploader uploads files to the file manager (asset channel).
type FileManagerUploader struct {
	client *Client
}

func NewFileManagerUploader(c *Client) *FileManagerUploader {
	return &FileManagerUploader{client: c}
}

func (u *FileManagerUploader) Upload(ctx context.Context, accountID int, localPath, remotePath string) error {
	options, err := json.Marshal(fileManagerOptions{Access: "PUBLIC_INDEXABLE", Overwrite: true})
	if err != nil {
		return err
	}
	folder := path.Dir(path.Join("/", remotePath))
	return u.client.uploadFile(ctx, accountID, "files/v3/files", localPath, map[string]string{
		"fileName":   path.Base(remotePath),
		"folderPath": folder,
		"options":    string(options),
	})
}

func (u *FileManagerUploader) Type() string {
	return "file-manager"
}
