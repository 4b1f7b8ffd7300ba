// Package imagestore talks to the external image CDN that hosts product
// images. Uploads return a durable URL plus an opaque deletion handle that is
// required to remove that image later.
package imagestore

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"

	"lapak/internal/apperror"

	"github.com/go-resty/resty/v2"
)

// UploadResult holds the hosted URL and the deletion handle for one image.
type UploadResult struct {
	URL      string `json:"url"`
	DeleteID string `json:"delete_id"`
}

// Store is the narrow interface product operations need from the image CDN.
type Store interface {
	Upload(ctx context.Context, data []byte, filename string) (*UploadResult, error)
	Delete(ctx context.Context, deleteID string) error
}

// Config holds connection details for the image CDN.
type Config struct {
	BaseURL string
	APIKey  string
	Folder  string // logical folder every product image is uploaded under
}

// Client is an HTTP implementation of Store.
type Client struct {
	http   *resty.Client
	folder string
}

// NewClient creates a new image store client.
func NewClient(cfg Config) *Client {
	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("Authorization", "Bearer "+cfg.APIKey)
	return &Client{
		http:   httpClient,
		folder: cfg.Folder,
	}
}

// Upload sends the image bytes to the store and returns the hosted URL plus
// the deletion handle. Any transport or remote failure aborts the enclosing
// product operation.
func (c *Client) Upload(ctx context.Context, data []byte, filename string) (*UploadResult, error) {
	if len(data) == 0 {
		return nil, apperror.NewValidation("image data is empty")
	}

	var result UploadResult
	resp, err := c.http.R().
		SetContext(ctx).
		SetFileReader("file", filename, bytes.NewReader(data)).
		SetFormData(map[string]string{"folder": c.folder}).
		SetResult(&result).
		Post("/v1/images")
	if err != nil {
		return nil, apperror.NewUpload("image upload failed", err)
	}
	if resp.IsError() {
		return nil, apperror.NewUpload(fmt.Sprintf("image upload failed: store returned %s", resp.Status()), nil)
	}
	if result.URL == "" || result.DeleteID == "" {
		return nil, apperror.NewUpload("image upload failed: malformed store response", nil)
	}
	return &result, nil
}

// Delete removes a previously uploaded image. Callers treat failures as
// best-effort and must not block record mutations on them. An image the
// store no longer knows counts as deleted.
func (c *Client) Delete(ctx context.Context, deleteID string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		Delete("/v1/images/" + url.PathEscape(deleteID))
	if err != nil {
		return fmt.Errorf("failed to delete image %s: %w", deleteID, err)
	}
	if resp.IsError() && resp.StatusCode() != http.StatusNotFound {
		return fmt.Errorf("failed to delete image %s: store returned %s", deleteID, resp.Status())
	}
	return nil
}
