package cloudinary

import (
	"context"
	"io"

	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/cloudinary/cloudinary-go/v2/config"
)

// Client uploads files to Cloudinary.
type Client interface {
	// Upload stores file under folder/publicID and returns its secure URL.
	// The resource type is detected by Cloudinary, so PDFs and images both work.
	Upload(ctx context.Context, file io.Reader, folder, publicID string) (UploadResult, error)
}

type UploadResult struct {
	URL      string
	PublicID string
}

type clientImpl struct {
	uploader *uploader.API
}

var overwriteFalse = false

func (c *clientImpl) Upload(ctx context.Context, file io.Reader, folder, publicID string) (UploadResult, error) {
	result, err := c.uploader.Upload(ctx, file, uploader.UploadParams{
		Folder:       folder,
		PublicID:     publicID,
		ResourceType: "auto",
		Overwrite:    &overwriteFalse,
	})
	if err != nil {
		return UploadResult{}, err
	}
	if result.Error.Message != "" {
		return UploadResult{}, &UploadError{Message: result.Error.Message}
	}
	return UploadResult{URL: result.SecureURL, PublicID: result.PublicID}, nil
}

// UploadError is an error reported in the Cloudinary response body.
type UploadError struct {
	Message string
}

func (e *UploadError) Error() string { return "cloudinary: " + e.Message }

// NewClientFromParams builds a Client from Cloudinary cloud name, API key, and secret.
func NewClientFromParams(cloudName, apiKey, apiSecret string) (Client, error) {
	cfg, err := config.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, err
	}
	up, err := uploader.NewWithConfiguration(cfg)
	if err != nil {
		return nil, err
	}
	return &clientImpl{uploader: up}, nil
}
