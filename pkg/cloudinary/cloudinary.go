package cloudinary

import (
	"context"
	"fmt"
	"io"

	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/cloudinary/cloudinary-go/v2/config"
)

// Client uploads images to Cloudinary.
type Client interface {
	UploadImage(ctx context.Context, file io.Reader, folder, publicID string) (url string, err error)
	DeleteImage(ctx context.Context, publicID string) error
}

// Optimized image params applied on upload
const (
	ImageWidth = 1200
	imageEager = "q_auto,f_auto,w_1200,c_limit"
)

var eagerAsyncFalse = false

type clientImpl struct {
	cloudName string
	uploader  *uploader.API
}

// BuildOptimizedImageURL returns a Cloudinary URL with transformations for optimized delivery.
func BuildOptimizedImageURL(cloudName, publicID string, width int) string {
	if width <= 0 {
		width = ImageWidth
	}
	return fmt.Sprintf("https://res.cloudinary.com/%s/image/upload/q_auto,f_auto,w_%d,c_limit/%s",
		cloudName, width, publicID)
}

// UploadImage uploads an image and returns its secure URL.
func (c *clientImpl) UploadImage(ctx context.Context, file io.Reader, folder, publicID string) (string, error) {
	result, err := c.uploader.Upload(ctx, file, uploader.UploadParams{
		Folder:     folder,
		PublicID:   publicID,
		Eager:      imageEager,
		EagerAsync: &eagerAsyncFalse,
	})
	if err != nil {
		return "", fmt.Errorf("cloudinary upload: %w", err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("cloudinary upload: %s", result.Error.Message)
	}
	if result.SecureURL == "" {
		return BuildOptimizedImageURL(c.cloudName, result.PublicID, 0), nil
	}
	return result.SecureURL, nil
}

// DeleteImage destroys an uploaded image. A missing image is not an error.
func (c *clientImpl) DeleteImage(ctx context.Context, publicID string) error {
	result, err := c.uploader.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return fmt.Errorf("cloudinary destroy: %w", err)
	}
	if result.Error.Message != "" {
		return fmt.Errorf("cloudinary destroy: %s", result.Error.Message)
	}
	return nil
}

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
	return &clientImpl{
		cloudName: cloudName,
		uploader:  up,
	}, nil
}
