package media

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/cenkalti/backoff/v4"
	"github.com/cloudflare/cloudflare-go"
	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/kizunalab/machiba/internal/domain"
	"github.com/kizunalab/machiba/internal/logger"
)

// CloudflareClient is the slice of the Cloudflare SDK the uploader
// needs, kept as an interface so tests can stub it
type CloudflareClient interface {
	UploadImage(ctx context.Context, rc *cloudflare.ResourceContainer, params cloudflare.UploadImageParams) (cloudflare.Image, error)
}

// NewCloudflareClient creates an SDK-backed client from an API token
func NewCloudflareClient(apiToken string) (CloudflareClient, error) {
	api, err := cloudflare.NewWithAPIToken(apiToken)
	if err != nil {
		return nil, err
	}
	return sdkClient{api: api}, nil
}

type sdkClient struct {
	api *cloudflare.API
}

func (c sdkClient) UploadImage(ctx context.Context, rc *cloudflare.ResourceContainer, params cloudflare.UploadImageParams) (cloudflare.Image, error) {
	return c.api.UploadImage(ctx, rc, params)
}

// UploadResult describes a stored image
type UploadResult struct {
	ImageID     string `json:"imageId"`
	URL         string `json:"url"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// Uploader stores images in Cloudflare Images
type Uploader struct {
	client  CloudflareClient
	rc      *cloudflare.ResourceContainer
	maxSize int64
}

// NewUploader creates an image uploader. maxSize caps the accepted
// image size in bytes.
func NewUploader(client CloudflareClient, accountID string, maxSize int64) *Uploader {
	return &Uploader{
		client:  client,
		maxSize: maxSize,
		rc: &cloudflare.ResourceContainer{
			Level:      cloudflare.AccountRouteLevel,
			Identifier: accountID,
		},
	}
}

// Upload sniffs and validates the image content, then uploads it,
// retrying transient API failures
func (u *Uploader) Upload(ctx context.Context, name string, r io.Reader) (*UploadResult, error) {
	data, err := io.ReadAll(io.LimitReader(r, u.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload body: %w", err)
	}
	if int64(len(data)) > u.maxSize {
		return nil, domain.ErrMediaTooLarge
	}

	mtype := mimetype.Detect(data)
	if !isSupportedImage(mtype.String()) {
		logger.WarnCtx(ctx, "Rejected upload with unsupported media type",
			zap.String("name", name),
			zap.String("detected_type", mtype.String()),
		)
		return nil, domain.ErrUnsupportedMediaType
	}

	var image cloudflare.Image
	operation := func() error {
		var uploadErr error
		image, uploadErr = u.client.UploadImage(ctx, u.rc, cloudflare.UploadImageParams{
			File: io.NopCloser(bytes.NewReader(data)),
			Name: name,
			Metadata: map[string]interface{}{
				"content_type": mtype.String(),
			},
		})
		return uploadErr
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(operation, b); err != nil {
		return nil, fmt.Errorf("failed to upload image: %w", err)
	}

	result := &UploadResult{
		ImageID:     image.ID,
		ContentType: mtype.String(),
		Size:        int64(len(data)),
	}
	if len(image.Variants) > 0 {
		result.URL = image.Variants[0]
	}

	logger.InfoCtx(ctx, "Uploaded image",
		zap.String("image_id", image.ID),
		zap.String("content_type", mtype.String()),
		zap.Int("size", len(data)),
	)

	return result, nil
}

func isSupportedImage(contentType string) bool {
	switch contentType {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
		return true
	}
	return false
}
