package media

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"

	"github.com/cloudflare/cloudflare-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kizunalab/machiba/internal/domain"
	"github.com/kizunalab/machiba/internal/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Initialize(logger.Config{Debug: true}); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type stubCloudflare struct {
	calls    int
	failures int
	lastName string
	err      error
}

func (s *stubCloudflare) UploadImage(_ context.Context, _ *cloudflare.ResourceContainer, params cloudflare.UploadImageParams) (cloudflare.Image, error) {
	s.calls++
	s.lastName = params.Name
	if s.err != nil {
		return cloudflare.Image{}, s.err
	}
	if s.calls <= s.failures {
		return cloudflare.Image{}, errors.New("temporarily unavailable")
	}
	return cloudflare.Image{
		ID:       "img-1",
		Variants: []string{"https://imagedelivery.net/acct/img-1/public"},
	}, nil
}

// pngHeader is a minimal valid PNG signature plus IHDR chunk start,
// enough for content sniffing
var pngHeader = []byte{
	0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A,
	0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00,
}

func TestUpload(t *testing.T) {
	stub := &stubCloudflare{}
	u := NewUploader(stub, "acct", 1<<20)

	result, err := u.Upload(context.Background(), "flyer.png", bytes.NewReader(pngHeader))
	require.NoError(t, err)

	assert.Equal(t, "img-1", result.ImageID)
	assert.Equal(t, "https://imagedelivery.net/acct/img-1/public", result.URL)
	assert.Equal(t, "image/png", result.ContentType)
	assert.Equal(t, int64(len(pngHeader)), result.Size)
	assert.Equal(t, "flyer.png", stub.lastName)
}

func TestUploadRetriesTransientFailures(t *testing.T) {
	stub := &stubCloudflare{failures: 2}
	u := NewUploader(stub, "acct", 1<<20)

	_, err := u.Upload(context.Background(), "flyer.png", bytes.NewReader(pngHeader))
	require.NoError(t, err)
	assert.Equal(t, 3, stub.calls)
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	stub := &stubCloudflare{}
	u := NewUploader(stub, "acct", 1<<20)

	_, err := u.Upload(context.Background(), "notes.txt", bytes.NewReader([]byte("plain text, not an image")))
	require.ErrorIs(t, err, domain.ErrUnsupportedMediaType)
	assert.Zero(t, stub.calls)
}

func TestUploadRejectsOversizedBody(t *testing.T) {
	stub := &stubCloudflare{}
	u := NewUploader(stub, "acct", 16)

	body := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, 64)...)
	_, err := u.Upload(context.Background(), "flyer.png", bytes.NewReader(body))
	require.ErrorIs(t, err, domain.ErrMediaTooLarge)
	assert.Zero(t, stub.calls)
}
