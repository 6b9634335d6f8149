package handlers

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fathima-sithara/media-pipeline/internal/presign"
	service "github.com/fathima-sithara/media-pipeline/internal/services"
	"github.com/fathima-sithara/media-pipeline/internal/storage"
	"github.com/fathima-sithara/media-pipeline/internal/transcode"
)

// recordingGateway captures the options each signing call received.
type recordingGateway struct {
	lastGetOpts storage.GetOptions
	lastGetKey  string
}

func (g *recordingGateway) PresignPut(_ context.Context, _ presign.Resource, key, contentType string) (*presign.Upload, error) {
	return &presign.Upload{Key: key, UploadURL: "https://signed.example/" + key, ExpiresIn: 300,
		RequiredHeaders: map[string]string{"Content-Type": contentType}}, nil
}

func (g *recordingGateway) PresignGet(_ context.Context, _ presign.Resource, key string, opt storage.GetOptions) (*presign.Download, error) {
	g.lastGetOpts = opt
	g.lastGetKey = key
	return &presign.Download{DownloadURL: "https://signed.example/" + key, ExpiresIn: 900}, nil
}

func (g *recordingGateway) Exists(_ context.Context, _ presign.Resource, _ string) (bool, error) {
	return true, nil
}

func (g *recordingGateway) Bucket(res presign.Resource) (string, error) {
	return "bucket-" + string(res), nil
}

func (g *recordingGateway) MultipartCreate(_ context.Context, _ presign.Resource, key, _ string) (*presign.MultipartUpload, error) {
	return &presign.MultipartUpload{Key: key, UploadID: "mp-1"}, nil
}

func (g *recordingGateway) MultipartSignPart(_ context.Context, _ presign.Resource, key, _ string, _ int32) (*presign.Upload, error) {
	return &presign.Upload{Key: key, UploadURL: "https://signed.example/" + key, ExpiresIn: 300}, nil
}

func (g *recordingGateway) MultipartComplete(_ context.Context, _ presign.Resource, _, _ string, _ []storage.CompletedPart) error {
	return nil
}

type missCache struct{}

func (missCache) Get(_ context.Context, _ string) (string, time.Duration, bool) { return "", 0, false }
func (missCache) Set(_ context.Context, _, _ string)                           {}

func testApp(t *testing.T) (*fiber.App, *recordingGateway) {
	t.Helper()
	gateway := &recordingGateway{}
	svc := service.NewMediaService(
		nil, nil, nil, nil,
		gateway, nil,
		transcode.Builder{IngestBucket: "ingest", MediaBucket: "media"},
		nil, nil, missCache{},
		service.Config{Env: "test", SubmitTimeout: time.Second},
		zap.NewNop().Sugar(),
	)
	h := NewHandler(nil, svc, zap.NewNop().Sugar())

	app := fiber.New()
	app.Get("/v1/media/url", h.GetDownloadURL)
	app.Post("/v1/media/multipart/create", func(c *fiber.Ctx) error {
		c.Locals("user_id", "creator-1")
		return h.CreateMultipartUpload(c)
	})
	return app, gateway
}

func TestGetDownloadURLForwardsDispositionAndContentType(t *testing.T) {
	app, gateway := testApp(t)

	req := httptest.NewRequest("GET",
		"/v1/media/url?resource=media&key=hls/x/master.m3u8&inline=false&filename=master.m3u8&content_type=application/vnd.apple.mpegurl", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	assert.Equal(t, "hls/x/master.m3u8", gateway.lastGetKey)
	assert.False(t, gateway.lastGetOpts.Inline)
	assert.Equal(t, "master.m3u8", gateway.lastGetOpts.Filename)
	assert.Equal(t, "application/vnd.apple.mpegurl", gateway.lastGetOpts.ContentTypeOverride)
}

func TestGetDownloadURLRequiresKey(t *testing.T) {
	app, _ := testApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/media/url", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestCreateMultipartUploadRoute(t *testing.T) {
	app, _ := testApp(t)

	body := strings.NewReader(`{"filename":"clip.mp4","content_type":"video/mp4"}`)
	req := httptest.NewRequest("POST", "/v1/media/multipart/create", body)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	badBody := strings.NewReader(`{"filename":"clip.mp4","content_type":"image/png"}`)
	badReq := httptest.NewRequest("POST", "/v1/media/multipart/create", badBody)
	badReq.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(badReq)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
