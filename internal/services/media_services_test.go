package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fathima-sithara/media-pipeline/internal/events"
	"github.com/fathima-sithara/media-pipeline/internal/imagepipe"
	"github.com/fathima-sithara/media-pipeline/internal/media"
	"github.com/fathima-sithara/media-pipeline/internal/presign"
	"github.com/fathima-sithara/media-pipeline/internal/storage"
	"github.com/fathima-sithara/media-pipeline/internal/transcode"
	utils "github.com/fathima-sithara/media-pipeline/internal/utis"
)

// --- fakes -----------------------------------------------------------

type memAssets struct {
	mu   sync.Mutex
	rows map[string]*media.MediaAsset
}

func newMemAssets(rows ...*media.MediaAsset) *memAssets {
	m := &memAssets{rows: map[string]*media.MediaAsset{}}
	for _, a := range rows {
		m.rows[a.ID] = a
	}
	return m
}

func (m *memAssets) Insert(_ context.Context, a *media.MediaAsset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[a.ID] = a
	return nil
}

func (m *memAssets) GetByID(_ context.Context, id string) (*media.MediaAsset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok {
		return nil, utils.ErrFileNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memAssets) ListByPostID(_ context.Context, postID string) ([]media.MediaAsset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []media.MediaAsset
	for _, a := range m.rows {
		if a.PostID == postID && a.Status == media.AssetStatusActive {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *memAssets) Supersede(_ context.Context, postID string, kind media.AssetKind, exceptID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.rows {
		if a.PostID == postID && a.Kind == kind && a.ID != exceptID {
			a.Status = media.AssetStatusSuperseded
		}
	}
	return nil
}

// memRenditions upserts on (asset, kind, key) like the mongo repository.
// failAt makes the Nth insert attempt fail once, for retry paths.
type memRenditions struct {
	mu      sync.Mutex
	rows    []media.MediaRendition
	inserts int
	failAt  int
}

func (m *memRenditions) Insert(_ context.Context, r *media.MediaRendition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inserts++
	if m.failAt > 0 && m.inserts == m.failAt {
		return errors.New("write concern timeout")
	}
	for _, existing := range m.rows {
		if existing.AssetID == r.AssetID && existing.Kind == r.Kind && existing.StorageKey == r.StorageKey {
			return nil
		}
	}
	m.rows = append(m.rows, *r)
	return nil
}

func (m *memRenditions) ListByAssetID(_ context.Context, assetID string) ([]media.MediaRendition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []media.MediaRendition
	for _, r := range m.rows {
		if r.AssetID == assetID {
			out = append(out, r)
		}
	}
	return out, nil
}

// memJobs implements the same monotonic conditional transition as the
// mongo repository.
type memJobs struct {
	mu   sync.Mutex
	rows map[string]*media.MediaRenditionJob
}

func newMemJobs(rows ...*media.MediaRenditionJob) *memJobs {
	m := &memJobs{rows: map[string]*media.MediaRenditionJob{}}
	for _, j := range rows {
		m.rows[j.ID] = j
	}
	return m
}

func (m *memJobs) Insert(_ context.Context, j *media.MediaRenditionJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j.CreatedAt = time.Now().UTC()
	j.UpdatedAt = j.CreatedAt
	cp := *j
	m.rows[j.ID] = &cp
	return nil
}

func (m *memJobs) GetByID(_ context.Context, id string) (*media.MediaRenditionJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.rows[id]
	if !ok {
		return nil, utils.ErrFileNotFound
	}
	cp := *j
	return &cp, nil
}

func (m *memJobs) GetByExternalID(_ context.Context, externalID string) (*media.MediaRenditionJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.rows {
		if j.JobID != nil && *j.JobID == externalID {
			cp := *j
			return &cp, nil
		}
	}
	return nil, utils.ErrFileNotFound
}

func (m *memJobs) FindActiveByAssetAndKind(_ context.Context, assetID string, kind media.JobKind) (*media.MediaRenditionJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.rows {
		if j.AssetID == assetID && j.Kind == kind && j.Status != media.JobStatusFailed {
			cp := *j
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memJobs) ListByAssetIDs(_ context.Context, assetIDs []string) ([]media.MediaRenditionJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := map[string]bool{}
	for _, id := range assetIDs {
		want[id] = true
	}
	var out []media.MediaRenditionJob
	for _, j := range m.rows {
		if want[j.AssetID] {
			out = append(out, *j)
		}
	}
	return out, nil
}

func (m *memJobs) ListStalePending(_ context.Context, olderThan time.Time) ([]media.MediaRenditionJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []media.MediaRenditionJob
	for _, j := range m.rows {
		if j.Status == media.JobStatusPending && j.UpdatedAt.Before(olderThan) {
			out = append(out, *j)
		}
	}
	return out, nil
}

func (m *memJobs) Transition(_ context.Context, id string, next media.JobStatus, externalID *string, jobErr string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.rows[id]
	if !ok || !j.Status.CanTransition(next) {
		return false, nil
	}
	j.Status = next
	j.UpdatedAt = time.Now().UTC()
	if externalID != nil {
		j.JobID = externalID
	}
	if jobErr != "" {
		j.Error = jobErr
	}
	return true, nil
}

type memPosts struct {
	mu   sync.Mutex
	rows map[string]*media.Post
}

func newMemPosts(rows ...*media.Post) *memPosts {
	m := &memPosts{rows: map[string]*media.Post{}}
	for _, p := range rows {
		m.rows[p.ID] = p
	}
	return m
}

func (m *memPosts) GetByID(_ context.Context, id string) (*media.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return nil, utils.ErrFileNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPosts) Promote(_ context.Context, id string, from, to media.PostStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok || p.Status != from {
		return false, nil
	}
	p.Status = to
	return true, nil
}

type fakeGateway struct {
	objects        map[string]bool
	headErr        error
	multipartRes   presign.Resource
	multipartKey   string
	completedParts []storage.CompletedPart
}

func (g *fakeGateway) PresignPut(_ context.Context, res presign.Resource, key, contentType string) (*presign.Upload, error) {
	return &presign.Upload{
		Key:       key,
		UploadURL: "https://signed.example/" + string(res) + "/" + key,
		ExpiresIn: 300,
		RequiredHeaders: map[string]string{
			"Content-Type": contentType,
		},
	}, nil
}

func (g *fakeGateway) PresignGet(_ context.Context, res presign.Resource, key string, _ storage.GetOptions) (*presign.Download, error) {
	return &presign.Download{DownloadURL: "https://signed.example/" + string(res) + "/" + key, ExpiresIn: 900}, nil
}

func (g *fakeGateway) Exists(_ context.Context, _ presign.Resource, key string) (bool, error) {
	if g.headErr != nil {
		return false, g.headErr
	}
	return g.objects[key], nil
}

func (g *fakeGateway) Bucket(res presign.Resource) (string, error) {
	return "bucket-" + string(res), nil
}

func (g *fakeGateway) MultipartCreate(_ context.Context, res presign.Resource, key, _ string) (*presign.MultipartUpload, error) {
	g.multipartRes = res
	g.multipartKey = key
	return &presign.MultipartUpload{Key: key, UploadID: "mp-1"}, nil
}

func (g *fakeGateway) MultipartSignPart(_ context.Context, res presign.Resource, key, uploadID string, partNumber int32) (*presign.Upload, error) {
	g.multipartRes = res
	return &presign.Upload{Key: key, UploadURL: "https://signed.example/" + key, ExpiresIn: 300}, nil
}

func (g *fakeGateway) MultipartComplete(_ context.Context, res presign.Resource, key, uploadID string, parts []storage.CompletedPart) error {
	g.multipartRes = res
	g.multipartKey = key
	g.completedParts = parts
	return nil
}

type fakeBackend struct {
	mu      sync.Mutex
	specs   []transcode.JobSpec
	err     error
	nextID  string
	submits int
}

func (b *fakeBackend) SubmitJob(_ context.Context, spec transcode.JobSpec) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.submits++
	if b.err != nil {
		return "", b.err
	}
	b.specs = append(b.specs, spec)
	return b.nextID, nil
}

type fakeProducer struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *fakeProducer) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *fakeProducer) byType(t string) []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.Event
	for _, ev := range p.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

type fakeCache struct {
	mu   sync.Mutex
	urls map[string]string
	sets int
}

func (c *fakeCache) Get(_ context.Context, key string) (string, time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	url, ok := c.urls[key]
	return url, 10 * time.Minute, ok
}

func (c *fakeCache) Set(_ context.Context, key, url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.urls == nil {
		c.urls = map[string]string{}
	}
	c.urls[key] = url
	c.sets++
}

type fakePipeline struct {
	renditions []media.MediaRendition
	err        error
	calls      int
}

func (p *fakePipeline) Process(_ context.Context, _ *media.MediaAsset, _ imagepipe.ProcessOptions) ([]media.MediaRendition, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return p.renditions, nil
}

// --- harness ---------------------------------------------------------

type harness struct {
	svc        *MediaService
	assets     *memAssets
	renditions *memRenditions
	jobs       *memJobs
	posts      *memPosts
	gateway    *fakeGateway
	backend    *fakeBackend
	producer   *fakeProducer
	cache      *fakeCache
	pipeline   *fakePipeline
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		assets:     newMemAssets(),
		renditions: &memRenditions{},
		jobs:       newMemJobs(),
		posts:      newMemPosts(),
		gateway:    &fakeGateway{objects: map[string]bool{}},
		backend:    &fakeBackend{nextID: "mc-123"},
		producer:   &fakeProducer{},
		cache:      &fakeCache{},
		pipeline:   &fakePipeline{},
	}
	h.svc = NewMediaService(
		h.assets, h.renditions, h.jobs, h.posts,
		h.gateway, h.pipeline,
		transcode.Builder{IngestBucket: "ingest", MediaBucket: "media"},
		h.backend, h.producer, h.cache,
		Config{Env: "test", SubmitTimeout: time.Second},
		zap.NewNop().Sugar(),
	)
	return h
}

func videoPostWithAsset(h *harness) (*media.Post, *media.MediaAsset) {
	post := &media.Post{ID: "post-1", OwnerID: "creator-1", PostType: media.PostTypeVideo, Status: media.PostStatusPending}
	asset := &media.MediaAsset{
		ID: "asset-1", PostID: post.ID, Kind: media.AssetKindMainVideo,
		StorageBucket: "ingest", StorageKey: "creator-1/videos/2026/09/01/u/raw/clip.mp4",
		Status: media.AssetStatusActive,
	}
	h.posts.rows[post.ID] = post
	h.assets.rows[asset.ID] = asset
	return post, asset
}

// --- tests -----------------------------------------------------------

func TestSubmitHLSJobPersistsIntentBeforeBackendCall(t *testing.T) {
	h := newHarness(t)
	_, asset := videoPostWithAsset(h)

	job, err := h.svc.SubmitHLSJob(context.Background(), asset.ID)
	require.NoError(t, err)
	require.NotNil(t, job)

	assert.Equal(t, media.JobStatusSubmitted, job.Status)
	require.NotNil(t, job.JobID)
	assert.Equal(t, "mc-123", *job.JobID)
	assert.True(t, strings.HasSuffix(job.OutputPrefix, "/"))

	require.Len(t, h.backend.specs, 1)
	spec := h.backend.specs[0]
	assert.Equal(t, media.JobKindHLSABR4, spec.Kind)
	assert.Equal(t, asset.StorageKey, spec.InputKey)
	assert.Equal(t, job.ID, spec.UserMetadata["jobId"])
	assert.Equal(t, "post-1", spec.UserMetadata["postId"])
	assert.Equal(t, "test", spec.UserMetadata["env"])
}

func TestSubmitJobBackendFailureMarksJobFailed(t *testing.T) {
	h := newHarness(t)
	_, asset := videoPostWithAsset(h)
	h.backend.err = errors.New("throttled")

	_, err := h.svc.SubmitHLSJob(context.Background(), asset.ID)
	require.Error(t, err)

	jobs, err := h.jobs.ListByAssetIDs(context.Background(), []string{asset.ID})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, media.JobStatusFailed, jobs[0].Status)
	assert.Contains(t, jobs[0].Error, "throttled")
}

func TestSubmitJobSuppressesDuplicates(t *testing.T) {
	h := newHarness(t)
	_, asset := videoPostWithAsset(h)

	first, err := h.svc.SubmitHLSJob(context.Background(), asset.ID)
	require.NoError(t, err)

	second, err := h.svc.SubmitHLSJob(context.Background(), asset.ID)
	require.ErrorIs(t, err, utils.ErrDuplicateJob)
	require.NotNil(t, second)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, h.backend.submits)
}

func TestSubmitJobRetriesAfterFailure(t *testing.T) {
	h := newHarness(t)
	_, asset := videoPostWithAsset(h)
	h.backend.err = errors.New("boom")

	_, err := h.svc.SubmitHLSJob(context.Background(), asset.ID)
	require.Error(t, err)

	h.backend.err = nil
	job, err := h.svc.SubmitHLSJob(context.Background(), asset.ID)
	require.NoError(t, err)
	assert.Equal(t, media.JobStatusSubmitted, job.Status)
}

func TestApplyJobNotificationCompleteRecordsRenditionsAndApproves(t *testing.T) {
	h := newHarness(t)
	_, asset := videoPostWithAsset(h)

	job, err := h.svc.SubmitHLSJob(context.Background(), asset.ID)
	require.NoError(t, err)

	err = h.svc.ApplyJobNotification(context.Background(), JobNotification{
		ExternalID: "mc-123", Status: "COMPLETE",
	})
	require.NoError(t, err)

	got, err := h.jobs.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, media.JobStatusComplete, got.Status)

	rows, err := h.renditions.ListByAssetID(context.Background(), asset.ID)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	kinds := map[media.RenditionKind]bool{}
	for _, r := range rows {
		kinds[r.Kind] = true
		assert.True(t, strings.HasPrefix(r.StorageKey, job.OutputPrefix), r.StorageKey)
		assert.Equal(t, "application/vnd.apple.mpegurl", r.MimeType)
	}
	assert.True(t, kinds[media.RenditionKindHLSMaster])
	assert.True(t, kinds[media.RenditionKindHLSVariant1080P])

	post, err := h.posts.GetByID(context.Background(), "post-1")
	require.NoError(t, err)
	assert.Equal(t, media.PostStatusApproved, post.Status)
	assert.Len(t, h.producer.byType(events.TypePostApproved), 1)
	assert.Len(t, h.producer.byType(events.TypeRenditionReady), 1)
}

func TestApplyJobNotificationStaleProgressIgnored(t *testing.T) {
	h := newHarness(t)
	_, asset := videoPostWithAsset(h)

	_, err := h.svc.SubmitHLSJob(context.Background(), asset.ID)
	require.NoError(t, err)
	require.NoError(t, h.svc.ApplyJobNotification(context.Background(), JobNotification{
		ExternalID: "mc-123", Status: "COMPLETE",
	}))

	// late PROGRESSING delivery after COMPLETE is a silent no-op
	require.NoError(t, h.svc.ApplyJobNotification(context.Background(), JobNotification{
		ExternalID: "mc-123", Status: "PROGRESSING",
	}))

	rows, err := h.renditions.ListByAssetID(context.Background(), asset.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 5)
}

func TestApplyJobNotificationDuplicateCompleteIsIdempotent(t *testing.T) {
	h := newHarness(t)
	_, asset := videoPostWithAsset(h)

	_, err := h.svc.SubmitHLSJob(context.Background(), asset.ID)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		require.NoError(t, h.svc.ApplyJobNotification(context.Background(), JobNotification{
			ExternalID: "mc-123", Status: "COMPLETE",
		}))
	}

	rows, err := h.renditions.ListByAssetID(context.Background(), asset.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 5)
	assert.Len(t, h.producer.byType(events.TypePostApproved), 1)
}

func TestApplyJobNotificationFailurePublishesAndLeavesPostPending(t *testing.T) {
	h := newHarness(t)
	_, asset := videoPostWithAsset(h)

	_, err := h.svc.SubmitHLSJob(context.Background(), asset.ID)
	require.NoError(t, err)
	require.NoError(t, h.svc.ApplyJobNotification(context.Background(), JobNotification{
		ExternalID: "mc-123", Status: "ERROR", Error: "input corrupt",
	}))

	post, err := h.posts.GetByID(context.Background(), "post-1")
	require.NoError(t, err)
	assert.Equal(t, media.PostStatusPending, post.Status)
	assert.Len(t, h.producer.byType(events.TypeJobFailed), 1)

	jobs, _ := h.jobs.ListByAssetIDs(context.Background(), []string{asset.ID})
	require.Len(t, jobs, 1)
	assert.Equal(t, "input corrupt", jobs[0].Error)
}

func TestPublicationGateApprovesExactlyOnceUnderConcurrency(t *testing.T) {
	h := newHarness(t)
	post := &media.Post{ID: "post-img", OwnerID: "creator-1", PostType: media.PostTypeImage, Status: media.PostStatusPending}
	asset := &media.MediaAsset{ID: "asset-img", PostID: post.ID, Kind: media.AssetKindImages, Status: media.AssetStatusActive}
	h.posts.rows[post.ID] = post
	h.assets.rows[asset.ID] = asset
	require.NoError(t, h.renditions.Insert(context.Background(), &media.MediaRendition{
		ID: "r1", AssetID: asset.ID, Kind: media.RenditionKindImage1080W, StorageKey: "k",
	}))

	var wg sync.WaitGroup
	var mu sync.Mutex
	promotions := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			promoted, err := h.svc.RunPublicationGate(context.Background(), post.ID)
			assert.NoError(t, err)
			if promoted {
				mu.Lock()
				promotions++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, promotions)
	assert.Len(t, h.producer.byType(events.TypePostApproved), 1)
}

func TestPublicationGateBlocksOnPendingWork(t *testing.T) {
	h := newHarness(t)
	_, asset := videoPostWithAsset(h)
	_, err := h.svc.SubmitHLSJob(context.Background(), asset.ID)
	require.NoError(t, err)

	promoted, err := h.svc.RunPublicationGate(context.Background(), "post-1")
	require.NoError(t, err)
	assert.False(t, promoted)
}

func TestPublicationGateBlocksOnMissingRenditions(t *testing.T) {
	h := newHarness(t)
	post := &media.Post{ID: "post-img", PostType: media.PostTypeImage, Status: media.PostStatusPending}
	asset := &media.MediaAsset{ID: "asset-img", PostID: post.ID, Kind: media.AssetKindImages, Status: media.AssetStatusActive}
	h.posts.rows[post.ID] = post
	h.assets.rows[asset.ID] = asset

	promoted, err := h.svc.RunPublicationGate(context.Background(), post.ID)
	require.NoError(t, err)
	assert.False(t, promoted)
}

func TestPublicationGateNoOpOnAlreadyApproved(t *testing.T) {
	h := newHarness(t)
	h.posts.rows["p"] = &media.Post{ID: "p", PostType: media.PostTypeImage, Status: media.PostStatusApproved}

	promoted, err := h.svc.RunPublicationGate(context.Background(), "p")
	require.NoError(t, err)
	assert.False(t, promoted)
	assert.Empty(t, h.producer.events)
}

func TestConfirmUploadRejectsMissingObject(t *testing.T) {
	h := newHarness(t)
	h.posts.rows["post-1"] = &media.Post{ID: "post-1", PostType: media.PostTypeImage, Status: media.PostStatusPending}

	_, err := h.svc.ConfirmUpload(context.Background(), ConfirmRequest{
		PostID: "post-1", Kind: "images", Key: "post-media/images/c/post-1/x.jpg", ContentType: "image/jpeg",
	})
	require.ErrorIs(t, err, utils.ErrUploadNotFound)
}

func TestConfirmUploadSupersedesPriorThumbnail(t *testing.T) {
	h := newHarness(t)
	old := &media.MediaAsset{ID: "old", PostID: "post-1", Kind: media.AssetKindThumbnail, Status: media.AssetStatusActive}
	h.assets.rows[old.ID] = old
	h.gateway.objects["post-media/thumbnail/c/post-1/new.jpg"] = true

	asset, err := h.svc.ConfirmUpload(context.Background(), ConfirmRequest{
		PostID: "post-1", Kind: "thumbnail", Key: "post-media/thumbnail/c/post-1/new.jpg",
		ContentType: "image/jpeg", Bytes: 1234,
	})
	require.NoError(t, err)
	assert.Equal(t, media.AssetStatusActive, asset.Status)
	assert.Equal(t, "bucket-public", asset.StorageBucket)

	got, err := h.assets.GetByID(context.Background(), "old")
	require.NoError(t, err)
	assert.Equal(t, media.AssetStatusSuperseded, got.Status)
}

func TestIssueImageUploadSlotsGroupsByKind(t *testing.T) {
	h := newHarness(t)
	h.posts.rows["post-1"] = &media.Post{ID: "post-1", PostType: media.PostTypeImage, Status: media.PostStatusPending}

	uploads, err := h.svc.IssueImageUploadSlots(context.Background(), "creator-1", "post-1", []utils.UploadFileSpec{
		{Kind: "thumbnail", ContentType: "image/jpeg", Ext: "jpg"},
		{Kind: "images", ContentType: "image/png", Ext: "png"},
		{Kind: "images", ContentType: "image/webp", Ext: "webp"},
	})
	require.NoError(t, err)
	assert.Len(t, uploads["thumbnail"], 1)
	assert.Len(t, uploads["images"], 2)
	for _, up := range uploads["images"] {
		assert.Contains(t, up.Key, "post-media/images/creator-1/post-1/")
	}
}

func TestIssueImageUploadSlotsRejectsBadPair(t *testing.T) {
	h := newHarness(t)
	h.posts.rows["post-1"] = &media.Post{ID: "post-1", PostType: media.PostTypeImage, Status: media.PostStatusPending}

	_, err := h.svc.IssueImageUploadSlots(context.Background(), "creator-1", "post-1", []utils.UploadFileSpec{
		{Kind: "images", ContentType: "image/jpeg", Ext: "png"},
	})
	var verr *utils.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestProcessAssetDispatchesOnPostType(t *testing.T) {
	h := newHarness(t)
	post := &media.Post{ID: "post-img", PostType: media.PostTypeImage, Status: media.PostStatusPending}
	// the key says mp4 but the post type wins
	asset := &media.MediaAsset{ID: "a", PostID: post.ID, Kind: media.AssetKindImages,
		StorageKey: "post-media/images/c/post-img/x.mp4", Status: media.AssetStatusActive}
	h.posts.rows[post.ID] = post
	h.assets.rows[asset.ID] = asset

	require.NoError(t, h.svc.ProcessAsset(context.Background(), asset.ID, imagepipe.ProcessOptions{}))
	assert.Equal(t, 1, h.pipeline.calls)
	assert.Equal(t, 0, h.backend.submits)
}

func TestProcessImageAssetPublishesModerationRejection(t *testing.T) {
	h := newHarness(t)
	asset := &media.MediaAsset{ID: "a", PostID: "post-1", Kind: media.AssetKindImages, Status: media.AssetStatusActive}
	h.assets.rows[asset.ID] = asset
	h.pipeline.err = &imagepipe.ModerationRejectedError{}

	_, err := h.svc.ProcessImageAsset(context.Background(), asset.ID, imagepipe.ProcessOptions{})
	var rejected *imagepipe.ModerationRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Len(t, h.producer.byType(events.TypeModerationRejected), 1)
}

func TestReconcileStalePendingFailsLostSubmissions(t *testing.T) {
	h := newHarness(t)
	stale := &media.MediaRenditionJob{
		ID: "j-stale", AssetID: "a", Kind: media.JobKindHLSABR4,
		Status: media.JobStatusPending, UpdatedAt: time.Now().UTC().Add(-time.Hour),
	}
	h.jobs.rows[stale.ID] = stale

	n, err := h.svc.ReconcileStalePending(context.Background(), 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := h.jobs.GetByID(context.Background(), "j-stale")
	require.NoError(t, err)
	assert.Equal(t, media.JobStatusFailed, got.Status)
}

func TestSubmitJobUnimplementedBackendFailsJob(t *testing.T) {
	h := newHarness(t)
	_, asset := videoPostWithAsset(h)
	h.svc.cfg.JobBackend = media.JobBackendFargateFFmpeg

	_, err := h.svc.SubmitHLSJob(context.Background(), asset.ID)
	require.ErrorIs(t, err, utils.ErrUnknownBackend)
	assert.Equal(t, 0, h.backend.submits)

	jobs, _ := h.jobs.ListByAssetIDs(context.Background(), []string{asset.ID})
	require.Len(t, jobs, 1)
	assert.Equal(t, media.JobStatusFailed, jobs[0].Status)
}

func TestIssueAccountAssetSlot(t *testing.T) {
	h := newHarness(t)

	up, err := h.svc.IssueAccountAssetSlot(context.Background(), "creator-1", "avatar", "image/png", "png")
	require.NoError(t, err)
	assert.Contains(t, up.Key, "profiles/creator-1/avatar/")
	assert.True(t, strings.HasSuffix(up.Key, ".png"))

	_, err = h.svc.IssueAccountAssetSlot(context.Background(), "creator-1", "banner", "image/png", "png")
	var verr *utils.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestIssueIdentitySlotIsDeterministicPerSubmission(t *testing.T) {
	h := newHarness(t)

	first, err := h.svc.IssueIdentitySlot(context.Background(), "creator-1", "sub-9", "front", "image/jpeg", "jpg")
	require.NoError(t, err)
	second, err := h.svc.IssueIdentitySlot(context.Background(), "creator-1", "sub-9", "front", "image/jpeg", "jpg")
	require.NoError(t, err)

	// retries overwrite the same key instead of accumulating documents
	assert.Equal(t, "creator-1/identity/sub-9/front.jpg", first.Key)
	assert.Equal(t, first.Key, second.Key)
}

func TestGetDownloadURLUsesCache(t *testing.T) {
	h := newHarness(t)

	first, err := h.svc.GetDownloadURL(context.Background(), presign.ResourceMedia, "hls/x/master.m3u8", storage.GetOptions{})
	require.NoError(t, err)
	second, err := h.svc.GetDownloadURL(context.Background(), presign.ResourceMedia, "hls/x/master.m3u8", storage.GetOptions{})
	require.NoError(t, err)

	assert.Equal(t, first.DownloadURL, second.DownloadURL)
	assert.Equal(t, 1, h.cache.sets)
	assert.Equal(t, 600, second.ExpiresIn, "cache hits carry the remaining validity")
}

func TestApplyJobNotificationRetriesMaterializationBeforeCompleting(t *testing.T) {
	h := newHarness(t)
	_, asset := videoPostWithAsset(h)

	job, err := h.svc.SubmitHLSJob(context.Background(), asset.ID)
	require.NoError(t, err)

	// third rendition insert fails; the job must stay non-terminal so the
	// provider's redelivery can finish the row set
	h.renditions.failAt = 3
	err = h.svc.ApplyJobNotification(context.Background(), JobNotification{
		ExternalID: "mc-123", Status: "COMPLETE",
	})
	require.Error(t, err)

	got, err := h.jobs.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, media.JobStatusSubmitted, got.Status)
	assert.Empty(t, h.producer.byType(events.TypePostApproved))

	require.NoError(t, h.svc.ApplyJobNotification(context.Background(), JobNotification{
		ExternalID: "mc-123", Status: "COMPLETE",
	}))

	got, err = h.jobs.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, media.JobStatusComplete, got.Status)

	rows, err := h.renditions.ListByAssetID(context.Background(), asset.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 5, "redelivery fills in the failed row without duplicating the rest")
	assert.Len(t, h.producer.byType(events.TypePostApproved), 1)
}

func TestCreateVideoMultipartShardsRawKey(t *testing.T) {
	h := newHarness(t)

	mp, err := h.svc.CreateVideoMultipart(context.Background(), "creator-1", "capture.mp4", "video/mp4")
	require.NoError(t, err)
	assert.Equal(t, "mp-1", mp.UploadID)
	assert.Equal(t, presign.ResourceIngest, h.gateway.multipartRes)
	assert.Contains(t, mp.Key, "creator-1/videos/")
	assert.True(t, strings.HasSuffix(mp.Key, "/raw/capture.mp4"), mp.Key)

	_, err = h.svc.CreateVideoMultipart(context.Background(), "creator-1", "capture.mp4", "image/jpeg")
	var verr *utils.ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = h.svc.CreateVideoMultipart(context.Background(), "creator-1", "", "video/mp4")
	require.ErrorAs(t, err, &verr)
}

func TestSignVideoPartValidatesPartNumber(t *testing.T) {
	h := newHarness(t)

	up, err := h.svc.SignVideoPart(context.Background(), "c/videos/raw/x.mp4", "mp-1", 1)
	require.NoError(t, err)
	assert.NotEmpty(t, up.UploadURL)

	var verr *utils.ValidationError
	_, err = h.svc.SignVideoPart(context.Background(), "c/videos/raw/x.mp4", "mp-1", 0)
	require.ErrorAs(t, err, &verr)
	_, err = h.svc.SignVideoPart(context.Background(), "c/videos/raw/x.mp4", "mp-1", 10001)
	require.ErrorAs(t, err, &verr)
}

func TestCompleteVideoMultipartRejectsEmptyParts(t *testing.T) {
	h := newHarness(t)

	var verr *utils.ValidationError
	err := h.svc.CompleteVideoMultipart(context.Background(), "c/videos/raw/x.mp4", "mp-1", nil)
	require.ErrorAs(t, err, &verr)

	parts := []storage.CompletedPart{{PartNumber: 1, ETag: "e1"}}
	require.NoError(t, h.svc.CompleteVideoMultipart(context.Background(), "c/videos/raw/x.mp4", "mp-1", parts))
	assert.Equal(t, parts, h.gateway.completedParts)
}
