package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fathima-sithara/media-pipeline/internal/events"
	"github.com/fathima-sithara/media-pipeline/internal/imagepipe"
	"github.com/fathima-sithara/media-pipeline/internal/keygen"
	"github.com/fathima-sithara/media-pipeline/internal/media"
	"github.com/fathima-sithara/media-pipeline/internal/presign"
	"github.com/fathima-sithara/media-pipeline/internal/storage"
	"github.com/fathima-sithara/media-pipeline/internal/transcode"
	utils "github.com/fathima-sithara/media-pipeline/internal/utis"
)

// Persistence interfaces, satisfied by the repository package. Tests
// plug in fakes.

type AssetStore interface {
	Insert(ctx context.Context, a *media.MediaAsset) error
	GetByID(ctx context.Context, id string) (*media.MediaAsset, error)
	ListByPostID(ctx context.Context, postID string) ([]media.MediaAsset, error)
	Supersede(ctx context.Context, postID string, kind media.AssetKind, exceptID string) error
}

type RenditionStore interface {
	Insert(ctx context.Context, r *media.MediaRendition) error
	ListByAssetID(ctx context.Context, assetID string) ([]media.MediaRendition, error)
}

type JobStore interface {
	Insert(ctx context.Context, j *media.MediaRenditionJob) error
	GetByID(ctx context.Context, id string) (*media.MediaRenditionJob, error)
	GetByExternalID(ctx context.Context, externalID string) (*media.MediaRenditionJob, error)
	FindActiveByAssetAndKind(ctx context.Context, assetID string, kind media.JobKind) (*media.MediaRenditionJob, error)
	ListByAssetIDs(ctx context.Context, assetIDs []string) ([]media.MediaRenditionJob, error)
	ListStalePending(ctx context.Context, olderThan time.Time) ([]media.MediaRenditionJob, error)
	Transition(ctx context.Context, id string, next media.JobStatus, externalID *string, jobErr string) (bool, error)
}

type PostStore interface {
	GetByID(ctx context.Context, id string) (*media.Post, error)
	Promote(ctx context.Context, id string, from, to media.PostStatus) (bool, error)
}

type PresignGateway interface {
	PresignPut(ctx context.Context, res presign.Resource, key, contentType string) (*presign.Upload, error)
	PresignGet(ctx context.Context, res presign.Resource, key string, opt storage.GetOptions) (*presign.Download, error)
	Exists(ctx context.Context, res presign.Resource, key string) (bool, error)
	Bucket(res presign.Resource) (string, error)
	MultipartCreate(ctx context.Context, res presign.Resource, key, contentType string) (*presign.MultipartUpload, error)
	MultipartSignPart(ctx context.Context, res presign.Resource, key, uploadID string, partNumber int32) (*presign.Upload, error)
	MultipartComplete(ctx context.Context, res presign.Resource, key, uploadID string, parts []storage.CompletedPart) error
}

type ImageProcessor interface {
	Process(ctx context.Context, asset *media.MediaAsset, opts imagepipe.ProcessOptions) ([]media.MediaRendition, error)
}

type Publisher interface {
	Publish(ctx context.Context, ev events.Event) error
}

type URLCache interface {
	Get(ctx context.Context, objectKey string) (string, time.Duration, bool)
	Set(ctx context.Context, objectKey, url string)
}

// Config is the slice of service behaviour that comes from configuration.
// JobBackend zero-value defaults to MediaConvert; only MediaConvert is
// implemented, anything else fails the job at submission.
type Config struct {
	Env           string
	SubmitTimeout time.Duration
	JobBackend    media.JobBackend
}

type MediaService struct {
	assets     AssetStore
	renditions RenditionStore
	jobs       JobStore
	posts      PostStore
	gateway    PresignGateway
	pipeline   ImageProcessor
	builder    transcode.Builder
	backend    transcode.Backend
	producer   Publisher
	cache      URLCache
	cfg        Config
	log        *zap.SugaredLogger
}

func NewMediaService(
	assets AssetStore,
	renditions RenditionStore,
	jobs JobStore,
	posts PostStore,
	gateway PresignGateway,
	pipeline ImageProcessor,
	builder transcode.Builder,
	backend transcode.Backend,
	producer Publisher,
	cache URLCache,
	cfg Config,
	log *zap.SugaredLogger,
) *MediaService {
	return &MediaService{
		assets: assets, renditions: renditions, jobs: jobs, posts: posts,
		gateway: gateway, pipeline: pipeline, builder: builder, backend: backend,
		producer: producer, cache: cache, cfg: cfg, log: log,
	}
}

// resourceForKind routes each asset kind to its storage class: ogp and
// thumbnail are CDN-served, everything else lands in the private ingest
// bucket.
func resourceForKind(k media.AssetKind) presign.Resource {
	switch k {
	case media.AssetKindOGP, media.AssetKindThumbnail:
		return presign.ResourcePublic
	case media.AssetKindImages, media.AssetKindMainVideo, media.AssetKindSampleVideo:
		return presign.ResourceIngest
	}
	return presign.ResourceIngest
}

// IssueImageUploadSlots validates the declared files and returns one
// upload slot per file, grouped by kind. Multi-valued kinds (images)
// accumulate; single-valued kinds carry exactly one entry.
func (s *MediaService) IssueImageUploadSlots(ctx context.Context, callerID, postID string, files []utils.UploadFileSpec) (map[string][]presign.Upload, error) {
	kinds, err := utils.ValidateImageUploadSpecs(files)
	if err != nil {
		return nil, err
	}
	return s.issueSlots(ctx, callerID, postID, files, kinds, keygen.PostMediaImageKey)
}

// IssueVideoUploadSlots is the video counterpart; all video uploads go
// to the encrypted ingest bucket.
func (s *MediaService) IssueVideoUploadSlots(ctx context.Context, callerID, postID string, files []utils.UploadFileSpec) (map[string][]presign.Upload, error) {
	kinds, err := utils.ValidateVideoUploadSpecs(files)
	if err != nil {
		return nil, err
	}
	return s.issueSlots(ctx, callerID, postID, files, kinds, keygen.PostMediaVideoKey)
}

func (s *MediaService) issueSlots(ctx context.Context, callerID, postID string, files []utils.UploadFileSpec, kinds []media.AssetKind, keyFn func(kind, creatorID, postID, ext string) string) (map[string][]presign.Upload, error) {
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return nil, err
	}
	uploads := make(map[string][]presign.Upload, len(files))
	for i, f := range files {
		kind := kinds[i]
		key := keyFn(kind.String(), callerID, postID, f.Ext)
		up, err := s.gateway.PresignPut(ctx, resourceForKind(kind), key, f.ContentType)
		if err != nil {
			return nil, err
		}
		uploads[kind.String()] = append(uploads[kind.String()], *up)
	}
	return uploads, nil
}

var accountAssetKinds = map[string]bool{"avatar": true, "header": true}
var identityKinds = map[string]bool{"front": true, "back": true, "selfie": true}

// IssueAccountAssetSlot presigns a profile asset upload (avatar or
// header). Profile assets are CDN-served, so they go to the public
// bucket with the long-lived cache-control contract.
func (s *MediaService) IssueAccountAssetSlot(ctx context.Context, callerID, kind, contentType, ext string) (*presign.Upload, error) {
	if !accountAssetKinds[kind] {
		return nil, utils.Validationf("unsupported kind: %s", kind)
	}
	if err := utils.ValidateImagePair(contentType, ext); err != nil {
		return nil, err
	}
	key := keygen.AccountAssetKey(callerID, kind, ext)
	return s.gateway.PresignPut(ctx, presign.ResourcePublic, key, contentType)
}

// IssueIdentitySlot presigns a KYC document upload. Identity documents
// live in the dedicated kyc bucket under its own KMS key; the
// submission id makes retried uploads overwrite rather than accumulate.
func (s *MediaService) IssueIdentitySlot(ctx context.Context, callerID, submissionID, kind, contentType, ext string) (*presign.Upload, error) {
	if !identityKinds[kind] {
		return nil, utils.Validationf("unsupported kind: %s", kind)
	}
	if err := utils.ValidateImagePair(contentType, ext); err != nil {
		return nil, err
	}
	key := keygen.IdentityKey(callerID, submissionID, kind, ext)
	return s.gateway.PresignPut(ctx, presign.ResourceKYC, key, contentType)
}

// CreateVideoMultipart opens a multipart ingest upload for a raw video.
// Large captures go up in parts; the date-sharded raw key keeps repeated
// uploads of the same filename apart.
func (s *MediaService) CreateVideoMultipart(ctx context.Context, callerID, filename, contentType string) (*presign.MultipartUpload, error) {
	if filename == "" {
		return nil, utils.Validationf("filename is required")
	}
	if err := utils.ValidateVideoContentType(contentType); err != nil {
		return nil, err
	}
	key := keygen.RawVideoKey(callerID, filename)
	return s.gateway.MultipartCreate(ctx, presign.ResourceIngest, key, contentType)
}

// SignVideoPart signs one part PUT of an open multipart upload.
func (s *MediaService) SignVideoPart(ctx context.Context, key, uploadID string, partNumber int32) (*presign.Upload, error) {
	// S3 part numbers run 1..10000
	if partNumber < 1 || partNumber > 10000 {
		return nil, utils.Validationf("part number %d out of range", partNumber)
	}
	if key == "" || uploadID == "" {
		return nil, utils.Validationf("key and upload_id are required")
	}
	return s.gateway.MultipartSignPart(ctx, presign.ResourceIngest, key, uploadID, partNumber)
}

// CompleteVideoMultipart assembles the uploaded parts into the raw object.
func (s *MediaService) CompleteVideoMultipart(ctx context.Context, key, uploadID string, parts []storage.CompletedPart) error {
	if key == "" || uploadID == "" {
		return utils.Validationf("key and upload_id are required")
	}
	if len(parts) == 0 {
		return utils.Validationf("no parts reported")
	}
	return s.gateway.MultipartComplete(ctx, presign.ResourceIngest, key, uploadID, parts)
}

// ConfirmRequest reports a finished client-side PUT.
type ConfirmRequest struct {
	PostID      string `json:"post_id"`
	Kind        string `json:"kind"`
	Key         string `json:"key"`
	ContentType string `json:"content_type"`
	Bytes       int64  `json:"bytes"`
}

// ConfirmUpload head-checks the key before trusting it, then records the
// asset. Earlier active assets of a single-valued kind are superseded.
func (s *MediaService) ConfirmUpload(ctx context.Context, req ConfirmRequest) (*media.MediaAsset, error) {
	kind, err := media.ParseAssetKind(req.Kind)
	if err != nil {
		return nil, utils.Validationf("unsupported kind: %s", req.Kind)
	}
	res := resourceForKind(kind)

	ok, err := s.gateway.Exists(ctx, res, req.Key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, utils.ErrUploadNotFound
	}

	bucket, err := s.gateway.Bucket(res)
	if err != nil {
		return nil, err
	}
	asset := &media.MediaAsset{
		ID:            uuid.NewString(),
		PostID:        req.PostID,
		Kind:          kind,
		StorageBucket: bucket,
		StorageKey:    req.Key,
		MimeType:      req.ContentType,
		Bytes:         req.Bytes,
		Status:        media.AssetStatusActive,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.assets.Insert(ctx, asset); err != nil {
		return nil, err
	}
	if !kind.MultiValued() {
		if err := s.assets.Supersede(ctx, req.PostID, kind, asset.ID); err != nil {
			s.log.Warnw("supersede failed", "post_id", req.PostID, "kind", kind.String(), "error", err)
		}
	}
	return asset, nil
}

// ProcessImageAsset runs the still-image pipeline for a confirmed asset.
func (s *MediaService) ProcessImageAsset(ctx context.Context, assetID string, opts imagepipe.ProcessOptions) ([]media.MediaRendition, error) {
	asset, err := s.assets.GetByID(ctx, assetID)
	if err != nil {
		return nil, err
	}
	renditions, err := s.pipeline.Process(ctx, asset, opts)

	var rejected *imagepipe.ModerationRejectedError
	if errors.As(err, &rejected) {
		names := make([]string, len(rejected.Labels))
		for i, l := range rejected.Labels {
			names[i] = l.Name
		}
		if perr := s.producer.Publish(ctx, events.Event{
			Type: events.TypeModerationRejected, PostID: asset.PostID, AssetID: asset.ID, Labels: names,
		}); perr != nil {
			s.log.Warnw("publish moderation event failed", "asset_id", asset.ID, "error", perr)
		}
	}
	if err != nil {
		return nil, err
	}
	return renditions, nil
}

// ProcessAsset dispatches on the owning post's type: image posts run the
// pixel pipeline, video posts get the HLS ladder. The file extension is
// never consulted.
func (s *MediaService) ProcessAsset(ctx context.Context, assetID string, opts imagepipe.ProcessOptions) error {
	asset, err := s.assets.GetByID(ctx, assetID)
	if err != nil {
		return err
	}
	post, err := s.posts.GetByID(ctx, asset.PostID)
	if err != nil {
		return err
	}
	switch post.PostType {
	case media.PostTypeImage:
		_, err = s.ProcessImageAsset(ctx, assetID, opts)
		return err
	case media.PostTypeVideo:
		_, err = s.SubmitHLSJob(ctx, assetID)
		return err
	}
	return fmt.Errorf("unhandled post type %s", post.PostType)
}

// SubmitPreviewJob submits a single fixed-bitrate MP4 preview.
func (s *MediaService) SubmitPreviewJob(ctx context.Context, assetID string) (*media.MediaRenditionJob, error) {
	return s.submitJob(ctx, assetID, media.JobKindPreviewMP4)
}

// SubmitHLSJob submits the four-rung adaptive ladder.
func (s *MediaService) SubmitHLSJob(ctx context.Context, assetID string) (*media.MediaRenditionJob, error) {
	return s.submitJob(ctx, assetID, media.JobKindHLSABR4)
}

// submitJob persists intent before calling the backend: the PENDING row
// is committed first, the external call happens outside any transaction
// with a bounded timeout, and the outcome lands in a second write. A
// non-FAILED job of the same kind short-circuits as a duplicate so the
// paid backend is never double-billed.
func (s *MediaService) submitJob(ctx context.Context, assetID string, kind media.JobKind) (*media.MediaRenditionJob, error) {
	asset, err := s.assets.GetByID(ctx, assetID)
	if err != nil {
		return nil, err
	}
	post, err := s.posts.GetByID(ctx, asset.PostID)
	if err != nil {
		return nil, err
	}

	existing, err := s.jobs.FindActiveByAssetAndKind(ctx, assetID, kind)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, utils.ErrDuplicateJob
	}

	backend := s.cfg.JobBackend
	if backend == 0 {
		backend = media.JobBackendMediaConvert
	}
	job := &media.MediaRenditionJob{
		ID:       uuid.NewString(),
		AssetID:  asset.ID,
		Kind:     kind,
		InputKey: asset.StorageKey,
		Backend:  backend,
		Status:   media.JobStatusPending,
	}
	switch kind {
	case media.JobKindPreviewMP4:
		job.OutputKey = keygen.TranscodeOutputKey(post.OwnerID, post.ID, asset.ID)
	case media.JobKindHLSABR4:
		job.OutputPrefix = keygen.HLSOutputPrefix(post.OwnerID, post.ID, asset.ID)
	}
	if err := s.jobs.Insert(ctx, job); err != nil {
		return nil, err
	}
	if job.Backend != media.JobBackendMediaConvert {
		return s.failJob(ctx, job, fmt.Errorf("%w: %s", utils.ErrUnknownBackend, job.Backend))
	}

	usermeta := map[string]string{
		"postId":  post.ID,
		"assetId": asset.ID,
		"jobId":   job.ID,
		"type":    kind.String(),
		"env":     s.cfg.Env,
	}
	spec, err := s.buildSpec(job, usermeta)
	if err != nil {
		return s.failJob(ctx, job, err)
	}

	submitCtx, cancel := context.WithTimeout(ctx, s.cfg.SubmitTimeout)
	defer cancel()
	externalID, err := s.backend.SubmitJob(submitCtx, spec)
	if err != nil {
		return s.failJob(ctx, job, err)
	}

	if _, err := s.jobs.Transition(ctx, job.ID, media.JobStatusSubmitted, &externalID, ""); err != nil {
		return nil, err
	}
	job.Status = media.JobStatusSubmitted
	job.JobID = &externalID
	s.log.Infow("rendition job submitted",
		"job_id", job.ID, "external_id", externalID, "kind", kind.String(), "asset_id", asset.ID)
	return job, nil
}

func (s *MediaService) buildSpec(job *media.MediaRenditionJob, usermeta map[string]string) (transcode.JobSpec, error) {
	switch job.Kind {
	case media.JobKindPreviewMP4:
		return s.builder.PreviewMP4(job.InputKey, job.OutputKey, usermeta)
	case media.JobKindHLSABR4:
		return s.builder.HLSABR4(job.InputKey, job.OutputPrefix, usermeta)
	}
	return transcode.JobSpec{}, fmt.Errorf("unhandled job kind %s", job.Kind)
}

func (s *MediaService) failJob(ctx context.Context, job *media.MediaRenditionJob, cause error) (*media.MediaRenditionJob, error) {
	s.log.Errorw("rendition job submission failed", "job_id", job.ID, "error", cause)
	if _, terr := s.jobs.Transition(ctx, job.ID, media.JobStatusFailed, nil, cause.Error()); terr != nil {
		s.log.Errorw("marking job failed also failed", "job_id", job.ID, "error", terr)
	}
	job.Status = media.JobStatusFailed
	return nil, fmt.Errorf("submit rendition job: %w", cause)
}

// JobNotification is a provider status callback, correlated by the
// external job id (or the local id echoed through user metadata).
type JobNotification struct {
	JobID      string `json:"job_id"`
	ExternalID string `json:"external_id"`
	Status     string `json:"status"`
	Error      string `json:"error"`
}

// ApplyJobNotification advances the job from a provider callback.
// Duplicate and out-of-order deliveries degrade to no-ops through the
// conditional transition; completions materialize rendition rows and
// kick the publication gate.
func (s *MediaService) ApplyJobNotification(ctx context.Context, n JobNotification) error {
	job, err := s.lookupJob(ctx, n)
	if err != nil {
		return err
	}

	next, err := parseProviderStatus(n.Status)
	if err != nil {
		return utils.Validationf("%v", err)
	}

	asset, err := s.assets.GetByID(ctx, job.AssetID)
	if err != nil {
		return err
	}

	// Rendition rows are materialized before the terminal write. The
	// inserts are idempotent upserts, so if one fails the provider's
	// redelivery finds the job still non-terminal and retries the rest.
	if next == media.JobStatusComplete && job.Status.CanTransition(next) {
		if err := s.recordJobRenditions(ctx, job, asset); err != nil {
			return err
		}
	}

	moved, err := s.jobs.Transition(ctx, job.ID, next, nil, n.Error)
	if err != nil {
		return err
	}
	if !moved {
		s.log.Debugw("stale or duplicate job notification ignored",
			"job_id", job.ID, "status", next.String(), "current", job.Status.String())
		return nil
	}

	switch next {
	case media.JobStatusComplete:
		if err := s.producer.Publish(ctx, events.Event{
			Type: events.TypeRenditionReady, PostID: asset.PostID, AssetID: asset.ID, JobID: job.ID,
		}); err != nil {
			s.log.Warnw("publish rendition event failed", "job_id", job.ID, "error", err)
		}
		if _, err := s.RunPublicationGate(ctx, asset.PostID); err != nil {
			s.log.Errorw("publication gate failed", "post_id", asset.PostID, "error", err)
		}
	case media.JobStatusFailed:
		if err := s.producer.Publish(ctx, events.Event{
			Type: events.TypeJobFailed, PostID: asset.PostID, AssetID: asset.ID, JobID: job.ID,
		}); err != nil {
			s.log.Warnw("publish failure event failed", "job_id", job.ID, "error", err)
		}
	case media.JobStatusProgressing, media.JobStatusSubmitted, media.JobStatusPending:
		// nothing to materialize
	}
	return nil
}

func (s *MediaService) lookupJob(ctx context.Context, n JobNotification) (*media.MediaRenditionJob, error) {
	if n.JobID != "" {
		return s.jobs.GetByID(ctx, n.JobID)
	}
	if n.ExternalID != "" {
		return s.jobs.GetByExternalID(ctx, n.ExternalID)
	}
	return nil, utils.Validationf("notification carries no job reference")
}

func parseProviderStatus(s string) (media.JobStatus, error) {
	switch strings.ToUpper(s) {
	case "PROGRESSING":
		return media.JobStatusProgressing, nil
	case "COMPLETE":
		return media.JobStatusComplete, nil
	case "ERROR", "FAILED":
		return media.JobStatusFailed, nil
	}
	return 0, fmt.Errorf("unknown provider status %q", s)
}

// recordJobRenditions writes one row per artifact the finished job
// produced. Keys derive deterministically from the job's destination and
// the input stem, matching the backend's naming.
func (s *MediaService) recordJobRenditions(ctx context.Context, job *media.MediaRenditionJob, asset *media.MediaAsset) error {
	stem := inputStem(job.InputKey)
	var rows []media.MediaRendition
	switch job.Kind {
	case media.JobKindPreviewMP4:
		dir := job.OutputKey
		if i := strings.LastIndex(dir, "/"); i >= 0 {
			dir = dir[:i]
		}
		rows = append(rows, media.MediaRendition{
			ID: uuid.NewString(), AssetID: asset.ID, Kind: media.RenditionKindPreviewMP4,
			StorageKey: fmt.Sprintf("%s/%s_preview.mp4", dir, stem), MimeType: "video/mp4",
		})
	case media.JobKindHLSABR4:
		rows = append(rows, media.MediaRendition{
			ID: uuid.NewString(), AssetID: asset.ID, Kind: media.RenditionKindHLSMaster,
			StorageKey: job.OutputPrefix + stem + ".m3u8", MimeType: "application/vnd.apple.mpegurl",
		})
		variants := []struct {
			kind     media.RenditionKind
			modifier string
			w, h     int
		}{
			{media.RenditionKindHLSVariant360P, "_360p", 640, 360},
			{media.RenditionKindHLSVariant480P, "_480p", 854, 480},
			{media.RenditionKindHLSVariant720P, "_720p", 1280, 720},
			{media.RenditionKindHLSVariant1080P, "_1080p", 1920, 1080},
		}
		for _, v := range variants {
			w, h := v.w, v.h
			rows = append(rows, media.MediaRendition{
				ID: uuid.NewString(), AssetID: asset.ID, Kind: v.kind,
				StorageKey: job.OutputPrefix + stem + v.modifier + ".m3u8",
				MimeType:   "application/vnd.apple.mpegurl",
				Width:      &w, Height: &h,
			})
		}
	}
	for i := range rows {
		rows[i].CreatedAt = time.Now().UTC()
		if err := s.renditions.Insert(ctx, &rows[i]); err != nil {
			return fmt.Errorf("record rendition %s: %w", rows[i].StorageKey, err)
		}
	}
	return nil
}

func inputStem(inputKey string) string {
	base := inputKey
	if i := strings.LastIndex(base, "/"); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	return base
}

// RunPublicationGate promotes the post to APPROVED once everything it
// needs is ready. Safe to run repeatedly and concurrently: the promote
// is a single conditional write, so the status changes exactly once. A
// FAILED job leaves the post PENDING for manual review.
func (s *MediaService) RunPublicationGate(ctx context.Context, postID string) (bool, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return false, err
	}
	if post.Status != media.PostStatusPending {
		return false, nil
	}

	assets, err := s.assets.ListByPostID(ctx, postID)
	if err != nil {
		return false, err
	}
	if len(assets) == 0 {
		return false, nil
	}

	ready, err := s.postIsReady(ctx, post, assets)
	if err != nil || !ready {
		return false, err
	}

	promoted, err := s.posts.Promote(ctx, postID, media.PostStatusPending, media.PostStatusApproved)
	if err != nil {
		return false, err
	}
	if promoted {
		s.log.Infow("post approved", "post_id", postID)
		if err := s.producer.Publish(ctx, events.Event{Type: events.TypePostApproved, PostID: postID}); err != nil {
			s.log.Warnw("publish approval event failed", "post_id", postID, "error", err)
		}
	}
	return promoted, nil
}

func (s *MediaService) postIsReady(ctx context.Context, post *media.Post, assets []media.MediaAsset) (bool, error) {
	ids := make([]string, len(assets))
	for i, a := range assets {
		ids[i] = a.ID
	}
	jobs, err := s.jobs.ListByAssetIDs(ctx, ids)
	if err != nil {
		return false, err
	}
	for _, j := range jobs {
		switch j.Status {
		case media.JobStatusFailed:
			return false, nil
		case media.JobStatusPending, media.JobStatusSubmitted, media.JobStatusProgressing:
			return false, nil
		case media.JobStatusComplete:
		}
	}

	switch post.PostType {
	case media.PostTypeVideo:
		// at least one completed job must cover each video asset
		completed := make(map[string]bool)
		for _, j := range jobs {
			if j.Status == media.JobStatusComplete {
				completed[j.AssetID] = true
			}
		}
		for _, a := range assets {
			switch a.Kind {
			case media.AssetKindMainVideo, media.AssetKindSampleVideo:
				if !completed[a.ID] {
					return false, nil
				}
			case media.AssetKindOGP, media.AssetKindThumbnail, media.AssetKindImages:
				// stills attached to a video post gate on renditions below
				ok, err := s.hasRenditions(ctx, a.ID)
				if err != nil || !ok {
					return ok, err
				}
			}
		}
		return true, nil
	case media.PostTypeImage:
		for _, a := range assets {
			ok, err := s.hasRenditions(ctx, a.ID)
			if err != nil || !ok {
				return ok, err
			}
		}
		return true, nil
	}
	return false, fmt.Errorf("unhandled post type %s", post.PostType)
}

func (s *MediaService) hasRenditions(ctx context.Context, assetID string) (bool, error) {
	renditions, err := s.renditions.ListByAssetID(ctx, assetID)
	if err != nil {
		return false, err
	}
	return len(renditions) > 0, nil
}

// ReconcileStalePending fails PENDING rows whose submission outcome was
// lost (crash between the intent write and the outcome write). Late
// provider notifications for them are ignored by the terminal state.
func (s *MediaService) ReconcileStalePending(ctx context.Context, olderThan time.Duration) (int, error) {
	stale, err := s.jobs.ListStalePending(ctx, time.Now().UTC().Add(-olderThan))
	if err != nil {
		return 0, err
	}
	n := 0
	for _, j := range stale {
		moved, err := s.jobs.Transition(ctx, j.ID, media.JobStatusFailed, nil, "submission outcome unknown")
		if err != nil {
			return n, err
		}
		if moved {
			n++
			s.log.Warnw("stale pending job failed by sweep", "job_id", j.ID)
		}
	}
	return n, nil
}

// GetDownloadURL signs (or serves from cache) a GET for a stored object.
func (s *MediaService) GetDownloadURL(ctx context.Context, res presign.Resource, key string, opt storage.GetOptions) (*presign.Download, error) {
	if url, ttl, ok := s.cache.Get(ctx, key); ok {
		return &presign.Download{DownloadURL: url, ExpiresIn: int(ttl.Seconds())}, nil
	}
	dl, err := s.gateway.PresignGet(ctx, res, key, opt)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, key, dl.DownloadURL)
	return dl, nil
}
