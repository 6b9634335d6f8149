package media

import "fmt"

// AssetKind identifies the role an uploaded file plays for its post.
type AssetKind uint8

const (
	AssetKindOGP AssetKind = iota + 1
	AssetKindThumbnail
	AssetKindImages
	AssetKindMainVideo
	AssetKindSampleVideo
)

func (k AssetKind) String() string {
	switch k {
	case AssetKindOGP:
		return "ogp"
	case AssetKindThumbnail:
		return "thumbnail"
	case AssetKindImages:
		return "images"
	case AssetKindMainVideo:
		return "main"
	case AssetKindSampleVideo:
		return "sample"
	}
	return fmt.Sprintf("asset_kind(%d)", uint8(k))
}

// ParseAssetKind maps the wire name used by upload requests to the enum.
func ParseAssetKind(s string) (AssetKind, error) {
	switch s {
	case "ogp":
		return AssetKindOGP, nil
	case "thumbnail":
		return AssetKindThumbnail, nil
	case "images":
		return AssetKindImages, nil
	case "main":
		return AssetKindMainVideo, nil
	case "sample":
		return AssetKindSampleVideo, nil
	}
	return 0, fmt.Errorf("unknown asset kind %q", s)
}

// MultiValued reports whether more than one file of this kind may be
// declared in a single upload request.
func (k AssetKind) MultiValued() bool {
	switch k {
	case AssetKindImages:
		return true
	case AssetKindOGP, AssetKindThumbnail, AssetKindMainVideo, AssetKindSampleVideo:
		return false
	}
	return false
}

// AssetStatus tracks whether an asset is the current source for its kind.
type AssetStatus uint8

const (
	AssetStatusActive AssetStatus = iota + 1
	AssetStatusSuperseded
)

func (s AssetStatus) String() string {
	switch s {
	case AssetStatusActive:
		return "active"
	case AssetStatusSuperseded:
		return "superseded"
	}
	return fmt.Sprintf("asset_status(%d)", uint8(s))
}

// JobKind names the rendition work submitted to the transcoding backend.
type JobKind uint8

const (
	JobKindPreviewMP4 JobKind = iota + 1
	JobKindHLSABR4
)

func (k JobKind) String() string {
	switch k {
	case JobKindPreviewMP4:
		return "preview_mp4"
	case JobKindHLSABR4:
		return "hls_abr4"
	}
	return fmt.Sprintf("job_kind(%d)", uint8(k))
}

// JobBackend names the engine that executes a rendition job.
type JobBackend uint8

const (
	JobBackendMediaConvert JobBackend = iota + 1
	JobBackendFargateFFmpeg
)

// ParseJobBackend maps the configured backend name to the enum.
func ParseJobBackend(s string) (JobBackend, error) {
	switch s {
	case "mediaconvert":
		return JobBackendMediaConvert, nil
	case "fargate_ffmpeg":
		return JobBackendFargateFFmpeg, nil
	}
	return 0, fmt.Errorf("unknown job backend %q", s)
}

func (b JobBackend) String() string {
	switch b {
	case JobBackendMediaConvert:
		return "mediaconvert"
	case JobBackendFargateFFmpeg:
		return "fargate_ffmpeg"
	}
	return fmt.Sprintf("job_backend(%d)", uint8(b))
}

// JobStatus is the lifecycle state of a rendition job. Transitions only
// move forward; COMPLETE and FAILED absorb everything after them.
type JobStatus uint8

const (
	JobStatusPending JobStatus = iota + 1
	JobStatusSubmitted
	JobStatusProgressing
	JobStatusComplete
	JobStatusFailed
)

func (s JobStatus) String() string {
	switch s {
	case JobStatusPending:
		return "pending"
	case JobStatusSubmitted:
		return "submitted"
	case JobStatusProgressing:
		return "progressing"
	case JobStatusComplete:
		return "complete"
	case JobStatusFailed:
		return "failed"
	}
	return fmt.Sprintf("job_status(%d)", uint8(s))
}

// Terminal reports whether no further transition is accepted from s.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusComplete, JobStatusFailed:
		return true
	case JobStatusPending, JobStatusSubmitted, JobStatusProgressing:
		return false
	}
	return false
}

// CanTransition reports whether moving from s to next is a legal forward
// step. A terminal state never transitions; FAILED is reachable from any
// non-terminal state.
func (s JobStatus) CanTransition(next JobStatus) bool {
	if s.Terminal() {
		return false
	}
	switch next {
	case JobStatusSubmitted:
		return s == JobStatusPending
	case JobStatusProgressing:
		return s == JobStatusSubmitted
	case JobStatusComplete:
		return s == JobStatusSubmitted || s == JobStatusProgressing
	case JobStatusFailed:
		return true
	case JobStatusPending:
		return false
	}
	return false
}

// TransitionSources returns every status from which next is reachable.
// Used by the repository to build conditional updates.
func TransitionSources(next JobStatus) []JobStatus {
	all := []JobStatus{JobStatusPending, JobStatusSubmitted, JobStatusProgressing, JobStatusComplete, JobStatusFailed}
	var from []JobStatus
	for _, s := range all {
		if s.CanTransition(next) {
			from = append(from, s)
		}
	}
	return from
}

// RenditionKind names a derived artifact.
type RenditionKind uint8

const (
	RenditionKindHLSMaster RenditionKind = iota + 1
	RenditionKindHLSVariant360P
	RenditionKindHLSVariant480P
	RenditionKindHLSVariant720P
	RenditionKindHLSVariant1080P
	RenditionKindPreviewMP4
	RenditionKindImageOriginal
	RenditionKindImage1080W
	RenditionKindImageThumb
	RenditionKindImageMosaic
	RenditionKindImageMosaicThumb
)

func (k RenditionKind) String() string {
	switch k {
	case RenditionKindHLSMaster:
		return "hls_master"
	case RenditionKindHLSVariant360P:
		return "hls_360p"
	case RenditionKindHLSVariant480P:
		return "hls_480p"
	case RenditionKindHLSVariant720P:
		return "hls_720p"
	case RenditionKindHLSVariant1080P:
		return "hls_1080p"
	case RenditionKindPreviewMP4:
		return "preview_mp4"
	case RenditionKindImageOriginal:
		return "image_original"
	case RenditionKindImage1080W:
		return "image_1080w"
	case RenditionKindImageThumb:
		return "image_thumb"
	case RenditionKindImageMosaic:
		return "image_mosaic"
	case RenditionKindImageMosaicThumb:
		return "image_mosaic_thumb"
	}
	return fmt.Sprintf("rendition_kind(%d)", uint8(k))
}

// PostType decides which processing path an asset takes.
type PostType uint8

const (
	PostTypeVideo PostType = iota + 1
	PostTypeImage
)

func (t PostType) String() string {
	switch t {
	case PostTypeVideo:
		return "video"
	case PostTypeImage:
		return "image"
	}
	return fmt.Sprintf("post_type(%d)", uint8(t))
}

// PostStatus mirrors the post table owned by the CRUD layer. The
// publication gate only ever moves PENDING to APPROVED.
type PostStatus uint8

const (
	PostStatusPending     PostStatus = 1
	PostStatusRejected    PostStatus = 2
	PostStatusUnpublished PostStatus = 3
	PostStatusDeleted     PostStatus = 4
	PostStatusApproved    PostStatus = 5
)

func (s PostStatus) String() string {
	switch s {
	case PostStatusPending:
		return "pending"
	case PostStatusRejected:
		return "rejected"
	case PostStatusUnpublished:
		return "unpublished"
	case PostStatusDeleted:
		return "deleted"
	case PostStatusApproved:
		return "approved"
	}
	return fmt.Sprintf("post_status(%d)", uint8(s))
}
