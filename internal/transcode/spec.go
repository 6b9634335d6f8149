// Package transcode builds typed job specifications for the external
// transcoding backend and submits them. Specs are plain values validated
// before they are translated to the backend's wire format.
package transcode

import (
	"fmt"
	"strings"

	"github.com/fathima-sithara/media-pipeline/internal/media"
)

// Rung is one rendition in a ladder (or the single output of a preview).
type Rung struct {
	Height       int32
	Width        int32
	MaxBitrate   int32
	AudioBitrate int32
	NameModifier string
	Profile      string
}

// JobSpec fully describes one backend submission. Exactly one of
// OutputKey (single file) or OutputPrefix (directory, trailing slash)
// is set, depending on Kind.
type JobSpec struct {
	Kind         media.JobKind
	InputBucket  string
	InputKey     string
	OutputBucket string
	OutputKey    string
	OutputPrefix string
	SegmentSec   int32
	Rungs        []Rung
	UserMetadata map[string]string
	Tags         map[string]string
}

// Validate enforces the invariants the backend will not check for us.
func (s JobSpec) Validate() error {
	if s.InputBucket == "" || s.InputKey == "" {
		return fmt.Errorf("job spec: input not set")
	}
	if s.OutputBucket == "" {
		return fmt.Errorf("job spec: output bucket not set")
	}
	if len(s.Rungs) == 0 {
		return fmt.Errorf("job spec: no output rungs")
	}
	switch s.Kind {
	case media.JobKindPreviewMP4:
		if s.OutputKey == "" {
			return fmt.Errorf("job spec: preview requires an output key")
		}
	case media.JobKindHLSABR4:
		if !strings.HasSuffix(s.OutputPrefix, "/") {
			return fmt.Errorf("job spec: hls output prefix must end in /")
		}
		if s.SegmentSec <= 0 {
			return fmt.Errorf("job spec: hls segment length not set")
		}
	default:
		return fmt.Errorf("job spec: unknown kind %s", s.Kind)
	}
	return nil
}

// Builder binds the bucket topology so call sites only supply keys.
type Builder struct {
	IngestBucket string
	MediaBucket  string
}

// PreviewMP4 is a single fixed-quality 480p MP4 used as a teaser clip.
func (b Builder) PreviewMP4(inputKey, outputKey string, usermeta map[string]string) (JobSpec, error) {
	spec := JobSpec{
		Kind:         media.JobKindPreviewMP4,
		InputBucket:  b.IngestBucket,
		InputKey:     inputKey,
		OutputBucket: b.MediaBucket,
		OutputKey:    outputKey,
		Rungs: []Rung{
			{Height: 480, Width: 854, MaxBitrate: 1_200_000, AudioBitrate: 96_000, NameModifier: "_preview", Profile: "HIGH"},
		},
		UserMetadata: usermeta,
		Tags:         map[string]string{"type": "preview"},
	}
	if err := spec.Validate(); err != nil {
		return JobSpec{}, err
	}
	return spec, nil
}

// HLSABR4 is the four-rung adaptive ladder with 6-second segments. The
// output prefix is normalized to end in a path separator so the backend
// treats it as a directory.
func (b Builder) HLSABR4(inputKey, outputPrefix string, usermeta map[string]string) (JobSpec, error) {
	spec := JobSpec{
		Kind:         media.JobKindHLSABR4,
		InputBucket:  b.IngestBucket,
		InputKey:     inputKey,
		OutputBucket: b.MediaBucket,
		OutputPrefix: strings.TrimRight(outputPrefix, "/") + "/",
		SegmentSec:   6,
		Rungs: []Rung{
			{Height: 360, Width: 640, MaxBitrate: 800_000, AudioBitrate: 96_000, NameModifier: "_360p", Profile: "HIGH"},
			{Height: 480, Width: 854, MaxBitrate: 1_200_000, AudioBitrate: 96_000, NameModifier: "_480p", Profile: "HIGH"},
			{Height: 720, Width: 1280, MaxBitrate: 2_500_000, AudioBitrate: 128_000, NameModifier: "_720p", Profile: "HIGH"},
			{Height: 1080, Width: 1920, MaxBitrate: 4_500_000, AudioBitrate: 128_000, NameModifier: "_1080p", Profile: "HIGH"},
		},
		UserMetadata: usermeta,
		Tags:         map[string]string{"type": "final-hls"},
	}
	if err := spec.Validate(); err != nil {
		return JobSpec{}, err
	}
	return spec, nil
}
