package transcode

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fathima-sithara/media-pipeline/internal/media"
)

var testBuilder = Builder{IngestBucket: "ingest-bkt", MediaBucket: "media-bkt"}

func TestPreviewMP4Spec(t *testing.T) {
	spec, err := testBuilder.PreviewMP4("c/videos/raw/in.mp4", "transcode-mc/c/p/a/out.mp4",
		map[string]string{"postId": "p"})
	require.NoError(t, err)

	assert.Equal(t, media.JobKindPreviewMP4, spec.Kind)
	assert.Equal(t, "ingest-bkt", spec.InputBucket)
	assert.Equal(t, "media-bkt", spec.OutputBucket)
	require.Len(t, spec.Rungs, 1)
	assert.Equal(t, int32(480), spec.Rungs[0].Height)
	assert.Equal(t, int32(1_200_000), spec.Rungs[0].MaxBitrate)
	assert.Equal(t, "HIGH", spec.Rungs[0].Profile)
	assert.Equal(t, "p", spec.UserMetadata["postId"])
}

func TestHLSABR4SpecLadder(t *testing.T) {
	spec, err := testBuilder.HLSABR4("in.mp4", "hls/c/p/a/x", nil)
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(spec.OutputPrefix, "/"), "prefix must end in a path separator")
	assert.Equal(t, int32(6), spec.SegmentSec)
	require.Len(t, spec.Rungs, 4)

	heights := []int32{spec.Rungs[0].Height, spec.Rungs[1].Height, spec.Rungs[2].Height, spec.Rungs[3].Height}
	assert.Equal(t, []int32{360, 480, 720, 1080}, heights)
	for _, r := range spec.Rungs {
		assert.Equal(t, "HIGH", r.Profile)
	}
	assert.Equal(t, "_1080p", spec.Rungs[3].NameModifier)
}

func TestHLSABR4SpecDoesNotDoubleSlash(t *testing.T) {
	spec, err := testBuilder.HLSABR4("in.mp4", "hls/c/p/a/x/", nil)
	require.NoError(t, err)
	assert.False(t, strings.HasSuffix(spec.OutputPrefix, "//"))
}

func TestValidateRejectsBadSpecs(t *testing.T) {
	spec, err := testBuilder.PreviewMP4("in.mp4", "out/preview.mp4", nil)
	require.NoError(t, err)

	missingInput := spec
	missingInput.InputKey = ""
	assert.Error(t, missingInput.Validate())

	missingOutput := spec
	missingOutput.OutputKey = ""
	assert.Error(t, missingOutput.Validate())

	hls := spec
	hls.Kind = media.JobKindHLSABR4
	hls.OutputPrefix = "no-trailing-slash"
	hls.SegmentSec = 6
	assert.Error(t, hls.Validate())
}
