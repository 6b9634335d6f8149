package transcode

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/mediaconvert"
	mctypes "github.com/aws/aws-sdk-go-v2/service/mediaconvert/types"

	"github.com/fathima-sithara/media-pipeline/internal/media"
)

// Backend submits a job spec to the external transcoding engine and
// returns its external job id.
type Backend interface {
	SubmitJob(ctx context.Context, spec JobSpec) (string, error)
}

// MediaConvertBackend translates JobSpecs to AWS Elemental MediaConvert
// CreateJob documents.
type MediaConvertBackend struct {
	client       *mediaconvert.Client
	roleARN      string
	outputKMSARN string
}

func NewMediaConvertBackend(cfg aws.Config, endpoint, roleARN, outputKMSARN string) *MediaConvertBackend {
	client := mediaconvert.NewFromConfig(cfg, func(o *mediaconvert.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return &MediaConvertBackend{client: client, roleARN: roleARN, outputKMSARN: outputKMSARN}
}

func (m *MediaConvertBackend) SubmitJob(ctx context.Context, spec JobSpec) (string, error) {
	if err := spec.Validate(); err != nil {
		return "", err
	}

	var group mctypes.OutputGroup
	switch spec.Kind {
	case media.JobKindPreviewMP4:
		group = m.fileGroup(spec)
	case media.JobKindHLSABR4:
		group = m.hlsGroup(spec)
	default:
		return "", fmt.Errorf("mediaconvert: unsupported job kind %s", spec.Kind)
	}

	out, err := m.client.CreateJob(ctx, &mediaconvert.CreateJobInput{
		Role: aws.String(m.roleARN),
		Settings: &mctypes.JobSettings{
			TimecodeConfig: &mctypes.TimecodeConfig{Source: mctypes.TimecodeSourceZerobased},
			Inputs: []mctypes.Input{{
				FileInput: aws.String(fmt.Sprintf("s3://%s/%s", spec.InputBucket, spec.InputKey)),
				AudioSelectors: map[string]mctypes.AudioSelector{
					"Audio Selector 1": {DefaultSelection: mctypes.AudioDefaultSelectionDefault},
				},
				VideoSelector: &mctypes.VideoSelector{ColorSpace: mctypes.ColorSpaceFollow},
			}},
			OutputGroups: []mctypes.OutputGroup{group},
		},
		StatusUpdateInterval: mctypes.StatusUpdateIntervalSeconds30,
		Priority:             aws.Int32(0),
		UserMetadata:         spec.UserMetadata,
		Tags:                 spec.Tags,
	})
	if err != nil {
		return "", err
	}
	if out.Job == nil || out.Job.Id == nil {
		return "", fmt.Errorf("mediaconvert: job created without id")
	}
	return aws.ToString(out.Job.Id), nil
}

func (m *MediaConvertBackend) fileGroup(spec JobSpec) mctypes.OutputGroup {
	// destination is the directory; the file name comes from the input
	// name plus NameModifier
	dir := spec.OutputKey
	if i := lastSlash(dir); i >= 0 {
		dir = dir[:i]
	}
	rung := spec.Rungs[0]
	return mctypes.OutputGroup{
		Name: aws.String("File Group"),
		OutputGroupSettings: &mctypes.OutputGroupSettings{
			Type: mctypes.OutputGroupTypeFileGroupSettings,
			FileGroupSettings: &mctypes.FileGroupSettings{
				Destination:         aws.String(fmt.Sprintf("s3://%s/%s/", spec.OutputBucket, dir)),
				DestinationSettings: m.destinationSettings(),
			},
		},
		Outputs: []mctypes.Output{{
			ContainerSettings: &mctypes.ContainerSettings{Container: mctypes.ContainerTypeMp4},
			VideoDescription:  m.videoDescription(rung, mctypes.H264GopSizeUnitsFrames),
			AudioDescriptions: []mctypes.AudioDescription{m.audioDescription(rung.AudioBitrate, false)},
			NameModifier:      aws.String(rung.NameModifier),
		}},
	}
}

func (m *MediaConvertBackend) hlsGroup(spec JobSpec) mctypes.OutputGroup {
	outputs := make([]mctypes.Output, 0, len(spec.Rungs))
	for _, rung := range spec.Rungs {
		outputs = append(outputs, mctypes.Output{
			ContainerSettings: &mctypes.ContainerSettings{Container: mctypes.ContainerTypeM3u8},
			VideoDescription:  m.videoDescription(rung, mctypes.H264GopSizeUnitsSeconds),
			AudioDescriptions: []mctypes.AudioDescription{m.audioDescription(rung.AudioBitrate, true)},
			NameModifier:      aws.String(rung.NameModifier),
		})
	}
	return mctypes.OutputGroup{
		Name: aws.String("HLS"),
		OutputGroupSettings: &mctypes.OutputGroupSettings{
			Type: mctypes.OutputGroupTypeHlsGroupSettings,
			HlsGroupSettings: &mctypes.HlsGroupSettings{
				Destination:            aws.String(fmt.Sprintf("s3://%s/%s", spec.OutputBucket, spec.OutputPrefix)),
				SegmentLength:          aws.Int32(spec.SegmentSec),
				MinSegmentLength:       aws.Int32(0),
				MinFinalSegmentLength:  aws.Float64(0),
				DirectoryStructure:     mctypes.HlsDirectoryStructureSingleDirectory,
				ManifestDurationFormat: mctypes.HlsManifestDurationFormatInteger,
				OutputSelection:        mctypes.HlsOutputSelectionManifestsAndSegments,
				SegmentControl:         mctypes.HlsSegmentControlSegmentedFiles,
				CodecSpecification:     mctypes.HlsCodecSpecificationRfc6381,
				DestinationSettings:    m.destinationSettings(),
			},
		},
		Outputs: outputs,
	}
}

func (m *MediaConvertBackend) videoDescription(rung Rung, gopUnits mctypes.H264GopSizeUnits) *mctypes.VideoDescription {
	h264 := &mctypes.H264Settings{
		RateControlMode: mctypes.H264RateControlModeQvbr,
		QvbrSettings:    &mctypes.H264QvbrSettings{QvbrQualityLevel: aws.Int32(7)},
		MaxBitrate:      aws.Int32(rung.MaxBitrate),
		GopSizeUnits:    gopUnits,
	}
	switch gopUnits {
	case mctypes.H264GopSizeUnitsFrames:
		h264.GopSize = aws.Float64(90)
	case mctypes.H264GopSizeUnitsSeconds:
		h264.GopSize = aws.Float64(2.0)
		h264.NumberBFramesBetweenReferenceFrames = aws.Int32(2)
		h264.AdaptiveQuantization = mctypes.H264AdaptiveQuantizationHigh
		h264.SceneChangeDetect = mctypes.H264SceneChangeDetectTransitionDetection
		h264.FramerateControl = mctypes.H264FramerateControlInitializeFromSource
		h264.ParControl = mctypes.H264ParControlInitializeFromSource
		h264.CodecLevel = mctypes.H264CodecLevelAuto
	}
	if rung.Profile == "HIGH" {
		h264.CodecProfile = mctypes.H264CodecProfileHigh
	}
	return &mctypes.VideoDescription{
		Height: aws.Int32(rung.Height),
		Width:  aws.Int32(rung.Width),
		CodecSettings: &mctypes.VideoCodecSettings{
			Codec:        mctypes.VideoCodecH264,
			H264Settings: h264,
		},
	}
}

func (m *MediaConvertBackend) audioDescription(bitrate int32, normalize bool) mctypes.AudioDescription {
	desc := mctypes.AudioDescription{
		CodecSettings: &mctypes.AudioCodecSettings{
			Codec: mctypes.AudioCodecAac,
			AacSettings: &mctypes.AacSettings{
				Bitrate:    aws.Int32(bitrate),
				CodingMode: mctypes.AacCodingModeCodingMode20,
				SampleRate: aws.Int32(48_000),
			},
		},
	}
	if normalize {
		desc.AudioNormalizationSettings = &mctypes.AudioNormalizationSettings{
			Algorithm:        mctypes.AudioNormalizationAlgorithmItuBs17704,
			AlgorithmControl: mctypes.AudioNormalizationAlgorithmControlCorrectAudio,
		}
	}
	return desc
}

func (m *MediaConvertBackend) destinationSettings() *mctypes.DestinationSettings {
	if m.outputKMSARN == "" {
		return nil
	}
	return &mctypes.DestinationSettings{
		S3Settings: &mctypes.S3DestinationSettings{
			Encryption: &mctypes.S3EncryptionSettings{
				EncryptionType: mctypes.S3ServerSideEncryptionTypeServerSideEncryptionKms,
				KmsKeyArn:      aws.String(m.outputKMSARN),
			},
		},
	}
}

func lastSlash(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '/' {
			return i
		}
	}
	return -1
}
