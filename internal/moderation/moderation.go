// Package moderation submits image bytes to a label-detection backend.
// Policy (fail-open on backend errors, threshold comparison) belongs to
// the callers; this package only reports what the backend saw.
package moderation

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	rekogtypes "github.com/aws/aws-sdk-go-v2/service/rekognition/types"
)

type Label struct {
	Name       string  `json:"name"`
	Confidence float32 `json:"confidence"`
	ParentName string  `json:"parent_name,omitempty"`
}

type Result struct {
	Flagged bool    `json:"flagged"`
	Labels  []Label `json:"labels"`
}

// Screener detects policy-violating content in image bytes. Flagged is
// true when any label meets minConfidence.
type Screener interface {
	DetectLabels(ctx context.Context, imageBytes []byte, minConfidence float32) (Result, error)
}

type RekognitionScreener struct {
	client *rekognition.Client
}

func NewRekognitionScreener(cfg aws.Config) *RekognitionScreener {
	return &RekognitionScreener{client: rekognition.NewFromConfig(cfg)}
}

func (s *RekognitionScreener) DetectLabels(ctx context.Context, imageBytes []byte, minConfidence float32) (Result, error) {
	out, err := s.client.DetectModerationLabels(ctx, &rekognition.DetectModerationLabelsInput{
		Image:         &rekogtypes.Image{Bytes: imageBytes},
		MinConfidence: aws.Float32(minConfidence),
	})
	if err != nil {
		return Result{}, err
	}

	res := Result{Labels: make([]Label, 0, len(out.ModerationLabels))}
	for _, l := range out.ModerationLabels {
		label := Label{
			Name:       aws.ToString(l.Name),
			Confidence: aws.ToFloat32(l.Confidence),
			ParentName: aws.ToString(l.ParentName),
		}
		res.Labels = append(res.Labels, label)
		if label.Confidence >= minConfidence {
			res.Flagged = true
		}
	}
	return res, nil
}
