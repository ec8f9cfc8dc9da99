package moderation

import (
	"context"
	"errors"
	"fmt"

	appconfig "go-gin-event-admission/config"
	"go-gin-event-admission/internal/model"
	apperrors "go-gin-event-admission/pkg/app_errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
)

// rekognitionAPI is the part of *rekognition.Client the detector calls.
type rekognitionAPI interface {
	DetectLabels(ctx context.Context, params *rekognition.DetectLabelsInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectLabelsOutput, error)
}

type RekognitionDetector struct {
	api           rekognitionAPI
	maxLabels     int32
	minConfidence float32
}

// NewRekognitionDetector builds a client from static keys when they are
// configured and from the default AWS credential chain otherwise.
func NewRekognitionDetector(ctx context.Context, cfg appconfig.AWSConfig, maxLabels int, minConfidence float64) (*RekognitionDetector, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessID != "" && cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessID, cfg.AccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	return newRekognitionDetector(rekognition.NewFromConfig(awsCfg), maxLabels, minConfidence), nil
}

func newRekognitionDetector(api rekognitionAPI, maxLabels int, minConfidence float64) *RekognitionDetector {
	return &RekognitionDetector{
		api:           api,
		maxLabels:     int32(maxLabels),
		minConfidence: float32(minConfidence),
	}
}

func (d *RekognitionDetector) DetectLabels(ctx context.Context, image []byte) ([]model.Label, error) {
	out, err := d.api.DetectLabels(ctx, &rekognition.DetectLabelsInput{
		Image:         &types.Image{Bytes: image},
		MaxLabels:     aws.Int32(d.maxLabels),
		MinConfidence: aws.Float32(d.minConfidence),
	})
	if err != nil {
		// 圖片本身有問題，重試沒有意義
		var badFormat *types.InvalidImageFormatException
		var tooLarge *types.ImageTooLargeException
		if errors.As(err, &badFormat) || errors.As(err, &tooLarge) {
			return nil, Permanent(fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err))
		}
		return nil, err
	}

	labels := make([]model.Label, 0, len(out.Labels))
	for _, l := range out.Labels {
		labels = append(labels, model.Label{
			Name:       aws.ToString(l.Name),
			Confidence: float64(aws.ToFloat32(l.Confidence)),
		})
	}
	return labels, nil
}
