package moderation

import (
	"context"

	"go-gin-event-admission/internal/model"
)

// LabelDetector returns (label, confidence%) pairs for an image.
type LabelDetector interface {
	DetectLabels(ctx context.Context, image []byte) ([]model.Label, error)
}

// FilterLabels keeps the labels whose confidence is at least minConfidence,
// preserving order, and at most maxLabels of them. maxLabels <= 0 means no cap.
func FilterLabels(labels []model.Label, minConfidence float64, maxLabels int) []model.Label {
	kept := make([]model.Label, 0, len(labels))
	for _, l := range labels {
		if maxLabels > 0 && len(kept) == maxLabels {
			break
		}
		if l.Confidence >= minConfidence {
			kept = append(kept, l)
		}
	}
	return kept
}
