package moderation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go-gin-event-admission/internal/model"
)

// RelevanceClassifier answers a yes/no prompt with free text.
type RelevanceClassifier interface {
	Classify(ctx context.Context, prompt string) (string, error)
}

// BuildPrompt renders the retained labels and the event context into the
// classifier prompt. Labels are listed as "<name> <confidence>%".
func BuildPrompt(labels []model.Label, event *model.Event) string {
	names := make([]string, 0, len(labels))
	for _, l := range labels {
		names = append(names, fmt.Sprintf("%s %.2f%%", l.Name, l.Confidence))
	}
	encoded, _ := json.Marshal(names)

	eventContext := fmt.Sprintf("Event Title: %s, description: %s category:%s. Make sure to give me the right answer.",
		event.Title, event.Description, event.Category)

	return fmt.Sprintf(`Given the following labels: %s. Determine if these labels are related to "%s". Respond with either "True" or "False" only.`,
		encoded, eventContext)
}

// ParseVerdict canonicalizes a raw classifier answer. Only a case-insensitive
// "true" or "false", after trimming whitespace, is a definite verdict.
func ParseVerdict(raw string) model.Verdict {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true":
		return model.VerdictRelevant
	case "false":
		return model.VerdictNotRelevant
	default:
		return model.VerdictIndeterminate
	}
}
