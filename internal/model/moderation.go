package model

import (
	"time"

	"github.com/google/uuid"
)

// SubmissionState 上傳審核流程狀態
type SubmissionState string

const (
	SubmissionSubmitted          SubmissionState = "submitted"
	SubmissionLabelsDetected     SubmissionState = "labels_detected"
	SubmissionRelevanceEvaluated SubmissionState = "relevance_evaluated"
	SubmissionAccepted           SubmissionState = "accepted"
	SubmissionRejected           SubmissionState = "rejected"
)

// CanTransitionTo 檢查是否可以轉換到目標狀態（單向，不可回頭）
func (s SubmissionState) CanTransitionTo(target SubmissionState) bool {
	transitions := map[SubmissionState][]SubmissionState{
		SubmissionSubmitted:          {SubmissionLabelsDetected, SubmissionRejected},
		SubmissionLabelsDetected:     {SubmissionRelevanceEvaluated, SubmissionRejected},
		SubmissionRelevanceEvaluated: {SubmissionAccepted, SubmissionRejected},
		SubmissionAccepted:           {},
		SubmissionRejected:           {},
	}

	allowed, ok := transitions[s]
	if !ok {
		return false
	}

	for _, status := range allowed {
		if status == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s SubmissionState) IsTerminal() bool {
	return s == SubmissionAccepted || s == SubmissionRejected
}

// Label is one (label, confidence) pair from the label service. Confidence
// is a percentage in [0,100].
type Label struct {
	Name       string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Verdict is the canonicalized classifier answer.
type Verdict int

const (
	VerdictIndeterminate Verdict = iota
	VerdictRelevant
	VerdictNotRelevant
)

func (v Verdict) String() string {
	switch v {
	case VerdictRelevant:
		return "relevant"
	case VerdictNotRelevant:
		return "not_relevant"
	default:
		return "indeterminate"
	}
}

// RejectionReason is reported to the submitter when a photo is refused.
type RejectionReason string

const (
	ReasonNotRelevant    RejectionReason = "NotRelevant"
	ReasonUnableToVerify RejectionReason = "UnableToVerify"
)

// PhotoSubmission is one photo uploaded by an attendee.
type PhotoSubmission struct {
	EventID     uuid.UUID
	Principal   string
	Image       []byte
	ContentType string
	Filename    string
}

// MediaFile is one non-moderated upload (video).
type MediaFile struct {
	Data        []byte
	ContentType string
	Filename    string
}

// ModerationResult 審核結果
type ModerationResult struct {
	Accepted    bool            `json:"accepted"`
	PhotoRef    string          `json:"photo_ref,omitempty"`
	Reason      RejectionReason `json:"reason,omitempty"`
	Labels      []Label         `json:"labels"`
	UploadCount int             `json:"upload_count,omitempty"`
}

// VideoUploadResult 影片上傳結果
type VideoUploadResult struct {
	Videos     []string `json:"videos"`
	VideoCount int      `json:"video_count"`
}

// OutcomeStatus is the terminal status recorded in the moderation outcome log.
type OutcomeStatus string

const (
	OutcomeAccepted       OutcomeStatus = "accepted"
	OutcomeNotRelevant    OutcomeStatus = "not_relevant"
	OutcomeUnableToVerify OutcomeStatus = "unable_to_verify"
	OutcomeUnavailable    OutcomeStatus = "unavailable"
)

// ModerationOutcome is published after every terminated submission so that
// classifier reliability can be watched separately from content mismatches.
type ModerationOutcome struct {
	ID        int           `json:"id,omitempty" db:"id"`
	RequestID string        `json:"request_id" db:"request_id"`
	EventID   uuid.UUID     `json:"event_id" db:"event_id"`
	Principal string        `json:"principal" db:"principal"`
	Status    OutcomeStatus `json:"status" db:"status"`
	Labels    []Label       `json:"labels" db:"labels"`
	PhotoRef  string        `json:"photo_ref,omitempty" db:"photo_ref"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
}

// OutcomeStats counts outcomes per status for one event.
type OutcomeStats struct {
	EventID uuid.UUID             `json:"event_id"`
	Counts  map[OutcomeStatus]int `json:"counts"`
}
