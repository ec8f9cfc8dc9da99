package model

import (
	"fmt"
	"time"

	apperrors "go-gin-event-admission/pkg/app_errors"

	"github.com/google/uuid"
)

// EventStatus 活動狀態
type EventStatus string

const (
	EventStatusDraft     EventStatus = "draft"
	EventStatusPublished EventStatus = "published"
	EventStatusCancelled EventStatus = "cancelled"
	EventStatusCompleted EventStatus = "completed"
)

// IsValid 驗證狀態是否有效
func (s EventStatus) IsValid() bool {
	switch s {
	case EventStatusDraft, EventStatusPublished, EventStatusCancelled, EventStatusCompleted:
		return true
	}
	return false
}

// Categories accepted for an event. The category is also part of the
// relevance classifier's context.
var Categories = []string{
	"Conference", "Workshop", "Seminar", "Networking", "Concert",
	"Exhibition", "Sports", "Cultural", "Tech Meetup", "Other",
}

// EventTypes accepted for an event.
var EventTypes = []string{"in-person", "virtual", "hybrid"}

// Event is the aggregate mutated by admission control and the media pipeline.
// Registrations, Photos and Videos are only ever changed through the store's
// atomic operations.
type Event struct {
	ID               uuid.UUID   `json:"id" db:"id"`
	Creator          string      `json:"creator" db:"creator"`
	Title            string      `json:"title" db:"title"`
	Description      string      `json:"description" db:"description"`
	Category         string      `json:"category" db:"category"`
	EventType        string      `json:"event_type" db:"event_type"`
	Location         *string     `json:"location,omitempty" db:"location"`
	Venue            *string     `json:"venue,omitempty" db:"venue"`
	StartDate        time.Time   `json:"start_date" db:"start_date"`
	EndDate          time.Time   `json:"end_date" db:"end_date"`
	TicketPrice      float64     `json:"ticket_price" db:"ticket_price"`
	MaxAttendees     int         `json:"max_attendees" db:"max_attendees"`
	CurrentAttendees int         `json:"current_attendees" db:"current_attendees"`
	Registrations    []string    `json:"registrations" db:"registrations"`
	Photos           []string    `json:"photos" db:"photos"`
	UploadCount      int         `json:"upload_count" db:"upload_count"`
	Videos           []string    `json:"videos" db:"videos"`
	VideoCount       int         `json:"video_count" db:"video_count"`
	Status           EventStatus `json:"status" db:"status"`
	CreatedAt        time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at" db:"updated_at"`
}

// IsRegistered reports whether principal is in the attendee set.
func (e *Event) IsRegistered(principal string) bool {
	for _, p := range e.Registrations {
		if p == principal {
			return true
		}
	}
	return false
}

// IsFull 檢查活動是否已額滿
func (e *Event) IsFull() bool {
	return e.CurrentAttendees >= e.MaxAttendees
}

// CheckInvariants verifies the aggregate-level invariants of the event.
func (e *Event) CheckInvariants() error {
	if e.MaxAttendees <= 0 {
		return fmt.Errorf("%w: max_attendees %d is not positive", apperrors.ErrInvariantViolation, e.MaxAttendees)
	}
	seen := make(map[string]struct{}, len(e.Registrations))
	for _, p := range e.Registrations {
		if _, dup := seen[p]; dup {
			return fmt.Errorf("%w: principal %q registered twice", apperrors.ErrInvariantViolation, p)
		}
		seen[p] = struct{}{}
	}
	if e.CurrentAttendees != len(e.Registrations) {
		return fmt.Errorf("%w: current_attendees %d != %d registrations",
			apperrors.ErrInvariantViolation, e.CurrentAttendees, len(e.Registrations))
	}
	if e.CurrentAttendees > e.MaxAttendees {
		return fmt.Errorf("%w: current_attendees %d exceeds max_attendees %d",
			apperrors.ErrInvariantViolation, e.CurrentAttendees, e.MaxAttendees)
	}
	if e.UploadCount != len(e.Photos) {
		return fmt.Errorf("%w: upload_count %d != %d photos", apperrors.ErrInvariantViolation, e.UploadCount, len(e.Photos))
	}
	if e.VideoCount != len(e.Videos) {
		return fmt.Errorf("%w: video_count %d != %d videos", apperrors.ErrInvariantViolation, e.VideoCount, len(e.Videos))
	}
	return nil
}

// Attendance is the result of a registration state change.
type Attendance struct {
	EventID          uuid.UUID `json:"event_id"`
	Principal        string    `json:"-"`
	Registered       bool      `json:"registered"`
	CurrentAttendees int       `json:"current_attendees"`
	MaxAttendees     int       `json:"max_attendees"`
}

// MediaCount is returned by the store after a media append.
type MediaCount struct {
	UploadCount int
	VideoCount  int
}

// CreateEventRequest 建立活動請求
type CreateEventRequest struct {
	Title        string       `json:"title" binding:"required"`
	Description  string       `json:"description" binding:"required"`
	Category     string       `json:"category" binding:"required,oneof=Conference Workshop Seminar Networking Concert Exhibition Sports Cultural 'Tech Meetup' Other"`
	EventType    string       `json:"event_type" binding:"required,oneof=in-person virtual hybrid"`
	Location     *string      `json:"location"`
	Venue        *string      `json:"venue"`
	StartDate    time.Time    `json:"start_date" binding:"required"`
	EndDate      time.Time    `json:"end_date" binding:"required"`
	TicketPrice  float64      `json:"ticket_price" binding:"min=0"`
	MaxAttendees int          `json:"max_attendees" binding:"required,min=1"`
	Status       *EventStatus `json:"status"`
}

// CreatorStats 活動建立者統計
type CreatorStats struct {
	TotalEvents          int            `json:"total_events"`
	EventsByStatus       map[string]int `json:"events_by_status"`
	TotalAttendees       int            `json:"total_attendees"`
	TotalUploads         int            `json:"total_uploads"`
	TotalRevenue         float64        `json:"total_revenue"`
	MostFrequentCategory string         `json:"most_frequent_category"`
}
