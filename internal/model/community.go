package model

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventTypeEvent    EventType = "Event"
	EventTypeDrive    EventType = "Drive"
	EventTypeWebinar  EventType = "Online Webinar"
	EventTypeWorkshop EventType = "Workshop"
)

func ParseEventType(raw string) (EventType, bool) {
	switch EventType(raw) {
	case EventTypeEvent, EventTypeDrive, EventTypeWebinar, EventTypeWorkshop:
		return EventType(raw), true
	default:
		return "", false
	}
}

type CommunityEvent struct {
	ID                uuid.UUID  `json:"id"`
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	OrganizerUserID   *uuid.UUID `json:"organizerUserId,omitempty"`
	OrganizerAgencyID *uuid.UUID `json:"organizerAgencyId,omitempty"`
	EventType         EventType  `json:"eventType"`
	StartDate         time.Time  `json:"startDate"`
	EndDate           time.Time  `json:"endDate"`
	Time              string     `json:"time" gorm:"column:event_time"`
	Location          string     `json:"location,omitempty"`
	RegistrationLink  string     `json:"registrationLink"`
	ContactName       string     `json:"contactName"`
	ContactEmail      string     `json:"contactEmail"`
	ContactPhone      string     `json:"contactPhone"`
	ModerationLabel   string     `json:"moderationLabel"`
	CreatedAt         time.Time  `json:"createdAt"`
}
