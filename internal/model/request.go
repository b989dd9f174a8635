package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type RequestStatus string

const (
	RequestStatusPending    RequestStatus = "Pending"
	RequestStatusAccepted   RequestStatus = "Accepted"
	RequestStatusAssigned   RequestStatus = "Assigned"
	RequestStatusProcessing RequestStatus = "Processing"
	RequestStatusCompleted  RequestStatus = "Completed"
	RequestStatusRejected   RequestStatus = "Rejected"
)

// Terminal reports whether no further milestone may be recorded.
func (s RequestStatus) Terminal() bool {
	return s == RequestStatusCompleted || s == RequestStatusRejected
}

type Milestone string

const (
	MilestoneRequestReceived     Milestone = "requestReceived"
	MilestoneAgencyAccepted      Milestone = "agencyAccepted"
	MilestoneVolunteerAssigned   Milestone = "volunteerAssigned"
	MilestonePickupScheduled     Milestone = "pickupScheduled"
	MilestonePickupStarted       Milestone = "pickupStarted"
	MilestonePickupCompleted     Milestone = "pickupCompleted"
	MilestoneWasteSegregated     Milestone = "wasteSegregated"
	MilestoneProcessingStarted   Milestone = "processingStarted"
	MilestoneProcessingCompleted Milestone = "processingCompleted"
)

type GeoPoint struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

type WasteItem struct {
	Type     string `json:"type"`
	Quantity int    `json:"quantity"`
}

// NormalizedType is the lowercase key used by the points table and inventory breakdown.
func (w WasteItem) NormalizedType() string {
	return strings.ToLower(strings.TrimSpace(w.Type))
}

type Attachment struct {
	URL        string `json:"url"`
	StorageKey string `json:"storageKey"`
}

type MilestoneEvent struct {
	ID          uuid.UUID         `json:"id"`
	RequestID   uuid.UUID         `json:"requestId"`
	Milestone   Milestone         `json:"milestone"`
	ActorID     *uuid.UUID        `json:"actorId,omitempty"`
	ActorRole   Role              `json:"actorRole,omitempty"`
	Notes       string            `json:"notes,omitempty"`
	Lon         *float64          `json:"lon,omitempty"`
	Lat         *float64          `json:"lat,omitempty"`
	Address     string            `json:"address,omitempty"`
	Details     datatypes.JSONMap `json:"details,omitempty"`
	CompletedAt time.Time         `json:"completedAt"`
}

// MilestoneState is the per-milestone view derived from the event history.
type MilestoneState struct {
	Completed bool      `json:"completed"`
	Timestamp time.Time `json:"timestamp,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	Location  *GeoPoint `json:"location,omitempty"`
	Address   string    `json:"address,omitempty"`
}

type Request struct {
	ID                  uuid.UUID        `json:"id"`
	UserID              uuid.UUID        `json:"userId"`
	AgencyID            uuid.UUID        `json:"agencyId"`
	VolunteerID         *uuid.UUID       `json:"volunteerId,omitempty"`
	Items               []WasteItem      `json:"items" gorm:"-"`
	Weight              float64          `json:"weight"`
	PickupAddress       string           `json:"pickupAddress"`
	PickupLon           float64          `json:"pickupLon"`
	PickupLat           float64          `json:"pickupLat"`
	PickupDate          time.Time        `json:"pickupDate"`
	ContactNumber       string           `json:"contactNumber"`
	SpecialInstructions string           `json:"specialInstructions,omitempty"`
	Status              RequestStatus    `json:"status"`
	Stage               Milestone        `json:"stage"`
	PickupCode          string           `json:"-"`
	DetectedCategory    string           `json:"detectedCategory,omitempty"`
	Images              []Attachment     `json:"images" gorm:"-"`
	History             []MilestoneEvent `json:"history" gorm:"-"`
	RejectedAt          *time.Time       `json:"rejectedAt,omitempty"`
	RejectionReason     *string          `json:"rejectionReason,omitempty"`
	Version             int64            `json:"version"`
	CreatedAt           time.Time        `json:"createdAt"`
	UpdatedAt           time.Time        `json:"updatedAt"`
}

func (r *Request) PickupLocation() GeoPoint {
	return GeoPoint{Lon: r.PickupLon, Lat: r.PickupLat}
}

func (r *Request) WasteTypes() []string {
	out := make([]string, 0, len(r.Items))
	for _, item := range r.Items {
		out = append(out, item.Type)
	}
	return out
}

func (r *Request) Quantities() []int {
	out := make([]int, 0, len(r.Items))
	for _, item := range r.Items {
		out = append(out, item.Quantity)
	}
	return out
}

// Completed reports whether the milestone appears in the history.
func (r *Request) Completed(m Milestone) bool {
	for _, ev := range r.History {
		if ev.Milestone == m {
			return true
		}
	}
	return false
}

func (r *Request) IsAssignedTo(volunteerID uuid.UUID) bool {
	return r.VolunteerID != nil && *r.VolunteerID == volunteerID
}

// Milestones folds the history into the keyed milestone view clients render.
func (r *Request) Milestones(order []Milestone) map[Milestone]MilestoneState {
	out := make(map[Milestone]MilestoneState, len(order))
	for _, m := range order {
		out[m] = MilestoneState{}
	}
	for _, ev := range r.History {
		state := MilestoneState{
			Completed: true,
			Timestamp: ev.CompletedAt,
			Notes:     ev.Notes,
			Address:   ev.Address,
		}
		if ev.Lon != nil && ev.Lat != nil {
			state.Location = &GeoPoint{Lon: *ev.Lon, Lat: *ev.Lat}
		}
		out[ev.Milestone] = state
	}
	return out
}

// RequestEvent is published after a committed lifecycle change.
type RequestEvent struct {
	RequestID  uuid.UUID     `json:"requestId"`
	UserID     uuid.UUID     `json:"userId"`
	AgencyID   uuid.UUID     `json:"agencyId"`
	Milestone  Milestone     `json:"milestone,omitempty"`
	Status     RequestStatus `json:"status"`
	Kind       string        `json:"kind"`
	Location   *GeoPoint     `json:"location,omitempty"`
	OccurredAt time.Time     `json:"occurredAt"`
}

const (
	RequestEventCreated   = "created"
	RequestEventMilestone = "milestone"
	RequestEventRejected  = "rejected"
	RequestEventCancelled = "cancelled"
)
