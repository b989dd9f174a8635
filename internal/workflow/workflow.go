// Package workflow holds the pickup request state machine: the ordered milestone list, which role
// may record which milestone, and how the overall status follows from the current stage.
// It performs no I/O; callers load a request, call Check and Apply, and persist the result.
package workflow

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/avakara/ewaste-platform/internal/model"
)

var (
	ErrInvalidMilestone = errors.New("invalid milestone")
	ErrTerminal         = errors.New("request is closed")
	ErrOutOfOrder       = errors.New("milestone out of order")
	ErrRoleNotAllowed   = errors.New("milestone not allowed for role")
	ErrNotOwner         = errors.New("actor does not own request")
)

// Order is the required completion order. requestReceived is recorded on creation.
var Order = []model.Milestone{
	model.MilestoneRequestReceived,
	model.MilestoneAgencyAccepted,
	model.MilestoneVolunteerAssigned,
	model.MilestonePickupScheduled,
	model.MilestonePickupStarted,
	model.MilestonePickupCompleted,
	model.MilestoneWasteSegregated,
	model.MilestoneProcessingStarted,
	model.MilestoneProcessingCompleted,
}

var capabilities = map[model.Role]map[model.Milestone]struct{}{
	model.RoleAgency: {
		model.MilestoneAgencyAccepted:      {},
		model.MilestoneWasteSegregated:     {},
		model.MilestoneProcessingStarted:   {},
		model.MilestoneProcessingCompleted: {},
	},
	model.RoleVolunteer: {
		model.MilestonePickupScheduled: {},
		model.MilestonePickupStarted:   {},
		model.MilestonePickupCompleted: {},
	},
}

// Index returns the position of m in Order.
func Index(m model.Milestone) (int, bool) {
	for i, candidate := range Order {
		if candidate == m {
			return i, true
		}
	}
	return -1, false
}

func ParseMilestone(raw string) (model.Milestone, error) {
	m := model.Milestone(raw)
	if _, ok := Index(m); !ok {
		return "", ErrInvalidMilestone
	}
	return m, nil
}

// Next returns the milestone that follows current, or false at the end of the list.
func Next(current model.Milestone) (model.Milestone, bool) {
	idx, ok := Index(current)
	if !ok || idx+1 >= len(Order) {
		return "", false
	}
	return Order[idx+1], true
}

// CanAdvance reports whether role may record m through the generic milestone update.
// volunteerAssigned is deliberately absent: it is set by assignment only.
func CanAdvance(role model.Role, m model.Milestone) bool {
	allowed, ok := capabilities[role]
	if !ok {
		return false
	}
	_, ok = allowed[m]
	return ok
}

// DeriveStatus maps the current stage to the overall status.
func DeriveStatus(stage model.Milestone, rejected bool) model.RequestStatus {
	if rejected {
		return model.RequestStatusRejected
	}
	switch stage {
	case model.MilestoneAgencyAccepted:
		return model.RequestStatusAccepted
	case model.MilestoneVolunteerAssigned,
		model.MilestonePickupScheduled,
		model.MilestonePickupStarted,
		model.MilestonePickupCompleted:
		return model.RequestStatusAssigned
	case model.MilestoneWasteSegregated, model.MilestoneProcessingStarted:
		return model.RequestStatusProcessing
	case model.MilestoneProcessingCompleted:
		return model.RequestStatusCompleted
	default:
		return model.RequestStatusPending
	}
}

// StageFromHistory returns the highest-order milestone present in history.
func StageFromHistory(history []model.MilestoneEvent) model.Milestone {
	best := -1
	for _, ev := range history {
		if idx, ok := Index(ev.Milestone); ok && idx > best {
			best = idx
		}
	}
	if best < 0 {
		return model.MilestoneRequestReceived
	}
	return Order[best]
}

// Consistent reports whether the stored status and stage agree with the history: every milestone
// up to the stage is present, none after it, and status equals DeriveStatus(stage).
func Consistent(req *model.Request) bool {
	stageIdx, ok := Index(req.Stage)
	if !ok {
		return false
	}
	seen := make(map[model.Milestone]bool, len(req.History))
	for _, ev := range req.History {
		seen[ev.Milestone] = true
	}
	for i, m := range Order {
		if (i <= stageIdx) != seen[m] {
			return false
		}
	}
	if StageFromHistory(req.History) != req.Stage {
		return false
	}
	return req.Status == DeriveStatus(req.Stage, req.RejectedAt != nil)
}

// CheckOwnership verifies that actor is the agency owning the request or its assigned volunteer.
func CheckOwnership(req *model.Request, actor model.Principal) error {
	switch actor.Role {
	case model.RoleAgency:
		if req.AgencyID != actor.ID {
			return ErrNotOwner
		}
	case model.RoleVolunteer:
		if !req.IsAssignedTo(actor.ID) {
			return ErrNotOwner
		}
	default:
		return ErrNotOwner
	}
	return nil
}

// Check validates a generic milestone update: ownership, open request, known milestone, role
// capability and order. It does not mutate req.
func Check(req *model.Request, actor model.Principal, m model.Milestone) error {
	if err := CheckOwnership(req, actor); err != nil {
		return err
	}
	if req.Status.Terminal() {
		return ErrTerminal
	}
	if _, ok := Index(m); !ok {
		return ErrInvalidMilestone
	}
	if !CanAdvance(actor.Role, m) {
		return ErrRoleNotAllowed
	}
	return CheckOrder(req, m)
}

// CheckOrder verifies m is exactly the next milestone after the current stage.
func CheckOrder(req *model.Request, m model.Milestone) error {
	if req.Status.Terminal() {
		return ErrTerminal
	}
	next, ok := Next(req.Stage)
	if !ok || next != m {
		return ErrOutOfOrder
	}
	return nil
}

// Apply appends the event and moves the stage pointer. Callers must have run Check/CheckOrder.
func Apply(req *model.Request, ev model.MilestoneEvent) model.MilestoneEvent {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.CompletedAt.IsZero() {
		ev.CompletedAt = time.Now().UTC()
	}
	ev.RequestID = req.ID
	req.History = append(req.History, ev)
	req.Stage = ev.Milestone
	req.Status = DeriveStatus(req.Stage, req.RejectedAt != nil)
	req.UpdatedAt = ev.CompletedAt
	return ev
}

// Reject closes an open request that has not progressed beyond acceptance.
func Reject(req *model.Request, reason string, at time.Time) error {
	if req.Status != model.RequestStatusPending && req.Status != model.RequestStatusAccepted {
		return ErrTerminal
	}
	req.RejectedAt = &at
	if reason != "" {
		req.RejectionReason = &reason
	}
	req.Status = DeriveStatus(req.Stage, true)
	req.UpdatedAt = at
	return nil
}

// Cancellable reports whether the owning user may still withdraw the request.
func Cancellable(req *model.Request) bool {
	switch req.Status {
	case model.RequestStatusPending, model.RequestStatusAccepted, model.RequestStatusAssigned:
	default:
		return false
	}
	return !req.Completed(model.MilestonePickupStarted)
}

// NewRequest returns a Pending request with requestReceived already recorded.
func NewRequest(req model.Request, at time.Time) model.Request {
	req.Stage = model.MilestoneRequestReceived
	req.Status = model.RequestStatusPending
	req.History = nil
	req.CreatedAt = at
	req.UpdatedAt = at
	Apply(&req, model.MilestoneEvent{
		Milestone:   model.MilestoneRequestReceived,
		ActorID:     &req.UserID,
		ActorRole:   model.RoleUser,
		CompletedAt: at,
	})
	return req
}
