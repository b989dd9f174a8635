package workflow

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/avakara/ewaste-platform/internal/model"
)

func newTestRequest() (model.Request, model.Principal, model.Principal) {
	agencyID := uuid.New()
	volunteerID := uuid.New()
	req := NewRequest(model.Request{
		ID:       uuid.New(),
		UserID:   uuid.New(),
		AgencyID: agencyID,
		Items:    []model.WasteItem{{Type: "laptop", Quantity: 2}},
		Weight:   5,
	}, time.Now().UTC())
	agency := model.Principal{ID: agencyID, Role: model.RoleAgency, AgencyID: &agencyID}
	volunteer := model.Principal{ID: volunteerID, Role: model.RoleVolunteer, AgencyID: &agencyID}
	return req, agency, volunteer
}

func advance(t *testing.T, req *model.Request, actor model.Principal, m model.Milestone) {
	t.Helper()
	if err := Check(req, actor, m); err != nil {
		t.Fatalf("check %s: %v", m, err)
	}
	Apply(req, model.MilestoneEvent{Milestone: m, ActorID: &actor.ID, ActorRole: actor.Role})
	if !Consistent(req) {
		t.Fatalf("request inconsistent after %s: stage=%s status=%s", m, req.Stage, req.Status)
	}
}

func assign(t *testing.T, req *model.Request, volunteer model.Principal) {
	t.Helper()
	if err := CheckOrder(req, model.MilestoneVolunteerAssigned); err != nil {
		t.Fatalf("check assign: %v", err)
	}
	req.VolunteerID = &volunteer.ID
	Apply(req, model.MilestoneEvent{Milestone: model.MilestoneVolunteerAssigned})
}

func TestNewRequestIsPendingWithReceivedMilestone(t *testing.T) {
	req, _, _ := newTestRequest()
	if req.Status != model.RequestStatusPending {
		t.Fatalf("expected Pending, got %s", req.Status)
	}
	if !req.Completed(model.MilestoneRequestReceived) {
		t.Fatal("requestReceived should be pre-completed")
	}
	if !Consistent(&req) {
		t.Fatal("new request should be consistent")
	}
}

func TestFullLifecycleStatusFollowsStage(t *testing.T) {
	req, agency, volunteer := newTestRequest()

	expected := map[model.Milestone]model.RequestStatus{
		model.MilestoneAgencyAccepted:      model.RequestStatusAccepted,
		model.MilestonePickupScheduled:     model.RequestStatusAssigned,
		model.MilestonePickupStarted:       model.RequestStatusAssigned,
		model.MilestonePickupCompleted:     model.RequestStatusAssigned,
		model.MilestoneWasteSegregated:     model.RequestStatusProcessing,
		model.MilestoneProcessingStarted:   model.RequestStatusProcessing,
		model.MilestoneProcessingCompleted: model.RequestStatusCompleted,
	}

	advance(t, &req, agency, model.MilestoneAgencyAccepted)
	assign(t, &req, volunteer)
	if req.Status != model.RequestStatusAssigned {
		t.Fatalf("expected Assigned after assignment, got %s", req.Status)
	}
	steps := []struct {
		actor model.Principal
		m     model.Milestone
	}{
		{volunteer, model.MilestonePickupScheduled},
		{volunteer, model.MilestonePickupStarted},
		{volunteer, model.MilestonePickupCompleted},
		{agency, model.MilestoneWasteSegregated},
		{agency, model.MilestoneProcessingStarted},
		{agency, model.MilestoneProcessingCompleted},
	}
	for _, step := range steps {
		advance(t, &req, step.actor, step.m)
		if req.Status != expected[step.m] {
			t.Fatalf("after %s expected %s, got %s", step.m, expected[step.m], req.Status)
		}
	}

	if err := Check(&req, agency, model.MilestoneProcessingCompleted); !errors.Is(err, ErrTerminal) {
		t.Fatalf("expected ErrTerminal on completed request, got %v", err)
	}
}

func TestCheckRejectsWrongRole(t *testing.T) {
	req, agency, volunteer := newTestRequest()
	advance(t, &req, agency, model.MilestoneAgencyAccepted)
	assign(t, &req, volunteer)

	if err := Check(&req, agency, model.MilestonePickupScheduled); !errors.Is(err, ErrRoleNotAllowed) {
		t.Fatalf("agency advancing pickupScheduled: expected ErrRoleNotAllowed, got %v", err)
	}
	if err := Check(&req, volunteer, model.MilestoneWasteSegregated); !errors.Is(err, ErrRoleNotAllowed) {
		t.Fatalf("volunteer advancing wasteSegregated: expected ErrRoleNotAllowed, got %v", err)
	}
	if err := Check(&req, agency, model.MilestoneVolunteerAssigned); !errors.Is(err, ErrRoleNotAllowed) {
		t.Fatalf("volunteerAssigned through generic update: expected ErrRoleNotAllowed, got %v", err)
	}
}

func TestCheckRejectsUnknownMilestone(t *testing.T) {
	req, agency, _ := newTestRequest()
	if err := Check(&req, agency, model.Milestone("certificateIssued")); !errors.Is(err, ErrInvalidMilestone) {
		t.Fatalf("expected ErrInvalidMilestone, got %v", err)
	}
	if _, err := ParseMilestone("bogus"); !errors.Is(err, ErrInvalidMilestone) {
		t.Fatalf("expected ErrInvalidMilestone from ParseMilestone, got %v", err)
	}
}

func TestCheckRejectsOutOfOrder(t *testing.T) {
	req, agency, _ := newTestRequest()
	if err := Check(&req, agency, model.MilestoneWasteSegregated); !errors.Is(err, ErrOutOfOrder) {
		t.Fatalf("expected ErrOutOfOrder, got %v", err)
	}
	advance(t, &req, agency, model.MilestoneAgencyAccepted)
	if err := Check(&req, agency, model.MilestoneAgencyAccepted); !errors.Is(err, ErrOutOfOrder) {
		t.Fatalf("re-recording a milestone: expected ErrOutOfOrder, got %v", err)
	}
}

func TestOtherVolunteerIsNotOwner(t *testing.T) {
	req, agency, volunteer := newTestRequest()
	advance(t, &req, agency, model.MilestoneAgencyAccepted)
	assign(t, &req, volunteer)

	stranger := model.Principal{ID: uuid.New(), Role: model.RoleVolunteer, AgencyID: agency.AgencyID}
	for _, m := range Order {
		if err := Check(&req, stranger, m); !errors.Is(err, ErrNotOwner) {
			t.Fatalf("stranger advancing %s: expected ErrNotOwner, got %v", m, err)
		}
	}

	otherAgency := model.Principal{ID: uuid.New(), Role: model.RoleAgency}
	if err := Check(&req, otherAgency, model.MilestoneWasteSegregated); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("foreign agency: expected ErrNotOwner, got %v", err)
	}
	user := model.Principal{ID: req.UserID, Role: model.RoleUser}
	if err := Check(&req, user, model.MilestonePickupScheduled); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("user: expected ErrNotOwner, got %v", err)
	}
}

func TestRejectOnlyFromPendingOrAccepted(t *testing.T) {
	req, agency, _ := newTestRequest()
	if err := Reject(&req, "no capacity", time.Now()); err != nil {
		t.Fatalf("reject pending: %v", err)
	}
	if req.Status != model.RequestStatusRejected || !Consistent(&req) {
		t.Fatalf("expected consistent Rejected, got %s", req.Status)
	}
	if err := Check(&req, agency, model.MilestoneAgencyAccepted); !errors.Is(err, ErrTerminal) {
		t.Fatalf("expected ErrTerminal after reject, got %v", err)
	}

	req2, agency2, volunteer2 := newTestRequest()
	advance(t, &req2, agency2, model.MilestoneAgencyAccepted)
	assign(t, &req2, volunteer2)
	if err := Reject(&req2, "", time.Now()); !errors.Is(err, ErrTerminal) {
		t.Fatalf("expected ErrTerminal rejecting assigned request, got %v", err)
	}
}

func TestCancellable(t *testing.T) {
	req, agency, volunteer := newTestRequest()
	if !Cancellable(&req) {
		t.Fatal("pending request should be cancellable")
	}
	advance(t, &req, agency, model.MilestoneAgencyAccepted)
	assign(t, &req, volunteer)
	advance(t, &req, volunteer, model.MilestonePickupScheduled)
	if !Cancellable(&req) {
		t.Fatal("assigned request before pickup start should be cancellable")
	}
	advance(t, &req, volunteer, model.MilestonePickupStarted)
	if Cancellable(&req) {
		t.Fatal("request should not be cancellable after pickup started")
	}
}

func TestDeriveStatusMatchesStageFromHistory(t *testing.T) {
	req, agency, volunteer := newTestRequest()
	advance(t, &req, agency, model.MilestoneAgencyAccepted)
	assign(t, &req, volunteer)
	advance(t, &req, volunteer, model.MilestonePickupScheduled)

	if got := StageFromHistory(req.History); got != model.MilestonePickupScheduled {
		t.Fatalf("expected pickupScheduled, got %s", got)
	}
	if got := DeriveStatus(StageFromHistory(req.History), false); got != req.Status {
		t.Fatalf("derived %s, stored %s", got, req.Status)
	}

	req.Status = model.RequestStatusProcessing
	if Consistent(&req) {
		t.Fatal("drifted status should be detected")
	}
}

func TestMilestonesView(t *testing.T) {
	req, agency, _ := newTestRequest()
	lon, lat := 77.59, 12.97
	if err := Check(&req, agency, model.MilestoneAgencyAccepted); err != nil {
		t.Fatal(err)
	}
	Apply(&req, model.MilestoneEvent{Milestone: model.MilestoneAgencyAccepted, Notes: "ok", Lon: &lon, Lat: &lat, Address: "MG Road"})

	view := req.Milestones(Order)
	if len(view) != len(Order) {
		t.Fatalf("expected %d entries, got %d", len(Order), len(view))
	}
	accepted := view[model.MilestoneAgencyAccepted]
	if !accepted.Completed || accepted.Notes != "ok" || accepted.Location == nil || accepted.Address != "MG Road" {
		t.Fatalf("unexpected accepted state: %+v", accepted)
	}
	if view[model.MilestonePickupScheduled].Completed {
		t.Fatal("pickupScheduled should not be completed")
	}
}
