package service

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/avakara/ewaste-platform/internal/model"
)

func newAgencyService(f *fixture) *AgencyService {
	return NewAgencyService(f.store, f.storage, zerolog.Nop())
}

func TestCertifyAgencyRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	svc := newAgencyService(f)
	admin := model.Principal{ID: uuid.New(), Role: model.RoleAdmin}

	if _, err := svc.CertifyAgency(f.ctx, f.agency, f.agency.ID, "Uncertified"); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected agencies to be refused, got %v", err)
	}
	if _, err := svc.CertifyAgency(f.ctx, admin, f.agency.ID, "Gold"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected unknown status to fail, got %v", err)
	}
	agency, err := svc.CertifyAgency(f.ctx, admin, f.agency.ID, "Uncertified")
	if err != nil || agency.Certified() {
		t.Fatalf("expected certification revoked, got %v (%v)", agency, err)
	}
	listed, _ := svc.ListCertifiedAgencies(f.ctx)
	for _, a := range listed {
		if a.ID == f.agency.ID {
			t.Fatalf("expected revoked agency to be unlisted")
		}
	}
	if _, err := f.requests.CreateRequest(f.ctx, f.user, f.requestInput(twoLaptops, 1)); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected requests to an uncertified agency to fail, got %v", err)
	}
}

func TestAddVolunteer(t *testing.T) {
	f := newFixture(t)
	svc := newAgencyService(f)
	input := AddVolunteerInput{
		Name:         "Kiran",
		Email:        "kiran@example.com",
		Password:     "volunteer-pass",
		PickupArea:   model.PickupArea{City: "Bengaluru", PinCodes: []string{"560001"}},
		ProfilePhoto: &File{Name: "me.jpg", Data: []byte{1}},
	}

	volunteer, err := svc.AddVolunteer(f.ctx, f.agency, input)
	if err != nil {
		t.Fatalf("add volunteer: %v", err)
	}
	if volunteer.AgencyID != f.agency.ID || !volunteer.Active() || volunteer.ProfilePicKey == "" {
		t.Fatalf("unexpected volunteer %+v", volunteer)
	}
	if _, err := svc.AddVolunteer(f.ctx, f.agency, input); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected duplicate email to fail, got %v", err)
	}
	if f.storage.count() != 1 {
		t.Fatalf("expected the duplicate's photo removed, %d objects stored", f.storage.count())
	}

	noArea := input
	noArea.Email = "other@example.com"
	noArea.PickupArea = model.PickupArea{}
	if _, err := svc.AddVolunteer(f.ctx, f.agency, noArea); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected missing pickup area to fail, got %v", err)
	}
	if _, err := svc.AddVolunteer(f.ctx, f.user, input); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected users to be refused, got %v", err)
	}
}

func TestSetVolunteerStatus(t *testing.T) {
	f := newFixture(t)
	svc := newAgencyService(f)

	volunteer, err := svc.SetVolunteerStatus(f.ctx, f.agency, f.volunteer.ID, "Inactive")
	if err != nil || volunteer.Active() {
		t.Fatalf("expected inactive volunteer, got %v (%v)", volunteer, err)
	}
	active, _ := svc.ListVolunteers(f.ctx, f.agency, true)
	if len(active) != 0 {
		t.Fatalf("expected no active volunteers, got %d", len(active))
	}
	other := f.addAgency(t, nil)
	if _, err := svc.SetVolunteerStatus(f.ctx, other, f.volunteer.ID, "Active"); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected foreign agency to be refused, got %v", err)
	}
}

func TestDeleteVolunteerWithOpenAssignment(t *testing.T) {
	f := newFixture(t)
	svc := newAgencyService(f)
	req := f.createRequest(t, twoLaptops, 5)
	f.advanceTo(t, req.ID, model.MilestoneVolunteerAssigned)

	if err := svc.DeleteVolunteer(f.ctx, f.agency, f.volunteer.ID); !errors.Is(err, ErrVolunteerBusy) {
		t.Fatalf("expected ErrVolunteerBusy, got %v", err)
	}
	if _, err := f.requests.RejectRequest(f.ctx, f.agency, req.ID, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected assigned request to stay open, got %v", err)
	}
	if err := f.requests.CancelRequest(f.ctx, f.user, req.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := svc.DeleteVolunteer(f.ctx, f.agency, f.volunteer.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.store.Accounts().GetVolunteer(f.ctx, f.volunteer.ID); err == nil {
		t.Fatalf("expected volunteer removed")
	}
}

func TestRegisterPushToken(t *testing.T) {
	f := newFixture(t)
	svc := newAgencyService(f)

	if err := svc.RegisterPushToken(f.ctx, f.volunteer, "not-a-token"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected malformed token to fail, got %v", err)
	}
	if err := svc.RegisterPushToken(f.ctx, f.volunteer, "ExponentPushToken[xxxxxxxxxxxxxxxxxxxxxx]"); err != nil {
		t.Fatalf("register token: %v", err)
	}
	volunteer, _ := f.store.Accounts().GetVolunteer(f.ctx, f.volunteer.ID)
	if volunteer.PushToken != "ExponentPushToken[xxxxxxxxxxxxxxxxxxxxxx]" {
		t.Fatalf("expected token stored, got %q", volunteer.PushToken)
	}
	if err := svc.RegisterPushToken(f.ctx, f.user, "ExponentPushToken[x]"); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected users to be refused, got %v", err)
	}
}
