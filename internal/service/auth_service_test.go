package service

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/avakara/ewaste-platform/internal/auth"
	"github.com/avakara/ewaste-platform/internal/model"
)

type fakeTokens struct{}

func (fakeTokens) Issue(p model.Principal) (string, time.Time, error) {
	return "token-" + string(p.Role) + "-" + p.ID.String(), time.Now().Add(time.Hour), nil
}

func newAuthFixture(t *testing.T) (*fixture, *AuthService) {
	t.Helper()
	f := newFixture(t)
	return f, NewAuthService(f.store, f.storage, fakeTokens{}, zerolog.Nop())
}

func agencyInput(email string) RegisterAgencyInput {
	return RegisterAgencyInput{
		Name:              "Circuit Reclaim",
		Email:             email,
		Password:          "agency-secret",
		AgencyTypes:       []string{"Recycler"},
		Address:           "Unit 9, Peenya",
		WasteTypesHandled: []string{" laptop ", "", "mobile"},
		TradeLicense:      &File{Name: "license.pdf", Data: []byte("lic")},
		PCBAuthorization:  &File{Name: "pcb.pdf", Data: []byte("pcb")},
	}
}

func TestRegisterUserAndLogin(t *testing.T) {
	f, svc := newAuthFixture(t)

	user, session, err := svc.RegisterUser(f.ctx, RegisterUserInput{Name: "Meera", Email: " Meera@Example.com ", Password: "longenough"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Email != "meera@example.com" || session.Role != model.RoleUser || session.ID != user.ID {
		t.Fatalf("unexpected registration %+v %+v", user, session)
	}

	logged, err := svc.Login(f.ctx, "MEERA@example.com", "longenough")
	if err != nil || logged.ID != user.ID {
		t.Fatalf("expected login to resolve the user, got %+v (%v)", logged, err)
	}
	if _, err := svc.Login(f.ctx, "meera@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := svc.RegisterUser(f.ctx, RegisterUserInput{Name: "Again", Email: "meera@example.com", Password: "longenough"}); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected duplicate email to fail, got %v", err)
	}
}

func TestRegisterUserValidation(t *testing.T) {
	f, svc := newAuthFixture(t)
	cases := []RegisterUserInput{
		{Name: "", Email: "a@b.co", Password: "longenough"},
		{Name: "A", Email: "not-an-email", Password: "longenough"},
		{Name: "A", Email: "a@b.co", Password: "short"},
	}
	for _, input := range cases {
		if _, _, err := svc.RegisterUser(f.ctx, input); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput for %+v, got %v", input, err)
		}
	}
}

func TestLoginFollowsRoleOrder(t *testing.T) {
	f, svc := newAuthFixture(t)
	shared := "shared@example.com"

	if _, _, err := svc.RegisterUser(f.ctx, RegisterUserInput{Name: "Person", Email: shared, Password: "user-password"}); err != nil {
		t.Fatalf("register user: %v", err)
	}
	agency, _, err := svc.RegisterAgency(f.ctx, agencyInput(shared))
	if err != nil {
		t.Fatalf("register agency: %v", err)
	}

	session, err := svc.Login(f.ctx, shared, "user-password")
	if err != nil || session.Role != model.RoleUser {
		t.Fatalf("expected user to win, got %+v (%v)", session, err)
	}
	session, err = svc.Login(f.ctx, shared, "agency-secret")
	if err != nil || session.Role != model.RoleAgency || session.ID != agency.ID {
		t.Fatalf("expected agency after user mismatch, got %+v (%v)", session, err)
	}
	if session.Principal.AgencyID == nil || *session.Principal.AgencyID != agency.ID {
		t.Fatalf("expected agency principal to carry its own id")
	}

	hash, _ := auth.HashPassword("volunteer-pass")
	volunteer := &model.Volunteer{ID: uuid.New(), AgencyID: agency.ID, Name: "V", Email: "v@example.com", PasswordHash: hash, Status: model.VolunteerStatusActive}
	if err := f.store.Accounts().CreateVolunteer(f.ctx, volunteer); err != nil {
		t.Fatalf("create volunteer: %v", err)
	}
	session, err = svc.Login(f.ctx, "v@example.com", "volunteer-pass")
	if err != nil || session.Role != model.RoleVolunteer || *session.Principal.AgencyID != agency.ID {
		t.Fatalf("expected volunteer session, got %+v (%v)", session, err)
	}

	if err := svc.EnsureAdmin(f.ctx, "root@example.com", "admin-password"); err != nil {
		t.Fatalf("ensure admin: %v", err)
	}
	if err := svc.EnsureAdmin(f.ctx, "root@example.com", "rotated-password"); err != nil {
		t.Fatalf("ensure admin twice: %v", err)
	}
	session, err = svc.Login(f.ctx, "root@example.com", "rotated-password")
	if err != nil || session.Role != model.RoleAdmin {
		t.Fatalf("expected admin session with rotated password, got %+v (%v)", session, err)
	}
}

func TestRegisterAgency(t *testing.T) {
	f, svc := newAuthFixture(t)

	agency, session, err := svc.RegisterAgency(f.ctx, agencyInput("desk@reclaim.test"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if agency.CertificationStatus != model.CertificationUncertified || session.Role != model.RoleAgency {
		t.Fatalf("expected uncertified agency session, got %s/%s", agency.CertificationStatus, session.Role)
	}
	if len(agency.WasteTypesHandled) != 2 || agency.WasteTypesHandled[0] != "laptop" {
		t.Fatalf("expected trimmed waste types, got %v", agency.WasteTypesHandled)
	}
	if agency.TradeLicense.StorageKey == "" || agency.PCBAuthorization.StorageKey == "" || agency.Logo.StorageKey != "" {
		t.Fatalf("unexpected attachments %+v %+v %+v", agency.TradeLicense, agency.PCBAuthorization, agency.Logo)
	}

	missing := agencyInput("other@reclaim.test")
	missing.PCBAuthorization = nil
	if _, _, err := svc.RegisterAgency(f.ctx, missing); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected missing document to fail, got %v", err)
	}
	badType := agencyInput("other@reclaim.test")
	badType.AgencyTypes = []string{"Smelter"}
	if _, _, err := svc.RegisterAgency(f.ctx, badType); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected unknown agency type to fail, got %v", err)
	}
}

func TestRegisterAgencyRollsBackUploads(t *testing.T) {
	f, svc := newAuthFixture(t)
	before := f.storage.count()

	f.storage.failOn = f.storage.uploads + 2
	if _, _, err := svc.RegisterAgency(f.ctx, agencyInput("fail@reclaim.test")); !errors.Is(err, ErrExternalService) {
		t.Fatalf("expected ErrExternalService, got %v", err)
	}
	if f.storage.count() != before {
		t.Fatalf("expected partial uploads removed, %d objects stored", f.storage.count())
	}

	f.storage.failOn = 0
	if _, _, err := svc.RegisterAgency(f.ctx, agencyInput("dup@reclaim.test")); err != nil {
		t.Fatalf("register: %v", err)
	}
	stored := f.storage.count()
	if _, _, err := svc.RegisterAgency(f.ctx, agencyInput("dup@reclaim.test")); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected duplicate email to fail, got %v", err)
	}
	if f.storage.count() != stored {
		t.Fatalf("expected documents of the refused agency removed")
	}
}

func TestProfileRequiresUser(t *testing.T) {
	f, svc := newAuthFixture(t)
	if _, err := svc.Profile(f.ctx, f.agency); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	user, err := svc.Profile(f.ctx, f.user)
	if err != nil || user.ID != f.user.ID {
		t.Fatalf("expected own profile, got %v (%v)", user, err)
	}
	if err := svc.EnsureAdmin(f.ctx, "", ""); err != nil {
		t.Fatalf("expected empty admin config to be skipped, got %v", err)
	}
}
