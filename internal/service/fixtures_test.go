package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/avakara/ewaste-platform/internal/model"
	"github.com/avakara/ewaste-platform/internal/repository/memstore"
)

type fakeStorage struct {
	mu      sync.Mutex
	failOn  int
	uploads int
	stored  map[string]struct{}
	deleted []string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{stored: map[string]struct{}{}}
}

func (f *fakeStorage) Upload(_ context.Context, folder string, file File) (model.Attachment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads++
	if f.failOn > 0 && f.uploads == f.failOn {
		return model.Attachment{}, errors.New("bucket unavailable")
	}
	key := fmt.Sprintf("%s/%d-%s", folder, f.uploads, file.Name)
	f.stored[key] = struct{}{}
	return model.Attachment{URL: "https://cdn.test/" + key, StorageKey: key}, nil
}

func (f *fakeStorage) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.stored, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeStorage) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.stored)
}

type fakeGeocoder struct {
	address string
	err     error
}

func (f fakeGeocoder) ReverseGeocode(context.Context, float64, float64) (string, error) {
	return f.address, f.err
}

type fakeClassifier struct {
	category string
	label    string
	err      error
}

func (f fakeClassifier) ClassifyWasteImage(context.Context, File) (string, error) {
	return f.category, f.err
}

func (f fakeClassifier) ModerateEvent(context.Context, string, string) (string, error) {
	return f.label, f.err
}

type recordingNotifier struct {
	mu          sync.Mutex
	alerts      []model.Inventory
	codes       []string
	assignments []uuid.UUID
	statuses    []model.RequestStatus
}

func (n *recordingNotifier) InventoryAlert(_ context.Context, _ model.Agency, inv model.Inventory) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, inv)
}

func (n *recordingNotifier) PickupCode(_ context.Context, _ model.User, _ model.Request, code string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.codes = append(n.codes, code)
}

func (n *recordingNotifier) VolunteerAssigned(_ context.Context, v model.Volunteer, _ model.Request) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.assignments = append(n.assignments, v.ID)
}

func (n *recordingNotifier) StatusChanged(_ context.Context, _ model.User, req model.Request) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.statuses = append(n.statuses, req.Status)
}

func (n *recordingNotifier) lastCode() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.codes) == 0 {
		return ""
	}
	return n.codes[len(n.codes)-1]
}

type recordingEvents struct {
	mu    sync.Mutex
	kinds []string
}

func (e *recordingEvents) Publish(_ context.Context, event model.RequestEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.kinds = append(e.kinds, event.Kind)
	return nil
}

func (e *recordingEvents) list() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.kinds...)
}

type fixture struct {
	ctx       context.Context
	store     *memstore.Store
	storage   *fakeStorage
	notifier  *recordingNotifier
	events    *recordingEvents
	points    *PointsService
	requests  *RequestService
	inventory *InventoryService
	agency    model.Principal
	volunteer model.Principal
	user      model.Principal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := zerolog.Nop()
	f := &fixture{
		ctx:      context.Background(),
		store:    memstore.New(),
		storage:  newFakeStorage(),
		notifier: &recordingNotifier{},
		events:   &recordingEvents{},
	}
	f.points = NewPointsService(f.store, log)
	f.requests = NewRequestService(f.store, f.points, Collaborators{
		Storage:    f.storage,
		Geocoder:   fakeGeocoder{address: "12 MG Road, Bengaluru"},
		Classifier: fakeClassifier{category: "laptop", label: ModerationValid},
		Notifier:   f.notifier,
		Events:     f.events,
	}, Rules{InventoryAlertThreshold: 0.9, CommunityEventPoints: 50}, log)
	f.inventory = NewInventoryService(f.store)

	f.agency = f.addAgency(t, nil)
	f.volunteer = f.addVolunteer(t, f.agency.ID, model.VolunteerStatusActive)
	f.user = f.addUser(t, "asha@example.com")
	return f
}

func (f *fixture) addUser(t *testing.T, email string) model.Principal {
	t.Helper()
	user := &model.User{ID: uuid.New(), Name: "User " + email, Email: email}
	if err := f.store.Accounts().CreateUser(f.ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return model.Principal{ID: user.ID, Role: model.RoleUser}
}

func (f *fixture) addAgency(t *testing.T, wasteTypes []string) model.Principal {
	t.Helper()
	agency := &model.Agency{
		ID:                  uuid.New(),
		Name:                "Green Loop",
		Email:               uuid.NewString() + "@agency.test",
		CertificationStatus: model.CertificationCertified,
		WasteTypesHandled:   wasteTypes,
	}
	if err := f.store.Accounts().CreateAgency(f.ctx, agency); err != nil {
		t.Fatalf("create agency: %v", err)
	}
	id := agency.ID
	return model.Principal{ID: agency.ID, Role: model.RoleAgency, AgencyID: &id}
}

func (f *fixture) addVolunteer(t *testing.T, agencyID uuid.UUID, status model.VolunteerStatus) model.Principal {
	t.Helper()
	volunteer := &model.Volunteer{
		ID:       uuid.New(),
		AgencyID: agencyID,
		Name:     "Ravi",
		Email:    uuid.NewString() + "@volunteer.test",
		Status:   status,
	}
	if err := f.store.Accounts().CreateVolunteer(f.ctx, volunteer); err != nil {
		t.Fatalf("create volunteer: %v", err)
	}
	id := agencyID
	return model.Principal{ID: volunteer.ID, Role: model.RoleVolunteer, AgencyID: &id}
}

func (f *fixture) setupInventory(t *testing.T, total float64) {
	t.Helper()
	_, err := f.inventory.SetupInventory(f.ctx, f.agency, SetupInventoryInput{
		TotalCapacity: total,
		Location:      model.InventoryLocation{Address: "Plot 4, KIADB", City: "Bengaluru"},
	})
	if err != nil {
		t.Fatalf("setup inventory: %v", err)
	}
}

func (f *fixture) requestInput(items []model.WasteItem, weight float64) CreateRequestInput {
	return CreateRequestInput{
		AgencyID:      f.agency.ID,
		Items:         items,
		Weight:        weight,
		PickupAddress: "12 MG Road",
		PickupLon:     77.59,
		PickupLat:     12.97,
		PickupDate:    time.Date(2026, 11, 2, 10, 0, 0, 0, time.UTC),
		ContactNumber: "9876543210",
	}
}

func (f *fixture) createRequest(t *testing.T, items []model.WasteItem, weight float64) *model.Request {
	t.Helper()
	req, err := f.requests.CreateRequest(f.ctx, f.user, f.requestInput(items, weight))
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	return req
}

// advanceTo drives req through every milestone up to and including target with the proper actor.
func (f *fixture) advanceTo(t *testing.T, requestID uuid.UUID, target model.Milestone) *model.Request {
	t.Helper()
	current, err := f.store.Requests().Get(f.ctx, requestID)
	if err != nil {
		t.Fatalf("load request: %v", err)
	}
	for current.Stage != target {
		next, ok := nextMilestone(current.Stage)
		if !ok {
			t.Fatalf("cannot advance past %s", current.Stage)
		}
		current, err = f.step(requestID, next)
		if err != nil {
			t.Fatalf("advance to %s: %v", next, err)
		}
	}
	return current
}

func (f *fixture) step(requestID uuid.UUID, m model.Milestone) (*model.Request, error) {
	switch m {
	case model.MilestoneVolunteerAssigned:
		return f.requests.AssignVolunteer(f.ctx, f.agency, requestID, f.volunteer.ID)
	case model.MilestonePickupScheduled, model.MilestonePickupStarted:
		return f.requests.AdvanceMilestone(f.ctx, f.volunteer, requestID, string(m), AdvanceInput{})
	case model.MilestonePickupCompleted:
		return f.requests.AdvanceMilestone(f.ctx, f.volunteer, requestID, string(m), AdvanceInput{Code: f.notifier.lastCode()})
	default:
		return f.requests.AdvanceMilestone(f.ctx, f.agency, requestID, string(m), AdvanceInput{})
	}
}

func nextMilestone(current model.Milestone) (model.Milestone, bool) {
	order := []model.Milestone{
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
	for i, m := range order {
		if m == current && i+1 < len(order) {
			return order[i+1], true
		}
	}
	return "", false
}

func (f *fixture) userRecord(t *testing.T, id uuid.UUID) *model.User {
	t.Helper()
	user, err := f.store.Accounts().GetUser(f.ctx, id)
	if err != nil {
		t.Fatalf("load user: %v", err)
	}
	return user
}
