package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/avakara/ewaste-platform/internal/metrics"
	"github.com/avakara/ewaste-platform/internal/model"
	"github.com/avakara/ewaste-platform/internal/repository"
	"github.com/avakara/ewaste-platform/internal/workflow"
)

const (
	UnknownLocation        = "Unknown location"
	UnknownCategory        = "UNKNOWN"
	maxSpecialInstructions = 500
	pickupCodeDigits       = 6
)

var contactNumberPattern = regexp.MustCompile(`^[0-9]{10}$`)

type Rules struct {
	InventoryAlertThreshold float64
	CommunityEventPoints    int64
}

// Collaborators are the external services the workflow talks to. Notifier and Events may be nil.
type Collaborators struct {
	Storage    ObjectStorage
	Geocoder   Geocoder
	Classifier Classifier
	Notifier   Notifier
	Events     EventSink
}

func (c Collaborators) withDefaults() Collaborators {
	if c.Notifier == nil {
		c.Notifier = nopNotifier{}
	}
	if c.Events == nil {
		c.Events = nopEvents{}
	}
	return c
}

type RequestService struct {
	store  repository.Store
	points *PointsService
	ext    Collaborators
	rules  Rules
	locks  *keyedMutex
	log    zerolog.Logger
	now    func() time.Time
}

func NewRequestService(store repository.Store, points *PointsService, ext Collaborators, rules Rules, log zerolog.Logger) *RequestService {
	return &RequestService{
		store:  store,
		points: points,
		ext:    ext.withDefaults(),
		rules:  rules,
		locks:  newKeyedMutex(),
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

type CreateRequestInput struct {
	AgencyID            uuid.UUID
	Items               []model.WasteItem
	Weight              float64
	PickupAddress       string
	PickupLon           float64
	PickupLat           float64
	PickupDate          time.Time
	ContactNumber       string
	SpecialInstructions string
	Images              []File
}

func (in CreateRequestInput) validate() error {
	if in.AgencyID == uuid.Nil {
		return fmt.Errorf("%w: agency is required", ErrInvalidInput)
	}
	if len(in.Items) == 0 {
		return fmt.Errorf("%w: at least one waste type is required", ErrInvalidInput)
	}
	for _, item := range in.Items {
		if strings.TrimSpace(item.Type) == "" {
			return fmt.Errorf("%w: waste type is required", ErrInvalidInput)
		}
		if item.Quantity < 1 {
			return fmt.Errorf("%w: quantity for %s must be at least 1", ErrInvalidInput, item.Type)
		}
	}
	if in.Weight < 0 {
		return fmt.Errorf("%w: weight must not be negative", ErrInvalidInput)
	}
	if in.PickupLon < -180 || in.PickupLon > 180 || in.PickupLat < -90 || in.PickupLat > 90 {
		return fmt.Errorf("%w: pickup location is out of range", ErrInvalidInput)
	}
	if in.PickupDate.IsZero() {
		return fmt.Errorf("%w: pickup date is required", ErrInvalidInput)
	}
	if !contactNumberPattern.MatchString(in.ContactNumber) {
		return fmt.Errorf("%w: contact number must be 10 digits", ErrInvalidInput)
	}
	if len([]rune(in.SpecialInstructions)) > maxSpecialInstructions {
		return fmt.Errorf("%w: special instructions exceed %d characters", ErrInvalidInput, maxSpecialInstructions)
	}
	return nil
}

// CreateRequest files a new pickup request for the calling user.
func (s *RequestService) CreateRequest(ctx context.Context, principal model.Principal, input CreateRequestInput) (*model.Request, error) {
	if !principal.IsUser() {
		return nil, ErrPermissionDenied
	}
	if err := input.validate(); err != nil {
		return nil, err
	}
	if _, err := s.store.Accounts().GetUser(ctx, principal.ID); err != nil {
		return nil, storeError(err, "user")
	}
	if _, err := assignAgency(ctx, s.store, input.AgencyID, input.Items); err != nil {
		return nil, err
	}

	images, err := uploadAll(ctx, s.ext.Storage, "requests/"+principal.ID.String(), input.Images, s.log)
	if err != nil {
		return nil, err
	}

	category := UnknownCategory
	if len(input.Images) > 0 {
		category = s.classify(ctx, input.Images[0])
	}

	address := strings.TrimSpace(input.PickupAddress)
	if address == "" {
		address = s.reverseGeocode(ctx, input.PickupLon, input.PickupLat)
	}

	items := make([]model.WasteItem, len(input.Items))
	for i, item := range input.Items {
		items[i] = model.WasteItem{Type: strings.TrimSpace(item.Type), Quantity: item.Quantity}
	}

	req := workflow.NewRequest(model.Request{
		ID:                  uuid.New(),
		UserID:              principal.ID,
		AgencyID:            input.AgencyID,
		Items:               items,
		Weight:              model.RoundWeight(input.Weight),
		PickupAddress:       address,
		PickupLon:           input.PickupLon,
		PickupLat:           input.PickupLat,
		PickupDate:          input.PickupDate.UTC(),
		ContactNumber:       input.ContactNumber,
		SpecialInstructions: strings.TrimSpace(input.SpecialInstructions),
		DetectedCategory:    category,
		Images:              images,
	}, s.now())

	err = s.store.Atomic(ctx, func(tx repository.Store) error {
		return tx.Requests().Create(ctx, &req)
	})
	if err != nil {
		deleteAll(ctx, s.ext.Storage, images, s.log)
		return nil, storeError(err, "request")
	}

	metrics.RequestsCreated.Inc()
	s.publish(ctx, &req, model.RequestEventCreated)
	return &req, nil
}

type AdvanceInput struct {
	Notes   string
	Code    string
	Lon     *float64
	Lat     *float64
	Details map[string]interface{}
}

type transitionOutcome struct {
	pickupCode string
	alert      *model.Inventory
}

// AdvanceMilestone records milestone on the request on behalf of an agency or its assigned
// volunteer, applying the inventory and points side effects in the same transaction.
func (s *RequestService) AdvanceMilestone(
	ctx context.Context,
	principal model.Principal,
	requestID uuid.UUID,
	milestone string,
	input AdvanceInput,
) (*model.Request, error) {
	if (input.Lon == nil) != (input.Lat == nil) {
		return nil, fmt.Errorf("%w: location needs both lon and lat", ErrInvalidInput)
	}
	m := model.Milestone(milestone)

	address := ""
	if input.Lon != nil {
		// Refuse callers that cannot record this milestone before any outbound lookup.
		current, err := s.store.Requests().Get(ctx, requestID)
		if err != nil {
			return nil, storeError(err, "request")
		}
		if err := workflow.Check(current, principal, m); err != nil {
			return nil, workflowError(err)
		}
		address = s.reverseGeocode(ctx, *input.Lon, *input.Lat)
	}

	unlock := s.locks.Lock(requestID)
	defer unlock()

	var (
		updated model.Request
		outcome transitionOutcome
	)
	err := s.store.Atomic(ctx, func(tx repository.Store) error {
		req, err := tx.Requests().GetForUpdate(ctx, requestID)
		if err != nil {
			return storeError(err, "request")
		}
		if err := workflow.Check(req, principal, m); err != nil {
			return workflowError(err)
		}
		expected := req.Version

		switch m {
		case model.MilestonePickupStarted:
			code, err := newPickupCode()
			if err != nil {
				return err
			}
			req.PickupCode = code
			outcome.pickupCode = code
		case model.MilestonePickupCompleted:
			if !pickupCodeMatches(req.PickupCode, input.Code) {
				return ErrInvalidPickupCode
			}
			req.PickupCode = ""
		case model.MilestoneWasteSegregated:
			inv, err := s.receive(ctx, tx, req)
			if err != nil {
				return err
			}
			if inv.Occupancy() >= s.rules.InventoryAlertThreshold {
				outcome.alert = inv
			}
		case model.MilestoneProcessingCompleted:
			if err := tx.Inventories().Release(ctx, req.AgencyID, req.Weight, req.Items); err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return ErrInventoryNotSetup
				}
				return err
			}
		}

		ev := workflow.Apply(req, model.MilestoneEvent{
			Milestone:   m,
			ActorID:     &principal.ID,
			ActorRole:   principal.Role,
			Notes:       strings.TrimSpace(input.Notes),
			Lon:         input.Lon,
			Lat:         input.Lat,
			Address:     address,
			Details:     input.Details,
			CompletedAt: s.now(),
		})
		if err := tx.Requests().Update(ctx, req, expected); err != nil {
			return storeError(err, "request")
		}
		if err := tx.Requests().AppendMilestone(ctx, ev); err != nil {
			return err
		}
		if m == model.MilestoneProcessingCompleted {
			if err := s.points.creditCompletion(ctx, tx, req); err != nil {
				return err
			}
		}
		updated = *req
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrCapacityExceeded) {
			metrics.CapacityRejections.Inc()
		}
		return nil, err
	}

	metrics.TransitionsTotal.WithLabelValues(milestone).Inc()
	s.afterTransition(ctx, &updated, outcome)
	return &updated, nil
}

// receive books the request's material into the agency inventory, checking capacity first.
func (s *RequestService) receive(ctx context.Context, tx repository.Store, req *model.Request) (*model.Inventory, error) {
	inv, err := tx.Inventories().Get(ctx, req.AgencyID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInventoryNotSetup
		}
		return nil, err
	}
	if !inv.Fits(req.Weight) {
		return nil, fmt.Errorf("%w: %.2f kg held, %.2f kg incoming, %.2f kg total",
			ErrCapacityExceeded, inv.CurrentCapacity, req.Weight, inv.TotalCapacity)
	}
	if err := tx.Inventories().Add(ctx, req.AgencyID, req.Weight, req.Items); err != nil {
		if errors.Is(err, repository.ErrConditionFailed) {
			return nil, ErrCapacityExceeded
		}
		return nil, err
	}
	return tx.Inventories().Get(ctx, req.AgencyID)
}

func (s *RequestService) afterTransition(ctx context.Context, req *model.Request, outcome transitionOutcome) {
	ctx = context.WithoutCancel(ctx)
	s.publish(ctx, req, model.RequestEventMilestone)

	user, err := s.store.Accounts().GetUser(ctx, req.UserID)
	if err != nil {
		s.log.Warn().Err(err).Str("request_id", req.ID.String()).Msg("load request owner for notification")
	} else {
		s.ext.Notifier.StatusChanged(ctx, *user, *req)
		if outcome.pickupCode != "" {
			s.ext.Notifier.PickupCode(ctx, *user, *req, outcome.pickupCode)
		}
	}

	if outcome.alert != nil {
		agency, err := s.store.Accounts().GetAgency(ctx, req.AgencyID)
		if err != nil {
			s.log.Warn().Err(err).Str("agency_id", req.AgencyID.String()).Msg("load agency for inventory alert")
			return
		}
		s.ext.Notifier.InventoryAlert(ctx, *agency, *outcome.alert)
	}
}

// AcceptRequest is the agency's agencyAccepted milestone.
func (s *RequestService) AcceptRequest(ctx context.Context, principal model.Principal, requestID uuid.UUID, notes string) (*model.Request, error) {
	return s.AdvanceMilestone(ctx, principal, requestID, string(model.MilestoneAgencyAccepted), AdvanceInput{Notes: notes})
}

// RejectRequest closes a Pending or Accepted request. The row stays for history.
func (s *RequestService) RejectRequest(ctx context.Context, principal model.Principal, requestID uuid.UUID, reason string) (*model.Request, error) {
	if !principal.IsAgency() {
		return nil, ErrPermissionDenied
	}

	unlock := s.locks.Lock(requestID)
	defer unlock()

	var updated model.Request
	err := s.store.Atomic(ctx, func(tx repository.Store) error {
		req, err := tx.Requests().GetForUpdate(ctx, requestID)
		if err != nil {
			return storeError(err, "request")
		}
		if err := workflow.CheckOwnership(req, principal); err != nil {
			return workflowError(err)
		}
		expected := req.Version
		if err := workflow.Reject(req, strings.TrimSpace(reason), s.now()); err != nil {
			return workflowError(err)
		}
		if err := tx.Requests().Update(ctx, req, expected); err != nil {
			return storeError(err, "request")
		}
		updated = *req
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RequestsRejected.Inc()
	ctx = context.WithoutCancel(ctx)
	s.publish(ctx, &updated, model.RequestEventRejected)
	if user, err := s.store.Accounts().GetUser(ctx, updated.UserID); err == nil {
		s.ext.Notifier.StatusChanged(ctx, *user, updated)
	}
	return &updated, nil
}

// CancelRequest deletes a request its owner withdraws before pickup has started.
func (s *RequestService) CancelRequest(ctx context.Context, principal model.Principal, requestID uuid.UUID) error {
	if !principal.IsUser() {
		return ErrPermissionDenied
	}

	unlock := s.locks.Lock(requestID)
	defer unlock()

	var removed model.Request
	err := s.store.Atomic(ctx, func(tx repository.Store) error {
		req, err := tx.Requests().GetForUpdate(ctx, requestID)
		if err != nil {
			return storeError(err, "request")
		}
		if req.UserID != principal.ID {
			return ErrPermissionDenied
		}
		if !workflow.Cancellable(req) {
			return fmt.Errorf("%w: request can no longer be cancelled", ErrInvalidTransition)
		}
		if err := tx.Requests().Delete(ctx, req.ID); err != nil {
			return storeError(err, "request")
		}
		removed = *req
		return nil
	})
	if err != nil {
		return err
	}

	metrics.RequestsCancelled.Inc()
	ctx = context.WithoutCancel(ctx)
	deleteAll(ctx, s.ext.Storage, removed.Images, s.log)
	s.publish(ctx, &removed, model.RequestEventCancelled)
	return nil
}

// GetRequest returns the request if the caller is its user, agency, assigned volunteer or an admin.
func (s *RequestService) GetRequest(ctx context.Context, principal model.Principal, requestID uuid.UUID) (*model.Request, error) {
	req, err := s.store.Requests().Get(ctx, requestID)
	if err != nil {
		return nil, storeError(err, "request")
	}
	if !canView(req, principal) {
		return nil, ErrPermissionDenied
	}
	return req, nil
}

// Tracking is the request plus its derived milestone map.
type Tracking struct {
	Request    *model.Request                           `json:"request"`
	Milestones map[model.Milestone]model.MilestoneState `json:"milestones"`
	Order      []model.Milestone                        `json:"order"`
}

func (s *RequestService) TrackRequest(ctx context.Context, principal model.Principal, requestID uuid.UUID) (*Tracking, error) {
	req, err := s.GetRequest(ctx, principal, requestID)
	if err != nil {
		return nil, err
	}
	return &Tracking{
		Request:    req,
		Milestones: req.Milestones(workflow.Order),
		Order:      workflow.Order,
	}, nil
}

func canView(req *model.Request, principal model.Principal) bool {
	switch principal.Role {
	case model.RoleAdmin:
		return true
	case model.RoleUser:
		return req.UserID == principal.ID
	case model.RoleAgency:
		return req.AgencyID == principal.ID
	case model.RoleVolunteer:
		return req.IsAssignedTo(principal.ID)
	default:
		return false
	}
}

func (s *RequestService) ListUserRequests(ctx context.Context, principal model.Principal, includeRejected bool) ([]model.Request, error) {
	if !principal.IsUser() {
		return nil, ErrPermissionDenied
	}
	return s.store.Requests().ListByUser(ctx, principal.ID, includeRejected)
}

func (s *RequestService) ListAgencyRequests(ctx context.Context, principal model.Principal, status string, includeRejected bool) ([]model.Request, error) {
	if !principal.IsAgency() {
		return nil, ErrPermissionDenied
	}
	var filter *model.RequestStatus
	if status != "" {
		parsed, err := parseRequestStatus(status)
		if err != nil {
			return nil, err
		}
		filter = &parsed
		if parsed == model.RequestStatusRejected {
			includeRejected = true
		}
	}
	return s.store.Requests().ListByAgency(ctx, principal.ID, filter, includeRejected)
}

func (s *RequestService) ListVolunteerRequests(ctx context.Context, principal model.Principal) ([]model.Request, error) {
	if !principal.IsVolunteer() {
		return nil, ErrPermissionDenied
	}
	return s.store.Requests().ListByVolunteer(ctx, principal.ID)
}

func parseRequestStatus(raw string) (model.RequestStatus, error) {
	switch status := model.RequestStatus(raw); status {
	case model.RequestStatusPending,
		model.RequestStatusAccepted,
		model.RequestStatusAssigned,
		model.RequestStatusProcessing,
		model.RequestStatusCompleted,
		model.RequestStatusRejected:
		return status, nil
	default:
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidInput, raw)
	}
}

func (s *RequestService) publish(ctx context.Context, req *model.Request, kind string) {
	event := model.RequestEvent{
		RequestID:  req.ID,
		UserID:     req.UserID,
		AgencyID:   req.AgencyID,
		Milestone:  req.Stage,
		Status:     req.Status,
		Kind:       kind,
		OccurredAt: s.now(),
	}
	if n := len(req.History); n > 0 && req.History[n-1].Lon != nil && req.History[n-1].Lat != nil {
		event.Location = &model.GeoPoint{Lon: *req.History[n-1].Lon, Lat: *req.History[n-1].Lat}
	}
	if err := s.ext.Events.Publish(context.WithoutCancel(ctx), event); err != nil {
		s.log.Warn().Err(err).Str("request_id", req.ID.String()).Str("kind", kind).Msg("publish request event")
	}
}

func (s *RequestService) classify(ctx context.Context, image File) string {
	if s.ext.Classifier == nil {
		return UnknownCategory
	}
	label, err := s.ext.Classifier.ClassifyWasteImage(ctx, image)
	if err != nil || strings.TrimSpace(label) == "" {
		s.log.Warn().Err(err).Msg("classify waste image")
		return UnknownCategory
	}
	return label
}

func (s *RequestService) reverseGeocode(ctx context.Context, lon, lat float64) string {
	if s.ext.Geocoder == nil {
		return UnknownLocation
	}
	address, err := s.ext.Geocoder.ReverseGeocode(ctx, lon, lat)
	if err != nil || strings.TrimSpace(address) == "" {
		s.log.Warn().Err(err).Float64("lon", lon).Float64("lat", lat).Msg("reverse geocode")
		return UnknownLocation
	}
	return address
}

func newPickupCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generate pickup code: %w", err)
	}
	return fmt.Sprintf("%0*d", pickupCodeDigits, n.Int64()), nil
}

func pickupCodeMatches(stored, presented string) bool {
	presented = strings.TrimSpace(presented)
	if stored == "" || len(presented) != len(stored) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) == 1
}
