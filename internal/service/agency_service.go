package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	expo "github.com/oliveroneill/exponent-server-sdk-golang/sdk"
	"github.com/rs/zerolog"

	"github.com/avakara/ewaste-platform/internal/auth"
	"github.com/avakara/ewaste-platform/internal/model"
	"github.com/avakara/ewaste-platform/internal/repository"
)

type AgencyService struct {
	store   repository.Store
	storage ObjectStorage
	log     zerolog.Logger
	now     func() time.Time
}

func NewAgencyService(store repository.Store, storage ObjectStorage, log zerolog.Logger) *AgencyService {
	return &AgencyService{
		store:   store,
		storage: storage,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *AgencyService) GetAgency(ctx context.Context, id uuid.UUID) (*model.Agency, error) {
	agency, err := s.store.Accounts().GetAgency(ctx, id)
	if err != nil {
		return nil, storeError(err, "agency")
	}
	return agency, nil
}

func (s *AgencyService) ListCertifiedAgencies(ctx context.Context) ([]model.Agency, error) {
	return s.store.Accounts().ListCertifiedAgencies(ctx)
}

// CertifyAgency lets an admin grant or revoke certification.
func (s *AgencyService) CertifyAgency(ctx context.Context, principal model.Principal, agencyID uuid.UUID, status string) (*model.Agency, error) {
	if !principal.IsAdmin() {
		return nil, ErrPermissionDenied
	}
	target := model.CertificationStatus(status)
	if target != model.CertificationCertified && target != model.CertificationUncertified {
		return nil, fmt.Errorf("%w: certification status must be Certified or Uncertified", ErrInvalidInput)
	}
	if err := s.store.Accounts().SetCertification(ctx, agencyID, target); err != nil {
		return nil, storeError(err, "agency")
	}
	return s.GetAgency(ctx, agencyID)
}

type AddVolunteerInput struct {
	Name         string
	Email        string
	Password     string
	Phone        string
	Address      string
	PickupArea   model.PickupArea
	ProfilePhoto *File
}

// AddVolunteer registers a field volunteer under the calling agency.
func (s *AgencyService) AddVolunteer(ctx context.Context, principal model.Principal, input AddVolunteerInput) (*model.Volunteer, error) {
	if !principal.IsAgency() {
		return nil, ErrPermissionDenied
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if !validEmail(input.Email) {
		return nil, fmt.Errorf("%w: email is invalid", ErrInvalidInput)
	}
	if len(input.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}
	if strings.TrimSpace(input.PickupArea.City) == "" {
		return nil, fmt.Errorf("%w: pickup area city is required", ErrInvalidInput)
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	volunteer := &model.Volunteer{
		ID:           uuid.New(),
		AgencyID:     principal.ID,
		Name:         strings.TrimSpace(input.Name),
		Email:        normalizeEmail(input.Email),
		PasswordHash: hash,
		Phone:        strings.TrimSpace(input.Phone),
		Address:      strings.TrimSpace(input.Address),
		PickupArea:   input.PickupArea,
		Status:       model.VolunteerStatusActive,
		CreatedAt:    s.now(),
	}
	var uploaded []model.Attachment
	if input.ProfilePhoto != nil {
		uploaded, err = uploadAll(ctx, s.storage, "volunteers/"+volunteer.ID.String(), []File{*input.ProfilePhoto}, s.log)
		if err != nil {
			return nil, err
		}
		volunteer.ProfilePicURL = uploaded[0].URL
		volunteer.ProfilePicKey = uploaded[0].StorageKey
	}

	if err := s.store.Accounts().CreateVolunteer(ctx, volunteer); err != nil {
		deleteAll(ctx, s.storage, uploaded, s.log)
		return nil, storeError(err, "volunteer email")
	}
	return volunteer, nil
}

func (s *AgencyService) ListVolunteers(ctx context.Context, principal model.Principal, activeOnly bool) ([]model.Volunteer, error) {
	if !principal.IsAgency() {
		return nil, ErrPermissionDenied
	}
	return s.store.Accounts().ListVolunteers(ctx, principal.ID, activeOnly)
}

func (s *AgencyService) SetVolunteerStatus(ctx context.Context, principal model.Principal, volunteerID uuid.UUID, status string) (*model.Volunteer, error) {
	target := model.VolunteerStatus(status)
	if target != model.VolunteerStatusActive && target != model.VolunteerStatusInactive {
		return nil, fmt.Errorf("%w: status must be Active or Inactive", ErrInvalidInput)
	}
	if _, err := s.ownVolunteer(ctx, principal, volunteerID); err != nil {
		return nil, err
	}
	if err := s.store.Accounts().SetVolunteerStatus(ctx, volunteerID, target); err != nil {
		return nil, storeError(err, "volunteer")
	}
	return s.ownVolunteer(ctx, principal, volunteerID)
}

// DeleteVolunteer removes a volunteer with no open assignments.
func (s *AgencyService) DeleteVolunteer(ctx context.Context, principal model.Principal, volunteerID uuid.UUID) error {
	var removed *model.Volunteer
	err := s.store.Atomic(ctx, func(tx repository.Store) error {
		volunteer, err := tx.Accounts().GetVolunteer(ctx, volunteerID)
		if err != nil {
			return storeError(err, "volunteer")
		}
		if !principal.IsAgency() || volunteer.AgencyID != principal.ID {
			return ErrPermissionDenied
		}
		open, err := tx.Requests().CountOpenByVolunteer(ctx, volunteerID)
		if err != nil {
			return err
		}
		if open > 0 {
			return fmt.Errorf("%w: %d requests still assigned", ErrVolunteerBusy, open)
		}
		removed = volunteer
		return storeError(tx.Accounts().DeleteVolunteer(ctx, volunteerID), "volunteer")
	})
	if err != nil {
		return err
	}
	if removed.ProfilePicKey != "" {
		deleteAll(ctx, s.storage, []model.Attachment{{URL: removed.ProfilePicURL, StorageKey: removed.ProfilePicKey}}, s.log)
	}
	return nil
}

// RegisterPushToken stores the volunteer's Expo push token after checking its format.
func (s *AgencyService) RegisterPushToken(ctx context.Context, principal model.Principal, token string) error {
	if !principal.IsVolunteer() {
		return ErrPermissionDenied
	}
	parsed, err := expo.NewExponentPushToken(strings.TrimSpace(token))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return storeError(s.store.Accounts().SetVolunteerPushToken(ctx, principal.ID, string(parsed)), "volunteer")
}

func (s *AgencyService) ownVolunteer(ctx context.Context, principal model.Principal, volunteerID uuid.UUID) (*model.Volunteer, error) {
	if !principal.IsAgency() {
		return nil, ErrPermissionDenied
	}
	volunteer, err := s.store.Accounts().GetVolunteer(ctx, volunteerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if volunteer.AgencyID != principal.ID {
		return nil, ErrPermissionDenied
	}
	return volunteer, nil
}
