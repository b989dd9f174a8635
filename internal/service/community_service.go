package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/avakara/ewaste-platform/internal/model"
	"github.com/avakara/ewaste-platform/internal/repository"
)

type CommunityService struct {
	store      repository.Store
	classifier Classifier
	points     *PointsService
	reward     int64
	log        zerolog.Logger
	now        func() time.Time
}

func NewCommunityService(store repository.Store, classifier Classifier, points *PointsService, rules Rules, log zerolog.Logger) *CommunityService {
	return &CommunityService{
		store:      store,
		classifier: classifier,
		points:     points,
		reward:     rules.CommunityEventPoints,
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

type CreateEventInput struct {
	Title            string
	Description      string
	EventType        string
	StartDate        time.Time
	EndDate          time.Time
	Time             string
	Location         string
	RegistrationLink string
	ContactName      string
	ContactEmail     string
	ContactPhone     string
}

func (in CreateEventInput) validate() (model.EventType, error) {
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Description) == "" {
		return "", fmt.Errorf("%w: title and description are required", ErrInvalidInput)
	}
	eventType, ok := model.ParseEventType(in.EventType)
	if !ok {
		return "", fmt.Errorf("%w: unknown event type %q", ErrInvalidInput, in.EventType)
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return "", fmt.Errorf("%w: start and end dates are required", ErrInvalidInput)
	}
	if in.EndDate.Before(in.StartDate) {
		return "", fmt.Errorf("%w: end date precedes start date", ErrInvalidInput)
	}
	if eventType != model.EventTypeWebinar && strings.TrimSpace(in.Location) == "" {
		return "", fmt.Errorf("%w: location is required for in-person events", ErrInvalidInput)
	}
	if strings.TrimSpace(in.ContactEmail) != "" && !validEmail(in.ContactEmail) {
		return "", fmt.Errorf("%w: contact email is invalid", ErrInvalidInput)
	}
	return eventType, nil
}

// CreateEvent publishes a community event after moderation. Only events labelled VALID are kept;
// the organising user earns the community reward.
func (s *CommunityService) CreateEvent(ctx context.Context, principal model.Principal, input CreateEventInput) (*model.CommunityEvent, error) {
	if !principal.IsUser() && !principal.IsAgency() {
		return nil, ErrPermissionDenied
	}
	eventType, err := input.validate()
	if err != nil {
		return nil, err
	}

	label, err := s.moderate(ctx, input)
	if err != nil {
		return nil, err
	}
	if label != ModerationValid {
		return nil, fmt.Errorf("%w: event classified as %s", ErrModerationRejected, label)
	}

	event := &model.CommunityEvent{
		ID:               uuid.New(),
		Title:            strings.TrimSpace(input.Title),
		Description:      strings.TrimSpace(input.Description),
		EventType:        eventType,
		StartDate:        input.StartDate.UTC(),
		EndDate:          input.EndDate.UTC(),
		Time:             strings.TrimSpace(input.Time),
		Location:         strings.TrimSpace(input.Location),
		RegistrationLink: strings.TrimSpace(input.RegistrationLink),
		ContactName:      strings.TrimSpace(input.ContactName),
		ContactEmail:     normalizeEmail(input.ContactEmail),
		ContactPhone:     strings.TrimSpace(input.ContactPhone),
		ModerationLabel:  label,
		CreatedAt:        s.now(),
	}
	organizer := principal.ID
	if principal.IsUser() {
		event.OrganizerUserID = &organizer
	} else {
		event.OrganizerAgencyID = &organizer
	}

	err = s.store.Atomic(ctx, func(tx repository.Store) error {
		if err := tx.Community().Create(ctx, event); err != nil {
			return err
		}
		if !principal.IsUser() {
			return nil
		}
		return s.points.creditCommunity(ctx, tx, principal.ID, s.reward)
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

func (s *CommunityService) moderate(ctx context.Context, input CreateEventInput) (string, error) {
	if s.classifier == nil {
		return "", fmt.Errorf("%w: moderation is not configured", ErrExternalService)
	}
	text := input.Description
	if link := strings.TrimSpace(input.RegistrationLink); link != "" {
		text += "\nRegistration: " + link
	}
	label, err := s.classifier.ModerateEvent(ctx, input.Title, text)
	if err != nil {
		return "", fmt.Errorf("%w: moderation: %v", ErrExternalService, err)
	}
	switch label = strings.ToUpper(strings.TrimSpace(label)); label {
	case ModerationValid, ModerationFake:
		return label, nil
	default:
		return ModerationUnknown, nil
	}
}

func (s *CommunityService) ListUpcoming(ctx context.Context) ([]model.CommunityEvent, error) {
	return s.store.Community().ListUpcoming(ctx, s.now())
}

// PurgeExpired deletes events whose end date has passed.
func (s *CommunityService) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	removed, err := s.store.Community().DeleteExpired(ctx, now)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.log.Info().Int64("removed", removed).Msg("purged expired community events")
	}
	return removed, nil
}
