package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/avakara/ewaste-platform/internal/metrics"
	"github.com/avakara/ewaste-platform/internal/model"
	"github.com/avakara/ewaste-platform/internal/repository"
	"github.com/avakara/ewaste-platform/internal/workflow"
)

// assignAgency checks that agencyID names a certified agency that handles every requested waste
// type. An agency that declared no waste types accepts all of them.
func assignAgency(ctx context.Context, store repository.Store, agencyID uuid.UUID, items []model.WasteItem) (*model.Agency, error) {
	agency, err := store.Accounts().GetAgency(ctx, agencyID)
	if err != nil {
		return nil, storeError(err, "agency")
	}
	if !agency.Certified() {
		return nil, fmt.Errorf("%w: agency %s is not certified", ErrInvalidInput, agency.Name)
	}
	if len(agency.WasteTypesHandled) == 0 {
		return agency, nil
	}

	handled := make(map[string]struct{}, len(agency.WasteTypesHandled))
	for _, wasteType := range agency.WasteTypesHandled {
		handled[strings.ToLower(strings.TrimSpace(wasteType))] = struct{}{}
	}
	for _, item := range items {
		if _, ok := handled[item.NormalizedType()]; !ok {
			return nil, fmt.Errorf("%w: agency %s does not handle %s", ErrInvalidInput, agency.Name, item.Type)
		}
	}
	return agency, nil
}

// AssignVolunteer binds an Active volunteer of the owning agency to an accepted request and records
// the volunteerAssigned milestone in the same transaction.
func (s *RequestService) AssignVolunteer(ctx context.Context, principal model.Principal, requestID, volunteerID uuid.UUID) (*model.Request, error) {
	if !principal.IsAgency() {
		return nil, ErrPermissionDenied
	}

	unlock := s.locks.Lock(requestID)
	defer unlock()

	var (
		updated   model.Request
		volunteer *model.Volunteer
	)
	err := s.store.Atomic(ctx, func(tx repository.Store) error {
		req, err := tx.Requests().GetForUpdate(ctx, requestID)
		if err != nil {
			return storeError(err, "request")
		}
		if err := workflow.CheckOwnership(req, principal); err != nil {
			return workflowError(err)
		}
		if err := workflow.CheckOrder(req, model.MilestoneVolunteerAssigned); err != nil {
			return workflowError(err)
		}

		volunteer, err = tx.Accounts().GetVolunteer(ctx, volunteerID)
		if err != nil {
			return storeError(err, "volunteer")
		}
		if volunteer.AgencyID != req.AgencyID {
			return fmt.Errorf("%w: volunteer does not belong to this agency", ErrInvalidInput)
		}
		if !volunteer.Active() {
			return fmt.Errorf("%w: volunteer %s is inactive", ErrInvalidInput, volunteer.Name)
		}

		expected := req.Version
		assigned := volunteer.ID
		req.VolunteerID = &assigned
		ev := workflow.Apply(req, model.MilestoneEvent{
			Milestone:   model.MilestoneVolunteerAssigned,
			ActorID:     &principal.ID,
			ActorRole:   principal.Role,
			Details:     map[string]interface{}{"volunteerId": assigned.String(), "volunteerName": volunteer.Name},
			CompletedAt: s.now(),
		})
		if err := tx.Requests().Update(ctx, req, expected); err != nil {
			return storeError(err, "request")
		}
		if err := tx.Requests().AppendMilestone(ctx, ev); err != nil {
			return err
		}
		updated = *req
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.TransitionsTotal.WithLabelValues(string(model.MilestoneVolunteerAssigned)).Inc()
	s.ext.Notifier.VolunteerAssigned(context.WithoutCancel(ctx), *volunteer, updated)
	s.afterTransition(ctx, &updated, transitionOutcome{})
	return &updated, nil
}
