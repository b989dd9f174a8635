package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/avakara/ewaste-platform/internal/model"
	"github.com/avakara/ewaste-platform/internal/repository"
)

type InventoryService struct {
	store repository.Store
	now   func() time.Time
}

func NewInventoryService(store repository.Store) *InventoryService {
	return &InventoryService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

type SetupInventoryInput struct {
	TotalCapacity float64
	Location      model.InventoryLocation
}

// SetupInventory creates the agency's single inventory during onboarding.
func (s *InventoryService) SetupInventory(ctx context.Context, principal model.Principal, input SetupInventoryInput) (*model.Inventory, error) {
	if !principal.IsAgency() {
		return nil, ErrPermissionDenied
	}
	if model.Grams(input.TotalCapacity) <= 0 {
		return nil, fmt.Errorf("%w: total capacity must be positive", ErrInvalidInput)
	}
	if strings.TrimSpace(input.Location.Address) == "" || strings.TrimSpace(input.Location.City) == "" {
		return nil, fmt.Errorf("%w: inventory address and city are required", ErrInvalidInput)
	}

	inv := &model.Inventory{
		AgencyID:      principal.ID,
		TotalCapacity: model.RoundWeight(input.TotalCapacity),
		Breakdown:     map[string]int{},
		Location:      input.Location,
		LastUpdated:   s.now(),
	}
	err := s.store.Atomic(ctx, func(tx repository.Store) error {
		if err := tx.Inventories().Create(ctx, inv); err != nil {
			return storeError(err, "inventory")
		}
		return storeError(tx.Accounts().MarkInventorySetup(ctx, principal.ID), "agency")
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// InventoryView adds the occupancy percentage to the stored inventory.
type InventoryView struct {
	*model.Inventory
	OccupancyPercent float64 `json:"occupancyPercent"`
}

func (s *InventoryService) GetInventory(ctx context.Context, principal model.Principal, agencyID uuid.UUID) (*InventoryView, error) {
	switch {
	case principal.IsAdmin():
	case principal.IsAgency() && principal.ID == agencyID:
	case principal.IsVolunteer() && principal.AgencyID != nil && *principal.AgencyID == agencyID:
	default:
		return nil, ErrPermissionDenied
	}

	inv, err := s.store.Inventories().Get(ctx, agencyID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInventoryNotSetup
		}
		return nil, err
	}
	return &InventoryView{Inventory: inv, OccupancyPercent: inv.Occupancy() * 100}, nil
}

// ResizeInventory changes total capacity; it never drops below what is currently held.
func (s *InventoryService) ResizeInventory(ctx context.Context, principal model.Principal, total float64) (*InventoryView, error) {
	if !principal.IsAgency() {
		return nil, ErrPermissionDenied
	}
	if model.Grams(total) <= 0 {
		return nil, fmt.Errorf("%w: total capacity must be positive", ErrInvalidInput)
	}

	err := s.store.Inventories().Resize(ctx, principal.ID, total)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, ErrInventoryNotSetup
	case errors.Is(err, repository.ErrConditionFailed):
		return nil, fmt.Errorf("%w: capacity below current stock", ErrCapacityExceeded)
	case err != nil:
		return nil, err
	}
	return s.GetInventory(ctx, principal, principal.ID)
}
