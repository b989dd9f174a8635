package memstore

import (
	"context"

	"github.com/google/uuid"

	"github.com/avakara/ewaste-platform/internal/model"
	"github.com/avakara/ewaste-platform/internal/repository"
)

type inventoryRepo struct {
	s *Store
}

func (r inventoryRepo) Create(ctx context.Context, inv *model.Inventory) error {
	return r.s.read(func(st *state) error {
		if _, ok := st.inventories[inv.AgencyID]; ok {
			return repository.ErrDuplicate
		}
		stored := cloneInventory(inv)
		st.inventories[inv.AgencyID] = stored
		return nil
	})
}

func (r inventoryRepo) Get(ctx context.Context, agencyID uuid.UUID) (*model.Inventory, error) {
	var out *model.Inventory
	err := r.s.read(func(st *state) error {
		inv, ok := st.inventories[agencyID]
		if !ok {
			return repository.ErrNotFound
		}
		out = cloneInventory(inv)
		return nil
	})
	return out, err
}

func (r inventoryRepo) Add(ctx context.Context, agencyID uuid.UUID, weight float64, items []model.WasteItem) error {
	return r.s.read(func(st *state) error {
		inv, ok := st.inventories[agencyID]
		if !ok {
			return repository.ErrNotFound
		}
		if !inv.Fits(weight) {
			return repository.ErrConditionFailed
		}
		inv.CurrentCapacity = model.Kilograms(model.Grams(inv.CurrentCapacity) + model.Grams(weight))
		for _, item := range items {
			inv.Breakdown[item.NormalizedType()] += item.Quantity
		}
		inv.LastUpdated = r.s.now()
		return nil
	})
}

func (r inventoryRepo) Release(ctx context.Context, agencyID uuid.UUID, weight float64, items []model.WasteItem) error {
	return r.s.read(func(st *state) error {
		inv, ok := st.inventories[agencyID]
		if !ok {
			return repository.ErrNotFound
		}
		inv.CurrentCapacity = model.Kilograms(max(model.Grams(inv.CurrentCapacity)-model.Grams(weight), 0))
		for _, item := range items {
			key := item.NormalizedType()
			if _, held := inv.Breakdown[key]; held {
				inv.Breakdown[key] = max(inv.Breakdown[key]-item.Quantity, 0)
			}
		}
		inv.LastUpdated = r.s.now()
		return nil
	})
}

func (r inventoryRepo) Resize(ctx context.Context, agencyID uuid.UUID, total float64) error {
	return r.s.read(func(st *state) error {
		inv, ok := st.inventories[agencyID]
		if !ok {
			return repository.ErrNotFound
		}
		if model.Grams(inv.CurrentCapacity) > model.Grams(total) {
			return repository.ErrConditionFailed
		}
		inv.TotalCapacity = model.RoundWeight(total)
		inv.LastUpdated = r.s.now()
		return nil
	})
}
