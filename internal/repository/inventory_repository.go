package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avakara/ewaste-platform/internal/model"
)

type GormInventoryRepository struct {
	db *gorm.DB
}

func NewInventoryRepository(db *gorm.DB) *GormInventoryRepository {
	return &GormInventoryRepository{db: db}
}

func (r *GormInventoryRepository) Create(ctx context.Context, inv *model.Inventory) error {
	err := r.db.WithContext(ctx).Exec(`
		INSERT INTO inventories (
			agency_id,
			total_capacity,
			current_capacity,
			location_address,
			location_city,
			location_state,
			location_postal_code,
			last_updated
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		inv.AgencyID,
		inv.TotalCapacity,
		inv.CurrentCapacity,
		inv.Location.Address,
		inv.Location.City,
		inv.Location.State,
		inv.Location.PostalCode,
		inv.LastUpdated,
	).Error
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *GormInventoryRepository) Get(ctx context.Context, agencyID uuid.UUID) (*model.Inventory, error) {
	db := r.db.WithContext(ctx)

	var inv model.Inventory
	if err := db.Raw(`
		SELECT
			agency_id,
			total_capacity,
			current_capacity,
			location_address,
			location_city,
			location_state,
			location_postal_code,
			last_updated
		FROM inventories
		WHERE agency_id = ?
		LIMIT 1
	`, agencyID).Scan(&inv).Error; err != nil {
		return nil, err
	}
	if inv.AgencyID == uuid.Nil {
		return nil, ErrNotFound
	}

	var rows []struct {
		WasteType string
		Count     int
	}
	if err := db.Raw(`
		SELECT waste_type, count
		FROM inventory_breakdown
		WHERE agency_id = ?
		ORDER BY waste_type ASC
	`, agencyID).Scan(&rows).Error; err != nil {
		return nil, err
	}
	inv.Breakdown = make(map[string]int, len(rows))
	for _, row := range rows {
		inv.Breakdown[row.WasteType] = row.Count
	}
	return &inv, nil
}

// Add raises current capacity by weight only if the result stays within total capacity.
func (r *GormInventoryRepository) Add(ctx context.Context, agencyID uuid.UUID, weight float64, items []model.WasteItem) error {
	weight = model.RoundWeight(weight)
	db := r.db.WithContext(ctx)
	result := db.Exec(`
		UPDATE inventories
		SET current_capacity = current_capacity + ?::numeric, last_updated = NOW()
		WHERE agency_id = ? AND current_capacity + ?::numeric <= total_capacity
	`, weight, agencyID, weight)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return r.missingOr(ctx, agencyID, ErrConditionFailed)
	}

	for _, item := range items {
		if err := db.Exec(`
			INSERT INTO inventory_breakdown (agency_id, waste_type, count)
			VALUES (?, ?, ?)
			ON CONFLICT (agency_id, waste_type)
			DO UPDATE SET count = inventory_breakdown.count + EXCLUDED.count
		`, agencyID, item.NormalizedType(), item.Quantity).Error; err != nil {
			return err
		}
	}
	return nil
}

// Release lowers current capacity and breakdown counters, flooring both at zero.
func (r *GormInventoryRepository) Release(ctx context.Context, agencyID uuid.UUID, weight float64, items []model.WasteItem) error {
	weight = model.RoundWeight(weight)
	db := r.db.WithContext(ctx)
	result := db.Exec(`
		UPDATE inventories
		SET current_capacity = GREATEST(current_capacity - ?::numeric, 0), last_updated = NOW()
		WHERE agency_id = ?
	`, weight, agencyID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	for _, item := range items {
		if err := db.Exec(`
			UPDATE inventory_breakdown
			SET count = GREATEST(count - ?, 0)
			WHERE agency_id = ? AND waste_type = ?
		`, item.Quantity, agencyID, item.NormalizedType()).Error; err != nil {
			return err
		}
	}
	return nil
}

// Resize changes total capacity unless it would drop below the material already held.
func (r *GormInventoryRepository) Resize(ctx context.Context, agencyID uuid.UUID, total float64) error {
	total = model.RoundWeight(total)
	result := r.db.WithContext(ctx).Exec(`
		UPDATE inventories
		SET total_capacity = ?::numeric, last_updated = NOW()
		WHERE agency_id = ? AND current_capacity <= ?::numeric
	`, total, agencyID, total)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return r.missingOr(ctx, agencyID, ErrConditionFailed)
	}
	return nil
}

func (r *GormInventoryRepository) missingOr(ctx context.Context, agencyID uuid.UUID, err error) error {
	var exists bool
	if scanErr := r.db.WithContext(ctx).Raw(`
		SELECT EXISTS (SELECT 1 FROM inventories WHERE agency_id = ?)
	`, agencyID).Scan(&exists).Error; scanErr != nil {
		return scanErr
	}
	if !exists {
		return ErrNotFound
	}
	return err
}
