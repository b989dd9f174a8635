package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avakara/ewaste-platform/internal/model"
)

const requestColumns = `
	id,
	user_id,
	agency_id,
	volunteer_id,
	weight,
	pickup_address,
	pickup_lon,
	pickup_lat,
	pickup_date,
	contact_number,
	special_instructions,
	status,
	stage,
	pickup_code,
	detected_category,
	rejected_at,
	rejection_reason,
	version,
	created_at,
	updated_at
`

type GormRequestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) *GormRequestRepository {
	return &GormRequestRepository{db: db}
}

func (r *GormRequestRepository) Create(ctx context.Context, req *model.Request) error {
	db := r.db.WithContext(ctx)
	err := db.Exec(`
		INSERT INTO requests (`+requestColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		req.ID,
		req.UserID,
		req.AgencyID,
		req.VolunteerID,
		req.Weight,
		req.PickupAddress,
		req.PickupLon,
		req.PickupLat,
		req.PickupDate,
		req.ContactNumber,
		req.SpecialInstructions,
		req.Status,
		req.Stage,
		req.PickupCode,
		req.DetectedCategory,
		req.RejectedAt,
		req.RejectionReason,
		req.Version,
		req.CreatedAt,
		req.UpdatedAt,
	).Error
	if err != nil {
		return err
	}

	for _, item := range req.Items {
		if err := db.Exec(`
			INSERT INTO request_items (request_id, waste_type, quantity)
			VALUES (?, ?, ?)
		`, req.ID, item.Type, item.Quantity).Error; err != nil {
			return err
		}
	}
	for _, image := range req.Images {
		if err := db.Exec(`
			INSERT INTO request_images (request_id, url, storage_key)
			VALUES (?, ?, ?)
		`, req.ID, image.URL, image.StorageKey).Error; err != nil {
			return err
		}
	}
	for _, ev := range req.History {
		if err := r.AppendMilestone(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

func (r *GormRequestRepository) Get(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	return r.get(ctx, id, false)
}

// GetForUpdate locks the request row until the surrounding transaction ends.
func (r *GormRequestRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	return r.get(ctx, id, true)
}

func (r *GormRequestRepository) get(ctx context.Context, id uuid.UUID, lock bool) (*model.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE id = ? LIMIT 1`
	if lock {
		query += ` FOR UPDATE`
	}

	var req model.Request
	if err := r.db.WithContext(ctx).Raw(query, id).Scan(&req).Error; err != nil {
		return nil, err
	}
	if req.ID == uuid.Nil {
		return nil, ErrNotFound
	}

	rows := []model.Request{req}
	if err := r.hydrate(ctx, rows); err != nil {
		return nil, err
	}
	return &rows[0], nil
}

// Update writes the mutable request fields if the stored version still equals expectedVersion.
func (r *GormRequestRepository) Update(ctx context.Context, req *model.Request, expectedVersion int64) error {
	result := r.db.WithContext(ctx).Exec(`
		UPDATE requests
		SET
			volunteer_id = ?,
			pickup_address = ?,
			status = ?,
			stage = ?,
			pickup_code = ?,
			detected_category = ?,
			rejected_at = ?,
			rejection_reason = ?,
			version = version + 1,
			updated_at = ?
		WHERE id = ? AND version = ?
	`,
		req.VolunteerID,
		req.PickupAddress,
		req.Status,
		req.Stage,
		req.PickupCode,
		req.DetectedCategory,
		req.RejectedAt,
		req.RejectionReason,
		req.UpdatedAt,
		req.ID,
		expectedVersion,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}
	req.Version = expectedVersion + 1
	return nil
}

func (r *GormRequestRepository) AppendMilestone(ctx context.Context, ev model.MilestoneEvent) error {
	return r.db.WithContext(ctx).Exec(`
		INSERT INTO request_milestones (
			id,
			request_id,
			milestone,
			actor_id,
			actor_role,
			notes,
			lon,
			lat,
			address,
			details,
			completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		ev.ID,
		ev.RequestID,
		ev.Milestone,
		ev.ActorID,
		ev.ActorRole,
		ev.Notes,
		ev.Lon,
		ev.Lat,
		ev.Address,
		ev.Details,
		ev.CompletedAt,
	).Error
}

func (r *GormRequestRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Exec(`DELETE FROM requests WHERE id = ?`, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormRequestRepository) ListByUser(ctx context.Context, userID uuid.UUID, includeRejected bool) ([]model.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE user_id = ?`
	if !includeRejected {
		query += ` AND rejected_at IS NULL`
	}
	query += ` ORDER BY created_at DESC`
	return r.list(ctx, query, userID)
}

func (r *GormRequestRepository) ListByAgency(
	ctx context.Context,
	agencyID uuid.UUID,
	status *model.RequestStatus,
	includeRejected bool,
) ([]model.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE agency_id = ?`
	args := []interface{}{agencyID}
	if !includeRejected {
		query += ` AND rejected_at IS NULL`
	}
	if status != nil {
		query += ` AND status = ?`
		args = append(args, *status)
	}
	query += ` ORDER BY created_at DESC`
	return r.list(ctx, query, args...)
}

func (r *GormRequestRepository) ListByVolunteer(ctx context.Context, volunteerID uuid.UUID) ([]model.Request, error) {
	return r.list(ctx, `
		SELECT `+requestColumns+`
		FROM requests
		WHERE volunteer_id = ?
		ORDER BY pickup_date ASC
	`, volunteerID)
}

func (r *GormRequestRepository) CountOpenByVolunteer(ctx context.Context, volunteerID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Raw(`
		SELECT COUNT(*)
		FROM requests
		WHERE volunteer_id = ? AND status NOT IN (?, ?)
	`, volunteerID, model.RequestStatusCompleted, model.RequestStatusRejected).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormRequestRepository) ListByAgencyBetween(ctx context.Context, agencyID uuid.UUID, from, to time.Time) ([]model.Request, error) {
	return r.list(ctx, `
		SELECT `+requestColumns+`
		FROM requests
		WHERE agency_id = ?
			AND created_at >= ?
			AND created_at < ?
		ORDER BY created_at ASC
	`, agencyID, from, to)
}

func (r *GormRequestRepository) list(ctx context.Context, query string, args ...interface{}) ([]model.Request, error) {
	var rows []model.Request
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if err := r.hydrate(ctx, rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// hydrate loads items, images and milestone history for rows in three batched queries.
func (r *GormRequestRepository) hydrate(ctx context.Context, rows []model.Request) error {
	if len(rows) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(rows))
	index := make(map[uuid.UUID]int, len(rows))
	for i := range rows {
		ids[i] = rows[i].ID
		index[rows[i].ID] = i
		rows[i].Items = []model.WasteItem{}
		rows[i].Images = []model.Attachment{}
		rows[i].History = []model.MilestoneEvent{}
	}

	db := r.db.WithContext(ctx)

	var items []struct {
		RequestID uuid.UUID
		WasteType string
		Quantity  int
	}
	if err := db.Raw(`
		SELECT request_id, waste_type, quantity
		FROM request_items
		WHERE request_id IN ?
		ORDER BY position ASC
	`, ids).Scan(&items).Error; err != nil {
		return err
	}
	for _, item := range items {
		i := index[item.RequestID]
		rows[i].Items = append(rows[i].Items, model.WasteItem{Type: item.WasteType, Quantity: item.Quantity})
	}

	var images []struct {
		RequestID  uuid.UUID
		URL        string
		StorageKey string
	}
	if err := db.Raw(`
		SELECT request_id, url, storage_key
		FROM request_images
		WHERE request_id IN ?
		ORDER BY position ASC
	`, ids).Scan(&images).Error; err != nil {
		return err
	}
	for _, image := range images {
		i := index[image.RequestID]
		rows[i].Images = append(rows[i].Images, model.Attachment{URL: image.URL, StorageKey: image.StorageKey})
	}

	var history []model.MilestoneEvent
	if err := db.Raw(`
		SELECT id, request_id, milestone, actor_id, actor_role, notes, lon, lat, address, details, completed_at
		FROM request_milestones
		WHERE request_id IN ?
		ORDER BY seq ASC
	`, ids).Scan(&history).Error; err != nil {
		return err
	}
	for _, ev := range history {
		i := index[ev.RequestID]
		rows[i].History = append(rows[i].History, ev)
	}
	return nil
}
