package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/avakara/ewaste-platform/internal/model"
)

const communityColumns = `
	id,
	title,
	description,
	organizer_user_id,
	organizer_agency_id,
	event_type,
	start_date,
	end_date,
	event_time,
	location,
	registration_link,
	contact_name,
	contact_email,
	contact_phone,
	moderation_label,
	created_at
`

type GormCommunityRepository struct {
	db *gorm.DB
}

func NewCommunityRepository(db *gorm.DB) *GormCommunityRepository {
	return &GormCommunityRepository{db: db}
}

func (r *GormCommunityRepository) Create(ctx context.Context, event *model.CommunityEvent) error {
	return r.db.WithContext(ctx).Exec(`
		INSERT INTO community_events (`+communityColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		event.ID,
		event.Title,
		event.Description,
		event.OrganizerUserID,
		event.OrganizerAgencyID,
		event.EventType,
		event.StartDate,
		event.EndDate,
		event.Time,
		event.Location,
		event.RegistrationLink,
		event.ContactName,
		event.ContactEmail,
		event.ContactPhone,
		event.ModerationLabel,
		event.CreatedAt,
	).Error
}

// ListUpcoming returns events that have not ended yet, soonest first.
func (r *GormCommunityRepository) ListUpcoming(ctx context.Context, now time.Time) ([]model.CommunityEvent, error) {
	var events []model.CommunityEvent
	if err := r.db.WithContext(ctx).Raw(`
		SELECT `+communityColumns+`
		FROM community_events
		WHERE end_date >= ?
		ORDER BY start_date ASC, id ASC
	`, now).Scan(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *GormCommunityRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Exec(`DELETE FROM community_events WHERE end_date < ?`, now)
	return result.RowsAffected, result.Error
}
