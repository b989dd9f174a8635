package repository

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/avakara/ewaste-platform/internal/model"
)

const agencyColumns = `
	id,
	name,
	email,
	password_hash,
	agency_types,
	address,
	region,
	phone,
	contact_person,
	lon,
	lat,
	working_hours,
	certification_status,
	waste_types_handled,
	inventory_setup,
	logo_url,
	logo_storage_key,
	trade_license_url,
	trade_license_storage_key,
	pcb_auth_url,
	pcb_auth_storage_key,
	created_at,
	updated_at
`

const volunteerColumns = `
	id,
	agency_id,
	name,
	email,
	password_hash,
	phone,
	address,
	pickup_area,
	status,
	push_token,
	profile_pic_url,
	profile_pic_key,
	created_at
`

type agencyRow struct {
	model.Agency
	AgencyTypesJSON       datatypes.JSON `gorm:"column:agency_types"`
	WasteTypesHandledJSON datatypes.JSON `gorm:"column:waste_types_handled"`
}

func (row agencyRow) decode() (model.Agency, error) {
	agency := row.Agency
	if err := decodeJSON(row.AgencyTypesJSON, &agency.AgencyTypes); err != nil {
		return agency, err
	}
	if err := decodeJSON(row.WasteTypesHandledJSON, &agency.WasteTypesHandled); err != nil {
		return agency, err
	}
	return agency, nil
}

type volunteerRow struct {
	model.Volunteer
	PickupAreaJSON datatypes.JSON `gorm:"column:pickup_area"`
}

func (row volunteerRow) decode() (model.Volunteer, error) {
	volunteer := row.Volunteer
	err := decodeJSON(row.PickupAreaJSON, &volunteer.PickupArea)
	return volunteer, err
}

type GormAccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

func (r *GormAccountRepository) CreateUser(ctx context.Context, user *model.User) error {
	err := r.db.WithContext(ctx).Exec(`
		INSERT INTO users (
			id,
			name,
			email,
			password_hash,
			phone,
			address,
			pin_code,
			lon,
			lat,
			profile_pic_url,
			profile_pic_key,
			created_at,
			updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		user.ID,
		user.Name,
		normalizeEmail(user.Email),
		user.PasswordHash,
		user.Phone,
		user.Address,
		user.PinCode,
		user.Lon,
		user.Lat,
		user.ProfilePicURL,
		user.ProfilePicKey,
		user.CreatedAt,
		user.UpdatedAt,
	).Error
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *GormAccountRepository) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Raw(`
		SELECT
			id,
			name,
			email,
			password_hash,
			phone,
			address,
			pin_code,
			lon,
			lat,
			profile_pic_url,
			profile_pic_key,
			points,
			monthly_points,
			community_points,
			completed_requests,
			redeemed_points,
			last_monthly_rank,
			last_reset_at,
			created_at,
			updated_at
		FROM users
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&user).Error; err != nil {
		return nil, err
	}
	if user.ID == uuid.Nil {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (r *GormAccountRepository) CreateAgency(ctx context.Context, agency *model.Agency) error {
	agencyTypes, err := encodeJSON(agency.AgencyTypes)
	if err != nil {
		return err
	}
	wasteTypes, err := encodeJSON(agency.WasteTypesHandled)
	if err != nil {
		return err
	}

	err = r.db.WithContext(ctx).Exec(`
		INSERT INTO agencies (`+agencyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		agency.ID,
		agency.Name,
		normalizeEmail(agency.Email),
		agency.PasswordHash,
		agencyTypes,
		agency.Address,
		agency.Region,
		agency.Phone,
		agency.ContactPerson,
		agency.Lon,
		agency.Lat,
		agency.WorkingHours,
		agency.CertificationStatus,
		wasteTypes,
		agency.InventorySetup,
		agency.Logo.URL,
		agency.Logo.StorageKey,
		agency.TradeLicense.URL,
		agency.TradeLicense.StorageKey,
		agency.PCBAuthorization.URL,
		agency.PCBAuthorization.StorageKey,
		agency.CreatedAt,
		agency.UpdatedAt,
	).Error
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *GormAccountRepository) GetAgency(ctx context.Context, id uuid.UUID) (*model.Agency, error) {
	var row agencyRow
	if err := r.db.WithContext(ctx).Raw(`
		SELECT `+agencyColumns+`
		FROM agencies
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, ErrNotFound
	}
	agency, err := row.decode()
	if err != nil {
		return nil, err
	}
	return &agency, nil
}

func (r *GormAccountRepository) ListCertifiedAgencies(ctx context.Context) ([]model.Agency, error) {
	var rows []agencyRow
	if err := r.db.WithContext(ctx).Raw(`
		SELECT `+agencyColumns+`
		FROM agencies
		WHERE certification_status = ?
		ORDER BY name ASC, id ASC
	`, model.CertificationCertified).Scan(&rows).Error; err != nil {
		return nil, err
	}

	agencies := make([]model.Agency, 0, len(rows))
	for _, row := range rows {
		agency, err := row.decode()
		if err != nil {
			return nil, err
		}
		agencies = append(agencies, agency)
	}
	return agencies, nil
}

func (r *GormAccountRepository) SetCertification(ctx context.Context, id uuid.UUID, status model.CertificationStatus) error {
	return r.exec(ctx, `
		UPDATE agencies
		SET certification_status = ?, updated_at = NOW()
		WHERE id = ?
	`, status, id)
}

func (r *GormAccountRepository) MarkInventorySetup(ctx context.Context, id uuid.UUID) error {
	return r.exec(ctx, `
		UPDATE agencies
		SET inventory_setup = TRUE, updated_at = NOW()
		WHERE id = ?
	`, id)
}

func (r *GormAccountRepository) CreateVolunteer(ctx context.Context, volunteer *model.Volunteer) error {
	area, err := encodeJSON(volunteer.PickupArea)
	if err != nil {
		return err
	}

	err = r.db.WithContext(ctx).Exec(`
		INSERT INTO volunteers (`+volunteerColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		volunteer.ID,
		volunteer.AgencyID,
		volunteer.Name,
		normalizeEmail(volunteer.Email),
		volunteer.PasswordHash,
		volunteer.Phone,
		volunteer.Address,
		area,
		volunteer.Status,
		volunteer.PushToken,
		volunteer.ProfilePicURL,
		volunteer.ProfilePicKey,
		volunteer.CreatedAt,
	).Error
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *GormAccountRepository) GetVolunteer(ctx context.Context, id uuid.UUID) (*model.Volunteer, error) {
	var row volunteerRow
	if err := r.db.WithContext(ctx).Raw(`
		SELECT `+volunteerColumns+`
		FROM volunteers
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, ErrNotFound
	}
	volunteer, err := row.decode()
	if err != nil {
		return nil, err
	}
	return &volunteer, nil
}

func (r *GormAccountRepository) ListVolunteers(ctx context.Context, agencyID uuid.UUID, activeOnly bool) ([]model.Volunteer, error) {
	query := `
		SELECT ` + volunteerColumns + `
		FROM volunteers
		WHERE agency_id = ?
	`
	args := []any{agencyID}
	if activeOnly {
		query += " AND status = ?"
		args = append(args, model.VolunteerStatusActive)
	}
	query += " ORDER BY name ASC, id ASC"

	var rows []volunteerRow
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}

	volunteers := make([]model.Volunteer, 0, len(rows))
	for _, row := range rows {
		volunteer, err := row.decode()
		if err != nil {
			return nil, err
		}
		volunteers = append(volunteers, volunteer)
	}
	return volunteers, nil
}

func (r *GormAccountRepository) SetVolunteerStatus(ctx context.Context, id uuid.UUID, status model.VolunteerStatus) error {
	return r.exec(ctx, `UPDATE volunteers SET status = ? WHERE id = ?`, status, id)
}

func (r *GormAccountRepository) SetVolunteerPushToken(ctx context.Context, id uuid.UUID, token string) error {
	return r.exec(ctx, `UPDATE volunteers SET push_token = ? WHERE id = ?`, token, id)
}

func (r *GormAccountRepository) DeleteVolunteer(ctx context.Context, id uuid.UUID) error {
	return r.exec(ctx, `DELETE FROM volunteers WHERE id = ?`, id)
}

func (r *GormAccountRepository) UpsertAdmin(ctx context.Context, admin *model.Admin) error {
	return r.db.WithContext(ctx).Exec(`
		INSERT INTO admins (id, email, password_hash, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (email) DO UPDATE SET password_hash = EXCLUDED.password_hash
	`, admin.ID, normalizeEmail(admin.Email), admin.PasswordHash, admin.CreatedAt).Error
}

// FindCredential looks up the login record for email in the table owned by role.
func (r *GormAccountRepository) FindCredential(ctx context.Context, role model.Role, email string) (*model.Credential, error) {
	var query string
	switch role {
	case model.RoleUser:
		query = `SELECT id, NULL::uuid AS agency_id, email, password_hash FROM users WHERE email = ? LIMIT 1`
	case model.RoleAgency:
		query = `SELECT id, id AS agency_id, email, password_hash FROM agencies WHERE email = ? LIMIT 1`
	case model.RoleVolunteer:
		query = `SELECT id, agency_id, email, password_hash FROM volunteers WHERE email = ? LIMIT 1`
	case model.RoleAdmin:
		query = `SELECT id, NULL::uuid AS agency_id, email, password_hash FROM admins WHERE email = ? LIMIT 1`
	default:
		return nil, ErrNotFound
	}

	var cred model.Credential
	if err := r.db.WithContext(ctx).Raw(query, normalizeEmail(email)).Scan(&cred).Error; err != nil {
		return nil, err
	}
	if cred.ID == uuid.Nil {
		return nil, ErrNotFound
	}
	cred.Role = role
	return &cred, nil
}

func (r *GormAccountRepository) exec(ctx context.Context, query string, args ...any) error {
	result := r.db.WithContext(ctx).Exec(query, args...)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func encodeJSON(v any) (datatypes.JSON, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(data), nil
}

func decodeJSON(data datatypes.JSON, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}
