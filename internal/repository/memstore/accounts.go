package memstore

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/avakara/ewaste-platform/internal/model"
	"github.com/avakara/ewaste-platform/internal/repository"
)

type accountRepo struct {
	s *Store
}

func (r accountRepo) CreateUser(ctx context.Context, user *model.User) error {
	return r.s.read(func(st *state) error {
		email := normalizeEmail(user.Email)
		for _, existing := range st.users {
			if existing.Email == email {
				return repository.ErrDuplicate
			}
		}
		stored := cloneUser(user)
		stored.Email = email
		st.users[user.ID] = stored
		return nil
	})
}

func (r accountRepo) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var out *model.User
	err := r.s.read(func(st *state) error {
		user, ok := st.users[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = cloneUser(user)
		return nil
	})
	return out, err
}

func (r accountRepo) CreateAgency(ctx context.Context, agency *model.Agency) error {
	return r.s.read(func(st *state) error {
		email := normalizeEmail(agency.Email)
		for _, existing := range st.agencies {
			if existing.Email == email {
				return repository.ErrDuplicate
			}
		}
		stored := cloneAgency(agency)
		stored.Email = email
		st.agencies[agency.ID] = stored
		return nil
	})
}

func (r accountRepo) GetAgency(ctx context.Context, id uuid.UUID) (*model.Agency, error) {
	var out *model.Agency
	err := r.s.read(func(st *state) error {
		agency, ok := st.agencies[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = cloneAgency(agency)
		return nil
	})
	return out, err
}

func (r accountRepo) ListCertifiedAgencies(ctx context.Context) ([]model.Agency, error) {
	var out []model.Agency
	err := r.s.read(func(st *state) error {
		for _, agency := range st.agencies {
			if agency.Certified() {
				out = append(out, *cloneAgency(agency))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].Name < out[j].Name
	})
	return out, err
}

func (r accountRepo) SetCertification(ctx context.Context, id uuid.UUID, status model.CertificationStatus) error {
	return r.withAgency(id, func(agency *model.Agency) {
		agency.CertificationStatus = status
		agency.UpdatedAt = r.s.now()
	})
}

func (r accountRepo) MarkInventorySetup(ctx context.Context, id uuid.UUID) error {
	return r.withAgency(id, func(agency *model.Agency) {
		agency.InventorySetup = true
		agency.UpdatedAt = r.s.now()
	})
}

func (r accountRepo) withAgency(id uuid.UUID, fn func(*model.Agency)) error {
	return r.s.read(func(st *state) error {
		agency, ok := st.agencies[id]
		if !ok {
			return repository.ErrNotFound
		}
		fn(agency)
		return nil
	})
}

func (r accountRepo) CreateVolunteer(ctx context.Context, volunteer *model.Volunteer) error {
	return r.s.read(func(st *state) error {
		email := normalizeEmail(volunteer.Email)
		for _, existing := range st.volunteers {
			if existing.Email == email {
				return repository.ErrDuplicate
			}
		}
		stored := cloneVolunteer(volunteer)
		stored.Email = email
		st.volunteers[volunteer.ID] = stored
		return nil
	})
}

func (r accountRepo) GetVolunteer(ctx context.Context, id uuid.UUID) (*model.Volunteer, error) {
	var out *model.Volunteer
	err := r.s.read(func(st *state) error {
		volunteer, ok := st.volunteers[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = cloneVolunteer(volunteer)
		return nil
	})
	return out, err
}

func (r accountRepo) ListVolunteers(ctx context.Context, agencyID uuid.UUID, activeOnly bool) ([]model.Volunteer, error) {
	var out []model.Volunteer
	err := r.s.read(func(st *state) error {
		for _, volunteer := range st.volunteers {
			if volunteer.AgencyID != agencyID {
				continue
			}
			if activeOnly && !volunteer.Active() {
				continue
			}
			out = append(out, *cloneVolunteer(volunteer))
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].Name < out[j].Name
	})
	return out, err
}

func (r accountRepo) SetVolunteerStatus(ctx context.Context, id uuid.UUID, status model.VolunteerStatus) error {
	return r.withVolunteer(id, func(v *model.Volunteer) { v.Status = status })
}

func (r accountRepo) SetVolunteerPushToken(ctx context.Context, id uuid.UUID, token string) error {
	return r.withVolunteer(id, func(v *model.Volunteer) { v.PushToken = token })
}

func (r accountRepo) withVolunteer(id uuid.UUID, fn func(*model.Volunteer)) error {
	return r.s.read(func(st *state) error {
		volunteer, ok := st.volunteers[id]
		if !ok {
			return repository.ErrNotFound
		}
		fn(volunteer)
		return nil
	})
}

func (r accountRepo) DeleteVolunteer(ctx context.Context, id uuid.UUID) error {
	return r.s.read(func(st *state) error {
		if _, ok := st.volunteers[id]; !ok {
			return repository.ErrNotFound
		}
		delete(st.volunteers, id)
		return nil
	})
}

func (r accountRepo) UpsertAdmin(ctx context.Context, admin *model.Admin) error {
	return r.s.read(func(st *state) error {
		email := normalizeEmail(admin.Email)
		for _, existing := range st.admins {
			if existing.Email == email {
				existing.PasswordHash = admin.PasswordHash
				return nil
			}
		}
		stored := *admin
		stored.Email = email
		st.admins[admin.ID] = &stored
		return nil
	})
}

func (r accountRepo) FindCredential(ctx context.Context, role model.Role, email string) (*model.Credential, error) {
	email = normalizeEmail(email)
	var out *model.Credential
	err := r.s.read(func(st *state) error {
		switch role {
		case model.RoleUser:
			for _, u := range st.users {
				if u.Email == email {
					out = &model.Credential{ID: u.ID, Role: role, Email: u.Email, PasswordHash: u.PasswordHash}
				}
			}
		case model.RoleAgency:
			for _, a := range st.agencies {
				if a.Email == email {
					agencyID := a.ID
					out = &model.Credential{ID: a.ID, Role: role, AgencyID: &agencyID, Email: a.Email, PasswordHash: a.PasswordHash}
				}
			}
		case model.RoleVolunteer:
			for _, v := range st.volunteers {
				if v.Email == email {
					agencyID := v.AgencyID
					out = &model.Credential{ID: v.ID, Role: role, AgencyID: &agencyID, Email: v.Email, PasswordHash: v.PasswordHash}
				}
			}
		case model.RoleAdmin:
			for _, a := range st.admins {
				if a.Email == email {
					out = &model.Credential{ID: a.ID, Role: role, Email: a.Email, PasswordHash: a.PasswordHash}
				}
			}
		}
		if out == nil {
			return repository.ErrNotFound
		}
		return nil
	})
	return out, err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
