package model

import "github.com/google/uuid"

type Role string

const (
	RoleUser      Role = "user"
	RoleAgency    Role = "agency"
	RoleVolunteer Role = "volunteer"
	RoleAdmin     Role = "admin"
)

func ParseRole(raw string) (Role, bool) {
	switch Role(raw) {
	case RoleUser, RoleAgency, RoleVolunteer, RoleAdmin:
		return Role(raw), true
	default:
		return "", false
	}
}

// Principal is the authenticated actor behind a call. AgencyID is set for agencies (their own id)
// and for volunteers (the agency they belong to).
type Principal struct {
	ID       uuid.UUID
	Role     Role
	AgencyID *uuid.UUID
}

func (p Principal) IsUser() bool      { return p.Role == RoleUser }
func (p Principal) IsAgency() bool    { return p.Role == RoleAgency }
func (p Principal) IsVolunteer() bool { return p.Role == RoleVolunteer }
func (p Principal) IsAdmin() bool     { return p.Role == RoleAdmin }
