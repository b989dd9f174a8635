package model

import (
	"time"

	"github.com/google/uuid"
)

type CertificationStatus string

const (
	CertificationCertified   CertificationStatus = "Certified"
	CertificationUncertified CertificationStatus = "Uncertified"
)

type VolunteerStatus string

const (
	VolunteerStatusActive   VolunteerStatus = "Active"
	VolunteerStatusInactive VolunteerStatus = "Inactive"
)

type User struct {
	ID                uuid.UUID  `json:"id"`
	Name              string     `json:"name"`
	Email             string     `json:"email"`
	PasswordHash      string     `json:"-"`
	Phone             string     `json:"phone,omitempty"`
	Address           string     `json:"address,omitempty"`
	PinCode           string     `json:"pinCode,omitempty"`
	Lon               *float64   `json:"lon,omitempty"`
	Lat               *float64   `json:"lat,omitempty"`
	ProfilePicURL     string     `json:"profilePicUrl,omitempty"`
	ProfilePicKey     string     `json:"-"`
	Points            int64      `json:"points"`
	MonthlyPoints     int64      `json:"monthlyPoints"`
	CommunityPoints   int64      `json:"communityPoints"`
	CompletedRequests int64      `json:"completedRequests"`
	RedeemedPoints    int64      `json:"redeemedPoints"`
	LastMonthlyRank   *int       `json:"lastMonthlyRank,omitempty"`
	LastResetAt       *time.Time `json:"lastResetAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

type Agency struct {
	ID                  uuid.UUID           `json:"id"`
	Name                string              `json:"name"`
	Email               string              `json:"email"`
	PasswordHash        string              `json:"-"`
	AgencyTypes         []string            `json:"agencyTypes" gorm:"-"`
	Address             string              `json:"address"`
	Region              string              `json:"region"`
	Phone               string              `json:"phone"`
	ContactPerson       string              `json:"contactPerson"`
	Lon                 float64             `json:"lon"`
	Lat                 float64             `json:"lat"`
	WorkingHours        string              `json:"workingHours"`
	CertificationStatus CertificationStatus `json:"certificationStatus"`
	WasteTypesHandled   []string            `json:"wasteTypesHandled" gorm:"-"`
	InventorySetup      bool                `json:"inventorySetup"`
	Logo                Attachment          `json:"logo" gorm:"embedded;embeddedPrefix:logo_"`
	TradeLicense        Attachment          `json:"tradeLicense" gorm:"embedded;embeddedPrefix:trade_license_"`
	PCBAuthorization    Attachment          `json:"pcbAuthorization" gorm:"embedded;embeddedPrefix:pcb_auth_"`
	CreatedAt           time.Time           `json:"createdAt"`
	UpdatedAt           time.Time           `json:"updatedAt"`
}

func (a *Agency) Certified() bool {
	return a.CertificationStatus == CertificationCertified
}

type PickupArea struct {
	City      string   `json:"city"`
	District  string   `json:"district"`
	PinCodes  []string `json:"pinCodes"`
	Landmarks []string `json:"landmarks,omitempty"`
	Lon       float64  `json:"lon"`
	Lat       float64  `json:"lat"`
}

type Volunteer struct {
	ID            uuid.UUID       `json:"id"`
	AgencyID      uuid.UUID       `json:"agencyId"`
	Name          string          `json:"name"`
	Email         string          `json:"email"`
	PasswordHash  string          `json:"-"`
	Phone         string          `json:"phone"`
	Address       string          `json:"address"`
	PickupArea    PickupArea      `json:"pickupArea" gorm:"-"`
	Status        VolunteerStatus `json:"status"`
	PushToken     string          `json:"-"`
	ProfilePicURL string          `json:"profilePicUrl,omitempty"`
	ProfilePicKey string          `json:"-"`
	CreatedAt     time.Time       `json:"createdAt"`
}

func (v *Volunteer) Active() bool {
	return v.Status == VolunteerStatusActive
}

type Admin struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Credential is the minimal login record every role store can produce.
type Credential struct {
	ID           uuid.UUID
	Role         Role
	AgencyID     *uuid.UUID
	Email        string
	PasswordHash string
}
