package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/avakara/ewaste-platform/internal/auth"
	"github.com/avakara/ewaste-platform/internal/model"
	"github.com/avakara/ewaste-platform/internal/repository"
)

const minPasswordLength = 8

// loginOrder is the sequence of credential stores consulted by Login.
var loginOrder = []model.Role{model.RoleUser, model.RoleAgency, model.RoleVolunteer, model.RoleAdmin}

var agencyTypes = map[string]struct{}{
	"Recycler":   {},
	"Collector":  {},
	"Disposal":   {},
	"Aggregator": {},
}

type TokenIssuer interface {
	Issue(p model.Principal) (string, time.Time, error)
}

type AuthService struct {
	store   repository.Store
	storage ObjectStorage
	tokens  TokenIssuer
	log     zerolog.Logger
	now     func() time.Time
}

func NewAuthService(store repository.Store, storage ObjectStorage, tokens TokenIssuer, log zerolog.Logger) *AuthService {
	return &AuthService{
		store:   store,
		storage: storage,
		tokens:  tokens,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

type Session struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expiresAt"`
	Principal model.Principal `json:"-"`
	Role      model.Role      `json:"role"`
	ID        uuid.UUID       `json:"id"`
}

// Login resolves email against users, agencies, volunteers and admins in that order. The first
// store whose record verifies the password wins.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	for _, role := range loginOrder {
		cred, err := s.store.Accounts().FindCredential(ctx, role, email)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if auth.VerifyPassword(cred.PasswordHash, password) != nil {
			continue
		}
		return s.issue(model.Principal{ID: cred.ID, Role: cred.Role, AgencyID: cred.AgencyID})
	}
	return nil, ErrInvalidCredentials
}

func (s *AuthService) issue(principal model.Principal) (*Session, error) {
	token, expiresAt, err := s.tokens.Issue(principal)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: expiresAt, Principal: principal, Role: principal.Role, ID: principal.ID}, nil
}

type RegisterUserInput struct {
	Name         string
	Email        string
	Password     string
	Phone        string
	Address      string
	PinCode      string
	Lon          *float64
	Lat          *float64
	ProfilePhoto *File
}

func (s *AuthService) RegisterUser(ctx context.Context, input RegisterUserInput) (*model.User, *Session, error) {
	if err := validateAccount(input.Name, input.Email, input.Password); err != nil {
		return nil, nil, err
	}
	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, nil, err
	}

	now := s.now()
	user := &model.User{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(input.Name),
		Email:        normalizeEmail(input.Email),
		PasswordHash: hash,
		Phone:        strings.TrimSpace(input.Phone),
		Address:      strings.TrimSpace(input.Address),
		PinCode:      strings.TrimSpace(input.PinCode),
		Lon:          input.Lon,
		Lat:          input.Lat,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var uploaded []model.Attachment
	if input.ProfilePhoto != nil {
		uploaded, err = uploadAll(ctx, s.storage, "users/"+user.ID.String(), []File{*input.ProfilePhoto}, s.log)
		if err != nil {
			return nil, nil, err
		}
		user.ProfilePicURL = uploaded[0].URL
		user.ProfilePicKey = uploaded[0].StorageKey
	}

	if err := s.store.Accounts().CreateUser(ctx, user); err != nil {
		deleteAll(ctx, s.storage, uploaded, s.log)
		return nil, nil, storeError(err, "email")
	}
	session, err := s.issue(model.Principal{ID: user.ID, Role: model.RoleUser})
	if err != nil {
		return nil, nil, err
	}
	return user, session, nil
}

type RegisterAgencyInput struct {
	Name              string
	Email             string
	Password          string
	AgencyTypes       []string
	Address           string
	Region            string
	Phone             string
	ContactPerson     string
	Lon               float64
	Lat               float64
	WorkingHours      string
	WasteTypesHandled []string
	Logo              *File
	TradeLicense      *File
	PCBAuthorization  *File
}

// RegisterAgency creates an uncertified agency. Documents are uploaded first; if any upload or the
// insert fails, the objects already stored are removed.
func (s *AuthService) RegisterAgency(ctx context.Context, input RegisterAgencyInput) (*model.Agency, *Session, error) {
	if err := validateAccount(input.Name, input.Email, input.Password); err != nil {
		return nil, nil, err
	}
	if strings.TrimSpace(input.Address) == "" {
		return nil, nil, fmt.Errorf("%w: address is required", ErrInvalidInput)
	}
	if len(input.AgencyTypes) == 0 {
		return nil, nil, fmt.Errorf("%w: at least one agency type is required", ErrInvalidInput)
	}
	for _, agencyType := range input.AgencyTypes {
		if _, ok := agencyTypes[agencyType]; !ok {
			return nil, nil, fmt.Errorf("%w: unknown agency type %q", ErrInvalidInput, agencyType)
		}
	}
	if input.TradeLicense == nil || input.PCBAuthorization == nil {
		return nil, nil, fmt.Errorf("%w: trade licence and PCB authorisation are required", ErrInvalidInput)
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, nil, err
	}

	now := s.now()
	agency := &model.Agency{
		ID:                  uuid.New(),
		Name:                strings.TrimSpace(input.Name),
		Email:               normalizeEmail(input.Email),
		PasswordHash:        hash,
		AgencyTypes:         input.AgencyTypes,
		Address:             strings.TrimSpace(input.Address),
		Region:              strings.TrimSpace(input.Region),
		Phone:               strings.TrimSpace(input.Phone),
		ContactPerson:       strings.TrimSpace(input.ContactPerson),
		Lon:                 input.Lon,
		Lat:                 input.Lat,
		WorkingHours:        strings.TrimSpace(input.WorkingHours),
		CertificationStatus: model.CertificationUncertified,
		WasteTypesHandled:   trimAll(input.WasteTypesHandled),
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	files := []File{*input.TradeLicense, *input.PCBAuthorization}
	if input.Logo != nil {
		files = append(files, *input.Logo)
	}
	uploaded, err := uploadAll(ctx, s.storage, "agencies/"+agency.ID.String(), files, s.log)
	if err != nil {
		return nil, nil, err
	}
	agency.TradeLicense = uploaded[0]
	agency.PCBAuthorization = uploaded[1]
	if len(uploaded) > 2 {
		agency.Logo = uploaded[2]
	}

	if err := s.store.Accounts().CreateAgency(ctx, agency); err != nil {
		deleteAll(ctx, s.storage, uploaded, s.log)
		return nil, nil, storeError(err, "email")
	}
	agencyID := agency.ID
	session, err := s.issue(model.Principal{ID: agency.ID, Role: model.RoleAgency, AgencyID: &agencyID})
	if err != nil {
		return nil, nil, err
	}
	return agency, session, nil
}

// EnsureAdmin seeds or refreshes the configured admin account. Empty credentials skip seeding.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) error {
	if strings.TrimSpace(email) == "" || password == "" {
		s.log.Warn().Msg("admin credentials not configured, skipping admin seed")
		return nil
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	return s.store.Accounts().UpsertAdmin(ctx, &model.Admin{
		ID:           uuid.New(),
		Email:        normalizeEmail(email),
		PasswordHash: hash,
		CreatedAt:    s.now(),
	})
}

// Profile returns the calling user's account including point balances.
func (s *AuthService) Profile(ctx context.Context, principal model.Principal) (*model.User, error) {
	if !principal.IsUser() {
		return nil, ErrPermissionDenied
	}
	user, err := s.store.Accounts().GetUser(ctx, principal.ID)
	if err != nil {
		return nil, storeError(err, "user")
	}
	return user, nil
}

func validateAccount(name, email, password string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if !validEmail(email) {
		return fmt.Errorf("%w: email is invalid", ErrInvalidInput)
	}
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}
	return nil
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	return err == nil && addr.Address == strings.TrimSpace(email)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
