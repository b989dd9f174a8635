package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avakara/ewaste-platform/internal/model"
)

var (
	ErrNotFound  = gorm.ErrRecordNotFound
	ErrDuplicate = errors.New("duplicate record")
	// ErrVersionConflict is returned when an optimistic version check on update fails.
	ErrVersionConflict = errors.New("version conflict")
	// ErrConditionFailed is returned when a guarded update (capacity, points, stock) matched no row.
	ErrConditionFailed = errors.New("update condition failed")
)

type RequestRepository interface {
	Create(ctx context.Context, req *model.Request) error
	Get(ctx context.Context, id uuid.UUID) (*model.Request, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Request, error)
	Update(ctx context.Context, req *model.Request, expectedVersion int64) error
	AppendMilestone(ctx context.Context, ev model.MilestoneEvent) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByUser(ctx context.Context, userID uuid.UUID, includeRejected bool) ([]model.Request, error)
	ListByAgency(ctx context.Context, agencyID uuid.UUID, status *model.RequestStatus, includeRejected bool) ([]model.Request, error)
	ListByVolunteer(ctx context.Context, volunteerID uuid.UUID) ([]model.Request, error)
	CountOpenByVolunteer(ctx context.Context, volunteerID uuid.UUID) (int64, error)
	ListByAgencyBetween(ctx context.Context, agencyID uuid.UUID, from, to time.Time) ([]model.Request, error)
}

type InventoryRepository interface {
	Create(ctx context.Context, inv *model.Inventory) error
	Get(ctx context.Context, agencyID uuid.UUID) (*model.Inventory, error)
	Add(ctx context.Context, agencyID uuid.UUID, weight float64, items []model.WasteItem) error
	Release(ctx context.Context, agencyID uuid.UUID, weight float64, items []model.WasteItem) error
	Resize(ctx context.Context, agencyID uuid.UUID, total float64) error
}

type AccountRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*model.User, error)
	CreateAgency(ctx context.Context, agency *model.Agency) error
	GetAgency(ctx context.Context, id uuid.UUID) (*model.Agency, error)
	ListCertifiedAgencies(ctx context.Context) ([]model.Agency, error)
	SetCertification(ctx context.Context, id uuid.UUID, status model.CertificationStatus) error
	MarkInventorySetup(ctx context.Context, id uuid.UUID) error
	CreateVolunteer(ctx context.Context, volunteer *model.Volunteer) error
	GetVolunteer(ctx context.Context, id uuid.UUID) (*model.Volunteer, error)
	ListVolunteers(ctx context.Context, agencyID uuid.UUID, activeOnly bool) ([]model.Volunteer, error)
	SetVolunteerStatus(ctx context.Context, id uuid.UUID, status model.VolunteerStatus) error
	SetVolunteerPushToken(ctx context.Context, id uuid.UUID, token string) error
	DeleteVolunteer(ctx context.Context, id uuid.UUID) error
	UpsertAdmin(ctx context.Context, admin *model.Admin) error
	FindCredential(ctx context.Context, role model.Role, email string) (*model.Credential, error)
}

// PointsCredit is added atomically to a user's counters.
type PointsCredit struct {
	Points            int64
	MonthlyPoints     int64
	CommunityPoints   int64
	CompletedRequests int64
}

type RewardRepository interface {
	CreditUser(ctx context.Context, userID uuid.UUID, credit PointsCredit) error
	DebitUser(ctx context.Context, userID uuid.UUID, amount int64) error
	RefundUser(ctx context.Context, userID uuid.UUID, amount int64) error
	RankMonthly(ctx context.Context, limit int) ([]model.LeaderboardEntry, error)
	ResetMonthly(ctx context.Context, at time.Time) error
	AwardRank(ctx context.Context, userID uuid.UUID, rank int, bonus int64) error

	CreateProduct(ctx context.Context, product *model.Product) error
	GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error)
	ListProducts(ctx context.Context, agencyID *uuid.UUID) ([]model.Product, error)
	TakeStock(ctx context.Context, productID uuid.UUID) error
	ReturnStock(ctx context.Context, productID uuid.UUID, delta int) error

	CreateOrder(ctx context.Context, order *model.Order) error
	GetOrder(ctx context.Context, id uuid.UUID) (*model.Order, error)
	TransitionOrder(ctx context.Context, id uuid.UUID, from, to model.OrderStatus) error
	ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]model.Order, error)
	ListOrdersByAgency(ctx context.Context, agencyID uuid.UUID) ([]model.Order, error)
}

type CommunityRepository interface {
	Create(ctx context.Context, event *model.CommunityEvent) error
	ListUpcoming(ctx context.Context, now time.Time) ([]model.CommunityEvent, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type JobRepository interface {
	// Claim records a run of job name for period. It returns false if the period was already claimed.
	Claim(ctx context.Context, name, period string, at time.Time) (bool, error)
	// HasRun reports whether job name has claimed any period.
	HasRun(ctx context.Context, name string) (bool, error)
}

// Store groups the repositories and runs units of work atomically.
type Store interface {
	Requests() RequestRepository
	Inventories() InventoryRepository
	Accounts() AccountRepository
	Rewards() RewardRepository
	Community() CommunityRepository
	Jobs() JobRepository
	Atomic(ctx context.Context, fn func(tx Store) error) error
}

type GormStore struct {
	db *gorm.DB
}

var (
	_ Store               = (*GormStore)(nil)
	_ RequestRepository   = (*GormRequestRepository)(nil)
	_ InventoryRepository = (*GormInventoryRepository)(nil)
	_ AccountRepository   = (*GormAccountRepository)(nil)
	_ RewardRepository    = (*GormRewardRepository)(nil)
	_ CommunityRepository = (*GormCommunityRepository)(nil)
	_ JobRepository       = (*GormJobRepository)(nil)
)

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Requests() RequestRepository      { return NewRequestRepository(s.db) }
func (s *GormStore) Inventories() InventoryRepository { return NewInventoryRepository(s.db) }
func (s *GormStore) Accounts() AccountRepository      { return NewAccountRepository(s.db) }
func (s *GormStore) Rewards() RewardRepository        { return NewRewardRepository(s.db) }
func (s *GormStore) Community() CommunityRepository   { return NewCommunityRepository(s.db) }
func (s *GormStore) Jobs() JobRepository              { return NewJobRepository(s.db) }

func (s *GormStore) Atomic(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

// isUniqueViolation recognises postgres unique_violation (23505) without importing the driver.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "23505") || strings.Contains(msg, "duplicate key")
}
