// Package memstore keeps the whole data set in process memory. Transactions take a snapshot and
// restore it when the unit of work fails.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/avakara/ewaste-platform/internal/model"
	"github.com/avakara/ewaste-platform/internal/repository"
)

type state struct {
	requests    map[uuid.UUID]*model.Request
	inventories map[uuid.UUID]*model.Inventory
	users       map[uuid.UUID]*model.User
	agencies    map[uuid.UUID]*model.Agency
	volunteers  map[uuid.UUID]*model.Volunteer
	admins      map[uuid.UUID]*model.Admin
	products    map[uuid.UUID]*model.Product
	orders      map[uuid.UUID]*model.Order
	events      map[uuid.UUID]*model.CommunityEvent
	jobs        map[string]time.Time
}

func newState() *state {
	return &state{
		requests:    make(map[uuid.UUID]*model.Request),
		inventories: make(map[uuid.UUID]*model.Inventory),
		users:       make(map[uuid.UUID]*model.User),
		agencies:    make(map[uuid.UUID]*model.Agency),
		volunteers:  make(map[uuid.UUID]*model.Volunteer),
		admins:      make(map[uuid.UUID]*model.Admin),
		products:    make(map[uuid.UUID]*model.Product),
		orders:      make(map[uuid.UUID]*model.Order),
		events:      make(map[uuid.UUID]*model.CommunityEvent),
		jobs:        make(map[string]time.Time),
	}
}

func (s *state) clone() *state {
	out := newState()
	for id, v := range s.requests {
		out.requests[id] = cloneRequest(v)
	}
	for id, v := range s.inventories {
		out.inventories[id] = cloneInventory(v)
	}
	for id, v := range s.users {
		out.users[id] = cloneUser(v)
	}
	for id, v := range s.agencies {
		out.agencies[id] = cloneAgency(v)
	}
	for id, v := range s.volunteers {
		out.volunteers[id] = cloneVolunteer(v)
	}
	for id, v := range s.admins {
		admin := *v
		out.admins[id] = &admin
	}
	for id, v := range s.products {
		product := *v
		out.products[id] = &product
	}
	for id, v := range s.orders {
		order := *v
		out.orders[id] = &order
	}
	for id, v := range s.events {
		out.events[id] = cloneEvent(v)
	}
	for k, v := range s.jobs {
		out.jobs[k] = v
	}
	return out
}

// Store implements repository.Store. Top-level calls are serialised by one mutex; Atomic holds it
// for the whole unit of work and hands fn a store bound to the same data.
type Store struct {
	mu   *sync.Mutex
	data **state
	tx   bool
	now  func() time.Time
}

var _ repository.Store = (*Store)(nil)

func New() *Store {
	data := newState()
	return &Store{mu: &sync.Mutex{}, data: &data, now: time.Now}
}

func (s *Store) Requests() repository.RequestRepository      { return requestRepo{s} }
func (s *Store) Inventories() repository.InventoryRepository { return inventoryRepo{s} }
func (s *Store) Accounts() repository.AccountRepository      { return accountRepo{s} }
func (s *Store) Rewards() repository.RewardRepository        { return rewardRepo{s} }
func (s *Store) Community() repository.CommunityRepository   { return communityRepo{s} }
func (s *Store) Jobs() repository.JobRepository              { return jobRepo{s} }

func (s *Store) Atomic(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.tx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := (*s.data).clone()
	tx := &Store{mu: s.mu, data: s.data, tx: true, now: s.now}
	if err := fn(tx); err != nil {
		*s.data = snapshot
		return err
	}
	return nil
}

// read runs fn under the store lock unless the caller already holds it through Atomic.
func (s *Store) read(fn func(st *state) error) error {
	if !s.tx {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	return fn(*s.data)
}

func cloneRequest(r *model.Request) *model.Request {
	out := *r
	out.Items = append([]model.WasteItem{}, r.Items...)
	out.Images = append([]model.Attachment{}, r.Images...)
	out.History = make([]model.MilestoneEvent, len(r.History))
	for i, ev := range r.History {
		out.History[i] = cloneMilestone(ev)
	}
	out.VolunteerID = cloneUUID(r.VolunteerID)
	if r.RejectedAt != nil {
		at := *r.RejectedAt
		out.RejectedAt = &at
	}
	if r.RejectionReason != nil {
		reason := *r.RejectionReason
		out.RejectionReason = &reason
	}
	return &out
}

func cloneMilestone(ev model.MilestoneEvent) model.MilestoneEvent {
	out := ev
	out.ActorID = cloneUUID(ev.ActorID)
	out.Lon = cloneFloat(ev.Lon)
	out.Lat = cloneFloat(ev.Lat)
	if ev.Details != nil {
		out.Details = make(map[string]interface{}, len(ev.Details))
		for k, v := range ev.Details {
			out.Details[k] = v
		}
	}
	return out
}

func cloneInventory(inv *model.Inventory) *model.Inventory {
	out := *inv
	out.Breakdown = make(map[string]int, len(inv.Breakdown))
	for k, v := range inv.Breakdown {
		out.Breakdown[k] = v
	}
	return &out
}

func cloneUser(u *model.User) *model.User {
	out := *u
	out.Lon = cloneFloat(u.Lon)
	out.Lat = cloneFloat(u.Lat)
	if u.LastMonthlyRank != nil {
		rank := *u.LastMonthlyRank
		out.LastMonthlyRank = &rank
	}
	if u.LastResetAt != nil {
		at := *u.LastResetAt
		out.LastResetAt = &at
	}
	return &out
}

func cloneAgency(a *model.Agency) *model.Agency {
	out := *a
	out.AgencyTypes = append([]string{}, a.AgencyTypes...)
	out.WasteTypesHandled = append([]string{}, a.WasteTypesHandled...)
	return &out
}

func cloneVolunteer(v *model.Volunteer) *model.Volunteer {
	out := *v
	out.PickupArea.PinCodes = append([]string{}, v.PickupArea.PinCodes...)
	out.PickupArea.Landmarks = append([]string{}, v.PickupArea.Landmarks...)
	return &out
}

func cloneEvent(e *model.CommunityEvent) *model.CommunityEvent {
	out := *e
	out.OrganizerUserID = cloneUUID(e.OrganizerUserID)
	out.OrganizerAgencyID = cloneUUID(e.OrganizerAgencyID)
	return &out
}

func cloneUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	out := *id
	return &out
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	out := *f
	return &out
}
