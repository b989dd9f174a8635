package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/avakara/ewaste-platform/internal/model"
	"github.com/avakara/ewaste-platform/internal/repository"
)

type requestRepo struct {
	s *Store
}

func (r requestRepo) Create(ctx context.Context, req *model.Request) error {
	return r.s.read(func(st *state) error {
		if _, ok := st.requests[req.ID]; ok {
			return repository.ErrDuplicate
		}
		st.requests[req.ID] = cloneRequest(req)
		return nil
	})
}

func (r requestRepo) Get(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	var out *model.Request
	err := r.s.read(func(st *state) error {
		req, ok := st.requests[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = cloneRequest(req)
		return nil
	})
	return out, err
}

func (r requestRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	return r.Get(ctx, id)
}

func (r requestRepo) Update(ctx context.Context, req *model.Request, expectedVersion int64) error {
	return r.s.read(func(st *state) error {
		stored, ok := st.requests[req.ID]
		if !ok || stored.Version != expectedVersion {
			return repository.ErrVersionConflict
		}
		next := cloneRequest(req)
		stored.VolunteerID = next.VolunteerID
		stored.PickupAddress = next.PickupAddress
		stored.Status = next.Status
		stored.Stage = next.Stage
		stored.PickupCode = next.PickupCode
		stored.DetectedCategory = next.DetectedCategory
		stored.RejectedAt = next.RejectedAt
		stored.RejectionReason = next.RejectionReason
		stored.UpdatedAt = next.UpdatedAt
		stored.Version = expectedVersion + 1
		req.Version = stored.Version
		return nil
	})
}

func (r requestRepo) AppendMilestone(ctx context.Context, ev model.MilestoneEvent) error {
	return r.s.read(func(st *state) error {
		stored, ok := st.requests[ev.RequestID]
		if !ok {
			return repository.ErrNotFound
		}
		stored.History = append(stored.History, cloneMilestone(ev))
		return nil
	})
}

func (r requestRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.s.read(func(st *state) error {
		if _, ok := st.requests[id]; !ok {
			return repository.ErrNotFound
		}
		delete(st.requests, id)
		return nil
	})
}

func (r requestRepo) ListByUser(ctx context.Context, userID uuid.UUID, includeRejected bool) ([]model.Request, error) {
	return r.filter(func(req *model.Request) bool {
		return req.UserID == userID && (includeRejected || req.RejectedAt == nil)
	}, newestFirst)
}

func (r requestRepo) ListByAgency(
	ctx context.Context,
	agencyID uuid.UUID,
	status *model.RequestStatus,
	includeRejected bool,
) ([]model.Request, error) {
	return r.filter(func(req *model.Request) bool {
		if req.AgencyID != agencyID {
			return false
		}
		if !includeRejected && req.RejectedAt != nil {
			return false
		}
		return status == nil || req.Status == *status
	}, newestFirst)
}

func (r requestRepo) ListByVolunteer(ctx context.Context, volunteerID uuid.UUID) ([]model.Request, error) {
	return r.filter(func(req *model.Request) bool {
		return req.IsAssignedTo(volunteerID)
	}, func(a, b *model.Request) bool {
		if a.PickupDate.Equal(b.PickupDate) {
			return a.ID.String() < b.ID.String()
		}
		return a.PickupDate.Before(b.PickupDate)
	})
}

func (r requestRepo) CountOpenByVolunteer(ctx context.Context, volunteerID uuid.UUID) (int64, error) {
	open, err := r.filter(func(req *model.Request) bool {
		return req.IsAssignedTo(volunteerID) && !req.Status.Terminal()
	}, newestFirst)
	return int64(len(open)), err
}

func (r requestRepo) ListByAgencyBetween(ctx context.Context, agencyID uuid.UUID, from, to time.Time) ([]model.Request, error) {
	return r.filter(func(req *model.Request) bool {
		return req.AgencyID == agencyID && !req.CreatedAt.Before(from) && req.CreatedAt.Before(to)
	}, func(a, b *model.Request) bool {
		return !newestFirst(a, b)
	})
}

func (r requestRepo) filter(keep func(*model.Request) bool, less func(a, b *model.Request) bool) ([]model.Request, error) {
	var matched []*model.Request
	err := r.s.read(func(st *state) error {
		for _, req := range st.requests {
			if keep(req) {
				matched = append(matched, cloneRequest(req))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(matched, func(i, j int) bool { return less(matched[i], matched[j]) })

	out := make([]model.Request, 0, len(matched))
	for _, req := range matched {
		out = append(out, *req)
	}
	return out, nil
}

func newestFirst(a, b *model.Request) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID.String() < b.ID.String()
	}
	return a.CreatedAt.After(b.CreatedAt)
}
