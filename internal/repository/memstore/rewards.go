package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/avakara/ewaste-platform/internal/model"
	"github.com/avakara/ewaste-platform/internal/repository"
)

type rewardRepo struct {
	s *Store
}

func (r rewardRepo) withUser(id uuid.UUID, fn func(*model.User) error) error {
	return r.s.read(func(st *state) error {
		user, ok := st.users[id]
		if !ok {
			return repository.ErrNotFound
		}
		if err := fn(user); err != nil {
			return err
		}
		user.UpdatedAt = r.s.now()
		return nil
	})
}

func (r rewardRepo) CreditUser(ctx context.Context, userID uuid.UUID, credit repository.PointsCredit) error {
	return r.withUser(userID, func(u *model.User) error {
		u.Points += credit.Points
		u.MonthlyPoints += credit.MonthlyPoints
		u.CommunityPoints += credit.CommunityPoints
		u.CompletedRequests += credit.CompletedRequests
		return nil
	})
}

func (r rewardRepo) DebitUser(ctx context.Context, userID uuid.UUID, amount int64) error {
	return r.withUser(userID, func(u *model.User) error {
		if u.Points < amount {
			return repository.ErrConditionFailed
		}
		u.Points -= amount
		u.RedeemedPoints += amount
		return nil
	})
}

func (r rewardRepo) RefundUser(ctx context.Context, userID uuid.UUID, amount int64) error {
	return r.withUser(userID, func(u *model.User) error {
		u.Points += amount
		u.RedeemedPoints = max(u.RedeemedPoints-amount, 0)
		return nil
	})
}

func (r rewardRepo) RankMonthly(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	var entries []model.LeaderboardEntry
	err := r.s.read(func(st *state) error {
		for _, u := range st.users {
			if u.MonthlyPoints > 0 {
				entries = append(entries, model.LeaderboardEntry{UserID: u.ID, Name: u.Name, MonthlyPoints: u.MonthlyPoints})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].MonthlyPoints == entries[j].MonthlyPoints {
			return entries[i].UserID.String() < entries[j].UserID.String()
		}
		return entries[i].MonthlyPoints > entries[j].MonthlyPoints
	})
	if limit >= 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

func (r rewardRepo) ResetMonthly(ctx context.Context, at time.Time) error {
	return r.s.read(func(st *state) error {
		for _, u := range st.users {
			resetAt := at
			u.MonthlyPoints = 0
			u.LastMonthlyRank = nil
			u.LastResetAt = &resetAt
		}
		return nil
	})
}

func (r rewardRepo) AwardRank(ctx context.Context, userID uuid.UUID, rank int, bonus int64) error {
	return r.withUser(userID, func(u *model.User) error {
		u.Points += bonus
		u.LastMonthlyRank = &rank
		return nil
	})
}

func (r rewardRepo) CreateProduct(ctx context.Context, product *model.Product) error {
	return r.s.read(func(st *state) error {
		stored := *product
		st.products[product.ID] = &stored
		return nil
	})
}

func (r rewardRepo) GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var out *model.Product
	err := r.s.read(func(st *state) error {
		product, ok := st.products[id]
		if !ok {
			return repository.ErrNotFound
		}
		copied := *product
		out = &copied
		return nil
	})
	return out, err
}

func (r rewardRepo) ListProducts(ctx context.Context, agencyID *uuid.UUID) ([]model.Product, error) {
	var out []model.Product
	err := r.s.read(func(st *state) error {
		for _, product := range st.products {
			if agencyID == nil || product.AgencyID == *agencyID {
				out = append(out, *product)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, err
}

func (r rewardRepo) TakeStock(ctx context.Context, productID uuid.UUID) error {
	return r.s.read(func(st *state) error {
		product, ok := st.products[productID]
		if !ok {
			return repository.ErrNotFound
		}
		if product.Stock <= 0 {
			return repository.ErrConditionFailed
		}
		product.Stock--
		return nil
	})
}

func (r rewardRepo) ReturnStock(ctx context.Context, productID uuid.UUID, delta int) error {
	return r.s.read(func(st *state) error {
		product, ok := st.products[productID]
		if !ok {
			return repository.ErrNotFound
		}
		product.Stock += delta
		return nil
	})
}

func (r rewardRepo) CreateOrder(ctx context.Context, order *model.Order) error {
	return r.s.read(func(st *state) error {
		stored := *order
		st.orders[order.ID] = &stored
		return nil
	})
}

func (r rewardRepo) GetOrder(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var out *model.Order
	err := r.s.read(func(st *state) error {
		order, ok := st.orders[id]
		if !ok {
			return repository.ErrNotFound
		}
		copied := *order
		out = &copied
		return nil
	})
	return out, err
}

func (r rewardRepo) TransitionOrder(ctx context.Context, id uuid.UUID, from, to model.OrderStatus) error {
	return r.s.read(func(st *state) error {
		order, ok := st.orders[id]
		if !ok {
			return repository.ErrNotFound
		}
		if order.Status != from {
			return repository.ErrConditionFailed
		}
		order.Status = to
		order.UpdatedAt = r.s.now()
		return nil
	})
}

func (r rewardRepo) ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	return r.orders(func(o *model.Order) bool { return o.UserID == userID })
}

func (r rewardRepo) ListOrdersByAgency(ctx context.Context, agencyID uuid.UUID) ([]model.Order, error) {
	return r.orders(func(o *model.Order) bool { return o.AgencyID == agencyID })
}

func (r rewardRepo) orders(keep func(*model.Order) bool) ([]model.Order, error) {
	var out []model.Order
	err := r.s.read(func(st *state) error {
		for _, order := range st.orders {
			if keep(order) {
				out = append(out, *order)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, err
}
