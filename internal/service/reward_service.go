package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/avakara/ewaste-platform/internal/ids"
	"github.com/avakara/ewaste-platform/internal/metrics"
	"github.com/avakara/ewaste-platform/internal/model"
	"github.com/avakara/ewaste-platform/internal/repository"
)

type CreateProductInput struct {
	Name           string
	Description    string
	PointsRequired int64
	Stock          int
	Image          *File
}

type RewardService struct {
	store   repository.Store
	storage ObjectStorage
	log     zerolog.Logger
	now     func() time.Time
}

func NewRewardService(store repository.Store, storage ObjectStorage, log zerolog.Logger) *RewardService {
	return &RewardService{
		store:   store,
		storage: storage,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *RewardService) CreateProduct(ctx context.Context, principal model.Principal, input CreateProductInput) (*model.Product, error) {
	if !principal.IsAgency() {
		return nil, ErrPermissionDenied
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: product name is required", ErrInvalidInput)
	}
	if input.PointsRequired <= 0 {
		return nil, fmt.Errorf("%w: points required must be positive", ErrInvalidInput)
	}
	if input.Stock < 0 {
		return nil, fmt.Errorf("%w: stock must not be negative", ErrInvalidInput)
	}

	product := &model.Product{
		ID:             uuid.New(),
		AgencyID:       principal.ID,
		Name:           name,
		Description:    strings.TrimSpace(input.Description),
		PointsRequired: input.PointsRequired,
		Stock:          input.Stock,
		CreatedAt:      s.now(),
	}
	if input.Image != nil {
		uploaded, err := uploadAll(ctx, s.storage, "products/"+principal.ID.String(), []File{*input.Image}, s.log)
		if err != nil {
			return nil, err
		}
		product.ImageURL = uploaded[0].URL
		product.ImageKey = uploaded[0].StorageKey
	}

	if err := s.store.Rewards().CreateProduct(ctx, product); err != nil {
		deleteAll(ctx, s.storage, []model.Attachment{{URL: product.ImageURL, StorageKey: product.ImageKey}}, s.log)
		return nil, err
	}
	return product, nil
}

func (s *RewardService) ListProducts(ctx context.Context, agencyID *uuid.UUID) ([]model.Product, error) {
	return s.store.Rewards().ListProducts(ctx, agencyID)
}

func (s *RewardService) RestockProduct(ctx context.Context, principal model.Principal, productID uuid.UUID, delta int) (*model.Product, error) {
	if !principal.IsAgency() {
		return nil, ErrPermissionDenied
	}
	if delta <= 0 {
		return nil, fmt.Errorf("%w: restock amount must be positive", ErrInvalidInput)
	}
	var product *model.Product
	err := s.store.Atomic(ctx, func(tx repository.Store) error {
		current, err := tx.Rewards().GetProduct(ctx, productID)
		if err != nil {
			return storeError(err, "product")
		}
		if current.AgencyID != principal.ID {
			return ErrPermissionDenied
		}
		if err := tx.Rewards().ReturnStock(ctx, productID, delta); err != nil {
			return storeError(err, "product")
		}
		product, err = tx.Rewards().GetProduct(ctx, productID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

// Redeem exchanges points for one unit of product, creating a Pending order.
func (s *RewardService) Redeem(ctx context.Context, principal model.Principal, productID uuid.UUID) (*model.Order, error) {
	if !principal.IsUser() {
		return nil, ErrPermissionDenied
	}

	var order *model.Order
	err := s.store.Atomic(ctx, func(tx repository.Store) error {
		product, err := tx.Rewards().GetProduct(ctx, productID)
		if err != nil {
			return storeError(err, "product")
		}
		user, err := tx.Accounts().GetUser(ctx, principal.ID)
		if err != nil {
			return storeError(err, "user")
		}
		if user.Points < product.PointsRequired {
			return fmt.Errorf("%w: %d available, %d required", ErrInsufficientPoints, user.Points, product.PointsRequired)
		}
		if product.Stock <= 0 {
			return ErrOutOfStock
		}

		if err := tx.Rewards().DebitUser(ctx, user.ID, product.PointsRequired); err != nil {
			if errors.Is(err, repository.ErrConditionFailed) {
				return ErrInsufficientPoints
			}
			return storeError(err, "user")
		}
		if err := tx.Rewards().TakeStock(ctx, product.ID); err != nil {
			if errors.Is(err, repository.ErrConditionFailed) {
				return ErrOutOfStock
			}
			return storeError(err, "product")
		}

		now := s.now()
		order = &model.Order{
			ID:          uuid.New(),
			Number:      ids.OrderNumber(),
			UserID:      user.ID,
			ProductID:   product.ID,
			AgencyID:    product.AgencyID,
			PointsSpent: product.PointsRequired,
			Status:      model.OrderStatusPending,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		return tx.Rewards().CreateOrder(ctx, order)
	})
	if err != nil {
		return nil, err
	}
	metrics.RedemptionsTotal.Inc()
	return order, nil
}

// CancelOrder reverses a Pending order: stock and points go back.
func (s *RewardService) CancelOrder(ctx context.Context, principal model.Principal, orderID uuid.UUID) (*model.Order, error) {
	if !principal.IsUser() {
		return nil, ErrPermissionDenied
	}

	var order *model.Order
	err := s.store.Atomic(ctx, func(tx repository.Store) error {
		current, err := tx.Rewards().GetOrder(ctx, orderID)
		if err != nil {
			return storeError(err, "order")
		}
		if current.UserID != principal.ID {
			return ErrPermissionDenied
		}
		if err := tx.Rewards().TransitionOrder(ctx, orderID, model.OrderStatusPending, model.OrderStatusCancelled); err != nil {
			if errors.Is(err, repository.ErrConditionFailed) {
				return fmt.Errorf("%w: only pending orders can be cancelled", ErrInvalidTransition)
			}
			return storeError(err, "order")
		}
		if err := tx.Rewards().ReturnStock(ctx, current.ProductID, 1); err != nil {
			return storeError(err, "product")
		}
		if err := tx.Rewards().RefundUser(ctx, current.UserID, current.PointsSpent); err != nil {
			return storeError(err, "user")
		}
		order, err = tx.Rewards().GetOrder(ctx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

var orderSuccessor = map[model.OrderStatus]model.OrderStatus{
	model.OrderStatusPending: model.OrderStatusShipped,
	model.OrderStatusShipped: model.OrderStatusDelivered,
}

// UpdateOrderStatus moves an agency's order one step forward.
func (s *RewardService) UpdateOrderStatus(ctx context.Context, principal model.Principal, orderID uuid.UUID, status string) (*model.Order, error) {
	if !principal.IsAgency() {
		return nil, ErrPermissionDenied
	}
	target := model.OrderStatus(status)
	if target != model.OrderStatusShipped && target != model.OrderStatusDelivered {
		return nil, fmt.Errorf("%w: status must be Shipped or Delivered", ErrInvalidInput)
	}

	var order *model.Order
	err := s.store.Atomic(ctx, func(tx repository.Store) error {
		current, err := tx.Rewards().GetOrder(ctx, orderID)
		if err != nil {
			return storeError(err, "order")
		}
		if current.AgencyID != principal.ID {
			return ErrPermissionDenied
		}
		if orderSuccessor[current.Status] != target {
			return fmt.Errorf("%w: %s cannot move to %s", ErrInvalidTransition, current.Status, target)
		}
		if err := tx.Rewards().TransitionOrder(ctx, orderID, current.Status, target); err != nil {
			if errors.Is(err, repository.ErrConditionFailed) {
				return ErrConflict
			}
			return storeError(err, "order")
		}
		order, err = tx.Rewards().GetOrder(ctx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *RewardService) ListOrders(ctx context.Context, principal model.Principal) ([]model.Order, error) {
	switch principal.Role {
	case model.RoleUser:
		return s.store.Rewards().ListOrdersByUser(ctx, principal.ID)
	case model.RoleAgency:
		return s.store.Rewards().ListOrdersByAgency(ctx, principal.ID)
	default:
		return nil, ErrPermissionDenied
	}
}
