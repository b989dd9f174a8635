package service

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/avakara/ewaste-platform/internal/model"
	"github.com/avakara/ewaste-platform/internal/repository"
)

func newRewardFixture(t *testing.T, balance int64, stock int) (*fixture, *RewardService, *model.Product) {
	t.Helper()
	f := newFixture(t)
	rewards := NewRewardService(f.store, f.storage, zerolog.Nop())
	if balance > 0 {
		if err := f.store.Rewards().CreditUser(f.ctx, f.user.ID, repository.PointsCredit{Points: balance}); err != nil {
			t.Fatalf("credit: %v", err)
		}
	}
	product, err := rewards.CreateProduct(f.ctx, f.agency, CreateProductInput{Name: "Bamboo bottle", PointsRequired: 300, Stock: stock})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	return f, rewards, product
}

func TestRedeemDebitsPointsAndStock(t *testing.T) {
	f, rewards, product := newRewardFixture(t, 500, 3)

	order, err := rewards.Redeem(f.ctx, f.user, product.ID)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if order.Status != model.OrderStatusPending || order.PointsSpent != 300 || !strings.HasPrefix(order.Number, "ORD-") {
		t.Fatalf("unexpected order %+v", order)
	}
	user := f.userRecord(t, f.user.ID)
	if user.Points != 200 || user.RedeemedPoints != 300 {
		t.Fatalf("expected 200 left and 300 redeemed, got %+v", user)
	}
	stored, _ := f.store.Rewards().GetProduct(f.ctx, product.ID)
	if stored.Stock != 2 {
		t.Fatalf("expected stock 2, got %d", stored.Stock)
	}

	if _, err := rewards.Redeem(f.ctx, f.user, product.ID); !errors.Is(err, ErrInsufficientPoints) {
		t.Fatalf("expected ErrInsufficientPoints, got %v", err)
	}
}

func TestConcurrentRedeemSucceedsOnce(t *testing.T) {
	f, rewards, product := newRewardFixture(t, 300, 5)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ok      int
		refused int
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := rewards.Redeem(f.ctx, f.user, product.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrInsufficientPoints):
				refused++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if ok != 1 || refused != 3 {
		t.Fatalf("expected one redemption, got %d ok and %d refused", ok, refused)
	}
	if user := f.userRecord(t, f.user.ID); user.Points != 0 {
		t.Fatalf("expected balance never negative and fully spent, got %d", user.Points)
	}
}

func TestRedeemOutOfStock(t *testing.T) {
	f, rewards, product := newRewardFixture(t, 1000, 1)
	if _, err := rewards.Redeem(f.ctx, f.user, product.ID); err != nil {
		t.Fatalf("first redeem: %v", err)
	}
	if _, err := rewards.Redeem(f.ctx, f.user, product.ID); !errors.Is(err, ErrOutOfStock) {
		t.Fatalf("expected ErrOutOfStock, got %v", err)
	}
	if user := f.userRecord(t, f.user.ID); user.Points != 700 {
		t.Fatalf("expected failed redemption to leave points, got %d", user.Points)
	}
}

func TestCancelOrderRefunds(t *testing.T) {
	f, rewards, product := newRewardFixture(t, 300, 1)
	order, err := rewards.Redeem(f.ctx, f.user, product.ID)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}

	cancelled, err := rewards.CancelOrder(f.ctx, f.user, order.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != model.OrderStatusCancelled {
		t.Fatalf("expected Cancelled, got %s", cancelled.Status)
	}
	user := f.userRecord(t, f.user.ID)
	if user.Points != 300 || user.RedeemedPoints != 0 {
		t.Fatalf("expected full refund, got %+v", user)
	}
	stored, _ := f.store.Rewards().GetProduct(f.ctx, product.ID)
	if stored.Stock != 1 {
		t.Fatalf("expected stock returned, got %d", stored.Stock)
	}
	if _, err := rewards.CancelOrder(f.ctx, f.user, order.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected second cancel to fail, got %v", err)
	}
}

func TestUpdateOrderStatusMovesForward(t *testing.T) {
	f, rewards, product := newRewardFixture(t, 300, 1)
	order, err := rewards.Redeem(f.ctx, f.user, product.ID)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}

	if _, err := rewards.UpdateOrderStatus(f.ctx, f.agency, order.ID, string(model.OrderStatusDelivered)); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected skipping Shipped to fail, got %v", err)
	}
	other := f.addAgency(t, nil)
	if _, err := rewards.UpdateOrderStatus(f.ctx, other, order.ID, string(model.OrderStatusShipped)); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected foreign agency to be refused, got %v", err)
	}
	shipped, err := rewards.UpdateOrderStatus(f.ctx, f.agency, order.ID, string(model.OrderStatusShipped))
	if err != nil || shipped.Status != model.OrderStatusShipped {
		t.Fatalf("expected Shipped, got %v (%v)", shipped, err)
	}
	if _, err := rewards.CancelOrder(f.ctx, f.user, order.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected shipped order to be uncancellable, got %v", err)
	}

	orders, err := rewards.ListOrders(f.ctx, f.agency)
	if err != nil || len(orders) != 1 {
		t.Fatalf("expected agency to list its order, got %d (%v)", len(orders), err)
	}
}

func TestRestockProduct(t *testing.T) {
	f, rewards, product := newRewardFixture(t, 0, 0)
	if _, err := rewards.RestockProduct(f.ctx, f.agency, product.ID, 0); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected zero restock to fail, got %v", err)
	}
	updated, err := rewards.RestockProduct(f.ctx, f.agency, product.ID, 4)
	if err != nil || updated.Stock != 4 {
		t.Fatalf("expected stock 4, got %v (%v)", updated, err)
	}
	if _, err := rewards.CreateProduct(f.ctx, f.user, CreateProductInput{Name: "x", PointsRequired: 1}); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected users to be refused, got %v", err)
	}
}
