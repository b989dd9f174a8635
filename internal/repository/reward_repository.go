package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avakara/ewaste-platform/internal/model"
)

type GormRewardRepository struct {
	db *gorm.DB
}

func NewRewardRepository(db *gorm.DB) *GormRewardRepository {
	return &GormRewardRepository{db: db}
}

func (r *GormRewardRepository) CreditUser(ctx context.Context, userID uuid.UUID, credit PointsCredit) error {
	return r.exec(ctx, `
		UPDATE users
		SET
			points = points + ?,
			monthly_points = monthly_points + ?,
			community_points = community_points + ?,
			completed_requests = completed_requests + ?,
			updated_at = NOW()
		WHERE id = ?
	`, credit.Points, credit.MonthlyPoints, credit.CommunityPoints, credit.CompletedRequests, userID)
}

// DebitUser spends amount from the balance; it fails with ErrConditionFailed when the balance is short.
func (r *GormRewardRepository) DebitUser(ctx context.Context, userID uuid.UUID, amount int64) error {
	result := r.db.WithContext(ctx).Exec(`
		UPDATE users
		SET points = points - ?, redeemed_points = redeemed_points + ?, updated_at = NOW()
		WHERE id = ? AND points >= ?
	`, amount, amount, userID, amount)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return r.missingOr(ctx, "users", "id", userID, ErrConditionFailed)
	}
	return nil
}

func (r *GormRewardRepository) RefundUser(ctx context.Context, userID uuid.UUID, amount int64) error {
	return r.exec(ctx, `
		UPDATE users
		SET points = points + ?, redeemed_points = GREATEST(redeemed_points - ?, 0), updated_at = NOW()
		WHERE id = ?
	`, amount, amount, userID)
}

// RankMonthly returns users with positive monthly points, highest first, ties broken by id.
func (r *GormRewardRepository) RankMonthly(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	var entries []model.LeaderboardEntry
	if err := r.db.WithContext(ctx).Raw(`
		SELECT
			id AS user_id,
			name,
			monthly_points,
			ROW_NUMBER() OVER (ORDER BY monthly_points DESC, id ASC) AS rank
		FROM users
		WHERE monthly_points > 0
		ORDER BY monthly_points DESC, id ASC
		LIMIT ?
	`, limit).Scan(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *GormRewardRepository) ResetMonthly(ctx context.Context, at time.Time) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE users
		SET monthly_points = 0, last_monthly_rank = NULL, last_reset_at = ?, updated_at = NOW()
	`, at).Error
}

func (r *GormRewardRepository) AwardRank(ctx context.Context, userID uuid.UUID, rank int, bonus int64) error {
	return r.exec(ctx, `
		UPDATE users
		SET points = points + ?, last_monthly_rank = ?, updated_at = NOW()
		WHERE id = ?
	`, bonus, rank, userID)
}

func (r *GormRewardRepository) CreateProduct(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Exec(`
		INSERT INTO products (
			id,
			agency_id,
			name,
			description,
			image_url,
			image_key,
			points_required,
			stock,
			created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		product.ID,
		product.AgencyID,
		product.Name,
		product.Description,
		product.ImageURL,
		product.ImageKey,
		product.PointsRequired,
		product.Stock,
		product.CreatedAt,
	).Error
}

const productColumns = `
	id,
	agency_id,
	name,
	description,
	image_url,
	image_key,
	points_required,
	stock,
	created_at
`

func (r *GormRewardRepository) GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := r.db.WithContext(ctx).Raw(`
		SELECT `+productColumns+`
		FROM products
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&product).Error; err != nil {
		return nil, err
	}
	if product.ID == uuid.Nil {
		return nil, ErrNotFound
	}
	return &product, nil
}

func (r *GormRewardRepository) ListProducts(ctx context.Context, agencyID *uuid.UUID) ([]model.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products`
	var args []any
	if agencyID != nil {
		query += " WHERE agency_id = ?"
		args = append(args, *agencyID)
	}
	query += " ORDER BY created_at DESC, id ASC"

	var products []model.Product
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// TakeStock removes one unit; it fails with ErrConditionFailed when the product is sold out.
func (r *GormRewardRepository) TakeStock(ctx context.Context, productID uuid.UUID) error {
	result := r.db.WithContext(ctx).Exec(`
		UPDATE products
		SET stock = stock - 1
		WHERE id = ? AND stock > 0
	`, productID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return r.missingOr(ctx, "products", "id", productID, ErrConditionFailed)
	}
	return nil
}

func (r *GormRewardRepository) ReturnStock(ctx context.Context, productID uuid.UUID, delta int) error {
	return r.exec(ctx, `UPDATE products SET stock = stock + ? WHERE id = ?`, delta, productID)
}

const orderColumns = `
	id,
	number,
	user_id,
	product_id,
	agency_id,
	points_spent,
	status,
	created_at,
	updated_at
`

func (r *GormRewardRepository) CreateOrder(ctx context.Context, order *model.Order) error {
	return r.db.WithContext(ctx).Exec(`
		INSERT INTO orders (`+orderColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		order.ID,
		order.Number,
		order.UserID,
		order.ProductID,
		order.AgencyID,
		order.PointsSpent,
		order.Status,
		order.CreatedAt,
		order.UpdatedAt,
	).Error
}

func (r *GormRewardRepository) GetOrder(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var order model.Order
	if err := r.db.WithContext(ctx).Raw(`
		SELECT `+orderColumns+`
		FROM orders
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&order).Error; err != nil {
		return nil, err
	}
	if order.ID == uuid.Nil {
		return nil, ErrNotFound
	}
	return &order, nil
}

// TransitionOrder moves an order from one status to another; a stale from status yields ErrConditionFailed.
func (r *GormRewardRepository) TransitionOrder(ctx context.Context, id uuid.UUID, from, to model.OrderStatus) error {
	result := r.db.WithContext(ctx).Exec(`
		UPDATE orders
		SET status = ?, updated_at = NOW()
		WHERE id = ? AND status = ?
	`, to, id, from)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return r.missingOr(ctx, "orders", "id", id, ErrConditionFailed)
	}
	return nil
}

func (r *GormRewardRepository) ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	return r.listOrders(ctx, "user_id", userID)
}

func (r *GormRewardRepository) ListOrdersByAgency(ctx context.Context, agencyID uuid.UUID) ([]model.Order, error) {
	return r.listOrders(ctx, "agency_id", agencyID)
}

func (r *GormRewardRepository) listOrders(ctx context.Context, column string, id uuid.UUID) ([]model.Order, error) {
	var orders []model.Order
	if err := r.db.WithContext(ctx).Raw(`
		SELECT `+orderColumns+`
		FROM orders
		WHERE `+column+` = ?
		ORDER BY created_at DESC, id ASC
	`, id).Scan(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *GormRewardRepository) exec(ctx context.Context, query string, args ...any) error {
	result := r.db.WithContext(ctx).Exec(query, args...)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// missingOr returns ErrNotFound when no row with the key exists and err otherwise.
// table and column are always package constants.
func (r *GormRewardRepository) missingOr(ctx context.Context, table, column string, id uuid.UUID, err error) error {
	var exists bool
	if scanErr := r.db.WithContext(ctx).Raw(
		`SELECT EXISTS (SELECT 1 FROM `+table+` WHERE `+column+` = ?)`, id,
	).Scan(&exists).Error; scanErr != nil {
		return scanErr
	}
	if !exists {
		return ErrNotFound
	}
	return err
}
