package model

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "Pending"
	OrderStatusShipped   OrderStatus = "Shipped"
	OrderStatusDelivered OrderStatus = "Delivered"
	OrderStatusCancelled OrderStatus = "Cancelled"
)

type Product struct {
	ID             uuid.UUID `json:"id"`
	AgencyID       uuid.UUID `json:"agencyId"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	ImageURL       string    `json:"imageUrl,omitempty"`
	ImageKey       string    `json:"-"`
	PointsRequired int64     `json:"pointsRequired"`
	Stock          int       `json:"stock"`
	CreatedAt      time.Time `json:"createdAt"`
}

type Order struct {
	ID          uuid.UUID   `json:"id"`
	Number      string      `json:"number"`
	UserID      uuid.UUID   `json:"userId"`
	ProductID   uuid.UUID   `json:"productId"`
	AgencyID    uuid.UUID   `json:"agencyId"`
	PointsSpent int64       `json:"pointsSpent"`
	Status      OrderStatus `json:"status"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// LeaderboardEntry is one row of the monthly ranking.
type LeaderboardEntry struct {
	UserID        uuid.UUID `json:"userId"`
	Name          string    `json:"name"`
	MonthlyPoints int64     `json:"monthlyPoints"`
	Rank          int       `json:"rank"`
}
