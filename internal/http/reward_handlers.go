package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/avakara/ewaste-platform/internal/service"
)

type createProductRequest struct {
	Name           string `json:"name" binding:"required"`
	Description    string `json:"description"`
	PointsRequired int64  `json:"points_required" binding:"required,gt=0"`
	Stock          int    `json:"stock" binding:"gte=0"`
}

type restockRequest struct {
	Delta int `json:"delta" binding:"required"`
}

type orderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *Handler) leaderboard(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	entries, err := h.svc.Points.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": entries})
}

func (h *Handler) listProducts(c *gin.Context) {
	var agencyID *uuid.UUID
	if raw := strings.TrimSpace(c.Query("agency_id")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid agency_id"})
			return
		}
		agencyID = &id
	}
	products, err := h.svc.Rewards.ListProducts(c.Request.Context(), agencyID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *Handler) createProduct(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	var req createProductRequest
	if err := bindPayload(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	image, err := formFile(c, "image")
	if err != nil {
		h.handleError(c, err)
		return
	}
	product, err := h.svc.Rewards.CreateProduct(c.Request.Context(), principal, service.CreateProductInput{
		Name:           req.Name,
		Description:    req.Description,
		PointsRequired: req.PointsRequired,
		Stock:          req.Stock,
		Image:          image,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (h *Handler) restockProduct(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req restockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	product, err := h.svc.Rewards.RestockProduct(c.Request.Context(), principal, id, req.Delta)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) redeemProduct(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	order, err := h.svc.Rewards.Redeem(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *Handler) listOrders(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	orders, err := h.svc.Rewards.ListOrders(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *Handler) cancelOrder(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	order, err := h.svc.Rewards.CancelOrder(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) updateOrderStatus(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req orderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	order, err := h.svc.Rewards.UpdateOrderStatus(c.Request.Context(), principal, id, req.Status)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}
