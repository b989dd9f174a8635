package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/avakara/ewaste-platform/internal/service"
)

type exportRequestsRequest struct {
	PeriodStart string `json:"period_start" binding:"required"`
	PeriodEnd   string `json:"period_end" binding:"required"`
}

func (h *Handler) exportRequests(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	var req exportRequestsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	start, err := parseDate(req.PeriodStart)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid period_start"})
		return
	}

	end, err := parseDate(req.PeriodEnd)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid period_end"})
		return
	}

	doc, err := h.svc.Reports.ExportAgencyRequests(c.Request.Context(), service.ExportRequestsInput{
		PeriodStart: start,
		PeriodEnd:   end,
		Principal:   principal,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	writeDocument(c, doc)
}

func (h *Handler) certificate(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	doc, err := h.svc.Reports.Certificate(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	writeDocument(c, doc)
}
