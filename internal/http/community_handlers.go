package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/avakara/ewaste-platform/internal/service"
)

type createCommunityEventRequest struct {
	Title            string `json:"title" binding:"required"`
	Description      string `json:"description" binding:"required"`
	EventType        string `json:"event_type" binding:"required"`
	StartDate        string `json:"start_date" binding:"required"`
	EndDate          string `json:"end_date" binding:"required"`
	Time             string `json:"time"`
	Location         string `json:"location"`
	RegistrationLink string `json:"registration_link"`
	ContactName      string `json:"contact_name"`
	ContactEmail     string `json:"contact_email" binding:"omitempty,email"`
	ContactPhone     string `json:"contact_phone"`
}

func (h *Handler) listCommunityEvents(c *gin.Context) {
	events, err := h.svc.Community.ListUpcoming(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func (h *Handler) createCommunityEvent(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	var req createCommunityEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_date"})
		return
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end_date"})
		return
	}
	event, err := h.svc.Community.CreateEvent(c.Request.Context(), principal, service.CreateEventInput{
		Title:            req.Title,
		Description:      req.Description,
		EventType:        req.EventType,
		StartDate:        start,
		EndDate:          end,
		Time:             req.Time,
		Location:         req.Location,
		RegistrationLink: req.RegistrationLink,
		ContactName:      req.ContactName,
		ContactEmail:     req.ContactEmail,
		ContactPhone:     req.ContactPhone,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, event)
}
