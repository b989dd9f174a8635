package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/avakara/ewaste-platform/internal/model"
	"github.com/avakara/ewaste-platform/internal/service"
)

type wasteItemRequest struct {
	Type     string `json:"type" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,gte=1"`
}

type createRequestRequest struct {
	AgencyID            string             `json:"agency_id" binding:"required"`
	Items               []wasteItemRequest `json:"items" binding:"required,min=1,dive"`
	Weight              float64            `json:"weight" binding:"gte=0"`
	PickupAddress       string             `json:"pickup_address"`
	Lon                 *float64           `json:"lon" binding:"required"`
	Lat                 *float64           `json:"lat" binding:"required"`
	PickupDate          string             `json:"pickup_date" binding:"required"`
	ContactNumber       string             `json:"contact_number" binding:"required"`
	SpecialInstructions string             `json:"special_instructions"`
}

type notesRequest struct {
	Notes string `json:"notes"`
}

type rejectRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type assignVolunteerRequest struct {
	VolunteerID string `json:"volunteer_id" binding:"required"`
}

type advanceMilestoneRequest struct {
	Milestone string                 `json:"milestone" binding:"required"`
	Notes     string                 `json:"notes"`
	Code      string                 `json:"code"`
	Lon       *float64               `json:"lon"`
	Lat       *float64               `json:"lat"`
	Details   map[string]interface{} `json:"details"`
}

func (h *Handler) createRequest(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	var req createRequestRequest
	if err := bindPayload(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	agencyID, err := uuid.Parse(strings.TrimSpace(req.AgencyID))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid agency_id"})
		return
	}
	pickupDate, err := parseDate(req.PickupDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pickup_date"})
		return
	}
	images, err := formFiles(c, "images")
	if err != nil {
		h.handleError(c, err)
		return
	}

	items := make([]model.WasteItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, model.WasteItem{Type: item.Type, Quantity: item.Quantity})
	}
	created, err := h.svc.Requests.CreateRequest(c.Request.Context(), principal, service.CreateRequestInput{
		AgencyID:            agencyID,
		Items:               items,
		Weight:              req.Weight,
		PickupAddress:       req.PickupAddress,
		PickupLon:           *req.Lon,
		PickupLat:           *req.Lat,
		PickupDate:          pickupDate,
		ContactNumber:       req.ContactNumber,
		SpecialInstructions: req.SpecialInstructions,
		Images:              images,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// listRequests returns the caller's queue: own requests for users, the agency queue for agencies
// and assigned pickups for volunteers.
func (h *Handler) listRequests(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	includeRejected := queryBool(c, "include_rejected")

	var (
		requests []model.Request
		err      error
	)
	switch principal.Role {
	case model.RoleUser:
		requests, err = h.svc.Requests.ListUserRequests(ctx, principal, includeRejected)
	case model.RoleAgency:
		requests, err = h.svc.Requests.ListAgencyRequests(ctx, principal, c.Query("status"), includeRejected)
	case model.RoleVolunteer:
		requests, err = h.svc.Requests.ListVolunteerRequests(ctx, principal)
	default:
		err = service.ErrPermissionDenied
	}
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": requests})
}

func (h *Handler) getRequest(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	req, err := h.svc.Requests.GetRequest(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

func (h *Handler) trackRequest(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	tracking, err := h.svc.Requests.TrackRequest(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, tracking)
}

func (h *Handler) liveTracking(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	snapshot, err := h.svc.Requests.TrackRequest(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	if err := h.hub.Serve(c.Writer, c.Request, id, snapshot); err != nil {
		h.log.Debug().Err(err).Str("request_id", id.String()).Msg("tracking upgrade failed")
	}
}

func (h *Handler) acceptRequest(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req notesRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	updated, err := h.svc.Requests.AcceptRequest(c.Request.Context(), principal, id, req.Notes)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) rejectRequest(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	updated, err := h.svc.Requests.RejectRequest(c.Request.Context(), principal, id, req.Reason)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) assignVolunteer(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req assignVolunteerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	volunteerID, err := uuid.Parse(strings.TrimSpace(req.VolunteerID))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid volunteer_id"})
		return
	}
	updated, err := h.svc.Requests.AssignVolunteer(c.Request.Context(), principal, id, volunteerID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) advanceMilestone(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req advanceMilestoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	updated, err := h.svc.Requests.AdvanceMilestone(c.Request.Context(), principal, id, req.Milestone, service.AdvanceInput{
		Notes:   req.Notes,
		Code:    req.Code,
		Lon:     req.Lon,
		Lat:     req.Lat,
		Details: req.Details,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) cancelRequest(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Requests.CancelRequest(c.Request.Context(), principal, id); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
