package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/avakara/ewaste-platform/internal/model"
	"github.com/avakara/ewaste-platform/internal/service"
)

type certifyAgencyRequest struct {
	Status string `json:"status" binding:"required,oneof=Certified Uncertified"`
}

type inventoryLocationRequest struct {
	Address    string `json:"address" binding:"required"`
	City       string `json:"city" binding:"required"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
}

type setupInventoryRequest struct {
	TotalCapacity float64                  `json:"total_capacity" binding:"required,gt=0"`
	Location      inventoryLocationRequest `json:"location" binding:"required"`
}

type resizeInventoryRequest struct {
	TotalCapacity float64 `json:"total_capacity" binding:"required,gt=0"`
}

type pickupAreaRequest struct {
	City      string   `json:"city" binding:"required"`
	District  string   `json:"district"`
	PinCodes  []string `json:"pin_codes"`
	Landmarks []string `json:"landmarks"`
	Lon       float64  `json:"lon"`
	Lat       float64  `json:"lat"`
}

type addVolunteerRequest struct {
	Name       string            `json:"name" binding:"required"`
	Email      string            `json:"email" binding:"required,email"`
	Password   string            `json:"password" binding:"required,min=8"`
	Phone      string            `json:"phone" binding:"required"`
	Address    string            `json:"address"`
	PickupArea pickupAreaRequest `json:"pickup_area" binding:"required"`
}

type volunteerStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=Active Inactive"`
}

type pushTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

func (h *Handler) listAgencies(c *gin.Context) {
	agencies, err := h.svc.Agencies.ListCertifiedAgencies(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"agencies": agencies})
}

func (h *Handler) getAgency(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	agency, err := h.svc.Agencies.GetAgency(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, agency)
}

func (h *Handler) certifyAgency(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req certifyAgencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	agency, err := h.svc.Agencies.CertifyAgency(c.Request.Context(), principal, id, req.Status)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, agency)
}

func (h *Handler) setupInventory(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	var req setupInventoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	inv, err := h.svc.Inventory.SetupInventory(c.Request.Context(), principal, service.SetupInventoryInput{
		TotalCapacity: req.TotalCapacity,
		Location: model.InventoryLocation{
			Address:    req.Location.Address,
			City:       req.Location.City,
			State:      req.Location.State,
			PostalCode: req.Location.PostalCode,
		},
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, inv)
}

func (h *Handler) resizeInventory(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	var req resizeInventoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	view, err := h.svc.Inventory.ResizeInventory(c.Request.Context(), principal, req.TotalCapacity)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) getInventory(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	agencyID, ok := uuidParam(c, "agencyId")
	if !ok {
		return
	}
	view, err := h.svc.Inventory.GetInventory(c.Request.Context(), principal, agencyID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) addVolunteer(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	var req addVolunteerRequest
	if err := bindPayload(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	photo, err := formFile(c, "profile_photo")
	if err != nil {
		h.handleError(c, err)
		return
	}
	volunteer, err := h.svc.Agencies.AddVolunteer(c.Request.Context(), principal, service.AddVolunteerInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
		Address:  req.Address,
		PickupArea: model.PickupArea{
			City:      req.PickupArea.City,
			District:  req.PickupArea.District,
			PinCodes:  req.PickupArea.PinCodes,
			Landmarks: req.PickupArea.Landmarks,
			Lon:       req.PickupArea.Lon,
			Lat:       req.PickupArea.Lat,
		},
		ProfilePhoto: photo,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, volunteer)
}

func (h *Handler) listVolunteers(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	volunteers, err := h.svc.Agencies.ListVolunteers(c.Request.Context(), principal, queryBool(c, "active"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"volunteers": volunteers})
}

func (h *Handler) setVolunteerStatus(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req volunteerStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	volunteer, err := h.svc.Agencies.SetVolunteerStatus(c.Request.Context(), principal, id, req.Status)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, volunteer)
}

func (h *Handler) deleteVolunteer(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Agencies.DeleteVolunteer(c.Request.Context(), principal, id); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) registerPushToken(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	var req pushTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.Agencies.RegisterPushToken(c.Request.Context(), principal, req.Token); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
