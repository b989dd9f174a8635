package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/avakara/ewaste-platform/internal/http/middleware"
	"github.com/avakara/ewaste-platform/internal/service"
)

type registerUserRequest struct {
	Name     string   `json:"name" binding:"required"`
	Email    string   `json:"email" binding:"required,email"`
	Password string   `json:"password" binding:"required,min=8"`
	Phone    string   `json:"phone"`
	Address  string   `json:"address"`
	PinCode  string   `json:"pin_code"`
	Lon      *float64 `json:"lon"`
	Lat      *float64 `json:"lat"`
}

type registerAgencyRequest struct {
	Name              string   `json:"name" binding:"required"`
	Email             string   `json:"email" binding:"required,email"`
	Password          string   `json:"password" binding:"required,min=8"`
	AgencyTypes       []string `json:"agency_types" binding:"required,min=1"`
	Address           string   `json:"address" binding:"required"`
	Region            string   `json:"region"`
	Phone             string   `json:"phone"`
	ContactPerson     string   `json:"contact_person"`
	Lon               float64  `json:"lon"`
	Lat               float64  `json:"lat"`
	WorkingHours      string   `json:"working_hours"`
	WasteTypesHandled []string `json:"waste_types_handled"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) registerUser(c *gin.Context) {
	var req registerUserRequest
	if err := bindPayload(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	photo, err := formFile(c, "profile_photo")
	if err != nil {
		h.handleError(c, err)
		return
	}

	user, session, err := h.svc.Auth.RegisterUser(c.Request.Context(), service.RegisterUserInput{
		Name:         req.Name,
		Email:        req.Email,
		Password:     req.Password,
		Phone:        req.Phone,
		Address:      req.Address,
		PinCode:      req.PinCode,
		Lon:          req.Lon,
		Lat:          req.Lat,
		ProfilePhoto: photo,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	h.setSession(c, session)
	c.JSON(http.StatusCreated, gin.H{"user": user, "session": session})
}

func (h *Handler) registerAgency(c *gin.Context) {
	var req registerAgencyRequest
	if err := bindPayload(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	input := service.RegisterAgencyInput{
		Name:              req.Name,
		Email:             req.Email,
		Password:          req.Password,
		AgencyTypes:       req.AgencyTypes,
		Address:           req.Address,
		Region:            req.Region,
		Phone:             req.Phone,
		ContactPerson:     req.ContactPerson,
		Lon:               req.Lon,
		Lat:               req.Lat,
		WorkingHours:      req.WorkingHours,
		WasteTypesHandled: req.WasteTypesHandled,
	}
	var err error
	if input.Logo, err = formFile(c, "logo"); err != nil {
		h.handleError(c, err)
		return
	}
	if input.TradeLicense, err = formFile(c, "trade_license"); err != nil {
		h.handleError(c, err)
		return
	}
	if input.PCBAuthorization, err = formFile(c, "pcb_authorization"); err != nil {
		h.handleError(c, err)
		return
	}

	agency, session, err := h.svc.Auth.RegisterAgency(c.Request.Context(), input)
	if err != nil {
		h.handleError(c, err)
		return
	}
	h.setSession(c, session)
	c.JSON(http.StatusCreated, gin.H{"agency": agency, "session": session})
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	session, err := h.svc.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.handleError(c, err)
		return
	}
	h.setSession(c, session)
	c.JSON(http.StatusOK, session)
}

func (h *Handler) logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", h.secureCookies, true)
	c.Status(http.StatusNoContent)
}

func (h *Handler) profile(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	user, err := h.svc.Auth.Profile(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) setSession(c *gin.Context, session *service.Session) {
	maxAge := int(time.Until(session.ExpiresAt).Seconds())
	if maxAge <= 0 {
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, session.Token, maxAge, "/", "", h.secureCookies, true)
}
