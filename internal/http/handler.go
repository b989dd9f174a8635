package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/avakara/ewaste-platform/internal/http/middleware"
	"github.com/avakara/ewaste-platform/internal/model"
	"github.com/avakara/ewaste-platform/internal/service"
	"github.com/avakara/ewaste-platform/internal/tracking"
)

const (
	maxUploadBytes = 10 << 20
	payloadField   = "payload"
)

type Services struct {
	Auth      *service.AuthService
	Requests  *service.RequestService
	Inventory *service.InventoryService
	Agencies  *service.AgencyService
	Points    *service.PointsService
	Rewards   *service.RewardService
	Community *service.CommunityService
	Reports   *service.ReportService
}

type Handler struct {
	svc           Services
	hub           *tracking.Hub
	secureCookies bool
	log           zerolog.Logger
}

// NewHandler wires the API. hub may be nil, which disables live tracking.
func NewHandler(svc Services, hub *tracking.Hub, secureCookies bool, log zerolog.Logger) *Handler {
	return &Handler{svc: svc, hub: hub, secureCookies: secureCookies, log: log}
}

// Register mounts the API. limiter guards the credential endpoints.
func (h *Handler) Register(router *gin.Engine, authMiddleware gin.HandlerFunc, limiter gin.HandlerFunc) {
	public := router.Group("/")
	credentials := public.Group("/auth")
	credentials.Use(limiter)
	credentials.POST("/register", h.registerUser)
	credentials.POST("/register/agency", h.registerAgency)
	credentials.POST("/login", h.login)
	public.POST("/auth/logout", h.logout)

	public.GET("/agencies", h.listAgencies)
	public.GET("/agencies/:id", h.getAgency)
	public.GET("/leaderboard", h.leaderboard)
	public.GET("/products", h.listProducts)
	public.GET("/community/events", h.listCommunityEvents)

	protected := router.Group("/")
	protected.Use(authMiddleware)
	protected.GET("/me", h.profile)

	protected.POST("/requests", h.createRequest)
	protected.GET("/requests", h.listRequests)
	protected.GET("/requests/:id", h.getRequest)
	protected.DELETE("/requests/:id", h.cancelRequest)
	protected.GET("/requests/:id/tracking", h.trackRequest)
	protected.POST("/requests/:id/accept", h.acceptRequest)
	protected.POST("/requests/:id/reject", h.rejectRequest)
	protected.POST("/requests/:id/assign", h.assignVolunteer)
	protected.POST("/requests/:id/milestones", h.advanceMilestone)
	protected.GET("/requests/:id/certificate", h.certificate)
	if h.hub != nil {
		protected.GET("/requests/:id/live", h.liveTracking)
	}
	protected.POST("/reports/requests", h.exportRequests)

	protected.POST("/inventory", h.setupInventory)
	protected.PUT("/inventory", h.resizeInventory)
	protected.GET("/inventory/:agencyId", h.getInventory)

	protected.POST("/volunteers", h.addVolunteer)
	protected.GET("/volunteers", h.listVolunteers)
	protected.PATCH("/volunteers/:id/status", h.setVolunteerStatus)
	protected.DELETE("/volunteers/:id", h.deleteVolunteer)
	protected.POST("/volunteers/push-token", h.registerPushToken)

	protected.POST("/products", h.createProduct)
	protected.POST("/products/:id/restock", h.restockProduct)
	protected.POST("/products/:id/redeem", h.redeemProduct)
	protected.GET("/orders", h.listOrders)
	protected.POST("/orders/:id/cancel", h.cancelOrder)
	protected.PATCH("/orders/:id/status", h.updateOrderStatus)

	protected.POST("/community/events", h.createCommunityEvent)

	admin := protected.Group("/admin")
	admin.Use(middleware.RequireRole(model.RoleAdmin))
	admin.POST("/agencies/:id/certification", h.certifyAgency)
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrUnauthenticated),
		errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrInvalidMilestone):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidPickupCode),
		errors.Is(err, service.ErrModerationRejected):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrCapacityExceeded),
		errors.Is(err, service.ErrInventoryNotSetup),
		errors.Is(err, service.ErrAlreadyExists),
		errors.Is(err, service.ErrVolunteerBusy),
		errors.Is(err, service.ErrInsufficientPoints),
		errors.Is(err, service.ErrOutOfStock),
		errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrExternalService):
		h.log.Warn().Err(err).Str("request_id", middleware.GetRequestID(c)).Msg("external service failure")
		c.JSON(http.StatusBadGateway, gin.H{"error": "external service unavailable"})
	default:
		h.log.Error().Err(err).Str("request_id", middleware.GetRequestID(c)).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (h *Handler) principal(c *gin.Context) (model.Principal, bool) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
	}
	return principal, ok
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param(name)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

// bindPayload reads JSON bodies directly and multipart bodies from the payload form field, so
// endpoints that take files accept both shapes.
func bindPayload(c *gin.Context, dst any) error {
	if !isMultipart(c) {
		return c.ShouldBindJSON(dst)
	}
	raw := c.PostForm(payloadField)
	if raw == "" {
		return fmt.Errorf("missing %s form field", payloadField)
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return err
	}
	return binding.Validator.ValidateStruct(dst)
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

func formFiles(c *gin.Context, field string) ([]service.File, error) {
	if !isMultipart(c) {
		return nil, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", service.ErrInvalidInput, err)
	}
	headers := form.File[field]
	files := make([]service.File, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: open %s: %v", service.ErrInvalidInput, fh.Filename, err)
		}
		data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", service.ErrInvalidInput, fh.Filename, err)
		}
		if len(data) > maxUploadBytes {
			return nil, fmt.Errorf("%w: %s exceeds %d MB", service.ErrInvalidInput, fh.Filename, maxUploadBytes>>20)
		}
		files = append(files, service.File{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return files, nil
}

func formFile(c *gin.Context, field string) (*service.File, error) {
	files, err := formFiles(c, field)
	if err != nil || len(files) == 0 {
		return nil, err
	}
	return &files[0], nil
}

func writeDocument(c *gin.Context, doc *service.Document) {
	c.Header("Content-Disposition", "attachment; filename=\""+doc.FileName+"\"")
	c.Data(http.StatusOK, doc.ContentType, doc.Content)
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, service.ErrInvalidInput
	}
	layouts := []string{
		time.RFC3339,
		"2006-01-02",
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, service.ErrInvalidInput
}

func queryBool(c *gin.Context, name string) bool {
	switch strings.ToLower(strings.TrimSpace(c.Query(name))) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}
