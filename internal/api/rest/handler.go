package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kizunalab/machiba/internal/activity"
	"github.com/kizunalab/machiba/internal/analytics"
	"github.com/kizunalab/machiba/internal/api/shared/dto"
	"github.com/kizunalab/machiba/internal/auth"
	"github.com/kizunalab/machiba/internal/domain"
	"github.com/kizunalab/machiba/internal/line"
	"github.com/kizunalab/machiba/internal/media"
	"github.com/kizunalab/machiba/internal/paypay"
	"github.com/kizunalab/machiba/internal/store"
)

// Handler defines the interface for REST API handlers
type Handler interface {
	// RecordAccess records one page view
	// POST /analytics/record
	RecordAccess(c *gin.Context)

	// GetStats retrieves access statistics
	// GET /analytics/stats?type=<event|report>&id=<itemId>&daily=<bool>&days=<int>
	GetStats(c *gin.Context)

	// ListPublicEvents retrieves published events
	// GET /api/v1/events?limit=<limit>&offset=<offset>
	ListPublicEvents(c *gin.Context)

	// GetPublicEvent retrieves a single published event
	// GET /api/v1/events/:id
	GetPublicEvent(c *gin.Context)

	// ListPublicReports retrieves published reports
	// GET /api/v1/reports?limit=<limit>&offset=<offset>
	ListPublicReports(c *gin.Context)

	// GetPublicReport retrieves a single published report
	// GET /api/v1/reports/:id
	GetPublicReport(c *gin.Context)

	// Login authenticates an admin user and issues a session token
	// POST /api/v1/admin/login
	Login(c *gin.Context)

	// Admin event management
	ListEvents(c *gin.Context)
	CreateEvent(c *gin.Context)
	UpdateEvent(c *gin.Context)
	DeleteEvent(c *gin.Context)

	// Admin report management
	ListReports(c *gin.Context)
	CreateReport(c *gin.Context)
	UpdateReport(c *gin.Context)
	DeleteReport(c *gin.Context)

	// Admin message template management
	ListTemplates(c *gin.Context)
	CreateTemplate(c *gin.Context)
	UpdateTemplate(c *gin.Context)
	DeleteTemplate(c *gin.Context)
	RenderTemplate(c *gin.Context)

	// Admin user management
	ListUsers(c *gin.Context)
	CreateUser(c *gin.Context)
	UpdateUser(c *gin.Context)
	DeleteUser(c *gin.Context)

	// ListActivities retrieves the recent audit log
	// GET /api/v1/admin/activities?limit=<limit>
	ListActivities(c *gin.Context)

	// SendMessage sends a LINE message to followers or selected users
	// POST /api/v1/admin/messages
	SendMessage(c *gin.Context)

	// CreatePaymentLink creates a PayPay payment link
	// POST /api/v1/admin/payments/links
	CreatePaymentLink(c *gin.Context)

	// UploadImage stores an image and returns its delivery URL
	// POST /api/v1/admin/uploads
	UploadImage(c *gin.Context)

	// LineWebhook receives LINE platform webhook deliveries
	// POST /webhooks/line
	LineWebhook(c *gin.Context)

	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)
}

// handler implements the Handler interface
type handler struct {
	store             store.Store
	analytics         *analytics.Service
	activities        *activity.Service
	issuer            *auth.TokenIssuer
	lineClient        line.Client
	lineChannelSecret string
	paypayClient      paypay.Client
	uploader          *media.Uploader
}

// Deps bundles the collaborators a handler needs. Optional integrations
// (LINE, PayPay, uploads) may be nil; their endpoints then respond 503.
type Deps struct {
	Store             store.Store
	Analytics         *analytics.Service
	Activities        *activity.Service
	Issuer            *auth.TokenIssuer
	LineClient        line.Client
	LineChannelSecret string
	PayPayClient      paypay.Client
	Uploader          *media.Uploader
}

// NewHandler creates a new REST API handler
func NewHandler(deps Deps) Handler {
	return &handler{
		store:             deps.Store,
		analytics:         deps.Analytics,
		activities:        deps.Activities,
		issuer:            deps.Issuer,
		lineClient:        deps.LineClient,
		lineChannelSecret: deps.LineChannelSecret,
		paypayClient:      deps.PayPayClient,
		uploader:          deps.Uploader,
	}
}

// RecordAccess records one page view
func (h *handler) RecordAccess(c *gin.Context) {
	var req dto.RecordAccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		respondAPIError(c, err)
		return
	}

	input := analytics.RecordInput{
		Type:   domain.ContentType(req.Type),
		ItemID: req.ItemID,
		UserID: req.UserID,
	}
	if req.Title != nil {
		input.Title = *req.Title
	}
	if ua := c.Request.UserAgent(); ua != "" {
		input.UserAgent = &ua
	}
	if ref := c.Request.Referer(); ref != "" {
		input.Referrer = &ref
	}
	if ip := c.ClientIP(); ip != "" {
		input.IP = &ip
	}

	record, err := h.analytics.Record(c.Request.Context(), input)
	if err != nil {
		respondInternalError(c, err, "Failed to record access")
		return
	}

	c.JSON(http.StatusOK, dto.RecordAccessResponse{
		Success:  true,
		RecordID: record.RecordID,
	})
}

// GetStats retrieves access statistics for a content type
func (h *handler) GetStats(c *gin.Context) {
	var q dto.StatsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBadRequest(c, "Invalid query parameters", err.Error())
		return
	}
	if err := q.Validate(); err != nil {
		respondAPIError(c, err)
		return
	}

	recordType := domain.ContentType(q.Type)
	ctx := c.Request.Context()

	switch {
	case q.Daily:
		series, err := h.analytics.DailySeries(ctx, recordType, q.Days)
		if err != nil {
			respondInternalError(c, err, "Failed to build daily series")
			return
		}
		c.JSON(http.StatusOK, dto.OK(series))

	case q.ID != "":
		stats, err := h.analytics.ItemStats(ctx, recordType, q.ID)
		if err != nil {
			respondInternalError(c, err, "Failed to compute stats")
			return
		}
		if stats == nil {
			respondNotFound(c, "No access records for item", q.ID)
			return
		}
		c.JSON(http.StatusOK, dto.OK(stats))

	default:
		stats, err := h.analytics.StatsByType(ctx, recordType)
		if err != nil {
			respondInternalError(c, err, "Failed to compute stats")
			return
		}
		c.JSON(http.StatusOK, dto.OK(stats))
	}
}

// HealthCheck returns the health status of the API
func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}
