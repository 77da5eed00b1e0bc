package rest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/kizunalab/machiba/internal/activity"
	"github.com/kizunalab/machiba/internal/api/middleware"
	"github.com/kizunalab/machiba/internal/api/shared/dto"
	"github.com/kizunalab/machiba/internal/domain"
	"github.com/kizunalab/machiba/internal/store/schema"
)

func parseIDParam(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		respondBadRequest(c, "Invalid id", c.Param("id"))
		return 0, false
	}
	return id, true
}

// ListPublicEvents retrieves published events
func (h *handler) ListPublicEvents(c *gin.Context) {
	var params ListQueryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondBadRequest(c, "Invalid query parameters", err.Error())
		return
	}
	params.Normalize()

	events, err := h.store.ListEvents(c.Request.Context(), true, params.Limit, params.Offset)
	if err != nil {
		respondInternalError(c, err, "Failed to list events")
		return
	}

	responses := make([]dto.EventResponse, 0, len(events))
	for _, e := range events {
		responses = append(responses, dto.NewEventResponse(e))
	}
	c.JSON(http.StatusOK, dto.OK(responses))
}

// GetPublicEvent retrieves a single published event
func (h *handler) GetPublicEvent(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	event, err := h.store.GetEvent(c.Request.Context(), id)
	if err != nil {
		respondInternalError(c, err, "Failed to get event")
		return
	}
	if event == nil || !event.Published {
		respondNotFound(c, "Event not found")
		return
	}
	c.JSON(http.StatusOK, dto.OK(dto.NewEventResponse(event)))
}

// ListPublicReports retrieves published reports
func (h *handler) ListPublicReports(c *gin.Context) {
	var params ListQueryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondBadRequest(c, "Invalid query parameters", err.Error())
		return
	}
	params.Normalize()

	reports, err := h.store.ListReports(c.Request.Context(), true, params.Limit, params.Offset)
	if err != nil {
		respondInternalError(c, err, "Failed to list reports")
		return
	}

	responses := make([]dto.ReportResponse, 0, len(reports))
	for _, r := range reports {
		responses = append(responses, dto.NewReportResponse(r))
	}
	c.JSON(http.StatusOK, dto.OK(responses))
}

// GetPublicReport retrieves a single published report
func (h *handler) GetPublicReport(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	report, err := h.store.GetReport(c.Request.Context(), id)
	if err != nil {
		respondInternalError(c, err, "Failed to get report")
		return
	}
	if report == nil || !report.Published {
		respondNotFound(c, "Report not found")
		return
	}
	c.JSON(http.StatusOK, dto.OK(dto.NewReportResponse(report)))
}

// ListEvents retrieves all events including unpublished ones
func (h *handler) ListEvents(c *gin.Context) {
	var params ListQueryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondBadRequest(c, "Invalid query parameters", err.Error())
		return
	}
	params.Normalize()

	events, err := h.store.ListEvents(c.Request.Context(), false, params.Limit, params.Offset)
	if err != nil {
		respondInternalError(c, err, "Failed to list events")
		return
	}

	responses := make([]dto.EventResponse, 0, len(events))
	for _, e := range events {
		responses = append(responses, dto.NewEventResponse(e))
	}
	c.JSON(http.StatusOK, dto.OK(responses))
}

// CreateEvent creates a new event
func (h *handler) CreateEvent(c *gin.Context) {
	var req dto.EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		respondAPIError(c, err)
		return
	}

	event := &schema.Event{
		Title:       req.Title,
		Description: req.Description,
		Venue:       req.Venue,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
		Capacity:    req.Capacity,
		FeeYen:      req.FeeYen,
		ImageURL:    req.ImageURL,
		Published:   req.Published,
	}
	if err := h.store.CreateEvent(c.Request.Context(), event); err != nil {
		respondInternalError(c, err, "Failed to create event")
		return
	}

	h.recordActivity(c, domain.ActivityCreate, "event", fmt.Sprintf("%d", event.ID), map[string]any{
		"title": event.Title,
	})
	c.JSON(http.StatusCreated, dto.OK(dto.NewEventResponse(event)))
}

// UpdateEvent updates an existing event
func (h *handler) UpdateEvent(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req dto.EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		respondAPIError(c, err)
		return
	}

	event, err := h.store.GetEvent(c.Request.Context(), id)
	if err != nil {
		respondInternalError(c, err, "Failed to get event")
		return
	}
	if event == nil {
		respondNotFound(c, "Event not found")
		return
	}

	event.Title = req.Title
	event.Description = req.Description
	event.Venue = req.Venue
	event.StartsAt = req.StartsAt
	event.EndsAt = req.EndsAt
	event.Capacity = req.Capacity
	event.FeeYen = req.FeeYen
	event.ImageURL = req.ImageURL
	event.Published = req.Published

	if err := h.store.UpdateEvent(c.Request.Context(), event); err != nil {
		respondInternalError(c, err, "Failed to update event")
		return
	}

	h.recordActivity(c, domain.ActivityUpdate, "event", fmt.Sprintf("%d", event.ID), map[string]any{
		"title": event.Title,
	})
	c.JSON(http.StatusOK, dto.OK(dto.NewEventResponse(event)))
}

// DeleteEvent removes an event
func (h *handler) DeleteEvent(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := h.store.DeleteEvent(c.Request.Context(), id); err != nil {
		if err == domain.ErrEventNotFound {
			respondNotFound(c, "Event not found")
			return
		}
		respondInternalError(c, err, "Failed to delete event")
		return
	}

	h.recordActivity(c, domain.ActivityDelete, "event", fmt.Sprintf("%d", id), nil)
	c.JSON(http.StatusOK, dto.OK(nil))
}

// ListReports retrieves all reports including unpublished ones
func (h *handler) ListReports(c *gin.Context) {
	var params ListQueryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondBadRequest(c, "Invalid query parameters", err.Error())
		return
	}
	params.Normalize()

	reports, err := h.store.ListReports(c.Request.Context(), false, params.Limit, params.Offset)
	if err != nil {
		respondInternalError(c, err, "Failed to list reports")
		return
	}

	responses := make([]dto.ReportResponse, 0, len(reports))
	for _, r := range reports {
		responses = append(responses, dto.NewReportResponse(r))
	}
	c.JSON(http.StatusOK, dto.OK(responses))
}

// CreateReport creates a new report
func (h *handler) CreateReport(c *gin.Context) {
	var req dto.ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		respondAPIError(c, err)
		return
	}

	report := &schema.Report{
		EventID:   req.EventID,
		Title:     req.Title,
		Body:      req.Body,
		Published: req.Published,
	}
	if req.PhotoURLs != nil {
		photos, err := json.Marshal(req.PhotoURLs)
		if err != nil {
			respondInternalError(c, err, "Failed to encode photo URLs")
			return
		}
		report.PhotoURLs = datatypes.JSON(photos)
	}

	if err := h.store.CreateReport(c.Request.Context(), report); err != nil {
		respondInternalError(c, err, "Failed to create report")
		return
	}

	h.recordActivity(c, domain.ActivityCreate, "report", fmt.Sprintf("%d", report.ID), map[string]any{
		"title": report.Title,
	})
	c.JSON(http.StatusCreated, dto.OK(dto.NewReportResponse(report)))
}

// UpdateReport updates an existing report
func (h *handler) UpdateReport(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req dto.ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		respondAPIError(c, err)
		return
	}

	report, err := h.store.GetReport(c.Request.Context(), id)
	if err != nil {
		respondInternalError(c, err, "Failed to get report")
		return
	}
	if report == nil {
		respondNotFound(c, "Report not found")
		return
	}

	report.EventID = req.EventID
	report.Title = req.Title
	report.Body = req.Body
	report.Published = req.Published
	if req.PhotoURLs != nil {
		photos, err := json.Marshal(req.PhotoURLs)
		if err != nil {
			respondInternalError(c, err, "Failed to encode photo URLs")
			return
		}
		report.PhotoURLs = datatypes.JSON(photos)
	}

	if err := h.store.UpdateReport(c.Request.Context(), report); err != nil {
		respondInternalError(c, err, "Failed to update report")
		return
	}

	h.recordActivity(c, domain.ActivityUpdate, "report", fmt.Sprintf("%d", report.ID), map[string]any{
		"title": report.Title,
	})
	c.JSON(http.StatusOK, dto.OK(dto.NewReportResponse(report)))
}

// DeleteReport removes a report
func (h *handler) DeleteReport(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := h.store.DeleteReport(c.Request.Context(), id); err != nil {
		if err == domain.ErrReportNotFound {
			respondNotFound(c, "Report not found")
			return
		}
		respondInternalError(c, err, "Failed to delete report")
		return
	}

	h.recordActivity(c, domain.ActivityDelete, "report", fmt.Sprintf("%d", id), nil)
	c.JSON(http.StatusOK, dto.OK(nil))
}

// ListTemplates retrieves all message templates
func (h *handler) ListTemplates(c *gin.Context) {
	templates, err := h.store.ListTemplates(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "Failed to list templates")
		return
	}

	responses := make([]dto.TemplateResponse, 0, len(templates))
	for _, t := range templates {
		responses = append(responses, dto.NewTemplateResponse(t))
	}
	c.JSON(http.StatusOK, dto.OK(responses))
}

// CreateTemplate creates a new message template
func (h *handler) CreateTemplate(c *gin.Context) {
	var req dto.TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		respondAPIError(c, err)
		return
	}

	tmpl := &schema.MessageTemplate{
		TemplateID: uuid.New().String(),
		Name:       req.Name,
		Body:       req.Body,
	}
	if req.Variables != nil {
		variables, err := json.Marshal(req.Variables)
		if err != nil {
			respondInternalError(c, err, "Failed to encode variables")
			return
		}
		tmpl.Variables = datatypes.JSON(variables)
	}

	if err := h.store.CreateTemplate(c.Request.Context(), tmpl); err != nil {
		respondInternalError(c, err, "Failed to create template")
		return
	}

	h.recordActivity(c, domain.ActivityCreate, "template", tmpl.TemplateID, map[string]any{
		"name": tmpl.Name,
	})
	c.JSON(http.StatusCreated, dto.OK(dto.NewTemplateResponse(tmpl)))
}

// UpdateTemplate updates an existing message template
func (h *handler) UpdateTemplate(c *gin.Context) {
	templateID := c.Param("id")

	var req dto.TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		respondAPIError(c, err)
		return
	}

	tmpl, err := h.store.GetTemplateByTemplateID(c.Request.Context(), templateID)
	if err != nil {
		respondInternalError(c, err, "Failed to get template")
		return
	}
	if tmpl == nil {
		respondNotFound(c, "Template not found")
		return
	}

	tmpl.Name = req.Name
	tmpl.Body = req.Body
	if req.Variables != nil {
		variables, err := json.Marshal(req.Variables)
		if err != nil {
			respondInternalError(c, err, "Failed to encode variables")
			return
		}
		tmpl.Variables = datatypes.JSON(variables)
	}

	if err := h.store.UpdateTemplate(c.Request.Context(), tmpl); err != nil {
		respondInternalError(c, err, "Failed to update template")
		return
	}

	h.recordActivity(c, domain.ActivityUpdate, "template", tmpl.TemplateID, map[string]any{
		"name": tmpl.Name,
	})
	c.JSON(http.StatusOK, dto.OK(dto.NewTemplateResponse(tmpl)))
}

// DeleteTemplate removes a message template
func (h *handler) DeleteTemplate(c *gin.Context) {
	templateID := c.Param("id")

	if err := h.store.DeleteTemplate(c.Request.Context(), templateID); err != nil {
		if err == domain.ErrTemplateNotFound {
			respondNotFound(c, "Template not found")
			return
		}
		respondInternalError(c, err, "Failed to delete template")
		return
	}

	h.recordActivity(c, domain.ActivityDelete, "template", templateID, nil)
	c.JSON(http.StatusOK, dto.OK(nil))
}

// RenderTemplate substitutes variable values into a template body
func (h *handler) RenderTemplate(c *gin.Context) {
	templateID := c.Param("id")

	var req dto.RenderTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}

	tmpl, err := h.store.GetTemplateByTemplateID(c.Request.Context(), templateID)
	if err != nil {
		respondInternalError(c, err, "Failed to get template")
		return
	}
	if tmpl == nil {
		respondNotFound(c, "Template not found")
		return
	}

	text := tmpl.Body
	for name, value := range req.Variables {
		text = strings.ReplaceAll(text, "{"+name+"}", value)
	}

	c.JSON(http.StatusOK, dto.OK(dto.RenderTemplateResponse{
		TemplateID: tmpl.TemplateID,
		Text:       text,
	}))
}

// recordActivity appends an audit entry for the authenticated actor
func (h *handler) recordActivity(c *gin.Context, action domain.ActivityAction, entityType, entityID string, detail map[string]any) {
	h.activities.Record(c.Request.Context(), activity.Entry{
		Actor:      middleware.ActorFromContext(c),
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Detail:     detail,
	})
}
