package dto

import (
	"encoding/json"
	"time"

	"github.com/kizunalab/machiba/internal/store/schema"
)

// Envelope is the standard success envelope
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

// OK wraps a payload in the success envelope
func OK(data interface{}) Envelope {
	return Envelope{Success: true, Data: data}
}

// RecordAccessResponse represents the response for recording a page view
type RecordAccessResponse struct {
	Success  bool   `json:"success"`
	RecordID string `json:"recordId"`
}

// LoginResponse represents the response for a successful admin login
type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      UserResponse `json:"user"`
}

// UserResponse represents an admin user without credential material
type UserResponse struct {
	UserID      string    `json:"userId"`
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NewUserResponse maps a stored admin user to its API shape
func NewUserResponse(u *schema.AdminUser) UserResponse {
	return UserResponse{
		UserID:      u.UserID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Role:        string(u.Role),
		CreatedAt:   u.CreatedAt,
	}
}

// EventResponse represents an event in API responses
type EventResponse struct {
	ID          uint64     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Venue       string     `json:"venue"`
	StartsAt    time.Time  `json:"startsAt"`
	EndsAt      *time.Time `json:"endsAt,omitempty"`
	Capacity    int        `json:"capacity"`
	FeeYen      int        `json:"feeYen"`
	ImageURL    *string    `json:"imageUrl,omitempty"`
	Published   bool       `json:"published"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// NewEventResponse maps a stored event to its API shape
func NewEventResponse(e *schema.Event) EventResponse {
	return EventResponse{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		Venue:       e.Venue,
		StartsAt:    e.StartsAt,
		EndsAt:      e.EndsAt,
		Capacity:    e.Capacity,
		FeeYen:      e.FeeYen,
		ImageURL:    e.ImageURL,
		Published:   e.Published,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

// ReportResponse represents a report in API responses
type ReportResponse struct {
	ID        uint64    `json:"id"`
	EventID   *uint64   `json:"eventId,omitempty"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	PhotoURLs []string  `json:"photoUrls"`
	Published bool      `json:"published"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewReportResponse maps a stored report to its API shape
func NewReportResponse(r *schema.Report) ReportResponse {
	photos := []string{}
	if len(r.PhotoURLs) > 0 {
		// Ignore malformed stored JSON, the column is written from a
		// validated request
		_ = json.Unmarshal(r.PhotoURLs, &photos)
	}
	return ReportResponse{
		ID:        r.ID,
		EventID:   r.EventID,
		Title:     r.Title,
		Body:      r.Body,
		PhotoURLs: photos,
		Published: r.Published,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// TemplateResponse represents a message template in API responses
type TemplateResponse struct {
	TemplateID string    `json:"templateId"`
	Name       string    `json:"name"`
	Body       string    `json:"body"`
	Variables  []string  `json:"variables"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// NewTemplateResponse maps a stored template to its API shape
func NewTemplateResponse(t *schema.MessageTemplate) TemplateResponse {
	variables := []string{}
	if len(t.Variables) > 0 {
		_ = json.Unmarshal(t.Variables, &variables)
	}
	return TemplateResponse{
		TemplateID: t.TemplateID,
		Name:       t.Name,
		Body:       t.Body,
		Variables:  variables,
		CreatedAt:  t.CreatedAt,
		UpdatedAt:  t.UpdatedAt,
	}
}

// ActivityResponse represents an audit entry in API responses
type ActivityResponse struct {
	Actor      string          `json:"actor"`
	Action     string          `json:"action"`
	EntityType string          `json:"entityType"`
	EntityID   *string         `json:"entityId,omitempty"`
	Detail     json.RawMessage `json:"detail,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// NewActivityResponse maps a stored audit entry to its API shape
func NewActivityResponse(a *schema.Activity) ActivityResponse {
	return ActivityResponse{
		Actor:      a.Actor,
		Action:     string(a.Action),
		EntityType: a.EntityType,
		EntityID:   a.EntityID,
		Detail:     json.RawMessage(a.Detail),
		CreatedAt:  a.CreatedAt,
	}
}

// RenderTemplateResponse represents a rendered message template
type RenderTemplateResponse struct {
	TemplateID string `json:"templateId"`
	Text       string `json:"text"`
}

// SendMessageResponse represents the response for sending a LINE message
type SendMessageResponse struct {
	Recipients int    `json:"recipients"`
	Mode       string `json:"mode"` // "broadcast" or "multicast"
}
