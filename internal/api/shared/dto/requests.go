package dto

import (
	"fmt"
	"strings"
	"time"

	apierrors "github.com/kizunalab/machiba/internal/api/shared/errors"
	"github.com/kizunalab/machiba/internal/domain"
)

const (
	// MAX_MULTICAST_RECIPIENTS bounds one send request
	MAX_MULTICAST_RECIPIENTS = 5000
	// MAX_TITLE_LENGTH bounds user-supplied titles
	MAX_TITLE_LENGTH = 500
)

// RecordAccessRequest represents the request body for recording a page view
type RecordAccessRequest struct {
	Type   string  `json:"type"`
	ItemID string  `json:"itemId"`
	UserID *string `json:"userId,omitempty"`
	Title  *string `json:"title,omitempty"`
}

// Validate validates the request body
func (r *RecordAccessRequest) Validate() error {
	// Validate: type and itemId must be provided
	if r.Type == "" {
		return apierrors.NewBadRequestError("type is required")
	}
	if r.ItemID == "" {
		return apierrors.NewBadRequestError("itemId is required")
	}

	if !domain.ContentType(r.Type).Valid() {
		return apierrors.NewBadRequestError(fmt.Sprintf("invalid type: %s. Must be event or report", r.Type))
	}

	if r.Title != nil && len(*r.Title) > MAX_TITLE_LENGTH {
		return apierrors.NewValidationError(fmt.Sprintf("title must be at most %d characters", MAX_TITLE_LENGTH))
	}

	return nil
}

// StatsQuery represents the query parameters of the stats endpoint
type StatsQuery struct {
	Type  string `form:"type"`
	ID    string `form:"id"`
	Daily bool   `form:"daily"`
	Days  int    `form:"days"`
}

// Validate validates the query parameters
func (q *StatsQuery) Validate() error {
	if q.Type == "" {
		return apierrors.NewBadRequestError("type is required")
	}
	if !domain.ContentType(q.Type).Valid() {
		return apierrors.NewBadRequestError(fmt.Sprintf("invalid type: %s. Must be event or report", q.Type))
	}
	if q.Days < 0 {
		return apierrors.NewBadRequestError("days must not be negative")
	}
	return nil
}

// LoginRequest represents the request body for an admin login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate validates the request body
func (r *LoginRequest) Validate() error {
	if r.Username == "" || r.Password == "" {
		return apierrors.NewBadRequestError("username and password are required")
	}
	return nil
}

// EventRequest represents the request body for creating or updating an event
type EventRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Venue       string     `json:"venue"`
	StartsAt    time.Time  `json:"startsAt"`
	EndsAt      *time.Time `json:"endsAt,omitempty"`
	Capacity    int        `json:"capacity"`
	FeeYen      int        `json:"feeYen"`
	ImageURL    *string    `json:"imageUrl,omitempty"`
	Published   bool       `json:"published"`
}

// Validate validates the request body
func (r *EventRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return apierrors.NewValidationError("title is required")
	}
	if len(r.Title) > MAX_TITLE_LENGTH {
		return apierrors.NewValidationError(fmt.Sprintf("title must be at most %d characters", MAX_TITLE_LENGTH))
	}
	if r.StartsAt.IsZero() {
		return apierrors.NewValidationError("startsAt is required")
	}
	if r.EndsAt != nil && r.EndsAt.Before(r.StartsAt) {
		return apierrors.NewValidationError("endsAt must not be before startsAt")
	}
	if r.Capacity < 0 {
		return apierrors.NewValidationError("capacity must not be negative")
	}
	if r.FeeYen < 0 {
		return apierrors.NewValidationError("feeYen must not be negative")
	}
	return nil
}

// ReportRequest represents the request body for creating or updating a report
type ReportRequest struct {
	EventID   *uint64  `json:"eventId,omitempty"`
	Title     string   `json:"title"`
	Body      string   `json:"body"`
	PhotoURLs []string `json:"photoUrls,omitempty"`
	Published bool     `json:"published"`
}

// Validate validates the request body
func (r *ReportRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return apierrors.NewValidationError("title is required")
	}
	if len(r.Title) > MAX_TITLE_LENGTH {
		return apierrors.NewValidationError(fmt.Sprintf("title must be at most %d characters", MAX_TITLE_LENGTH))
	}
	return nil
}

// TemplateRequest represents the request body for creating or updating a
// message template
type TemplateRequest struct {
	Name      string   `json:"name"`
	Body      string   `json:"body"`
	Variables []string `json:"variables,omitempty"`
}

// Validate validates the request body
func (r *TemplateRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return apierrors.NewValidationError("name is required")
	}
	if strings.TrimSpace(r.Body) == "" {
		return apierrors.NewValidationError("body is required")
	}
	// Validate: every declared variable must appear in the body
	for _, v := range r.Variables {
		if !strings.Contains(r.Body, "{"+v+"}") {
			return apierrors.NewValidationError(fmt.Sprintf("variable %s is not referenced by the body", v))
		}
	}
	return nil
}

// CreateUserRequest represents the request body for creating an admin user
type CreateUserRequest struct {
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Password    string `json:"password"`
	Role        string `json:"role"`
}

// Validate validates the request body
func (r *CreateUserRequest) Validate() error {
	if r.Username == "" {
		return apierrors.NewValidationError("username is required")
	}
	if len(r.Password) < 8 {
		return apierrors.NewValidationError("password must be at least 8 characters")
	}
	if r.Role != "" && !domain.UserRole(r.Role).Valid() {
		return apierrors.NewValidationError(fmt.Sprintf("invalid role: %s", r.Role))
	}
	return nil
}

// UpdateUserRequest represents the request body for updating an admin user
type UpdateUserRequest struct {
	DisplayName *string `json:"displayName,omitempty"`
	Password    *string `json:"password,omitempty"`
	Role        *string `json:"role,omitempty"`
}

// Validate validates the request body
func (r *UpdateUserRequest) Validate() error {
	if r.Password != nil && len(*r.Password) < 8 {
		return apierrors.NewValidationError("password must be at least 8 characters")
	}
	if r.Role != nil && !domain.UserRole(*r.Role).Valid() {
		return apierrors.NewValidationError(fmt.Sprintf("invalid role: %s", *r.Role))
	}
	return nil
}

// RenderTemplateRequest represents the request body for rendering a
// message template with variable values
type RenderTemplateRequest struct {
	Variables map[string]string `json:"variables,omitempty"`
}

// SendMessageRequest represents the request body for sending a LINE message
type SendMessageRequest struct {
	// TemplateID selects a stored template; Text is a literal message.
	// Exactly one of the two must be set.
	TemplateID *string           `json:"templateId,omitempty"`
	Text       *string           `json:"text,omitempty"`
	Variables  map[string]string `json:"variables,omitempty"`
	// To lists recipient LINE user IDs. Empty means broadcast.
	To []string `json:"to,omitempty"`
}

// Validate validates the request body
func (r *SendMessageRequest) Validate() error {
	if (r.TemplateID == nil) == (r.Text == nil) {
		return apierrors.NewValidationError("exactly one of templateId or text is required")
	}
	if r.Text != nil && strings.TrimSpace(*r.Text) == "" {
		return apierrors.NewValidationError("text must not be empty")
	}
	if len(r.To) > MAX_MULTICAST_RECIPIENTS {
		return apierrors.NewValidationError(fmt.Sprintf("maximum %d recipients allowed", MAX_MULTICAST_RECIPIENTS))
	}
	return nil
}

// PaymentLinkRequest represents the request body for creating a payment link
type PaymentLinkRequest struct {
	AmountYen   int64  `json:"amountYen"`
	Description string `json:"description"`
	RedirectURL string `json:"redirectUrl,omitempty"`
}

// Validate validates the request body
func (r *PaymentLinkRequest) Validate() error {
	if r.AmountYen <= 0 {
		return apierrors.NewValidationError("amountYen must be positive")
	}
	return nil
}
