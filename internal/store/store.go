package store

import (
	"context"
	"time"

	"github.com/kizunalab/machiba/internal/domain"
	"github.com/kizunalab/machiba/internal/store/schema"
)

// CreateAccessRecordInput holds the caller-supplied fields of a new access record.
// RecordID and RecordedAt are assigned by the store.
type CreateAccessRecordInput struct {
	RecordType domain.ContentType
	ItemID     string
	UserID     *string
	UserAgent  *string
	Referrer   *string
	IP         *string
}

// Store defines the interface for database operations
type Store interface {
	// CreateAccessRecord appends a new access record, assigning its ULID and
	// server-side timestamp, and returns the stored record
	CreateAccessRecord(ctx context.Context, input CreateAccessRecordInput) (*schema.AccessRecord, error)
	// ListAccessRecords retrieves all access records of a content type in insertion order
	ListAccessRecords(ctx context.Context, recordType domain.ContentType) ([]*schema.AccessRecord, error)
	// ListAccessRecordsBetween retrieves access records of a content type whose
	// timestamp falls within [from, to] inclusive
	ListAccessRecordsBetween(ctx context.Context, recordType domain.ContentType, from, to time.Time) ([]*schema.AccessRecord, error)
	// UpsertItemTitle stores the display title for an item, last write wins
	UpsertItemTitle(ctx context.Context, recordType domain.ContentType, itemID, title string) error
	// GetItemTitles retrieves the itemID -> title mapping for a content type
	GetItemTitles(ctx context.Context, recordType domain.ContentType) (map[string]string, error)

	// CreateEvent persists a new event
	CreateEvent(ctx context.Context, event *schema.Event) error
	// GetEvent retrieves an event by ID, returning nil when it does not exist
	GetEvent(ctx context.Context, id uint64) (*schema.Event, error)
	// ListEvents retrieves events ordered by start time descending.
	// When publishedOnly is set, unpublished events are excluded.
	ListEvents(ctx context.Context, publishedOnly bool, limit, offset int) ([]*schema.Event, error)
	// UpdateEvent persists changes to an existing event
	UpdateEvent(ctx context.Context, event *schema.Event) error
	// DeleteEvent removes an event by ID
	DeleteEvent(ctx context.Context, id uint64) error

	// CreateReport persists a new report
	CreateReport(ctx context.Context, report *schema.Report) error
	// GetReport retrieves a report by ID, returning nil when it does not exist
	GetReport(ctx context.Context, id uint64) (*schema.Report, error)
	// ListReports retrieves reports ordered by creation time descending
	ListReports(ctx context.Context, publishedOnly bool, limit, offset int) ([]*schema.Report, error)
	// UpdateReport persists changes to an existing report
	UpdateReport(ctx context.Context, report *schema.Report) error
	// DeleteReport removes a report by ID
	DeleteReport(ctx context.Context, id uint64) error

	// CreateTemplate persists a new message template
	CreateTemplate(ctx context.Context, tmpl *schema.MessageTemplate) error
	// GetTemplateByTemplateID retrieves a template by its UUID, returning nil when absent
	GetTemplateByTemplateID(ctx context.Context, templateID string) (*schema.MessageTemplate, error)
	// ListTemplates retrieves all templates ordered by name
	ListTemplates(ctx context.Context) ([]*schema.MessageTemplate, error)
	// UpdateTemplate persists changes to an existing template
	UpdateTemplate(ctx context.Context, tmpl *schema.MessageTemplate) error
	// DeleteTemplate removes a template by its UUID
	DeleteTemplate(ctx context.Context, templateID string) error

	// CreateUser persists a new admin user
	CreateUser(ctx context.Context, user *schema.AdminUser) error
	// GetUserByUsername retrieves a user by login name, returning nil when absent
	GetUserByUsername(ctx context.Context, username string) (*schema.AdminUser, error)
	// GetUserByUserID retrieves a user by its UUID, returning nil when absent
	GetUserByUserID(ctx context.Context, userID string) (*schema.AdminUser, error)
	// ListUsers retrieves all admin users ordered by username
	ListUsers(ctx context.Context) ([]*schema.AdminUser, error)
	// UpdateUser persists changes to an existing user
	UpdateUser(ctx context.Context, user *schema.AdminUser) error
	// DeleteUser removes a user by its UUID
	DeleteUser(ctx context.Context, userID string) error

	// CreateActivity appends an audit entry
	CreateActivity(ctx context.Context, activity *schema.Activity) error
	// ListRecentActivities retrieves the most recent audit entries, newest first
	ListRecentActivities(ctx context.Context, limit int) ([]*schema.Activity, error)
}
