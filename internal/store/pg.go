package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kizunalab/machiba/internal/domain"
	"github.com/kizunalab/machiba/internal/store/schema"
)

type pgStore struct {
	db *gorm.DB
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

// ConfigureConnectionPool configures the connection pool settings for a GORM
// database connection by accessing the underlying *sql.DB.
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime =
		NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime)

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// NormalizeConnectionPoolSettings applies defaults and clamps pool settings
// into safe values.
//
// Defaults (when zero):
//   - MaxOpenConns: 20
//   - MaxIdleConns: 5
//   - ConnMaxLifetime: 5 minutes
//   - ConnMaxIdleTime: 10 minutes
//
// Notes:
//   - database/sql treats MaxOpenConns=0 as "unlimited"
//   - database/sql treats MaxIdleConns=0 as "no idle connections"
func NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (int, int, time.Duration, time.Duration) {
	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}

	// Ensure MaxIdleConns doesn't exceed MaxOpenConns
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	return maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime
}

// AutoMigrate creates or updates all tables owned by this service
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&schema.AccessRecord{},
		&schema.ItemTitle{},
		&schema.Event{},
		&schema.Report{},
		&schema.MessageTemplate{},
		&schema.AdminUser{},
		&schema.Activity{},
	)
}

// CreateAccessRecord appends a new access record with a fresh ULID and a
// server-side UTC timestamp
func (s *pgStore) CreateAccessRecord(ctx context.Context, input CreateAccessRecordInput) (*schema.AccessRecord, error) {
	now := time.Now().UTC()
	record := schema.AccessRecord{
		RecordID:   ulid.MustNewDefault(now).String(),
		RecordType: input.RecordType,
		ItemID:     input.ItemID,
		UserID:     input.UserID,
		UserAgent:  input.UserAgent,
		Referrer:   input.Referrer,
		IP:         input.IP,
		RecordedAt: now,
	}

	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, fmt.Errorf("failed to create access record: %w", err)
	}

	return &record, nil
}

// ListAccessRecords retrieves all access records of a content type in insertion order
func (s *pgStore) ListAccessRecords(ctx context.Context, recordType domain.ContentType) ([]*schema.AccessRecord, error) {
	var records []*schema.AccessRecord
	err := s.db.WithContext(ctx).
		Where("record_type = ?", recordType).
		Order("id ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list access records: %w", err)
	}

	return records, nil
}

// ListAccessRecordsBetween retrieves access records of a content type within
// [from, to] inclusive
func (s *pgStore) ListAccessRecordsBetween(ctx context.Context, recordType domain.ContentType, from, to time.Time) ([]*schema.AccessRecord, error) {
	var records []*schema.AccessRecord
	err := s.db.WithContext(ctx).
		Where("record_type = ? AND recorded_at >= ? AND recorded_at <= ?", recordType, from, to).
		Order("id ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list access records in range: %w", err)
	}

	return records, nil
}

// UpsertItemTitle stores the display title for an item, last write wins
func (s *pgStore) UpsertItemTitle(ctx context.Context, recordType domain.ContentType, itemID, title string) error {
	entry := schema.ItemTitle{
		RecordType: recordType,
		ItemID:     itemID,
		Title:      title,
		UpdatedAt:  time.Now().UTC(),
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "record_type"}, {Name: "item_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("failed to upsert item title: %w", err)
	}

	return nil
}

// GetItemTitles retrieves the itemID -> title mapping for a content type
func (s *pgStore) GetItemTitles(ctx context.Context, recordType domain.ContentType) (map[string]string, error) {
	var entries []*schema.ItemTitle
	err := s.db.WithContext(ctx).
		Where("record_type = ?", recordType).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get item titles: %w", err)
	}

	titles := make(map[string]string, len(entries))
	for _, entry := range entries {
		titles[entry.ItemID] = entry.Title
	}

	return titles, nil
}

// CreateEvent persists a new event
func (s *pgStore) CreateEvent(ctx context.Context, event *schema.Event) error {
	if err := s.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

// GetEvent retrieves an event by ID
func (s *pgStore) GetEvent(ctx context.Context, id uint64) (*schema.Event, error) {
	var event schema.Event
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return &event, nil
}

// ListEvents retrieves events ordered by start time descending
func (s *pgStore) ListEvents(ctx context.Context, publishedOnly bool, limit, offset int) ([]*schema.Event, error) {
	query := s.db.WithContext(ctx).Order("starts_at DESC")
	if publishedOnly {
		query = query.Where("published = ?", true)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var events []*schema.Event
	if err := query.Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	return events, nil
}

// UpdateEvent persists changes to an existing event
func (s *pgStore) UpdateEvent(ctx context.Context, event *schema.Event) error {
	event.UpdatedAt = time.Now().UTC()
	if err := s.db.WithContext(ctx).Save(event).Error; err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	return nil
}

// DeleteEvent removes an event by ID
func (s *pgStore) DeleteEvent(ctx context.Context, id uint64) error {
	result := s.db.WithContext(ctx).Delete(&schema.Event{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete event: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrEventNotFound
	}
	return nil
}

// CreateReport persists a new report
func (s *pgStore) CreateReport(ctx context.Context, report *schema.Report) error {
	if err := s.db.WithContext(ctx).Create(report).Error; err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	return nil
}

// GetReport retrieves a report by ID
func (s *pgStore) GetReport(ctx context.Context, id uint64) (*schema.Report, error) {
	var report schema.Report
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&report).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return &report, nil
}

// ListReports retrieves reports ordered by creation time descending
func (s *pgStore) ListReports(ctx context.Context, publishedOnly bool, limit, offset int) ([]*schema.Report, error) {
	query := s.db.WithContext(ctx).Order("created_at DESC")
	if publishedOnly {
		query = query.Where("published = ?", true)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var reports []*schema.Report
	if err := query.Find(&reports).Error; err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	return reports, nil
}

// UpdateReport persists changes to an existing report
func (s *pgStore) UpdateReport(ctx context.Context, report *schema.Report) error {
	report.UpdatedAt = time.Now().UTC()
	if err := s.db.WithContext(ctx).Save(report).Error; err != nil {
		return fmt.Errorf("failed to update report: %w", err)
	}
	return nil
}

// DeleteReport removes a report by ID
func (s *pgStore) DeleteReport(ctx context.Context, id uint64) error {
	result := s.db.WithContext(ctx).Delete(&schema.Report{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete report: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrReportNotFound
	}
	return nil
}

// CreateTemplate persists a new message template
func (s *pgStore) CreateTemplate(ctx context.Context, tmpl *schema.MessageTemplate) error {
	if err := s.db.WithContext(ctx).Create(tmpl).Error; err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}
	return nil
}

// GetTemplateByTemplateID retrieves a template by its UUID
func (s *pgStore) GetTemplateByTemplateID(ctx context.Context, templateID string) (*schema.MessageTemplate, error) {
	var tmpl schema.MessageTemplate
	err := s.db.WithContext(ctx).Where("template_id = ?", templateID).First(&tmpl).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return &tmpl, nil
}

// ListTemplates retrieves all templates ordered by name
func (s *pgStore) ListTemplates(ctx context.Context) ([]*schema.MessageTemplate, error) {
	var templates []*schema.MessageTemplate
	err := s.db.WithContext(ctx).Order("name ASC").Find(&templates).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	return templates, nil
}

// UpdateTemplate persists changes to an existing template
func (s *pgStore) UpdateTemplate(ctx context.Context, tmpl *schema.MessageTemplate) error {
	tmpl.UpdatedAt = time.Now().UTC()
	if err := s.db.WithContext(ctx).Save(tmpl).Error; err != nil {
		return fmt.Errorf("failed to update template: %w", err)
	}
	return nil
}

// DeleteTemplate removes a template by its UUID
func (s *pgStore) DeleteTemplate(ctx context.Context, templateID string) error {
	result := s.db.WithContext(ctx).Where("template_id = ?", templateID).Delete(&schema.MessageTemplate{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete template: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrTemplateNotFound
	}
	return nil
}

// CreateUser persists a new admin user
func (s *pgStore) CreateUser(ctx context.Context, user *schema.AdminUser) error {
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrUsernameTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByUsername retrieves a user by login name
func (s *pgStore) GetUserByUsername(ctx context.Context, username string) (*schema.AdminUser, error) {
	var user schema.AdminUser
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// GetUserByUserID retrieves a user by its UUID
func (s *pgStore) GetUserByUserID(ctx context.Context, userID string) (*schema.AdminUser, error) {
	var user schema.AdminUser
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// ListUsers retrieves all admin users ordered by username
func (s *pgStore) ListUsers(ctx context.Context) ([]*schema.AdminUser, error) {
	var users []*schema.AdminUser
	err := s.db.WithContext(ctx).Order("username ASC").Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// UpdateUser persists changes to an existing user
func (s *pgStore) UpdateUser(ctx context.Context, user *schema.AdminUser) error {
	user.UpdatedAt = time.Now().UTC()
	if err := s.db.WithContext(ctx).Save(user).Error; err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// DeleteUser removes a user by its UUID
func (s *pgStore) DeleteUser(ctx context.Context, userID string) error {
	result := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&schema.AdminUser{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// CreateActivity appends an audit entry
func (s *pgStore) CreateActivity(ctx context.Context, activity *schema.Activity) error {
	if err := s.db.WithContext(ctx).Create(activity).Error; err != nil {
		return fmt.Errorf("failed to create activity: %w", err)
	}
	return nil
}

// ListRecentActivities retrieves the most recent audit entries, newest first
func (s *pgStore) ListRecentActivities(ctx context.Context, limit int) ([]*schema.Activity, error) {
	if limit <= 0 {
		limit = 50
	}

	var activities []*schema.Activity
	err := s.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&activities).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}

	return activities, nil
}
