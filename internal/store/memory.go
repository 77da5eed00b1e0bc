package store

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/kizunalab/machiba/internal/domain"
	"github.com/kizunalab/machiba/internal/store/schema"
)

// memoryStore is an in-memory Store implementation. It preserves the original
// deployment mode of the analytics subsystem, where all state lives in process
// memory and is lost on restart. It also backs the store test suite.
type memoryStore struct {
	mu sync.RWMutex

	accessRecords []*schema.AccessRecord
	itemTitles    map[domain.ContentType]map[string]string

	events    map[uint64]*schema.Event
	reports   map[uint64]*schema.Report
	templates map[string]*schema.MessageTemplate
	users     map[string]*schema.AdminUser

	activities []*schema.Activity

	nextID uint64
	// clock is overridable in tests
	clock func() time.Time
}

// NewMemoryStore creates a new in-memory store instance
func NewMemoryStore() Store {
	return newMemoryStore()
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		itemTitles: make(map[domain.ContentType]map[string]string),
		events:     make(map[uint64]*schema.Event),
		reports:    make(map[uint64]*schema.Report),
		templates:  make(map[string]*schema.MessageTemplate),
		users:      make(map[string]*schema.AdminUser),
		clock:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *memoryStore) nextSequence() uint64 {
	s.nextID++
	return s.nextID
}

func (s *memoryStore) CreateAccessRecord(_ context.Context, input CreateAccessRecordInput) (*schema.AccessRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	record := &schema.AccessRecord{
		ID:         s.nextSequence(),
		RecordID:   ulid.MustNewDefault(now).String(),
		RecordType: input.RecordType,
		ItemID:     input.ItemID,
		UserID:     input.UserID,
		UserAgent:  input.UserAgent,
		Referrer:   input.Referrer,
		IP:         input.IP,
		RecordedAt: now,
	}
	s.accessRecords = append(s.accessRecords, record)

	return record, nil
}

func (s *memoryStore) ListAccessRecords(_ context.Context, recordType domain.ContentType) ([]*schema.AccessRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []*schema.AccessRecord
	for _, record := range s.accessRecords {
		if record.RecordType == recordType {
			records = append(records, record)
		}
	}

	return records, nil
}

func (s *memoryStore) ListAccessRecordsBetween(_ context.Context, recordType domain.ContentType, from, to time.Time) ([]*schema.AccessRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []*schema.AccessRecord
	for _, record := range s.accessRecords {
		if record.RecordType != recordType {
			continue
		}
		if record.RecordedAt.Before(from) || record.RecordedAt.After(to) {
			continue
		}
		records = append(records, record)
	}

	return records, nil
}

func (s *memoryStore) UpsertItemTitle(_ context.Context, recordType domain.ContentType, itemID, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	titles, ok := s.itemTitles[recordType]
	if !ok {
		titles = make(map[string]string)
		s.itemTitles[recordType] = titles
	}
	titles[itemID] = title

	return nil
}

func (s *memoryStore) GetItemTitles(_ context.Context, recordType domain.ContentType) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	titles := make(map[string]string, len(s.itemTitles[recordType]))
	for itemID, title := range s.itemTitles[recordType] {
		titles[itemID] = title
	}

	return titles, nil
}

func (s *memoryStore) CreateEvent(_ context.Context, event *schema.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	event.ID = s.nextSequence()
	now := s.clock()
	event.CreatedAt = now
	event.UpdatedAt = now
	s.events[event.ID] = event

	return nil
}

func (s *memoryStore) GetEvent(_ context.Context, id uint64) (*schema.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	event, ok := s.events[id]
	if !ok {
		return nil, nil
	}
	copied := *event
	return &copied, nil
}

func (s *memoryStore) ListEvents(_ context.Context, publishedOnly bool, limit, offset int) ([]*schema.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var events []*schema.Event
	for _, event := range s.events {
		if publishedOnly && !event.Published {
			continue
		}
		copied := *event
		events = append(events, &copied)
	}
	sortByTimeDesc(events, func(e *schema.Event) time.Time { return e.StartsAt })

	return paginate(events, limit, offset), nil
}

func (s *memoryStore) UpdateEvent(_ context.Context, event *schema.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[event.ID]; !ok {
		return domain.ErrEventNotFound
	}
	event.UpdatedAt = s.clock()
	copied := *event
	s.events[event.ID] = &copied

	return nil
}

func (s *memoryStore) DeleteEvent(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[id]; !ok {
		return domain.ErrEventNotFound
	}
	delete(s.events, id)

	return nil
}

func (s *memoryStore) CreateReport(_ context.Context, report *schema.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	report.ID = s.nextSequence()
	now := s.clock()
	report.CreatedAt = now
	report.UpdatedAt = now
	s.reports[report.ID] = report

	return nil
}

func (s *memoryStore) GetReport(_ context.Context, id uint64) (*schema.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report, ok := s.reports[id]
	if !ok {
		return nil, nil
	}
	copied := *report
	return &copied, nil
}

func (s *memoryStore) ListReports(_ context.Context, publishedOnly bool, limit, offset int) ([]*schema.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var reports []*schema.Report
	for _, report := range s.reports {
		if publishedOnly && !report.Published {
			continue
		}
		copied := *report
		reports = append(reports, &copied)
	}
	sortByTimeDesc(reports, func(r *schema.Report) time.Time { return r.CreatedAt })

	return paginate(reports, limit, offset), nil
}

func (s *memoryStore) UpdateReport(_ context.Context, report *schema.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reports[report.ID]; !ok {
		return domain.ErrReportNotFound
	}
	report.UpdatedAt = s.clock()
	copied := *report
	s.reports[report.ID] = &copied

	return nil
}

func (s *memoryStore) DeleteReport(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reports[id]; !ok {
		return domain.ErrReportNotFound
	}
	delete(s.reports, id)

	return nil
}

func (s *memoryStore) CreateTemplate(_ context.Context, tmpl *schema.MessageTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tmpl.ID = s.nextSequence()
	now := s.clock()
	tmpl.CreatedAt = now
	tmpl.UpdatedAt = now
	copied := *tmpl
	s.templates[tmpl.TemplateID] = &copied

	return nil
}

func (s *memoryStore) GetTemplateByTemplateID(_ context.Context, templateID string) (*schema.MessageTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tmpl, ok := s.templates[templateID]
	if !ok {
		return nil, nil
	}
	copied := *tmpl
	return &copied, nil
}

func (s *memoryStore) ListTemplates(_ context.Context) ([]*schema.MessageTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	templates := make([]*schema.MessageTemplate, 0, len(s.templates))
	for _, tmpl := range s.templates {
		copied := *tmpl
		templates = append(templates, &copied)
	}
	sortByName(templates, func(t *schema.MessageTemplate) string { return t.Name })

	return templates, nil
}

func (s *memoryStore) UpdateTemplate(_ context.Context, tmpl *schema.MessageTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.templates[tmpl.TemplateID]; !ok {
		return domain.ErrTemplateNotFound
	}
	tmpl.UpdatedAt = s.clock()
	copied := *tmpl
	s.templates[tmpl.TemplateID] = &copied

	return nil
}

func (s *memoryStore) DeleteTemplate(_ context.Context, templateID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.templates[templateID]; !ok {
		return domain.ErrTemplateNotFound
	}
	delete(s.templates, templateID)

	return nil
}

func (s *memoryStore) CreateUser(_ context.Context, user *schema.AdminUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Username == user.Username {
			return domain.ErrUsernameTaken
		}
	}

	user.ID = s.nextSequence()
	now := s.clock()
	user.CreatedAt = now
	user.UpdatedAt = now
	copied := *user
	s.users[user.UserID] = &copied

	return nil
}

func (s *memoryStore) GetUserByUsername(_ context.Context, username string) (*schema.AdminUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if user.Username == username {
			copied := *user
			return &copied, nil
		}
	}

	return nil, nil
}

func (s *memoryStore) GetUserByUserID(_ context.Context, userID string) (*schema.AdminUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[userID]
	if !ok {
		return nil, nil
	}
	copied := *user
	return &copied, nil
}

func (s *memoryStore) ListUsers(_ context.Context) ([]*schema.AdminUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]*schema.AdminUser, 0, len(s.users))
	for _, user := range s.users {
		copied := *user
		users = append(users, &copied)
	}
	sortByName(users, func(u *schema.AdminUser) string { return u.Username })

	return users, nil
}

func (s *memoryStore) UpdateUser(_ context.Context, user *schema.AdminUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.UserID]; !ok {
		return domain.ErrUserNotFound
	}
	user.UpdatedAt = s.clock()
	copied := *user
	s.users[user.UserID] = &copied

	return nil
}

func (s *memoryStore) DeleteUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return domain.ErrUserNotFound
	}
	delete(s.users, userID)

	return nil
}

func (s *memoryStore) CreateActivity(_ context.Context, activity *schema.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	activity.ID = s.nextSequence()
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = s.clock()
	}
	copied := *activity
	s.activities = append(s.activities, &copied)

	return nil
}

func (s *memoryStore) ListRecentActivities(_ context.Context, limit int) ([]*schema.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	var activities []*schema.Activity
	for i := len(s.activities) - 1; i >= 0 && len(activities) < limit; i-- {
		copied := *s.activities[i]
		activities = append(activities, &copied)
	}

	return activities, nil
}

func sortByTimeDesc[T any](items []*T, key func(*T) time.Time) {
	slices.SortStableFunc(items, func(a, b *T) int {
		return key(b).Compare(key(a))
	})
}

func sortByName[T any](items []*T, key func(*T) string) {
	slices.SortStableFunc(items, func(a, b *T) int {
		return strings.Compare(key(a), key(b))
	})
}

func paginate[T any](items []*T, limit, offset int) []*T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
