package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/kizunalab/machiba/internal/domain"
	"github.com/kizunalab/machiba/internal/logger"
	"github.com/kizunalab/machiba/internal/messaging"
	"github.com/kizunalab/machiba/internal/store"
	"github.com/kizunalab/machiba/internal/store/schema"
)

// Repository is the access-record store view the service depends on.
// The full store.Store satisfies it.
type Repository interface {
	CreateAccessRecord(ctx context.Context, input store.CreateAccessRecordInput) (*schema.AccessRecord, error)
	ListAccessRecords(ctx context.Context, recordType domain.ContentType) ([]*schema.AccessRecord, error)
	ListAccessRecordsBetween(ctx context.Context, recordType domain.ContentType, from, to time.Time) ([]*schema.AccessRecord, error)
	UpsertItemTitle(ctx context.Context, recordType domain.ContentType, itemID, title string) error
	GetItemTitles(ctx context.Context, recordType domain.ContentType) (map[string]string, error)
}

// RecordInput holds one view event as reported by a page-view beacon
type RecordInput struct {
	Type      domain.ContentType
	ItemID    string
	UserID    *string
	Title     string
	UserAgent *string
	Referrer  *string
	IP        *string
}

// ItemStats is the derived per-item aggregate. It is recomputed in full on
// every query; nothing is materialized.
type ItemStats struct {
	ItemID       string    `json:"item_id"`
	Title        string    `json:"title"`
	ViewCount    int       `json:"view_count"`
	LastAccessed time.Time `json:"last_accessed"`
}

// DailyCount is one bucket of the daily access histogram
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Config holds analytics query limits
type Config struct {
	DefaultDays int
	MaxDays     int
}

// Service computes access statistics over the append-only record store
type Service struct {
	repo      Repository
	publisher messaging.Publisher // nil disables the firehose
	cfg       Config
}

// NewService creates a new analytics service. publisher may be nil.
func NewService(repo Repository, publisher messaging.Publisher, cfg Config) *Service {
	if cfg.DefaultDays <= 0 {
		cfg.DefaultDays = 30
	}
	if cfg.MaxDays <= 0 {
		cfg.MaxDays = 365
	}
	return &Service{repo: repo, publisher: publisher, cfg: cfg}
}

// Record appends one access record and opportunistically updates the item's
// title. Counts are best-effort: there is no server-side deduplication across
// requests.
func (s *Service) Record(ctx context.Context, input RecordInput) (*schema.AccessRecord, error) {
	if !input.Type.Valid() {
		return nil, domain.ErrInvalidContentType
	}

	record, err := s.repo.CreateAccessRecord(ctx, store.CreateAccessRecordInput{
		RecordType: input.Type,
		ItemID:     input.ItemID,
		UserID:     input.UserID,
		UserAgent:  input.UserAgent,
		Referrer:   input.Referrer,
		IP:         input.IP,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record access: %w", err)
	}

	if input.Title != "" {
		if err := s.repo.UpsertItemTitle(ctx, input.Type, input.ItemID, input.Title); err != nil {
			// Title enrichment is best effort; the record itself is already stored
			logger.WarnCtx(ctx, "failed to update item title",
				zap.String("item_id", input.ItemID),
				zap.Error(err))
		}
	}

	if s.publisher != nil {
		event := &domain.AccessEvent{
			RecordID:   record.RecordID,
			Type:       record.RecordType,
			ItemID:     record.ItemID,
			RecordedAt: record.RecordedAt.Format(time.RFC3339),
		}
		if err := s.publisher.PublishAccessEvent(ctx, event); err != nil {
			logger.WarnCtx(ctx, "failed to publish access event",
				zap.String("record_id", record.RecordID),
				zap.Error(err))
		}
	}

	return record, nil
}

// StatsByType computes per-item aggregates for a content type, sorted by view
// count descending. Ties keep encounter order.
func (s *Service) StatsByType(ctx context.Context, recordType domain.ContentType) ([]ItemStats, error) {
	if !recordType.Valid() {
		return nil, domain.ErrInvalidContentType
	}

	records, err := s.repo.ListAccessRecords(ctx, recordType)
	if err != nil {
		return nil, fmt.Errorf("failed to load access records: %w", err)
	}

	titles, err := s.repo.GetItemTitles(ctx, recordType)
	if err != nil {
		return nil, fmt.Errorf("failed to load item titles: %w", err)
	}

	// Group by item in encounter order
	stats := make([]ItemStats, 0)
	index := make(map[string]int)
	for _, record := range records {
		i, seen := index[record.ItemID]
		if !seen {
			title, ok := titles[record.ItemID]
			if !ok {
				title = recordType.PlaceholderTitle(record.ItemID)
			}
			index[record.ItemID] = len(stats)
			stats = append(stats, ItemStats{
				ItemID:       record.ItemID,
				Title:        title,
				ViewCount:    1,
				LastAccessed: record.RecordedAt,
			})
			continue
		}

		stats[i].ViewCount++
		if record.RecordedAt.After(stats[i].LastAccessed) {
			stats[i].LastAccessed = record.RecordedAt
		}
	}

	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].ViewCount > stats[j].ViewCount
	})

	return stats, nil
}

// ItemStats re-runs the full aggregation and filters to a single item.
// Returns nil when the item has no access records; an item with zero views is
// indistinguishable from one that does not exist.
func (s *Service) ItemStats(ctx context.Context, recordType domain.ContentType, itemID string) (*ItemStats, error) {
	stats, err := s.StatsByType(ctx, recordType)
	if err != nil {
		return nil, err
	}

	for i := range stats {
		if stats[i].ItemID == itemID {
			return &stats[i], nil
		}
	}

	return nil, nil
}

// DailySeries builds a zero-filled daily access histogram for a content type
// over the window [today-days, today] in UTC calendar days. The result always
// has exactly days+1 buckets in ascending date order.
func (s *Service) DailySeries(ctx context.Context, recordType domain.ContentType, days int) ([]DailyCount, error) {
	if !recordType.Valid() {
		return nil, domain.ErrInvalidContentType
	}
	if days <= 0 {
		days = s.cfg.DefaultDays
	}
	if days > s.cfg.MaxDays {
		days = s.cfg.MaxDays
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	start := today.AddDate(0, 0, -days)
	end := today.AddDate(0, 0, 1).Add(-time.Nanosecond) // end of today

	records, err := s.repo.ListAccessRecordsBetween(ctx, recordType, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load access records: %w", err)
	}

	// One zero-count bucket per calendar day in the window
	series := make([]DailyCount, 0, days+1)
	buckets := make(map[string]int, days+1)
	for d := 0; d <= days; d++ {
		date := start.AddDate(0, 0, d).Format(time.DateOnly)
		buckets[date] = len(series)
		series = append(series, DailyCount{Date: date})
	}

	for _, record := range records {
		date := record.RecordedAt.UTC().Format(time.DateOnly)
		i, ok := buckets[date]
		if !ok {
			// Cannot happen given the window construction; dropped silently
			continue
		}
		series[i].Count++
	}

	return series, nil
}
