package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kizunalab/machiba/internal/domain"
	"github.com/kizunalab/machiba/internal/store/schema"
)

// =============================================================================
// Test Data Builders
// =============================================================================

func buildTestAccessInput(rt domain.ContentType, itemID string) CreateAccessRecordInput {
	ua := "Mozilla/5.0"
	return CreateAccessRecordInput{
		RecordType: rt,
		ItemID:     itemID,
		UserAgent:  &ua,
	}
}

func buildTestEvent(title string, published bool) *schema.Event {
	return &schema.Event{
		Title:     title,
		Venue:     "Community Hall",
		StartsAt:  time.Now().UTC().Add(72 * time.Hour),
		Capacity:  30,
		FeeYen:    500,
		Published: published,
	}
}

func buildTestUser(username string) *schema.AdminUser {
	return &schema.AdminUser{
		UserID:       uuid.New().String(),
		Username:     username,
		DisplayName:  "Test " + username,
		PasswordHash: "$2a$10$notarealhashnotarealhashnotarealhashnotare",
		Role:         domain.RoleEditor,
	}
}

// =============================================================================
// Access records
// =============================================================================

func TestMemoryStoreAccessRecords(t *testing.T) {
	ctx := context.Background()

	t.Run("create assigns ulid and server timestamp", func(t *testing.T) {
		s := NewMemoryStore()

		before := time.Now().UTC()
		record, err := s.CreateAccessRecord(ctx, buildTestAccessInput(domain.ContentTypeEvent, "E1"))
		require.NoError(t, err)

		assert.Len(t, record.RecordID, 26)
		assert.Equal(t, domain.ContentTypeEvent, record.RecordType)
		assert.Equal(t, "E1", record.ItemID)
		assert.False(t, record.RecordedAt.Before(before))
	})

	t.Run("list filters by type and preserves insertion order", func(t *testing.T) {
		s := NewMemoryStore()

		_, err := s.CreateAccessRecord(ctx, buildTestAccessInput(domain.ContentTypeEvent, "E1"))
		require.NoError(t, err)
		_, err = s.CreateAccessRecord(ctx, buildTestAccessInput(domain.ContentTypeReport, "R1"))
		require.NoError(t, err)
		_, err = s.CreateAccessRecord(ctx, buildTestAccessInput(domain.ContentTypeEvent, "E2"))
		require.NoError(t, err)

		events, err := s.ListAccessRecords(ctx, domain.ContentTypeEvent)
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, "E1", events[0].ItemID)
		assert.Equal(t, "E2", events[1].ItemID)

		reports, err := s.ListAccessRecords(ctx, domain.ContentTypeReport)
		require.NoError(t, err)
		require.Len(t, reports, 1)
		assert.Equal(t, "R1", reports[0].ItemID)
	})

	t.Run("range query is inclusive on both bounds", func(t *testing.T) {
		s := newMemoryStore()
		base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
		offsets := []time.Duration{0, 24 * time.Hour, 48 * time.Hour}
		for i, off := range offsets {
			when := base.Add(off)
			s.clock = func() time.Time { return when }
			_, err := s.CreateAccessRecord(ctx, buildTestAccessInput(domain.ContentTypeEvent, "E1"))
			require.NoError(t, err, "record %d", i)
		}

		records, err := s.ListAccessRecordsBetween(ctx, domain.ContentTypeEvent, base, base.Add(24*time.Hour))
		require.NoError(t, err)
		assert.Len(t, records, 2)
	})
}

func TestMemoryStoreItemTitles(t *testing.T) {
	ctx := context.Background()

	t.Run("upsert is last write wins", func(t *testing.T) {
		s := NewMemoryStore()

		require.NoError(t, s.UpsertItemTitle(ctx, domain.ContentTypeEvent, "E1", "Spring Fair"))
		require.NoError(t, s.UpsertItemTitle(ctx, domain.ContentTypeEvent, "E1", "Summer BBQ"))

		titles, err := s.GetItemTitles(ctx, domain.ContentTypeEvent)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"E1": "Summer BBQ"}, titles)
	})

	t.Run("titles are scoped per content type", func(t *testing.T) {
		s := NewMemoryStore()

		require.NoError(t, s.UpsertItemTitle(ctx, domain.ContentTypeEvent, "X", "Event X"))
		require.NoError(t, s.UpsertItemTitle(ctx, domain.ContentTypeReport, "X", "Report X"))

		eventTitles, err := s.GetItemTitles(ctx, domain.ContentTypeEvent)
		require.NoError(t, err)
		assert.Equal(t, "Event X", eventTitles["X"])

		reportTitles, err := s.GetItemTitles(ctx, domain.ContentTypeReport)
		require.NoError(t, err)
		assert.Equal(t, "Report X", reportTitles["X"])
	})
}

// =============================================================================
// Events CRUD
// =============================================================================

func TestMemoryStoreEvents(t *testing.T) {
	ctx := context.Background()

	t.Run("create and get round-trip", func(t *testing.T) {
		s := NewMemoryStore()

		event := buildTestEvent("Summer BBQ", true)
		require.NoError(t, s.CreateEvent(ctx, event))
		require.NotZero(t, event.ID)

		got, err := s.GetEvent(ctx, event.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "Summer BBQ", got.Title)
	})

	t.Run("get missing event returns nil without error", func(t *testing.T) {
		s := NewMemoryStore()

		got, err := s.GetEvent(ctx, 9999)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("published filter hides drafts", func(t *testing.T) {
		s := NewMemoryStore()

		require.NoError(t, s.CreateEvent(ctx, buildTestEvent("Published", true)))
		require.NoError(t, s.CreateEvent(ctx, buildTestEvent("Draft", false)))

		public, err := s.ListEvents(ctx, true, 0, 0)
		require.NoError(t, err)
		require.Len(t, public, 1)
		assert.Equal(t, "Published", public[0].Title)

		all, err := s.ListEvents(ctx, false, 0, 0)
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})

	t.Run("delete missing event returns not found", func(t *testing.T) {
		s := NewMemoryStore()
		assert.ErrorIs(t, s.DeleteEvent(ctx, 42), domain.ErrEventNotFound)
	})
}

// =============================================================================
// Admin users
// =============================================================================

func TestMemoryStoreUsers(t *testing.T) {
	ctx := context.Background()

	t.Run("duplicate username is rejected", func(t *testing.T) {
		s := NewMemoryStore()

		require.NoError(t, s.CreateUser(ctx, buildTestUser("hanako")))
		err := s.CreateUser(ctx, buildTestUser("hanako"))
		assert.ErrorIs(t, err, domain.ErrUsernameTaken)
	})

	t.Run("lookup by username and by user id", func(t *testing.T) {
		s := NewMemoryStore()

		user := buildTestUser("taro")
		require.NoError(t, s.CreateUser(ctx, user))

		byName, err := s.GetUserByUsername(ctx, "taro")
		require.NoError(t, err)
		require.NotNil(t, byName)

		byID, err := s.GetUserByUserID(ctx, user.UserID)
		require.NoError(t, err)
		require.NotNil(t, byID)
		assert.Equal(t, byName.UserID, byID.UserID)
	})
}

// =============================================================================
// Activities
// =============================================================================

func TestMemoryStoreActivities(t *testing.T) {
	ctx := context.Background()

	t.Run("recent activities come back newest first and capped", func(t *testing.T) {
		s := NewMemoryStore()

		for _, action := range []domain.ActivityAction{domain.ActivityCreate, domain.ActivityUpdate, domain.ActivityDelete} {
			require.NoError(t, s.CreateActivity(ctx, &schema.Activity{
				Actor:      "taro",
				Action:     action,
				EntityType: "event",
			}))
		}

		activities, err := s.ListRecentActivities(ctx, 2)
		require.NoError(t, err)
		require.Len(t, activities, 2)
		assert.Equal(t, domain.ActivityDelete, activities[0].Action)
		assert.Equal(t, domain.ActivityUpdate, activities[1].Action)
	})
}

// =============================================================================
// Pool settings
// =============================================================================

func TestNormalizeConnectionPoolSettings(t *testing.T) {
	t.Run("zero values get defaults", func(t *testing.T) {
		open, idle, lifetime, idleTime := NormalizeConnectionPoolSettings(0, 0, 0, 0)
		assert.Equal(t, 20, open)
		assert.Equal(t, 5, idle)
		assert.Equal(t, 5*time.Minute, lifetime)
		assert.Equal(t, 10*time.Minute, idleTime)
	})

	t.Run("idle is clamped to open", func(t *testing.T) {
		open, idle, _, _ := NormalizeConnectionPoolSettings(3, 10, time.Minute, time.Minute)
		assert.Equal(t, 3, open)
		assert.Equal(t, 3, idle)
	})
}
