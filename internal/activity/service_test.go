package activity

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kizunalab/machiba/internal/domain"
	"github.com/kizunalab/machiba/internal/logger"
	"github.com/kizunalab/machiba/internal/store/schema"
)

type fakeRepo struct {
	entries   []*schema.Activity
	createErr error
}

func (f *fakeRepo) CreateActivity(_ context.Context, activity *schema.Activity) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.entries = append(f.entries, activity)
	return nil
}

func (f *fakeRepo) ListRecentActivities(_ context.Context, limit int) ([]*schema.Activity, error) {
	var out []*schema.Activity
	for i := len(f.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, f.entries[i])
	}
	return out, nil
}

func TestMain(m *testing.M) {
	_ = logger.Initialize(logger.Config{Debug: true})
	m.Run()
}

func TestRecord(t *testing.T) {
	ctx := context.Background()

	t.Run("stores actor, action and detail", func(t *testing.T) {
		repo := &fakeRepo{}
		svc := NewService(repo)

		svc.Record(ctx, Entry{
			Actor:      "taro",
			Action:     domain.ActivityUpdate,
			EntityType: "event",
			EntityID:   "12",
			Detail:     map[string]any{"field": "title"},
		})

		require.Len(t, repo.entries, 1)
		entry := repo.entries[0]
		assert.Equal(t, "taro", entry.Actor)
		assert.Equal(t, domain.ActivityUpdate, entry.Action)
		require.NotNil(t, entry.EntityID)
		assert.Equal(t, "12", *entry.EntityID)

		var detail map[string]any
		require.NoError(t, json.Unmarshal(entry.Detail, &detail))
		assert.Equal(t, "title", detail["field"])
	})

	t.Run("store failure is swallowed", func(t *testing.T) {
		repo := &fakeRepo{createErr: errors.New("db down")}
		svc := NewService(repo)

		// Must not panic or propagate
		svc.Record(ctx, Entry{Actor: "taro", Action: domain.ActivityDelete, EntityType: "report"})
		assert.Empty(t, repo.entries)
	})
}

func TestRecent(t *testing.T) {
	ctx := context.Background()

	repo := &fakeRepo{}
	svc := NewService(repo)

	svc.Record(ctx, Entry{Actor: "taro", Action: domain.ActivityCreate, EntityType: "event"})
	svc.Record(ctx, Entry{Actor: "hanako", Action: domain.ActivityDelete, EntityType: "event"})

	recent, err := svc.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "hanako", recent[0].Actor)
}
