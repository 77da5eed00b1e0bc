package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/kizunalab/machiba/internal/activity"
	"github.com/kizunalab/machiba/internal/analytics"
	"github.com/kizunalab/machiba/internal/api/middleware"
	"github.com/kizunalab/machiba/internal/auth"
	"github.com/kizunalab/machiba/internal/domain"
	"github.com/kizunalab/machiba/internal/logger"
	"github.com/kizunalab/machiba/internal/store"
	"github.com/kizunalab/machiba/internal/store/schema"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	if err := logger.Initialize(logger.Config{Debug: true}); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type testEnv struct {
	router *gin.Engine
	store  store.Store
	issuer *auth.TokenIssuer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dataStore := store.NewMemoryStore()
	analyticsService := analytics.NewService(dataStore, nil, analytics.Config{
		DefaultDays: 30,
		MaxDays:     365,
	})
	activityService := activity.NewService(dataStore)
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)

	handler := NewHandler(Deps{
		Store:             dataStore,
		Analytics:         analyticsService,
		Activities:        activityService,
		Issuer:            issuer,
		LineChannelSecret: "test-channel-secret",
	})

	router := gin.New()
	SetupRoutes(router, handler, middleware.AuthConfig{
		Issuer:  issuer,
		APIKeys: []string{"test-api-key"},
	})

	return &testEnv{router: router, store: dataStore, issuer: issuer}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) adminToken(t *testing.T) string {
	t.Helper()
	token, _, err := e.issuer.Issue("admin-user-id", "admin", domain.RoleAdmin)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestRecordAccess(t *testing.T) {
	env := newTestEnv(t)

	t.Run("records a view and returns its id", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/v1/analytics/record", map[string]interface{}{
			"type":   "event",
			"itemId": "E1",
			"title":  "Summer BBQ",
		}, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Success  bool   `json:"success"`
			RecordID string `json:"recordId"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.Len(t, resp.RecordID, 26)
	})

	t.Run("rejects missing type", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/v1/analytics/record", map[string]interface{}{
			"itemId": "E1",
		}, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects missing itemId", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/v1/analytics/record", map[string]interface{}{
			"type": "event",
		}, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects unknown type", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/v1/analytics/record", map[string]interface{}{
			"type":   "page",
			"itemId": "E1",
		}, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGetStats(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 3; i++ {
		body := map[string]interface{}{"type": "event", "itemId": "E1"}
		if i < 2 {
			body["title"] = "Summer BBQ"
		}
		w := env.do(t, http.MethodPost, "/api/v1/analytics/record", body, nil)
		require.Equal(t, http.StatusOK, w.Code)
	}
	w := env.do(t, http.MethodPost, "/api/v1/analytics/record", map[string]interface{}{
		"type": "report", "itemId": "E1",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	t.Run("type alone returns ranked list", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/v1/analytics/stats?type=event", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Success bool `json:"success"`
			Data    []struct {
				ItemID    string `json:"item_id"`
				Title     string `json:"title"`
				ViewCount int    `json:"view_count"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Data, 1)
		assert.Equal(t, "E1", resp.Data[0].ItemID)
		assert.Equal(t, "Summer BBQ", resp.Data[0].Title)
		assert.Equal(t, 3, resp.Data[0].ViewCount)
	})

	t.Run("report stats are scoped to their type", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/v1/analytics/stats?type=report&id=E1", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data struct {
				ViewCount int `json:"view_count"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 1, resp.Data.ViewCount)
	})

	t.Run("unknown id returns not found", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/v1/analytics/stats?type=event&id=unknown", nil, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("missing type returns bad request", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/v1/analytics/stats", nil, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("daily series has one bucket per day", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/v1/analytics/stats?type=event&daily=true&days=7", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data []struct {
				Date  string `json:"date"`
				Count int    `json:"count"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Data, 8)

		total := 0
		for _, bucket := range resp.Data {
			total += bucket.Count
		}
		assert.Equal(t, 3, total)
	})
}

func TestPublicEvents(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	published := &schema.Event{Title: "Autumn Festival", StartsAt: time.Now().UTC(), Published: true}
	draft := &schema.Event{Title: "Draft Event", StartsAt: time.Now().UTC(), Published: false}
	require.NoError(t, env.store.CreateEvent(ctx, published))
	require.NoError(t, env.store.CreateEvent(ctx, draft))

	t.Run("list excludes unpublished events", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/v1/events", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data []struct {
				Title string `json:"title"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Data, 1)
		assert.Equal(t, "Autumn Festival", resp.Data[0].Title)
	})

	t.Run("get hides unpublished events", func(t *testing.T) {
		w := env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/events/%d", draft.ID), nil, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("get returns published events", func(t *testing.T) {
		w := env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/events/%d", published.ID), nil, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, env.store.CreateUser(ctx, &schema.AdminUser{
		UserID:       "user-1",
		Username:     "tanaka",
		DisplayName:  "Tanaka",
		PasswordHash: string(hash),
		Role:         domain.RoleAdmin,
	}))

	t.Run("issues a token for valid credentials", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/v1/admin/login", map[string]interface{}{
			"username": "tanaka",
			"password": "correct horse",
		}, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data struct {
				Token string `json:"token"`
				User  struct {
					Username string `json:"username"`
				} `json:"user"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.Data.Token)
		assert.Equal(t, "tanaka", resp.Data.User.Username)

		claims, err := env.issuer.Verify(resp.Data.Token)
		require.NoError(t, err)
		assert.Equal(t, "tanaka", claims.Username)
	})

	t.Run("rejects wrong password", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/v1/admin/login", map[string]interface{}{
			"username": "tanaka",
			"password": "wrong",
		}, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("rejects unknown user", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/v1/admin/login", map[string]interface{}{
			"username": "nobody",
			"password": "whatever",
		}, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestAdminEventManagement(t *testing.T) {
	env := newTestEnv(t)
	token := env.adminToken(t)

	t.Run("rejects requests without a token", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/v1/admin/events", map[string]interface{}{
			"title":    "Unauthorized",
			"startsAt": time.Now().UTC(),
		}, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("creates and updates an event", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/v1/admin/events", map[string]interface{}{
			"title":    "Mochi Making",
			"venue":    "Community Center",
			"startsAt": time.Now().UTC().Add(48 * time.Hour),
			"feeYen":   500,
		}, map[string]string{"Authorization": token})
		require.Equal(t, http.StatusCreated, w.Code)

		var created struct {
			Data struct {
				ID    uint64 `json:"id"`
				Title string `json:"title"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
		assert.Equal(t, "Mochi Making", created.Data.Title)

		w = env.do(t, http.MethodPut, fmt.Sprintf("/api/v1/admin/events/%d", created.Data.ID), map[string]interface{}{
			"title":     "Mochi Making Workshop",
			"startsAt":  time.Now().UTC().Add(48 * time.Hour),
			"published": true,
		}, map[string]string{"Authorization": token})
		require.Equal(t, http.StatusOK, w.Code)

		event, err := env.store.GetEvent(context.Background(), created.Data.ID)
		require.NoError(t, err)
		require.NotNil(t, event)
		assert.Equal(t, "Mochi Making Workshop", event.Title)
		assert.True(t, event.Published)
	})

	t.Run("rejects an event without a title", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/v1/admin/events", map[string]interface{}{
			"startsAt": time.Now().UTC(),
		}, map[string]string{"Authorization": token})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("deleting a missing event returns not found", func(t *testing.T) {
		w := env.do(t, http.MethodDelete, "/api/v1/admin/events/99999", nil, map[string]string{"Authorization": token})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("accepts an api key", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/v1/admin/events", nil, map[string]string{
			"Authorization": "apikey test-api-key",
		})
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestAdminUserManagement(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.adminToken(t)

	editorToken, _, err := env.issuer.Issue("editor-id", "editor", domain.RoleEditor)
	require.NoError(t, err)

	t.Run("editor cannot manage users", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/v1/admin/users", nil, map[string]string{
			"Authorization": "Bearer " + editorToken,
		})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("admin creates a user", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/v1/admin/users", map[string]interface{}{
			"username": "suzuki",
			"password": "long enough password",
			"role":     "editor",
		}, map[string]string{"Authorization": adminToken})
		require.Equal(t, http.StatusCreated, w.Code)

		user, err := env.store.GetUserByUsername(context.Background(), "suzuki")
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, domain.RoleEditor, user.Role)
	})

	t.Run("duplicate username conflicts", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/v1/admin/users", map[string]interface{}{
			"username": "suzuki",
			"password": "long enough password",
		}, map[string]string{"Authorization": adminToken})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("short passwords are rejected", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/v1/admin/users", map[string]interface{}{
			"username": "short",
			"password": "tiny",
		}, map[string]string{"Authorization": adminToken})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestTemplates(t *testing.T) {
	env := newTestEnv(t)
	token := env.adminToken(t)

	w := env.do(t, http.MethodPost, "/api/v1/admin/templates", map[string]interface{}{
		"name":      "Event reminder",
		"body":      "Hi {name}, {event} starts at {time}!",
		"variables": []string{"name", "event", "time"},
	}, map[string]string{"Authorization": token})
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Data struct {
			TemplateID string `json:"templateId"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.Data.TemplateID)

	t.Run("rejects undeclared variables", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/v1/admin/templates", map[string]interface{}{
			"name":      "Broken",
			"body":      "No placeholders here",
			"variables": []string{"name"},
		}, map[string]string{"Authorization": token})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("renders with variable values", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/v1/admin/templates/"+created.Data.TemplateID+"/render", map[string]interface{}{
			"variables": map[string]string{
				"name":  "Tanaka",
				"event": "Summer BBQ",
				"time":  "18:00",
			},
		}, map[string]string{"Authorization": token})
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data struct {
				Text string `json:"text"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "Hi Tanaka, Summer BBQ starts at 18:00!", resp.Data.Text)
	})

	t.Run("render of missing template is not found", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/v1/admin/templates/nonexistent/render", map[string]interface{}{}, map[string]string{"Authorization": token})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestActivitiesAudit(t *testing.T) {
	env := newTestEnv(t)
	token := env.adminToken(t)

	w := env.do(t, http.MethodPost, "/api/v1/admin/events", map[string]interface{}{
		"title":    "Audited Event",
		"startsAt": time.Now().UTC(),
	}, map[string]string{"Authorization": token})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/admin/activities", nil, map[string]string{"Authorization": token})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []struct {
			Actor      string `json:"actor"`
			Action     string `json:"action"`
			EntityType string `json:"entityType"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Data)
	assert.Equal(t, "admin", resp.Data[0].Actor)
	assert.Equal(t, "create", resp.Data[0].Action)
	assert.Equal(t, "event", resp.Data[0].EntityType)
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
