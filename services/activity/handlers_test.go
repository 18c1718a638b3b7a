package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pavitra93/go-property-management/shared/events"
	"github.com/pavitra93/go-property-management/shared/middleware"
	"github.com/pavitra93/go-property-management/shared/models"
	"github.com/pavitra93/go-property-management/shared/store"
	"github.com/pavitra93/go-property-management/shared/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedStats ConsumerStats

func (f fixedStats) Stats() ConsumerStats { return ConsumerStats(f) }

func setup(t *testing.T, stats statsSource) (*store.Store, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	s, _ := testutil.NewStore(t)
	auth, err := middleware.NewAuthMiddleware(middleware.AuthOptions{Users: s.Users})
	require.NoError(t, err)

	for id, u := range map[string]*models.User{
		"root":  {Role: models.RoleSuperAdmin, PropertyIDs: []string{}},
		"admin": {Role: models.RoleAdmin, PropertyIDs: []string{"p1"}},
	} {
		u.ID = id
		require.NoError(t, s.Users.Create(context.Background(), u))
	}
	return s, newRouter(s, stats, auth)
}

func record(t *testing.T, s *store.Store, typ events.Type, propertyID string, at time.Time) {
	t.Helper()
	a := &models.Activity{EventID: events.New(typ, at).ID, Type: string(typ), PropertyID: propertyID, OccurredAt: at}
	require.NoError(t, s.Activities.Create(context.Background(), a))
}

func get(t *testing.T, r http.Handler, path, sub string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if sub != "" {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": sub}).SignedString([]byte("test"))
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func feedOf(t *testing.T, w *httptest.ResponseRecorder) []models.Activity {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var env struct {
		Data []models.Activity `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env.Data
}

func TestFeedIsScopedAndNewestFirst(t *testing.T) {
	s, r := setup(t, nil)
	base := testutil.Epoch
	record(t, s, events.TenantAssigned, "p1", base)
	record(t, s, events.UnitReleased, "p1", base.Add(2*time.Hour))
	record(t, s, events.LeaseCreated, "p2", base.Add(time.Hour))

	all := feedOf(t, get(t, r, "/activity", "root"))
	require.Len(t, all, 3)
	assert.Equal(t, string(events.UnitReleased), all[0].Type)
	assert.Equal(t, string(events.LeaseCreated), all[1].Type)
	assert.Equal(t, string(events.TenantAssigned), all[2].Type)

	mine := feedOf(t, get(t, r, "/activity", "admin"))
	require.Len(t, mine, 2)
	for _, a := range mine {
		assert.Equal(t, "p1", a.PropertyID)
	}

	assert.Len(t, feedOf(t, get(t, r, "/activity?property_id=p2", "root")), 1)
	assert.Equal(t, http.StatusForbidden, get(t, r, "/activity?property_id=p2", "admin").Code)
}

func TestFeedLimit(t *testing.T) {
	s, r := setup(t, nil)
	for i := 0; i < 5; i++ {
		record(t, s, events.UnitMaintenance, "p1", testutil.Epoch.Add(time.Duration(i)*time.Minute))
	}

	feed := feedOf(t, get(t, r, "/activity?limit=2", "root"))
	require.Len(t, feed, 2)
	assert.True(t, feed[0].OccurredAt.Equal(testutil.Epoch.Add(4*time.Minute)))

	assert.Equal(t, http.StatusBadRequest, get(t, r, "/activity?limit=0", "root").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, r, "/activity?limit=ten", "root").Code)
}

func TestFeedRequiresAuth(t *testing.T) {
	_, r := setup(t, nil)
	assert.Equal(t, http.StatusUnauthorized, get(t, r, "/activity", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(t, r, "/activity", "stranger").Code)
	assert.Equal(t, http.StatusOK, get(t, r, "/health", "").Code)
}

func TestConsumerStatsEndpoint(t *testing.T) {
	_, r := setup(t, fixedStats{Persisted: 7, Duplicates: 1})

	w := get(t, r, "/activity/stats", "root")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"persisted":7`)
	assert.Equal(t, http.StatusForbidden, get(t, r, "/activity/stats", "admin").Code)

	_, idle := setup(t, nil)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, idle, "/activity/stats", "root").Code)
}
