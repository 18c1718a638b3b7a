package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pavitra93/go-property-management/shared/events"
	"github.com/pavitra93/go-property-management/shared/models"
	"github.com/pavitra93/go-property-management/shared/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

type fakeDirectory struct {
	users map[string]*models.User
	err   error
}

func (d *fakeDirectory) GetByID(_ context.Context, id string) (*models.User, error) {
	if d.err != nil {
		return nil, d.err
	}
	if u, ok := d.users[id]; ok {
		return u, nil
	}
	return nil, fmt.Errorf("%w: users %s", store.ErrNotFound, id)
}

type fakeAttributes map[string]map[string]string

func (f fakeAttributes) UserAttributes(_ context.Context, sub string) (map[string]string, error) {
	attrs, ok := f[sub]
	if !ok {
		return nil, errors.New("UserNotFoundException")
	}
	return attrs, nil
}

type hmacValidator struct{}

func (hmacValidator) ValidateToken(tokenString string) (*jwt.Token, error) {
	return jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return testSecret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
}

func sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)
	return s
}

func staff(id string, role models.UserRole, propertyIDs ...string) *models.User {
	u := &models.User{Role: role, PropertyIDs: propertyIDs}
	u.ID = id
	return u
}

func newRouter(t *testing.T, am *AuthMiddleware, guards ...gin.HandlerFunc) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := append([]gin.HandlerFunc{am.RequireAuth()}, guards...)
	handlers = append(handlers, func(c *gin.Context) {
		user := CurrentUser(c)
		c.JSON(http.StatusOK, gin.H{
			"id":           user.ID,
			"role":         user.Role,
			"property_ids": user.PropertyIDs,
			"actor":        events.ActorFrom(c.Request.Context()),
		})
	})
	r.GET("/me", handlers...)
	return r
}

func call(r http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuthUsesDirectoryRecord(t *testing.T) {
	dir := &fakeDirectory{users: map[string]*models.User{"u1": staff("u1", models.RoleAdmin, "p1")}}
	am, err := NewAuthMiddleware(AuthOptions{Users: dir})
	require.NoError(t, err)

	// the directory record wins over token claims
	token := sign(t, jwt.MapClaims{"sub": "u1", "token_use": "id", "custom:role": "super_admin"})
	w := call(newRouter(t, am), token)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"u1","role":"admin","property_ids":["p1"],"actor":"u1"}`, w.Body.String())
}

func TestRequireAuthFallsBackToClaims(t *testing.T) {
	am, err := NewAuthMiddleware(AuthOptions{Users: &fakeDirectory{}})
	require.NoError(t, err)

	token := sign(t, jwt.MapClaims{"sub": "u2", "custom:role": "admin", "custom:property_ids": "p1, p2"})
	w := call(newRouter(t, am), token)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"u2","role":"admin","property_ids":["p1","p2"],"actor":"u2"}`, w.Body.String())
}

func TestRequireAuthFallsBackToIdentityProvider(t *testing.T) {
	attrs := fakeAttributes{"u3": {"custom:role": "super_admin", "email": "ops@example.com"}}
	am, err := NewAuthMiddleware(AuthOptions{Users: &fakeDirectory{}, Attributes: attrs})
	require.NoError(t, err)
	r := newRouter(t, am)

	w := call(r, sign(t, jwt.MapClaims{"sub": "u3", "token_use": "access"}))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"role":"super_admin"`)

	w = call(r, sign(t, jwt.MapClaims{"sub": "stranger", "token_use": "access"}))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuthRejects(t *testing.T) {
	am, err := NewAuthMiddleware(AuthOptions{Users: &fakeDirectory{}})
	require.NoError(t, err)
	r := newRouter(t, am)

	tests := []struct {
		name  string
		token string
	}{
		{"missing token", ""},
		{"garbage", "not-a-jwt"},
		{"no subject", sign(t, jwt.MapClaims{"custom:role": "admin"})},
		{"unknown role", sign(t, jwt.MapClaims{"sub": "u4", "custom:role": "tenant_owner"})},
		{"wrong token use", sign(t, jwt.MapClaims{"sub": "u4", "custom:role": "admin", "token_use": "refresh"})},
		{"expired", sign(t, jwt.MapClaims{"sub": "u4", "custom:role": "admin", "exp": time.Now().Add(-time.Minute).Unix()})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := call(r, tt.token)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), `"success":false`)
		})
	}
}

func TestRequireAuthDirectoryUnavailable(t *testing.T) {
	dir := &fakeDirectory{err: fmt.Errorf("%w: connection refused", store.ErrTransient)}
	am, err := NewAuthMiddleware(AuthOptions{Users: dir})
	require.NoError(t, err)

	w := call(newRouter(t, am), sign(t, jwt.MapClaims{"sub": "u1", "custom:role": "admin"}))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRequireAuthVerifiesSignatures(t *testing.T) {
	dir := &fakeDirectory{users: map[string]*models.User{"u1": staff("u1", models.RoleSuperAdmin)}}
	am, err := NewAuthMiddleware(AuthOptions{Users: dir, VerifySignatures: true, Validator: hmacValidator{}})
	require.NoError(t, err)
	r := newRouter(t, am)

	assert.Equal(t, http.StatusOK, call(r, sign(t, jwt.MapClaims{"sub": "u1"})).Code)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u1"}).SignedString([]byte("other"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, call(r, forged).Code)
}

func TestNewAuthMiddlewareRequiresVerifier(t *testing.T) {
	_, err := NewAuthMiddleware(AuthOptions{Users: &fakeDirectory{}, VerifySignatures: true})
	assert.Error(t, err)

	_, err = NewAuthMiddleware(AuthOptions{})
	assert.Error(t, err)
}

func TestRequireRole(t *testing.T) {
	dir := &fakeDirectory{users: map[string]*models.User{
		"root":  staff("root", models.RoleSuperAdmin),
		"admin": staff("admin", models.RoleAdmin, "p1"),
	}}
	am, err := NewAuthMiddleware(AuthOptions{Users: dir})
	require.NoError(t, err)
	r := newRouter(t, am, am.RequireRole(models.RoleSuperAdmin))

	assert.Equal(t, http.StatusOK, call(r, sign(t, jwt.MapClaims{"sub": "root"})).Code)
	assert.Equal(t, http.StatusForbidden, call(r, sign(t, jwt.MapClaims{"sub": "admin"})).Code)
}

func TestSplitClaim(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitClaim(" a,,b "))
	assert.Equal(t, []string{}, splitClaim(""))
}
