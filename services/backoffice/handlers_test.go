package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pavitra93/go-property-management/shared/events"
	"github.com/pavitra93/go-property-management/shared/lifecycle"
	"github.com/pavitra93/go-property-management/shared/middleware"
	"github.com/pavitra93/go-property-management/shared/models"
	"github.com/pavitra93/go-property-management/shared/occupancy"
	"github.com/pavitra93/go-property-management/shared/stats"
	"github.com/pavitra93/go-property-management/shared/store"
	"github.com/pavitra93/go-property-management/shared/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	t        *testing.T
	store    *store.Store
	clock    *testutil.Clock
	recorder *testutil.Recorder
	router   *gin.Engine
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	s, clock := testutil.NewStore(t)
	engine := lifecycle.NewEngine(90, clock.Now)
	recorder := &testutil.Recorder{}
	app := NewApp(s, engine, occupancy.NewCoordinator(s, engine, recorder))
	auth, err := middleware.NewAuthMiddleware(middleware.AuthOptions{Users: s.Users})
	require.NoError(t, err)

	h := &harness{t: t, store: s, clock: clock, recorder: recorder, router: newRouter(app, auth)}
	h.user("root", models.RoleSuperAdmin)
	return h
}

func (h *harness) user(id string, role models.UserRole, propertyIDs ...string) {
	h.t.Helper()
	if propertyIDs == nil {
		propertyIDs = []string{}
	}
	u := &models.User{Role: role, PropertyIDs: propertyIDs}
	u.ID = id
	require.NoError(h.t, h.store.Users.Create(context.Background(), u))
}

func (h *harness) do(method, path, sub string, body interface{}) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if sub != "" {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": sub}).SignedString([]byte("test"))
		require.NoError(h.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var env struct {
		Success bool
		Data    T
		Error   string
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env.Data
}

// create posts body and returns the created record
func create[T any](h *harness, path, sub string, body interface{}) T {
	h.t.Helper()
	w := h.do(http.MethodPost, path, sub, body)
	require.Equal(h.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[T](h.t, w)
}

func (h *harness) property(name string) models.Property {
	return create[models.Property](h, "/properties", "root", gin.H{"name": name, "type": "residential"})
}

func (h *harness) unit(propertyID, number string) models.Unit {
	return create[models.Unit](h, "/units", "root", gin.H{"property_id": propertyID, "unit_number": number, "rent": 1200})
}

func (h *harness) tenant(propertyID, name string) models.Tenant {
	return create[models.Tenant](h, "/tenants", "root", gin.H{"name": name, "property_id": propertyID})
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	w := h.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"breaker":"closed"`)
}

func TestRoutesRequireAuth(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/units", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/units", "nobody", nil).Code)

	w := h.do(http.MethodGet, "/me", "root", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.RoleSuperAdmin, decode[models.User](t, w).Role)
}

func TestAssignAndReleaseOverHTTP(t *testing.T) {
	h := newHarness(t)
	p := h.property("Harbour View")
	u := h.unit(p.ID, "1A")
	tn := h.tenant(p.ID, "Ada")

	w := h.do(http.MethodPost, "/units/"+u.ID+"/assign", "root", gin.H{"tenant_id": tn.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	occ := decode[occupancy.Occupancy](t, w)
	assert.Equal(t, models.UnitOccupied, occ.Unit.Status)
	assert.Equal(t, u.ID, *occ.Tenant.UnitID)

	other := h.tenant(p.ID, "Grace")
	w = h.do(http.MethodPost, "/units/"+u.ID+"/assign", "root", gin.H{"tenant_id": other.ID})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = h.do(http.MethodGet, "/integrity", "root", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[occupancy.Report](t, w).Consistent())

	w = h.do(http.MethodPost, "/units/"+u.ID+"/release", "root", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.UnitVacant, decode[models.Unit](t, w).Status)

	w = h.do(http.MethodGet, "/tenants/"+tn.ID, "root", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decode[models.Tenant](t, w).UnitID)

	for _, e := range h.recorder.Events() {
		assert.Equal(t, "root", e.ActorID)
	}
	assert.Equal(t, []events.Type{events.TenantAssigned, events.UnitReleased}, h.recorder.Types())
}

func TestAdminSeesOnlyAssignedProperties(t *testing.T) {
	h := newHarness(t)
	p1 := h.property("Harbour View")
	p2 := h.property("Elm Court")
	u1 := h.unit(p1.ID, "1A")
	u2 := h.unit(p2.ID, "2B")
	h.user("manager", models.RoleAdmin, p1.ID)

	w := h.do(http.MethodGet, "/units", "manager", nil)
	require.Equal(t, http.StatusOK, w.Code)
	units := decode[[]models.Unit](t, w)
	require.Len(t, units, 1)
	assert.Equal(t, u1.ID, units[0].ID)

	w = h.do(http.MethodGet, "/properties", "manager", nil)
	require.Equal(t, http.StatusOK, w.Code)
	props := decode[[]models.Property](t, w)
	require.Len(t, props, 1)
	assert.Equal(t, p1.ID, props[0].ID)

	w = h.do(http.MethodGet, "/units?property_id="+p2.ID, "manager", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]models.Unit](t, w))

	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/units/"+u2.ID, "manager", nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodPost, "/units/"+u2.ID+"/release", "manager", nil).Code)
	assert.Equal(t, http.StatusForbidden,
		h.do(http.MethodPost, "/units", "manager", gin.H{"property_id": p2.ID, "unit_number": "9"}).Code)
	assert.Equal(t, http.StatusForbidden, h.do(http.MethodPost, "/properties", "manager", gin.H{"name": "Mine"}).Code)
	assert.Equal(t, http.StatusForbidden, h.do(http.MethodDelete, "/properties/"+p1.ID, "manager", nil).Code)
	assert.Equal(t, http.StatusForbidden, h.do(http.MethodGet, "/users", "manager", nil).Code)

	w = h.do(http.MethodPost, "/units", "manager", gin.H{"property_id": p1.ID, "unit_number": "1B"})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestBindingAndValidationErrors(t *testing.T) {
	h := newHarness(t)
	p := h.property("Harbour View")

	w := h.do(http.MethodPost, "/units", "root", gin.H{"property_id": p.ID, "unit_number": "1A", "status": "occupied"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodPost, "/units", "root", gin.H{"property_id": p.ID, "unit_number": "1A", "tenant_id": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "unknown fields are rejected")

	w = h.do(http.MethodPost, "/units", "root", `{"property_id":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodPost, "/units", "root", gin.H{"property_id": "missing", "unit_number": "1A"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = h.do(http.MethodPatch, "/units/missing", "root", gin.H{"rent": 10})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLeaseEndpoints(t *testing.T) {
	h := newHarness(t)
	p := h.property("Harbour View")
	u := h.unit(p.ID, "1A")
	tn := h.tenant(p.ID, "Ada")
	now := h.clock.Now()

	lease := create[leaseView](h, "/leases", "root", gin.H{
		"tenant_id": tn.ID, "unit_id": u.ID, "property_id": p.ID, "monthly_rent": 1500,
		"start_date": now.Format(time.RFC3339), "end_date": now.AddDate(0, 0, 30).Format(time.RFC3339),
	})
	assert.Equal(t, models.LeaseExpiringSoon, lease.EffectiveStatus)
	assert.Equal(t, 30, lease.DaysRemaining)

	w := h.do(http.MethodGet, "/leases?status=expiring_soon", "root", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]leaseView](t, w), 1)
	w = h.do(http.MethodGet, "/leases?status=active", "root", nil)
	assert.Empty(t, decode[[]leaseView](t, w))

	w = h.do(http.MethodPatch, "/leases/"+lease.ID, "root", gin.H{"late_fee": 50})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 50.0, decode[leaseView](t, w).LateFee)

	w = h.do(http.MethodPost, "/leases/"+lease.ID+"/renew", "root", gin.H{"end_date": now.AddDate(1, 0, 0).Format(time.RFC3339)})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	renewed := decode[leaseView](t, w)
	assert.Equal(t, models.LeaseActive, renewed.EffectiveStatus)
	require.NotNil(t, renewed.LastRenewalDate)

	assert.Equal(t, http.StatusConflict, h.do(http.MethodDelete, "/leases/"+lease.ID, "root", nil).Code)

	w = h.do(http.MethodPost, "/leases/"+lease.ID+"/terminate", "root", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.LeaseTerminated, decode[leaseView](t, w).EffectiveStatus)

	w = h.do(http.MethodPost, "/leases/"+lease.ID+"/renew", "root", gin.H{"end_date": now.AddDate(2, 0, 0).Format(time.RFC3339)})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = h.do(http.MethodGet, "/units/"+u.ID, "root", nil)
	assert.Equal(t, models.UnitVacant, decode[models.Unit](t, w).Status)

	assert.Equal(t, http.StatusOK, h.do(http.MethodDelete, "/leases/"+lease.ID, "root", nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/leases/"+lease.ID, "root", nil).Code)
}

func TestPaymentsAndDashboard(t *testing.T) {
	h := newHarness(t)
	p := h.property("Harbour View")
	other := h.property("Elm Court")
	u := h.unit(p.ID, "1A")
	h.unit(p.ID, "1B")
	tn := h.tenant(p.ID, "Ada")
	now := h.clock.Now()
	create[leaseView](h, "/leases", "root", gin.H{
		"tenant_id": tn.ID, "unit_id": u.ID, "property_id": p.ID, "monthly_rent": 1000,
		"start_date": now.Format(time.RFC3339), "end_date": now.AddDate(1, 0, 0).Format(time.RFC3339),
	})

	w := h.do(http.MethodPost, "/payments", "root", gin.H{
		"tenant_id": tn.ID, "unit_id": u.ID, "property_id": other.ID, "amount": 1000,
		"due_date": now.Format(time.RFC3339),
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, "unit belongs to another property")

	create[paymentView](h, "/payments", "root", gin.H{
		"tenant_id": tn.ID, "unit_id": u.ID, "property_id": p.ID, "amount": 1000,
		"due_date": now.Format(time.RFC3339), "status": "paid",
	})
	overdue := create[paymentView](h, "/payments", "root", gin.H{
		"tenant_id": tn.ID, "unit_id": u.ID, "property_id": p.ID, "amount": 400,
		"due_date": now.AddDate(0, 0, -5).Format(time.RFC3339),
	})
	assert.Equal(t, models.PaymentOverdue, overdue.EffectiveStatus)
	assert.Equal(t, models.PaymentPending, overdue.Status)

	w = h.do(http.MethodGet, "/payments?status=overdue", "root", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]paymentView](t, w), 1)

	w = h.do(http.MethodGet, "/dashboard/stats", "root", nil)
	require.Equal(t, http.StatusOK, w.Code)
	d := decode[stats.Dashboard](t, w)
	assert.Equal(t, 2, d.TotalProperties)
	assert.Equal(t, 2, d.TotalUnits)
	assert.Equal(t, 50.0, d.OccupancyRate)
	assert.Equal(t, 1000.0, d.TotalRevenue)
	assert.Equal(t, 1000.0, d.CollectedThisMonth)
	assert.Equal(t, 100.0, d.CollectionRate)
	assert.Equal(t, 1, d.OverduePayments)
	assert.Equal(t, 400.0, d.OverdueAmount)
	assert.Equal(t, 1, d.ActiveLeases)

	h.user("elm-manager", models.RoleAdmin, other.ID)
	w = h.do(http.MethodGet, "/dashboard/stats", "elm-manager", nil)
	require.Equal(t, http.StatusOK, w.Code)
	d = decode[stats.Dashboard](t, w)
	assert.Equal(t, 1, d.TotalProperties)
	assert.Equal(t, 0, d.TotalUnits)
	assert.Equal(t, 0.0, d.OccupancyRate)
}

func TestMaintenanceEndpoints(t *testing.T) {
	h := newHarness(t)
	p := h.property("Harbour View")
	u := h.unit(p.ID, "1A")

	m := create[models.Maintenance](h, "/maintenance", "root", gin.H{
		"property_id": p.ID, "unit_id": u.ID, "title": "Leaking tap", "priority": "urgent",
	})
	assert.Equal(t, models.MaintenancePending, m.Status)

	w := h.do(http.MethodPatch, "/maintenance/"+m.ID, "root", gin.H{"status": "completed"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	done := decode[models.Maintenance](t, w)
	require.NotNil(t, done.CompletedAt)

	w = h.do(http.MethodGet, "/maintenance?status=pending", "root", nil)
	assert.Empty(t, decode[[]models.Maintenance](t, w))

	w = h.do(http.MethodPost, "/units/"+u.ID+"/maintenance", "root", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.UnitMaintenance, decode[models.Unit](t, w).Status)
	w = h.do(http.MethodPost, "/units/"+u.ID+"/restore", "root", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.UnitVacant, decode[models.Unit](t, w).Status)
}

func TestRecordsRejectTenantOutsideProperty(t *testing.T) {
	h := newHarness(t)
	p := h.property("Harbour View")
	other := h.property("Elm Court")
	u := h.unit(p.ID, "1A")
	local := h.tenant(p.ID, "Ada")
	foreign := h.tenant(other.ID, "Bob")
	h.user("admin-p", models.RoleAdmin, p.ID)
	due := h.clock.Now().Format(time.RFC3339)

	cases := []struct {
		name string
		sub  string
		path string
		body gin.H
	}{
		{"payment with hidden tenant", "admin-p", "/payments", gin.H{
			"tenant_id": foreign.ID, "unit_id": u.ID, "property_id": p.ID, "amount": 100, "due_date": due,
		}},
		{"payment with tenant of another property", "root", "/payments", gin.H{
			"tenant_id": foreign.ID, "unit_id": u.ID, "property_id": p.ID, "amount": 100, "due_date": due,
		}},
		{"payment with unknown tenant", "root", "/payments", gin.H{
			"tenant_id": "missing", "unit_id": u.ID, "property_id": p.ID, "amount": 100, "due_date": due,
		}},
		{"maintenance with hidden tenant", "admin-p", "/maintenance", gin.H{
			"property_id": p.ID, "tenant_id": foreign.ID, "title": "Leaking tap",
		}},
		{"maintenance with tenant of another property", "root", "/maintenance", gin.H{
			"property_id": p.ID, "tenant_id": foreign.ID, "title": "Leaking tap",
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := h.do(http.MethodPost, tc.path, tc.sub, tc.body)
			assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
		})
	}

	payments, err := h.store.Payments.GetAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, payments)
	requests, err := h.store.Maintenance.GetAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, requests)

	create[paymentView](h, "/payments", "admin-p", gin.H{
		"tenant_id": local.ID, "unit_id": u.ID, "property_id": p.ID, "amount": 100, "due_date": due,
	})
	create[models.Maintenance](h, "/maintenance", "admin-p", gin.H{
		"property_id": p.ID, "tenant_id": local.ID, "title": "Leaking tap",
	})
}

func TestPropertyDeleteGuard(t *testing.T) {
	h := newHarness(t)
	p := h.property("Harbour View")
	u := h.unit(p.ID, "1A")

	assert.Equal(t, http.StatusUnprocessableEntity, h.do(http.MethodDelete, "/properties/"+p.ID, "root", nil).Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodDelete, "/units/"+u.ID, "root", nil).Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodDelete, "/properties/"+p.ID, "root", nil).Code)
}

func TestUserManagement(t *testing.T) {
	h := newHarness(t)
	p := h.property("Harbour View")

	w := h.do(http.MethodPost, "/users", "root", gin.H{"id": "sub-1", "role": "admin", "property_ids": []string{"nowhere"}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = h.do(http.MethodPost, "/users", "root", gin.H{"id": "sub-1", "role": "landlord"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	created := create[models.User](h, "/users", "root", gin.H{"id": "sub-1", "role": "admin", "email": "m@example.com"})
	assert.Empty(t, created.PropertyIDs)

	w = h.do(http.MethodPatch, "/users/sub-1", "root", gin.H{"property_ids": []string{p.ID}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []string{p.ID}, decode[models.User](t, w).PropertyIDs)

	w = h.do(http.MethodGet, "/properties", "sub-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Property](t, w), 1)
}
