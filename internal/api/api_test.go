package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentpilot/internal/analytics"
	"rentpilot/internal/auth"
	"rentpilot/internal/billing"
	"rentpilot/internal/database"
	"rentpilot/internal/documents"
	"rentpilot/internal/messages"
	"rentpilot/internal/models"
	"rentpilot/internal/notifications"
	"rentpilot/internal/realtime"
	"rentpilot/internal/rentals"
)

type harness struct {
	router  *gin.Engine
	db      *database.Database
	manager *auth.Manager
	broker  *realtime.MemoryBroker
	feed    *notifications.Feed
}

type user struct {
	id    string
	token string
}

func newHarness(t *testing.T) *harness {
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	db, err := database.NewTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	broker := realtime.NewMemoryBroker(64, logger)
	broker.Start()
	t.Cleanup(func() { broker.Close() })

	storage, err := documents.NewLocalStorage(t.TempDir(), "http://files.test", "secret")
	require.NoError(t, err)

	functions := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"url":"https://pay.test` + r.URL.Path + `"}`))
	}))
	t.Cleanup(functions.Close)

	manager := auth.NewManager(db, "secret", time.Hour)
	feed := notifications.NewFeed(db, broker, logger)
	handler := NewHandler(Services{
		DB:        db,
		Auth:      manager,
		Feed:      feed,
		Rentals:   rentals.NewService(db, feed, logger),
		Messages:  messages.NewService(db, logger),
		Analytics: analytics.NewService(db, analytics.DefaultOptions(), logger),
		Documents: documents.NewService(db, storage, time.Hour, logger),
		Billing:   billing.NewService(db, billing.NewClient(functions.URL, "key", 0, logger), "whsec", logger),
	}, logger)

	router := gin.New()
	SetupRoutes(router, handler, []string{"http://localhost:5173"})

	return &harness{router: router, db: db, manager: manager, broker: broker, feed: feed}
}

func (h *harness) signUp(t *testing.T, email string, role models.Role) user {
	token, session, err := h.manager.SignUp(context.Background(), auth.SignUpRequest{
		Email:    email,
		Password: "password123",
		FullName: "Test User",
		Role:     string(role),
	})
	require.NoError(t, err)
	return user{id: session.UserID, token: token}
}

func (h *harness) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func (h *harness) upload(t *testing.T, token string, fields map[string]string, filename, content string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	part.Write([]byte(content))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestAuthFlow(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email": "lena@example.com", "password": "password123", "full_name": "Lena", "role": "landlord",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "/dashboard", decode(t, w)["destination"])

	w = h.do(http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email": "lena@example.com", "password": "password123", "full_name": "Lena", "role": "landlord",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = h.do(http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email": "x@example.com", "password": "password123", "full_name": "X", "role": "admin",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodPost, "/api/auth/session", "", map[string]string{"email": "lena@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(http.MethodPost, "/api/auth/session", "", map[string]string{"email": "lena@example.com", "password": "password123"})
	require.Equal(t, http.StatusOK, w.Code)
	token := decode(t, w)["token"].(string)

	w = h.do(http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode(t, w)
	assert.Equal(t, "lena@example.com", me["email"])
	assert.NotContains(t, me, "password_hash")

	assert.Equal(t, http.StatusNoContent, h.do(http.MethodDelete, "/api/auth/session", token, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/api/auth/me", token, nil).Code)
}

func TestRequireSession(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/api/notifications", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/api/notifications", "garbage", nil).Code)

	req := httptest.NewRequest(http.MethodGet, "/api/notifications", nil)
	req.Header.Set("Authorization", "Basic abc")
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGuardEndpoint(t *testing.T) {
	h := newHarness(t)
	tenant := h.signUp(t, "tom@example.com", models.RoleTenant)

	tests := []struct {
		name        string
		token       string
		path        string
		redirect    bool
		destination string
	}{
		{"anonymous dashboard", "", "/dashboard", true, "/login"},
		{"anonymous login", "", "/login", false, ""},
		{"invalid token is anonymous", "garbage", "/tenant", true, "/login"},
		{"tenant dashboard", tenant.token, "/dashboard", true, "/tenant"},
		{"tenant own area", tenant.token, "/tenant/messages", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := h.do(http.MethodGet, "/api/auth/guard?path="+tt.path, tt.token, nil)
			require.Equal(t, http.StatusOK, w.Code)
			body := decode(t, w)
			assert.Equal(t, tt.redirect, body["redirect"])
			assert.Equal(t, tt.destination, body["destination"])
		})
	}
}

func TestAnalyticsIsLandlordOnly(t *testing.T) {
	h := newHarness(t)
	landlord := h.signUp(t, "lena@example.com", models.RoleLandlord)
	tenant := h.signUp(t, "tom@example.com", models.RoleTenant)
	ctx := context.Background()

	require.NoError(t, h.db.CreateProperty(ctx, &models.Property{LandlordID: landlord.id, Name: "A", UnitCount: 2}))
	require.NoError(t, h.db.CreateProperty(ctx, &models.Property{LandlordID: landlord.id, Name: "B", UnitCount: 2, IsAvailable: true}))

	assert.Equal(t, http.StatusForbidden, h.do(http.MethodGet, "/api/analytics", tenant.token, nil).Code)

	w := h.do(http.MethodGet, "/api/analytics", landlord.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(25), body["occupancyRate"])
	assert.Contains(t, body, "totalRentCollected")
	assert.Contains(t, body, "maintenanceRequests")
}

func TestNotificationEndpoints(t *testing.T) {
	h := newHarness(t)
	owner := h.signUp(t, "lena@example.com", models.RoleLandlord)
	other := h.signUp(t, "tom@example.com", models.RoleTenant)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, h.feed.Create(ctx, &models.Notification{UserID: owner.id, Type: models.NotificationSystem, Title: "hello"}))
	}
	foreign := &models.Notification{UserID: other.id, Type: models.NotificationSystem, Title: "private"}
	require.NoError(t, h.feed.Create(ctx, foreign))

	w := h.do(http.MethodGet, "/api/notifications", owner.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.Notification
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 3)

	w = h.do(http.MethodGet, "/api/notifications?limit=2", owner.token, nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 2)

	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/api/notifications?limit=abc", owner.token, nil).Code)

	w = h.do(http.MethodGet, "/api/notifications/unread-count", owner.token, nil)
	assert.Equal(t, float64(3), decode(t, w)["unread"])

	assert.Equal(t, http.StatusNotFound, h.do(http.MethodPost, "/api/notifications/"+foreign.ID+"/read", owner.token, nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodPost, "/api/notifications/missing/read", owner.token, nil).Code)
	assert.Equal(t, http.StatusNoContent, h.do(http.MethodPost, "/api/notifications/"+list[0].ID+"/read", owner.token, nil).Code)

	w = h.do(http.MethodPost, "/api/notifications/read-all", owner.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), decode(t, w)["updated"])

	w = h.do(http.MethodGet, "/api/notifications/unread-count", owner.token, nil)
	assert.Equal(t, float64(0), decode(t, w)["unread"])

	w = h.do(http.MethodGet, "/api/notifications/unread-count", other.token, nil)
	assert.Equal(t, float64(1), decode(t, w)["unread"])
}

func TestNotificationStream(t *testing.T) {
	h := newHarness(t)
	owner := h.signUp(t, "lena@example.com", models.RoleLandlord)
	other := h.signUp(t, "tom@example.com", models.RoleTenant)

	server := httptest.NewServer(h.router)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/api/notifications/stream", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+owner.token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	reader := bufio.NewReader(resp.Body)
	readEvent := func() (string, string) {
		var event, data string
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			line = strings.TrimRight(line, "\n")
			switch {
			case strings.HasPrefix(line, "event:"):
				event = strings.TrimPrefix(line, "event:")
			case strings.HasPrefix(line, "data:"):
				data = strings.TrimPrefix(line, "data:")
			case line == "" && event != "":
				return event, data
			}
		}
	}

	event, _ := readEvent()
	require.Equal(t, "ready", event)

	topic := realtime.Topic("notifications", realtime.KindInsert)
	assert.Equal(t, 1, h.broker.SubscriberCount(topic))

	bg := context.Background()
	require.NoError(t, h.feed.Create(bg, &models.Notification{UserID: other.id, Type: models.NotificationSystem, Title: "not yours"}))
	require.NoError(t, h.feed.Create(bg, &models.Notification{UserID: owner.id, Type: models.NotificationPayment, Title: "Rent received"}))

	event, data := readEvent()
	assert.Equal(t, "notification", event)
	var n models.Notification
	require.NoError(t, json.Unmarshal([]byte(data), &n))
	assert.Equal(t, "Rent received", n.Title)
	assert.Equal(t, owner.id, n.UserID)

	cancel()
	assert.Eventually(t, func() bool {
		return h.broker.SubscriberCount(topic) == 0
	}, 2*time.Second, 10*time.Millisecond, "subscription must be closed on disconnect")
}

type leaseFixture struct {
	landlord user
	tenant   user
	outsider user
	property *models.Property
	lease    *models.Lease
}

func newLeaseFixture(t *testing.T, h *harness) *leaseFixture {
	f := &leaseFixture{
		landlord: h.signUp(t, "lena@example.com", models.RoleLandlord),
		tenant:   h.signUp(t, "tom@example.com", models.RoleTenant),
		outsider: h.signUp(t, "olga@example.com", models.RoleTenant),
	}
	ctx := context.Background()
	f.property = &models.Property{LandlordID: f.landlord.id, Name: "Canal House", UnitCount: 1}
	require.NoError(t, h.db.CreateProperty(ctx, f.property))
	f.lease = &models.Lease{PropertyID: f.property.ID, LandlordID: f.landlord.id, TenantID: f.tenant.id, Status: models.LeaseActive}
	require.NoError(t, h.db.CreateLease(ctx, f.lease))
	return f
}

func TestMessageEndpoints(t *testing.T) {
	h := newHarness(t)
	f := newLeaseFixture(t, h)
	base := "/api/leases/" + f.lease.ID + "/messages"

	var ids []string
	for _, content := range []string{"Hi", "Is the heating fixed?"} {
		w := h.do(http.MethodPost, base, f.tenant.token, map[string]string{"content": content})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		ids = append(ids, decode(t, w)["id"].(string))
	}

	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, base, f.tenant.token, map[string]string{"content": "   "}).Code)
	assert.Equal(t, http.StatusForbidden, h.do(http.MethodGet, base, f.outsider.token, nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/api/leases/missing/messages", f.tenant.token, nil).Code)

	w := h.do(http.MethodGet, base, f.landlord.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.Message
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 2)

	w = h.do(http.MethodGet, "/api/messages/unread-count?lease_id="+f.lease.ID, f.landlord.token, nil)
	assert.Equal(t, float64(2), decode(t, w)["unread"])

	w = h.do(http.MethodGet, "/api/messages/unread-count", f.tenant.token, nil)
	assert.Equal(t, float64(0), decode(t, w)["unread"], "own messages are never unread")

	w = h.do(http.MethodPost, "/api/messages/"+ids[0]+"/read?lease_id="+f.lease.ID, f.landlord.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(1), body["unread"])
	assert.Equal(t, true, body["updated"])

	w = h.do(http.MethodPost, "/api/messages/no-such-message/read", f.landlord.token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = h.do(http.MethodPost, "/api/messages/"+ids[1]+"/read", f.outsider.token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = h.do(http.MethodGet, "/api/messages/unread-count?lease_id="+f.lease.ID, f.landlord.token, nil)
	assert.Equal(t, float64(1), decode(t, w)["unread"], "refused marks change nothing")

	w = h.do(http.MethodPost, base+"/read-all", f.landlord.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), decode(t, w)["unread"])

	assert.Equal(t, http.StatusForbidden, h.do(http.MethodPost, base+"/read-all", f.outsider.token, nil).Code)
}

func TestRentalEndpoints(t *testing.T) {
	h := newHarness(t)
	landlord := h.signUp(t, "lena@example.com", models.RoleLandlord)
	tenant := h.signUp(t, "tom@example.com", models.RoleTenant)

	assert.Equal(t, http.StatusForbidden, h.do(http.MethodPost, "/api/properties", tenant.token, map[string]interface{}{"name": "X", "unit_count": 1}).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/api/properties", landlord.token, map[string]interface{}{"name": "X", "unit_count": 0}).Code)

	w := h.do(http.MethodPost, "/api/properties", landlord.token, map[string]interface{}{
		"name": "Canal House", "city": "Amsterdam", "unit_count": 1, "monthly_rent": 1500, "is_available": true,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	propertyID := decode(t, w)["id"].(string)

	w = h.do(http.MethodGet, "/api/properties/available", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var available []models.Property
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &available))
	require.Len(t, available, 1)

	applyPath := "/api/properties/" + propertyID + "/applications"
	application := map[string]interface{}{"applicant_name": "Tom", "applicant_email": "tom@example.com", "monthly_income": 4000}
	assert.Equal(t, http.StatusForbidden, h.do(http.MethodPost, applyPath, landlord.token, application).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, applyPath, tenant.token, map[string]string{"applicant_name": "Tom"}).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodPost, "/api/properties/missing/applications", tenant.token, application).Code)

	w = h.do(http.MethodPost, applyPath, tenant.token, application)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, tenant.id, decode(t, w)["applicant_id"])

	w = h.do(http.MethodPost, applyPath, "", map[string]interface{}{"applicant_name": "Ann", "applicant_email": "ann@example.com"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = h.do(http.MethodGet, "/api/notifications/unread-count", landlord.token, nil)
	assert.Equal(t, float64(2), decode(t, w)["unread"], "landlord hears about each application")

	w = h.do(http.MethodGet, "/api/applications?status=new", landlord.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var apps []models.Application
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apps))
	assert.Len(t, apps, 2)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/api/applications?status=archived", landlord.token, nil).Code)
	assert.Equal(t, http.StatusForbidden, h.do(http.MethodGet, "/api/applications", tenant.token, nil).Code)

	w = h.do(http.MethodPatch, "/api/properties/"+propertyID, landlord.token, map[string]interface{}{"is_available": false})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, false, decode(t, w)["is_available"])
	assert.Equal(t, http.StatusConflict, h.do(http.MethodPost, applyPath, "", application).Code)

	lease := map[string]interface{}{
		"property_id": propertyID, "tenant_id": tenant.id, "monthly_rent": 1500,
		"lease_start_date": "2026-01-01", "lease_end_date": "2026-12-31",
	}
	assert.Equal(t, http.StatusForbidden, h.do(http.MethodPost, "/api/leases", tenant.token, lease).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/api/leases", landlord.token, map[string]interface{}{
		"property_id": propertyID, "tenant_id": tenant.id, "monthly_rent": 1500,
		"lease_start_date": "Jan 1", "lease_end_date": "2026-12-31",
	}).Code)

	w = h.do(http.MethodPost, "/api/leases", landlord.token, lease)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	leaseID := decode(t, w)["id"].(string)

	w = h.do(http.MethodGet, "/api/leases?status=active", tenant.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var leases []models.Lease
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &leases))
	require.Len(t, leases, 1)
	assert.Equal(t, leaseID, leases[0].ID)

	w = h.do(http.MethodPatch, "/api/leases/"+leaseID+"/status", landlord.token, map[string]string{"status": "terminated"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "terminated", decode(t, w)["status"])

	w = h.do(http.MethodGet, "/api/leases?status=active", landlord.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &leases))
	assert.Empty(t, leases)

	// The rows created over HTTP feed the dashboard
	w = h.do(http.MethodGet, "/api/analytics", landlord.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), decode(t, w)["newApplications"])
	assert.Equal(t, float64(100), decode(t, w)["occupancyRate"])
}

func TestBoardEndpoints(t *testing.T) {
	h := newHarness(t)
	f := newLeaseFixture(t, h)
	other := h.signUp(t, "max@example.com", models.RoleLandlord)
	ctx := context.Background()

	app := &models.Application{PropertyID: f.property.ID, ApplicantName: "Ann", ApplicantEmail: "ann@example.com"}
	require.NoError(t, h.db.CreateApplication(ctx, app))
	require.NoError(t, h.db.CreateApplication(ctx, &models.Application{PropertyID: f.property.ID, ApplicantName: "Bob", Status: models.ApplicationRejected}))

	w := h.do(http.MethodGet, "/api/applications/board", f.landlord.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var board struct {
		Columns []struct {
			Status       string               `json:"status"`
			Applications []models.Application `json:"applications"`
		} `json:"columns"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &board))
	require.Len(t, board.Columns, 3)
	assert.Len(t, board.Columns[0].Applications, 1)
	assert.Empty(t, board.Columns[2].Applications)

	path := "/api/applications/" + app.ID + "/status"
	assert.Equal(t, http.StatusForbidden, h.do(http.MethodPatch, path, f.tenant.token, map[string]string{"status": "approved"}).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodPatch, path, other.token, map[string]string{"status": "approved"}).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPatch, path, f.landlord.token, map[string]string{"status": "archived"}).Code)

	w = h.do(http.MethodPatch, path, f.landlord.token, map[string]string{"status": "approved"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &board))
	require.Len(t, board.Columns[2].Applications, 1)
	assert.Equal(t, app.ID, board.Columns[2].Applications[0].ID)

	stored, err := h.db.GetApplicationsForProperties(ctx, []string{f.property.ID}, models.ApplicationApproved)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestDocumentEndpoints(t *testing.T) {
	h := newHarness(t)
	f := newLeaseFixture(t, h)

	w := h.upload(t, f.tenant.token, map[string]string{"lease_id": f.lease.ID}, "inspection.txt", "all good")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	docID := decode(t, w)["id"].(string)

	w = h.do(http.MethodGet, "/api/documents?lease_id="+f.lease.ID, f.landlord.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var docs []models.Document
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &docs))
	require.Len(t, docs, 1)
	assert.Equal(t, "inspection.txt", docs[0].Name)

	assert.Equal(t, http.StatusForbidden, h.do(http.MethodGet, "/api/documents?lease_id="+f.lease.ID, f.outsider.token, nil).Code)

	w = h.do(http.MethodGet, "/api/documents/"+docID+"/url", f.landlord.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	url := decode(t, w)["url"].(string)
	token := url[strings.Index(url, "/api/files/")+len("/api/files/"):]

	w = h.do(http.MethodGet, "/api/files/"+token, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "all good", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")

	assert.Equal(t, http.StatusForbidden, h.do(http.MethodGet, "/api/files/garbage", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, h.do(http.MethodDelete, "/api/documents/"+docID, f.landlord.token, nil).Code)
	assert.Equal(t, http.StatusNoContent, h.do(http.MethodDelete, "/api/documents/"+docID, f.tenant.token, nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/api/files/"+token, "", nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/api/documents/"+docID+"/url", f.tenant.token, nil).Code)
}

func TestBillingEndpoints(t *testing.T) {
	h := newHarness(t)
	landlord := h.signUp(t, "lena@example.com", models.RoleLandlord)

	w := h.do(http.MethodGet, "/api/billing/subscription", landlord.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "free", decode(t, w)["plan"])

	w = h.do(http.MethodPost, "/api/billing/checkout", landlord.token, map[string]string{"plan": "pro"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://pay.test/create-checkout-session", decode(t, w)["url"])

	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/api/billing/checkout", landlord.token, map[string]string{"plan": "free"}).Code)
	assert.Equal(t, http.StatusConflict, h.do(http.MethodPost, "/api/billing/portal", landlord.token, nil).Code)

	evt := map[string]string{"user_id": landlord.id, "plan": "pro", "status": "active", "customer_id": "cus_1"}
	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodPost, "/api/billing/events", "", evt).Code)

	req := httptest.NewRequest(http.MethodPost, "/api/billing/events", strings.NewReader(`{"user_id":"`+landlord.id+`","plan":"pro","status":"active","customer_id":"cus_1"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(billingSecretHeader, "whsec")
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	w = h.do(http.MethodGet, "/api/billing/subscription", landlord.token, nil)
	assert.Equal(t, "pro", decode(t, w)["plan"])

	w = h.do(http.MethodPost, "/api/billing/portal", landlord.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://pay.test/customer-portal", decode(t, w)["url"])
}

func TestDeleteAccount(t *testing.T) {
	h := newHarness(t)
	f := newLeaseFixture(t, h)
	ctx := context.Background()
	require.NoError(t, h.feed.Create(ctx, &models.Notification{UserID: f.landlord.id, Type: models.NotificationSystem, Title: "bye"}))

	w := h.upload(t, f.landlord.token, map[string]string{"property_id": f.property.ID}, "deed.txt", "deed")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = h.do(http.MethodPost, "/api/leases/"+f.lease.ID+"/messages", f.tenant.token, map[string]string{"content": "Moving out"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = h.do(http.MethodDelete, "/api/account", f.landlord.token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	report := decode(t, w)["report"].(map[string]interface{})
	assert.Equal(t, []interface{}{"documents", "messages", "leases", "applications", "properties", "read_status", "notifications", "profile"}, report["completed"])

	docs, err := h.db.ListDocuments(ctx, database.DocumentFilter{OwnerID: f.landlord.id})
	require.NoError(t, err)
	assert.Empty(t, docs)
	msgs, err := h.db.GetMessagesForLease(ctx, f.lease.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	_, err = h.db.GetProfile(ctx, f.landlord.id)
	assert.ErrorIs(t, err, database.ErrNotFound)
	_, err = h.db.GetLease(ctx, f.lease.ID)
	assert.ErrorIs(t, err, database.ErrNotFound)

	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/api/auth/me", f.landlord.token, nil).Code)
}
