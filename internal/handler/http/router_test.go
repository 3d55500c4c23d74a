package http_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	appHTTP "github.com/cmlabs-hris/timecard-backend-go/internal/handler/http"
	"github.com/cmlabs-hris/timecard-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/timecard-backend-go/internal/pkg/notify"
	"github.com/cmlabs-hris/timecard-backend-go/internal/pkg/sse"
	"github.com/cmlabs-hris/timecard-backend-go/internal/pkg/verification"
	"github.com/cmlabs-hris/timecard-backend-go/internal/repository/memory"
	scheduleService "github.com/cmlabs-hris/timecard-backend-go/internal/service/schedule"
	timeEntryService "github.com/cmlabs-hris/timecard-backend-go/internal/service/timeentry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

type entryBody struct {
	ID         string  `json:"id"`
	EmployeeID string  `json:"employee_id"`
	Status     string  `json:"status"`
	Approval   *string `json:"approval"`
}

type testServer struct {
	router http.Handler
	jwt    jwt.Service
	hub    *sse.Hub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store := memory.NewStore()
	hub := sse.NewHub(4)
	scheduleSvc := scheduleService.NewScheduleService(store.Templates(), store.Assignments(), nil)
	timeEntrySvc := timeEntryService.NewTimeEntryService(
		timeEntryService.Deps{
			Tx:        store,
			Entries:   store.Entries(),
			Breaks:    store.Breaks(),
			Reminders: store.Reminders(),
			Notes:     store.Notes(),
			Resolver:  scheduleSvc,
			Verifier:  verification.NewVerifier(store.PINs()),
			Sender:    notify.NewStreamSender(notify.NewLogSender(slog.Default()), hub),
		},
		timeEntryService.Config{ClockSkew: 2 * time.Minute},
	)

	jwtSvc := jwt.NewJWTService("router-test-secret", "1h")
	router := appHTTP.NewRouter(
		appHTTP.RouterConfig{
			Env:            "test",
			Version:        "test",
			AllowedOrigins: []string{"*"},
			LogLevel:       slog.LevelError,
			Gatherer:       prometheus.NewRegistry(),
		},
		jwtSvc,
		appHTTP.NewTimeEntryHandler(timeEntrySvc, timeEntrySvc),
		appHTTP.NewReviewHandler(timeEntrySvc, timeEntrySvc),
		appHTTP.NewScheduleHandler(scheduleSvc),
		appHTTP.NewStreamHandler(hub, time.Minute),
	)
	return &testServer{router: router, jwt: jwtSvc, hub: hub}
}

func (s *testServer) token(t *testing.T, claims jwt.Claims) string {
	t.Helper()
	token, _, err := s.jwt.GenerateAccessToken(claims)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	return s.doWithHeaders(t, method, path, token, nil, body)
}

func (s *testServer) doWithHeaders(t *testing.T, method, path, token string, headers map[string]string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var env envelope
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func employeeClaims(id string) jwt.Claims {
	return jwt.Claims{Subject: "user-" + id, EmployeeID: id, SiteID: "site-1", Role: jwt.RoleEmployee}
}

func biometricPunch(at time.Time) map[string]any {
	return map[string]any{
		"timestamp":    at.UTC().Format(time.RFC3339),
		"method":       "biometric",
		"verification": map[string]any{"biometric_passed": true},
	}
}

func TestRouter_HeartbeatAndMetrics(t *testing.T) {
	s := newTestServer(t)

	rec, _ := s.do(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_RequiresToken(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(t, http.MethodPost, "/api/v1/punches/in", "", biometricPunch(time.Now()))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, env.Success)
}

func TestRouter_RevokedToken(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t, employeeClaims("emp-1"))
	s.jwt.RevokeToken(token)

	rec, _ := s.do(t, http.MethodGet, "/api/v1/entries", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_PunchInScopedToEmployee(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t, employeeClaims("emp-1"))

	body := biometricPunch(time.Now().Add(-time.Hour))
	body["employee_id"] = "emp-2"
	rec, _ := s.do(t, http.MethodPost, "/api/v1/punches/in", token, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env := s.do(t, http.MethodPost, "/api/v1/punches/in", token, biometricPunch(time.Now().Add(-time.Hour)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var entry entryBody
	require.NoError(t, json.Unmarshal(env.Data, &entry))
	assert.Equal(t, "emp-1", entry.EmployeeID)
	assert.Equal(t, "active", entry.Status)
}

func TestRouter_SecondPunchInIsPolicyViolation(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t, employeeClaims("emp-1"))

	rec, _ := s.do(t, http.MethodPost, "/api/v1/punches/in", token, biometricPunch(time.Now().Add(-2*time.Hour)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, env := s.do(t, http.MethodPost, "/api/v1/punches/in", token, biometricPunch(time.Now().Add(-time.Hour)))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "POLICY_VIOLATION", env.Error.Code)
	assert.Equal(t, "overlapping_active_entry", env.Error.Details["rule"])
}

func TestRouter_InvalidPunchIsValidationError(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t, employeeClaims("emp-1"))

	rec, env := s.do(t, http.MethodPost, "/api/v1/punches/in", token, map[string]any{"method": "telepathy"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Contains(t, env.Error.Details, "method")
}

func TestRouter_ReviewRequiresPermission(t *testing.T) {
	s := newTestServer(t)

	rec, _ := s.do(t, http.MethodGet, "/api/v1/review/entries", s.token(t, employeeClaims("emp-1")), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	supervisor := s.token(t, jwt.Claims{Subject: "sup-1", Role: jwt.RoleSupervisor})
	rec, _ = s.do(t, http.MethodGet, "/api/v1/review/entries", supervisor, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_PunchCycleAndApproval(t *testing.T) {
	s := newTestServer(t)
	employee := s.token(t, employeeClaims("emp-1"))
	supervisor := s.token(t, jwt.Claims{Subject: "sup-1", Role: jwt.RoleSupervisor})

	start := time.Now().Add(-3 * time.Hour).Truncate(time.Minute)
	rec, env := s.do(t, http.MethodPost, "/api/v1/punches/in", employee, biometricPunch(start))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var entry entryBody
	require.NoError(t, json.Unmarshal(env.Data, &entry))

	rec, env = s.do(t, http.MethodPost, "/api/v1/punches/out", employee, biometricPunch(start.Add(2*time.Hour)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var closed entryBody
	require.NoError(t, json.Unmarshal(env.Data, &closed))
	assert.Equal(t, entry.ID, closed.ID)
	assert.Equal(t, "complete", closed.Status)

	// another employee cannot read it
	rec, _ = s.do(t, http.MethodGet, "/api/v1/entries/"+entry.ID, s.token(t, employeeClaims("emp-2")), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env = s.do(t, http.MethodPost, "/api/v1/review/entries/"+entry.ID+"/reject", supervisor, map[string]any{})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.NotNil(t, env.Error)
	assert.Contains(t, env.Error.Details, "reason")

	rec, env = s.do(t, http.MethodPost, "/api/v1/review/entries/"+entry.ID+"/approve", supervisor, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var approved entryBody
	require.NoError(t, json.Unmarshal(env.Data, &approved))
	require.NotNil(t, approved.Approval)
	assert.Equal(t, "approved", *approved.Approval)

	rec, _ = s.do(t, http.MethodGet, "/api/v1/entries/"+entry.ID, employee, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_StaleIfMatchIsConflict(t *testing.T) {
	s := newTestServer(t)
	employee := s.token(t, employeeClaims("emp-1"))
	supervisor := s.token(t, jwt.Claims{Subject: "sup-1", Role: jwt.RoleSupervisor})

	start := time.Now().Add(-3 * time.Hour).Truncate(time.Minute)
	rec, env := s.do(t, http.MethodPost, "/api/v1/punches/in", employee, biometricPunch(start))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var entry entryBody
	require.NoError(t, json.Unmarshal(env.Data, &entry))
	rec, _ = s.do(t, http.MethodPost, "/api/v1/punches/out", employee, biometricPunch(start.Add(2*time.Hour)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, _ = s.do(t, http.MethodGet, "/api/v1/entries/"+entry.ID, employee, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	seen := rec.Header().Get("ETag")
	assert.Equal(t, `"2"`, seen)

	// a second supervisor edits the entry on the same view
	edit := map[string]any{"clock_out": start.Add(90 * time.Minute).UTC().Format(time.RFC3339)}
	rec, _ = s.doWithHeaders(t, http.MethodPut, "/api/v1/review/entries/"+entry.ID+"/clock-out", supervisor,
		map[string]string{"If-Match": seen}, edit)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, `"3"`, rec.Header().Get("ETag"))

	rec, env = s.doWithHeaders(t, http.MethodPost, "/api/v1/review/entries/"+entry.ID+"/approve", supervisor,
		map[string]string{"If-Match": seen}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "CONFLICT", env.Error.Code)

	rec, _ = s.doWithHeaders(t, http.MethodPost, "/api/v1/review/entries/"+entry.ID+"/approve", supervisor,
		map[string]string{"If-Match": "latest"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = s.doWithHeaders(t, http.MethodPost, "/api/v1/review/entries/"+entry.ID+"/approve", supervisor,
		map[string]string{"If-Match": `"3"`}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var approved entryBody
	require.NoError(t, json.Unmarshal(env.Data, &approved))
	require.NotNil(t, approved.Approval)
	assert.Equal(t, "approved", *approved.Approval)
}

func TestRouter_ListCarriesPaginationInData(t *testing.T) {
	s := newTestServer(t)
	supervisor := s.token(t, jwt.Claims{Subject: "sup-1", Role: jwt.RoleSupervisor})

	rec, env := s.do(t, http.MethodGet, "/api/v1/review/entries?page=2&limit=5", supervisor, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.NotContains(t, raw, "meta")

	var page struct {
		Page       int   `json:"page"`
		Limit      int   `json:"limit"`
		TotalCount int64 `json:"total_count"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 5, page.Limit)
	assert.Zero(t, page.TotalCount)
}

func TestRouter_UnknownEntryIsNotFound(t *testing.T) {
	s := newTestServer(t)
	supervisor := s.token(t, jwt.Claims{Subject: "sup-1", Role: jwt.RoleSupervisor})

	rec, env := s.do(t, http.MethodGet, "/api/v1/entries/missing", supervisor, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, env.Error)
}

func TestRouter_ScheduleWritesRequireAdmin(t *testing.T) {
	s := newTestServer(t)
	template := map[string]any{
		"id":         "day-shift",
		"name":       "Day shift",
		"site_id":    "site-1",
		"timezone":   "UTC",
		"start_time": "08:00",
		"end_time":   "17:00",
	}

	supervisor := s.token(t, jwt.Claims{Subject: "sup-1", Role: jwt.RoleSupervisor})
	rec, _ := s.do(t, http.MethodPost, "/api/v1/schedules/templates", supervisor, template)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	admin := s.token(t, jwt.Claims{Subject: "admin-1", Role: jwt.RoleAdmin})
	rec, _ = s.do(t, http.MethodPost, "/api/v1/schedules/templates", admin, template)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, env := s.do(t, http.MethodGet, "/api/v1/schedules/templates", supervisor, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var templates []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &templates))
	assert.Len(t, templates, 1)
}

func TestRouter_ReminderStream(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	token := s.token(t, employeeClaims("emp-1"))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/reminders/stream?token="+token, nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readEvent := func() string {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		// skip data and blank separator lines
		for i := 0; i < 2; i++ {
			_, err := reader.ReadString('\n')
			require.NoError(t, err)
		}
		return strings.TrimSpace(line)
	}

	assert.Equal(t, "event: connected", readEvent())

	require.Eventually(t, func() bool { return s.hub.SubscriberCount("emp-1") == 1 }, time.Second, 10*time.Millisecond)
	s.hub.Publish(sse.Event{EmployeeID: "emp-1", Name: "reminder", Data: notify.ReminderEvent{Message: "clock out"}})

	assert.Equal(t, "event: reminder", readEvent())
}

func TestRouter_ReminderStreamScopedToEmployee(t *testing.T) {
	s := newTestServer(t)

	rec, _ := s.do(t, http.MethodGet, "/api/v1/reminders/stream?employee_id=emp-2", s.token(t, employeeClaims("emp-1")), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	kiosk := s.token(t, jwt.Claims{Subject: "kiosk-1", SiteID: "site-1", Role: jwt.RoleKiosk})
	rec, _ = s.do(t, http.MethodGet, "/api/v1/reminders/stream", kiosk, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
