package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/kushmahi07/Rentzy-sub001/internal/adapters/db/sqlite"
	"github.com/kushmahi07/Rentzy-sub001/internal/application"
	"github.com/kushmahi07/Rentzy-sub001/internal/domain"
	"github.com/kushmahi07/Rentzy-sub001/internal/platform/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	handler http.Handler
	service *application.BackofficeService
	metrics *metrics.Metrics
}

func newTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "router.db"))
	require.NoError(t, err)
	require.NoError(t, sqlite.RunMigrations(ctx, db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	m := metrics.New()
	svc := application.NewBackofficeService(
		sqlite.NewAccessRepository(db),
		sqlite.NewPropertyRepository(db),
		application.WithRecorder(m),
		application.WithJWT("router-test-secret-0001", "rentzy-test", 0),
	)
	require.NoError(t, svc.BootstrapAdmin(ctx, "admin@rentzy.test", "admin-pass"))

	opts.Metrics = m
	return &testServer{handler: NewRouter(svc, opts), service: svc, metrics: m}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "router-test")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

func (s *testServer) login(t *testing.T, email, password, mode string) string {
	t.Helper()
	rr := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{"email": email, "password": password, "mode": mode})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	require.NotEmpty(t, out.Token)
	return out.Token
}

func (s *testServer) createActiveProperty(t *testing.T, token string, sold int64) domain.Property {
	t.Helper()
	rr := s.do(t, http.MethodPost, "/api/properties", token, map[string]any{
		"name":     "Marina Gate",
		"location": "Dubai Marina",
		"tokenState": map[string]any{
			"tokenizationStatus":     "completed",
			"tokenSaleStatus":        "active",
			"secondaryTradingStatus": "enabled",
			"mintingStatus":          "enabled",
			"totalTokens":            1000,
			"tokensIssued":           800,
			"tokensSold":             sold,
		},
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var p domain.Property
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
	return p
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) (string, string) {
	t.Helper()
	var out struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	return out.Error, out.Code
}

func TestTokenizationActionFlow(t *testing.T) {
	s := newTestServer(t, Options{})
	token := s.login(t, "admin@rentzy.test", "admin-pass", "token")
	p := s.createActiveProperty(t, token, 120)

	path := "/api/properties/" + uintString(p.ID) + "/tokenization/actions"
	rr := s.do(t, http.MethodPost, path, token, map[string]any{"action": "freeze_token_sale", "reason": "KYC review pending"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var res application.TokenActionResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.Equal(t, domain.TokenSaleFrozen, res.Property.Token.TokenSaleStatus)
	assert.Equal(t, "KYC review pending", res.Entry.Reason)
	assert.Equal(t, "router-test", res.Entry.UserAgent)
	assert.Equal(t, domain.TokenSaleActive, res.Entry.PreviousState.TokenSaleStatus)

	rr = s.do(t, http.MethodPost, path, token, map[string]any{"action": "freeze_token_sale", "reason": "again"})
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	msg, code := decodeError(t, rr)
	assert.Equal(t, "Can only freeze an active token sale", msg)
	assert.Equal(t, "invalid_transition", code)

	rr = s.do(t, http.MethodGet, "/api/properties/"+uintString(p.ID)+"/tokenization/logs", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var logs []domain.AdminActionLogEntry
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &logs))
	require.Len(t, logs, 1)
	assert.Equal(t, domain.ActionFreezeTokenSale, logs[0].Action)

	rr = s.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `rentzy_tokenization_actions_total{action="freeze_token_sale",result="applied"} 1`)
	assert.Contains(t, rr.Body.String(), `rentzy_tokenization_actions_total{action="freeze_token_sale",result="rejected"} 1`)
}

func TestTokenizationActionErrors(t *testing.T) {
	s := newTestServer(t, Options{})
	token := s.login(t, "admin@rentzy.test", "admin-pass", "token")
	p := s.createActiveProperty(t, token, 0)
	path := "/api/properties/" + uintString(p.ID) + "/tokenization/actions"

	rr := s.do(t, http.MethodPost, path, token, map[string]any{"action": "disable_minting", "reason": "cap supply"})
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	msg, _ := decodeError(t, rr)
	assert.Equal(t, "Can only disable minting for properties with tokens already sold", msg)

	rr = s.do(t, http.MethodPost, path, token, map[string]any{"action": "freeze_token_sale"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do(t, http.MethodPost, path, token, map[string]any{"action": "melt_tokens", "reason": "x"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do(t, http.MethodPost, "/api/properties/9999/tokenization/actions", token, map[string]any{"action": "freeze_token_sale", "reason": "x"})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = s.do(t, http.MethodPost, "/api/properties/abc/tokenization/actions", token, map[string]any{"action": "freeze_token_sale", "reason": "x"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do(t, http.MethodPost, path, "", map[string]any{"action": "freeze_token_sale", "reason": "x"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	stored, err := s.service.GetProperty(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TokenSaleActive, stored.Token.TokenSaleStatus)
	assert.Equal(t, domain.MintingEnabled, stored.Token.MintingStatus)
}

func TestPropertyManagerCannotAct(t *testing.T) {
	s := newTestServer(t, Options{})
	ctx := context.Background()
	admin := s.login(t, "admin@rentzy.test", "admin-pass", "token")
	p := s.createActiveProperty(t, admin, 10)

	roles, err := s.service.ListRoles(ctx)
	require.NoError(t, err)
	var pm uint
	for _, r := range roles {
		if r.Key == "property_manager" {
			pm = r.ID
		}
	}
	_, err = s.service.CreateUser(ctx, "pm@rentzy.test", "pm-pass", pm)
	require.NoError(t, err)
	token := s.login(t, "pm@rentzy.test", "pm-pass", "token")

	rr := s.do(t, http.MethodGet, "/api/properties/"+uintString(p.ID), token, nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = s.do(t, http.MethodPost, "/api/properties/"+uintString(p.ID)+"/tokenization/actions", token, map[string]any{"action": "freeze_token_sale", "reason": "x"})
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestJWTLoginAndWhoAmI(t *testing.T) {
	s := newTestServer(t, Options{})
	token := s.login(t, "admin@rentzy.test", "admin-pass", "jwt")
	assert.Equal(t, 2, strings.Count(token, "."))

	rr := s.do(t, http.MethodGet, "/api/auth/whoami", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var who struct {
		Email       string   `json:"email"`
		Permissions []string `json:"permissions"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &who))
	assert.Equal(t, "admin@rentzy.test", who.Email)
	assert.Equal(t, []string{"*"}, who.Permissions)
}

func TestSessionLoginSetsCookie(t *testing.T) {
	s := newTestServer(t, Options{})
	rr := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{"email": "admin@rentzy.test", "password": "admin-pass", "mode": "session"})
	require.Equal(t, http.StatusOK, rr.Code)

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, sessionCookieName, cookies[0].Name)

	req := httptest.NewRequest(http.MethodGet, "/api/tokenization/overview", nil)
	req.AddCookie(cookies[0])
	out := httptest.NewRecorder()
	s.handler.ServeHTTP(out, req)
	assert.Equal(t, http.StatusOK, out.Code)
}

func TestLoginIsRateLimited(t *testing.T) {
	s := newTestServer(t, Options{LoginRate: 0.001, LoginBurst: 1})
	body := map[string]any{"email": "admin@rentzy.test", "password": "wrong"}

	rr := s.do(t, http.MethodPost, "/api/auth/login", "", body)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = s.do(t, http.MethodPost, "/api/auth/login", "", body)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
}

func (s *testServer) loginFrom(t *testing.T, forwardedFor string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"admin@rentzy.test","password":"wrong"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", forwardedFor)
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr.Code
}

func TestLoginLimiterIgnoresForwardedFor(t *testing.T) {
	s := newTestServer(t, Options{LoginRate: 0.001, LoginBurst: 1})

	assert.Equal(t, http.StatusUnauthorized, s.loginFrom(t, "203.0.113.1"))
	for i := 2; i <= 10; i++ {
		assert.Equal(t, http.StatusTooManyRequests, s.loginFrom(t, "203.0.113."+strconv.Itoa(i)))
	}
}

func TestLoginLimiterTrustsProxyWhenEnabled(t *testing.T) {
	s := newTestServer(t, Options{LoginRate: 0.001, LoginBurst: 1, TrustProxyHeaders: true})

	assert.Equal(t, http.StatusUnauthorized, s.loginFrom(t, "203.0.113.1"))
	assert.Equal(t, http.StatusTooManyRequests, s.loginFrom(t, "203.0.113.1"))
	assert.Equal(t, http.StatusUnauthorized, s.loginFrom(t, "203.0.113.2"))
}

func TestActionLogRecordsPeerAddress(t *testing.T) {
	s := newTestServer(t, Options{})
	token := s.login(t, "admin@rentzy.test", "admin-pass", "token")
	p := s.createActiveProperty(t, token, 120)

	body := strings.NewReader(`{"action":"freeze_token_sale","reason":"KYC review pending"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/properties/"+uintString(p.ID)+"/tokenization/actions", body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Forwarded-For", "198.51.100.7")
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var res application.TokenActionResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.Equal(t, "192.0.2.1", res.Entry.IPAddress)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, Options{})
	rr := s.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func uintString(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}
