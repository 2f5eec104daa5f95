package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"illyrian_project/internal/config"
	"illyrian_project/internal/domain"
	"illyrian_project/internal/engine"
	apihttp "illyrian_project/internal/http"
	"illyrian_project/internal/http/handlers"
	"illyrian_project/internal/http/middleware"
	"illyrian_project/internal/logger"
	"illyrian_project/internal/realtime"
	"illyrian_project/internal/repository"
	"illyrian_project/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("error", false)
	service.InitJWT("handlers-secret")
	middleware.InitRedisRateLimiter(nil)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type api struct {
	t      *testing.T
	router *gin.Engine
	clock  *fakeClock
	store  *repository.MemoryUserStore
}

func newAPI(t *testing.T) *api {
	t.Helper()
	store := repository.NewMemoryUserStore()
	audit := service.NewAuditService(repository.NewMemoryAuditStore())
	bus := realtime.NewLocalBus()
	clock := &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}

	eng := engine.New(store,
		engine.WithClock(clock),
		engine.WithPublisher(bus),
		engine.WithAuditor(audit),
		engine.WithLogger(logger.Discard()),
	)
	hub := realtime.NewHub(store, bus, eng, 10*time.Millisecond)
	t.Cleanup(func() { _ = hub.Shutdown(context.Background()) })

	h := handlers.NewHandler(
		service.NewAccountService(store, bus, audit, clock),
		service.NewReferralService(store, bus, nil, audit),
		eng, hub, "",
	)
	health := handlers.NewHealthHandler("test", map[string]handlers.Pinger{"store": store})
	limits := config.RateLimit{API: 10000, APIWindow: time.Minute, Referral: 10000, ReferralWindow: time.Minute}

	return &api{t: t, router: apihttp.NewRouter(h, health, limits, ""), clock: clock, store: store}
}

func token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := service.GenerateJWT(userID, userID+"@example.com", time.Hour)
	require.NoError(t, err)
	return tok
}

func (a *api) do(method, path, userID string, body interface{}) (int, map[string]interface{}) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+token(a.t, userID))
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var out map[string]interface{}
	if w.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w.Code, out
}

func (a *api) signup(userID, username string) {
	a.t.Helper()
	code, body := a.do(http.MethodPost, "/api/v1/signup", userID, gin.H{"username": username})
	require.Equal(a.t, http.StatusCreated, code, body)
}

func (a *api) saveWallets(userID string) {
	a.t.Helper()
	code, body := a.do(http.MethodPut, "/api/v1/me/wallets", userID, gin.H{
		"network":     "USDT/TRC20",
		"usdtWallet":  "TXabc",
		"tokenWallet": "0xtoken",
	})
	require.Equal(a.t, http.StatusOK, code, body)
}

func TestSignupAndMe(t *testing.T) {
	a := newAPI(t)
	a.signup("u1", "Alice")

	code, body := a.do(http.MethodGet, "/api/v1/me", "u1", nil)
	require.Equal(t, http.StatusOK, code)
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "alice", user["username"])
	assert.Equal(t, "u1@example.com", user["email"])

	lanes := body["lanes"].(map[string]interface{})
	assert.Equal(t, "idle", lanes["invest"].(map[string]interface{})["state"])
	assert.Equal(t, "idle", lanes["mining"].(map[string]interface{})["state"])

	code, body = a.do(http.MethodPost, "/api/v1/signup", "u1", gin.H{"username": "alice2"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "FAILED_PRECONDITION", body["kind"])
}

func TestErrorMapping(t *testing.T) {
	a := newAPI(t)
	a.signup("u1", "alice")

	tests := []struct {
		name   string
		method string
		path   string
		user   string
		body   interface{}
		status int
		kind   string
		code   string
	}{
		{name: "no token", method: http.MethodGet, path: "/api/v1/me", status: http.StatusUnauthorized, kind: "UNAUTHENTICATED", code: "auth.required"},
		{name: "unknown account", method: http.MethodGet, path: "/api/v1/me", user: "ghost", status: http.StatusNotFound, kind: "NOT_FOUND", code: "account.not_found"},
		{name: "unknown lane", method: http.MethodGet, path: "/api/v1/commitments/staking", user: "u1", status: http.StatusBadRequest, kind: "INVALID_ARGUMENT", code: "commitment.unknown_lane"},
		{name: "short username", method: http.MethodGet, path: "/api/v1/users/available?username=ab", status: http.StatusBadRequest, kind: "INVALID_ARGUMENT", code: "account.username_invalid"},
		{name: "start without wallets", method: http.MethodPost, path: "/api/v1/commitments/invest", user: "u1", body: gin.H{"tierId": 2}, status: http.StatusBadRequest, kind: "FAILED_PRECONDITION", code: "wallets.not_saved"},
		{name: "unknown referral code", method: http.MethodPost, path: "/api/v1/referral/apply", user: "u1", body: gin.H{"code": "ZZZZ9999"}, status: http.StatusNotFound, kind: "NOT_FOUND", code: "referral.not_found"},
		{name: "incomplete wallets", method: http.MethodPut, path: "/api/v1/me/wallets", user: "u1", body: gin.H{"network": "USDT/TRC20"}, status: http.StatusBadRequest, kind: "INVALID_ARGUMENT", code: "wallets.incomplete"},
		{name: "nothing to reset", method: http.MethodPost, path: "/api/v1/commitments/mining/reset", user: "u1", status: http.StatusBadRequest, kind: "FAILED_PRECONDITION", code: "commitment.not_completed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := a.do(tt.method, tt.path, tt.user, tt.body)
			assert.Equal(t, tt.status, code)
			assert.Equal(t, tt.kind, body["kind"])
			assert.Equal(t, tt.code, body["code"])
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestStorageErrorIs503(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	store := &brokenStore{MemoryUserStore: repository.NewMemoryUserStore()}
	accounts := service.NewAccountService(store, nil, nil, nil)
	h := handlers.NewHandler(accounts, nil, engine.New(store), nil, "")
	c.Set("user_id", "u1")
	h.Earnings(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "STORAGE_ERROR", body["kind"])
	assert.Equal(t, "storage.unavailable", body["code"])
}

type brokenStore struct {
	*repository.MemoryUserStore
}

func (s *brokenStore) Get(context.Context, string) (*domain.User, error) {
	return nil, errors.New("connection refused")
}

func TestReferralAndCommitmentFlow(t *testing.T) {
	a := newAPI(t)
	a.signup("a", "alice")
	a.signup("b", "bobby")
	a.saveWallets("a")
	a.saveWallets("b")

	code, overview := a.do(http.MethodGet, "/api/v1/referral", "b", nil)
	require.Equal(t, http.StatusOK, code)
	bCode := overview["code"].(string)
	assert.Len(t, bCode, 8)

	code, res := a.do(http.MethodPost, "/api/v1/referral/apply", "a", gin.H{"code": bCode})
	require.Equal(t, http.StatusOK, code, res)
	assert.Equal(t, true, res["success"])
	assert.Equal(t, float64(1), res["bonus"])
	assert.Equal(t, "referral_applied", res["code"])

	code, res = a.do(http.MethodPost, "/api/v1/referral/apply", "a", gin.H{"code": bCode})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "referral.already_used", res["code"])

	// One bonus: 10% off the 24h base.
	code, out := a.do(http.MethodPost, "/api/v1/commitments/invest", "a", gin.H{"tierId": 2})
	require.Equal(t, http.StatusCreated, code, out)
	assert.Equal(t, true, out["transitioned"])
	view := out["view"].(map[string]interface{})
	assert.Equal(t, "active", view["state"])
	assert.Equal(t, float64(77_760_000), view["remainingMs"])

	code, out = a.do(http.MethodPost, "/api/v1/commitments/invest", "a", gin.H{"tierId": 2})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "commitment.lane_busy", out["code"])

	code, out = a.do(http.MethodPost, "/api/v1/me/wallets/unlock", "a", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "wallets.in_use", out["code"])

	a.clock.Advance(22 * time.Hour)

	code, out = a.do(http.MethodPost, "/api/v1/commitments/investment/complete", "a", nil)
	require.Equal(t, http.StatusOK, code, out)
	assert.Equal(t, true, out["transitioned"])
	assert.Equal(t, "investment_completed", out["status"].(map[string]interface{})["code"])

	code, out = a.do(http.MethodPost, "/api/v1/commitments/invest/complete", "a", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, out["transitioned"])

	code, earnings := a.do(http.MethodGet, "/api/v1/me/earnings", "a", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(400), earnings["totalTokens"])

	code, out = a.do(http.MethodPost, "/api/v1/commitments/invest", "a", gin.H{"tierId": 2})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "commitment.not_reset", out["code"])

	code, out = a.do(http.MethodPost, "/api/v1/commitments/invest/reset", "a", nil)
	require.Equal(t, http.StatusOK, code, out)
	assert.Equal(t, "idle", out["view"].(map[string]interface{})["state"])

	code, activity := a.do(http.MethodGet, "/api/v1/me/activity?limit=10", "a", nil)
	require.Equal(t, http.StatusOK, code)
	assert.NotEmpty(t, activity["activity"])
}

func TestSettingsAndDelete(t *testing.T) {
	a := newAPI(t)
	a.signup("u1", "alice")

	code, out := a.do(http.MethodPatch, "/api/v1/me/settings", "u1", gin.H{"notifyMining": true})
	require.Equal(t, http.StatusOK, code, out)
	assert.Equal(t, true, out["user"].(map[string]interface{})["notifyMining"])

	code, out = a.do(http.MethodGet, "/api/v1/users/available?username=ALICE", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, out["available"])

	code, _ = a.do(http.MethodDelete, "/api/v1/me", "u1", nil)
	require.Equal(t, http.StatusOK, code)

	code, out = a.do(http.MethodGet, "/api/v1/users/available?username=alice", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, out["available"])
}

func TestCatalogAndHealth(t *testing.T) {
	a := newAPI(t)

	code, out := a.do(http.MethodGet, "/api/v1/catalog", "", nil)
	require.Equal(t, http.StatusOK, code)
	offers := out["offers"].([]interface{})
	require.Len(t, offers, 8)
	assert.Equal(t, "36h", offers[2].(map[string]interface{})["displayTime"])
	assert.Len(t, out["miningTiers"], 4)
	assert.Len(t, out["networks"], 5)

	for _, path := range []string{"/health", "/healthz", "/readyz"} {
		code, out := a.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, code, path)
		assert.Contains(t, []interface{}{"ok", "healthy"}, out["status"], path)
	}
}

func TestReadinessReportsFailingCheck(t *testing.T) {
	health := handlers.NewHealthHandler("test", map[string]handlers.Pinger{
		"store": handlers.PingFunc(func(context.Context) error { return nil }),
		"redis": handlers.PingFunc(func(context.Context) error { return errors.New("dial tcp: refused") }),
	})
	r := gin.New()
	r.GET("/readyz", health.Readiness)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp handlers.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Checks["store"])
	assert.Contains(t, resp.Checks["redis"], "refused")
}
