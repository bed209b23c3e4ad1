package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/vutonyhue/warm-hug-backend-sub000/internal/config"
	"github.com/vutonyhue/warm-hug-backend-sub000/internal/models"
	"github.com/vutonyhue/warm-hug-backend-sub000/internal/ratelimit"
	"github.com/vutonyhue/warm-hug-backend-sub000/internal/repository/memory"
	"github.com/vutonyhue/warm-hug-backend-sub000/internal/service"
	"github.com/vutonyhue/warm-hug-backend-sub000/internal/token"
)

type testServer struct {
	engine *gin.Engine
	store  *memory.Store
	minter *service.CredentialMinter
	now    time.Time
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	s := &testServer{store: memory.New(), now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	clock := func() time.Time { return s.now }

	key, err := token.DeriveSigningKey("test-secret", "sso.fun.rich")
	require.NoError(t, err)
	signer := token.Signer{Key: key, Issuer: "fun-profile-sso", TokenTTL: time.Hour, Now: clock}
	limits := service.DocumentLimits{MaxBytes: 2048, MaxDepth: 5, MaxStringLength: 1000, MaxArrayLength: 100, MaxAbsNumber: 1e15, MaxErrors: 10}
	rate := config.RateLimitConfig{Window: time.Minute, SyncClientLimit: 60, SyncUserLimit: 120, RegisterLimit: 20, RegisterWindow: time.Minute, LedgerClientLimit: 300}
	limiter := &ratelimit.Limiter{Counter: ratelimit.StoreCounter{Repo: s.store}, Now: clock}
	verifier := &service.TokenVerifier{Repo: s.store, Signer: signer, Now: clock}
	s.minter = &service.CredentialMinter{Repo: s.store, Signer: signer, RefreshTTL: 720 * time.Hour, Now: clock}

	h := &SSOHandler{
		Issuer:    &service.TokenIssuer{Repo: s.store, Minter: s.minter, Now: clock},
		Refresher: &service.TokenRefresher{Repo: s.store, Minter: s.minter, Now: clock},
		Registration: &service.RegistrationBridge{
			Repo: s.store, Minter: s.minter, Limiter: limiter, RateLimit: rate, Limits: limits,
			DefaultScope: "profile", Now: clock,
		},
		Verifier: verifier,
		Sync: &service.StateSynchronizer{
			Repo: s.store, Verifier: verifier, Limiter: limiter, RateLimit: rate, Limits: limits,
			LegacyFinancial: true, MaxSaveAttempts: 3, Now: clock,
		},
		Ledger: &service.FinancialLedger{
			Repo: s.store, Verifier: verifier, Limiter: limiter, RateLimit: rate,
			Config: config.LedgerConfig{DefaultCurrency: "CAMLY"}, Limits: limits, Now: clock,
		},
		Revoker:      &service.TokenRevoker{Repo: s.store, Now: clock},
		MaxBodyBytes: 8192,
	}

	s.engine = gin.New()
	s.engine.Use(CORS())
	s.engine.Use(RequestLogger(nil))
	(&HealthHandler{Store: s.store}).Register(s.engine)
	h.Register(s.engine)

	s.store.PutClient(models.OAuthClient{ClientID: "farm_prod", PlatformName: "Fun Farm", IsActive: true})
	email := "alice@fun.rich"
	s.store.PutProfile(models.Profile{ID: "user-1", FunID: "FUN000001", Username: "alice", Email: &email, CreatedAt: s.now})
	return s
}

func (s *testServer) bearer(t *testing.T, scope ...string) string {
	t.Helper()
	ctx := context.Background()
	p, _ := s.store.GetProfile(ctx, "user-1")
	c, _ := s.store.GetActiveClient(ctx, "farm_prod")
	resp, err := s.minter.Issue(ctx, p, c, scope)
	require.NoError(t, err)
	return resp.AccessToken
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func jsonRequest(method, path, body, bearer string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return req
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestPreflight(t *testing.T) {
	s := newTestServer(t)
	w := s.do(httptest.NewRequest(http.MethodOptions, "/api/sso/token", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	assert.Equal(t, http.StatusOK, s.do(httptest.NewRequest(http.MethodGet, "/healthz", nil)).Code)
	w := s.do(httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestTokenExchangeForm(t *testing.T) {
	s := newTestServer(t)
	s.store.PutAuthorizationCode(models.AuthorizationCode{
		Code: "code-1", UserID: "user-1", ClientID: "farm_prod", RedirectURI: "https://farm.fun.rich/cb",
		Scope: datatypes.JSONSlice[string]{"profile"}, ExpiresAt: s.now.Add(10 * time.Minute),
	})
	form := url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {"code-1"},
		"client_id":    {"farm_prod"},
		"redirect_uri": {"https://farm.fun.rich/cb"},
	}
	req := httptest.NewRequest(http.MethodPost, "/api/sso/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	w := s.do(req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	body := decode(t, w)
	assert.Equal(t, "Bearer", body["token_type"])
	assert.EqualValues(t, 3600, body["expires_in"])
	refresh, _ := body["refresh_token"].(string)
	assert.Len(t, refresh, 96)

	req = httptest.NewRequest(http.MethodPost, "/api/sso/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = s.do(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_grant", decode(t, w)["error"])

	// refresh through the token endpoint
	w = s.do(jsonRequest(http.MethodPost, "/api/sso/token",
		`{"grant_type":"refresh_token","refresh_token":"`+refresh+`","client_id":"farm_prod"}`, ""))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEqual(t, refresh, decode(t, w)["refresh_token"])

	w = s.do(jsonRequest(http.MethodPost, "/api/sso/refresh",
		`{"grant_type":"refresh_token","refresh_token":"`+refresh+`","client_id":"farm_prod"}`, ""))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_grant", decode(t, w)["error"])
}

func TestTokenUnknownClient(t *testing.T) {
	s := newTestServer(t)
	w := s.do(jsonRequest(http.MethodPost, "/api/sso/token",
		`{"grant_type":"authorization_code","code":"x","client_id":"nope","redirect_uri":"https://a/cb"}`, ""))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	body := decode(t, w)
	assert.Equal(t, "invalid_client", body["error"])
	assert.NotEmpty(t, body["error_description"])
}

func TestRegisterStatusCodes(t *testing.T) {
	s := newTestServer(t)
	body := `{"email":"bob@fun.rich","client_id":"farm_prod"}`
	w := s.do(jsonRequest(http.MethodPost, "/api/sso/register", body, ""))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, true, decode(t, w)["is_new_user"])

	w = s.do(jsonRequest(http.MethodPost, "/api/sso/register", body, ""))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, false, decode(t, w)["is_new_user"])

	w = s.do(jsonRequest(http.MethodPost, "/api/sso/register", `{"email":"bad","client_id":"farm_prod"}`, ""))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEmpty(t, decode(t, w)["details"])
}

func TestVerifyScopes(t *testing.T) {
	s := newTestServer(t)
	w := s.do(jsonRequest(http.MethodGet, "/api/sso/verify", "", s.bearer(t, "profile", "wallet")))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, true, body["active"])
	assert.Contains(t, body, "profile")
	assert.Contains(t, body, "wallet")
	assert.NotContains(t, body, "platform_data")

	w = s.do(jsonRequest(http.MethodPost, "/api/sso/verify", "", ""))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid_token", decode(t, w)["error"])
}

func TestSyncEndpoint(t *testing.T) {
	s := newTestServer(t)
	bearer := s.bearer(t, "profile")

	w := s.do(jsonRequest(http.MethodPost, "/api/sso/sync", `{"sync_mode":"append","data":{"achievements":["a1"]}}`, bearer))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 1, decode(t, w)["sync_count"])

	w = s.do(jsonRequest(http.MethodPost, "/api/sso/sync", `{"data":{"id":1}}`, bearer))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "validation_failed", decode(t, w)["error"])

	big := `{"data":{"blob":"` + strings.Repeat("x", 3000) + `"}}`
	w = s.do(jsonRequest(http.MethodPost, "/api/sso/sync", big, bearer))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, "payload_too_large", decode(t, w)["error"])

	huge := `{"data":{"blob":"` + strings.Repeat("x", 10000) + `"}}`
	w = s.do(jsonRequest(http.MethodPost, "/api/sso/sync", huge, bearer))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestSyncRateLimitHeader(t *testing.T) {
	s := newTestServer(t)
	bearer := s.bearer(t)
	var w *httptest.ResponseRecorder
	for i := 0; i < 61; i++ {
		w = s.do(jsonRequest(http.MethodPost, "/api/sso/sync", `{"data":{"n":1}}`, bearer))
	}
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.EqualValues(t, 60, decode(t, w)["retry_after"])
}

func TestLedgerEndpoint(t *testing.T) {
	s := newTestServer(t)
	bearer := s.bearer(t, "finance.write")
	body := `{"action":"DEPOSIT","amount":1000,"transaction_id":"tx-1"}`

	w := s.do(jsonRequest(http.MethodPost, "/api/sso/ledger", body, bearer))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	first := decode(t, w)
	assert.Equal(t, false, first["already_processed"])

	w = s.do(jsonRequest(http.MethodPost, "/api/sso/ledger", body, bearer))
	require.Equal(t, http.StatusOK, w.Code)
	second := decode(t, w)
	assert.Equal(t, true, second["already_processed"])
	balance, _ := second["balance"].(map[string]any)
	assert.EqualValues(t, 1000, balance["total_deposit"])

	w = s.do(jsonRequest(http.MethodPost, "/api/sso/ledger", body, ""))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthorized", decode(t, w)["error"])

	w = s.do(jsonRequest(http.MethodPost, "/api/sso/ledger", `{"action":"DEPOSIT"`, bearer))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation_error", decode(t, w)["error"])
}

func TestRevokeEndpoint(t *testing.T) {
	s := newTestServer(t)
	bearer := s.bearer(t, "profile")
	form := url.Values{"token": {bearer}, "client_id": {"farm_prod"}, "token_type_hint": {"access_token"}}
	req := httptest.NewRequest(http.MethodPost, "/api/sso/revoke", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := s.do(req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decode(t, w)["revoked"])

	w = s.do(jsonRequest(http.MethodPost, "/api/sso/revoke", `{"token":"unknown","client_id":"farm_prod"}`, ""))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["revoked"])
}
