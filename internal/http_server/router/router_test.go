package router_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"marketplace_api/internal/auth"
	"marketplace_api/internal/catalog"
	"marketplace_api/internal/http_server/router"
	"marketplace_api/internal/lib/jwt"
	"marketplace_api/internal/storage/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiResponse struct {
	Status       string `json:"status"`
	Error        string `json:"error"`
	Message      string `json:"message"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	Items        []struct {
		ID    int    `json:"id"`
		Name  string `json:"name"`
		Price int    `json:"price"`
	} `json:"items"`
	Profile struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"profile"`
}

type testAPI struct {
	t      *testing.T
	h      http.Handler
	tokens *jwt.Manager
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	log := slog.New(slog.DiscardHandler)
	repo := memory.New()
	tokens := jwt.New("router-test-secret", 15*time.Minute, 7*24*time.Hour)

	authService := auth.New(log, repo, repo, tokens, nil)
	require.NoError(t, authService.Seed(context.Background(), auth.DemoUsers))

	return &testAPI{
		t:      t,
		h:      router.New(log, authService, catalog.New(), []string{"*"}),
		tokens: tokens,
	}
}

func (a *testAPI) do(method, path, body, token string) (int, apiResponse) {
	a.t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	a.h.ServeHTTP(rr, req)

	var out apiResponse
	require.NoError(a.t, json.NewDecoder(rr.Body).Decode(&out))

	return rr.Code, out
}

func (a *testAPI) login(email, pass string) apiResponse {
	a.t.Helper()

	code, out := a.do(http.MethodPost, "/auth/login", `{"email":"`+email+`","password":"`+pass+`"}`, "")
	require.Equal(a.t, http.StatusOK, code, out.Error)

	return out
}

func TestScenario(t *testing.T) {
	api := newTestAPI(t)

	code, health := api.do(http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "API server is running!", health.Message)

	tokens := api.login("user1@example.com", "pass123")
	require.NotEmpty(t, tokens.AccessToken)
	require.NotEmpty(t, tokens.RefreshToken)

	code, list := api.do(http.MethodGet, "/items", "", "")
	assert.Equal(t, http.StatusOK, code)
	require.Len(t, list.Items, 2)
	assert.Equal(t, "Item 1", list.Items[0].Name)
	assert.Equal(t, 12345, list.Items[0].Price)
	assert.Equal(t, 2, list.Items[1].ID)
	assert.Equal(t, 67890, list.Items[1].Price)

	code, updated := api.do(http.MethodPut, "/profile",
		`{"name":"Updated Name","email":"updated@example.com"}`, tokens.AccessToken)
	require.Equal(t, http.StatusOK, code, updated.Error)
	assert.Equal(t, "Profile updated", updated.Message)
	assert.Equal(t, "Updated Name", updated.Profile.Name)
	assert.Equal(t, "updated@example.com", updated.Profile.Email)

	// the old token names an email that no longer exists
	code, stale := api.do(http.MethodPut, "/profile", `{"name":"Again"}`, tokens.AccessToken)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "User not found", stale.Error)

	relogin := api.login("updated@example.com", "pass123")
	claims, err := api.tokens.Verify(relogin.AccessToken, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "Updated Name", claims.Name)
}

func TestProfile_AdminIsForbidden(t *testing.T) {
	api := newTestAPI(t)
	admin := api.login("admin@example.com", "admin123")

	bodies := []string{`{"name":"New Admin"}`, `{}`, `not json`, ``}

	for _, body := range bodies {
		code, out := api.do(http.MethodPut, "/profile", body, admin.AccessToken)

		assert.Equal(t, http.StatusForbidden, code, "body %q", body)
		assert.Equal(t, "Permission denied", out.Error)
	}
}

func TestProfile_Authentication(t *testing.T) {
	api := newTestAPI(t)
	user := api.login("user1@example.com", "pass123")

	expired, err := api.tokens.NewAccessToken("user1@example.com", "user", "User One", time.Now().Add(-time.Hour))
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		wantMsg string
	}{
		{name: "no token", token: "", wantMsg: "Authentication token is missing or invalid"},
		{name: "expired", token: expired, wantMsg: "Token has expired"},
		{name: "garbage", token: "not.a.jwt", wantMsg: "Token is invalid"},
		{name: "refresh token as access token", token: user.RefreshToken, wantMsg: "Token is invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, out := api.do(http.MethodPut, "/profile", `{"name":"X"}`, tt.token)

			assert.Equal(t, http.StatusUnauthorized, code)
			assert.Equal(t, tt.wantMsg, out.Error)
		})
	}
}

func TestProfile_NameOnlyKeepsEmail(t *testing.T) {
	api := newTestAPI(t)
	user := api.login("user1@example.com", "pass123")

	code, out := api.do(http.MethodPut, "/profile", `{"name":"X"}`, user.AccessToken)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "X", out.Profile.Name)
	assert.Equal(t, "user1@example.com", out.Profile.Email)

	// the same token keeps working since the email did not change
	code, _ = api.do(http.MethodPut, "/profile", `{"email":"user1@example.com"}`, user.AccessToken)
	assert.Equal(t, http.StatusOK, code)
}

func TestProfile_DuplicateEmail(t *testing.T) {
	api := newTestAPI(t)
	user := api.login("user1@example.com", "pass123")

	code, out := api.do(http.MethodPut, "/profile", `{"email":"admin@example.com"}`, user.AccessToken)

	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "Email already in use", out.Error)
}

func TestRefresh_ReflectsCurrentProfile(t *testing.T) {
	api := newTestAPI(t)
	user := api.login("user1@example.com", "pass123")

	code, _ := api.do(http.MethodPut, "/profile", `{"name":"Renamed"}`, user.AccessToken)
	require.Equal(t, http.StatusOK, code)

	code, out := api.do(http.MethodPost, "/auth/refresh", `{"refresh_token":"`+user.RefreshToken+`"}`, "")
	require.Equal(t, http.StatusOK, code, out.Error)
	assert.Empty(t, out.RefreshToken)

	claims, err := api.tokens.Verify(out.AccessToken, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "Renamed", claims.Name)
	assert.Equal(t, "user", claims.Role)

	code, out = api.do(http.MethodPost, "/auth/refresh", `{"refresh_token":"`+user.AccessToken+`"}`, "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Refresh token is invalid", out.Error)

	code, out = api.do(http.MethodPost, "/auth/refresh", `{}`, "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Refresh token not found", out.Error)
}

func TestLogin_InvalidCredentialsLookAlike(t *testing.T) {
	api := newTestAPI(t)

	wrongPassCode, wrongPass := api.do(http.MethodPost, "/auth/login",
		`{"email":"user1@example.com","password":"wrong"}`, "")
	unknownCode, unknown := api.do(http.MethodPost, "/auth/login",
		`{"email":"nobody@example.com","password":"pass123"}`, "")

	assert.Equal(t, http.StatusUnauthorized, wrongPassCode)
	assert.Equal(t, wrongPassCode, unknownCode)
	assert.Equal(t, wrongPass, unknown)
	assert.Equal(t, "Invalid credentials", unknown.Error)

	code, missing := api.do(http.MethodPost, "/auth/login", `{"email":"user1@example.com"}`, "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "error", missing.Status)
}

func TestLogin_RateLimited(t *testing.T) {
	api := newTestAPI(t)

	for i := 0; i < 10; i++ {
		code, _ := api.do(http.MethodPost, "/auth/login", `{"email":"user1@example.com","password":"wrong"}`, "")
		require.Equal(t, http.StatusUnauthorized, code)
	}

	code, out := api.do(http.MethodPost, "/auth/login", `{"email":"user1@example.com","password":"pass123"}`, "")
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, "Too many requests", out.Error)
}

func TestCORS(t *testing.T) {
	api := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/items", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rr := httptest.NewRecorder()

	api.h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}
