package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"natours/internal/config"
	"natours/internal/handlers"
	"natours/internal/middleware"
	"natours/internal/models"
	"natours/internal/repository/repotest"
	"natours/internal/services"
	"natours/internal/utils"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureMailer struct {
	mu       sync.Mutex
	resetURL string
	welcomed []string
}

func (m *captureMailer) SendWelcome(_ context.Context, u *models.User, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.welcomed = append(m.welcomed, u.Email)
	return nil
}

func (m *captureMailer) SendPasswordReset(_ context.Context, _ *models.User, resetURL string, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetURL = resetURL
	return nil
}

type testServer struct {
	router *mux.Router
	store  *repotest.UserStore
	mailer *captureMailer
	auth   *services.AuthService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := &config.Config{
		JWTSecret:           "route-test-secret",
		JWTExpiresIn:        "1h",
		JWTCookieExpiresIn:  "1",
		PasswordResetTTLMin: "10",
		PasswordMinLen:      "8",
		Env:                 "dev",
		SiteURL:             "https://natours.test",
	}
	store := repotest.NewUserStore()
	mailer := &captureMailer{}
	tokens := utils.NewTokenService(cfg.JWTSecret, cfg.TokenTTL())
	authSvc := services.NewAuthService(store, tokens, cfg.MinPasswordLen())
	pwdSvc := services.NewPasswordService(store, mailer, tokens, cfg.ResetTTL(), cfg.MinPasswordLen())

	router := mux.NewRouter()
	InitRoutes(router,
		middleware.NewAuthenticator(authSvc),
		handlers.NewAuthHandler(authSvc, mailer, cfg),
		handlers.NewPasswordHandler(pwdSvc, authSvc, cfg),
		handlers.NewAdminLogsHandler(t.TempDir()),
	)
	return &testServer{router: router, store: store, mailer: mailer, auth: authSvc}
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

type authData struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
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
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &env)
	}
	return rec, env
}

func (s *testServer) signup(t *testing.T, email string) authData {
	t.Helper()
	rec, env := s.do(t, http.MethodPost, "/api/v1/users/signup", "", map[string]string{
		"name": "Jennifer Hardy", "email": email, "password": "Secret123", "passwordConfirm": "Secret123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var data authData
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data
}

func cookieFrom(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestSignupSetsCookieAndHidesSecrets(t *testing.T) {
	s := newTestServer(t)
	rec, env := s.do(t, http.MethodPost, "/api/v1/users/signup", "", map[string]string{
		"name": "Jennifer Hardy", "email": "jen@example.com", "password": "Secret123", "passwordConfirm": "Secret123",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	c := cookieFrom(rec, middleware.CookieName)
	require.NotNil(t, c)
	assert.True(t, c.HttpOnly)
	assert.NotEmpty(t, c.Value)
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))

	raw := string(env.Data)
	assert.NotContains(t, raw, "password")
	assert.NotContains(t, raw, "$2a$")
	assert.Contains(t, s.mailer.welcomed, "jen@example.com")
}

func TestLoginAndProtectedRoutes(t *testing.T) {
	s := newTestServer(t)
	s.signup(t, "jen@example.com")

	rec, _ := s.do(t, http.MethodPost, "/api/v1/users/login", "", map[string]string{"email": "jen@example.com", "password": "WrongPass"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, env := s.do(t, http.MethodPost, "/api/v1/users/login", "", map[string]string{"email": "jen@example.com", "password": "Secret123"})
	require.Equal(t, http.StatusOK, rec.Code)
	var data authData
	require.NoError(t, json.Unmarshal(env.Data, &data))

	rec, _ = s.do(t, http.MethodGet, "/api/v1/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, env = s.do(t, http.MethodGet, "/api/v1/users/me", data.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me models.User
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, "jen@example.com", me.Email)

	// cookie работает так же, как заголовок
	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.AddCookie(&http.Cookie{Name: middleware.CookieName, Value: data.Token})
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	s := newTestServer(t)
	user := s.signup(t, "jen@example.com")
	target := s.signup(t, "max@example.com")

	rec, _ := s.do(t, http.MethodGet, "/api/v1/users", user.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec, _ = s.do(t, http.MethodDelete, "/api/v1/users/"+target.User.ID, user.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec, _ = s.do(t, http.MethodGet, "/api/v1/admin/logs/days", user.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	admin := models.RoleAdmin
	_, err := s.auth.UpdateUser(context.Background(), user.User.ID, &models.UpdateUserRequest{Role: &admin})
	require.NoError(t, err)

	// роль читается из БД при каждом запросе, старый токен уже с правами admin
	rec, _ = s.do(t, http.MethodGet, "/api/v1/users", user.Token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(t, http.MethodPatch, "/api/v1/users/"+target.User.ID, user.Token, map[string]string{"role": "guide"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.RoleGuide, s.store.Stored(target.User.ID).Role)

	rec, _ = s.do(t, http.MethodPatch, "/api/v1/users/"+target.User.ID, user.Token, map[string]string{"role": "root"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(t, http.MethodDelete, "/api/v1/users/"+target.User.ID, user.Token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/api/v1/admin/logs/days", user.Token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogoutOverwritesCookie(t *testing.T) {
	s := newTestServer(t)
	rec, _ := s.do(t, http.MethodGet, "/api/v1/users/logout", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	c := cookieFrom(rec, middleware.CookieName)
	require.NotNil(t, c)
	assert.Equal(t, "loggedout", c.Value)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.MaxAge < 0 || c.Expires.Before(time.Now()))
}

func TestSessionProbe(t *testing.T) {
	s := newTestServer(t)
	user := s.signup(t, "jen@example.com")

	rec, env := s.do(t, http.MethodGet, "/api/v1/users/session", "forged.token.value", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"logged_in":false`)

	rec, env = s.do(t, http.MethodGet, "/api/v1/users/session", user.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"logged_in":true`)
	assert.Contains(t, string(env.Data), "jen@example.com")
}

func TestUpdateMeRejectsPassword(t *testing.T) {
	s := newTestServer(t)
	user := s.signup(t, "jen@example.com")

	rec, _ := s.do(t, http.MethodPatch, "/api/v1/users/updateMe", user.Token, map[string]string{"password": "NewSecret1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(t, http.MethodPatch, "/api/v1/users/updateMe", user.Token, map[string]string{"name": "Jen H."})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDeleteMeRevokesAccess(t *testing.T) {
	s := newTestServer(t)
	user := s.signup(t, "jen@example.com")

	rec, _ := s.do(t, http.MethodDelete, "/api/v1/users/deleteMe", user.Token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/api/v1/users/me", user.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestForgotAndResetPassword(t *testing.T) {
	s := newTestServer(t)
	s.signup(t, "jen@example.com")

	rec, _ := s.do(t, http.MethodPost, "/api/v1/users/forgotPassword", "", map[string]string{"email": "ghost@example.com"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/api/v1/users/forgotPassword", "", map[string]string{"email": "jen@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.HasPrefix(s.mailer.resetURL, "https://natours.test/api/v1/users/resetPassword/"), s.mailer.resetURL)
	path := strings.TrimPrefix(s.mailer.resetURL, "https://natours.test")

	body := map[string]string{"password": "NewSecret1", "passwordConfirm": "NewSecret1"}
	rec, env := s.do(t, http.MethodPatch, path, "", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var data authData
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.NotEmpty(t, data.Token)
	assert.NotNil(t, cookieFrom(rec, middleware.CookieName))

	rec, _ = s.do(t, http.MethodPatch, path, "", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/api/v1/users/login", "", map[string]string{"email": "jen@example.com", "password": "NewSecret1"})
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = s.do(t, http.MethodPost, "/api/v1/users/login", "", map[string]string{"email": "jen@example.com", "password": "Secret123"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestForgotPasswordIgnoresRequestHost(t *testing.T) {
	s := newTestServer(t)
	s.signup(t, "jen@example.com")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/forgotPassword", strings.NewReader(`{"email":"jen@example.com"}`))
	req.Host = "attacker.example"
	req.Header.Set("X-Forwarded-Proto", "https")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, strings.HasPrefix(s.mailer.resetURL, "https://natours.test/api/v1/users/resetPassword/"), s.mailer.resetURL)
	assert.NotContains(t, s.mailer.resetURL, "attacker.example")
}

func TestUpdatePassword(t *testing.T) {
	s := newTestServer(t)
	user := s.signup(t, "jen@example.com")

	rec, _ := s.do(t, http.MethodPatch, "/api/v1/users/updatePassword", user.Token, map[string]string{
		"passwordCurrent": "nope", "password": "NewSecret1", "passwordConfirm": "NewSecret1",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, env := s.do(t, http.MethodPatch, "/api/v1/users/updatePassword", user.Token, map[string]string{
		"passwordCurrent": "Secret123", "password": "NewSecret1", "passwordConfirm": "NewSecret1",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var data authData
	require.NoError(t, json.Unmarshal(env.Data, &data))

	rec, _ = s.do(t, http.MethodGet, "/api/v1/users/me", data.Token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
