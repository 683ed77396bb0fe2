package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/Los-Onichan-Kimochi/zen-cat-portal/internal/cache"
	"github.com/Los-Onichan-Kimochi/zen-cat-portal/internal/cookies"
	"github.com/Los-Onichan-Kimochi/zen-cat-portal/internal/models"
	"github.com/Los-Onichan-Kimochi/zen-cat-portal/internal/session"
	"github.com/Los-Onichan-Kimochi/zen-cat-portal/internal/zencat"
)

// newUpstream — фейковый бэкенд zen-cat: два пользователя, валидация
// access-токена по точному совпадению, каталог с одним сообществом.
func newUpstream(t *testing.T) *httptest.Server {
	t.Helper()

	users := map[string]models.User{
		"admin@zen-cat.dev": {ID: "u-admin", Email: "admin@zen-cat.dev", Role: models.RoleAdmin},
		"user@zen-cat.dev":  {ID: "u-user", Email: "user@zen-cat.dev", Role: models.RoleUser},
	}
	// access-токен -> email владельца
	sessions := map[string]string{}

	writeErr := func(w http.ResponseWriter, status int, code string) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error":{"code":"` + code + `","message":"` + code + `"}}`))
	}

	authedEmail := func(r *http.Request) (string, bool) {
		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		email, ok := sessions[raw]
		return email, ok
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/login/", func(w http.ResponseWriter, r *http.Request) {
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)

		u, ok := users[in["email"]]
		if !ok || in["password"] != "secret" {
			writeErr(w, http.StatusUnauthorized, "invalid_credentials")
			return
		}

		at := "AT-" + u.ID
		sessions[at] = u.Email

		_ = json.NewEncoder(w).Encode(map[string]any{
			"user": u,
			"tokens": zencat.TokenPair{
				AccessToken: at, RefreshToken: "RT-" + u.ID,
				TokenType: "Bearer", ExpiresIn: 3600,
			},
		})
	})

	mux.HandleFunc("/me/", func(w http.ResponseWriter, r *http.Request) {
		email, ok := authedEmail(r)
		if !ok {
			writeErr(w, http.StatusUnauthorized, "unauthenticated")
			return
		}
		u := users[email]
		_ = json.NewEncoder(w).Encode(u)
	})

	mux.HandleFunc("/auth/logout/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("/users/", func(w http.ResponseWriter, r *http.Request) {
		email, ok := authedEmail(r)
		if !ok {
			writeErr(w, http.StatusUnauthorized, "unauthenticated")
			return
		}

		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)

		// Отдаём обновлённую версию, но users не трогаем: /me/ продолжает
		// возвращать старый профиль, как при отстающей реплике.
		u := users[email]
		if in["name"] != "" {
			u.Name = in["name"]
		}
		_ = json.NewEncoder(w).Encode(u)
	})

	mux.HandleFunc("/communities/", func(w http.ResponseWriter, r *http.Request) {
		if _, ok := authedEmail(r); !ok {
			writeErr(w, http.StatusUnauthorized, "unauthenticated")
			return
		}
		_ = json.NewEncoder(w).Encode(zencat.ListEnvelope[models.Community]{
			Data:  []models.Community{{ID: "c1", Name: "Zen Runners"}},
			Total: 1,
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type portalEnv struct {
	srv    *httptest.Server
	client *http.Client
}

func newPortal(t *testing.T, admin bool) *portalEnv {
	t.Helper()

	upstream := newUpstream(t)
	zc := zencat.New(zencat.Config{BaseURL: upstream.URL, Timeout: 5 * time.Second})
	ctrl := session.New(zc)

	opts := Options{
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Timeout:  5 * time.Second,
		Cookies:  cookies.Config{MaxAge: 3600},
		BasePath: "/api",
	}

	var handler http.Handler
	if admin {
		handler = NewAdminRouter(zc, ctrl, opts)
	} else {
		handler = NewUserRouter(zc, ctrl, opts)
	}

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &portalEnv{
		srv: srv,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (p *portalEnv) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, p.srv.URL+path, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()

	return resp, raw
}

func (p *portalEnv) login(t *testing.T, email string) {
	t.Helper()

	resp, raw := p.do(t, http.MethodPost, "/auth/login",
		map[string]string{"email": email, "password": "secret"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
}

func TestPortal_LoginSetsCookiesAndHidesTokens(t *testing.T) {
	p := newPortal(t, false)

	resp, raw := p.do(t, http.MethodPost, "/auth/login",
		map[string]string{"email": "user@zen-cat.dev", "password": "secret"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var sess models.SessionResponse
	require.NoError(t, json.Unmarshal(raw, &sess))
	require.True(t, sess.Authenticated)
	require.Equal(t, "user@zen-cat.dev", sess.User.Email)

	// Токены не попадают в тело ответа — только в HttpOnly-cookie.
	require.NotContains(t, string(raw), "access_token")
	require.NotContains(t, string(raw), "AT-u-user")

	names := map[string]bool{}
	for _, c := range resp.Cookies() {
		names[c.Name] = true
		require.True(t, c.HttpOnly)
	}
	require.True(t, names["zc_access_token"])
	require.True(t, names["zc_refresh_token"])
}

func TestPortal_LoginRejectedWithEnvelope(t *testing.T) {
	p := newPortal(t, false)

	resp, raw := p.do(t, http.MethodPost, "/auth/login",
		map[string]string{"email": "user@zen-cat.dev", "password": "wrong"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Contains(t, string(raw), "invalid_credentials")

	// Cookie не выставлены.
	for _, c := range resp.Cookies() {
		require.NotEqual(t, "zc_access_token", c.Name)
	}
}

func TestPortal_SessionSnapshot(t *testing.T) {
	p := newPortal(t, false)

	resp, raw := p.do(t, http.MethodGet, "/auth/session", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var sess models.SessionResponse
	require.NoError(t, json.Unmarshal(raw, &sess))
	require.False(t, sess.Authenticated)
	require.False(t, sess.Loading)
	require.Nil(t, sess.User)

	p.login(t, "user@zen-cat.dev")

	_, raw = p.do(t, http.MethodGet, "/auth/session", nil)
	require.NoError(t, json.Unmarshal(raw, &sess))
	require.True(t, sess.Authenticated)
	require.Equal(t, "u-user", sess.User.ID)
}

func TestPortal_APIRequiresAuthentication(t *testing.T) {
	p := newPortal(t, false)

	resp, raw := p.do(t, http.MethodGet, "/api/communities", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Contains(t, string(raw), "unauthenticated")
	require.Empty(t, resp.Header.Get("Location"))

	p.login(t, "user@zen-cat.dev")

	resp, raw = p.do(t, http.MethodGet, "/api/communities", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	var env zencat.ListEnvelope[models.Community]
	require.NoError(t, json.Unmarshal(raw, &env))
	require.EqualValues(t, 1, env.Total)
	require.Equal(t, "Zen Runners", env.Data[0].Name)
}

func TestPortal_AdminAPIDeniesWrongRole(t *testing.T) {
	p := newPortal(t, true)
	p.login(t, "user@zen-cat.dev")

	// Аутентифицирован, но не админ: 403 без редиректа.
	resp, raw := p.do(t, http.MethodGet, "/api/communities", nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Contains(t, string(raw), "permission_denied")
	require.Empty(t, resp.Header.Get("Location"))
}

func TestPortal_AdminAPIAllowsAdmin(t *testing.T) {
	p := newPortal(t, true)
	p.login(t, "admin@zen-cat.dev")

	resp, _ := p.do(t, http.MethodGet, "/api/communities", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPortal_GuestOnlyBlocksSecondLogin(t *testing.T) {
	p := newPortal(t, false)
	p.login(t, "user@zen-cat.dev")

	// Guest-only маршрут с живой сессией: в API-режиме (homeURL пуст)
	// вместо редиректа домой возвращается конверт ошибки.
	resp, _ := p.do(t, http.MethodPost, "/auth/login",
		map[string]string{"email": "user@zen-cat.dev", "password": "secret"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPortal_ProfileUpdateRefreshesCachedSession(t *testing.T) {
	upstream := newUpstream(t)
	zc := zencat.New(zencat.Config{BaseURL: upstream.URL, Timeout: 5 * time.Second})
	ctrl := session.New(zc)

	mr := miniredis.RunT(t)
	userCache, err := cache.NewRedisCache("redis://"+mr.Addr(), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = userCache.Close() })
	ctrl.SetUserCache(userCache, time.Minute)

	srv := httptest.NewServer(NewUserRouter(zc, ctrl, Options{
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Cookies:  cookies.Config{MaxAge: 3600},
		BasePath: "/api",
	}))
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	p := &portalEnv{srv: srv, client: &http.Client{Jar: jar}}
	p.login(t, "user@zen-cat.dev")

	resp, raw := p.do(t, http.MethodPatch, "/api/profile", map[string]string{"name": "Мика"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	// Снапшот сессии обновлён сразу, не дожидаясь истечения TTL кэша —
	// при том, что /me/ бэкенда всё ещё отдаёт старый профиль.
	_, raw = p.do(t, http.MethodGet, "/auth/session", nil)
	var sess models.SessionResponse
	require.NoError(t, json.Unmarshal(raw, &sess))
	require.True(t, sess.Authenticated)
	require.Equal(t, "Мика", sess.User.Name)
}

func TestPortal_LogoutClearsCookies(t *testing.T) {
	p := newPortal(t, false)
	p.login(t, "user@zen-cat.dev")

	resp, _ := p.do(t, http.MethodPost, "/auth/logout", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	for _, c := range resp.Cookies() {
		require.Equal(t, -1, c.MaxAge, "cookie %s должна быть просрочена", c.Name)
	}

	// Сессии больше нет.
	resp, raw := p.do(t, http.MethodGet, "/api/communities", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode, string(raw))
}
