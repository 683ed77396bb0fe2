package zencat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	logctx "github.com/Los-Onichan-Kimochi/zen-cat-portal/internal/pkg/log"
)

// defaultTokenType подставляется, если бэкенд не вернул token_type.
const defaultTokenType = "Bearer"

// Config — параметры клиента.
type Config struct {
	// BaseURL — origin бэкенда, например http://localhost:8098.
	BaseURL string
	// Timeout — таймаут одного HTTP-вызова; 0 — без таймаута (дедлайн из ctx).
	Timeout time.Duration
	// UserAgent — подпись исходящих запросов.
	UserAgent string
}

// Client — единая точка исходящих вызовов к бэкенду.
//
// Инварианты:
//   - Authorization прикрепляется из TokenStore, если пара есть;
//   - на 401 выполняется ровно один тихий refresh и ровно один retry;
//   - конкурентные 401 коалесцируются: на один refresh-токен — один
//     сетевой refresh-вызов (singleflight), остальные ждут его результат.
//
// WithStore создаёт дешёвую привязку клиента к другому TokenStore
// (cookie-стор конкретного запроса), разделяя транспорт и группу коалесcинга,
// поэтому один базовый Client безопасно обслуживает весь портал.
type Client struct {
	baseURL string
	ua      string
	http    *http.Client
	store   TokenStore
	refresh *singleflight.Group
}

// New создаёт клиент с in-memory хранилищем токенов.
func New(cfg Config) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		ua:      cfg.UserAgent,
		http:    &http.Client{Timeout: cfg.Timeout},
		store:   NewMemoryStore(),
		refresh: &singleflight.Group{},
	}
}

// WithStore возвращает копию клиента, привязанную к другому TokenStore.
// Транспорт и группа коалесcинга общие; ключ флайта включает отпечаток
// refresh-токена, так что чужие сессии друг друга не ждут.
func (c *Client) WithStore(store TokenStore) *Client {
	cp := *c
	cp.store = store
	return &cp
}

// Store возвращает хранилище токенов клиента.
func (c *Client) Store() TokenStore { return c.store }

// Get выполняет GET и декодирует ответ в out (nil — тело не нужно).
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.call(ctx, http.MethodGet, path, nil, out, callOpts{})
}

// Post выполняет POST с JSON-телом.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.call(ctx, http.MethodPost, path, body, out, callOpts{})
}

// Patch выполняет PATCH с JSON-телом.
func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.call(ctx, http.MethodPatch, path, body, out, callOpts{})
}

// Delete выполняет DELETE; body опционален (bulk-delete шлёт список id).
func (c *Client) Delete(ctx context.Context, path string, body, out any) error {
	return c.call(ctx, http.MethodDelete, path, body, out, callOpts{})
}

// callOpts — режим вызова.
type callOpts struct {
	// noAuth — не прикреплять Authorization (логин/регистрация/refresh).
	noAuth bool
	// noRetry — не гасить 401 рефрешем. Ставится на всех auth-эндпойнтах:
	// иначе неудачный логин уходил бы в бессмысленный refresh.
	noRetry bool
}

func (c *Client) call(ctx context.Context, method, path string, body, out any, opts callOpts) error {
	const op = "zencat.call"

	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: marshal body: %w", op, err)
		}
		payload = b
	}

	var auth string
	pair, havePair := c.store.Tokens()
	if havePair && !opts.noAuth {
		auth = authHeader(pair)
	}

	status, respBody, err := c.send(ctx, method, path, payload, auth)
	if err != nil {
		return err
	}

	// Единственное санкционированное локальное восстановление:
	// 401 -> один тихий refresh -> один retry с новой парой.
	if status == http.StatusUnauthorized && !opts.noRetry && havePair && pair.RefreshToken != "" {
		newPair, rerr := c.refreshTokens(ctx, pair)
		if rerr != nil {
			c.store.Clear()
			logctx.From(ctx).Warn("token_refresh_failed",
				slog.String("op", op),
				slog.String("err", rerr.Error()),
			)
			return fmt.Errorf("%s %s: %w", method, path, ErrAuthExpired)
		}

		status, respBody, err = c.send(ctx, method, path, payload, authHeader(newPair))
		if err != nil {
			return err
		}
	}

	if status >= 200 && status < 300 {
		if out == nil || status == http.StatusNoContent || len(respBody) == 0 {
			return nil
		}
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("%s: decode response: %w", op, err)
		}
		return nil
	}

	return httpError(status, respBody)
}

// refreshTokens выполняет коалесцированный refresh пары токенов.
//
// Ключ флайта — отпечаток refresh-токена, с которым вызывающий получил 401.
// Внутри флайта стор перечитывается: если пара уже ротирована предыдущим
// флайтом (наш токен устарел, но сессия жива), сетевой вызов не нужен —
// иначе мы бы предъявили отозванный refresh-токен и убили сессию.
func (c *Client) refreshTokens(ctx context.Context, cur TokenPair) (TokenPair, error) {
	const op = "zencat.refreshTokens"

	key := Fingerprint(cur.RefreshToken)

	v, err, _ := c.refresh.Do(key, func() (any, error) {
		if pair, ok := c.store.Tokens(); ok &&
			pair.AccessToken != "" && pair.RefreshToken != cur.RefreshToken {
			return pair, nil
		}

		var np TokenPair
		req := refreshRequest{RefreshToken: cur.RefreshToken}
		if err := c.call(ctx, http.MethodPost, "/auth/refresh/", req, &np, callOpts{noAuth: true, noRetry: true}); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		if np.TokenType == "" {
			np.TokenType = defaultTokenType
		}

		c.store.Set(np)
		logctx.From(ctx).Debug("token_refresh_ok", slog.String("op", op))

		return np, nil
	})
	if err != nil {
		return TokenPair{}, err
	}

	return v.(TokenPair), nil
}

// send выполняет один HTTP-вызов и возвращает статус и тело целиком.
// Транспортные сбои заворачиваются в *NetworkError.
func (c *Client) send(ctx context.Context, method, path string, payload []byte, auth string) (int, []byte, error) {
	const op = "zencat.send"

	url := c.baseURL + path

	var rd io.Reader
	if payload != nil {
		rd = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return 0, nil, fmt.Errorf("%s: %w", op, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.ua != "" {
		req.Header.Set("User-Agent", c.ua)
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, &NetworkError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, &NetworkError{URL: url, Err: err}
	}

	return resp.StatusCode, body, nil
}

func authHeader(pair TokenPair) string {
	tt := pair.TokenType
	if tt == "" {
		tt = defaultTokenType
	}

	return tt + " " + pair.AccessToken
}
