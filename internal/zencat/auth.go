package zencat

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Los-Onichan-Kimochi/zen-cat-portal/internal/models"
)

// AuthResult — ответ бэкенда на логин/регистрацию: профиль плюс пара токенов.
type AuthResult struct {
	User   models.User `json:"user"`
	Tokens TokenPair   `json:"tokens"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token,omitempty"`
}

// Login выполняет вход и при успехе сохраняет пару токенов в стор.
// Неудачный логин стор не трогает и автоматически не повторяется.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	const op = "zencat.Login"

	var res AuthResult
	req := loginRequest{Email: email, Password: password}
	if err := c.call(ctx, http.MethodPost, "/login/", req, &res, callOpts{noAuth: true, noRetry: true}); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if res.Tokens.TokenType == "" {
		res.Tokens.TokenType = defaultTokenType
	}
	c.store.Set(res.Tokens)

	return &res, nil
}

// Register регистрирует пользователя; успех означает немедленную
// аутентификацию (отдельного подтверждения нет).
func (c *Client) Register(ctx context.Context, req models.RegisterRequest) (*AuthResult, error) {
	const op = "zencat.Register"

	var res AuthResult
	body := registerRequest{Email: req.Email, Password: req.Password, Name: req.Name}
	if err := c.call(ctx, http.MethodPost, "/register/", body, &res, callOpts{noAuth: true, noRetry: true}); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if res.Tokens.TokenType == "" {
		res.Tokens.TokenType = defaultTokenType
	}
	c.store.Set(res.Tokens)

	return &res, nil
}

// Me возвращает текущего пользователя по сохранённым токенам.
// Протухший access-токен гасится обычным refresh-путём клиента.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	const op = "zencat.Me"

	var user models.User
	if err := c.Get(ctx, "/me/", &user); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &user, nil
}

// Refresh вручную обновляет пару токенов (обычно это делает сам клиент
// на 401). Проходит через тот же коалесцированный путь.
func (c *Client) Refresh(ctx context.Context) (TokenPair, error) {
	const op = "zencat.Refresh"

	pair, ok := c.store.Tokens()
	if !ok || pair.RefreshToken == "" {
		return TokenPair{}, fmt.Errorf("%s: %w", op, ErrAuthExpired)
	}

	np, err := c.refreshTokens(ctx, pair)
	if err != nil {
		c.store.Clear()
		return TokenPair{}, fmt.Errorf("%s: %w", op, ErrAuthExpired)
	}

	return np, nil
}

// Logout отзывает сессию на бэкенде. Локальную очистку стора выполняет
// вызывающий (session.Controller) независимо от исхода сетевого вызова.
func (c *Client) Logout(ctx context.Context) error {
	const op = "zencat.Logout"

	var refresh string
	if pair, ok := c.store.Tokens(); ok {
		refresh = pair.RefreshToken
	}

	req := logoutRequest{RefreshToken: refresh}
	if err := c.call(ctx, http.MethodPost, "/auth/logout/", req, nil, callOpts{noRetry: true}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
