// session — владелец состояния сессии и её переходов.
//
// Машина состояний: INITIALIZING -> {AUTHENTICATED, UNAUTHENTICATED}.
// Из AUTHENTICATED выводят logout() и невосстановимый 401 (refresh не помог);
// из UNAUTHENTICATED — только успешные login()/register(). Неудачный логин
// состояние не меняет.
//
// Controller — явная инжектируемая зависимость приложения (не синглтон):
// тесты поднимают изолированные экземпляры поверх httptest-бэкенда.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Los-Onichan-Kimochi/zen-cat-portal/internal/cache"
	"github.com/Los-Onichan-Kimochi/zen-cat-portal/internal/models"
	logctx "github.com/Los-Onichan-Kimochi/zen-cat-portal/internal/pkg/log"
	"github.com/Los-Onichan-Kimochi/zen-cat-portal/internal/pkg/redact"
	"github.com/Los-Onichan-Kimochi/zen-cat-portal/internal/zencat"
)

var (
	// ErrInvalidCredentials — пара email/пароль неверна. Терминальный исход
	// попытки логина; наружу уходит как 401/invalid_credentials.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Session — снапшот состояния сессии. Записывает его только Controller,
// остальные слои читают.
type Session struct {
	User          *models.User
	Authenticated bool
	// Loading — сессия ещё разрешается (начальный bootstrap не завершён).
	// Гварды в этом состоянии отдают fallback и не редиректят.
	Loading bool
}

// Initializing — стартовое состояние до завершения bootstrap.
func Initializing() Session { return Session{Loading: true} }

// Anonymous — разрешённое неаутентифицированное состояние.
func Anonymous() Session { return Session{} }

// Controller управляет сессией поверх zencat.Client.
// Экземпляр потокобезопасен: всё состояние запроса живёт в TokenStore,
// который передаётся в каждую операцию.
type Controller struct {
	client *zencat.Client
	users  cache.UserCache // может быть nil, если кэш не сконфигурирован
	meTTL  time.Duration
}

// New создаёт контроллер поверх клиента.
func New(client *zencat.Client) *Controller {
	return &Controller{client: client, meTTL: time.Minute}
}

// SetUserCache подключает кэш текущего пользователя (опционально).
// ttl — верхняя граница времени жизни записи; фактический TTL дополнительно
// ограничивается expires_in access-токена.
func (c *Controller) SetUserCache(users cache.UserCache, ttl time.Duration) {
	c.users = users
	if ttl > 0 {
		c.meTTL = ttl
	}
}

// Login выполняет вход. Успех: пара токенов сохранена в store, сессия
// AUTHENTICATED. Неверные креды: ErrInvalidCredentials, store не тронут.
func (c *Controller) Login(ctx context.Context, store zencat.TokenStore, email, password string) (Session, error) {
	const op = "session.Login"

	res, err := c.client.WithStore(store).Login(ctx, email, password)
	if err != nil {
		var he *zencat.HTTPError
		if errors.As(err, &he) && he.Status == http.StatusUnauthorized {
			logctx.From(ctx).Info("login_rejected",
				slog.String("op", op),
				slog.String("email", redact.Email(email)),
			)
			return Anonymous(), fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		return Anonymous(), fmt.Errorf("%s: %w", op, err)
	}

	c.cacheUser(ctx, store, &res.User)

	return Session{User: &res.User, Authenticated: true}, nil
}

// Register регистрирует пользователя; успех означает немедленную
// аутентификацию — контракт тот же, что у Login.
func (c *Controller) Register(ctx context.Context, store zencat.TokenStore, req models.RegisterRequest) (Session, error) {
	const op = "session.Register"

	res, err := c.client.WithStore(store).Register(ctx, req)
	if err != nil {
		return Anonymous(), fmt.Errorf("%s: %w", op, err)
	}

	c.cacheUser(ctx, store, &res.User)

	return Session{User: &res.User, Authenticated: true}, nil
}

// Logout завершает сессию. Серверный вызов — best-effort: сетевой сбой
// не должен оставить живую клиентскую сессию, поэтому локальная очистка
// выполняется безусловно.
func (c *Controller) Logout(ctx context.Context, store zencat.TokenStore) {
	const op = "session.Logout"

	c.invalidateUser(ctx, store)

	if err := c.client.WithStore(store).Logout(ctx); err != nil {
		logctx.From(ctx).Warn("logout_backend_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
	}

	store.Clear()
}

// Bootstrap разрешает сессию по сохранённым токенам (запускается на каждую
// навигацию; исторически — один раз на старте приложения).
//
// Исходы:
//   - токенов нет — UNAUTHENTICATED;
//   - /me/ ответил — AUTHENTICATED (протухший access гасится refresh-путём
//     клиента прозрачно);
//   - refresh не помог — токены уже очищены клиентом, UNAUTHENTICATED;
//   - транзиентный сетевой сбой — UNAUTHENTICATED на этот запрос, но токены
//     сохраняются: недоступный бэкенд не повод убивать сессию.
func (c *Controller) Bootstrap(ctx context.Context, store zencat.TokenStore) Session {
	const op = "session.Bootstrap"

	if !zencat.IsAuthenticated(store) {
		return Anonymous()
	}

	if user, ok := c.cachedUser(ctx, store); ok {
		return Session{User: user, Authenticated: true}
	}

	user, err := c.client.WithStore(store).Me(ctx)
	if err != nil {
		if errors.Is(err, zencat.ErrAuthExpired) {
			logctx.From(ctx).Info("bootstrap_session_expired", slog.String("op", op))
			return Anonymous()
		}

		var he *zencat.HTTPError
		if errors.As(err, &he) && he.Status < http.StatusInternalServerError {
			// Бэкенд ответил и отверг наши токены — чистим их.
			// 5xx сюда не попадает: это сбой бэкенда, а не сессии.
			logctx.From(ctx).Warn("bootstrap_rejected",
				slog.String("op", op),
				slog.Int("status", he.Status),
			)
			store.Clear()
			return Anonymous()
		}

		logctx.From(ctx).Warn("bootstrap_unavailable",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return Anonymous()
	}

	c.cacheUser(ctx, store, user)

	return Session{User: user, Authenticated: true}
}

// Refresh вручную обновляет пару токенов, не меняя пользователя.
func (c *Controller) Refresh(ctx context.Context, store zencat.TokenStore) error {
	const op = "session.Refresh"

	c.invalidateUser(ctx, store)

	if _, err := c.client.WithStore(store).Refresh(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// UpdateProfile частично обновляет профиль текущего пользователя и
// переписывает кэшированный снапшот возвращённой версией: иначе до
// истечения TTL сессия продолжала бы отдавать дообновлённый профиль.
func (c *Controller) UpdateProfile(ctx context.Context, store zencat.TokenStore, userID string, req models.UpdateUserRequest) (*models.User, error) {
	const op = "session.UpdateProfile"

	svc := zencat.NewResource[models.User](c.client.WithStore(store), zencat.PathUsers)

	user, err := svc.Update(ctx, userID, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	c.cacheUser(ctx, store, user)

	return user, nil
}

// cacheUser сохраняет профиль в кэш под отпечатком текущего access-токена.
// Ошибки кэша не фатальны: следующая навигация просто сходит в /me/.
func (c *Controller) cacheUser(ctx context.Context, store zencat.TokenStore, user *models.User) {
	if c.users == nil {
		return
	}

	pair, ok := store.Tokens()
	if !ok || pair.AccessToken == "" {
		return
	}

	ttl := c.meTTL
	if pair.ExpiresIn > 0 {
		if d := time.Duration(pair.ExpiresIn) * time.Second; d < ttl {
			ttl = d
		}
	}

	if err := c.users.Set(ctx, zencat.Fingerprint(pair.AccessToken), user, ttl); err != nil {
		logctx.From(ctx).Warn("user_cache_set_failed", slog.String("err", err.Error()))
	}
}

func (c *Controller) cachedUser(ctx context.Context, store zencat.TokenStore) (*models.User, bool) {
	if c.users == nil {
		return nil, false
	}

	pair, ok := store.Tokens()
	if !ok || pair.AccessToken == "" {
		return nil, false
	}

	user, hit, err := c.users.Get(ctx, zencat.Fingerprint(pair.AccessToken))
	if err != nil {
		logctx.From(ctx).Warn("user_cache_get_failed", slog.String("err", err.Error()))
		return nil, false
	}

	return user, hit
}

func (c *Controller) invalidateUser(ctx context.Context, store zencat.TokenStore) {
	if c.users == nil {
		return
	}

	pair, ok := store.Tokens()
	if !ok || pair.AccessToken == "" {
		return
	}

	if err := c.users.Invalidate(ctx, zencat.Fingerprint(pair.AccessToken)); err != nil {
		logctx.From(ctx).Warn("user_cache_del_failed", slog.String("err", err.Error()))
	}
}
