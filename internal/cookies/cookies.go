// cookies — долговременное хранилище пары токенов в браузерных cookie.
//
// Токены переживают перезагрузку страницы, но остаются в пределах браузера:
// HttpOnly-cookie с настраиваемыми SameSite/Secure. Стор реализует
// zencat.TokenStore и пишет сквозь себя: значение, записанное в рамках
// запроса, видно последующим чтениям того же запроса, хотя входящие
// cookie уже не изменятся.
package cookies

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/Los-Onichan-Kimochi/zen-cat-portal/internal/zencat"
)

// Имена cookie. Access и refresh пишутся и чистятся только вместе.
const (
	accessCookie    = "zc_access_token"
	refreshCookie   = "zc_refresh_token"
	tokenTypeCookie = "zc_token_type"
	expiresInCookie = "zc_expires_in"
)

// Config — атрибуты выставляемых cookie.
type Config struct {
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
	// MaxAge — срок жизни cookie в секундах (по сроку refresh-токена).
	MaxAge int
}

// ParseSameSite разбирает значение из конфигурации (lax|strict|none).
// SameSite=None без Secure бэкенд-браузеры отвергают, поэтому комбинация
// считается ошибкой конфигурации на уровне вызывающего.
func ParseSameSite(value string) (http.SameSite, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	default:
		return 0, fmt.Errorf("unknown samesite value %q", value)
	}
}

// Store — zencat.TokenStore поверх cookie одного HTTP-запроса.
type Store struct {
	w   http.ResponseWriter
	r   *http.Request
	cfg Config

	mu      sync.Mutex
	loaded  bool
	pair    zencat.TokenPair
	present bool
}

// New привязывает стор к паре (w, r). Path по умолчанию "/".
func New(w http.ResponseWriter, r *http.Request, cfg Config) *Store {
	if strings.TrimSpace(cfg.Path) == "" {
		cfg.Path = "/"
	}

	return &Store{w: w, r: r, cfg: cfg}
}

// Tokens возвращает текущую пару. Пара без одного из токенов считается
// отсутствующей: инвариант "access и refresh только вместе".
func (s *Store) Tokens() (zencat.TokenPair, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loadLocked()
	return s.pair, s.present
}

// Set записывает пару целиком: все четыре cookie за одну операцию.
func (s *Store) Set(pair zencat.TokenPair) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.setCookie(accessCookie, pair.AccessToken)
	s.setCookie(refreshCookie, pair.RefreshToken)
	s.setCookie(tokenTypeCookie, pair.TokenType)
	s.setCookie(expiresInCookie, strconv.FormatInt(pair.ExpiresIn, 10))

	s.loaded = true
	s.pair = pair
	s.present = true
}

// Clear удаляет все токен-cookie. Идемпотентен.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, name := range []string{accessCookie, refreshCookie, tokenTypeCookie, expiresInCookie} {
		s.expireCookie(name)
	}

	s.loaded = true
	s.pair = zencat.TokenPair{}
	s.present = false
}

// loadLocked лениво читает пару из входящих cookie запроса.
func (s *Store) loadLocked() {
	if s.loaded {
		return
	}
	s.loaded = true

	access := s.cookieValue(accessCookie)
	refresh := s.cookieValue(refreshCookie)
	if access == "" || refresh == "" {
		// Половинчатое состояние (пользователь удалил одну из cookie)
		// трактуем как отсутствие пары.
		return
	}

	pair := zencat.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    s.cookieValue(tokenTypeCookie),
	}
	if raw := s.cookieValue(expiresInCookie); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
			pair.ExpiresIn = v
		}
	}

	s.pair = pair
	s.present = true
}

func (s *Store) cookieValue(name string) string {
	c, err := s.r.Cookie(name)
	if err != nil {
		return ""
	}

	return c.Value
}

func (s *Store) setCookie(name, value string) {
	http.SetCookie(s.w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     s.cfg.Path,
		Domain:   s.cfg.Domain,
		MaxAge:   s.cfg.MaxAge,
		Secure:   s.cfg.Secure,
		HttpOnly: true,
		SameSite: s.cfg.SameSite,
	})
}

func (s *Store) expireCookie(name string) {
	http.SetCookie(s.w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     s.cfg.Path,
		Domain:   s.cfg.Domain,
		MaxAge:   -1,
		Secure:   s.cfg.Secure,
		HttpOnly: true,
		SameSite: s.cfg.SameSite,
	})
}
