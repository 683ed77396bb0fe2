package zencat

import (
	"crypto/sha256"
	"encoding/base64"
	"sync"
)

// TokenPair — пара токенов, выдаваемая бэкендом при логине/регистрации/refresh.
//
// Описание:
//   - AccessToken — короткоживущий JWT для доступа к API;
//   - RefreshToken — случайный секрет для выпуска новой пары; бэкенд ротирует
//     его на каждом refresh (использованный токен отзывается);
//   - TokenType — схема Authorization-заголовка (обычно "Bearer");
//   - ExpiresIn — срок жизни access-токена в секундах; 0 означает "неизвестно,
//     считаем валидным до первого 401".
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
}

// TokenStore — единственный владелец персистентной пары токенов.
//
// Контракт:
//   - Set заменяет пару целиком (никаких частичных обновлений — access и
//     refresh живут и умирают вместе);
//   - Clear идемпотентен: очистка пустого стора — no-op, а не ошибка;
//   - Tokens возвращает снапшот и признак наличия пары.
//
// Интерфейс позволяет подменить cookie-хранилище на in-memory фейк в тестах.
type TokenStore interface {
	Tokens() (TokenPair, bool)
	Set(pair TokenPair)
	Clear()
}

// IsAuthenticated — дешёвая проверка "есть ли access-токен в сторе".
// Ничего не валидирует и в сеть не ходит.
func IsAuthenticated(s TokenStore) bool {
	pair, ok := s.Tokens()
	return ok && pair.AccessToken != ""
}

// Fingerprint — стабильный отпечаток токена (SHA-256, base64url).
// Используется как ключ коалесcинга refresh-вызовов и кэша пользователя,
// чтобы сырой токен не утекал в ключи.
func Fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// MemoryStore — потокобезопасное in-memory хранилище пары токенов.
// Применяется в тестах и в сценариях без браузерных cookie.
type MemoryStore struct {
	mu   sync.Mutex
	pair TokenPair
	ok   bool
}

// NewMemoryStore создаёт пустой MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Tokens() (TokenPair, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.pair, s.ok
}

func (s *MemoryStore) Set(pair TokenPair) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pair = pair
	s.ok = true
}

func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pair = TokenPair{}
	s.ok = false
}
