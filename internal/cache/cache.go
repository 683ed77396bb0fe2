// cache — кэш текущего пользователя по отпечатку access-токена.
//
// Bootstrap сессии выполняется на каждую навигацию; чтобы не дёргать
// GET /me/ бэкенда на каждый запрос, разрешённый профиль кэшируется
// с TTL, ограниченным сроком жизни access-токена.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Los-Onichan-Kimochi/zen-cat-portal/internal/models"
)

// UserCache — минимальный контракт кэша пользователей.
type UserCache interface {
	// Get возвращает профиль и признак его наличия в кэше.
	Get(ctx context.Context, fingerprint string) (*models.User, bool, error)
	// Set сохраняет профиль с TTL.
	Set(ctx context.Context, fingerprint string, user *models.User, ttl time.Duration) error
	// Invalidate удаляет запись (logout, смена пары токенов).
	Invalidate(ctx context.Context, fingerprint string) error
	// Close закрывает клиент Redis.
	Close() error
}

type redisCache struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisCache создаёт клиент Redis из URL (например, redis://:pass@host:6379/0).
// Если prefix пустой — используется "portal:me:".
func NewRedisCache(redisURL, prefix string) (UserCache, error) {
	if prefix == "" {
		prefix = "portal:me:"
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}

	return &redisCache{rdb: rdb, prefix: prefix}, nil
}

func (c *redisCache) key(fingerprint string) string { return c.prefix + fingerprint }

func (c *redisCache) Get(ctx context.Context, fingerprint string) (*models.User, bool, error) {
	raw, err := c.rdb.Get(ctx, c.key(fingerprint)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}

		return nil, false, err
	}

	var user models.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, false, err
	}

	return &user, true, nil
}

func (c *redisCache) Set(ctx context.Context, fingerprint string, user *models.User, ttl time.Duration) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return err
	}

	return c.rdb.Set(ctx, c.key(fingerprint), raw, ttl).Err()
}

func (c *redisCache) Invalidate(ctx context.Context, fingerprint string) error {
	return c.rdb.Del(ctx, c.key(fingerprint)).Err()
}

func (c *redisCache) Close() error { return c.rdb.Close() }
