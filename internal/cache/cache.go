// Package cache реализует TTL-ограниченный слой code→URL поверх Redis.
// Кэш заполняется только резолвером после попадания в БД (cache-aside);
// счётчики переходов в кэш никогда не попадают.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "link:"

	// DefaultTTL используется для ссылок без срока действия.
	DefaultTTL = 7 * 24 * time.Hour
)

// Entry — кэшируемое значение: целевой URL и срок действия ссылки.
// Срок хранится рядом с URL, чтобы просроченность можно было проверить
// прямо на попадании, не обращаясь к БД.
type Entry struct {
	URL       string     `json:"url"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Expired сообщает, истекла ли закэшированная ссылка на момент now.
func (e *Entry) Expired(now time.Time) bool {
	return e.ExpiresAt != nil && !now.Before(*e.ExpiresAt)
}

// NewClient создаёт клиент Redis и проверяет соединение.
// Пустой адрес означает работу без кэша: возвращается nil без ошибки.
func NewClient(addr, password string, db int) (*redis.Client, error) {
	if addr == "" {
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		PoolSize: 20,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connect failed: %w", err)
	}

	return rdb, nil
}

// LinkCache оборачивает клиент Redis; каждый вызов ограничен собственным
// таймаутом, чтобы медленный кэш не задерживал ответ.
type LinkCache struct {
	client  *redis.Client
	timeout time.Duration
}

// NewLinkCache создаёт кэш поверх готового клиента.
func NewLinkCache(client *redis.Client, timeout time.Duration) *LinkCache {
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	return &LinkCache{client: client, timeout: timeout}
}

// Get возвращает запись по коду. Отсутствие ключа — (nil, nil);
// любая ошибка Redis отдаётся вызывающему, который обязан трактовать
// её как промах, а не как отказ запроса.
func (c *LinkCache) Get(ctx context.Context, code string) (*Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	data, err := c.client.Get(ctx, keyPrefix+code).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("cache get: %w", err)
	}

	entry := &Entry{}
	if err := json.Unmarshal([]byte(data), entry); err != nil {
		return nil, fmt.Errorf("cache entry decode: %w", err)
	}
	return entry, nil
}

// Set сохраняет сопоставление code→URL с TTL, не превышающим остаток
// срока действия ссылки.
func (c *LinkCache) Set(ctx context.Context, code, url string, expiresAt *time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	data, err := json.Marshal(&Entry{URL: url, ExpiresAt: expiresAt})
	if err != nil {
		return fmt.Errorf("cache entry encode: %w", err)
	}

	ttl := TTLFor(expiresAt, time.Now())
	if err := c.client.Set(ctx, keyPrefix+code, data, ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Delete удаляет запись (используется при обнаружении просроченного попадания).
func (c *LinkCache) Delete(ctx context.Context, code string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	return c.client.Del(ctx, keyPrefix+code).Err()
}

// Ping проверяет доступность Redis.
func (c *LinkCache) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	return c.client.Ping(ctx).Err()
}

// TTLFor вычисляет TTL записи: остаток до expiresAt, но не меньше секунды.
// Для бессрочных ссылок используется DefaultTTL.
func TTLFor(expiresAt *time.Time, now time.Time) time.Duration {
	if expiresAt == nil {
		return DefaultTTL
	}
	remaining := expiresAt.Sub(now)
	if remaining < time.Second {
		return time.Second
	}
	return remaining
}
