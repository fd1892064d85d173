// Package cache — read-through кэш результатов обхода графа в Redis.
//
// Граф blueprint не меняется между обновлениями, поэтому результат обхода
// однозначно определяется (blueprint, updated_at, узел, направление, режим).
// Обновление blueprint меняет updated_at, и старые ключи просто истекают по TTL.
//
// Ошибки Redis не прерывают запрос: кэш деградирует до прямого обхода.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"

	"github.com/shaiso/Journey/internal/domain"
	"github.com/shaiso/Journey/internal/telemetry"
)

const (
	defaultPrefix = "journey:walk:"
	defaultTTL    = 10 * time.Minute
)

// Направления обхода.
const (
	DirectionUpstream   = "upstream"
	DirectionDownstream = "downstream"
	DirectionCandidates = "candidates"
)

// Key — ключ результата обхода.
type Key struct {
	BlueprintID uuid.UUID
	Version     time.Time // Blueprint.UpdatedAt
	Node        domain.NodeID
	Direction   string
	DirectOnly  bool
}

// WalkCache кэширует результаты обхода.
// Нулевой указатель допустим: все вызовы идут мимо кэша.
type WalkCache struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

// Option настраивает WalkCache.
type Option func(*WalkCache)

// WithTTL задаёт время жизни записей.
func WithTTL(ttl time.Duration) Option {
	return func(c *WalkCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithPrefix задаёт префикс ключей.
func WithPrefix(prefix string) Option {
	return func(c *WalkCache) {
		c.prefix = prefix
	}
}

// WithLogger задаёт логгер.
func WithLogger(logger *slog.Logger) Option {
	return func(c *WalkCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New подключается к Redis по URL (redis://host:port/db).
func New(ctx context.Context, url string, opts ...Option) (*WalkCache, error) {
	redisOpts, err := backend.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := backend.NewClient(redisOpts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return NewFromClient(client, opts...), nil
}

// NewFromClient создаёт кэш поверх готового клиента.
func NewFromClient(client *backend.Client, opts ...Option) *WalkCache {
	c := &WalkCache{
		client: client,
		prefix: defaultPrefix,
		ttl:    defaultTTL,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close закрывает соединение с Redis.
func (c *WalkCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

func (c *WalkCache) key(k Key) string {
	mode := "t"
	if k.DirectOnly {
		mode = "d"
	}
	return c.prefix + k.BlueprintID.String() + ":" +
		strconv.FormatInt(k.Version.UnixNano(), 10) + ":" +
		k.Direction + ":" + mode + ":" + string(k.Node)
}

// Forms возвращает результат обхода из кэша или вычисляет его через compute.
func (c *WalkCache) Forms(ctx context.Context, k Key, compute func() []domain.Form) []domain.Form {
	var forms []domain.Form
	if c.load(ctx, k, &forms) {
		return forms
	}

	forms = compute()
	c.store(ctx, k, forms)
	return forms
}

// Lookup — обобщённый вариант Forms для любых сериализуемых результатов
// (например, списков источников).
func Lookup[T any](ctx context.Context, c *WalkCache, k Key, compute func() T) T {
	var value T
	if c.load(ctx, k, &value) {
		return value
	}

	value = compute()
	c.store(ctx, k, value)
	return value
}

func (c *WalkCache) load(ctx context.Context, k Key, dst any) bool {
	if c == nil {
		return false
	}

	data, err := c.client.Get(ctx, c.key(k)).Bytes()
	if errors.Is(err, backend.Nil) {
		telemetry.CacheLookups.WithLabelValues("miss").Inc()
		return false
	}
	if err != nil {
		telemetry.CacheLookups.WithLabelValues("error").Inc()
		c.logger.Warn("walk cache read failed", "error", err)
		return false
	}

	if err := json.Unmarshal(data, dst); err != nil {
		telemetry.CacheLookups.WithLabelValues("error").Inc()
		c.logger.Warn("walk cache entry corrupted", "key", c.key(k), "error", err)
		return false
	}

	telemetry.CacheLookups.WithLabelValues("hit").Inc()
	return true
}

func (c *WalkCache) store(ctx context.Context, k Key, value any) {
	if c == nil {
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("walk cache marshal failed", "error", err)
		return
	}
	if err := c.client.Set(ctx, c.key(k), data, c.ttl).Err(); err != nil {
		c.logger.Warn("walk cache write failed", "error", err)
	}
}

// Invalidate удаляет все записи blueprint.
func (c *WalkCache) Invalidate(ctx context.Context, blueprintID uuid.UUID) error {
	if c == nil {
		return nil
	}

	pattern := c.prefix + blueprintID.String() + ":*"
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan walk cache: %w", err)
	}

	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete walk cache: %w", err)
	}
	return nil
}
