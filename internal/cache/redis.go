package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/haven/config"
	"github.com/Domenick1991/haven/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client   *redis.Client
	ratesTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, ratesTTL time.Duration) *RedisCache {
	return NewRedisCacheWithClient(redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}), ratesTTL)
}

func NewRedisCacheWithClient(client *redis.Client, ratesTTL time.Duration) *RedisCache {
	return &RedisCache{client: client, ratesTTL: ratesTTL}
}

func (c *RedisCache) Client() *redis.Client {
	return c.client
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// GetExternalRates reports ok=false on a cache miss.
func (c *RedisCache) GetExternalRates(ctx context.Context, propertyID uuid.UUID) ([]domain.ExternalRate, bool, error) {
	data, err := c.client.Get(ctx, externalRatesKey(propertyID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var rates []domain.ExternalRate
	if err := json.Unmarshal(data, &rates); err != nil {
		return nil, false, err
	}
	return rates, true, nil
}

func (c *RedisCache) SetExternalRates(ctx context.Context, propertyID uuid.UUID, rates []domain.ExternalRate) error {
	payload, err := json.Marshal(rates)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, externalRatesKey(propertyID), payload, c.ratesTTL).Err()
}

func externalRatesKey(propertyID uuid.UUID) string {
	return fmt.Sprintf("cache:property:%s:external_rates", propertyID)
}
