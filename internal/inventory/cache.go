package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	alertVersionKey = "stock:alerts:version"
	alertKeyPrefix  = "stock:alerts:"
)

// AlertCache keeps the low-stock list in Redis. The version key is bumped after every
// committed movement so readers never see a list older than the last write.
// A nil AlertCache, or one without a client, always loads from the store.
type AlertCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewAlertCache instantiates the cache helper.
func NewAlertCache(client *redis.Client, ttl time.Duration) *AlertCache {
	return &AlertCache{client: client, ttl: ttl}
}

func (c *AlertCache) enabled() bool {
	return c != nil && c.client != nil
}

// Version returns the current cache version, initialising when missing.
func (c *AlertCache) Version(ctx context.Context) (int64, error) {
	if !c.enabled() {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, alertVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.SetNX(ctx, alertVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, alertVersionKey).Int64()
	}
	return ver, err
}

func (c *AlertCache) key(ctx context.Context) (string, error) {
	ver, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	return alertKeyPrefix + strconv.FormatInt(ver, 10), nil
}

// Fetch returns the cached alerts or populates them using loader.
func (c *AlertCache) Fetch(ctx context.Context, loader func(context.Context) ([]Alert, error)) ([]Alert, error) {
	if !c.enabled() {
		return loader(ctx)
	}
	key, err := c.key(ctx)
	if err != nil {
		return loader(ctx)
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var alerts []Alert
		if err := json.Unmarshal(payload, &alerts); err == nil {
			return alerts, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		return loader(ctx)
	}
	alerts, err := loader(ctx)
	if err != nil {
		return nil, err
	}
	_ = c.store(ctx, key, alerts)
	return alerts, nil
}

// Store overwrites the alerts for the current version.
func (c *AlertCache) Store(ctx context.Context, alerts []Alert) error {
	if !c.enabled() {
		return nil
	}
	key, err := c.key(ctx)
	if err != nil {
		return err
	}
	return c.store(ctx, key, alerts)
}

func (c *AlertCache) store(ctx context.Context, key string, alerts []Alert) error {
	raw, err := json.Marshal(alerts)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, c.ttl).Err()
}

// Bump invalidates cached alerts by moving to a new version.
func (c *AlertCache) Bump(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}
	return c.client.Incr(ctx, alertVersionKey).Err()
}
