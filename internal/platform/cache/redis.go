// Package cache connects the optional Redis instance behind the stock alert cache
// and the job queue.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrDisabled is returned when no address is configured. Callers run without the
// alert cache and background jobs.
var ErrDisabled = errors.New("platform/cache: redis address not configured")

const (
	clientName  = "ledgerly"
	pingTimeout = 5 * time.Second
)

// New connects to addr and fails fast when the server does not answer a ping.
func New(ctx context.Context, addr string) (*redis.Client, error) {
	if addr == "" {
		return nil, ErrDisabled
	}
	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		ClientName:  clientName,
		DialTimeout: pingTimeout,
	})

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("platform/cache: ping %s: %w", addr, err)
	}
	return client, nil
}
