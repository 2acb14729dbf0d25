// Package redis caches factor panels and publishes finished selections on
// Redis, with every call guarded by a circuit breaker.
package redis

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

// Config configures the Redis client.
type Config struct {
	Addr       string // e.g. "localhost:6379"
	Password   string
	DB         int
	PanelTTL   time.Duration // lifetime of cached panels (default 24h)
	MaxPending int           // selections buffered while the breaker is open (default 256)
	Breaker    BreakerConfig
}

// Client wraps a go-redis client with the breaker and the hooks used for
// metrics. Hooks are optional.
type Client struct {
	rdb      goredis.UniversalClient
	breaker  *Breaker
	panelTTL time.Duration

	mu         sync.Mutex
	pending    []pendingPublish
	maxPending int

	OnHit        func()
	OnMiss       func()
	ObserveWrite func(time.Duration)
}

// New connects to Redis and pings the server.
func New(ctx context.Context, cfg Config) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	slog.Info("redis connected", "addr", cfg.Addr)
	return NewFromClient(rdb, cfg), nil
}

// NewFromClient wraps an existing client. Addr and Password in cfg are ignored.
func NewFromClient(rdb goredis.UniversalClient, cfg Config) *Client {
	ttl := cfg.PanelTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	c := &Client{
		rdb:        rdb,
		panelTTL:   ttl,
		maxPending: cfg.MaxPending,
	}
	if c.maxPending <= 0 {
		c.maxPending = defaultMaxPending
	}

	bc := cfg.Breaker
	prev := bc.OnStateChange
	bc.OnStateChange = func(from, to int) {
		slog.Warn("redis circuit breaker", "from", stateName(from), "to", stateName(to))
		if prev != nil {
			prev(from, to)
		}
		if to == StateClosed {
			go c.flush()
		}
	}
	c.breaker = NewBreaker("redis", bc)
	return c
}

// Redis returns the underlying client for health checks.
func (c *Client) Redis() goredis.UniversalClient { return c.rdb }

// BreakerState returns the breaker state (see StateClosed and friends).
func (c *Client) BreakerState() int { return c.breaker.State() }

// Close closes the underlying client.
func (c *Client) Close() error { return c.rdb.Close() }

func (c *Client) observe(start time.Time) {
	if c.ObserveWrite != nil {
		c.ObserveWrite(time.Since(start))
	}
}
