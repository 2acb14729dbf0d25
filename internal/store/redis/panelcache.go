package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"quant-systemv1/internal/model"
)

const panelPrefix = "panel:"

// GetPanel returns the cached panel under key. A miss returns nil, nil.
func (c *Client) GetPanel(ctx context.Context, key string) (*model.FactorPanel, error) {
	var raw string
	err := c.breaker.Execute(func() error {
		var err error
		raw, err = c.rdb.Get(ctx, panelPrefix+key).Result()
		return err
	})
	if errors.Is(err, goredis.Nil) {
		if c.OnMiss != nil {
			c.OnMiss()
		}
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis GET %s: %w", panelPrefix+key, err)
	}

	var p model.FactorPanel
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("redis decode panel %s: %w", key, err)
	}
	if p.Values == nil {
		p.Values = make(map[string]map[string]float64)
	}
	if c.OnHit != nil {
		c.OnHit()
	}
	return &p, nil
}

// PutPanel caches panel under key for the configured TTL.
func (c *Client) PutPanel(ctx context.Context, key string, panel *model.FactorPanel) error {
	data, err := json.Marshal(panel)
	if err != nil {
		return fmt.Errorf("redis encode panel %s: %w", key, err)
	}

	start := time.Now()
	err = c.breaker.Execute(func() error {
		return c.rdb.Set(ctx, panelPrefix+key, string(data), c.panelTTL).Err()
	})
	if err != nil {
		return fmt.Errorf("redis SET %s: %w", panelPrefix+key, err)
	}
	c.observe(start)
	return nil
}
