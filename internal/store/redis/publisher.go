package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/sony/gobreaker"

	"quant-systemv1/internal/model"
)

const (
	selectionStreamMaxLen = 1000
	defaultMaxPending     = 256
	flushTimeout          = 30 * time.Second
)

// SelectionStream is the stream a strategy's selections are appended to.
func SelectionStream(strategy string) string { return "stream:selection:" + strategy }

// SelectionLatestKey holds the most recent selection of a strategy.
func SelectionLatestKey(strategy string) string { return "selection:latest:" + strategy }

// SelectionChannel is the pub/sub channel announcing new selections.
func SelectionChannel(strategy string) string { return "pub:selection:" + strategy }

// pendingPublish is a selection held back while the breaker was open.
type pendingPublish struct {
	runID    string
	strategy string
	data     string
}

// PublishSelection appends the selection to its stream, replaces the latest
// key and notifies subscribers in one pipeline. While the breaker is open the
// selection is buffered and replayed once it closes.
func (c *Client) PublishSelection(ctx context.Context, runID string, score *model.CompositeScore) error {
	data, err := json.Marshal(score)
	if err != nil {
		return fmt.Errorf("redis encode selection %s: %w", runID, err)
	}
	p := pendingPublish{runID: runID, strategy: score.Strategy, data: string(data)}

	err = c.publish(ctx, p)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		c.buffer(p)
		return nil
	}
	return err
}

func (c *Client) publish(ctx context.Context, p pendingPublish) error {
	start := time.Now()
	err := c.breaker.Execute(func() error {
		pipe := c.rdb.Pipeline()
		pipe.XAdd(ctx, &goredis.XAddArgs{
			Stream: SelectionStream(p.strategy),
			MaxLen: selectionStreamMaxLen,
			Approx: true,
			Values: []interface{}{"run_id", p.runID, "data", p.data},
		})
		pipe.Set(ctx, SelectionLatestKey(p.strategy), p.data, 0)
		pipe.Publish(ctx, SelectionChannel(p.strategy), p.data)
		_, err := pipe.Exec(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("redis publish selection %s: %w", p.runID, err)
	}
	c.observe(start)
	return nil
}

// LatestSelection returns the last published selection of strategy, or nil
// when none was published.
func (c *Client) LatestSelection(ctx context.Context, strategy string) (*model.CompositeScore, error) {
	var raw string
	err := c.breaker.Execute(func() error {
		var err error
		raw, err = c.rdb.Get(ctx, SelectionLatestKey(strategy)).Result()
		return err
	})
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis GET %s: %w", SelectionLatestKey(strategy), err)
	}
	var out model.CompositeScore
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("redis decode selection %s: %w", strategy, err)
	}
	return &out, nil
}

func (c *Client) buffer(p pendingPublish) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.pending) >= c.maxPending {
		// Full: drop oldest.
		c.pending = c.pending[1:]
	}
	c.pending = append(c.pending, p)
	slog.Warn("redis selection buffered", "run_id", p.runID, "pending", len(c.pending))
}

// flush replays buffered selections. Entries that fail again are re-buffered.
func (c *Client) flush() {
	c.mu.Lock()
	if len(c.pending) == 0 {
		c.mu.Unlock()
		return
	}
	toFlush := c.pending
	c.pending = nil
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	flushed := 0
	for _, p := range toFlush {
		if err := c.publish(ctx, p); err != nil {
			c.buffer(p)
			continue
		}
		flushed++
	}
	slog.Info("redis flushed buffered selections", "flushed", flushed, "total", len(toFlush))
}

// PendingCount returns the number of selections waiting to be published.
func (c *Client) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
