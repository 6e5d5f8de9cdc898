package redisclient

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// nudgeKey is a plain list used as a wake-up signal: the API pushes after it
// commits a job row, the worker blocks on it instead of tight-polling
// Postgres. The jobs table stays the source of truth; a lost nudge only
// delays a job until the next poll tick.
const nudgeKey = "campusfix:jobs:nudge"

type Client struct {
	redisdb *redis.Client
}

type Config struct {
	Addr     string
	Password string
	DB       int
}

func New(cfg Config) *Client {
	redisdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  -1, // BPop manages its own deadline
		WriteTimeout: 2 * time.Second,
	})

	return &Client{redisdb: redisdb}
}

// Ping checks redis connectivity (readiness probes).
func (c *Client) Ping(ctx context.Context) error {
	return c.redisdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.redisdb.Close()
}

// Nudge signals the worker that a new job is committed.
func (c *Client) Nudge(ctx context.Context) error {
	return c.redisdb.LPush(ctx, nudgeKey, "1").Err()
}

// WaitNudge blocks up to timeout for a nudge. Returns true when one arrived.
func (c *Client) WaitNudge(ctx context.Context, timeout time.Duration) (bool, error) {
	res, err := c.redisdb.BRPop(ctx, timeout, nudgeKey).Result()

	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}

	return len(res) > 0, nil
}
